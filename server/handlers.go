package server

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"songbox/config"
	"songbox/core/jamendo"
	"songbox/core/library"
	"songbox/core/player"
	"songbox/logger"
	"songbox/repository"

	"github.com/gorilla/mux"
)

// maxJSONBody caps JSON request bodies.
const maxJSONBody = 1 << 20

// APIHandler holds dependencies for API handlers.
type APIHandler struct {
	library   *library.Service
	playlists repository.PlaylistRepository
	player    *player.Player
	jamendo   *jamendo.Client
	cfg       *config.Config
}

// NewAPIHandler creates a new APIHandler.
func NewAPIHandler(app *App) *APIHandler {
	return &APIHandler{
		library:   app.Library,
		playlists: app.Playlists,
		player:    app.Player,
		jamendo:   app.Jamendo,
		cfg:       app.Config,
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Warn("Failed to encode response", logger.ErrorField(err))
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// serverError logs err and answers 500 without leaking its text.
func serverError(w http.ResponseWriter, r *http.Request, msg string, err error) {
	logger.Error(msg,
		logger.String("requestId", RequestIDFromContext(r.Context())),
		logger.String("method", r.Method),
		logger.String("path", r.URL.Path),
		logger.ErrorField(err))
	writeError(w, http.StatusInternalServerError, msg)
}

// pathID parses a positive integer route variable.
func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(mux.Vars(r)[name], 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// decodeJSON reads a single JSON object from the request body.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return errors.New("invalid JSON body")
	}
	return nil
}

// HealthHandler reports that the process is serving.
func (h *APIHandler) HealthHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}
