package server

import (
	"errors"
	"fmt"
	"net/http"
	"regexp"
	"strconv"
	"strings"

	"songbox/core/jamendo"
	"songbox/logger"

	"github.com/gorilla/mux"
)

const (
	defaultTrackLimit = 20
	defaultListLimit  = 10
	maxJamendoLimit   = 200
	maxQueryLen       = 100
)

var (
	genrePattern   = regexp.MustCompile(`^[a-z0-9 _-]{1,40}$`)
	numericPattern = regexp.MustCompile(`^[0-9]{1,12}$`)
)

// jamendoLimit reads ?limit, falling back to def.
func jamendoLimit(r *http.Request, def int) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return def, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 1 || n > maxJamendoLimit {
		return 0, fmt.Errorf("limit must be an integer between 1 and %d", maxJamendoLimit)
	}
	return n, nil
}

func searchQuery(r *http.Request) (string, error) {
	q := strings.TrimSpace(r.URL.Query().Get("q"))
	if q == "" {
		return "", errors.New("q is required")
	}
	if len(q) > maxQueryLen {
		return "", fmt.Errorf("q must be at most %d characters", maxQueryLen)
	}
	return q, nil
}

// numericVar returns a route variable that must be a Jamendo numeric id.
func numericVar(r *http.Request, name string) (string, bool) {
	v := mux.Vars(r)[name]
	return v, numericPattern.MatchString(v)
}

// jamendoError maps client errors onto proxy status codes.
func jamendoError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, jamendo.ErrNotConfigured):
		writeError(w, http.StatusServiceUnavailable, "Jamendo integration is not configured")
	case errors.Is(err, jamendo.ErrUpstream):
		logger.Warn("Jamendo request failed",
			logger.String("requestId", RequestIDFromContext(r.Context())),
			logger.String("path", r.URL.Path),
			logger.ErrorField(err))
		writeError(w, http.StatusBadGateway, "Jamendo is unavailable")
	default:
		serverError(w, r, "Jamendo request failed", err)
	}
}

func (h *APIHandler) JamendoGenresHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, jamendo.Genres)
}

func (h *APIHandler) JamendoFeaturedHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := jamendoLimit(r, defaultTrackLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracks, err := h.jamendo.FeaturedTracks(r.Context(), limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) JamendoSearchHandler(w http.ResponseWriter, r *http.Request) {
	q, err := searchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := jamendoLimit(r, defaultTrackLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracks, err := h.jamendo.SearchTracks(r.Context(), q, limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) JamendoGenreHandler(w http.ResponseWriter, r *http.Request) {
	genre := strings.ToLower(mux.Vars(r)["genre"])
	if !genrePattern.MatchString(genre) {
		writeError(w, http.StatusBadRequest, "invalid genre")
		return
	}
	limit, err := jamendoLimit(r, defaultTrackLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracks, err := h.jamendo.TracksByGenre(r.Context(), genre, limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) JamendoTrackHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := numericVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid track id")
		return
	}
	track, err := h.jamendo.Track(r.Context(), id)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	if track == nil {
		writeError(w, http.StatusNotFound, "track not found")
		return
	}
	writeJSON(w, http.StatusOK, track)
}

func (h *APIHandler) JamendoArtistSearchHandler(w http.ResponseWriter, r *http.Request) {
	q, err := searchQuery(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := jamendoLimit(r, defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	artists, err := h.jamendo.SearchArtists(r.Context(), q, limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, artists)
}

func (h *APIHandler) JamendoArtistTracksHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := numericVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid artist id")
		return
	}
	limit, err := jamendoLimit(r, defaultTrackLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracks, err := h.jamendo.ArtistTracks(r.Context(), id, limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *APIHandler) JamendoRadiosHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := jamendoLimit(r, defaultListLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	radios, err := h.jamendo.Radios(r.Context(), limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, radios)
}

func (h *APIHandler) JamendoRadioTracksHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := numericVar(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid radio id")
		return
	}
	limit, err := jamendoLimit(r, defaultTrackLimit)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	tracks, err := h.jamendo.RadioTracks(r.Context(), id, limit)
	if err != nil {
		jamendoError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}
