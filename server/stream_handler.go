package server

import (
	"errors"
	"net/http"

	"songbox/storage"

	"github.com/gorilla/mux"
)

// StreamHandler serves a stored audio file with Range support.
func (h *APIHandler) StreamHandler(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["filename"]

	obj, err := h.library.Store().Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) || errors.Is(err, storage.ErrInvalidName) {
			writeError(w, http.StatusNotFound, "file not found")
			return
		}
		serverError(w, r, "failed to open file", err)
		return
	}
	defer obj.Close()

	info := obj.Stat()
	ctype := info.ContentType
	if ctype == "" {
		ctype = storage.ContentType(name)
	}
	w.Header().Set("Content-Type", ctype)
	w.Header().Set("Accept-Ranges", "bytes")
	w.Header().Set("Cache-Control", "public, max-age=86400")

	http.ServeContent(w, r, name, info.ModTime, obj)
}
