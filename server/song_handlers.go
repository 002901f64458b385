package server

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"unicode/utf8"

	"songbox/core/library"
	"songbox/model"
)

// maxPageSize caps the limit parameter of listings.
const maxPageSize = 500

// parseSongFilter reads q, artist, album, limit and offset.
func parseSongFilter(r *http.Request) (model.SongFilter, error) {
	q := r.URL.Query()
	filter := model.SongFilter{
		Query:  q.Get("q"),
		Artist: q.Get("artist"),
		Album:  q.Get("album"),
	}
	if len(filter.Query) > 100 {
		return filter, errors.New("q must be at most 100 characters")
	}
	if v := q.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 || n > maxPageSize {
			return filter, fmt.Errorf("limit must be an integer between 1 and %d", maxPageSize)
		}
		filter.Limit = n
	}
	if v := q.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			return filter, errors.New("offset must be a non-negative integer")
		}
		filter.Offset = n
	}
	return filter, nil
}

// ListSongsHandler returns the catalog as a JSON array, newest first.
func (h *APIHandler) ListSongsHandler(w http.ResponseWriter, r *http.Request) {
	filter, err := parseSongFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	songs, total, err := h.library.List(r.Context(), filter)
	if err != nil {
		serverError(w, r, "failed to list songs", err)
		return
	}
	w.Header().Set("X-Total-Count", strconv.FormatInt(total, 10))
	writeJSON(w, http.StatusOK, songs)
}

func (h *APIHandler) GetSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	song, err := h.library.Get(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to get song", err)
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

// UpdateSongHandler edits title, artist and album. Omitted fields are kept.
func (h *APIHandler) UpdateSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	var update model.SongUpdate
	if err := decodeJSON(w, r, &update); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	for _, f := range []*string{update.Title, update.Artist, update.Album} {
		if f != nil && utf8.RuneCountInString(*f) > model.MaxTextLen {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("fields must be at most %d characters", model.MaxTextLen))
			return
		}
	}

	song, err := h.library.Update(r.Context(), id, update)
	if err != nil {
		if errors.Is(err, library.ErrEmptyTitle) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, r, "failed to update song", err)
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	writeJSON(w, http.StatusOK, song)
}

func (h *APIHandler) DeleteSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	deleted, err := h.library.Delete(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to delete song", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "song deleted"})
}

// SyncHandler registers stored files that are not in the catalog yet.
func (h *APIHandler) SyncHandler(w http.ResponseWriter, r *http.Request) {
	report, err := h.library.Sync(r.Context())
	if err != nil {
		serverError(w, r, "failed to sync library", err)
		return
	}

	files := make([]string, 0, len(report.Added))
	for _, s := range report.Added {
		files = append(files, s.Filename)
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"message": fmt.Sprintf("sync finished, %d files added", len(report.Added)),
		"added":   len(report.Added),
		"files":   files,
	})
}
