package server

import (
	"errors"
	"net/http"
	"strings"

	"songbox/model"
	"songbox/repository"
)

type playlistRequest struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

func (p *playlistRequest) validate() error {
	p.Name = strings.TrimSpace(p.Name)
	p.Description = strings.TrimSpace(p.Description)
	if p.Name == "" {
		return errors.New("name must not be empty")
	}
	if len(p.Name) > 255 {
		return errors.New("name must be at most 255 characters")
	}
	if len(p.Description) > 1000 {
		return errors.New("description must be at most 1000 characters")
	}
	return nil
}

func (h *APIHandler) ListPlaylistsHandler(w http.ResponseWriter, r *http.Request) {
	playlists, err := h.playlists.ListPlaylists(r.Context())
	if err != nil {
		serverError(w, r, "failed to list playlists", err)
		return
	}
	writeJSON(w, http.StatusOK, playlists)
}

func (h *APIHandler) CreatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playlist := &model.Playlist{Name: req.Name, Description: req.Description}
	if err := h.playlists.CreatePlaylist(r.Context(), playlist); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "a playlist with this name already exists")
			return
		}
		serverError(w, r, "failed to create playlist", err)
		return
	}
	writeJSON(w, http.StatusCreated, playlist)
}

func (h *APIHandler) GetPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	playlist, err := h.playlists.GetPlaylist(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to get playlist", err)
		return
	}
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	if playlist.Songs == nil {
		playlist.Songs = []*model.Song{}
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *APIHandler) UpdatePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	var req playlistRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := req.validate(); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	playlist, err := h.playlists.UpdatePlaylist(r.Context(), id, req.Name, req.Description)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			writeError(w, http.StatusConflict, "a playlist with this name already exists")
			return
		}
		serverError(w, r, "failed to update playlist", err)
		return
	}
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}

func (h *APIHandler) DeletePlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}

	deleted, err := h.playlists.DeletePlaylist(r.Context(), id)
	if err != nil {
		serverError(w, r, "failed to delete playlist", err)
		return
	}
	if !deleted {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "playlist deleted"})
}

// AddPlaylistSongHandler appends {songId} to a playlist.
func (h *APIHandler) AddPlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	var req struct {
		SongID int64 `json:"songId"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.SongID <= 0 {
		writeError(w, http.StatusBadRequest, "songId must be a positive integer")
		return
	}

	ctx := r.Context()
	playlist, err := h.playlists.GetPlaylist(ctx, id)
	if err != nil {
		serverError(w, r, "failed to get playlist", err)
		return
	}
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}
	song, err := h.library.Get(ctx, req.SongID)
	if err != nil {
		serverError(w, r, "failed to get song", err)
		return
	}
	if song == nil {
		writeError(w, http.StatusNotFound, "song not found")
		return
	}

	if err := h.playlists.AddSong(ctx, id, req.SongID); err != nil {
		serverError(w, r, "failed to add song to playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "song added to playlist"})
}

func (h *APIHandler) RemovePlaylistSongHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	songID, ok := pathID(r, "songId")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid song id")
		return
	}

	removed, err := h.playlists.RemoveSong(r.Context(), id, songID)
	if err != nil {
		serverError(w, r, "failed to remove song from playlist", err)
		return
	}
	if !removed {
		writeError(w, http.StatusNotFound, "song is not in this playlist")
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"message": "song removed from playlist"})
}

// ReorderPlaylistHandler applies {songIds} as the new order.
func (h *APIHandler) ReorderPlaylistHandler(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		writeError(w, http.StatusBadRequest, "invalid playlist id")
		return
	}
	var req struct {
		SongIDs []int64 `json:"songIds"`
	}
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.SongIDs) == 0 {
		writeError(w, http.StatusBadRequest, "songIds must not be empty")
		return
	}

	ctx := r.Context()
	playlist, err := h.playlists.GetPlaylist(ctx, id)
	if err != nil {
		serverError(w, r, "failed to get playlist", err)
		return
	}
	if playlist == nil {
		writeError(w, http.StatusNotFound, "playlist not found")
		return
	}

	if err := h.playlists.ReorderSongs(ctx, id, req.SongIDs); err != nil {
		serverError(w, r, "failed to reorder playlist", err)
		return
	}
	playlist, err = h.playlists.GetPlaylist(ctx, id)
	if err != nil {
		serverError(w, r, "failed to get playlist", err)
		return
	}
	writeJSON(w, http.StatusOK, playlist)
}
