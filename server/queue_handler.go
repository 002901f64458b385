package server

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"songbox/core/player"
	"songbox/model"

	"github.com/gorilla/mux"
)

// QueueSessionHeader selects the playback queue. Absent means player.DefaultSession.
const QueueSessionHeader = "X-Queue-Session"

// maxQueueAdd caps how many songs one request may enqueue.
const maxQueueAdd = 500

func queueSession(r *http.Request) string {
	if s := r.Header.Get(QueueSessionHeader); s != "" {
		return s
	}
	return player.DefaultSession
}

// songURL is where clients fetch a song's audio.
func songURL(filename string) string {
	return "/music/" + url.PathEscape(filename)
}

func queueItem(s *model.Song) model.QueueItem {
	return model.QueueItem{
		SongID: s.ID,
		Title:  s.Title,
		Artist: s.Artist,
		URL:    songURL(s.Filename),
	}
}

// updateQueue runs fn against the request's queue and answers with the new state.
// Moves that do not apply, like next on the last song, leave the queue as it was.
func (h *APIHandler) updateQueue(w http.ResponseWriter, r *http.Request, fn func(q *player.Queue) bool) {
	state, _, err := h.player.Update(r.Context(), queueSession(r), fn)
	if err != nil {
		if errors.Is(err, player.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, r, "failed to update queue", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

func (h *APIHandler) GetQueueHandler(w http.ResponseWriter, r *http.Request) {
	state, err := h.player.State(r.Context(), queueSession(r))
	if err != nil {
		if errors.Is(err, player.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, r, "failed to load queue", err)
		return
	}
	writeJSON(w, http.StatusOK, state)
}

type enqueueRequest struct {
	SongIDs    []int64 `json:"songIds"`
	PlaylistID int64   `json:"playlistId"`
	Play       bool    `json:"play"` // jump to the first added song
}

// EnqueueHandler appends songs, given by id or as a whole playlist.
func (h *APIHandler) EnqueueHandler(w http.ResponseWriter, r *http.Request) {
	var req enqueueRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if !player.ValidSession(queueSession(r)) {
		writeError(w, http.StatusBadRequest, player.ErrInvalidSession.Error())
		return
	}

	var items []model.QueueItem
	switch {
	case req.PlaylistID > 0 && len(req.SongIDs) > 0:
		writeError(w, http.StatusBadRequest, "send either songIds or playlistId, not both")
		return
	case req.PlaylistID > 0:
		playlist, err := h.playlists.GetPlaylist(r.Context(), req.PlaylistID)
		if err != nil {
			serverError(w, r, "failed to get playlist", err)
			return
		}
		if playlist == nil {
			writeError(w, http.StatusNotFound, "playlist not found")
			return
		}
		for _, s := range playlist.Songs {
			items = append(items, queueItem(s))
		}
	case len(req.SongIDs) > 0:
		if len(req.SongIDs) > maxQueueAdd {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("at most %d songs per request", maxQueueAdd))
			return
		}
		for _, id := range req.SongIDs {
			song, err := h.library.Get(r.Context(), id)
			if err != nil {
				serverError(w, r, "failed to get song", err)
				return
			}
			if song == nil {
				writeError(w, http.StatusNotFound, fmt.Sprintf("song %d not found", id))
				return
			}
			items = append(items, queueItem(song))
		}
	default:
		writeError(w, http.StatusBadRequest, "songIds or playlistId is required")
		return
	}

	h.updateQueue(w, r, func(q *player.Queue) bool {
		if len(items) == 0 {
			return false
		}
		first := q.Len()
		q.Add(items...)
		if req.Play {
			q.Play(first)
		}
		return true
	})
}

func (h *APIHandler) ClearQueueHandler(w http.ResponseWriter, r *http.Request) {
	if err := h.player.Clear(r.Context(), queueSession(r)); err != nil {
		if errors.Is(err, player.ErrInvalidSession) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		serverError(w, r, "failed to clear queue", err)
		return
	}
	writeJSON(w, http.StatusOK, player.NewQueue().State())
}

// queueIndex parses the {index} route variable. Negative values are valid
// input and are ignored by the queue like any other out-of-range index.
func queueIndex(r *http.Request) (int, bool) {
	i, err := strconv.Atoi(mux.Vars(r)["index"])
	return i, err == nil
}

func (h *APIHandler) PlayIndexHandler(w http.ResponseWriter, r *http.Request) {
	i, ok := queueIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	h.updateQueue(w, r, func(q *player.Queue) bool { return q.Play(i) })
}

func (h *APIHandler) NextHandler(w http.ResponseWriter, r *http.Request) {
	h.updateQueue(w, r, func(q *player.Queue) bool { return q.Next() })
}

func (h *APIHandler) PreviousHandler(w http.ResponseWriter, r *http.Request) {
	h.updateQueue(w, r, func(q *player.Queue) bool { return q.Previous() })
}

// EndedHandler is called by the client when the current song finished playing.
func (h *APIHandler) EndedHandler(w http.ResponseWriter, r *http.Request) {
	h.updateQueue(w, r, func(q *player.Queue) bool { return q.Ended() })
}

func (h *APIHandler) RemoveQueueItemHandler(w http.ResponseWriter, r *http.Request) {
	i, ok := queueIndex(r)
	if !ok {
		writeError(w, http.StatusBadRequest, "index must be an integer")
		return
	}
	h.updateQueue(w, r, func(q *player.Queue) bool { return q.Remove(i) })
}
