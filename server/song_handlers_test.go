package server

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"songbox/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type uploadResponse struct {
	Songs []model.Song `json:"songs"`
}

func storedFiles(t *testing.T, s *testServer) []string {
	t.Helper()
	entries, err := os.ReadDir(s.store.Dir())
	require.NoError(t, err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	return names
}

func TestUploadListStreamDelete(t *testing.T) {
	s := newTestServer(t)
	body := mp3Bytes(200)

	rec := s.do(multipartRequest(t, "/upload",
		[]formFile{{name: "song.mp3", contentType: "audio/mpeg", data: body}},
		map[string]string{"title": "Custom", "album": "Live"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	uploaded := decode[uploadResponse](t, rec).Songs
	require.Len(t, uploaded, 1)
	song := uploaded[0]
	assert.Equal(t, "Custom", song.Title)
	assert.Equal(t, model.DefaultArtist, song.Artist)
	assert.Equal(t, "Live", song.Album)
	assert.Equal(t, "song.mp3", song.OriginalName)
	assert.True(t, strings.HasSuffix(song.Filename, "-song.mp3"), song.Filename)
	assert.Equal(t, int64(len(body)), song.Size)
	require.NotNil(t, song.Duration)
	assert.Equal(t, 5, *song.Duration)

	rec = s.request(http.MethodGet, "/songs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get("X-Total-Count"))
	list := decode[[]map[string]any](t, rec)
	require.Len(t, list, 1)
	assert.Equal(t, "Custom", list[0]["title"])
	assert.Equal(t, "81 KiB", list[0]["sizeHuman"])

	rec = s.request(http.MethodGet, "/music/"+song.Filename, nil, "Range", "bytes=0-9")
	require.Equal(t, http.StatusPartialContent, rec.Code)
	assert.Equal(t, body[:10], rec.Body.Bytes())
	assert.Equal(t, "audio/mpeg", rec.Header().Get("Content-Type"))
	assert.Equal(t, fmt.Sprintf("bytes 0-9/%d", len(body)), rec.Header().Get("Content-Range"))

	rec = s.request(http.MethodDelete, fmt.Sprintf("/songs/%d", song.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"song deleted"}`, rec.Body.String())

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, fmt.Sprintf("/songs/%d", song.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodDelete, fmt.Sprintf("/songs/%d", song.ID), nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/music/"+song.Filename, nil).Code)
	assert.Empty(t, storedFiles(t, s))
}

func TestUploadBatch(t *testing.T) {
	s := newTestServer(t)

	rec := s.do(multipartRequest(t, "/upload",
		[]formFile{
			{name: "one.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)},
			{name: "two.flac", contentType: "application/octet-stream", data: []byte("fLaC")},
		},
		map[string]string{"title": "ignored for batches"}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	songs := decode[uploadResponse](t, rec).Songs
	require.Len(t, songs, 2)
	assert.Equal(t, "one", songs[0].Title)
	assert.Equal(t, "two", songs[1].Title)
	assert.Nil(t, songs[1].Duration)
	assert.Len(t, storedFiles(t, s), 2)
}

func TestUploadBatchReportsPartialFailure(t *testing.T) {
	s := newTestServer(t)
	_, err := s.db.Exec(`CREATE TRIGGER reject_broken BEFORE INSERT ON songs
		WHEN NEW.original_name = 'broken.mp3'
		BEGIN SELECT RAISE(ABORT, 'rejected'); END`)
	require.NoError(t, err)

	rec := s.do(multipartRequest(t, "/upload",
		[]formFile{
			{name: "one.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)},
			{name: "broken.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)},
			{name: "three.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)},
		}, nil))
	require.Equal(t, http.StatusMultiStatus, rec.Code, rec.Body.String())

	var resp struct {
		Songs  []model.Song    `json:"songs"`
		Failed []uploadFailure `json:"failed"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Songs, 2)
	assert.Equal(t, "one", resp.Songs[0].Title)
	assert.Equal(t, "three", resp.Songs[1].Title)
	assert.Equal(t, []uploadFailure{{File: "broken.mp3", Error: "failed to upload song"}}, resp.Failed)
	assert.Len(t, storedFiles(t, s), 2, "the failed file is not left behind")

	rec = s.do(multipartRequest(t, "/upload",
		[]formFile{{name: "broken.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)}}, nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "failed to upload song", errorMessage(t, rec))
}

func TestUploadFromBrowserForm(t *testing.T) {
	s := newTestServer(t)

	req := multipartRequest(t, "/upload",
		[]formFile{{name: "song.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)}}, nil)
	req.Header.Set("Accept", "text/html,application/xhtml+xml")
	rec := s.do(req)

	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/", rec.Header().Get("Location"))
}

func TestUploadRejected(t *testing.T) {
	tests := []struct {
		name   string
		req    func(t *testing.T) *http.Request
		status int
	}{
		{
			name: "no file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload", nil, map[string]string{"title": "x"})
			},
			status: http.StatusBadRequest,
		},
		{
			name: "not multipart",
			req: func(t *testing.T) *http.Request {
				r := httptest.NewRequest(http.MethodPost, "/upload", strings.NewReader(`{}`))
				r.Header.Set("Content-Type", "application/json")
				return r
			},
			status: http.StatusBadRequest,
		},
		{
			name: "text file",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload",
					[]formFile{{name: "notes.txt", contentType: "text/plain", data: []byte("hello")}}, nil)
			},
			status: http.StatusUnsupportedMediaType,
		},
		{
			name: "one bad file fails the batch",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload", []formFile{
					{name: "ok.mp3", contentType: "audio/mpeg", data: mp3Bytes(10)},
					{name: "cover.jpg", contentType: "image/jpeg", data: []byte{0xff, 0xd8}},
				}, nil)
			},
			status: http.StatusUnsupportedMediaType,
		},
		{
			name: "too large",
			req: func(t *testing.T) *http.Request {
				return multipartRequest(t, "/upload",
					[]formFile{{name: "big.mp3", contentType: "audio/mpeg", data: bytes.Repeat([]byte{0}, 3<<20)}}, nil)
			},
			status: http.StatusRequestEntityTooLarge,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestServer(t)
			rec := s.do(tt.req(t))
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
			assert.NotEmpty(t, errorMessage(t, rec))
			assert.Empty(t, storedFiles(t, s))
		})
	}
}

func TestListSongsFilters(t *testing.T) {
	s := newTestServer(t)
	s.seedSong(t, "1-a.mp3", "Rock Anthem", "Band", "Loud")
	s.seedSong(t, "2-b.mp3", "Quiet", "Rockers", "Soft")
	s.seedSong(t, "3-c.mp3", "Other", "Solo", "")

	titles := func(rec *httptest.ResponseRecorder) []string {
		var out []string
		for _, song := range decode[[]model.Song](t, rec) {
			out = append(out, song.Title)
		}
		return out
	}

	rec := s.request(http.MethodGet, "/songs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"Other", "Quiet", "Rock Anthem"}, titles(rec))

	rec = s.request(http.MethodGet, "/songs?q=rock", nil)
	assert.Equal(t, []string{"Quiet", "Rock Anthem"}, titles(rec))

	rec = s.request(http.MethodGet, "/songs?artist=Solo", nil)
	assert.Equal(t, []string{"Other"}, titles(rec))

	rec = s.request(http.MethodGet, "/songs?limit=1&offset=1", nil)
	assert.Equal(t, []string{"Quiet"}, titles(rec))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	rec = s.request(http.MethodGet, "/songs?offset=1", nil)
	assert.Equal(t, []string{"Quiet", "Rock Anthem"}, titles(rec))
	assert.Equal(t, "3", rec.Header().Get("X-Total-Count"))

	rec = s.request(http.MethodGet, "/songs?q=nothing", nil)
	assert.JSONEq(t, `[]`, rec.Body.String())

	for _, bad := range []string{"limit=0", "limit=abc", "limit=100000", "offset=-1", "q=" + strings.Repeat("a", 101)} {
		rec = s.request(http.MethodGet, "/songs?"+bad, nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code, bad)
	}
}

func TestGetSong(t *testing.T) {
	s := newTestServer(t)
	song := s.seedSong(t, "1-a.mp3", "A", "B", "C")

	rec := s.request(http.MethodGet, fmt.Sprintf("/songs/%d", song.ID), nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "A", decode[model.Song](t, rec).Title)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/songs/999", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodGet, "/songs/abc", nil).Code)
	assert.Equal(t, http.StatusBadRequest, s.request(http.MethodGet, "/songs/0", nil).Code)
}

func TestUpdateSong(t *testing.T) {
	s := newTestServer(t)
	song := s.seedSong(t, "1-a.mp3", "Old", "Artist", "Album")
	path := fmt.Sprintf("/songs/%d", song.ID)

	rec := s.request(http.MethodPut, path, map[string]string{"title": "  New title "})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	updated := decode[model.Song](t, rec)
	assert.Equal(t, "New title", updated.Title)
	assert.Equal(t, "Artist", updated.Artist)
	assert.Equal(t, "Album", updated.Album)

	rec = s.request(http.MethodPut, path, map[string]string{"artist": "", "album": ""})
	require.Equal(t, http.StatusOK, rec.Code)
	updated = decode[model.Song](t, rec)
	assert.Equal(t, model.DefaultArtist, updated.Artist)
	assert.Equal(t, "", updated.Album)
	assert.Equal(t, "New title", updated.Title)

	// the limit counts characters, not bytes
	rec = s.request(http.MethodPut, path, map[string]string{"album": strings.Repeat("é", model.MaxTextLen)})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	tests := []struct {
		name   string
		path   string
		body   interface{}
		status int
	}{
		{"blank title", path, map[string]string{"title": "  "}, http.StatusBadRequest},
		{"bad json", path, "not json", http.StatusBadRequest},
		{"empty body", path, "", http.StatusBadRequest},
		{"long field", path, map[string]string{"album": strings.Repeat("x", 256)}, http.StatusBadRequest},
		{"missing song", "/songs/999", map[string]string{"title": "x"}, http.StatusNotFound},
		{"bad id", "/songs/abc", map[string]string{"title": "x"}, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := s.request(http.MethodPut, tt.path, tt.body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}
}

func TestSync(t *testing.T) {
	s := newTestServer(t)
	s.seedSong(t, "1-known.mp3", "Known", "A", "")
	require.NoError(t, os.WriteFile(filepath.Join(s.store.Dir(), "dropped.mp3"), mp3Bytes(40), 0644))
	require.NoError(t, os.WriteFile(filepath.Join(s.store.Dir(), "notes.txt"), []byte("x"), 0644))

	rec := s.request(http.MethodPost, "/sync", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"message":"sync finished, 1 files added","added":1,"files":["dropped.mp3"]}`, rec.Body.String())

	rec = s.request(http.MethodGet, "/songs?q=dropped", nil)
	songs := decode[[]model.Song](t, rec)
	require.Len(t, songs, 1)
	assert.Equal(t, model.DefaultArtist, songs[0].Artist)

	rec = s.request(http.MethodPost, "/sync", nil)
	assert.JSONEq(t, `{"message":"sync finished, 0 files added","added":0,"files":[]}`, rec.Body.String())
}

func TestStreamMissingOrInvalid(t *testing.T) {
	s := newTestServer(t)

	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/music/nope.mp3", nil).Code)
	assert.Equal(t, http.StatusNotFound, s.request(http.MethodGet, "/music/.hidden", nil).Code)
}
