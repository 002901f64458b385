package server

import (
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"strings"

	"songbox/core/audio"
	"songbox/core/library"
	"songbox/logger"
	"songbox/model"
)

const (
	uploadField = "song"
	// multipartMemory is kept in memory per request, the rest spills to temp files.
	multipartMemory = 32 << 20
	// formOverhead leaves room for multipart headers and text fields.
	formOverhead = 1 << 20
)

// UploadHandler stores one or more audio files sent in the "song" field.
// Optional title, artist and album fields apply when a single file is sent.
// A batch where only some files fail answers 207 with songs and failed lists.
func (h *APIHandler) UploadHandler(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.cfg.MaxUploadBytes()+formOverhead)
	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds the size limit")
			return
		}
		writeError(w, http.StatusBadRequest, "expected a multipart/form-data body")
		return
	}
	defer r.MultipartForm.RemoveAll()

	files := r.MultipartForm.File[uploadField]
	if len(files) == 0 {
		writeError(w, http.StatusBadRequest, library.ErrNoFile.Error())
		return
	}
	// Reject the whole batch before anything is stored.
	for _, fh := range files {
		if !audio.IsAudio(fh.Filename, fh.Header.Get("Content-Type")) {
			writeError(w, http.StatusUnsupportedMediaType, library.ErrNotAudio.Error()+": "+fh.Filename)
			return
		}
	}

	songs := make([]*model.Song, 0, len(files))
	var failed []uploadFailure
	var firstErr error
	for _, fh := range files {
		in := library.UploadInput{
			OriginalName: fh.Filename,
			ContentType:  fh.Header.Get("Content-Type"),
			Size:         fh.Size,
		}
		if len(files) == 1 {
			in.Title = r.FormValue("title")
			in.Artist = r.FormValue("artist")
			in.Album = r.FormValue("album")
		}

		song, err := h.uploadOne(r, fh, in)
		if err != nil {
			logger.Error("Failed to upload song",
				logger.String("requestId", RequestIDFromContext(r.Context())),
				logger.String("file", fh.Filename),
				logger.ErrorField(err))
			if firstErr == nil {
				firstErr = err
			}
			failed = append(failed, uploadFailure{File: fh.Filename, Error: uploadErrorMessage(err)})
			continue
		}
		songs = append(songs, song)
	}

	logger.Info("Upload request finished",
		logger.String("requestId", RequestIDFromContext(r.Context())),
		logger.Int("files", len(songs)),
		logger.Int("failed", len(failed)))

	switch {
	case len(songs) == 0 && errors.Is(firstErr, library.ErrNotAudio):
		writeError(w, http.StatusUnsupportedMediaType, firstErr.Error())
		return
	case len(songs) == 0:
		writeError(w, http.StatusInternalServerError, "failed to upload song")
		return
	case len(failed) > 0:
		// Some files are stored; report both lists so the client can retry the rest.
		writeJSON(w, http.StatusMultiStatus, map[string]interface{}{"songs": songs, "failed": failed})
		return
	}

	if wantsHTML(r) {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]interface{}{"songs": songs})
}

// uploadFailure names a file of a batch that was not stored.
type uploadFailure struct {
	File  string `json:"file"`
	Error string `json:"error"`
}

func (h *APIHandler) uploadOne(r *http.Request, fh *multipart.FileHeader, in library.UploadInput) (*model.Song, error) {
	file, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("failed to read uploaded file: %w", err)
	}
	defer file.Close()

	in.Body = file
	return h.library.Upload(r.Context(), in)
}

// uploadErrorMessage keeps internal error text out of responses.
func uploadErrorMessage(err error) string {
	if errors.Is(err, library.ErrNotAudio) {
		return library.ErrNotAudio.Error()
	}
	return "failed to upload song"
}

// wantsHTML is true for plain browser form posts.
func wantsHTML(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "text/html")
}
