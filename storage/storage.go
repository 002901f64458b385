// Package storage keeps uploaded audio bytes, either in a local directory or
// in a MinIO bucket, behind one Store interface.
package storage

import (
	"context"
	"errors"
	"io"
	"mime"
	"path/filepath"
	"strconv"
	"strings"
	"time"
	"unicode"
)

var (
	// ErrNotFound is returned when the named object does not exist.
	ErrNotFound = errors.New("object not found")
	// ErrInvalidName is returned for names that are not a single plain path element.
	ErrInvalidName = errors.New("invalid object name")
	// ErrExists is returned by Save when the name is already taken.
	ErrExists = errors.New("object already exists")
)

// ObjectInfo describes a stored object.
type ObjectInfo struct {
	Name        string
	Size        int64
	ModTime     time.Time
	ContentType string
}

// Object is an open stored object. It is seekable so it can back ranged HTTP responses.
type Object interface {
	io.ReadSeekCloser
	Stat() ObjectInfo
}

// Store is the file storage used by the library.
type Store interface {
	// Save writes r under name. size may be -1 when unknown.
	Save(ctx context.Context, name string, r io.Reader, size int64) (int64, error)
	Open(ctx context.Context, name string) (Object, error)
	// Delete removes name. A missing object is not an error.
	Delete(ctx context.Context, name string) error
	List(ctx context.Context) ([]ObjectInfo, error)
	Exists(ctx context.Context, name string) (bool, error)
}

// LocalPather is implemented by stores whose objects are plain files.
type LocalPather interface {
	Path(name string) (string, error)
}

// ValidName reports whether name can be used as an object name.
func ValidName(name string) bool {
	if name == "" || name == "." || name == ".." || strings.HasPrefix(name, ".") {
		return false
	}
	if strings.ContainsAny(name, `/\`) || strings.ContainsRune(name, 0) {
		return false
	}
	return filepath.Base(name) == name
}

const maxNameLen = 200

// StoredName builds the storage key for an upload: "<unix-millis>-<sanitized name>".
func StoredName(originalName string, now time.Time) string {
	return strconv.FormatInt(now.UnixMilli(), 10) + "-" + sanitize(originalName)
}

func sanitize(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}

	var b strings.Builder
	for _, r := range strings.TrimSpace(name) {
		switch {
		case unicode.IsLetter(r), unicode.IsDigit(r), r == '.', r == '-', r == '_', r == ' ':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}

	out := strings.TrimLeft(b.String(), ".")
	if out == "" {
		return "audio"
	}
	if len(out) > maxNameLen {
		ext := filepath.Ext(out)
		if len(ext) > 10 {
			ext = ""
		}
		cut := maxNameLen - len(ext)
		// don't split a multi-byte rune
		for cut > 0 && !isRuneStart(out[cut]) {
			cut--
		}
		out = out[:cut] + ext
	}
	return out
}

func isRuneStart(b byte) bool { return b&0xC0 != 0x80 }

// ContentType guesses the MIME type of a stored name from its extension.
func ContentType(name string) string {
	ext := strings.ToLower(filepath.Ext(name))
	switch ext {
	case ".mp3":
		return "audio/mpeg"
	case ".flac":
		return "audio/flac"
	case ".m4a", ".aac":
		return "audio/mp4"
	case ".ogg", ".oga", ".opus":
		return "audio/ogg"
	case ".wav":
		return "audio/wav"
	case ".webm":
		return "audio/webm"
	}
	if ct := mime.TypeByExtension(ext); ct != "" {
		return ct
	}
	return "application/octet-stream"
}
