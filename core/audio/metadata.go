// Package audio reads tags and durations from uploaded audio files and writes
// edited tags back into MP3s.
package audio

import (
	"context"
	"errors"
	"mime"
	"os"
	"path/filepath"
	"strings"
	"time"

	"songbox/logger"

	"github.com/bogem/id3v2/v2"
	"github.com/dhowden/tag"
)

// Extensions lists the audio file extensions the library accepts.
var Extensions = []string{".mp3", ".wav", ".ogg", ".oga", ".flac", ".m4a", ".aac", ".webm", ".opus"}

// Metadata is what could be read from an audio file. Empty fields were not tagged.
type Metadata struct {
	Title    string
	Artist   string
	Album    string
	Genre    string
	Year     int
	Track    int
	Format   string
	Duration time.Duration // zero when unknown
}

// DurationSeconds rounds Duration to whole seconds, or nil when unknown.
func (m *Metadata) DurationSeconds() *int {
	if m == nil || m.Duration <= 0 {
		return nil
	}
	secs := int(m.Duration.Round(time.Second) / time.Second)
	return &secs
}

// Extractor reads metadata, falling back to ffprobe for durations when configured.
type Extractor struct {
	probe *FFprobe
}

// NewExtractor returns an extractor. probe may be nil.
func NewExtractor(probe *FFprobe) *Extractor {
	return &Extractor{probe: probe}
}

// ExtractMetadata reads metadata without the ffprobe fallback.
func ExtractMetadata(path string) (*Metadata, error) {
	return NewExtractor(nil).Extract(context.Background(), path)
}

// Extract reads tags and duration of the file at path. Missing tags and an
// undeterminable duration are not errors; only an unreadable file is.
func (e *Extractor) Extract(ctx context.Context, path string) (*Metadata, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}

	ext := strings.ToLower(filepath.Ext(path))
	md := readTags(path, ext)

	d, err := nativeDuration(path, ext)
	if errors.Is(err, errNoDecoder) && e.probe != nil {
		d, err = e.probe.Duration(ctx, path)
	}
	if err != nil && !errors.Is(err, errNoDecoder) {
		logger.Debug("Could not determine duration",
			logger.String("path", path),
			logger.ErrorField(err))
	}
	md.Duration = d
	return md, nil
}

func readTags(path, ext string) *Metadata {
	md := &Metadata{Format: strings.TrimPrefix(ext, ".")}

	f, err := os.Open(path)
	if err != nil {
		return md
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		// dhowden/tag trips over some UTF-16 ID3 frames; id3v2 reads them fine.
		if ext == ".mp3" {
			readID3v2(path, md)
		}
		return md
	}

	md.Title = strings.TrimSpace(m.Title())
	md.Artist = strings.TrimSpace(m.Artist())
	if md.Artist == "" {
		md.Artist = strings.TrimSpace(m.AlbumArtist())
	}
	md.Album = strings.TrimSpace(m.Album())
	md.Genre = strings.TrimSpace(m.Genre())
	md.Year = m.Year()
	md.Track, _ = m.Track()
	if ft := m.FileType(); ft != tag.UnknownFileType {
		md.Format = strings.ToLower(string(ft))
	}
	return md
}

func readID3v2(path string, md *Metadata) {
	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return
	}
	defer t.Close()

	md.Title = strings.TrimSpace(t.Title())
	md.Artist = strings.TrimSpace(t.Artist())
	md.Album = strings.TrimSpace(t.Album())
	md.Genre = strings.TrimSpace(t.Genre())
}

// genericTypes are content types browsers send when they don't know better.
var genericTypes = map[string]bool{
	"":                         true,
	"application/octet-stream": true,
	"application/ogg":          true,
	"video/ogg":                true,
	"video/webm":               true,
}

// IsAudio reports whether an upload looks like audio, judged by its declared
// content type, or by its extension when the content type is generic.
func IsAudio(filename, contentType string) bool {
	mediaType := strings.ToLower(strings.TrimSpace(contentType))
	if parsed, _, err := mime.ParseMediaType(contentType); err == nil {
		mediaType = parsed
	}
	if strings.HasPrefix(mediaType, "audio/") {
		return true
	}
	if !genericTypes[mediaType] {
		return false
	}
	return HasAudioExtension(filename)
}

// HasAudioExtension reports whether name ends in a known audio extension.
func HasAudioExtension(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	for _, e := range Extensions {
		if ext == e {
			return true
		}
	}
	return false
}
