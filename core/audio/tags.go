package audio

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/bogem/id3v2/v2"
)

// ErrTagsUnsupported is returned by WriteTags for formats other than MP3.
var ErrTagsUnsupported = errors.New("writing tags is only supported for mp3")

// WriteTags stores title, artist and album as ID3v2.4 frames.
func WriteTags(path, title, artist, album string) error {
	if strings.ToLower(filepath.Ext(path)) != ".mp3" {
		return ErrTagsUnsupported
	}

	t, err := id3v2.Open(path, id3v2.Options{Parse: true})
	if err != nil {
		return fmt.Errorf("failed to open tags of %s: %w", path, err)
	}
	defer t.Close()

	t.SetVersion(4)
	t.SetDefaultEncoding(id3v2.EncodingUTF8)
	t.SetTitle(title)
	t.SetArtist(artist)
	t.SetAlbum(album)

	if err := t.Save(); err != nil {
		return fmt.Errorf("failed to save tags of %s: %w", path, err)
	}
	return nil
}
