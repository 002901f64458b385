package model

import (
	"encoding/json"
	"time"

	"github.com/dustin/go-humanize"
)

// MaxTextLen is the width, in characters, of the songs text columns.
const MaxTextLen = 255

// DefaultArtist is stored when neither the upload form nor the file tags name an artist.
const DefaultArtist = "Unknown"

// Song represents an uploaded audio file in the library.
type Song struct {
	ID           int64     `json:"id" gorm:"primaryKey"`
	Filename     string    `json:"filename"`     // Storage key, unique
	OriginalName string    `json:"originalName"` // Name of the file as uploaded
	Title        string    `json:"title"`
	Artist       string    `json:"artist"`
	Album        string    `json:"album"`
	Duration     *int      `json:"duration"` // Seconds, null when unknown
	Size         int64     `json:"size"`     // Bytes
	UploadDate   time.Time `json:"uploadDate"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

// TableName maps Song onto the songs table for GORM queries.
func (Song) TableName() string {
	return "songs"
}

// MarshalJSON adds a human readable size next to the raw byte count.
func (s Song) MarshalJSON() ([]byte, error) {
	type song Song
	return json.Marshal(struct {
		song
		SizeHuman string `json:"sizeHuman"`
	}{
		song:      song(s),
		SizeHuman: humanize.IBytes(uint64(max(s.Size, 0))),
	})
}

// SongUpdate carries a partial metadata edit. Nil fields are left unchanged.
type SongUpdate struct {
	Title  *string `json:"title"`
	Artist *string `json:"artist"`
	Album  *string `json:"album"`
}

// Empty reports whether the update changes nothing.
func (u SongUpdate) Empty() bool {
	return u.Title == nil && u.Artist == nil && u.Album == nil
}

// SongFilter narrows a catalog listing.
type SongFilter struct {
	Query  string // substring of title, artist or album
	Artist string // exact match
	Album  string // exact match
	Limit  int    // 0 = no limit
	Offset int
}
