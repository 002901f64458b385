package model

import "time"

// Playlist is a named, ordered collection of songs.
type Playlist struct {
	ID          int64     `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
	Songs       []*Song   `json:"songs,omitempty" gorm:"-"`
}

func (Playlist) TableName() string {
	return "playlists"
}

// PlaylistSong places a song at a position inside a playlist.
type PlaylistSong struct {
	PlaylistID int64     `json:"playlistId" gorm:"primaryKey;autoIncrement:false"`
	SongID     int64     `json:"songId" gorm:"primaryKey;autoIncrement:false"`
	Position   int       `json:"position"`
	AddedAt    time.Time `json:"addedAt"`
}

func (PlaylistSong) TableName() string {
	return "playlist_songs"
}
