package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"songbox/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PlaylistRepository defines the interface for playlist data operations.
type PlaylistRepository interface {
	CreatePlaylist(ctx context.Context, playlist *model.Playlist) error
	GetPlaylist(ctx context.Context, id int64) (*model.Playlist, error)
	ListPlaylists(ctx context.Context) ([]*model.Playlist, error)
	UpdatePlaylist(ctx context.Context, id int64, name, description string) (*model.Playlist, error)
	DeletePlaylist(ctx context.Context, id int64) (bool, error)

	AddSong(ctx context.Context, playlistID, songID int64) error
	RemoveSong(ctx context.Context, playlistID, songID int64) (bool, error)
	ReorderSongs(ctx context.Context, playlistID int64, songIDs []int64) error
}

// gormPlaylistRepository GORM implementation
type gormPlaylistRepository struct {
	db *gorm.DB
}

// NewGormPlaylistRepository creates a GORM-backed playlist repository.
func NewGormPlaylistRepository(db *gorm.DB) PlaylistRepository {
	return &gormPlaylistRepository{db: db}
}

func (r *gormPlaylistRepository) CreatePlaylist(ctx context.Context, playlist *model.Playlist) error {
	if err := r.db.WithContext(ctx).Create(playlist).Error; err != nil {
		if isDuplicateErr(err) {
			return fmt.Errorf("playlist %q: %w", playlist.Name, ErrDuplicate)
		}
		return fmt.Errorf("failed to create playlist: %w", err)
	}
	return nil
}

// GetPlaylist loads a playlist and its songs in position order. It returns nil, nil when absent.
func (r *gormPlaylistRepository) GetPlaylist(ctx context.Context, id int64) (*model.Playlist, error) {
	var playlist model.Playlist
	err := r.db.WithContext(ctx).First(&playlist, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get playlist %d: %w", id, err)
	}

	songs := make([]*model.Song, 0)
	err = r.db.WithContext(ctx).
		Table("songs").
		Select("songs.*").
		Joins("JOIN playlist_songs ON playlist_songs.song_id = songs.id").
		Where("playlist_songs.playlist_id = ?", id).
		Order("playlist_songs.position ASC").
		Find(&songs).Error
	if err != nil {
		return nil, fmt.Errorf("failed to load songs of playlist %d: %w", id, err)
	}
	playlist.Songs = songs
	return &playlist, nil
}

func (r *gormPlaylistRepository) ListPlaylists(ctx context.Context) ([]*model.Playlist, error) {
	playlists := make([]*model.Playlist, 0)
	if err := r.db.WithContext(ctx).Order("name ASC").Find(&playlists).Error; err != nil {
		return nil, fmt.Errorf("failed to list playlists: %w", err)
	}
	return playlists, nil
}

// UpdatePlaylist renames a playlist. It returns nil, nil when absent.
func (r *gormPlaylistRepository) UpdatePlaylist(ctx context.Context, id int64, name, description string) (*model.Playlist, error) {
	res := r.db.WithContext(ctx).Model(&model.Playlist{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"name":        name,
			"description": description,
			"updated_at":  time.Now().UTC(),
		})
	if res.Error != nil {
		if isDuplicateErr(res.Error) {
			return nil, fmt.Errorf("playlist %q: %w", name, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to update playlist %d: %w", id, res.Error)
	}
	return r.GetPlaylist(ctx, id)
}

func (r *gormPlaylistRepository) DeletePlaylist(ctx context.Context, id int64) (bool, error) {
	var deleted int64
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("playlist_id = ?", id).Delete(&model.PlaylistSong{}).Error; err != nil {
			return err
		}
		res := tx.Delete(&model.Playlist{}, id)
		deleted = res.RowsAffected
		return res.Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete playlist %d: %w", id, err)
	}
	return deleted > 0, nil
}

// AddSong appends a song after the current last position. Adding a song twice is a no-op.
func (r *gormPlaylistRepository) AddSong(ctx context.Context, playlistID, songID int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var maxPos struct{ Pos *int }
		if err := tx.Model(&model.PlaylistSong{}).
			Select("MAX(position) AS pos").
			Where("playlist_id = ?", playlistID).
			Scan(&maxPos).Error; err != nil {
			return fmt.Errorf("failed to read playlist positions: %w", err)
		}

		next := 0
		if maxPos.Pos != nil {
			next = *maxPos.Pos + 1
		}

		entry := model.PlaylistSong{PlaylistID: playlistID, SongID: songID, Position: next, AddedAt: time.Now().UTC()}
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to add song %d to playlist %d: %w", songID, playlistID, err)
		}
		return nil
	})
}

// RemoveSong drops a song and closes the gap in positions.
func (r *gormPlaylistRepository) RemoveSong(ctx context.Context, playlistID, songID int64) (bool, error) {
	var removed bool
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entry model.PlaylistSong
		err := tx.Where("playlist_id = ? AND song_id = ?", playlistID, songID).First(&entry).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return err
		}

		if err := tx.Delete(&entry).Error; err != nil {
			return err
		}
		removed = true

		return tx.Model(&model.PlaylistSong{}).
			Where("playlist_id = ? AND position > ?", playlistID, entry.Position).
			Update("position", gorm.Expr("position - 1")).Error
	})
	if err != nil {
		return false, fmt.Errorf("failed to remove song %d from playlist %d: %w", songID, playlistID, err)
	}
	return removed, nil
}

// ReorderSongs assigns positions following songIDs. Songs not listed keep
// their relative order after the listed ones.
func (r *gormPlaylistRepository) ReorderSongs(ctx context.Context, playlistID int64, songIDs []int64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var entries []model.PlaylistSong
		if err := tx.Where("playlist_id = ?", playlistID).Order("position ASC").Find(&entries).Error; err != nil {
			return fmt.Errorf("failed to load playlist %d entries: %w", playlistID, err)
		}

		order := reorder(entries, songIDs)
		for pos, songID := range order {
			if err := tx.Model(&model.PlaylistSong{}).
				Where("playlist_id = ? AND song_id = ?", playlistID, songID).
				Update("position", pos).Error; err != nil {
				return fmt.Errorf("failed to move song %d: %w", songID, err)
			}
		}
		return nil
	})
}

// reorder returns the song ids of entries with the requested ids first.
func reorder(entries []model.PlaylistSong, requested []int64) []int64 {
	present := make(map[int64]bool, len(entries))
	for _, e := range entries {
		present[e.SongID] = true
	}

	order := make([]int64, 0, len(entries))
	placed := make(map[int64]bool, len(entries))
	for _, id := range requested {
		if present[id] && !placed[id] {
			order = append(order, id)
			placed[id] = true
		}
	}
	for _, e := range entries {
		if !placed[e.SongID] {
			order = append(order, e.SongID)
		}
	}
	return order
}
