package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"songbox/logger"
	"songbox/model"

	"github.com/go-sql-driver/mysql"
)

// ErrDuplicate is returned when a unique column (filename, playlist name) already holds the value.
var ErrDuplicate = errors.New("duplicate entry")

// SongRepository defines the interface for song data operations.
type SongRepository interface {
	CreateSong(ctx context.Context, song *model.Song) (int64, error)
	GetSongByID(ctx context.Context, id int64) (*model.Song, error)
	GetSongByFilename(ctx context.Context, filename string) (*model.Song, error)
	ListSongs(ctx context.Context, filter model.SongFilter) ([]*model.Song, error)
	CountSongs(ctx context.Context, filter model.SongFilter) (int64, error)
	UpdateSong(ctx context.Context, id int64, update model.SongUpdate) (*model.Song, error)
	DeleteSong(ctx context.Context, id int64) (bool, error)
	ListFilenames(ctx context.Context) (map[string]struct{}, error)
}

// mysqlSongRepository implements SongRepository with portable, parameterized SQL.
type mysqlSongRepository struct {
	DB *sql.DB
}

// NewMySQLSongRepository creates a new instance of mysqlSongRepository.
func NewMySQLSongRepository(db *sql.DB) SongRepository {
	return &mysqlSongRepository{DB: db}
}

const songColumns = `id, filename, original_name, title, artist, album, duration, size, upload_date, updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSong(row rowScanner) (*model.Song, error) {
	song := &model.Song{}
	var duration sql.NullInt64
	err := row.Scan(&song.ID, &song.Filename, &song.OriginalName, &song.Title, &song.Artist, &song.Album,
		&duration, &song.Size, timeScanner{&song.UploadDate}, timeScanner{&song.UpdatedAt})
	if err != nil {
		return nil, err
	}
	if duration.Valid {
		d := int(duration.Int64)
		song.Duration = &d
	}
	return song, nil
}

const (
	mysqlErrDupEntry = 1062

	// SQLite extended result codes, reported by the pure Go driver used in tests.
	sqliteConstraintPrimaryKey = 1555
	sqliteConstraintUnique     = 2067
)

// isDuplicateErr recognizes unique violations from the MySQL driver, and from
// SQLite drivers that expose their result code.
func isDuplicateErr(err error) bool {
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		return myErr.Number == mysqlErrDupEntry
	}
	var coded interface{ Code() int }
	if errors.As(err, &coded) {
		code := coded.Code()
		return code == sqliteConstraintUnique || code == sqliteConstraintPrimaryKey
	}
	return false
}

// CreateSong adds a new song to the database.
func (r *mysqlSongRepository) CreateSong(ctx context.Context, song *model.Song) (int64, error) {
	query := `INSERT INTO songs (filename, original_name, title, artist, album, duration, size, upload_date, updated_at)
	           VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`

	now := time.Now().UTC().Truncate(time.Second)
	var duration sql.NullInt64
	if song.Duration != nil {
		duration = sql.NullInt64{Int64: int64(*song.Duration), Valid: true}
	}

	res, err := r.DB.ExecContext(ctx, query, song.Filename, song.OriginalName, song.Title, song.Artist, song.Album,
		duration, song.Size, now, now)
	if err != nil {
		if isDuplicateErr(err) {
			return 0, fmt.Errorf("song with filename %q: %w", song.Filename, ErrDuplicate)
		}
		return 0, fmt.Errorf("failed to execute CreateSong: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for CreateSong: %w", err)
	}
	song.ID = id
	song.UploadDate = now
	song.UpdatedAt = now

	logger.Debug("Song created", logger.Int64("songId", id), logger.String("title", song.Title))
	return id, nil
}

// GetSongByID retrieves a song by its ID. It returns nil, nil when absent.
func (r *mysqlSongRepository) GetSongByID(ctx context.Context, id int64) (*model.Song, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE id = ?`, id)
	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by ID %d: %w", id, err)
	}
	return song, nil
}

// GetSongByFilename retrieves a song by its storage key. It returns nil, nil when absent.
func (r *mysqlSongRepository) GetSongByFilename(ctx context.Context, filename string) (*model.Song, error) {
	row := r.DB.QueryRowContext(ctx, `SELECT `+songColumns+` FROM songs WHERE filename = ?`, filename)
	song, err := scanSong(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to scan song by filename %s: %w", filename, err)
	}
	return song, nil
}

// likeEscaper escapes LIKE wildcards with '!', which needs no quoting in either MySQL or SQLite.
var likeEscaper = strings.NewReplacer("!", "!!", "%", "!%", "_", "!_")

// whereClause builds the WHERE part of a filtered listing.
func whereClause(filter model.SongFilter) (string, []any) {
	var conds []string
	var args []any

	if q := strings.TrimSpace(filter.Query); q != "" {
		pattern := "%" + likeEscaper.Replace(q) + "%"
		conds = append(conds, `(title LIKE ? ESCAPE '!' OR artist LIKE ? ESCAPE '!' OR album LIKE ? ESCAPE '!')`)
		args = append(args, pattern, pattern, pattern)
	}
	if filter.Artist != "" {
		conds = append(conds, `artist = ?`)
		args = append(args, filter.Artist)
	}
	if filter.Album != "" {
		conds = append(conds, `album = ?`)
		args = append(args, filter.Album)
	}

	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// ListSongs returns the songs matching filter, newest first.
func (r *mysqlSongRepository) ListSongs(ctx context.Context, filter model.SongFilter) ([]*model.Song, error) {
	where, args := whereClause(filter)
	query := `SELECT ` + songColumns + ` FROM songs` + where + ` ORDER BY upload_date DESC, id DESC`
	switch {
	case filter.Limit > 0:
		query += ` LIMIT ? OFFSET ?`
		args = append(args, filter.Limit, max(filter.Offset, 0))
	case filter.Offset > 0:
		// neither MySQL nor SQLite accepts OFFSET without LIMIT
		query += ` LIMIT ? OFFSET ?`
		args = append(args, int64(math.MaxInt64), filter.Offset)
	}

	rows, err := r.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query songs: %w", err)
	}
	defer rows.Close()

	songs := make([]*model.Song, 0)
	for rows.Next() {
		song, err := scanSong(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan song in ListSongs: %w", err)
		}
		songs = append(songs, song)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error during rows iteration in ListSongs: %w", err)
	}
	return songs, nil
}

// CountSongs returns how many songs match filter, ignoring Limit and Offset.
func (r *mysqlSongRepository) CountSongs(ctx context.Context, filter model.SongFilter) (int64, error) {
	where, args := whereClause(filter)
	var n int64
	if err := r.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM songs`+where, args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("failed to count songs: %w", err)
	}
	return n, nil
}

// UpdateSong applies a partial metadata update and returns the stored song.
// It returns nil, nil when the song does not exist.
func (r *mysqlSongRepository) UpdateSong(ctx context.Context, id int64, update model.SongUpdate) (*model.Song, error) {
	var sets []string
	var args []any
	if update.Title != nil {
		sets = append(sets, "title = ?")
		args = append(args, *update.Title)
	}
	if update.Artist != nil {
		sets = append(sets, "artist = ?")
		args = append(args, *update.Artist)
	}
	if update.Album != nil {
		sets = append(sets, "album = ?")
		args = append(args, *update.Album)
	}
	if len(sets) == 0 {
		return r.GetSongByID(ctx, id)
	}

	sets = append(sets, "updated_at = ?")
	args = append(args, time.Now().UTC().Truncate(time.Second), id)

	if _, err := r.DB.ExecContext(ctx, `UPDATE songs SET `+strings.Join(sets, ", ")+` WHERE id = ?`, args...); err != nil {
		return nil, fmt.Errorf("failed to execute UpdateSong for song ID %d: %w", id, err)
	}
	// RowsAffected can't tell "missing" from "unchanged" on MySQL; the read decides.
	return r.GetSongByID(ctx, id)
}

// DeleteSong removes a song row. It reports whether a row was deleted.
func (r *mysqlSongRepository) DeleteSong(ctx context.Context, id int64) (bool, error) {
	res, err := r.DB.ExecContext(ctx, `DELETE FROM songs WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("failed to execute DeleteSong for song ID %d: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read affected rows for DeleteSong: %w", err)
	}
	return n > 0, nil
}

// ListFilenames returns the set of registered storage keys.
func (r *mysqlSongRepository) ListFilenames(ctx context.Context) (map[string]struct{}, error) {
	rows, err := r.DB.QueryContext(ctx, `SELECT filename FROM songs`)
	if err != nil {
		return nil, fmt.Errorf("failed to query filenames: %w", err)
	}
	defer rows.Close()

	names := make(map[string]struct{})
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan filename: %w", err)
		}
		names[name] = struct{}{}
	}
	return names, rows.Err()
}
