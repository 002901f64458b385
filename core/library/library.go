// Package library ties audio storage, metadata extraction and the songs
// table together.
package library

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"songbox/core/audio"
	"songbox/logger"
	"songbox/model"
	"songbox/repository"
	"songbox/storage"
)

var (
	// ErrNotAudio rejects uploads that are not audio files.
	ErrNotAudio = errors.New("only audio files are allowed")
	// ErrNoFile means an upload carried no file.
	ErrNoFile = errors.New("no file uploaded")
	// ErrEmptyTitle rejects updates that would blank the title.
	ErrEmptyTitle = errors.New("title must not be empty")
)

// nameAttempts bounds retries when a stored name is already taken.
const nameAttempts = 5

// UploadInput is one uploaded file plus optional form metadata.
type UploadInput struct {
	OriginalName string
	ContentType  string
	Size         int64 // -1 when unknown
	Body         io.Reader

	Title  string
	Artist string
	Album  string
}

// SyncReport lists what a sync registered.
type SyncReport struct {
	Added   []*model.Song
	Skipped []string // stored objects that are not audio
}

// Options tune the service.
type Options struct {
	// WriteTags writes edited metadata back into MP3 files on local storage.
	WriteTags bool
	// TempDir holds downloaded copies of remote objects during extraction.
	TempDir string
	// SettleDelay is how long a watched file must stay unchanged before it is registered.
	SettleDelay time.Duration
}

// Service manages the song catalog.
type Service struct {
	songs     repository.SongRepository
	store     storage.Store
	extractor *audio.Extractor
	opts      Options
	now       func() time.Time

	// inflight holds stored names whose upload has not been registered yet,
	// so the watcher leaves them alone.
	inflight sync.Map
}

// NewService creates a library service.
func NewService(songs repository.SongRepository, store storage.Store, extractor *audio.Extractor, opts Options) *Service {
	if extractor == nil {
		extractor = audio.NewExtractor(nil)
	}
	if opts.SettleDelay <= 0 {
		opts.SettleDelay = 2 * time.Second
	}
	return &Service{
		songs:     songs,
		store:     store,
		extractor: extractor,
		opts:      opts,
		now:       time.Now,
	}
}

// Store returns the underlying file store.
func (s *Service) Store() storage.Store { return s.store }

// Upload stores an audio file, reads its metadata and registers it.
func (s *Service) Upload(ctx context.Context, in UploadInput) (*model.Song, error) {
	if in.Body == nil {
		return nil, ErrNoFile
	}
	if !audio.IsAudio(in.OriginalName, in.ContentType) {
		return nil, fmt.Errorf("%s (%s): %w", in.OriginalName, in.ContentType, ErrNotAudio)
	}

	name, size, err := s.save(ctx, in)
	if err != nil {
		return nil, err
	}
	defer s.inflight.Delete(name)

	md := s.extract(ctx, name)
	song := &model.Song{
		Filename:     name,
		OriginalName: clip(in.OriginalName),
		Title:        clip(firstNonEmpty(in.Title, md.Title, trimExt(in.OriginalName))),
		Artist:       clip(firstNonEmpty(in.Artist, md.Artist, model.DefaultArtist)),
		Album:        clip(firstNonEmpty(in.Album, md.Album)),
		Duration:     md.DurationSeconds(),
		Size:         size,
	}

	if _, err := s.songs.CreateSong(ctx, song); err != nil {
		if derr := s.store.Delete(context.WithoutCancel(ctx), name); derr != nil {
			logger.Warn("Failed to remove orphaned upload",
				logger.String("filename", name),
				logger.ErrorField(derr))
		}
		return nil, fmt.Errorf("failed to register %s: %w", name, err)
	}

	logger.Info("Song uploaded",
		logger.Int64("songId", song.ID),
		logger.String("filename", name),
		logger.String("title", song.Title),
		logger.Int64("size", size))
	return song, nil
}

func (s *Service) save(ctx context.Context, in UploadInput) (string, int64, error) {
	now := s.now()
	for i := 0; i < nameAttempts; i++ {
		name := storage.StoredName(in.OriginalName, now.Add(time.Duration(i)*time.Millisecond))
		if _, busy := s.inflight.LoadOrStore(name, struct{}{}); busy {
			continue
		}
		n, err := s.store.Save(ctx, name, in.Body, in.Size)
		if errors.Is(err, storage.ErrExists) {
			s.inflight.Delete(name)
			continue // Save checks existence before reading the body
		}
		if err != nil {
			s.inflight.Delete(name)
			return "", 0, fmt.Errorf("failed to store %s: %w", in.OriginalName, err)
		}
		return name, n, nil
	}
	return "", 0, fmt.Errorf("no free storage name for %s: %w", in.OriginalName, storage.ErrExists)
}

// extract reads metadata of a stored object. Failures yield empty metadata.
func (s *Service) extract(ctx context.Context, name string) *audio.Metadata {
	var md *audio.Metadata
	err := s.withLocalFile(ctx, name, func(path string) error {
		var err error
		md, err = s.extractor.Extract(ctx, path)
		return err
	})
	if err != nil || md == nil {
		logger.Warn("Failed to read audio metadata",
			logger.String("filename", name),
			logger.ErrorField(err))
		return &audio.Metadata{}
	}
	return md
}

// withLocalFile calls fn with a filesystem path holding the object's bytes,
// downloading to a temp file when the store is remote.
func (s *Service) withLocalFile(ctx context.Context, name string, fn func(path string) error) error {
	if lp, ok := s.store.(storage.LocalPather); ok {
		path, err := lp.Path(name)
		if err != nil {
			return err
		}
		return fn(path)
	}

	obj, err := s.store.Open(ctx, name)
	if err != nil {
		return err
	}
	defer obj.Close()

	tmp, err := os.CreateTemp(s.opts.TempDir, "songbox-*"+strings.ToLower(filepath.Ext(name)))
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	defer os.Remove(tmp.Name())

	_, err = io.Copy(tmp, obj)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return fmt.Errorf("failed to download %s: %w", name, err)
	}
	return fn(tmp.Name())
}

// Get returns a song, or nil when absent.
func (s *Service) Get(ctx context.Context, id int64) (*model.Song, error) {
	return s.songs.GetSongByID(ctx, id)
}

// List returns a page of songs and the total number matching the filter.
func (s *Service) List(ctx context.Context, filter model.SongFilter) ([]*model.Song, int64, error) {
	songs, err := s.songs.ListSongs(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total := int64(len(songs))
	if filter.Limit > 0 || filter.Offset > 0 {
		if total, err = s.songs.CountSongs(ctx, filter); err != nil {
			return nil, 0, err
		}
	}
	return songs, total, nil
}

// Update edits song metadata. Absent fields are left unchanged. It returns nil
// when the song does not exist.
func (s *Service) Update(ctx context.Context, id int64, update model.SongUpdate) (*model.Song, error) {
	update.Title = trimPtr(update.Title)
	update.Artist = trimPtr(update.Artist)
	update.Album = trimPtr(update.Album)
	if update.Title != nil && *update.Title == "" {
		return nil, ErrEmptyTitle
	}
	if update.Artist != nil && *update.Artist == "" {
		artist := model.DefaultArtist
		update.Artist = &artist
	}

	song, err := s.songs.UpdateSong(ctx, id, update)
	if err != nil || song == nil {
		return song, err
	}

	if s.opts.WriteTags && !update.Empty() {
		s.writeTags(song)
	}
	return song, nil
}

func (s *Service) writeTags(song *model.Song) {
	lp, ok := s.store.(storage.LocalPather)
	if !ok {
		return
	}
	path, err := lp.Path(song.Filename)
	if err != nil {
		return
	}
	err = audio.WriteTags(path, song.Title, song.Artist, song.Album)
	if err != nil && !errors.Is(err, audio.ErrTagsUnsupported) {
		logger.Warn("Failed to write tags",
			logger.Int64("songId", song.ID),
			logger.String("filename", song.Filename),
			logger.ErrorField(err))
	}
}

// Delete removes the song row, then its file. It reports false when the song
// does not exist.
func (s *Service) Delete(ctx context.Context, id int64) (bool, error) {
	song, err := s.songs.GetSongByID(ctx, id)
	if err != nil {
		return false, err
	}
	if song == nil {
		return false, nil
	}

	deleted, err := s.songs.DeleteSong(ctx, id)
	if err != nil || !deleted {
		return deleted, err
	}

	if err := s.store.Delete(ctx, song.Filename); err != nil {
		logger.Warn("Song row deleted but file removal failed",
			logger.Int64("songId", id),
			logger.String("filename", song.Filename),
			logger.ErrorField(err))
	}
	logger.Info("Song deleted", logger.Int64("songId", id), logger.String("filename", song.Filename))
	return true, nil
}

// Sync registers stored audio files that have no songs row.
func (s *Service) Sync(ctx context.Context) (*SyncReport, error) {
	objects, err := s.store.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list stored files: %w", err)
	}
	known, err := s.songs.ListFilenames(ctx)
	if err != nil {
		return nil, err
	}

	report := &SyncReport{Added: make([]*model.Song, 0)}
	for _, obj := range objects {
		if _, ok := known[obj.Name]; ok {
			continue
		}
		if !audio.HasAudioExtension(obj.Name) {
			report.Skipped = append(report.Skipped, obj.Name)
			continue
		}

		song, err := s.register(ctx, obj)
		if err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				continue // registered concurrently
			}
			return report, err
		}
		report.Added = append(report.Added, song)
	}

	logger.Info("Library sync finished",
		logger.Int("added", len(report.Added)),
		logger.Int("skipped", len(report.Skipped)))
	return report, nil
}

// register adds a songs row for an already stored object.
func (s *Service) register(ctx context.Context, obj storage.ObjectInfo) (*model.Song, error) {
	md := s.extract(ctx, obj.Name)
	song := &model.Song{
		Filename:     obj.Name,
		OriginalName: clip(obj.Name),
		Title:        clip(firstNonEmpty(md.Title, trimExt(obj.Name))),
		Artist:       clip(firstNonEmpty(md.Artist, model.DefaultArtist)),
		Album:        clip(strings.TrimSpace(md.Album)),
		Duration:     md.DurationSeconds(),
		Size:         obj.Size,
	}
	if _, err := s.songs.CreateSong(ctx, song); err != nil {
		return nil, fmt.Errorf("failed to register %s: %w", obj.Name, err)
	}
	return song, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

// clip cuts s to the songs column width without splitting a rune.
func clip(s string) string {
	if utf8.RuneCountInString(s) <= model.MaxTextLen {
		return s
	}
	return strings.TrimSpace(string([]rune(s)[:model.MaxTextLen]))
}

func trimPtr(p *string) *string {
	if p == nil {
		return nil
	}
	v := strings.TrimSpace(*p)
	return &v
}

// trimExt drops the last extension, like "a.b.mp3" -> "a.b".
func trimExt(name string) string {
	return strings.TrimSuffix(name, filepath.Ext(name))
}
