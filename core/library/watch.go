package library

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"songbox/core/audio"
	"songbox/logger"
	"songbox/repository"
	"songbox/storage"

	"github.com/fsnotify/fsnotify"
)

// ErrNotWatchable is returned by Watch when the store is not a local directory.
var ErrNotWatchable = errors.New("store has no local directory to watch")

type dirStore interface {
	Dir() string
}

// Watch registers audio files copied into the upload directory by hand. A
// file is registered once it has not changed for the settle delay. Watch
// blocks until ctx is done.
func (s *Service) Watch(ctx context.Context) error {
	ds, ok := s.store.(dirStore)
	if !ok {
		return ErrNotWatchable
	}
	dir := ds.Dir()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", dir, err)
	}
	logger.Info("Watching upload directory", logger.String("dir", dir))

	// name -> time of the last write seen
	pending := make(map[string]time.Time)
	ticker := time.NewTicker(s.opts.SettleDelay / 4)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil

		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			name := filepath.Base(event.Name)
			if !storage.ValidName(name) || !audio.HasAudioExtension(name) {
				continue
			}
			switch {
			case event.Has(fsnotify.Create), event.Has(fsnotify.Write):
				pending[name] = time.Now()
			case event.Has(fsnotify.Remove), event.Has(fsnotify.Rename):
				delete(pending, name)
			}

		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			logger.Warn("File watcher error", logger.ErrorField(err))

		case now := <-ticker.C:
			for name, last := range pending {
				if now.Sub(last) < s.opts.SettleDelay {
					continue
				}
				delete(pending, name)
				s.registerWatched(ctx, dir, name)
			}
		}
	}
}

func (s *Service) registerWatched(ctx context.Context, dir, name string) {
	if _, busy := s.inflight.Load(name); busy {
		return
	}
	existing, err := s.songs.GetSongByFilename(ctx, name)
	if err != nil {
		logger.Warn("Failed to look up watched file", logger.String("filename", name), logger.ErrorField(err))
		return
	}
	if existing != nil {
		return
	}

	st, err := os.Stat(filepath.Join(dir, name))
	if err != nil || !st.Mode().IsRegular() {
		return
	}

	song, err := s.register(ctx, storage.ObjectInfo{Name: name, Size: st.Size(), ModTime: st.ModTime()})
	if err != nil {
		if !errors.Is(err, repository.ErrDuplicate) {
			logger.Warn("Failed to register watched file", logger.String("filename", name), logger.ErrorField(err))
		}
		return
	}
	logger.Info("Registered watched file",
		logger.Int64("songId", song.ID),
		logger.String("filename", name))
}
