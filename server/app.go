package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"

	"songbox/cache"
	"songbox/config"
	"songbox/core/audio"
	"songbox/core/jamendo"
	"songbox/core/library"
	"songbox/core/player"
	"songbox/db"
	"songbox/logger"
	"songbox/repository"
	"songbox/storage"
)

// App holds the services behind the HTTP API.
type App struct {
	Config    *config.Config
	Library   *library.Service
	Playlists repository.PlaylistRepository
	Player    *player.Player
	Jamendo   *jamendo.Client

	closers []func() error
}

// NewApp connects to the database, Redis and the configured store and builds
// the services on top of them.
func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	app := &App{Config: cfg}

	conn, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, err
	}
	app.closers = append(app.closers, conn.Close)

	if err := db.InitDB(conn); err != nil {
		app.Close()
		return nil, err
	}

	gormDB, err := db.ConnectGormDB(conn)
	if err != nil {
		app.Close()
		return nil, err
	}

	store, err := openStore(ctx, cfg)
	if err != nil {
		app.Close()
		return nil, err
	}

	app.Library = newLibrary(cfg, conn, store)
	app.Playlists = repository.NewGormPlaylistRepository(gormDB)

	var jamendoOpts []jamendo.Option
	queueStore := player.QueueStore(player.NewMemoryStore())
	if cfg.RedisEnabled {
		if err := cache.ConnectRedis(cfg); err != nil {
			app.Close()
			return nil, err
		}
		app.closers = append(app.closers, cache.CloseRedis)
		logger.Info("Connected to Redis", logger.String("addr", cfg.RedisAddr()))

		queueStore = cache.NewQueueCache(cache.RedisClient)
		jamendoOpts = append(jamendoOpts, jamendo.WithCache(cache.NewJamendoCache(cache.RedisClient, cfg.JamendoCacheTTL)))
	} else {
		logger.Warn("Redis disabled, playback queues are kept in memory and Jamendo responses are not cached")
	}
	app.Player = player.New(queueStore)

	clientID := cfg.JamendoClientID
	if !cfg.JamendoConfigured() {
		logger.Warn("JAMENDO_CLIENT_ID is not set, /api/jamendo endpoints will answer 503")
		clientID = ""
	}
	app.Jamendo = jamendo.NewClient(cfg.JamendoBaseURL, clientID, jamendoOpts...)

	return app, nil
}

// OpenLibrary builds only the library service, for one-shot commands.
func OpenLibrary(ctx context.Context, cfg *config.Config) (*library.Service, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	conn, err := db.ConnectDB(cfg)
	if err != nil {
		return nil, nil, err
	}
	if err := db.InitDB(conn); err != nil {
		conn.Close()
		return nil, nil, err
	}
	store, err := openStore(ctx, cfg)
	if err != nil {
		conn.Close()
		return nil, nil, err
	}
	return newLibrary(cfg, conn, store), func() { conn.Close() }, nil
}

func newLibrary(cfg *config.Config, conn *sql.DB, store storage.Store) *library.Service {
	probe := audio.NewFFprobe(cfg.FFprobePath)
	if probe == nil {
		logger.Info("ffprobe not found, durations come from native decoders only",
			logger.String("path", cfg.FFprobePath))
	}
	return library.NewService(
		repository.NewMySQLSongRepository(conn),
		store,
		audio.NewExtractor(probe),
		library.Options{WriteTags: cfg.WriteTags, TempDir: os.TempDir()},
	)
}

func openStore(ctx context.Context, cfg *config.Config) (storage.Store, error) {
	switch cfg.StorageBackend {
	case config.StorageMinio:
		store, err := storage.NewMinioStore(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return store, nil
	case config.StorageLocal:
		store, err := storage.NewLocalStore(cfg.UploadDir)
		if err != nil {
			return nil, fmt.Errorf("failed to prepare upload dir: %w", err)
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q", cfg.StorageBackend)
	}
}

// Close releases connections in reverse order of opening.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			logger.Warn("Error while closing", logger.ErrorField(err))
		}
	}
	a.closers = nil
}
