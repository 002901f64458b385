package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"songbox/config"
	"songbox/logger"

	"github.com/gorilla/mux"
)

// NewRouter builds the HTTP handler for app.
func NewRouter(app *App) http.Handler {
	cfg := app.Config
	apiHandler := NewAPIHandler(app)
	router := mux.NewRouter()

	router.HandleFunc("/healthz", apiHandler.HealthHandler).Methods(http.MethodGet)

	// Song library
	router.HandleFunc("/upload", apiHandler.UploadHandler).Methods(http.MethodPost)
	router.HandleFunc("/songs", apiHandler.ListSongsHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", apiHandler.GetSongHandler).Methods(http.MethodGet)
	router.HandleFunc("/songs/{id}", apiHandler.UpdateSongHandler).Methods(http.MethodPut)
	router.HandleFunc("/songs/{id}", apiHandler.DeleteSongHandler).Methods(http.MethodDelete)
	router.HandleFunc("/sync", apiHandler.SyncHandler).Methods(http.MethodPost)
	router.HandleFunc("/music/{filename}", apiHandler.StreamHandler).Methods(http.MethodGet, http.MethodHead)

	// Playlists
	router.HandleFunc("/api/playlists", apiHandler.ListPlaylistsHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists", apiHandler.CreatePlaylistHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}", apiHandler.GetPlaylistHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/playlists/{id}", apiHandler.UpdatePlaylistHandler).Methods(http.MethodPut)
	router.HandleFunc("/api/playlists/{id}", apiHandler.DeletePlaylistHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/songs", apiHandler.AddPlaylistSongHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/playlists/{id}/songs/{songId}", apiHandler.RemovePlaylistSongHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/playlists/{id}/order", apiHandler.ReorderPlaylistHandler).Methods(http.MethodPut)

	// Playback queue
	router.HandleFunc("/api/queue", apiHandler.GetQueueHandler).Methods(http.MethodGet)
	router.HandleFunc("/api/queue", apiHandler.EnqueueHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/queue", apiHandler.ClearQueueHandler).Methods(http.MethodDelete)
	router.HandleFunc("/api/queue/next", apiHandler.NextHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/previous", apiHandler.PreviousHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/ended", apiHandler.EndedHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/play/{index}", apiHandler.PlayIndexHandler).Methods(http.MethodPost)
	router.HandleFunc("/api/queue/{index}", apiHandler.RemoveQueueItemHandler).Methods(http.MethodDelete)

	// Jamendo proxy, rate limited per client
	limiter := newRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)
	jamendoRouter := router.PathPrefix("/api/jamendo").Subrouter()
	jamendoRouter.Use(limiter.middleware)
	jamendoRouter.HandleFunc("/genres", apiHandler.JamendoGenresHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/featured", apiHandler.JamendoFeaturedHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/search", apiHandler.JamendoSearchHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/genre/{genre}", apiHandler.JamendoGenreHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/track/{id}", apiHandler.JamendoTrackHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/artists/search", apiHandler.JamendoArtistSearchHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/artist/{id}/tracks", apiHandler.JamendoArtistTracksHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/radios", apiHandler.JamendoRadiosHandler).Methods(http.MethodGet)
	jamendoRouter.HandleFunc("/radio/{id}/tracks", apiHandler.JamendoRadioTracksHandler).Methods(http.MethodGet)

	// Frontend UI serving
	router.PathPrefix("/").Handler(http.FileServer(http.Dir(cfg.PublicDir)))

	return requestID(recoverer(cors(router)))
}

// Start serves app until SIGINT or SIGTERM, then shuts down gracefully.
func Start(app *App) error {
	cfg := app.Config
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.WatchUploads {
		go func() {
			if err := app.Library.Watch(ctx); err != nil {
				logger.Error("Upload watcher stopped", logger.ErrorField(err))
			}
		}()
	}

	// No write timeout: streams of long files outlive any fixed deadline.
	server := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           NewRouter(app),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       10 * time.Minute,
		IdleTimeout:       120 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Server starting",
			logger.String("addr", cfg.HTTPAddr),
			logger.String("storage", cfg.StorageBackend),
			logger.String("publicDir", cfg.PublicDir))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	logger.Info("Server stopped")
	return nil
}

// Run builds the App from cfg and serves it until shutdown.
func Run(cfg *config.Config) error {
	app, err := NewApp(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer app.Close()
	return Start(app)
}
