package db

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"songbox/config"
	"songbox/logger"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
)

// ConnectDB opens and verifies the MySQL connection pool.
func ConnectDB(cfg *config.Config) (*sql.DB, error) {
	conn, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	conn.SetMaxIdleConns(10)
	conn.SetMaxOpenConns(50)
	conn.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err = conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	logger.Info("Successfully connected to the database",
		logger.String("host", cfg.DBHost),
		logger.String("database", cfg.DBName))
	return conn, nil
}

// mysqlSchema holds the tables owned by the server, in creation order.
var mysqlSchema = []struct {
	table string
	ddl   string
}{
	{"songs", `
	CREATE TABLE IF NOT EXISTS songs (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		filename VARCHAR(255) NOT NULL UNIQUE,
		original_name VARCHAR(255) NOT NULL,
		title VARCHAR(255) NOT NULL,
		artist VARCHAR(255) NOT NULL DEFAULT 'Unknown',
		album VARCHAR(255) NOT NULL DEFAULT '',
		duration INT NULL,
		size BIGINT NOT NULL DEFAULT 0,
		upload_date TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP,
		INDEX idx_songs_title (title),
		INDEX idx_songs_artist (artist)
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`},
	{"playlists", `
	CREATE TABLE IF NOT EXISTS playlists (
		id BIGINT AUTO_INCREMENT PRIMARY KEY,
		name VARCHAR(255) NOT NULL UNIQUE,
		description TEXT,
		created_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		updated_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP ON UPDATE CURRENT_TIMESTAMP
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`},
	{"playlist_songs", `
	CREATE TABLE IF NOT EXISTS playlist_songs (
		playlist_id BIGINT NOT NULL,
		song_id BIGINT NOT NULL,
		position INT NOT NULL DEFAULT 0,
		added_at TIMESTAMP NOT NULL DEFAULT CURRENT_TIMESTAMP,
		PRIMARY KEY (playlist_id, song_id),
		CONSTRAINT fk_playlist_songs_playlist FOREIGN KEY (playlist_id) REFERENCES playlists(id) ON DELETE CASCADE,
		CONSTRAINT fk_playlist_songs_song FOREIGN KEY (song_id) REFERENCES songs(id) ON DELETE CASCADE
	) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4;`},
}

// InitDB creates the schema if it doesn't exist.
func InitDB(conn *sql.DB) error {
	for _, t := range mysqlSchema {
		if _, err := conn.Exec(t.ddl); err != nil {
			return fmt.Errorf("failed to create %s table: %w", t.table, err)
		}
		logger.Info("Table initialized (or already exists)", logger.String("table", t.table))
	}
	return nil
}

// SongsTableLayout describes the songs columns for operators.
var SongsTableLayout = []string{
	"id (BIGINT, AUTO_INCREMENT, PRIMARY KEY)",
	"filename (VARCHAR(255), UNIQUE)",
	"original_name (VARCHAR(255))",
	"title (VARCHAR(255))",
	"artist (VARCHAR(255))",
	"album (VARCHAR(255))",
	"duration (INT, nullable)",
	"size (BIGINT)",
	"upload_date (TIMESTAMP)",
	"updated_at (TIMESTAMP)",
}
