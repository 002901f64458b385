// Package dbtest provides an in-memory SQLite database carrying the songs
// and playlist schema, for tests of code written against database/sql or GORM.
package dbtest

import (
	"database/sql"
	"testing"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
	_ "modernc.org/sqlite"
)

const schema = `
CREATE TABLE IF NOT EXISTS songs (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	filename TEXT NOT NULL UNIQUE,
	original_name TEXT NOT NULL,
	title TEXT NOT NULL,
	artist TEXT NOT NULL DEFAULT 'Unknown',
	album TEXT NOT NULL DEFAULT '',
	duration INTEGER,
	size INTEGER NOT NULL DEFAULT 0,
	upload_date TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS playlists (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	name TEXT NOT NULL UNIQUE,
	description TEXT,
	created_at TIMESTAMP NOT NULL,
	updated_at TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS playlist_songs (
	playlist_id INTEGER NOT NULL REFERENCES playlists(id) ON DELETE CASCADE,
	song_id INTEGER NOT NULL REFERENCES songs(id) ON DELETE CASCADE,
	position INTEGER NOT NULL DEFAULT 0,
	added_at TIMESTAMP NOT NULL,
	PRIMARY KEY (playlist_id, song_id)
);
`

// NewSQLite opens a private in-memory database with the schema applied.
// The database is closed when the test ends.
func NewSQLite(t testing.TB) *sql.DB {
	t.Helper()

	conn, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open db: %v", err)
	}
	// every pooled connection to :memory: would get its own empty database
	conn.SetMaxOpenConns(1)

	if _, err := conn.Exec("PRAGMA foreign_keys = ON"); err != nil {
		conn.Close()
		t.Fatalf("failed to set pragma: %v", err)
	}
	if _, err := conn.Exec(schema); err != nil {
		conn.Close()
		t.Fatalf("failed to create schema: %v", err)
	}

	t.Cleanup(func() { conn.Close() })
	return conn
}

// NewGorm wraps conn, usually from NewSQLite, with GORM's SQLite dialect.
func NewGorm(t testing.TB, conn *sql.DB) *gorm.DB {
	t.Helper()

	gormDB, err := gorm.Open(sqlite.New(sqlite.Config{Conn: conn}), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		t.Fatalf("failed to open gorm: %v", err)
	}
	return gormDB
}
