package database

import (
	"database/sql"
	"fmt"

	_ "github.com/jackc/pgx/v5/stdlib"
	_ "github.com/mattn/go-sqlite3"
)

type DB struct {
	conn   *sql.DB
	dbType string
}

type Config struct {
	Type       string
	Host       string
	Port       int
	User       string
	Password   string
	Name       string
	SQLitePath string
}

func NewDB(config Config) (*DB, error) {
	var conn *sql.DB
	var err error

	switch config.Type {
	case "sqlite":
		conn, err = sql.Open("sqlite3", config.SQLitePath)
	case "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=disable",
			config.Host, config.Port, config.User, config.Password, config.Name)
		conn, err = sql.Open("pgx", dsn)
	default:
		return nil, fmt.Errorf("unsupported database type: %s", config.Type)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if err := conn.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	db := &DB{conn: conn, dbType: config.Type}

	// Only create tables for SQLite; postgres schemas come from migrations.
	if config.Type == "sqlite" {
		if err := db.createTables(); err != nil {
			return nil, fmt.Errorf("failed to create tables: %w", err)
		}
	}

	return db, nil
}

func (db *DB) createTables() error {
	query := `
	CREATE TABLE IF NOT EXISTS people (
		id TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		embeddings TEXT NOT NULL,
		created_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS videos (
		id TEXT PRIMARY KEY,
		filename TEXT NOT NULL,
		stored_filename TEXT NOT NULL,
		content_type TEXT NOT NULL,
		size INTEGER NOT NULL,
		status TEXT NOT NULL,
		processed_frames INTEGER NOT NULL DEFAULT 0,
		total_frames INTEGER NOT NULL DEFAULT 0,
		progress REAL NOT NULL DEFAULT 0,
		processing_time_seconds REAL NOT NULL DEFAULT 0,
		annotated_path TEXT NOT NULL DEFAULT '',
		report_path TEXT NOT NULL DEFAULT '',
		error TEXT NOT NULL DEFAULT '',
		summary TEXT NOT NULL,
		created_at DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	CREATE TABLE IF NOT EXISTS detections (
		id TEXT PRIMARY KEY,
		video_id TEXT NOT NULL,
		person_id TEXT NOT NULL,
		person_name TEXT NOT NULL,
		timestamp REAL NOT NULL,
		frame_index INTEGER NOT NULL,
		box_left INTEGER NOT NULL,
		box_top INTEGER NOT NULL,
		box_right INTEGER NOT NULL,
		box_bottom INTEGER NOT NULL,
		confidence REAL,
		snapshot_path TEXT NOT NULL DEFAULT '',
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_detections_video_frame
		ON detections (video_id, frame_index);
	`

	_, err := db.conn.Exec(query)
	return err
}

func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) Conn() *sql.DB {
	return db.conn
}
