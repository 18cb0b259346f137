package database

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	log "github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

// DB is the sqlite database holding watches and persisted metrics.
type DB struct {
	conn *sql.DB
}

func Open(dbPath string) (*DB, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}
	// sqlite allows a single writer
	conn.SetMaxOpenConns(1)

	createWatchesTable := `
	CREATE TABLE IF NOT EXISTS watches (
		user_id TEXT NOT NULL,
		coin TEXT NOT NULL,
		price REAL NOT NULL,
		PRIMARY KEY (user_id, coin, price)
	);`
	if _, err = conn.Exec(createWatchesTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create watches table: %w", err)
	}

	createMetricsTable := `
	CREATE TABLE IF NOT EXISTS metrics (
		metric_name TEXT NOT NULL,
		label_key TEXT NOT NULL DEFAULT '',
		label_value TEXT NOT NULL DEFAULT '',
		metric_value REAL NOT NULL,
		PRIMARY KEY (metric_name, label_key, label_value)
	);`
	if _, err = conn.Exec(createMetricsTable); err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create metrics table: %w", err)
	}

	log.Infof("Database %s initialized successfully.", dbPath)
	return &DB{conn: conn}, nil
}

func (d *DB) Close() error {
	if d != nil && d.conn != nil {
		return d.conn.Close()
	}
	return nil
}
