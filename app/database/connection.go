package database

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"
)

// DB wraps the sqlite handle together with the change feed that every
// repository publishes to after a successful write.
type DB struct {
	*sql.DB
	Changes *ChangeFeed
	path    string
}

// NewConnection opens (and creates if needed) the sqlite database at path.
func NewConnection(path string) (*DB, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", path)

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// sqlite has a single writer; one connection also keeps :memory: databases shared.
	sqlDB.SetMaxOpenConns(1)
	sqlDB.SetMaxIdleConns(1)
	sqlDB.SetConnMaxLifetime(time.Hour)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &DB{
		DB:      sqlDB,
		Changes: NewChangeFeed(),
		path:    path,
	}, nil
}

// Close stops change delivery and closes the underlying connection.
func (db *DB) Close() error {
	db.Changes.Close()
	return db.DB.Close()
}

func (db *DB) Path() string {
	return db.path
}
