package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/skylerlchan/personal-website/internal/domain"
	_ "modernc.org/sqlite"
)

// SQLiteStore implements Repository using SQLite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite creates a new SQLite-backed inbox.
func NewSQLite(dbPath string) (Repository, error) {
	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		return nil, fmt.Errorf("create database directory: %w", err)
	}

	// Open database with WAL mode for better concurrency.
	dsn := dbPath + "?_journal=WAL&_sync=NORMAL&_busy_timeout=5000"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(2)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("ping database: %w", err)
	}

	store := &SQLiteStore{db: db}
	if err := store.initSchema(); err != nil {
		return nil, fmt.Errorf("initialize schema: %w", err)
	}

	return store, nil
}

func (s *SQLiteStore) initSchema() error {
	query := `
	PRAGMA busy_timeout = 5000;
	CREATE TABLE IF NOT EXISTS inbound_messages (
		id TEXT PRIMARY KEY,
		contact TEXT NOT NULL,
		body TEXT NOT NULL,
		delivered INTEGER NOT NULL DEFAULT 0,
		created_at INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_inbound_created ON inbound_messages(created_at);
	`
	if _, err := s.db.Exec(query); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	return nil
}

// Ping verifies database connectivity.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveMessage journals one inbound contact message. Retries briefly on
// SQLITE_BUSY since the retention sweep shares the database.
func (s *SQLiteStore) SaveMessage(ctx context.Context, msg *domain.InboundMessage) error {
	query := `
		INSERT INTO inbound_messages (id, contact, body, delivered, created_at)
		VALUES (?, ?, ?, ?, ?)`

	var delivered int
	if msg.Delivered {
		delivered = 1
	}

	maxRetries := 3
	baseDelay := 100 * time.Millisecond
	for i := 0; i < maxRetries; i++ {
		_, err := s.db.ExecContext(ctx, query,
			msg.ID, msg.Contact, msg.Body, delivered, msg.CreatedAt.Unix(),
		)
		if err == nil {
			return nil
		}
		if isSQLiteConflict(err) && i < maxRetries-1 {
			delay := baseDelay * time.Duration(1<<i)
			slog.Debug("SaveMessage hit SQLITE_BUSY, retrying", "attempt", i+1, "delay", delay)
			time.Sleep(delay)
			continue
		}
		return fmt.Errorf("insert inbound message: %w", err)
	}
	return nil
}

// RecentMessages returns up to limit messages, newest first.
func (s *SQLiteStore) RecentMessages(ctx context.Context, limit int) ([]*domain.InboundMessage, error) {
	query := `
		SELECT id, contact, body, delivered, created_at
		FROM inbound_messages ORDER BY created_at DESC, id LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil {
			slog.Warn("failed to close recent messages rows", "error", closeErr)
		}
	}()

	var msgs []*domain.InboundMessage
	for rows.Next() {
		var msg domain.InboundMessage
		var delivered int
		var createdAt int64
		if err := rows.Scan(&msg.ID, &msg.Contact, &msg.Body, &delivered, &createdAt); err != nil {
			return nil, fmt.Errorf("scan inbound message row: %w", err)
		}
		msg.Delivered = delivered != 0
		msg.CreatedAt = time.Unix(createdAt, 0)
		msgs = append(msgs, &msg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate recent messages: %w", err)
	}
	return msgs, nil
}

// PurgeOlderThan deletes messages past the retention age.
func (s *SQLiteStore) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	threshold := time.Now().Add(-age).Unix()
	result, err := s.db.ExecContext(ctx, `DELETE FROM inbound_messages WHERE created_at < ?`, threshold)
	if err != nil {
		return 0, fmt.Errorf("purge inbound messages: %w", err)
	}
	return result.RowsAffected()
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	if err := s.db.Close(); err != nil {
		return fmt.Errorf("close database: %w", err)
	}
	return nil
}

// isSQLiteConflict reports SQLITE_BUSY / "database is locked" errors that
// warrant a retry.
func isSQLiteConflict(err error) bool {
	if err == nil {
		return false
	}
	return strings.Contains(err.Error(), "SQLITE_BUSY") ||
		strings.Contains(err.Error(), "database is locked")
}
