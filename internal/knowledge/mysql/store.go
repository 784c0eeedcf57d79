package mysql

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/google/uuid"

	"github.com/Rrens/support-widget/internal/knowledge"
)

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         CHAR(36) PRIMARY KEY,
	namespace  VARCHAR(255) NOT NULL,
	title      VARCHAR(255) NOT NULL,
	text       MEDIUMTEXT NOT NULL,
	created_at DATETIME(6) NOT NULL,
	INDEX idx_knowledge_namespace (namespace, created_at),
	FULLTEXT INDEX ft_knowledge (title, text)
) ENGINE=InnoDB DEFAULT CHARSET=utf8mb4
`

// Store implements knowledge.Store on MySQL FULLTEXT search
type Store struct {
	db *sql.DB
}

// NewStore creates a new MySQL store
func NewStore() knowledge.Store {
	return &Store{}
}

// Backend returns the backend identifier
func (s *Store) Backend() string {
	return "mysql"
}

// Connect opens the DSN and creates the schema
func (s *Store) Connect(ctx context.Context, config knowledge.ConnectionConfig) error {
	if config.DSN == "" {
		return fmt.Errorf("mysql dsn is required")
	}

	dsn, err := withParseTime(config.DSN)
	if err != nil {
		return err
	}

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return fmt.Errorf("failed to open connection: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	return nil
}

// withParseTime forces DATETIME columns to scan into time.Time.
func withParseTime(dsn string) (string, error) {
	cfg, err := mysql.ParseDSN(dsn)
	if err != nil {
		return "", fmt.Errorf("invalid mysql dsn: %w", err)
	}
	cfg.ParseTime = true
	return cfg.FormatDSN(), nil
}

// Close closes the connection
func (s *Store) Close() error {
	if s.db != nil {
		err := s.db.Close()
		s.db = nil
		return err
	}
	return nil
}

// HealthCheck verifies connection is alive
func (s *Store) HealthCheck(ctx context.Context) error {
	if s.db == nil {
		return fmt.Errorf("not connected")
	}
	return s.db.PingContext(ctx)
}

// Add stores an entry
func (s *Store) Add(ctx context.Context, entry *knowledge.Entry) error {
	_, err := s.db.ExecContext(ctx,
		"INSERT INTO knowledge_entries (id, namespace, title, `text`, created_at) VALUES (?, ?, ?, ?, ?)",
		entry.ID.String(), entry.Namespace, entry.Title, entry.Text, entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Search ranks entries with MATCH ... AGAINST in natural language mode
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]knowledge.Entry, error) {
	q := "SELECT id, namespace, title, `text`, created_at, MATCH(title, `text`) AGAINST (? IN NATURAL LANGUAGE MODE) AS score " +
		"FROM knowledge_entries " +
		"WHERE namespace = ? AND MATCH(title, `text`) AGAINST (? IN NATURAL LANGUAGE MODE) " +
		"ORDER BY score DESC LIMIT ?"

	rows, err := s.db.QueryContext(ctx, q, query, namespace, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search entries: %w", err)
	}
	defer rows.Close()

	entries := []knowledge.Entry{}
	for rows.Next() {
		var e knowledge.Entry
		var id string
		if err := rows.Scan(&id, &e.Namespace, &e.Title, &e.Text, &e.CreatedAt, &e.Score); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// List returns the namespace's entries, newest first
func (s *Store) List(ctx context.Context, namespace string, limit, offset int) ([]knowledge.Entry, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, namespace, title, `text`, created_at FROM knowledge_entries WHERE namespace = ? ORDER BY created_at DESC LIMIT ? OFFSET ?",
		namespace, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list entries: %w", err)
	}
	defer rows.Close()

	entries := []knowledge.Entry{}
	for rows.Next() {
		var e knowledge.Entry
		var id string
		if err := rows.Scan(&id, &e.Namespace, &e.Title, &e.Text, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// Delete removes an entry
func (s *Store) Delete(ctx context.Context, namespace string, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE namespace = ? AND id = ?`, namespace, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}
