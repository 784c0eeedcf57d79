package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/Rrens/support-widget/internal/knowledge"
)

const schema = `
CREATE TABLE IF NOT EXISTS knowledge_entries (
	id         TEXT PRIMARY KEY,
	namespace  TEXT NOT NULL,
	title      TEXT NOT NULL,
	text       TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_knowledge_namespace ON knowledge_entries(namespace, created_at);
`

// maxCandidates bounds the rows scored in memory per search
const maxCandidates = 500

// Store implements knowledge.Store on a local SQLite file. Relevance is a term
// frequency score with title matches weighted double.
type Store struct {
	db   *sql.DB
	path string
}

// NewStore creates a new SQLite store
func NewStore() knowledge.Store {
	return &Store{}
}

// Backend returns the backend identifier
func (s *Store) Backend() string {
	return "sqlite"
}

// Connect opens the database file and creates the schema
func (s *Store) Connect(ctx context.Context, config knowledge.ConnectionConfig) error {
	if config.Path == "" {
		return fmt.Errorf("database file path is required")
	}

	dsn := fmt.Sprintf("file:%s?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)", config.Path)

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite only supports one writer
	db.SetMaxIdleConns(1)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping database: %w", err)
	}

	if _, err := db.ExecContext(ctx, schema); err != nil {
		db.Close()
		return fmt.Errorf("failed to create schema: %w", err)
	}

	s.db = db
	s.path = config.Path
	return nil
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
		`INSERT INTO knowledge_entries (id, namespace, title, text, created_at) VALUES (?, ?, ?, ?, ?)`,
		entry.ID.String(), entry.Namespace, entry.Title, entry.Text, entry.CreatedAt.UnixNano(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert entry: %w", err)
	}
	return nil
}

// Search ranks the namespace's entries containing any query term
func (s *Store) Search(ctx context.Context, namespace, query string, limit int) ([]knowledge.Entry, error) {
	terms := knowledge.Terms(query)
	if len(terms) == 0 {
		return []knowledge.Entry{}, nil
	}

	conds := make([]string, len(terms))
	args := []any{namespace}
	for i, term := range terms {
		conds[i] = "instr(lower(title || ' ' || text), ?) > 0"
		args = append(args, term)
	}
	args = append(args, maxCandidates)

	q := `SELECT id, namespace, title, text, created_at FROM knowledge_entries
		WHERE namespace = ? AND (` + strings.Join(conds, " OR ") + `)
		ORDER BY created_at DESC
		LIMIT ?`

	entries, err := s.query(ctx, q, args...)
	if err != nil {
		return nil, err
	}

	for i := range entries {
		entries[i].Score = score(entries[i], terms)
	}
	sort.SliceStable(entries, func(i, j int) bool { return entries[i].Score > entries[j].Score })

	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

func score(e knowledge.Entry, terms []string) float64 {
	title := strings.ToLower(e.Title)
	text := strings.ToLower(e.Text)

	var total float64
	for _, term := range terms {
		total += 2*float64(strings.Count(title, term)) + float64(strings.Count(text, term))
	}
	return total
}

// List returns the namespace's entries, newest first
func (s *Store) List(ctx context.Context, namespace string, limit, offset int) ([]knowledge.Entry, error) {
	return s.query(ctx,
		`SELECT id, namespace, title, text, created_at FROM knowledge_entries
		WHERE namespace = ? ORDER BY created_at DESC LIMIT ? OFFSET ?`,
		namespace, limit, offset,
	)
}

// Delete removes an entry
func (s *Store) Delete(ctx context.Context, namespace string, id uuid.UUID) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM knowledge_entries WHERE namespace = ? AND id = ?`, namespace, id.String())
	if err != nil {
		return fmt.Errorf("failed to delete entry: %w", err)
	}
	return nil
}

func (s *Store) query(ctx context.Context, q string, args ...any) ([]knowledge.Entry, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query entries: %w", err)
	}
	defer rows.Close()

	entries := []knowledge.Entry{}
	for rows.Next() {
		var e knowledge.Entry
		var id string
		var createdAt int64
		if err := rows.Scan(&id, &e.Namespace, &e.Title, &e.Text, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan entry: %w", err)
		}
		if e.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("invalid entry id %q: %w", id, err)
		}
		e.CreatedAt = time.Unix(0, createdAt).UTC()
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
