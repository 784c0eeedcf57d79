package knowledge

import (
	"context"
	"strings"
	"time"
	"unicode"

	"github.com/google/uuid"
)

// Entry is one knowledge base document scoped to a namespace (an organization id)
type Entry struct {
	ID        uuid.UUID `json:"id"`
	Namespace string    `json:"namespace"`
	Title     string    `json:"title"`
	Text      string    `json:"text"`
	Score     float64   `json:"score,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// EntryCreate is an operator-submitted knowledge entry
type EntryCreate struct {
	Title string `json:"title" validate:"required,max=255"`
	Text  string `json:"text" validate:"required,max=100000"`
}

// SearchResult holds the ranked entries and their concatenated text
type SearchResult struct {
	Entries []Entry `json:"entries"`
	Text    string  `json:"text"`
}

// Titles returns the non-empty entry titles in rank order.
func (r *SearchResult) Titles() []string {
	var titles []string
	for _, e := range r.Entries {
		if e.Title != "" {
			titles = append(titles, e.Title)
		}
	}
	return titles
}

// ConnectionConfig contains backend connection parameters
type ConnectionConfig struct {
	URI      string
	Database string
	DSN      string
	Path     string
}

// Store defines the interface for knowledge backends
type Store interface {
	// Backend returns the backend identifier
	Backend() string

	// Connect opens the backend and prepares its schema
	Connect(ctx context.Context, config ConnectionConfig) error

	// Close closes the connection
	Close() error

	// HealthCheck verifies connection is alive
	HealthCheck(ctx context.Context) error

	// Add stores an entry
	Add(ctx context.Context, entry *Entry) error

	// Search returns up to limit entries of namespace ranked by relevance to query
	Search(ctx context.Context, namespace, query string, limit int) ([]Entry, error)

	// List returns a namespace's entries, newest first
	List(ctx context.Context, namespace string, limit, offset int) ([]Entry, error)

	// Delete removes an entry
	Delete(ctx context.Context, namespace string, id uuid.UUID) error
}

// StoreFactory creates a new store instance
type StoreFactory func() Store

// Terms splits a query into lowercase search terms, dropping one-letter words
// and duplicates.
func Terms(query string) []string {
	fields := strings.FieldsFunc(strings.ToLower(query), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})

	seen := make(map[string]bool, len(fields))
	terms := make([]string, 0, len(fields))
	for _, f := range fields {
		if len([]rune(f)) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		terms = append(terms, f)
	}
	return terms
}
