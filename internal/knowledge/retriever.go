package knowledge

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

const defaultSearchLimit = 5

// Retriever is the namespaced knowledge API used by the agent and handlers
type Retriever struct {
	store Store
	limit int
}

// NewRetriever creates a retriever over store
func NewRetriever(store Store, limit int) *Retriever {
	if limit <= 0 {
		limit = defaultSearchLimit
	}
	return &Retriever{store: store, limit: limit}
}

// Search finds the entries of namespace most relevant to query. Text joins the
// entries as titled sections in rank order.
func (r *Retriever) Search(ctx context.Context, namespace, query string, limit int) (*SearchResult, error) {
	if limit <= 0 {
		limit = r.limit
	}

	entries, err := r.store.Search(ctx, namespace, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search knowledge: %w", err)
	}

	return &SearchResult{Entries: entries, Text: joinEntries(entries)}, nil
}

// Add stores a new entry in namespace
func (r *Retriever) Add(ctx context.Context, namespace string, in EntryCreate) (*Entry, error) {
	entry := &Entry{
		ID:        uuid.New(),
		Namespace: namespace,
		Title:     strings.TrimSpace(in.Title),
		Text:      strings.TrimSpace(in.Text),
		CreatedAt: time.Now().UTC(),
	}
	if err := r.store.Add(ctx, entry); err != nil {
		return nil, fmt.Errorf("failed to add knowledge entry: %w", err)
	}
	return entry, nil
}

// List returns the entries of namespace, newest first
func (r *Retriever) List(ctx context.Context, namespace string, limit, offset int) ([]Entry, error) {
	entries, err := r.store.List(ctx, namespace, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list knowledge: %w", err)
	}
	return entries, nil
}

// Delete removes an entry of namespace
func (r *Retriever) Delete(ctx context.Context, namespace string, id uuid.UUID) error {
	if err := r.store.Delete(ctx, namespace, id); err != nil {
		return fmt.Errorf("failed to delete knowledge entry: %w", err)
	}
	return nil
}

func joinEntries(entries []Entry) string {
	var sb strings.Builder
	for i, e := range entries {
		if i > 0 {
			sb.WriteString("\n\n---\n\n")
		}
		if e.Title != "" {
			sb.WriteString("## ")
			sb.WriteString(e.Title)
			sb.WriteString("\n")
		}
		sb.WriteString(e.Text)
	}
	return sb.String()
}
