package domain

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// MessageRole represents the sender of a message
type MessageRole string

const (
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
)

// Message is one entry of a thread. Position is assigned by the thread store
// and strictly increases in append order.
type Message struct {
	ID        uuid.UUID   `json:"id"`
	ThreadID  uuid.UUID   `json:"thread_id"`
	Position  int64       `json:"position"`
	Role      MessageRole `json:"role"`
	Content   string      `json:"content"`
	AgentName string      `json:"agent_name,omitempty"`
	CreatedAt time.Time   `json:"created_at"`
}

// PaginationOpts selects a page of a newest-first listing
type PaginationOpts struct {
	NumItems int    `json:"num_items"`
	Cursor   string `json:"cursor,omitempty"`
}

// MessagePage is one page of a thread, newest first
type MessagePage struct {
	Page           []Message `json:"page"`
	ContinueCursor string    `json:"continue_cursor"`
	IsDone         bool      `json:"is_done"`
}

// ThreadRepository owns the ordered message streams
type ThreadRepository interface {
	Append(ctx context.Context, message *Message) error
	List(ctx context.Context, threadID uuid.UUID, opts PaginationOpts) (*MessagePage, error)
	Recent(ctx context.Context, threadID uuid.UUID, limit int) ([]Message, error)
	Last(ctx context.Context, threadID uuid.UUID) (*Message, error)
}
