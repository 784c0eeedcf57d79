package postgres

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// ThreadRepository implements domain.ThreadRepository
type ThreadRepository struct {
	db *DB
}

// NewThreadRepository creates a new thread repository
func NewThreadRepository(db *DB) *ThreadRepository {
	return &ThreadRepository{db: db}
}

const messageColumns = `id, thread_id, position, role, content, COALESCE(agent_name, ''), created_at`

func createThread(ctx context.Context, q querier, id uuid.UUID) error {
	if _, err := q.Exec(ctx, `INSERT INTO threads (id, next_position) VALUES ($1, 1)`, id); err != nil {
		return fmt.Errorf("failed to create thread: %w", err)
	}
	return nil
}

// appendMessage reserves the next position of the thread and inserts the
// message. The UPDATE row-locks the thread until the surrounding transaction
// ends, so concurrent appends are serialized.
func appendMessage(ctx context.Context, q querier, m *domain.Message) error {
	err := q.QueryRow(ctx, `
		UPDATE threads SET next_position = next_position + 1
		WHERE id = $1
		RETURNING next_position - 1
	`, m.ThreadID).Scan(&m.Position)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.NotFoundf("thread %s", m.ThreadID)
		}
		return fmt.Errorf("failed to reserve message position: %w", err)
	}

	query := `
		INSERT INTO messages (id, thread_id, position, role, content, agent_name, created_at)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''), $7)
	`
	_, err = q.Exec(ctx, query,
		m.ID,
		m.ThreadID,
		m.Position,
		string(m.Role),
		m.Content,
		m.AgentName,
		m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to create message: %w", err)
	}
	return nil
}

// Append adds a message to the end of its thread
func (r *ThreadRepository) Append(ctx context.Context, message *domain.Message) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		return appendMessage(ctx, tx, message)
	})
}

// List returns one page of the thread, newest first. The cursor is the
// position of the last message already seen.
func (r *ThreadRepository) List(ctx context.Context, threadID uuid.UUID, opts domain.PaginationOpts) (*domain.MessagePage, error) {
	limit := opts.NumItems
	if limit <= 0 {
		limit = defaultPageSize
	}
	if limit > maxPageSize {
		limit = maxPageSize
	}

	var before int64
	if opts.Cursor != "" {
		var err error
		before, err = strconv.ParseInt(opts.Cursor, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid cursor", domain.ErrInvalidState)
		}
	}

	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1 AND ($2::bigint = 0 OR position < $2)
		ORDER BY position DESC
		LIMIT $3
	`
	messages, err := r.query(ctx, query, threadID, before, limit+1)
	if err != nil {
		return nil, err
	}

	page := &domain.MessagePage{IsDone: len(messages) <= limit}
	if !page.IsDone {
		messages = messages[:limit]
	}
	if page.Page = messages; page.Page == nil {
		page.Page = []domain.Message{}
	}
	if len(messages) > 0 {
		page.ContinueCursor = strconv.FormatInt(messages[len(messages)-1].Position, 10)
	}
	return page, nil
}

// Recent returns up to limit latest messages in chronological order
func (r *ThreadRepository) Recent(ctx context.Context, threadID uuid.UUID, limit int) ([]domain.Message, error) {
	query := `
		SELECT ` + messageColumns + `
		FROM messages
		WHERE thread_id = $1
		ORDER BY position DESC
		LIMIT $2
	`
	messages, err := r.query(ctx, query, threadID, limit)
	if err != nil {
		return nil, err
	}

	// Reverse to return chronological order (oldest first)
	for i, j := 0, len(messages)-1; i < j; i, j = i+1, j-1 {
		messages[i], messages[j] = messages[j], messages[i]
	}
	return messages, nil
}

// Last returns the newest message of a thread
func (r *ThreadRepository) Last(ctx context.Context, threadID uuid.UUID) (*domain.Message, error) {
	messages, err := r.query(ctx, `
		SELECT `+messageColumns+`
		FROM messages
		WHERE thread_id = $1
		ORDER BY position DESC
		LIMIT 1
	`, threadID)
	if err != nil {
		return nil, err
	}
	if len(messages) == 0 {
		return nil, nil
	}
	return &messages[0], nil
}

func (r *ThreadRepository) query(ctx context.Context, query string, args ...any) ([]domain.Message, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list messages: %w", err)
	}
	defer rows.Close()

	var messages []domain.Message
	for rows.Next() {
		var m domain.Message
		var roleStr string
		if err := rows.Scan(
			&m.ID,
			&m.ThreadID,
			&m.Position,
			&roleStr,
			&m.Content,
			&m.AgentName,
			&m.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan message: %w", err)
		}
		m.Role = domain.MessageRole(roleStr)
		messages = append(messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate messages: %w", err)
	}
	return messages, nil
}
