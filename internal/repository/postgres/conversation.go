package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/Rrens/support-widget/internal/domain"
)

// ConversationRepository implements domain.ConversationRepository
type ConversationRepository struct {
	db *DB
}

// NewConversationRepository creates a new conversation repository
func NewConversationRepository(db *DB) *ConversationRepository {
	return &ConversationRepository{db: db}
}

const conversationColumns = `id, organization_id, contact_session_id, thread_id, status, created_at, updated_at`

// Create inserts the conversation together with its thread and greeting message
func (r *ConversationRepository) Create(ctx context.Context, c *domain.Conversation, greeting *domain.Message) error {
	return r.db.WithTx(ctx, func(tx pgx.Tx) error {
		if err := createThread(ctx, tx, c.ThreadID); err != nil {
			return err
		}

		if greeting != nil {
			greeting.ThreadID = c.ThreadID
			if err := appendMessage(ctx, tx, greeting); err != nil {
				return err
			}
		}

		query := `
			INSERT INTO conversations (` + conversationColumns + `)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`
		_, err := tx.Exec(ctx, query,
			c.ID,
			c.OrganizationID,
			c.ContactSessionID,
			c.ThreadID,
			string(c.Status),
			c.CreatedAt,
			c.UpdatedAt,
		)
		if err != nil {
			return fmt.Errorf("failed to create conversation: %w", err)
		}
		return nil
	})
}

// GetByID retrieves a conversation by ID
func (r *ConversationRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return getConversation(ctx, r.db.Pool, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1`, id)
}

// GetByThreadID retrieves the conversation owning a thread
func (r *ConversationRepository) GetByThreadID(ctx context.Context, threadID uuid.UUID) (*domain.Conversation, error) {
	return getConversation(ctx, r.db.Pool, `SELECT `+conversationColumns+` FROM conversations WHERE thread_id = $1`, threadID)
}

func getConversation(ctx context.Context, q querier, query string, arg any) (*domain.Conversation, error) {
	var c domain.Conversation
	var status string
	err := q.QueryRow(ctx, query, arg).Scan(
		&c.ID,
		&c.OrganizationID,
		&c.ContactSessionID,
		&c.ThreadID,
		&status,
		&c.CreatedAt,
		&c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}
	c.Status = domain.ConversationStatus(status)
	return &c, nil
}

// ListByOrganization lists an organization's conversations, most recently
// active first, optionally filtered by status
func (r *ConversationRepository) ListByOrganization(ctx context.Context, filter domain.ConversationFilter) ([]domain.Conversation, error) {
	var status *string
	if filter.Status != nil {
		s := string(*filter.Status)
		status = &s
	}

	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE organization_id = $1 AND ($2::text IS NULL OR status = $2)
		ORDER BY updated_at DESC
		LIMIT $3 OFFSET $4
	`
	return r.list(ctx, query, filter.OrganizationID, status, filter.Limit, filter.Offset)
}

// ListByContactSession lists a visitor's conversations, newest first
func (r *ConversationRepository) ListByContactSession(ctx context.Context, contactSessionID uuid.UUID, limit, offset int) ([]domain.Conversation, error) {
	query := `
		SELECT ` + conversationColumns + `
		FROM conversations
		WHERE contact_session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3
	`
	return r.list(ctx, query, contactSessionID, limit, offset)
}

func (r *ConversationRepository) list(ctx context.Context, query string, args ...any) ([]domain.Conversation, error) {
	rows, err := r.db.Pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to list conversations: %w", err)
	}
	defer rows.Close()

	var conversations []domain.Conversation
	for rows.Next() {
		var c domain.Conversation
		var status string
		if err := rows.Scan(
			&c.ID,
			&c.OrganizationID,
			&c.ContactSessionID,
			&c.ThreadID,
			&status,
			&c.CreatedAt,
			&c.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan conversation: %w", err)
		}
		c.Status = domain.ConversationStatus(status)
		conversations = append(conversations, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate conversations: %w", err)
	}
	return conversations, nil
}

// AppendMessage locks the conversation, rejects resolved conversations and
// appends the message to its thread, all in one transaction. It returns the
// conversation as observed under the lock.
func (r *ConversationRepository) AppendMessage(ctx context.Context, conversationID uuid.UUID, message *domain.Message) (*domain.Conversation, error) {
	var conversation *domain.Conversation

	err := r.db.WithTx(ctx, func(tx pgx.Tx) error {
		c, err := getConversation(ctx, tx, `SELECT `+conversationColumns+` FROM conversations WHERE id = $1 FOR UPDATE`, conversationID)
		if err != nil {
			return err
		}
		if c == nil {
			return domain.NotFoundf("conversation %s", conversationID)
		}
		if c.Status == domain.StatusResolved {
			return domain.InvalidStatef("conversation %s is resolved", conversationID)
		}

		message.ThreadID = c.ThreadID
		if err := appendMessage(ctx, tx, message); err != nil {
			return err
		}

		if err := tx.QueryRow(ctx,
			`UPDATE conversations SET updated_at = NOW() WHERE id = $1 RETURNING updated_at`,
			conversationID,
		).Scan(&c.UpdatedAt); err != nil {
			return fmt.Errorf("failed to touch conversation: %w", err)
		}

		conversation = c
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conversation, nil
}

// UpdateStatus sets the status only if it still equals from
func (r *ConversationRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.ConversationStatus) (bool, error) {
	tag, err := r.db.Pool.Exec(ctx,
		`UPDATE conversations SET status = $1, updated_at = NOW() WHERE id = $2 AND status = $3`,
		string(to), id, string(from),
	)
	if err != nil {
		return false, fmt.Errorf("failed to update conversation status: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
