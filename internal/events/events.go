package events

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/support-widget/internal/domain"
)

// Type names a conversation event; it doubles as the routing key
type Type string

const (
	ConversationCreated       Type = "conversation.created"
	ConversationStatusChanged Type = "conversation.status_changed"
	MessageAppended           Type = "message.appended"
)

// Event is published after a conversation change commits
type Event struct {
	Type           Type                      `json:"type"`
	OrganizationID string                    `json:"organization_id"`
	ConversationID uuid.UUID                 `json:"conversation_id"`
	Status         domain.ConversationStatus `json:"status,omitempty"`
	PreviousStatus domain.ConversationStatus `json:"previous_status,omitempty"`
	MessageID      *uuid.UUID                `json:"message_id,omitempty"`
	Role           domain.MessageRole        `json:"role,omitempty"`
	OccurredAt     time.Time                 `json:"occurred_at"`
}

// Publisher delivers events to subscribers
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// NoopPublisher drops every event
type NoopPublisher struct{}

func (NoopPublisher) Publish(context.Context, Event) error { return nil }
func (NoopPublisher) Close() error                         { return nil }

// Recorder keeps published events in memory
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *Recorder) Publish(_ context.Context, event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Types returns the recorded event types in publish order.
func (r *Recorder) Types() []Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Events returns a copy of the recorded events.
func (r *Recorder) Events() []Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Event(nil), r.events...)
}

func (r *Recorder) Close() error { return nil }
