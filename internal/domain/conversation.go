package domain

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// ConversationStatus is the lifecycle state of a conversation
type ConversationStatus string

const (
	StatusUnresolved ConversationStatus = "unresolved"
	StatusEscalated  ConversationStatus = "escalated"
	StatusResolved   ConversationStatus = "resolved"
)

// Valid reports whether s is one of the known statuses.
func (s ConversationStatus) Valid() bool {
	switch s {
	case StatusUnresolved, StatusEscalated, StatusResolved:
		return true
	}
	return false
}

// StatusEvent triggers a status transition
type StatusEvent string

const (
	EventEscalate      StatusEvent = "escalate"
	EventResolve       StatusEvent = "resolve"
	EventReopen        StatusEvent = "reopen"
	EventAgentResolve  StatusEvent = "agent_resolve"
	EventAgentEscalate StatusEvent = "agent_escalate"
)

// IsAgentEvent reports whether the event originates from an agent tool.
func (e StatusEvent) IsAgentEvent() bool {
	return e == EventAgentResolve || e == EventAgentEscalate
}

// transitions is the complete status graph. Operator events walk the ring
// unresolved -> escalated -> resolved -> unresolved; agent events may jump to
// resolved or escalated from anywhere.
var transitions = map[ConversationStatus]map[StatusEvent]ConversationStatus{
	StatusUnresolved: {
		EventEscalate:      StatusEscalated,
		EventAgentResolve:  StatusResolved,
		EventAgentEscalate: StatusEscalated,
	},
	StatusEscalated: {
		EventResolve:       StatusResolved,
		EventAgentResolve:  StatusResolved,
		EventAgentEscalate: StatusEscalated,
	},
	StatusResolved: {
		EventReopen:        StatusUnresolved,
		EventAgentResolve:  StatusResolved,
		EventAgentEscalate: StatusEscalated,
	},
}

// Next returns the status reached from s on event e.
func (s ConversationStatus) Next(e StatusEvent) (ConversationStatus, error) {
	next, ok := transitions[s][e]
	if !ok {
		return s, fmt.Errorf("%w: %s on %s", ErrInvalidTransition, e, s)
	}
	return next, nil
}

// OperatorEventFor maps an operator's requested target status onto the
// operator event that reaches it from the current status.
func OperatorEventFor(from, to ConversationStatus) (StatusEvent, error) {
	for _, e := range []StatusEvent{EventEscalate, EventResolve, EventReopen} {
		if next, ok := transitions[from][e]; ok && next == to {
			return e, nil
		}
	}
	return "", fmt.Errorf("%w: %s to %s", ErrInvalidTransition, from, to)
}

// Conversation links a contact session to a message thread
type Conversation struct {
	ID               uuid.UUID          `json:"id"`
	OrganizationID   string             `json:"organization_id"`
	ContactSessionID uuid.UUID          `json:"contact_session_id"`
	ThreadID         uuid.UUID          `json:"thread_id"`
	Status           ConversationStatus `json:"status"`
	CreatedAt        time.Time          `json:"created_at"`
	UpdatedAt        time.Time          `json:"updated_at"`
}

// ConversationSummary is a conversation listing row
type ConversationSummary struct {
	Conversation
	LastMessage    *Message        `json:"last_message"`
	ContactSession *ContactSession `json:"contact_session,omitempty"`
}

// ConversationFilter narrows an organization listing
type ConversationFilter struct {
	OrganizationID string
	Status         *ConversationStatus
	Limit          int
	Offset         int
}

// StatusChange records an applied transition
type StatusChange struct {
	From  ConversationStatus `json:"from"`
	To    ConversationStatus `json:"to"`
	Event StatusEvent        `json:"event"`
}

// ConversationRepository defines the interface for conversation storage.
//
// AppendMessage and UpdateStatus carry the atomicity the lifecycle manager
// relies on: AppendMessage locks the conversation, refuses resolved
// conversations and appends to its thread in one transaction; UpdateStatus is
// a compare-and-set on the current status.
type ConversationRepository interface {
	Create(ctx context.Context, conversation *Conversation, greeting *Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*Conversation, error)
	GetByThreadID(ctx context.Context, threadID uuid.UUID) (*Conversation, error)
	ListByOrganization(ctx context.Context, filter ConversationFilter) ([]Conversation, error)
	ListByContactSession(ctx context.Context, contactSessionID uuid.UUID, limit, offset int) ([]Conversation, error)
	AppendMessage(ctx context.Context, conversationID uuid.UUID, message *Message) (*Conversation, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to ConversationStatus) (bool, error)
}

// AuthorRole identifies who submits a message
type AuthorRole string

const (
	AuthorOperator AuthorRole = "operator"
	AuthorVisitor  AuthorRole = "visitor"
)

// Principal is the acting identity for conversation operations
type Principal struct {
	Role             AuthorRole
	OrganizationID   string
	OperatorID       uuid.UUID
	OperatorName     string
	ContactSessionID uuid.UUID
}

// OperatorPrincipal builds an operator principal.
func OperatorPrincipal(operatorID uuid.UUID, organizationID, name string) Principal {
	return Principal{
		Role:           AuthorOperator,
		OrganizationID: organizationID,
		OperatorID:     operatorID,
		OperatorName:   name,
	}
}

// VisitorPrincipal builds a visitor principal from a contact session id.
func VisitorPrincipal(contactSessionID uuid.UUID) Principal {
	return Principal{
		Role:             AuthorVisitor,
		ContactSessionID: contactSessionID,
	}
}

// SubmitResult is the outcome of submitting a message
type SubmitResult struct {
	Message    *Message           `json:"message"`
	Status     ConversationStatus `json:"status"`
	Generated  bool               `json:"generated"`
	Reply      *Message           `json:"reply,omitempty"`
	Transition *StatusChange      `json:"transition,omitempty"`
}
