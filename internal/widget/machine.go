// Package widget runs the widget's cold-start bootstrap: it validates the
// organization, checks any stored visitor session, waits for widget settings
// and loads optional voice credentials before routing to a screen.
package widget

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/Rrens/support-widget/internal/domain"
)

// Step is a bootstrap state
type Step string

const (
	StepOrg      Step = "org"
	StepSession  Step = "session"
	StepSettings Step = "settings"
	StepVapi     Step = "vapi"
	StepDone     Step = "done"
	StepError    Step = "error"
)

// Terminal reports whether the machine stops at s.
func (s Step) Terminal() bool {
	return s == StepDone || s == StepError
}

// Screen is the view the widget shows
type Screen string

const (
	ScreenLoading   Screen = "loading"
	ScreenError     Screen = "error"
	ScreenAuth      Screen = "auth"
	ScreenSelection Screen = "selection"
)

const (
	defaultPollInterval = 500 * time.Millisecond

	fallbackInvalidReason = "Invalid configuration"
	unreachableReason     = "Unable to verify organization"
)

// ErrAbandoned is returned by Run after Abandon was called
var ErrAbandoned = errors.New("bootstrap abandoned")

// OrganizationValidator checks that an organization exists
type OrganizationValidator interface {
	ValidateOrganization(ctx context.Context, orgID string) (*domain.OrganizationValidation, error)
}

// SessionValidator checks a stored contact session
type SessionValidator interface {
	ValidateContactSession(ctx context.Context, id uuid.UUID) (*domain.SessionValidation, error)
}

// SettingsLoader reads widget settings. An error means the value is not
// defined yet; a nil settings value with a nil error is a defined "none".
type SettingsLoader interface {
	WidgetSettings(ctx context.Context, orgID string) (*domain.WidgetSettings, error)
}

// VoiceLoader reads the organization's voice credentials
type VoiceLoader interface {
	VoiceCredentials(ctx context.Context, orgID string) (*domain.VoiceCredentials, error)
}

// Backend is everything the machine asks the server
type Backend interface {
	OrganizationValidator
	SessionValidator
	SettingsLoader
	VoiceLoader
}

// TokenStore persists one contact session id per organization
type TokenStore interface {
	Load(orgID string) (uuid.UUID, bool, error)
	Save(orgID string, id uuid.UUID) error
	Delete(orgID string) error
}

// State is the machine's context object. It is copied to observers after
// every committed step.
type State struct {
	Step             Step                     `json:"step"`
	Screen           Screen                   `json:"screen"`
	LoadingMessage   string                   `json:"loading_message,omitempty"`
	ErrorMessage     string                   `json:"error_message,omitempty"`
	Err              error                    `json:"-"`
	OrganizationID   string                   `json:"organization_id,omitempty"`
	ContactSessionID *uuid.UUID               `json:"contact_session_id,omitempty"`
	SessionValid     bool                     `json:"session_valid"`
	HasValidSession  bool                     `json:"has_valid_session"`
	Settings         *domain.WidgetSettings   `json:"settings,omitempty"`
	VoiceCredentials *domain.VoiceCredentials `json:"voice_credentials,omitempty"`
}

// Option configures a Machine
type Option func(*Machine)

// WithPollInterval sets how often undefined settings are re-read
func WithPollInterval(d time.Duration) Option {
	return func(m *Machine) {
		if d > 0 {
			m.pollInterval = d
		}
	}
}

// WithObserver registers a callback invoked after each step commits
func WithObserver(fn func(State)) Option {
	return func(m *Machine) {
		m.observer = fn
	}
}

// Machine sequences the bootstrap steps. Steps run one at a time and each
// resolves before the next starts. A Machine is used for a single Run.
type Machine struct {
	backend      Backend
	tokens       TokenStore
	pollInterval time.Duration
	observer     func(State)

	abandonOnce sync.Once
	abandoned   chan struct{}
}

// NewMachine creates a bootstrap machine
func NewMachine(backend Backend, tokens TokenStore, opts ...Option) *Machine {
	m := &Machine{
		backend:      backend,
		tokens:       tokens,
		pollInterval: defaultPollInterval,
		abandoned:    make(chan struct{}),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Abandon stops the machine before its next step commits. In-flight
// collaborator calls are left to finish on their own.
func (m *Machine) Abandon() {
	m.abandonOnce.Do(func() { close(m.abandoned) })
}

func (m *Machine) isAbandoned() bool {
	select {
	case <-m.abandoned:
		return true
	default:
		return false
	}
}

// Run drives the machine from org to a terminal step. Reaching the error
// step is not a Run error; the returned state carries the cause. Run fails
// only when ctx is done or the machine is abandoned, returning the last
// committed state.
func (m *Machine) Run(ctx context.Context, orgID string) (*State, error) {
	state := State{Step: StepOrg, Screen: ScreenLoading}

	for !state.Step.Terminal() {
		next := state
		switch state.Step {
		case StepOrg:
			m.org(ctx, orgID, &next)
		case StepSession:
			m.session(ctx, &next)
		case StepSettings:
			if err := m.settings(ctx, &next); err != nil {
				return &state, err
			}
		case StepVapi:
			m.vapi(ctx, &next)
		}

		if m.isAbandoned() {
			return &state, ErrAbandoned
		}
		if err := ctx.Err(); err != nil {
			return &state, err
		}

		if next.Step == StepDone {
			next.HasValidSession = next.ContactSessionID != nil && next.SessionValid
			if next.HasValidSession {
				next.Screen = ScreenSelection
			} else {
				next.Screen = ScreenAuth
			}
		}

		log.Debug().
			Str("from", string(state.Step)).
			Str("to", string(next.Step)).
			Str("organization_id", next.OrganizationID).
			Msg("Widget bootstrap step")

		state = next
		if m.observer != nil {
			m.observer(state)
		}
	}

	return &state, nil
}

func fail(state *State, err error) {
	state.Step = StepError
	state.Screen = ScreenError
	state.Err = err
	state.ErrorMessage = err.Error()
}

func (m *Machine) org(ctx context.Context, orgID string, state *State) {
	state.LoadingMessage = "Loading organization..."
	if orgID == "" {
		fail(state, domain.ErrMissingOrganization)
		return
	}

	state.LoadingMessage = "Verifying organization..."
	result, err := m.backend.ValidateOrganization(ctx, orgID)
	if err == nil && result == nil {
		err = errors.New("empty validation result")
	}
	if err != nil {
		log.Warn().Err(err).Str("organization_id", orgID).Msg("Organization validation failed")
		fail(state, &domain.ReasonError{Reason: unreachableReason})
		return
	}
	if !result.Valid {
		reason := result.Reason
		if reason == "" {
			reason = fallbackInvalidReason
		}
		fail(state, &domain.ReasonError{Reason: reason})
		return
	}

	state.OrganizationID = orgID
	state.Step = StepSession
}

func (m *Machine) session(ctx context.Context, state *State) {
	state.LoadingMessage = "Finding contact session ID..."
	state.Step = StepSettings

	id, ok, err := m.tokens.Load(state.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", state.OrganizationID).Msg("Failed to read stored session")
		return
	}
	if !ok {
		return
	}
	state.ContactSessionID = &id

	state.LoadingMessage = "Validating session..."
	result, err := m.backend.ValidateContactSession(ctx, id)
	if err != nil || result == nil {
		log.Warn().Err(err).Str("contact_session_id", id.String()).Msg("Session validation failed")
		state.SessionValid = false
		return
	}
	state.SessionValid = result.Valid
}

// settings waits until the loader returns a defined value. It has no retry
// limit; only ctx or Abandon end the wait.
func (m *Machine) settings(ctx context.Context, state *State) error {
	state.LoadingMessage = "Loading widget settings..."

	for {
		settings, err := m.backend.WidgetSettings(ctx, state.OrganizationID)
		if err == nil {
			state.Settings = settings
			state.Step = StepVapi
			return nil
		}
		log.Debug().Err(err).Str("organization_id", state.OrganizationID).Msg("Widget settings not available yet")

		timer := time.NewTimer(m.pollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-m.abandoned:
			timer.Stop()
			return ErrAbandoned
		case <-timer.C:
		}
	}
}

func (m *Machine) vapi(ctx context.Context, state *State) {
	state.LoadingMessage = "Loading voice settings..."
	if state.OrganizationID == "" {
		fail(state, domain.ErrMissingOrganization)
		return
	}

	creds, err := m.backend.VoiceCredentials(ctx, state.OrganizationID)
	if err != nil {
		log.Warn().Err(err).Str("organization_id", state.OrganizationID).Msg("Voice credentials unavailable")
		creds = nil
	}
	state.VoiceCredentials = creds
	state.Step = StepDone
}
