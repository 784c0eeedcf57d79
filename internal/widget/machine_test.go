package widget

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/support-widget/internal/domain"
)

// fakeBackend records the calls the machine makes
type fakeBackend struct {
	mu sync.Mutex

	orgResult *domain.OrganizationValidation
	orgErr    error

	sessionValid bool
	sessionErr   error

	// settingsPending is the number of reads that fail before settings resolve
	settingsPending int
	settings        *domain.WidgetSettings

	voice    *domain.VoiceCredentials
	voiceErr error

	calls []string
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, call)
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) ValidateOrganization(context.Context, string) (*domain.OrganizationValidation, error) {
	f.record("org")
	return f.orgResult, f.orgErr
}

func (f *fakeBackend) ValidateContactSession(context.Context, uuid.UUID) (*domain.SessionValidation, error) {
	f.record("session")
	if f.sessionErr != nil {
		return nil, f.sessionErr
	}
	return &domain.SessionValidation{Valid: f.sessionValid}, nil
}

func (f *fakeBackend) WidgetSettings(context.Context, string) (*domain.WidgetSettings, error) {
	f.record("settings")
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.settingsPending > 0 {
		f.settingsPending--
		return nil, errors.New("not loaded")
	}
	return f.settings, nil
}

func (f *fakeBackend) VoiceCredentials(context.Context, string) (*domain.VoiceCredentials, error) {
	f.record("vapi")
	return f.voice, f.voiceErr
}

type memTokens struct {
	tokens map[string]uuid.UUID
	err    error
}

func (m *memTokens) Load(orgID string) (uuid.UUID, bool, error) {
	if m.err != nil {
		return uuid.Nil, false, m.err
	}
	id, ok := m.tokens[orgID]
	return id, ok, nil
}

func (m *memTokens) Save(orgID string, id uuid.UUID) error {
	m.tokens[orgID] = id
	return nil
}

func (m *memTokens) Delete(orgID string) error {
	delete(m.tokens, orgID)
	return nil
}

func validOrg() *fakeBackend {
	return &fakeBackend{
		orgResult: &domain.OrganizationValidation{Valid: true},
		settings:  &domain.WidgetSettings{OrganizationID: "org_1", GreetMessage: "Hi"},
	}
}

func TestMachine_Run(t *testing.T) {
	sessionID := uuid.New()

	tests := []struct {
		name    string
		orgID   string
		backend *fakeBackend
		tokens  *memTokens

		expectedStep   Step
		expectedScreen Screen
		expectedCalls  []string
		validSession   bool
	}{
		{
			name:           "missing organization never reaches session",
			orgID:          "",
			backend:        validOrg(),
			tokens:         &memTokens{tokens: map[string]uuid.UUID{}},
			expectedStep:   StepError,
			expectedScreen: ScreenError,
			expectedCalls:  nil,
		},
		{
			name:           "no stored session routes to auth",
			orgID:          "org_1",
			backend:        validOrg(),
			tokens:         &memTokens{tokens: map[string]uuid.UUID{}},
			expectedStep:   StepDone,
			expectedScreen: ScreenAuth,
			expectedCalls:  []string{"org", "settings", "vapi"},
		},
		{
			name:  "valid stored session routes to selection",
			orgID: "org_1",
			backend: func() *fakeBackend {
				b := validOrg()
				b.sessionValid = true
				return b
			}(),
			tokens:         &memTokens{tokens: map[string]uuid.UUID{"org_1": sessionID}},
			expectedStep:   StepDone,
			expectedScreen: ScreenSelection,
			expectedCalls:  []string{"org", "session", "settings", "vapi"},
			validSession:   true,
		},
		{
			name:           "expired stored session still loads settings and voice",
			orgID:          "org_1",
			backend:        validOrg(),
			tokens:         &memTokens{tokens: map[string]uuid.UUID{"org_1": sessionID}},
			expectedStep:   StepDone,
			expectedScreen: ScreenAuth,
			expectedCalls:  []string{"org", "session", "settings", "vapi"},
		},
		{
			name:  "session validation failure is absorbed",
			orgID: "org_1",
			backend: func() *fakeBackend {
				b := validOrg()
				b.sessionErr = errors.New("network down")
				return b
			}(),
			tokens:         &memTokens{tokens: map[string]uuid.UUID{"org_1": sessionID}},
			expectedStep:   StepDone,
			expectedScreen: ScreenAuth,
			expectedCalls:  []string{"org", "session", "settings", "vapi"},
		},
		{
			name:           "unreadable token store counts as no session",
			orgID:          "org_1",
			backend:        validOrg(),
			tokens:         &memTokens{err: errors.New("permission denied")},
			expectedStep:   StepDone,
			expectedScreen: ScreenAuth,
			expectedCalls:  []string{"org", "settings", "vapi"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMachine(tt.backend, tt.tokens, WithPollInterval(time.Millisecond))

			state, err := m.Run(context.Background(), tt.orgID)

			require.NoError(t, err)
			assert.Equal(t, tt.expectedStep, state.Step)
			assert.Equal(t, tt.expectedScreen, state.Screen)
			assert.Equal(t, tt.expectedCalls, tt.backend.Calls())
			assert.Equal(t, tt.validSession, state.HasValidSession)
		})
	}
}

func TestMachine_MissingOrganization(t *testing.T) {
	var steps []Step
	m := NewMachine(validOrg(), &memTokens{tokens: map[string]uuid.UUID{}},
		WithObserver(func(s State) { steps = append(steps, s.Step) }))

	state, err := m.Run(context.Background(), "")

	require.NoError(t, err)
	assert.ErrorIs(t, state.Err, domain.ErrMissingOrganization)
	assert.Equal(t, []Step{StepError}, steps)
	assert.Empty(t, state.OrganizationID)
}

func TestMachine_OrganizationReasons(t *testing.T) {
	tests := []struct {
		name     string
		result   *domain.OrganizationValidation
		err      error
		expected string
	}{
		{
			name:     "collaborator reason is passed through",
			result:   &domain.OrganizationValidation{Valid: false, Reason: "Organization not found"},
			expected: "Organization not found",
		},
		{
			name:     "missing reason falls back",
			result:   &domain.OrganizationValidation{Valid: false},
			expected: "Invalid configuration",
		},
		{
			name:     "unreachable server",
			err:      errors.New("connection refused"),
			expected: "Unable to verify organization",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			backend := &fakeBackend{orgResult: tt.result, orgErr: tt.err}
			m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}})

			state, err := m.Run(context.Background(), "org_1")

			require.NoError(t, err)
			assert.Equal(t, StepError, state.Step)
			assert.Equal(t, tt.expected, state.ErrorMessage)

			var reasonErr *domain.ReasonError
			require.ErrorAs(t, state.Err, &reasonErr)
			assert.Equal(t, tt.expected, reasonErr.Reason)
			assert.Equal(t, []string{"org"}, backend.Calls())
		})
	}
}

func TestMachine_VoiceFailureDoesNotChangeRouting(t *testing.T) {
	sessionID := uuid.New()

	for _, sessionValid := range []bool{true, false} {
		var screens []Screen
		for _, voiceErr := range []error{nil, errors.New("decrypt failed")} {
			backend := validOrg()
			backend.sessionValid = sessionValid
			backend.voice = &domain.VoiceCredentials{PublicAPIKey: "pk"}
			backend.voiceErr = voiceErr

			m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{"org_1": sessionID}})
			state, err := m.Run(context.Background(), "org_1")
			require.NoError(t, err)
			assert.Equal(t, StepDone, state.Step)

			if voiceErr != nil {
				assert.Nil(t, state.VoiceCredentials)
			} else {
				require.NotNil(t, state.VoiceCredentials)
				assert.Equal(t, "pk", state.VoiceCredentials.PublicAPIKey)
			}
			screens = append(screens, state.Screen)
		}
		assert.Equal(t, screens[0], screens[1])
	}
}

func TestMachine_SettingsPollsUntilDefined(t *testing.T) {
	backend := validOrg()
	backend.settingsPending = 3

	m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}}, WithPollInterval(time.Millisecond))
	state, err := m.Run(context.Background(), "org_1")

	require.NoError(t, err)
	assert.Equal(t, StepDone, state.Step)
	require.NotNil(t, state.Settings)
	assert.Equal(t, "Hi", state.Settings.GreetMessage)
	assert.Equal(t, []string{"org", "settings", "settings", "settings", "settings", "vapi"}, backend.Calls())
}

func TestMachine_NullSettingsAreDefined(t *testing.T) {
	backend := validOrg()
	backend.settings = nil

	m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}})
	state, err := m.Run(context.Background(), "org_1")

	require.NoError(t, err)
	assert.Equal(t, StepDone, state.Step)
	assert.Nil(t, state.Settings)
}

func TestMachine_CancelledWhileWaitingForSettings(t *testing.T) {
	backend := validOrg()
	backend.settingsPending = 1 << 30

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}}, WithPollInterval(time.Millisecond))
	state, err := m.Run(ctx, "org_1")

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Equal(t, StepSettings, state.Step)
	assert.NotContains(t, backend.Calls(), "vapi")
}

func TestMachine_Abandon(t *testing.T) {
	backend := validOrg()
	backend.settingsPending = 1 << 30

	var m *Machine
	m = NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}},
		WithPollInterval(time.Millisecond),
		WithObserver(func(s State) {
			if s.Step == StepSettings {
				m.Abandon()
			}
		}),
	)

	state, err := m.Run(context.Background(), "org_1")

	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StepSettings, state.Step)
	assert.NotContains(t, backend.Calls(), "vapi")
}

func TestMachine_AbandonBeforeFirstCommit(t *testing.T) {
	backend := validOrg()
	m := NewMachine(backend, &memTokens{tokens: map[string]uuid.UUID{}})
	m.Abandon()
	m.Abandon()

	state, err := m.Run(context.Background(), "org_1")

	assert.ErrorIs(t, err, ErrAbandoned)
	assert.Equal(t, StepOrg, state.Step)
	assert.Empty(t, state.OrganizationID)
}
