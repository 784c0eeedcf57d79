package widget

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Rrens/support-widget/internal/domain"
)

func writeEnvelope(w http.ResponseWriter, status int, data any, errMsg any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": status < 300,
		"data":    data,
		"error":   errMsg,
	})
}

func newTestServer(t *testing.T) (*httptest.Server, *Client) {
	t.Helper()

	sessionID := uuid.MustParse("8f0c6f5e-8d5e-4a8e-9d53-6b7a3c0c2f11")

	r := chi.NewRouter()
	r.Route("/api/v1/public", func(r chi.Router) {
		r.Get("/organizations/{orgID}/validate", func(w http.ResponseWriter, r *http.Request) {
			if chi.URLParam(r, "orgID") == "org_1" {
				writeEnvelope(w, http.StatusOK, domain.OrganizationValidation{Valid: true}, nil)
				return
			}
			writeEnvelope(w, http.StatusOK, domain.OrganizationValidation{Reason: "Organization not found"}, nil)
		})
		r.Get("/organizations/{orgID}/widget-settings", func(w http.ResponseWriter, r *http.Request) {
			switch chi.URLParam(r, "orgID") {
			case "org_1":
				writeEnvelope(w, http.StatusOK, domain.WidgetSettings{OrganizationID: "org_1", GreetMessage: "Welcome"}, nil)
			case "org_down":
				writeEnvelope(w, http.StatusInternalServerError, nil, "internal server error")
			default:
				writeEnvelope(w, http.StatusOK, nil, nil)
			}
		})
		r.Get("/organizations/{orgID}/voice-credentials", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, nil, nil)
		})
		r.Post("/contact-sessions", func(w http.ResponseWriter, r *http.Request) {
			var in domain.ContactSessionCreate
			require.NoError(t, json.NewDecoder(r.Body).Decode(&in))
			writeEnvelope(w, http.StatusCreated, domain.ContactSession{
				ID:             sessionID,
				OrganizationID: in.OrganizationID,
				Name:           in.Name,
				Email:          in.Email,
			}, nil)
		})
		r.Post("/contact-sessions/{sessionID}/validate", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusOK, domain.SessionValidation{Valid: chi.URLParam(r, "sessionID") == sessionID.String()}, nil)
		})
		r.Post("/contact-sessions/{sessionID}/refresh", func(w http.ResponseWriter, r *http.Request) {
			writeEnvelope(w, http.StatusNotFound, nil, "not found: contact session")
		})
		r.Post("/conversations/{conversationID}/messages", func(w http.ResponseWriter, r *http.Request) {
			if r.Header.Get("X-Contact-Session-ID") != sessionID.String() {
				writeEnvelope(w, http.StatusUnauthorized, nil, "contact session not found or expired")
				return
			}
			body, _ := io.ReadAll(r.Body)
			var in map[string]string
			require.NoError(t, json.Unmarshal(body, &in))
			writeEnvelope(w, http.StatusCreated, domain.SubmitResult{
				Message: &domain.Message{Role: domain.RoleUser, Content: in["prompt"]},
				Status:  domain.StatusUnresolved,
			}, nil)
		})
	})

	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return srv, NewClient(srv.URL+"/", WithHTTPClient(srv.Client()))
}

func TestClient_ValidateOrganization(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	result, err := client.ValidateOrganization(ctx, "org_1")
	require.NoError(t, err)
	assert.True(t, result.Valid)

	result, err = client.ValidateOrganization(ctx, "org_2")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Equal(t, "Organization not found", result.Reason)
}

func TestClient_WidgetSettings(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	settings, err := client.WidgetSettings(ctx, "org_1")
	require.NoError(t, err)
	require.NotNil(t, settings)
	assert.Equal(t, "Welcome", settings.GreetMessage)

	settings, err = client.WidgetSettings(ctx, "org_empty")
	require.NoError(t, err)
	assert.Nil(t, settings)

	_, err = client.WidgetSettings(ctx, "org_down")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusInternalServerError, apiErr.StatusCode)
	assert.Equal(t, "internal server error", apiErr.Message)
}

func TestClient_ContactSessions(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	session, err := client.CreateContactSession(ctx, domain.ContactSessionCreate{
		OrganizationID: "org_1",
		Name:           "Ada",
		Email:          "ada@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "org_1", session.OrganizationID)

	validation, err := client.ValidateContactSession(ctx, session.ID)
	require.NoError(t, err)
	assert.True(t, validation.Valid)

	validation, err = client.ValidateContactSession(ctx, uuid.New())
	require.NoError(t, err)
	assert.False(t, validation.Valid)

	_, err = client.RefreshContactSession(ctx, session.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_SendMessage(t *testing.T) {
	_, client := newTestServer(t)
	ctx := context.Background()

	session, err := client.CreateContactSession(ctx, domain.ContactSessionCreate{OrganizationID: "org_1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)

	result, err := client.SendMessage(ctx, session.ID, uuid.New(), "where is my order?")
	require.NoError(t, err)
	assert.Equal(t, "where is my order?", result.Message.Content)
	assert.Equal(t, domain.StatusUnresolved, result.Status)

	_, err = client.SendMessage(ctx, uuid.New(), uuid.New(), "hello")
	assert.ErrorIs(t, err, domain.ErrUnauthorized)
}

func TestClient_DrivesMachine(t *testing.T) {
	_, client := newTestServer(t)
	tokens := NewFileTokenStore(t.TempDir())

	state, err := NewMachine(client, tokens).Run(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, ScreenAuth, state.Screen)
	assert.Nil(t, state.VoiceCredentials)

	session, err := client.CreateContactSession(context.Background(), domain.ContactSessionCreate{OrganizationID: "org_1", Name: "Ada", Email: "ada@example.com"})
	require.NoError(t, err)
	require.NoError(t, tokens.Save("org_1", session.ID))

	state, err = NewMachine(client, tokens).Run(context.Background(), "org_1")
	require.NoError(t, err)
	assert.Equal(t, ScreenSelection, state.Screen)
	assert.Equal(t, "Welcome", state.Settings.GreetMessage)
}
