package widget

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/Rrens/support-widget/internal/domain"
)

const defaultClientTimeout = 30 * time.Second

// APIError is a non-2xx response from the server
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("server returned %d: %s", e.StatusCode, e.Message)
}

// Unwrap maps HTTP statuses back onto the domain error taxonomy
func (e *APIError) Unwrap() error {
	switch e.StatusCode {
	case http.StatusUnauthorized:
		return domain.ErrUnauthorized
	case http.StatusNotFound:
		return domain.ErrNotFound
	case http.StatusConflict:
		return domain.ErrInvalidState
	default:
		return nil
	}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

// Client talks to the public widget API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// ClientOption configures a Client
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a client for the server at baseURL
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/") + "/api/v1/public",
		httpClient: &http.Client{Timeout: defaultClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// ValidateOrganization reports whether orgID exists
func (c *Client) ValidateOrganization(ctx context.Context, orgID string) (*domain.OrganizationValidation, error) {
	var out domain.OrganizationValidation
	if err := c.do(ctx, http.MethodGet, "/organizations/"+url.PathEscape(orgID)+"/validate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// CreateContactSession starts a visitor session
func (c *Client) CreateContactSession(ctx context.Context, in domain.ContactSessionCreate) (*domain.ContactSession, error) {
	var out domain.ContactSession
	if err := c.do(ctx, http.MethodPost, "/contact-sessions", nil, in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ValidateContactSession reports whether a session is still usable
func (c *Client) ValidateContactSession(ctx context.Context, id uuid.UUID) (*domain.SessionValidation, error) {
	var out domain.SessionValidation
	if err := c.do(ctx, http.MethodPost, "/contact-sessions/"+id.String()+"/validate", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// RefreshContactSession extends a session close to expiry
func (c *Client) RefreshContactSession(ctx context.Context, id uuid.UUID) (*domain.ContactSession, error) {
	var out domain.ContactSession
	if err := c.do(ctx, http.MethodPost, "/contact-sessions/"+id.String()+"/refresh", nil, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// WidgetSettings returns the organization's settings, nil when none are
// configured
func (c *Client) WidgetSettings(ctx context.Context, orgID string) (*domain.WidgetSettings, error) {
	var out *domain.WidgetSettings
	if err := c.do(ctx, http.MethodGet, "/organizations/"+url.PathEscape(orgID)+"/widget-settings", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// VoiceCredentials returns the public voice key, nil when unavailable
func (c *Client) VoiceCredentials(ctx context.Context, orgID string) (*domain.VoiceCredentials, error) {
	var out *domain.VoiceCredentials
	if err := c.do(ctx, http.MethodGet, "/organizations/"+url.PathEscape(orgID)+"/voice-credentials", nil, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// StartConversation opens a conversation for the session
func (c *Client) StartConversation(ctx context.Context, sessionID uuid.UUID, orgID string) (*domain.Conversation, error) {
	var out domain.Conversation
	body := map[string]string{"organization_id": orgID}
	if err := c.do(ctx, http.MethodPost, "/conversations", &sessionID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// SendMessage submits a visitor message and returns the outcome, including
// the agent reply when one was generated
func (c *Client) SendMessage(ctx context.Context, sessionID, conversationID uuid.UUID, text string) (*domain.SubmitResult, error) {
	var out domain.SubmitResult
	body := map[string]string{"prompt": text}
	if err := c.do(ctx, http.MethodPost, "/conversations/"+conversationID.String()+"/messages", &sessionID, body, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Messages returns a page of the conversation, newest first
func (c *Client) Messages(ctx context.Context, sessionID, conversationID uuid.UUID, opts domain.PaginationOpts) (*domain.MessagePage, error) {
	q := url.Values{}
	if opts.NumItems > 0 {
		q.Set("num_items", fmt.Sprint(opts.NumItems))
	}
	if opts.Cursor != "" {
		q.Set("cursor", opts.Cursor)
	}
	path := "/conversations/" + conversationID.String() + "/messages"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}

	var out domain.MessagePage
	if err := c.do(ctx, http.MethodGet, path, &sessionID, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, sessionID *uuid.UUID, in, out any) error {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if sessionID != nil {
		req.Header.Set("X-Contact-Session-ID", sessionID.String())
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 300 {
			return &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		}
		return fmt.Errorf("failed to decode response: %w", err)
	}

	if resp.StatusCode >= 300 || !env.Success {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(env.Error)}
	}

	if out == nil || len(env.Data) == 0 {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("failed to decode response data: %w", err)
	}
	return nil
}

// errorMessage flattens the envelope's error, which is a string or an object
// of field errors
func errorMessage(raw json.RawMessage) string {
	if len(raw) == 0 {
		return "unknown error"
	}
	var msg string
	if err := json.Unmarshal(raw, &msg); err == nil {
		return msg
	}
	return string(raw)
}
