package widget

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/google/uuid"
)

type storedToken struct {
	ContactSessionID uuid.UUID `json:"contact_session_id"`
	SavedAt          time.Time `json:"saved_at"`
}

// FileTokenStore keeps each organization's contact session id in its own
// JSON file under dir
type FileTokenStore struct {
	dir string
	mu  sync.Mutex
}

// NewFileTokenStore creates a store rooted at dir. The directory is created
// on first save.
func NewFileTokenStore(dir string) *FileTokenStore {
	return &FileTokenStore{dir: dir}
}

func (s *FileTokenStore) path(orgID string) string {
	return filepath.Join(s.dir, url.PathEscape(orgID)+".json")
}

// Load returns the stored session id for orgID, if any
func (s *FileTokenStore) Load(orgID string) (uuid.UUID, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	raw, err := os.ReadFile(s.path(orgID))
	if errors.Is(err, os.ErrNotExist) {
		return uuid.Nil, false, nil
	}
	if err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to read session token: %w", err)
	}

	var token storedToken
	if err := json.Unmarshal(raw, &token); err != nil {
		return uuid.Nil, false, fmt.Errorf("failed to decode session token: %w", err)
	}
	if token.ContactSessionID == uuid.Nil {
		return uuid.Nil, false, nil
	}
	return token.ContactSessionID, true, nil
}

// Save stores id as orgID's session, replacing any previous one
func (s *FileTokenStore) Save(orgID string, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}

	raw, err := json.Marshal(storedToken{ContactSessionID: id, SavedAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("failed to encode session token: %w", err)
	}

	tmp := s.path(orgID) + ".tmp"
	if err := os.WriteFile(tmp, raw, 0o600); err != nil {
		return fmt.Errorf("failed to write session token: %w", err)
	}
	if err := os.Rename(tmp, s.path(orgID)); err != nil {
		return fmt.Errorf("failed to write session token: %w", err)
	}
	return nil
}

// Delete forgets orgID's session
func (s *FileTokenStore) Delete(orgID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := os.Remove(s.path(orgID)); err != nil && !errors.Is(err, os.ErrNotExist) {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}
