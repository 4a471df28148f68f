// Package authclient is a Go client for the auth API. It keeps the caller's
// token pair and session id in an explicit SessionStore and transparently
// rotates the pair when an access token expires.
package authclient

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sync"
)

// Tokens is the credential set of one logged-in session.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

// IsZero reports whether no credentials are held.
func (t Tokens) IsZero() bool {
	return t.AccessToken == "" && t.RefreshToken == ""
}

// Persistence keeps Tokens across process restarts.
type Persistence interface {
	Load() (Tokens, error)
	Save(Tokens) error
	Clear() error
}

// SessionStore holds the current credentials. It is safe for concurrent use.
type SessionStore struct {
	mu          sync.RWMutex
	tokens      Tokens
	persistence Persistence
}

// NewSessionStore creates an empty store. A nil persistence keeps the
// credentials in memory only.
func NewSessionStore(p Persistence) *SessionStore {
	return &SessionStore{persistence: p}
}

// Load initializes the store from its persistence.
func (s *SessionStore) Load() error {
	if s.persistence == nil {
		return nil
	}
	tokens, err := s.persistence.Load()
	if err != nil {
		return fmt.Errorf("authclient: load session: %w", err)
	}
	s.mu.Lock()
	s.tokens = tokens
	s.mu.Unlock()
	return nil
}

// Set replaces the credentials after a login or a refresh.
func (s *SessionStore) Set(t Tokens) error {
	s.mu.Lock()
	s.tokens = t
	s.mu.Unlock()
	if s.persistence == nil {
		return nil
	}
	if err := s.persistence.Save(t); err != nil {
		return fmt.Errorf("authclient: save session: %w", err)
	}
	return nil
}

// Clear forgets the credentials. It is the terminal LoggedOut transition.
func (s *SessionStore) Clear() error {
	s.mu.Lock()
	s.tokens = Tokens{}
	s.mu.Unlock()
	if s.persistence == nil {
		return nil
	}
	if err := s.persistence.Clear(); err != nil {
		return fmt.Errorf("authclient: clear session: %w", err)
	}
	return nil
}

// Tokens returns a snapshot of the current credentials.
func (s *SessionStore) Tokens() Tokens {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.tokens
}

// LoggedIn reports whether the store holds credentials.
func (s *SessionStore) LoggedIn() bool {
	return !s.Tokens().IsZero()
}

// FilePersistence stores Tokens as JSON in a file readable only by the owner.
type FilePersistence struct {
	Path string
}

// Load reads saved tokens; a missing file yields empty tokens.
func (f FilePersistence) Load() (Tokens, error) {
	var t Tokens
	raw, err := os.ReadFile(f.Path)
	if errors.Is(err, os.ErrNotExist) {
		return t, nil
	}
	if err != nil {
		return t, err
	}
	if err := json.Unmarshal(raw, &t); err != nil {
		return Tokens{}, err
	}
	return t, nil
}

// Save writes the tokens readable by the owner only.
func (f FilePersistence) Save(t Tokens) error {
	raw, err := json.Marshal(t)
	if err != nil {
		return err
	}
	return os.WriteFile(f.Path, raw, 0o600)
}

// Clear removes the token file.
func (f FilePersistence) Clear() error {
	if err := os.Remove(f.Path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
