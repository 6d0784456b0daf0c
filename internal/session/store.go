// Package session keeps the signed-in user's credentials on disk and
// broadcasts session-expiry events to interested subscribers.
package session

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"gopkg.in/yaml.v3"

	domain "github.com/donaldgifford/auto-marketplace/pkg/types"
)

// Credentials are the persisted tokens and profile of the signed-in user.
type Credentials struct {
	Token        string       `yaml:"token"`
	RefreshToken string       `yaml:"refresh_token"`
	User         *domain.User `yaml:"user,omitempty"`
}

// Empty reports whether no access token is stored.
func (c Credentials) Empty() bool {
	return c.Token == ""
}

// ExpiresAt returns the exp claim of the access token. The signature is
// not verified; the server remains the authority on validity. ok is false
// when the token is not a JWT or carries no exp claim.
func (c *Credentials) ExpiresAt() (exp time.Time, ok bool) {
	if c == nil || c.Empty() {
		return time.Time{}, false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(c.Token, claims); err != nil {
		return time.Time{}, false
	}
	date, err := claims.GetExpirationTime()
	if err != nil || date == nil {
		return time.Time{}, false
	}
	return date.Time, true
}

// Store persists Credentials as YAML at a fixed path. All methods are safe
// for concurrent use.
type Store struct {
	path string

	mu    sync.Mutex
	creds Credentials
}

// NewStore creates a Store at path and loads any credentials already there.
func NewStore(path string) (*Store, error) {
	s := &Store{path: path}
	if err := s.load(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *Store) load() error {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading credentials: %w", err)
	}
	if err := yaml.Unmarshal(data, &s.creds); err != nil {
		return fmt.Errorf("parsing credentials: %w", err)
	}
	return nil
}

// Token returns the stored access token, or "" when signed out.
func (s *Store) Token() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.creds.Token
}

// Credentials returns a copy of the stored credentials.
func (s *Store) Credentials() Credentials {
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.creds
	if c.User != nil {
		u := *c.User
		c.User = &u
	}
	return c
}

// Save replaces the stored credentials and writes them to disk.
func (s *Store) Save(c Credentials) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = c
	return s.writeLocked()
}

// Clear removes the access token, refresh token, and user together.
func (s *Store) Clear() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.creds = Credentials{}
	err := os.Remove(s.path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("removing credentials: %w", err)
	}
	return nil
}

func (s *Store) writeLocked() error {
	data, err := yaml.Marshal(&s.creds)
	if err != nil {
		return fmt.Errorf("encoding credentials: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o700); err != nil {
		return fmt.Errorf("creating state dir: %w", err)
	}
	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("writing credentials: %w", err)
	}
	return nil
}
