// Package session provides server-side session storage for workflow servers
// under test.
//
// Workflow integration tests frequently need to assert on what the server
// stored in its session ("after login, the session must contain user_id").
// To make that possible, the server under test and the test suite share a
// session Store; the SessionData validator reads the same store the server
// writes through.
//
// Implementations for different backends:
//   - memory: In-memory storage for in-process test servers
//   - file: File-based storage for local development servers
//   - redis: Redis-backed storage for servers running in shared environments
//
// # Usage
//
// Create a store and mount the middleware on the server under test:
//
//	store := session.NewMemoryStore()
//	mux.Use(session.Middleware(store))
//
// Handlers read and write session values:
//
//	sess := session.FromContext(r.Context())
//	sess.Values["user_id"] = user.ID
//
// Validators then assert against the same store via the runner's session
// store configuration.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"sync"
	"time"
)

// CookieName is the cookie carrying the session ID between the workflow
// server and the client.
const CookieName = "subui_session"

// DefaultTTL is the default session duration.
const DefaultTTL = 24 * time.Hour

// Data holds the values stored in a session.
type Data map[string]any

// Session stores server-side state for one client.
type Session struct {
	ID        string    `json:"id"`
	Values    Data      `json:"values"`
	ExpiresAt time.Time `json:"expires_at"`
	CreatedAt time.Time `json:"created_at"`
}

// IsExpired returns true if the session has expired.
func (s *Session) IsExpired() bool {
	return time.Now().After(s.ExpiresAt)
}

// Store is the interface for session storage backends.
type Store interface {
	// Get retrieves a session by ID.
	// Returns nil, nil if the session doesn't exist or has expired.
	Get(ctx context.Context, sessionID string) (*Session, error)

	// Set stores a session.
	Set(ctx context.Context, session *Session) error

	// Delete removes a session.
	Delete(ctx context.Context, sessionID string) error

	// Cleanup removes expired sessions (may be a no-op for backends with
	// native expiration).
	Cleanup(ctx context.Context) error

	// Close releases backend resources.
	Close() error
}

// GenerateID creates a cryptographically secure random session ID.
func GenerateID() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}

// New creates a session with a fresh ID, an empty value map, and the given TTL.
func New(ttl time.Duration) (*Session, error) {
	id, err := GenerateID()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	return &Session{
		ID:        id,
		Values:    make(Data),
		ExpiresAt: now.Add(ttl),
		CreatedAt: now,
	}, nil
}

// =============================================================================
// Memory store
// =============================================================================

// MemoryStore is an in-memory session store for in-process test servers.
type MemoryStore struct {
	mu       sync.RWMutex
	sessions map[string]*Session
}

// NewMemoryStore creates an empty in-memory session store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*Session)}
}

func (s *MemoryStore) Get(ctx context.Context, sessionID string) (*Session, error) {
	s.mu.RLock()
	sess, ok := s.sessions[sessionID]
	s.mu.RUnlock()

	if !ok {
		return nil, nil
	}
	if sess.IsExpired() {
		_ = s.Delete(ctx, sessionID)
		return nil, nil
	}
	return sess, nil
}

func (s *MemoryStore) Set(ctx context.Context, sess *Session) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sessions[sess.ID] = sess
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.sessions, sessionID)
	return nil
}

func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	for id, sess := range s.sessions {
		if now.After(sess.ExpiresAt) {
			delete(s.sessions, id)
		}
	}
	return nil
}

func (s *MemoryStore) Close() error { return nil }

// Len returns the number of stored sessions, expired ones included.
func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.sessions)
}

var _ Store = (*MemoryStore)(nil)
