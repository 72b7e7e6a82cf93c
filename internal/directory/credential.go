package directory

import (
	"os"
	"sync"
)

// PasswordKey is the session key holding the dashboard password
const PasswordKey = "password"

// CredentialProvider supplies the password used for Basic authorization.
// Password returns ErrMissingCredential when nothing has been stored.
type CredentialProvider interface {
	Password() (string, error)
}

// StaticPassword is a fixed credential
type StaticPassword string

// Password implements CredentialProvider
func (p StaticPassword) Password() (string, error) {
	if p == "" {
		return "", ErrMissingCredential
	}
	return string(p), nil
}

// EnvPassword reads the credential from an environment variable on every call
type EnvPassword string

// Password implements CredentialProvider
func (e EnvPassword) Password() (string, error) {
	v, ok := os.LookupEnv(string(e))
	if !ok || v == "" {
		return "", ErrMissingCredential
	}
	return v, nil
}

// SessionStore is a process-local string store scoped to one session
type SessionStore struct {
	mu     sync.RWMutex
	values map[string]string
}

// NewSessionStore creates an empty session store
func NewSessionStore() *SessionStore {
	return &SessionStore{values: make(map[string]string)}
}

// Set stores a value
func (s *SessionStore) Set(key, value string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.values[key] = value
}

// Get returns a stored value
func (s *SessionStore) Get(key string) (string, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok
}

// Delete removes a stored value
func (s *SessionStore) Delete(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.values, key)
}

// Password implements CredentialProvider using the PasswordKey entry
func (s *SessionStore) Password() (string, error) {
	v, ok := s.Get(PasswordKey)
	if !ok || v == "" {
		return "", ErrMissingCredential
	}
	return v, nil
}
