package completion

import "sync"

// CredentialStore caches the bearer token between requests. Clearing it on
// an authentication failure is part of the client contract: the host
// application watches for the empty token and forces re-login.
type CredentialStore struct {
	mu    sync.RWMutex
	token string
}

func NewCredentialStore() *CredentialStore {
	return &CredentialStore{}
}

func (s *CredentialStore) Set(token string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = token
}

func (s *CredentialStore) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *CredentialStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.token = ""
}
