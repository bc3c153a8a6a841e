package auth

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

var ErrBadCredentials = errors.New("unknown user or wrong secret")

// Seed is a user provisioned from the environment at startup, so a fresh
// deployment has someone who can log in.
type Seed struct {
	Username string
	Secret   string
}

// ParseSeeds turns "username:secret" entries into seeds.
func ParseSeeds(entries []string) ([]Seed, error) {
	var seeds []Seed
	for _, e := range entries {
		e = strings.TrimSpace(e)
		if e == "" {
			continue
		}
		name, secret, ok := strings.Cut(e, ":")
		name, secret = strings.TrimSpace(name), strings.TrimSpace(secret)
		if !ok || name == "" || secret == "" {
			return nil, fmt.Errorf("bad bootstrap user entry %q, want username:secret", e)
		}
		seeds = append(seeds, Seed{Username: name, Secret: secret})
	}
	return seeds, nil
}

type User struct {
	ID          string `json:"id"`
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
	SecretHash  string `json:"secret_hash"`
}

type Repository interface {
	LoadAll() ([]User, error)
	Upsert(user User) error
	Remove(userID string) error
}

type Service struct {
	repo   Repository
	byName map[string]User
	byID   map[string]User
}

// NewWithRepo loads the user store and merges in the seed list: a seeded
// username that already exists is left untouched, so restarts do not reset
// secrets.
func NewWithRepo(repo Repository, seeds []Seed) (*Service, error) {
	s := &Service{repo: repo, byName: make(map[string]User), byID: make(map[string]User)}
	if repo != nil {
		users, err := repo.LoadAll()
		if err != nil {
			return nil, fmt.Errorf("load users: %w", err)
		}
		for _, u := range users {
			s.byName[u.Username] = u
			s.byID[u.ID] = u
		}
	}
	for _, seed := range seeds {
		if _, exists := s.byName[seed.Username]; exists {
			continue
		}
		if _, err := s.Register(seed.Username, seed.Username, seed.Secret); err != nil {
			return nil, fmt.Errorf("seed user %q: %w", seed.Username, err)
		}
	}
	return s, nil
}

// Login checks a username/secret pair against the store.
func (s *Service) Login(username, secret string) (User, error) {
	u, ok := s.byName[username]
	if !ok {
		return User{}, ErrBadCredentials
	}
	if subtle.ConstantTimeCompare([]byte(u.SecretHash), []byte(HashSecret(secret))) != 1 {
		return User{}, ErrBadCredentials
	}
	return u, nil
}

// Register creates a user with a fresh id and persists it.
func (s *Service) Register(username, displayName, secret string) (User, error) {
	if _, exists := s.byName[username]; exists {
		return User{}, errors.New("username taken")
	}
	u := User{
		ID:          uuid.NewString(),
		Username:    username,
		DisplayName: displayName,
		SecretHash:  HashSecret(secret),
	}
	s.byName[u.Username] = u
	s.byID[u.ID] = u
	if s.repo != nil {
		if err := s.repo.Upsert(u); err != nil {
			return User{}, err
		}
	}
	return u, nil
}

// Known reports whether a user id exists in the store.
func (s *Service) Known(userID string) bool {
	_, ok := s.byID[userID]
	return ok
}

func (s *Service) List() []User {
	out := make([]User, 0, len(s.byID))
	for _, u := range s.byID {
		out = append(out, u)
	}
	return out
}

func HashSecret(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
