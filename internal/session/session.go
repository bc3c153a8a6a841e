package session

import (
	"errors"
	"strings"
	"sync"
	"time"

	"violet-eightfold/internal/archetype"
	"violet-eightfold/internal/dialogue"
)

// ErrEmptyInput rejects user submissions that are blank after trimming,
// before any network call happens.
var ErrEmptyInput = errors.New("empty user input")

// Message is one {role, content} pair of the conversation payload sent to
// the completion backend.
type Message struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// State holds the ordered turn history of exactly one context: one direct
// persona conversation or one council session. Contexts never share a State,
// so switching archetypes cannot leak history.
type State struct {
	mu    sync.RWMutex
	turns []dialogue.Turn
	next  int
}

func NewState() *State {
	return &State{}
}

// Append extends the history in order. No de-duplication.
func (s *State) Append(turns []dialogue.Turn) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = append(s.turns, turns...)
	s.next += len(turns)
}

// AppendUser records a user submission as a turn.
func (s *State) AppendUser(content string) (dialogue.Turn, error) {
	trimmed := strings.TrimSpace(content)
	if trimmed == "" {
		return dialogue.Turn{}, ErrEmptyInput
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	t := dialogue.NewTurn(s.next, archetype.User, trimmed)
	s.turns = append(s.turns, t)
	s.next++
	return t, nil
}

// Snapshot returns a copy of the full ordered history.
func (s *State) Snapshot() []dialogue.Turn {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]dialogue.Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

// NextIndex is the offset to hand the parser so turn ids stay unique
// within the session.
func (s *State) NextIndex() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.next
}

func (s *State) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.turns)
}

// ToConversationPayload maps the history to role/content pairs for the
// completion backend. SYSTEM turns are internal and excluded; user turns
// map to role "user", everything else to "assistant".
func (s *State) ToConversationPayload() []Message {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Message, 0, len(s.turns))
	for _, t := range s.turns {
		if t.Speaker == archetype.System {
			continue
		}
		role := "assistant"
		if t.IsUser {
			role = "user"
		}
		out = append(out, Message{
			ID:        t.ID,
			Role:      role,
			Content:   t.Content,
			Timestamp: t.Timestamp,
		})
	}
	return out
}

// Clear empties the history. Used on persona switch, new topic and adjourn.
func (s *State) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.turns = nil
	s.next = 0
}
