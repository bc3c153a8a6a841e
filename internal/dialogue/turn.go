package dialogue

import (
	"fmt"
	"time"

	"violet-eightfold/internal/archetype"
)

// Turn is one attributed utterance within a session. Turns are immutable
// once created; Content is always trimmed and never empty.
type Turn struct {
	ID        string       `json:"id"`
	Speaker   archetype.ID `json:"speaker"`
	Content   string       `json:"content"`
	IsUser    bool         `json:"isUser"`
	Timestamp time.Time    `json:"timestamp"`
}

// NewTurn builds a turn with a positional id. Positional ids keep parsing
// idempotent: the same buffer at the same offset yields the same ids.
func NewTurn(index int, speaker archetype.ID, content string) Turn {
	return Turn{
		ID:        fmt.Sprintf("turn-%d", index),
		Speaker:   speaker,
		Content:   content,
		IsUser:    speaker == archetype.User,
		Timestamp: time.Now(),
	}
}
