package journal

import (
	"time"

	"violet-eightfold/internal/integration"
)

// Event records one adjourned session and what was distilled from it.
// Events are appended in chronological order.
type Event struct {
	Timestamp time.Time          `json:"timestamp"`
	UserID    string             `json:"user_id"`
	Topic     string             `json:"topic"`
	Turns     int                `json:"turns"`
	Result    integration.Result `json:"result"`
}

// Recorder abstracts persistence of integration events.
// Implementations can be file-based, database, etc.
// LoadEvents should return events in chronological order.
// AppendEvent should atomically append a new event.
// Implementations must be safe for concurrent use.
type Recorder interface {
	AppendEvent(event Event) error
	LoadEvents() ([]Event, error)
}
