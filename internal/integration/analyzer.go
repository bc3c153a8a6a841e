package integration

import (
	"context"
	"encoding/json"
	"log"

	"violet-eightfold/internal/dialogue"
	"violet-eightfold/internal/session"
)

// Backend is the slice of the completion client the analyzer needs.
type Backend interface {
	Integrate(ctx context.Context, history []session.Message, topic, currentQuest, currentState string) (json.RawMessage, error)
}

// Analyzer derives a Result from a finished session transcript. It reads
// the transcript and never touches session state.
type Analyzer struct {
	backend Backend
}

func NewAnalyzer(backend Backend) *Analyzer {
	return &Analyzer{backend: backend}
}

// Analyze ships the transcript to the backend and interprets the reply.
//
// An unparseable reply is not an error: a failed background enrichment must
// never block the adjourn action, so it degrades to the empty Result. Only
// transport and auth failures propagate.
func (a *Analyzer) Analyze(ctx context.Context, transcript []dialogue.Turn, topic, currentQuest, currentState string) (Result, error) {
	history := make([]session.Message, 0, len(transcript))
	for _, t := range transcript {
		role := "assistant"
		if t.IsUser {
			role = "user"
		}
		history = append(history, session.Message{
			ID:        t.ID,
			Role:      role,
			Content:   t.Content,
			Timestamp: t.Timestamp,
		})
	}

	raw, err := a.backend.Integrate(ctx, history, topic, currentQuest, currentState)
	if err != nil {
		return Result{}, err
	}

	result, ok := ParseResult(raw)
	if !ok {
		log.Printf("⚠️ integration reply not parseable, treating as no findings")
		return Result{}, nil
	}
	return result, nil
}

// ParseResult decodes a model or backend reply into a normalized Result.
// The second return is false when the payload is not usable JSON.
func ParseResult(raw []byte) (Result, bool) {
	var r Result
	if err := json.Unmarshal(StripFences(raw), &r); err != nil {
		return Result{}, false
	}
	return Normalize(r), true
}
