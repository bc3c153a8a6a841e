package integration

import (
	"context"
	"fmt"
	"strings"

	"violet-eightfold/internal/llm"
	"violet-eightfold/internal/session"
)

const extractorSystemPrompt = `You distill an adjourned council session of the Violet Eightfold into journal updates.

Read the transcript and decide whether anything durable happened: a new piece of the seeker's story worth recording, a shift in their current quest or state, a milestone, or a trait change.

Respond with a single JSON object matching this exact schema, and nothing else:

%s

Rules:
- Omit every field where the session produced no real change. An empty object {} is a perfectly good answer.
- newMilestone.type must be one of BREAKTHROUGH, BENCHMARK, REALIZATION.
- newAttribute.type must be one of BUFF, DEBUFF, SKILL.
- Never invent drama the transcript does not contain.`

// Extractor is the server side of integration: it asks the configured LLM
// provider for a schema-constrained extraction over a transcript.
type Extractor struct {
	client llm.Client
}

func NewExtractor(client llm.Client) *Extractor {
	return &Extractor{client: client}
}

// Extract runs one extraction. A reply that fails to parse degrades to the
// empty Result; only the provider call itself can error.
func (e *Extractor) Extract(ctx context.Context, history []session.Message, topic, currentQuest, currentState string) (Result, error) {
	messages := []llm.Message{
		{Role: "system", Content: fmt.Sprintf(extractorSystemPrompt, ResultSchema())},
		{Role: "user", Content: buildTranscriptBlob(history, topic, currentQuest, currentState)},
	}

	resp, err := e.client.Generate(ctx, messages)
	if err != nil {
		return Result{}, fmt.Errorf("extraction completion failed: %w", err)
	}

	result, ok := ParseResult([]byte(resp.Content))
	if !ok {
		return Result{}, nil
	}
	return result, nil
}

func buildTranscriptBlob(history []session.Message, topic, currentQuest, currentState string) string {
	var b strings.Builder
	if topic != "" {
		fmt.Fprintf(&b, "Topic: %s\n", topic)
	}
	if currentQuest != "" {
		fmt.Fprintf(&b, "Current quest: %s\n", currentQuest)
	}
	if currentState != "" {
		fmt.Fprintf(&b, "Current state: %s\n", currentState)
	}
	b.WriteString("\nTranscript:\n")
	for _, m := range history {
		fmt.Fprintf(&b, "%s: %s\n", m.Role, m.Content)
	}
	return b.String()
}

// StripFences peels a markdown code fence off a model reply so the JSON
// inside can be decoded. Replies without fences pass through untouched.
func StripFences(raw []byte) []byte {
	content := strings.TrimSpace(string(raw))
	if strings.Contains(content, "```json") {
		start := strings.Index(content, "```json") + 7
		end := strings.Index(content[start:], "```")
		if end > 0 {
			content = strings.TrimSpace(content[start : start+end])
		}
	} else if strings.Contains(content, "```") {
		start := strings.Index(content, "```") + 3
		end := strings.Index(content[start:], "```")
		if end > 0 {
			candidate := strings.TrimSpace(content[start : start+end])
			if strings.HasPrefix(candidate, "{") {
				content = candidate
			}
		}
	}
	return []byte(content)
}
