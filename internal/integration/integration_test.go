package integration

import (
	"context"
	"encoding/json"
	"strings"
	"testing"

	"violet-eightfold/internal/archetype"
	"violet-eightfold/internal/dialogue"
	"violet-eightfold/internal/llm"
	"violet-eightfold/internal/session"
)

type fakeBackend struct {
	raw  json.RawMessage
	err  error
	got  []session.Message
	topc string
}

func (f *fakeBackend) Integrate(_ context.Context, history []session.Message, topic, _, _ string) (json.RawMessage, error) {
	f.got = history
	f.topc = topic
	return f.raw, f.err
}

func transcript() []dialogue.Turn {
	return []dialogue.Turn{
		dialogue.NewTurn(0, archetype.User, "Should I change careers?"),
		dialogue.NewTurn(1, archetype.Sovereign, "We must weigh risk."),
	}
}

func TestAnalyzeParsesWellFormedReply(t *testing.T) {
	backend := &fakeBackend{raw: json.RawMessage(`{
		"updatedQuest": "Decide on the career move",
		"newMilestone": {"title": "Named the real fear", "type": "realization", "icon": "eye"}
	}`)}
	a := NewAnalyzer(backend)

	result, err := a.Analyze(context.Background(), transcript(), "careers", "", "")
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if result.UpdatedQuest != "Decide on the career move" {
		t.Fatalf("quest not extracted: %+v", result)
	}
	if result.NewMilestone == nil || result.NewMilestone.Type != MilestoneRealization {
		t.Fatalf("milestone type not normalized: %+v", result.NewMilestone)
	}
	if result.NewMilestone.ID == "" || result.NewMilestone.Date == "" {
		t.Fatalf("milestone id/date not filled in: %+v", result.NewMilestone)
	}
	if len(backend.got) != 2 || backend.got[0].Role != "user" || backend.got[1].Role != "assistant" {
		t.Fatalf("transcript mis-serialized: %+v", backend.got)
	}
	if backend.topc != "careers" {
		t.Fatalf("topic not forwarded: %q", backend.topc)
	}
}

func TestAnalyzeSoftFailsOnGarbage(t *testing.T) {
	backend := &fakeBackend{raw: json.RawMessage("The council has nothing to report, alas.")}
	a := NewAnalyzer(backend)

	result, err := a.Analyze(context.Background(), transcript(), "", "", "")
	if err != nil {
		t.Fatalf("soft failure must not raise, got %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}

func TestNormalizeDropsInvalidEnums(t *testing.T) {
	r := Normalize(Result{
		NewMilestone: &Milestone{Title: "x", Type: "EPIPHANY"},
		NewAttribute: &Attribute{Name: "grit", Type: "CURSE"},
	})
	if r.NewMilestone != nil {
		t.Fatalf("invalid milestone type must be dropped: %+v", r.NewMilestone)
	}
	if r.NewAttribute != nil {
		t.Fatalf("invalid attribute type must be dropped: %+v", r.NewAttribute)
	}
}

func TestStripFences(t *testing.T) {
	fenced := "Here you go:\n```json\n{\"updatedState\": \"resolved\"}\n```\nHope that helps."
	result, ok := ParseResult([]byte(fenced))
	if !ok {
		t.Fatalf("fenced JSON not parsed")
	}
	if result.UpdatedState != "resolved" {
		t.Fatalf("unexpected result: %+v", result)
	}
}

type fakeLLM struct {
	resp llm.Response
	err  error
	got  []llm.Message
}

func (f *fakeLLM) Generate(_ context.Context, msgs []llm.Message) (llm.Response, error) {
	f.got = msgs
	return f.resp, f.err
}

func TestExtractorEmbedsSchemaAndTranscript(t *testing.T) {
	fake := &fakeLLM{resp: llm.Response{Content: `{"newLoreEntry": "Chose honesty over comfort."}`}}
	e := NewExtractor(fake)

	history := []session.Message{
		{Role: "user", Content: "Should I change careers?"},
		{Role: "assistant", Content: "We must weigh risk."},
	}
	result, err := e.Extract(context.Background(), history, "careers", "quest", "steady")
	if err != nil {
		t.Fatalf("extract: %v", err)
	}
	if result.NewLoreEntry != "Chose honesty over comfort." {
		t.Fatalf("lore not extracted: %+v", result)
	}

	if len(fake.got) != 2 {
		t.Fatalf("expected system+user messages, got %d", len(fake.got))
	}
	if !strings.Contains(fake.got[0].Content, "BREAKTHROUGH") {
		t.Fatalf("schema enums missing from system prompt")
	}
	if !strings.Contains(fake.got[1].Content, "Should I change careers?") {
		t.Fatalf("transcript missing from user prompt")
	}
	if !strings.Contains(fake.got[1].Content, "Current quest: quest") {
		t.Fatalf("quest state missing from user prompt")
	}
}

func TestExtractorSoftFailsOnProse(t *testing.T) {
	fake := &fakeLLM{resp: llm.Response{Content: "I could not find anything to record."}}
	e := NewExtractor(fake)

	result, err := e.Extract(context.Background(), nil, "", "", "")
	if err != nil {
		t.Fatalf("prose reply must soft-fail, got %v", err)
	}
	if !result.Empty() {
		t.Fatalf("expected empty result, got %+v", result)
	}
}
