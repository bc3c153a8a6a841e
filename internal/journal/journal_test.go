package journal

import (
	"path/filepath"
	"strings"
	"testing"
	"time"

	"violet-eightfold/internal/integration"
)

func TestFileRecorderAppendLoad(t *testing.T) {
	rec, err := NewFileRecorder(filepath.Join(t.TempDir(), "journal.jsonl"))
	if err != nil {
		t.Fatalf("recorder init: %v", err)
	}

	ev := Event{
		Timestamp: time.Now().UTC(),
		UserID:    "u-1",
		Topic:     "careers",
		Turns:     5,
		Result: integration.Result{
			UpdatedQuest: "Decide on the move",
			NewMilestone: &integration.Milestone{ID: "m-1", Title: "Named the fear", Type: integration.MilestoneRealization},
		},
	}
	if err := rec.AppendEvent(ev); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := rec.AppendEvent(Event{Timestamp: time.Now().UTC(), UserID: "u-2", Topic: "rest"}); err != nil {
		t.Fatalf("append: %v", err)
	}

	events, err := rec.LoadEvents()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("expected 2 events, got %d", len(events))
	}
	if events[0].Result.NewMilestone == nil || events[0].Result.NewMilestone.Title != "Named the fear" {
		t.Fatalf("milestone not round-tripped: %+v", events[0].Result)
	}
}

func TestDigestDay(t *testing.T) {
	day := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	events := []Event{
		{Timestamp: day, UserID: "a", Result: integration.Result{
			NewLoreEntry: "x",
			NewMilestone: &integration.Milestone{Title: "t", Type: integration.MilestoneBreakthrough},
		}},
		{Timestamp: day.Add(time.Hour), UserID: "a", Result: integration.Result{
			UpdatedQuest: "q",
			NewAttribute: &integration.Attribute{Name: "grit", Type: integration.AttributeSkill},
		}},
		{Timestamp: day.Add(26 * time.Hour), UserID: "b"}, // next day, excluded
	}

	d := DigestDay(events, day)
	if d.Sessions != 2 || d.UniqueUsers != 1 {
		t.Fatalf("unexpected counts: %+v", d)
	}
	if d.LoreEntries != 1 || d.QuestUpdates != 1 {
		t.Fatalf("unexpected lore/quest counts: %+v", d)
	}
	if d.MilestonesByType[integration.MilestoneBreakthrough] != 1 {
		t.Fatalf("milestone count wrong: %+v", d.MilestonesByType)
	}
	if d.AttributesByType[integration.AttributeSkill] != 1 {
		t.Fatalf("attribute count wrong: %+v", d.AttributesByType)
	}

	report := FormatDigest(d)
	if !strings.Contains(report, "2026-08-30") || !strings.Contains(report, "2 sessions") {
		t.Fatalf("unexpected report: %s", report)
	}
}
