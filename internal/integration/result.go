package integration

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Milestone types.
const (
	MilestoneBreakthrough = "BREAKTHROUGH"
	MilestoneBenchmark    = "BENCHMARK"
	MilestoneRealization  = "REALIZATION"
)

// Attribute types.
const (
	AttributeBuff   = "BUFF"
	AttributeDebuff = "DEBUFF"
	AttributeSkill  = "SKILL"
)

// Milestone is a notable event distilled from a session.
type Milestone struct {
	ID          string `json:"id"`
	Title       string `json:"title"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Type        string `json:"type" jsonschema:"enum=BREAKTHROUGH,enum=BENCHMARK,enum=REALIZATION"`
	Icon        string `json:"icon"`
}

// Attribute is a trait change distilled from a session.
type Attribute struct {
	Name        string `json:"name"`
	Level       int    `json:"level"`
	Description string `json:"description"`
	Type        string `json:"type" jsonschema:"enum=BUFF,enum=DEBUFF,enum=SKILL"`
}

// Result is the structured extraction from one adjourned session. Every
// field is optional; a zero Result means "no change detected", which is
// also what a failed extraction reports.
type Result struct {
	NewLoreEntry string     `json:"newLoreEntry,omitempty"`
	UpdatedQuest string     `json:"updatedQuest,omitempty"`
	UpdatedState string     `json:"updatedState,omitempty"`
	NewMilestone *Milestone `json:"newMilestone,omitempty"`
	NewAttribute *Attribute `json:"newAttribute,omitempty"`
}

// Empty reports whether nothing was extracted.
func (r Result) Empty() bool {
	return r.NewLoreEntry == "" && r.UpdatedQuest == "" && r.UpdatedState == "" &&
		r.NewMilestone == nil && r.NewAttribute == nil
}

// Normalize cleans a model-produced result: strings are trimmed, enum
// values upper-cased, and a milestone or attribute with an out-of-range
// type is dropped rather than passed through. Missing milestone ids and
// dates are filled in so consumers always get a complete object.
func Normalize(r Result) Result {
	r.NewLoreEntry = strings.TrimSpace(r.NewLoreEntry)
	r.UpdatedQuest = strings.TrimSpace(r.UpdatedQuest)
	r.UpdatedState = strings.TrimSpace(r.UpdatedState)

	if m := r.NewMilestone; m != nil {
		m.Title = strings.TrimSpace(m.Title)
		m.Type = strings.ToUpper(strings.TrimSpace(m.Type))
		switch {
		case m.Title == "":
			r.NewMilestone = nil
		case m.Type != MilestoneBreakthrough && m.Type != MilestoneBenchmark && m.Type != MilestoneRealization:
			r.NewMilestone = nil
		default:
			if m.ID == "" {
				m.ID = uuid.NewString()
			}
			if m.Date == "" {
				m.Date = time.Now().UTC().Format("2006-01-02")
			}
		}
	}

	if a := r.NewAttribute; a != nil {
		a.Name = strings.TrimSpace(a.Name)
		a.Type = strings.ToUpper(strings.TrimSpace(a.Type))
		switch {
		case a.Name == "":
			r.NewAttribute = nil
		case a.Type != AttributeBuff && a.Type != AttributeDebuff && a.Type != AttributeSkill:
			r.NewAttribute = nil
		}
	}

	return r
}
