package journal

import (
	"fmt"
	"sort"
	"strings"
	"time"
)

// DailyDigest aggregates one day of integration events.
type DailyDigest struct {
	Date             string         `json:"date"`
	Sessions         int            `json:"sessions"`
	UniqueUsers      int            `json:"unique_users"`
	LoreEntries      int            `json:"lore_entries"`
	QuestUpdates     int            `json:"quest_updates"`
	MilestonesByType map[string]int `json:"milestones_by_type"`
	AttributesByType map[string]int `json:"attributes_by_type"`
}

// DigestDay aggregates the events that fall on targetDate's calendar day.
func DigestDay(events []Event, targetDate time.Time) *DailyDigest {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	digest := &DailyDigest{
		Date:             startOfDay.Format("2006-01-02"),
		MilestonesByType: make(map[string]int),
		AttributesByType: make(map[string]int),
	}
	uniqueUsers := make(map[string]bool)

	for _, ev := range events {
		if ev.Timestamp.Before(startOfDay) || !ev.Timestamp.Before(endOfDay) {
			continue
		}
		digest.Sessions++
		uniqueUsers[ev.UserID] = true
		if ev.Result.NewLoreEntry != "" {
			digest.LoreEntries++
		}
		if ev.Result.UpdatedQuest != "" {
			digest.QuestUpdates++
		}
		if m := ev.Result.NewMilestone; m != nil {
			digest.MilestonesByType[m.Type]++
		}
		if a := ev.Result.NewAttribute; a != nil {
			digest.AttributesByType[a.Type]++
		}
	}

	digest.UniqueUsers = len(uniqueUsers)
	return digest
}

// FormatDigest renders a digest as a short log-friendly report.
func FormatDigest(d *DailyDigest) string {
	var b strings.Builder
	fmt.Fprintf(&b, "📊 Journal digest for %s: %d sessions, %d users, %d lore entries, %d quest updates",
		d.Date, d.Sessions, d.UniqueUsers, d.LoreEntries, d.QuestUpdates)
	for _, part := range []struct {
		label string
		m     map[string]int
	}{
		{"milestones", d.MilestonesByType},
		{"attributes", d.AttributesByType},
	} {
		if len(part.m) == 0 {
			continue
		}
		keys := make([]string, 0, len(part.m))
		for k := range part.m {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		fmt.Fprintf(&b, "; %s:", part.label)
		for _, k := range keys {
			fmt.Fprintf(&b, " %s=%d", k, part.m[k])
		}
	}
	return b.String()
}
