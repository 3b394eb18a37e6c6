// Package analytics summarizes the interaction log.
package analytics

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"channel-chatter/internal/storage"
)

// DailyStats holds one day of activity.
type DailyStats struct {
	Date          string                 `json:"date"`
	TotalMessages int                    `json:"total_messages"`
	Replies       int                    `json:"replies"`
	Observed      int                    `json:"observed"`
	Commands      int                    `json:"commands"`
	Regenerations int                    `json:"regenerations"`
	UniqueAuthors int                    `json:"unique_authors"`
	ModelUsage    map[string]int         `json:"model_usage"`
	ChannelStats  map[int64]ChannelStats `json:"channel_stats"`
}

// ChannelStats is the per-conversation breakdown.
type ChannelStats struct {
	ChannelID int64 `json:"channel_id"`
	Messages  int   `json:"messages"`
	Replies   int   `json:"replies"`
	Observed  int   `json:"observed"`
}

// AnalyzeDailyLogs counts the events that fall on targetDate's day, in
// targetDate's location.
func AnalyzeDailyLogs(events []storage.Event, targetDate time.Time) *DailyStats {
	startOfDay := time.Date(targetDate.Year(), targetDate.Month(), targetDate.Day(), 0, 0, 0, 0, targetDate.Location())
	endOfDay := startOfDay.Add(24 * time.Hour)

	stats := &DailyStats{
		Date:         startOfDay.Format("2006-01-02"),
		ModelUsage:   make(map[string]int),
		ChannelStats: make(map[int64]ChannelStats),
	}
	authors := make(map[string]bool)

	for _, ev := range events {
		if ev.Timestamp.Before(startOfDay) || !ev.Timestamp.Before(endOfDay) {
			continue
		}
		stats.TotalMessages++
		if ev.AuthorID != "" {
			authors[ev.AuthorID] = true
		}

		cs, ok := stats.ChannelStats[ev.ChannelID]
		if !ok {
			cs = ChannelStats{ChannelID: ev.ChannelID}
		}
		cs.Messages++

		switch ev.Kind {
		case storage.KindReply:
			if ev.AssistantResponse != "" {
				stats.Replies++
				cs.Replies++
			}
		case storage.KindObserve:
			stats.Observed++
			cs.Observed++
		case storage.KindRegenerate:
			stats.Regenerations++
			stats.Commands++
		case storage.KindCommand:
			stats.Commands++
		}
		if ev.Model != "" {
			stats.ModelUsage[ev.Model]++
		}
		stats.ChannelStats[ev.ChannelID] = cs
	}

	stats.UniqueAuthors = len(authors)
	return stats
}

// GenerateReportSummary renders the stats as plain text.
func (ds *DailyStats) GenerateReportSummary() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Activity for %s:\n\n", ds.Date)
	fmt.Fprintf(&b, "- Messages handled: %d\n", ds.TotalMessages)
	fmt.Fprintf(&b, "- Replies sent: %d\n", ds.Replies)
	fmt.Fprintf(&b, "- Observed without reply: %d\n", ds.Observed)
	fmt.Fprintf(&b, "- Commands: %d (regenerations: %d)\n", ds.Commands, ds.Regenerations)
	fmt.Fprintf(&b, "- Unique authors: %d\n", ds.UniqueAuthors)

	if len(ds.ModelUsage) > 0 {
		b.WriteString("\nModels:\n")
		models := make([]string, 0, len(ds.ModelUsage))
		for m := range ds.ModelUsage {
			models = append(models, m)
		}
		sort.Strings(models)
		for _, m := range models {
			fmt.Fprintf(&b, "- %s: %d\n", m, ds.ModelUsage[m])
		}
	}

	fmt.Fprintf(&b, "\nChannels (%d):\n", len(ds.ChannelStats))
	ids := make([]int64, 0, len(ds.ChannelStats))
	for id := range ds.ChannelStats {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		cs := ds.ChannelStats[id]
		fmt.Fprintf(&b, "- Channel %d: %d messages, %d replies, %d observed\n", id, cs.Messages, cs.Replies, cs.Observed)
	}
	return b.String()
}

// ToJSON renders the stats for detailed inspection.
func (ds *DailyStats) ToJSON() (string, error) {
	data, err := json.MarshalIndent(ds, "", "  ")
	if err != nil {
		return "", err
	}
	return string(data), nil
}
