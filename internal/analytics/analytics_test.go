package analytics

import (
	"strings"
	"testing"
	"time"

	"channel-chatter/internal/storage"
)

func TestAnalyzeDailyLogs(t *testing.T) {
	testDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)

	events := []storage.Event{
		{
			Timestamp:         testDate.Add(2 * time.Hour),
			ChannelID:         10,
			AuthorID:          "123",
			Kind:              storage.KindReply,
			UserMessage:       "Ann says: hello",
			AssistantResponse: "hi there",
			Model:             "llama3.1:latest",
		},
		{
			Timestamp:   testDate.Add(3 * time.Hour),
			ChannelID:   10,
			AuthorID:    "456",
			Kind:        storage.KindObserve,
			UserMessage: "Bob says: lovely weather",
		},
		{
			Timestamp:   testDate.Add(4 * time.Hour),
			ChannelID:   20,
			AuthorID:    "123",
			Kind:        storage.KindRegenerate,
			UserMessage: "!regenerate",
		},
		{
			Timestamp:   testDate.Add(5 * time.Hour),
			ChannelID:   20,
			AuthorID:    "123",
			Kind:        storage.KindCommand,
			UserMessage: "!amnesia",
		},
		// Backend failure: counted as handled, not as a reply.
		{
			Timestamp:   testDate.Add(6 * time.Hour),
			ChannelID:   20,
			AuthorID:    "789",
			Kind:        storage.KindReply,
			UserMessage: "hello?",
		},
		// Next day.
		{
			Timestamp:   testDate.AddDate(0, 0, 1),
			ChannelID:   10,
			AuthorID:    "999",
			Kind:        storage.KindReply,
			UserMessage: "tomorrow",
		},
	}

	stats := AnalyzeDailyLogs(events, testDate)

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.TotalMessages != 5 {
		t.Errorf("Expected 5 messages, got %d", stats.TotalMessages)
	}
	if stats.Replies != 1 {
		t.Errorf("Expected 1 reply, got %d", stats.Replies)
	}
	if stats.Observed != 1 {
		t.Errorf("Expected 1 observed, got %d", stats.Observed)
	}
	if stats.Commands != 2 || stats.Regenerations != 1 {
		t.Errorf("Expected 2 commands with 1 regeneration, got %d/%d", stats.Commands, stats.Regenerations)
	}
	if stats.UniqueAuthors != 3 {
		t.Errorf("Expected 3 unique authors, got %d", stats.UniqueAuthors)
	}
	if stats.ModelUsage["llama3.1:latest"] != 1 {
		t.Errorf("Expected model usage to be recorded, got %v", stats.ModelUsage)
	}

	ch10, ok := stats.ChannelStats[10]
	if !ok {
		t.Fatal("Expected stats for channel 10")
	}
	if ch10.Messages != 2 || ch10.Replies != 1 || ch10.Observed != 1 {
		t.Errorf("Unexpected channel 10 stats: %+v", ch10)
	}
	if ch20 := stats.ChannelStats[20]; ch20.Messages != 3 || ch20.Replies != 0 {
		t.Errorf("Unexpected channel 20 stats: %+v", ch20)
	}
}

func TestAnalyzeDailyLogsEmptyData(t *testing.T) {
	testDate := time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	stats := AnalyzeDailyLogs(nil, testDate)

	if stats.Date != "2024-01-15" {
		t.Errorf("Expected date '2024-01-15', got '%s'", stats.Date)
	}
	if stats.TotalMessages != 0 || stats.UniqueAuthors != 0 || len(stats.ChannelStats) != 0 {
		t.Errorf("Expected empty stats, got %+v", stats)
	}
}

func TestGenerateReportSummary(t *testing.T) {
	stats := &DailyStats{
		Date:          "2024-01-15",
		TotalMessages: 5,
		Replies:       3,
		Observed:      1,
		Commands:      1,
		UniqueAuthors: 2,
		ModelUsage:    map[string]int{"gemma3:4b": 3},
		ChannelStats: map[int64]ChannelStats{
			10: {ChannelID: 10, Messages: 3, Replies: 2},
			-20: {ChannelID: -20, Messages: 2, Replies: 1, Observed: 1},
		},
	}

	summary := stats.GenerateReportSummary()

	for _, expected := range []string{
		"2024-01-15",
		"Messages handled: 5",
		"Replies sent: 3",
		"Unique authors: 2",
		"gemma3:4b: 3",
		"Channel 10: 3 messages",
		"Channel -20: 2 messages",
	} {
		if !strings.Contains(summary, expected) {
			t.Errorf("Expected summary to contain '%s'. Summary: %s", expected, summary)
		}
	}
	if strings.Index(summary, "Channel -20") > strings.Index(summary, "Channel 10") {
		t.Errorf("Channels should be listed in id order. Summary: %s", summary)
	}
}

func TestToJSON(t *testing.T) {
	stats := &DailyStats{
		Date:          "2024-01-15",
		TotalMessages: 1,
		ModelUsage:    map[string]int{"llama3.1:latest": 1},
		ChannelStats:  map[int64]ChannelStats{10: {ChannelID: 10, Messages: 1}},
	}

	jsonStr, err := stats.ToJSON()
	if err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
	if !strings.Contains(jsonStr, "2024-01-15") {
		t.Errorf("Expected JSON to contain date, got: %s", jsonStr)
	}
	if !strings.Contains(jsonStr, "llama3.1:latest") {
		t.Errorf("Expected JSON to contain model name, got: %s", jsonStr)
	}
}
