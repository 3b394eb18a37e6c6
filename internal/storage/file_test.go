package storage

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestFileRecorder_AppendAndLoad(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "logs", "log.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init recorder: %v", err)
	}

	ev1 := Event{Timestamp: time.Unix(1, 0).UTC(), ChannelID: 1, Kind: KindReply, UserMessage: "hi", AssistantResponse: "hello"}
	ev2 := Event{Timestamp: time.Unix(2, 0).UTC(), ChannelID: 2, Kind: KindObserve, UserMessage: "foo"}
	if err := rec.AppendInteraction(ev1); err != nil {
		t.Fatalf("append1: %v", err)
	}
	if err := rec.AppendInteraction(ev2); err != nil {
		t.Fatalf("append2: %v", err)
	}

	events, err := rec.LoadInteractions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("want 2, got %d", len(events))
	}
	if events[0].ChannelID != 1 || events[1].ChannelID != 2 {
		t.Fatalf("order mismatch: %+v", events)
	}
	if events[1].Kind != KindObserve {
		t.Fatalf("kind lost: %+v", events[1])
	}

	st, err := os.Stat(p)
	if err != nil || st.Size() == 0 {
		t.Fatalf("file not written")
	}
}

func TestFileRecorder_SkipsBrokenLines(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log.jsonl")
	if err := os.WriteFile(p, []byte("not json\n\n{\"channel_id\":5,\"kind\":\"reply\"}\n"), 0o644); err != nil {
		t.Fatalf("seed: %v", err)
	}
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	events, err := rec.LoadInteractions()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 1 || events[0].ChannelID != 5 {
		t.Fatalf("unexpected events: %+v", events)
	}
}

func TestFileRecorder_Close(t *testing.T) {
	p := filepath.Join(t.TempDir(), "log.jsonl")
	rec, err := NewFileRecorder(p)
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	if err := rec.AppendInteraction(Event{ChannelID: 1, Kind: KindReply}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := rec.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if err := rec.AppendInteraction(Event{ChannelID: 2}); err == nil {
		t.Fatalf("append after close should fail")
	}
	events, err := rec.LoadInteractions()
	if err != nil || len(events) != 1 {
		t.Fatalf("load after close: %v %+v", err, events)
	}
}

func TestFileRecorder_LoadSince(t *testing.T) {
	rec, err := NewFileRecorder(filepath.Join(t.TempDir(), "log.jsonl"))
	if err != nil {
		t.Fatalf("init: %v", err)
	}
	defer rec.Close()
	for i := int64(1); i <= 3; i++ {
		if err := rec.AppendInteraction(Event{Timestamp: time.Unix(i*100, 0).UTC(), ChannelID: i}); err != nil {
			t.Fatalf("append: %v", err)
		}
	}
	events, err := rec.LoadSince(time.Unix(200, 0).UTC())
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if len(events) != 2 || events[0].ChannelID != 2 {
		t.Fatalf("unexpected events: %+v", events)
	}
}
