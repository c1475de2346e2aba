package journal

import (
	"context"
	"path/filepath"
	"testing"
)

func openTestJournal(t *testing.T) *Journal {
	t.Helper()

	j, err := Open(Config{
		Path:        filepath.Join(t.TempDir(), "journal.db"),
		WALMode:     false,
		BusyTimeout: 1,
	})
	if err != nil {
		t.Fatalf("Open() error = %v", err)
	}
	t.Cleanup(func() {
		if err := j.Close(); err != nil {
			t.Errorf("Close() error = %v", err)
		}
	})
	return j
}

func TestRecordAndQueryBySession(t *testing.T) {
	j := openTestJournal(t)
	ctx := context.Background()

	entries := []Entry{
		{SessionID: "abc123", Workflow: "hellowf", Direction: "inbound",
			EventType: "wf_api_start_event", Payload: []byte(`{"_type":"wf_api_start_event"}`)},
		{SessionID: "abc123", Workflow: "hellowf", Direction: "outbound",
			EventType: "wf_api_say_request", CorrelationID: "id-1", Payload: []byte(`{}`)},
		{SessionID: "other", Workflow: "hellowf", Direction: "inbound",
			EventType: "wf_api_stop_event", Payload: []byte(`{}`)},
	}
	for _, e := range entries {
		if err := j.Record(ctx, e); err != nil {
			t.Fatalf("Record() error = %v", err)
		}
	}

	got, err := j.BySession(ctx, "abc123", 0)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("BySession() returned %d entries, want 2", len(got))
	}
	if got[0].EventType != "wf_api_start_event" || got[1].EventType != "wf_api_say_request" {
		t.Errorf("entries out of order: %s, %s", got[0].EventType, got[1].EventType)
	}
	if got[1].CorrelationID != "id-1" {
		t.Errorf("CorrelationID = %q, want id-1", got[1].CorrelationID)
	}
	if got[0].CreatedAt.IsZero() {
		t.Error("CreatedAt not populated")
	}
}

func TestFrameTapNeverFailsDispatch(t *testing.T) {
	j := openTestJournal(t)

	// Tap interface path: must not panic or surface errors
	j.Frame("abc123", "hellowf", "inbound", "wf_api_start_event", "", []byte(`{}`))

	got, err := j.BySession(context.Background(), "abc123", 0)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("BySession() returned %d entries, want 1", len(got))
	}
	if got[0].Direction != "inbound" {
		t.Errorf("Direction = %q, want inbound", got[0].Direction)
	}
}

func TestBySessionEmpty(t *testing.T) {
	j := openTestJournal(t)

	got, err := j.BySession(context.Background(), "nope", 0)
	if err != nil {
		t.Fatalf("BySession() error = %v", err)
	}
	if len(got) != 0 {
		t.Errorf("BySession() returned %d entries, want 0", len(got))
	}
}
