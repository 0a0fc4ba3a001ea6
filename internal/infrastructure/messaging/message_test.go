package messaging

import (
	"testing"
	"time"
)

func TestCalculateBackoff(t *testing.T) {
	cfg := DefaultBackoffConfig()

	tests := []struct {
		retryCount int
		want       time.Duration
	}{
		{0, time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{5, 32 * time.Second},
		{6, time.Minute},
		{100, time.Minute},
	}
	for _, tt := range tests {
		if got := cfg.CalculateBackoff(tt.retryCount); got != tt.want {
			t.Errorf("CalculateBackoff(%d) = %v, want %v", tt.retryCount, got, tt.want)
		}
	}
}

func TestMessageRoundTrip(t *testing.T) {
	payload := MemoryUpdateMessage{
		ProjectID:     "p1",
		ChapterNumber: 4,
		Content:       "chapter text",
	}
	msg, err := NewMessage("m1", MsgTypeMemoryUpdate, "p1", payload)
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}

	msg.SetMetadata("trace_id", "abc")
	if got := msg.GetMetadata("trace_id"); got != "abc" {
		t.Errorf("metadata = %q", got)
	}
	if got := msg.GetMetadata("missing"); got != "" {
		t.Errorf("missing metadata = %q", got)
	}

	var decoded MemoryUpdateMessage
	if err := msg.UnmarshalPayload(&decoded); err != nil {
		t.Fatalf("UnmarshalPayload: %v", err)
	}
	if decoded.ChapterNumber != 4 || decoded.ProjectID != "p1" {
		t.Errorf("decoded = %+v", decoded)
	}
}

func TestDLQStreamName(t *testing.T) {
	if got := StreamMemoryUpdate.DLQStream(); got != "dlq:stream:memory:update" {
		t.Errorf("DLQStream = %q", got)
	}
}
