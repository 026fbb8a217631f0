package broker

import (
	"context"
	"encoding/json"
	"testing"
)

func TestNewEnvelope(t *testing.T) {
	env, err := NewEnvelope(ExchangeSubjectCreated, map[string]any{"id": 1, "name": "math"})
	if err != nil {
		t.Fatalf("NewEnvelope: %v", err)
	}
	if env.ID == "" || env.PublishedAt.IsZero() {
		t.Fatalf("envelope missing id or timestamp: %+v", env)
	}
	var decoded map[string]any
	if err := json.Unmarshal(env.Data, &decoded); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if decoded["name"] != "math" {
		t.Fatalf("data = %v", decoded)
	}

	if _, err := NewEnvelope(Exchange("NoSuchExchange"), nil); err == nil {
		t.Fatalf("unknown exchange accepted")
	}
}

func TestMemoryPublisher(t *testing.T) {
	pub := NewMemoryPublisher()
	ctx := context.Background()

	if err := pub.Publish(ctx, ExchangeCourseCreated, map[string]int{"id": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if err := pub.Publish(ctx, ExchangeCourseDeleted, map[string]int{"id": 1}); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	if got := len(pub.Published()); got != 2 {
		t.Fatalf("Published = %d, want 2", got)
	}
	if got := len(pub.ByExchange(ExchangeCourseCreated)); got != 1 {
		t.Fatalf("ByExchange = %d, want 1", got)
	}

	pub.Reset()
	if got := len(pub.Published()); got != 0 {
		t.Fatalf("Reset left %d envelopes", got)
	}
}

func TestStreamKeyPerExchange(t *testing.T) {
	if got := streamKey(ExchangeCourseCreated); got != "classify:exchange:CourseCreated" {
		t.Fatalf("streamKey = %q", got)
	}
}
