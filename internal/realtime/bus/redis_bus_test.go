package bus

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"

	"github.com/yungbote/coursefront-backend/internal/platform/logger"
)

func TestNewRedisBusDisabledWithoutAddr(t *testing.T) {
	b, err := NewRedisBus(logger.Nop(), Config{})
	if err != nil || b != nil {
		t.Fatalf("expected disabled bus, got %v err=%v", b, err)
	}
}

func TestRedisBusPublishAndForward(t *testing.T) {
	mr := miniredis.RunT(t)
	b, err := NewRedisBus(logger.Nop(), Config{Addr: mr.Addr(), Channel: "test_events"})
	if err != nil {
		t.Fatalf("NewRedisBus: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	got := make(chan Message, 1)
	if err := b.StartForwarder(ctx, func(m Message) { got <- m }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}

	msg, err := NewMessage(EventLessonOrderChanged, map[string]int{"from": 2, "to": 5})
	if err != nil {
		t.Fatalf("NewMessage: %v", err)
	}
	if err := b.Publish(ctx, msg); err != nil {
		t.Fatalf("Publish: %v", err)
	}

	select {
	case m := <-got:
		if m.Event != EventLessonOrderChanged {
			t.Fatalf("event=%q", m.Event)
		}
		var data map[string]int
		if err := json.Unmarshal(m.Data, &data); err != nil || data["to"] != 5 {
			t.Fatalf("data=%s err=%v", m.Data, err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for forwarded message")
	}
}
