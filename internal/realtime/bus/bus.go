package bus

import (
	"context"
	"encoding/json"
	"time"
)

const EventLessonOrderChanged = "lesson_order_changed"

// Message is the envelope published on the channel. Data holds the
// event-specific payload.
type Message struct {
	Event string          `json:"event"`
	Data  json.RawMessage `json:"data"`
	At    time.Time       `json:"at"`
}

func NewMessage(event string, data any) (Message, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return Message{}, err
	}
	return Message{Event: event, Data: raw, At: time.Now().UTC()}, nil
}

type Bus interface {
	Publish(ctx context.Context, msg Message) error
	StartForwarder(ctx context.Context, onMsg func(m Message)) error
	Close() error
}
