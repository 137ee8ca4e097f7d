// Package notify fans domain events out to push channels: connected
// websocket clients, outbound webhooks and the log.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"mindpulse.local/wellbot/internal/ids"
)

type EventType string

const (
	EventCheckinStarted      EventType = "checkin.started"
	EventBurnoutStarted      EventType = "burnout.started"
	EventReminderCreated     EventType = "reminder.created"
	EventMentalHealthCheckin EventType = "mental_health.checkin"
	EventChatMessage         EventType = "chat.message"
	EventTyping              EventType = "chat.typing"
	EventRead                EventType = "chat.read"
)

type Event struct {
	ID         string          `json:"event_id"`
	Type       EventType       `json:"event_type"`
	UserID     string          `json:"user_id"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

func NewEvent(eventType EventType, userID string, payload any) (Event, error) {
	event := Event{
		ID:         ids.New(),
		Type:       eventType,
		UserID:     userID,
		OccurredAt: time.Now().UTC(),
	}
	if payload != nil {
		encoded, err := json.Marshal(payload)
		if err != nil {
			return Event{}, fmt.Errorf("marshal %s payload: %w", eventType, err)
		}
		event.Payload = encoded
	}
	return event, nil
}

func (e Event) DecodePayload(v any) error {
	if len(e.Payload) == 0 {
		return fmt.Errorf("event %s has no payload", e.ID)
	}
	return json.Unmarshal(e.Payload, v)
}

// Publisher accepts events for asynchronous delivery. Publish never blocks on
// subscribers and never fails the caller.
type Publisher interface {
	Publish(ctx context.Context, event Event)
}

type Subscriber interface {
	Name() string
	Handle(ctx context.Context, event Event) error
}

// Discard drops every event.
type Discard struct{}

func (Discard) Publish(context.Context, Event) {}

// Payloads carried by the events above.

type ConversationPayload struct {
	ConversationID   string           `json:"conversation_id"`
	ConversationType string           `json:"conversation_type"`
	Messages         []MessagePayload `json:"messages,omitempty"`
	IsCompleted      bool             `json:"is_completed"`
}

type MessagePayload struct {
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

type ReminderPayload struct {
	ReminderID     string `json:"reminder_id"`
	ReminderType   string `json:"reminder_type"`
	ConversationID string `json:"conversation_id"`
	Title          string `json:"title"`
	Message        string `json:"message"`
}

type PresencePayload struct {
	ConversationID string `json:"conversation_id,omitempty"`
	FromUserID     string `json:"from_user_id"`
}
