package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindpulse.local/wellbot/internal/metrics"
)

type flakySubscriber struct {
	failures int32
	calls    atomic.Int32
}

func (s *flakySubscriber) Name() string { return "flaky" }

func (s *flakySubscriber) Handle(context.Context, Event) error {
	if s.calls.Add(1) <= s.failures {
		return errors.New("temporary")
	}
	return nil
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
}

func (p *recordingPublisher) Publish(_ context.Context, event Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
}

func (p *recordingPublisher) Events() []Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]Event(nil), p.events...)
}

func mustEvent(t *testing.T, eventType EventType, userID string, payload any) Event {
	t.Helper()
	event, err := NewEvent(eventType, userID, payload)
	require.NoError(t, err)
	return event
}

func TestDispatcherRetriesUntilSuccess(t *testing.T) {
	sub := &flakySubscriber{failures: 2}
	d := NewDispatcher(zerolog.Nop(), []Subscriber{sub}, WithRetry(3, time.Millisecond), WithMetrics(metrics.New()))

	d.Publish(context.Background(), mustEvent(t, EventChatMessage, "u-1", nil))
	d.Wait()
	assert.Equal(t, int32(3), sub.calls.Load())
}

func TestDispatcherGivesUpAfterRetryCount(t *testing.T) {
	sub := &flakySubscriber{failures: 100}
	d := NewDispatcher(zerolog.Nop(), []Subscriber{sub}, WithRetry(2, time.Millisecond))

	d.Publish(context.Background(), mustEvent(t, EventChatMessage, "u-1", nil))
	d.Wait()
	assert.Equal(t, int32(2), sub.calls.Load())
}

func TestDispatcherSurvivesCancelledCaller(t *testing.T) {
	sub := &flakySubscriber{failures: 1}
	d := NewDispatcher(zerolog.Nop(), []Subscriber{sub}, WithRetry(3, time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, mustEvent(t, EventChatMessage, "u-1", nil))
	d.Wait()
	assert.Equal(t, int32(2), sub.calls.Load())
}

func TestWebhookSubscriber(t *testing.T) {
	var received Event
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		assert.NoError(t, json.Unmarshal(body, &received))
		assert.Equal(t, string(EventReminderCreated), r.Header.Get("X-Wellbot-Event"))
		w.WriteHeader(http.StatusNoContent)
	}))
	defer srv.Close()

	sub := NewWebhookSubscriber("", srv.URL, WithHTTPClient(srv.Client()))
	assert.Equal(t, "webhook", sub.Name())

	event := mustEvent(t, EventReminderCreated, "u-7", ReminderPayload{ReminderID: "r-1", Title: "Hydration"})
	require.NoError(t, sub.Handle(context.Background(), event))
	assert.Equal(t, event.ID, received.ID)

	var payload ReminderPayload
	require.NoError(t, received.DecodePayload(&payload))
	assert.Equal(t, "r-1", payload.ReminderID)
}

func TestWebhookSubscriberErrorsAndFilter(t *testing.T) {
	var hits atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	sub := NewWebhookSubscriber("ops", srv.URL, WithEventFilter(func(et EventType) bool {
		return et != EventTyping
	}))
	require.NoError(t, sub.Handle(context.Background(), mustEvent(t, EventTyping, "u-1", nil)))
	assert.Equal(t, int32(0), hits.Load())

	err := sub.Handle(context.Background(), mustEvent(t, EventCheckinStarted, "u-1", nil))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "status=500")
	assert.Contains(t, err.Error(), "nope")
}

func dialHub(t *testing.T, hub *Hub, userID string) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hub.Serve(w, r, userID)
	}))
	t.Cleanup(srv.Close)

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool { return hub.Connections(userID) == 1 }, 2*time.Second, 10*time.Millisecond)
	return conn
}

func TestHubPushesEventsToUserSockets(t *testing.T) {
	hub := NewHub(zerolog.Nop(), metrics.New(), nil)
	conn := dialHub(t, hub, "u-1")

	event := mustEvent(t, EventCheckinStarted, "u-1", ConversationPayload{ConversationID: "c-1"})
	require.NoError(t, hub.Handle(context.Background(), event))
	require.NoError(t, hub.Handle(context.Background(), mustEvent(t, EventCheckinStarted, "someone-else", nil)))

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var got Event
	require.NoError(t, conn.ReadJSON(&got))
	assert.Equal(t, event.ID, got.ID)
	assert.Equal(t, EventCheckinStarted, got.Type)
}

func TestHubRepublishesClientFrames(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil, nil)
	pub := &recordingPublisher{}
	hub.Attach(pub)
	conn := dialHub(t, hub, "u-1")

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "typing", "conversation_id": "c-9", "target_user_id": "u-2"}))
	require.NoError(t, conn.WriteJSON(map[string]string{"type": "READ", "conversation_id": "c-9"}))
	require.Eventually(t, func() bool { return len(pub.Events()) == 2 }, 2*time.Second, 10*time.Millisecond)

	events := pub.Events()
	assert.Equal(t, EventTyping, events[0].Type)
	assert.Equal(t, "u-1", events[0].UserID, "frames cannot be addressed to another user")
	var presence PresencePayload
	require.NoError(t, events[0].DecodePayload(&presence))
	assert.Equal(t, "u-1", presence.FromUserID)
	assert.Equal(t, "c-9", presence.ConversationID)

	assert.Equal(t, EventRead, events[1].Type)
	assert.Equal(t, "u-1", events[1].UserID)

	require.NoError(t, conn.WriteJSON(map[string]string{"type": "dance"}))
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var frame errorFrame
	require.NoError(t, conn.ReadJSON(&frame))
	assert.Equal(t, "error", frame.Type)
	assert.Contains(t, frame.Error, "dance")
}

func TestHubCloseDropsSockets(t *testing.T) {
	hub := NewHub(zerolog.Nop(), nil, nil)
	dialHub(t, hub, "u-1")
	hub.Close()
	assert.Equal(t, 0, hub.Connections("u-1"))
}
