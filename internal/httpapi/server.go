// Package httpapi is the JSON-over-HTTP surface of the chatbot, the trigger
// endpoints and the websocket push channel.
package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/chatbot"
	"mindpulse.local/wellbot/internal/emitter"
	"mindpulse.local/wellbot/internal/metrics"
	"mindpulse.local/wellbot/internal/notify"
	"mindpulse.local/wellbot/internal/scheduler"
)

const maxRequestBytes int64 = 1 << 20

// Deps are the services behind the routes. Hub and Metrics are optional;
// their routes are not registered when nil.
type Deps struct {
	Chatbot   *chatbot.Service
	Emitter   *emitter.Emitter
	Scheduler *scheduler.Scheduler
	Hub       *notify.Hub
	Metrics   *metrics.Metrics
}

type server struct {
	logger    zerolog.Logger
	chatbot   *chatbot.Service
	emitter   *emitter.Emitter
	scheduler *scheduler.Scheduler
	hub       *notify.Hub
}

func NewServer(logger zerolog.Logger, addr string, deps Deps) *http.Server {
	if deps.Chatbot == nil || deps.Emitter == nil || deps.Scheduler == nil {
		panic("httpapi: chatbot, emitter and scheduler are required")
	}
	h := &server{
		logger:    logger.With().Str("component", "httpapi").Logger(),
		chatbot:   deps.Chatbot,
		emitter:   deps.Emitter,
		scheduler: deps.Scheduler,
		hub:       deps.Hub,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", h.handleHealth)

	mux.HandleFunc("/v1/checkins", h.handleStartCheckin)
	mux.HandleFunc("/v1/burnout-assessments", h.handleStartBurnout)
	mux.HandleFunc("/v1/reminders", h.handleCreateReminder)
	mux.HandleFunc("/v1/conversations/{id}", h.handleGetConversation)
	mux.HandleFunc("/v1/conversations/{id}/messages", h.handleProcessMessage)
	mux.HandleFunc("/v1/conversations/{id}/reminder-response", h.handleReminderResponse)

	mux.HandleFunc("/v1/users/{id}/checkins", h.handleCheckinHistory)
	mux.HandleFunc("/v1/users/{id}/burnout-assessments", h.handleBurnoutHistory)
	mux.HandleFunc("/v1/users/{id}/reminders", h.handleReminderHistory)

	mux.HandleFunc("/v1/triggers/checkin", h.handleManualCheckin)
	mux.HandleFunc("/v1/triggers/reminder", h.handleManualReminder)
	mux.HandleFunc("/v1/triggers/burnout", h.handleManualBurnout)
	mux.HandleFunc("/v1/bulk/{trigger}", h.handleBulk)
	mux.HandleFunc("/v1/routines/{group}", h.handleRoutine)
	mux.HandleFunc("/v1/status", h.handleStatus)

	mux.HandleFunc("/v1/checkin-types", h.handleCheckinTypes)
	mux.HandleFunc("/v1/reminder-types", h.handleReminderTypes)

	if h.hub != nil {
		mux.HandleFunc("/v1/ws", h.handleWebSocket)
	}
	if deps.Metrics != nil {
		mux.Handle("/metrics", deps.Metrics.Handler())
	}

	return &http.Server{
		Addr:              addr,
		Handler:           h.logRequests(mux),
		ReadHeaderTimeout: 5 * time.Second,
	}
}

func (s *server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"ok": true})
}

func (s *server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID := strings.TrimSpace(r.URL.Query().Get("user_id"))
	if userID == "" {
		http.Error(w, "user_id is required", http.StatusBadRequest)
		return
	}
	s.hub.Serve(w, r, userID)
}

// logRequests skips websocket upgrades since they are long-lived.
func (s *server) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/v1/ws" {
			next.ServeHTTP(w, r)
			return
		}
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		started := time.Now()
		next.ServeHTTP(rec, r)
		s.logger.Debug().
			Str("method", r.Method).
			Str("path", r.URL.Path).
			Int("status", rec.status).
			Dur("elapsed", time.Since(started)).
			Msg("request")
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

// writeError maps service errors onto status codes. Anything unrecognised is
// logged and hidden behind a 500.
func (s *server) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, chatbot.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, chatbot.ErrInvalidState):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, scheduler.ErrUnknownTrigger), errors.Is(err, scheduler.ErrUnknownGroup):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		s.logger.Error().Err(err).Msg("request failed")
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func decodeJSON(r *http.Request, dst any) error {
	defer r.Body.Close()
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid json: %w", err)
	}
	if dec.More() {
		return errors.New("invalid json: trailing content")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// CheckWebSocketOrigin accepts requests without an Origin header and
// same-host origins.
func CheckWebSocketOrigin(r *http.Request) bool {
	origin := strings.TrimSpace(r.Header.Get("Origin"))
	if origin == "" {
		return true
	}
	parsedOrigin, err := url.Parse(origin)
	if err != nil || strings.TrimSpace(parsedOrigin.Host) == "" {
		return false
	}
	return strings.EqualFold(parsedOrigin.Host, r.Host)
}
