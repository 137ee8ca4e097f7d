package httpapi

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"mindpulse.local/wellbot/internal/chatbot"
	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/store"
)

type startCheckinBody struct {
	UserID      string `json:"user_id"`
	CheckinType string `json:"checkin_type"`
}

type userBody struct {
	UserID string `json:"user_id"`
}

type createReminderBody struct {
	UserID       string `json:"user_id"`
	ReminderType string `json:"reminder_type"`
}

type messageBody struct {
	UserID  string `json:"user_id"`
	Message string `json:"message"`
}

type reminderResponseBody struct {
	UserID   string `json:"user_id"`
	Response string `json:"response"`
}

// messageResponse carries RecordError when the flow completed but its record
// could not be stored.
type messageResponse struct {
	chatbot.MessageResult
	RecordError string `json:"record_error,omitempty"`
}

type conversationView struct {
	ID          string                    `json:"id"`
	UserID      string                    `json:"user_id"`
	Type        dialogue.ConversationType `json:"conversation_type"`
	Messages    []store.Message           `json:"messages"`
	IsCompleted bool                      `json:"is_completed"`
	Metadata    map[string]string         `json:"metadata,omitempty"`
	CreatedAt   time.Time                 `json:"created_at"`
	UpdatedAt   time.Time                 `json:"updated_at"`
}

func (s *server) handleStartCheckin(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body startCheckinBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requireUserID(body.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	kind, err := dialogue.ParseCheckinKind(body.CheckinType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.chatbot.StartCheckin(r.Context(), userID, kind)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *server) handleStartBurnout(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body userBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requireUserID(body.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.chatbot.StartBurnoutAssessment(r.Context(), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *server) handleCreateReminder(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body createReminderBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requireUserID(body.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	reminderType, err := dialogue.ParseReminderType(body.ReminderType)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.chatbot.CreateReminder(r.Context(), userID, reminderType)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

func (s *server) handleProcessMessage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body messageBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requireUserID(body.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.chatbot.ProcessMessage(r.Context(), r.PathValue("id"), userID, body.Message)
	s.writeMessageResult(w, result, err)
}

func (s *server) handleReminderResponse(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	var body reminderResponseBody
	if err := decodeJSON(r, &body); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	userID, err := requireUserID(body.UserID)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := s.chatbot.RespondToReminder(r.Context(), r.PathValue("id"), userID, body.Response)
	s.writeMessageResult(w, result, err)
}

func (s *server) writeMessageResult(w http.ResponseWriter, result chatbot.MessageResult, err error) {
	if err != nil && !errors.Is(err, chatbot.ErrRecordNotSaved) {
		s.writeError(w, err)
		return
	}
	resp := messageResponse{MessageResult: result}
	if err != nil {
		s.logger.Warn().Str("conversation_id", result.ConversationID).Err(err).Msg("completed without record")
		resp.RecordError = err.Error()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *server) handleGetConversation(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	userID, err := requireUserID(r.URL.Query().Get("user_id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	conv, err := s.chatbot.GetConversation(r.Context(), r.PathValue("id"), userID)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, conversationView{
		ID:          conv.ID,
		UserID:      conv.UserID,
		Type:        conv.Type,
		Messages:    conv.Messages,
		IsCompleted: conv.IsCompleted,
		Metadata:    conv.Metadata,
		CreatedAt:   conv.CreatedAt,
		UpdatedAt:   conv.UpdatedAt,
	})
}

func (s *server) handleCheckinHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := s.chatbot.CheckinHistory(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkins": records})
}

func (s *server) handleBurnoutHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	records, err := s.chatbot.BurnoutHistory(r.Context(), r.PathValue("id"), limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"burnout_assessments": records})
}

func (s *server) handleReminderHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	var completed *bool
	if raw := strings.TrimSpace(r.URL.Query().Get("completed")); raw != "" {
		v, err := strconv.ParseBool(raw)
		if err != nil {
			http.Error(w, fmt.Sprintf("invalid completed %q", raw), http.StatusBadRequest)
			return
		}
		completed = &v
	}
	records, err := s.chatbot.Reminders(r.Context(), r.PathValue("id"), completed, limit)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminders": records})
}

func requireUserID(raw string) (string, error) {
	userID := strings.TrimSpace(raw)
	if userID == "" {
		return "", errors.New("user_id is required")
	}
	return userID, nil
}

func parseLimit(r *http.Request) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get("limit"))
	if raw == "" {
		return 0, nil
	}
	limit, err := strconv.Atoi(raw)
	if err != nil || limit < 0 {
		return 0, fmt.Errorf("invalid limit %q", raw)
	}
	return limit, nil
}
