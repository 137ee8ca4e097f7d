package httpapi

import (
	"net/http"

	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/emitter"
	"mindpulse.local/wellbot/internal/scheduler"
)

type catalogueEntry struct {
	Type        string `json:"type"`
	Title       string `json:"title,omitempty"`
	Message     string `json:"message,omitempty"`
	Description string `json:"description"`
}

type statusResponse struct {
	Scheduler scheduler.Status `json:"scheduler"`
	Emitter   emitter.Stats    `json:"emitter"`
}

func (s *server) handleManualCheckin(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, s.emitter.TriggerManualCheckin(r.Context(), userID, kind))
}

func (s *server) handleManualReminder(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, s.emitter.TriggerManualReminder(r.Context(), userID, reminderType))
}

func (s *server) handleManualBurnout(w http.ResponseWriter, r *http.Request) {
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
	writeJSON(w, http.StatusOK, s.emitter.TriggerBurnoutAssessment(r.Context(), userID))
}

// handleBulk runs one named trigger over all active users.
func (s *server) handleBulk(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summary, err := s.scheduler.RunTrigger(r.Context(), r.PathValue("trigger"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}

func (s *server) handleRoutine(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	summaries, err := s.scheduler.RunGroup(r.Context(), r.PathValue("group"))
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"group": r.PathValue("group"),
		"runs":  summaries,
	})
}

func (s *server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	stats, err := s.emitter.Stats(r.Context())
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, statusResponse{
		Scheduler: s.scheduler.Status(),
		Emitter:   stats,
	})
}

func (s *server) handleCheckinTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	entries := make([]catalogueEntry, 0, len(dialogue.CheckinKinds))
	for _, kind := range dialogue.CheckinKinds {
		entries = append(entries, catalogueEntry{
			Type:        string(kind),
			Description: dialogue.CheckinDescriptions[kind],
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"checkin_types": entries})
}

func (s *server) handleReminderTypes(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	script := s.chatbot.Engine().Script()
	entries := make([]catalogueEntry, 0, len(dialogue.ReminderTypes))
	for _, t := range dialogue.ReminderTypes {
		text := script.Reminders[t]
		entries = append(entries, catalogueEntry{
			Type:        string(t),
			Title:       text.Title,
			Message:     text.Message,
			Description: text.Description,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"reminder_types": entries})
}
