package store

import (
	"context"
	"errors"
	"time"

	"mindpulse.local/wellbot/internal/dialogue"
)

var ErrNotFound = errors.New("not found")

type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

type Message struct {
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	Timestamp time.Time `json:"timestamp"`
}

// Conversation is one scripted dialogue session. Messages are append-only
// and IsCompleted never flips back to false.
type Conversation struct {
	ID          string
	UserID      string
	Type        dialogue.ConversationType
	Messages    []Message
	Context     dialogue.Context
	IsCompleted bool
	Metadata    map[string]string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

const MetadataReminderID = "reminder_id"

type User struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Email     string    `json:"email,omitempty"`
	Role      string    `json:"role,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CheckinRecord struct {
	ID                  string               `json:"id"`
	UserID              string               `json:"user_id"`
	Kind                dialogue.CheckinKind `json:"checkin_type"`
	MoodScore           int                  `json:"mood_score"`
	EnergyLevel         int                  `json:"energy_level"`
	StressLevel         int                  `json:"stress_level"`
	ProductivityFeeling int                  `json:"productivity_feeling"`
	Note                *string              `json:"note"`
	Tags                []string             `json:"tags,omitempty"`
	Summary             string               `json:"summary"`
	CreatedAt           time.Time            `json:"created_at"`
}

type BurnoutAssessment struct {
	ID              string             `json:"id"`
	UserID          string             `json:"user_id"`
	Scores          map[int]int        `json:"scores"`
	TotalScore      int                `json:"total_score"`
	AverageScore    float64            `json:"average_score"`
	RiskLevel       dialogue.RiskLevel `json:"risk_level"`
	Subscales       map[string]int     `json:"subscales"`
	Recommendations []string           `json:"recommendations"`
	CreatedAt       time.Time          `json:"created_at"`
}

type Reminder struct {
	ID          string                `json:"id"`
	UserID      string                `json:"user_id"`
	Title       string                `json:"title"`
	Type        dialogue.ReminderType `json:"reminder_type"`
	Content     string                `json:"content"`
	RemindAt    time.Time             `json:"remind_at"`
	IsAutomated bool                  `json:"is_automated"`
	IsCompleted bool                  `json:"is_completed"`
	CompletedAt *time.Time            `json:"completed_at,omitempty"`
	CreatedAt   time.Time             `json:"created_at"`
	UpdatedAt   time.Time             `json:"updated_at"`
}

// RecordFilter selects derived records for one user, newest first. Zero
// Since/Until are unbounded and Limit <= 0 means no limit.
type RecordFilter struct {
	UserID string
	Since  time.Time
	Until  time.Time
	Limit  int
}

type ReminderFilter struct {
	UserID    string
	Type      dialogue.ReminderType
	Completed *bool
	Limit     int
}

type UserDirectory interface {
	FindActiveUsers(ctx context.Context) ([]User, error)
	FindUser(ctx context.Context, userID string) (User, error)
	CountActiveUsers(ctx context.Context) (int, error)
	CreateUser(ctx context.Context, user User) (User, error)
}

type ConversationStore interface {
	CreateConversation(ctx context.Context, conv Conversation) (Conversation, error)
	// GetConversation is scoped by owner: a conversation that exists under
	// another user is reported as ErrNotFound.
	GetConversation(ctx context.Context, conversationID, userID string) (Conversation, error)
	SaveConversation(ctx context.Context, conv Conversation) error
}

type CheckinStore interface {
	CreateCheckin(ctx context.Context, rec CheckinRecord) (CheckinRecord, error)
	ListCheckins(ctx context.Context, filter RecordFilter) ([]CheckinRecord, error)
}

type BurnoutStore interface {
	CreateBurnoutAssessment(ctx context.Context, rec BurnoutAssessment) (BurnoutAssessment, error)
	ListBurnoutAssessments(ctx context.Context, filter RecordFilter) ([]BurnoutAssessment, error)
}

type ReminderStore interface {
	CreateReminder(ctx context.Context, rem Reminder) (Reminder, error)
	GetReminder(ctx context.Context, reminderID, userID string) (Reminder, error)
	SaveReminder(ctx context.Context, rem Reminder) error
	ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error)
}

// Store is the full persistence surface the service wires together.
type Store interface {
	UserDirectory
	ConversationStore
	CheckinStore
	BurnoutStore
	ReminderStore
	Close() error
}

func cloneConversation(c Conversation) Conversation {
	out := c
	out.Messages = append([]Message(nil), c.Messages...)
	if c.Metadata != nil {
		out.Metadata = make(map[string]string, len(c.Metadata))
		for k, v := range c.Metadata {
			out.Metadata[k] = v
		}
	}
	return out
}

func cloneCheckin(r CheckinRecord) CheckinRecord {
	out := r
	if r.Note != nil {
		note := *r.Note
		out.Note = &note
	}
	out.Tags = append([]string(nil), r.Tags...)
	return out
}

func cloneBurnout(r BurnoutAssessment) BurnoutAssessment {
	out := r
	out.Scores = make(map[int]int, len(r.Scores))
	for k, v := range r.Scores {
		out.Scores[k] = v
	}
	out.Subscales = make(map[string]int, len(r.Subscales))
	for k, v := range r.Subscales {
		out.Subscales[k] = v
	}
	out.Recommendations = append([]string(nil), r.Recommendations...)
	return out
}

func cloneReminder(r Reminder) Reminder {
	out := r
	if r.CompletedAt != nil {
		at := *r.CompletedAt
		out.CompletedAt = &at
	}
	return out
}

func (f RecordFilter) matches(userID string, at time.Time) bool {
	if f.UserID != "" && f.UserID != userID {
		return false
	}
	if !f.Since.IsZero() && at.Before(f.Since) {
		return false
	}
	if !f.Until.IsZero() && !at.Before(f.Until) {
		return false
	}
	return true
}

func (f ReminderFilter) matches(r Reminder) bool {
	if f.UserID != "" && f.UserID != r.UserID {
		return false
	}
	if f.Type != "" && f.Type != r.Type {
		return false
	}
	if f.Completed != nil && *f.Completed != r.IsCompleted {
		return false
	}
	return true
}
