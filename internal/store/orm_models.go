package store

import (
	"encoding/json"
	"fmt"
	"time"

	"mindpulse.local/wellbot/internal/dialogue"
)

type userRow struct {
	ID        string    `gorm:"primaryKey;size:64"`
	Name      string    `gorm:"size:191;not null"`
	Email     string    `gorm:"size:191;index"`
	Role      string    `gorm:"size:64"`
	IsActive  bool      `gorm:"index;not null"`
	CreatedAt time.Time `gorm:"not null"`
}

func (userRow) TableName() string { return "users" }

func (r userRow) toRecord() User {
	return User{ID: r.ID, Name: r.Name, Email: r.Email, Role: r.Role, IsActive: r.IsActive, CreatedAt: r.CreatedAt}
}

func userRowFromRecord(u User) userRow {
	return userRow{ID: u.ID, Name: u.Name, Email: u.Email, Role: u.Role, IsActive: u.IsActive, CreatedAt: u.CreatedAt}
}

type conversationRow struct {
	ID           string    `gorm:"primaryKey;size:64"`
	UserID       string    `gorm:"size:64;not null;index"`
	Type         string    `gorm:"size:64;not null"`
	MessagesJSON string    `gorm:"type:text;not null"`
	ContextJSON  string    `gorm:"type:text;not null"`
	MetadataJSON string    `gorm:"type:text"`
	IsCompleted  bool      `gorm:"not null"`
	CreatedAt    time.Time `gorm:"not null"`
	UpdatedAt    time.Time `gorm:"not null"`
}

func (conversationRow) TableName() string { return "conversations" }

func (r conversationRow) toRecord() (Conversation, error) {
	conv := Conversation{
		ID:          r.ID,
		UserID:      r.UserID,
		Type:        dialogue.ConversationType(r.Type),
		IsCompleted: r.IsCompleted,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
	if err := unmarshalJSON(r.MessagesJSON, &conv.Messages); err != nil {
		return Conversation{}, fmt.Errorf("decode messages of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.MetadataJSON, &conv.Metadata); err != nil {
		return Conversation{}, fmt.Errorf("decode metadata of %s: %w", r.ID, err)
	}
	ctx, err := dialogue.UnmarshalContext([]byte(r.ContextJSON))
	if err != nil {
		return Conversation{}, fmt.Errorf("conversation %s: %w", r.ID, err)
	}
	conv.Context = ctx
	return conv, nil
}

func conversationRowFromRecord(c Conversation) (conversationRow, error) {
	messages, err := marshalJSON(c.Messages)
	if err != nil {
		return conversationRow{}, fmt.Errorf("encode messages: %w", err)
	}
	metadata, err := marshalJSON(c.Metadata)
	if err != nil {
		return conversationRow{}, fmt.Errorf("encode metadata: %w", err)
	}
	ctx, err := dialogue.MarshalContext(c.Context)
	if err != nil {
		return conversationRow{}, err
	}
	return conversationRow{
		ID:           c.ID,
		UserID:       c.UserID,
		Type:         string(c.Type),
		MessagesJSON: messages,
		ContextJSON:  string(ctx),
		MetadataJSON: metadata,
		IsCompleted:  c.IsCompleted,
		CreatedAt:    c.CreatedAt,
		UpdatedAt:    c.UpdatedAt,
	}, nil
}

type checkinRow struct {
	ID                  string    `gorm:"primaryKey;size:64"`
	UserID              string    `gorm:"size:64;not null;index:idx_checkins_user_created,priority:1"`
	Kind                string    `gorm:"size:32;not null"`
	MoodScore           int       `gorm:"not null"`
	EnergyLevel         int       `gorm:"not null"`
	StressLevel         int       `gorm:"not null"`
	ProductivityFeeling int       `gorm:"not null"`
	Note                *string   `gorm:"type:text"`
	TagsJSON            string    `gorm:"type:text"`
	Summary             string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null;index:idx_checkins_user_created,priority:2"`
}

func (checkinRow) TableName() string { return "checkins" }

func (r checkinRow) toRecord() (CheckinRecord, error) {
	rec := CheckinRecord{
		ID:                  r.ID,
		UserID:              r.UserID,
		Kind:                dialogue.CheckinKind(r.Kind),
		MoodScore:           r.MoodScore,
		EnergyLevel:         r.EnergyLevel,
		StressLevel:         r.StressLevel,
		ProductivityFeeling: r.ProductivityFeeling,
		Note:                r.Note,
		Summary:             r.Summary,
		CreatedAt:           r.CreatedAt,
	}
	if err := unmarshalJSON(r.TagsJSON, &rec.Tags); err != nil {
		return CheckinRecord{}, fmt.Errorf("decode tags of %s: %w", r.ID, err)
	}
	return rec, nil
}

func checkinRowFromRecord(rec CheckinRecord) (checkinRow, error) {
	tags, err := marshalJSON(rec.Tags)
	if err != nil {
		return checkinRow{}, fmt.Errorf("encode tags: %w", err)
	}
	return checkinRow{
		ID:                  rec.ID,
		UserID:              rec.UserID,
		Kind:                string(rec.Kind),
		MoodScore:           rec.MoodScore,
		EnergyLevel:         rec.EnergyLevel,
		StressLevel:         rec.StressLevel,
		ProductivityFeeling: rec.ProductivityFeeling,
		Note:                rec.Note,
		TagsJSON:            tags,
		Summary:             rec.Summary,
		CreatedAt:           rec.CreatedAt,
	}, nil
}

type burnoutRow struct {
	ID                  string    `gorm:"primaryKey;size:64"`
	UserID              string    `gorm:"size:64;not null;index:idx_burnout_user_created,priority:1"`
	ScoresJSON          string    `gorm:"type:text;not null"`
	TotalScore          int       `gorm:"not null"`
	AverageScore        float64   `gorm:"not null"`
	RiskLevel           string    `gorm:"size:32;not null"`
	SubscalesJSON       string    `gorm:"type:text"`
	RecommendationsJSON string    `gorm:"type:text"`
	CreatedAt           time.Time `gorm:"not null;index:idx_burnout_user_created,priority:2"`
}

func (burnoutRow) TableName() string { return "burnout_assessments" }

func (r burnoutRow) toRecord() (BurnoutAssessment, error) {
	rec := BurnoutAssessment{
		ID:           r.ID,
		UserID:       r.UserID,
		TotalScore:   r.TotalScore,
		AverageScore: r.AverageScore,
		RiskLevel:    dialogue.RiskLevel(r.RiskLevel),
		CreatedAt:    r.CreatedAt,
	}
	if err := unmarshalJSON(r.ScoresJSON, &rec.Scores); err != nil {
		return BurnoutAssessment{}, fmt.Errorf("decode scores of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.SubscalesJSON, &rec.Subscales); err != nil {
		return BurnoutAssessment{}, fmt.Errorf("decode subscales of %s: %w", r.ID, err)
	}
	if err := unmarshalJSON(r.RecommendationsJSON, &rec.Recommendations); err != nil {
		return BurnoutAssessment{}, fmt.Errorf("decode recommendations of %s: %w", r.ID, err)
	}
	return rec, nil
}

func burnoutRowFromRecord(rec BurnoutAssessment) (burnoutRow, error) {
	scores, err := marshalJSON(rec.Scores)
	if err != nil {
		return burnoutRow{}, fmt.Errorf("encode scores: %w", err)
	}
	subscales, err := marshalJSON(rec.Subscales)
	if err != nil {
		return burnoutRow{}, fmt.Errorf("encode subscales: %w", err)
	}
	recs, err := marshalJSON(rec.Recommendations)
	if err != nil {
		return burnoutRow{}, fmt.Errorf("encode recommendations: %w", err)
	}
	return burnoutRow{
		ID:                  rec.ID,
		UserID:              rec.UserID,
		ScoresJSON:          scores,
		TotalScore:          rec.TotalScore,
		AverageScore:        rec.AverageScore,
		RiskLevel:           string(rec.RiskLevel),
		SubscalesJSON:       subscales,
		RecommendationsJSON: recs,
		CreatedAt:           rec.CreatedAt,
	}, nil
}

type reminderRow struct {
	ID          string    `gorm:"primaryKey;size:64"`
	UserID      string    `gorm:"size:64;not null;index"`
	Title       string    `gorm:"size:191;not null"`
	Type        string    `gorm:"size:64;not null"`
	Content     string    `gorm:"type:text;not null"`
	RemindAt    time.Time `gorm:"not null;index"`
	IsAutomated bool      `gorm:"not null"`
	IsCompleted bool      `gorm:"not null"`
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

func (reminderRow) TableName() string { return "reminders" }

func (r reminderRow) toRecord() Reminder {
	return Reminder{
		ID:          r.ID,
		UserID:      r.UserID,
		Title:       r.Title,
		Type:        dialogue.ReminderType(r.Type),
		Content:     r.Content,
		RemindAt:    r.RemindAt,
		IsAutomated: r.IsAutomated,
		IsCompleted: r.IsCompleted,
		CompletedAt: r.CompletedAt,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}

func reminderRowFromRecord(rem Reminder) reminderRow {
	return reminderRow{
		ID:          rem.ID,
		UserID:      rem.UserID,
		Title:       rem.Title,
		Type:        string(rem.Type),
		Content:     rem.Content,
		RemindAt:    rem.RemindAt,
		IsAutomated: rem.IsAutomated,
		IsCompleted: rem.IsCompleted,
		CompletedAt: rem.CompletedAt,
		CreatedAt:   rem.CreatedAt,
		UpdatedAt:   rem.UpdatedAt,
	}
}

func marshalJSON(v any) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}

func unmarshalJSON(raw string, v any) error {
	if raw == "" || raw == "null" {
		return nil
	}
	return json.Unmarshal([]byte(raw), v)
}
