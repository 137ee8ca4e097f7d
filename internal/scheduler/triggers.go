package scheduler

import (
	"context"

	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/emitter"
)

// Emitter is the fan-out the triggers drive.
type Emitter interface {
	TriggerCheckins(ctx context.Context, kind dialogue.CheckinKind) ([]emitter.Result, error)
	TriggerReminders(ctx context.Context, reminderType dialogue.ReminderType) ([]emitter.Result, error)
	TriggerBurnoutAssessments(ctx context.Context) ([]emitter.Result, error)
}

type FireFunc func(ctx context.Context, em Emitter) ([]emitter.Result, error)

// Trigger binds a name to a schedule and an emitter operation. An empty
// Schedule makes the trigger manual-only.
type Trigger struct {
	Name        string
	Schedule    string
	Description string
	Fire        FireFunc
}

func checkinTrigger(name, schedule string, kind dialogue.CheckinKind) Trigger {
	return Trigger{
		Name:        name,
		Schedule:    schedule,
		Description: dialogue.CheckinDescriptions[kind],
		Fire: func(ctx context.Context, em Emitter) ([]emitter.Result, error) {
			return em.TriggerCheckins(ctx, kind)
		},
	}
}

func reminderTrigger(name, schedule string, reminderType dialogue.ReminderType) Trigger {
	return Trigger{
		Name:        name,
		Schedule:    schedule,
		Description: dialogue.DefaultScript().Reminders[reminderType].Description,
		Fire: func(ctx context.Context, em Emitter) ([]emitter.Result, error) {
			return em.TriggerReminders(ctx, reminderType)
		},
	}
}

// DefaultTriggers is the fixed wellness schedule.
func DefaultTriggers() []Trigger {
	return []Trigger{
		checkinTrigger("morning_checkin", "0 8 * * *", dialogue.CheckinMorning),
		checkinTrigger("midday_checkin", "0 13 * * 1-5", dialogue.CheckinMidday),
		checkinTrigger("evening_checkin", "0 19 * * *", dialogue.CheckinEvening),
		reminderTrigger("water_reminder", "0 9,11,13,15,17 * * 1-5", dialogue.ReminderDrinkWater),
		reminderTrigger("screen_break_reminder", "0 10-17 * * 1-5", dialogue.ReminderScreenTimeBreak),
		reminderTrigger("code_break_reminder", "30 9,11,13,15,17 * * 1-5", dialogue.ReminderCodeBreak),
		reminderTrigger("creative_digest_reminder", "0 15 * * 1-5", dialogue.ReminderCreativeDigest),
		reminderTrigger("posture_check_reminder", "15 9-17 * * 1-5", dialogue.ReminderPostureCheck),
		reminderTrigger("deep_breathing_reminder", "0 11,16 * * 1-5", dialogue.ReminderDeepBreathing),
		reminderTrigger("stretch_break_reminder", "0 10,12,14,16 * * 1-5", dialogue.ReminderStretchBreak),
		reminderTrigger("mental_health_checkin", "0 16 * * 5", dialogue.ReminderMentalHealthCheckin),
		{
			Name:        "burnout_assessment",
			Description: "Burnout risk assessment for every active user",
			Fire: func(ctx context.Context, em Emitter) ([]emitter.Result, error) {
				return em.TriggerBurnoutAssessments(ctx)
			},
		},
	}
}

// DefaultGroups are the routines that can be run on demand.
func DefaultGroups() map[string][]string {
	return map[string][]string{
		"morning":   {"morning_checkin", "water_reminder", "posture_check_reminder"},
		"afternoon": {"midday_checkin", "creative_digest_reminder", "deep_breathing_reminder"},
		"evening":   {"evening_checkin"},
	}
}
