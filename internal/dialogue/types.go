package dialogue

import (
	"fmt"
	"strings"
)

type ConversationType string

const (
	ConversationMorningCheckin    ConversationType = "morning-checkin"
	ConversationMiddayCheckin     ConversationType = "midday-checkin"
	ConversationEveningCheckin    ConversationType = "evening-checkin"
	ConversationBurnoutAssessment ConversationType = "burnout-assessment"
	ConversationReminderResponse  ConversationType = "reminder-response"
	ConversationGeneralChat       ConversationType = "general-chat"
)

func ParseConversationType(raw string) (ConversationType, error) {
	switch t := ConversationType(strings.ToLower(strings.TrimSpace(raw))); t {
	case ConversationMorningCheckin,
		ConversationMiddayCheckin,
		ConversationEveningCheckin,
		ConversationBurnoutAssessment,
		ConversationReminderResponse,
		ConversationGeneralChat:
		return t, nil
	default:
		return "", fmt.Errorf("unsupported conversation type %q", raw)
	}
}

// IsCheckin reports whether t runs the mood/energy/stress/productivity script.
func (t ConversationType) IsCheckin() bool {
	switch t {
	case ConversationMorningCheckin, ConversationMiddayCheckin, ConversationEveningCheckin:
		return true
	default:
		return false
	}
}

type CheckinKind string

const (
	CheckinMorning CheckinKind = "morning"
	CheckinMidday  CheckinKind = "midday"
	CheckinEvening CheckinKind = "evening"
)

var CheckinKinds = []CheckinKind{CheckinMorning, CheckinMidday, CheckinEvening}

func ParseCheckinKind(raw string) (CheckinKind, error) {
	switch k := CheckinKind(strings.ToLower(strings.TrimSpace(raw))); k {
	case CheckinMorning, CheckinMidday, CheckinEvening:
		return k, nil
	case "custom":
		return CheckinMidday, nil
	default:
		return "", fmt.Errorf("unsupported checkin type %q", raw)
	}
}

func (k CheckinKind) ConversationType() ConversationType {
	switch k {
	case CheckinMorning:
		return ConversationMorningCheckin
	case CheckinEvening:
		return ConversationEveningCheckin
	default:
		return ConversationMiddayCheckin
	}
}

// CheckinKindFor maps a checkin conversation type back to its kind.
func CheckinKindFor(t ConversationType) (CheckinKind, bool) {
	switch t {
	case ConversationMorningCheckin:
		return CheckinMorning, true
	case ConversationMiddayCheckin:
		return CheckinMidday, true
	case ConversationEveningCheckin:
		return CheckinEvening, true
	default:
		return "", false
	}
}

type ReminderType string

const (
	ReminderDrinkWater          ReminderType = "drink_water"
	ReminderScreenTimeBreak     ReminderType = "screen_time_break"
	ReminderCodeBreak           ReminderType = "code_break"
	ReminderCreativeDigest      ReminderType = "creative_digest"
	ReminderPostureCheck        ReminderType = "posture_check"
	ReminderDeepBreathing       ReminderType = "deep_breathing"
	ReminderStretchBreak        ReminderType = "stretch_break"
	ReminderMentalHealthCheckin ReminderType = "mental_health_checkin"
)

var ReminderTypes = []ReminderType{
	ReminderDrinkWater,
	ReminderScreenTimeBreak,
	ReminderCodeBreak,
	ReminderCreativeDigest,
	ReminderPostureCheck,
	ReminderDeepBreathing,
	ReminderStretchBreak,
	ReminderMentalHealthCheckin,
}

func ParseReminderType(raw string) (ReminderType, error) {
	candidate := ReminderType(strings.ToLower(strings.TrimSpace(raw)))
	for _, t := range ReminderTypes {
		if t == candidate {
			return t, nil
		}
	}
	return "", fmt.Errorf("unsupported reminder type %q", raw)
}

type RiskLevel string

const (
	RiskLow      RiskLevel = "low"
	RiskModerate RiskLevel = "moderate"
	RiskHigh     RiskLevel = "high"
	RiskSevere   RiskLevel = "severe"
)
