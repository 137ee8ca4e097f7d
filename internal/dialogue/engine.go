package dialogue

import (
	"fmt"
	"strconv"
	"strings"
)

// Engine is the step-transition function for every scripted conversation
// type. It performs no I/O.
type Engine struct {
	script Script
}

func NewEngine(script Script) *Engine {
	return &Engine{script: script}
}

func (e *Engine) Script() Script {
	return e.script
}

// Reply is the outcome of one step. Result is non-nil only when Completed
// is true and the flow produces a record.
type Reply struct {
	Prompt    string
	Next      Context
	Completed bool
	Result    Result
}

// Result is the finalized payload of a completed flow: CheckinResult,
// BurnoutResult or ReminderResult.
type Result interface {
	result()
}

type CheckinResult struct {
	Kind                CheckinKind `json:"kind"`
	MoodScore           int         `json:"mood_score"`
	EnergyLevel         int         `json:"energy_level"`
	StressLevel         int         `json:"stress_level"`
	ProductivityFeeling int         `json:"productivity_feeling"`
	Note                *string     `json:"note"`
	Tags                []string    `json:"tags,omitempty"`
	Summary             string      `json:"summary"`
}

type BurnoutResult struct {
	Scores          map[int]int    `json:"scores"`
	TotalScore      int            `json:"total_score"`
	AverageScore    float64        `json:"average_score"`
	RiskLevel       RiskLevel      `json:"risk_level"`
	Subscales       map[string]int `json:"subscales"`
	Recommendations []string       `json:"recommendations"`
}

type ReminderResult struct {
	ReminderType ReminderType `json:"reminder_type"`
	ReminderID   string       `json:"reminder_id"`
	Response     string       `json:"response"`
	Positive     bool         `json:"positive"`
}

func (CheckinResult) result()  {}
func (BurnoutResult) result()  {}
func (ReminderResult) result() {}

// Opening is the initial state of a new conversation and the assistant
// messages that open it.
type Opening struct {
	Context  Context
	Messages []string
}

func (e *Engine) OpenCheckin(kind CheckinKind) Opening {
	greeting, ok := e.script.CheckinGreetings[kind]
	if !ok {
		greeting = e.script.CheckinGreetings[CheckinMidday]
	}
	return Opening{
		Context:  CheckinContext{Kind: kind, Step: StepMood},
		Messages: []string{greeting, e.script.CheckinPrompts.Mood},
	}
}

func (e *Engine) OpenBurnout() Opening {
	return Opening{
		Context:  BurnoutContext{QuestionIndex: 0, Scores: map[int]int{}},
		Messages: []string{e.script.BurnoutGreeting, e.burnoutQuestion(0)},
	}
}

// OpenReminder seeds a reminder-response conversation with the reminder
// message as its only assistant turn.
func (e *Engine) OpenReminder(reminderType ReminderType, reminderID string) Opening {
	return Opening{
		Context:  ReminderContext{ReminderType: reminderType, ReminderID: reminderID},
		Messages: []string{e.ReminderCopy(reminderType).Message},
	}
}

func (e *Engine) OpenGeneral() Opening {
	return Opening{Context: GeneralContext{}}
}

func (e *Engine) ReminderCopy(t ReminderType) ReminderCopy {
	return e.script.Reminders[t]
}

// Advance applies one user input to ctx. Invalid input yields a re-prompt
// and returns ctx unchanged.
func (e *Engine) Advance(convType ConversationType, ctx Context, input string) (Reply, error) {
	if !contextMatches(convType, ctx) {
		return Reply{}, fmt.Errorf("%w: %s with %T", ErrContextMismatch, convType, ctx)
	}

	switch c := ctx.(type) {
	case CheckinContext:
		return e.advanceCheckin(c, input), nil
	case BurnoutContext:
		return e.advanceBurnout(c, input), nil
	case ReminderContext:
		return e.advanceReminder(c, input), nil
	default:
		return Reply{Prompt: e.script.GeneralFallback, Next: ctx}, nil
	}
}

// parseBounded accepts a whitespace-trimmed base-10 integer in [min, max].
func parseBounded(input string, min, max int) (int, bool) {
	value, err := strconv.Atoi(strings.TrimSpace(input))
	if err != nil {
		return 0, false
	}
	if value < min || value > max {
		return 0, false
	}
	return value, true
}
