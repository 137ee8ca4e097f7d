package dialogue

import (
	"encoding/json"
	"errors"
	"fmt"
)

var ErrContextMismatch = errors.New("dialogue context does not match conversation type")

// Context is the per-type dialogue state. Each variant carries only the
// fields its flow needs; values are treated as immutable and every step
// returns a fresh copy.
type Context interface {
	kind() contextKind
}

type contextKind string

const (
	kindCheckin  contextKind = "checkin"
	kindBurnout  contextKind = "burnout"
	kindReminder contextKind = "reminder"
	kindGeneral  contextKind = "general"
)

type CheckinStep string

const (
	StepMood         CheckinStep = "mood"
	StepEnergy       CheckinStep = "energy"
	StepStress       CheckinStep = "stress"
	StepProductivity CheckinStep = "productivity"
	StepNote         CheckinStep = "note"
	StepDone         CheckinStep = "done"
)

type CheckinContext struct {
	Kind    CheckinKind    `json:"kind"`
	Step    CheckinStep    `json:"step"`
	Answers CheckinAnswers `json:"answers"`
}

// CheckinAnswers holds the scores collected so far; zero means unanswered.
type CheckinAnswers struct {
	MoodScore           int     `json:"mood_score,omitempty"`
	EnergyLevel         int     `json:"energy_level,omitempty"`
	StressLevel         int     `json:"stress_level,omitempty"`
	ProductivityFeeling int     `json:"productivity_feeling,omitempty"`
	Note                *string `json:"note,omitempty"`
}

type BurnoutContext struct {
	QuestionIndex int         `json:"question_index"`
	Scores        map[int]int `json:"scores,omitempty"`
	Completed     bool        `json:"completed,omitempty"`
}

type ReminderContext struct {
	ReminderType ReminderType `json:"reminder_type"`
	ReminderID   string       `json:"reminder_id"`
	Replied      bool         `json:"replied,omitempty"`
}

type GeneralContext struct{}

func (CheckinContext) kind() contextKind  { return kindCheckin }
func (BurnoutContext) kind() contextKind  { return kindBurnout }
func (ReminderContext) kind() contextKind { return kindReminder }
func (GeneralContext) kind() contextKind  { return kindGeneral }

func (c BurnoutContext) clone() BurnoutContext {
	out := c
	out.Scores = make(map[int]int, len(c.Scores)+1)
	for k, v := range c.Scores {
		out.Scores[k] = v
	}
	return out
}

// contextMatches reports whether ctx is the variant convType expects.
func contextMatches(convType ConversationType, ctx Context) bool {
	if ctx == nil {
		return false
	}
	switch {
	case convType.IsCheckin():
		return ctx.kind() == kindCheckin
	case convType == ConversationBurnoutAssessment:
		return ctx.kind() == kindBurnout
	case convType == ConversationReminderResponse:
		return ctx.kind() == kindReminder
	case convType == ConversationGeneralChat:
		return ctx.kind() == kindGeneral
	default:
		return false
	}
}

type contextEnvelope struct {
	Kind     contextKind      `json:"kind"`
	Checkin  *CheckinContext  `json:"checkin,omitempty"`
	Burnout  *BurnoutContext  `json:"burnout,omitempty"`
	Reminder *ReminderContext `json:"reminder,omitempty"`
}

func MarshalContext(ctx Context) ([]byte, error) {
	if ctx == nil {
		return nil, errors.New("nil dialogue context")
	}
	env := contextEnvelope{Kind: ctx.kind()}
	switch c := ctx.(type) {
	case CheckinContext:
		env.Checkin = &c
	case BurnoutContext:
		env.Burnout = &c
	case ReminderContext:
		env.Reminder = &c
	case GeneralContext:
	default:
		return nil, fmt.Errorf("unknown dialogue context %T", ctx)
	}
	return json.Marshal(env)
}

func UnmarshalContext(data []byte) (Context, error) {
	var env contextEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("decode dialogue context: %w", err)
	}
	switch env.Kind {
	case kindCheckin:
		if env.Checkin == nil {
			return nil, errors.New("decode dialogue context: missing checkin state")
		}
		return *env.Checkin, nil
	case kindBurnout:
		if env.Burnout == nil {
			return BurnoutContext{}, nil
		}
		return *env.Burnout, nil
	case kindReminder:
		if env.Reminder == nil {
			return nil, errors.New("decode dialogue context: missing reminder state")
		}
		return *env.Reminder, nil
	case kindGeneral:
		return GeneralContext{}, nil
	default:
		return nil, fmt.Errorf("decode dialogue context: unknown kind %q", env.Kind)
	}
}
