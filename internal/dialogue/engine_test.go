package dialogue

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runInputs(t *testing.T, e *Engine, convType ConversationType, ctx Context, inputs ...string) (Context, []Reply) {
	t.Helper()
	replies := make([]Reply, 0, len(inputs))
	for _, in := range inputs {
		reply, err := e.Advance(convType, ctx, in)
		require.NoError(t, err)
		replies = append(replies, reply)
		ctx = reply.Next
	}
	return ctx, replies
}

func TestCheckinFlowCompletesOnNote(t *testing.T) {
	e := NewEngine(DefaultScript())
	opening := e.OpenCheckin(CheckinMorning)
	require.Len(t, opening.Messages, 2)
	assert.Contains(t, opening.Messages[0], "Good morning")

	_, replies := runInputs(t, e, ConversationMorningCheckin, opening.Context, "8", "7", "2", "9", "skip")
	for i := 0; i < 4; i++ {
		assert.False(t, replies[i].Completed, "step %d", i)
		assert.Nil(t, replies[i].Result)
	}

	final := replies[4]
	require.True(t, final.Completed)
	result, ok := final.Result.(CheckinResult)
	require.True(t, ok)
	assert.Equal(t, CheckinMorning, result.Kind)
	assert.Equal(t, 8, result.MoodScore)
	assert.Equal(t, 7, result.EnergyLevel)
	assert.Equal(t, 2, result.StressLevel)
	assert.Equal(t, 9, result.ProductivityFeeling)
	assert.Nil(t, result.Note)

	script := DefaultScript()
	assert.Contains(t, final.Prompt, script.CheckinInsights.HighMood)
	assert.Contains(t, final.Prompt, script.CheckinInsights.HighProductivity)
	assert.NotContains(t, final.Prompt, script.CheckinInsights.LowEnergy)
	assert.NotContains(t, final.Prompt, script.CheckinInsights.HighStress)
}

func TestCheckinInvalidInputLeavesStateUnchanged(t *testing.T) {
	e := NewEngine(DefaultScript())
	ctx, _ := runInputs(t, e, ConversationEveningCheckin, e.OpenCheckin(CheckinEvening).Context, "5")
	before := ctx.(CheckinContext)
	require.Equal(t, StepEnergy, before.Step)

	for _, bad := range []string{"", "abc", "0", "11", "7.5", "3 apples", "-1"} {
		reply, err := e.Advance(ConversationEveningCheckin, ctx, bad)
		require.NoError(t, err)
		assert.False(t, reply.Completed, "input %q", bad)
		assert.Equal(t, DefaultScript().CheckinPrompts.Invalid, reply.Prompt, "input %q", bad)
		assert.Equal(t, before, reply.Next, "input %q", bad)
	}
}

func TestCheckinNoteIsStoredVerbatimAndTagged(t *testing.T) {
	e := NewEngine(DefaultScript())
	_, replies := runInputs(t, e, ConversationMiddayCheckin, e.OpenCheckin(CheckinMidday).Context,
		"3", "2", "8", "3", "Deadline pressure and a nasty bug")

	final := replies[len(replies)-1]
	result := final.Result.(CheckinResult)
	require.NotNil(t, result.Note)
	assert.Equal(t, "Deadline pressure and a nasty bug", *result.Note)
	assert.Equal(t, []string{"work", "coding"}, result.Tags)

	in := DefaultScript().CheckinInsights
	want := strings.Join([]string{in.LowMood, in.HighStress, in.LowEnergy}, " ")
	assert.Equal(t, want, result.Summary)
}

func TestCheckinSkipIsCaseSensitive(t *testing.T) {
	e := NewEngine(DefaultScript())
	_, replies := runInputs(t, e, ConversationMorningCheckin, e.OpenCheckin(CheckinMorning).Context,
		"5", "5", "5", "5", "Skip")
	result := replies[4].Result.(CheckinResult)
	require.NotNil(t, result.Note)
	assert.Equal(t, "Skip", *result.Note)
	assert.Equal(t, DefaultScript().CheckinInsights.Fallback, result.Summary)
}

func TestBurnoutAllFivesIsSevere(t *testing.T) {
	e := NewEngine(DefaultScript())
	opening := e.OpenBurnout()
	require.Len(t, opening.Messages, 2)
	assert.Equal(t, "I feel emotionally drained from my work. (1-5)", opening.Messages[1])

	_, replies := runInputs(t, e, ConversationBurnoutAssessment, opening.Context,
		"5", "5", "5", "5", "5", "5", "5", "5")
	for i := 0; i < 7; i++ {
		assert.False(t, replies[i].Completed)
	}
	final := replies[7]
	require.True(t, final.Completed)
	result := final.Result.(BurnoutResult)
	assert.Equal(t, 40, result.TotalScore)
	assert.InDelta(t, 5.0, result.AverageScore, 1e-9)
	assert.Equal(t, RiskSevere, result.RiskLevel)
	assert.Len(t, result.Scores, 8)
	assert.Equal(t, 20, result.Subscales[SubscaleEmotionalExhaustion])
	assert.Equal(t, 10, result.Subscales[SubscaleDepersonalization])
	assert.NotEmpty(t, result.Recommendations)
	assert.Contains(t, final.Prompt, "severe")
}

func TestBurnoutAllOnesIsLow(t *testing.T) {
	e := NewEngine(DefaultScript())
	_, replies := runInputs(t, e, ConversationBurnoutAssessment, e.OpenBurnout().Context,
		"1", "1", "1", "1", "1", "1", "1", "1")
	result := replies[7].Result.(BurnoutResult)
	assert.Equal(t, 8, result.TotalScore)
	assert.InDelta(t, 1.0, result.AverageScore, 1e-9)
	assert.Equal(t, RiskLow, result.RiskLevel)
}

func TestBurnoutRejectsOutOfRangeWithoutAdvancing(t *testing.T) {
	e := NewEngine(DefaultScript())
	ctx, _ := runInputs(t, e, ConversationBurnoutAssessment, e.OpenBurnout().Context, "3")
	before := ctx.(BurnoutContext)

	for _, bad := range []string{"0", "6", "x", ""} {
		reply, err := e.Advance(ConversationBurnoutAssessment, ctx, bad)
		require.NoError(t, err)
		assert.False(t, reply.Completed)
		assert.Equal(t, DefaultScript().BurnoutInvalidPrompt, reply.Prompt)
		assert.Equal(t, before, reply.Next)
	}
	assert.Equal(t, 1, before.QuestionIndex)
	assert.Equal(t, map[int]int{0: 3}, before.Scores)
}

func TestBurnoutDoesNotMutateInputContext(t *testing.T) {
	e := NewEngine(DefaultScript())
	start := BurnoutContext{QuestionIndex: 2, Scores: map[int]int{0: 2, 1: 2}}
	reply, err := e.Advance(ConversationBurnoutAssessment, start, "4")
	require.NoError(t, err)
	assert.Len(t, start.Scores, 2)
	assert.Equal(t, 3, reply.Next.(BurnoutContext).QuestionIndex)
	assert.Equal(t, 4, reply.Next.(BurnoutContext).Scores[2])
}

func TestRiskForAverage(t *testing.T) {
	cases := map[float64]RiskLevel{
		1.0:   RiskLow,
		1.999: RiskLow,
		2.0:   RiskModerate,
		3.0:   RiskHigh,
		3.875: RiskHigh,
		4.0:   RiskSevere,
	}
	for avg, want := range cases {
		assert.Equal(t, want, RiskForAverage(avg), "avg %v", avg)
	}
}

func TestReminderReplyClassification(t *testing.T) {
	e := NewEngine(DefaultScript())
	opening := e.OpenReminder(ReminderDrinkWater, "rem-1")
	require.Equal(t, []string{DefaultScript().Reminders[ReminderDrinkWater].Message}, opening.Messages)

	reply, err := e.Advance(ConversationReminderResponse, opening.Context, "Done, feeling REFRESHED")
	require.NoError(t, err)
	require.True(t, reply.Completed)
	assert.Equal(t, DefaultScript().PositiveEncouragement, reply.Prompt)
	result := reply.Result.(ReminderResult)
	assert.True(t, result.Positive)
	assert.Equal(t, "rem-1", result.ReminderID)

	reply, err = e.Advance(ConversationReminderResponse, opening.Context, "not now")
	require.NoError(t, err)
	assert.Equal(t, DefaultScript().NeutralEncouragement, reply.Prompt)
	assert.False(t, reply.Result.(ReminderResult).Positive)

	reply, err = e.Advance(ConversationReminderResponse, opening.Context, "   ")
	require.NoError(t, err)
	assert.False(t, reply.Completed)
	assert.Equal(t, opening.Context, reply.Next)
}

func TestGeneralChatFallsBack(t *testing.T) {
	e := NewEngine(DefaultScript())
	reply, err := e.Advance(ConversationGeneralChat, GeneralContext{}, "hello?")
	require.NoError(t, err)
	assert.False(t, reply.Completed)
	assert.Equal(t, DefaultScript().GeneralFallback, reply.Prompt)
}

func TestAdvanceRejectsMismatchedContext(t *testing.T) {
	e := NewEngine(DefaultScript())
	_, err := e.Advance(ConversationBurnoutAssessment, CheckinContext{Step: StepMood}, "3")
	require.ErrorIs(t, err, ErrContextMismatch)

	_, err = e.Advance(ConversationMorningCheckin, nil, "3")
	require.ErrorIs(t, err, ErrContextMismatch)
}

func TestContextRoundTripPreservesVariant(t *testing.T) {
	note := "ok"
	for _, ctx := range []Context{
		CheckinContext{Kind: CheckinEvening, Step: StepNote, Answers: CheckinAnswers{MoodScore: 4, Note: &note}},
		BurnoutContext{QuestionIndex: 3, Scores: map[int]int{0: 1, 1: 2, 2: 5}},
		ReminderContext{ReminderType: ReminderPostureCheck, ReminderID: "r-9"},
		GeneralContext{},
	} {
		data, err := MarshalContext(ctx)
		require.NoError(t, err)
		decoded, err := UnmarshalContext(data)
		require.NoError(t, err)
		assert.Equal(t, ctx, decoded)
	}
}

func TestParseKinds(t *testing.T) {
	kind, err := ParseCheckinKind(" Evening ")
	require.NoError(t, err)
	assert.Equal(t, ConversationEveningCheckin, kind.ConversationType())

	kind, err = ParseCheckinKind("custom")
	require.NoError(t, err)
	assert.Equal(t, CheckinMidday, kind)

	_, err = ParseCheckinKind("night")
	assert.Error(t, err)

	rt, err := ParseReminderType("STRETCH_BREAK")
	require.NoError(t, err)
	assert.Equal(t, ReminderStretchBreak, rt)

	_, err = ParseReminderType("nap")
	assert.Error(t, err)
}
