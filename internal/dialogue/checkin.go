package dialogue

import "strings"

const (
	checkinScaleMin = 1
	checkinScaleMax = 10
)

func (e *Engine) advanceCheckin(ctx CheckinContext, input string) Reply {
	prompts := e.script.CheckinPrompts

	if ctx.Step == StepNote {
		next := ctx
		if input != prompts.SkipWord {
			note := input
			next.Answers.Note = &note
		} else {
			next.Answers.Note = nil
		}
		next.Step = StepDone

		result := CheckinResult{
			Kind:                ctx.Kind,
			MoodScore:           next.Answers.MoodScore,
			EnergyLevel:         next.Answers.EnergyLevel,
			StressLevel:         next.Answers.StressLevel,
			ProductivityFeeling: next.Answers.ProductivityFeeling,
			Note:                next.Answers.Note,
		}
		if result.Note != nil {
			result.Tags = extractTags(*result.Note, e.script.NoteTags)
		}
		result.Summary = e.checkinSummary(result)

		return Reply{
			Prompt:    prompts.Thanks + " " + result.Summary,
			Next:      next,
			Completed: true,
			Result:    result,
		}
	}

	if ctx.Step == StepDone {
		return Reply{Prompt: prompts.Thanks, Next: ctx, Completed: true}
	}

	var nextStep CheckinStep
	var nextPrompt string
	switch ctx.Step {
	case StepMood:
		nextStep, nextPrompt = StepEnergy, prompts.Energy
	case StepEnergy:
		nextStep, nextPrompt = StepStress, prompts.Stress
	case StepStress:
		nextStep, nextPrompt = StepProductivity, prompts.Productivity
	case StepProductivity:
		nextStep, nextPrompt = StepNote, prompts.Note
	default:
		return Reply{Prompt: "Something went wrong with this check-in. " + prompts.Invalid, Next: ctx}
	}

	score, ok := parseBounded(input, checkinScaleMin, checkinScaleMax)
	if !ok {
		return Reply{Prompt: prompts.Invalid, Next: ctx}
	}

	next := ctx
	switch ctx.Step {
	case StepMood:
		next.Answers.MoodScore = score
	case StepEnergy:
		next.Answers.EnergyLevel = score
	case StepStress:
		next.Answers.StressLevel = score
	case StepProductivity:
		next.Answers.ProductivityFeeling = score
	}
	next.Step = nextStep

	return Reply{Prompt: nextPrompt, Next: next}
}

// checkinSummary concatenates threshold remarks in mood, stress, energy,
// productivity order.
func (e *Engine) checkinSummary(r CheckinResult) string {
	in := e.script.CheckinInsights
	var insights []string

	switch {
	case r.MoodScore >= in.HighMoodAt:
		insights = append(insights, in.HighMood)
	case r.MoodScore <= in.LowMoodAt:
		insights = append(insights, in.LowMood)
	}
	if r.StressLevel >= in.HighStressAt {
		insights = append(insights, in.HighStress)
	}
	if r.EnergyLevel <= in.LowEnergyAt {
		insights = append(insights, in.LowEnergy)
	}
	if r.ProductivityFeeling >= in.HighProductiveAt {
		insights = append(insights, in.HighProductivity)
	}

	if len(insights) == 0 {
		return in.Fallback
	}
	return strings.Join(insights, " ")
}

func extractTags(text string, groups []KeywordGroup) []string {
	lower := strings.ToLower(text)
	var tags []string
	for _, group := range groups {
		for _, keyword := range group.Keywords {
			if strings.Contains(lower, keyword) {
				tags = append(tags, group.Tag)
				break
			}
		}
	}
	return tags
}
