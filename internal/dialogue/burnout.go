package dialogue

import "fmt"

func (e *Engine) burnoutQuestion(index int) string {
	return fmt.Sprintf("%s (%d-%d)", e.script.BurnoutQuestions[index], e.script.BurnoutScaleMin, e.script.BurnoutScaleMax)
}

func (e *Engine) advanceBurnout(ctx BurnoutContext, input string) Reply {
	questions := e.script.BurnoutQuestions
	if ctx.Completed || ctx.QuestionIndex < 0 || ctx.QuestionIndex >= len(questions) {
		return Reply{Prompt: e.burnoutCompletionPrompt(riskFromContext(ctx, len(questions))), Next: ctx, Completed: true}
	}

	score, ok := parseBounded(input, e.script.BurnoutScaleMin, e.script.BurnoutScaleMax)
	if !ok {
		return Reply{Prompt: e.script.BurnoutInvalidPrompt, Next: ctx}
	}

	next := ctx.clone()
	next.Scores[ctx.QuestionIndex] = score

	if ctx.QuestionIndex < len(questions)-1 {
		next.QuestionIndex = ctx.QuestionIndex + 1
		return Reply{Prompt: e.burnoutQuestion(next.QuestionIndex), Next: next}
	}

	next.Completed = true
	result := e.scoreBurnout(next.Scores)
	return Reply{
		Prompt:    e.burnoutCompletionPrompt(result.RiskLevel),
		Next:      next,
		Completed: true,
		Result:    result,
	}
}

func (e *Engine) scoreBurnout(scores map[int]int) BurnoutResult {
	total := 0
	for _, v := range scores {
		total += v
	}
	average := float64(total) / float64(len(e.script.BurnoutQuestions))
	risk := RiskForAverage(average)

	subscales := make(map[string]int, len(e.script.BurnoutSubscales))
	for _, sub := range e.script.BurnoutSubscales {
		sum := 0
		for _, q := range sub.Questions {
			sum += scores[q]
		}
		subscales[sub.Name] = sum
	}

	out := make(map[int]int, len(scores))
	for k, v := range scores {
		out[k] = v
	}
	recs := append([]string(nil), e.script.BurnoutRecommendations[risk]...)

	return BurnoutResult{
		Scores:          out,
		TotalScore:      total,
		AverageScore:    average,
		RiskLevel:       risk,
		Subscales:       subscales,
		Recommendations: recs,
	}
}

// RiskForAverage maps an average item score to a risk band.
func RiskForAverage(average float64) RiskLevel {
	switch {
	case average >= 4:
		return RiskSevere
	case average >= 3:
		return RiskHigh
	case average >= 2:
		return RiskModerate
	default:
		return RiskLow
	}
}

func (e *Engine) burnoutCompletionPrompt(risk RiskLevel) string {
	return fmt.Sprintf("Assessment complete! Based on your responses, your burnout risk level is: %s. I'll provide personalized recommendations to help you manage stress and prevent burnout.", risk)
}

func riskFromContext(ctx BurnoutContext, questionCount int) RiskLevel {
	if questionCount == 0 {
		return RiskLow
	}
	total := 0
	for _, v := range ctx.Scores {
		total += v
	}
	return RiskForAverage(float64(total) / float64(questionCount))
}
