package dialogue

import "strings"

func (e *Engine) advanceReminder(ctx ReminderContext, input string) Reply {
	if ctx.Replied {
		return Reply{Prompt: e.script.NeutralEncouragement, Next: ctx, Completed: true}
	}

	response := strings.TrimSpace(input)
	if response == "" {
		return Reply{Prompt: e.script.ReminderEmptyReplyPrompt, Next: ctx}
	}

	positive := IsPositiveResponse(response, e.script.PositiveKeywords)
	prompt := e.script.NeutralEncouragement
	if positive {
		prompt = e.script.PositiveEncouragement
	}

	next := ctx
	next.Replied = true
	return Reply{
		Prompt:    prompt,
		Next:      next,
		Completed: true,
		Result: ReminderResult{
			ReminderType: ctx.ReminderType,
			ReminderID:   ctx.ReminderID,
			Response:     response,
			Positive:     positive,
		},
	}
}

// IsPositiveResponse does a case-insensitive substring match against keywords.
func IsPositiveResponse(response string, keywords []string) bool {
	lower := strings.ToLower(response)
	for _, word := range keywords {
		if strings.Contains(lower, word) {
			return true
		}
	}
	return false
}
