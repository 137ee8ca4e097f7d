package chatbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/store"
)

// ReminderLeadTime is how far ahead of creation a reminder is due.
const ReminderLeadTime = time.Hour

type ReminderResult struct {
	ReminderID     string                `json:"reminder_id"`
	ConversationID string                `json:"conversation_id"`
	ReminderType   dialogue.ReminderType `json:"reminder_type"`
	Title          string                `json:"title"`
	Message        string                `json:"message"`
	RemindAt       time.Time             `json:"remind_at"`
}

func (s *Service) CreateReminder(ctx context.Context, userID string, reminderType dialogue.ReminderType) (ReminderResult, error) {
	return s.createReminder(ctx, userID, reminderType, false)
}

// CreateAutomatedReminder is the scheduled variant; the reminder is flagged
// as automated.
func (s *Service) CreateAutomatedReminder(ctx context.Context, userID string, reminderType dialogue.ReminderType) (ReminderResult, error) {
	return s.createReminder(ctx, userID, reminderType, true)
}

// createReminder stores the reminder and then its companion reminder-response
// conversation, seeded with the reminder message as the only assistant turn.
func (s *Service) createReminder(ctx context.Context, userID string, reminderType dialogue.ReminderType, automated bool) (ReminderResult, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return ReminderResult{}, err
	}
	text, ok := s.engine.Script().Reminders[reminderType]
	if !ok {
		return ReminderResult{}, fmt.Errorf("%w: unknown reminder type %q", ErrInvalidState, reminderType)
	}

	rem, err := s.store.CreateReminder(ctx, store.Reminder{
		UserID:      userID,
		Title:       text.Title,
		Type:        reminderType,
		Content:     text.Message,
		RemindAt:    s.now().Add(ReminderLeadTime),
		IsAutomated: automated,
	})
	if err != nil {
		return ReminderResult{}, fmt.Errorf("create reminder: %w", err)
	}

	opening := s.engine.OpenReminder(reminderType, rem.ID)
	conv, err := s.createConversation(ctx, userID, dialogue.ConversationReminderResponse, opening, map[string]string{
		store.MetadataReminderID: rem.ID,
	})
	if err != nil {
		return ReminderResult{}, err
	}

	return ReminderResult{
		ReminderID:     rem.ID,
		ConversationID: conv.ID,
		ReminderType:   reminderType,
		Title:          rem.Title,
		Message:        text.Message,
		RemindAt:       rem.RemindAt,
	}, nil
}

// RespondToReminder records the user's reply on a reminder-response
// conversation. Any other conversation type fails with ErrInvalidState
// before anything is written.
func (s *Service) RespondToReminder(ctx context.Context, conversationID, userID, response string) (MessageResult, error) {
	conv, err := s.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return MessageResult{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
		return MessageResult{}, fmt.Errorf("load conversation: %w", err)
	}
	if conv.Type != dialogue.ConversationReminderResponse {
		return MessageResult{}, fmt.Errorf("%w: conversation %s is %s, not a reminder response", ErrInvalidState, conv.ID, conv.Type)
	}
	if conv.IsCompleted {
		return MessageResult{}, fmt.Errorf("%w: conversation %s is already completed", ErrInvalidState, conv.ID)
	}
	return s.respond(ctx, conv, response)
}

func (s *Service) respond(ctx context.Context, conv store.Conversation, response string) (MessageResult, error) {
	remCtx, ok := conv.Context.(dialogue.ReminderContext)
	if !ok {
		return MessageResult{}, fmt.Errorf("%w: conversation %s has no reminder state", ErrInvalidState, conv.ID)
	}

	reply, err := s.engine.Advance(conv.Type, remCtx, response)
	if err != nil {
		return MessageResult{}, fmt.Errorf("advance conversation %s: %w", conv.ID, err)
	}

	if result, ok := reply.Result.(dialogue.ReminderResult); ok && reply.Completed {
		if err := s.completeReminder(ctx, conv.UserID, reminderIDFor(conv, remCtx), result.Response); err != nil {
			return MessageResult{}, err
		}
	}

	conv = s.applyReply(conv, response, reply)
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return MessageResult{}, fmt.Errorf("save conversation: %w", err)
	}
	s.recordStep(conv, reply)
	s.publishMessages(ctx, conv)

	return MessageResult{
		ConversationID: conv.ID,
		Reply:          reply.Prompt,
		Messages:       conv.Messages,
		IsCompleted:    conv.IsCompleted,
		Result:         reply.Result,
	}, nil
}

func (s *Service) completeReminder(ctx context.Context, userID, reminderID, response string) error {
	rem, err := s.store.GetReminder(ctx, reminderID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("reminder %s: %w", reminderID, ErrNotFound)
		}
		return fmt.Errorf("load reminder: %w", err)
	}
	// A retry after a failed conversation save finds the reminder already
	// closed; the first recorded response stands.
	if rem.IsCompleted {
		return nil
	}

	completedAt := s.now()
	rem.Content += "\n\nUser Response: " + response
	rem.IsCompleted = true
	rem.CompletedAt = &completedAt
	if err := s.store.SaveReminder(ctx, rem); err != nil {
		return fmt.Errorf("save reminder: %w", err)
	}
	return nil
}

func reminderIDFor(conv store.Conversation, ctx dialogue.ReminderContext) string {
	if ctx.ReminderID != "" {
		return ctx.ReminderID
	}
	return conv.Metadata[store.MetadataReminderID]
}
