package chatbot

import (
	"context"
	"errors"
	"fmt"

	"mindpulse.local/wellbot/internal/store"
)

func (s *Service) CheckinHistory(ctx context.Context, userID string, limit int) ([]store.CheckinRecord, error) {
	if _, err := s.knownUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListCheckins(ctx, store.RecordFilter{UserID: userID, Limit: limit})
}

func (s *Service) BurnoutHistory(ctx context.Context, userID string, limit int) ([]store.BurnoutAssessment, error) {
	if _, err := s.knownUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListBurnoutAssessments(ctx, store.RecordFilter{UserID: userID, Limit: limit})
}

// Reminders lists a user's reminders; completed nil means both states.
func (s *Service) Reminders(ctx context.Context, userID string, completed *bool, limit int) ([]store.Reminder, error) {
	if _, err := s.knownUser(ctx, userID); err != nil {
		return nil, err
	}
	return s.store.ListReminders(ctx, store.ReminderFilter{UserID: userID, Completed: completed, Limit: limit})
}

// knownUser accepts inactive users: their history stays readable.
func (s *Service) knownUser(ctx context.Context, userID string) (store.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return store.User{}, fmt.Errorf("find user: %w", err)
	}
	return user, nil
}
