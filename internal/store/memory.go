package store

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"mindpulse.local/wellbot/internal/ids"
)

type MemoryStore struct {
	mu            sync.RWMutex
	users         map[string]User
	conversations map[string]Conversation
	checkins      []CheckinRecord
	burnouts      []BurnoutAssessment
	reminders     map[string]Reminder
	closed        bool

	now func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		users:         make(map[string]User),
		conversations: make(map[string]Conversation),
		reminders:     make(map[string]Reminder),
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *MemoryStore) checkOpen(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.closed {
		return fmt.Errorf("memory store is closed")
	}
	return nil
}

func (s *MemoryStore) FindActiveUsers(ctx context.Context) ([]User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	out := make([]User, 0, len(s.users))
	for _, u := range s.users {
		if u.IsActive {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) FindUser(ctx context.Context, userID string) (User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return User{}, err
	}

	u, ok := s.users[strings.TrimSpace(userID)]
	if !ok {
		return User{}, ErrNotFound
	}
	return u, nil
}

func (s *MemoryStore) CountActiveUsers(ctx context.Context) (int, error) {
	users, err := s.FindActiveUsers(ctx)
	if err != nil {
		return 0, err
	}
	return len(users), nil
}

func (s *MemoryStore) CreateUser(ctx context.Context, user User) (User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return User{}, err
	}

	user.ID = strings.TrimSpace(user.ID)
	if user.ID == "" {
		user.ID = ids.New()
	}
	if _, exists := s.users[user.ID]; exists {
		return User{}, fmt.Errorf("user %s already exists", user.ID)
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	s.users[user.ID] = user
	return user, nil
}

func (s *MemoryStore) CreateConversation(ctx context.Context, conv Conversation) (Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return Conversation{}, err
	}

	now := s.now()
	if conv.ID == "" {
		conv.ID = ids.New()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now
	s.conversations[conv.ID] = cloneConversation(conv)
	return cloneConversation(conv), nil
}

func (s *MemoryStore) GetConversation(ctx context.Context, conversationID, userID string) (Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return Conversation{}, err
	}

	conv, ok := s.conversations[conversationID]
	if !ok || conv.UserID != userID {
		return Conversation{}, ErrNotFound
	}
	return cloneConversation(conv), nil
}

func (s *MemoryStore) SaveConversation(ctx context.Context, conv Conversation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	current, ok := s.conversations[conv.ID]
	if !ok || current.UserID != conv.UserID {
		return ErrNotFound
	}
	conv.CreatedAt = current.CreatedAt
	conv.UpdatedAt = s.now()
	s.conversations[conv.ID] = cloneConversation(conv)
	return nil
}

func (s *MemoryStore) CreateCheckin(ctx context.Context, rec CheckinRecord) (CheckinRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return CheckinRecord{}, err
	}

	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.checkins = append(s.checkins, cloneCheckin(rec))
	return cloneCheckin(rec), nil
}

func (s *MemoryStore) ListCheckins(ctx context.Context, filter RecordFilter) ([]CheckinRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var out []CheckinRecord
	for _, rec := range s.checkins {
		if filter.matches(rec.UserID, rec.CreatedAt) {
			out = append(out, cloneCheckin(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limit(out, filter.Limit), nil
}

func (s *MemoryStore) CreateBurnoutAssessment(ctx context.Context, rec BurnoutAssessment) (BurnoutAssessment, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return BurnoutAssessment{}, err
	}

	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	s.burnouts = append(s.burnouts, cloneBurnout(rec))
	return cloneBurnout(rec), nil
}

func (s *MemoryStore) ListBurnoutAssessments(ctx context.Context, filter RecordFilter) ([]BurnoutAssessment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var out []BurnoutAssessment
	for _, rec := range s.burnouts {
		if filter.matches(rec.UserID, rec.CreatedAt) {
			out = append(out, cloneBurnout(rec))
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return limit(out, filter.Limit), nil
}

func (s *MemoryStore) CreateReminder(ctx context.Context, rem Reminder) (Reminder, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return Reminder{}, err
	}

	now := s.now()
	if rem.ID == "" {
		rem.ID = ids.New()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = now
	}
	rem.UpdatedAt = now
	s.reminders[rem.ID] = cloneReminder(rem)
	return cloneReminder(rem), nil
}

func (s *MemoryStore) GetReminder(ctx context.Context, reminderID, userID string) (Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return Reminder{}, err
	}

	rem, ok := s.reminders[reminderID]
	if !ok || rem.UserID != userID {
		return Reminder{}, ErrNotFound
	}
	return cloneReminder(rem), nil
}

func (s *MemoryStore) SaveReminder(ctx context.Context, rem Reminder) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.checkOpen(ctx); err != nil {
		return err
	}

	current, ok := s.reminders[rem.ID]
	if !ok || current.UserID != rem.UserID {
		return ErrNotFound
	}
	rem.CreatedAt = current.CreatedAt
	rem.UpdatedAt = s.now()
	s.reminders[rem.ID] = cloneReminder(rem)
	return nil
}

func (s *MemoryStore) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if err := s.checkOpen(ctx); err != nil {
		return nil, err
	}

	var out []Reminder
	for _, rem := range s.reminders {
		if filter.matches(rem) {
			out = append(out, cloneReminder(rem))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return limit(out, filter.Limit), nil
}

func (s *MemoryStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

func limit[T any](items []T, n int) []T {
	if n > 0 && len(items) > n {
		return items[:n]
	}
	return items
}
