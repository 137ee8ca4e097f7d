// Package emitter fans a trigger out over every active user. One user's
// failure is recorded in that user's Result and never stops the batch.
package emitter

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"mindpulse.local/wellbot/internal/chatbot"
	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/metrics"
	"mindpulse.local/wellbot/internal/notify"
	"mindpulse.local/wellbot/internal/store"
)

// Chatbot is the part of the conversation service the emitter drives.
type Chatbot interface {
	StartCheckin(ctx context.Context, userID string, kind dialogue.CheckinKind) (chatbot.StartResult, error)
	StartBurnoutAssessment(ctx context.Context, userID string) (chatbot.StartResult, error)
	CreateAutomatedReminder(ctx context.Context, userID string, reminderType dialogue.ReminderType) (chatbot.ReminderResult, error)
}

type Users interface {
	FindActiveUsers(ctx context.Context) ([]store.User, error)
	CountActiveUsers(ctx context.Context) (int, error)
}

// Result is one user's outcome in a batch. The batch result set is unordered
// by contract; this implementation keeps user-directory order.
type Result struct {
	UserID         string `json:"user_id"`
	Success        bool   `json:"success"`
	ConversationID string `json:"conversation_id,omitempty"`
	ReminderID     string `json:"reminder_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type ManualResult struct {
	Success        bool   `json:"success"`
	Message        string `json:"message"`
	ConversationID string `json:"conversation_id,omitempty"`
	ReminderID     string `json:"reminder_id,omitempty"`
	Error          string `json:"error,omitempty"`
}

type Stats struct {
	ActiveUsers     int                     `json:"active_users"`
	LastTrigger     string                  `json:"last_trigger,omitempty"`
	LastTriggeredAt *time.Time              `json:"last_triggered_at,omitempty"`
	CheckinKinds    []dialogue.CheckinKind  `json:"checkin_kinds"`
	ReminderTypes   []dialogue.ReminderType `json:"reminder_types"`
}

type Emitter struct {
	bot         Chatbot
	users       Users
	publisher   notify.Publisher
	metrics     *metrics.Metrics
	logger      zerolog.Logger
	concurrency int
	now         func() time.Time

	mu              sync.Mutex
	lastTrigger     string
	lastTriggeredAt time.Time
}

type Option func(*Emitter)

func WithPublisher(p notify.Publisher) Option {
	return func(e *Emitter) {
		if p != nil {
			e.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(e *Emitter) { e.metrics = m }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(e *Emitter) { e.logger = logger.With().Str("component", "emitter").Logger() }
}

// WithConcurrency bounds how many users are processed at once; 1 keeps the
// fan-out sequential.
func WithConcurrency(n int) Option {
	return func(e *Emitter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

func New(bot Chatbot, users Users, opts ...Option) *Emitter {
	if bot == nil {
		panic("emitter: chatbot is required")
	}
	if users == nil {
		panic("emitter: user directory is required")
	}
	e := &Emitter{
		bot:         bot,
		users:       users,
		publisher:   notify.Discard{},
		logger:      zerolog.Nop(),
		concurrency: 1,
		now:         func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// TriggerCheckins starts a checkin of kind for every active user. The error
// is non-nil only when the user directory itself cannot be read.
func (e *Emitter) TriggerCheckins(ctx context.Context, kind dialogue.CheckinKind) ([]Result, error) {
	return e.fanOut(ctx, "checkin."+string(kind), func(ctx context.Context, userID string) (Result, error) {
		res, err := e.bot.StartCheckin(ctx, userID, kind)
		if err != nil {
			return Result{}, err
		}
		e.publishConversation(ctx, notify.EventCheckinStarted, userID, res)
		return Result{ConversationID: res.ConversationID}, nil
	})
}

// TriggerReminders creates an automated reminder and its companion
// conversation for every active user.
func (e *Emitter) TriggerReminders(ctx context.Context, reminderType dialogue.ReminderType) ([]Result, error) {
	return e.fanOut(ctx, "reminder."+string(reminderType), func(ctx context.Context, userID string) (Result, error) {
		res, err := e.bot.CreateAutomatedReminder(ctx, userID, reminderType)
		if err != nil {
			return Result{}, err
		}
		e.publishReminder(ctx, userID, res)
		return Result{ConversationID: res.ConversationID, ReminderID: res.ReminderID}, nil
	})
}

func (e *Emitter) TriggerBurnoutAssessments(ctx context.Context) ([]Result, error) {
	return e.fanOut(ctx, "burnout", func(ctx context.Context, userID string) (Result, error) {
		res, err := e.bot.StartBurnoutAssessment(ctx, userID)
		if err != nil {
			return Result{}, err
		}
		e.publishConversation(ctx, notify.EventBurnoutStarted, userID, res)
		return Result{ConversationID: res.ConversationID}, nil
	})
}

func (e *Emitter) TriggerManualCheckin(ctx context.Context, userID string, kind dialogue.CheckinKind) ManualResult {
	e.markTriggered("manual.checkin." + string(kind))
	res, err := e.bot.StartCheckin(ctx, userID, kind)
	if err != nil {
		return e.manualFailure("checkin."+string(kind), userID, err)
	}
	e.publishConversation(ctx, notify.EventCheckinStarted, userID, res)
	return ManualResult{
		Success:        true,
		Message:        fmt.Sprintf("%s checkin started", kind),
		ConversationID: res.ConversationID,
	}
}

func (e *Emitter) TriggerManualReminder(ctx context.Context, userID string, reminderType dialogue.ReminderType) ManualResult {
	e.markTriggered("manual.reminder." + string(reminderType))
	res, err := e.bot.CreateAutomatedReminder(ctx, userID, reminderType)
	if err != nil {
		return e.manualFailure("reminder."+string(reminderType), userID, err)
	}
	e.publishReminder(ctx, userID, res)
	return ManualResult{
		Success:        true,
		Message:        fmt.Sprintf("%s reminder sent", reminderType),
		ConversationID: res.ConversationID,
		ReminderID:     res.ReminderID,
	}
}

func (e *Emitter) TriggerBurnoutAssessment(ctx context.Context, userID string) ManualResult {
	e.markTriggered("manual.burnout")
	res, err := e.bot.StartBurnoutAssessment(ctx, userID)
	if err != nil {
		return e.manualFailure("burnout", userID, err)
	}
	e.publishConversation(ctx, notify.EventBurnoutStarted, userID, res)
	return ManualResult{
		Success:        true,
		Message:        "burnout assessment started",
		ConversationID: res.ConversationID,
	}
}

func (e *Emitter) Stats(ctx context.Context) (Stats, error) {
	count, err := e.users.CountActiveUsers(ctx)
	if err != nil {
		return Stats{}, fmt.Errorf("count active users: %w", err)
	}

	e.mu.Lock()
	stats := Stats{
		ActiveUsers:   count,
		LastTrigger:   e.lastTrigger,
		CheckinKinds:  append([]dialogue.CheckinKind(nil), dialogue.CheckinKinds...),
		ReminderTypes: append([]dialogue.ReminderType(nil), dialogue.ReminderTypes...),
	}
	if !e.lastTriggeredAt.IsZero() {
		at := e.lastTriggeredAt
		stats.LastTriggeredAt = &at
	}
	e.mu.Unlock()
	return stats, nil
}

type userTask func(ctx context.Context, userID string) (Result, error)

// fanOut settles every user before returning: tasks never report errors to
// the group, so no task cancels another.
func (e *Emitter) fanOut(ctx context.Context, trigger string, task userTask) ([]Result, error) {
	e.markTriggered(trigger)

	users, err := e.users.FindActiveUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("load active users: %w", err)
	}

	results := make([]Result, len(users))
	var g errgroup.Group
	g.SetLimit(e.concurrency)
	for i, user := range users {
		g.Go(func() error {
			results[i] = e.runOne(ctx, trigger, user.ID, task)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := 0
	for _, r := range results {
		if r.Success {
			succeeded++
		}
	}
	e.logger.Info().
		Str("trigger", trigger).
		Int("users", len(users)).
		Int("succeeded", succeeded).
		Int("failed", len(users)-succeeded).
		Msg("trigger fan-out finished")
	return results, nil
}

func (e *Emitter) runOne(ctx context.Context, trigger, userID string, task userTask) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			res = Result{UserID: userID, Error: fmt.Sprintf("panic: %v", r)}
			e.logger.Error().Str("trigger", trigger).Str("user_id", userID).Interface("panic", r).Msg("trigger panicked for user")
		}
		e.metrics.EmitterResult(trigger, res.Success)
	}()

	out, err := task(ctx, userID)
	if err != nil {
		e.logger.Error().Str("trigger", trigger).Str("user_id", userID).Err(err).Msg("trigger failed for user")
		return Result{UserID: userID, Error: err.Error()}
	}
	out.UserID = userID
	out.Success = true
	return out
}

func (e *Emitter) manualFailure(trigger, userID string, err error) ManualResult {
	e.metrics.EmitterResult(trigger, false)
	e.logger.Error().Str("trigger", trigger).Str("user_id", userID).Err(err).Msg("manual trigger failed")
	return ManualResult{Success: false, Message: "trigger failed", Error: err.Error()}
}

func (e *Emitter) markTriggered(trigger string) {
	e.mu.Lock()
	e.lastTrigger = trigger
	e.lastTriggeredAt = e.now()
	e.mu.Unlock()
}

func (e *Emitter) publishConversation(ctx context.Context, eventType notify.EventType, userID string, res chatbot.StartResult) {
	payload := notify.ConversationPayload{
		ConversationID:   res.ConversationID,
		ConversationType: string(res.Type),
	}
	for _, m := range res.Messages {
		payload.Messages = append(payload.Messages, notify.MessagePayload{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	e.publish(ctx, eventType, userID, payload)
}

func (e *Emitter) publishReminder(ctx context.Context, userID string, res chatbot.ReminderResult) {
	eventType := notify.EventReminderCreated
	if res.ReminderType == dialogue.ReminderMentalHealthCheckin {
		eventType = notify.EventMentalHealthCheckin
	}
	e.publish(ctx, eventType, userID, notify.ReminderPayload{
		ReminderID:     res.ReminderID,
		ReminderType:   string(res.ReminderType),
		ConversationID: res.ConversationID,
		Title:          res.Title,
		Message:        res.Message,
	})
}

func (e *Emitter) publish(ctx context.Context, eventType notify.EventType, userID string, payload any) {
	event, err := notify.NewEvent(eventType, userID, payload)
	if err != nil {
		e.logger.Warn().Err(err).Str("event_type", string(eventType)).Msg("build event")
		return
	}
	e.publisher.Publish(ctx, event)
}
