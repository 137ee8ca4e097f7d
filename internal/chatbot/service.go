// Package chatbot owns the conversation lifecycle: it starts scripted
// conversations, feeds user input through the dialogue engine, persists the
// log and writes the derived record when a flow completes.
package chatbot

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/metrics"
	"mindpulse.local/wellbot/internal/notify"
	"mindpulse.local/wellbot/internal/store"
)

// Store is the persistence the service needs.
type Store interface {
	store.UserDirectory
	store.ConversationStore
	store.CheckinStore
	store.BurnoutStore
	store.ReminderStore
}

type Service struct {
	store     Store
	engine    *dialogue.Engine
	publisher notify.Publisher
	metrics   *metrics.Metrics
	logger    zerolog.Logger
	now       func() time.Time
}

type Option func(*Service)

func WithPublisher(p notify.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Service) { s.logger = logger.With().Str("component", "chatbot").Logger() }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

func New(st Store, engine *dialogue.Engine, opts ...Option) *Service {
	if st == nil {
		panic("chatbot: store is required")
	}
	if engine == nil {
		engine = dialogue.NewEngine(dialogue.DefaultScript())
	}
	s := &Service{
		store:     st,
		engine:    engine,
		publisher: notify.Discard{},
		logger:    zerolog.Nop(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}
	return s
}

func (s *Service) Engine() *dialogue.Engine {
	return s.engine
}

type StartResult struct {
	ConversationID string                    `json:"conversation_id"`
	Type           dialogue.ConversationType `json:"conversation_type"`
	Messages       []store.Message           `json:"messages"`
}

// MessageResult carries the full message log after the step. Result is set
// only on the step that completed the flow.
type MessageResult struct {
	ConversationID string          `json:"conversation_id"`
	Reply          string          `json:"reply"`
	Messages       []store.Message `json:"messages"`
	IsCompleted    bool            `json:"is_completed"`
	Result         dialogue.Result `json:"result,omitempty"`
	RecordID       string          `json:"record_id,omitempty"`
}

func (s *Service) StartCheckin(ctx context.Context, userID string, kind dialogue.CheckinKind) (StartResult, error) {
	return s.StartConversation(ctx, userID, kind.ConversationType())
}

func (s *Service) StartBurnoutAssessment(ctx context.Context, userID string) (StartResult, error) {
	return s.StartConversation(ctx, userID, dialogue.ConversationBurnoutAssessment)
}

// StartConversation opens a conversation of convType for an active user.
// Reminder-response conversations are only created by CreateReminder.
func (s *Service) StartConversation(ctx context.Context, userID string, convType dialogue.ConversationType) (StartResult, error) {
	if _, err := s.activeUser(ctx, userID); err != nil {
		return StartResult{}, err
	}

	var opening dialogue.Opening
	switch {
	case convType.IsCheckin():
		kind, _ := dialogue.CheckinKindFor(convType)
		opening = s.engine.OpenCheckin(kind)
	case convType == dialogue.ConversationBurnoutAssessment:
		opening = s.engine.OpenBurnout()
	case convType == dialogue.ConversationGeneralChat:
		opening = s.engine.OpenGeneral()
	case convType == dialogue.ConversationReminderResponse:
		return StartResult{}, fmt.Errorf("%w: reminder conversations start from a reminder", ErrInvalidState)
	default:
		return StartResult{}, fmt.Errorf("%w: unsupported conversation type %q", ErrInvalidState, convType)
	}

	conv, err := s.createConversation(ctx, userID, convType, opening, nil)
	if err != nil {
		return StartResult{}, err
	}
	return StartResult{ConversationID: conv.ID, Type: conv.Type, Messages: conv.Messages}, nil
}

func (s *Service) createConversation(ctx context.Context, userID string, convType dialogue.ConversationType, opening dialogue.Opening, metadata map[string]string) (store.Conversation, error) {
	now := s.now()
	messages := make([]store.Message, 0, len(opening.Messages))
	for _, text := range opening.Messages {
		messages = append(messages, store.Message{Role: store.RoleAssistant, Content: text, Timestamp: now})
	}

	conv, err := s.store.CreateConversation(ctx, store.Conversation{
		UserID:   userID,
		Type:     convType,
		Messages: messages,
		Context:  opening.Context,
		Metadata: metadata,
	})
	if err != nil {
		return store.Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	s.metrics.ConversationStarted(string(convType))
	return conv, nil
}

// ProcessMessage advances a conversation by one user message. The log always
// grows by exactly two entries. When the step completes a checkin or burnout
// flow the derived record is written once; if that write fails the completed
// result is still returned together with an error wrapping
// ErrRecordNotSaved.
func (s *Service) ProcessMessage(ctx context.Context, conversationID, userID, text string) (MessageResult, error) {
	conv, err := s.loadOpenConversation(ctx, conversationID, userID)
	if err != nil {
		return MessageResult{}, err
	}
	if conv.Type == dialogue.ConversationReminderResponse {
		return s.respond(ctx, conv, text)
	}

	reply, err := s.engine.Advance(conv.Type, conv.Context, text)
	if err != nil {
		return MessageResult{}, fmt.Errorf("advance conversation %s: %w", conv.ID, err)
	}

	conv = s.applyReply(conv, text, reply)
	if err := s.store.SaveConversation(ctx, conv); err != nil {
		return MessageResult{}, fmt.Errorf("save conversation: %w", err)
	}
	s.recordStep(conv, reply)

	result := MessageResult{
		ConversationID: conv.ID,
		Reply:          reply.Prompt,
		Messages:       conv.Messages,
		IsCompleted:    conv.IsCompleted,
	}
	s.publishMessages(ctx, conv)

	if !reply.Completed || reply.Result == nil {
		return result, nil
	}
	result.Result = reply.Result

	recordID, err := s.writeDerivedRecord(ctx, conv.UserID, reply.Result)
	if err != nil {
		s.metrics.RecordWriteFailed(string(conv.Type))
		s.logger.Error().
			Err(err).
			Str("conversation_id", conv.ID).
			Str("user_id", conv.UserID).
			Str("conversation_type", string(conv.Type)).
			Msg("derived record write failed")
		return result, fmt.Errorf("%w: %w", ErrRecordNotSaved, err)
	}
	result.RecordID = recordID
	return result, nil
}

func (s *Service) loadOpenConversation(ctx context.Context, conversationID, userID string) (store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
		return store.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	if conv.IsCompleted {
		return store.Conversation{}, fmt.Errorf("%w: conversation %s is already completed", ErrInvalidState, conv.ID)
	}
	return conv, nil
}

func (s *Service) applyReply(conv store.Conversation, input string, reply dialogue.Reply) store.Conversation {
	now := s.now()
	conv.Messages = append(conv.Messages,
		store.Message{Role: store.RoleUser, Content: input, Timestamp: now},
		store.Message{Role: store.RoleAssistant, Content: reply.Prompt, Timestamp: now},
	)
	conv.Context = reply.Next
	if reply.Completed {
		conv.IsCompleted = true
	}
	return conv
}

func (s *Service) recordStep(conv store.Conversation, reply dialogue.Reply) {
	outcome := "advanced"
	if reply.Completed {
		outcome = "completed"
		s.metrics.ConversationCompleted(string(conv.Type))
	}
	s.metrics.MessageProcessed(string(conv.Type), outcome)
}

func (s *Service) writeDerivedRecord(ctx context.Context, userID string, result dialogue.Result) (string, error) {
	switch r := result.(type) {
	case dialogue.CheckinResult:
		rec, err := s.store.CreateCheckin(ctx, store.CheckinRecord{
			UserID:              userID,
			Kind:                r.Kind,
			MoodScore:           r.MoodScore,
			EnergyLevel:         r.EnergyLevel,
			StressLevel:         r.StressLevel,
			ProductivityFeeling: r.ProductivityFeeling,
			Note:                r.Note,
			Tags:                r.Tags,
			Summary:             r.Summary,
			CreatedAt:           s.now(),
		})
		if err != nil {
			return "", fmt.Errorf("create checkin: %w", err)
		}
		return rec.ID, nil
	case dialogue.BurnoutResult:
		rec, err := s.store.CreateBurnoutAssessment(ctx, store.BurnoutAssessment{
			UserID:          userID,
			Scores:          r.Scores,
			TotalScore:      r.TotalScore,
			AverageScore:    r.AverageScore,
			RiskLevel:       r.RiskLevel,
			Subscales:       r.Subscales,
			Recommendations: r.Recommendations,
			CreatedAt:       s.now(),
		})
		if err != nil {
			return "", fmt.Errorf("create burnout assessment: %w", err)
		}
		return rec.ID, nil
	default:
		return "", nil
	}
}

func (s *Service) GetConversation(ctx context.Context, conversationID, userID string) (store.Conversation, error) {
	conv, err := s.store.GetConversation(ctx, conversationID, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.Conversation{}, fmt.Errorf("conversation %s: %w", conversationID, ErrNotFound)
		}
		return store.Conversation{}, fmt.Errorf("load conversation: %w", err)
	}
	return conv, nil
}

func (s *Service) activeUser(ctx context.Context, userID string) (store.User, error) {
	user, err := s.store.FindUser(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return store.User{}, fmt.Errorf("user %s: %w", userID, ErrNotFound)
		}
		return store.User{}, fmt.Errorf("find user: %w", err)
	}
	if !user.IsActive {
		return store.User{}, fmt.Errorf("user %s: %w", userID, ErrInactiveUser)
	}
	return user, nil
}

// publishMessages pushes the two entries appended by the last step.
func (s *Service) publishMessages(ctx context.Context, conv store.Conversation) {
	tail := conv.Messages
	if len(tail) > 2 {
		tail = tail[len(tail)-2:]
	}
	payload := notify.ConversationPayload{
		ConversationID:   conv.ID,
		ConversationType: string(conv.Type),
		IsCompleted:      conv.IsCompleted,
	}
	for _, m := range tail {
		payload.Messages = append(payload.Messages, notify.MessagePayload{Role: string(m.Role), Content: m.Content, Timestamp: m.Timestamp})
	}
	event, err := notify.NewEvent(notify.EventChatMessage, conv.UserID, payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("build chat event")
		return
	}
	s.publisher.Publish(ctx, event)
}
