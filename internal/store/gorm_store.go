package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"

	dbpkg "mindpulse.local/wellbot/internal/db"
	"mindpulse.local/wellbot/internal/ids"
)

type GormStore struct {
	db  *gorm.DB
	now func() time.Time
}

func NewGormStore(driver, dsn string, logger zerolog.Logger) (*GormStore, error) {
	gormDB, err := dbpkg.OpenGorm(driver, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open gorm store: %w", err)
	}

	store := &GormStore{
		db:  gormDB,
		now: func() time.Time { return time.Now().UTC() },
	}
	if err := store.migrate(); err != nil {
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return store, nil
}

func (s *GormStore) migrate() error {
	return s.db.AutoMigrate(&userRow{}, &conversationRow{}, &checkinRow{}, &burnoutRow{}, &reminderRow{})
}

func (s *GormStore) FindActiveUsers(ctx context.Context) ([]User, error) {
	var rows []userRow
	if err := s.db.WithContext(ctx).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("find active users: %w", err)
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (s *GormStore) FindUser(ctx context.Context, userID string) (User, error) {
	var row userRow
	err := s.db.WithContext(ctx).Where("id = ?", userID).Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return User{}, ErrNotFound
		}
		return User{}, fmt.Errorf("find user: %w", err)
	}
	return row.toRecord(), nil
}

func (s *GormStore) CountActiveUsers(ctx context.Context) (int, error) {
	var count int64
	if err := s.db.WithContext(ctx).Model(&userRow{}).Where("is_active = ?", true).Count(&count).Error; err != nil {
		return 0, fmt.Errorf("count active users: %w", err)
	}
	return int(count), nil
}

func (s *GormStore) CreateUser(ctx context.Context, user User) (User, error) {
	if user.ID == "" {
		user.ID = ids.New()
	}
	if user.CreatedAt.IsZero() {
		user.CreatedAt = s.now()
	}
	row := userRowFromRecord(user)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return row.toRecord(), nil
}

func (s *GormStore) CreateConversation(ctx context.Context, conv Conversation) (Conversation, error) {
	now := s.now()
	if conv.ID == "" {
		conv.ID = ids.New()
	}
	if conv.CreatedAt.IsZero() {
		conv.CreatedAt = now
	}
	conv.UpdatedAt = now

	row, err := conversationRowFromRecord(conv)
	if err != nil {
		return Conversation{}, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Conversation{}, fmt.Errorf("create conversation: %w", err)
	}
	return cloneConversation(conv), nil
}

func (s *GormStore) GetConversation(ctx context.Context, conversationID, userID string) (Conversation, error) {
	var row conversationRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", conversationID, userID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Conversation{}, ErrNotFound
		}
		return Conversation{}, fmt.Errorf("get conversation: %w", err)
	}
	return row.toRecord()
}

func (s *GormStore) SaveConversation(ctx context.Context, conv Conversation) error {
	row, err := conversationRowFromRecord(conv)
	if err != nil {
		return err
	}
	res := s.db.WithContext(ctx).Model(&conversationRow{}).
		Where("id = ? AND user_id = ?", conv.ID, conv.UserID).
		Updates(map[string]any{
			"messages_json": row.MessagesJSON,
			"context_json":  row.ContextJSON,
			"metadata_json": row.MetadataJSON,
			"is_completed":  row.IsCompleted,
			"updated_at":    s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("save conversation: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) CreateCheckin(ctx context.Context, rec CheckinRecord) (CheckinRecord, error) {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	row, err := checkinRowFromRecord(rec)
	if err != nil {
		return CheckinRecord{}, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return CheckinRecord{}, fmt.Errorf("create checkin: %w", err)
	}
	return cloneCheckin(rec), nil
}

func (s *GormStore) ListCheckins(ctx context.Context, filter RecordFilter) ([]CheckinRecord, error) {
	var rows []checkinRow
	if err := s.recordQuery(ctx, &checkinRow{}, filter).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list checkins: %w", err)
	}
	out := make([]CheckinRecord, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *GormStore) CreateBurnoutAssessment(ctx context.Context, rec BurnoutAssessment) (BurnoutAssessment, error) {
	if rec.ID == "" {
		rec.ID = ids.New()
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = s.now()
	}
	row, err := burnoutRowFromRecord(rec)
	if err != nil {
		return BurnoutAssessment{}, err
	}
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return BurnoutAssessment{}, fmt.Errorf("create burnout assessment: %w", err)
	}
	return cloneBurnout(rec), nil
}

func (s *GormStore) ListBurnoutAssessments(ctx context.Context, filter RecordFilter) ([]BurnoutAssessment, error) {
	var rows []burnoutRow
	if err := s.recordQuery(ctx, &burnoutRow{}, filter).Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list burnout assessments: %w", err)
	}
	out := make([]BurnoutAssessment, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *GormStore) recordQuery(ctx context.Context, model any, filter RecordFilter) *gorm.DB {
	query := s.db.WithContext(ctx).Model(model)
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if !filter.Since.IsZero() {
		query = query.Where("created_at >= ?", filter.Since)
	}
	if !filter.Until.IsZero() {
		query = query.Where("created_at < ?", filter.Until)
	}
	query = query.Order("created_at DESC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}
	return query
}

func (s *GormStore) CreateReminder(ctx context.Context, rem Reminder) (Reminder, error) {
	now := s.now()
	if rem.ID == "" {
		rem.ID = ids.New()
	}
	if rem.CreatedAt.IsZero() {
		rem.CreatedAt = now
	}
	rem.UpdatedAt = now
	row := reminderRowFromRecord(rem)
	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return Reminder{}, fmt.Errorf("create reminder: %w", err)
	}
	return cloneReminder(rem), nil
}

func (s *GormStore) GetReminder(ctx context.Context, reminderID, userID string) (Reminder, error) {
	var row reminderRow
	err := s.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", reminderID, userID).
		Take(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return Reminder{}, ErrNotFound
		}
		return Reminder{}, fmt.Errorf("get reminder: %w", err)
	}
	return row.toRecord(), nil
}

func (s *GormStore) SaveReminder(ctx context.Context, rem Reminder) error {
	res := s.db.WithContext(ctx).Model(&reminderRow{}).
		Where("id = ? AND user_id = ?", rem.ID, rem.UserID).
		Updates(map[string]any{
			"title":        rem.Title,
			"content":      rem.Content,
			"remind_at":    rem.RemindAt,
			"is_completed": rem.IsCompleted,
			"completed_at": rem.CompletedAt,
			"updated_at":   s.now(),
		})
	if res.Error != nil {
		return fmt.Errorf("save reminder: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *GormStore) ListReminders(ctx context.Context, filter ReminderFilter) ([]Reminder, error) {
	query := s.db.WithContext(ctx).Model(&reminderRow{})
	if filter.UserID != "" {
		query = query.Where("user_id = ?", filter.UserID)
	}
	if filter.Type != "" {
		query = query.Where("type = ?", string(filter.Type))
	}
	if filter.Completed != nil {
		query = query.Where("is_completed = ?", *filter.Completed)
	}
	query = query.Order("created_at DESC, id ASC")
	if filter.Limit > 0 {
		query = query.Limit(filter.Limit)
	}

	var rows []reminderRow
	if err := query.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("list reminders: %w", err)
	}
	out := make([]Reminder, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toRecord())
	}
	return out, nil
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return fmt.Errorf("get sql db: %w", err)
	}
	return sqlDB.Close()
}
