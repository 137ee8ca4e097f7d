package store

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindpulse.local/wellbot/internal/dialogue"
)

// Both implementations must satisfy the same contract.
func eachStore(t *testing.T, fn func(t *testing.T, s Store)) {
	t.Run("memory", func(t *testing.T) {
		s := NewMemoryStore()
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
	t.Run("gorm", func(t *testing.T) {
		s, err := NewGormStore("sqlite", filepath.Join(t.TempDir(), "wellbot.db"), zerolog.Nop())
		require.NoError(t, err)
		t.Cleanup(func() { _ = s.Close() })
		fn(t, s)
	})
}

var base = time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)

func TestUsers(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateUser(ctx, User{ID: "u-2", Name: "Bo", IsActive: true, CreatedAt: base.Add(time.Minute)})
		require.NoError(t, err)
		_, err = s.CreateUser(ctx, User{ID: "u-1", Name: "Ada", IsActive: true, CreatedAt: base})
		require.NoError(t, err)
		_, err = s.CreateUser(ctx, User{ID: "u-3", Name: "Cy", IsActive: false, CreatedAt: base})
		require.NoError(t, err)

		active, err := s.FindActiveUsers(ctx)
		require.NoError(t, err)
		require.Len(t, active, 2)
		assert.Equal(t, "u-1", active[0].ID)
		assert.Equal(t, "u-2", active[1].ID)

		count, err := s.CountActiveUsers(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, count)

		u, err := s.FindUser(ctx, "u-3")
		require.NoError(t, err)
		assert.False(t, u.IsActive)

		_, err = s.FindUser(ctx, "missing")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestConversationRoundTripAndOwnerScope(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		created, err := s.CreateConversation(ctx, Conversation{
			UserID:   "u-1",
			Type:     dialogue.ConversationBurnoutAssessment,
			Messages: []Message{{Role: RoleAssistant, Content: "hi", Timestamp: base}},
			Context:  dialogue.BurnoutContext{QuestionIndex: 1, Scores: map[int]int{0: 4}},
			Metadata: map[string]string{"source": "test"},
		})
		require.NoError(t, err)
		require.NotEmpty(t, created.ID)

		got, err := s.GetConversation(ctx, created.ID, "u-1")
		require.NoError(t, err)
		assert.Equal(t, dialogue.ConversationBurnoutAssessment, got.Type)
		assert.Equal(t, dialogue.BurnoutContext{QuestionIndex: 1, Scores: map[int]int{0: 4}}, got.Context)
		require.Len(t, got.Messages, 1)
		assert.Equal(t, "hi", got.Messages[0].Content)
		assert.Equal(t, "test", got.Metadata["source"])

		_, err = s.GetConversation(ctx, created.ID, "u-2")
		assert.ErrorIs(t, err, ErrNotFound)

		got.Messages = append(got.Messages, Message{Role: RoleUser, Content: "3", Timestamp: base})
		got.Context = dialogue.BurnoutContext{QuestionIndex: 2, Scores: map[int]int{0: 4, 1: 3}}
		got.IsCompleted = true
		require.NoError(t, s.SaveConversation(ctx, got))

		reloaded, err := s.GetConversation(ctx, created.ID, "u-1")
		require.NoError(t, err)
		assert.Len(t, reloaded.Messages, 2)
		assert.True(t, reloaded.IsCompleted)
		assert.Equal(t, 2, reloaded.Context.(dialogue.BurnoutContext).QuestionIndex)

		got.UserID = "u-2"
		assert.ErrorIs(t, s.SaveConversation(ctx, got), ErrNotFound)
	})
}

func TestCheckinsListNewestFirst(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		note := "long day"
		for i := 0; i < 3; i++ {
			_, err := s.CreateCheckin(ctx, CheckinRecord{
				UserID:    "u-1",
				Kind:      dialogue.CheckinEvening,
				MoodScore: i + 1,
				Note:      &note,
				Tags:      []string{"work"},
				CreatedAt: base.Add(time.Duration(i) * time.Hour),
			})
			require.NoError(t, err)
		}
		_, err := s.CreateCheckin(ctx, CheckinRecord{UserID: "u-2", MoodScore: 9, CreatedAt: base})
		require.NoError(t, err)

		recs, err := s.ListCheckins(ctx, RecordFilter{UserID: "u-1"})
		require.NoError(t, err)
		require.Len(t, recs, 3)
		assert.Equal(t, 3, recs[0].MoodScore)
		assert.Equal(t, 1, recs[2].MoodScore)
		require.NotNil(t, recs[0].Note)
		assert.Equal(t, "long day", *recs[0].Note)
		assert.Equal(t, []string{"work"}, recs[0].Tags)

		recs, err = s.ListCheckins(ctx, RecordFilter{UserID: "u-1", Since: base.Add(30 * time.Minute), Limit: 1})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, 3, recs[0].MoodScore)
	})
}

func TestBurnoutAssessmentsKeepMaps(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		_, err := s.CreateBurnoutAssessment(ctx, BurnoutAssessment{
			UserID:          "u-1",
			Scores:          map[int]int{0: 5, 7: 1},
			TotalScore:      6,
			AverageScore:    0.75,
			RiskLevel:       dialogue.RiskLow,
			Subscales:       map[string]int{dialogue.SubscaleDepersonalization: 2},
			Recommendations: []string{"rest"},
			CreatedAt:       base,
		})
		require.NoError(t, err)

		recs, err := s.ListBurnoutAssessments(ctx, RecordFilter{UserID: "u-1"})
		require.NoError(t, err)
		require.Len(t, recs, 1)
		assert.Equal(t, map[int]int{0: 5, 7: 1}, recs[0].Scores)
		assert.Equal(t, 2, recs[0].Subscales[dialogue.SubscaleDepersonalization])
		assert.Equal(t, []string{"rest"}, recs[0].Recommendations)
		assert.Equal(t, dialogue.RiskLow, recs[0].RiskLevel)
	})
}

func TestRemindersSaveAndFilter(t *testing.T) {
	eachStore(t, func(t *testing.T, s Store) {
		ctx := context.Background()
		rem, err := s.CreateReminder(ctx, Reminder{
			UserID:    "u-1",
			Title:     "Hydration",
			Type:      dialogue.ReminderDrinkWater,
			Content:   "drink",
			RemindAt:  base.Add(time.Hour),
			CreatedAt: base,
		})
		require.NoError(t, err)
		_, err = s.CreateReminder(ctx, Reminder{
			UserID:    "u-1",
			Title:     "Stretch",
			Type:      dialogue.ReminderStretchBreak,
			Content:   "stretch",
			RemindAt:  base.Add(2 * time.Hour),
			CreatedAt: base.Add(time.Minute),
		})
		require.NoError(t, err)

		done := base.Add(90 * time.Minute)
		rem.Content += "\n\nUser Response: done"
		rem.IsCompleted = true
		rem.CompletedAt = &done
		require.NoError(t, s.SaveReminder(ctx, rem))

		got, err := s.GetReminder(ctx, rem.ID, "u-1")
		require.NoError(t, err)
		assert.True(t, got.IsCompleted)
		require.NotNil(t, got.CompletedAt)
		assert.True(t, done.Equal(*got.CompletedAt))
		assert.Equal(t, "drink\n\nUser Response: done", got.Content)

		_, err = s.GetReminder(ctx, rem.ID, "u-2")
		assert.ErrorIs(t, err, ErrNotFound)

		completed := false
		open, err := s.ListReminders(ctx, ReminderFilter{UserID: "u-1", Completed: &completed})
		require.NoError(t, err)
		require.Len(t, open, 1)
		assert.Equal(t, dialogue.ReminderStretchBreak, open[0].Type)

		all, err := s.ListReminders(ctx, ReminderFilter{UserID: "u-1"})
		require.NoError(t, err)
		require.Len(t, all, 2)
		assert.Equal(t, "Stretch", all[0].Title)
	})
}

func TestMemoryStoreClosed(t *testing.T) {
	s := NewMemoryStore()
	require.NoError(t, s.Close())
	_, err := s.FindActiveUsers(context.Background())
	assert.Error(t, err)
}
