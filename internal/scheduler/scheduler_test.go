package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mindpulse.local/wellbot/internal/dialogue"
	"mindpulse.local/wellbot/internal/emitter"
	"mindpulse.local/wellbot/internal/metrics"
)

type recordingEmitter struct {
	mu     sync.Mutex
	calls  []string
	failOn string
	notify chan struct{}
}

func newRecordingEmitter() *recordingEmitter {
	return &recordingEmitter{notify: make(chan struct{}, 64)}
}

func (e *recordingEmitter) record(call string) ([]emitter.Result, error) {
	e.mu.Lock()
	e.calls = append(e.calls, call)
	fail := e.failOn == call
	e.mu.Unlock()
	e.notify <- struct{}{}

	if fail {
		return nil, errors.New("directory offline")
	}
	return []emitter.Result{
		{UserID: "u-1", Success: true, ConversationID: "c-1"},
		{UserID: "u-2", Success: false, Error: "boom"},
	}, nil
}

func (e *recordingEmitter) TriggerCheckins(_ context.Context, kind dialogue.CheckinKind) ([]emitter.Result, error) {
	return e.record("checkin:" + string(kind))
}

func (e *recordingEmitter) TriggerReminders(_ context.Context, reminderType dialogue.ReminderType) ([]emitter.Result, error) {
	return e.record("reminder:" + string(reminderType))
}

func (e *recordingEmitter) TriggerBurnoutAssessments(context.Context) ([]emitter.Result, error) {
	return e.record("burnout")
}

func (e *recordingEmitter) Calls() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]string(nil), e.calls...)
}

func (e *recordingEmitter) waitForCount(t *testing.T, want int, timeout time.Duration) {
	t.Helper()
	deadline := time.After(timeout)
	for len(e.Calls()) < want {
		select {
		case <-e.notify:
		case <-deadline:
			t.Fatalf("timed out waiting for %d calls, got %v", want, e.Calls())
		}
	}
}

type manualTicker struct {
	ch chan time.Time
}

func (t *manualTicker) Chan() <-chan time.Time { return t.ch }
func (t *manualTicker) Stop()                  {}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Set(v time.Time) {
	c.mu.Lock()
	c.now = v
	c.mu.Unlock()
}

func newTestScheduler(t *testing.T, em Emitter, clock *fakeClock, opts ...Option) (*Scheduler, *manualTicker) {
	t.Helper()
	opts = append([]Option{WithClock(clock.Now)}, opts...)
	s, err := New(em, DefaultTriggers(), DefaultGroups(), opts...)
	require.NoError(t, err)
	ticker := &manualTicker{ch: make(chan time.Time, 8)}
	s.tickerFactory = func(time.Duration) schedulerTicker { return ticker }
	return s, ticker
}

func TestSchedulerFiresOncePerMinute(t *testing.T) {
	em := newRecordingEmitter()
	// Monday 08:00:05.
	clock := &fakeClock{now: time.Date(2026, time.February, 16, 8, 0, 5, 0, time.UTC)}
	s, ticker := newTestScheduler(t, em, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	ticker.ch <- time.Now()
	em.waitForCount(t, 1, 2*time.Second)

	clock.Set(time.Date(2026, time.February, 16, 8, 0, 40, 0, time.UTC))
	ticker.ch <- time.Now()
	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, []string{"checkin:morning"}, em.Calls())

	// 09:00 matches only the water reminder.
	clock.Set(time.Date(2026, time.February, 16, 9, 0, 0, 0, time.UTC))
	ticker.ch <- time.Now()
	em.waitForCount(t, 2, 2*time.Second)
	assert.Equal(t, []string{"checkin:morning", "reminder:drink_water"}, em.Calls())
}

func TestSchedulerFiresAllMatchingTriggersInTableOrder(t *testing.T) {
	em := newRecordingEmitter()
	// Friday 16:00 matches screen break, deep breathing, stretch break and
	// the weekly mental health checkin.
	clock := &fakeClock{now: time.Date(2026, time.February, 13, 16, 0, 0, 0, time.UTC)}
	s, ticker := newTestScheduler(t, em, clock)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	ticker.ch <- time.Now()
	em.waitForCount(t, 4, 2*time.Second)
	assert.Equal(t, []string{
		"reminder:screen_time_break",
		"reminder:deep_breathing",
		"reminder:stretch_break",
		"reminder:mental_health_checkin",
	}, em.Calls())
}

func TestSchedulerEvaluatesInConfiguredTimezone(t *testing.T) {
	loc, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	em := newRecordingEmitter()
	// 13:00 UTC is 08:00 in New York on a winter Monday.
	clock := &fakeClock{now: time.Date(2026, time.February, 16, 13, 0, 0, 0, time.UTC)}
	s, ticker := newTestScheduler(t, em, clock, WithLocation(loc))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, s.Start(ctx))
	defer s.Stop()

	ticker.ch <- time.Now()
	em.waitForCount(t, 1, 2*time.Second)
	assert.Equal(t, []string{"checkin:morning"}, em.Calls())
}

func TestSchedulerStartTwice(t *testing.T) {
	s, _ := newTestScheduler(t, newRecordingEmitter(), &fakeClock{now: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, s.Start(ctx))
	defer s.Stop()
	assert.True(t, s.Running())
	assert.ErrorIs(t, s.Start(ctx), ErrSchedulerAlreadyStarted)
}

func TestSchedulerStartCancelledContext(t *testing.T) {
	s, _ := newTestScheduler(t, newRecordingEmitter(), &fakeClock{now: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, s.Start(ctx), context.Canceled)
	assert.False(t, s.Running())
}

func TestSchedulerClearsRunningWhenContextEnds(t *testing.T) {
	s, _ := newTestScheduler(t, newRecordingEmitter(), &fakeClock{now: time.Now()})
	ctx, cancel := context.WithCancel(context.Background())
	require.NoError(t, s.Start(ctx))
	require.True(t, s.Running())

	cancel()
	require.Eventually(t, func() bool { return !s.Running() }, 2*time.Second, 10*time.Millisecond)
	assert.False(t, s.Status().Running)

	s.Stop()
	require.NoError(t, s.Start(context.Background()))
	assert.True(t, s.Running())
	s.Stop()
	assert.False(t, s.Running())
}

func TestRunTriggerSummarizesResults(t *testing.T) {
	m := metrics.New()
	em := newRecordingEmitter()
	s, _ := newTestScheduler(t, em, &fakeClock{now: time.Date(2026, time.February, 16, 10, 0, 0, 0, time.UTC)}, WithMetrics(m))

	summary, err := s.RunTrigger(context.Background(), "burnout_assessment")
	require.NoError(t, err)
	assert.Equal(t, SourceManual, summary.Source)
	assert.Equal(t, 1, summary.Succeeded)
	assert.Equal(t, 1, summary.Failed)
	assert.Len(t, summary.Results, 2)
	assert.Equal(t, 1, testutil.CollectAndCount(m.SchedulerRunDuration))

	_, err = s.RunTrigger(context.Background(), "nap_time")
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}

func TestRunGroupContinuesPastFailure(t *testing.T) {
	em := newRecordingEmitter()
	em.failOn = "reminder:drink_water"
	s, _ := newTestScheduler(t, em, &fakeClock{now: time.Date(2026, time.February, 16, 7, 0, 0, 0, time.UTC)})

	summaries, err := s.RunGroup(context.Background(), "morning")
	require.NoError(t, err)
	require.Len(t, summaries, 3)
	assert.Empty(t, summaries[0].Error)
	assert.Equal(t, "directory offline", summaries[1].Error)
	assert.Nil(t, summaries[1].Results)
	assert.Equal(t, "posture_check_reminder", summaries[2].Trigger)
	assert.Equal(t, []string{"checkin:morning", "reminder:drink_water", "reminder:posture_check"}, em.Calls())

	_, err = s.RunGroup(context.Background(), "midnight")
	assert.ErrorIs(t, err, ErrUnknownGroup)
}

type panickyEmitter struct{ recordingEmitter }

func (*panickyEmitter) TriggerBurnoutAssessments(context.Context) ([]emitter.Result, error) {
	panic("nil store")
}

func TestRunTriggerRecoversPanic(t *testing.T) {
	s, _ := newTestScheduler(t, &panickyEmitter{}, &fakeClock{now: time.Now()})

	summary, err := s.RunTrigger(context.Background(), "burnout_assessment")
	require.NoError(t, err)
	assert.Contains(t, summary.Error, "nil store")
}

func TestStatusReportsNextAndLastRuns(t *testing.T) {
	em := newRecordingEmitter()
	// Friday 16:30.
	clock := &fakeClock{now: time.Date(2026, time.February, 13, 16, 30, 0, 0, time.UTC)}
	s, _ := newTestScheduler(t, em, clock)

	_, err := s.RunTrigger(context.Background(), "evening_checkin")
	require.NoError(t, err)

	status := s.Status()
	assert.False(t, status.Running)
	assert.Equal(t, "UTC", status.Timezone)
	require.NotNil(t, status.LastTriggeredAt)
	require.Len(t, status.Triggers, len(DefaultTriggers()))

	byName := map[string]TriggerStatus{}
	for _, ts := range status.Triggers {
		byName[ts.Name] = ts
	}
	require.NotNil(t, byName["midday_checkin"].NextRun)
	assert.Equal(t, time.Date(2026, time.February, 16, 13, 0, 0, 0, time.UTC), byName["midday_checkin"].NextRun.UTC())
	assert.Equal(t, time.Date(2026, time.February, 20, 16, 0, 0, 0, time.UTC), byName["mental_health_checkin"].NextRun.UTC())
	assert.Nil(t, byName["burnout_assessment"].NextRun)
	require.NotNil(t, byName["evening_checkin"].LastRun)
	assert.Equal(t, 1, byName["evening_checkin"].LastSucceeded)
	assert.Equal(t, []string{"evening_checkin"}, status.Groups["evening"])

	upcoming := s.Upcoming(2)
	require.Len(t, upcoming, 2)
	assert.Equal(t, "water_reminder", upcoming[0].Name)
	assert.Equal(t, "screen_break_reminder", upcoming[1].Name)
}

func TestNewRejectsBadTables(t *testing.T) {
	fire := func(context.Context, Emitter) ([]emitter.Result, error) { return nil, nil }

	_, err := New(newRecordingEmitter(), []Trigger{{Name: "x", Schedule: "bad", Fire: fire}}, nil)
	assert.Error(t, err)

	_, err = New(newRecordingEmitter(), []Trigger{{Name: "x", Fire: fire}, {Name: "x", Fire: fire}}, nil)
	assert.Error(t, err)

	_, err = New(newRecordingEmitter(), []Trigger{{Name: "x", Fire: fire}}, map[string][]string{"g": {"y"}})
	assert.ErrorIs(t, err, ErrUnknownTrigger)
}
