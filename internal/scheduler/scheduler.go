// Package scheduler fires the wellness triggers on their cron schedules and
// runs them on demand, singly or as grouped routines.
package scheduler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/emitter"
	"mindpulse.local/wellbot/internal/metrics"
)

var (
	ErrSchedulerAlreadyStarted = errors.New("scheduler already started")
	ErrUnknownTrigger          = errors.New("unknown trigger")
	ErrUnknownGroup            = errors.New("unknown routine group")
)

const (
	SourceSchedule = "schedule"
	SourceManual   = "manual"
)

type Scheduler struct {
	emitter  Emitter
	metrics  *metrics.Metrics
	logger   zerolog.Logger
	location *time.Location

	triggers []scheduledTrigger
	byName   map[string]int
	groups   map[string][]string

	mu             sync.Mutex
	lastFireMinute map[string]time.Time
	lastRuns       map[string]RunSummary
	running        bool
	stopCh         chan struct{}
	doneCh         chan struct{}

	now           func() time.Time
	tickerFactory func(interval time.Duration) schedulerTicker
}

type scheduledTrigger struct {
	trigger   Trigger
	expr      CronExpr
	scheduled bool
}

// RunSummary is the outcome of one trigger run. Results is nil when the run
// failed before fanning out.
type RunSummary struct {
	Trigger   string           `json:"trigger"`
	Source    string           `json:"source"`
	StartedAt time.Time        `json:"started_at"`
	Duration  time.Duration    `json:"duration"`
	Succeeded int              `json:"succeeded"`
	Failed    int              `json:"failed"`
	Error     string           `json:"error,omitempty"`
	Results   []emitter.Result `json:"results,omitempty"`
}

type TriggerStatus struct {
	Name          string     `json:"name"`
	Schedule      string     `json:"schedule,omitempty"`
	Description   string     `json:"description,omitempty"`
	NextRun       *time.Time `json:"next_run,omitempty"`
	LastRun       *time.Time `json:"last_run,omitempty"`
	LastSucceeded int        `json:"last_succeeded"`
	LastFailed    int        `json:"last_failed"`
}

type Status struct {
	Running         bool                `json:"running"`
	Timezone        string              `json:"timezone"`
	Now             time.Time           `json:"now"`
	LastTriggeredAt *time.Time          `json:"last_triggered_at,omitempty"`
	Triggers        []TriggerStatus     `json:"triggers"`
	Groups          map[string][]string `json:"groups"`
}

type Option func(*Scheduler)

func WithLogger(logger zerolog.Logger) Option {
	return func(s *Scheduler) { s.logger = logger.With().Str("component", "scheduler").Logger() }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Scheduler) { s.metrics = m }
}

// WithLocation sets the timezone schedules are evaluated in.
func WithLocation(loc *time.Location) Option {
	return func(s *Scheduler) {
		if loc != nil {
			s.location = loc
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) {
		if now != nil {
			s.now = now
		}
	}
}

// New compiles the trigger table. Groups may only name known triggers.
func New(em Emitter, triggers []Trigger, groups map[string][]string, opts ...Option) (*Scheduler, error) {
	if em == nil {
		panic("scheduler: emitter is required")
	}
	s := &Scheduler{
		emitter:        em,
		logger:         zerolog.Nop(),
		location:       time.UTC,
		byName:         make(map[string]int, len(triggers)),
		groups:         make(map[string][]string, len(groups)),
		lastFireMinute: make(map[string]time.Time),
		lastRuns:       make(map[string]RunSummary),
		now: func() time.Time {
			return time.Now().UTC()
		},
		tickerFactory: func(interval time.Duration) schedulerTicker {
			return newRealTicker(interval)
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	for _, trigger := range triggers {
		trigger.Name = strings.TrimSpace(trigger.Name)
		if trigger.Name == "" {
			return nil, fmt.Errorf("trigger with empty name")
		}
		if trigger.Fire == nil {
			return nil, fmt.Errorf("trigger %q has no action", trigger.Name)
		}
		if _, dup := s.byName[trigger.Name]; dup {
			return nil, fmt.Errorf("duplicate trigger %q", trigger.Name)
		}
		compiled := scheduledTrigger{trigger: trigger}
		if trigger.Schedule != "" {
			expr, err := ParseCronExpr(trigger.Schedule)
			if err != nil {
				return nil, fmt.Errorf("trigger %q: %w", trigger.Name, err)
			}
			compiled.expr = expr
			compiled.scheduled = true
		}
		s.byName[trigger.Name] = len(s.triggers)
		s.triggers = append(s.triggers, compiled)
	}

	for group, names := range groups {
		for _, name := range names {
			if _, ok := s.byName[name]; !ok {
				return nil, fmt.Errorf("group %q: %w: %s", group, ErrUnknownTrigger, name)
			}
		}
		s.groups[group] = append([]string(nil), names...)
	}
	return s, nil
}

func (s *Scheduler) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return ErrSchedulerAlreadyStarted
	}
	stopCh := make(chan struct{})
	doneCh := make(chan struct{})
	ticker := s.tickerFactory(time.Second)
	s.running = true
	s.stopCh = stopCh
	s.doneCh = doneCh
	s.mu.Unlock()

	s.logger.Info().Int("triggers", len(s.triggers)).Str("timezone", s.location.String()).Msg("scheduler started")
	go s.run(ctx, ticker, stopCh, doneCh)
	return nil
}

// Stop waits for an in-flight trigger run to finish.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return
	}
	stopCh := s.stopCh
	doneCh := s.doneCh
	s.running = false
	s.stopCh = nil
	s.doneCh = nil
	s.mu.Unlock()

	close(stopCh)
	<-doneCh
	s.logger.Info().Msg("scheduler stopped")
}

func (s *Scheduler) Running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.running
}

func (s *Scheduler) run(ctx context.Context, ticker schedulerTicker, stopCh <-chan struct{}, doneCh chan<- struct{}) {
	defer close(doneCh)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.mu.Lock()
			if s.stopCh == stopCh {
				s.running = false
				s.stopCh = nil
				s.doneCh = nil
			}
			s.mu.Unlock()
			s.logger.Info().Msg("scheduler stopped: context done")
			return
		case <-stopCh:
			return
		case <-ticker.Chan():
			s.evaluate(ctx)
		}
	}
}

// evaluate fires each trigger at most once per matching minute. Triggers run
// one after another in table order.
func (s *Scheduler) evaluate(ctx context.Context) {
	now := s.now().In(s.location)
	scheduledFor := now.Truncate(time.Minute)

	s.mu.Lock()
	candidates := make([]Trigger, 0, len(s.triggers))
	for _, st := range s.triggers {
		if !st.scheduled || !st.expr.Matches(now) {
			continue
		}
		name := st.trigger.Name
		if last, ok := s.lastFireMinute[name]; ok && last.Equal(scheduledFor) {
			continue
		}
		s.lastFireMinute[name] = scheduledFor
		candidates = append(candidates, st.trigger)
	}
	s.mu.Unlock()

	for _, trigger := range candidates {
		s.runTrigger(ctx, trigger, SourceSchedule)
	}
}

// RunTrigger runs one named trigger now, outside its schedule.
func (s *Scheduler) RunTrigger(ctx context.Context, name string) (RunSummary, error) {
	idx, ok := s.byName[strings.TrimSpace(name)]
	if !ok {
		return RunSummary{}, fmt.Errorf("%w: %s", ErrUnknownTrigger, name)
	}
	return s.runTrigger(ctx, s.triggers[idx].trigger, SourceManual), nil
}

// RunGroup runs every trigger of a routine group in order. A failing
// trigger does not stop the rest.
func (s *Scheduler) RunGroup(ctx context.Context, group string) ([]RunSummary, error) {
	names, ok := s.groups[strings.TrimSpace(group)]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownGroup, group)
	}
	out := make([]RunSummary, 0, len(names))
	for _, name := range names {
		out = append(out, s.runTrigger(ctx, s.triggers[s.byName[name]].trigger, SourceManual))
	}
	return out, nil
}

// runTrigger never propagates a failure: errors and panics are logged and
// recorded in the summary.
func (s *Scheduler) runTrigger(ctx context.Context, trigger Trigger, source string) (summary RunSummary) {
	summary = RunSummary{Trigger: trigger.Name, Source: source, StartedAt: s.now().UTC()}
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			summary.Error = fmt.Sprintf("panic: %v", r)
			s.logger.Error().Str("trigger", trigger.Name).Interface("panic", r).Msg("trigger panicked")
		}
		summary.Duration = time.Since(started)
		s.metrics.SchedulerRun(trigger.Name, summary.Duration.Seconds())

		s.mu.Lock()
		s.lastRuns[trigger.Name] = summary
		s.mu.Unlock()
	}()

	results, err := trigger.Fire(ctx, s.emitter)
	if err != nil {
		summary.Error = err.Error()
		s.logger.Error().Str("trigger", trigger.Name).Str("source", source).Err(err).Msg("trigger run failed")
		return summary
	}

	summary.Results = results
	for _, r := range results {
		if r.Success {
			summary.Succeeded++
		} else {
			summary.Failed++
		}
	}
	s.logger.Info().
		Str("trigger", trigger.Name).
		Str("source", source).
		Int("succeeded", summary.Succeeded).
		Int("failed", summary.Failed).
		Msg("trigger run finished")
	return summary
}

// Status reports every trigger with its next run computed from the current
// time, plus the outcome of its last run in this process.
func (s *Scheduler) Status() Status {
	now := s.now().In(s.location)

	s.mu.Lock()
	defer s.mu.Unlock()

	status := Status{
		Running:  s.running,
		Timezone: s.location.String(),
		Now:      now,
		Triggers: make([]TriggerStatus, 0, len(s.triggers)),
		Groups:   make(map[string][]string, len(s.groups)),
	}
	for _, st := range s.triggers {
		ts := TriggerStatus{
			Name:        st.trigger.Name,
			Schedule:    st.trigger.Schedule,
			Description: st.trigger.Description,
		}
		if st.scheduled {
			if next, ok := st.expr.Next(now); ok {
				ts.NextRun = &next
			}
		}
		if last, ok := s.lastRuns[st.trigger.Name]; ok {
			at := last.StartedAt
			ts.LastRun = &at
			ts.LastSucceeded = last.Succeeded
			ts.LastFailed = last.Failed
			if status.LastTriggeredAt == nil || at.After(*status.LastTriggeredAt) {
				latest := at
				status.LastTriggeredAt = &latest
			}
		}
		status.Triggers = append(status.Triggers, ts)
	}
	for group, names := range s.groups {
		status.Groups[group] = append([]string(nil), names...)
	}
	return status
}

// Upcoming lists the next limit scheduled runs across all triggers.
func (s *Scheduler) Upcoming(limit int) []TriggerStatus {
	var upcoming []TriggerStatus
	for _, ts := range s.Status().Triggers {
		if ts.NextRun != nil {
			upcoming = append(upcoming, ts)
		}
	}
	sort.SliceStable(upcoming, func(i, j int) bool {
		return upcoming[i].NextRun.Before(*upcoming[j].NextRun)
	})
	if limit > 0 && len(upcoming) > limit {
		upcoming = upcoming[:limit]
	}
	return upcoming
}

func (s *Scheduler) TriggerNames() []string {
	names := make([]string, 0, len(s.triggers))
	for _, st := range s.triggers {
		names = append(names, st.trigger.Name)
	}
	return names
}

type schedulerTicker interface {
	Chan() <-chan time.Time
	Stop()
}

type realTicker struct {
	ticker *time.Ticker
}

func newRealTicker(interval time.Duration) *realTicker {
	return &realTicker{ticker: time.NewTicker(interval)}
}

func (t *realTicker) Chan() <-chan time.Time {
	return t.ticker.C
}

func (t *realTicker) Stop() {
	t.ticker.Stop()
}
