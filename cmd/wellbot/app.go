package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"mindpulse.local/wellbot/internal/chatbot"
	"mindpulse.local/wellbot/internal/config"
	"mindpulse.local/wellbot/internal/emitter"
	"mindpulse.local/wellbot/internal/httpapi"
	"mindpulse.local/wellbot/internal/logging"
	"mindpulse.local/wellbot/internal/metrics"
	"mindpulse.local/wellbot/internal/notify"
	"mindpulse.local/wellbot/internal/scheduler"
	"mindpulse.local/wellbot/internal/store"
)

// app is the fully wired process shared by every subcommand.
type app struct {
	cfg        config.Config
	logger     zerolog.Logger
	metrics    *metrics.Metrics
	store      store.Store
	hub        *notify.Hub
	dispatcher *notify.Dispatcher
	chatbot    *chatbot.Service
	emitter    *emitter.Emitter
	scheduler  *scheduler.Scheduler
}

func loadConfig() (config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return config.Config{}, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func newApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	logger := logging.New(logging.Config{Level: cfg.LogLevel, Pretty: cfg.LogPretty})

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}

	st, err := store.NewGormStore(cfg.DBDriver, cfg.DBDSN, logging.Component(logger, "store"))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	m := metrics.New()
	hub := notify.NewHub(logger, m, httpapi.CheckWebSocketOrigin)

	subscribers := []notify.Subscriber{notify.NewLogSubscriber(logger), hub}
	webhookClient := &http.Client{Timeout: 10 * time.Second}
	for i, url := range cfg.NotifyWebhookURLs {
		name := fmt.Sprintf("webhook-%d", i+1)
		subscribers = append(subscribers, notify.NewWebhookSubscriber(name, url, notify.WithHTTPClient(webhookClient)))
	}
	dispatcher := notify.NewDispatcher(logger, subscribers,
		notify.WithRetry(cfg.NotifyRetryCount, cfg.NotifyRetryBackoff),
		notify.WithMetrics(m),
	)
	hub.Attach(dispatcher)

	svc := chatbot.New(st, nil,
		chatbot.WithPublisher(dispatcher),
		chatbot.WithMetrics(m),
		chatbot.WithLogger(logger),
	)
	em := emitter.New(svc, st,
		emitter.WithPublisher(dispatcher),
		emitter.WithMetrics(m),
		emitter.WithLogger(logger),
		emitter.WithConcurrency(cfg.EmitterConcurrency),
	)
	sched, err := scheduler.New(em, scheduler.DefaultTriggers(), scheduler.DefaultGroups(),
		scheduler.WithLocation(loc),
		scheduler.WithLogger(logger),
		scheduler.WithMetrics(m),
	)
	if err != nil {
		_ = st.Close()
		return nil, fmt.Errorf("build scheduler: %w", err)
	}

	return &app{
		cfg:        cfg,
		logger:     logger,
		metrics:    m,
		store:      st,
		hub:        hub,
		dispatcher: dispatcher,
		chatbot:    svc,
		emitter:    em,
		scheduler:  sched,
	}, nil
}

// close drains pending notifications before closing the store.
func (a *app) close() {
	a.scheduler.Stop()
	a.hub.Close()
	a.dispatcher.Wait()
	if err := a.store.Close(); err != nil {
		a.logger.Warn().Err(err).Msg("close store")
	}
}
