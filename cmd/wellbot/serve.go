package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"mindpulse.local/wellbot/internal/httpapi"
)

func serveCmd() *cobra.Command {
	var addr string
	var noScheduler bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API, websocket push and the trigger scheduler",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			if addr != "" {
				a.cfg.HTTPAddr = addr
			}
			return runServe(cmd.Context(), a, a.cfg.SchedulerEnabled && !noScheduler)
		},
	}

	cmd.Flags().StringVar(&addr, "addr", "", "listen address (overrides config)")
	cmd.Flags().BoolVar(&noScheduler, "no-scheduler", false, "serve the API without firing scheduled triggers")
	return cmd
}

func runServe(parent context.Context, a *app, withScheduler bool) error {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := signal.NotifyContext(parent, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if withScheduler {
		if err := a.scheduler.Start(ctx); err != nil {
			return fmt.Errorf("start scheduler: %w", err)
		}
	} else {
		a.logger.Info().Msg("scheduler disabled")
	}

	server := httpapi.NewServer(a.logger, a.cfg.HTTPAddr, httpapi.Deps{
		Chatbot:   a.chatbot,
		Emitter:   a.emitter,
		Scheduler: a.scheduler,
		Hub:       a.hub,
		Metrics:   a.metrics,
	})

	serverErrCh := make(chan error, 1)
	go func() {
		a.logger.Info().Str("addr", a.cfg.HTTPAddr).Msg("http api listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErrCh <- err
		}
	}()

	var serveErr error
	select {
	case <-ctx.Done():
	case serveErr = <-serverErrCh:
		a.logger.Error().Err(serveErr).Msg("http api failed")
		cancel()
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	a.hub.Close()
	if err := server.Shutdown(shutdownCtx); err != nil {
		a.logger.Warn().Err(err).Msg("http api shutdown")
	}
	a.logger.Info().Msg("stopped")
	return serveErr
}
