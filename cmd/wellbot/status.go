package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
)

func statusCmd() *cobra.Command {
	var upcoming int

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show active users and the next scheduled trigger runs",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			stats, err := a.emitter.Stats(cmd.Context())
			if err != nil {
				return err
			}
			status := a.scheduler.Status()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Wellbot Status")
			fmt.Fprintln(out, strings.Repeat("=", 40))
			fmt.Fprintf(out, "  Database:     %s\n", a.cfg.DBDriver)
			fmt.Fprintf(out, "  Timezone:     %s\n", status.Timezone)
			fmt.Fprintf(out, "  Active users: %d\n", stats.ActiveUsers)
			fmt.Fprintf(out, "  Webhooks:     %d\n", len(a.cfg.NotifyWebhookURLs))

			fmt.Fprintln(out, "\nUpcoming runs:")
			for _, ts := range a.scheduler.Upcoming(upcoming) {
				fmt.Fprintf(out, "  %-26s %s  (%s)\n", ts.Name, ts.NextRun.Format(time.RFC1123), ts.Schedule)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&upcoming, "limit", "n", 10, "number of upcoming runs to list")
	return cmd
}
