package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"mindpulse.local/wellbot/internal/scheduler"
)

func triggerCmd() *cobra.Command {
	var group bool

	cmd := &cobra.Command{
		Use:   "trigger <name>",
		Short: "Run one trigger (or with --group a routine) over all active users",
		Long: `Run a trigger once, outside its schedule, and print the per-user results.

Examples:
  wellbot trigger water_reminder
  wellbot trigger --group morning`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			var out any
			if group {
				out, err = a.scheduler.RunGroup(cmd.Context(), args[0])
			} else {
				out, err = a.scheduler.RunTrigger(cmd.Context(), args[0])
			}
			if errors.Is(err, scheduler.ErrUnknownTrigger) || errors.Is(err, scheduler.ErrUnknownGroup) {
				return fmt.Errorf("%w (known triggers: %v)", err, a.scheduler.TriggerNames())
			}
			if err != nil {
				return err
			}

			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVarP(&group, "group", "g", false, "treat the argument as a routine group (morning, afternoon, evening)")
	return cmd
}
