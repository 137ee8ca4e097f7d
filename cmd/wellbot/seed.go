package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"mindpulse.local/wellbot/internal/store"
)

var demoUsers = []store.User{
	{Name: "Ada Developer", Email: "ada@example.com", Role: "developer", IsActive: true},
	{Name: "Linus Builder", Email: "linus@example.com", Role: "developer", IsActive: true},
	{Name: "Grace Therapist", Email: "grace@example.com", Role: "therapist", IsActive: true},
	{Name: "Dormant Account", Email: "dormant@example.com", Role: "developer", IsActive: false},
}

func seedCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Create demo users when the user table is empty",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp()
			if err != nil {
				return err
			}
			defer a.close()

			ctx := cmd.Context()
			existing, err := a.store.FindActiveUsers(ctx)
			if err != nil {
				return err
			}
			if len(existing) > 0 {
				fmt.Fprintf(cmd.OutOrStdout(), "%d active users present, nothing seeded\n", len(existing))
				return nil
			}

			for _, u := range demoUsers {
				created, err := a.store.CreateUser(ctx, u)
				if err != nil {
					return fmt.Errorf("seed %s: %w", u.Email, err)
				}
				fmt.Fprintf(cmd.OutOrStdout(), "created %s (%s)\n", created.ID, created.Name)
			}
			return nil
		},
	}
}
