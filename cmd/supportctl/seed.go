package main

import (
	"fmt"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Mohamed711/customer-support-agent/store"
)

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Create the schema and load the demo fixture",
	Long: `Open the configured store, run migrations and load the built-in fixture:
CultPass users, subscriptions, experiences, reservations, knowledge articles
and the demo tickets. Existing rows with the same ids are replaced.`,
	RunE: runSeed,
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	st, err := store.Open(ctx, cfg.Store.Driver, cfg.Store.DSN)
	if err != nil {
		return err
	}
	defer st.Close()

	f := store.DefaultFixture()
	if err := st.Seed(ctx, f); err != nil {
		return fmt.Errorf("seed: %w", err)
	}
	out := cmd.OutOrStdout()
	printStatus(out, "✓", fmt.Sprintf("seeded %s (%s)", cfg.Store.DSN, cfg.Store.Driver), color.FgGreen)
	fmt.Fprintf(out, "  %d users, %d tickets, %d experiences, %d reservations, %d articles\n",
		len(f.Users), len(f.Tickets), len(f.Experiences), len(f.Reservations), len(f.Articles))
	return nil
}
