package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// scenarios maps a scenario name to the seeded ticket it replays.
var scenarios = map[string]string{
	"resolved":  "T-001", // subscription question answered from the knowledge base
	"escalated": "T-003", // blocked account, high urgency, thin coverage
	"handoff":   "T-002", // refund request the resolver hands to a human
}

var scenarioVerbose bool

var scenarioCmd = &cobra.Command{
	Use:   "scenario <resolved|escalated|handoff>",
	Short: "Replay a seeded ticket through the orchestrator",
	Long: `Replay the opening customer message of a seeded ticket as one turn.

  resolved   T-001: cancel a subscription, answered from the knowledge base
  escalated  T-003: blocked account routed straight to a human
  handoff    T-002: refund request the resolver escalates`,
	Args:      cobra.ExactArgs(1),
	ValidArgs: scenarioNames(),
	RunE:      runScenario,
}

func init() {
	scenarioCmd.Flags().BoolVarP(&scenarioVerbose, "verbose", "v", false, "print every message of the turn")
}

func scenarioNames() []string {
	names := make([]string, 0, len(scenarios))
	for n := range scenarios {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

func runScenario(cmd *cobra.Command, args []string) error {
	ticketID, ok := scenarios[args[0]]
	if !ok {
		return fmt.Errorf("unknown scenario %q (want one of %s)", args[0], strings.Join(scenarioNames(), ", "))
	}
	ctx := cmd.Context()
	sys, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	tk, err := sys.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return fmt.Errorf("load ticket %s: %w", ticketID, err)
	}
	if len(tk.Messages) == 0 {
		return fmt.Errorf("ticket %s has no customer message", ticketID)
	}
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "%s %s (%s, %s)\n", color.New(color.Bold).Sprint("ticket"), tk.ID, tk.UserName, tk.Status)

	res, err := sys.RunTurn(ctx, ticketID, tk.Messages[0].Content)
	if scenarioVerbose && res != nil {
		renderMessages(out, res.Messages)
	}
	if err != nil {
		if res != nil {
			renderResult(out, res)
		}
		printStatus(out, "✗", err.Error(), color.FgRed)
		return err
	}
	renderResult(out, res)

	after, err := sys.Store.GetTicket(ctx, ticketID)
	if err != nil {
		return err
	}
	printStatus(out, "✓", fmt.Sprintf("ticket %s is now %s", after.ID, after.Status), color.FgGreen)
	return nil
}
