package main

import (
	"fmt"
	"sort"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/Mohamed711/customer-support-agent/agent"
	"github.com/Mohamed711/customer-support-agent/gateway"
)

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the gateway tools and which agent may call them",
	RunE:  runTools,
}

func runTools(cmd *cobra.Command, _ []string) error {
	// The catalogue does not depend on data; a nil store is never called.
	gw := gateway.New(nil, nil)
	owners := map[string][]string{}
	for name, tools := range map[string][]string{
		"classifier": agent.ClassifierTools,
		"retriever":  agent.RetrieverTools,
		"resolver":   agent.ResolverTools,
		"escalation": agent.EscalationTools,
	} {
		for _, t := range tools {
			owners[t] = append(owners[t], name)
		}
	}

	out := cmd.OutOrStdout()
	bold := color.New(color.Bold)
	for _, name := range gw.Registry().Names() {
		t, _ := gw.Registry().Get(name)
		agents := owners[name]
		sort.Strings(agents)
		fmt.Fprintf(out, "%s  %s\n", bold.Sprint(name), systemColor.Sprint("["+strings.Join(agents, ", ")+"]"))
		fmt.Fprintf(out, "    %s\n", t.Description())
	}
	return nil
}
