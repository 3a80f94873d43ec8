package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	support "github.com/Mohamed711/customer-support-agent"
	"github.com/Mohamed711/customer-support-agent/config"
)

// version is stamped at build time with -ldflags "-X main.version=...".
var version = "dev"

var (
	cfgFile      string
	providerFlag string
	dsnFlag      string
)

var rootCmd = &cobra.Command{
	Use:   "supportctl",
	Short: "Multi-agent customer support orchestrator",
	Long: `supportctl routes customer messages on a support ticket through a
classifier, a knowledge retriever, a resolver and an escalation handler.

Configuration is read from --config (or ./support.yaml) and SUPPORT_*
environment variables. Use --provider mock to run offline with the scripted
demo model.`,
	Version:      version,
	SilenceUsage: true,
}

// Execute runs the root command
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		stop()
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default ./support.yaml)")
	rootCmd.PersistentFlags().StringVar(&providerFlag, "provider", "", "override model.provider (openai, anthropic, mock)")
	rootCmd.PersistentFlags().StringVar(&dsnFlag, "dsn", "", "override store.dsn")

	rootCmd.AddCommand(scenarioCmd)
	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(toolsCmd)
	rootCmd.AddCommand(mcpCmd)
}

// loadConfig reads the configuration and applies flag overrides.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, err
	}
	if providerFlag != "" {
		cfg.Model.Provider = providerFlag
	}
	if dsnFlag != "" {
		cfg.Store.DSN = dsnFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// openSystem loads the configuration and builds the orchestrator.
func openSystem(ctx context.Context) (*support.System, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}
	sys, err := support.New(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("build system: %w", err)
	}
	return sys, nil
}

func printStatus(w io.Writer, symbol, message string, colorAttr color.Attribute) {
	c := color.New(colorAttr)
	fmt.Fprintf(w, "%s %s\n", c.Sprint(symbol), message)
}
