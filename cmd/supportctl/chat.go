package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/Mohamed711/customer-support-agent/supervisor"
)

var (
	chatThread      string
	chatMetricsAddr string
	chatVerbose     bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Chat with the orchestrator on a ticket thread",
	Long: `Read customer messages from stdin, one per line, and run each as a turn
on the thread named by --thread.

  /new <message>  start a new topic (the thread is classified again)
  /quit           leave the chat`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatThread, "thread", "T-001", "ticket id used as the thread id")
	chatCmd.Flags().StringVar(&chatMetricsAddr, "metrics-addr", "", "serve Prometheus metrics on this address (overrides metrics.addr)")
	chatCmd.Flags().BoolVarP(&chatVerbose, "verbose", "v", false, "print every message of each turn")
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	sys, err := openSystem(ctx)
	if err != nil {
		return err
	}
	defer sys.Close()

	addr := chatMetricsAddr
	if addr == "" {
		addr = sys.Config.Metrics.Addr
	}
	if addr != "" {
		stop := serveMetrics(addr, sys.Logger.Error)
		defer stop()
		printStatus(cmd.ErrOrStderr(), "•", "metrics on http://"+addr+"/metrics", color.FgBlue)
	}

	out := cmd.OutOrStdout()
	in := bufio.NewScanner(cmd.InOrStdin())
	prompt := userColor.Sprint("customer> ")
	fmt.Fprint(out, prompt)
	for in.Scan() {
		line := strings.TrimSpace(in.Text())
		var opts []supervisor.TurnOption
		switch {
		case line == "":
			fmt.Fprint(out, prompt)
			continue
		case line == "/quit":
			return nil
		case strings.HasPrefix(line, "/new "):
			line = strings.TrimSpace(strings.TrimPrefix(line, "/new "))
			opts = append(opts, supervisor.WithTopicChanged())
		}

		res, err := sys.RunTurn(ctx, chatThread, line, opts...)
		if res != nil {
			if chatVerbose {
				renderMessages(out, res.Messages)
			}
			renderResult(out, res)
		}
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			printStatus(cmd.ErrOrStderr(), "✗", err.Error(), color.FgRed)
		}
		fmt.Fprint(out, prompt)
	}
	return in.Err()
}

// serveMetrics exposes the default Prometheus registry and returns a
// function that shuts the listener down.
func serveMetrics(addr string, logError func(msg string, args ...any)) func() {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logError("supportctl.metrics.failed", "addr", addr, "error", err.Error())
		}
	}()
	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}
