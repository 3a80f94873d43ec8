// Package logging provides a minimal logging interface and adapters for the
// support orchestrator.
//
// The Logger interface defines the standard leveled methods (Debug, Info, Warn,
// Error) taking a dotted event name plus key/value pairs. This package includes:
//
//   - Logger interface for dependency injection
//   - SlogAdapter wrapping Go's structured logging
//   - ZapAdapter wrapping a go.uber.org/zap SugaredLogger
//   - NoOpLogger for silent operation (testing, minimal setups)
//
// Usage:
//
//	logger, err := logging.New(logging.Config{Level: "info", Format: "json", Backend: "zap"})
//	sup := supervisor.New(agents, store, func(o *supervisor.Options) { o.Logger = logger })
package logging
