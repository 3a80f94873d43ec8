// Package core provides the foundational types shared by every layer of the
// support orchestrator:
//
//   - Content / Part: role based messages with text, tool calls and tool results
//   - Transcript: the append-only message log threaded through one turn
//   - StepLimiter: hard ceilings for agent loops and supervisor turns
//   - ToolContext: the scoped surface handed to tool implementations
//   - ModelError / StepLimitError: the two fatal failure classes of a turn
package core
