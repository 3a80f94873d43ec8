// Package agent contains the agent runtime and the four specialist agents of
// the support orchestrator.
//
// The Runtime drives one bounded ReAct loop: it sends the transcript to the
// model with a tool subset bound, executes the requested tool calls in order,
// appends every message to the shared transcript and stops on a plain answer,
// on a stop condition or when a step ceiling is crossed. A run ends with one
// of two continuation policies:
//
//   - PolicyDone returns the final assistant text.
//   - PolicyExtract runs one more schema constrained pass and decodes the
//     result into a typed value.
//
// The specialists are thin wrappers that fix a prompt, a tool subset and a
// policy:
//
//   - Classifier labels issue type, urgency and sentiment.
//   - Retriever searches the knowledge base and scores its confidence.
//   - Resolver answers the customer or emits the escalation sentinel.
//   - Escalation writes the hand-off note and the customer notice.
//
// Agents hold no conversation state of their own. The transcript and the turn
// limiter are passed in explicitly through a Task.
package agent
