// Package testutil contains helper builders used across tests to reduce
// boilerplate when constructing transcripts (user turns, tool calls and
// their results, retrieval markers). Not intended for production usage.
package testutil
