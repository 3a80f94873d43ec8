// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with language models inside the support agents.
//
// Core goals:
//   - Unify streaming + non‑streaming generation behind a single interface
//   - Normalize tool / function call representation (ToolDefinition)
//   - Offer schema constrained extraction (Extract) on top of Generate
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic) implement the Model interface from this
// package so the agent runtime stays decoupled from vendor SDKs.
package model
