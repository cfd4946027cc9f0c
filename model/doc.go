// Package model defines the provider‑agnostic abstractions and concrete
// helpers for interacting with completion backends inside agentrig.
//
// Core goals:
//   - Offer blocking (Complete) and streaming (Stream) calls behind one interface
//   - Normalize tool / function call representation (ToolDefinition, core.ToolCall)
//   - Keep request/response shapes minimal and transport independent
//   - Facilitate lightweight mocking for tests (MockModel)
//
// Providers (OpenAI, Anthropic, Gemini) implement CompletionModel in their own
// sub packages so higher layers (agent, stream) remain decoupled from vendor SDKs.
package model
