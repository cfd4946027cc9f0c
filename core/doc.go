// Package core provides the foundational domain types shared by every agentrig
// package. It defines:
//
//   - Messages (role + ordered heterogeneous parts: text, tool calls, tool results)
//   - Usage (token accounting per backend call and per request)
//   - CancelSignal (cooperative, externally settable cancellation flag)
//   - ToolContext (scoped execution surface handed to tool implementations)
//   - TurnLimiter (bounded number of backend calls per request)
//   - The error taxonomy used by backends, tools and the prompt loop
//
// Backends, tools and hooks depend on these types only and never import the
// agent package.
package core
