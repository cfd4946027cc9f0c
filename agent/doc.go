// Package agent contains the Agent and the prompt loop that turns a user
// prompt plus history into a finished response. The package focuses on three
// concerns:
//
//  1. Immutable agent configuration (New + functional options)
//  2. The per-request prompt loop: context assembly, backend calls, tool
//     dispatch and termination
//  3. Streaming delivery of partial output (StreamingResponse)
//
// Message order:
//
//	preamble -> static context -> dynamic context -> history -> prompt -> turn messages
//
// The loop states are AssemblingContext, AwaitingBackend,
// InterpretingResponse, DispatchingTools and Terminal. It stops on a final
// text answer, an exhausted turn budget, a cancellation or a backend error.
// Tool and context resolution failures are absorbed: the former become error
// text tool results, the latter drop their context block. Both are listed in
// Response.Errors.
//
// Execution Model:
//   - One goroutine per request runs the loop; turns are sequential
//   - Tool calls of one turn run concurrently; results keep call order
//   - Hooks run synchronously on the loop goroutine
//   - A CancelSignal is checked before every turn and also cancels the
//     request context, so in-flight calls can stop early
package agent
