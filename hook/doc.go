// Package hook defines the observer protocol of the prompt loop.
//
// A Hook is notified before and after every backend call and around every
// tool call; the optional StreamHook extension additionally sees streamed
// deltas. Hooks receive the request's CancelSignal and may cancel the
// request cooperatively.
//
// Building blocks:
//   - NoOp: default, embeddable base
//   - Funcs: plain function adapter
//   - Multi: fan-out to several hooks in registration order
//   - LoggingHook: structured log line per lifecycle point
//   - Invoker: recovery and timeout wrapper used by the agent
package hook
