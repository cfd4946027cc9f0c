// Package stream reduces the push-based event sequence of a streaming
// completion backend into a CompletionResponse while forwarding the events
// to the caller unchanged.
//
// Tool-call fragments are merged by index: ID and Name are taken from the
// last delta that carries them, Arguments fragments are concatenated in
// arrival order. A StreamError finalizes the outcome with that error but the
// text and tool calls accumulated so far are still returned.
package stream
