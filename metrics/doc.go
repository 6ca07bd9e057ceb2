// Package metrics carries per-call measurement state through the LLM
// middleware pipeline and aggregates it across calls.
//
// An Accumulator is created once per external call, threaded by pointer
// through every middleware layer, and merged into the Store after the call
// completes. Each layer may read keys written by inner layers and add its
// own; ownership stays with the single call goroutine for the duration of
// one traversal.
package metrics
