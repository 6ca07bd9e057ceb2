// Package limit bounds LLM request and token throughput over a sliding
// time window.
//
// The sliding-window limiter tracks the timestamp and token cost of every
// admitted request within the trailing period and blocks callers until the
// window has room. A token-bucket variant backed by golang.org/x/time/rate
// is available for callers that prefer smoothed admission over exact
// window accounting.
package limit
