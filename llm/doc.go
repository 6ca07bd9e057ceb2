// Package llm is the model-invocation core of graphrag.
//
// A base Handler performs one completion or embedding call. The pipeline in
// this package wraps it with cross-cutting policies in a fixed order, from
// innermost to outermost: error injection, metrics, rate limiting, retry,
// caching, request counting, logging. Cheap observable layers wrap the
// expensive stateful ones, so a cache hit is visible as a successful attempt
// but never pays rate-limit or retry overhead, and retries re-enter rate
// limiting so backoff pressure compounds correctly with throughput limits.
//
// The mux subpackage runs many wrapped calls concurrently through a bounded
// worker pool with correlation-ID based dispatch.
package llm
