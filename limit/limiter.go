package limit

import "context"

// Limiter grants scoped admission for one request of a given token cost.
//
// Acquire blocks the caller until the window admits the request, then
// returns nil; the caller's protected section runs after admission with no
// explicit release step. A non-nil error means the wait was cancelled and
// nothing was admitted.
type Limiter interface {
	Acquire(ctx context.Context, tokens int) error
}
