// Package mux multiplexes many LLM calls across a bounded worker pool.
//
// A Session owns the pool: Submit places labeled requests on a bounded
// input queue (blocking the submitter when full, which is the backpressure
// throttle), workers invoke the wrapped handler, and a single dispatcher
// goroutine delivers each response or error to the caller's handler,
// correlated by request ID. Response order across different IDs is not
// guaranteed; per-ID correlation is the only ordering contract.
//
// Completion and embedding traffic share this one implementation: the
// request struct carries either message history or embedding input.
package mux

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/BaSui01/graphrag/llm"
	"github.com/BaSui01/graphrag/metrics"
)

var (
	// ErrClosed is returned by Submit after the session is closed.
	ErrClosed = errors.New("mux: session closed")
	// ErrEmptyRequestID is returned by Submit when no request ID was
	// supplied; the ID is required for response correlation.
	ErrEmptyRequestID = errors.New("mux: request id is required")
)

// ResponseHandler receives one response or error per submitted request.
// The dispatcher invokes it serially: calls for different requests are
// never concurrent with each other. A panicking handler is not guarded and
// terminates dispatch without draining remaining responses.
type ResponseHandler func(id string, resp *llm.Response, err error)

// Options configures a session.
type Options struct {
	// Concurrency is the worker count. Defaults to 4.
	Concurrency int
	// QueueLimit bounds the input queue; a full queue blocks Submit.
	// Defaults to 1024 when zero or negative.
	QueueLimit int
}

const (
	defaultConcurrency = 4
	defaultQueueLimit  = 1024
)

type request struct {
	id  string
	req *llm.Request
}

type response struct {
	id   string
	resp *llm.Response
	err  error
}

// Session is a scoped run of the multiplexer. Open it, submit requests,
// then Close to drain and join all goroutines deterministically.
type Session struct {
	handler llm.Handler
	respond ResponseHandler

	ctx    context.Context
	input  chan request
	output chan response

	wg           sync.WaitGroup
	dispatchDone chan struct{}
	closed       atomic.Bool
	closeOnce    sync.Once

	store  *metrics.Store
	logger *zap.Logger
	start  time.Time

	submitted atomic.Int64
	completed atomic.Int64
	failed    atomic.Int64
}

// Open starts the worker pool and the response dispatcher.
//
// Cancelling ctx is the hard-interrupt path: workers and the dispatcher
// observe it between envelopes and exit early without a graceful drain.
// store may be nil; when set, the session's total wall-clock duration is
// recorded on Close regardless of how the scope exited.
func Open(ctx context.Context, handler llm.Handler, respond ResponseHandler, store *metrics.Store, logger *zap.Logger, opts Options) (*Session, error) {
	if handler == nil {
		return nil, errors.New("mux: handler is required")
	}
	if respond == nil {
		return nil, errors.New("mux: response handler is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	concurrency := opts.Concurrency
	if concurrency <= 0 {
		concurrency = defaultConcurrency
	}
	queueLimit := opts.QueueLimit
	if queueLimit <= 0 {
		queueLimit = defaultQueueLimit
	}

	s := &Session{
		handler:      handler,
		respond:      respond,
		ctx:          ctx,
		input:        make(chan request, queueLimit),
		output:       make(chan response, queueLimit+concurrency),
		dispatchDone: make(chan struct{}),
		store:        store,
		logger:       logger,
		start:        time.Now(),
	}

	for i := 0; i < concurrency; i++ {
		s.wg.Add(1)
		go s.worker()
	}
	go s.dispatcher()

	s.logger.Debug("mux session opened",
		zap.Int("concurrency", concurrency),
		zap.Int("queue_limit", queueLimit),
	)
	return s, nil
}

// Submit enqueues one labeled request. It blocks while the input queue is
// full, so unbounded concurrent submission cannot exhaust memory. Submit
// must not be called concurrently with Close.
func (s *Session) Submit(id string, req *llm.Request) error {
	if id == "" {
		return ErrEmptyRequestID
	}
	if s.closed.Load() {
		return ErrClosed
	}

	select {
	case s.input <- request{id: id, req: req}:
		s.submitted.Add(1)
		return nil
	case <-s.ctx.Done():
		return s.ctx.Err()
	}
}

func (s *Session) worker() {
	defer s.wg.Done()

	for {
		select {
		case env, ok := <-s.input:
			if !ok {
				return
			}
			out := s.process(env)
			select {
			case s.output <- out:
			case <-s.ctx.Done():
				return
			}
		case <-s.ctx.Done():
			return
		}
	}
}

// process invokes the wrapped handler and converts any failure, panics
// included, into envelope data. One failing request can never crash a
// worker or poison the others.
func (s *Session) process(env request) (out response) {
	out.id = env.id
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("handler panicked", zap.String("request_id", env.id), zap.Any("panic", r))
			out.resp = nil
			out.err = &llm.PanicError{Value: r}
		}
		if out.err != nil {
			s.failed.Add(1)
		} else {
			s.completed.Add(1)
		}
	}()

	out.resp, out.err = s.handler(s.ctx, env.req)
	return out
}

func (s *Session) dispatcher() {
	defer close(s.dispatchDone)

	for {
		select {
		case out, ok := <-s.output:
			if !ok {
				return
			}
			s.respond(out.id, out.resp, out.err)
		case <-s.ctx.Done():
			return
		}
	}
}

// Close drains and joins the pool: the input channel closes (observed by
// workers only after every envelope enqueued before it), workers join, the
// output channel closes, the dispatcher joins. Idempotent. The session
// duration is recorded whether or not the work inside the scope failed.
func (s *Session) Close() {
	s.closeOnce.Do(func() {
		s.closed.Store(true)
		close(s.input)
		s.wg.Wait()
		close(s.output)
		<-s.dispatchDone

		elapsed := time.Since(s.start)
		if s.store != nil {
			s.store.RecordSessionDuration(elapsed)
		}
		s.logger.Debug("mux session closed",
			zap.Duration("elapsed", elapsed),
			zap.Int64("submitted", s.submitted.Load()),
			zap.Int64("completed", s.completed.Load()),
			zap.Int64("failed", s.failed.Load()),
		)
	})
}

// Stats reports session counters.
type Stats struct {
	Submitted int64 `json:"submitted"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Queued    int   `json:"queued"`
}

// Stats returns a snapshot of the session counters.
func (s *Session) Stats() Stats {
	return Stats{
		Submitted: s.submitted.Load(),
		Completed: s.completed.Load(),
		Failed:    s.failed.Load(),
		Queued:    len(s.input),
	}
}
