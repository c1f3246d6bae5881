// retry.go - Retryable execution context and the single-retry executor loop

package mongoexec

import (
	"context"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// retryState is the shared core of a retryable context. Borrowed views share
// it with the owner, so retry accounting and lease release stay single even
// when a context is handed down through nested executors.
type retryState struct {
	binding        Binding
	pref           *readpref.ReadPref
	channel        Channel
	retryRequested bool
	retried        bool
	released       bool
	id             uuid.UUID
	log            *zap.Logger
}

// RetryContext holds one leased channel for the duration of a logical
// operation, shared across the bounded retry sequence. A context is either
// owning (it acquired the lease and must release it) or borrowed (a
// non-owning view whose Close is a no-op toward the lease).
//
// A context is not safe for concurrent use; the channel lease belongs to a
// single caller at a time.
type RetryContext struct {
	state  *retryState
	owning bool
}

// NewRetryContext selects a server through the binding and leases a channel
// to it, returning an owning context. If the binding cannot produce a
// channel the call fails with a *ServerSelectionError; that failure is not
// retried here.
func NewRetryContext(ctx context.Context, binding Binding, pref *readpref.ReadPref, retryRequested bool) (*RetryContext, error) {
	if binding == nil {
		return nil, &ArgumentError{Name: "binding"}
	}
	if pref == nil {
		pref = readpref.Primary()
	}
	ch, err := binding.GetChannel(ctx, pref)
	if err != nil {
		return nil, asServerSelectionError(err)
	}
	return &RetryContext{
		state: &retryState{
			binding:        binding,
			pref:           pref,
			channel:        ch,
			retryRequested: retryRequested,
			id:             uuid.New(),
			log:            defaultLogger(),
		},
		owning: true,
	}, nil
}

func asServerSelectionError(err error) error {
	if isCancellation(err) {
		return err
	}
	if _, ok := err.(*ServerSelectionError); ok {
		return err
	}
	return &ServerSelectionError{Err: err}
}

// Borrow returns a non-owning view of the context. The view shares the
// channel and the retry accounting with the owner, so passing it into a
// nested executor can never double-release the lease or permit a second
// retry. Borrowing a borrowed context yields another equivalent view.
func (rc *RetryContext) Borrow() *RetryContext {
	return &RetryContext{state: rc.state, owning: false}
}

// Channel returns the currently leased channel.
func (rc *RetryContext) Channel() Channel {
	return rc.state.channel
}

// RetryRequested reports whether the caller permitted a retry.
func (rc *RetryContext) RetryRequested() bool {
	return rc.state.retryRequested
}

// ID identifies this logical operation execution in log output.
func (rc *RetryContext) ID() uuid.UUID {
	return rc.state.id
}

// mayRetry reports whether one more attempt is permitted. A context allows
// at most one retry over its whole lifetime, across every executor it is
// shared with.
func (rc *RetryContext) mayRetry() bool {
	return rc.state.retryRequested && !rc.state.retried
}

// replace releases the possibly-broken lease and acquires a fresh channel
// through the same binding, consuming the single retry permit.
func (rc *RetryContext) replace(ctx context.Context) error {
	s := rc.state
	s.retried = true
	if s.channel != nil && !s.released {
		s.channel.Release()
		s.released = true
	}
	ch, err := s.binding.GetChannel(ctx, s.pref)
	if err != nil {
		return asServerSelectionError(err)
	}
	s.channel = ch
	s.released = false
	s.log.Debug("retrying on fresh channel",
		zap.String("execution_id", s.id.String()),
		zap.String("server", ch.Description().Address))
	return nil
}

// Close releases the channel lease. Only the owning context releases;
// borrowed views are a no-op. Idempotent: the lease is released exactly once
// regardless of how many times Close runs or on which exit path.
func (rc *RetryContext) Close() {
	if !rc.owning {
		return
	}
	s := rc.state
	if s.released || s.channel == nil {
		return
	}
	s.channel.Release()
	s.released = true
}

// executeRetryable runs attempt against the context's channel, retrying at
// most once on the transient error class when the context permits it. The
// retry runs on a freshly acquired channel; if both attempts fail the second
// failure is surfaced. Cancellation and non-transient errors pass through
// untouched.
func executeRetryable[T any](ctx context.Context, rc *RetryContext, attempt func(Channel) (T, error)) (T, error) {
	res, err := attempt(rc.Channel())
	if err == nil {
		return res, nil
	}
	var zero T
	if !rc.mayRetry() || !IsRetryableRead(err) || ctx.Err() != nil {
		return zero, err
	}
	rc.state.log.Debug("transient failure, attempting retry",
		zap.String("execution_id", rc.state.id.String()),
		zap.Error(err))
	if rerr := rc.replace(ctx); rerr != nil {
		return zero, rerr
	}
	return attempt(rc.Channel())
}
