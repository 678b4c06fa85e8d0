package bokchoy

import (
	"context"
	"time"
)

// Polling defaults.
const (
	// DefaultTryInterval is the default delay between promise checks.
	DefaultTryInterval = 500 * time.Millisecond

	// DefaultTimeout is the default wall-clock bound on a promise.
	DefaultTimeout = 30 * time.Second
)

// CheckFunc reports whether the awaited condition holds and produces the
// promise's value. It is called repeatedly until it is satisfied or the
// promise's bounds are exhausted, so it must be safe to call more than once.
// A non-nil error aborts polling immediately; check functions that want
// retry-on-error semantics should absorb expected transient errors and
// report not-satisfied instead (see Query.Execute).
type CheckFunc[T any] func() (bool, T, error)

// Promise polls a check function until the condition it describes is
// satisfied, blocking the calling goroutine between attempts.
//
// Polling stops at the first of: the check is satisfied, the try limit is
// exhausted, or the timeout elapses. An unsatisfied promise produces a
// *BrokenPromiseError embedding the description.
//
// Note that a try limit does not disable the timeout; if many attempts are
// wanted, raise the timeout as well.
type Promise[T any] struct {
	check CheckFunc[T]
	desc  string
	promiseSettings
}

// promiseSettings holds the polling bounds, split out so that functional
// options stay non-generic.
type promiseSettings struct {
	tryLimit    int // 0 means unlimited
	tryInterval time.Duration
	timeout     time.Duration
}

// PromiseOption is a promise polling option.
type PromiseOption func(*promiseSettings)

// WithTryLimit bounds the number of check attempts. A limit of 0 (the
// default) means attempts are bounded only by the timeout.
func WithTryLimit(n int) PromiseOption {
	return func(s *promiseSettings) {
		s.tryLimit = n
	}
}

// WithTryInterval sets the delay between check attempts.
func WithTryInterval(d time.Duration) PromiseOption {
	return func(s *promiseSettings) {
		s.tryInterval = d
	}
}

// WithTimeout sets the wall-clock bound on polling.
func WithTimeout(d time.Duration) PromiseOption {
	return func(s *promiseSettings) {
		s.timeout = d
	}
}

// NewPromise configures a promise around check. The description is used in
// the broken-promise error to make failures diagnosable.
func NewPromise[T any](check CheckFunc[T], desc string, opts ...PromiseOption) *Promise[T] {
	p := &Promise[T]{
		check: check,
		desc:  desc,
		promiseSettings: promiseSettings{
			tryInterval: DefaultTryInterval,
			timeout:     DefaultTimeout,
		},
	}
	for _, o := range opts {
		o(&p.promiseSettings)
	}
	return p
}

// String returns the promise's description.
func (p *Promise[T]) String() string {
	return p.desc
}

// Fulfill evaluates the promise and returns its value, or a
// *BrokenPromiseError if the promise's bounds were exhausted first.
func (p *Promise[T]) Fulfill() (T, error) {
	return p.FulfillContext(context.Background())
}

// FulfillContext is Fulfill bounded additionally by ctx; cancellation is
// observed between attempts.
//
// The check always runs at least once, even with a zero timeout.
func (p *Promise[T]) FulfillContext(ctx context.Context) (T, error) {
	var zero T
	start := time.Now()

	for tries := 1; ; tries++ {
		ok, v, err := p.check()
		if err != nil {
			return zero, err
		}
		if ok {
			return v, nil
		}

		if p.tryLimit > 0 && tries >= p.tryLimit {
			break
		}

		select {
		case <-ctx.Done():
			return zero, ctx.Err()
		case <-time.After(p.tryInterval):
		}

		if time.Since(start) >= p.timeout {
			break
		}
	}

	return zero, &BrokenPromiseError{Description: p.desc}
}

// Wait blocks until check reports true. It is the boolean-only convenience
// form of a promise, for conditions that carry no payload.
func Wait(check func() bool, desc string, opts ...PromiseOption) error {
	return WaitContext(context.Background(), check, desc, opts...)
}

// WaitContext is Wait bounded additionally by ctx.
func WaitContext(ctx context.Context, check func() bool, desc string, opts ...PromiseOption) error {
	p := NewPromise(func() (bool, struct{}, error) {
		return check(), struct{}{}, nil
	}, desc, opts...)
	_, err := p.FulfillContext(ctx)
	return err
}

// noError adapts a fallible producer into a check function: the check is
// satisfied only when fn returns without error. Errors matched by transient
// are absorbed and reported as not-yet-satisfied so the promise retries;
// any other error aborts polling.
func noError[T any](fn func() (T, error), transient func(error) bool) CheckFunc[T] {
	return func() (bool, T, error) {
		v, err := fn()
		if err != nil {
			var zero T
			if transient != nil && transient(err) {
				return false, zero, nil
			}
			return false, zero, err
		}
		return true, v, nil
	}
}
