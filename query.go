package bokchoy

import (
	"strings"

	"golang.org/x/exp/slices"
)

// SeedFunc produces the current ordered sequence of values a query operates
// on. It is invoked afresh on every execution, so results legitimately track
// the live page as it changes.
type SeedFunc[T any] func() ([]T, error)

// Transform rewrites the sequence produced by a query's seed. An error
// aborts the execution attempt; transient driver errors surfaced this way
// are retried by Execute.
type Transform[T any] func([]T) ([]T, error)

// Query is a lazy, immutable chain of transforms over a seeded sequence.
//
// Chaining operations never mutate the receiver; each returns a new Query
// sharing the seed with the transform list extended. Nothing touches the
// seed until Execute or Results runs the chain.
type Query[T any] struct {
	seed       SeedFunc[T]
	transforms []Transform[T]
	desc       string
	descStack  []string
	transient  func(error) bool

	cache  []T
	cached bool
}

// NewQuery configures a query around seed. The description is used in retry
// diagnostics.
func NewQuery[T any](seed SeedFunc[T], desc string) *Query[T] {
	return &Query[T]{seed: seed, desc: desc}
}

// clone copies the query without its materialized results.
func (q *Query[T]) clone() *Query[T] {
	return &Query[T]{
		seed:       q.seed,
		transforms: slices.Clone(q.transforms),
		desc:       q.desc,
		descStack:  slices.Clone(q.descStack),
		transient:  q.transient,
	}
}

// AbsorbErrors returns a copy of the query whose executions retry errors
// matched by classify instead of propagating them. Element queries built by
// Q and NewElementQuery already absorb transient WebDriver errors.
func (q *Query[T]) AbsorbErrors(classify func(error) bool) *Query[T] {
	c := q.clone()
	c.transient = classify
	return c
}

// Transform returns a copy of the query with fn appended to the chain.
func (q *Query[T]) Transform(fn Transform[T], desc string) *Query[T] {
	c := q.clone()
	c.transforms = append(c.transforms, fn)
	c.descStack = append(c.descStack, desc)
	return c
}

// Filter returns a copy of the query keeping only values matching pred.
func (q *Query[T]) Filter(pred func(T) bool, desc string) *Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		out := make([]T, 0, len(xs))
		for _, x := range xs {
			if pred(x) {
				out = append(out, x)
			}
		}
		return out, nil
	}, "filter("+desc+")")
}

// First returns a copy of the query that selects only the first value.
// An empty sequence stays empty; it is never an error.
func (q *Query[T]) First() *Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		if len(xs) == 0 {
			return nil, nil
		}
		return xs[:1], nil
	}, "first")
}

// Nth returns a copy of the query that selects the value at index (0-based).
// An out-of-range or negative index yields an empty result.
func (q *Query[T]) Nth(index int) *Query[T] {
	return q.Transform(func(xs []T) ([]T, error) {
		if index < 0 || index >= len(xs) {
			return nil, nil
		}
		return xs[index : index+1], nil
	}, "nth")
}

// run performs a single execution attempt: seed the data, then apply the
// transforms in order.
func (q *Query[T]) run() ([]T, error) {
	xs, err := q.seed()
	if err != nil {
		return nil, err
	}
	for _, t := range q.transforms {
		xs, err = t(xs)
		if err != nil {
			return nil, err
		}
	}
	return xs, nil
}

// Execute runs the query, retrying per the supplied options. Only errors
// matched by the query's absorb classifier are retried; on exhaustion the
// promise's broken-state failure is returned.
func (q *Query[T]) Execute(opts ...PromiseOption) ([]T, error) {
	all := append([]PromiseOption{WithTryLimit(5)}, opts...)
	return NewPromise(noError(q.run, q.transient), "executing "+q.String(), all...).Fulfill()
}

// Results executes the query with default retry parameters and remembers
// the materialized list: repeated access returns the same values without
// re-querying. Deriving a new query via chaining always re-seeds.
func (q *Query[T]) Results() ([]T, error) {
	if !q.cached {
		xs, err := q.Execute()
		if err != nil {
			return nil, err
		}
		q.cache, q.cached = xs, true
	}
	return q.cache, nil
}

// Reset clears the materialized results so the next Results call re-runs
// the query.
func (q *Query[T]) Reset() {
	q.cache, q.cached = nil, false
}

// Present reports whether the query returns any results.
func (q *Query[T]) Present() (bool, error) {
	xs, err := q.Results()
	if err != nil {
		return false, err
	}
	return len(xs) > 0, nil
}

// Len returns the number of results.
func (q *Query[T]) Len() (int, error) {
	xs, err := q.Results()
	if err != nil {
		return 0, err
	}
	return len(xs), nil
}

// String renders the chain for diagnostics, e.g. "q(css='#foo').first".
func (q *Query[T]) String() string {
	return strings.Join(append([]string{q.desc}, q.descStack...), ".")
}

// derive builds a type-changing query around fn, preserving the source
// query's description and error classifier.
func derive[T, U any](q *Query[T], fn func([]T) ([]U, error), desc string) *Query[U] {
	m := NewQuery(func() ([]U, error) {
		xs, err := q.run()
		if err != nil {
			return nil, err
		}
		return fn(xs)
	}, q.desc)
	m.descStack = append(slices.Clone(q.descStack), desc)
	m.transient = q.transient
	return m
}

// Map derives a query with every value passed through fn.
func Map[T, U any](q *Query[T], fn func(T) U, desc string) *Query[U] {
	return MapErr(q, func(x T) (U, error) {
		return fn(x), nil
	}, desc)
}

// MapErr is Map for fallible mappers, such as element accessors that can
// fail against a live page. Errors abort the execution attempt and are
// retried when the query's classifier recognizes them as transient.
func MapErr[T, U any](q *Query[T], fn func(T) (U, error), desc string) *Query[U] {
	return derive(q, func(xs []T) ([]U, error) {
		out := make([]U, len(xs))
		for i, x := range xs {
			u, err := fn(x)
			if err != nil {
				return nil, err
			}
			out[i] = u
		}
		return out, nil
	}, "map("+desc+")")
}

// FlatMap derives a query with every value expanded through fn and the
// resulting sequences concatenated in order.
func FlatMap[T, U any](q *Query[T], fn func(T) []U, desc string) *Query[U] {
	return FlatMapErr(q, func(x T) ([]U, error) {
		return fn(x), nil
	}, desc)
}

// FlatMapErr is FlatMap for fallible expanders.
func FlatMapErr[T, U any](q *Query[T], fn func(T) ([]U, error), desc string) *Query[U] {
	return derive(q, func(xs []T) ([]U, error) {
		var out []U
		for _, x := range xs {
			us, err := fn(x)
			if err != nil {
				return nil, err
			}
			out = append(out, us...)
		}
		return out, nil
	}, "flatMap("+desc+")")
}
