package bokchoy

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestPromiseFulfill(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := NewPromise(func() (bool, string, error) {
		attempts++
		if attempts < 3 {
			return false, "", nil
		}
		return true, "ready", nil
	}, "three attempts", WithTryInterval(time.Millisecond))

	got, err := p.Fulfill()
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
	if got != "ready" {
		t.Errorf("got %q, want %q", got, "ready")
	}
	if attempts != 3 {
		t.Errorf("check ran %d times, want 3", attempts)
	}
}

func TestPromiseTryLimit(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := NewPromise(func() (bool, int, error) {
		attempts++
		return false, 0, nil
	}, "never satisfied",
		WithTryLimit(5),
		WithTryInterval(time.Millisecond))

	_, err := p.Fulfill()
	var bpe *BrokenPromiseError
	if !errors.As(err, &bpe) {
		t.Fatalf("got error %v, want *BrokenPromiseError", err)
	}
	if bpe.Description != "never satisfied" {
		t.Errorf("got description %q, want %q", bpe.Description, "never satisfied")
	}
	if attempts != 5 {
		t.Errorf("check ran %d times, want 5", attempts)
	}
}

func TestPromiseTimeoutBound(t *testing.T) {
	t.Parallel()

	const (
		interval = 10 * time.Millisecond
		timeout  = 50 * time.Millisecond
	)
	p := NewPromise(func() (bool, int, error) {
		return false, 0, nil
	}, "never satisfied",
		WithTryInterval(interval),
		WithTimeout(timeout))

	start := time.Now()
	_, err := p.Fulfill()
	elapsed := time.Since(start)

	var bpe *BrokenPromiseError
	if !errors.As(err, &bpe) {
		t.Fatalf("got error %v, want *BrokenPromiseError", err)
	}
	// The overshoot past the timeout is at most one interval plus scheduling
	// slop.
	if elapsed > timeout+interval+200*time.Millisecond {
		t.Errorf("polling took %v, want at most about %v", elapsed, timeout+interval)
	}
}

func TestPromiseZeroTimeoutChecksOnce(t *testing.T) {
	t.Parallel()

	attempts := 0
	p := NewPromise(func() (bool, int, error) {
		attempts++
		return false, 0, nil
	}, "never satisfied",
		WithTryInterval(time.Millisecond),
		WithTimeout(0))

	if _, err := p.Fulfill(); err == nil {
		t.Fatal("got nil error, want broken promise")
	}
	if attempts != 1 {
		t.Errorf("check ran %d times, want 1", attempts)
	}
}

func TestPromiseSingleTryNoSleep(t *testing.T) {
	t.Parallel()

	// A satisfied single-try promise must not wait out the default interval.
	p := NewPromise(func() (bool, int, error) {
		return true, 7, nil
	}, "immediate", WithTryLimit(1))

	start := time.Now()
	got, err := p.Fulfill()
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}
	if got != 7 {
		t.Errorf("got %d, want 7", got)
	}
	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("fulfillment took %v, want no polling delay", elapsed)
	}
}

func TestPromiseAbortsOnError(t *testing.T) {
	t.Parallel()

	boom := errors.New("boom")
	attempts := 0
	p := NewPromise(func() (bool, int, error) {
		attempts++
		return false, 0, boom
	}, "erroring", WithTryInterval(time.Millisecond))

	_, err := p.Fulfill()
	if !errors.Is(err, boom) {
		t.Fatalf("got error %v, want %v", err, boom)
	}
	if attempts != 1 {
		t.Errorf("check ran %d times, want 1", attempts)
	}
}

func TestPromiseContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	p := NewPromise(func() (bool, int, error) {
		cancel()
		return false, 0, nil
	}, "canceled", WithTryInterval(time.Minute))

	_, err := p.FulfillContext(ctx)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("got error %v, want %v", err, context.Canceled)
	}
}

func TestWait(t *testing.T) {
	t.Parallel()

	attempts := 0
	err := Wait(func() bool {
		attempts++
		return attempts >= 2
	}, "two attempts", WithTryInterval(time.Millisecond))
	if err != nil {
		t.Fatalf("got error %v, want nil", err)
	}

	err = Wait(func() bool { return false }, "never",
		WithTryLimit(2),
		WithTryInterval(time.Millisecond))
	var bpe *BrokenPromiseError
	if !errors.As(err, &bpe) {
		t.Fatalf("got error %v, want *BrokenPromiseError", err)
	}
}

func TestNoError(t *testing.T) {
	t.Parallel()

	flaky := errors.New("flaky")
	fatal := errors.New("fatal")
	isFlaky := func(err error) bool { return errors.Is(err, flaky) }

	tests := []struct {
		name    string
		err     error
		wantOK  bool
		wantErr error
	}{
		{"success", nil, true, nil},
		{"transient absorbed", flaky, false, nil},
		{"other propagates", fatal, false, fatal},
	}
	for _, test := range tests {
		t.Run(test.name, func(t *testing.T) {
			check := noError(func() (int, error) {
				return 42, test.err
			}, isFlaky)

			ok, _, err := check()
			if ok != test.wantOK {
				t.Errorf("got satisfied %t, want %t", ok, test.wantOK)
			}
			if !errors.Is(err, test.wantErr) {
				t.Errorf("got error %v, want %v", err, test.wantErr)
			}
		})
	}
}
