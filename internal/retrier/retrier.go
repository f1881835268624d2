package retrier

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/pkg/errors"
)

// jitterFraction is the ± share of each delay that is randomized.
const jitterFraction = 0.1

// Retrier runs a call again after a growing delay until it succeeds.
type Retrier struct {
	base       time.Duration
	ceiling    time.Duration
	factor     float64
	maxRetries int
	onRetry    func(retry int, delay time.Duration, err error)
}

// Option configures a Retrier.
type Option func(*Retrier)

// WithInitialInterval sets the delay before the first retry.
func WithInitialInterval(d time.Duration) Option {
	return func(r *Retrier) { r.base = d }
}

// WithMaxInterval caps every delay.
func WithMaxInterval(d time.Duration) Option {
	return func(r *Retrier) { r.ceiling = d }
}

// WithMultiplier sets how much each delay grows over the previous one.
func WithMultiplier(m float64) Option {
	return func(r *Retrier) { r.factor = m }
}

// WithMaxRetries sets the number of retries after the first attempt.
func WithMaxRetries(n int) Option {
	return func(r *Retrier) { r.maxRetries = n }
}

// OnRetry registers fn to run after a failed attempt that will be retried.
func OnRetry(fn func(retry int, delay time.Duration, err error)) Option {
	return func(r *Retrier) { r.onRetry = fn }
}

// New returns a Retrier that retries 3 times starting at one second.
func New(opts ...Option) *Retrier {
	r := &Retrier{
		base:       time.Second,
		ceiling:    30 * time.Second,
		factor:     2,
		maxRetries: 3,
	}
	for _, opt := range opts {
		opt(r)
	}
	if r.ceiling < r.base {
		r.ceiling = r.base
	}
	return r
}

// Delay is the nominal wait before the given retry (1-based), without jitter.
func (r *Retrier) Delay(retry int) time.Duration {
	if retry < 1 {
		return 0
	}
	d := float64(r.base) * math.Pow(r.factor, float64(retry-1))
	if d > float64(r.ceiling) {
		return r.ceiling
	}
	return time.Duration(d)
}

type permanent struct{ error }

func (p permanent) Unwrap() error { return p.error }

// Permanent marks err as not worth retrying. Do returns err itself.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return permanent{err}
}

// Do calls fn until it succeeds, returns a Permanent error or runs out of
// retries. The last error is returned unchanged.
func (r *Retrier) Do(ctx context.Context, fn func(ctx context.Context) error) error {
	for retry := 0; ; retry++ {
		err := fn(ctx)
		if err == nil {
			return nil
		}
		var p permanent
		if errors.As(err, &p) {
			return p.error
		}
		if retry >= r.maxRetries {
			return err
		}

		delay := spread(r.Delay(retry + 1))
		if r.onRetry != nil {
			r.onRetry(retry+1, delay, err)
		}
		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

func spread(d time.Duration) time.Duration {
	j := (rand.Float64()*2 - 1) * jitterFraction * float64(d)
	return time.Duration(math.Max(0, float64(d)+j))
}
