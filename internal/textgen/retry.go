package textgen

import (
	"context"
	"log/slog"
	"math/rand"
	"time"
)

// MaxRetries is the default number of retries after the first attempt.
const MaxRetries = 2

// Backoff returns a duration for attempt n (0-indexed) with jitter.
func Backoff(attempt int) time.Duration {
	base := time.Duration(1<<uint(attempt)) * time.Second
	if base > 30*time.Second {
		base = 30 * time.Second
	}
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

// Observer is told about every attempt made through a Retrying generator.
type Observer interface {
	ObserveGeneration(model string, d time.Duration, err error)
}

// Retrying wraps a Generator with retries on RetryableError, latency
// statistics and an optional Observer.
type Retrying struct {
	next       Generator
	maxRetries int
	backoff    func(int) time.Duration
	stats      *LLMStats
	obs        Observer
	log        *slog.Logger
}

// RetryOption configures a Retrying generator.
type RetryOption func(*Retrying)

// WithBackoff replaces the delay schedule between attempts.
func WithBackoff(f func(int) time.Duration) RetryOption {
	return func(r *Retrying) { r.backoff = f }
}

// WithStats records the latency of each attempt.
func WithStats(s *LLMStats) RetryOption {
	return func(r *Retrying) { r.stats = s }
}

// WithObserver reports each attempt to obs.
func WithObserver(obs Observer) RetryOption {
	return func(r *Retrying) { r.obs = obs }
}

// NewRetrying wraps next. A negative maxRetries means MaxRetries.
func NewRetrying(next Generator, maxRetries int, log *slog.Logger, opts ...RetryOption) *Retrying {
	if maxRetries < 0 {
		maxRetries = MaxRetries
	}
	if log == nil {
		log = slog.Default()
	}
	r := &Retrying{next: next, maxRetries: maxRetries, backoff: Backoff, log: log}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

func (r *Retrying) Generate(ctx context.Context, req Request) (string, error) {
	var out string
	var lastErr error
	for attempt := 0; attempt <= r.maxRetries; attempt++ {
		start := time.Now()
		out, lastErr = r.next.Generate(ctx, req)
		elapsed := time.Since(start)
		if r.stats != nil {
			r.stats.Record(elapsed, lastErr)
		}
		if r.obs != nil {
			r.obs.ObserveGeneration(req.Model, elapsed, lastErr)
		}
		if lastErr == nil || !IsRetryable(lastErr) || attempt == r.maxRetries {
			break
		}
		r.log.Warn("retryable generation error", "model", req.Model, "attempt", attempt, "error", lastErr)
		select {
		case <-time.After(r.backoff(attempt)):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return out, lastErr
}
