package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/metrics"
)

// RetryingFetcher wraps a single-attempt Fetcher with bounded retries.
type RetryingFetcher struct {
	next    Fetcher
	policy  RetryPolicy
	sleeper Sleeper
	logger  *zap.Logger
}

// NewRetryingFetcher builds a RetryingFetcher.
func NewRetryingFetcher(next Fetcher, policy RetryPolicy, sleeper Sleeper, logger *zap.Logger) *RetryingFetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	metrics.Init()
	return &RetryingFetcher{
		next:    next,
		policy:  policy,
		sleeper: sleeper,
		logger:  logger,
	}
}

// Fetch returns the first successful response. When every permitted attempt
// fails, or the context ends, it returns a *NetworkError.
func (f *RetryingFetcher) Fetch(ctx context.Context, url string) (string, error) {
	attempt := 0
	for {
		attempt++
		f.logger.Debug("requesting", zap.String("url", url), zap.Int("attempt", attempt))
		body, err := f.next.Fetch(ctx, url)
		if err == nil {
			metrics.ObserveFetchAttempt(metrics.OutcomeSuccess)
			return body, nil
		}
		metrics.ObserveFetchAttempt(metrics.OutcomeFailure)

		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", &NetworkError{URL: url, Attempts: attempt, Err: ctxErr}
		}
		if !f.policy.ShouldRetry(err, attempt) {
			f.logger.Error("fetch failed",
				zap.String("url", url),
				zap.Int("attempts", attempt),
				zap.Error(err),
			)
			return "", &NetworkError{URL: url, Attempts: attempt, Err: err}
		}

		delay := f.policy.Backoff(attempt)
		f.logger.Warn("fetch attempt failed, retrying",
			zap.String("url", url),
			zap.Int("attempt", attempt),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		if err := f.sleeper.Sleep(ctx, delay); err != nil {
			return "", &NetworkError{URL: url, Attempts: attempt, Err: err}
		}
	}
}
