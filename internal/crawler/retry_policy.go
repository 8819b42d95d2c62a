package crawler

import "time"

// FixedDelayPolicy implements RetryPolicy with a constant pause between attempts.
type FixedDelayPolicy struct {
	maxRetries int
	delay      time.Duration
}

// NewFixedDelayPolicy builds a policy allowing maxRetries extra attempts.
func NewFixedDelayPolicy(maxRetries int, delay time.Duration) *FixedDelayPolicy {
	if maxRetries < 0 {
		maxRetries = 0
	}
	if delay < 0 {
		delay = 0
	}
	return &FixedDelayPolicy{maxRetries: maxRetries, delay: delay}
}

// MaxAttempts returns the total number of attempts the policy permits.
func (p *FixedDelayPolicy) MaxAttempts() int {
	return p.maxRetries + 1
}

// ShouldRetry decides whether another attempt follows the given (1-based)
// attempt. Transport failures of any kind are retryable, per-request
// timeouts included; caller cancellation is handled by the fetcher.
func (p *FixedDelayPolicy) ShouldRetry(err error, attempt int) bool {
	if err == nil {
		return false
	}
	return attempt <= p.maxRetries
}

// Backoff returns the wait duration before the next attempt.
func (p *FixedDelayPolicy) Backoff(int) time.Duration {
	return p.delay
}
