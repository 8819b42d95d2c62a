package crawler

import (
	"context"
	"iter"
	"time"

	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Fetcher retrieves the raw text of a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) (string, error)
}

// Extractor turns listing markup into page indices and pastes.
type Extractor interface {
	PageIndices(content string) (iter.Seq[int], error)
	Records(content string) iter.Seq2[*model.Paste, error]
}

// PasteStore persists pastes and exposes the watermark.
type PasteStore interface {
	MostRecent(ctx context.Context) (*model.Paste, error)
	StoreMany(ctx context.Context, pastes []*model.Paste) error
}

// Normalizer cleans a record once before it is first stored.
type Normalizer interface {
	Normalize(rec model.Record)
}

// RetryPolicy decides whether and how long to wait before another attempt.
type RetryPolicy interface {
	ShouldRetry(err error, attempt int) bool
	Backoff(attempt int) time.Duration
}

// Sleeper blocks for a duration or until the context is done.
type Sleeper interface {
	Sleep(ctx context.Context, d time.Duration) error
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces cycle run IDs (UUIDs).
type IDGenerator interface {
	NewID() (string, error)
}
