package crawler

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"slices"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/paste-harvester/internal/metrics"
	"github.com/JakeFAU/paste-harvester/internal/model"
)

// Config holds the listing endpoints and date format used by a Controller.
type Config struct {
	MainURL       string
	PageURLPrefix string
	DateFormat    string
}

// Dependencies are the collaborators a Controller drives.
type Dependencies struct {
	Fetcher    Fetcher
	Extractor  Extractor
	Store      PasteStore
	Normalizer Normalizer
	Clock      Clock
	IDs        IDGenerator
	Logger     *zap.Logger
}

// Controller runs one crawl cycle at a time:
// Start -> DiscoverRange -> WalkPages -> Stopped.
type Controller struct {
	cfg       Config
	deps      Dependencies
	freshness Freshness
	logger    *zap.Logger
}

// NewController builds a Controller. Fetcher, Extractor, Store and
// Normalizer are required.
func NewController(cfg Config, deps Dependencies) (*Controller, error) {
	if cfg.MainURL == "" {
		return nil, errors.New("main url is required")
	}
	if deps.Fetcher == nil || deps.Extractor == nil || deps.Store == nil || deps.Normalizer == nil {
		return nil, errors.New("fetcher, extractor, store and normalizer are required")
	}
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Clock == nil {
		deps.Clock = utcClock{}
	}
	metrics.Init()
	return &Controller{
		cfg:       cfg,
		deps:      deps,
		freshness: Freshness{DateFormat: cfg.DateFormat},
		logger:    deps.Logger,
	}, nil
}

type utcClock struct{}

func (utcClock) Now() time.Time { return time.Now().UTC() }

// cycle carries the mutable state of one RunCycle call.
type cycle struct {
	report    CycleReport
	logger    *zap.Logger
	watermark *model.Paste
	pages     []Page
}

// RunCycle performs one full crawl-and-persist pass. The returned report is
// always populated; the error is non-nil when the cycle ended early because
// of a network, persistence or context failure.
func (c *Controller) RunCycle(ctx context.Context) (CycleReport, error) {
	cy := &cycle{report: CycleReport{StartedAt: c.deps.Clock.Now(), State: StateStart}}
	cy.report.RunID = c.newRunID()
	cy.logger = c.logger.With(zap.String("run_id", cy.report.RunID))

	err := c.run(ctx, cy)
	cy.report.State = StateStopped
	cy.report.FinishedAt = c.deps.Clock.Now()
	if err != nil {
		cy.report.Error = err.Error()
	}

	result := metrics.CycleResultOK
	if err != nil {
		result = metrics.CycleResultError
	}
	metrics.ObserveCycle(result, cy.report.FinishedAt.Sub(cy.report.StartedAt))

	cy.logger.Info("cycle stopped",
		zap.String("stop_reason", string(cy.report.StopReason)),
		zap.Int("pages_visited", cy.report.PagesVisited),
		zap.Int("pages_failed", cy.report.PagesFailed),
		zap.Int("records_stored", cy.report.RecordsStored),
	)
	return cy.report, err
}

func (c *Controller) run(ctx context.Context, cy *cycle) error {
	for {
		var (
			next State
			err  error
		)
		switch cy.report.State {
		case StateStart:
			next, err = c.start(ctx, cy)
		case StateDiscoverRange:
			next, err = c.discoverRange(ctx, cy)
		case StateWalkPages:
			next, err = c.walkPages(ctx, cy)
		case StateStopped:
			return nil
		default:
			return fmt.Errorf("unknown crawl state %q", cy.report.State)
		}
		if err != nil {
			return err
		}
		cy.logger.Debug("state transition",
			zap.String("from", string(cy.report.State)),
			zap.String("to", string(next)),
		)
		cy.report.State = next
	}
}

func (c *Controller) start(ctx context.Context, cy *cycle) (State, error) {
	watermark, err := c.deps.Store.MostRecent(ctx)
	if err != nil {
		cy.report.StopReason = StopPersistenceError
		return StateStopped, fmt.Errorf("load watermark: %w", err)
	}
	cy.watermark = watermark
	if watermark != nil {
		cy.report.Watermark = watermark.Date
		cy.logger.Info("loaded watermark",
			zap.String("title", watermark.Title),
			zap.String("date", watermark.Date),
		)
	} else {
		cy.logger.Info("no watermark, accepting every paste")
	}
	return StateDiscoverRange, nil
}

func (c *Controller) discoverRange(ctx context.Context, cy *cycle) (State, error) {
	body, err := c.deps.Fetcher.Fetch(ctx, c.cfg.MainURL)
	if err != nil {
		cy.report.StopReason = c.fetchStopReason(ctx)
		return StateStopped, fmt.Errorf("fetch main listing: %w", err)
	}
	indices, err := c.deps.Extractor.PageIndices(body)
	if err != nil {
		cy.report.StopReason = StopParseError
		metrics.ObservePage(metrics.PageStatusParseError)
		return StateStopped, fmt.Errorf("discover page range: %w", err)
	}
	cy.pages = c.plan(indices)
	cy.report.PagesPlanned = len(cy.pages)
	cy.logger.Info("discovered page range", zap.Int("pages", len(cy.pages)))
	return StateWalkPages, nil
}

// plan lists the main URL as page 1 followed by every index in [min, max].
func (c *Controller) plan(indices iter.Seq[int]) []Page {
	pages := []Page{{URL: c.cfg.MainURL, Number: 1}}
	all := slices.Sorted(indices)
	if len(all) == 0 {
		return pages
	}
	for n := all[0]; n <= all[len(all)-1]; n++ {
		pages = append(pages, Page{URL: c.cfg.PageURLPrefix + strconv.Itoa(n), Number: n})
	}
	return pages
}

func (c *Controller) walkPages(ctx context.Context, cy *cycle) (State, error) {
	for _, page := range cy.pages {
		if err := ctx.Err(); err != nil {
			cy.report.StopReason = StopCanceled
			return StateStopped, err
		}
		cy.report.LastPage = page.Number
		keep, exhausted, err := c.visit(ctx, cy, page)
		if err != nil {
			var netErr *NetworkError
			if errors.As(err, &netErr) {
				cy.report.StopReason = c.fetchStopReason(ctx)
				return StateStopped, err
			}
			var parseErr *ParseError
			if errors.As(err, &parseErr) {
				cy.report.PagesFailed++
				metrics.ObservePage(metrics.PageStatusParseError)
				cy.logger.Error("skipping malformed page",
					zap.String("url", page.URL),
					zap.Int("page", page.Number),
					zap.Error(err),
				)
				continue
			}
			return StateStopped, err
		}
		cy.report.PagesVisited++
		metrics.ObservePage(metrics.PageStatusOK)

		if len(keep) > 0 {
			if err := c.deps.Store.StoreMany(ctx, keep); err != nil {
				cy.report.StopReason = StopPersistenceError
				return StateStopped, fmt.Errorf("store page %d: %w", page.Number, err)
			}
			cy.report.RecordsStored += len(keep)
			metrics.ObserveRecordsStored(len(keep))
			cy.logger.Info("stored pastes", zap.Int("page", page.Number), zap.Int("count", len(keep)))
		}
		if exhausted {
			cy.report.StopReason = StopWatermarkReached
			return StateStopped, nil
		}
		if len(keep) == 0 && cy.report.RecordsStored == 0 {
			cy.report.StopReason = StopNothingNew
			return StateStopped, nil
		}
	}
	cy.report.StopReason = StopRangeExhausted
	return StateStopped, nil
}

// visit fetches and extracts one page. It returns the pastes to keep and
// whether a paste at or before the watermark was reached.
func (c *Controller) visit(ctx context.Context, cy *cycle, page Page) ([]*model.Paste, bool, error) {
	body, err := c.deps.Fetcher.Fetch(ctx, page.URL)
	if err != nil {
		return nil, false, err
	}
	var keep []*model.Paste
	for paste, err := range c.deps.Extractor.Records(body) {
		if err != nil {
			return nil, false, err
		}
		c.deps.Normalizer.Normalize(paste)
		if !c.freshness.IsNew(paste, cy.watermark) {
			cy.logger.Debug("reached known paste",
				zap.Int("page", page.Number),
				zap.String("title", paste.Title),
				zap.String("date", paste.Date),
			)
			return keep, true, nil
		}
		keep = append(keep, paste)
	}
	return keep, false, nil
}

func (c *Controller) fetchStopReason(ctx context.Context) StopReason {
	if ctx.Err() != nil {
		return StopCanceled
	}
	return StopNetworkError
}

func (c *Controller) newRunID() string {
	if c.deps.IDs == nil {
		return ""
	}
	id, err := c.deps.IDs.NewID()
	if err != nil {
		c.logger.Warn("failed to generate run id", zap.Error(err))
		return ""
	}
	return id
}
