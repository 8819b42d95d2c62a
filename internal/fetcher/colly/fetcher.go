// Package collyfetcher implements crawler.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
)

// Config controls collector behavior.
type Config struct {
	UserAgent string
	Timeout   time.Duration
	Proxy     ProxyConfig
}

// Fetcher implements crawler.Fetcher with a single attempt per call.
type Fetcher struct {
	cfg           Config
	logger        *zap.Logger
	baseCollector *colly.Collector
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher. When cfg.Proxy is set every request goes through it.
func New(cfg Config, logger *zap.Logger) (*Fetcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	c := colly.NewCollector(
		colly.Async(false),
		colly.AllowURLRevisit(),
		colly.IgnoreRobotsTxt(),
	)
	// Bodies are returned whatever the status code.
	c.ParseHTTPErrorResponse = true
	if cfg.UserAgent != "" {
		c.UserAgent = cfg.UserAgent
	}
	c.SetRequestTimeout(cfg.Timeout)
	c.WithTransport(newHTTPTransport())

	if cfg.Proxy.Enabled() {
		proxyFunc, err := newProxyFunc(cfg.Proxy)
		if err != nil {
			return nil, err
		}
		c.SetProxyFunc(proxyFunc)
		httpURL, httpsURL := cfg.Proxy.URLs()
		logger.Info("routing requests through proxy",
			zap.String("http", httpURL),
			zap.String("https", httpsURL),
		)
	}

	return &Fetcher{
		cfg:           cfg,
		logger:        logger,
		baseCollector: c,
	}, nil
}

// Fetch executes a single HTTP GET and returns the body as text.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var (
		body     string
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	f.configureCollectorHooks(collector, &body, &fetchErr)

	start := time.Now()
	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return "", err
	}
	f.logger.Debug("fetched",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("duration", time.Since(start)),
	)
	return body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, body *string, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		*body = string(r.Body)
	})

	hooks.OnError(func(_ *colly.Response, err error) {
		*fetchErr = err
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return fmt.Errorf("colly fetch canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			return fmt.Errorf("colly visit failed: %w", err)
		}
		if *fetchErr != nil {
			return fmt.Errorf("colly response failed: %w", *fetchErr)
		}
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		DialContext: (&net.Dialer{
			Timeout:   30 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   30 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
