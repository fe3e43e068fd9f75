// Package collyfetcher implements tracker.Fetcher using gocolly.
package collyfetcher

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

const (
	defaultTimeout      = 30 * time.Second
	defaultMaxRedirects = 5
)

// Config controls collector behavior.
type Config struct {
	UserAgent     string
	RespectRobots bool
	Timeout       time.Duration
	// MaxRedirects bounds the redirect chain; zero means the default of 5.
	MaxRedirects int
	// MaxBodyBytes caps the response body; a larger page is a FetchError
	// wrapping tracker.ErrBodyTooLarge. Zero keeps colly's default limit.
	MaxBodyBytes int
}

// Fetcher implements tracker.Fetcher using the Colly collector.
type Fetcher struct {
	cfg           Config
	baseCollector *colly.Collector
	logger        *zap.Logger
}

type collectorHooks interface {
	OnResponse(colly.ResponseCallback)
	OnError(colly.ErrorCallback)
}

// New builds a Fetcher.
func New(cfg Config, logger *zap.Logger) *Fetcher {
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.MaxRedirects <= 0 {
		cfg.MaxRedirects = defaultMaxRedirects
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []colly.CollectorOption{
		colly.Async(false),
		colly.AllowURLRevisit(),
	}
	if cfg.UserAgent != "" {
		opts = append(opts, colly.UserAgent(cfg.UserAgent))
	}
	if cfg.MaxBodyBytes > 0 {
		// One byte past the cap tells a truncated body from one that fits exactly.
		opts = append(opts, colly.MaxBodySize(cfg.MaxBodyBytes+1))
	}
	c := colly.NewCollector(opts...)
	c.IgnoreRobotsTxt = !cfg.RespectRobots
	// Status codes are judged in the response hook, not by colly.
	c.ParseHTTPErrorResponse = true
	c.WithTransport(newHTTPTransport())
	c.SetRequestTimeout(cfg.Timeout)
	c.SetRedirectHandler(redirectLimiter(cfg.MaxRedirects, logger))

	return &Fetcher{
		cfg:           cfg,
		baseCollector: c,
		logger:        logger,
	}
}

// Fetch performs a single GET of url and returns the body as text. Non-2xx
// responses, transport failures and overlong redirect chains are returned
// as *tracker.FetchError. There are no retries.
func (f *Fetcher) Fetch(ctx context.Context, url string) (string, error) {
	var (
		body     string
		fetchErr error
	)
	collector := f.baseCollector.Clone()
	collector.Context = ctx
	f.configureCollectorHooks(collector, url, &body, &fetchErr)

	if err := f.runCollector(ctx, collector, url, &fetchErr); err != nil {
		return "", err
	}
	f.logger.Debug("Fetched page",
		zap.String("url", url),
		zap.Int("bytes", len(body)),
		zap.Duration("timeout", f.cfg.Timeout),
	)
	return body, nil
}

func (f *Fetcher) configureCollectorHooks(hooks collectorHooks, url string, body *string, fetchErr *error) {
	hooks.OnResponse(func(r *colly.Response) {
		if r.StatusCode < http.StatusOK || r.StatusCode >= http.StatusMultipleChoices {
			*fetchErr = &tracker.FetchError{URL: url, StatusCode: r.StatusCode}
			return
		}
		if f.cfg.MaxBodyBytes > 0 && len(r.Body) > f.cfg.MaxBodyBytes {
			*fetchErr = &tracker.FetchError{
				URL:        url,
				StatusCode: r.StatusCode,
				Err:        fmt.Errorf("%w: limit is %d bytes", tracker.ErrBodyTooLarge, f.cfg.MaxBodyBytes),
			}
			return
		}
		*body = string(r.Body)
	})

	hooks.OnError(func(r *colly.Response, err error) {
		status := 0
		if r != nil {
			status = r.StatusCode
		}
		*fetchErr = &tracker.FetchError{URL: url, StatusCode: status, Err: err}
	})
}

func (f *Fetcher) runCollector(ctx context.Context, collector *colly.Collector, url string, fetchErr *error) error {
	done := make(chan error, 1)
	go func() {
		done <- collector.Visit(url)
	}()

	select {
	case <-ctx.Done():
		return &tracker.FetchError{URL: url, Err: fmt.Errorf("colly fetch canceled: %w", ctx.Err())}
	case err := <-done:
		if ctxErr := ctx.Err(); ctxErr != nil {
			return &tracker.FetchError{URL: url, Err: fmt.Errorf("colly fetch canceled: %w", ctxErr)}
		}
		if *fetchErr != nil {
			return *fetchErr
		}
		if err != nil {
			return &tracker.FetchError{URL: url, Err: fmt.Errorf("colly visit failed: %w", err)}
		}
		return nil
	}
}

// redirectLimiter allows at most limit hops. via holds every request already
// made in the chain, so len(via) is the number of redirects taken so far.
func redirectLimiter(limit int, logger *zap.Logger) func(*http.Request, []*http.Request) error {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(req *http.Request, via []*http.Request) error {
		if len(via) > limit {
			return fmt.Errorf("%w: stopped after %d hops at %s", tracker.ErrTooManyRedirects, limit, req.URL)
		}
		logger.Debug("Following redirect",
			zap.String("to", req.URL.String()),
			zap.Int("hop", len(via)),
		)
		return nil
	}
}

func newHTTPTransport() *http.Transport {
	return &http.Transport{
		Proxy: http.ProxyFromEnvironment,
		DialContext: (&net.Dialer{
			Timeout:   10 * time.Second,
			KeepAlive: 30 * time.Second,
		}).DialContext,
		TLSHandshakeTimeout:   15 * time.Second,
		ExpectContinueTimeout: 1 * time.Second,
		MaxIdleConns:          10,
		IdleConnTimeout:       90 * time.Second,
	}
}
