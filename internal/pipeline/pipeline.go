// Package pipeline runs one fetch, extract, render and write cycle.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/passrate-feed/internal/extract"
	"github.com/JakeFAU/passrate-feed/internal/feed"
	"github.com/JakeFAU/passrate-feed/internal/metrics"
	"github.com/JakeFAU/passrate-feed/internal/tracker"
	"github.com/JakeFAU/passrate-feed/internal/writer"
)

// ArtifactWriter persists the rendered feed and snapshot.
type ArtifactWriter interface {
	Write(ctx context.Context, feed []byte, snap tracker.Snapshot) (writer.Result, error)
}

// Summary describes a completed run.
type Summary struct {
	RunID         string
	URL           string
	GeneratedAt   time.Time
	FetchDuration time.Duration
	PageBytes     int
	Daily         int
	Weekly        int
	// Latest is the newest daily record by date.
	Latest    *tracker.DailyRecord
	Baseline  *float64
	Artifacts []writer.Artifact
}

// Runner wires the pipeline stages together.
type Runner struct {
	fetcher tracker.Fetcher
	writer  ArtifactWriter
	clock   tracker.Clock
	ids     tracker.IDGenerator
	metrics *metrics.Recorder
	options feed.Options
	logger  *zap.Logger
}

// Deps holds the collaborators of a Runner. Metrics and Logger are optional.
type Deps struct {
	Fetcher tracker.Fetcher
	Writer  ArtifactWriter
	Clock   tracker.Clock
	IDs     tracker.IDGenerator
	Metrics *metrics.Recorder
	Logger  *zap.Logger
}

// New validates deps and feed options and returns a Runner.
func New(deps Deps, opts feed.Options) (*Runner, error) {
	switch {
	case deps.Fetcher == nil:
		return nil, errors.New("fetcher is required")
	case deps.Writer == nil:
		return nil, errors.New("writer is required")
	case deps.Clock == nil:
		return nil, errors.New("clock is required")
	case deps.IDs == nil:
		return nil, errors.New("id generator is required")
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		fetcher: deps.Fetcher,
		writer:  deps.Writer,
		clock:   deps.Clock,
		ids:     deps.IDs,
		metrics: deps.Metrics,
		options: opts,
		logger:  logger,
	}, nil
}

// Run fetches url and publishes the feed and snapshot. Nothing is written
// unless the page yields at least one daily record.
func (r *Runner) Run(ctx context.Context, url string) (Summary, error) {
	runID, err := r.ids.NewID()
	if err != nil {
		return Summary{}, fmt.Errorf("generate run id: %w", err)
	}
	logger := r.logger.With(zap.String("run_id", runID), zap.String("url", url))
	summary := Summary{RunID: runID, URL: url}

	logger.Info("fetching tracker page")
	start := r.clock.Now()
	html, err := r.fetcher.Fetch(ctx, url)
	if err != nil {
		r.observeRun(url, metrics.StatusFailure)
		return summary, err
	}
	summary.FetchDuration = r.clock.Now().Sub(start)
	summary.PageBytes = len(html)
	if r.metrics != nil {
		r.metrics.ObserveFetch(summary.FetchDuration, summary.PageBytes)
	}

	snap := extract.Extract(html)
	summary.Daily = len(snap.Daily)
	summary.Weekly = len(snap.Weekly)
	summary.Baseline = snap.Baseline
	summary.Latest = latestDaily(snap.Daily)
	logger.Info("extracted snapshot",
		zap.Int("daily", summary.Daily),
		zap.Int("weekly", summary.Weekly),
		zap.Bool("baseline", snap.HasBaseline()),
	)
	if r.metrics != nil {
		var latest *float64
		if summary.Latest != nil {
			latest = &summary.Latest.PassRate
		}
		r.metrics.ObserveSnapshot(summary.Daily, summary.Weekly, latest, snap.Baseline)
	}

	if err := snap.Validate(); err != nil {
		r.observeRun(url, metrics.StatusNoData)
		return summary, err
	}

	now := r.clock.Now()
	summary.GeneratedAt = now
	doc, err := feed.Build(snap, r.options, now)
	if err != nil {
		r.observeRun(url, metrics.StatusFailure)
		return summary, fmt.Errorf("build feed: %w", err)
	}

	res, err := r.writer.Write(ctx, doc, snap)
	if err != nil {
		r.observeRun(url, metrics.StatusFailure)
		return summary, err
	}
	summary.Artifacts = res.Artifacts
	r.observeRun(url, metrics.StatusSuccess)
	logger.Info("feed published", zap.Int("artifacts", len(res.Artifacts)))
	return summary, nil
}

func (r *Runner) observeRun(url, status string) {
	if r.metrics == nil {
		return
	}
	r.metrics.ObserveRun(url, status, r.clock.Now())
}

// latestDaily returns the record with the greatest date. Dates are ISO
// strings, so lexical order is chronological.
func latestDaily(records []tracker.DailyRecord) *tracker.DailyRecord {
	if len(records) == 0 {
		return nil
	}
	latest := records[0]
	for _, rec := range records[1:] {
		if rec.Date > latest.Date {
			latest = rec
		}
	}
	return &latest
}
