// Package metrics exposes Prometheus collectors describing feed generation runs.
package metrics

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Run outcomes recorded on the runs counter.
const (
	StatusSuccess = "success"
	StatusNoData  = "no_data"
	StatusFailure = "failure"
)

// Recorder holds the run collectors on its own registry, separate from the
// global default registry.
type Recorder struct {
	registry *prometheus.Registry

	runsTotal            *prometheus.CounterVec
	dailyRecords         prometheus.Gauge
	weeklyRecords        prometheus.Gauge
	latestPassRate       prometheus.Gauge
	baselinePassRate     prometheus.Gauge
	fetchDuration        prometheus.Gauge
	pageBytes            prometheus.Gauge
	lastSuccessTimestamp prometheus.Gauge
}

// NewRecorder registers every collector on a fresh registry.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		runsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "passrate_feed_runs_total",
				Help: "Feed generation runs, labeled by site and status.",
			},
			[]string{"site", "status"},
		),
		dailyRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_daily_records",
			Help: "Daily records extracted on the last run.",
		}),
		weeklyRecords: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_weekly_records",
			Help: "Weekly records extracted on the last run.",
		}),
		latestPassRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_latest_pass_rate_percent",
			Help: "Pass rate of the most recent daily record.",
		}),
		baselinePassRate: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_baseline_pass_rate_percent",
			Help: "Baseline pass rate found on the page.",
		}),
		fetchDuration: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_fetch_duration_seconds",
			Help: "Wall time spent fetching the tracker page.",
		}),
		pageBytes: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_page_bytes",
			Help: "Size of the fetched tracker page.",
		}),
		lastSuccessTimestamp: factory.NewGauge(prometheus.GaugeOpts{
			Name: "passrate_feed_last_success_timestamp_seconds",
			Help: "Unix time of the last run that wrote artifacts.",
		}),
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// ObserveFetch records how long the page fetch took and how large it was.
func (r *Recorder) ObserveFetch(duration time.Duration, bytes int) {
	r.fetchDuration.Set(duration.Seconds())
	r.pageBytes.Set(float64(bytes))
}

// ObserveSnapshot records series sizes. latest and baseline are skipped when nil.
func (r *Recorder) ObserveSnapshot(daily, weekly int, latest, baseline *float64) {
	r.dailyRecords.Set(float64(daily))
	r.weeklyRecords.Set(float64(weekly))
	if latest != nil {
		r.latestPassRate.Set(*latest)
	}
	if baseline != nil {
		r.baselinePassRate.Set(*baseline)
	}
}

// ObserveRun increments the run counter; successful runs also stamp the
// last-success gauge.
func (r *Recorder) ObserveRun(site, status string, at time.Time) {
	r.runsTotal.WithLabelValues(SanitizeSite(site), status).Inc()
	if status == StatusSuccess {
		r.lastSuccessTimestamp.Set(float64(at.Unix()))
	}
}

// WriteTextfile atomically writes the registry in text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("write metrics textfile: %w", err)
	}
	return nil
}

// SanitizeSite sanitizes a URL to extract a lowercase hostname.
// It returns "unknown" if the URL is invalid.
func SanitizeSite(rawURL string) string {
	if !strings.HasPrefix(rawURL, "http") {
		rawURL = "http://" + rawURL
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Hostname() == "" {
		return "unknown"
	}
	return strings.ToLower(u.Hostname())
}
