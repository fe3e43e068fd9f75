// Package feed renders a tracker.Snapshot as an RSS 2.0 document.
package feed

import (
	"encoding/xml"
	"errors"
	"fmt"
	"math"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

const (
	// pubDateLayout is RFC 1123 with the literal GMT zone RSS readers expect.
	pubDateLayout = "Mon, 02 Jan 2006 15:04:05 GMT"
	isoMillis     = "2006-01-02T15:04:05.000Z07:00"
	rssDocsURL    = "https://www.rssboard.org/rss-specification"
	atomNamespace = "http://www.w3.org/2005/Atom"

	categoryMeta   = "meta"
	categoryDaily  = "daily"
	categoryWeekly = "weekly"
)

// Options carries the channel metadata. Link doubles as the link of every item.
type Options struct {
	Title       string
	Link        string
	Description string
	Language    string
	Generator   string
	// Subject prefixes item titles, e.g. "Claude Code: 42.5% pass rate on ...".
	Subject string
	// GUIDPrefix namespaces item GUIDs, e.g. "<prefix>-daily-2025-01-01".
	GUIDPrefix string
	// SelfURL is published as atom:link rel="self" when set.
	SelfURL string
}

// Validate enforces the fields every channel needs.
func (o Options) Validate() error {
	switch {
	case strings.TrimSpace(o.Title) == "":
		return errors.New("feed title is required")
	case strings.TrimSpace(o.Link) == "":
		return errors.New("feed link is required")
	case strings.TrimSpace(o.GUIDPrefix) == "":
		return errors.New("feed guid prefix is required")
	}
	return nil
}

// Build renders the snapshot. Output depends only on its arguments: a leading
// meta item stamped with now, then daily items newest first, then weekly items
// newest first.
func Build(snap tracker.Snapshot, opts Options, now time.Time) ([]byte, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	now = now.UTC()
	stamp := now.Format(pubDateLayout)

	doc := rssDocument{
		Version: "2.0",
		AtomNS:  atomNamespace,
		Channel: rssChannel{
			Title:         opts.Title,
			Link:          opts.Link,
			Description:   opts.Description,
			Language:      opts.Language,
			LastBuildDate: stamp,
			Docs:          rssDocsURL,
			Generator:     opts.Generator,
		},
	}
	if opts.SelfURL != "" {
		doc.Channel.AtomLink = &atomLink{Href: opts.SelfURL, Rel: "self", Type: "application/rss+xml"}
	}

	items := make([]rssItem, 0, 1+len(snap.Daily)+len(snap.Weekly))
	items = append(items, rssItem{
		Title:       "Feed generated: " + stamp,
		Link:        opts.Link,
		GUID:        guid(fmt.Sprintf("%s-execution-%s", opts.GUIDPrefix, now.Format(isoMillis))),
		PubDate:     stamp,
		Description: fmt.Sprintf("This RSS feed was generated on %s.", stamp),
		Category:    categoryMeta,
	})
	for _, rec := range sortedDaily(snap.Daily) {
		items = append(items, dailyItem(rec, snap.Baseline, opts))
	}
	for _, rec := range sortedWeekly(snap.Weekly) {
		items = append(items, weeklyItem(rec, opts))
	}
	doc.Channel.Items = items

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

func dailyItem(rec tracker.DailyRecord, baseline *float64, opts Options) rssItem {
	rate := roundTo(rec.PassRate, 2)

	title := fmt.Sprintf("%s: %s%% pass rate on %s", opts.Subject, formatNumber(rate), rec.Date)
	lines := []string{fmt.Sprintf("Pass Rate: %s%%", formatNumber(rate))}
	lines = appendCI(lines, rec.CILower, rec.CIUpper)

	var counts []string
	if rec.RunsCount != nil {
		counts = append(counts, fmt.Sprintf("Evaluations: %d", *rec.RunsCount))
	}
	if rec.Passed != nil {
		counts = append(counts, fmt.Sprintf("Passed: %d", *rec.Passed))
	}
	if len(counts) > 0 {
		lines = append(lines, strings.Join(counts, " | "))
	}

	if baseline != nil {
		change := ChangeVsBaseline(rate, *baseline)
		title += fmt.Sprintf(" (%s%% vs baseline)", change)
		lines = append(lines,
			fmt.Sprintf("Baseline: %s%%", formatNumber(math.Round(*baseline))),
			fmt.Sprintf("Change: %s%%", change),
		)
	}

	return rssItem{
		Title:       title,
		Link:        opts.Link,
		GUID:        guid(fmt.Sprintf("%s-daily-%s", opts.GUIDPrefix, rec.Date)),
		PubDate:     middayPubDate(rec.Date),
		Description: strings.Join(lines, "\n"),
		Category:    categoryDaily,
	}
}

func weeklyItem(rec tracker.WeeklyRecord, opts Options) rssItem {
	period := rec.DateRange
	if period == "" {
		period = strings.TrimSuffix(rec.StartDate+" - "+rec.EndDate, " - ")
	}
	rate := formatNumber(rec.PassRate)

	lines := []string{
		fmt.Sprintf("Weekly Pass Rate: %s%%", rate),
		fmt.Sprintf("Period: %s", period),
	}
	lines = appendCI(lines, rec.CILower, rec.CIUpper)
	if rec.RunsCount != nil {
		lines = append(lines, fmt.Sprintf("Evaluations: %d", *rec.RunsCount))
	}

	published := middayPubDate(rec.EndDate)
	if published == "" {
		published = middayPubDate(rec.StartDate)
	}

	return rssItem{
		Title:       fmt.Sprintf("%s Weekly: %s%% (%s)", opts.Subject, rate, period),
		Link:        opts.Link,
		GUID:        guid(fmt.Sprintf("%s-weekly-%s", opts.GUIDPrefix, rec.StartDate)),
		PubDate:     published,
		Description: strings.Join(lines, "\n"),
		Category:    categoryWeekly,
	}
}

// ChangeVsBaseline returns the signed difference between a rounded rate and
// the rounded baseline, to one decimal: "+2.5", "-1.0", "+0.0".
func ChangeVsBaseline(rate, baseline float64) string {
	change := roundTo(rate-math.Round(baseline), 1)
	if change == 0 {
		// Drop the sign of negative zero.
		change = 0
	}
	return fmt.Sprintf("%+.1f", change)
}

// appendCI adds the confidence interval line only when both bounds are known.
func appendCI(lines []string, lower, upper *float64) []string {
	if lower == nil || upper == nil {
		return lines
	}
	return append(lines, fmt.Sprintf("CI: %.1f%% - %.1f%%", *lower, *upper))
}

// middayPubDate reads date as a calendar day at 12:00 UTC so the item lands on
// the same day in every reader's timezone. Unparseable dates yield "".
func middayPubDate(date string) string {
	if date == "" {
		return ""
	}
	t, err := time.Parse(time.RFC3339, date+"T12:00:00Z")
	if err != nil {
		return ""
	}
	return t.Format(pubDateLayout)
}

func sortedDaily(records []tracker.DailyRecord) []tracker.DailyRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b tracker.DailyRecord) int {
		return strings.Compare(b.Date, a.Date)
	})
	return out
}

func sortedWeekly(records []tracker.WeeklyRecord) []tracker.WeeklyRecord {
	out := slices.Clone(records)
	slices.SortStableFunc(out, func(a, b tracker.WeeklyRecord) int {
		return strings.Compare(b.StartDate, a.StartDate)
	})
	return out
}

func guid(value string) rssGUID {
	return rssGUID{IsPermaLink: "false", Value: value}
}

func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}

// formatNumber prints the shortest decimal that round-trips, so 42.50 is "42.5" and 40 is "40".
func formatNumber(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
