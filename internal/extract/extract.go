// Package extract pulls the embedded pass-rate series out of a tracker page.
//
// The page is not an API: the daily and weekly series live as JSON array
// literals inside inline script blocks and the baseline is a loose
// `baseline = 40`-style assignment somewhere in the markup. Everything that
// depends on that layout is kept in this package so the rest of the pipeline
// only ever sees a tracker.Snapshot.
package extract

import (
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

var (
	// Flat arrays of flat objects only. A nested [ or ] inside an object breaks the match.
	dailyArrayPattern  = regexp.MustCompile(`\[\s*\{[^\[\]]*"date"\s*:[^\[\]]*"passRate"\s*:[^\[\]]*\}\s*\]`)
	weeklyArrayPattern = regexp.MustCompile(`\[\s*\{[^\[\]]*"startDate"\s*:[^\[\]]*"passRate"\s*:[^\[\]]*\}\s*\]`)

	baselineCues = []*regexp.Regexp{
		regexp.MustCompile(`(?i)baseline[^=]*=\s*([\d.]+)`),
		regexp.MustCompile(`(?i)baselinePassRate[^=]*=\s*([\d.]+)`),
	}
)

// Extract scans raw page text and returns whatever series it can find. It
// never fails: a snapshot without daily records is the caller's signal that
// the page layout changed.
func Extract(html string) tracker.Snapshot {
	var snap tracker.Snapshot
	for _, block := range ScriptBlocks(html) {
		for _, raw := range dailyArrayPattern.FindAllString(block, -1) {
			if candidate := dailyRecords(decode(raw, "date")); len(candidate) > 0 {
				snap.Daily = longest(snap.Daily, candidate)
			}
		}
		for _, raw := range weeklyArrayPattern.FindAllString(block, -1) {
			if candidate := weeklyRecords(decode(raw, "startDate")); len(candidate) > 0 {
				snap.Weekly = longest(snap.Weekly, candidate)
			}
		}
	}
	snap.Baseline = Baseline(html)
	return snap
}

// ScriptBlocks returns the text content of every script element in document
// order. The HTML parser recovers from malformed markup, so the only error it
// reports is a failed read, which a string reader never produces.
func ScriptBlocks(html string) []string {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return nil
	}
	var blocks []string
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if text := s.Text(); strings.TrimSpace(text) != "" {
			blocks = append(blocks, text)
		}
	})
	return blocks
}

// Baseline searches the whole page for the first baseline cue followed by a
// parseable number. Cues are tried in order; nil means no baseline.
func Baseline(html string) *float64 {
	for _, cue := range baselineCues {
		for _, m := range cue.FindAllStringSubmatch(html, -1) {
			v, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			return &v
		}
	}
	return nil
}

// decode parses raw as a JSON array of objects and returns it only when the
// first object carries a non-empty dateKey and a passRate. Values keep their
// JSON types, so a count written as 100.0 or a rate written as "42.5" does not
// sink the whole array. Pattern matches that are not valid JSON are expected
// noise and yield nil.
func decode(raw, dateKey string) []map[string]any {
	var objs []map[string]any
	if err := json.Unmarshal([]byte(raw), &objs); err != nil || len(objs) == 0 {
		return nil
	}
	first := objs[0]
	if text(first, dateKey) == "" {
		return nil
	}
	if _, ok := first["passRate"]; !ok {
		return nil
	}
	return objs
}

// dailyRecords converts decoded objects, skipping any without a date or a
// numeric pass rate.
func dailyRecords(objs []map[string]any) []tracker.DailyRecord {
	var out []tracker.DailyRecord
	for _, obj := range objs {
		date := text(obj, "date")
		rate := number(obj, "passRate")
		if date == "" || rate == nil {
			continue
		}
		out = append(out, tracker.DailyRecord{
			Date:      date,
			PassRate:  *rate,
			CILower:   number(obj, "ciLower"),
			CIUpper:   number(obj, "ciUpper"),
			RunsCount: count(obj, "runsCount"),
			Passed:    count(obj, "passed"),
		})
	}
	return out
}

// weeklyRecords converts decoded objects, skipping any without a start date
// or a numeric pass rate.
func weeklyRecords(objs []map[string]any) []tracker.WeeklyRecord {
	var out []tracker.WeeklyRecord
	for _, obj := range objs {
		start := text(obj, "startDate")
		rate := number(obj, "passRate")
		if start == "" || rate == nil {
			continue
		}
		out = append(out, tracker.WeeklyRecord{
			StartDate: start,
			EndDate:   text(obj, "endDate"),
			DateRange: text(obj, "dateRange"),
			PassRate:  *rate,
			CILower:   number(obj, "ciLower"),
			CIUpper:   number(obj, "ciUpper"),
			RunsCount: count(obj, "runsCount"),
		})
	}
	return out
}

func text(obj map[string]any, key string) string {
	s, _ := obj[key].(string)
	return s
}

// number accepts JSON numbers and numeric strings. Anything else, including
// NaN and infinities, is treated as absent.
func number(obj map[string]any, key string) *float64 {
	var v float64
	switch raw := obj[key].(type) {
	case float64:
		v = raw
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			return nil
		}
		v = parsed
	default:
		return nil
	}
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	return &v
}

// count is number rounded to the nearest integer.
func count(obj map[string]any, key string) *int {
	v := number(obj, key)
	if v == nil {
		return nil
	}
	n := int(math.Round(*v))
	return &n
}

// longest keeps current unless candidate is strictly longer, so on a tie the
// first candidate encountered wins.
func longest[T any](current, candidate []T) []T {
	if current == nil || len(candidate) > len(current) {
		return candidate
	}
	return current
}
