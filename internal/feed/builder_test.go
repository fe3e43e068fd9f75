package feed

import (
	"encoding/xml"
	"strings"
	"testing"
	"time"

	"github.com/mmcdole/gofeed"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/passrate-feed/internal/tracker"
)

var fixedNow = time.Date(2025, time.January, 5, 8, 30, 0, 0, time.UTC)

func testOptions() Options {
	return Options{
		Title:       "Claude Code Performance Tracker",
		Link:        "https://example.com/trackers/claude-code/",
		Description: "Daily and weekly performance tracking.",
		Language:    "en-us",
		Generator:   "claude-perf-tracker",
		Subject:     "Claude Code",
		GUIDPrefix:  "claude-code",
	}
}

func daily(date string, rate float64) tracker.DailyRecord {
	return tracker.DailyRecord{
		Date:      date,
		PassRate:  rate,
		CILower:   tracker.Float(rate - 2.5),
		CIUpper:   tracker.Float(rate + 2.5),
		RunsCount: tracker.Int(100),
		Passed:    tracker.Int(int(rate)),
	}
}

func parse(t *testing.T, out []byte) *gofeed.Feed {
	t.Helper()
	var doc rssDocument
	require.NoError(t, xml.Unmarshal(out, &doc), "output must be well-formed XML")
	parsed, err := gofeed.NewParser().ParseString(string(out))
	require.NoError(t, err)
	require.Equal(t, "rss", parsed.FeedType)
	require.Equal(t, "2.0", parsed.FeedVersion)
	return parsed
}

func TestBuildDailyOnly(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{Daily: []tracker.DailyRecord{daily("2025-01-01", 42.5)}}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(out), xml.Header))

	parsed := parse(t, out)
	assert.Equal(t, "Claude Code Performance Tracker", parsed.Title)
	assert.Equal(t, "https://example.com/trackers/claude-code/", parsed.Link)
	assert.Equal(t, "Daily and weekly performance tracking.", parsed.Description)
	assert.Equal(t, "en-us", parsed.Language)
	assert.Equal(t, "claude-perf-tracker", parsed.Generator)
	assert.Equal(t, "Sun, 05 Jan 2025 08:30:00 GMT", parsed.Updated)

	require.Len(t, parsed.Items, 2)
	meta := parsed.Items[0]
	assert.Equal(t, "Feed generated: Sun, 05 Jan 2025 08:30:00 GMT", meta.Title)
	assert.Equal(t, "claude-code-execution-2025-01-05T08:30:00.000Z", meta.GUID)
	assert.Equal(t, []string{"meta"}, meta.Categories)

	item := parsed.Items[1]
	assert.Equal(t, "Claude Code: 42.5% pass rate on 2025-01-01", item.Title)
	assert.Equal(t, "claude-code-daily-2025-01-01", item.GUID)
	assert.Equal(t, "Wed, 01 Jan 2025 12:00:00 GMT", item.Published)
	require.NotNil(t, item.PublishedParsed)
	assert.Equal(t, time.Date(2025, time.January, 1, 12, 0, 0, 0, time.UTC), item.PublishedParsed.UTC())
	assert.Equal(t, []string{"daily"}, item.Categories)
	assert.Equal(t, "Pass Rate: 42.5%\nCI: 40.0% - 45.0%\nEvaluations: 100 | Passed: 42", item.Description)
	assert.NotContains(t, string(out), "vs baseline")
	assert.NotContains(t, string(out), "Change:")
	assert.Contains(t, string(out), `<guid isPermaLink="false">claude-code-daily-2025-01-01</guid>`)
}

func TestBuildSortsDailyDescending(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{Daily: []tracker.DailyRecord{
		daily("2024-01-01", 40),
		daily("2024-01-03", 41),
		daily("2024-01-02", 42),
	}}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)

	parsed := parse(t, out)
	var guids []string
	for _, item := range parsed.Items[1:] {
		guids = append(guids, item.GUID)
	}
	assert.Equal(t, []string{
		"claude-code-daily-2024-01-03",
		"claude-code-daily-2024-01-02",
		"claude-code-daily-2024-01-01",
	}, guids)
	assert.Equal(t, "2024-01-01", snap.Daily[0].Date, "input must not be reordered")
}

func TestBuildDailyAndWeekly(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{
		Daily: []tracker.DailyRecord{daily("2025-01-01", 42.5), daily("2025-01-02", 43)},
		Weekly: []tracker.WeeklyRecord{
			{StartDate: "2024-12-16", EndDate: "2024-12-22", DateRange: "Dec 16 - Dec 22", PassRate: 41.3, RunsCount: tracker.Int(650)},
			{
				StartDate: "2024-12-23", EndDate: "2024-12-29", DateRange: "Dec 23 - Dec 29", PassRate: 43.1,
				CILower: tracker.Float(41), CIUpper: tracker.Float(45.25), RunsCount: tracker.Int(700),
			},
		},
	}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)

	parsed := parse(t, out)
	require.Len(t, parsed.Items, 5)
	var categories []string
	for _, item := range parsed.Items {
		categories = append(categories, item.Categories...)
	}
	assert.Equal(t, []string{"meta", "daily", "daily", "weekly", "weekly"}, categories)

	latestWeek := parsed.Items[3]
	assert.Equal(t, "Claude Code Weekly: 43.1% (Dec 23 - Dec 29)", latestWeek.Title)
	assert.Equal(t, "claude-code-weekly-2024-12-23", latestWeek.GUID)
	assert.Equal(t, "Sun, 29 Dec 2024 12:00:00 GMT", latestWeek.Published)
	assert.Equal(t, "Weekly Pass Rate: 43.1%\nPeriod: Dec 23 - Dec 29\nCI: 41.0% - 45.2%\nEvaluations: 700", latestWeek.Description)

	olderWeek := parsed.Items[4]
	assert.Equal(t, "Weekly Pass Rate: 41.3%\nPeriod: Dec 16 - Dec 22\nEvaluations: 650", olderWeek.Description)
}

func TestBuildWithBaseline(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{
		Daily:    []tracker.DailyRecord{daily("2025-01-01", 42.5)},
		Baseline: tracker.Float(40),
	}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)

	parsed := parse(t, out)
	require.Len(t, parsed.Items, 2)
	item := parsed.Items[1]
	assert.Equal(t, "Claude Code: 42.5% pass rate on 2025-01-01 (+2.5% vs baseline)", item.Title)
	assert.Equal(t,
		"Pass Rate: 42.5%\nCI: 40.0% - 45.0%\nEvaluations: 100 | Passed: 42\nBaseline: 40%\nChange: +2.5%",
		item.Description,
	)
}

func TestBuildEscapesReservedCharacters(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.Subject = `Agent <b> & "friends"`
	opts.Link = "https://example.com/?a=1&b=2"
	snap := tracker.Snapshot{Daily: []tracker.DailyRecord{daily("2025-01-01", 42.5)}}

	out, err := Build(snap, opts, fixedNow)
	require.NoError(t, err)

	raw := string(out)
	assert.NotContains(t, raw, `<b>`)
	assert.NotContains(t, raw, `"friends"`)
	assert.NotContains(t, raw, "a=1&b=2")
	assert.Contains(t, raw, "Agent &lt;b&gt; &amp; &#34;friends&#34;")
	assert.Contains(t, raw, "a=1&amp;b=2")

	parsed := parse(t, out)
	assert.Equal(t, `Agent <b> & "friends": 42.5% pass rate on 2025-01-01`, parsed.Items[1].Title)
	assert.Equal(t, "https://example.com/?a=1&b=2", parsed.Items[1].Link)
}

func TestBuildOmitsMissingOptionalNumbers(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{
		Daily: []tracker.DailyRecord{
			{Date: "2025-01-01", PassRate: 42.456, CILower: tracker.Float(40)},
			{Date: "2025-01-02", PassRate: 43, Passed: tracker.Int(43)},
		},
		Weekly: []tracker.WeeklyRecord{{StartDate: "2024-12-23", PassRate: 43.1}},
	}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)
	assert.NotContains(t, string(out), "NaN")
	assert.NotContains(t, string(out), "undefined")

	parsed := parse(t, out)
	require.Len(t, parsed.Items, 4)
	assert.Equal(t, "Pass Rate: 43%\nPassed: 43", parsed.Items[1].Description)
	assert.Equal(t, "Pass Rate: 42.46%", parsed.Items[2].Description)

	week := parsed.Items[3]
	assert.Equal(t, "Claude Code Weekly: 43.1% (2024-12-23)", week.Title)
	assert.Equal(t, "Mon, 23 Dec 2024 12:00:00 GMT", week.Published, "falls back to the start date")
}

func TestBuildSkipsPubDateForUnparseableDate(t *testing.T) {
	t.Parallel()

	snap := tracker.Snapshot{Daily: []tracker.DailyRecord{{Date: "Jan 1st", PassRate: 10}}}
	out, err := Build(snap, testOptions(), fixedNow)
	require.NoError(t, err)

	var doc rssDocument
	require.NoError(t, xml.Unmarshal(out, &doc))
	require.Len(t, doc.Channel.Items, 2)
	assert.Empty(t, doc.Channel.Items[1].PubDate)
	assert.Equal(t, "claude-code-daily-Jan 1st", doc.Channel.Items[1].GUID.Value)
}

func TestBuildSelfLink(t *testing.T) {
	t.Parallel()

	opts := testOptions()
	opts.SelfURL = "https://feeds.example.com/feed.xml"
	out, err := Build(tracker.Snapshot{Daily: []tracker.DailyRecord{daily("2025-01-01", 1)}}, opts, fixedNow)
	require.NoError(t, err)
	assert.Contains(t, string(out),
		`<atom:link href="https://feeds.example.com/feed.xml" rel="self" type="application/rss+xml"></atom:link>`)
	assert.Contains(t, string(out), `xmlns:atom="http://www.w3.org/2005/Atom"`)
}

func TestBuildRejectsIncompleteOptions(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		mutate func(*Options)
		want   string
	}{
		{"title", func(o *Options) { o.Title = "" }, "title"},
		{"link", func(o *Options) { o.Link = " " }, "link"},
		{"guid prefix", func(o *Options) { o.GUIDPrefix = "" }, "guid prefix"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			opts := testOptions()
			tt.mutate(&opts)
			_, err := Build(tracker.Snapshot{}, opts, fixedNow)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestChangeVsBaseline(t *testing.T) {
	t.Parallel()

	tests := []struct {
		rate, baseline float64
		want           string
	}{
		{42.5, 40, "+2.5"},
		{39, 40.4, "-1.0"},
		{42, 40.5, "+1.0"},
		{40.04, 40, "+0.0"},
		{39.96, 40, "+0.0"},
		{37.25, 40, "-2.8"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ChangeVsBaseline(tt.rate, tt.baseline), "rate=%v baseline=%v", tt.rate, tt.baseline)
	}
}
