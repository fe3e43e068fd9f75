package report

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/passrate-feed/internal/pipeline"
	"github.com/JakeFAU/passrate-feed/internal/tracker"
	"github.com/JakeFAU/passrate-feed/internal/writer"
)

func TestRenderSummary(t *testing.T) {
	t.Parallel()

	digest := strings.Repeat("ab", 32)
	s := pipeline.Summary{
		RunID:         "run-1",
		URL:           "https://tracker.example.com/",
		FetchDuration: 1234 * time.Millisecond,
		PageBytes:     2048,
		Daily:         3,
		Weekly:        1,
		Latest:        &tracker.DailyRecord{Date: "2025-01-03", PassRate: 42.5},
		Baseline:      tracker.Float(40),
		Artifacts: []writer.Artifact{
			{Name: "feed.xml", URI: "file:///srv/feed.xml", Bytes: 1500, SHA256: digest},
		},
	}

	var buf bytes.Buffer
	Render(&buf, s)
	out := buf.String()

	assert.Contains(t, out, "Feed run run-1")
	assert.Contains(t, out, "https://tracker.example.com/")
	assert.Contains(t, out, "42.5% on 2025-01-03")
	assert.Contains(t, out, "40%")
	assert.Contains(t, out, "1.234s (2048 bytes)")
	assert.Contains(t, out, "file:///srv/feed.xml")
	assert.Contains(t, out, "1500")
	assert.Contains(t, out, digest[:12])
	assert.NotContains(t, out, digest[:13])
}

func TestRenderWithoutArtifacts(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	Render(&buf, pipeline.Summary{RunID: "run-2"})
	out := buf.String()

	assert.Contains(t, out, "Feed run run-2")
	assert.NotContains(t, out, "SHA256")
	assert.Contains(t, out, "Latest")
	assert.Contains(t, out, "0s (0 bytes)")
}
