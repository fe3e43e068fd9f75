// Package report renders a human-readable run summary.
package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/JakeFAU/passrate-feed/internal/hash/sha256"
	"github.com/JakeFAU/passrate-feed/internal/pipeline"
)

const digestWidth = 12

// Render writes the run overview followed by the artifact table.
func Render(w io.Writer, s pipeline.Summary) {
	overview := table.NewWriter()
	overview.SetOutputMirror(w)
	overview.SetStyle(table.StyleLight)
	overview.SetTitle("Feed run " + s.RunID)
	overview.AppendRows([]table.Row{
		{"Source", s.URL},
		{"Daily records", s.Daily},
		{"Weekly records", s.Weekly},
		{"Latest", latest(s)},
		{"Baseline", baseline(s)},
		{"Fetch", fmt.Sprintf("%s (%d bytes)", s.FetchDuration.Round(time.Millisecond), s.PageBytes)},
	})
	overview.Render()

	if len(s.Artifacts) == 0 {
		return
	}
	tbl := table.NewWriter()
	tbl.SetOutputMirror(w)
	tbl.SetStyle(table.StyleLight)
	tbl.AppendHeader(table.Row{"Artifact", "URI", "Bytes", "SHA256"})
	tbl.AppendRows(artifactRows(s))
	tbl.SetColumnConfigs([]table.ColumnConfig{
		{Number: 3, Align: text.AlignRight},
	})
	tbl.Render()
}

func artifactRows(s pipeline.Summary) []table.Row {
	rows := make([]table.Row, 0, len(s.Artifacts))
	for _, a := range s.Artifacts {
		rows = append(rows, table.Row{a.Name, a.URI, a.Bytes, sha256.Short(a.SHA256, digestWidth)})
	}
	return rows
}

func latest(s pipeline.Summary) string {
	if s.Latest == nil {
		return "-"
	}
	return fmt.Sprintf("%s%% on %s", strconv.FormatFloat(s.Latest.PassRate, 'f', -1, 64), s.Latest.Date)
}

func baseline(s pipeline.Summary) string {
	if s.Baseline == nil {
		return "-"
	}
	return strconv.FormatFloat(*s.Baseline, 'f', -1, 64) + "%"
}
