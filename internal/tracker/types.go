// Package tracker defines the core types shared across the feed pipeline.
package tracker

// DailyRecord is one day's aggregated pass-rate measurement.
type DailyRecord struct {
	Date      string   `json:"date"`
	PassRate  float64  `json:"passRate"`
	CILower   *float64 `json:"ciLower,omitempty"`
	CIUpper   *float64 `json:"ciUpper,omitempty"`
	RunsCount *int     `json:"runsCount,omitempty"`
	Passed    *int     `json:"passed,omitempty"`
}

// WeeklyRecord is one week's aggregated pass-rate measurement over a named range.
type WeeklyRecord struct {
	StartDate string   `json:"startDate"`
	EndDate   string   `json:"endDate,omitempty"`
	DateRange string   `json:"dateRange,omitempty"`
	PassRate  float64  `json:"passRate"`
	CILower   *float64 `json:"ciLower,omitempty"`
	CIUpper   *float64 `json:"ciUpper,omitempty"`
	RunsCount *int     `json:"runsCount,omitempty"`
}

// Snapshot is everything extracted from a single fetch of the source page.
// Nil slices and a nil baseline mean the value was not found and serialize as null.
type Snapshot struct {
	Daily    []DailyRecord  `json:"daily"`
	Weekly   []WeeklyRecord `json:"weekly"`
	Baseline *float64       `json:"baseline"`
}

// HasBaseline reports whether a baseline value was extracted.
func (s Snapshot) HasBaseline() bool {
	return s.Baseline != nil
}

// Validate returns ErrNoDailyData when the snapshot carries no daily records.
func (s Snapshot) Validate() error {
	if len(s.Daily) == 0 {
		return ErrNoDailyData
	}
	return nil
}

// Float returns a pointer to v. Handy for building optional record fields.
func Float(v float64) *float64 {
	return &v
}

// Int returns a pointer to v.
func Int(v int) *int {
	return &v
}
