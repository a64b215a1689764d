package models

import (
	"time"
)

// Report kinds as they appear in config and the report_runs audit table.
const (
	KindChart      = "chart"
	KindDeficiency = "deficiency"
)

// DailyPoint is one aggregated day of guild ticket contributions.
type DailyPoint struct {
	Date    time.Time `json:"date"`
	Tickets int       `json:"tickets"`
}

// DailySeries is the per-day ticket totals for one guild over a lookback
// window, ascending by date. Never empty: the provider returns ErrNoData
// instead of an empty series.
type DailySeries struct {
	GuildName string       `json:"guild_name"`
	Points    []DailyPoint `json:"points"`
}

// DeficiencyEntry is one player's accumulated missed tickets over the window.
type DeficiencyEntry struct {
	Player        string `json:"player"`
	TicketsMissed int    `json:"tickets_missed"`
}

// DeficiencyTable lists deficient players, descending by tickets missed.
// An empty table is valid and means nobody missed the quota.
type DeficiencyTable []DeficiencyEntry

func (t DeficiencyTable) TotalMissed() int {
	total := 0
	for _, e := range t {
		total += e.TicketsMissed
	}
	return total
}

// TextArtifact is a rendered message body ready for delivery.
type TextArtifact struct {
	Title       string `json:"title"`
	Description string `json:"description"`
}

// ReportRun is one audit row per fired scheduled job.
type ReportRun struct {
	ID      string    `json:"id"`
	JobName string    `json:"job_name"`
	Kind    string    `json:"kind"`
	Status  string    `json:"status"` // ok | empty | error
	Detail  string    `json:"detail,omitempty"`
	FiredAt time.Time `json:"fired_at"`
}
