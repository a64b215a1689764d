package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ticketbot/models"
)

var (
	// ErrNoData signals that the window holds no ticket rows at all. It is a
	// valid state, distinct from a store failure, and means there is nothing
	// to render.
	ErrNoData = errors.New("no ticket data in window")

	// ErrDataUnavailable wraps store/query failures. The report for that
	// occurrence is dropped; partial data is never returned.
	ErrDataUnavailable = errors.New("ticket store unavailable")
)

// departedLabel groups rows whose player dimension is gone (member left the
// guild before the report ran).
const departedLabel = "(departed)"

// ReportService aggregates the ticket fact table into the two report views.
type ReportService struct {
	conn  *sql.DB
	quota int
	log   *zap.SugaredLogger
}

func NewReportService(conn *sql.DB, quota int, log *zap.SugaredLogger) *ReportService {
	return &ReportService{conn: conn, quota: quota, log: log}
}

func (s *ReportService) Quota() int {
	return s.quota
}

const dailySeriesQuery = `
	SELECT dt.date, SUM(ft.tickets) AS tickets, dg.name
	FROM f_tickets ft
	JOIN d_time dt ON ft.sk_time = dt.id
	JOIN d_guild dg ON ft.sk_guild = dg.id
	WHERE dt.date > current_date - $2::int
	  AND dg.guild_id = $1
	GROUP BY dt.date, dg.name
	ORDER BY dt.date ASC`

// FetchDailySeries sums tickets per calendar day for one guild over the
// trailing window, ascending by date. Returns ErrNoData when the window is
// empty so callers never hand an empty series to the renderer.
func (s *ReportService) FetchDailySeries(ctx context.Context, guildID string, lookbackDays int) (models.DailySeries, error) {
	s.log.Infow("fetching daily ticket series", "guild", guildID, "days", lookbackDays)

	rows, err := s.conn.QueryContext(ctx, dailySeriesQuery, guildID, lookbackDays)
	if err != nil {
		return models.DailySeries{}, errors.Mark(errors.Wrap(err, "daily series query"), ErrDataUnavailable)
	}
	defer rows.Close()

	var series models.DailySeries
	for rows.Next() {
		var (
			date    time.Time
			tickets int
			name    string
		)
		if err := rows.Scan(&date, &tickets, &name); err != nil {
			return models.DailySeries{}, errors.Mark(errors.Wrap(err, "daily series scan"), ErrDataUnavailable)
		}
		series.GuildName = name
		series.Points = append(series.Points, models.DailyPoint{Date: date, Tickets: tickets})
	}
	if err := rows.Err(); err != nil {
		return models.DailySeries{}, errors.Mark(err, ErrDataUnavailable)
	}

	if len(series.Points) == 0 {
		return models.DailySeries{}, errors.Wrapf(ErrNoData, "guild %s", guildID)
	}
	return series, nil
}

const deficiencyQuery = `
	SELECT COALESCE(dp.name, $4) AS player, SUM($3::int - ft.tickets) AS tickets_missed
	FROM f_tickets ft
	JOIN d_time dt ON dt.id = ft.sk_time
	LEFT JOIN d_player dp ON dp.id = ft.sk_player
	JOIN d_guild dg ON dg.id = ft.sk_guild
	WHERE ft.tickets < $3::int
	  AND dg.guild_id = $1
	  AND dt.date >= current_date - $2::int
	GROUP BY COALESCE(dp.name, $4)
	ORDER BY 2 DESC`

// FetchDeficiencyTable sums (quota - tickets) per player over the window for
// every day a player fell short, descending by the total. An empty table is a
// valid result: nobody missed the quota.
func (s *ReportService) FetchDeficiencyTable(ctx context.Context, guildID string, lookbackDays int) (models.DeficiencyTable, error) {
	s.log.Infow("fetching deficiency table", "guild", guildID, "days", lookbackDays, "quota", s.quota)

	rows, err := s.conn.QueryContext(ctx, deficiencyQuery, guildID, lookbackDays, s.quota, departedLabel)
	if err != nil {
		return nil, errors.Mark(errors.Wrap(err, "deficiency query"), ErrDataUnavailable)
	}
	defer rows.Close()

	table := models.DeficiencyTable{}
	for rows.Next() {
		var entry models.DeficiencyEntry
		if err := rows.Scan(&entry.Player, &entry.TicketsMissed); err != nil {
			return nil, errors.Mark(errors.Wrap(err, "deficiency scan"), ErrDataUnavailable)
		}
		table = append(table, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Mark(err, ErrDataUnavailable)
	}

	return table, nil
}
