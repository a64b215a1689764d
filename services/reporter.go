package services

import (
	"context"
	"os"
	"path/filepath"
	"sync"

	"github.com/cockroachdb/errors"
	"go.uber.org/zap"

	"ticketbot/delivery"
	"ticketbot/render"
)

// Reporter builds the per-job actions: fetch, render, deliver. All chart jobs
// share one image path, so render-then-send is held under one mutex to keep a
// second job from overwriting the file mid-send.
type Reporter struct {
	reports *ReportService
	chart   *render.Chart
	sink    delivery.Sink
	emailer *delivery.Emailer // nil when email copies are not configured
	log     *zap.SugaredLogger

	chartPath string
	chartMu   sync.Mutex
}

func NewReporter(reports *ReportService, chart *render.Chart, sink delivery.Sink, emailer *delivery.Emailer, chartPath string, log *zap.SugaredLogger) *Reporter {
	return &Reporter{
		reports:   reports,
		chart:     chart,
		sink:      sink,
		emailer:   emailer,
		chartPath: chartPath,
		log:       log,
	}
}

// ChartReport returns the action for a daily ticket chart job. An empty
// window surfaces as ErrNoData before any rendering happens.
func (r *Reporter) ChartReport(guildID string, lookbackDays int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		series, err := r.reports.FetchDailySeries(ctx, guildID, lookbackDays)
		if err != nil {
			return err
		}

		r.chartMu.Lock()
		defer r.chartMu.Unlock()

		png, err := r.chart.Render(series, lookbackDays)
		if err != nil {
			return err
		}
		if err := os.MkdirAll(filepath.Dir(r.chartPath), 0o755); err != nil {
			return errors.Wrap(err, "create chart dir")
		}
		if err := os.WriteFile(r.chartPath, png, 0o644); err != nil {
			return errors.Wrap(err, "write chart file")
		}
		r.log.Infow("chart rendered", "guild", series.GuildName, "path", r.chartPath)

		return r.sink.SendFile(ctx, r.chartPath)
	}
}

// DeficiencyReport returns the action for a missed-tickets report job. An
// empty table is delivered as the "Perfect!" message, not skipped.
func (r *Reporter) DeficiencyReport(guildID, guildName string, lookbackDays int) func(ctx context.Context) error {
	return func(ctx context.Context) error {
		table, err := r.reports.FetchDeficiencyTable(ctx, guildID, lookbackDays)
		if err != nil {
			return err
		}

		artifact := render.DeficiencyText(table, guildName, lookbackDays)
		if err := r.sink.SendText(ctx, artifact); err != nil {
			return err
		}

		if r.emailer != nil {
			if err := r.emailer.Send(artifact); err != nil {
				// Channel delivery already succeeded; the email copy is best
				// effort.
				r.log.Warnw("email copy failed", "guild", guildName, "error", err)
			}
		}
		return nil
	}
}
