package services

import (
	"context"
	"database/sql"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"ticketbot/models"
)

// RunRecorder keeps the report_runs audit trail: one row per fired job.
type RunRecorder struct {
	conn *sql.DB
	log  *zap.SugaredLogger
}

func NewRunRecorder(conn *sql.DB, log *zap.SugaredLogger) *RunRecorder {
	return &RunRecorder{conn: conn, log: log}
}

// Record inserts one audit row. Best effort: a failed insert is logged and
// dropped, the report itself already went out (or didn't).
func (r *RunRecorder) Record(ctx context.Context, run models.ReportRun) {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}
	if run.FiredAt.IsZero() {
		run.FiredAt = time.Now()
	}

	_, err := r.conn.ExecContext(ctx, `
		INSERT INTO report_runs (id, job_name, kind, status, detail, fired_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, run.ID, run.JobName, run.Kind, run.Status, run.Detail, run.FiredAt)
	if err != nil {
		r.log.Errorw("failed to record report run", "job", run.JobName, "error", err)
	}
}

// Recent returns the latest audit rows, newest first.
func (r *RunRecorder) Recent(ctx context.Context, limit int) ([]models.ReportRun, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT id, job_name, kind, status, COALESCE(detail, ''), fired_at
		FROM report_runs
		ORDER BY fired_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, errors.Wrap(err, "query report runs")
	}
	defer rows.Close()

	runs := []models.ReportRun{}
	for rows.Next() {
		var run models.ReportRun
		if err := rows.Scan(&run.ID, &run.JobName, &run.Kind, &run.Status, &run.Detail, &run.FiredAt); err != nil {
			return nil, errors.Wrap(err, "scan report run")
		}
		runs = append(runs, run)
	}
	return runs, rows.Err()
}
