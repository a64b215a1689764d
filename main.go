package main

import (
	"context"
	"database/sql"
	"log"
	"os"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"ticketbot/config"
	"ticketbot/db"
	"ticketbot/delivery"
	"ticketbot/handlers"
	"ticketbot/logging"
	"ticketbot/models"
	"ticketbot/render"
	"ticketbot/scheduler"
	"ticketbot/services"
)

func runMigrations(conn *sql.DB) {
	sqlBytes, err := os.ReadFile("schema.sql")
	if err != nil {
		log.Fatal("Failed to read schema.sql: ", err)
	}

	if _, err := conn.Exec(string(sqlBytes)); err != nil {
		log.Fatal("Failed to apply schema: ", err)
	}
	log.Println("Database schema verified")
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal("Failed to load config: ", err)
	}

	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("Failed to connect to database: ", err)
	}
	runMigrations(conn)

	logger := logging.New(conn)
	defer logger.Sync()

	sink := delivery.NewDiscordWebhook(cfg.WebhookURL, logger)
	var emailer *delivery.Emailer
	if cfg.EmailEnabled() {
		emailer = delivery.NewEmailer(cfg.SendgridAPIKey, cfg.ReportEmail, logger)
	}

	reports := services.NewReportService(conn, cfg.Quota, logger)
	runs := services.NewRunRecorder(conn, logger)
	chart := render.NewChart(cfg.Backgrounds)
	reporter := services.NewReporter(reports, chart, sink, emailer, cfg.ChartPath, logger)

	jobKinds := make(map[string]string, len(cfg.Jobs))
	sched := scheduler.New(logger, scheduler.WithRunFunc(func(jobName string, firedAt time.Time, err error) {
		status, detail := "ok", ""
		switch {
		case err == nil:
		case errors.Is(err, services.ErrNoData):
			status, detail = "empty", err.Error()
		default:
			status, detail = "error", err.Error()
		}
		runs.Record(context.Background(), models.ReportRun{
			JobName: jobName,
			Kind:    jobKinds[jobName],
			Status:  status,
			Detail:  detail,
			FiredAt: firedAt,
		})
	}))

	for _, jc := range cfg.Jobs {
		trigger, err := scheduler.ParseTrigger(jc.Schedule)
		if err != nil {
			logger.Fatalw("bad job schedule", "job", jc.Name, "error", err)
		}

		var action scheduler.Action
		switch jc.Kind {
		case models.KindChart:
			action = reporter.ChartReport(jc.GuildID, jc.LookbackDays)
		case models.KindDeficiency:
			action = reporter.DeficiencyReport(jc.GuildID, jc.GuildName, jc.LookbackDays)
		default:
			logger.Fatalw("unknown job kind", "job", jc.Name, "kind", jc.Kind)
		}

		jobKinds[jc.Name] = jc.Kind
		sched.Add(jc.Name, trigger, action)
		logger.Infow("job registered", "job", jc.Name, "schedule", jc.Schedule, "kind", jc.Kind)
	}

	ctx := context.Background()
	waitForChannel(ctx, sink, logger)
	go sched.Run(ctx)

	r := gin.Default()
	status := handlers.NewStatus(sched, runs)
	r.GET("/healthz", status.Health)
	api := r.Group("/api")
	{
		api.GET("/jobs", status.ListJobs)
		api.GET("/runs", status.RecentRuns)
	}

	logger.Infow("status server starting", "port", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatalw("status server failed", "error", err)
	}
}

// waitForChannel blocks until the delivery channel resolves. Reports must not
// start firing into a webhook that isn't there yet.
func waitForChannel(ctx context.Context, sink delivery.Sink, logger *zap.SugaredLogger) {
	for {
		err := sink.Ready(ctx)
		if err == nil {
			logger.Info("delivery channel ready")
			return
		}
		logger.Warnw("delivery channel not ready, retrying", "error", err)
		time.Sleep(15 * time.Second)
	}
}
