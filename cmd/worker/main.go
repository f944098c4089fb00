package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"

	"github.com/expenseflow/expenseflow/internal/alerts"
	"github.com/expenseflow/expenseflow/internal/app"
	jobmetrics "github.com/expenseflow/expenseflow/internal/jobs"
	"github.com/expenseflow/expenseflow/internal/notify"
	platformcache "github.com/expenseflow/expenseflow/internal/platform/cache"
	"github.com/expenseflow/expenseflow/internal/platform/db"
	"github.com/expenseflow/expenseflow/jobs"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	redisClient, err := platformcache.New(ctx, cfg.RedisAddr)
	if err != nil {
		logger.Error("connect redis", slog.Any("error", err))
		os.Exit(1)
	}
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Warn("redis close", slog.Any("error", err))
		}
	}()

	mailer := notify.NewMailer(notify.SMTPConfig{
		Host: cfg.SMTPHost,
		Port: cfg.SMTPPort,
		From: cfg.SMTPFrom,
	})
	broadcaster := notify.NewRedisBroadcaster(redisClient)
	dispatcher := notify.NewDispatcher(logger, mailer, broadcaster)

	engine := alerts.NewEngine(logger, alerts.NewRepository(pool), dispatcher)
	alertJobs := jobs.NewAlertJobs(engine, logger, jobmetrics.NewMetrics(nil))

	scanTask, err := jobs.NewTask(jobs.TaskAlertScan, "cron")
	if err != nil {
		logger.Error("build scan task", slog.Any("error", err))
		os.Exit(1)
	}
	sweepTask, err := jobs.NewTask(jobs.TaskLimitSweep, "cron")
	if err != nil {
		logger.Error("build sweep task", slog.Any("error", err))
		os.Exit(1)
	}
	reportTask, err := jobs.NewTask(jobs.TaskMonthlyReports, "cron")
	if err != nil {
		logger.Error("build report task", slog.Any("error", err))
		os.Exit(1)
	}

	worker, err := jobs.NewWorker(jobs.WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: cfg.RedisAddr},
		Logger:    logger,
		Handlers: []jobs.TaskHandler{
			{Type: jobs.TaskAlertScan, Handler: alertJobs.HandleScan},
			{Type: jobs.TaskLimitSweep, Handler: alertJobs.HandleLimitSweep},
			{Type: jobs.TaskMonthlyReports, Handler: alertJobs.HandleMonthlyReports},
		},
		Cron: []jobs.CronRegistration{
			{Spec: "@every 5m", Task: scanTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "@every 1h", Task: sweepTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
			{Spec: "0 0 1 * *", Task: reportTask, Options: []asynq.Option{asynq.MaxRetry(3)}},
		},
	})
	if err != nil {
		logger.Error("init worker", slog.Any("error", err))
		os.Exit(1)
	}

	// Run the first sweep shortly after boot so a restart never leaves a
	// long gap in alert coverage.
	client := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.RedisAddr})
	for _, task := range []*asynq.Task{scanTask, sweepTask} {
		if _, err := client.EnqueueContext(ctx, task, asynq.ProcessIn(5*time.Second), asynq.Queue(jobs.QueueDefault)); err != nil {
			logger.Warn("enqueue startup task", slog.String("type", task.Type()), slog.Any("error", err))
		}
	}
	if err := client.Close(); err != nil {
		logger.Warn("client close", slog.Any("error", err))
	}

	if err := worker.Run(ctx); err != nil && err != context.Canceled {
		logger.Error("worker run", slog.Any("error", err))
		os.Exit(1)
	}
}
