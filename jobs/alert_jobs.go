package jobs

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/expenseflow/expenseflow/internal/alerts"
	jobmetrics "github.com/expenseflow/expenseflow/internal/jobs"
)

// Checks run under a bounded context so a stuck storage call cannot wedge
// the worker.
const jobTimeout = 2 * time.Minute

// AlertJobs adapts the alert engine to Asynq task handlers.
type AlertJobs struct {
	Engine  *alerts.Engine
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

// NewAlertJobs wires the engine into the worker, instrumenting created
// alerts.
func NewAlertJobs(engine *alerts.Engine, logger *slog.Logger, metrics *jobmetrics.Metrics) *AlertJobs {
	j := &AlertJobs{Engine: engine, Logger: logger, Metrics: metrics}
	engine.OnAlertCreated(func(alertType, severity string) {
		metrics.AddAlerts(alertType, severity, 1)
	})
	return j
}

// HandleScan processes TaskAlertScan tasks.
func (j *AlertJobs) HandleScan(ctx context.Context, t *asynq.Task) error {
	return j.run(ctx, t, TaskAlertScan, j.Engine.GenerateAlerts)
}

// HandleLimitSweep processes TaskLimitSweep tasks.
func (j *AlertJobs) HandleLimitSweep(ctx context.Context, t *asynq.Task) error {
	return j.run(ctx, t, TaskLimitSweep, j.Engine.CheckExpenseLimits)
}

// HandleMonthlyReports processes TaskMonthlyReports tasks.
func (j *AlertJobs) HandleMonthlyReports(ctx context.Context, t *asynq.Task) error {
	return j.run(ctx, t, TaskMonthlyReports, j.Engine.SendMonthlyReports)
}

func (j *AlertJobs) run(ctx context.Context, t *asynq.Task, taskType string, check func(context.Context) error) error {
	if j == nil || j.Engine == nil {
		return errors.New("jobs: alert handler not configured")
	}
	var payload ScanPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	ctx, cancel := context.WithTimeout(ctx, jobTimeout)
	defer cancel()

	logger := j.logger().With(slog.String("job", taskType), slog.String("trigger", payload.Trigger))
	logger.Info("job started")

	tracker := j.metrics().Track(taskType)
	start := time.Now()
	err := tracker.End(check(ctx))
	if err != nil {
		logger.Error("job failed", slog.Any("error", err))
		return err
	}
	logger.Info("job finished", slog.Duration("duration", time.Since(start)))
	return nil
}

func (j *AlertJobs) logger() *slog.Logger {
	if j.Logger != nil {
		return j.Logger
	}
	return slog.Default()
}

func (j *AlertJobs) metrics() *jobmetrics.Metrics {
	if j.Metrics != nil {
		return j.Metrics
	}
	return jobmetrics.NewMetrics(nil)
}
