package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskAlertScan runs the combined budget and anomaly checks.
	TaskAlertScan = "alerts:scan"
	// TaskLimitSweep runs the per-user expense limit sweep.
	TaskLimitSweep = "alerts:limit_sweep"
	// TaskMonthlyReports emails the prior-month summaries.
	TaskMonthlyReports = "reports:monthly"
)

// ScanPayload parameterises an engine run. Trigger records what queued the
// task, for the job logs.
type ScanPayload struct {
	Trigger string `json:"trigger"`
}

// NewTask constructs a task of the given type with a scan payload.
func NewTask(taskType, trigger string) (*asynq.Task, error) {
	data, err := json.Marshal(ScanPayload{Trigger: trigger})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, data), nil
}
