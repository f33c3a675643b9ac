package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskSalesWatch polls the pending sales set and announces changes.
	TaskSalesWatch = "sales:watch"
	// TaskLookupRefresh drops every cached lookup list.
	TaskLookupRefresh = "lookup:refresh"
)

// SalesWatchPayload tunes one watcher run.
type SalesWatchPayload struct {
	// Force publishes even when the pending set is unchanged.
	Force bool `json:"force,omitempty"`
}

// NewSalesWatchTask constructs a watcher task.
func NewSalesWatchTask(payload SalesWatchPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskSalesWatch, data, asynq.MaxRetry(0)), nil
}

// NewLookupRefreshTask constructs a lookup refresh task.
func NewLookupRefreshTask() *asynq.Task {
	return asynq.NewTask(TaskLookupRefresh, nil, asynq.MaxRetry(1))
}
