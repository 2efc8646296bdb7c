package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"

	// TaskQuoteExpiry marks overdue sent quotations as expired.
	TaskQuoteExpiry = "quotes:expire"
	// TaskWebhookNotify delivers a CRM event to a digital employee.
	TaskWebhookNotify = "agents:notify"
	// TaskDashboardWarmup precomputes the sales dashboard cache.
	TaskDashboardWarmup = "reports:warmup"
	// TaskAgentProbe refreshes digital employee health statuses.
	TaskAgentProbe = "agents:probe"
)

// WebhookNotifyPayload describes one event delivery to an agent.
type WebhookNotifyPayload struct {
	AgentID int64          `json:"agent_id"`
	Event   string         `json:"event"`
	Data    map[string]any `json:"data,omitempty"`
	SentAt  time.Time      `json:"sent_at"`
}

// NewQuoteExpiryTask constructs the expiry sweep task.
func NewQuoteExpiryTask() *asynq.Task {
	return asynq.NewTask(TaskQuoteExpiry, nil)
}

// NewWebhookNotifyTask constructs a delivery task with retry backoff
// handled by the queue.
func NewWebhookNotifyTask(payload WebhookNotifyPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskWebhookNotify, data, asynq.MaxRetry(5), asynq.Timeout(30*time.Second)), nil
}

// NewDashboardWarmupTask constructs the cache warmup task.
func NewDashboardWarmupTask() *asynq.Task {
	return asynq.NewTask(TaskDashboardWarmup, nil)
}

// NewAgentProbeTask constructs the agent health sweep task.
func NewAgentProbeTask() *asynq.Task {
	return asynq.NewTask(TaskAgentProbe, nil)
}
