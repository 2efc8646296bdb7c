package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/hibiken/asynq"

	"github.com/acero-crm/acero-crm/internal/agents"
	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

// AgentSource looks up digital employee configurations.
type AgentSource interface {
	Get(ctx context.Context, id int64) (*agents.Agent, error)
}

// WebhookNotifyJob delivers CRM events to digital employees. Transient
// delivery failures return an error so the queue retries with backoff;
// misconfigured payloads and disabled agents are dropped.
type WebhookNotifyJob struct {
	Agents  AgentSource
	Client  *http.Client
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewWebhookNotifyJob(agentSource AgentSource, logger *slog.Logger, metrics *jobmetrics.Metrics) *WebhookNotifyJob {
	return &WebhookNotifyJob{
		Agents:  agentSource,
		Client:  &http.Client{Timeout: 10 * time.Second},
		Logger:  logger,
		Metrics: metrics,
	}
}

// Handle processes TaskWebhookNotify tasks.
func (j *WebhookNotifyJob) Handle(ctx context.Context, t *asynq.Task) error {
	if j == nil || j.Agents == nil {
		return errors.New("webhook notify: handler not configured")
	}

	var payload WebhookNotifyPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		return asynq.SkipRetry
	}

	tracker := j.Metrics.Track(TaskWebhookNotify)

	agent, err := j.Agents.Get(ctx, payload.AgentID)
	if err != nil {
		if errors.Is(err, httpx.ErrNotFound) {
			j.Logger.Warn("webhook notify: agent gone", slog.Int64("agent_id", payload.AgentID))
			return tracker.End(asynq.SkipRetry)
		}
		return tracker.End(err)
	}
	if !agent.IsEnabled {
		j.Logger.Info("webhook notify: agent disabled", slog.String("agent", agent.Slug))
		return tracker.End(asynq.SkipRetry)
	}

	if err := j.deliver(ctx, agent, payload); err != nil {
		j.Logger.Warn("webhook notify: delivery failed",
			slog.String("agent", agent.Slug),
			slog.String("event", payload.Event),
			slog.Any("error", err))
		return tracker.End(err)
	}

	return tracker.End(nil)
}

func (j *WebhookNotifyJob) deliver(ctx context.Context, agent *agents.Agent, payload WebhookNotifyPayload) error {
	body, err := json.Marshal(map[string]any{
		"event":   payload.Event,
		"data":    payload.Data,
		"sent_at": payload.SentAt,
	})
	if err != nil {
		return asynq.SkipRetry
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, agent.WebhookURL, bytes.NewReader(body))
	if err != nil {
		return asynq.SkipRetry
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := j.Client.Do(req)
	if err != nil {
		return err
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 400 {
		return fmt.Errorf("agent %s responded %d", agent.Slug, resp.StatusCode)
	}
	return nil
}
