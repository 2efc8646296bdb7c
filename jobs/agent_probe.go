package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
)

// AgentProber refreshes health status for every enabled agent.
type AgentProber interface {
	ProbeAll(ctx context.Context) (online, offline int, err error)
}

// AgentProbeJob keeps the digital employee panel's health column fresh.
type AgentProbeJob struct {
	Agents  AgentProber
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewAgentProbeJob(agents AgentProber, logger *slog.Logger, metrics *jobmetrics.Metrics) *AgentProbeJob {
	return &AgentProbeJob{Agents: agents, Logger: logger, Metrics: metrics}
}

// Handle processes TaskAgentProbe tasks.
func (j *AgentProbeJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Agents == nil {
		return errors.New("agent probe: handler not configured")
	}

	tracker := j.Metrics.Track(TaskAgentProbe)
	online, offline, err := j.Agents.ProbeAll(ctx)
	if err != nil {
		j.Logger.Error("agent probe sweep", slog.Any("error", err))
		return tracker.End(err)
	}
	j.Logger.Info("agent probe sweep", slog.Int("online", online), slog.Int("offline", offline))
	return tracker.End(nil)
}
