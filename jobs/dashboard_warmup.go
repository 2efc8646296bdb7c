package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
)

// DashboardWarmer precomputes the dashboard cache.
type DashboardWarmer interface {
	Warm(ctx context.Context) error
}

// DashboardWarmupJob refreshes the sales dashboard before office hours.
type DashboardWarmupJob struct {
	Reports DashboardWarmer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewDashboardWarmupJob(reports DashboardWarmer, logger *slog.Logger, metrics *jobmetrics.Metrics) *DashboardWarmupJob {
	return &DashboardWarmupJob{Reports: reports, Logger: logger, Metrics: metrics}
}

// Handle processes TaskDashboardWarmup tasks.
func (j *DashboardWarmupJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Reports == nil {
		return errors.New("dashboard warmup: handler not configured")
	}

	tracker := j.Metrics.Track(TaskDashboardWarmup)
	if err := j.Reports.Warm(ctx); err != nil {
		j.Logger.Error("dashboard warmup", slog.Any("error", err))
		return tracker.End(err)
	}
	return tracker.End(nil)
}
