package jobs

import (
	"context"
	"errors"
	"log/slog"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
)

// QuoteExpirer sweeps overdue sent quotations.
type QuoteExpirer interface {
	ExpireOverdue(ctx context.Context) (int, error)
}

// QuoteExpiryJob runs the nightly expiry sweep. Each expired quotation
// gets a system-owned version snapshot from the quotes service.
type QuoteExpiryJob struct {
	Quotes  QuoteExpirer
	Logger  *slog.Logger
	Metrics *jobmetrics.Metrics
}

func NewQuoteExpiryJob(quotes QuoteExpirer, logger *slog.Logger, metrics *jobmetrics.Metrics) *QuoteExpiryJob {
	return &QuoteExpiryJob{Quotes: quotes, Logger: logger, Metrics: metrics}
}

// Handle processes TaskQuoteExpiry tasks.
func (j *QuoteExpiryJob) Handle(ctx context.Context, _ *asynq.Task) error {
	if j == nil || j.Quotes == nil {
		return errors.New("quote expiry: handler not configured")
	}

	tracker := j.Metrics.Track(TaskQuoteExpiry)
	expired, err := j.Quotes.ExpireOverdue(ctx)
	if err != nil {
		j.Logger.Error("quote expiry sweep", slog.Any("error", err))
		return tracker.End(err)
	}

	j.Metrics.AddExpired(expired)
	if expired > 0 {
		j.Logger.Info("quote expiry sweep", slog.Int("expired", expired))
	}
	return tracker.End(nil)
}
