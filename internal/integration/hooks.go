package integration

import (
	"context"
	"log/slog"
	"time"

	"github.com/hibiken/asynq"

	"github.com/acero-crm/acero-crm/internal/agents"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/jobs"
)

// ReportCache busts derived dashboard caches.
type ReportCache interface {
	Invalidate(ctx context.Context)
}

// Queue enqueues outbound deliveries for the worker.
type Queue interface {
	EnqueueWebhookNotify(ctx context.Context, payload jobs.WebhookNotifyPayload) (*asynq.TaskInfo, error)
}

// AgentDirectory lists digital employees eligible for notifications.
type AgentDirectory interface {
	ListEnabled(ctx context.Context) ([]agents.Agent, error)
}

// Hooks fans quotation lifecycle events out to the report cache and the
// digital employee queue. Delivery itself happens on the worker, so a
// broken agent endpoint never slows down a request.
type Hooks struct {
	reports ReportCache
	queue   Queue
	agents  AgentDirectory
	logger  *slog.Logger
	now     func() time.Time
}

// NewHooks constructs the event fan-out. Any dependency may be nil, in
// which case that leg is skipped.
func NewHooks(reports ReportCache, queue Queue, agentDir AgentDirectory, logger *slog.Logger) *Hooks {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{reports: reports, queue: queue, agents: agentDir, logger: logger, now: time.Now}
}

// QuotationEvent implements quotes.EventSink.
func (h *Hooks) QuotationEvent(ctx context.Context, event string, q *quotes.Quotation) {
	if h == nil || q == nil {
		return
	}
	if h.reports != nil {
		h.reports.Invalidate(ctx)
	}
	if h.queue == nil || h.agents == nil {
		return
	}

	list, err := h.agents.ListEnabled(ctx)
	if err != nil {
		h.logger.Warn("list agents for notify", slog.Any("error", err))
		return
	}
	payload := quotationPayload(event, q, h.now())
	for _, agent := range list {
		payload.AgentID = agent.ID
		if _, err := h.queue.EnqueueWebhookNotify(ctx, payload); err != nil {
			h.logger.Warn("enqueue webhook notify",
				slog.String("agent", agent.Slug),
				slog.String("event", event),
				slog.Any("error", err))
		}
	}
}

func quotationPayload(event string, q *quotes.Quotation, at time.Time) jobs.WebhookNotifyPayload {
	lines := make([]map[string]any, 0, len(q.Lines))
	for _, l := range q.Lines {
		lines = append(lines, map[string]any{
			"kind":             l.Kind,
			"name":             l.Name,
			"sku":              l.SKU,
			"quantity":         l.Quantity,
			"unit_price":       l.UnitPrice,
			"discount_percent": l.DiscountPercent,
			"line_subtotal":    l.LineSubtotal,
		})
	}
	return jobs.WebhookNotifyPayload{
		Event: event,
		Data: map[string]any{
			"doc_number":     q.DocNumber,
			"status":         q.Status,
			"client_id":      q.ClientID,
			"currency":       q.Currency,
			"subtotal":       q.Subtotal,
			"discount_total": q.DiscountTotal,
			"tax_amount":     q.TaxAmount,
			"grand_total":    q.GrandTotal,
			"version_number": q.VersionNumber,
			"lines":          lines,
		},
		SentAt: at,
	}
}
