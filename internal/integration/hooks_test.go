package integration

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/agents"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/jobs"
)

type stubReports struct {
	bumps int
}

func (s *stubReports) Invalidate(context.Context) { s.bumps++ }

type stubQueue struct {
	payloads []jobs.WebhookNotifyPayload
	err      error
}

func (s *stubQueue) EnqueueWebhookNotify(_ context.Context, payload jobs.WebhookNotifyPayload) (*asynq.TaskInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	s.payloads = append(s.payloads, payload)
	return &asynq.TaskInfo{}, nil
}

type stubAgents struct {
	enabled []agents.Agent
	err     error
}

func (s *stubAgents) ListEnabled(context.Context) ([]agents.Agent, error) {
	return s.enabled, s.err
}

func testQuotation() *quotes.Quotation {
	return &quotes.Quotation{
		ID:            12,
		DocNumber:     "COT-2503-0012",
		ClientID:      7,
		Status:        quotes.StatusAccepted,
		Currency:      "MXN",
		Subtotal:      8400,
		TaxAmount:     1344,
		GrandTotal:    9744,
		VersionNumber: 3,
		Lines: []quotes.LineItem{
			{Kind: quotes.KindProduct, Name: "Varilla 3/8", SKU: "VAR-38", Quantity: 20, UnitPrice: 420, LineSubtotal: 8400},
		},
	}
}

func newTestHooks(reports *stubReports, queue *stubQueue, dir *stubAgents) *Hooks {
	h := NewHooks(reports, queue, dir, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.now = func() time.Time { return time.Date(2025, 3, 20, 12, 0, 0, 0, time.UTC) }
	return h
}

func TestQuotationEventFansOut(t *testing.T) {
	reports := &stubReports{}
	queue := &stubQueue{}
	dir := &stubAgents{enabled: []agents.Agent{
		{ID: 1, Slug: "cotizador"},
		{ID: 2, Slug: "seguimiento"},
	}}
	h := newTestHooks(reports, queue, dir)

	h.QuotationEvent(context.Background(), "quotation.accepted", testQuotation())

	assert.Equal(t, 1, reports.bumps)
	require.Len(t, queue.payloads, 2)
	assert.Equal(t, int64(1), queue.payloads[0].AgentID)
	assert.Equal(t, int64(2), queue.payloads[1].AgentID)

	first := queue.payloads[0]
	assert.Equal(t, "quotation.accepted", first.Event)
	assert.Equal(t, "COT-2503-0012", first.Data["doc_number"])
	assert.Equal(t, 9744.0, first.Data["grand_total"])
	lines, ok := first.Data["lines"].([]map[string]any)
	require.True(t, ok)
	require.Len(t, lines, 1)
	assert.Equal(t, "VAR-38", lines[0]["sku"])
}

func TestQuotationEventWithoutQueueStillBumpsCache(t *testing.T) {
	reports := &stubReports{}
	h := NewHooks(reports, nil, nil, nil)

	h.QuotationEvent(context.Background(), "quotation.updated", testQuotation())

	assert.Equal(t, 1, reports.bumps)
}

func TestQuotationEventSurvivesAgentListFailure(t *testing.T) {
	reports := &stubReports{}
	queue := &stubQueue{}
	h := newTestHooks(reports, queue, &stubAgents{err: errors.New("db down")})

	h.QuotationEvent(context.Background(), "quotation.sent", testQuotation())

	assert.Equal(t, 1, reports.bumps)
	assert.Empty(t, queue.payloads)
}

func TestQuotationEventIgnoresNil(t *testing.T) {
	reports := &stubReports{}
	h := newTestHooks(reports, &stubQueue{}, &stubAgents{})

	h.QuotationEvent(context.Background(), "quotation.created", nil)

	assert.Zero(t, reports.bumps)
}
