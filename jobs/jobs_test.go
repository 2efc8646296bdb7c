package jobs

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/agents"
	jobmetrics "github.com/acero-crm/acero-crm/internal/jobs"
	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testMetrics() *jobmetrics.Metrics {
	return jobmetrics.NewMetrics(prometheus.NewRegistry())
}

type stubExpirer struct {
	expired int
	err     error
	calls   int
}

func (s *stubExpirer) ExpireOverdue(context.Context) (int, error) {
	s.calls++
	return s.expired, s.err
}

func TestQuoteExpiryJobHandle(t *testing.T) {
	expirer := &stubExpirer{expired: 3}
	job := NewQuoteExpiryJob(expirer, testLogger(), testMetrics())

	err := job.Handle(context.Background(), NewQuoteExpiryTask())
	require.NoError(t, err)
	assert.Equal(t, 1, expirer.calls)
}

func TestQuoteExpiryJobPropagatesError(t *testing.T) {
	expirer := &stubExpirer{err: errors.New("db down")}
	job := NewQuoteExpiryJob(expirer, testLogger(), testMetrics())

	err := job.Handle(context.Background(), NewQuoteExpiryTask())
	assert.Error(t, err)
}

type stubAgents struct {
	agent *agents.Agent
	err   error
}

func (s *stubAgents) Get(context.Context, int64) (*agents.Agent, error) {
	return s.agent, s.err
}

func notifyTask(t *testing.T, agentID int64) *asynq.Task {
	t.Helper()
	task, err := NewWebhookNotifyTask(WebhookNotifyPayload{
		AgentID: agentID,
		Event:   "quote.accepted",
		Data:    map[string]any{"doc_number": "COT-2503-0001"},
		SentAt:  time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return task
}

func TestWebhookNotifyDelivers(t *testing.T) {
	var received bool
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		received = true
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	job := NewWebhookNotifyJob(&stubAgents{agent: &agents.Agent{
		ID: 1, Slug: "cotizador", WebhookURL: server.URL, IsEnabled: true,
	}}, testLogger(), testMetrics())

	err := job.Handle(context.Background(), notifyTask(t, 1))
	require.NoError(t, err)
	assert.True(t, received)
}

func TestWebhookNotifyRetriesOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer server.Close()

	job := NewWebhookNotifyJob(&stubAgents{agent: &agents.Agent{
		ID: 1, Slug: "cotizador", WebhookURL: server.URL, IsEnabled: true,
	}}, testLogger(), testMetrics())

	err := job.Handle(context.Background(), notifyTask(t, 1))
	require.Error(t, err)
	assert.NotErrorIs(t, err, asynq.SkipRetry, "delivery failures must stay retryable")
}

func TestWebhookNotifySkipsMissingAgent(t *testing.T) {
	job := NewWebhookNotifyJob(&stubAgents{err: httpx.ErrNotFound}, testLogger(), testMetrics())

	err := job.Handle(context.Background(), notifyTask(t, 99))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

func TestWebhookNotifySkipsDisabledAgent(t *testing.T) {
	job := NewWebhookNotifyJob(&stubAgents{agent: &agents.Agent{
		ID: 1, Slug: "apagado", WebhookURL: "http://192.0.2.1/hook", IsEnabled: false,
	}}, testLogger(), testMetrics())

	err := job.Handle(context.Background(), notifyTask(t, 1))
	assert.ErrorIs(t, err, asynq.SkipRetry)
}

type stubWarmer struct {
	err   error
	calls int
}

func (s *stubWarmer) Warm(context.Context) error {
	s.calls++
	return s.err
}

func TestDashboardWarmupJobHandle(t *testing.T) {
	warmer := &stubWarmer{}
	job := NewDashboardWarmupJob(warmer, testLogger(), testMetrics())

	err := job.Handle(context.Background(), NewDashboardWarmupTask())
	require.NoError(t, err)
	assert.Equal(t, 1, warmer.calls)
}
