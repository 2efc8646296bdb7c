package reports

import (
	"context"
	"io"
	"log/slog"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockRepository struct {
	summaryCalls atomic.Int32
}

func (m *mockRepository) Summary(context.Context) (KPISummary, error) {
	m.summaryCalls.Add(1)
	return KPISummary{
		OpenQuotes:        4,
		QuotedThisMonth:   125000,
		AcceptedThisMonth: 48000,
		AcceptanceRate:    0.4,
		PipelineValue:     310000,
		InvoicedThisMonth: 52000,
		ActiveClients:     11,
	}, nil
}

func (m *mockRepository) StatusBreakdown(context.Context) ([]StatusCount, error) {
	return []StatusCount{{Status: "draft", Count: 2}, {Status: "sent", Count: 2}}, nil
}

func (m *mockRepository) MonthlyTrend(_ context.Context, months int) ([]MonthlyQuoteTotal, error) {
	out := make([]MonthlyQuoteTotal, 0, months)
	for i := 0; i < months; i++ {
		out = append(out, MonthlyQuoteTotal{Period: "2025-03", Count: 3, Total: 42000})
	}
	return out, nil
}

func (m *mockRepository) TopClients(context.Context, int) ([]TopClient, error) {
	return []TopClient{{ClientID: 7, Name: "Aceros del Norte", Accepted: 96000}}, nil
}

func newTestService(t *testing.T) (*Service, *mockRepository) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	repo := &mockRepository{}
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, NewCache(client, time.Minute), logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 7, 0, 0, 0, time.UTC) }
	return svc, repo
}

func TestDashboardAggregates(t *testing.T) {
	svc, _ := newTestService(t)

	dash, err := svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, 4, dash.Summary.OpenQuotes)
	assert.Equal(t, 0.4, dash.Summary.AcceptanceRate)
	assert.Len(t, dash.StatusBreakdown, 2)
	assert.Len(t, dash.Trend, 6)
	require.Len(t, dash.TopClients, 1)
	assert.Equal(t, "Aceros del Norte", dash.TopClients[0].Name)
}

func TestDashboardServedFromCache(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)
	_, err = svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, int32(1), repo.summaryCalls.Load(), "second call must hit the cache")
}

func TestDashboardInvalidateForcesRebuild(t *testing.T) {
	svc, repo := newTestService(t)

	_, err := svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)

	svc.Invalidate(context.Background())

	_, err = svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)

	assert.Equal(t, int32(2), repo.summaryCalls.Load())
}

func TestWarmPopulatesDefaultDashboard(t *testing.T) {
	svc, repo := newTestService(t)

	require.NoError(t, svc.Warm(context.Background()))
	assert.Equal(t, int32(1), repo.summaryCalls.Load())

	// a later request with default filters is already warm
	_, err := svc.Dashboard(context.Background(), Filter{})
	require.NoError(t, err)
	assert.Equal(t, int32(1), repo.summaryCalls.Load())
}
