package agents

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

type mockRepository struct {
	agents map[int64]*Agent
	nextID int64
}

func newMockRepository() *mockRepository {
	return &mockRepository{agents: make(map[int64]*Agent)}
}

func (m *mockRepository) Get(_ context.Context, id int64) (*Agent, error) {
	a, ok := m.agents[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *a
	return &clone, nil
}

func (m *mockRepository) List(_ context.Context) ([]Agent, error) {
	var out []Agent
	for _, a := range m.agents {
		out = append(out, *a)
	}
	return out, nil
}

func (m *mockRepository) ListEnabled(_ context.Context) ([]Agent, error) {
	var out []Agent
	for _, a := range m.agents {
		if a.IsEnabled {
			out = append(out, *a)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, a Agent) (int64, error) {
	for _, existing := range m.agents {
		if existing.Slug == a.Slug {
			return 0, ErrDuplicate
		}
	}
	m.nextID++
	a.ID = m.nextID
	a.LastStatus = StatusUnknown
	m.agents[a.ID] = &a
	return a.ID, nil
}

func (m *mockRepository) Update(_ context.Context, a Agent) error {
	existing, ok := m.agents[a.ID]
	if !ok {
		return ErrNotFound
	}
	a.LastStatus = existing.LastStatus
	a.LastCheckedAt = existing.LastCheckedAt
	m.agents[a.ID] = &a
	return nil
}

func (m *mockRepository) RecordProbe(_ context.Context, id int64, status Status, at time.Time) error {
	a, ok := m.agents[id]
	if !ok {
		return ErrNotFound
	}
	a.LastStatus = status
	a.LastCheckedAt = &at
	return nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewService(repo, logger)
}

func seedAgent(t *testing.T, svc *Service, url string) *Agent {
	t.Helper()
	a, err := svc.Create(context.Background(), UpsertAgentRequest{
		Name:       "Cotizador nocturno",
		Slug:       "cotizador-nocturno",
		WebhookURL: url,
	})
	require.NoError(t, err)
	return a
}

func TestServiceCreateStartsUnknown(t *testing.T) {
	svc := newTestService(newMockRepository())
	a := seedAgent(t, svc, "http://agents.internal/hook")

	assert.Equal(t, StatusUnknown, a.LastStatus)
	assert.True(t, a.IsEnabled)
	assert.Nil(t, a.LastCheckedAt)
}

func TestServiceCreateValidatesWebhookURL(t *testing.T) {
	svc := newTestService(newMockRepository())

	_, err := svc.Create(context.Background(), UpsertAgentRequest{
		Name:       "Sin webhook",
		Slug:       "sin-webhook",
		WebhookURL: "not a url",
	})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceCreateRejectsDuplicateSlug(t *testing.T) {
	svc := newTestService(newMockRepository())
	seedAgent(t, svc, "http://agents.internal/hook")

	_, err := svc.Create(context.Background(), UpsertAgentRequest{
		Name:       "Otro",
		Slug:       "cotizador-nocturno",
		WebhookURL: "http://agents.internal/other",
	})
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestServiceProbeOnline(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	svc := newTestService(newMockRepository())
	a := seedAgent(t, svc, server.URL)

	probed, err := svc.Probe(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOnline, probed.LastStatus)
	assert.NotNil(t, probed.LastCheckedAt)
}

func TestServiceProbeOfflineOnServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	svc := newTestService(newMockRepository())
	a := seedAgent(t, svc, server.URL)

	probed, err := svc.Probe(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, probed.LastStatus)
}

func TestServiceProbeOfflineWhenUnreachable(t *testing.T) {
	svc := newTestService(newMockRepository())
	// reserved TEST-NET address, nothing listens there
	a := seedAgent(t, svc, "http://192.0.2.1:9/hook")

	probed, err := svc.Probe(context.Background(), a.ID)
	require.NoError(t, err)
	assert.Equal(t, StatusOffline, probed.LastStatus)
}

func TestServiceProbeAllCountsResults(t *testing.T) {
	okServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer okServer.Close()

	repo := newMockRepository()
	svc := newTestService(repo)

	seedAgent(t, svc, okServer.URL)
	disabled := false
	_, err := svc.Create(context.Background(), UpsertAgentRequest{
		Name:       "Apagado",
		Slug:       "apagado",
		WebhookURL: "http://192.0.2.1:9/hook",
		IsEnabled:  &disabled,
	})
	require.NoError(t, err)

	online, offline, err := svc.ProbeAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, online)
	assert.Zero(t, offline, "disabled agents are not probed")
}
