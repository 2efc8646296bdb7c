package agents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

const probeTimeout = 4 * time.Second

// Service manages digital employees and checks their availability.
type Service struct {
	repo     Repository
	validate *validator.Validate
	client   *http.Client
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		client:   &http.Client{Timeout: probeTimeout},
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Agent, error) {
	a, err := s.repo.Get(ctx, id)
	return a, mapErr(err)
}

func (s *Service) List(ctx context.Context) ([]Agent, error) {
	agents, err := s.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list agents: %v", httpx.ErrPersistence, err)
	}
	return agents, nil
}

func (s *Service) Create(ctx context.Context, req UpsertAgentRequest) (*Agent, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	id, err := s.repo.Create(ctx, agentFromRequest(req))
	if err != nil {
		return nil, mapErr(err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertAgentRequest) (*Agent, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	a := agentFromRequest(req)
	a.ID = id
	if err := s.repo.Update(ctx, a); err != nil {
		return nil, mapErr(err)
	}
	return s.repo.Get(ctx, id)
}

// Probe checks whether the agent's webhook answers, records the result
// and returns the refreshed record. A failed probe is not an error;
// offline is a valid observation.
func (s *Service) Probe(ctx context.Context, id int64) (*Agent, error) {
	a, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}

	status := s.probe(ctx, a.WebhookURL)
	at := s.now()
	if err := s.repo.RecordProbe(ctx, id, status, at); err != nil {
		return nil, mapErr(err)
	}

	a.LastStatus = status
	a.LastCheckedAt = &at
	return a, nil
}

// ListEnabled returns the agents eligible for event delivery.
func (s *Service) ListEnabled(ctx context.Context) ([]Agent, error) {
	list, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: list enabled agents: %v", httpx.ErrPersistence, err)
	}
	return list, nil
}

// ProbeAll refreshes every enabled agent. Used by the scheduler.
func (s *Service) ProbeAll(ctx context.Context) (online, offline int, err error) {
	agents, err := s.repo.ListEnabled(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("%w: list enabled agents: %v", httpx.ErrPersistence, err)
	}
	for _, a := range agents {
		status := s.probe(ctx, a.WebhookURL)
		if err := s.repo.RecordProbe(ctx, a.ID, status, s.now()); err != nil {
			s.logger.Warn("record probe", "agent", a.Slug, "error", err)
			continue
		}
		if status == StatusOnline {
			online++
		} else {
			offline++
		}
	}
	return online, offline, nil
}

func (s *Service) probe(ctx context.Context, url string) Status {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return StatusOffline
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return StatusOffline
	}
	defer func() {
		_ = resp.Body.Close()
	}()
	if resp.StatusCode >= 500 {
		return StatusOffline
	}
	return StatusOnline
}

func agentFromRequest(req UpsertAgentRequest) Agent {
	enabled := true
	if req.IsEnabled != nil {
		enabled = *req.IsEnabled
	}
	return Agent{
		Name:        req.Name,
		Slug:        req.Slug,
		Description: req.Description,
		WebhookURL:  req.WebhookURL,
		IsEnabled:   enabled,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ErrDuplicate):
		return fmt.Errorf("%w: el identificador del agente ya existe", httpx.ErrDuplicate)
	default:
		return fmt.Errorf("%w: %v", httpx.ErrPersistence, err)
	}
}
