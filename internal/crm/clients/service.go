package clients

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// Service manages the client directory and the prospect lifecycle.
type Service struct {
	repo     Repository
	validate *validator.Validate
	audit    *shared.AuditLogger
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		audit:    audit,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Client, error) {
	c, err := s.repo.Get(ctx, id)
	return c, mapErr(err)
}

func (s *Service) List(ctx context.Context, req ListClientsRequest) ([]Client, shared.Pagination, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("%w: list clients: %v", httpx.ErrPersistence, err)
	}
	return items, shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total), nil
}

// Create registers a new prospect. Everyone starts as a prospect and
// only becomes a client through Convert.
func (s *Service) Create(ctx context.Context, actorID int64, req UpsertClientRequest) (*Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	c := clientFromRequest(req)
	c.Lifecycle = LifecycleProspect

	id, err := s.repo.Create(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("%w: create client: %v", httpx.ErrPersistence, err)
	}
	s.recordAudit(ctx, actorID, "client.create", id, map[string]any{"name": req.Name})
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actorID, id int64, req UpsertClientRequest) (*Client, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	c := clientFromRequest(req)
	c.ID = id
	if err := s.repo.Update(ctx, c); err != nil {
		return nil, mapErr(err)
	}
	s.recordAudit(ctx, actorID, "client.update", id, nil)
	return s.repo.Get(ctx, id)
}

// Convert marks a prospect as a client and stamps the conversion time.
func (s *Service) Convert(ctx context.Context, actorID, id int64) (*Client, error) {
	if err := s.repo.Convert(ctx, id, s.now()); err != nil {
		return nil, mapErr(err)
	}
	s.recordAudit(ctx, actorID, "client.convert", id, nil)
	s.logger.Info("prospect converted", "client_id", id)
	return s.repo.Get(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "client",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}

func clientFromRequest(req UpsertClientRequest) Client {
	return Client{
		Name:  req.Name,
		TaxID: req.TaxID,
		Email: req.Email,
		Phone: req.Phone,
		City:  req.City,
		Notes: req.Notes,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	default:
		return fmt.Errorf("%w: %v", httpx.ErrPersistence, err)
	}
}
