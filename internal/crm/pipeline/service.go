package pipeline

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

// Service runs the sales board.
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

func (s *Service) Get(ctx context.Context, id int64) (*Deal, error) {
	d, err := s.repo.Get(ctx, id)
	return d, mapErr(err)
}

func (s *Service) ListByClient(ctx context.Context, clientID int64) ([]Deal, error) {
	deals, err := s.repo.ListByClient(ctx, clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: deals by client: %v", httpx.ErrPersistence, err)
	}
	return deals, nil
}

// Board groups open deals into stage columns in display order.
func (s *Service) Board(ctx context.Context) ([]BoardColumn, error) {
	deals, err := s.repo.ListOpen(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: board: %v", httpx.ErrPersistence, err)
	}

	byStage := make(map[Stage][]DealWithClient)
	for _, d := range deals {
		byStage[d.Stage] = append(byStage[d.Stage], d)
	}

	columns := make([]BoardColumn, 0, len(BoardOrder()))
	for _, stage := range BoardOrder() {
		col := BoardColumn{Stage: stage, Deals: byStage[stage]}
		if col.Deals == nil {
			col.Deals = []DealWithClient{}
		}
		for _, d := range col.Deals {
			col.Value += d.EstimatedValue
		}
		columns = append(columns, col)
	}
	return columns, nil
}

func (s *Service) Create(ctx context.Context, actorID int64, req CreateDealRequest) (*Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	d := Deal{
		ClientID:       req.ClientID,
		Title:          req.Title,
		Stage:          StageLead,
		EstimatedValue: req.EstimatedValue,
		ExpectedClose:  req.ExpectedClose,
		CreatedBy:      actorID,
	}
	id, err := s.repo.Create(ctx, d)
	if err != nil {
		return nil, fmt.Errorf("%w: create deal: %v", httpx.ErrPersistence, err)
	}
	s.recordAudit(ctx, actorID, "deal.create", id, map[string]any{"title": req.Title})
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, actorID, id int64, req UpdateDealRequest) (*Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if d.Stage.Closed() {
		return nil, fmt.Errorf("%w: un trato cerrado no puede editarse", httpx.ErrValidation)
	}

	if req.Title != nil {
		d.Title = *req.Title
	}
	if req.EstimatedValue != nil {
		d.EstimatedValue = *req.EstimatedValue
	}
	if req.QuotationID != nil {
		d.QuotationID = req.QuotationID
	}
	if req.ExpectedClose != nil {
		d.ExpectedClose = req.ExpectedClose
	}

	if err := s.repo.Update(ctx, *d); err != nil {
		return nil, mapErr(err)
	}
	s.recordAudit(ctx, actorID, "deal.update", id, nil)
	return s.repo.Get(ctx, id)
}

// Move advances a deal across the board following the stage flow.
func (s *Service) Move(ctx context.Context, actorID, id int64, req MoveDealRequest) (*Deal, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	if !req.Stage.Valid() {
		return nil, fmt.Errorf("%w: etapa desconocida %q", httpx.ErrValidation, req.Stage)
	}

	d, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapErr(err)
	}
	if !d.Stage.CanMoveTo(req.Stage) {
		return nil, fmt.Errorf("%w: movimiento no permitido de %s a %s", httpx.ErrValidation, d.Stage, req.Stage)
	}

	var closedAt *time.Time
	if req.Stage.Closed() {
		at := s.now()
		closedAt = &at
	}
	if err := s.repo.Move(ctx, id, req.Stage, closedAt); err != nil {
		return nil, mapErr(err)
	}

	s.recordAudit(ctx, actorID, "deal.move", id, map[string]any{"stage": req.Stage})
	s.logger.Info("deal moved", "deal_id", id, "stage", req.Stage)
	return s.repo.Get(ctx, id)
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "deal",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
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
