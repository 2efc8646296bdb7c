package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/go-playground/validator/v10"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// Service maintains the product and service catalog quotes draw from.
type Service struct {
	repo     Repository
	validate *validator.Validate
	logger   *slog.Logger
}

func NewService(repo Repository, logger *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		validate: validator.New(validator.WithRequiredStructEnabled()),
		logger:   logger,
	}
}

func (s *Service) Get(ctx context.Context, id int64) (*Item, error) {
	it, err := s.repo.Get(ctx, id)
	return it, mapErr(err)
}

// GetBySKU powers the quote editor's SKU autocomplete.
func (s *Service) GetBySKU(ctx context.Context, sku string) (*Item, error) {
	if sku == "" {
		return nil, fmt.Errorf("%w: sku requerido", httpx.ErrValidation)
	}
	it, err := s.repo.GetBySKU(ctx, sku)
	return it, mapErr(err)
}

func (s *Service) List(ctx context.Context, req ListItemsRequest) ([]Item, shared.Pagination, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 50
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("%w: list catalog: %v", httpx.ErrPersistence, err)
	}
	return items, shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total), nil
}

func (s *Service) Create(ctx context.Context, req UpsertItemRequest) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	item := itemFromRequest(req)
	id, err := s.repo.Create(ctx, item)
	if err != nil {
		return nil, mapErr(err)
	}
	s.logger.Info("catalog item created", "sku", item.SKU)
	return s.repo.Get(ctx, id)
}

func (s *Service) Update(ctx context.Context, id int64, req UpsertItemRequest) (*Item, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	item := itemFromRequest(req)
	item.ID = id
	if err := s.repo.Update(ctx, item); err != nil {
		return nil, mapErr(err)
	}
	return s.repo.Get(ctx, id)
}

func (s *Service) Deactivate(ctx context.Context, id int64) error {
	return mapErr(s.repo.Deactivate(ctx, id))
}

func itemFromRequest(req UpsertItemRequest) Item {
	active := true
	if req.IsActive != nil {
		active = *req.IsActive
	}
	return Item{
		SKU:       req.SKU,
		Name:      req.Name,
		Kind:      req.Kind,
		UnitPrice: req.UnitPrice,
		UOM:       req.UOM,
		IsActive:  active,
	}
}

func mapErr(err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, ErrNotFound):
		return httpx.ErrNotFound
	case errors.Is(err, ErrDuplicate):
		return fmt.Errorf("%w: la clave SKU ya existe", httpx.ErrDuplicate)
	default:
		return fmt.Errorf("%w: %v", httpx.ErrPersistence, err)
	}
}
