package invoices

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/quotes"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// QuotationSource reads quotations so invoices can be derived from
// accepted ones.
type QuotationSource interface {
	Get(ctx context.Context, id int64) (*quotes.Quotation, error)
}

// CacheInvalidator busts derived report caches after billing changes.
type CacheInvalidator interface {
	Invalidate(ctx context.Context)
}

// Service derives billing summaries from accepted quotations.
type Service struct {
	repo    Repository
	quotes  QuotationSource
	audit   *shared.AuditLogger
	logger  *slog.Logger
	reports CacheInvalidator
	now     func() time.Time
}

func NewService(repo Repository, quoteSource QuotationSource, audit *shared.AuditLogger, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		quotes: quoteSource,
		audit:  audit,
		logger: logger,
		now:    time.Now,
	}
}

// SetCacheInvalidator attaches the report cache hook.
func (s *Service) SetCacheInvalidator(inv CacheInvalidator) {
	s.reports = inv
}

func (s *Service) Get(ctx context.Context, id int64) (*InvoiceWithRefs, error) {
	inv, err := s.repo.Get(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, httpx.ErrNotFound
		}
		return nil, fmt.Errorf("%w: get invoice: %v", httpx.ErrPersistence, err)
	}
	return inv, nil
}

func (s *Service) List(ctx context.Context, req ListInvoicesRequest) ([]InvoiceWithRefs, shared.Pagination, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("%w: list invoices: %v", httpx.ErrPersistence, err)
	}
	return items, shared.NewPagination(req.Offset/req.Limit+1, req.Limit, total), nil
}

// CreateFromQuotation issues a billing summary for an accepted
// quotation. Each quotation can be invoiced once.
func (s *Service) CreateFromQuotation(ctx context.Context, actorID, quotationID int64) (*InvoiceWithRefs, error) {
	q, err := s.quotes.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if q.Status != quotes.StatusAccepted {
		return nil, fmt.Errorf("%w: solo las cotizaciones aceptadas pueden facturarse", httpx.ErrValidation)
	}

	exists, err := s.repo.ExistsForQuotation(ctx, quotationID)
	if err != nil {
		return nil, fmt.Errorf("%w: check invoice: %v", httpx.ErrPersistence, err)
	}
	if exists {
		return nil, fmt.Errorf("%w: la cotización %s ya fue facturada", httpx.ErrDuplicate, q.DocNumber)
	}

	issuedAt := s.now()
	folio, err := s.repo.NextFolio(ctx, issuedAt)
	if err != nil {
		return nil, fmt.Errorf("%w: folio: %v", httpx.ErrPersistence, err)
	}

	inv := Invoice{
		Folio:       folio,
		QuotationID: q.ID,
		ClientID:    q.ClientID,
		Currency:    q.Currency,
		Subtotal:    q.Subtotal,
		TaxAmount:   q.TaxAmount,
		Total:       q.GrandTotal,
		IssuedAt:    issuedAt,
		CreatedBy:   actorID,
	}
	id, err := s.repo.Create(ctx, inv)
	if err != nil {
		return nil, fmt.Errorf("%w: create invoice: %v", httpx.ErrPersistence, err)
	}

	if s.audit != nil {
		log := shared.AuditLog{
			ActorID:  actorID,
			Action:   "invoice.create",
			Entity:   "invoice",
			EntityID: fmt.Sprintf("%d", id),
			Meta:     map[string]any{"folio": folio, "quotation": q.DocNumber},
		}
		if err := s.audit.Record(ctx, log); err != nil {
			s.logger.Warn("audit record failed", "action", "invoice.create", "error", err)
		}
	}
	s.logger.Info("invoice issued", "folio", folio, "quotation", q.DocNumber)
	if s.reports != nil {
		s.reports.Invalidate(ctx)
	}
	return s.Get(ctx, id)
}

// MonthlyTotals aggregates issued invoices over the trailing months.
func (s *Service) MonthlyTotals(ctx context.Context, months int) ([]MonthlyTotal, error) {
	if months <= 0 || months > 36 {
		months = 12
	}
	totals, err := s.repo.MonthlyTotals(ctx, months)
	if err != nil {
		return nil, fmt.Errorf("%w: monthly totals: %v", httpx.ErrPersistence, err)
	}
	return totals, nil
}
