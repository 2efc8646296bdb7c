package quotes

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// ExpiryActor is recorded as the version owner when the scheduler, not
// a person, expires an overdue quotation.
const ExpiryActor = "sistema"

// EventSink receives quotation lifecycle notifications after the
// surrounding transaction committed. Implementations must not block.
type EventSink interface {
	QuotationEvent(ctx context.Context, event string, q *Quotation)
}

// Service owns the quotation lifecycle: totals, status transitions and
// the append-only version history.
type Service struct {
	repo     Repository
	validate *validator.Validate
	audit    *shared.AuditLogger
	logger   *slog.Logger
	events   EventSink
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

// SetEventSink attaches a listener for committed quotation changes.
func (s *Service) SetEventSink(sink EventSink) {
	s.events = sink
}

func (s *Service) emit(ctx context.Context, event string, q *Quotation) {
	if s.events == nil || q == nil {
		return
	}
	s.events.QuotationEvent(ctx, event, q)
}

// Create persists a new draft quotation, its lines and version 1.
func (s *Service) Create(ctx context.Context, actorID int64, actorName string, req CreateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	if req.DueAt.Before(req.QuoteDate) {
		return nil, fmt.Errorf("%w: la fecha de vencimiento no puede ser anterior a la fecha de cotización", httpx.ErrValidation)
	}

	now := s.now()
	lines := buildLines(req.Lines)
	totals := ComputeTotals(lines, req.TaxRatePercent, req.FreightFlat)

	q := &Quotation{
		ClientID:       req.ClientID,
		Owner:          actorName,
		QuoteDate:      req.QuoteDate,
		DueAt:          req.DueAt,
		Status:         StatusDraft,
		Currency:       req.Currency,
		TaxRatePercent: req.TaxRatePercent,
		FreightFlat:    req.FreightFlat,
		Subtotal:       totals.Subtotal,
		DiscountTotal:  totals.DiscountTotal,
		TaxAmount:      totals.TaxAmount,
		GrandTotal:     totals.GrandTotal,
		Notes:          req.Notes,
		VersionNumber:  1,
		CreatedBy:      actorID,
		Lines:          lines,
	}

	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		docNumber, err := tx.GenerateNumber(ctx, req.QuoteDate)
		if err != nil {
			return fmt.Errorf("%w: generate doc number: %v", httpx.ErrPersistence, err)
		}
		q.DocNumber = docNumber

		id, err := tx.Create(ctx, *q)
		if err != nil {
			return fmt.Errorf("%w: insert quotation: %v", httpx.ErrPersistence, err)
		}
		q.ID = id

		for i := range q.Lines {
			q.Lines[i].QuotationID = id
		}
		if err := tx.ReplaceLines(ctx, id, q.Lines); err != nil {
			return fmt.Errorf("%w: insert lines: %v", httpx.ErrPersistence, err)
		}

		snapshot := NewSnapshot(q, actorName, fmt.Sprintf("Creación de la cotización %s", q.DocNumber), now)
		if _, err := tx.InsertVersion(ctx, snapshot); err != nil {
			return fmt.Errorf("%w: insert version: %v", httpx.ErrPersistence, err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "quotation.create", q.ID, map[string]any{"doc_number": q.DocNumber})
	s.logger.Info("quotation created", "doc_number", q.DocNumber, "grand_total", q.GrandTotal)
	s.emit(ctx, "quotation.created", q)
	return q, nil
}

// Update modifies a draft quotation, recomputes totals and appends the
// next version snapshot. Non-draft quotations are read-only.
func (s *Service) Update(ctx context.Context, id int64, actorID int64, actorName string, req UpdateQuotationRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}

	var updated *Quotation
	now := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.Get(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}
		if q.Status != StatusDraft {
			return fmt.Errorf("%w: solo las cotizaciones en borrador pueden editarse", httpx.ErrValidation)
		}

		if req.QuoteDate != nil {
			q.QuoteDate = *req.QuoteDate
		}
		if req.DueAt != nil {
			q.DueAt = *req.DueAt
		}
		if q.DueAt.Before(q.QuoteDate) {
			return fmt.Errorf("%w: la fecha de vencimiento no puede ser anterior a la fecha de cotización", httpx.ErrValidation)
		}
		if req.TaxRatePercent != nil {
			q.TaxRatePercent = *req.TaxRatePercent
		}
		if req.FreightFlat != nil {
			q.FreightFlat = *req.FreightFlat
		}
		if req.Notes != nil {
			q.Notes = req.Notes
		}
		if req.Lines != nil {
			q.Lines = buildLines(*req.Lines)
			for i := range q.Lines {
				q.Lines[i].QuotationID = q.ID
			}
		}

		totals := ComputeTotals(q.Lines, q.TaxRatePercent, q.FreightFlat)
		q.Subtotal = totals.Subtotal
		q.DiscountTotal = totals.DiscountTotal
		q.TaxAmount = totals.TaxAmount
		q.GrandTotal = totals.GrandTotal
		q.VersionNumber++

		updates := map[string]interface{}{
			"quote_date":       q.QuoteDate,
			"due_at":           q.DueAt,
			"notes":            q.Notes,
			"tax_rate_percent": q.TaxRatePercent,
			"freight_flat":     q.FreightFlat,
			"subtotal":         q.Subtotal,
			"discount_total":   q.DiscountTotal,
			"tax_amount":       q.TaxAmount,
			"grand_total":      q.GrandTotal,
			"version_number":   q.VersionNumber,
		}
		if err := tx.UpdateHeader(ctx, q.ID, updates); err != nil {
			return fmt.Errorf("%w: update header: %v", httpx.ErrPersistence, err)
		}
		if req.Lines != nil {
			if err := tx.ReplaceLines(ctx, q.ID, q.Lines); err != nil {
				return fmt.Errorf("%w: replace lines: %v", httpx.ErrPersistence, err)
			}
		}

		snapshot := NewSnapshot(q, actorName, req.ChangeNote, now)
		if _, err := tx.InsertVersion(ctx, snapshot); err != nil {
			return fmt.Errorf("%w: insert version: %v", httpx.ErrPersistence, err)
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "quotation.update", updated.ID, map[string]any{"version": updated.VersionNumber})
	s.emit(ctx, "quotation.updated", updated)
	return updated, nil
}

// Transition moves a quotation through the lifecycle table and appends
// a snapshot recording who moved it and when.
func (s *Service) Transition(ctx context.Context, id int64, actorID int64, actorName string, req TransitionRequest) (*Quotation, error) {
	if err := s.validate.Struct(req); err != nil {
		return nil, fmt.Errorf("%w: %s", httpx.ErrValidation, err.Error())
	}
	if !req.Status.Valid() {
		return nil, fmt.Errorf("%w: estado desconocido %q", httpx.ErrValidation, req.Status)
	}

	var updated *Quotation
	now := s.now()
	err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
		q, err := tx.Get(ctx, id)
		if err != nil {
			return mapRepoErr(err)
		}
		if !q.Status.CanTransition(req.Status) {
			return fmt.Errorf("%w: transición no permitida de %s a %s", httpx.ErrValidation, q.Status, req.Status)
		}

		q.Status = req.Status
		q.VersionNumber++
		if err := tx.UpdateStatus(ctx, q.ID, q.Status, q.VersionNumber); err != nil {
			return fmt.Errorf("%w: update status: %v", httpx.ErrPersistence, err)
		}

		note := req.ChangeNote
		if note == "" {
			note = transitionNote(q.Status, q.DocNumber)
		}
		snapshot := NewSnapshot(q, actorName, note, now)
		if _, err := tx.InsertVersion(ctx, snapshot); err != nil {
			return fmt.Errorf("%w: insert version: %v", httpx.ErrPersistence, err)
		}
		updated = q
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.recordAudit(ctx, actorID, "quotation.transition", updated.ID, map[string]any{"status": updated.Status})
	s.logger.Info("quotation transitioned", "doc_number", updated.DocNumber, "status", updated.Status)
	s.emit(ctx, "quotation."+string(updated.Status), updated)
	return updated, nil
}

// ExpireOverdue marks every sent quotation past its due date as
// expired, appending a system-owned snapshot for each. It is invoked
// by the scheduler, not by a request handler.
func (s *Service) ExpireOverdue(ctx context.Context) (int, error) {
	now := s.now()
	overdue, err := s.repo.ListExpiring(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("%w: list expiring: %v", httpx.ErrPersistence, err)
	}

	expired := 0
	for _, q := range overdue {
		q := q
		err := s.repo.WithTx(ctx, func(ctx context.Context, tx Repository) error {
			q.Status = StatusExpired
			q.VersionNumber++
			if err := tx.UpdateStatus(ctx, q.ID, q.Status, q.VersionNumber); err != nil {
				return err
			}
			note := fmt.Sprintf("Cotización %s vencida automáticamente", q.DocNumber)
			_, err := tx.InsertVersion(ctx, NewSnapshot(&q, ExpiryActor, note, now))
			return err
		})
		if err != nil {
			s.logger.Error("expire quotation failed", "doc_number", q.DocNumber, "error", err)
			continue
		}
		s.emit(ctx, "quotation.expired", &q)
		expired++
	}
	return expired, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Quotation, error) {
	q, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, mapRepoErr(err)
	}
	return q, nil
}

func (s *Service) List(ctx context.Context, req ListQuotationsRequest) ([]QuotationWithClient, shared.Pagination, error) {
	if req.Limit <= 0 || req.Limit > 200 {
		req.Limit = 20
	}
	if req.Offset < 0 {
		req.Offset = 0
	}
	items, total, err := s.repo.List(ctx, req)
	if err != nil {
		return nil, shared.Pagination{}, fmt.Errorf("%w: list quotations: %v", httpx.ErrPersistence, err)
	}
	page := req.Offset/req.Limit + 1
	return items, shared.NewPagination(page, req.Limit, total), nil
}

// History returns the persisted snapshots newest-first.
func (s *Service) History(ctx context.Context, id int64) ([]QuotationVersion, error) {
	if _, err := s.repo.Get(ctx, id); err != nil {
		return nil, mapRepoErr(err)
	}
	versions, err := s.repo.ListVersions(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("%w: list versions: %v", httpx.ErrPersistence, err)
	}
	return SortHistory(versions), nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	log := shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "quotation",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
		At:       s.now(),
	}
	if err := s.audit.Record(ctx, log); err != nil {
		s.logger.Warn("audit record failed", "action", action, "error", err)
	}
}

func buildLines(reqs []LineItemRequest) []LineItem {
	lines := make([]LineItem, 0, len(reqs))
	for i, lr := range reqs {
		order := lr.LineOrder
		if order == 0 {
			order = i
		}
		lines = append(lines, LineItem{
			ID:              uuid.NewString(),
			Kind:            lr.Kind,
			Name:            lr.Name,
			SKU:             lr.SKU,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			DiscountPercent: lr.DiscountPercent,
			LineSubtotal:    LineSubtotal(lr.Quantity, lr.UnitPrice, lr.DiscountPercent),
			LineOrder:       order,
		})
	}
	return lines
}

func transitionNote(status QuotationStatus, docNumber string) string {
	switch status {
	case StatusSent:
		return fmt.Sprintf("Cotización %s enviada al cliente", docNumber)
	case StatusAccepted:
		return fmt.Sprintf("Cotización %s aceptada", docNumber)
	case StatusDeclined:
		return fmt.Sprintf("Cotización %s rechazada", docNumber)
	case StatusExpired:
		return fmt.Sprintf("Cotización %s vencida", docNumber)
	default:
		return fmt.Sprintf("Actualización de la cotización %s", docNumber)
	}
}

func mapRepoErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrNotFound) {
		return httpx.ErrNotFound
	}
	return fmt.Errorf("%w: %v", httpx.ErrPersistence, err)
}
