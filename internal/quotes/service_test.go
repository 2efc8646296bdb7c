package quotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
)

type mockRepository struct {
	quotations map[int64]*Quotation
	lines      map[int64][]LineItem
	versions   map[int64][]QuotationVersion
	sequences  map[string]int64
	nextID     int64

	failInsertVersion bool
	failCreate        bool
}

func newMockRepository() *mockRepository {
	return &mockRepository{
		quotations: make(map[int64]*Quotation),
		lines:      make(map[int64][]LineItem),
		versions:   make(map[int64][]QuotationVersion),
		sequences:  make(map[string]int64),
	}
}

func (m *mockRepository) WithTx(ctx context.Context, fn func(context.Context, Repository) error) error {
	return fn(ctx, m)
}

func (m *mockRepository) Get(_ context.Context, id int64) (*Quotation, error) {
	q, ok := m.quotations[id]
	if !ok {
		return nil, ErrNotFound
	}
	clone := *q
	clone.Lines = append([]LineItem(nil), m.lines[id]...)
	return &clone, nil
}

func (m *mockRepository) GetByDocNumber(_ context.Context, docNumber string) (*Quotation, error) {
	for _, q := range m.quotations {
		if q.DocNumber == docNumber {
			clone := *q
			return &clone, nil
		}
	}
	return nil, ErrNotFound
}

func (m *mockRepository) List(_ context.Context, req ListQuotationsRequest) ([]QuotationWithClient, int, error) {
	var out []QuotationWithClient
	for _, q := range m.quotations {
		if req.Status != nil && q.Status != *req.Status {
			continue
		}
		out = append(out, QuotationWithClient{Quotation: *q, ClientName: "Aceros del Norte"})
	}
	return out, len(out), nil
}

func (m *mockRepository) ListExpiring(_ context.Context, cutoff time.Time) ([]Quotation, error) {
	var out []Quotation
	for _, q := range m.quotations {
		if q.Status == StatusSent && q.DueAt.Before(cutoff) {
			out = append(out, *q)
		}
	}
	return out, nil
}

func (m *mockRepository) Create(_ context.Context, q Quotation) (int64, error) {
	if m.failCreate {
		return 0, errors.New("insert failed")
	}
	m.nextID++
	q.ID = m.nextID
	m.quotations[q.ID] = &q
	return q.ID, nil
}

func (m *mockRepository) UpdateHeader(_ context.Context, id int64, updates map[string]interface{}) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	if v, ok := updates["quote_date"]; ok {
		q.QuoteDate = v.(time.Time)
	}
	if v, ok := updates["due_at"]; ok {
		q.DueAt = v.(time.Time)
	}
	if v, ok := updates["notes"]; ok {
		q.Notes, _ = v.(*string)
	}
	if v, ok := updates["tax_rate_percent"]; ok {
		q.TaxRatePercent = v.(float64)
	}
	if v, ok := updates["freight_flat"]; ok {
		q.FreightFlat = v.(float64)
	}
	if v, ok := updates["subtotal"]; ok {
		q.Subtotal = v.(float64)
	}
	if v, ok := updates["discount_total"]; ok {
		q.DiscountTotal = v.(float64)
	}
	if v, ok := updates["tax_amount"]; ok {
		q.TaxAmount = v.(float64)
	}
	if v, ok := updates["grand_total"]; ok {
		q.GrandTotal = v.(float64)
	}
	if v, ok := updates["version_number"]; ok {
		q.VersionNumber = v.(int)
	}
	return nil
}

func (m *mockRepository) ReplaceLines(_ context.Context, quotationID int64, lines []LineItem) error {
	m.lines[quotationID] = append([]LineItem(nil), lines...)
	return nil
}

func (m *mockRepository) UpdateStatus(_ context.Context, id int64, status QuotationStatus, versionNumber int) error {
	q, ok := m.quotations[id]
	if !ok {
		return ErrNotFound
	}
	q.Status = status
	q.VersionNumber = versionNumber
	return nil
}

func (m *mockRepository) InsertVersion(_ context.Context, v QuotationVersion) (int64, error) {
	if m.failInsertVersion {
		return 0, errors.New("insert version failed")
	}
	v.ID = int64(len(m.versions[v.QuotationID]) + 1)
	m.versions[v.QuotationID] = append(m.versions[v.QuotationID], v)
	return v.ID, nil
}

func (m *mockRepository) ListVersions(_ context.Context, quotationID int64) ([]QuotationVersion, error) {
	return append([]QuotationVersion(nil), m.versions[quotationID]...), nil
}

func (m *mockRepository) GenerateNumber(_ context.Context, date time.Time) (string, error) {
	period := date.Format("200601")
	m.sequences[period]++
	return fmt.Sprintf("COT-%s-%04d", date.Format("0601"), m.sequences[period]), nil
}

func newTestService(repo Repository) *Service {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, nil, logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	return svc
}

func validCreateRequest() CreateQuotationRequest {
	return CreateQuotationRequest{
		ClientID:       7,
		QuoteDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueAt:          time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC),
		Currency:       "MXN",
		TaxRatePercent: 16,
		FreightFlat:    2500,
		Lines: []LineItemRequest{
			{Kind: KindProduct, Name: "Perfil PTR 2x2", SKU: "PTR-22", Quantity: 1, UnitPrice: 1000},
		},
	}
}

func TestServiceCreate(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, StatusDraft, q.Status)
	assert.Equal(t, "COT-2503-0001", q.DocNumber)
	assert.Equal(t, 1000.0, q.Subtotal)
	assert.Equal(t, 160.0, q.TaxAmount)
	assert.Equal(t, 3660.0, q.GrandTotal)
	assert.Equal(t, 1, q.VersionNumber)

	versions := repo.versions[q.ID]
	require.Len(t, versions, 1)
	assert.Equal(t, 1, versions[0].VersionNumber)
	assert.Equal(t, "Laura Mendoza", versions[0].Owner)
	assert.Equal(t, StatusDraft, versions[0].Status)
	assert.Equal(t, 3660.0, versions[0].Total)
	assert.Contains(t, versions[0].ChangeNote, "Creación")
}

func TestServiceCreateSequencePerMonth(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	first, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)
	second, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	assert.Equal(t, "COT-2503-0001", first.DocNumber)
	assert.Equal(t, "COT-2503-0002", second.DocNumber)
}

func TestServiceCreateValidation(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	req := validCreateRequest()
	req.ClientID = 0
	_, err := svc.Create(context.Background(), 3, "Laura Mendoza", req)
	assert.ErrorIs(t, err, httpx.ErrValidation)

	req = validCreateRequest()
	req.DueAt = req.QuoteDate.AddDate(0, 0, -1)
	_, err = svc.Create(context.Background(), 3, "Laura Mendoza", req)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceCreateAcceptsSameDayDue(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	req := validCreateRequest()
	req.DueAt = req.QuoteDate
	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", req)
	require.NoError(t, err)
	assert.True(t, q.DueAt.Equal(q.QuoteDate))
}

func TestServiceCreatePersistenceFailure(t *testing.T) {
	repo := newMockRepository()
	repo.failCreate = true
	svc := newTestService(repo)

	_, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	assert.ErrorIs(t, err, httpx.ErrPersistence)
}

func TestServiceUpdateDraftRecomputesAndSnapshots(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	newLines := []LineItemRequest{
		{Kind: KindProduct, Name: "Perfil PTR 2x2", SKU: "PTR-22", Quantity: 2, UnitPrice: 500, DiscountPercent: 10},
	}
	freight := 0.0
	updated, err := svc.Update(context.Background(), q.ID, 3, "Laura Mendoza", UpdateQuotationRequest{
		Lines:       &newLines,
		FreightFlat: &freight,
		ChangeNote:  "Descuento aplicado",
	})
	require.NoError(t, err)

	assert.Equal(t, 900.0, updated.Subtotal)
	assert.Equal(t, 100.0, updated.DiscountTotal)
	assert.Equal(t, 2, updated.VersionNumber)

	versions := repo.versions[q.ID]
	require.Len(t, versions, 2)
	assert.Equal(t, "Descuento aplicado", versions[1].ChangeNote)
	assert.Equal(t, 2, versions[1].VersionNumber)
}

func TestServiceUpdateRejectsNonDraft(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	require.NoError(t, err)

	note := "cambio tardío"
	_, err = svc.Update(context.Background(), q.ID, 3, "Laura Mendoza", UpdateQuotationRequest{Notes: &note})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceTransitionLifecycle(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	sent, err := svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	require.NoError(t, err)
	assert.Equal(t, StatusSent, sent.Status)
	assert.Equal(t, 2, sent.VersionNumber)

	accepted, err := svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusAccepted})
	require.NoError(t, err)
	assert.Equal(t, StatusAccepted, accepted.Status)

	versions := repo.versions[q.ID]
	require.Len(t, versions, 3)
	assert.Contains(t, versions[2].ChangeNote, "aceptada")
}

func TestServiceTransitionRejectsIllegalMoves(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	// draft cannot jump straight to accepted
	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusAccepted})
	assert.ErrorIs(t, err, httpx.ErrValidation)

	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusDeclined})
	require.NoError(t, err)

	// declined is terminal
	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceTransitionUnknownStatus(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: "archived"})
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestServiceHistoryNewestFirst(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	q, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), q.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	require.NoError(t, err)

	versions, err := svc.History(context.Background(), q.ID)
	require.NoError(t, err)
	require.Len(t, versions, 2)
	assert.Equal(t, 2, versions[0].VersionNumber)
	assert.Equal(t, 1, versions[1].VersionNumber)
}

func TestServiceHistoryNotFound(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	_, err := svc.History(context.Background(), 99)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestServiceExpireOverdue(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo)

	overdue, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)
	_, err = svc.Transition(context.Background(), overdue.ID, 3, "Laura Mendoza", TransitionRequest{Status: StatusSent})
	require.NoError(t, err)

	draft, err := svc.Create(context.Background(), 3, "Laura Mendoza", validCreateRequest())
	require.NoError(t, err)

	// move the clock past the due date
	svc.now = func() time.Time { return time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC) }

	expired, err := svc.ExpireOverdue(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, expired)

	assert.Equal(t, StatusExpired, repo.quotations[overdue.ID].Status)
	assert.Equal(t, StatusDraft, repo.quotations[draft.ID].Status)

	versions := repo.versions[overdue.ID]
	require.Len(t, versions, 3)
	assert.Equal(t, ExpiryActor, versions[2].Owner)
	assert.Contains(t, versions[2].ChangeNote, "vencida")
}
