package invoices

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/quotes"
)

type mockRepository struct {
	invoices map[int64]*InvoiceWithRefs
	nextID   int64
	folioSeq int
}

func newMockRepository() *mockRepository {
	return &mockRepository{invoices: make(map[int64]*InvoiceWithRefs)}
}

func (m *mockRepository) Get(_ context.Context, id int64) (*InvoiceWithRefs, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, ErrNotFound
	}
	return inv, nil
}

func (m *mockRepository) List(_ context.Context, _ ListInvoicesRequest) ([]InvoiceWithRefs, int, error) {
	out := make([]InvoiceWithRefs, 0, len(m.invoices))
	for _, inv := range m.invoices {
		out = append(out, *inv)
	}
	return out, len(out), nil
}

func (m *mockRepository) Create(_ context.Context, inv Invoice) (int64, error) {
	m.nextID++
	inv.ID = m.nextID
	m.invoices[inv.ID] = &InvoiceWithRefs{Invoice: inv, ClientName: "Aceros del Norte"}
	return inv.ID, nil
}

func (m *mockRepository) ExistsForQuotation(_ context.Context, quotationID int64) (bool, error) {
	for _, inv := range m.invoices {
		if inv.QuotationID == quotationID {
			return true, nil
		}
	}
	return false, nil
}

func (m *mockRepository) MonthlyTotals(_ context.Context, _ int) ([]MonthlyTotal, error) {
	return nil, nil
}

func (m *mockRepository) NextFolio(_ context.Context, issuedAt time.Time) (string, error) {
	m.folioSeq++
	return fmt.Sprintf("FAC-%s-%04d", issuedAt.Format("0601"), m.folioSeq), nil
}

type stubQuotes struct {
	quotations map[int64]*quotes.Quotation
}

func (s *stubQuotes) Get(_ context.Context, id int64) (*quotes.Quotation, error) {
	q, ok := s.quotations[id]
	if !ok {
		return nil, httpx.ErrNotFound
	}
	return q, nil
}

func acceptedQuotation(id int64) *quotes.Quotation {
	return &quotes.Quotation{
		ID:            id,
		DocNumber:     fmt.Sprintf("COT-2503-%04d", id),
		ClientID:      7,
		Status:        quotes.StatusAccepted,
		Currency:      "MXN",
		Subtotal:      10000,
		TaxAmount:     1600,
		GrandTotal:    14100,
		VersionNumber: 3,
	}
}

func newTestService(repo *mockRepository, qs *stubQuotes) *Service {
	svc := NewService(repo, qs, nil, slog.New(slog.NewTextHandler(io.Discard, nil)))
	svc.now = func() time.Time { return time.Date(2025, 3, 20, 10, 0, 0, 0, time.UTC) }
	return svc
}

func TestCreateFromQuotationCopiesTotals(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &stubQuotes{quotations: map[int64]*quotes.Quotation{
		5: acceptedQuotation(5),
	}})

	inv, err := svc.CreateFromQuotation(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, "FAC-2503-0001", inv.Folio)
	assert.Equal(t, int64(5), inv.QuotationID)
	assert.Equal(t, 10000.0, inv.Subtotal)
	assert.Equal(t, 1600.0, inv.TaxAmount)
	assert.Equal(t, 14100.0, inv.Total)
	assert.Equal(t, "MXN", inv.Currency)
}

func TestCreateFromQuotationRequiresAccepted(t *testing.T) {
	q := acceptedQuotation(5)
	q.Status = quotes.StatusSent
	svc := newTestService(newMockRepository(), &stubQuotes{quotations: map[int64]*quotes.Quotation{5: q}})

	_, err := svc.CreateFromQuotation(context.Background(), 3, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrValidation)
}

func TestCreateFromQuotationOnlyOnce(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &stubQuotes{quotations: map[int64]*quotes.Quotation{
		5: acceptedQuotation(5),
	}})

	_, err := svc.CreateFromQuotation(context.Background(), 3, 5)
	require.NoError(t, err)

	_, err = svc.CreateFromQuotation(context.Background(), 3, 5)
	require.Error(t, err)
	assert.ErrorIs(t, err, httpx.ErrDuplicate)
}

func TestCreateFromQuotationUnknownQuote(t *testing.T) {
	svc := newTestService(newMockRepository(), &stubQuotes{quotations: map[int64]*quotes.Quotation{}})

	_, err := svc.CreateFromQuotation(context.Background(), 3, 99)
	assert.ErrorIs(t, err, httpx.ErrNotFound)
}

func TestCreateFromQuotationInvalidatesReports(t *testing.T) {
	repo := newMockRepository()
	svc := newTestService(repo, &stubQuotes{quotations: map[int64]*quotes.Quotation{
		5: acceptedQuotation(5),
	}})

	var bumped int
	svc.SetCacheInvalidator(invalidatorFunc(func(context.Context) { bumped++ }))

	_, err := svc.CreateFromQuotation(context.Background(), 3, 5)
	require.NoError(t, err)
	assert.Equal(t, 1, bumped)
}

type invalidatorFunc func(ctx context.Context)

func (f invalidatorFunc) Invalidate(ctx context.Context) { f(ctx) }
