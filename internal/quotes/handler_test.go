package quotes

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/shared"
)

type stubPermissions struct {
	granted []string
}

func (s stubPermissions) EffectivePermissions(context.Context, int64) ([]string, error) {
	return s.granted, nil
}

type stubDirectory struct{}

func (stubDirectory) DisplayName(context.Context, int64) string { return "Laura Mendoza" }

func newTestRouter(t *testing.T, repo Repository, perms []string) chi.Router {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(repo, nil, logger)
	svc.now = func() time.Time { return time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC) }
	handler := NewHandler(logger, svc, stubDirectory{})

	guard := rbac.Middleware{Source: stubPermissions{granted: perms}, Logger: logger}

	router := chi.NewRouter()
	router.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sess := &shared.Session{ID: "test-session"}
			sess.SetUser("3")
			next.ServeHTTP(w, r.WithContext(shared.ContextWithSession(r.Context(), sess)))
		})
	})
	router.Route("/quotes", func(r chi.Router) {
		handler.MountRoutes(r, guard)
	})
	return router
}

func allQuotePerms() []string {
	return []string{
		shared.PermQuoteView,
		shared.PermQuoteCreate,
		shared.PermQuoteEdit,
		shared.PermQuoteTransition,
	}
}

func createBody() []byte {
	body, _ := json.Marshal(CreateQuotationRequest{
		ClientID:       7,
		QuoteDate:      time.Date(2025, 3, 10, 0, 0, 0, 0, time.UTC),
		DueAt:          time.Date(2025, 3, 25, 0, 0, 0, 0, time.UTC),
		Currency:       "MXN",
		TaxRatePercent: 16,
		FreightFlat:    2500,
		Lines: []LineItemRequest{
			{Kind: KindProduct, Name: "Perfil PTR 2x2", SKU: "PTR-22", Quantity: 1, UnitPrice: 1000},
		},
	})
	return body
}

func TestHandlerCreateQuotation(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), allQuotePerms())

	req := httptest.NewRequest(http.MethodPost, "/quotes/", bytes.NewReader(createBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var q Quotation
	if err := json.Unmarshal(rec.Body.Bytes(), &q); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if q.DocNumber != "COT-2503-0001" {
		t.Fatalf("unexpected doc number %q", q.DocNumber)
	}
	if q.GrandTotal != 3660.0 {
		t.Fatalf("unexpected grand total %v", q.GrandTotal)
	}
}

func TestHandlerCreateRejectsBadJSON(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), allQuotePerms())

	req := httptest.NewRequest(http.MethodPost, "/quotes/", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandlerGetNotFound(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), allQuotePerms())

	req := httptest.NewRequest(http.MethodGet, "/quotes/99", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestHandlerTransitionIllegalMove(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(t, repo, allQuotePerms())

	req := httptest.NewRequest(http.MethodPost, "/quotes/", bytes.NewReader(createBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("seed quotation: %d", rec.Code)
	}
	var q Quotation
	_ = json.Unmarshal(rec.Body.Bytes(), &q)

	body, _ := json.Marshal(TransitionRequest{Status: StatusAccepted})
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/quotes/%d/transition", q.ID), bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for draft->accepted, got %d", rec.Code)
	}
}

func TestHandlerVersionsEndpoint(t *testing.T) {
	repo := newMockRepository()
	router := newTestRouter(t, repo, allQuotePerms())

	req := httptest.NewRequest(http.MethodPost, "/quotes/", bytes.NewReader(createBody()))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	var q Quotation
	_ = json.Unmarshal(rec.Body.Bytes(), &q)

	body, _ := json.Marshal(TransitionRequest{Status: StatusSent, ChangeNote: "Enviada al comprador"})
	req = httptest.NewRequest(http.MethodPost, fmt.Sprintf("/quotes/%d/transition", q.ID), bytes.NewReader(body))
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("transition: %d %s", rec.Code, rec.Body.String())
	}

	req = httptest.NewRequest(http.MethodGet, fmt.Sprintf("/quotes/%d/versions", q.ID), nil)
	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var payload struct {
		Versions []QuotationVersion `json:"versions"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &payload); err != nil {
		t.Fatalf("decode versions: %v", err)
	}
	if len(payload.Versions) != 2 {
		t.Fatalf("expected 2 versions, got %d", len(payload.Versions))
	}
	if payload.Versions[0].VersionNumber != 2 {
		t.Fatalf("expected newest first, got version %d", payload.Versions[0].VersionNumber)
	}
	if payload.Versions[0].ChangeNote != "Enviada al comprador" {
		t.Fatalf("unexpected change note %q", payload.Versions[0].ChangeNote)
	}
}

func TestHandlerListRequiresViewPermission(t *testing.T) {
	router := newTestRouter(t, newMockRepository(), nil)

	req := httptest.NewRequest(http.MethodGet, "/quotes/", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 without permission, got %d", rec.Code)
	}
}
