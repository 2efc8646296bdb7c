package invoices

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/shared"
)

type Handler struct {
	logger  *slog.Logger
	service *Service
}

func NewHandler(logger *slog.Logger, service *Service) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers invoice endpoints. Issuing requires the quote
// transition permission since it is the tail end of that workflow.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.RequireAny(shared.PermInvoiceView)).Get("/", h.handleList)
	r.With(guard.RequireAny(shared.PermInvoiceView)).Get("/{id}", h.handleGet)
	r.With(guard.RequireAny(shared.PermInvoiceView)).Get("/monthly", h.handleMonthly)
	r.With(guard.RequireAny(shared.PermQuoteTransition)).Post("/from-quotation/{quotationID}", h.handleCreate)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	var req ListInvoicesRequest
	if raw := q.Get("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador inválido")
			return
		}
		req.ClientID = &id
	}
	req.Limit, _ = strconv.Atoi(q.Get("limit"))
	req.Offset, _ = strconv.Atoi(q.Get("offset"))

	items, pagination, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []InvoiceWithRefs{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"items": items, "pagination": pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador inválido")
		return
	}
	inv, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, inv)
}

func (h *Handler) handleMonthly(w http.ResponseWriter, r *http.Request) {
	months, _ := strconv.Atoi(r.URL.Query().Get("months"))
	totals, err := h.service.MonthlyTotals(r.Context(), months)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if totals == nil {
		totals = []MonthlyTotal{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"months": totals})
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	quotationID, err := strconv.ParseInt(chi.URLParam(r, "quotationID"), 10, 64)
	if err != nil || quotationID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador inválido")
		return
	}

	sess := shared.SessionFromContext(r.Context())
	var actorID int64
	if sess != nil {
		actorID, _ = strconv.ParseInt(sess.User(), 10, 64)
	}

	inv, err := h.service.CreateFromQuotation(r.Context(), actorID, quotationID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}
