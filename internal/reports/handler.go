package reports

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/rbac"
	"github.com/acero-crm/acero-crm/internal/shared"
)

// CSVWriter serialises a dashboard for download.
type CSVWriter func(w io.Writer, dash Dashboard) error

// PDFRenderer converts a dashboard into PDF bytes.
type PDFRenderer func(ctx context.Context, dash Dashboard) ([]byte, error)

// Handler exposes the dashboard and its export endpoints. The export
// functions are injected so this package does not depend on its own
// export subpackage.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	csvWriter CSVWriter
	pdf       PDFRenderer
}

func NewHandler(logger *slog.Logger, service *Service, csvWriter CSVWriter, pdf PDFRenderer) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, csvWriter: csvWriter, pdf: pdf}
}

// MountRoutes registers dashboard endpoints.
func (h *Handler) MountRoutes(r chi.Router, guard rbac.Middleware) {
	r.With(guard.RequireAny(shared.PermReportView)).Get("/dashboard", h.handleDashboard)
	r.With(guard.RequireAny(shared.PermReportExport)).Get("/dashboard/export.csv", h.handleExportCSV)
	r.With(guard.RequireAny(shared.PermReportExport)).Get("/dashboard/export.pdf", h.handleExportPDF)
}

func (h *Handler) filter(r *http.Request) Filter {
	q := r.URL.Query()
	var f Filter
	f.TrendMonths, _ = strconv.Atoi(q.Get("months"))
	f.TopClients, _ = strconv.Atoi(q.Get("top"))
	return f
}

func (h *Handler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), h.filter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, dash)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	dash, err := h.service.Dashboard(r.Context(), h.filter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="tablero.csv"`)
	if err := h.csvWriter(w, dash); err != nil {
		h.logger.Error("dashboard csv export", "error", err)
	}
}

func (h *Handler) handleExportPDF(w http.ResponseWriter, r *http.Request) {
	if h.pdf == nil {
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "el servicio de PDF no está configurado")
		return
	}
	dash, err := h.service.Dashboard(r.Context(), h.filter(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}

	pdf, err := h.pdf(r.Context(), dash)
	if err != nil {
		h.logger.Error("dashboard pdf export", "error", err)
		httpx.Problem(w, http.StatusServiceUnavailable, "Renderer Unavailable", "no fue posible generar el PDF")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", `attachment; filename="tablero.pdf"`)
	_, _ = w.Write(pdf)
}
