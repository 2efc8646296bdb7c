package quotes

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/acero-crm/acero-crm/internal/platform/httpx"
	"github.com/acero-crm/acero-crm/internal/shared"
)

var errInvalidStatus = errors.New("estado de cotización desconocido")

// ActorDirectory resolves the display name of the signed-in user so
// snapshots record who made each change.
type ActorDirectory interface {
	DisplayName(ctx context.Context, userID int64) string
}

// Handler exposes the quotation endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	directory ActorDirectory
}

func NewHandler(logger *slog.Logger, service *Service, directory ActorDirectory) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, directory: directory}
}

type listResponse struct {
	Items      []QuotationWithClient `json:"items"`
	Pagination shared.Pagination     `json:"pagination"`
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	req, err := parseListRequest(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	items, pagination, err := h.service.List(r.Context(), req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if items == nil {
		items = []QuotationWithClient{}
	}
	httpx.JSON(w, http.StatusOK, listResponse{Items: items, Pagination: pagination})
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	q, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	actorID, actorName, ok := h.actor(w, r)
	if !ok {
		return
	}
	q, err := h.service.Create(r.Context(), actorID, actorName, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, q)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req UpdateQuotationRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	actorID, actorName, ok := h.actor(w, r)
	if !ok {
		return
	}
	q, err := h.service.Update(r.Context(), id, actorID, actorName, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) handleTransition(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	var req TransitionRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "cuerpo JSON inválido")
		return
	}
	actorID, actorName, ok := h.actor(w, r)
	if !ok {
		return
	}
	q, err := h.service.Transition(r.Context(), id, actorID, actorName, req)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, q)
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	versions, err := h.service.History(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	if versions == nil {
		versions = []QuotationVersion{}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"versions": versions})
}

func (h *Handler) actor(w http.ResponseWriter, r *http.Request) (int64, string, bool) {
	sess := shared.SessionFromContext(r.Context())
	if sess == nil || sess.User() == "" {
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sin sesión activa")
		return 0, "", false
	}
	id, err := strconv.ParseInt(sess.User(), 10, 64)
	if err != nil {
		h.logger.Error("parse session user id", slog.String("value", sess.User()))
		httpx.Problem(w, http.StatusUnauthorized, "Unauthorized", "sin sesión activa")
		return 0, "", false
	}
	name := ""
	if h.directory != nil {
		name = h.directory.DisplayName(r.Context(), id)
	}
	if name == "" {
		name = "Usuario"
	}
	return id, name, true
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "identificador inválido")
		return 0, false
	}
	return id, true
}

func parseListRequest(r *http.Request) (ListQuotationsRequest, error) {
	var req ListQuotationsRequest
	q := r.URL.Query()

	if raw := q.Get("client_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return req, strconv.ErrSyntax
		}
		req.ClientID = &id
	}
	if raw := q.Get("status"); raw != "" {
		status := QuotationStatus(raw)
		if !status.Valid() {
			return req, errInvalidStatus
		}
		req.Status = &status
	}
	for param, dst := range map[string]**time.Time{"date_from": &req.DateFrom, "date_to": &req.DateTo} {
		if raw := q.Get(param); raw != "" {
			t, err := time.Parse("2006-01-02", raw)
			if err != nil {
				return req, err
			}
			*dst = &t
		}
	}
	if raw := q.Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.Limit = n
		}
	}
	if raw := q.Get("offset"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			req.Offset = n
		}
	}
	return req, nil
}
