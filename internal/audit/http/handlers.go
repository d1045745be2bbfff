package audithttp

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/alesteb/alesteb-api/internal/audit"
	"github.com/alesteb/alesteb-api/internal/platform/httpx"
	"github.com/alesteb/alesteb-api/internal/rbac"
	"github.com/alesteb/alesteb-api/internal/shared"
)

const defaultDateRange = 7 * 24 * time.Hour

// TimelineService defines the business contract for timeline data.
type TimelineService interface {
	Timeline(ctx context.Context, filters audit.TimelineFilters) (audit.Result, error)
	Export(ctx context.Context, filters audit.TimelineFilters) ([]audit.Entry, error)
}

// Handler serves the audit trail.
type Handler struct {
	logger    *slog.Logger
	service   TimelineService
	rbac      rbac.Middleware
	responder *httpx.Responder
	now       func() time.Time
}

// NewHandler builds the audit handler.
func NewHandler(logger *slog.Logger, service TimelineService, rbac rbac.Middleware, responder *httpx.Responder) *Handler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Handler{logger: logger, service: service, rbac: rbac, responder: responder, now: time.Now}
}

func (h *Handler) handleTimeline(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	result, err := h.service.Timeline(r.Context(), filters)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	httpx.JSON(w, http.StatusOK, result)
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request) {
	filters, err := h.parseFilters(r)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	entries, err := h.service.Export(r.Context(), filters)
	if err != nil {
		h.responder.Error(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := audit.WriteCSV(&buf, entries); err != nil {
		h.responder.Error(w, r, err)
		return
	}
	name := fmt.Sprintf("audit-%s-%s.csv", filters.From.Format(time.DateOnly), filters.To.Format(time.DateOnly))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+name+`"`)
	if _, err := w.Write(buf.Bytes()); err != nil {
		h.logger.Warn("write audit csv", slog.Any("error", err))
	}
}

// parseFilters defaults to the last seven days ending today.
func (h *Handler) parseFilters(r *http.Request) (audit.TimelineFilters, error) {
	q := r.URL.Query()
	to := h.now().UTC().Truncate(24 * time.Hour)
	if raw := strings.TrimSpace(q.Get("to")); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return audit.TimelineFilters{}, fmt.Errorf("%w: to must be YYYY-MM-DD", shared.ErrValidation)
		}
		to = parsed
	}
	from := to.Add(-defaultDateRange)
	if raw := strings.TrimSpace(q.Get("from")); raw != "" {
		parsed, err := time.Parse(time.DateOnly, raw)
		if err != nil {
			return audit.TimelineFilters{}, fmt.Errorf("%w: from must be YYYY-MM-DD", shared.ErrValidation)
		}
		from = parsed
	}

	actorID, err := httpx.QueryInt64(r, "actor_id")
	if err != nil {
		return audit.TimelineFilters{}, err
	}

	page, err := positiveInt(q.Get("page"), 1, "page")
	if err != nil {
		return audit.TimelineFilters{}, err
	}
	pageSize, err := positiveInt(q.Get("page_size"), audit.DefaultPageSize, "page_size")
	if err != nil {
		return audit.TimelineFilters{}, err
	}

	return audit.TimelineFilters{
		From:     from,
		To:       to,
		ActorID:  actorID,
		Entity:   strings.TrimSpace(q.Get("entity")),
		EntityID: strings.TrimSpace(q.Get("entity_id")),
		Action:   strings.TrimSpace(q.Get("action")),
		Page:     page,
		PageSize: pageSize,
	}, nil
}

func positiveInt(raw string, fallback int, field string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%w: invalid %s", shared.ErrValidation, field)
	}
	return v, nil
}
