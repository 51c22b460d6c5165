package balance

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the warehouse balance report.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs the balance handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers balance routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/balances", func(r chi.Router) {
		r.Get("/", h.report)
		r.Get("/export.csv", h.exportCSV)
	})
}

func (h *Handler) report(w http.ResponseWriter, r *http.Request) {
	cutoff, filters, err := parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.Report(r.Context(), cutoff, filters)
	if err != nil {
		h.logger.Error("balance report failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	cutoff, filters, err := parseQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.Report(r.Context(), cutoff, filters)
	if err != nil {
		h.logger.Error("balance export failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	filename := fmt.Sprintf("warehouse-balances-%s.csv", time.Now().Format("20060102-150405"))
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	if err := ExportRows(w, rows); err != nil {
		h.logger.Error("balance csv write failed", slog.String("error", err.Error()))
	}
}

func parseQuery(r *http.Request) (*time.Time, Filters, error) {
	var filters Filters
	query := r.URL.Query()
	if raw := query.Get("warehouse_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, filters, fmt.Errorf("invalid warehouse_id %q", raw)
		}
		filters.WarehouseID = &id
	}
	filters.Search = query.Get("q")
	filters.ExcludeZero = query.Get("exclude_zero") == "true"

	var cutoff *time.Time
	if raw := query.Get("as_of"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, filters, fmt.Errorf("invalid as_of %q, expected YYYY-MM-DD", raw)
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		cutoff = &end
	}
	return cutoff, filters, nil
}
