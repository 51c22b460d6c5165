package physcount

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for count sessions.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the count handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers count session routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/count-sessions", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.save)
		r.Get("/candidates", h.candidates)
		r.Get("/{id}", h.detail)
		r.Get("/{id}/export.csv", h.exportCSV)
	})
}

type savePayload struct {
	WarehouseID *int64        `json:"warehouse_id"`
	CountDate   string        `json:"count_date" validate:"required"`
	AsOf        string        `json:"as_of"`
	Description string        `json:"description"`
	Rows        []savedRowDTO `json:"rows" validate:"required"`
}

type savedRowDTO struct {
	ItemID      int64 `json:"item_id" validate:"required,gt=0"`
	WarehouseID int64 `json:"warehouse_id" validate:"required,gt=0"`
	CountedQty  int64 `json:"counted_qty"`
}

func (h *Handler) candidates(w http.ResponseWriter, r *http.Request) {
	cutoff, filters, err := parseCandidateQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	rows, err := h.service.CandidateRows(r.Context(), cutoff, filters)
	if err != nil {
		h.logger.Error("count candidates failed", slog.String("error", err.Error()))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"rows": rows})
}

// save rebuilds the candidate rows server-side and applies the submitted
// counts, so the frozen variance columns are computed here rather than
// trusted from the client.
func (h *Handler) save(w http.ResponseWriter, r *http.Request) {
	var payload savePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	countDate, err := time.Parse("2006-01-02", payload.CountDate)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid count_date, expected YYYY-MM-DD")
		return
	}

	// Counts taken against an as-of snapshot must be frozen against the
	// same cutoff the candidates were built with.
	var cutoff *time.Time
	if payload.AsOf != "" {
		day, err := time.Parse("2006-01-02", payload.AsOf)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid as_of, expected YYYY-MM-DD")
			return
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		cutoff = &end
	}

	filters := balance.Filters{WarehouseID: payload.WarehouseID}
	rows, err := h.service.CandidateRows(r.Context(), cutoff, filters)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	counts := make(map[balance.Key]int64, len(payload.Rows))
	for _, row := range payload.Rows {
		counts[balance.Key{WarehouseID: row.WarehouseID, ItemID: row.ItemID}] = row.CountedQty
	}
	rows = ApplyCounts(rows, counts)

	session, err := h.service.Save(r.Context(), SessionInput{
		WarehouseID: payload.WarehouseID,
		CountDate:   countDate,
		Description: payload.Description,
	}, rows, shared.ActorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, session)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter, err := parseListQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	sessions, total, err := h.service.ListSessions(r.Context(), filter)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"sessions":   sessions,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) detail(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	session, err := h.service.SessionDetail(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, session)
}

func (h *Handler) exportCSV(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r)
	if !ok {
		return
	}
	session, err := h.service.SessionDetail(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session.Reference+".csv"))
	if err := exportSession(w, session); err != nil {
		h.logger.Error("count csv write failed", slog.String("error", err.Error()))
	}
}

var exportHeader = []string{
	"SKU", "Item", "Warehouse", "Theoretical Qty", "Counted Qty", "Difference",
	"Unit Cost", "Theoretical Cost", "Counted Cost", "Cost Difference",
}

func exportSession(w io.Writer, session Session) error {
	writer := csv.NewWriter(w)
	writer.UseCRLF = true
	if err := writer.Write(exportHeader); err != nil {
		return err
	}
	for _, line := range session.Lines {
		record := []string{
			line.SKU,
			line.ItemName,
			strconv.FormatInt(line.WarehouseID, 10),
			strconv.FormatInt(line.TheoreticalQty, 10),
			strconv.FormatInt(line.CountedQty, 10),
			strconv.FormatInt(line.DifferenceQty, 10),
			line.UnitCost.StringFixed(2),
			line.TheoreticalCost.StringFixed(2),
			line.CountedCost.StringFixed(2),
			line.CostDifference.StringFixed(2),
		}
		if err := writer.Write(record); err != nil {
			return err
		}
	}
	writer.Flush()
	return writer.Error()
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid session id")
		return 0, false
	}
	return id, true
}

func parseCandidateQuery(r *http.Request) (*time.Time, balance.Filters, error) {
	var filters balance.Filters
	query := r.URL.Query()
	if raw := query.Get("warehouse_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return nil, filters, errors.New("invalid warehouse_id")
		}
		filters.WarehouseID = &id
	}
	filters.Search = query.Get("q")
	filters.ExcludeZero = query.Get("exclude_zero") == "true"

	var cutoff *time.Time
	if raw := query.Get("as_of"); raw != "" {
		day, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return nil, filters, errors.New("invalid as_of, expected YYYY-MM-DD")
		}
		end := day.Add(24*time.Hour - time.Nanosecond)
		cutoff = &end
	}
	return cutoff, filters, nil
}

func parseListQuery(r *http.Request) (ListFilter, error) {
	var filter ListFilter
	query := r.URL.Query()
	if raw := query.Get("warehouse_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, errors.New("invalid warehouse_id")
		}
		filter.WarehouseID = &id
	}
	filter.Page, _ = strconv.Atoi(query.Get("page"))
	filter.PerPage, _ = strconv.Atoi(query.Get("per_page"))
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PerPage < 1 || filter.PerPage > 200 {
		filter.PerPage = 50
	}
	return filter, nil
}
