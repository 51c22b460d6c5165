package ledger

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for the movement ledger.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/movements", func(r chi.Router) {
		r.Get("/", h.list)
		r.Post("/", h.append)
	})
}

type movementPayload struct {
	ItemID          int64  `json:"item_id" validate:"required,gt=0"`
	Kind            string `json:"kind" validate:"required"`
	Quantity        int64  `json:"quantity" validate:"required,gt=0"`
	UnitCost        string `json:"unit_cost"`
	MovementDate    string `json:"movement_date" validate:"required"`
	FromWarehouseID *int64 `json:"from_warehouse_id"`
	ToWarehouseID   *int64 `json:"to_warehouse_id"`
	Reference       string `json:"reference"`
	Notes           string `json:"notes"`
}

type movementResponse struct {
	ID              int64  `json:"id"`
	ItemID          int64  `json:"item_id"`
	Kind            string `json:"kind"`
	Quantity        int64  `json:"quantity"`
	UnitCost        string `json:"unit_cost"`
	MovementDate    string `json:"movement_date"`
	FromWarehouseID *int64 `json:"from_warehouse_id,omitempty"`
	ToWarehouseID   *int64 `json:"to_warehouse_id,omitempty"`
	Reference       string `json:"reference,omitempty"`
	Notes           string `json:"notes,omitempty"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filter := Filter{Kind: Kind(q.Get("kind")), Page: page, PerPage: perPage}
	if itemStr := q.Get("item_id"); itemStr != "" {
		if id, err := strconv.ParseInt(itemStr, 10, 64); err == nil {
			filter.ItemID = &id
		}
	}
	if warehouseStr := q.Get("warehouse_id"); warehouseStr != "" {
		if id, err := strconv.ParseInt(warehouseStr, 10, 64); err == nil {
			filter.WarehouseID = &id
		}
	}
	if fromStr := q.Get("from"); fromStr != "" {
		if from, err := time.Parse("2006-01-02", fromStr); err == nil {
			filter.From = from
		}
	}
	if toStr := q.Get("to"); toStr != "" {
		if to, err := time.Parse("2006-01-02", toStr); err == nil {
			// end of day
			filter.To = to.Add(24*time.Hour - time.Nanosecond)
		}
	}

	movements, total, err := h.service.List(r.Context(), filter)
	if err != nil {
		h.logger.Error("list movements failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]movementResponse, 0, len(movements))
	for _, m := range movements {
		out = append(out, toMovementResponse(m))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"movements":  out,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) append(w http.ResponseWriter, r *http.Request) {
	var payload movementPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	movementDate, err := time.Parse("2006-01-02", payload.MovementDate)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid movement_date")
		return
	}
	unitCost := decimal.Zero
	if payload.UnitCost != "" {
		unitCost, err = decimal.NewFromString(payload.UnitCost)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid unit_cost")
			return
		}
	}
	movement := Movement{
		ItemID:          payload.ItemID,
		Kind:            Kind(payload.Kind),
		Quantity:        payload.Quantity,
		UnitCost:        unitCost,
		MovementDate:    movementDate,
		FromWarehouseID: payload.FromWarehouseID,
		ToWarehouseID:   payload.ToWarehouseID,
		Reference:       payload.Reference,
		Notes:           payload.Notes,
	}

	appended, err := h.service.Append(r.Context(), []Movement{movement}, shared.ActorID(r))
	if err != nil {
		h.logger.Error("append movement failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMovementResponse(appended[0]))
}

func toMovementResponse(m Movement) movementResponse {
	return movementResponse{
		ID:              m.ID,
		ItemID:          m.ItemID,
		Kind:            string(m.Kind),
		Quantity:        m.Quantity,
		UnitCost:        m.UnitCost.String(),
		MovementDate:    m.MovementDate.Format("2006-01-02"),
		FromWarehouseID: m.FromWarehouseID,
		ToWarehouseID:   m.ToWarehouseID,
		Reference:       m.Reference,
		Notes:           m.Notes,
	}
}
