package catalog

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/meridian-erp/meridian-erp/internal/platform/httpx"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// Handler wires HTTP endpoints for the catalog module.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the catalog handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/items", func(r chi.Router) {
		r.Get("/", h.listItems)
		r.Post("/", h.createItem)
		r.Get("/{id}", h.getItem)
		r.Put("/{id}", h.updateItem)
		r.Delete("/{id}", h.deactivateItem)
	})
	r.Route("/warehouses", func(r chi.Router) {
		r.Get("/", h.listWarehouses)
		r.Post("/", h.createWarehouse)
		r.Get("/{id}", h.getWarehouse)
		r.Put("/{id}", h.updateWarehouse)
		r.Delete("/{id}", h.deleteWarehouse)
	})
}

type itemPayload struct {
	SKU          string  `json:"sku" validate:"required"`
	Name         string  `json:"name" validate:"required"`
	Category     string  `json:"category"`
	WarehouseID  *int64  `json:"warehouse_id"`
	CurrentStock int64   `json:"current_stock" validate:"gte=0"`
	MinimumStock int64   `json:"minimum_stock" validate:"gte=0"`
	MaximumStock *int64  `json:"maximum_stock"`
	CostPrice    string  `json:"cost_price" validate:"required"`
	SellingPrice string  `json:"selling_price" validate:"required"`
	AverageCost  *string `json:"average_cost"`
	Tracked      *bool   `json:"tracked"`
	Active       *bool   `json:"active"`
}

type itemResponse struct {
	ID           int64   `json:"id"`
	SKU          string  `json:"sku"`
	Name         string  `json:"name"`
	Category     string  `json:"category"`
	WarehouseID  *int64  `json:"warehouse_id"`
	CurrentStock int64   `json:"current_stock"`
	MinimumStock int64   `json:"minimum_stock"`
	MaximumStock *int64  `json:"maximum_stock"`
	CostPrice    string  `json:"cost_price"`
	SellingPrice string  `json:"selling_price"`
	AverageCost  *string `json:"average_cost"`
	Tracked      bool    `json:"tracked"`
	Active       bool    `json:"active"`
}

type warehousePayload struct {
	Code     string `json:"code" validate:"required"`
	Name     string `json:"name" validate:"required"`
	Location string `json:"location"`
}

func (h *Handler) listItems(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	perPage, _ := strconv.Atoi(q.Get("per_page"))
	filters := ListFilters{
		Search:     q.Get("search"),
		Category:   q.Get("category"),
		ActiveOnly: q.Get("active") == "true",
		Page:       page,
		PerPage:    perPage,
	}
	if warehouseStr := q.Get("warehouse_id"); warehouseStr != "" {
		if id, err := strconv.ParseInt(warehouseStr, 10, 64); err == nil {
			filters.WarehouseID = &id
		}
	}

	items, total, err := h.service.ListItems(r.Context(), filters)
	if err != nil {
		h.logger.Error("list items failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	out := make([]itemResponse, 0, len(items))
	for _, item := range items {
		out = append(out, toItemResponse(item))
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"items":      out,
		"pagination": shared.NewPagination(filters.Page, filters.PerPage, total),
	})
}

func (h *Handler) getItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	item, err := h.service.GetItem(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toItemResponse(item))
}

func (h *Handler) createItem(w http.ResponseWriter, r *http.Request) {
	item, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	created, err := h.service.CreateItem(r.Context(), item, shared.ActorID(r))
	if err != nil {
		h.logger.Error("create item failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toItemResponse(created))
}

func (h *Handler) updateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	item, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	if err := h.service.UpdateItem(r.Context(), id, item, shared.ActorID(r)); err != nil {
		h.logger.Error("update item failed", slog.Any("error", err), slog.Int64("id", id))
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deactivateItem(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item id")
		return
	}
	if err := h.service.DeactivateItem(r.Context(), id, shared.ActorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	warehouses, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		h.logger.Error("list warehouses failed", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"warehouses": warehouses})
}

func (h *Handler) getWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid warehouse id")
		return
	}
	warehouse, err := h.service.GetWarehouse(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, warehouse)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var payload warehousePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateWarehouse(r.Context(), Warehouse{Code: payload.Code, Name: payload.Name, Location: payload.Location}, shared.ActorID(r))
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, created)
}

func (h *Handler) updateWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid warehouse id")
		return
	}
	var payload warehousePayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	if err := h.service.UpdateWarehouse(r.Context(), id, Warehouse{Code: payload.Code, Name: payload.Name, Location: payload.Location}, shared.ActorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) deleteWarehouse(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid warehouse id")
		return
	}
	if err := h.service.DeleteWarehouse(r.Context(), id, shared.ActorID(r)); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request) (Item, bool) {
	var payload itemPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return Item{}, false
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return Item{}, false
	}
	costPrice, err := decimal.NewFromString(payload.CostPrice)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid cost_price")
		return Item{}, false
	}
	sellingPrice, err := decimal.NewFromString(payload.SellingPrice)
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid selling_price")
		return Item{}, false
	}
	item := Item{
		SKU:          payload.SKU,
		Name:         payload.Name,
		Category:     payload.Category,
		WarehouseID:  payload.WarehouseID,
		CurrentStock: payload.CurrentStock,
		MinimumStock: payload.MinimumStock,
		MaximumStock: payload.MaximumStock,
		CostPrice:    costPrice,
		SellingPrice: sellingPrice,
		Tracked:      true,
		Active:       true,
	}
	if payload.AverageCost != nil {
		avg, err := decimal.NewFromString(*payload.AverageCost)
		if err != nil {
			httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", "invalid average_cost")
			return Item{}, false
		}
		item.AverageCost = &avg
	}
	if payload.Tracked != nil {
		item.Tracked = *payload.Tracked
	}
	if payload.Active != nil {
		item.Active = *payload.Active
	}
	return item, true
}

func toItemResponse(item Item) itemResponse {
	resp := itemResponse{
		ID:           item.ID,
		SKU:          item.SKU,
		Name:         item.Name,
		Category:     item.Category,
		WarehouseID:  item.WarehouseID,
		CurrentStock: item.CurrentStock,
		MinimumStock: item.MinimumStock,
		MaximumStock: item.MaximumStock,
		CostPrice:    item.CostPrice.String(),
		SellingPrice: item.SellingPrice.String(),
		Tracked:      item.Tracked,
		Active:       item.Active,
	}
	if item.AverageCost != nil {
		s := item.AverageCost.String()
		resp.AverageCost = &s
	}
	return resp
}
