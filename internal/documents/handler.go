package documents

import (
	"errors"
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

// Handler wires HTTP endpoints for entry and transfer documents.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs the documents handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers document routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/entries", func(r chi.Router) {
		r.Get("/", h.listEntries)
		r.Post("/", h.createEntry)
		r.Get("/{id}", h.getEntry)
		r.Post("/{id}/post", h.postEntry)
		r.Post("/{id}/cancel", h.cancelEntry)
	})
	r.Route("/transfers", func(r chi.Router) {
		r.Get("/", h.listTransfers)
		r.Post("/", h.createTransfer)
		r.Get("/{id}", h.getTransfer)
		r.Post("/{id}/post", h.postTransfer)
		r.Post("/{id}/cancel", h.cancelTransfer)
	})
}

type entryLinePayload struct {
	ItemID   int64   `json:"item_id"`
	Quantity int64   `json:"quantity"`
	UnitCost *string `json:"unit_cost"`
	Notes    string  `json:"notes"`
}

type entryPayload struct {
	WarehouseID  int64              `json:"warehouse_id" validate:"required,gt=0"`
	SourceType   string             `json:"source_type" validate:"required"`
	SourceID     *int64             `json:"source_id"`
	DocumentDate string             `json:"document_date" validate:"required"`
	Notes        string             `json:"notes"`
	Lines        []entryLinePayload `json:"lines" validate:"required"`
}

type transferLinePayload struct {
	ItemID   int64  `json:"item_id"`
	Quantity int64  `json:"quantity"`
	Notes    string `json:"notes"`
}

type transferPayload struct {
	FromWarehouseID int64                 `json:"from_warehouse_id" validate:"required,gt=0"`
	ToWarehouseID   int64                 `json:"to_warehouse_id" validate:"required,gt=0"`
	TransferDate    string                `json:"transfer_date" validate:"required"`
	Notes           string                `json:"notes"`
	Lines           []transferLinePayload `json:"lines" validate:"required"`
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	docs, total, err := h.service.ListEntries(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"documents":  docs,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	var payload entryPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	input, err := payload.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.CreateEntry(r.Context(), input, shared.ActorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) getEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetEntry(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) postEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.PostEntry(r.Context(), id, shared.ActorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusPosted)})
}

func (h *Handler) cancelEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.CancelEntry(r.Context(), id, shared.ActorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
}

func (h *Handler) listTransfers(w http.ResponseWriter, r *http.Request) {
	filter, err := parseFilter(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	docs, total, err := h.service.ListTransfers(r.Context(), filter)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"documents":  docs,
		"pagination": shared.NewPagination(filter.Page, filter.PerPage, total),
	})
}

func (h *Handler) createTransfer(w http.ResponseWriter, r *http.Request) {
	var payload transferPayload
	if err := httpx.DecodeJSON(r, &payload); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid json body")
		return
	}
	if err := h.validator.Struct(payload); err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	input, err := payload.toInput()
	if err != nil {
		httpx.Problem(w, http.StatusUnprocessableEntity, "Validation Failed", err.Error())
		return
	}
	doc, err := h.service.CreateTransfer(r.Context(), input, shared.ActorID(r))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, doc)
}

func (h *Handler) getTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	doc, err := h.service.GetTransfer(r.Context(), id)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, doc)
}

func (h *Handler) postTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.PostTransfer(r.Context(), id, shared.ActorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusPosted)})
}

func (h *Handler) cancelTransfer(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.service.CancelTransfer(r.Context(), id, shared.ActorID(r)); err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusCancelled)})
}

// respondError maps document errors before falling back to the shared
// mapping.
func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		httpx.ProblemWithExtra(w, http.StatusConflict, "Insufficient Stock",
			"requested quantity exceeds available balance", insufficient.Items)
	case errors.Is(err, ErrAlreadyPosted):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	case errors.Is(err, shared.ErrIdempotencyConflict):
		httpx.Problem(w, http.StatusConflict, "Conflict", err.Error())
	default:
		if shared.IsPersistence(err) {
			h.logger.Error("document operation failed", slog.String("error", err.Error()))
		}
		httpx.RespondError(w, err)
	}
}

func (p entryPayload) toInput() (EntryInput, error) {
	date, err := time.Parse("2006-01-02", p.DocumentDate)
	if err != nil {
		return EntryInput{}, errors.New("invalid document_date, expected YYYY-MM-DD")
	}
	input := EntryInput{
		WarehouseID:  p.WarehouseID,
		SourceType:   SourceType(p.SourceType),
		SourceID:     p.SourceID,
		DocumentDate: date,
		Notes:        p.Notes,
	}
	for _, line := range p.Lines {
		var unitCost *decimal.Decimal
		if line.UnitCost != nil {
			parsed, err := decimal.NewFromString(*line.UnitCost)
			if err != nil {
				return EntryInput{}, errors.New("invalid unit_cost")
			}
			unitCost = &parsed
		}
		input.Lines = append(input.Lines, EntryLineInput{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			UnitCost: unitCost,
			Notes:    line.Notes,
		})
	}
	return input, nil
}

func (p transferPayload) toInput() (TransferInput, error) {
	date, err := time.Parse("2006-01-02", p.TransferDate)
	if err != nil {
		return TransferInput{}, errors.New("invalid transfer_date, expected YYYY-MM-DD")
	}
	input := TransferInput{
		FromWarehouseID: p.FromWarehouseID,
		ToWarehouseID:   p.ToWarehouseID,
		TransferDate:    date,
		Notes:           p.Notes,
	}
	for _, line := range p.Lines {
		input.Lines = append(input.Lines, TransferLineInput{ItemID: line.ItemID, Quantity: line.Quantity, Notes: line.Notes})
	}
	return input, nil
}

func pathID(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid document id")
		return 0, false
	}
	return id, true
}

func parseFilter(r *http.Request) (Filter, error) {
	var filter Filter
	query := r.URL.Query()
	if raw := query.Get("warehouse_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			return filter, errors.New("invalid warehouse_id")
		}
		filter.WarehouseID = &id
	}
	if raw := query.Get("status"); raw != "" {
		status := Status(raw)
		if !status.Valid() {
			return filter, errors.New("invalid status")
		}
		filter.Status = status
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
