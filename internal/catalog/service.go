package catalog

import (
	"context"
	"errors"
	"fmt"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates item and warehouse maintenance.
type Service struct {
	repo  Repository
	audit AuditPort
}

// NewService builds the catalog service.
func NewService(repo Repository, audit AuditPort) *Service {
	return &Service{repo: repo, audit: audit}
}

// ListItems enumerates items with filters and pagination.
func (s *Service) ListItems(ctx context.Context, filters ListFilters) ([]Item, int, error) {
	if filters.PerPage <= 0 {
		filters.PerPage = 20
	}
	if filters.Page <= 0 {
		filters.Page = 1
	}
	items, total, err := s.repo.ListItems(ctx, filters)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("catalog.list_items", err)
	}
	return items, total, nil
}

// GetItem loads one item.
func (s *Service) GetItem(ctx context.Context, id int64) (Item, error) {
	if id <= 0 {
		return Item{}, shared.NewValidationError("invalid item id")
	}
	item, err := s.repo.GetItem(ctx, id)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return Item{}, shared.ErrNotFound
		}
		return Item{}, shared.NewPersistenceError("catalog.get_item", err)
	}
	return item, nil
}

// ItemSnapshot returns every item for projection input.
func (s *Service) ItemSnapshot(ctx context.Context) ([]Item, error) {
	items, err := s.repo.AllItems(ctx)
	if err != nil {
		return nil, shared.NewPersistenceError("catalog.item_snapshot", err)
	}
	return items, nil
}

// ItemsByID loads the named items keyed by id. Missing ids are absent
// from the map, not an error.
func (s *Service) ItemsByID(ctx context.Context, ids []int64) (map[int64]Item, error) {
	items, err := s.repo.ItemsByID(ctx, ids)
	if err != nil {
		return nil, shared.NewPersistenceError("catalog.items_by_id", err)
	}
	return items, nil
}

// WarehouseSnapshot returns every warehouse for projection input.
func (s *Service) WarehouseSnapshot(ctx context.Context) ([]Warehouse, error) {
	warehouses, err := s.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, shared.NewPersistenceError("catalog.warehouse_snapshot", err)
	}
	return warehouses, nil
}

// CreateItem validates then stores a new item.
func (s *Service) CreateItem(ctx context.Context, item Item, actorID int64) (Item, error) {
	if err := item.Validate(); err != nil {
		return Item{}, shared.NewValidationError(err.Error())
	}
	if item.WarehouseID != nil {
		if _, err := s.repo.GetWarehouse(ctx, *item.WarehouseID); err != nil {
			if errors.Is(err, ErrWarehouseNotFound) {
				return Item{}, shared.NewValidationError("home warehouse does not exist")
			}
			return Item{}, shared.NewPersistenceError("catalog.get_warehouse", err)
		}
	}
	created, err := s.repo.CreateItem(ctx, item)
	if err != nil {
		if errors.Is(err, ErrSKUTaken) {
			return Item{}, shared.NewValidationError("sku already registered")
		}
		return Item{}, shared.NewPersistenceError("catalog.create_item", err)
	}
	s.recordAudit(ctx, actorID, "catalog:item_create", "item", created.ID, map[string]any{"sku": created.SKU})
	return created, nil
}

// UpdateItem validates then stores item changes.
func (s *Service) UpdateItem(ctx context.Context, id int64, item Item, actorID int64) error {
	if id <= 0 {
		return shared.NewValidationError("invalid item id")
	}
	if err := item.Validate(); err != nil {
		return shared.NewValidationError(err.Error())
	}
	if err := s.repo.UpdateItem(ctx, id, item); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return shared.ErrNotFound
		}
		return shared.NewPersistenceError("catalog.update_item", err)
	}
	s.recordAudit(ctx, actorID, "catalog:item_update", "item", id, map[string]any{"sku": item.SKU})
	return nil
}

// DeactivateItem hides an item from active listings without deleting history.
func (s *Service) DeactivateItem(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return shared.NewValidationError("invalid item id")
	}
	if err := s.repo.SetItemActive(ctx, id, false); err != nil {
		if errors.Is(err, ErrItemNotFound) {
			return shared.ErrNotFound
		}
		return shared.NewPersistenceError("catalog.deactivate_item", err)
	}
	s.recordAudit(ctx, actorID, "catalog:item_deactivate", "item", id, nil)
	return nil
}

// ListWarehouses enumerates warehouses.
func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	warehouses, err := s.repo.ListWarehouses(ctx)
	if err != nil {
		return nil, shared.NewPersistenceError("catalog.list_warehouses", err)
	}
	return warehouses, nil
}

// GetWarehouse loads one warehouse.
func (s *Service) GetWarehouse(ctx context.Context, id int64) (Warehouse, error) {
	if id <= 0 {
		return Warehouse{}, shared.NewValidationError("invalid warehouse id")
	}
	warehouse, err := s.repo.GetWarehouse(ctx, id)
	if err != nil {
		if errors.Is(err, ErrWarehouseNotFound) {
			return Warehouse{}, shared.ErrNotFound
		}
		return Warehouse{}, shared.NewPersistenceError("catalog.get_warehouse", err)
	}
	return warehouse, nil
}

// CreateWarehouse validates then stores a warehouse.
func (s *Service) CreateWarehouse(ctx context.Context, warehouse Warehouse, actorID int64) (Warehouse, error) {
	if err := warehouse.Validate(); err != nil {
		return Warehouse{}, shared.NewValidationError(err.Error())
	}
	created, err := s.repo.CreateWarehouse(ctx, warehouse)
	if err != nil {
		return Warehouse{}, shared.NewPersistenceError("catalog.create_warehouse", err)
	}
	s.recordAudit(ctx, actorID, "catalog:warehouse_create", "warehouse", created.ID, map[string]any{"code": created.Code})
	return created, nil
}

// UpdateWarehouse validates then stores warehouse changes.
func (s *Service) UpdateWarehouse(ctx context.Context, id int64, warehouse Warehouse, actorID int64) error {
	if id <= 0 {
		return shared.NewValidationError("invalid warehouse id")
	}
	if err := warehouse.Validate(); err != nil {
		return shared.NewValidationError(err.Error())
	}
	if err := s.repo.UpdateWarehouse(ctx, id, warehouse); err != nil {
		if errors.Is(err, ErrWarehouseNotFound) {
			return shared.ErrNotFound
		}
		return shared.NewPersistenceError("catalog.update_warehouse", err)
	}
	s.recordAudit(ctx, actorID, "catalog:warehouse_update", "warehouse", id, nil)
	return nil
}

// DeleteWarehouse removes a warehouse unless items still call it home.
func (s *Service) DeleteWarehouse(ctx context.Context, id int64, actorID int64) error {
	if id <= 0 {
		return shared.NewValidationError("invalid warehouse id")
	}
	if err := s.repo.DeleteWarehouse(ctx, id); err != nil {
		switch {
		case errors.Is(err, ErrWarehouseNotFound):
			return shared.ErrNotFound
		case errors.Is(err, ErrWarehouseInUse):
			return shared.ErrConflict
		}
		return shared.NewPersistenceError("catalog.delete_warehouse", err)
	}
	s.recordAudit(ctx, actorID, "catalog:warehouse_delete", "warehouse", id, nil)
	return nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action, entity string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   entity,
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}
