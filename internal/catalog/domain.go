package catalog

import (
	"errors"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Item is a stock-keeping record. Items are maintained by catalog screens
// and consumed read-only by the projection and document engines.
type Item struct {
	ID           int64
	SKU          string
	Name         string
	Category     string
	WarehouseID  *int64 // home warehouse, nil when unassigned
	CurrentStock int64
	MinimumStock int64
	MaximumStock *int64 // nil means unbounded
	CostPrice    decimal.Decimal
	SellingPrice decimal.Decimal
	AverageCost  *decimal.Decimal
	Tracked      bool
	Active       bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Warehouse is a physical stock location.
type Warehouse struct {
	ID        int64
	Code      string
	Name      string
	Location  string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListFilters narrows item listings.
type ListFilters struct {
	Search      string
	Category    string
	WarehouseID *int64
	ActiveOnly  bool
	Page        int
	PerPage     int
}

var (
	// ErrItemNotFound occurs when an item id or sku does not resolve.
	ErrItemNotFound = errors.New("catalog: item not found")
	// ErrWarehouseNotFound occurs when a warehouse id does not resolve.
	ErrWarehouseNotFound = errors.New("catalog: warehouse not found")
	// ErrWarehouseInUse occurs when deleting a warehouse still referenced as an item home.
	ErrWarehouseInUse = errors.New("catalog: warehouse referenced by items")
	// ErrSKUTaken occurs when the sku is already registered.
	ErrSKUTaken = errors.New("catalog: sku already registered")
)

// Validate checks item fields before any store call.
func (it Item) Validate() error {
	if strings.TrimSpace(it.SKU) == "" {
		return errors.New("catalog: sku required")
	}
	if strings.TrimSpace(it.Name) == "" {
		return errors.New("catalog: name required")
	}
	if it.CurrentStock < 0 {
		return errors.New("catalog: current stock must be >= 0")
	}
	if it.MinimumStock < 0 {
		return errors.New("catalog: minimum stock must be >= 0")
	}
	if it.Tracked && it.MaximumStock != nil && *it.MaximumStock < it.CurrentStock {
		return errors.New("catalog: maximum stock below current stock")
	}
	if it.CostPrice.IsNegative() || it.SellingPrice.IsNegative() {
		return errors.New("catalog: prices must be >= 0")
	}
	if it.AverageCost != nil && it.AverageCost.IsNegative() {
		return errors.New("catalog: average cost must be >= 0")
	}
	return nil
}

// Validate checks warehouse fields.
func (w Warehouse) Validate() error {
	if strings.TrimSpace(w.Code) == "" {
		return errors.New("catalog: warehouse code required")
	}
	if strings.TrimSpace(w.Name) == "" {
		return errors.New("catalog: warehouse name required")
	}
	return nil
}
