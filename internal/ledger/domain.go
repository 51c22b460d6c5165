package ledger

import (
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// Kind enumerates supported stock movements.
type Kind string

const (
	// KindEntry represents inbound stock from a receipt.
	KindEntry Kind = "entry"
	// KindExit represents outbound stock from an issue.
	KindExit Kind = "exit"
	// KindTransfer moves stock between two warehouses.
	KindTransfer Kind = "transfer"
	// KindAdjustment indicates a manual correction.
	KindAdjustment Kind = "adjustment"
)

// Valid reports whether k is a known movement kind.
func (k Kind) Valid() bool {
	switch k {
	case KindEntry, KindExit, KindTransfer, KindAdjustment:
		return true
	}
	return false
}

// Movement is a single immutable ledger record. Rows are appended once and
// never mutated; corrections are expressed as new adjustment movements.
type Movement struct {
	ID              int64
	ItemID          int64
	Kind            Kind
	Quantity        int64
	UnitCost        decimal.Decimal
	MovementDate    time.Time
	FromWarehouseID *int64 // transfer only
	ToWarehouseID   *int64 // transfer only
	Reference       string
	Notes           string
	CreatedBy       int64
	CreatedAt       time.Time
}

// Filter narrows movement listings.
type Filter struct {
	ItemID      *int64
	Kind        Kind
	WarehouseID *int64 // matches either side of a transfer
	From        time.Time
	To          time.Time
	Page        int
	PerPage     int
}

var (
	// ErrInvalidKind indicates an unknown movement kind.
	ErrInvalidKind = errors.New("ledger: invalid movement kind")
	// ErrInvalidQuantity indicates a non-positive quantity.
	ErrInvalidQuantity = errors.New("ledger: quantity must be > 0")
	// ErrInvalidTransferRoute indicates missing or equal transfer warehouses.
	ErrInvalidTransferRoute = errors.New("ledger: transfer requires two distinct warehouses")
)

// Validate checks a movement before it is appended.
func (m Movement) Validate() error {
	if !m.Kind.Valid() {
		return ErrInvalidKind
	}
	if m.ItemID <= 0 {
		return errors.New("ledger: item required")
	}
	if m.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if m.UnitCost.IsNegative() {
		return errors.New("ledger: unit cost must be >= 0")
	}
	if m.MovementDate.IsZero() {
		return errors.New("ledger: movement date required")
	}
	if m.Kind == KindTransfer {
		if m.FromWarehouseID == nil || m.ToWarehouseID == nil || *m.FromWarehouseID == *m.ToWarehouseID {
			return ErrInvalidTransferRoute
		}
	} else if m.FromWarehouseID != nil || m.ToWarehouseID != nil {
		return errors.New("ledger: warehouse route only valid on transfers")
	}
	return nil
}
