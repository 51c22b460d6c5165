// Package documents implements multi-line warehouse entry and transfer
// documents with a draft to posted lifecycle. Posting a transfer is the
// point where stock availability is checked and ledger movements are
// appended.
package documents

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Status enumerates the document lifecycle.
type Status string

const (
	// StatusDraft is the state of every freshly created document.
	StatusDraft Status = "draft"
	// StatusPosted marks an authoritative document. One-way transition.
	StatusPosted Status = "posted"
	// StatusCancelled marks an abandoned draft.
	StatusCancelled Status = "cancelled"
)

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	switch s {
	case StatusDraft, StatusPosted, StatusCancelled:
		return true
	}
	return false
}

// SourceType tags where a warehouse entry originated.
type SourceType string

const (
	// SourceInvoice links an entry to a purchase invoice.
	SourceInvoice SourceType = "invoice"
	// SourceDeliveryNote links an entry to a supplier delivery note.
	SourceDeliveryNote SourceType = "delivery_note"
	// SourceManual covers entries keyed in without a source record.
	SourceManual SourceType = "manual"
)

// Valid reports whether t is a known source type.
func (t SourceType) Valid() bool {
	switch t {
	case SourceInvoice, SourceDeliveryNote, SourceManual:
		return true
	}
	return false
}

// EntryDocument records inbound stock at one warehouse.
type EntryDocument struct {
	ID           int64
	Reference    string
	WarehouseID  int64
	SourceType   SourceType
	SourceID     *int64 // linked invoice or delivery note id
	DocumentDate time.Time
	Status       Status
	Notes        string
	CreatedBy    int64
	CreatedAt    time.Time
	PostedAt     *time.Time
	Lines        []EntryLine
}

// EntryLine is one inbound item row.
type EntryLine struct {
	ID         int64
	DocumentID int64
	ItemID     int64
	Quantity   int64
	UnitCost   decimal.Decimal
	Notes      string
}

// TransferDocument moves stock between two warehouses.
type TransferDocument struct {
	ID              int64
	Reference       string
	FromWarehouseID int64
	ToWarehouseID   int64
	TransferDate    time.Time
	Status          Status
	Notes           string
	CreatedBy       int64
	CreatedAt       time.Time
	PostedAt        *time.Time
	Lines           []TransferLine
}

// TransferLine is one transferred item row.
type TransferLine struct {
	ID         int64
	DocumentID int64
	ItemID     int64
	Quantity   int64
	Notes      string
}

// Filter narrows document listings.
type Filter struct {
	WarehouseID *int64
	Status      Status
	Page        int
	PerPage     int
}

var (
	// ErrAlreadyPosted indicates a post attempt on a non-draft document.
	ErrAlreadyPosted = errors.New("documents: document is not in draft")
	// ErrInvalidSourceType indicates an unknown entry source.
	ErrInvalidSourceType = errors.New("documents: invalid source type")
	// ErrSameWarehouse indicates a transfer routed to its own source.
	ErrSameWarehouse = errors.New("documents: transfer warehouses must differ")
)

// EntryLineInput is one candidate entry row before filtering.
type EntryLineInput struct {
	ItemID   int64
	Quantity int64
	UnitCost *decimal.Decimal // nil = default from the valuation rule
	Notes    string
}

// EntryInput describes a warehouse entry to create.
type EntryInput struct {
	WarehouseID  int64
	SourceType   SourceType
	SourceID     *int64
	DocumentDate time.Time
	Notes        string
	Lines        []EntryLineInput
}

// TransferLineInput is one candidate transfer row before filtering.
type TransferLineInput struct {
	ItemID   int64
	Quantity int64
	Notes    string
}

// TransferInput describes a warehouse transfer to create.
type TransferInput struct {
	FromWarehouseID int64
	ToWarehouseID   int64
	TransferDate    time.Time
	Notes           string
	Lines           []TransferLineInput
}

// ValidEntryLines drops rows without a selected item or a positive
// quantity. The remaining rows keep their input order.
func (in EntryInput) ValidEntryLines() []EntryLineInput {
	kept := make([]EntryLineInput, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.ItemID > 0 && line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	return kept
}

// ValidTransferLines drops rows without a selected item or a positive
// quantity.
func (in TransferInput) ValidTransferLines() []TransferLineInput {
	kept := make([]TransferLineInput, 0, len(in.Lines))
	for _, line := range in.Lines {
		if line.ItemID > 0 && line.Quantity > 0 {
			kept = append(kept, line)
		}
	}
	return kept
}

// InsufficientItem details one over-requested item in a failed transfer.
type InsufficientItem struct {
	ItemID    int64  `json:"item_id"`
	Name      string `json:"name"`
	Requested int64  `json:"requested"`
	Available int64  `json:"available"`
}

// InsufficientStockError rejects a transfer whose aggregated request
// exceeds the source warehouse balance for at least one item.
type InsufficientStockError struct {
	Items []InsufficientItem
}

// Error lists every offending item.
func (e *InsufficientStockError) Error() string {
	parts := make([]string, 0, len(e.Items))
	for _, item := range e.Items {
		parts = append(parts, fmt.Sprintf("%s: requested %d, available %d", item.Name, item.Requested, item.Available))
	}
	return "documents: insufficient stock: " + strings.Join(parts, "; ")
}

// IsInsufficientStock reports whether err is an availability rejection.
func IsInsufficientStock(err error) bool {
	var target *InsufficientStockError
	return errors.As(err, &target)
}
