package documents

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// PostedLine is one line of a posted document as seen by integrations.
type PostedLine struct {
	ItemID   int64
	Quantity int64
	UnitCost decimal.Decimal
}

// EntryPostedEvent is handed to the journal poster when an entry document
// transitions to posted.
type EntryPostedEvent struct {
	Reference    string
	WarehouseID  int64
	SourceType   SourceType
	SourceID     *int64
	DocumentDate time.Time
	Lines        []PostedLine
}

// JournalPoster is the external bookkeeping collaborator invoked at entry
// post time. A failure aborts the transition and the document stays draft.
type JournalPoster interface {
	PostEntryJournal(ctx context.Context, event EntryPostedEvent) error
}
