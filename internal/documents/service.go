package documents

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
	"github.com/meridian-erp/meridian-erp/internal/valuation"
)

// ItemSource resolves item records for line validation and cost defaults.
type ItemSource interface {
	ItemsByID(ctx context.Context, ids []int64) (map[int64]catalog.Item, error)
}

// LedgerPort appends movements produced by posting.
type LedgerPort interface {
	Append(ctx context.Context, movements []ledger.Movement, actorID int64) ([]ledger.Movement, error)
}

// BalancePort supplies the current projection and invalidates cached
// report rows after posting.
type BalancePort interface {
	Balances(ctx context.Context, cutoff *time.Time) (map[balance.Key]int64, error)
	Invalidate(ctx context.Context) error
}

// AuditPort abstracts audit logging.
type AuditPort interface {
	Record(ctx context.Context, log shared.AuditLog) error
}

// Service coordinates the draft to posted lifecycle of entry and transfer
// documents.
//
// The transfer availability check reads a balance snapshot and is advisory
// under concurrent writers: two posters can each pass the check against
// the same snapshot and jointly over-commit the source warehouse. Callers
// needing a hard guarantee must serialize postings themselves.
type Service struct {
	repo        Repository
	items       ItemSource
	ledger      LedgerPort
	balances    BalancePort
	audit       AuditPort
	idempotency *shared.IdempotencyStore
	journal     JournalPoster
}

// NewService builds the document service. journal may be nil when no
// bookkeeping integration is configured.
func NewService(repo Repository, items ItemSource, ledgerPort LedgerPort, balances BalancePort, audit AuditPort, idem *shared.IdempotencyStore, journal JournalPoster) *Service {
	return &Service{
		repo:        repo,
		items:       items,
		ledger:      ledgerPort,
		balances:    balances,
		audit:       audit,
		idempotency: idem,
		journal:     journal,
	}
}

// CreateEntry validates input and stores a draft entry document. Line unit
// costs default to the valuation rule when the caller leaves them unset.
func (s *Service) CreateEntry(ctx context.Context, input EntryInput, actorID int64) (EntryDocument, error) {
	if input.WarehouseID <= 0 {
		return EntryDocument{}, shared.NewValidationError("warehouse required")
	}
	if !input.SourceType.Valid() {
		return EntryDocument{}, shared.NewValidationError(ErrInvalidSourceType.Error())
	}
	if input.DocumentDate.IsZero() {
		return EntryDocument{}, shared.NewValidationError("document date required")
	}
	lines := input.ValidEntryLines()
	if len(lines) == 0 {
		return EntryDocument{}, shared.NewValidationError("no valid lines")
	}

	items, err := s.lookupItems(ctx, entryItemIDs(lines))
	if err != nil {
		return EntryDocument{}, err
	}

	doc := EntryDocument{
		Reference:    fmt.Sprintf("WE-%d", time.Now().UTC().UnixNano()),
		WarehouseID:  input.WarehouseID,
		SourceType:   input.SourceType,
		SourceID:     input.SourceID,
		DocumentDate: input.DocumentDate,
		Status:       StatusDraft,
		Notes:        input.Notes,
		CreatedBy:    actorID,
	}
	for _, line := range lines {
		item, ok := items[line.ItemID]
		if !ok {
			return EntryDocument{}, shared.NewValidationError(fmt.Sprintf("unknown item %d", line.ItemID))
		}
		unitCost := valuation.UnitCost(item)
		if line.UnitCost != nil {
			unitCost = *line.UnitCost
		}
		doc.Lines = append(doc.Lines, EntryLine{
			ItemID:   line.ItemID,
			Quantity: line.Quantity,
			UnitCost: unitCost,
			Notes:    line.Notes,
		})
	}

	created, err := s.repo.CreateEntry(ctx, doc)
	if err != nil {
		return EntryDocument{}, shared.NewPersistenceError("documents.create_entry", err)
	}
	s.recordAudit(ctx, actorID, "entry:create", created.ID, map[string]any{"reference": created.Reference, "lines": len(created.Lines)})
	return created, nil
}

// PostEntry transitions a draft entry to posted. The journal poster runs
// first; when it fails the document stays draft and the error is returned
// as-is.
func (s *Service) PostEntry(ctx context.Context, id int64, actorID int64) error {
	doc, err := s.getEntry(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}

	key := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("entry:post:%d", id))).String()
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "documents"); err != nil {
			return err
		}
	}

	if s.journal != nil {
		event := EntryPostedEvent{
			Reference:    doc.Reference,
			WarehouseID:  doc.WarehouseID,
			SourceType:   doc.SourceType,
			SourceID:     doc.SourceID,
			DocumentDate: doc.DocumentDate,
		}
		for _, line := range doc.Lines {
			event.Lines = append(event.Lines, PostedLine{ItemID: line.ItemID, Quantity: line.Quantity, UnitCost: line.UnitCost})
		}
		if err := s.journal.PostEntryJournal(ctx, event); err != nil {
			if s.idempotency != nil {
				_ = s.idempotency.Delete(ctx, key)
			}
			return fmt.Errorf("documents: journal posting failed: %w", err)
		}
	}

	if err := s.repo.MarkEntryPosted(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrAlreadyPosted) {
			return err
		}
		return shared.NewPersistenceError("documents.post_entry", err)
	}
	if err := s.balances.Invalidate(ctx); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "entry:post", id, map[string]any{"reference": doc.Reference})
	return nil
}

// CreateTransfer validates input and stores a draft transfer document.
func (s *Service) CreateTransfer(ctx context.Context, input TransferInput, actorID int64) (TransferDocument, error) {
	if input.FromWarehouseID <= 0 || input.ToWarehouseID <= 0 {
		return TransferDocument{}, shared.NewValidationError("both warehouses required")
	}
	if input.FromWarehouseID == input.ToWarehouseID {
		return TransferDocument{}, shared.NewValidationError(ErrSameWarehouse.Error())
	}
	if input.TransferDate.IsZero() {
		return TransferDocument{}, shared.NewValidationError("transfer date required")
	}
	lines := input.ValidTransferLines()
	if len(lines) == 0 {
		return TransferDocument{}, shared.NewValidationError("no valid lines")
	}

	items, err := s.lookupItems(ctx, transferItemIDs(lines))
	if err != nil {
		return TransferDocument{}, err
	}
	for _, line := range lines {
		if _, ok := items[line.ItemID]; !ok {
			return TransferDocument{}, shared.NewValidationError(fmt.Sprintf("unknown item %d", line.ItemID))
		}
	}

	doc := TransferDocument{
		Reference:       fmt.Sprintf("WT-%d", time.Now().UTC().UnixNano()),
		FromWarehouseID: input.FromWarehouseID,
		ToWarehouseID:   input.ToWarehouseID,
		TransferDate:    input.TransferDate,
		Status:          StatusDraft,
		Notes:           input.Notes,
		CreatedBy:       actorID,
	}
	for _, line := range lines {
		doc.Lines = append(doc.Lines, TransferLine{ItemID: line.ItemID, Quantity: line.Quantity, Notes: line.Notes})
	}

	created, err := s.repo.CreateTransfer(ctx, doc)
	if err != nil {
		return TransferDocument{}, shared.NewPersistenceError("documents.create_transfer", err)
	}
	s.recordAudit(ctx, actorID, "transfer:create", created.ID, map[string]any{"reference": created.Reference, "lines": len(created.Lines)})
	return created, nil
}

// PostTransfer checks availability against the current projection, then
// appends one transfer movement per line dated at the transfer date and
// marks the document posted. On an availability failure no movement is
// created and the document stays draft.
func (s *Service) PostTransfer(ctx context.Context, id int64, actorID int64) error {
	doc, err := s.getTransfer(ctx, id)
	if err != nil {
		return err
	}
	if doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}

	if err := s.checkAvailability(ctx, doc); err != nil {
		return err
	}

	key := uuid.NewSHA1(uuid.Nil, []byte(fmt.Sprintf("transfer:post:%d", id))).String()
	if s.idempotency != nil {
		if err := s.idempotency.CheckAndInsert(ctx, key, "documents"); err != nil {
			return err
		}
	}

	items, err := s.lookupItems(ctx, transferDocItemIDs(doc.Lines))
	if err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}

	movements := make([]ledger.Movement, 0, len(doc.Lines))
	from, to := doc.FromWarehouseID, doc.ToWarehouseID
	for _, line := range doc.Lines {
		movements = append(movements, ledger.Movement{
			ItemID:          line.ItemID,
			Kind:            ledger.KindTransfer,
			Quantity:        line.Quantity,
			UnitCost:        valuation.UnitCost(items[line.ItemID]),
			MovementDate:    doc.TransferDate,
			FromWarehouseID: &from,
			ToWarehouseID:   &to,
			Reference:       doc.Reference,
			Notes:           line.Notes,
		})
	}
	if _, err := s.ledger.Append(ctx, movements, actorID); err != nil {
		if s.idempotency != nil {
			_ = s.idempotency.Delete(ctx, key)
		}
		return err
	}

	if err := s.repo.MarkTransferPosted(ctx, id, time.Now().UTC()); err != nil {
		if errors.Is(err, ErrAlreadyPosted) {
			return err
		}
		// Movements are already appended. Surface the failed step instead
		// of retrying or rolling back the ledger.
		return shared.NewPersistenceError("documents.post_transfer", err)
	}
	if err := s.balances.Invalidate(ctx); err != nil {
		return err
	}
	s.recordAudit(ctx, actorID, "transfer:post", id, map[string]any{"reference": doc.Reference, "lines": len(doc.Lines)})
	return nil
}

// CancelEntry abandons a draft entry.
func (s *Service) CancelEntry(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.MarkEntryCancelled(ctx, id); err != nil {
		if errors.Is(err, ErrAlreadyPosted) {
			return err
		}
		return shared.NewPersistenceError("documents.cancel_entry", err)
	}
	s.recordAudit(ctx, actorID, "entry:cancel", id, nil)
	return nil
}

// CancelTransfer abandons a draft transfer.
func (s *Service) CancelTransfer(ctx context.Context, id int64, actorID int64) error {
	if err := s.repo.MarkTransferCancelled(ctx, id); err != nil {
		if errors.Is(err, ErrAlreadyPosted) {
			return err
		}
		return shared.NewPersistenceError("documents.cancel_transfer", err)
	}
	s.recordAudit(ctx, actorID, "transfer:cancel", id, nil)
	return nil
}

// GetEntry loads an entry document with its lines.
func (s *Service) GetEntry(ctx context.Context, id int64) (EntryDocument, error) {
	return s.getEntry(ctx, id)
}

// ListEntries enumerates entry headers.
func (s *Service) ListEntries(ctx context.Context, filter Filter) ([]EntryDocument, int, error) {
	docs, total, err := s.repo.ListEntries(ctx, filter)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("documents.list_entries", err)
	}
	return docs, total, nil
}

// GetTransfer loads a transfer document with its lines.
func (s *Service) GetTransfer(ctx context.Context, id int64) (TransferDocument, error) {
	return s.getTransfer(ctx, id)
}

// ListTransfers enumerates transfer headers.
func (s *Service) ListTransfers(ctx context.Context, filter Filter) ([]TransferDocument, int, error) {
	docs, total, err := s.repo.ListTransfers(ctx, filter)
	if err != nil {
		return nil, 0, shared.NewPersistenceError("documents.list_transfers", err)
	}
	return docs, total, nil
}

// checkAvailability aggregates requested quantities by item and compares
// them against the source warehouse balances as of now.
func (s *Service) checkAvailability(ctx context.Context, doc TransferDocument) error {
	balances, err := s.balances.Balances(ctx, nil)
	if err != nil {
		return err
	}

	requested := make(map[int64]int64)
	for _, line := range doc.Lines {
		requested[line.ItemID] += line.Quantity
	}

	var shortIDs []int64
	for itemID, qty := range requested {
		available := balances[balance.Key{WarehouseID: doc.FromWarehouseID, ItemID: itemID}]
		if qty > available {
			shortIDs = append(shortIDs, itemID)
		}
	}
	if len(shortIDs) == 0 {
		return nil
	}
	sort.Slice(shortIDs, func(i, j int) bool { return shortIDs[i] < shortIDs[j] })

	items, err := s.lookupItems(ctx, shortIDs)
	if err != nil {
		return err
	}
	insufficient := &InsufficientStockError{}
	for _, itemID := range shortIDs {
		name := items[itemID].Name
		if name == "" {
			name = fmt.Sprintf("item %d", itemID)
		}
		insufficient.Items = append(insufficient.Items, InsufficientItem{
			ItemID:    itemID,
			Name:      name,
			Requested: requested[itemID],
			Available: balances[balance.Key{WarehouseID: doc.FromWarehouseID, ItemID: itemID}],
		})
	}
	return insufficient
}

func (s *Service) getEntry(ctx context.Context, id int64) (EntryDocument, error) {
	doc, err := s.repo.GetEntry(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return EntryDocument{}, err
		}
		return EntryDocument{}, shared.NewPersistenceError("documents.get_entry", err)
	}
	return doc, nil
}

func (s *Service) getTransfer(ctx context.Context, id int64) (TransferDocument, error) {
	doc, err := s.repo.GetTransfer(ctx, id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return TransferDocument{}, err
		}
		return TransferDocument{}, shared.NewPersistenceError("documents.get_transfer", err)
	}
	return doc, nil
}

func (s *Service) lookupItems(ctx context.Context, ids []int64) (map[int64]catalog.Item, error) {
	items, err := s.items.ItemsByID(ctx, ids)
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Service) recordAudit(ctx context.Context, actorID int64, action string, entityID int64, meta map[string]any) {
	if s.audit == nil {
		return
	}
	_ = s.audit.Record(ctx, shared.AuditLog{
		ActorID:  actorID,
		Action:   action,
		Entity:   "document",
		EntityID: fmt.Sprintf("%d", entityID),
		Meta:     meta,
	})
}

func entryItemIDs(lines []EntryLineInput) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}

func transferItemIDs(lines []TransferLineInput) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}

func transferDocItemIDs(lines []TransferLine) []int64 {
	ids := make([]int64, 0, len(lines))
	for _, line := range lines {
		ids = append(ids, line.ItemID)
	}
	return ids
}
