package documents

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/catalog"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	entries   map[int64]EntryDocument
	transfers map[int64]TransferDocument
	nextID    int64
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{entries: map[int64]EntryDocument{}, transfers: map[int64]TransferDocument{}, nextID: 1}
}

func (m *memoryRepo) CreateEntry(ctx context.Context, doc EntryDocument) (EntryDocument, error) {
	doc.ID = m.nextID
	m.nextID++
	for i := range doc.Lines {
		doc.Lines[i].DocumentID = doc.ID
	}
	m.entries[doc.ID] = doc
	return doc, nil
}

func (m *memoryRepo) GetEntry(ctx context.Context, id int64) (EntryDocument, error) {
	doc, ok := m.entries[id]
	if !ok {
		return EntryDocument{}, shared.ErrNotFound
	}
	return doc, nil
}

func (m *memoryRepo) ListEntries(ctx context.Context, filter Filter) ([]EntryDocument, int, error) {
	var docs []EntryDocument
	for _, doc := range m.entries {
		docs = append(docs, doc)
	}
	return docs, len(docs), nil
}

func (m *memoryRepo) MarkEntryPosted(ctx context.Context, id int64, postedAt time.Time) error {
	doc, ok := m.entries[id]
	if !ok || doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}
	doc.Status = StatusPosted
	doc.PostedAt = &postedAt
	m.entries[id] = doc
	return nil
}

func (m *memoryRepo) MarkEntryCancelled(ctx context.Context, id int64) error {
	doc, ok := m.entries[id]
	if !ok || doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}
	doc.Status = StatusCancelled
	m.entries[id] = doc
	return nil
}

func (m *memoryRepo) CreateTransfer(ctx context.Context, doc TransferDocument) (TransferDocument, error) {
	doc.ID = m.nextID
	m.nextID++
	for i := range doc.Lines {
		doc.Lines[i].DocumentID = doc.ID
	}
	m.transfers[doc.ID] = doc
	return doc, nil
}

func (m *memoryRepo) GetTransfer(ctx context.Context, id int64) (TransferDocument, error) {
	doc, ok := m.transfers[id]
	if !ok {
		return TransferDocument{}, shared.ErrNotFound
	}
	return doc, nil
}

func (m *memoryRepo) ListTransfers(ctx context.Context, filter Filter) ([]TransferDocument, int, error) {
	var docs []TransferDocument
	for _, doc := range m.transfers {
		docs = append(docs, doc)
	}
	return docs, len(docs), nil
}

func (m *memoryRepo) MarkTransferPosted(ctx context.Context, id int64, postedAt time.Time) error {
	doc, ok := m.transfers[id]
	if !ok || doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}
	doc.Status = StatusPosted
	doc.PostedAt = &postedAt
	m.transfers[id] = doc
	return nil
}

func (m *memoryRepo) MarkTransferCancelled(ctx context.Context, id int64) error {
	doc, ok := m.transfers[id]
	if !ok || doc.Status != StatusDraft {
		return ErrAlreadyPosted
	}
	doc.Status = StatusCancelled
	m.transfers[id] = doc
	return nil
}

type fakeItems struct {
	items map[int64]catalog.Item
}

func (f *fakeItems) ItemsByID(ctx context.Context, ids []int64) (map[int64]catalog.Item, error) {
	out := make(map[int64]catalog.Item)
	for _, id := range ids {
		if item, ok := f.items[id]; ok {
			out[id] = item
		}
	}
	return out, nil
}

type fakeLedger struct {
	movements []ledger.Movement
	failNext  bool
}

func (f *fakeLedger) Append(ctx context.Context, movements []ledger.Movement, actorID int64) ([]ledger.Movement, error) {
	if f.failNext {
		f.failNext = false
		return nil, shared.NewPersistenceError("ledger.append", errors.New("store down"))
	}
	f.movements = append(f.movements, movements...)
	return movements, nil
}

// fakeBalances recomputes from live inputs, so posted movements are
// visible to the next availability check.
type fakeBalances struct {
	items       *fakeItems
	ledger      *fakeLedger
	invalidated int
}

func (f *fakeBalances) Balances(ctx context.Context, cutoff *time.Time) (map[balance.Key]int64, error) {
	items := make([]catalog.Item, 0, len(f.items.items))
	for _, item := range f.items.items {
		items = append(items, item)
	}
	return balance.ComputeBalances(items, f.ledger.movements, cutoff), nil
}

func (f *fakeBalances) Invalidate(ctx context.Context) error {
	f.invalidated++
	return nil
}

type failingJournal struct{ err error }

func (j *failingJournal) PostEntryJournal(ctx context.Context, event EntryPostedEvent) error {
	return j.err
}

func warehouse1() *int64 {
	id := int64(1)
	return &id
}

func newFixture() (*Service, *memoryRepo, *fakeLedger, *fakeBalances) {
	items := &fakeItems{items: map[int64]catalog.Item{
		1: {ID: 1, SKU: "SKU-A", Name: "Item A", WarehouseID: warehouse1(), CurrentStock: 50, CostPrice: decimal.NewFromInt(10)},
		2: {ID: 2, SKU: "SKU-B", Name: "Item B", WarehouseID: warehouse1(), CurrentStock: 5, CostPrice: decimal.NewFromInt(3)},
	}}
	repo := newMemoryRepo()
	ledgerPort := &fakeLedger{}
	balances := &fakeBalances{items: items, ledger: ledgerPort}
	svc := NewService(repo, items, ledgerPort, balances, nil, nil, nil)
	return svc, repo, ledgerPort, balances
}

func transferInput(itemID, qty int64) TransferInput {
	return TransferInput{
		FromWarehouseID: 1,
		ToWarehouseID:   2,
		TransferDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:           []TransferLineInput{{ItemID: itemID, Quantity: qty}},
	}
}

func TestCreateEntryRejectsEmptyLines(t *testing.T) {
	svc, repo, _, _ := newFixture()

	_, err := svc.CreateEntry(context.Background(), EntryInput{
		WarehouseID:  1,
		SourceType:   SourceManual,
		DocumentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []EntryLineInput{
			{ItemID: 0, Quantity: 5},
			{ItemID: 1, Quantity: 0},
		},
	}, 7)

	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.entries)
}

func TestCreateEntryDefaultsUnitCost(t *testing.T) {
	svc, _, _, _ := newFixture()

	override := decimal.NewFromInt(12)
	doc, err := svc.CreateEntry(context.Background(), EntryInput{
		WarehouseID:  1,
		SourceType:   SourceInvoice,
		DocumentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines: []EntryLineInput{
			{ItemID: 1, Quantity: 5},
			{ItemID: 2, Quantity: 2, UnitCost: &override},
		},
	}, 7)

	require.NoError(t, err)
	require.Equal(t, StatusDraft, doc.Status)
	require.Len(t, doc.Lines, 2)
	require.True(t, doc.Lines[0].UnitCost.Equal(decimal.NewFromInt(10)))
	require.True(t, doc.Lines[1].UnitCost.Equal(override))
}

func TestPostEntryJournalFailureKeepsDraft(t *testing.T) {
	svc, repo, _, balances := newFixture()
	svc.journal = &failingJournal{err: errors.New("ledger service down")}

	doc, err := svc.CreateEntry(context.Background(), EntryInput{
		WarehouseID:  1,
		SourceType:   SourceManual,
		DocumentDate: time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		Lines:        []EntryLineInput{{ItemID: 1, Quantity: 5}},
	}, 7)
	require.NoError(t, err)

	err = svc.PostEntry(context.Background(), doc.ID, 7)
	require.Error(t, err)
	require.Equal(t, StatusDraft, repo.entries[doc.ID].Status)
	require.Zero(t, balances.invalidated)
}

func TestPostTransferRejectsInsufficientStock(t *testing.T) {
	svc, repo, ledgerPort, _ := newFixture()
	ctx := context.Background()

	// Item B has 5 available at warehouse 1.
	doc, err := svc.CreateTransfer(ctx, transferInput(2, 6), 7)
	require.NoError(t, err)

	err = svc.PostTransfer(ctx, doc.ID, 7)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Len(t, insufficient.Items, 1)
	require.Equal(t, "Item B", insufficient.Items[0].Name)
	require.Equal(t, int64(6), insufficient.Items[0].Requested)
	require.Equal(t, int64(5), insufficient.Items[0].Available)

	require.Empty(t, ledgerPort.movements)
	require.Equal(t, StatusDraft, repo.transfers[doc.ID].Status)
}

func TestPostTransferAggregatesRequestByItem(t *testing.T) {
	svc, _, _, _ := newFixture()
	ctx := context.Background()

	// Two lines of 3 exceed the 5 available for item B together.
	input := transferInput(2, 3)
	input.Lines = append(input.Lines, TransferLineInput{ItemID: 2, Quantity: 3})
	doc, err := svc.CreateTransfer(ctx, input, 7)
	require.NoError(t, err)

	err = svc.PostTransfer(ctx, doc.ID, 7)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(6), insufficient.Items[0].Requested)
}

func TestTransferScenario(t *testing.T) {
	svc, repo, ledgerPort, balances := newFixture()
	ctx := context.Background()

	// Item A starts with 50 at warehouse 1.
	first, err := svc.CreateTransfer(ctx, transferInput(1, 20), 7)
	require.NoError(t, err)
	require.NoError(t, svc.PostTransfer(ctx, first.ID, 7))
	require.Equal(t, StatusPosted, repo.transfers[first.ID].Status)
	require.Len(t, ledgerPort.movements, 1)
	require.Equal(t, ledger.KindTransfer, ledgerPort.movements[0].Kind)
	require.Equal(t, 1, balances.invalidated)

	current, err := balances.Balances(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(30), current[balance.Key{WarehouseID: 1, ItemID: 1}])
	require.Equal(t, int64(20), current[balance.Key{WarehouseID: 2, ItemID: 1}])

	second, err := svc.CreateTransfer(ctx, transferInput(1, 40), 7)
	require.NoError(t, err)
	err = svc.PostTransfer(ctx, second.ID, 7)
	var insufficient *InsufficientStockError
	require.ErrorAs(t, err, &insufficient)
	require.Equal(t, int64(40), insufficient.Items[0].Requested)
	require.Equal(t, int64(30), insufficient.Items[0].Available)

	current, err = balances.Balances(ctx, nil)
	require.NoError(t, err)
	require.Equal(t, int64(30), current[balance.Key{WarehouseID: 1, ItemID: 1}])
	require.Equal(t, int64(20), current[balance.Key{WarehouseID: 2, ItemID: 1}])
	require.Len(t, ledgerPort.movements, 1)
}

func TestPostTransferTwiceConflicts(t *testing.T) {
	svc, _, _, _ := newFixture()
	ctx := context.Background()

	doc, err := svc.CreateTransfer(ctx, transferInput(1, 10), 7)
	require.NoError(t, err)
	require.NoError(t, svc.PostTransfer(ctx, doc.ID, 7))

	err = svc.PostTransfer(ctx, doc.ID, 7)
	require.ErrorIs(t, err, ErrAlreadyPosted)
}

func TestCreateTransferSameWarehouse(t *testing.T) {
	svc, _, _, _ := newFixture()

	input := transferInput(1, 5)
	input.ToWarehouseID = input.FromWarehouseID
	_, err := svc.CreateTransfer(context.Background(), input, 7)
	require.True(t, shared.IsValidation(err))
}

// staleBalances serves the same snapshot on every read, the way two
// concurrent posters would each see the projection before either commits.
type staleBalances struct {
	snapshot    map[balance.Key]int64
	invalidated int
}

func (f *staleBalances) Balances(ctx context.Context, cutoff *time.Time) (map[balance.Key]int64, error) {
	return f.snapshot, nil
}

func (f *staleBalances) Invalidate(ctx context.Context) error {
	f.invalidated++
	return nil
}

func TestPostTransferAvailabilityCheckIsAdvisory(t *testing.T) {
	items := &fakeItems{items: map[int64]catalog.Item{
		1: {ID: 1, SKU: "SKU-A", Name: "Item A", WarehouseID: warehouse1(), CurrentStock: 50, CostPrice: decimal.NewFromInt(10)},
	}}
	repo := newMemoryRepo()
	ledgerPort := &fakeLedger{}
	balances := &staleBalances{snapshot: map[balance.Key]int64{{WarehouseID: 1, ItemID: 1}: 50}}
	svc := NewService(repo, items, ledgerPort, balances, nil, nil, nil)
	ctx := context.Background()

	first, err := svc.CreateTransfer(ctx, transferInput(1, 40), 7)
	require.NoError(t, err)
	second, err := svc.CreateTransfer(ctx, transferInput(1, 40), 7)
	require.NoError(t, err)

	// Both posters read the same snapshot, so both pass the check and
	// jointly over-commit the source warehouse.
	require.NoError(t, svc.PostTransfer(ctx, first.ID, 7))
	require.NoError(t, svc.PostTransfer(ctx, second.ID, 7))

	require.Equal(t, StatusPosted, repo.transfers[first.ID].Status)
	require.Equal(t, StatusPosted, repo.transfers[second.ID].Status)
	require.Len(t, ledgerPort.movements, 2)
	require.Equal(t, 2, balances.invalidated)
}
