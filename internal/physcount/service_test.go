package physcount

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/balance"
	"github.com/meridian-erp/meridian-erp/internal/ledger"
	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memorySessions struct {
	sessions map[int64]Session
	nextID   int64
}

func newMemorySessions() *memorySessions {
	return &memorySessions{sessions: map[int64]Session{}, nextID: 1}
}

func (m *memorySessions) CreateSession(ctx context.Context, session Session) (Session, error) {
	session.ID = m.nextID
	m.nextID++
	for i := range session.Lines {
		session.Lines[i].SessionID = session.ID
	}
	m.sessions[session.ID] = session
	return session, nil
}

func (m *memorySessions) GetSession(ctx context.Context, id int64) (Session, error) {
	session, ok := m.sessions[id]
	if !ok {
		return Session{}, shared.ErrNotFound
	}
	return session, nil
}

func (m *memorySessions) ListSessions(ctx context.Context, filter ListFilter) ([]Session, int, error) {
	var sessions []Session
	for _, session := range m.sessions {
		sessions = append(sessions, session)
	}
	return sessions, len(sessions), nil
}

type fakeSnapshot struct {
	snap balance.Snapshot
}

func (f *fakeSnapshot) FetchSnapshot(ctx context.Context) (balance.Snapshot, error) {
	return f.snap, nil
}

func newCountFixture() (*Service, *memorySessions, *fakeSnapshot) {
	repo := newMemorySessions()
	snap := &fakeSnapshot{snap: balance.Snapshot{Items: testItems()}}
	return NewService(repo, snap, nil), repo, snap
}

func countDate() time.Time {
	return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
}

func TestSaveRejectsAllZeroRows(t *testing.T) {
	svc, repo, _ := newCountFixture()

	_, err := svc.Save(context.Background(), SessionInput{CountDate: countDate()}, []Row{
		{ItemID: 1, WarehouseID: 1, TheoreticalQty: 0, CountedQty: 0},
	}, 7)

	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.sessions)
}

func TestSaveDropsZeroRowsKeepsRest(t *testing.T) {
	svc, _, _ := newCountFixture()

	rows, err := svc.CandidateRows(context.Background(), nil, balance.Filters{})
	require.NoError(t, err)
	rows = ApplyCounts(rows, map[balance.Key]int64{
		{WarehouseID: 1, ItemID: 1}: 97,
	})
	rows = append(rows, Row{ItemID: 9, WarehouseID: 9})

	session, err := svc.Save(context.Background(), SessionInput{CountDate: countDate(), Description: "Q1 count"}, rows, 7)
	require.NoError(t, err)
	require.Len(t, session.Lines, 3)
	for _, line := range session.Lines {
		require.NotEqual(t, int64(9), line.ItemID)
	}
}

func TestSavedSessionIsImmutable(t *testing.T) {
	svc, _, snap := newCountFixture()
	ctx := context.Background()

	rows, err := svc.CandidateRows(ctx, nil, balance.Filters{WarehouseID: ptrInt64(1)})
	require.NoError(t, err)
	session, err := svc.Save(ctx, SessionInput{WarehouseID: ptrInt64(1), CountDate: countDate()}, rows, 7)
	require.NoError(t, err)

	// A later transfer changes live balances but not the saved lines.
	snap.snap.Movements = append(snap.snap.Movements, ledger.Movement{
		ItemID:          1,
		Kind:            ledger.KindTransfer,
		Quantity:        60,
		MovementDate:    time.Date(2026, 3, 20, 0, 0, 0, 0, time.UTC),
		FromWarehouseID: ptrInt64(1),
		ToWarehouseID:   ptrInt64(2),
	})

	detail, err := svc.SessionDetail(ctx, session.ID)
	require.NoError(t, err)
	for _, line := range detail.Lines {
		if line.ItemID == 1 {
			require.Equal(t, int64(100), line.TheoreticalQty)
		}
	}

	fresh, err := svc.CandidateRows(ctx, nil, balance.Filters{WarehouseID: ptrInt64(1)})
	require.NoError(t, err)
	for _, row := range fresh {
		if row.ItemID == 1 {
			require.Equal(t, int64(40), row.TheoreticalQty)
		}
	}
}

func TestSessionDetailNotFound(t *testing.T) {
	svc, _, _ := newCountFixture()

	_, err := svc.SessionDetail(context.Background(), 99)
	require.ErrorIs(t, err, shared.ErrNotFound)
}
