package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/shared"
)

type memoryRepo struct {
	movements []Movement
	nextID    int64
}

func (m *memoryRepo) Append(ctx context.Context, movements []Movement) ([]Movement, error) {
	out := make([]Movement, len(movements))
	for i, mv := range movements {
		m.nextID++
		mv.ID = m.nextID
		m.movements = append(m.movements, mv)
		out[i] = mv
	}
	return out, nil
}

func (m *memoryRepo) List(ctx context.Context, filter Filter) ([]Movement, int, error) {
	return m.movements, len(m.movements), nil
}

func (m *memoryRepo) AllMovements(ctx context.Context) ([]Movement, error) {
	return m.movements, nil
}

func validTransfer() Movement {
	from, to := int64(1), int64(2)
	return Movement{
		ItemID:          1,
		Kind:            KindTransfer,
		Quantity:        5,
		MovementDate:    time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC),
		FromWarehouseID: &from,
		ToWarehouseID:   &to,
	}
}

func TestAppendRejectsEmptyBatch(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	_, err := svc.Append(context.Background(), nil, 7)
	require.True(t, shared.IsValidation(err))
}

func TestAppendRejectsInvalidMovementAtomically(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	bad := validTransfer()
	bad.Quantity = 0
	_, err := svc.Append(context.Background(), []Movement{validTransfer(), bad}, 7)

	require.True(t, shared.IsValidation(err))
	require.Empty(t, repo.movements)
}

func TestAppendStampsActor(t *testing.T) {
	repo := &memoryRepo{}
	svc := NewService(repo, nil)

	appended, err := svc.Append(context.Background(), []Movement{validTransfer()}, 42)
	require.NoError(t, err)
	require.Len(t, appended, 1)
	require.Equal(t, int64(42), appended[0].CreatedBy)
	require.NotZero(t, appended[0].ID)
}

func TestListRejectsUnknownKind(t *testing.T) {
	svc := NewService(&memoryRepo{}, nil)

	_, _, err := svc.List(context.Background(), Filter{Kind: Kind("bogus")})
	require.True(t, shared.IsValidation(err))
}
