package ledger

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMovementValidate(t *testing.T) {
	w1, w2 := int64(1), int64(2)
	date := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

	base := Movement{ItemID: 1, Kind: KindEntry, Quantity: 5, UnitCost: decimal.NewFromInt(3), MovementDate: date}
	require.NoError(t, base.Validate())

	zeroQty := base
	zeroQty.Quantity = 0
	require.ErrorIs(t, zeroQty.Validate(), ErrInvalidQuantity)

	badKind := base
	badKind.Kind = Kind("teleport")
	require.ErrorIs(t, badKind.Validate(), ErrInvalidKind)

	transfer := base
	transfer.Kind = KindTransfer
	require.ErrorIs(t, transfer.Validate(), ErrInvalidTransferRoute, "transfer without route must fail")

	transfer.FromWarehouseID = &w1
	transfer.ToWarehouseID = &w1
	require.ErrorIs(t, transfer.Validate(), ErrInvalidTransferRoute, "same warehouse on both sides must fail")

	transfer.ToWarehouseID = &w2
	require.NoError(t, transfer.Validate())

	routedEntry := base
	routedEntry.FromWarehouseID = &w1
	require.Error(t, routedEntry.Validate(), "non-transfer movements must not carry a route")
}
