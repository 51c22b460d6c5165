package physcount

import (
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/require"

	"github.com/meridian-erp/meridian-erp/internal/ledger"
)

func newTestRouter(svc *Service) http.Handler {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	router := chi.NewRouter()
	NewHandler(logger, svc).MountRoutes(router)
	return router
}

func TestSaveFreezesAgainstAsOfCutoff(t *testing.T) {
	svc, repo, snap := newCountFixture()

	// Transfer after the as-of date: 60 of item 1 leave warehouse 1.
	snap.snap.Movements = append(snap.snap.Movements, ledger.Movement{
		ItemID:          1,
		Kind:            ledger.KindTransfer,
		Quantity:        60,
		MovementDate:    time.Date(2026, 3, 12, 9, 0, 0, 0, time.UTC),
		FromWarehouseID: ptrInt64(1),
		ToWarehouseID:   ptrInt64(2),
	})

	body := `{
		"warehouse_id": 1,
		"count_date": "2026-03-15",
		"as_of": "2026-03-10",
		"rows": [{"item_id": 1, "warehouse_id": 1, "counted_qty": 95}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/count-sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	require.Len(t, repo.sessions, 1)
	session := repo.sessions[1]

	var line Line
	for _, l := range session.Lines {
		if l.ItemID == 1 && l.WarehouseID == 1 {
			line = l
		}
	}
	// The later transfer is outside the cutoff, so the frozen theoretical
	// quantity matches what the candidates endpoint showed for the same as_of.
	require.Equal(t, int64(100), line.TheoreticalQty)
	require.Equal(t, int64(95), line.CountedQty)
	require.Equal(t, int64(-5), line.DifferenceQty)
}

func TestSaveRejectsMalformedAsOf(t *testing.T) {
	svc, repo, _ := newCountFixture()

	body := `{
		"count_date": "2026-03-15",
		"as_of": "03/10/2026",
		"rows": [{"item_id": 1, "warehouse_id": 1, "counted_qty": 95}]
	}`
	req := httptest.NewRequest(http.MethodPost, "/count-sessions", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	newTestRouter(svc).ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	require.Empty(t, repo.sessions)
}
