package report_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/report"
)

type stubQuerier struct {
	salesCalls int
}

func (s *stubQuerier) ListSalesWithItems(ctx context.Context) ([]report.Sale, error) {
	s.salesCalls++
	return []report.Sale{
		{ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1", TotalAmount: 100,
			Items: []report.SaleItem{{InventoryItemID: "gin", Quantity: 2, PriceAtSale: 30}}},
	}, nil
}

func (s *stubQuerier) ListInventory(ctx context.Context) ([]report.InventoryItem, error) {
	return inventoryFixture(), nil
}

func (s *stubQuerier) ListExpenses(ctx context.Context) ([]report.Expense, error) {
	return []report.Expense{{ID: "e1", Category: "Rent", Amount: 30, CreatedAt: now.Add(-time.Hour)}}, nil
}

func TestSummaryCached(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})

	queries := &stubQuerier{}
	svc := &report.Service{Q: queries, R: rdb, TTL: time.Minute, LowStockThreshold: 5, Now: func() time.Time { return now }}

	first, err := svc.Summary(context.Background(), report.RangeWeek)
	require.NoError(t, err)
	second, err := svc.Summary(context.Background(), report.RangeWeek)
	require.NoError(t, err)
	require.Equal(t, 1, queries.salesCalls)
	require.Equal(t, first, second)
	require.InDelta(t, 100.0, first.TotalSales, 1e-9)
	require.InDelta(t, 30.0, first.TotalExpenses, 1e-9)
}

func TestSummaryHandler(t *testing.T) {
	svc := &report.Service{Q: &stubQuerier{}, LowStockThreshold: 5, Now: func() time.Time { return now }}
	handler := &report.Handler{Svc: svc}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/reports/summary?range=week", nil)
	rec := httptest.NewRecorder()
	handler.Summary(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	var body struct {
		Data report.Summary `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, report.RangeWeek, body.Data.Range)
	require.Equal(t, 1, body.Data.TransactionCount)

	bad := httptest.NewRequest(http.MethodGet, "/api/v1/reports/summary?range=century", nil)
	badRec := httptest.NewRecorder()
	handler.Summary(badRec, bad)
	require.Equal(t, http.StatusBadRequest, badRec.Code)
}
