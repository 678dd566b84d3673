package report_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/report"
)

var now = time.Date(2025, time.March, 15, 14, 30, 0, 0, time.UTC)

func inventoryFixture() []report.InventoryItem {
	return []report.InventoryItem{
		{ID: "gin", Name: "London Gin", Category: "Spirits", Price: 30, Cost: 18, Stock: 12},
		{ID: "merlot", Name: "Merlot 750ml", Category: "Wine", Price: 15, Cost: 9, Stock: 3},
		{ID: "tonic", Name: "Tonic Water", Category: "Mixers", Price: 2, Cost: 1, Stock: 40},
	}
}

func TestAggregateTotalsAndNetProfit(t *testing.T) {
	sales := []report.Sale{
		{
			ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1", TotalAmount: 100,
			Items: []report.SaleItem{{InventoryItemID: "gin", Quantity: 2, PriceAtSale: 30}},
		},
	}
	expenses := []report.Expense{
		{ID: "e1", Category: "Rent", Amount: 30, CreatedAt: now.Add(-2 * time.Hour)},
	}

	summary := report.Aggregate(sales, inventoryFixture(), expenses, report.RangeWeek, now, 5)
	require.InDelta(t, 100.0, summary.TotalSales, 1e-9)
	require.InDelta(t, 30.0, summary.TotalExpenses, 1e-9)
	// (30-18)*2 = 24 gross profit
	require.InDelta(t, 24.0, summary.TotalProfit, 1e-9)
	require.InDelta(t, summary.TotalProfit-30, summary.NetProfit, 1e-9)
	require.InDelta(t, 24.0, summary.ProfitMarginPct, 1e-9)
	require.Equal(t, 1, summary.TransactionCount)
}

func TestAggregateCategoryBreakdown(t *testing.T) {
	sales := []report.Sale{
		{
			ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1", TotalAmount: 75,
			Items: []report.SaleItem{
				{InventoryItemID: "gin", Quantity: 2, PriceAtSale: 30},    // Spirits, 60
				{InventoryItemID: "merlot", Quantity: 1, PriceAtSale: 15}, // Wine, 15
			},
		},
	}

	summary := report.Aggregate(sales, inventoryFixture(), nil, report.RangeWeek, now, 5)
	require.Len(t, summary.CategorySales, 2)
	var total float64
	for _, entry := range summary.CategorySales {
		total += entry.Amount
	}
	require.InDelta(t, 75.0, total, 1e-9)
	require.Equal(t, "Spirits", summary.CategorySales[0].Category)
	require.InDelta(t, 60.0, summary.CategorySales[0].Amount, 1e-9)
}

func TestAggregateUnresolvedInventorySkipsProfit(t *testing.T) {
	sales := []report.Sale{
		{
			ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1", TotalAmount: 50,
			Items: []report.SaleItem{{InventoryItemID: "ghost", Quantity: 5, PriceAtSale: 10}},
		},
	}

	summary := report.Aggregate(sales, inventoryFixture(), nil, report.RangeWeek, now, 5)
	require.Zero(t, summary.TotalProfit)
	require.InDelta(t, 50.0, summary.TotalSales, 1e-9)
	require.Equal(t, "Uncategorized", summary.CategorySales[0].Category)
	require.Equal(t, "Item ghost", summary.TopItems[0].Name)
}

func TestAggregateCutoffIsInclusive(t *testing.T) {
	atCutoff := report.Sale{
		ID: "boundary", CreatedAt: now.AddDate(0, 0, -7), CashierID: "c1", TotalAmount: 40,
	}
	before := report.Sale{
		ID: "stale", CreatedAt: now.AddDate(0, 0, -7).Add(-time.Second), CashierID: "c1", TotalAmount: 999,
	}

	summary := report.Aggregate([]report.Sale{atCutoff, before}, nil, nil, report.RangeWeek, now, 5)
	require.Equal(t, 1, summary.TransactionCount)
	require.InDelta(t, 40.0, summary.TotalSales, 1e-9)
}

func TestAggregateAllTimeIgnoresCutoff(t *testing.T) {
	ancient := report.Sale{ID: "old", CreatedAt: now.AddDate(-10, 0, 0), CashierID: "c1", TotalAmount: 5}
	summary := report.Aggregate([]report.Sale{ancient}, nil, nil, report.RangeAll, now, 5)
	require.Equal(t, 1, summary.TransactionCount)
}

func TestAggregateTimeSeriesSortedWithNetProfit(t *testing.T) {
	sales := []report.Sale{
		{ID: "s1", CreatedAt: now.AddDate(0, 0, -1), CashierID: "c1", TotalAmount: 60,
			Items: []report.SaleItem{{InventoryItemID: "gin", Quantity: 2, PriceAtSale: 30}}},
		{ID: "s2", CreatedAt: now.AddDate(0, 0, -3), CashierID: "c1", TotalAmount: 15,
			Items: []report.SaleItem{{InventoryItemID: "merlot", Quantity: 1, PriceAtSale: 15}}},
	}
	expenses := []report.Expense{
		{ID: "e1", Category: "Utilities", Amount: 10, CreatedAt: now.AddDate(0, 0, -1)},
	}

	summary := report.Aggregate(sales, inventoryFixture(), expenses, report.RangeWeek, now, 5)
	require.Len(t, summary.TimeSeries, 2)
	require.Less(t, summary.TimeSeries[0].Date, summary.TimeSeries[1].Date)

	latest := summary.TimeSeries[1]
	require.InDelta(t, 60.0, latest.Sales, 1e-9)
	require.InDelta(t, 24.0, latest.Profit, 1e-9)
	require.InDelta(t, 10.0, latest.Expenses, 1e-9)
	require.InDelta(t, 14.0, latest.NetProfit, 1e-9)
}

func TestAggregateTopItemsRankedAndCapped(t *testing.T) {
	sale := report.Sale{ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1"}
	inventory := make([]report.InventoryItem, 0, 12)
	for i := 0; i < 12; i++ {
		id := string(rune('a' + i))
		inventory = append(inventory, report.InventoryItem{ID: id, Name: "Item " + id, Category: "Misc", Cost: 1, Stock: 10})
		sale.Items = append(sale.Items, report.SaleItem{InventoryItemID: id, Quantity: 1, PriceAtSale: float64(i + 1)})
	}

	summary := report.Aggregate([]report.Sale{sale}, inventory, nil, report.RangeWeek, now, 5)
	require.Len(t, summary.TopItems, 10)
	require.InDelta(t, 12.0, summary.TopItems[0].Revenue, 1e-9)
	for i := 1; i < len(summary.TopItems); i++ {
		require.GreaterOrEqual(t, summary.TopItems[i-1].Revenue, summary.TopItems[i].Revenue)
	}
}

func TestAggregateCashierPerformance(t *testing.T) {
	sales := []report.Sale{
		{ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "alice", TotalAmount: 100},
		{ID: "s2", CreatedAt: now.Add(-time.Hour), CashierID: "bob", TotalAmount: 250},
		{ID: "s3", CreatedAt: now.Add(-time.Hour), CashierID: "alice", TotalAmount: 75},
	}

	summary := report.Aggregate(sales, nil, nil, report.RangeWeek, now, 5)
	require.Len(t, summary.Cashiers, 2)
	require.Equal(t, "bob", summary.Cashiers[0].CashierID)
	require.Equal(t, 2, summary.Cashiers[1].Transactions)
	require.InDelta(t, 175.0, summary.Cashiers[1].Sales, 1e-9)
}

func TestAggregateLowStockIgnoresTimeFilter(t *testing.T) {
	summary := report.Aggregate(nil, inventoryFixture(), nil, report.RangeDay, now, 5)
	require.Equal(t, 1, summary.LowStockCount)

	summary = report.Aggregate(nil, inventoryFixture(), nil, report.RangeDay, now, 12)
	require.Equal(t, 2, summary.LowStockCount)
}

func TestAggregateZeroSalesMargin(t *testing.T) {
	summary := report.Aggregate(nil, nil, nil, report.RangeWeek, now, 5)
	require.Zero(t, summary.ProfitMarginPct)
	require.Zero(t, summary.TotalSales)
}

func TestAggregateDeterministic(t *testing.T) {
	sales := []report.Sale{
		{ID: "s1", CreatedAt: now.Add(-time.Hour), CashierID: "c1", TotalAmount: 75,
			Items: []report.SaleItem{
				{InventoryItemID: "gin", Quantity: 2, PriceAtSale: 30},
				{InventoryItemID: "merlot", Quantity: 1, PriceAtSale: 15},
			}},
	}
	expenses := []report.Expense{{ID: "e1", Category: "Rent", Amount: 20, CreatedAt: now.Add(-time.Hour)}}

	first := report.Aggregate(sales, inventoryFixture(), expenses, report.RangeMonth, now, 5)
	second := report.Aggregate(sales, inventoryFixture(), expenses, report.RangeMonth, now, 5)
	require.Equal(t, first, second)
}

func TestParseRange(t *testing.T) {
	rng, err := report.ParseRange("")
	require.NoError(t, err)
	require.Equal(t, report.RangeWeek, rng)

	_, err = report.ParseRange("fortnight")
	require.Error(t, err)
}
