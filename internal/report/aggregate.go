package report

import (
	"fmt"
	"sort"
	"time"
)

// TimeRange selects how far back a report reaches from the reference time.
type TimeRange string

const (
	RangeDay   TimeRange = "day"
	RangeWeek  TimeRange = "week"
	RangeMonth TimeRange = "month"
	RangeYear  TimeRange = "year"
	RangeAll   TimeRange = "all"
)

// ParseRange validates a time range selector from user input.
func ParseRange(value string) (TimeRange, error) {
	switch TimeRange(value) {
	case RangeDay, RangeWeek, RangeMonth, RangeYear, RangeAll:
		return TimeRange(value), nil
	case "":
		return RangeWeek, nil
	default:
		return "", fmt.Errorf("report: unknown time range %q", value)
	}
}

// Cutoff returns the earliest instant included by the range, relative to now.
// Records stamped exactly at the cutoff are included. RangeAll reports a zero
// time, which admits everything.
func (r TimeRange) Cutoff(now time.Time) time.Time {
	switch r {
	case RangeDay:
		y, m, d := now.Date()
		return time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	case RangeWeek:
		return now.AddDate(0, 0, -7)
	case RangeMonth:
		return now.AddDate(0, -1, 0)
	case RangeYear:
		return now.AddDate(-1, 0, 0)
	default:
		return time.Time{}
	}
}

// SaleItem is one finalized line of a persisted sale.
type SaleItem struct {
	InventoryItemID string  `json:"inventory_item_id"`
	Quantity        int     `json:"quantity"`
	PriceAtSale     float64 `json:"price_at_sale"`
	OriginalPrice   float64 `json:"original_price"`
	DiscountApplied float64 `json:"discount_applied"`
}

// Sale is a persisted, completed transaction.
type Sale struct {
	ID          string     `json:"id"`
	CreatedAt   time.Time  `json:"created_at"`
	CashierID   string     `json:"cashier_id"`
	Items       []SaleItem `json:"items"`
	TotalAmount float64    `json:"total_amount"`
}

// InventoryItem is the point-in-time stock record used to resolve sale lines.
type InventoryItem struct {
	ID       string  `json:"id"`
	Name     string  `json:"name"`
	Category string  `json:"category"`
	Price    float64 `json:"price"`
	Cost     float64 `json:"cost"`
	Stock    int     `json:"stock"`
}

// Expense is a recorded operating cost.
type Expense struct {
	ID        string    `json:"id"`
	Category  string    `json:"category"`
	Amount    float64   `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}

// CategoryAmount is a revenue or expense total for one category label.
type CategoryAmount struct {
	Category string  `json:"category"`
	Amount   float64 `json:"amount"`
}

// TimePoint is one calendar-day bucket of the report time series.
type TimePoint struct {
	Date      string  `json:"date"`
	Sales     float64 `json:"sales"`
	Profit    float64 `json:"profit"`
	Expenses  float64 `json:"expenses"`
	NetProfit float64 `json:"net_profit"`
}

// TopItem is one entry of the top-seller ranking.
type TopItem struct {
	Name     string  `json:"name"`
	Quantity int     `json:"quantity"`
	Revenue  float64 `json:"revenue"`
}

// CashierStat summarises one cashier's throughput.
type CashierStat struct {
	CashierID    string  `json:"cashier_id"`
	Sales        float64 `json:"sales"`
	Transactions int     `json:"transactions"`
}

// Summary is the derived dashboard view model. It is recomputed from the full
// record set on every aggregation; nothing here is cached or persisted.
type Summary struct {
	Range            TimeRange        `json:"range"`
	TotalSales       float64          `json:"total_sales"`
	TotalProfit      float64          `json:"total_profit"`
	TotalExpenses    float64          `json:"total_expenses"`
	NetProfit        float64          `json:"net_profit"`
	ProfitMarginPct  float64          `json:"profit_margin_pct"`
	TransactionCount int              `json:"transaction_count"`
	LowStockCount    int              `json:"low_stock_count"`
	CategorySales    []CategoryAmount `json:"category_breakdown"`
	ExpenseBreakdown []CategoryAmount `json:"expense_breakdown"`
	TimeSeries       []TimePoint      `json:"time_series"`
	TopItems         []TopItem        `json:"top_items"`
	Cashiers         []CashierStat    `json:"cashier_performance"`
}

const topItemLimit = 10

// Aggregate computes a report summary over the provided collections.
//
// The reference time is an explicit parameter so identical inputs always
// produce identical output. Sales and expenses dated before the range cutoff
// are excluded (the cutoff itself is inclusive); the low-stock count is taken
// over the whole inventory since stock is a point-in-time quantity. Sale items
// whose inventory reference cannot be resolved contribute zero profit and fall
// into the "Uncategorized" revenue bucket.
func Aggregate(sales []Sale, inventory []InventoryItem, expenses []Expense, rng TimeRange, now time.Time, lowStockThreshold int) Summary {
	cutoff := rng.Cutoff(now)
	inRange := func(t time.Time) bool {
		return rng == RangeAll || !t.Before(cutoff)
	}

	byID := make(map[string]InventoryItem, len(inventory))
	for _, item := range inventory {
		byID[item.ID] = item
	}

	summary := Summary{Range: rng}
	for _, item := range inventory {
		if item.Stock <= lowStockThreshold {
			summary.LowStockCount++
		}
	}

	categorySales := map[string]float64{}
	itemStats := map[string]*TopItem{}
	cashiers := map[string]*CashierStat{}
	series := map[string]*TimePoint{}

	bucket := func(t time.Time) *TimePoint {
		day := t.Format("2006-01-02")
		point, ok := series[day]
		if !ok {
			point = &TimePoint{Date: day}
			series[day] = point
		}
		return point
	}

	for _, sale := range sales {
		if !inRange(sale.CreatedAt) {
			continue
		}
		summary.TotalSales += sale.TotalAmount
		summary.TransactionCount++

		point := bucket(sale.CreatedAt)
		point.Sales += sale.TotalAmount

		stat, ok := cashiers[sale.CashierID]
		if !ok {
			stat = &CashierStat{CashierID: sale.CashierID}
			cashiers[sale.CashierID] = stat
		}
		stat.Sales += sale.TotalAmount
		stat.Transactions++

		for _, line := range sale.Items {
			revenue := line.PriceAtSale * float64(line.Quantity)
			inv, resolved := byID[line.InventoryItemID]

			if resolved {
				profit := (line.PriceAtSale - inv.Cost) * float64(line.Quantity)
				summary.TotalProfit += profit
				point.Profit += profit
			}

			category := "Uncategorized"
			if resolved && inv.Category != "" {
				category = inv.Category
			}
			categorySales[category] += revenue

			name := fmt.Sprintf("Item %s", line.InventoryItemID)
			if resolved {
				name = inv.Name
			}
			top, ok := itemStats[name]
			if !ok {
				top = &TopItem{Name: name}
				itemStats[name] = top
			}
			top.Quantity += line.Quantity
			top.Revenue += revenue
		}
	}

	expenseCategories := map[string]float64{}
	for _, expense := range expenses {
		if !inRange(expense.CreatedAt) {
			continue
		}
		summary.TotalExpenses += expense.Amount
		bucket(expense.CreatedAt).Expenses += expense.Amount

		category := expense.Category
		if category == "" {
			category = "Other"
		}
		expenseCategories[category] += expense.Amount
	}

	summary.NetProfit = summary.TotalProfit - summary.TotalExpenses
	if summary.TotalSales > 0 {
		summary.ProfitMarginPct = summary.TotalProfit / summary.TotalSales * 100
	}

	summary.CategorySales = sortedCategories(categorySales)
	summary.ExpenseBreakdown = sortedCategories(expenseCategories)

	summary.TimeSeries = make([]TimePoint, 0, len(series))
	for _, point := range series {
		point.NetProfit = point.Profit - point.Expenses
		summary.TimeSeries = append(summary.TimeSeries, *point)
	}
	sort.Slice(summary.TimeSeries, func(i, j int) bool {
		return summary.TimeSeries[i].Date < summary.TimeSeries[j].Date
	})

	summary.TopItems = make([]TopItem, 0, len(itemStats))
	for _, item := range itemStats {
		summary.TopItems = append(summary.TopItems, *item)
	}
	sort.Slice(summary.TopItems, func(i, j int) bool {
		if summary.TopItems[i].Revenue != summary.TopItems[j].Revenue {
			return summary.TopItems[i].Revenue > summary.TopItems[j].Revenue
		}
		return summary.TopItems[i].Name < summary.TopItems[j].Name
	})
	if len(summary.TopItems) > topItemLimit {
		summary.TopItems = summary.TopItems[:topItemLimit]
	}

	summary.Cashiers = make([]CashierStat, 0, len(cashiers))
	for _, stat := range cashiers {
		summary.Cashiers = append(summary.Cashiers, *stat)
	}
	sort.Slice(summary.Cashiers, func(i, j int) bool {
		if summary.Cashiers[i].Sales != summary.Cashiers[j].Sales {
			return summary.Cashiers[i].Sales > summary.Cashiers[j].Sales
		}
		return summary.Cashiers[i].CashierID < summary.Cashiers[j].CashierID
	})

	return summary
}

func sortedCategories(totals map[string]float64) []CategoryAmount {
	out := make([]CategoryAmount, 0, len(totals))
	for category, amount := range totals {
		out = append(out, CategoryAmount{Category: category, Amount: amount})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Amount != out[j].Amount {
			return out[i].Amount > out[j].Amount
		}
		return out[i].Category < out[j].Category
	})
	return out
}
