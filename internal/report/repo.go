package report

import (
	"context"

	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karanja-dev/duka-pos/internal/db"
)

// Repo is the pgx-backed Querier. Reports read whole collections and
// aggregate in memory, so the queries stay deliberately simple.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

func (r *Repo) ListSalesWithItems(ctx context.Context) ([]Sale, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, cashier_id, total_amount, created_at
		FROM sales
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var sales []Sale
	index := map[string]int{}
	for rows.Next() {
		var (
			id        pgtype.UUID
			cashierID pgtype.UUID
			total     float64
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &cashierID, &total, &createdAt); err != nil {
			return nil, err
		}
		sale := Sale{
			ID:          db.UUIDString(id),
			CashierID:   db.UUIDString(cashierID),
			TotalAmount: total,
			CreatedAt:   db.TimeOrZero(createdAt),
		}
		index[sale.ID] = len(sales)
		sales = append(sales, sale)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	itemRows, err := r.pool.Query(ctx, `
		SELECT sale_id, item_id, quantity, price_at_sale, original_price, discount_applied
		FROM sale_items`)
	if err != nil {
		return nil, err
	}
	defer itemRows.Close()

	for itemRows.Next() {
		var (
			saleID   pgtype.UUID
			itemID   pgtype.UUID
			quantity int32
			item     SaleItem
		)
		if err := itemRows.Scan(&saleID, &itemID, &quantity,
			&item.PriceAtSale, &item.OriginalPrice, &item.DiscountApplied); err != nil {
			return nil, err
		}
		item.InventoryItemID = db.UUIDString(itemID)
		item.Quantity = int(quantity)
		if i, ok := index[db.UUIDString(saleID)]; ok {
			sales[i].Items = append(sales[i].Items, item)
		}
	}
	return sales, itemRows.Err()
}

func (r *Repo) ListInventory(ctx context.Context) ([]InventoryItem, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT i.id, i.name, COALESCE(c.name, ''), i.price, i.cost, i.stock
		FROM inventory_items i
		LEFT JOIN categories c ON c.id = i.category_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []InventoryItem
	for rows.Next() {
		var (
			id    pgtype.UUID
			item  InventoryItem
			stock int32
		)
		if err := rows.Scan(&id, &item.Name, &item.Category, &item.Price, &item.Cost, &stock); err != nil {
			return nil, err
		}
		item.ID = db.UUIDString(id)
		item.Stock = int(stock)
		items = append(items, item)
	}
	return items, rows.Err()
}

func (r *Repo) ListExpenses(ctx context.Context) ([]Expense, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, category, amount, created_at
		FROM expenses
		ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var expenses []Expense
	for rows.Next() {
		var (
			id        pgtype.UUID
			expense   Expense
			createdAt pgtype.Timestamptz
		)
		if err := rows.Scan(&id, &expense.Category, &expense.Amount, &createdAt); err != nil {
			return nil, err
		}
		expense.ID = db.UUIDString(id)
		expense.CreatedAt = db.TimeOrZero(createdAt)
		expenses = append(expenses, expense)
	}
	return expenses, rows.Err()
}
