package sales

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/karanja-dev/duka-pos/internal/db"
)

// Repo implements Store against Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a Repo.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

// CreateSale writes the sale, its lines, and the stock decrements in one
// transaction. A decrement that would go negative aborts the whole checkout
// with ErrInsufficientStock.
func (r *Repo) CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error) {
	tx, err := r.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return Sale{}, err
	}
	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var (
		saleID    pgtype.UUID
		createdAt pgtype.Timestamptz
	)
	err = tx.QueryRow(ctx,
		`INSERT INTO sales (cashier_id, customer_id, subtotal, total_discount, tax, total_amount, notes)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id, created_at`,
		arg.CashierID, arg.CustomerID, arg.Subtotal, arg.TotalDiscount,
		arg.Tax, arg.TotalAmount, arg.Notes).Scan(&saleID, &createdAt)
	if err != nil {
		return Sale{}, err
	}

	for _, item := range arg.Items {
		if _, err := tx.Exec(ctx,
			`INSERT INTO sale_items (sale_id, item_id, name, category, quantity, original_price, price_at_sale, discount_applied)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			saleID, item.ItemID, item.Name, db.Text(item.Category), item.Quantity,
			item.OriginalPrice, item.PriceAtSale, item.DiscountApplied); err != nil {
			return Sale{}, err
		}
		if !item.ItemID.Valid {
			continue
		}
		tag, err := tx.Exec(ctx,
			`UPDATE inventory_items
			 SET stock = stock - $2, updated_at = now()
			 WHERE id = $1 AND stock >= $2`,
			item.ItemID, item.Quantity)
		if err != nil {
			return Sale{}, err
		}
		if tag.RowsAffected() == 0 {
			return Sale{}, fmt.Errorf("%w: %s", ErrInsufficientStock, item.Name)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return Sale{}, err
	}
	return r.GetSale(ctx, saleID)
}

const saleColumns = "id, cashier_id, customer_id, subtotal, total_discount, tax, total_amount, notes, created_at"

// ListSales returns sales newest first with their lines attached.
func (r *Repo) ListSales(ctx context.Context, filter ListFilter) ([]Sale, error) {
	query := "SELECT " + saleColumns + " FROM sales"
	var (
		conditions []string
		args       []any
	)
	if filter.CashierID.Valid {
		args = append(args, filter.CashierID)
		conditions = append(conditions, fmt.Sprintf("cashier_id = $%d", len(args)))
	}
	if filter.CustomerID.Valid {
		args = append(args, filter.CustomerID)
		conditions = append(conditions, fmt.Sprintf("customer_id = $%d", len(args)))
	}
	if filter.Since.Valid {
		args = append(args, filter.Since)
		conditions = append(conditions, fmt.Sprintf("created_at >= $%d", len(args)))
	}
	for i, condition := range conditions {
		if i == 0 {
			query += " WHERE " + condition
		} else {
			query += " AND " + condition
		}
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var (
		out []Sale
		ids []pgtype.UUID
	)
	for rows.Next() {
		sale, id, err := scanSale(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sale)
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for i, id := range ids {
		items, err := r.listSaleItems(ctx, id)
		if err != nil {
			return nil, err
		}
		out[i].Items = items
	}
	return out, nil
}

// GetSale fetches one sale with its lines.
func (r *Repo) GetSale(ctx context.Context, id pgtype.UUID) (Sale, error) {
	sale, saleID, err := scanSale(r.pool.QueryRow(ctx,
		"SELECT "+saleColumns+" FROM sales WHERE id = $1", id))
	if err != nil {
		return Sale{}, err
	}
	items, err := r.listSaleItems(ctx, saleID)
	if err != nil {
		return Sale{}, err
	}
	sale.Items = items
	return sale, nil
}

func (r *Repo) listSaleItems(ctx context.Context, saleID pgtype.UUID) ([]SaleItem, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, item_id, name, category, quantity, original_price, price_at_sale, discount_applied
		 FROM sale_items WHERE sale_id = $1`, saleID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []SaleItem
	for rows.Next() {
		var (
			item     SaleItem
			id       pgtype.UUID
			itemID   pgtype.UUID
			category pgtype.Text
			quantity int32
		)
		if err := rows.Scan(&id, &itemID, &item.Name, &category, &quantity,
			&item.OriginalPrice, &item.PriceAtSale, &item.DiscountApplied); err != nil {
			return nil, err
		}
		item.ID = db.UUIDString(id)
		item.ItemID = db.UUIDString(itemID)
		item.Category = db.TextOrEmpty(category)
		item.Quantity = int(quantity)
		out = append(out, item)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSale(row rowScanner) (Sale, pgtype.UUID, error) {
	var (
		sale       Sale
		id         pgtype.UUID
		cashierID  pgtype.UUID
		customerID pgtype.UUID
		notes      pgtype.Text
		createdAt  pgtype.Timestamptz
	)
	err := row.Scan(&id, &cashierID, &customerID, &sale.Subtotal, &sale.TotalDiscount,
		&sale.Tax, &sale.TotalAmount, &notes, &createdAt)
	if err != nil {
		return Sale{}, pgtype.UUID{}, err
	}
	sale.ID = db.UUIDString(id)
	sale.CashierID = db.UUIDString(cashierID)
	sale.CustomerID = db.UUIDString(customerID)
	sale.Notes = db.TextOrEmpty(notes)
	sale.CreatedAt = db.TimeOrZero(createdAt)
	return sale, id, nil
}
