package customer

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the pgx-backed Querier.
type Repo struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const customerColumns = `id, name, phone, email, address, created_at, updated_at`

func (r *Repo) ListCustomers(ctx context.Context, search string) ([]Row, error) {
	query := `SELECT ` + customerColumns + ` FROM customers`
	args := []any{}
	if search != "" {
		query += ` WHERE name ILIKE $1 OR phone ILIKE $1 OR email ILIKE $1`
		args = append(args, "%"+search+"%")
	}
	query += ` ORDER BY name`

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanCustomer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) GetCustomer(ctx context.Context, id pgtype.UUID) (Row, error) {
	return scanCustomer(r.pool.QueryRow(ctx,
		`SELECT `+customerColumns+` FROM customers WHERE id = $1`, id))
}

func (r *Repo) CreateCustomer(ctx context.Context, arg Params) (Row, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		INSERT INTO customers (name, phone, email, address)
		VALUES ($1, $2, $3, $4)
		RETURNING `+customerColumns,
		arg.Name, arg.Phone, arg.Email, arg.Address))
}

func (r *Repo) UpdateCustomer(ctx context.Context, id pgtype.UUID, arg Params) (Row, error) {
	return scanCustomer(r.pool.QueryRow(ctx, `
		UPDATE customers
		SET name = $2, phone = $3, email = $4, address = $5, updated_at = now()
		WHERE id = $1
		RETURNING `+customerColumns,
		id, arg.Name, arg.Phone, arg.Email, arg.Address))
}

func (r *Repo) DeleteCustomer(ctx context.Context, id pgtype.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM customers WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repo) CustomerStats(ctx context.Context, id pgtype.UUID) (StatsRow, error) {
	var stats StatsRow
	err := r.pool.QueryRow(ctx, `
		SELECT COALESCE(SUM(total_amount), 0), COUNT(*), MAX(created_at)
		FROM sales
		WHERE customer_id = $1`, id).
		Scan(&stats.TotalPurchases, &stats.VisitCount, &stats.LastVisit)
	return stats, err
}

func scanCustomer(row pgx.Row) (Row, error) {
	var c Row
	err := row.Scan(&c.ID, &c.Name, &c.Phone, &c.Email, &c.Address, &c.CreatedAt, &c.UpdatedAt)
	return c, err
}
