package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo implements Querier against Postgres.
type Repo struct {
	pool *pgxpool.Pool
}

// NewRepo constructs a Repo.
func NewRepo(pool *pgxpool.Pool) *Repo {
	return &Repo{pool: pool}
}

const itemColumns = `i.id, i.name, i.category_id, c.name, i.price, i.cost, i.stock, i.created_at, i.updated_at`

const itemBaseQuery = `SELECT ` + itemColumns + `
FROM inventory_items i
LEFT JOIN categories c ON c.id = i.category_id`

func (r *Repo) ListItems(ctx context.Context, filter ItemFilter) ([]ItemRow, error) {
	var (
		conditions []string
		args       []any
	)
	if filter.CategoryID.Valid {
		args = append(args, filter.CategoryID)
		conditions = append(conditions, fmt.Sprintf("i.category_id = $%d", len(args)))
	}
	if filter.LowStock {
		args = append(args, filter.Threshold)
		conditions = append(conditions, fmt.Sprintf("i.stock <= $%d", len(args)))
	}
	if filter.Search != "" {
		args = append(args, "%"+filter.Search+"%")
		conditions = append(conditions, fmt.Sprintf("i.name ILIKE $%d", len(args)))
	}

	query := itemBaseQuery
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY i.name"

	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []ItemRow
	for rows.Next() {
		item, err := scanItemRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, item)
	}
	return out, rows.Err()
}

func (r *Repo) GetItem(ctx context.Context, id pgtype.UUID) (ItemRow, error) {
	return scanItemRow(r.pool.QueryRow(ctx, itemBaseQuery+" WHERE i.id = $1", id))
}

func (r *Repo) CreateItem(ctx context.Context, arg ItemParams) (ItemRow, error) {
	var id pgtype.UUID
	err := r.pool.QueryRow(ctx,
		`INSERT INTO inventory_items (name, category_id, price, cost, stock)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id`,
		arg.Name, arg.CategoryID, arg.Price, arg.Cost, arg.Stock).Scan(&id)
	if err != nil {
		return ItemRow{}, err
	}
	return r.GetItem(ctx, id)
}

func (r *Repo) UpdateItem(ctx context.Context, id pgtype.UUID, arg ItemParams) (ItemRow, error) {
	tag, err := r.pool.Exec(ctx,
		`UPDATE inventory_items
		 SET name = $2, category_id = $3, price = $4, cost = $5, stock = $6, updated_at = now()
		 WHERE id = $1`,
		id, arg.Name, arg.CategoryID, arg.Price, arg.Cost, arg.Stock)
	if err != nil {
		return ItemRow{}, err
	}
	if tag.RowsAffected() == 0 {
		return ItemRow{}, pgx.ErrNoRows
	}
	return r.GetItem(ctx, id)
}

func (r *Repo) DeleteItem(ctx context.Context, id pgtype.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM inventory_items WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

const categoryColumns = "id, name, description, color, created_at, updated_at"

func (r *Repo) ListCategories(ctx context.Context) ([]CategoryRow, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+categoryColumns+" FROM categories ORDER BY name")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CategoryRow
	for rows.Next() {
		category, err := scanCategoryRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, category)
	}
	return out, rows.Err()
}

func (r *Repo) GetCategory(ctx context.Context, id pgtype.UUID) (CategoryRow, error) {
	return scanCategoryRow(r.pool.QueryRow(ctx,
		"SELECT "+categoryColumns+" FROM categories WHERE id = $1", id))
}

func (r *Repo) CreateCategory(ctx context.Context, arg CategoryParams) (CategoryRow, error) {
	return scanCategoryRow(r.pool.QueryRow(ctx,
		`INSERT INTO categories (name, description, color)
		 VALUES ($1, $2, $3)
		 RETURNING `+categoryColumns,
		arg.Name, arg.Description, arg.Color))
}

func (r *Repo) UpdateCategory(ctx context.Context, id pgtype.UUID, arg CategoryParams) (CategoryRow, error) {
	return scanCategoryRow(r.pool.QueryRow(ctx,
		`UPDATE categories
		 SET name = $2, description = $3, color = $4, updated_at = now()
		 WHERE id = $1
		 RETURNING `+categoryColumns,
		id, arg.Name, arg.Description, arg.Color))
}

func (r *Repo) DeleteCategory(ctx context.Context, id pgtype.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM categories WHERE id = $1", id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanItemRow(row rowScanner) (ItemRow, error) {
	var out ItemRow
	err := row.Scan(&out.ID, &out.Name, &out.CategoryID, &out.CategoryName,
		&out.Price, &out.Cost, &out.Stock, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}

func scanCategoryRow(row rowScanner) (CategoryRow, error) {
	var out CategoryRow
	err := row.Scan(&out.ID, &out.Name, &out.Description, &out.Color,
		&out.CreatedAt, &out.UpdatedAt)
	return out, err
}
