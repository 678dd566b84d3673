package expense

import (
	"context"

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

const columns = "id, name, category, amount, description, created_by, created_at, updated_at"

func (r *Repo) ListExpenses(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx,
		"SELECT "+columns+" FROM expenses ORDER BY created_at DESC")
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanRow(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) GetExpense(ctx context.Context, id pgtype.UUID) (Row, error) {
	return scanRow(r.pool.QueryRow(ctx,
		"SELECT "+columns+" FROM expenses WHERE id = $1", id))
}

func (r *Repo) CreateExpense(ctx context.Context, arg Params) (Row, error) {
	return scanRow(r.pool.QueryRow(ctx,
		`INSERT INTO expenses (name, category, amount, description, created_by)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING `+columns,
		arg.Name, arg.Category, arg.Amount, arg.Description, arg.CreatedBy))
}

func (r *Repo) UpdateExpense(ctx context.Context, id pgtype.UUID, arg Params) (Row, error) {
	return scanRow(r.pool.QueryRow(ctx,
		`UPDATE expenses
		 SET name = $2, category = $3, amount = $4, description = $5, updated_at = now()
		 WHERE id = $1
		 RETURNING `+columns,
		id, arg.Name, arg.Category, arg.Amount, arg.Description))
}

func (r *Repo) DeleteExpense(ctx context.Context, id pgtype.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM expenses WHERE id = $1", id)
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

func scanRow(row rowScanner) (Row, error) {
	var out Row
	err := row.Scan(&out.ID, &out.Name, &out.Category, &out.Amount,
		&out.Description, &out.CreatedBy, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}
