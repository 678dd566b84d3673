package user

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

const userColumns = `id, username, name, role, password_hash, created_at, updated_at`

func (r *Repo) ListUsers(ctx context.Context) ([]Row, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT `+userColumns+` FROM users ORDER BY username`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Row
	for rows.Next() {
		row, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, row)
	}
	return out, rows.Err()
}

func (r *Repo) GetUser(ctx context.Context, id pgtype.UUID) (Row, error) {
	return scanUser(r.pool.QueryRow(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1`, id))
}

func (r *Repo) CreateUser(ctx context.Context, arg CreateParams) (Row, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		INSERT INTO users (username, name, role, password_hash)
		VALUES ($1, $2, $3, $4)
		RETURNING `+userColumns,
		arg.Username, arg.Name, arg.Role, arg.PasswordHash))
}

func (r *Repo) UpdateUser(ctx context.Context, id pgtype.UUID, arg UpdateParams) (Row, error) {
	return scanUser(r.pool.QueryRow(ctx, `
		UPDATE users
		SET name = $2,
		    role = $3,
		    password_hash = CASE WHEN $4 = '' THEN password_hash ELSE $4 END,
		    updated_at = now()
		WHERE id = $1
		RETURNING `+userColumns,
		id, arg.Name, arg.Role, arg.PasswordHash))
}

func (r *Repo) DeleteUser(ctx context.Context, id pgtype.UUID) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func scanUser(row pgx.Row) (Row, error) {
	var u Row
	err := row.Scan(&u.ID, &u.Username, &u.Name, &u.Role, &u.PasswordHash, &u.CreatedAt, &u.UpdatedAt)
	return u, err
}
