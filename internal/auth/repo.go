package auth

import (
	"context"

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

const userColumns = "id, username, name, role, password_hash, created_at, updated_at"

func (r *Repo) GetUserByUsername(ctx context.Context, username string) (UserRow, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE username = $1", username)
	return scanUserRow(row)
}

func (r *Repo) GetUserByID(ctx context.Context, id pgtype.UUID) (UserRow, error) {
	row := r.pool.QueryRow(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = $1", id)
	return scanUserRow(row)
}

func (r *Repo) CreateSession(ctx context.Context, arg CreateSessionParams) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sessions (user_id, refresh_token, user_agent, ip, expires_at)
		 VALUES ($1, $2, $3, $4, $5)`,
		arg.UserID, arg.RefreshToken, arg.UserAgent, arg.IP, arg.ExpiresAt)
	return err
}

func (r *Repo) GetSessionByToken(ctx context.Context, refreshToken string) (SessionRow, error) {
	var out SessionRow
	err := r.pool.QueryRow(ctx,
		"SELECT id, user_id, expires_at FROM sessions WHERE refresh_token = $1", refreshToken).
		Scan(&out.ID, &out.UserID, &out.ExpiresAt)
	return out, err
}

func (r *Repo) RotateSessionToken(ctx context.Context, arg RotateSessionParams) error {
	_, err := r.pool.Exec(ctx,
		"UPDATE sessions SET refresh_token = $2, expires_at = $3 WHERE id = $1",
		arg.ID, arg.RefreshToken, arg.ExpiresAt)
	return err
}

func (r *Repo) DeleteSessionByToken(ctx context.Context, refreshToken string) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE refresh_token = $1", refreshToken)
	return err
}

func (r *Repo) DeleteSessionsByUser(ctx context.Context, userID pgtype.UUID) error {
	_, err := r.pool.Exec(ctx, "DELETE FROM sessions WHERE user_id = $1", userID)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUserRow(row rowScanner) (UserRow, error) {
	var out UserRow
	err := row.Scan(&out.ID, &out.Username, &out.Name, &out.Role,
		&out.PasswordHash, &out.CreatedAt, &out.UpdatedAt)
	return out, err
}
