package user

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/alexedwards/argon2id"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karanja-dev/duka-pos/internal/auth"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/db"
)

// Row mirrors a row of the users table.
type Row struct {
	ID           pgtype.UUID
	Username     string
	Name         string
	Role         string
	PasswordHash string
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// CreateParams carries the fields of a new staff account.
type CreateParams struct {
	Username     string
	Name         string
	Role         string
	PasswordHash string
}

// UpdateParams carries the mutable fields of an account. PasswordHash is
// applied only when non-empty.
type UpdateParams struct {
	Name         string
	Role         string
	PasswordHash string
}

// Querier is the persistence surface of the user admin service.
type Querier interface {
	ListUsers(ctx context.Context) ([]Row, error)
	GetUser(ctx context.Context, id pgtype.UUID) (Row, error)
	CreateUser(ctx context.Context, arg CreateParams) (Row, error)
	UpdateUser(ctx context.Context, id pgtype.UUID, arg UpdateParams) (Row, error)
	DeleteUser(ctx context.Context, id pgtype.UUID) error
}

// SessionRevoker drops every session of a user, forcing re-login.
type SessionRevoker interface {
	DeleteSessionsByUser(ctx context.Context, userID pgtype.UUID) error
}

// User is the public staff account payload. Password material never leaves
// the service.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Name      string    `json:"name"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service manages staff accounts. All of its operations are admin-only;
// the route layer enforces that.
type Service struct {
	queries  Querier
	sessions SessionRevoker
	hash     func(password string) (string, error)
}

// NewService constructs a Service. sessions may be nil, in which case role
// and password changes do not revoke existing sessions.
func NewService(queries Querier, sessions SessionRevoker) (*Service, error) {
	if queries == nil {
		return nil, errors.New("user: queries is required")
	}
	return &Service{
		queries:  queries,
		sessions: sessions,
		hash: func(password string) (string, error) {
			return argon2id.CreateHash(password, argon2id.DefaultParams)
		},
	}, nil
}

// CreateInput is the payload for a new account.
type CreateInput struct {
	Username string `json:"username" validate:"required,min=3"`
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password" validate:"required,min=8"`
}

// UpdateInput is the payload for editing an account. Password is optional;
// when set it replaces the stored hash and revokes the user's sessions.
type UpdateInput struct {
	Name     string `json:"name" validate:"required"`
	Role     string `json:"role" validate:"required"`
	Password string `json:"password,omitempty" validate:"omitempty,min=8"`
}

// List returns all staff accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	rows, err := s.queries.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	out := make([]User, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert(row))
	}
	return out, nil
}

// Get returns a single staff account.
func (s *Service) Get(ctx context.Context, id string) (User, error) {
	userID, err := db.UUIDFromString(id)
	if err != nil {
		return User{}, common.ValidationError("invalid user id", nil)
	}
	row, err := s.queries.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NotFoundError("user not found")
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	return convert(row), nil
}

// Create provisions a staff account with a hashed password.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	if !auth.ValidRole(input.Role) {
		return User{}, common.ValidationError("unknown role", map[string]any{"allowed": auth.Roles()})
	}
	hash, err := s.hash(input.Password)
	if err != nil {
		return User{}, fmt.Errorf("hash password: %w", err)
	}
	row, err := s.queries.CreateUser(ctx, CreateParams{
		Username:     strings.ToLower(strings.TrimSpace(input.Username)),
		Name:         strings.TrimSpace(input.Name),
		Role:         input.Role,
		PasswordHash: hash,
	})
	if err != nil {
		if isUniqueViolation(err) {
			return User{}, common.ConflictError("USERNAME_TAKEN", "username already in use")
		}
		return User{}, fmt.Errorf("create user: %w", err)
	}
	return convert(row), nil
}

// Update edits an account. A role change or password reset revokes every
// session the user holds.
func (s *Service) Update(ctx context.Context, actor common.Session, id string, input UpdateInput) (User, error) {
	userID, err := db.UUIDFromString(id)
	if err != nil {
		return User{}, common.ValidationError("invalid user id", nil)
	}
	if !auth.ValidRole(input.Role) {
		return User{}, common.ValidationError("unknown role", map[string]any{"allowed": auth.Roles()})
	}
	current, err := s.queries.GetUser(ctx, userID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NotFoundError("user not found")
		}
		return User{}, fmt.Errorf("get user: %w", err)
	}
	if actor.UserID == id && input.Role != current.Role {
		return User{}, common.ValidationError("cannot change your own role", nil)
	}

	params := UpdateParams{
		Name: strings.TrimSpace(input.Name),
		Role: input.Role,
	}
	if input.Password != "" {
		hash, err := s.hash(input.Password)
		if err != nil {
			return User{}, fmt.Errorf("hash password: %w", err)
		}
		params.PasswordHash = hash
	}

	row, err := s.queries.UpdateUser(ctx, userID, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return User{}, common.NotFoundError("user not found")
		}
		return User{}, fmt.Errorf("update user: %w", err)
	}

	if s.sessions != nil && (params.PasswordHash != "" || input.Role != current.Role) {
		if err := s.sessions.DeleteSessionsByUser(ctx, userID); err != nil {
			return User{}, fmt.Errorf("revoke sessions: %w", err)
		}
	}
	return convert(row), nil
}

// Delete removes a staff account and its sessions. Admins cannot delete
// themselves.
func (s *Service) Delete(ctx context.Context, actor common.Session, id string) error {
	userID, err := db.UUIDFromString(id)
	if err != nil {
		return common.ValidationError("invalid user id", nil)
	}
	if actor.UserID == id {
		return common.ValidationError("cannot delete your own account", nil)
	}
	if err := s.queries.DeleteUser(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("user not found")
		}
		return fmt.Errorf("delete user: %w", err)
	}
	return nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func convert(row Row) User {
	return User{
		ID:        db.UUIDString(row.ID),
		Username:  row.Username,
		Name:      row.Name,
		Role:      row.Role,
		CreatedAt: db.TimeOrZero(row.CreatedAt),
		UpdatedAt: db.TimeOrZero(row.UpdatedAt),
	}
}
