package expense

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/db"
)

// Categories is the fixed set offered by the expense form. Values are stored
// as plain text so historical records survive list changes.
var Categories = []string{
	"Rent",
	"Utilities",
	"Supplies",
	"Marketing",
	"Staff Salaries",
	"Equipment",
	"Transportation",
	"Insurance",
	"Professional Services",
	"Other",
}

// Row mirrors a row of the expenses table.
type Row struct {
	ID          pgtype.UUID
	Name        string
	Category    string
	Amount      float64
	Description pgtype.Text
	CreatedBy   pgtype.UUID
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// Params carries the writable fields of an expense.
type Params struct {
	Name        string
	Category    string
	Amount      float64
	Description pgtype.Text
	CreatedBy   pgtype.UUID
}

// Querier is the persistence surface of the expense service.
type Querier interface {
	ListExpenses(ctx context.Context) ([]Row, error)
	GetExpense(ctx context.Context, id pgtype.UUID) (Row, error)
	CreateExpense(ctx context.Context, arg Params) (Row, error)
	UpdateExpense(ctx context.Context, id pgtype.UUID, arg Params) (Row, error)
	DeleteExpense(ctx context.Context, id pgtype.UUID) error
}

// Expense is the public expense payload.
type Expense struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Category    string    `json:"category"`
	Amount      float64   `json:"amount"`
	Description string    `json:"description,omitempty"`
	CreatedBy   string    `json:"created_by,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Service manages expense records.
type Service struct {
	queries Querier
}

// NewService constructs a Service.
func NewService(queries Querier) (*Service, error) {
	if queries == nil {
		return nil, errors.New("expense: queries is required")
	}
	return &Service{queries: queries}, nil
}

// Input is the validated write payload.
type Input struct {
	Name        string  `json:"name" validate:"required"`
	Category    string  `json:"category" validate:"required"`
	Amount      float64 `json:"amount" validate:"gt=0"`
	Description string  `json:"description,omitempty"`
}

// List returns all expenses, newest first.
func (s *Service) List(ctx context.Context) ([]Expense, error) {
	rows, err := s.queries.ListExpenses(ctx)
	if err != nil {
		return nil, fmt.Errorf("list expenses: %w", err)
	}
	out := make([]Expense, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert(row))
	}
	return out, nil
}

// Get returns a single expense.
func (s *Service) Get(ctx context.Context, id string) (Expense, error) {
	expenseID, err := db.UUIDFromString(id)
	if err != nil {
		return Expense{}, common.ValidationError("invalid expense id", nil)
	}
	row, err := s.queries.GetExpense(ctx, expenseID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, common.NotFoundError("expense not found")
		}
		return Expense{}, fmt.Errorf("get expense: %w", err)
	}
	return convert(row), nil
}

// Create records a new expense attributed to the session user.
func (s *Service) Create(ctx context.Context, session common.Session, input Input) (Expense, error) {
	params, err := buildParams(input)
	if err != nil {
		return Expense{}, err
	}
	if session.UserID != "" {
		if id, err := db.UUIDFromString(session.UserID); err == nil {
			params.CreatedBy = id
		}
	}
	row, err := s.queries.CreateExpense(ctx, params)
	if err != nil {
		return Expense{}, fmt.Errorf("create expense: %w", err)
	}
	return convert(row), nil
}

// Update replaces the writable fields of an expense.
func (s *Service) Update(ctx context.Context, id string, input Input) (Expense, error) {
	expenseID, err := db.UUIDFromString(id)
	if err != nil {
		return Expense{}, common.ValidationError("invalid expense id", nil)
	}
	params, err := buildParams(input)
	if err != nil {
		return Expense{}, err
	}
	row, err := s.queries.UpdateExpense(ctx, expenseID, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Expense{}, common.NotFoundError("expense not found")
		}
		return Expense{}, fmt.Errorf("update expense: %w", err)
	}
	return convert(row), nil
}

// Delete removes an expense.
func (s *Service) Delete(ctx context.Context, id string) error {
	expenseID, err := db.UUIDFromString(id)
	if err != nil {
		return common.ValidationError("invalid expense id", nil)
	}
	if err := s.queries.DeleteExpense(ctx, expenseID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("expense not found")
		}
		return fmt.Errorf("delete expense: %w", err)
	}
	return nil
}

func buildParams(input Input) (Params, error) {
	category := strings.TrimSpace(input.Category)
	if !validCategory(category) {
		return Params{}, common.ValidationError("unknown expense category", map[string]any{"allowed": Categories})
	}
	return Params{
		Name:        strings.TrimSpace(input.Name),
		Category:    category,
		Amount:      input.Amount,
		Description: db.Text(input.Description),
	}, nil
}

func validCategory(category string) bool {
	for _, allowed := range Categories {
		if allowed == category {
			return true
		}
	}
	return false
}

func convert(row Row) Expense {
	return Expense{
		ID:          db.UUIDString(row.ID),
		Name:        row.Name,
		Category:    row.Category,
		Amount:      row.Amount,
		Description: db.TextOrEmpty(row.Description),
		CreatedBy:   db.UUIDString(row.CreatedBy),
		CreatedAt:   db.TimeOrZero(row.CreatedAt),
		UpdatedAt:   db.TimeOrZero(row.UpdatedAt),
	}
}
