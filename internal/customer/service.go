package customer

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
	"github.com/karanja-dev/duka-pos/internal/sales"
)

// Row mirrors a row of the customers table.
type Row struct {
	ID        pgtype.UUID
	Name      string
	Phone     pgtype.Text
	Email     pgtype.Text
	Address   pgtype.Text
	CreatedAt pgtype.Timestamptz
	UpdatedAt pgtype.Timestamptz
}

// Params carries the writable fields of a customer.
type Params struct {
	Name    string
	Phone   pgtype.Text
	Email   pgtype.Text
	Address pgtype.Text
}

// StatsRow aggregates a customer's purchase history.
type StatsRow struct {
	TotalPurchases float64
	VisitCount     int64
	LastVisit      pgtype.Timestamptz
}

// Querier is the persistence surface of the customer service.
type Querier interface {
	ListCustomers(ctx context.Context, search string) ([]Row, error)
	GetCustomer(ctx context.Context, id pgtype.UUID) (Row, error)
	CreateCustomer(ctx context.Context, arg Params) (Row, error)
	UpdateCustomer(ctx context.Context, id pgtype.UUID, arg Params) (Row, error)
	DeleteCustomer(ctx context.Context, id pgtype.UUID) error
	CustomerStats(ctx context.Context, id pgtype.UUID) (StatsRow, error)
}

// SaleLister reads back a customer's sales.
type SaleLister interface {
	ListSales(ctx context.Context, filter sales.ListFilter) ([]sales.Sale, error)
}

// Customer is the public customer payload.
type Customer struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Email     string    `json:"email,omitempty"`
	Address   string    `json:"address,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Stats is the per-customer purchase summary.
type Stats struct {
	TotalPurchases float64    `json:"total_purchases"`
	VisitCount     int64      `json:"visit_count"`
	LastVisit      *time.Time `json:"last_visit,omitempty"`
}

// Service manages the customer directory.
type Service struct {
	queries Querier
	sales   SaleLister
}

// NewService constructs a Service.
func NewService(queries Querier, saleLister SaleLister) (*Service, error) {
	if queries == nil {
		return nil, errors.New("customer: queries is required")
	}
	return &Service{queries: queries, sales: saleLister}, nil
}

// Input is the validated write payload.
type Input struct {
	Name    string `json:"name" validate:"required"`
	Phone   string `json:"phone,omitempty"`
	Email   string `json:"email,omitempty" validate:"omitempty,email"`
	Address string `json:"address,omitempty"`
}

// List returns customers, optionally filtered by a search term over name,
// phone, and email.
func (s *Service) List(ctx context.Context, search string) ([]Customer, error) {
	rows, err := s.queries.ListCustomers(ctx, strings.TrimSpace(search))
	if err != nil {
		return nil, fmt.Errorf("list customers: %w", err)
	}
	out := make([]Customer, 0, len(rows))
	for _, row := range rows {
		out = append(out, convert(row))
	}
	return out, nil
}

// Get returns a single customer.
func (s *Service) Get(ctx context.Context, id string) (Customer, error) {
	customerID, err := db.UUIDFromString(id)
	if err != nil {
		return Customer{}, common.ValidationError("invalid customer id", nil)
	}
	row, err := s.queries.GetCustomer(ctx, customerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, common.NotFoundError("customer not found")
		}
		return Customer{}, fmt.Errorf("get customer: %w", err)
	}
	return convert(row), nil
}

// Create adds a customer to the directory.
func (s *Service) Create(ctx context.Context, input Input) (Customer, error) {
	row, err := s.queries.CreateCustomer(ctx, buildParams(input))
	if err != nil {
		return Customer{}, fmt.Errorf("create customer: %w", err)
	}
	return convert(row), nil
}

// Update replaces the writable fields of a customer.
func (s *Service) Update(ctx context.Context, id string, input Input) (Customer, error) {
	customerID, err := db.UUIDFromString(id)
	if err != nil {
		return Customer{}, common.ValidationError("invalid customer id", nil)
	}
	row, err := s.queries.UpdateCustomer(ctx, customerID, buildParams(input))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Customer{}, common.NotFoundError("customer not found")
		}
		return Customer{}, fmt.Errorf("update customer: %w", err)
	}
	return convert(row), nil
}

// Delete removes a customer. Their sales survive with a detached customer id.
func (s *Service) Delete(ctx context.Context, id string) error {
	customerID, err := db.UUIDFromString(id)
	if err != nil {
		return common.ValidationError("invalid customer id", nil)
	}
	if err := s.queries.DeleteCustomer(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("customer not found")
		}
		return fmt.Errorf("delete customer: %w", err)
	}
	return nil
}

// Purchases returns a customer's sales, newest first.
func (s *Service) Purchases(ctx context.Context, id string, limit int) ([]sales.Sale, error) {
	customerID, err := db.UUIDFromString(id)
	if err != nil {
		return nil, common.ValidationError("invalid customer id", nil)
	}
	if s.sales == nil {
		return nil, errors.New("customer: sales reader not configured")
	}
	if limit <= 0 {
		limit = 20
	}
	history, err := s.sales.ListSales(ctx, sales.ListFilter{
		CustomerID: customerID,
		Limit:      int32(limit),
	})
	if err != nil {
		return nil, fmt.Errorf("list purchases: %w", err)
	}
	return history, nil
}

// PurchaseStats returns the aggregate totals the directory cards show.
func (s *Service) PurchaseStats(ctx context.Context, id string) (Stats, error) {
	customerID, err := db.UUIDFromString(id)
	if err != nil {
		return Stats{}, common.ValidationError("invalid customer id", nil)
	}
	if _, err := s.queries.GetCustomer(ctx, customerID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Stats{}, common.NotFoundError("customer not found")
		}
		return Stats{}, fmt.Errorf("get customer: %w", err)
	}
	row, err := s.queries.CustomerStats(ctx, customerID)
	if err != nil {
		return Stats{}, fmt.Errorf("customer stats: %w", err)
	}
	out := Stats{
		TotalPurchases: row.TotalPurchases,
		VisitCount:     row.VisitCount,
	}
	if row.LastVisit.Valid {
		t := row.LastVisit.Time
		out.LastVisit = &t
	}
	return out, nil
}

func buildParams(input Input) Params {
	return Params{
		Name:    strings.TrimSpace(input.Name),
		Phone:   db.Text(input.Phone),
		Email:   db.Text(strings.ToLower(input.Email)),
		Address: db.Text(input.Address),
	}
}

func convert(row Row) Customer {
	return Customer{
		ID:        db.UUIDString(row.ID),
		Name:      row.Name,
		Phone:     db.TextOrEmpty(row.Phone),
		Email:     db.TextOrEmpty(row.Email),
		Address:   db.TextOrEmpty(row.Address),
		CreatedAt: db.TimeOrZero(row.CreatedAt),
		UpdatedAt: db.TimeOrZero(row.UpdatedAt),
	}
}
