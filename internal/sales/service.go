package sales

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/rs/zerolog"

	"github.com/karanja-dev/duka-pos/internal/cart"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/db"
	"github.com/karanja-dev/duka-pos/internal/obs"
	"github.com/karanja-dev/duka-pos/internal/pricing"
	"github.com/karanja-dev/duka-pos/internal/tasks"
)

// ErrInsufficientStock is returned by the store when a decrement would push
// stock below zero.
var ErrInsufficientStock = errors.New("sales: insufficient stock")

// SaleItem is a persisted line of a completed sale.
type SaleItem struct {
	ID              string  `json:"id"`
	ItemID          string  `json:"item_id,omitempty"`
	Name            string  `json:"name"`
	Category        string  `json:"category,omitempty"`
	Quantity        int     `json:"quantity"`
	OriginalPrice   float64 `json:"original_price"`
	PriceAtSale     float64 `json:"price_at_sale"`
	DiscountApplied float64 `json:"discount_applied"`
}

// Sale is a completed checkout.
type Sale struct {
	ID            string     `json:"id"`
	CashierID     string     `json:"cashier_id,omitempty"`
	CustomerID    string     `json:"customer_id,omitempty"`
	Subtotal      float64    `json:"subtotal"`
	TotalDiscount float64    `json:"total_discount"`
	Tax           float64    `json:"tax"`
	TotalAmount   float64    `json:"total_amount"`
	Notes         string     `json:"notes,omitempty"`
	Items         []SaleItem `json:"items"`
	CreatedAt     time.Time  `json:"created_at"`
}

// CreateSaleItemParams is one line persisted inside the checkout transaction.
type CreateSaleItemParams struct {
	ItemID          pgtype.UUID
	Name            string
	Category        string
	Quantity        int32
	OriginalPrice   float64
	PriceAtSale     float64
	DiscountApplied float64
}

// CreateSaleParams is the full checkout write: the sale row, its lines, and
// the stock decrements, all in one transaction.
type CreateSaleParams struct {
	CashierID     pgtype.UUID
	CustomerID    pgtype.UUID
	Subtotal      float64
	TotalDiscount float64
	Tax           float64
	TotalAmount   float64
	Notes         pgtype.Text
	Items         []CreateSaleItemParams
}

// ListFilter narrows sale listings.
type ListFilter struct {
	CashierID  pgtype.UUID
	CustomerID pgtype.UUID
	Since      pgtype.Timestamptz
	Limit      int32
	Offset     int32
}

// Store is the persistence surface for sales.
type Store interface {
	CreateSale(ctx context.Context, arg CreateSaleParams) (Sale, error)
	ListSales(ctx context.Context, filter ListFilter) ([]Sale, error)
	GetSale(ctx context.Context, id pgtype.UUID) (Sale, error)
}

// Enqueuer matches the asynq client surface the service needs.
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Service performs checkouts and reads back sales.
type Service struct {
	Store    Store
	Carts    *cart.Service
	Items    cart.ItemSource
	Jobs     Enqueuer
	TaxRate  float64
	PageSize int
	Logger   zerolog.Logger
}

// CheckoutLine is an explicit line for cartless checkouts.
type CheckoutLine struct {
	ItemID   string `json:"item_id" validate:"required,uuid"`
	Quantity int    `json:"quantity" validate:"required,gte=1"`
}

// CheckoutInput is the checkout payload. Either CartID or Items must be set.
type CheckoutInput struct {
	CartID     string           `json:"cart_id,omitempty"`
	Items      []CheckoutLine   `json:"items,omitempty" validate:"omitempty,dive"`
	Discount   pricing.Discount `json:"discount"`
	CustomerID string           `json:"customer_id,omitempty" validate:"omitempty,uuid"`
	Notes      string           `json:"notes,omitempty"`
}

// Checkout prices the lines, persists the sale, decrements stock, clears the
// cart, and schedules a low-stock scan.
func (s *Service) Checkout(ctx context.Context, session common.Session, input CheckoutInput) (Sale, error) {
	lines, err := s.resolveLines(ctx, input)
	if err != nil {
		return Sale{}, err
	}
	if len(lines) == 0 {
		return Sale{}, common.ValidationError("cart is empty", nil)
	}

	priced, err := s.priceLines(lines, input.Discount)
	if err != nil {
		return Sale{}, err
	}

	params, err := s.buildParams(session, input, lines, priced)
	if err != nil {
		return Sale{}, err
	}

	sale, err := s.Store.CreateSale(ctx, params)
	if err != nil {
		if errors.Is(err, ErrInsufficientStock) {
			s.countCheckout("insufficient_stock")
			return Sale{}, common.ConflictError("INSUFFICIENT_STOCK", "not enough stock to complete the sale")
		}
		s.countCheckout("error")
		return Sale{}, fmt.Errorf("create sale: %w", err)
	}

	s.countCheckout("ok")
	if obs.SaleValue != nil {
		obs.SaleValue.Observe(sale.TotalAmount)
	}

	if input.CartID != "" {
		if _, err := s.Carts.Clear(ctx, input.CartID); err != nil {
			s.Logger.Warn().Err(err).Str("cart_id", input.CartID).Msg("clear cart after checkout")
		}
	}
	if s.Jobs != nil {
		if _, err := s.Jobs.Enqueue(tasks.NewLowStockScanTask()); err != nil {
			s.Logger.Warn().Err(err).Msg("enqueue low stock scan")
		}
	}
	return sale, nil
}

// List returns sales, newest first.
func (s *Service) List(ctx context.Context, page, perPage int) ([]Sale, error) {
	if perPage <= 0 {
		perPage = s.pageSize()
	}
	if page <= 0 {
		page = 1
	}
	filter := ListFilter{
		Limit:  int32(perPage),
		Offset: int32((page - 1) * perPage),
	}
	sales, err := s.Store.ListSales(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	return sales, nil
}

// Get returns a single sale with its lines.
func (s *Service) Get(ctx context.Context, id string) (Sale, error) {
	saleID, err := db.UUIDFromString(id)
	if err != nil {
		return Sale{}, common.ValidationError("invalid sale id", nil)
	}
	sale, err := s.Store.GetSale(ctx, saleID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Sale{}, common.NotFoundError("sale not found")
		}
		return Sale{}, fmt.Errorf("get sale: %w", err)
	}
	return sale, nil
}

func (s *Service) pageSize() int {
	if s.PageSize <= 0 {
		return 20
	}
	return s.PageSize
}

func (s *Service) countCheckout(result string) {
	if obs.SalesCompletedTotal != nil {
		obs.SalesCompletedTotal.WithLabelValues(result).Inc()
	}
}

// resolveLines loads cart lines, or materialises explicit lines from the
// inventory for cartless checkouts.
func (s *Service) resolveLines(ctx context.Context, input CheckoutInput) ([]cart.Line, error) {
	if input.CartID != "" {
		current, err := s.Carts.Get(ctx, input.CartID)
		if err != nil {
			return nil, err
		}
		return current.Lines, nil
	}
	lines := make([]cart.Line, 0, len(input.Items))
	for _, entry := range input.Items {
		item, err := s.Items.GetItem(ctx, entry.ItemID)
		if err != nil {
			return nil, err
		}
		if entry.Quantity > item.Stock {
			return nil, common.ConflictError("INSUFFICIENT_STOCK", fmt.Sprintf("not enough stock for %s", item.Name))
		}
		lines = append(lines, cart.Line{
			ItemID:   item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Stock:    item.Stock,
			Quantity: entry.Quantity,
		})
	}
	return lines, nil
}

func (s *Service) priceLines(lines []cart.Line, discount pricing.Discount) (pricing.Result, error) {
	items := make([]pricing.LineItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, pricing.LineItem{
			ID:        line.ItemID,
			Name:      line.Name,
			Category:  line.Category,
			UnitPrice: line.Price,
			Quantity:  line.Quantity,
		})
	}
	result, err := pricing.Price(items, discount, s.TaxRate)
	if err != nil {
		return pricing.Result{}, common.ValidationError(err.Error(), nil)
	}
	return result, nil
}

func (s *Service) buildParams(session common.Session, input CheckoutInput, lines []cart.Line, priced pricing.Result) (CreateSaleParams, error) {
	params := CreateSaleParams{
		Subtotal:      priced.Subtotal,
		TotalDiscount: priced.Discount,
		Tax:           priced.Tax,
		TotalAmount:   priced.Total,
		Notes:         db.Text(input.Notes),
	}
	if session.UserID != "" {
		id, err := db.UUIDFromString(session.UserID)
		if err != nil {
			return CreateSaleParams{}, common.UnauthorizedError("unauthorized")
		}
		params.CashierID = id
	}
	if input.CustomerID != "" {
		id, err := db.UUIDFromString(input.CustomerID)
		if err != nil {
			return CreateSaleParams{}, common.ValidationError("invalid customer id", nil)
		}
		params.CustomerID = id
	}
	for i, line := range priced.Lines {
		itemParams := CreateSaleItemParams{
			Name:            line.Name,
			Category:        lines[i].Category,
			Quantity:        int32(line.Quantity),
			OriginalPrice:   line.UnitPrice,
			PriceAtSale:     line.DiscountedUnitPrice,
			DiscountApplied: line.Discount,
		}
		if line.ID != "" {
			if id, err := db.UUIDFromString(line.ID); err == nil {
				itemParams.ItemID = id
			}
		}
		params.Items = append(params.Items, itemParams)
	}
	return params, nil
}
