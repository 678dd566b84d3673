package catalog

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/db"
)

// ItemRow mirrors a row of inventory_items joined with its category name.
type ItemRow struct {
	ID           pgtype.UUID
	Name         string
	CategoryID   pgtype.UUID
	CategoryName pgtype.Text
	Price        float64
	Cost         float64
	Stock        int32
	CreatedAt    pgtype.Timestamptz
	UpdatedAt    pgtype.Timestamptz
}

// CategoryRow mirrors a row of the categories table.
type CategoryRow struct {
	ID          pgtype.UUID
	Name        string
	Description pgtype.Text
	Color       pgtype.Text
	CreatedAt   pgtype.Timestamptz
	UpdatedAt   pgtype.Timestamptz
}

// ItemParams carries the writable fields of an inventory item.
type ItemParams struct {
	Name       string
	CategoryID pgtype.UUID
	Price      float64
	Cost       float64
	Stock      int32
}

// CategoryParams carries the writable fields of a category.
type CategoryParams struct {
	Name        string
	Description pgtype.Text
	Color       pgtype.Text
}

// ItemFilter narrows item listings.
type ItemFilter struct {
	CategoryID pgtype.UUID
	LowStock   bool
	Threshold  int32
	Search     string
}

// Querier is the persistence surface the catalog service needs.
type Querier interface {
	ListItems(ctx context.Context, filter ItemFilter) ([]ItemRow, error)
	GetItem(ctx context.Context, id pgtype.UUID) (ItemRow, error)
	CreateItem(ctx context.Context, arg ItemParams) (ItemRow, error)
	UpdateItem(ctx context.Context, id pgtype.UUID, arg ItemParams) (ItemRow, error)
	DeleteItem(ctx context.Context, id pgtype.UUID) error
	ListCategories(ctx context.Context) ([]CategoryRow, error)
	GetCategory(ctx context.Context, id pgtype.UUID) (CategoryRow, error)
	CreateCategory(ctx context.Context, arg CategoryParams) (CategoryRow, error)
	UpdateCategory(ctx context.Context, id pgtype.UUID, arg CategoryParams) (CategoryRow, error)
	DeleteCategory(ctx context.Context, id pgtype.UUID) error
}

// Item is the public inventory item payload.
type Item struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	CategoryID string    `json:"category_id,omitempty"`
	Category   string    `json:"category,omitempty"`
	Price      float64   `json:"price"`
	Cost       float64   `json:"cost"`
	Stock      int       `json:"stock"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

// Category is the public category payload.
type Category struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Stats summarises the inventory the way the stock dashboard shows it.
type Stats struct {
	TotalItems      int     `json:"total_items"`
	TotalValue      float64 `json:"total_value"`
	LowStockCount   int     `json:"low_stock_count"`
	OutOfStockCount int     `json:"out_of_stock_count"`
	PotentialProfit float64 `json:"potential_profit"`
}

// Service orchestrates inventory queries, DTO assembly, and caching.
type Service struct {
	queries           Querier
	cache             *Cache
	lowStockThreshold int
}

// ServiceConfig groups Service dependencies.
type ServiceConfig struct {
	Queries           Querier
	Cache             *Cache
	LowStockThreshold int
}

// NewService constructs a Service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Queries == nil {
		return nil, errors.New("catalog: queries is required")
	}
	threshold := cfg.LowStockThreshold
	if threshold <= 0 {
		threshold = 5
	}
	return &Service{
		queries:           cfg.Queries,
		cache:             cfg.Cache,
		lowStockThreshold: threshold,
	}, nil
}

// ListItemsInput carries the raw query-string filters.
type ListItemsInput struct {
	CategoryID string
	LowStock   bool
	Search     string
}

// ListItems returns inventory items, cached when no filter is applied.
func (s *Service) ListItems(ctx context.Context, input ListItemsInput) ([]Item, error) {
	unfiltered := input.CategoryID == "" && !input.LowStock && strings.TrimSpace(input.Search) == ""
	if unfiltered {
		var cached []Item
		if hit, err := s.cache.GetJSON(ctx, cacheKeyItems, &cached); err == nil && hit {
			return cached, nil
		}
	}

	filter := ItemFilter{
		LowStock:  input.LowStock,
		Threshold: int32(s.lowStockThreshold),
		Search:    strings.TrimSpace(input.Search),
	}
	if input.CategoryID != "" {
		id, err := db.UUIDFromString(input.CategoryID)
		if err != nil {
			return nil, common.ValidationError("invalid category id", nil)
		}
		filter.CategoryID = id
	}

	rows, err := s.queries.ListItems(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list items: %w", err)
	}
	items := make([]Item, 0, len(rows))
	for _, row := range rows {
		items = append(items, convertItem(row))
	}
	if unfiltered {
		_ = s.cache.SetJSON(ctx, cacheKeyItems, items)
	}
	return items, nil
}

// GetItem returns a single inventory item.
func (s *Service) GetItem(ctx context.Context, id string) (Item, error) {
	itemID, err := db.UUIDFromString(id)
	if err != nil {
		return Item{}, common.ValidationError("invalid item id", nil)
	}
	row, err := s.queries.GetItem(ctx, itemID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, common.NotFoundError("item not found")
		}
		return Item{}, fmt.Errorf("get item: %w", err)
	}
	return convertItem(row), nil
}

// ItemInput is the validated write payload for items.
type ItemInput struct {
	Name       string  `json:"name" validate:"required"`
	CategoryID string  `json:"category_id,omitempty" validate:"omitempty,uuid"`
	Price      float64 `json:"price" validate:"gte=0"`
	Cost       float64 `json:"cost" validate:"gte=0"`
	Stock      int     `json:"stock" validate:"gte=0"`
}

// CreateItem inserts a new inventory item and invalidates caches.
func (s *Service) CreateItem(ctx context.Context, input ItemInput) (Item, error) {
	params, err := itemParams(input)
	if err != nil {
		return Item{}, err
	}
	row, err := s.queries.CreateItem(ctx, params)
	if err != nil {
		return Item{}, fmt.Errorf("create item: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyItems)
	return convertItem(row), nil
}

// UpdateItem replaces the writable fields of an item.
func (s *Service) UpdateItem(ctx context.Context, id string, input ItemInput) (Item, error) {
	itemID, err := db.UUIDFromString(id)
	if err != nil {
		return Item{}, common.ValidationError("invalid item id", nil)
	}
	params, err := itemParams(input)
	if err != nil {
		return Item{}, err
	}
	row, err := s.queries.UpdateItem(ctx, itemID, params)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Item{}, common.NotFoundError("item not found")
		}
		return Item{}, fmt.Errorf("update item: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyItems)
	return convertItem(row), nil
}

// DeleteItem removes an item and invalidates caches.
func (s *Service) DeleteItem(ctx context.Context, id string) error {
	itemID, err := db.UUIDFromString(id)
	if err != nil {
		return common.ValidationError("invalid item id", nil)
	}
	if err := s.queries.DeleteItem(ctx, itemID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("item not found")
		}
		return fmt.Errorf("delete item: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyItems)
	return nil
}

// Stats aggregates inventory value and stock alerts over the whole catalog.
func (s *Service) Stats(ctx context.Context) (Stats, error) {
	rows, err := s.queries.ListItems(ctx, ItemFilter{})
	if err != nil {
		return Stats{}, fmt.Errorf("list items: %w", err)
	}
	out := Stats{TotalItems: len(rows)}
	for _, row := range rows {
		stock := float64(row.Stock)
		out.TotalValue += row.Price * stock
		out.PotentialProfit += (row.Price - row.Cost) * stock
		switch {
		case row.Stock == 0:
			out.OutOfStockCount++
		case int(row.Stock) <= s.lowStockThreshold:
			out.LowStockCount++
		}
	}
	return out, nil
}

// ListCategories returns all categories, cached.
func (s *Service) ListCategories(ctx context.Context) ([]Category, error) {
	var cached []Category
	if hit, err := s.cache.GetJSON(ctx, cacheKeyCategories, &cached); err == nil && hit {
		return cached, nil
	}
	rows, err := s.queries.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	categories := make([]Category, 0, len(rows))
	for _, row := range rows {
		categories = append(categories, convertCategory(row))
	}
	_ = s.cache.SetJSON(ctx, cacheKeyCategories, categories)
	return categories, nil
}

// CategoryInput is the validated write payload for categories.
type CategoryInput struct {
	Name        string `json:"name" validate:"required"`
	Description string `json:"description,omitempty"`
	Color       string `json:"color,omitempty"`
}

// CreateCategory inserts a new category.
func (s *Service) CreateCategory(ctx context.Context, input CategoryInput) (Category, error) {
	row, err := s.queries.CreateCategory(ctx, CategoryParams{
		Name:        strings.TrimSpace(input.Name),
		Description: db.Text(input.Description),
		Color:       db.Text(input.Color),
	})
	if err != nil {
		if isUniqueViolation(err) {
			return Category{}, common.ConflictError("CATEGORY_EXISTS", "category name already exists")
		}
		return Category{}, fmt.Errorf("create category: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyCategories, cacheKeyItems)
	return convertCategory(row), nil
}

// UpdateCategory replaces the writable fields of a category.
func (s *Service) UpdateCategory(ctx context.Context, id string, input CategoryInput) (Category, error) {
	categoryID, err := db.UUIDFromString(id)
	if err != nil {
		return Category{}, common.ValidationError("invalid category id", nil)
	}
	row, err := s.queries.UpdateCategory(ctx, categoryID, CategoryParams{
		Name:        strings.TrimSpace(input.Name),
		Description: db.Text(input.Description),
		Color:       db.Text(input.Color),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Category{}, common.NotFoundError("category not found")
		}
		if isUniqueViolation(err) {
			return Category{}, common.ConflictError("CATEGORY_EXISTS", "category name already exists")
		}
		return Category{}, fmt.Errorf("update category: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyCategories, cacheKeyItems)
	return convertCategory(row), nil
}

// DeleteCategory removes a category. Items referencing it fall back to uncategorized.
func (s *Service) DeleteCategory(ctx context.Context, id string) error {
	categoryID, err := db.UUIDFromString(id)
	if err != nil {
		return common.ValidationError("invalid category id", nil)
	}
	if err := s.queries.DeleteCategory(ctx, categoryID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return common.NotFoundError("category not found")
		}
		return fmt.Errorf("delete category: %w", err)
	}
	s.cache.Invalidate(ctx, cacheKeyCategories, cacheKeyItems)
	return nil
}

func itemParams(input ItemInput) (ItemParams, error) {
	params := ItemParams{
		Name:  strings.TrimSpace(input.Name),
		Price: input.Price,
		Cost:  input.Cost,
		Stock: int32(input.Stock),
	}
	if input.CategoryID != "" {
		id, err := db.UUIDFromString(input.CategoryID)
		if err != nil {
			return ItemParams{}, common.ValidationError("invalid category id", nil)
		}
		params.CategoryID = id
	}
	return params, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

func convertItem(row ItemRow) Item {
	return Item{
		ID:         db.UUIDString(row.ID),
		Name:       row.Name,
		CategoryID: db.UUIDString(row.CategoryID),
		Category:   db.TextOrEmpty(row.CategoryName),
		Price:      row.Price,
		Cost:       row.Cost,
		Stock:      int(row.Stock),
		CreatedAt:  db.TimeOrZero(row.CreatedAt),
		UpdatedAt:  db.TimeOrZero(row.UpdatedAt),
	}
}

func convertCategory(row CategoryRow) Category {
	return Category{
		ID:          db.UUIDString(row.ID),
		Name:        row.Name,
		Description: db.TextOrEmpty(row.Description),
		Color:       db.TextOrEmpty(row.Color),
		CreatedAt:   db.TimeOrZero(row.CreatedAt),
		UpdatedAt:   db.TimeOrZero(row.UpdatedAt),
	}
}
