package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/pricing"
)

const defaultRecentMax = 5

// ItemSource resolves live inventory data for cart operations.
type ItemSource interface {
	GetItem(ctx context.Context, id string) (catalog.Item, error)
}

// Line is a single cart entry. Price and stock are snapshotted from the
// inventory at the time of the last touch.
type Line struct {
	ItemID   string  `json:"item_id"`
	Name     string  `json:"name"`
	Category string  `json:"category,omitempty"`
	Price    float64 `json:"price"`
	Stock    int     `json:"stock"`
	Quantity int     `json:"quantity"`
}

// Cart is a terminal-held shopping cart.
type Cart struct {
	ID            string    `json:"id"`
	Lines         []Line    `json:"items"`
	RecentItemIDs []string  `json:"recent_item_ids"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Service holds cart state in Redis, one key per cart, refreshed on every write.
type Service struct {
	R         *redis.Client
	Items     ItemSource
	TTL       time.Duration
	RecentMax int
	TaxRate   float64
	Now       func() time.Time
}

func (s *Service) now() time.Time {
	if s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

func (s *Service) ttl() time.Duration {
	if s.TTL <= 0 {
		return 12 * time.Hour
	}
	return s.TTL
}

func (s *Service) recentMax() int {
	if s.RecentMax <= 0 {
		return defaultRecentMax
	}
	return s.RecentMax
}

func cartKey(id string) string {
	return "cart:" + id
}

// Create starts a fresh cart.
func (s *Service) Create(ctx context.Context) (Cart, error) {
	now := s.now()
	cart := Cart{
		ID:        uuid.NewString(),
		Lines:     []Line{},
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Get loads a cart by id.
func (s *Service) Get(ctx context.Context, id string) (Cart, error) {
	data, err := s.R.Get(ctx, cartKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return Cart{}, common.NotFoundError("cart not found")
		}
		return Cart{}, fmt.Errorf("load cart: %w", err)
	}
	var cart Cart
	if err := json.Unmarshal(data, &cart); err != nil {
		return Cart{}, fmt.Errorf("decode cart: %w", err)
	}
	return cart, nil
}

// AddItem adds qty units of an inventory item to the cart. Out-of-stock items
// are ignored without error; increments are capped at the known stock.
func (s *Service) AddItem(ctx context.Context, cartID, itemID string, qty int) (Cart, error) {
	if qty <= 0 {
		qty = 1
	}
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	item, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return Cart{}, err
	}
	if item.Stock <= 0 {
		return cart, nil
	}

	found := false
	for i := range cart.Lines {
		if cart.Lines[i].ItemID != item.ID {
			continue
		}
		next := cart.Lines[i].Quantity + qty
		if next > item.Stock {
			next = item.Stock
		}
		cart.Lines[i].Quantity = next
		cart.Lines[i].Price = item.Price
		cart.Lines[i].Stock = item.Stock
		found = true
		break
	}
	if !found {
		if qty > item.Stock {
			qty = item.Stock
		}
		cart.Lines = append(cart.Lines, Line{
			ItemID:   item.ID,
			Name:     item.Name,
			Category: item.Category,
			Price:    item.Price,
			Stock:    item.Stock,
			Quantity: qty,
		})
	}
	cart.RecentItemIDs = pushRecent(cart.RecentItemIDs, item.ID, s.recentMax())

	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// UpdateQuantity applies a delta to a line. A resulting quantity of zero or
// less removes the line; a quantity above the live stock is rejected and the
// line stays unchanged.
func (s *Service) UpdateQuantity(ctx context.Context, cartID, itemID string, delta int) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	idx := -1
	for i := range cart.Lines {
		if cart.Lines[i].ItemID == itemID {
			idx = i
			break
		}
	}
	if idx < 0 {
		return Cart{}, common.NotFoundError("item not in cart")
	}

	next := cart.Lines[idx].Quantity + delta
	if next <= 0 {
		cart.Lines = append(cart.Lines[:idx], cart.Lines[idx+1:]...)
		if err := s.save(ctx, cart); err != nil {
			return Cart{}, err
		}
		return cart, nil
	}

	item, err := s.Items.GetItem(ctx, itemID)
	if err != nil {
		return Cart{}, err
	}
	if next > item.Stock {
		return Cart{}, common.ConflictError("INSUFFICIENT_STOCK", "not enough stock for requested quantity")
	}
	cart.Lines[idx].Quantity = next
	cart.Lines[idx].Price = item.Price
	cart.Lines[idx].Stock = item.Stock

	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// RemoveItem drops a line from the cart.
func (s *Service) RemoveItem(ctx context.Context, cartID, itemID string) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	for i := range cart.Lines {
		if cart.Lines[i].ItemID == itemID {
			cart.Lines = append(cart.Lines[:i], cart.Lines[i+1:]...)
			if err := s.save(ctx, cart); err != nil {
				return Cart{}, err
			}
			return cart, nil
		}
	}
	return Cart{}, common.NotFoundError("item not in cart")
}

// Clear empties the cart's lines. The recent-items list survives so the
// terminal keeps its shortcuts after a checkout.
func (s *Service) Clear(ctx context.Context, cartID string) (Cart, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return Cart{}, err
	}
	cart.Lines = []Line{}
	if err := s.save(ctx, cart); err != nil {
		return Cart{}, err
	}
	return cart, nil
}

// Delete removes the cart entirely.
func (s *Service) Delete(ctx context.Context, cartID string) error {
	return s.R.Del(ctx, cartKey(cartID)).Err()
}

// Quote prices the cart with the given discount and the configured tax rate.
func (s *Service) Quote(ctx context.Context, cartID string, discount pricing.Discount) (pricing.Result, error) {
	cart, err := s.Get(ctx, cartID)
	if err != nil {
		return pricing.Result{}, err
	}
	return s.PriceLines(cart.Lines, discount)
}

// PriceLines exposes pricing of raw cart lines for checkout.
func (s *Service) PriceLines(lines []Line, discount pricing.Discount) (pricing.Result, error) {
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

func (s *Service) save(ctx context.Context, cart Cart) error {
	cart.UpdatedAt = s.now()
	data, err := json.Marshal(cart)
	if err != nil {
		return fmt.Errorf("encode cart: %w", err)
	}
	if err := s.R.Set(ctx, cartKey(cart.ID), data, s.ttl()).Err(); err != nil {
		return fmt.Errorf("store cart: %w", err)
	}
	return nil
}

// pushRecent front-inserts id, de-duplicates, and trims to max entries.
func pushRecent(recent []string, id string, max int) []string {
	out := make([]string, 0, max)
	out = append(out, id)
	for _, existing := range recent {
		if existing == id {
			continue
		}
		out = append(out, existing)
		if len(out) == max {
			break
		}
	}
	return out
}
