package cart

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/pricing"
)

type fakeItems struct {
	items map[string]catalog.Item
}

func (f *fakeItems) GetItem(_ context.Context, id string) (catalog.Item, error) {
	item, ok := f.items[id]
	if !ok {
		return catalog.Item{}, common.NotFoundError("item not found")
	}
	return item, nil
}

func newTestService(t *testing.T) (*Service, *fakeItems) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	items := &fakeItems{items: map[string]catalog.Item{
		"item-gin":    {ID: "item-gin", Name: "Gilbeys Gin 750ml", Category: "Gin", Price: 1500, Stock: 10},
		"item-beer":   {ID: "item-beer", Name: "Tusker Lager", Category: "Beer", Price: 250, Stock: 2},
		"item-empty":  {ID: "item-empty", Name: "County Dry Gin", Category: "Gin", Price: 300, Stock: 0},
		"item-wine":   {ID: "item-wine", Name: "Four Cousins Sweet Red", Category: "Wine", Price: 1200, Stock: 6},
		"item-vodka":  {ID: "item-vodka", Name: "Chrome Vodka 250ml", Category: "Vodka", Price: 350, Stock: 20},
		"item-whisky": {ID: "item-whisky", Name: "Jameson 700ml", Category: "Whisky", Price: 2800, Stock: 4},
	}}

	svc := &Service{
		R:       client,
		Items:   items,
		TTL:     time.Hour,
		TaxRate: 0.16,
	}
	return svc, items
}

func TestAddItemAccumulatesAndCapsAtStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	cart, err = svc.AddItem(ctx, cart.ID, "item-beer", 1)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	require.Equal(t, 1, cart.Lines[0].Quantity)

	// stock is 2, so a third unit never lands
	cart, err = svc.AddItem(ctx, cart.ID, "item-beer", 1)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, "item-beer", 1)
	require.NoError(t, err)
	require.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestAddItemIgnoresOutOfStock(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	cart, err = svc.AddItem(ctx, cart.ID, "item-empty", 1)
	require.NoError(t, err)
	require.Empty(t, cart.Lines)
	require.Empty(t, cart.RecentItemIDs)
}

func TestUpdateQuantityDelta(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, "item-gin", 2)
	require.NoError(t, err)

	cart, err = svc.UpdateQuantity(ctx, cart.ID, "item-gin", 3)
	require.NoError(t, err)
	require.Equal(t, 5, cart.Lines[0].Quantity)

	// pushing past stock is rejected and leaves the line unchanged
	_, err = svc.UpdateQuantity(ctx, cart.ID, "item-gin", 100)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)

	cart, err = svc.Get(ctx, cart.ID)
	require.NoError(t, err)
	require.Equal(t, 5, cart.Lines[0].Quantity)

	// a delta to zero or below removes the line
	cart, err = svc.UpdateQuantity(ctx, cart.ID, "item-gin", -5)
	require.NoError(t, err)
	require.Empty(t, cart.Lines)
}

func TestUpdateQuantityUnknownLine(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	_, err = svc.UpdateQuantity(ctx, cart.ID, "item-gin", 1)
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}

func TestRecentItemsDedupedAndCapped(t *testing.T) {
	svc, _ := newTestService(t)
	svc.RecentMax = 5
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)

	for _, id := range []string{"item-gin", "item-beer", "item-wine", "item-vodka", "item-whisky"} {
		cart, err = svc.AddItem(ctx, cart.ID, id, 1)
		require.NoError(t, err)
	}
	require.Equal(t, []string{"item-whisky", "item-vodka", "item-wine", "item-beer", "item-gin"}, cart.RecentItemIDs)

	// re-adding moves the item to the front without duplicating it
	cart, err = svc.AddItem(ctx, cart.ID, "item-beer", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"item-beer", "item-whisky", "item-vodka", "item-wine", "item-gin"}, cart.RecentItemIDs)

	// a sixth distinct item evicts the oldest
	svc.Items.(*fakeItems).items["item-rum"] = catalog.Item{ID: "item-rum", Name: "Captain Morgan", Category: "Rum", Price: 1300, Stock: 3}
	cart, err = svc.AddItem(ctx, cart.ID, "item-rum", 1)
	require.NoError(t, err)
	require.Equal(t, []string{"item-rum", "item-beer", "item-whisky", "item-vodka", "item-wine"}, cart.RecentItemIDs)
}

func TestClearKeepsRecentItems(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)
	cart, err = svc.AddItem(ctx, cart.ID, "item-gin", 1)
	require.NoError(t, err)

	cart, err = svc.Clear(ctx, cart.ID)
	require.NoError(t, err)
	require.Empty(t, cart.Lines)
	require.Equal(t, []string{"item-gin"}, cart.RecentItemIDs)
}

func TestQuotePricesCart(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cart, err := svc.Create(ctx)
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, cart.ID, "item-gin", 2)
	require.NoError(t, err)

	result, err := svc.Quote(ctx, cart.ID, pricing.Discount{Kind: pricing.DiscountPercentage, Value: 10})
	require.NoError(t, err)
	require.InDelta(t, 3000.0, result.Subtotal, 1e-9)
	require.InDelta(t, 300.0, result.Discount, 1e-9)
	require.InDelta(t, 432.0, result.Tax, 1e-9)
	require.InDelta(t, 3132.0, result.Total, 1e-9)
}

func TestGetUnknownCart(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.Get(context.Background(), "missing")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "NOT_FOUND", appErr.Code)
}
