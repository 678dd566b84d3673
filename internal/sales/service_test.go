package sales

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/karanja-dev/duka-pos/internal/cart"
	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/db"
	"github.com/karanja-dev/duka-pos/internal/pricing"
	"github.com/karanja-dev/duka-pos/internal/tasks"
)

type fakeStore struct {
	created []CreateSaleParams
	fail    error
}

func (f *fakeStore) CreateSale(_ context.Context, arg CreateSaleParams) (Sale, error) {
	if f.fail != nil {
		return Sale{}, f.fail
	}
	f.created = append(f.created, arg)
	sale := Sale{
		ID:            uuid.NewString(),
		Subtotal:      arg.Subtotal,
		TotalDiscount: arg.TotalDiscount,
		Tax:           arg.Tax,
		TotalAmount:   arg.TotalAmount,
		CreatedAt:     time.Now(),
	}
	for _, item := range arg.Items {
		sale.Items = append(sale.Items, SaleItem{
			ID:              uuid.NewString(),
			ItemID:          db.UUIDString(item.ItemID),
			Name:            item.Name,
			Category:        item.Category,
			Quantity:        int(item.Quantity),
			OriginalPrice:   item.OriginalPrice,
			PriceAtSale:     item.PriceAtSale,
			DiscountApplied: item.DiscountApplied,
		})
	}
	return sale, nil
}

func (f *fakeStore) ListSales(context.Context, ListFilter) ([]Sale, error) { return nil, nil }
func (f *fakeStore) GetSale(context.Context, pgtype.UUID) (Sale, error)   { return Sale{}, nil }

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

type fakeEnqueuer struct {
	tasks []*asynq.Task
}

func (f *fakeEnqueuer) Enqueue(task *asynq.Task, _ ...asynq.Option) (*asynq.TaskInfo, error) {
	f.tasks = append(f.tasks, task)
	return &asynq.TaskInfo{}, nil
}

func newCheckoutFixture(t *testing.T) (*Service, *fakeStore, *cart.Service, *fakeEnqueuer) {
	t.Helper()
	mini := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mini.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	ginID := uuid.NewString()
	beerID := uuid.NewString()
	items := &fakeItems{items: map[string]catalog.Item{
		ginID:  {ID: ginID, Name: "Gilbeys Gin 750ml", Category: "Gin", Price: 1500, Stock: 10},
		beerID: {ID: beerID, Name: "Tusker Lager", Category: "Beer", Price: 250, Stock: 2},
	}}

	carts := &cart.Service{R: client, Items: items, TTL: time.Hour, TaxRate: 0.16}
	store := &fakeStore{}
	jobs := &fakeEnqueuer{}
	svc := &Service{
		Store:   store,
		Carts:   carts,
		Items:   items,
		Jobs:    jobs,
		TaxRate: 0.16,
	}
	return svc, store, carts, jobs
}

func itemID(svc *Service, name string) string {
	for id, item := range svc.Items.(*fakeItems).items {
		if item.Name == name {
			return id
		}
	}
	return ""
}

func TestCheckoutFromCart(t *testing.T) {
	svc, store, carts, jobs := newCheckoutFixture(t)
	ctx := context.Background()
	session := common.Session{UserID: uuid.NewString(), Username: "wanjiku", Role: "cashier"}

	current, err := carts.Create(ctx)
	require.NoError(t, err)
	_, err = carts.AddItem(ctx, current.ID, itemID(svc, "Gilbeys Gin 750ml"), 2)
	require.NoError(t, err)

	sale, err := svc.Checkout(ctx, session, CheckoutInput{
		CartID:   current.ID,
		Discount: pricing.Discount{Kind: pricing.DiscountPercentage, Value: 10},
	})
	require.NoError(t, err)
	require.InDelta(t, 3000.0, sale.Subtotal, 1e-9)
	require.InDelta(t, 300.0, sale.TotalDiscount, 1e-9)
	require.InDelta(t, 432.0, sale.Tax, 1e-9)
	require.InDelta(t, 3132.0, sale.TotalAmount, 1e-9)
	require.Len(t, sale.Items, 1)
	require.Equal(t, "Gin", sale.Items[0].Category)
	require.InDelta(t, 1350.0, sale.Items[0].PriceAtSale, 1e-9)

	// sale persisted with the cashier attached
	require.Len(t, store.created, 1)
	require.Equal(t, session.UserID, db.UUIDString(store.created[0].CashierID))

	// cart cleared and a low stock scan queued
	after, err := carts.Get(ctx, current.ID)
	require.NoError(t, err)
	require.Empty(t, after.Lines)
	require.Len(t, jobs.tasks, 1)
	require.Equal(t, tasks.TypeLowStockScan, jobs.tasks[0].Type())
}

func TestCheckoutExplicitItems(t *testing.T) {
	svc, store, _, _ := newCheckoutFixture(t)
	ctx := context.Background()
	session := common.Session{UserID: uuid.NewString(), Role: "cashier"}

	sale, err := svc.Checkout(ctx, session, CheckoutInput{
		Items: []CheckoutLine{{ItemID: itemID(svc, "Tusker Lager"), Quantity: 2}},
	})
	require.NoError(t, err)
	require.InDelta(t, 500.0, sale.Subtotal, 1e-9)
	require.Len(t, store.created, 1)
}

func TestCheckoutExplicitItemsInsufficientStock(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture(t)
	session := common.Session{UserID: uuid.NewString(), Role: "cashier"}

	_, err := svc.Checkout(context.Background(), session, CheckoutInput{
		Items: []CheckoutLine{{ItemID: itemID(svc, "Tusker Lager"), Quantity: 5}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
}

func TestCheckoutEmptyCartRejected(t *testing.T) {
	svc, _, carts, _ := newCheckoutFixture(t)
	ctx := context.Background()
	session := common.Session{UserID: uuid.NewString(), Role: "cashier"}

	current, err := carts.Create(ctx)
	require.NoError(t, err)

	_, err = svc.Checkout(ctx, session, CheckoutInput{CartID: current.ID})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestCheckoutSurfacesStoreStockConflict(t *testing.T) {
	svc, store, _, _ := newCheckoutFixture(t)
	store.fail = fmt.Errorf("%w: Tusker Lager", ErrInsufficientStock)
	session := common.Session{UserID: uuid.NewString(), Role: "cashier"}

	_, err := svc.Checkout(context.Background(), session, CheckoutInput{
		Items: []CheckoutLine{{ItemID: itemID(svc, "Tusker Lager"), Quantity: 1}},
	})
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "INSUFFICIENT_STOCK", appErr.Code)
}

func TestGetRejectsInvalidID(t *testing.T) {
	svc, _, _, _ := newCheckoutFixture(t)
	_, err := svc.Get(context.Background(), "not-a-uuid")
	var appErr *common.AppError
	require.ErrorAs(t, err, &appErr)
	require.Equal(t, "VALIDATION_ERROR", appErr.Code)
}
