package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/karanja-dev/duka-pos/internal/obs"
)

// Querier defines the data access required to build a report.
type Querier interface {
	ListSalesWithItems(ctx context.Context) ([]Sale, error)
	ListInventory(ctx context.Context) ([]InventoryItem, error)
	ListExpenses(ctx context.Context) ([]Expense, error)
}

// Service builds report summaries and caches them briefly in Redis. The
// aggregation itself stays pure; the service owns the collection fetch and
// the reference time.
type Service struct {
	Q                 Querier
	R                 *redis.Client
	TTL               time.Duration
	LowStockThreshold int
	Now               func() time.Time
}

func (s *Service) now() time.Time {
	if s != nil && s.Now != nil {
		return s.Now()
	}
	return time.Now()
}

// Summary returns the aggregated dashboard view for the requested range.
func (s *Service) Summary(ctx context.Context, rng TimeRange) (Summary, error) {
	if s == nil || s.Q == nil {
		return Summary{}, fmt.Errorf("report: service not configured")
	}
	now := s.now()
	key := cacheKey(rng, now)
	if cached, ok := s.fromCache(ctx, key); ok {
		if obs.ReportRequestsTotal != nil {
			obs.ReportRequestsTotal.WithLabelValues(string(rng), "hit").Inc()
		}
		return cached, nil
	}

	sales, err := s.Q.ListSalesWithItems(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("report: list sales: %w", err)
	}
	inventory, err := s.Q.ListInventory(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("report: list inventory: %w", err)
	}
	expenses, err := s.Q.ListExpenses(ctx)
	if err != nil {
		return Summary{}, fmt.Errorf("report: list expenses: %w", err)
	}

	summary := Aggregate(sales, inventory, expenses, rng, now, s.LowStockThreshold)
	s.store(ctx, key, summary)
	if obs.ReportRequestsTotal != nil {
		obs.ReportRequestsTotal.WithLabelValues(string(rng), "miss").Inc()
	}
	return summary, nil
}

// Cache keys include the local day so a cached "day" report never leaks into
// the next calendar day.
func cacheKey(rng TimeRange, now time.Time) string {
	return fmt.Sprintf("report:summary:%s:%s", rng, now.Format("2006-01-02"))
}

func (s *Service) fromCache(ctx context.Context, key string) (Summary, bool) {
	if s.R == nil || s.TTL <= 0 {
		return Summary{}, false
	}
	data, err := s.R.Get(ctx, key).Bytes()
	if err != nil {
		return Summary{}, false
	}
	var summary Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return Summary{}, false
	}
	return summary, true
}

func (s *Service) store(ctx context.Context, key string, summary Summary) {
	if s.R == nil || s.TTL <= 0 {
		return
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return
	}
	_ = s.R.Set(ctx, key, data, s.TTL).Err()
}
