package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/hibiken/asynq"
	"github.com/rs/zerolog"

	"github.com/karanja-dev/duka-pos/internal/catalog"
	"github.com/karanja-dev/duka-pos/internal/common"
	"github.com/karanja-dev/duka-pos/internal/obs"
	"github.com/karanja-dev/duka-pos/internal/report"
)

// LowStockHandler scans inventory after a checkout and alerts on low stock.
type LowStockHandler struct {
	Catalog   *catalog.Service
	Email     common.EmailSender
	AlertTo   string
	Threshold int
	Logger    zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypeLowStockScan.
func (h *LowStockHandler) ProcessTask(ctx context.Context, _ *asynq.Task) error {
	items, err := h.Catalog.ListItems(ctx, catalog.ListItemsInput{LowStock: true})
	if err != nil {
		return fmt.Errorf("scan low stock: %w", err)
	}
	if len(items) == 0 {
		return nil
	}

	if obs.LowStockAlertsTotal != nil {
		obs.LowStockAlertsTotal.Add(float64(len(items)))
	}
	h.Logger.Warn().Int("count", len(items)).Msg("low stock items detected")

	if h.Email == nil || h.AlertTo == "" {
		return nil
	}
	var lines []string
	for _, item := range items {
		lines = append(lines, fmt.Sprintf("%s: %d left", item.Name, item.Stock))
	}
	body := "The following items are running low:\n\n" + strings.Join(lines, "\n")
	if err := h.Email.Send(h.AlertTo, "Low stock alert", body); err != nil {
		return fmt.Errorf("send low stock alert: %w", err)
	}
	return nil
}

// ReportSnapshotHandler pre-computes a report summary so the next dashboard
// load hits the cache.
type ReportSnapshotHandler struct {
	Reports *report.Service
	Logger  zerolog.Logger
}

// ProcessTask implements asynq.Handler for TypeReportSnapshot.
func (h *ReportSnapshotHandler) ProcessTask(ctx context.Context, t *asynq.Task) error {
	var payload ReportSnapshotPayload
	if len(t.Payload()) > 0 {
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return fmt.Errorf("decode snapshot payload: %w", err)
		}
	}
	rng, err := report.ParseRange(payload.Range)
	if err != nil {
		return fmt.Errorf("parse snapshot range: %w", err)
	}
	if _, err := h.Reports.Summary(ctx, rng); err != nil {
		return fmt.Errorf("compute summary: %w", err)
	}
	h.Logger.Info().Str("range", string(rng)).Msg("report snapshot refreshed")
	return nil
}
