package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// Task type names routed through the asynq worker.
const (
	TypeLowStockScan   = "inventory:low_stock_scan"
	TypeReportSnapshot = "report:snapshot"
)

// ReportSnapshotPayload selects which summary range to warm.
type ReportSnapshotPayload struct {
	Range string `json:"range"`
}

// NewLowStockScanTask builds a task that scans inventory for low stock.
func NewLowStockScanTask() *asynq.Task {
	return asynq.NewTask(TypeLowStockScan, nil)
}

// NewReportSnapshotTask builds a task that pre-computes a report summary.
func NewReportSnapshotTask(rng string) (*asynq.Task, error) {
	payload, err := json.Marshal(ReportSnapshotPayload{Range: rng})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeReportSnapshot, payload), nil
}
