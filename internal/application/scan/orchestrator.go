package scan

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	appinv "github.com/wms/backend/internal/application/inventory"
	"github.com/wms/backend/internal/domain/inventory"
	"github.com/wms/backend/internal/domain/shared"
)

// Mode selects the workflow a scan dispatches to.
type Mode string

// Accepted scan modes. putaway is a retired capability and is rejected
// explicitly rather than treated as unknown.
const (
	ModeReceive Mode = "receive"
	ModePick    Mode = "pick"
	ModeCount   Mode = "count"

	modePutaway Mode = "putaway"
)

// Command is one scan submission from a device.
type Command struct {
	Scope       inventory.Scope `json:"scope"`
	Mode        Mode            `json:"mode"`
	Barcode     string          `json:"barcode"`
	DeviceID    string          `json:"device_id"`
	WarehouseID int64           `json:"warehouse_id"`
	// Probe runs the dispatch inside a transaction that is always rolled
	// back, so the device learns what would happen without moving stock.
	Probe      bool      `json:"probe"`
	OccurredAt time.Time `json:"occurred_at"`
}

// Result is the outcome of one scan.
type Result struct {
	Mode     Mode                   `json:"mode"`
	Probe    bool                   `json:"probe"`
	ScanRef  string                 `json:"scan_ref"`
	Parsed   *Parsed                `json:"parsed"`
	Receipt  *appinv.WorkflowResult `json:"receipt,omitempty"`
	Shipment *appinv.WorkflowResult `json:"shipment,omitempty"`
	Count    *appinv.CountResult    `json:"count,omitempty"`
}

// Orchestrator turns scan payloads into workflow dispatches. It never
// touches stocks itself: parsing normalises the payload and the matching
// workflow books the movement under the scan reference.
type Orchestrator struct {
	txScope  appinv.TransactionScope
	parser   *Parser
	receipts *appinv.ReceiptWorkflow
	outbound *appinv.OutboundService
	counts   *appinv.CountWorkflow
	events   shared.EventPublisher
	logger   *zap.Logger
}

// NewOrchestrator creates an Orchestrator.
func NewOrchestrator(
	txScope appinv.TransactionScope,
	parser *Parser,
	receipts *appinv.ReceiptWorkflow,
	outbound *appinv.OutboundService,
	counts *appinv.CountWorkflow,
	events shared.EventPublisher,
	logger *zap.Logger,
) *Orchestrator {
	return &Orchestrator{
		txScope:  txScope,
		parser:   parser,
		receipts: receipts,
		outbound: outbound,
		counts:   counts,
		events:   events,
		logger:   logger,
	}
}

// ScanRef builds the traceability reference attached to every scan-driven
// movement, truncated to the ledger's ref column.
func ScanRef(deviceID string, ts time.Time, barcode string) string {
	return inventory.TruncateRef(fmt.Sprintf("scan:%s:%s:%s", deviceID, ts.UTC().Format("200601021504"), barcode))
}

// Handle runs one scan. Probe submissions roll back whatever the workflow
// did; pick probes do not even dispatch, so no batch gets consumed by a
// pre-flight.
func (o *Orchestrator) Handle(ctx context.Context, cmd Command) (*Result, error) {
	switch cmd.Mode {
	case ModeReceive, ModePick, ModeCount:
	case modePutaway:
		err := &inventory.FeatureDisabledError{Feature: string(modePutaway)}
		o.reject(ctx, cmd, err)
		return nil, err
	default:
		err := shared.NewDomainError("INVALID_MODE", fmt.Sprintf("Unknown scan mode %q", cmd.Mode))
		o.reject(ctx, cmd, err)
		return nil, err
	}

	occurredAt := cmd.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	parsed, err := o.parser.Parse(ctx, cmd.Barcode, cmd.WarehouseID)
	if err != nil {
		o.reject(ctx, cmd, err)
		return nil, err
	}

	warehouseID := cmd.WarehouseID
	if parsed.WarehouseID != 0 {
		warehouseID = parsed.WarehouseID
	}
	if warehouseID == 0 {
		err := shared.NewDomainError("INVALID_WAREHOUSE", "Scan resolves to no warehouse")
		o.reject(ctx, cmd, err)
		return nil, err
	}

	result := &Result{
		Mode:    cmd.Mode,
		Probe:   cmd.Probe,
		ScanRef: ScanRef(cmd.DeviceID, occurredAt, cmd.Barcode),
		Parsed:  parsed,
	}

	// pick pre-flight stops at parsing: dispatching would walk the
	// allocator over batches the real pick wants untouched
	if cmd.Probe && cmd.Mode == ModePick {
		return result, nil
	}

	dispatch := func(repos appinv.TransactionalRepositories) error {
		return o.dispatch(ctx, repos, cmd, warehouseID, occurredAt, parsed, result)
	}
	if cmd.Probe {
		err = o.txScope.Probe(ctx, dispatch)
	} else {
		err = o.txScope.Execute(ctx, dispatch)
	}
	if err != nil {
		o.reject(ctx, cmd, err)
		return nil, err
	}

	o.logger.Info("scan handled",
		zap.String("mode", string(cmd.Mode)),
		zap.String("device_id", cmd.DeviceID),
		zap.String("scan_ref", result.ScanRef),
		zap.Int64("item_id", parsed.ItemID),
		zap.Int64("warehouse_id", warehouseID),
		zap.Bool("probe", cmd.Probe),
	)
	return result, nil
}

func (o *Orchestrator) dispatch(ctx context.Context, repos appinv.TransactionalRepositories, cmd Command, warehouseID int64, occurredAt time.Time, parsed *Parsed, result *Result) error {
	switch cmd.Mode {
	case ModeReceive:
		res, err := o.receipts.ConfirmTx(ctx, repos, appinv.ReceiptCommand{
			Scope:       cmd.Scope,
			WarehouseID: warehouseID,
			ReceiptNo:   result.ScanRef,
			Lines: []appinv.ReceiptLine{{
				LineNo:         1,
				ItemID:         parsed.ItemID,
				Qty:            parsed.Qty,
				BatchCode:      parsed.BatchCode,
				ProductionDate: parsed.ProductionDate,
				ExpiryDate:     parsed.ExpiryDate,
			}},
			OccurredAt: occurredAt,
		})
		if err != nil {
			return err
		}
		result.Receipt = res
		return lineFailure(res)

	case ModePick:
		res, err := o.outbound.ShipTx(ctx, repos, appinv.ShipCommand{
			Scope:       cmd.Scope,
			WarehouseID: warehouseID,
			OrderID:     result.ScanRef,
			Lines: []appinv.ShipLine{{
				LineNo:    1,
				ItemID:    parsed.ItemID,
				Qty:       parsed.Qty,
				BatchCode: parsed.BatchCode,
			}},
			OccurredAt: occurredAt,
		})
		if err != nil {
			return err
		}
		result.Shipment = res
		return lineFailure(res)

	case ModeCount:
		res, err := o.counts.CountTx(ctx, repos, appinv.CountCommand{
			Scope:          cmd.Scope,
			WarehouseID:    warehouseID,
			ItemID:         parsed.ItemID,
			BatchCode:      parsed.BatchCode,
			Actual:         parsed.Qty,
			Ref:            result.ScanRef,
			RefLine:        1,
			ProductionDate: parsed.ProductionDate,
			ExpiryDate:     parsed.ExpiryDate,
			OccurredAt:     occurredAt,
		})
		if err != nil {
			return err
		}
		result.Count = res
		return nil
	}
	return shared.NewDomainError("INVALID_MODE", fmt.Sprintf("Unknown scan mode %q", cmd.Mode))
}

// lineFailure turns a failed line of a single-line scan into the error the
// device sees. A multi-line result never comes out of a scan.
func lineFailure(res *appinv.WorkflowResult) error {
	for i := range res.Lines {
		line := &res.Lines[i]
		if line.Status == inventory.LineStatusOK {
			continue
		}
		code := "SCAN_REJECTED"
		if line.Status == inventory.LineStatusInsufficient {
			code = "INSUFFICIENT_STOCK"
		}
		return shared.NewDomainError(code, line.Error)
	}
	return nil
}

// reject records the refusal for the audit trail and device telemetry.
func (o *Orchestrator) reject(ctx context.Context, cmd Command, err error) {
	code := "INTERNAL"
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		code = domainErr.Code
	}
	o.logger.Warn("scan rejected",
		zap.String("mode", string(cmd.Mode)),
		zap.String("device_id", cmd.DeviceID),
		zap.String("barcode", cmd.Barcode),
		zap.String("code", code),
		zap.Error(err),
	)
	if o.events != nil {
		_ = o.events.Publish(ctx, inventory.NewScanRejectedEvent(cmd.DeviceID, string(cmd.Mode), cmd.Barcode, code, err.Error()))
	}
}
