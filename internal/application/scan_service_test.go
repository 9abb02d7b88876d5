package application

import (
	"context"
	"errors"
	"io"
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	apperrors "github.com/wms-platform/box-tracking-service/pkg/errors"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/metrics"
	"github.com/wms-platform/box-tracking-service/pkg/resilience"
)

type fakeScanLedger struct {
	records   []*domain.ScanRecord
	saveErr   error
	lookupErr error
	saves     int
}

func (f *fakeScanLedger) Save(ctx context.Context, records ...*domain.ScanRecord) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	f.saves++
	for _, r := range records {
		r.ClearDomainEvents()
		f.records = append(f.records, r)
	}
	return nil
}

func (f *fakeScanLedger) HasReceipt(ctx context.Context, barcode, stationID string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	r, _ := f.FindLatestReceipt(ctx, barcode, stationID)
	return r != nil, nil
}

func (f *fakeScanLedger) HasHistoryElsewhere(ctx context.Context, orderKey, stationID string) (bool, error) {
	if f.lookupErr != nil {
		return false, f.lookupErr
	}
	for _, r := range f.records {
		if r.OrderKey == orderKey && r.StationID != stationID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeScanLedger) FindLatestReceipt(ctx context.Context, barcode, stationID string) (*domain.ScanRecord, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var latest *domain.ScanRecord
	for _, r := range f.records {
		if r.Direction == domain.DirectionIn && r.ScannedBarcode == barcode && r.StationID == stationID {
			if latest == nil || r.ScannedAt.After(latest.ScannedAt) {
				latest = r
			}
		}
	}
	return latest, nil
}

func (f *fakeScanLedger) FindUnreceivedDispatches(ctx context.Context, orderKey, stationID string) ([]*domain.ScanRecord, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	received := make(map[string]bool)
	for _, r := range f.records {
		if r.Direction == domain.DirectionIn && r.StationID == stationID {
			received[r.ScannedBarcode] = true
		}
	}

	var out []*domain.ScanRecord
	for _, r := range f.records {
		if r.Direction == domain.DirectionOut && r.OrderKey == orderKey && r.StationID != stationID && !received[r.NewBarcode] {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ScannedAt.Before(out[j].ScannedAt) })
	return out, nil
}

func (f *fakeScanLedger) SumReceived(ctx context.Context, orderKey, stationID string) (int, bool, error) {
	if f.lookupErr != nil {
		return 0, false, f.lookupErr
	}
	total, found := 0, false
	for _, r := range f.records {
		if r.Direction == domain.DirectionIn && r.OrderKey == orderKey && r.StationID == stationID {
			total += r.Quantity
			found = true
		}
	}
	return total, found, nil
}

func (f *fakeScanLedger) FindByOrder(ctx context.Context, orderKey string, limit int) ([]*domain.ScanRecord, error) {
	if f.lookupErr != nil {
		return nil, f.lookupErr
	}
	var out []*domain.ScanRecord
	for _, r := range f.records {
		if r.OrderKey == orderKey {
			out = append(out, r)
		}
	}
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func testCatalog() *domain.Catalog {
	return &domain.Catalog{
		Series:     map[string]string{"AC": "Accessory", "ST": "Standard"},
		Models:     map[string]string{"350": "Model 350", "035": "Model 35"},
		Containers: map[string]int{"B1": 100, "B2": 50},
		Statuses:   map[string]string{"G": "Good", "N": "Nonconforming", "S": "Scrap"},
		Stations:   map[string]string{"P1": "Cutting", "P2": "Sewing", "P3": "Packing"},
		Routes: map[string]domain.Route{
			"AC":                   domain.NewRoute("P1", "P2", "P3"),
			domain.DefaultRouteKey: domain.NewRoute("P1", "P2", "P3", "P4"),
		},
		ConformingStatus: "G",
		DefectStatus:     "N",
	}
}

type testClock struct {
	now time.Time
}

func (c *testClock) Now() time.Time { return c.now }

func (c *testClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func quietLogger() *logging.Logger {
	cfg := logging.DefaultConfig("test")
	cfg.Output = io.Discard
	return logging.New(cfg)
}

func newTestService(ledger *fakeScanLedger, config ScanServiceConfig) (*ScanService, *testClock) {
	clock := &testClock{now: time.Date(2025, 11, 19, 8, 0, 0, 0, time.UTC)}
	svc := NewScanService(ledger, testCatalog(), nil, quietLogger(), metrics.New(metrics.DefaultConfig("test")), config)
	svc.WithClock(clock.Now)
	return svc, clock
}

func requireAppError(t *testing.T, err error, code string, status int) *apperrors.AppError {
	t.Helper()
	require.Error(t, err)
	appErr, ok := apperrors.AsAppError(err)
	require.True(t, ok, "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
	assert.Equal(t, status, appErr.HTTPStatus)
	return appErr
}

func firstStation(t *testing.T, svc *ScanService) *DispatchDTO {
	t.Helper()
	dto, err := svc.FirstStation(context.Background(), FirstStationCommand{
		OperatorID: "OP01",
		StationID:  "p1",
		Order:      "25111901",
		SeriesCode: "AC",
		ModelCode:  "350",
		Container:  "B2",
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(120), Bad: domain.IntPtr(10)},
	})
	require.NoError(t, err)
	return dto
}

// =============================================================================
// FirstStation
// =============================================================================

func TestScanService_FirstStation(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())

	dto := firstStation(t, svc)

	assert.Equal(t, "first_station", dto.Action)
	assert.Equal(t, "25111901", dto.Order)
	assert.Equal(t, "AC350", dto.SKU)
	assert.Equal(t, "P1", dto.StationID)
	assert.Equal(t, "P2", dto.NextStation)
	assert.Nil(t, dto.Reconciliation)

	require.Len(t, dto.Boxes, 4)
	wantQty := []int{50, 50, 20, 10}
	wantSeq := []string{"01", "02", "03", "01"}
	wantStatus := []string{"G", "G", "G", "N"}
	for i, box := range dto.Boxes {
		assert.Equal(t, wantQty[i], box.Quantity, "box %d", i)
		assert.Equal(t, wantSeq[i], box.BoxSeq, "box %d", i)
		assert.Equal(t, wantStatus[i], box.Status, "box %d", i)
		assert.Len(t, box.Barcode, domain.BarcodeLength)
	}

	require.Len(t, ledger.records, 4)
	assert.Equal(t, 1, ledger.saves)
	for _, r := range ledger.records {
		assert.Equal(t, domain.DirectionOut, r.Direction)
		assert.Equal(t, domain.ActionFirstStation, r.Action)
		assert.Empty(t, r.ScannedBarcode)
	}
}

func TestScanService_FirstStation_FromNewOrderScan(t *testing.T) {
	svc, _ := newTestService(&fakeScanLedger{}, DefaultScanServiceConfig())

	dto, err := svc.FirstStation(context.Background(), FirstStationCommand{
		OperatorID: "OP01",
		StationID:  "P1",
		Barcode:    "2511190a-zz",
		SeriesCode: "ac",
		ModelCode:  "35",
		Container:  "B1",
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(30)},
	})
	require.NoError(t, err)
	assert.Equal(t, "2511190A", dto.Order)
	assert.Equal(t, "AC035", dto.SKU)
	require.Len(t, dto.Boxes, 1)
	assert.Equal(t, 30, dto.Boxes[0].Quantity)
}

func TestScanService_FirstStation_Validation(t *testing.T) {
	base := FirstStationCommand{
		OperatorID: "OP01",
		StationID:  "P1",
		Order:      "25111901",
		SeriesCode: "AC",
		ModelCode:  "350",
		Container:  "B2",
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(10)},
	}

	tests := []struct {
		name   string
		modify func(*FirstStationCommand)
	}{
		{"unknown series", func(c *FirstStationCommand) { c.SeriesCode = "ZX" }},
		{"unknown model", func(c *FirstStationCommand) { c.ModelCode = "999" }},
		{"missing order", func(c *FirstStationCommand) { c.Order = "" }},
		{"no quantity", func(c *FirstStationCommand) { c.Quantities = domain.DispositionQuantities{} }},
		{"negative quantity", func(c *FirstStationCommand) { c.Quantities.Bad = domain.IntPtr(-1) }},
		{"unknown defect status", func(c *FirstStationCommand) { c.DefectStatus = "Q" }},
		{"box overflow", func(c *FirstStationCommand) { c.Container = "XX"; c.Quantities.Good = domain.IntPtr(10000) }},
		{"order wider than the label", func(c *FirstStationCommand) { c.Order = "ABCDEFGHIJKL" }},
		{"station wider than the label", func(c *FirstStationCommand) { c.StationID = "PACK01" }},
		{"station not in catalog", func(c *FirstStationCommand) { c.StationID = "P9" }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ledger := &fakeScanLedger{}
			svc, _ := newTestService(ledger, DefaultScanServiceConfig())

			cmd := base
			cmd.Quantities = domain.DispositionQuantities{Good: domain.IntPtr(10)}
			tt.modify(&cmd)

			_, err := svc.FirstStation(context.Background(), cmd)
			requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
			assert.Empty(t, ledger.records)
		})
	}
}

// =============================================================================
// Classify
// =============================================================================

func TestScanService_Classify(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	t.Run("new order scan", func(t *testing.T) {
		dto, err := svc.Classify(ctx, ClassifyQuery{Barcode: "25111902-ZZ", StationID: "P1"})
		require.NoError(t, err)
		assert.Equal(t, "first_station", dto.SuggestedAction)
		assert.Nil(t, dto.OrderFacts)
	})

	t.Run("box dispatched from previous station", func(t *testing.T) {
		dto, err := svc.Classify(ctx, ClassifyQuery{Barcode: boxes[0].Barcode, StationID: "P2"})
		require.NoError(t, err)
		assert.Equal(t, "inbound", dto.SuggestedAction)
		assert.False(t, dto.Fallback)
		require.NotNil(t, dto.OrderFacts)
		assert.True(t, dto.OrderFacts.OrderSeenElsewhere)
		assert.Nil(t, dto.ReceivedQuantity)
	})

	t.Run("box received here", func(t *testing.T) {
		_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode}})
		require.NoError(t, err)

		dto, err := svc.Classify(ctx, ClassifyQuery{Barcode: boxes[0].Barcode, StationID: "p2"})
		require.NoError(t, err)
		assert.Equal(t, "outbound", dto.SuggestedAction)
		assert.Equal(t, "P3", dto.NextStation)
		require.NotNil(t, dto.ReceivedQuantity)
		assert.Equal(t, 50, *dto.ReceivedQuantity)
	})

	t.Run("trace intent wins", func(t *testing.T) {
		dto, err := svc.Classify(ctx, ClassifyQuery{Barcode: "25111902-ZZ", StationID: "P1", TraceIntent: true})
		require.NoError(t, err)
		assert.Equal(t, "trace", dto.SuggestedAction)
	})

	t.Run("malformed barcode", func(t *testing.T) {
		_, err := svc.Classify(ctx, ClassifyQuery{Barcode: "12345", StationID: "P1", TraceIntent: true})
		requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
	})
}

func TestScanService_Classify_UnknownContext(t *testing.T) {
	ctx := context.Background()

	t.Run("fallback to inbound", func(t *testing.T) {
		svc, _ := newTestService(&fakeScanLedger{}, DefaultScanServiceConfig())
		dto, err := svc.Classify(ctx, ClassifyQuery{Barcode: "12345-P1-AC350", StationID: "P2"})
		require.NoError(t, err)
		assert.Equal(t, "inbound", dto.SuggestedAction)
		assert.True(t, dto.Fallback)
	})

	t.Run("strict", func(t *testing.T) {
		svc, _ := newTestService(&fakeScanLedger{}, ScanServiceConfig{TraceLimit: 10})
		_, err := svc.Classify(ctx, ClassifyQuery{Barcode: "12345-P1-AC350", StationID: "P2"})
		requireAppError(t, err, CodeUnknownContext, http.StatusUnprocessableEntity)
	})
}

// =============================================================================
// PendingBoxes / InboundQuantity
// =============================================================================

func TestScanService_PendingBoxes(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	t.Run("all boxes awaiting receipt", func(t *testing.T) {
		dto, err := svc.PendingBoxes(ctx, PendingBoxesQuery{Order: "25111901", StationID: "P2"})
		require.NoError(t, err)
		require.Len(t, dto.Candidates, 4)
		for i, c := range dto.Candidates {
			assert.Equal(t, boxes[i].Barcode, c.Barcode)
			assert.True(t, c.Selected)
			assert.Equal(t, "P1", c.Process)
		}
	})

	t.Run("scanned box already among them keeps order", func(t *testing.T) {
		dto, err := svc.PendingBoxes(ctx, PendingBoxesQuery{StationID: "P2", Scanned: boxes[2].Barcode})
		require.NoError(t, err)
		require.Len(t, dto.Candidates, 4)
		assert.Equal(t, boxes[0].Barcode, dto.Candidates[0].Barcode)
		assert.Equal(t, "25111901", dto.Order)
	})

	t.Run("unknown scanned box is prepended", func(t *testing.T) {
		dto, err := svc.PendingBoxes(ctx, PendingBoxesQuery{StationID: "P2", Scanned: "25111901-P1-AC350-B2-09"})
		require.NoError(t, err)
		require.Len(t, dto.Candidates, 5)
		assert.Equal(t, "09", dto.Candidates[0].BoxSeq)
	})

	t.Run("not the next station", func(t *testing.T) {
		dto, err := svc.PendingBoxes(ctx, PendingBoxesQuery{Order: "25111901", StationID: "P3"})
		require.NoError(t, err)
		assert.Empty(t, dto.Candidates)
	})

	t.Run("received boxes drop out", func(t *testing.T) {
		_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[1].Barcode}})
		require.NoError(t, err)

		dto, err := svc.PendingBoxes(ctx, PendingBoxesQuery{Order: "00025111901", StationID: "P2"})
		require.NoError(t, err)
		assert.Len(t, dto.Candidates, 3)
	})

	t.Run("order required", func(t *testing.T) {
		_, err := svc.PendingBoxes(ctx, PendingBoxesQuery{StationID: "P2"})
		requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
	})
}

func TestScanService_InboundQuantity(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	dto, err := svc.InboundQuantity(ctx, InboundQuantityQuery{Order: "25111901", StationID: "P2"})
	require.NoError(t, err)
	assert.False(t, dto.Known)
	assert.Zero(t, dto.TotalInboundQty)

	_, err = svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode, boxes[3].Barcode}})
	require.NoError(t, err)

	dto, err = svc.InboundQuantity(ctx, InboundQuantityQuery{Order: "25111901", StationID: "P2"})
	require.NoError(t, err)
	assert.True(t, dto.Known)
	assert.Equal(t, 60, dto.TotalInboundQty)
}

// =============================================================================
// Inbound
// =============================================================================

func TestScanService_Inbound(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	result, err := svc.Inbound(ctx, InboundCommand{
		OperatorID: "OP02",
		StationID:  "P2",
		Barcodes:   []string{boxes[0].Barcode, boxes[1].Barcode, boxes[0].Barcode},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, result.Received)
	assert.Equal(t, []string{boxes[0].Barcode, boxes[1].Barcode}, result.ReceivedBarcodes)
	assert.False(t, result.SwitchToOutbound)
	assert.Equal(t, "inbound", result.SuggestedAction)
	assert.Len(t, ledger.records, 6)

	t.Run("already received switches to outbound", func(t *testing.T) {
		result, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode}})
		require.NoError(t, err)
		assert.Zero(t, result.Received)
		assert.Equal(t, []string{boxes[0].Barcode}, result.AlreadyReceived)
		assert.True(t, result.SwitchToOutbound)
		assert.Equal(t, "outbound", result.SuggestedAction)
		assert.Len(t, ledger.records, 6)
	})

	t.Run("mixed batch receives only the new box", func(t *testing.T) {
		result, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[1].Barcode, boxes[2].Barcode}})
		require.NoError(t, err)
		assert.Equal(t, 1, result.Received)
		assert.False(t, result.SwitchToOutbound)
	})
}

func TestScanService_Inbound_Errors(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	t.Run("skipped station", func(t *testing.T) {
		_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP03", StationID: "P3", Barcodes: []string{boxes[0].Barcode}})
		appErr := requireAppError(t, err, CodeFlowViolation, http.StatusUnprocessableEntity)
		assert.Equal(t, "P2", appErr.Details["expectedStation"])
	})

	t.Run("empty batch", func(t *testing.T) {
		_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP03", StationID: "P2"})
		requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
	})

	t.Run("malformed barcode", func(t *testing.T) {
		_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP03", StationID: "P2", Barcodes: []string{boxes[0].Barcode, "bogus"}})
		requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
	})

	assert.Len(t, ledger.records, 4)
}

// =============================================================================
// Outbound
// =============================================================================

func TestScanService_Outbound(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, clock := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode}})
	require.NoError(t, err)
	clock.Advance(90 * time.Second)

	dto, err := svc.Outbound(ctx, OutboundCommand{
		OperatorID:   "OP02",
		StationID:    "P2",
		Barcode:      boxes[0].Barcode,
		Quantities:   domain.DispositionQuantities{Good: domain.IntPtr(45), Bad: domain.IntPtr(5)},
		DefectStatus: "s",
	})
	require.NoError(t, err)

	assert.Equal(t, "outbound", dto.Action)
	assert.Equal(t, "P3", dto.NextStation)
	require.NotNil(t, dto.Reconciliation)
	assert.False(t, dto.Reconciliation.Degraded)
	require.NotNil(t, dto.Reconciliation.Expected)
	assert.Equal(t, 50, *dto.Reconciliation.Expected)

	require.Len(t, dto.Boxes, 2)
	assert.Equal(t, 45, dto.Boxes[0].Quantity)
	assert.Equal(t, "G", dto.Boxes[0].Status)
	assert.Equal(t, 5, dto.Boxes[1].Quantity)
	assert.Equal(t, "S", dto.Boxes[1].Status)

	out := ledger.records[len(ledger.records)-2:]
	for _, r := range out {
		assert.Equal(t, domain.ActionOutbound, r.Action)
		assert.Equal(t, "P2", r.StationID)
		assert.Equal(t, boxes[0].Barcode, r.ScannedBarcode)
		assert.Equal(t, int64(90), r.CycleTimeSeconds)
	}

	decoded, err := domain.DecodeBarcode(dto.Boxes[0].Barcode)
	require.NoError(t, err)
	assert.Equal(t, "P2", decoded.Process)
	assert.Equal(t, "B2", decoded.Container)
}

func TestScanService_Outbound_Mismatch(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode}})
	require.NoError(t, err)
	before := len(ledger.records)

	_, err = svc.Outbound(ctx, OutboundCommand{
		OperatorID: "OP02",
		StationID:  "P2",
		Barcode:    boxes[0].Barcode,
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(40)},
	})
	appErr := requireAppError(t, err, CodeQuantityMismatch, http.StatusUnprocessableEntity)
	assert.Equal(t, "50", appErr.Details["expected"])
	assert.Equal(t, "40", appErr.Details["actual"])
	assert.True(t, errors.Is(err, domain.ErrQuantityMismatch))
	assert.Len(t, ledger.records, before)
}

func TestScanService_Outbound_DegradedWithoutInboundTotal(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())

	dto, err := svc.Outbound(context.Background(), OutboundCommand{
		OperatorID: "OP02",
		StationID:  "P2",
		Barcode:    "25111901-P1-AC350-B1-01-G-0120",
		Container:  "b2",
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(120)},
	})
	require.NoError(t, err)
	require.NotNil(t, dto.Reconciliation)
	assert.True(t, dto.Reconciliation.Degraded)
	assert.Nil(t, dto.Reconciliation.Expected)
	assert.Len(t, dto.Boxes, 3)
	for _, r := range ledger.records {
		assert.Equal(t, "B2", r.Container)
		assert.Zero(t, r.CycleTimeSeconds)
	}
}

func TestScanService_Outbound_Validation(t *testing.T) {
	svc, _ := newTestService(&fakeScanLedger{}, DefaultScanServiceConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		cmd  OutboundCommand
	}{
		{"malformed barcode", OutboundCommand{StationID: "P2", Barcode: "x", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
		{"no sku", OutboundCommand{StationID: "P2", Barcode: "12345-P1", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
		{"no quantity", OutboundCommand{StationID: "P2", Barcode: "12345-P1-AC350"}},
		{"order wider than the label", OutboundCommand{StationID: "P2", Barcode: "123456789-P1-AC350", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
		{"container wider than the label", OutboundCommand{StationID: "P2", Barcode: "12345-P1-AC350", Container: "B12", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
		{"station wider than the label", OutboundCommand{StationID: "PACK01", Barcode: "12345-P1-AC350", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
		{"station not in catalog", OutboundCommand{StationID: "P9", Barcode: "12345-P1-AC350", Quantities: domain.DispositionQuantities{Good: domain.IntPtr(1)}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Outbound(ctx, tt.cmd)
			requireAppError(t, err, apperrors.CodeValidationError, http.StatusBadRequest)
		})
	}
}

func TestScanService_SaveFailure(t *testing.T) {
	ledger := &fakeScanLedger{saveErr: errors.New("connection reset")}
	svc, _ := newTestService(ledger, DefaultScanServiceConfig())

	_, err := svc.FirstStation(context.Background(), FirstStationCommand{
		OperatorID: "OP01",
		StationID:  "P1",
		Order:      "25111901",
		SeriesCode: "AC",
		ModelCode:  "350",
		Container:  "B2",
		Quantities: domain.DispositionQuantities{Good: domain.IntPtr(10)},
	})
	requireAppError(t, err, apperrors.CodeInternalError, http.StatusInternalServerError)
}

func TestScanService_LedgerBreakerOpens(t *testing.T) {
	ledger := &fakeScanLedger{lookupErr: errors.New("server selection timeout")}
	cfg := resilience.DefaultCircuitBreakerConfig("scan-ledger")
	cfg.FailureThreshold = 2
	breaker := resilience.NewCircuitBreaker(cfg, nil, nil)

	svc := NewScanService(ledger, testCatalog(), breaker, quietLogger(), nil, DefaultScanServiceConfig())
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		_, err := svc.Trace(ctx, TraceQuery{Barcode: "12345-P1-AC350"})
		require.Error(t, err)
	}

	_, err := svc.Trace(ctx, TraceQuery{Barcode: "12345-P1-AC350"})
	requireAppError(t, err, apperrors.CodeServiceUnavailable, http.StatusServiceUnavailable)
}

// =============================================================================
// Trace
// =============================================================================

func TestScanService_Trace(t *testing.T) {
	ledger := &fakeScanLedger{}
	svc, clock := newTestService(ledger, DefaultScanServiceConfig())
	boxes := firstStation(t, svc).Boxes
	ctx := context.Background()

	clock.Advance(time.Minute)
	_, err := svc.Inbound(ctx, InboundCommand{OperatorID: "OP02", StationID: "P2", Barcodes: []string{boxes[0].Barcode}})
	require.NoError(t, err)

	dto, err := svc.Trace(ctx, TraceQuery{Barcode: boxes[0].Barcode})
	require.NoError(t, err)

	assert.Equal(t, "25111901", dto.Order)
	assert.Equal(t, "AC350", dto.SKU)
	require.Len(t, dto.Records, 5)
	assert.Equal(t, "IN", dto.Records[4].Direction)
	assert.Equal(t, 130, dto.Statistics.TotalQty)
	assert.Equal(t, 120, dto.Statistics.GoodQty)
	assert.InDelta(t, 92.31, dto.Statistics.YieldRate, 0.001)
}
