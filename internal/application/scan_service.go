package application

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	apperrors "github.com/wms-platform/box-tracking-service/pkg/errors"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/metrics"
	"github.com/wms-platform/box-tracking-service/pkg/resilience"
)

// Reconciliation outcomes as recorded in metrics
const (
	reconcileOK       = "ok"
	reconcileMismatch = "mismatch"
	reconcileDegraded = "degraded"
)

// ScanServiceConfig tunes the scan service
type ScanServiceConfig struct {
	// FallbackToInbound routes scans the decision table cannot classify to inbound.
	FallbackToInbound bool

	// TraceLimit caps the records returned by a trace.
	TraceLimit int
}

// DefaultScanServiceConfig returns the default scan service settings
func DefaultScanServiceConfig() ScanServiceConfig {
	return ScanServiceConfig{
		FallbackToInbound: true,
		TraceLimit:        1000,
	}
}

// ScanService handles the scan-floor use cases
type ScanService struct {
	ledger  domain.ScanLedger
	catalog *domain.Catalog
	breaker *resilience.CircuitBreaker
	logger  *logging.Logger
	metrics *metrics.Metrics
	clock   domain.Clock
	config  ScanServiceConfig
}

// NewScanService creates a new ScanService. breaker and m may be nil.
func NewScanService(
	ledger domain.ScanLedger,
	catalog *domain.Catalog,
	breaker *resilience.CircuitBreaker,
	logger *logging.Logger,
	m *metrics.Metrics,
	config ScanServiceConfig,
) *ScanService {
	return &ScanService{
		ledger:  ledger,
		catalog: catalog,
		breaker: breaker,
		logger:  logger.WithComponent("scan-service"),
		metrics: m,
		clock:   time.Now,
		config:  config,
	}
}

// WithClock replaces the service clock
func (s *ScanService) WithClock(clock domain.Clock) *ScanService {
	s.clock = clock
	return s
}

// Catalog returns the catalog the service validates against
func (s *ScanService) Catalog() *domain.Catalog {
	return s.catalog
}

// Classify suggests the workflow for a scan from the ledger facts
func (s *ScanService) Classify(ctx context.Context, query ClassifyQuery) (*ClassificationDTO, error) {
	bc, err := domain.DecodeBarcode(query.Barcode)
	if err != nil {
		return nil, toAppError(err)
	}

	sc := domain.ScanContext{
		OperatorID:  query.OperatorID,
		StationID:   strings.ToUpper(query.StationID),
		RawScan:     query.Barcode,
		TraceIntent: query.TraceIntent,
	}

	var facts *OrderFacts
	if !query.TraceIntent && !bc.IsNewOrder() {
		if err := s.loadFacts(ctx, bc, &sc); err != nil {
			return nil, toAppError(err)
		}
		facts = &OrderFacts{ReceivedHere: sc.ReceivedHere, OrderSeenElsewhere: sc.OrderSeenElsewhere}
	}

	var c domain.Classification
	if s.config.FallbackToInbound {
		c, err = domain.ClassifyWithFallback(sc)
	} else {
		c, err = domain.Classify(sc)
	}
	if err != nil {
		return nil, toAppError(err)
	}

	if c.Fallback {
		s.logger.WithStation(sc.StationID, sc.OperatorID).Warn("Scan classified by fallback policy",
			"barcode", bc.Encode(), "action", c.Action)
		if s.metrics != nil {
			s.metrics.RecordClassificationFallback()
		}
	}

	dto := &ClassificationDTO{
		SuggestedAction:  string(c.Action),
		Fallback:         c.Fallback,
		Barcode:          ToBarcodeDTO(bc),
		StationID:        sc.StationID,
		OrderFacts:       facts,
		ReceivedQuantity: sc.ReceivedQuantity,
	}
	if c.Action == domain.ActionOutbound {
		dto.NextStation = s.catalog.NextStation(bc.SeriesCode(), sc.StationID)
	}
	return dto, nil
}

func (s *ScanService) loadFacts(ctx context.Context, bc domain.Barcode, sc *domain.ScanContext) error {
	received, err := guarded(ctx, s.breaker, func(ctx context.Context) (bool, error) {
		return s.ledger.HasReceipt(ctx, bc.Encode(), sc.StationID)
	})
	if err != nil {
		return fmt.Errorf("failed to look up receipt: %w", err)
	}
	sc.ReceivedHere = received

	if !received {
		seen, err := guarded(ctx, s.breaker, func(ctx context.Context) (bool, error) {
			return s.ledger.HasHistoryElsewhere(ctx, bc.OrderKey(), sc.StationID)
		})
		if err != nil {
			return fmt.Errorf("failed to look up order history: %w", err)
		}
		sc.OrderSeenElsewhere = seen
	}

	sc.ReceivedQuantity = s.inboundTotal(ctx, bc.OrderKey(), sc.StationID)
	return nil
}

// PendingBoxes lists the boxes dispatched towards a station and not yet
// received there, merged with the scanned barcode.
func (s *ScanService) PendingBoxes(ctx context.Context, query PendingBoxesQuery) (*PendingBoxesDTO, error) {
	station := strings.ToUpper(query.StationID)
	order := query.Order

	var scanned *domain.Barcode
	if query.Scanned != "" {
		bc, err := domain.DecodeBarcode(query.Scanned)
		if err != nil {
			return nil, toAppError(err)
		}
		scanned = &bc
		if order == "" {
			order = bc.Order
		}
	}
	if order == "" {
		return nil, apperrors.ErrValidation("order is required")
	}

	dispatches, err := guarded(ctx, s.breaker, func(ctx context.Context) ([]*domain.ScanRecord, error) {
		return s.ledger.FindUnreceivedDispatches(ctx, domain.OrderKey(order), station)
	})
	if err != nil {
		s.logger.Error("Failed to find pending boxes", "order", order, "stationId", station, "error", err)
		return nil, toAppError(fmt.Errorf("failed to find pending boxes: %w", err))
	}

	prior := make([]domain.Barcode, 0, len(dispatches))
	for _, r := range dispatches {
		bc, err := domain.DecodeBarcode(r.NewBarcode)
		if err != nil {
			s.logger.Warn("Skipping undecodable ledger barcode", "recordId", r.RecordID, "barcode", r.NewBarcode)
			continue
		}
		if s.catalog.NextStation(bc.SeriesCode(), r.StationID) != station {
			continue
		}
		prior = append(prior, bc)
	}

	candidates := []domain.BatchCandidate{}
	if scanned != nil {
		candidates = domain.NewBatchSelection(*scanned, prior)
	} else {
		seen := make(map[string]bool, len(prior))
		for _, bc := range prior {
			if code := bc.Encode(); !seen[code] {
				seen[code] = true
				candidates = append(candidates, domain.BatchCandidate{Barcode: bc, Code: code, Selected: true})
			}
		}
	}

	return &PendingBoxesDTO{
		Order:      strings.ToUpper(order),
		StationID:  station,
		Candidates: ToBatchCandidateDTOs(candidates),
	}, nil
}

// InboundQuantity returns the order's received total at a station
func (s *ScanService) InboundQuantity(ctx context.Context, query InboundQuantityQuery) (*InboundQuantityDTO, error) {
	if query.Order == "" {
		return nil, apperrors.ErrValidation("order is required")
	}
	station := strings.ToUpper(query.StationID)

	result, err := s.sumReceived(ctx, domain.OrderKey(query.Order), station)
	if err != nil {
		s.logger.Error("Failed to sum received quantity", "order", query.Order, "stationId", station, "error", err)
		return nil, toAppError(fmt.Errorf("failed to sum received quantity: %w", err))
	}

	return &InboundQuantityDTO{
		Order:           strings.ToUpper(query.Order),
		StationID:       station,
		TotalInboundQty: result.total,
		Known:           result.found,
	}, nil
}

type receivedSum struct {
	total int
	found bool
}

func (s *ScanService) sumReceived(ctx context.Context, orderKey, station string) (receivedSum, error) {
	return guarded(ctx, s.breaker, func(ctx context.Context) (receivedSum, error) {
		total, found, err := s.ledger.SumReceived(ctx, orderKey, station)
		return receivedSum{total, found}, err
	})
}

// inboundTotal returns the received total, or nil when it cannot be known
func (s *ScanService) inboundTotal(ctx context.Context, orderKey, station string) *int {
	result, err := s.sumReceived(ctx, orderKey, station)
	if err != nil {
		s.logger.WithError(err).Warn("Inbound total unavailable", "orderKey", orderKey, "stationId", station)
		return nil
	}
	if !result.found {
		return nil
	}
	return domain.IntPtr(result.total)
}

// FirstStation creates the first boxes of an order
func (s *ScanService) FirstStation(ctx context.Context, cmd FirstStationCommand) (*DispatchDTO, error) {
	start := s.clock()
	station := strings.ToUpper(cmd.StationID)

	dto, err := s.firstStation(ctx, cmd, station)
	s.recordScan(ctx, domain.ActionFirstStation, cmd.Order, station, start, err)
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

func (s *ScanService) firstStation(ctx context.Context, cmd FirstStationCommand, station string) (*DispatchDTO, error) {
	if err := s.validateStation(station); err != nil {
		return nil, err
	}

	order := cmd.Order
	if order == "" && cmd.Barcode != "" {
		bc, err := domain.DecodeBarcode(cmd.Barcode)
		if err != nil {
			return nil, err
		}
		order = bc.Order
	}
	if order == "" {
		return nil, apperrors.ErrValidation("order is required")
	}

	if !s.catalog.HasSeries(cmd.SeriesCode) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownSeries, cmd.SeriesCode)
	}
	sku := domain.ComposeSKU(cmd.SeriesCode, cmd.ModelCode)
	if !s.catalog.HasModel(cmd.ModelCode) && !s.catalog.HasModel(sku[2:]) {
		return nil, fmt.Errorf("%w: %s", domain.ErrUnknownModel, cmd.ModelCode)
	}
	if err := s.validateDefectStatus(cmd.DefectStatus); err != nil {
		return nil, err
	}

	template := domain.Barcode{
		Order:     strings.ToUpper(order),
		Process:   station,
		SKU:       sku,
		Container: strings.ToUpper(cmd.Container),
	}

	boxes, err := domain.SplitDispositions(domain.DispositionSplit{
		Template:   template,
		Capacity:   s.catalog.Capacity(cmd.Container),
		Quantities: cmd.Quantities,
		StatusFor:  s.catalog.StatusFor(cmd.DefectStatus),
	})
	if err != nil {
		return nil, err
	}

	now := s.clock()
	records := make([]*domain.ScanRecord, len(boxes))
	for i, box := range boxes {
		records[i] = domain.NewDispatchRecord(domain.ActionFirstStation, box, "", station, cmd.OperatorID, 0, now)
	}
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}

	s.recordBoxes(station, boxes)
	s.logger.Audit(ctx, "first_station", "order", template.Order, cmd.OperatorID, map[string]any{
		"stationId": station,
		"sku":       sku,
		"boxes":     len(boxes),
	})

	return &DispatchDTO{
		Action:      string(domain.ActionFirstStation),
		Order:       template.Order,
		SKU:         sku,
		StationID:   station,
		NextStation: s.catalog.NextStation(cmd.SeriesCode, station),
		Boxes:       ToBoxDTOs(boxes),
	}, nil
}

// Outbound reconciles the dispatched quantities against the order's received
// total here and mints the new boxes
func (s *ScanService) Outbound(ctx context.Context, cmd OutboundCommand) (*DispatchDTO, error) {
	start := s.clock()
	station := strings.ToUpper(cmd.StationID)

	dto, err := s.outbound(ctx, cmd, station)
	s.recordScan(ctx, domain.ActionOutbound, cmd.Barcode, station, start, err)
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

func (s *ScanService) outbound(ctx context.Context, cmd OutboundCommand, station string) (*DispatchDTO, error) {
	if err := s.validateStation(station); err != nil {
		return nil, err
	}

	bc, err := domain.DecodeBarcode(cmd.Barcode)
	if err != nil {
		return nil, err
	}
	if bc.SKU == "" {
		return nil, apperrors.ErrValidation("barcode carries no sku")
	}
	if err := cmd.Quantities.Validate(); err != nil {
		return nil, err
	}
	if err := s.validateDefectStatus(cmd.DefectStatus); err != nil {
		return nil, err
	}

	scanned := bc.Encode()
	expected := s.inboundTotal(ctx, bc.OrderKey(), station)
	rec, err := domain.ReconcileKnown(expected, cmd.Quantities)
	if err != nil {
		s.recordReconciliation(reconcileMismatch)
		return nil, err
	}
	if rec.Degraded {
		s.recordReconciliation(reconcileDegraded)
		s.logger.Degraded(ctx, "reconcile", "inbound total unknown", map[string]any{
			"order":     bc.Order,
			"stationId": station,
			"actual":    rec.Actual,
		})
		if s.metrics != nil {
			s.metrics.RecordDegraded("reconcile")
		}
	} else {
		s.recordReconciliation(reconcileOK)
	}

	template := bc
	template.Process = station
	template.Checksum = ""
	if cmd.Container != "" {
		template.Container = strings.ToUpper(cmd.Container)
	}

	boxes, err := domain.SplitDispositions(domain.DispositionSplit{
		Template:   template,
		Capacity:   s.catalog.Capacity(template.Container),
		Quantities: cmd.Quantities,
		StatusFor:  s.catalog.StatusFor(cmd.DefectStatus),
	})
	if err != nil {
		return nil, err
	}

	now := s.clock()
	cycleTime := s.cycleTime(ctx, scanned, station, now)
	records := make([]*domain.ScanRecord, len(boxes))
	for i, box := range boxes {
		records[i] = domain.NewDispatchRecord(domain.ActionOutbound, box, scanned, station, cmd.OperatorID, cycleTime, now)
	}
	if err := s.save(ctx, records); err != nil {
		return nil, err
	}

	s.recordBoxes(station, boxes)
	s.logger.Audit(ctx, "outbound", "box", scanned, cmd.OperatorID, map[string]any{
		"stationId": station,
		"boxes":     len(boxes),
		"degraded":  rec.Degraded,
	})

	return &DispatchDTO{
		Action:      string(domain.ActionOutbound),
		Order:       bc.Order,
		SKU:         bc.SKU,
		StationID:   station,
		NextStation: s.catalog.NextStation(bc.SeriesCode(), station),
		Boxes:       ToBoxDTOs(boxes),
		Reconciliation: &ReconciliationDTO{
			Expected: rec.Expected,
			Actual:   rec.Actual,
			Degraded: rec.Degraded,
		},
	}, nil
}

// cycleTime is the time since the box was received at the station, zero when unknown
func (s *ScanService) cycleTime(ctx context.Context, barcode, station string, now time.Time) time.Duration {
	receipt, err := guarded(ctx, s.breaker, func(ctx context.Context) (*domain.ScanRecord, error) {
		return s.ledger.FindLatestReceipt(ctx, barcode, station)
	})
	if err != nil {
		s.logger.WithError(err).Warn("Receipt lookup failed, cycle time unknown", "barcode", barcode, "stationId", station)
		return 0
	}
	if receipt == nil || now.Before(receipt.ScannedAt) {
		return 0
	}
	return now.Sub(receipt.ScannedAt)
}

// Inbound receives the selected boxes. Boxes already received here are not
// recorded again; when nothing new was received the scan is reclassified,
// which turns it into an outbound.
func (s *ScanService) Inbound(ctx context.Context, cmd InboundCommand) (*InboundResultDTO, error) {
	start := s.clock()
	station := strings.ToUpper(cmd.StationID)

	first := ""
	if len(cmd.Barcodes) > 0 {
		first = cmd.Barcodes[0]
	}

	dto, err := s.inbound(ctx, cmd, station)
	s.recordScan(ctx, domain.ActionInbound, first, station, start, err)
	if err != nil {
		return nil, toAppError(err)
	}
	return dto, nil
}

func (s *ScanService) inbound(ctx context.Context, cmd InboundCommand, station string) (*InboundResultDTO, error) {
	if len(cmd.Barcodes) == 0 {
		return nil, domain.ErrEmptyBatch
	}

	seen := make(map[string]bool, len(cmd.Barcodes))
	decoded := make([]domain.Barcode, 0, len(cmd.Barcodes))
	for _, raw := range cmd.Barcodes {
		bc, err := domain.DecodeBarcode(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %q", err, raw)
		}
		if code := bc.Encode(); !seen[code] {
			seen[code] = true
			decoded = append(decoded, bc)
		}
	}

	result := &InboundResultDTO{StationID: station, ReceivedBarcodes: []string{}}
	now := s.clock()
	var records []*domain.ScanRecord
	for _, bc := range decoded {
		series := bc.SeriesCode()
		if err := s.catalog.RouteFor(series).ValidateTransition(series, bc.Process, station); err != nil {
			return nil, err
		}

		code := bc.Encode()
		received, err := guarded(ctx, s.breaker, func(ctx context.Context) (bool, error) {
			return s.ledger.HasReceipt(ctx, code, station)
		})
		if err != nil {
			return nil, fmt.Errorf("failed to look up receipt: %w", err)
		}
		if received {
			result.AlreadyReceived = append(result.AlreadyReceived, code)
			continue
		}

		record, err := domain.NewReceiptRecord(bc, station, cmd.OperatorID, now)
		if err != nil {
			return nil, apperrors.ErrValidation(fmt.Sprintf("invalid quantity on %s", code)).Wrap(err)
		}
		records = append(records, record)
		result.ReceivedBarcodes = append(result.ReceivedBarcodes, code)
	}

	if len(records) > 0 {
		if err := s.save(ctx, records); err != nil {
			return nil, err
		}
	}
	result.Received = len(records)
	result.SuggestedAction = string(domain.ActionInbound)

	if result.Received == 0 {
		c, err := domain.Reclassify(domain.ScanContext{
			OperatorID: cmd.OperatorID,
			StationID:  station,
			RawScan:    result.AlreadyReceived[0],
		}, func(sc *domain.ScanContext) {
			sc.ReceivedHere = true
		})
		if err != nil {
			return nil, err
		}
		result.SuggestedAction = string(c.Action)
		result.SwitchToOutbound = c.Action == domain.ActionOutbound
		s.logger.WithStation(station, cmd.OperatorID).Info("Boxes already received, switching to outbound",
			"barcodes", result.AlreadyReceived)
	}

	return result, nil
}

// Trace returns the history and yield of the order a barcode belongs to
func (s *ScanService) Trace(ctx context.Context, query TraceQuery) (*TraceDTO, error) {
	bc, err := domain.DecodeBarcode(query.Barcode)
	if err != nil {
		return nil, toAppError(err)
	}

	records, err := guarded(ctx, s.breaker, func(ctx context.Context) ([]*domain.ScanRecord, error) {
		return s.ledger.FindByOrder(ctx, bc.OrderKey(), s.config.TraceLimit)
	})
	if err != nil {
		s.logger.Error("Failed to load order history", "order", bc.Order, "error", err)
		return nil, toAppError(fmt.Errorf("failed to load order history: %w", err))
	}

	dtos := make([]ScanRecordDTO, len(records))
	for i, r := range records {
		dtos[i] = ToScanRecordDTO(r)
	}

	return &TraceDTO{
		Order:      strings.ToUpper(bc.Order),
		SKU:        bc.SKU,
		Records:    dtos,
		Statistics: domain.ComputeYield(records, s.catalog.ConformingStatus),
	}, nil
}

// validateStation guards submissions that mint barcodes: the station becomes
// the process field of every new label.
func (s *ScanService) validateStation(station string) error {
	if !s.catalog.HasStation(station) {
		return fmt.Errorf("%w: %s", domain.ErrUnknownStation, station)
	}
	return nil
}

func (s *ScanService) validateDefectStatus(status string) error {
	if status != "" && !s.catalog.HasStatus(status) {
		return apperrors.ErrValidation(fmt.Sprintf("invalid status code: %s", status))
	}
	return nil
}

func (s *ScanService) save(ctx context.Context, records []*domain.ScanRecord) error {
	_, err := guarded(ctx, s.breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, s.ledger.Save(ctx, records...)
	})
	if err != nil {
		s.logger.Error("Failed to save scan records", "count", len(records), "error", err)
		return fmt.Errorf("failed to save scan records: %w", err)
	}
	return nil
}

func (s *ScanService) recordScan(ctx context.Context, action domain.WorkflowAction, barcode, station string, start time.Time, err error) {
	duration := s.clock().Sub(start)
	s.logger.Scan(ctx, string(action), barcode, station, duration, err)
	if s.metrics != nil {
		s.metrics.RecordScan(string(action), station, err == nil, duration)
	}
}

func (s *ScanService) recordBoxes(station string, boxes []domain.Box) {
	if s.metrics == nil {
		return
	}
	for _, b := range boxes {
		s.metrics.RecordBoxCreated(station, string(b.Disposition), b.Quantity)
	}
}

func (s *ScanService) recordReconciliation(result string) {
	if s.metrics != nil {
		s.metrics.RecordReconciliation(result)
	}
}

// guarded runs a ledger call through the breaker when one is configured
func guarded[T any](ctx context.Context, cb *resilience.CircuitBreaker, fn func(ctx context.Context) (T, error)) (T, error) {
	if cb == nil {
		return fn(ctx)
	}
	return resilience.Call(ctx, cb, fn)
}
