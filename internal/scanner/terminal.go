package scanner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/box-tracking-service/internal/api/dto"
	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/internal/client"
	"github.com/wms-platform/box-tracking-service/internal/domain"
)

var (
	ErrNoScan           = errors.New("nothing scanned yet")
	ErrWrongWorkflow    = errors.New("current scan is in a different workflow")
	ErrNothingSelected  = errors.New("no boxes selected")
	ErrNoSuchCandidate  = errors.New("no such box in the batch")
	ErrTerminalShutdown = errors.New("terminal is shut down")
)

// API is the part of the box tracking API the terminal uses
type API interface {
	Classify(ctx context.Context, barcode, stationID string, trace bool) (*application.ClassificationDTO, error)
	PendingBoxes(ctx context.Context, order, stationID, scanned string) (*application.PendingBoxesDTO, error)
	FirstStation(ctx context.Context, req dto.FirstStationRequest, key string) (*application.DispatchDTO, error)
	Outbound(ctx context.Context, req dto.OutboundRequest, key string) (*application.DispatchDTO, error)
	Inbound(ctx context.Context, stationID string, barcodes []string, key string) (*application.InboundResultDTO, error)
	Trace(ctx context.Context, barcode string) (*application.TraceDTO, error)
}

// View renders terminal results
type View interface {
	Classified(c *application.ClassificationDTO)
	PendingBoxes(p *application.PendingBoxesDTO)
	Dispatched(d *application.DispatchDTO)
	Received(r *application.InboundResultDTO)
	Traced(t *application.TraceDTO)
	Failed(scan string, err error)
}

// Config configures a Terminal
type Config struct {
	StationID string
	Debounce  time.Duration
}

// FirstStationInput is what the operator enters to create an order's first boxes
type FirstStationInput struct {
	SeriesCode   string
	ModelCode    string
	Container    string
	DefectStatus string
	Quantities   dto.Quantities
}

// OutboundInput is what the operator enters to dispatch a received box
type OutboundInput struct {
	Container    string
	DefectStatus string
	Quantities   dto.Quantities
}

// Terminal is one station's scan terminal. Scanner input is debounced, then
// classified; the operator completes the suggested workflow with the submit
// methods. Submissions reuse their idempotency key until they succeed or are
// rejected, so retrying after a transient failure cannot record twice.
type Terminal struct {
	ctx       context.Context
	api       API
	view      View
	stationID string
	logger    *slog.Logger
	session   *Session
	debouncer *Debouncer

	mu      sync.Mutex
	current *application.ClassificationDTO
	pending *application.PendingBoxesDTO
	key     string
}

// NewTerminal creates a terminal. ctx bounds the lookups started from
// debounced input.
func NewTerminal(ctx context.Context, api API, view View, config Config, logger *slog.Logger) *Terminal {
	if logger == nil {
		logger = slog.Default()
	}
	window := config.Debounce
	if window <= 0 {
		window = DefaultDebounce
	}

	t := &Terminal{
		ctx:       ctx,
		api:       api,
		view:      view,
		stationID: strings.ToUpper(config.StationID),
		logger:    logger.With("station", strings.ToUpper(config.StationID)),
		session:   NewSession(),
	}
	t.debouncer = NewDebouncer(window, t.settled)
	return t
}

// StationID returns the station the terminal scans for
func (t *Terminal) StationID() string {
	return t.stationID
}

// Input feeds raw scanner input. Only the last of a burst is looked up.
func (t *Terminal) Input(scan string) {
	scan = strings.TrimSpace(scan)
	if scan == "" {
		return
	}
	t.debouncer.Push(scan)
}

// Settle looks up pending input now instead of waiting out the window
func (t *Terminal) Settle() bool {
	return t.debouncer.Flush()
}

// Close stops the terminal and cancels any in-flight lookup
func (t *Terminal) Close() {
	t.debouncer.Stop()
	t.session.Reset()
}

func (t *Terminal) settled(scan string) {
	if err := t.Lookup(t.ctx, scan, false); err != nil {
		t.view.Failed(scan, err)
	}
}

// Lookup classifies scan and loads what its workflow needs: the pending
// batch for inbound, the history for trace. A result that arrives after a
// newer scan is discarded.
func (t *Terminal) Lookup(ctx context.Context, scan string, trace bool) error {
	if t.ctx != nil && t.ctx.Err() != nil {
		return ErrTerminalShutdown
	}

	ctx, ticket := t.session.Begin(ctx, scan)
	defer t.session.Done(ticket)

	classification, err := t.api.Classify(ctx, scan, t.stationID, trace)
	if !t.session.Current(ticket) {
		t.logger.Debug("Discarded stale classification", "scan", scan)
		return nil
	}
	if err != nil {
		t.clear()
		return err
	}

	var pending *application.PendingBoxesDTO
	var history *application.TraceDTO
	switch domain.WorkflowAction(classification.SuggestedAction) {
	case domain.ActionInbound:
		pending, err = t.api.PendingBoxes(ctx, classification.Barcode.Order, t.stationID, classification.Barcode.Code)
	case domain.ActionTrace:
		history, err = t.api.Trace(ctx, classification.Barcode.Code)
	}
	if !t.session.Current(ticket) {
		t.logger.Debug("Discarded stale lookup", "scan", scan)
		return nil
	}
	if err != nil {
		t.clear()
		return err
	}

	t.mu.Lock()
	t.current = classification
	t.pending = pending
	t.key = ""
	t.mu.Unlock()

	t.logger.Info("Scan classified",
		"scan", scan,
		"action", classification.SuggestedAction,
		"fallback", classification.Fallback,
	)
	t.view.Classified(classification)
	if pending != nil {
		t.view.PendingBoxes(pending)
	}
	if history != nil {
		t.view.Traced(history)
	}
	return nil
}

// Current returns the classification the terminal is working on
func (t *Terminal) Current() *application.ClassificationDTO {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.current
}

// Batch returns the inbound batch of the current scan
func (t *Terminal) Batch() []application.BatchCandidateDTO {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.pending == nil {
		return nil
	}
	return append([]application.BatchCandidateDTO(nil), t.pending.Candidates...)
}

// Toggle flips the selection of the n-th (1-based) box of the inbound batch
func (t *Terminal) Toggle(n int) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.pending == nil {
		return ErrWrongWorkflow
	}
	if n < 1 || n > len(t.pending.Candidates) {
		return fmt.Errorf("%w: %d", ErrNoSuchCandidate, n)
	}
	t.pending.Candidates[n-1].Selected = !t.pending.Candidates[n-1].Selected
	t.key = ""
	return nil
}

// ReceiveSelected receives the selected boxes of the inbound batch
func (t *Terminal) ReceiveSelected(ctx context.Context) (*application.InboundResultDTO, error) {
	t.mu.Lock()
	if err := t.expect(domain.ActionInbound); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	var barcodes []string
	if t.pending != nil {
		for _, c := range t.pending.Candidates {
			if c.Selected {
				barcodes = append(barcodes, c.Barcode)
			}
		}
	}
	if len(barcodes) == 0 {
		t.mu.Unlock()
		return nil, ErrNothingSelected
	}
	key := t.submissionKey()
	t.mu.Unlock()

	result, err := t.api.Inbound(ctx, t.stationID, barcodes, key)
	if err != nil {
		t.submissionFailed(err)
		return nil, err
	}

	t.mu.Lock()
	t.key = ""
	t.pending = nil
	if result.SwitchToOutbound && t.current != nil {
		t.current.SuggestedAction = string(domain.ActionOutbound)
	} else {
		t.current = nil
	}
	t.mu.Unlock()

	t.logger.Info("Boxes received", "received", result.Received, "alreadyReceived", len(result.AlreadyReceived))
	t.view.Received(result)
	return result, nil
}

// Dispatch sends the current box on with the entered quantities
func (t *Terminal) Dispatch(ctx context.Context, input OutboundInput) (*application.DispatchDTO, error) {
	t.mu.Lock()
	if err := t.expect(domain.ActionOutbound); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	req := dto.OutboundRequest{
		Barcode:          t.current.Barcode.Code,
		CurrentStationID: t.stationID,
		Container:        strings.ToUpper(input.Container),
		DefectStatus:     strings.ToUpper(input.DefectStatus),
		Quantities:       input.Quantities,
	}
	key := t.submissionKey()
	t.mu.Unlock()

	result, err := t.api.Outbound(ctx, req, key)
	if err != nil {
		t.submissionFailed(err)
		return nil, err
	}
	t.completed()

	t.logger.Info("Boxes dispatched", "order", result.Order, "boxes", len(result.Boxes))
	t.view.Dispatched(result)
	return result, nil
}

// CreateFirst creates the first boxes of the scanned order
func (t *Terminal) CreateFirst(ctx context.Context, input FirstStationInput) (*application.DispatchDTO, error) {
	t.mu.Lock()
	if err := t.expect(domain.ActionFirstStation); err != nil {
		t.mu.Unlock()
		return nil, err
	}
	req := dto.FirstStationRequest{
		Barcode:          t.current.Barcode.Code,
		CurrentStationID: t.stationID,
		SeriesCode:       strings.ToUpper(input.SeriesCode),
		ModelCode:        strings.ToUpper(input.ModelCode),
		Container:        strings.ToUpper(input.Container),
		DefectStatus:     strings.ToUpper(input.DefectStatus),
		Quantities:       input.Quantities,
	}
	key := t.submissionKey()
	t.mu.Unlock()

	result, err := t.api.FirstStation(ctx, req, key)
	if err != nil {
		t.submissionFailed(err)
		return nil, err
	}
	t.completed()

	t.logger.Info("First boxes created", "order", result.Order, "boxes", len(result.Boxes))
	t.view.Dispatched(result)
	return result, nil
}

// expect requires the lock
func (t *Terminal) expect(action domain.WorkflowAction) error {
	if t.current == nil {
		return ErrNoScan
	}
	if domain.WorkflowAction(t.current.SuggestedAction) != action {
		return fmt.Errorf("%w: %s, not %s", ErrWrongWorkflow, t.current.SuggestedAction, action)
	}
	return nil
}

// submissionKey requires the lock
func (t *Terminal) submissionKey() string {
	if t.key == "" {
		t.key = uuid.New().String()
	}
	return t.key
}

func (t *Terminal) submissionFailed(err error) {
	if client.IsTransient(err) {
		t.logger.Warn("Submission failed, retry keeps the same key", "error", err)
		return
	}
	t.mu.Lock()
	t.key = ""
	t.mu.Unlock()
}

func (t *Terminal) completed() {
	t.clear()
	t.session.Reset()
}

func (t *Terminal) clear() {
	t.mu.Lock()
	t.current = nil
	t.pending = nil
	t.key = ""
	t.mu.Unlock()
}
