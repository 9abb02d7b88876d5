package domain

import "errors"

// WorkflowAction is the action a scan resolves to.
type WorkflowAction string

const (
	ActionFirstStation WorkflowAction = "first_station"
	ActionInbound      WorkflowAction = "inbound"
	ActionOutbound     WorkflowAction = "outbound"
	ActionTrace        WorkflowAction = "trace"
)

// IsValid checks if the action is a known value
func (a WorkflowAction) IsValid() bool {
	switch a {
	case ActionFirstStation, ActionInbound, ActionOutbound, ActionTrace:
		return true
	}
	return false
}

// ScanContext carries everything one classification needs. It is built per call and discarded.
type ScanContext struct {
	OperatorID string
	StationID  string
	RawScan    string

	// TraceIntent is set when the caller only wants to read history.
	TraceIntent bool

	// ReceivedHere: the barcode already has a receipt record at StationID.
	ReceivedHere bool

	// OrderSeenElsewhere: the order has history at a station other than StationID.
	OrderSeenElsewhere bool

	// ReceivedQuantity is the order's cumulative received quantity at StationID, nil when unknown.
	ReceivedQuantity *int
}

// Classification is the outcome of classifying one scan.
type Classification struct {
	Action  WorkflowAction
	Barcode Barcode

	// Fallback is true when the action came from the caller's fallback policy, not the decision table.
	Fallback bool
}

// Classify decides the workflow action for a scan.
//
// Precedence: trace intent, ZZ process, receipt at this station, history elsewhere.
// Anything else is ErrUnknownContext. A scan that cannot be decoded fails with
// ErrMalformedBarcode regardless of intent.
func Classify(sc ScanContext) (Classification, error) {
	bc, err := DecodeBarcode(sc.RawScan)
	if err != nil {
		return Classification{}, err
	}

	action, err := classifyDecoded(bc, sc)
	if err != nil {
		return Classification{Barcode: bc}, err
	}
	return Classification{Action: action, Barcode: bc}, nil
}

func classifyDecoded(bc Barcode, sc ScanContext) (WorkflowAction, error) {
	switch {
	case sc.TraceIntent:
		return ActionTrace, nil
	case bc.IsNewOrder():
		return ActionFirstStation, nil
	case sc.ReceivedHere:
		return ActionOutbound, nil
	case sc.OrderSeenElsewhere:
		return ActionInbound, nil
	default:
		return "", ErrUnknownContext
	}
}

// ClassifyWithFallback applies the conservative caller policy of treating an
// unknown context as an inbound receipt. Decode failures are still returned.
func ClassifyWithFallback(sc ScanContext) (Classification, error) {
	c, err := Classify(sc)
	if errors.Is(err, ErrUnknownContext) {
		return Classification{Action: ActionInbound, Barcode: c.Barcode, Fallback: true}, nil
	}
	return c, err
}

// Reclassify runs the decision table again after the facts of a scan changed,
// for example when an inbound submission finds the box already received here.
func Reclassify(sc ScanContext, update func(*ScanContext)) (Classification, error) {
	if update != nil {
		update(&sc)
	}
	return Classify(sc)
}
