package application

import "github.com/wms-platform/box-tracking-service/internal/domain"

// ClassifyQuery asks which workflow a scan belongs to
type ClassifyQuery struct {
	Barcode     string
	StationID   string
	OperatorID  string
	TraceIntent bool
}

// PendingBoxesQuery lists the boxes of an order dispatched towards a station
// and not yet received there. Scanned, when set, is merged into the batch.
type PendingBoxesQuery struct {
	Order     string
	StationID string
	Scanned   string
}

// InboundQuantityQuery asks for an order's received total at a station
type InboundQuantityQuery struct {
	Order     string
	StationID string
}

// FirstStationCommand creates the first boxes of an order. Order may be left
// empty when Barcode carries a new-order scan.
type FirstStationCommand struct {
	OperatorID   string
	StationID    string
	Order        string
	Barcode      string
	SeriesCode   string
	ModelCode    string
	Container    string
	Quantities   domain.DispositionQuantities
	DefectStatus string
}

// OutboundCommand dispatches a received box as one or more new boxes
type OutboundCommand struct {
	OperatorID   string
	StationID    string
	Barcode      string
	Container    string // overrides the scanned container when set
	Quantities   domain.DispositionQuantities
	DefectStatus string
}

// InboundCommand receives the selected boxes at a station
type InboundCommand struct {
	OperatorID string
	StationID  string
	Barcodes   []string
}

// TraceQuery reads the history of the order a barcode belongs to
type TraceQuery struct {
	Barcode string
}
