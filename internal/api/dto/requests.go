package dto

import "github.com/wms-platform/box-tracking-service/internal/domain"

// Scan intents a classify request may carry
const (
	IntentScan  = "scan"
	IntentTrace = "trace"
)

// ClassifyRequest asks which workflow a scan belongs to
type ClassifyRequest struct {
	Barcode          string `json:"barcode" binding:"required,barcode"`
	CurrentStationID string `json:"currentStationId" binding:"required,station_code"`
	OperatorID       string `json:"operatorId" binding:"omitempty,operator_id"`
	Intent           string `json:"intent" binding:"omitempty,oneof=scan trace"`
}

// PendingBoxesParams are the query parameters of the pending-boxes lookup
type PendingBoxesParams struct {
	StationID string `form:"stationId" binding:"required,station_code"`
	Scanned   string `form:"scanned" binding:"omitempty,barcode"`
}

// InboundQuantityParams are the query parameters of the inbound-quantity lookup
type InboundQuantityParams struct {
	StationID string `form:"stationId" binding:"required,station_code"`
}

// Quantities are the per-disposition quantities of a dispatch
type Quantities struct {
	GoodQty *int `json:"goodQty" binding:"omitempty,gte=0,lte=999999"`
	BadQty  *int `json:"badQty" binding:"omitempty,gte=0,lte=999999"`
}

// ToDomain converts to the domain quantities
func (q Quantities) ToDomain() domain.DispositionQuantities {
	return domain.DispositionQuantities{Good: q.GoodQty, Bad: q.BadQty}
}

// FirstStationRequest creates the first boxes of an order. Either order or
// a new-order barcode must be given.
type FirstStationRequest struct {
	Order            string `json:"order" binding:"omitempty,alphanum,max=8"`
	Barcode          string `json:"barcode" binding:"omitempty,barcode"`
	OperatorID       string `json:"operatorId" binding:"required,operator_id"`
	CurrentStationID string `json:"currentStationId" binding:"required,station_code"`
	SeriesCode       string `json:"seriesCode" binding:"required,series_code"`
	ModelCode        string `json:"modelCode" binding:"required,alphanum,max=3"`
	Container        string `json:"container" binding:"required,alphanum,max=2"`
	DefectStatus     string `json:"defectStatus" binding:"omitempty,status_code"`
	Quantities
}

// OutboundRequest dispatches a received box
type OutboundRequest struct {
	Barcode          string `json:"barcode" binding:"required,barcode"`
	OperatorID       string `json:"operatorId" binding:"required,operator_id"`
	CurrentStationID string `json:"currentStationId" binding:"required,station_code"`
	Container        string `json:"container" binding:"omitempty,alphanum,max=2"`
	DefectStatus     string `json:"defectStatus" binding:"omitempty,status_code"`
	Quantities
}

// InboundRequest receives the selected boxes
type InboundRequest struct {
	Barcodes         []string `json:"barcodes" binding:"required,min=1,max=99,dive,barcode"`
	OperatorID       string   `json:"operatorId" binding:"required,operator_id"`
	CurrentStationID string   `json:"currentStationId" binding:"required,station_code"`
}

// TraceRequest reads an order's history by one of its barcodes
type TraceRequest struct {
	Barcode string `json:"barcode" binding:"required,barcode"`
}
