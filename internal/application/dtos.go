package application

import (
	"time"

	"github.com/wms-platform/box-tracking-service/internal/domain"
)

// BarcodeDTO represents the decoded fields of a barcode
type BarcodeDTO struct {
	Code      string `json:"code"`
	Order     string `json:"order"`
	Process   string `json:"process"`
	SKU       string `json:"sku"`
	Container string `json:"container"`
	BoxSeq    string `json:"boxSeq"`
	Status    string `json:"status"`
	Qty       string `json:"qty"`
}

// ClassificationDTO is the suggested workflow for a scan
type ClassificationDTO struct {
	SuggestedAction  string      `json:"suggestedAction"`
	Fallback         bool        `json:"fallback"`
	Barcode          BarcodeDTO  `json:"barcode"`
	StationID        string      `json:"stationId"`
	OrderFacts       *OrderFacts `json:"orderFacts,omitempty"`
	NextStation      string      `json:"nextStation,omitempty"`
	ReceivedQuantity *int        `json:"receivedQuantity,omitempty"`
}

// OrderFacts are the ledger facts a classification was decided on
type OrderFacts struct {
	ReceivedHere       bool `json:"receivedHere"`
	OrderSeenElsewhere bool `json:"orderSeenElsewhere"`
}

// PendingBoxesDTO lists the boxes awaiting receipt, all selected by default
type PendingBoxesDTO struct {
	Order      string              `json:"order"`
	StationID  string              `json:"stationId"`
	Candidates []BatchCandidateDTO `json:"candidates"`
}

// BatchCandidateDTO is one box an operator may confirm
type BatchCandidateDTO struct {
	Barcode   string `json:"barcode"`
	Process   string `json:"process"`
	Container string `json:"container"`
	BoxSeq    string `json:"boxSeq"`
	Qty       string `json:"qty"`
	Status    string `json:"status"`
	Selected  bool   `json:"selected"`
}

// InboundQuantityDTO is an order's received total at a station
type InboundQuantityDTO struct {
	Order           string `json:"order"`
	StationID       string `json:"stationId"`
	TotalInboundQty int    `json:"totalInboundQty"`
	Known           bool   `json:"known"`
}

// BoxDTO represents a minted box
type BoxDTO struct {
	Number      int    `json:"number"`
	Barcode     string `json:"barcode"`
	BoxSeq      string `json:"boxSeq"`
	Disposition string `json:"disposition"`
	Status      string `json:"status"`
	Quantity    int    `json:"quantity"`
}

// ReconciliationDTO reports how the dispatched quantity was checked
type ReconciliationDTO struct {
	Expected *int `json:"expected,omitempty"`
	Actual   int  `json:"actual"`
	Degraded bool `json:"degraded"`
}

// DispatchDTO is the response to a first-station or outbound submission
type DispatchDTO struct {
	Action         string             `json:"action"`
	Order          string             `json:"order"`
	SKU            string             `json:"sku"`
	StationID      string             `json:"stationId"`
	NextStation    string             `json:"nextStation,omitempty"`
	Boxes          []BoxDTO           `json:"boxes"`
	Reconciliation *ReconciliationDTO `json:"reconciliation,omitempty"`
}

// InboundResultDTO is the response to an inbound submission
type InboundResultDTO struct {
	StationID        string   `json:"stationId"`
	Received         int      `json:"received"`
	ReceivedBarcodes []string `json:"receivedBarcodes"`
	AlreadyReceived  []string `json:"alreadyReceived,omitempty"`
	SwitchToOutbound bool     `json:"switchToOutbound"`
	SuggestedAction  string   `json:"suggestedAction"`
}

// ScanRecordDTO represents one ledger line
type ScanRecordDTO struct {
	RecordID         string    `json:"recordId"`
	Direction        string    `json:"direction"`
	Action           string    `json:"action"`
	OperatorID       string    `json:"operatorId"`
	Order            string    `json:"order"`
	StationID        string    `json:"stationId"`
	SKU              string    `json:"sku"`
	Container        string    `json:"container"`
	BoxSeq           string    `json:"boxSeq"`
	Quantity         int       `json:"quantity"`
	Status           string    `json:"status"`
	CycleTimeSeconds int64     `json:"cycleTimeSeconds"`
	ScannedBarcode   string    `json:"scannedBarcode,omitempty"`
	NewBarcode       string    `json:"newBarcode,omitempty"`
	ScannedAt        time.Time `json:"scannedAt"`
}

// TraceDTO is an order's history with its yield statistics
type TraceDTO struct {
	Order      string                 `json:"order"`
	SKU        string                 `json:"sku"`
	Records    []ScanRecordDTO        `json:"records"`
	Statistics domain.YieldStatistics `json:"statistics"`
}

// ToBarcodeDTO converts a decoded barcode
func ToBarcodeDTO(bc domain.Barcode) BarcodeDTO {
	return BarcodeDTO{
		Code:      bc.Encode(),
		Order:     bc.Order,
		Process:   bc.Process,
		SKU:       bc.SKU,
		Container: bc.Container,
		BoxSeq:    bc.BoxSeq,
		Status:    bc.Status,
		Qty:       bc.Qty,
	}
}

// ToBoxDTOs converts minted boxes
func ToBoxDTOs(boxes []domain.Box) []BoxDTO {
	dtos := make([]BoxDTO, len(boxes))
	for i, b := range boxes {
		dtos[i] = BoxDTO{
			Number:      b.Number,
			Barcode:     b.Code(),
			BoxSeq:      b.SeqCode,
			Disposition: string(b.Disposition),
			Status:      b.Barcode.Status,
			Quantity:    b.Quantity,
		}
	}
	return dtos
}

// ToBatchCandidateDTOs converts a batch selection
func ToBatchCandidateDTOs(candidates []domain.BatchCandidate) []BatchCandidateDTO {
	dtos := make([]BatchCandidateDTO, len(candidates))
	for i, c := range candidates {
		dtos[i] = BatchCandidateDTO{
			Barcode:   c.Code,
			Process:   c.Barcode.Process,
			Container: c.Barcode.Container,
			BoxSeq:    c.Barcode.BoxSeq,
			Qty:       c.Barcode.Qty,
			Status:    c.Barcode.Status,
			Selected:  c.Selected,
		}
	}
	return dtos
}

// ToScanRecordDTO converts a ledger record
func ToScanRecordDTO(r *domain.ScanRecord) ScanRecordDTO {
	return ScanRecordDTO{
		RecordID:         r.RecordID,
		Direction:        string(r.Direction),
		Action:           string(r.Action),
		OperatorID:       r.OperatorID,
		Order:            r.Order,
		StationID:        r.StationID,
		SKU:              r.SKU,
		Container:        r.Container,
		BoxSeq:           r.BoxSeq,
		Quantity:         r.Quantity,
		Status:           r.Status,
		CycleTimeSeconds: r.CycleTimeSeconds,
		ScannedBarcode:   r.ScannedBarcode,
		NewBarcode:       r.NewBarcode,
		ScannedAt:        r.ScannedAt,
	}
}
