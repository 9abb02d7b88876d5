package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// ScanDirection records whether a box entered or left a station.
type ScanDirection string

const (
	DirectionIn  ScanDirection = "IN"
	DirectionOut ScanDirection = "OUT"
)

// ScanRecord is one ledger line: a box received at or dispatched from a station.
type ScanRecord struct {
	RecordID         string         `bson:"recordId" json:"recordId"`
	Direction        ScanDirection  `bson:"direction" json:"direction"`
	Action           WorkflowAction `bson:"action" json:"action"`
	OperatorID       string         `bson:"operatorId" json:"operatorId"`
	Order            string         `bson:"order" json:"order"`
	OrderKey         string         `bson:"orderKey" json:"-"`
	StationID        string         `bson:"stationId" json:"stationId"`
	SKU              string         `bson:"sku" json:"sku"`
	Container        string         `bson:"container" json:"container"`
	BoxSeq           string         `bson:"boxSeq" json:"boxSeq"`
	Quantity         int            `bson:"quantity" json:"quantity"`
	Status           string         `bson:"status" json:"status"`
	Disposition      Disposition    `bson:"disposition,omitempty" json:"disposition,omitempty"`
	CycleTimeSeconds int64          `bson:"cycleTimeSeconds" json:"cycleTimeSeconds"`
	ScannedBarcode   string         `bson:"scannedBarcode,omitempty" json:"scannedBarcode,omitempty"`
	NewBarcode       string         `bson:"newBarcode,omitempty" json:"newBarcode,omitempty"`
	ScannedAt        time.Time      `bson:"scannedAt" json:"scannedAt"`

	DomainEvents []DomainEvent `bson:"-" json:"-"`
}

// NewReceiptRecord records a box received at a station.
func NewReceiptRecord(bc Barcode, stationID, operatorID string, at time.Time) (*ScanRecord, error) {
	qty, err := bc.Quantity()
	if err != nil {
		return nil, err
	}

	code := bc.Encode()
	r := &ScanRecord{
		RecordID:       uuid.New().String(),
		Direction:      DirectionIn,
		Action:         ActionInbound,
		OperatorID:     operatorID,
		Order:          bc.Order,
		OrderKey:       bc.OrderKey(),
		StationID:      strings.ToUpper(stationID),
		SKU:            bc.SKU,
		Container:      bc.Container,
		BoxSeq:         bc.BoxSeq,
		Quantity:       qty,
		Status:         bc.Status,
		ScannedBarcode: code,
		ScannedAt:      at.UTC(),
	}

	r.addDomainEvent(&BoxReceivedEvent{
		RecordID:    r.RecordID,
		Order:       r.Order,
		StationID:   r.StationID,
		Barcode:     code,
		FromStation: bc.Process,
		Quantity:    qty,
		Status:      r.Status,
		OperatorID:  operatorID,
		ReceivedAt:  r.ScannedAt,
	})
	return r, nil
}

// NewDispatchRecord records a freshly minted box leaving a station. scanned is
// the barcode that was consumed, empty for first-station creation.
func NewDispatchRecord(action WorkflowAction, box Box, scanned, stationID, operatorID string, cycleTime time.Duration, at time.Time) *ScanRecord {
	code := box.Code()
	r := &ScanRecord{
		RecordID:         uuid.New().String(),
		Direction:        DirectionOut,
		Action:           action,
		OperatorID:       operatorID,
		Order:            box.Barcode.Order,
		OrderKey:         box.Barcode.OrderKey(),
		StationID:        strings.ToUpper(stationID),
		SKU:              box.Barcode.SKU,
		Container:        box.Barcode.Container,
		BoxSeq:           box.SeqCode,
		Quantity:         box.Quantity,
		Status:           box.Barcode.Status,
		Disposition:      box.Disposition,
		CycleTimeSeconds: int64(cycleTime / time.Second),
		ScannedBarcode:   scanned,
		NewBarcode:       code,
		ScannedAt:        at.UTC(),
	}

	if action == ActionFirstStation {
		r.addDomainEvent(&BoxCreatedEvent{
			RecordID:    r.RecordID,
			Order:       r.Order,
			SKU:         r.SKU,
			StationID:   r.StationID,
			Barcode:     code,
			BoxSeq:      r.BoxSeq,
			Quantity:    r.Quantity,
			Disposition: string(r.Disposition),
			OperatorID:  operatorID,
			CreatedAt:   r.ScannedAt,
		})
		return r
	}

	r.addDomainEvent(&BoxDispatchedEvent{
		RecordID:       r.RecordID,
		Order:          r.Order,
		StationID:      r.StationID,
		ScannedBarcode: scanned,
		Barcode:        code,
		BoxSeq:         r.BoxSeq,
		Quantity:       r.Quantity,
		Disposition:    string(r.Disposition),
		CycleTimeSecs:  r.CycleTimeSeconds,
		OperatorID:     operatorID,
		DispatchedAt:   r.ScannedAt,
	})
	return r
}

// Barcode returns the code this record is about: the minted one for dispatches.
func (r *ScanRecord) Barcode() string {
	if r.Direction == DirectionOut {
		return r.NewBarcode
	}
	return r.ScannedBarcode
}

// IsConforming reports whether the record's status is the conforming status
func (r *ScanRecord) IsConforming(conformingStatus string) bool {
	return strings.EqualFold(r.Status, conformingStatus)
}

func (r *ScanRecord) addDomainEvent(event DomainEvent) {
	r.DomainEvents = append(r.DomainEvents, event)
}

// GetDomainEvents returns all pending domain events
func (r *ScanRecord) GetDomainEvents() []DomainEvent {
	return r.DomainEvents
}

// ClearDomainEvents clears all pending domain events
func (r *ScanRecord) ClearDomainEvents() {
	r.DomainEvents = nil
}
