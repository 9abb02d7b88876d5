package domain

import "time"

// DomainEvent represents a domain event interface
type DomainEvent interface {
	EventType() string
	OccurredAt() time.Time
}

// Event types
const (
	EventTypeBoxCreated    = "wms.traceability.box-created"
	EventTypeBoxDispatched = "wms.traceability.box-dispatched"
	EventTypeBoxReceived   = "wms.traceability.box-received"
)

// BoxCreatedEvent is emitted for every box minted at the first station of an order
type BoxCreatedEvent struct {
	RecordID    string    `json:"recordId"`
	Order       string    `json:"order"`
	SKU         string    `json:"sku"`
	StationID   string    `json:"stationId"`
	Barcode     string    `json:"barcode"`
	BoxSeq      string    `json:"boxSeq"`
	Quantity    int       `json:"quantity"`
	Disposition string    `json:"disposition"`
	OperatorID  string    `json:"operatorId"`
	CreatedAt   time.Time `json:"createdAt"`
}

func (e *BoxCreatedEvent) EventType() string     { return EventTypeBoxCreated }
func (e *BoxCreatedEvent) OccurredAt() time.Time { return e.CreatedAt }

// BoxDispatchedEvent is emitted for every box minted on outbound
type BoxDispatchedEvent struct {
	RecordID       string    `json:"recordId"`
	Order          string    `json:"order"`
	StationID      string    `json:"stationId"`
	ScannedBarcode string    `json:"scannedBarcode"`
	Barcode        string    `json:"barcode"`
	BoxSeq         string    `json:"boxSeq"`
	Quantity       int       `json:"quantity"`
	Disposition    string    `json:"disposition"`
	CycleTimeSecs  int64     `json:"cycleTimeSeconds"`
	OperatorID     string    `json:"operatorId"`
	DispatchedAt   time.Time `json:"dispatchedAt"`
}

func (e *BoxDispatchedEvent) EventType() string     { return EventTypeBoxDispatched }
func (e *BoxDispatchedEvent) OccurredAt() time.Time { return e.DispatchedAt }

// BoxReceivedEvent is emitted when a box is received at a station
type BoxReceivedEvent struct {
	RecordID    string    `json:"recordId"`
	Order       string    `json:"order"`
	StationID   string    `json:"stationId"`
	Barcode     string    `json:"barcode"`
	FromStation string    `json:"fromStation"`
	Quantity    int       `json:"quantity"`
	Status      string    `json:"status"`
	OperatorID  string    `json:"operatorId"`
	ReceivedAt  time.Time `json:"receivedAt"`
}

func (e *BoxReceivedEvent) EventType() string     { return EventTypeBoxReceived }
func (e *BoxReceivedEvent) OccurredAt() time.Time { return e.ReceivedAt }
