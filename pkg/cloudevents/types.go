package cloudevents

import "time"

// Event types for box traceability
const (
	BoxCreated    = "wms.traceability.box-created"
	BoxDispatched = "wms.traceability.box-dispatched"
	BoxReceived   = "wms.traceability.box-received"
)

// SourceBoxTracking is the source attribute of every event this service emits
const SourceBoxTracking = "/wms/box-tracking-service"

// SpecVersion is the CloudEvents version produced
const SpecVersion = "1.0"

// WMSCloudEvent represents a CloudEvents v1.0 compliant event
type WMSCloudEvent struct {
	SpecVersion     string      `json:"specversion"`
	Type            string      `json:"type"`
	Source          string      `json:"source"`
	Subject         string      `json:"subject,omitempty"`
	ID              string      `json:"id"`
	Time            time.Time   `json:"time"`
	DataContentType string      `json:"datacontenttype"`
	Data            interface{} `json:"data"`

	// WMS extensions
	CorrelationID string `json:"wmscorrelationid,omitempty"`
	StationID     string `json:"wmsstationid,omitempty"`
	OrderID       string `json:"wmsorderid,omitempty"`

	// W3C trace context
	TraceParent string `json:"traceparent,omitempty"`
	TraceState  string `json:"tracestate,omitempty"`
}

// Subject returns the subject for events about one box of an order
func Subject(order, barcode string) string {
	return "order/" + order + "/box/" + barcode
}
