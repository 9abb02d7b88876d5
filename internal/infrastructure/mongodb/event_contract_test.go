package mongodb

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	"github.com/wms-platform/box-tracking-service/pkg/cloudevents"
	"github.com/wms-platform/box-tracking-service/pkg/contracts/asyncapi"
	"github.com/wms-platform/box-tracking-service/pkg/kafka"
)

func loadEventValidator(t *testing.T) *asyncapi.EventValidator {
	t.Helper()
	specPath := filepath.Join("..", "..", "..", "api", "asyncapi.yaml")
	if _, err := os.Stat(specPath); os.IsNotExist(err) {
		t.Skipf("AsyncAPI spec not found at %s", specPath)
	}
	validator, err := asyncapi.NewEventValidator(specPath)
	require.NoError(t, err)
	return validator
}

func contractRecords(t *testing.T) []*domain.ScanRecord {
	t.Helper()
	at := time.Date(2025, 11, 19, 8, 30, 0, 0, time.UTC)

	good, bad := 60, 5
	boxes, err := domain.SplitDispositions(domain.DispositionSplit{
		Template:   domain.Barcode{Order: "25111901", Process: "P1", SKU: "AC350", Container: "B1"},
		Capacity:   50,
		Quantities: domain.DispositionQuantities{Good: &good, Bad: &bad},
		StatusFor: func(d domain.Disposition) string {
			if d == domain.DispositionGood {
				return "G"
			}
			return "N"
		},
	})
	require.NoError(t, err)
	require.Len(t, boxes, 3)

	created := domain.NewDispatchRecord(domain.ActionFirstStation, boxes[0], "", "P1", "op-7", 0, at)

	received, err := domain.NewReceiptRecord(boxes[0].Barcode, "P2", "op-8", at.Add(time.Hour))
	require.NoError(t, err)

	next := boxes[0]
	next.Barcode.Process = "P2"
	next.Barcode = next.Barcode.WithChecksum()
	dispatched := domain.NewDispatchRecord(domain.ActionOutbound, next, boxes[0].Code(), "P2", "op-8", 90*time.Second, at.Add(2*time.Hour))

	return []*domain.ScanRecord{created, received, dispatched}
}

func TestScanLedgerEvents_MatchAsyncAPIContract(t *testing.T) {
	validator := loadEventValidator(t)
	assert.Equal(t, []string{
		cloudevents.BoxCreated,
		cloudevents.BoxDispatched,
		cloudevents.BoxReceived,
	}, validator.EventTypes())

	repo := &ScanLedgerRepository{eventFactory: cloudevents.NewEventFactory(cloudevents.SourceBoxTracking)}
	events, err := repo.outboxEvents(context.Background(), contractRecords(t))
	require.NoError(t, err)
	require.Len(t, events, 3)

	seen := make(map[string]bool)
	for _, event := range events {
		assert.Equal(t, kafka.Topics.TraceabilityEvents, event.Topic)
		assert.Equal(t, "ScanRecord", event.AggregateType)
		assert.NoError(t, validator.ValidateEventJSON(event.Payload), event.EventType)
		seen[event.EventType] = true
	}
	assert.Len(t, seen, 3)
}

func TestScanLedgerEvents_RejectIncompletePayload(t *testing.T) {
	validator := loadEventValidator(t)

	event := cloudevents.NewEventFactory(cloudevents.SourceBoxTracking).
		CreateEvent(context.Background(), cloudevents.BoxReceived, "25111901", map[string]interface{}{"order": "25111901"})
	payload, err := json.Marshal(event)
	require.NoError(t, err)

	assert.Error(t, validator.ValidateEventJSON(payload))
}
