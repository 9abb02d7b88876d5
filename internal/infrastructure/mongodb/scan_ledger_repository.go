package mongodb

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	"github.com/wms-platform/box-tracking-service/pkg/cloudevents"
	"github.com/wms-platform/box-tracking-service/pkg/kafka"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/metrics"
	pkgmongo "github.com/wms-platform/box-tracking-service/pkg/mongodb"
	"github.com/wms-platform/box-tracking-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/box-tracking-service/pkg/outbox/mongodb"
)

// ScanRecordsCollection holds one document per ledger line
const ScanRecordsCollection = "scan_records"

// ScanLedgerRepository implements domain.ScanLedger on MongoDB. Records and
// their events are written in one transaction through the outbox.
type ScanLedgerRepository struct {
	db           *mongo.Database
	collection   *pkgmongo.InstrumentedCollection
	outboxRepo   *outboxMongo.OutboxRepository
	eventFactory *cloudevents.EventFactory
}

// NewScanLedgerRepository creates the repository. m and logger may be nil.
func NewScanLedgerRepository(db *mongo.Database, eventFactory *cloudevents.EventFactory, m *metrics.Metrics, logger *logging.Logger) *ScanLedgerRepository {
	return &ScanLedgerRepository{
		db:           db,
		collection:   pkgmongo.NewInstrumentedCollection(db.Collection(ScanRecordsCollection), m, logger),
		outboxRepo:   outboxMongo.NewOutboxRepository(db),
		eventFactory: eventFactory,
	}
}

// EnsureIndexes creates the ledger and outbox indexes
func (r *ScanLedgerRepository) EnsureIndexes(ctx context.Context) error {
	indexes := []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "recordId", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("idx_recordId"),
		},
		{
			Keys:    bson.D{{Key: "orderKey", Value: 1}, {Key: "scannedAt", Value: 1}},
			Options: options.Index().SetName("idx_order_time"),
		},
		{
			Keys:    bson.D{{Key: "scannedBarcode", Value: 1}, {Key: "stationId", Value: 1}, {Key: "direction", Value: 1}},
			Options: options.Index().SetName("idx_barcode_station_direction"),
		},
		{
			Keys:    bson.D{{Key: "orderKey", Value: 1}, {Key: "stationId", Value: 1}, {Key: "direction", Value: 1}},
			Options: options.Index().SetName("idx_order_station_direction"),
		},
	}
	if err := r.collection.CreateIndexes(ctx, indexes); err != nil {
		return fmt.Errorf("failed to create scan record indexes: %w", err)
	}
	return r.outboxRepo.EnsureIndexes(ctx)
}

// Outbox returns the outbox repository the relay publishes from
func (r *ScanLedgerRepository) Outbox() outbox.Repository {
	return r.outboxRepo
}

// Save inserts the records and their domain events in one transaction
func (r *ScanLedgerRepository) Save(ctx context.Context, records ...*domain.ScanRecord) error {
	if len(records) == 0 {
		return nil
	}

	session, err := r.db.Client().StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		docs := make([]interface{}, len(records))
		for i, rec := range records {
			docs[i] = rec
		}
		if _, err := r.collection.InsertMany(sessCtx, docs); err != nil {
			return nil, fmt.Errorf("failed to save scan records: %w", err)
		}

		events, err := r.outboxEvents(sessCtx, records)
		if err != nil {
			return nil, err
		}
		if err := r.outboxRepo.SaveAll(sessCtx, events); err != nil {
			return nil, err
		}
		return nil, nil
	})
	if err != nil {
		return fmt.Errorf("transaction failed: %w", err)
	}

	for _, rec := range records {
		rec.ClearDomainEvents()
	}
	return nil
}

// outboxEvents wraps the pending domain events of records as CloudEvents
// bound for the traceability topic
func (r *ScanLedgerRepository) outboxEvents(ctx context.Context, records []*domain.ScanRecord) ([]*outbox.OutboxEvent, error) {
	var events []*outbox.OutboxEvent
	for _, rec := range records {
		for _, event := range rec.GetDomainEvents() {
			ce := r.eventFactory.CreateBoxEvent(ctx, event.EventType(), rec.Order, rec.StationID, rec.Barcode(), event)
			oe, err := outbox.NewOutboxEventFromCloudEvent(rec.RecordID, "ScanRecord", kafka.Topics.TraceabilityEvents, ce)
			if err != nil {
				return nil, fmt.Errorf("failed to create outbox event: %w", err)
			}
			events = append(events, oe)
		}
	}
	return events, nil
}

// HasReceipt reports whether the barcode has an IN record at the station
func (r *ScanLedgerRepository) HasReceipt(ctx context.Context, barcode, stationID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"scannedBarcode": barcode,
		"stationId":      strings.ToUpper(stationID),
		"direction":      domain.DirectionIn,
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check receipt: %w", err)
	}
	return n > 0, nil
}

// HasHistoryElsewhere reports whether the order has records at any other station
func (r *ScanLedgerRepository) HasHistoryElsewhere(ctx context.Context, orderKey, stationID string) (bool, error) {
	n, err := r.collection.CountDocuments(ctx, bson.M{
		"orderKey":  orderKey,
		"stationId": bson.M{"$ne": strings.ToUpper(stationID)},
	}, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check order history: %w", err)
	}
	return n > 0, nil
}

// FindLatestReceipt returns the newest IN record of the barcode at the station, or nil
func (r *ScanLedgerRepository) FindLatestReceipt(ctx context.Context, barcode, stationID string) (*domain.ScanRecord, error) {
	opts := options.FindOne().SetSort(bson.D{{Key: "scannedAt", Value: -1}})

	var rec domain.ScanRecord
	err := r.collection.FindOne(ctx, bson.M{
		"scannedBarcode": barcode,
		"stationId":      strings.ToUpper(stationID),
		"direction":      domain.DirectionIn,
	}, opts).Decode(&rec)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find receipt: %w", err)
	}
	return &rec, nil
}

// FindUnreceivedDispatches returns boxes dispatched elsewhere for the order
// that have no receipt at stationID yet, oldest first
func (r *ScanLedgerRepository) FindUnreceivedDispatches(ctx context.Context, orderKey, stationID string) ([]*domain.ScanRecord, error) {
	station := strings.ToUpper(stationID)

	received, err := r.collection.Distinct(ctx, "scannedBarcode", bson.M{
		"orderKey":  orderKey,
		"stationId": station,
		"direction": domain.DirectionIn,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list received boxes: %w", err)
	}

	filter := bson.M{
		"orderKey":  orderKey,
		"stationId": bson.M{"$ne": station},
		"direction": domain.DirectionOut,
	}
	if len(received) > 0 {
		filter["newBarcode"] = bson.M{"$nin": received}
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "scannedAt", Value: 1}}))
}

// SumReceived totals the quantity received for the order at the station
func (r *ScanLedgerRepository) SumReceived(ctx context.Context, orderKey, stationID string) (int, bool, error) {
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{
			"orderKey":  orderKey,
			"stationId": strings.ToUpper(stationID),
			"direction": domain.DirectionIn,
		}}},
		{{Key: "$group", Value: bson.M{
			"_id":   nil,
			"total": bson.M{"$sum": "$quantity"},
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, false, fmt.Errorf("failed to sum received quantity: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Total int `bson:"total"`
		Count int `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return 0, false, fmt.Errorf("failed to decode received quantity: %w", err)
	}
	if len(rows) == 0 || rows[0].Count == 0 {
		return 0, false, nil
	}
	return rows[0].Total, true, nil
}

// FindByOrder returns the order's records in scan order, at most limit
func (r *ScanLedgerRepository) FindByOrder(ctx context.Context, orderKey string, limit int) ([]*domain.ScanRecord, error) {
	opts := options.Find().SetSort(bson.D{{Key: "scannedAt", Value: 1}, {Key: "_id", Value: 1}})
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	return r.find(ctx, bson.M{"orderKey": orderKey}, opts)
}

func (r *ScanLedgerRepository) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]*domain.ScanRecord, error) {
	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query scan records: %w", err)
	}
	defer cursor.Close(ctx)

	records := make([]*domain.ScanRecord, 0)
	if err := cursor.All(ctx, &records); err != nil {
		return nil, fmt.Errorf("failed to decode scan records: %w", err)
	}
	return records, nil
}

var _ domain.ScanLedger = (*ScanLedgerRepository)(nil)
