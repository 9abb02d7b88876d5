package mongodb

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/metrics"
	"github.com/wms-platform/box-tracking-service/pkg/tracing"
)

// InstrumentedCollection wraps a collection with metrics, query logging and spans.
// metrics and logger may be nil.
type InstrumentedCollection struct {
	collection *mongo.Collection
	database   string
	metrics    *metrics.Metrics
	logger     *logging.Logger
	tracer     trace.Tracer
}

// NewInstrumentedCollection wraps coll
func NewInstrumentedCollection(coll *mongo.Collection, m *metrics.Metrics, logger *logging.Logger) *InstrumentedCollection {
	return &InstrumentedCollection{
		collection: coll,
		database:   coll.Database().Name(),
		metrics:    m,
		logger:     logger,
		tracer:     otel.Tracer("mongodb"),
	}
}

// Raw returns the wrapped collection
func (c *InstrumentedCollection) Raw() *mongo.Collection {
	return c.collection
}

// Name returns the collection name
func (c *InstrumentedCollection) Name() string {
	return c.collection.Name()
}

func (c *InstrumentedCollection) startSpan(ctx context.Context, operation string) (context.Context, trace.Span) {
	return c.tracer.Start(ctx, "mongodb."+operation,
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(tracing.DatabaseSpanAttributes(c.database, operation, c.collection.Name())...),
	)
}

func (c *InstrumentedCollection) finish(ctx context.Context, span trace.Span, operation string, start time.Time, err error, rows int64) {
	duration := time.Since(start)
	success := err == nil || errors.Is(err, mongo.ErrNoDocuments)

	if c.metrics != nil {
		c.metrics.RecordMongoDBOperation(c.collection.Name(), operation, success, duration)
	}
	if c.logger != nil {
		c.logger.DatabaseQuery(ctx, c.collection.Name(), operation, duration, success, rows)
	}

	if !success {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return
	}
	span.SetStatus(codes.Ok, "")
	span.SetAttributes(attribute.Int64("db.rows_affected", rows))
}

// InsertMany inserts documents
func (c *InstrumentedCollection) InsertMany(ctx context.Context, documents []interface{}, opts ...*options.InsertManyOptions) (*mongo.InsertManyResult, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "insertMany")
	defer span.End()
	span.SetAttributes(attribute.Int("db.batch_size", len(documents)))

	result, err := c.collection.InsertMany(ctx, documents, opts...)
	var rows int64
	if result != nil {
		rows = int64(len(result.InsertedIDs))
	}
	c.finish(ctx, span, "insertMany", start, err, rows)
	return result, err
}

// FindOne finds a single document. ErrNoDocuments is not counted as a failure.
func (c *InstrumentedCollection) FindOne(ctx context.Context, filter interface{}, opts ...*options.FindOneOptions) *mongo.SingleResult {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "findOne")
	defer span.End()

	result := c.collection.FindOne(ctx, filter, opts...)
	var rows int64
	if result.Err() == nil {
		rows = 1
	}
	c.finish(ctx, span, "findOne", start, result.Err(), rows)
	return result
}

// Find opens a cursor
func (c *InstrumentedCollection) Find(ctx context.Context, filter interface{}, opts ...*options.FindOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "find")
	defer span.End()

	cursor, err := c.collection.Find(ctx, filter, opts...)
	c.finish(ctx, span, "find", start, err, 0)
	return cursor, err
}

// CountDocuments counts matching documents
func (c *InstrumentedCollection) CountDocuments(ctx context.Context, filter interface{}, opts ...*options.CountOptions) (int64, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "countDocuments")
	defer span.End()

	count, err := c.collection.CountDocuments(ctx, filter, opts...)
	c.finish(ctx, span, "countDocuments", start, err, count)
	return count, err
}

// Aggregate runs a pipeline
func (c *InstrumentedCollection) Aggregate(ctx context.Context, pipeline interface{}, opts ...*options.AggregateOptions) (*mongo.Cursor, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "aggregate")
	defer span.End()

	cursor, err := c.collection.Aggregate(ctx, pipeline, opts...)
	c.finish(ctx, span, "aggregate", start, err, 0)
	return cursor, err
}

// Distinct returns the distinct values of field
func (c *InstrumentedCollection) Distinct(ctx context.Context, field string, filter interface{}, opts ...*options.DistinctOptions) ([]interface{}, error) {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "distinct")
	defer span.End()

	values, err := c.collection.Distinct(ctx, field, filter, opts...)
	c.finish(ctx, span, "distinct", start, err, int64(len(values)))
	return values, err
}

// CreateIndexes creates the given indexes
func (c *InstrumentedCollection) CreateIndexes(ctx context.Context, models []mongo.IndexModel) error {
	start := time.Now()
	ctx, span := c.startSpan(ctx, "createIndexes")
	defer span.End()

	_, err := c.collection.Indexes().CreateMany(ctx, models)
	c.finish(ctx, span, "createIndexes", start, err, int64(len(models)))
	return err
}
