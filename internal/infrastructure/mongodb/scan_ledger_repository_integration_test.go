package mongodb

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wms-platform/box-tracking-service/internal/domain"
	"github.com/wms-platform/box-tracking-service/pkg/cloudevents"
	"github.com/wms-platform/box-tracking-service/pkg/kafka"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/outbox"
	outboxMongo "github.com/wms-platform/box-tracking-service/pkg/outbox/mongodb"
	testhelpers "github.com/wms-platform/box-tracking-service/pkg/testing"
)

type ScanLedgerIntegrationTestSuite struct {
	suite.Suite
	container *testhelpers.MongoDBContainer
	client    *mongo.Client
	db        *mongo.Database
	repo      *ScanLedgerRepository
	ctx       context.Context
	now       time.Time
}

func TestScanLedgerIntegration(t *testing.T) {
	suite.Run(t, new(ScanLedgerIntegrationTestSuite))
}

func (s *ScanLedgerIntegrationTestSuite) SetupSuite() {
	s.ctx = context.Background()
	s.container, s.client = testhelpers.StartMongoDB(s.T())
}

func (s *ScanLedgerIntegrationTestSuite) SetupTest() {
	s.db = s.container.Database(s.T(), s.client)
	s.repo = NewScanLedgerRepository(s.db, cloudevents.NewEventFactory(cloudevents.SourceBoxTracking), nil, nil)
	s.Require().NoError(s.repo.EnsureIndexes(s.ctx))
	s.now = time.Date(2025, 11, 19, 8, 0, 0, 0, time.UTC)
}

func (s *ScanLedgerIntegrationTestSuite) firstStationBoxes(order string, qty, capacity int) []*domain.ScanRecord {
	boxes, err := domain.Split(domain.SplitRequest{
		Template:    domain.Barcode{Order: order, Process: "P1", SKU: "ST350", Container: "B1", Status: "G"},
		Quantity:    qty,
		Capacity:    capacity,
		Disposition: domain.DispositionGood,
	})
	s.Require().NoError(err)

	records := make([]*domain.ScanRecord, len(boxes))
	for i, box := range boxes {
		records[i] = domain.NewDispatchRecord(domain.ActionFirstStation, box, "", "P1", "op1", 0, s.now.Add(time.Duration(i)*time.Second))
	}
	return records
}

func (s *ScanLedgerIntegrationTestSuite) TestSaveWritesRecordsAndOutboxEvents() {
	records := s.firstStationBoxes("00012345", 120, 50)
	s.Require().NoError(s.repo.Save(s.ctx, records...))

	count, err := s.db.Collection(ScanRecordsCollection).CountDocuments(s.ctx, bson.M{})
	s.Require().NoError(err)
	s.Equal(int64(3), count)

	outboxCount, err := s.db.Collection(outboxMongo.DefaultCollectionName).CountDocuments(s.ctx, bson.M{"eventType": domain.EventTypeBoxCreated})
	s.Require().NoError(err)
	s.Equal(int64(3), outboxCount)

	pending, err := s.repo.Outbox().FindUnpublished(s.ctx, 10)
	s.Require().NoError(err)
	s.Len(pending, 3)

	for _, rec := range records {
		s.Empty(rec.GetDomainEvents())
	}
}

func (s *ScanLedgerIntegrationTestSuite) TestLedgerFacts() {
	dispatched := s.firstStationBoxes("00012345", 120, 50)
	s.Require().NoError(s.repo.Save(s.ctx, dispatched...))

	hasHistory, err := s.repo.HasHistoryElsewhere(s.ctx, "12345", "P2")
	s.Require().NoError(err)
	s.True(hasHistory)

	hasHistory, err = s.repo.HasHistoryElsewhere(s.ctx, "12345", "P1")
	s.Require().NoError(err)
	s.False(hasHistory)

	pending, err := s.repo.FindUnreceivedDispatches(s.ctx, "12345", "P2")
	s.Require().NoError(err)
	s.Len(pending, 3)

	_, known, err := s.repo.SumReceived(s.ctx, "12345", "P2")
	s.Require().NoError(err)
	s.False(known)

	// Receive the first box at P2.
	first, err := domain.DecodeBarcode(dispatched[0].NewBarcode)
	s.Require().NoError(err)
	receipt, err := domain.NewReceiptRecord(first, "P2", "op2", s.now.Add(time.Hour))
	s.Require().NoError(err)
	s.Require().NoError(s.repo.Save(s.ctx, receipt))

	hasReceipt, err := s.repo.HasReceipt(s.ctx, dispatched[0].NewBarcode, "p2")
	s.Require().NoError(err)
	s.True(hasReceipt)

	latest, err := s.repo.FindLatestReceipt(s.ctx, dispatched[0].NewBarcode, "P2")
	s.Require().NoError(err)
	s.Require().NotNil(latest)
	s.Equal(receipt.RecordID, latest.RecordID)

	missing, err := s.repo.FindLatestReceipt(s.ctx, dispatched[1].NewBarcode, "P2")
	s.Require().NoError(err)
	s.Nil(missing)

	pending, err = s.repo.FindUnreceivedDispatches(s.ctx, "12345", "P2")
	s.Require().NoError(err)
	s.Len(pending, 2)
	s.Equal(dispatched[1].NewBarcode, pending[0].NewBarcode)

	total, known, err := s.repo.SumReceived(s.ctx, "12345", "P2")
	s.Require().NoError(err)
	s.True(known)
	s.Equal(50, total)

	history, err := s.repo.FindByOrder(s.ctx, "12345", 0)
	s.Require().NoError(err)
	s.Len(history, 4)
	s.Equal(domain.DirectionIn, history[3].Direction)
}

type recordingPublisher struct {
	mu     sync.Mutex
	topics []string
	types  []string
}

func (p *recordingPublisher) PublishEvent(_ context.Context, topic string, event *cloudevents.WMSCloudEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.types = append(p.types, event.Type)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.types)
}

func (s *ScanLedgerIntegrationTestSuite) TestOutboxRelayPublishesLedgerEvents() {
	s.Require().NoError(s.repo.Save(s.ctx, s.firstStationBoxes("00067890", 60, 50)...))

	sink := &recordingPublisher{}
	relay := outbox.NewPublisher(s.repo.Outbox(), sink, logging.New(logging.DefaultConfig("test")), nil, &outbox.PublisherConfig{
		PollInterval: 50 * time.Millisecond,
		BatchSize:    10,
	})
	s.Require().NoError(relay.Start(s.ctx))
	defer func() {
		_ = relay.Stop()
	}()

	ctx, cancel := testhelpers.CreateTestContext(10 * time.Second)
	defer cancel()
	s.Require().NoError(testhelpers.WaitForCondition(ctx, func() bool {
		pending, err := s.repo.Outbox().FindUnpublished(ctx, 10)
		return err == nil && len(pending) == 0
	}, 50*time.Millisecond))

	s.Equal(2, sink.count())
	s.Equal([]string{kafka.Topics.TraceabilityEvents, kafka.Topics.TraceabilityEvents}, sink.topics)
	s.Equal([]string{cloudevents.BoxCreated, cloudevents.BoxCreated}, sink.types)
}
