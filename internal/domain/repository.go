package domain

import (
	"context"
	"time"
)

// ScanLedger persists scan records and answers the history questions the
// classifier, the batch resolver and the reconciler depend on.
type ScanLedger interface {
	// Save persists records atomically, together with their domain events
	Save(ctx context.Context, records ...*ScanRecord) error

	// HasReceipt reports whether the barcode has an IN record at the station
	HasReceipt(ctx context.Context, barcode, stationID string) (bool, error)

	// HasHistoryElsewhere reports whether the order has records at any other station
	HasHistoryElsewhere(ctx context.Context, orderKey, stationID string) (bool, error)

	// FindLatestReceipt returns the newest IN record of the barcode at the station, or nil
	FindLatestReceipt(ctx context.Context, barcode, stationID string) (*ScanRecord, error)

	// FindUnreceivedDispatches returns OUT records of the order made at other
	// stations whose minted barcode has no IN record at stationID, oldest first
	FindUnreceivedDispatches(ctx context.Context, orderKey, stationID string) ([]*ScanRecord, error)

	// SumReceived returns the total quantity received for the order at the
	// station and whether any receipt exists
	SumReceived(ctx context.Context, orderKey, stationID string) (int, bool, error)

	// FindByOrder returns the order's records in scan order, at most limit
	FindByOrder(ctx context.Context, orderKey string, limit int) ([]*ScanRecord, error)
}

// Clock abstracts time for services and tests
type Clock func() time.Time
