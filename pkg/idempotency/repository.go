package idempotency

import (
	"context"
	"time"
)

// KeyRepository stores idempotency keys. AcquireLock must be atomic.
type KeyRepository interface {
	// AcquireLock inserts key locked, or returns the stored key for the same
	// service, scope and key. The bool is true when key was inserted.
	AcquireLock(ctx context.Context, key *IdempotencyKey) (*IdempotencyKey, bool, error)

	// TakeOverLock relocks an unfinished key whose lock is absent or older
	// than staleBefore. It reports whether the lock was taken.
	TakeOverLock(ctx context.Context, keyID string, staleBefore time.Time) (bool, error)

	// ReleaseLock unlocks a key without storing a response so it can be retried
	ReleaseLock(ctx context.Context, keyID string) error

	// StoreResponse completes a key with the response to replay
	StoreResponse(ctx context.Context, keyID string, responseCode int, responseBody []byte, headers map[string]string) error

	// Clean removes keys that expired before the given time
	Clean(ctx context.Context, before time.Time) (int64, error)
}
