package idempotency

import (
	"time"

	"github.com/gin-gonic/gin"
)

const (
	DefaultMaxKeyLength    = 255
	DefaultLockTimeout     = 2 * time.Minute
	DefaultRetentionPeriod = 24 * time.Hour
	DefaultMaxResponseSize = 1 * 1024 * 1024
)

// Config holds configuration for the idempotency middleware
type Config struct {
	ServiceName string
	Repository  KeyRepository

	// RequireKey rejects mutating requests without an Idempotency-Key
	RequireKey bool

	// OnlyMutating skips GET, HEAD and OPTIONS
	OnlyMutating bool

	// ScopeExtractor scopes keys, e.g. per operator. nil means one scope per service.
	ScopeExtractor func(*gin.Context) string

	MaxKeyLength    int
	LockTimeout     time.Duration
	RetentionPeriod time.Duration
	MaxResponseSize int

	Metrics *Metrics
}

// DefaultConfig returns a configuration with an optional key, scoped by extractor
func DefaultConfig(serviceName string, repository KeyRepository) *Config {
	return &Config{
		ServiceName:     serviceName,
		Repository:      repository,
		OnlyMutating:    true,
		MaxKeyLength:    DefaultMaxKeyLength,
		LockTimeout:     DefaultLockTimeout,
		RetentionPeriod: DefaultRetentionPeriod,
		MaxResponseSize: DefaultMaxResponseSize,
	}
}
