package idempotency

import (
	"bytes"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/box-tracking-service/pkg/errors"
	"github.com/wms-platform/box-tracking-service/pkg/middleware"
)

const (
	HeaderIdempotencyKey = "Idempotency-Key"
	HeaderReplayed       = "X-Idempotent-Replayed"
)

type responseWriter struct {
	gin.ResponseWriter
	body *bytes.Buffer
}

func (w *responseWriter) Write(b []byte) (int, error) {
	w.body.Write(b)
	return w.ResponseWriter.Write(b)
}

func (w *responseWriter) WriteString(s string) (int, error) {
	w.body.WriteString(s)
	return w.ResponseWriter.WriteString(s)
}

// Middleware replays stored responses for repeated Idempotency-Key values.
// A handler response of 5xx releases the key instead of storing it.
func Middleware(config *Config, logger *slog.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = slog.Default()
	}

	return func(c *gin.Context) {
		if config.OnlyMutating && !isMutatingMethod(c.Request.Method) {
			c.Next()
			return
		}

		key := NormalizeKey(c.GetHeader(HeaderIdempotencyKey))
		if key == "" {
			if config.RequireKey {
				middleware.AbortWithAppError(c, errors.ErrBadRequest("Idempotency-Key header is required for this operation"))
				return
			}
			c.Next()
			return
		}
		if err := ValidateKey(key, config.MaxKeyLength); err != nil {
			middleware.AbortWithAppError(c, errors.ErrBadRequest(err.Error()))
			return
		}

		var scope string
		if config.ScopeExtractor != nil {
			scope = config.ScopeExtractor(c)
		}

		var body []byte
		if c.Request.Body != nil {
			body, _ = io.ReadAll(c.Request.Body)
			c.Request.Body = io.NopCloser(bytes.NewReader(body))
		}

		process(c, config, logger, key, scope, ComputeFingerprint(c.Request.Method, c.Request.URL.Path, body))
	}
}

func process(c *gin.Context, config *Config, logger *slog.Logger, key, scope, fingerprint string) {
	ctx := c.Request.Context()
	path, method := c.FullPath(), c.Request.Method
	if path == "" {
		path = c.Request.URL.Path
	}
	log := logger.With("key", key, "service", config.ServiceName, "path", path)

	now := time.Now().UTC()
	start := time.Now()
	stored, isNew, err := config.Repository.AcquireLock(ctx, &IdempotencyKey{
		Key:                key,
		Scope:              scope,
		ServiceID:          config.ServiceName,
		RequestPath:        c.Request.URL.Path,
		RequestMethod:      method,
		RequestFingerprint: fingerprint,
		CreatedAt:          now,
		ExpiresAt:          now.Add(config.RetentionPeriod),
	})
	if err != nil {
		log.Error("Failed to acquire idempotency lock", "error", err)
		config.Metrics.storageError(config.ServiceName, "acquire_lock")
		middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency storage"))
		return
	}
	config.Metrics.lockDuration(config.ServiceName, path, method, time.Since(start).Seconds())

	if !isNew && stored.RequestFingerprint != fingerprint {
		log.Warn("Idempotency parameter mismatch")
		config.Metrics.mismatch(config.ServiceName, path, method)
		middleware.AbortWithAppError(c, errors.ErrUnprocessable("request parameters differ from the original request with this idempotency key"))
		return
	}

	if stored.IsCompleted() {
		log.Info("Idempotency cache hit", "statusCode", stored.ResponseCode)
		config.Metrics.hit(config.ServiceName, path, method)
		for k, v := range stored.ResponseHeaders {
			c.Header(k, v)
		}
		c.Header(HeaderReplayed, "true")
		c.Data(stored.ResponseCode, "application/json; charset=utf-8", stored.ResponseBody)
		c.Abort()
		return
	}

	if !isNew {
		staleBefore := time.Now().UTC().Add(-config.LockTimeout)
		taken := false
		// A fresh lock belongs to a request still in flight.
		if !stored.IsLocked() || stored.LockedAt.Before(staleBefore) {
			taken, err = config.Repository.TakeOverLock(ctx, stored.ID.Hex(), staleBefore)
			if err != nil {
				log.Error("Failed to take over idempotency lock", "error", err)
				config.Metrics.storageError(config.ServiceName, "take_over_lock")
				middleware.AbortWithAppError(c, errors.ErrServiceUnavailable("idempotency storage"))
				return
			}
		}
		if !taken {
			log.Warn("Concurrent idempotency request")
			config.Metrics.concurrent(config.ServiceName, path, method)
			middleware.AbortWithAppError(c, errors.ErrConflict("a request with this idempotency key is currently being processed"))
			return
		}
	}

	config.Metrics.miss(config.ServiceName, path, method)

	writer := &responseWriter{ResponseWriter: c.Writer, body: &bytes.Buffer{}}
	c.Writer = writer
	c.Next()

	status := writer.Status()
	keyID := stored.ID.Hex()

	if status >= http.StatusInternalServerError {
		if err := config.Repository.ReleaseLock(ctx, keyID); err != nil {
			log.Error("Failed to release idempotency lock", "error", err)
			config.Metrics.storageError(config.ServiceName, "release_lock")
		}
		return
	}

	responseBody := writer.body.Bytes()
	if len(responseBody) > config.MaxResponseSize {
		log.Warn("Response too large to cache", "size", len(responseBody))
		if err := config.Repository.ReleaseLock(ctx, keyID); err != nil {
			config.Metrics.storageError(config.ServiceName, "release_lock")
		}
		return
	}

	if err := config.Repository.StoreResponse(ctx, keyID, status, responseBody, responseHeaders(c)); err != nil {
		log.Error("Failed to store idempotency response", "error", err)
		config.Metrics.storageError(config.ServiceName, "store_response")
	}
}

func isMutatingMethod(method string) bool {
	return method == http.MethodPost ||
		method == http.MethodPut ||
		method == http.MethodPatch ||
		method == http.MethodDelete
}

func responseHeaders(c *gin.Context) map[string]string {
	headers := make(map[string]string)
	for k, v := range c.Writer.Header() {
		if len(v) > 0 && k != "Content-Length" {
			headers[k] = v[0]
		}
	}
	return headers
}
