// Package client is the scan terminal's HTTP client for the box tracking API.
//
// Every failure is bucketed as ErrTransient (network trouble, 5xx, open
// circuit: safe to retry the same input) or ErrRejected (4xx: the operator
// has to correct the input). Lookups retry transient failures with backoff;
// submissions are retried by the caller with the same Idempotency-Key.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/wms-platform/box-tracking-service/internal/api/dto"
	"github.com/wms-platform/box-tracking-service/internal/application"
	apperrors "github.com/wms-platform/box-tracking-service/pkg/errors"
	"github.com/wms-platform/box-tracking-service/pkg/idempotency"
	"github.com/wms-platform/box-tracking-service/pkg/middleware"
	"github.com/wms-platform/box-tracking-service/pkg/resilience"
)

var (
	// ErrTransient marks failures worth retrying unchanged
	ErrTransient = errors.New("transient failure")

	// ErrRejected marks requests the API refused
	ErrRejected = errors.New("request rejected")
)

// APIError is an error response decoded from the API
type APIError struct {
	Status  int
	Code    string
	Message string
	Details map[string]string

	kind error
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api returned status %d", e.Status)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the bucket, ErrTransient or ErrRejected
func (e *APIError) Unwrap() error {
	return e.kind
}

// IsTransient reports whether err is worth retrying unchanged
func IsTransient(err error) bool {
	return errors.Is(err, ErrTransient)
}

// IsRejected reports whether the API refused the request
func IsRejected(err error) bool {
	return errors.Is(err, ErrRejected)
}

// Config configures a Client
type Config struct {
	BaseURL    string
	OperatorID string
	Timeout    time.Duration
	Breaker    *resilience.CircuitBreakerConfig

	// Retry applies to lookups only. nil disables retries.
	Retry *resilience.RetryConfig
}

// DefaultConfig returns a configuration for the API at baseURL
func DefaultConfig(baseURL string) *Config {
	return &Config{
		BaseURL: baseURL,
		Timeout: 10 * time.Second,
		Breaker: resilience.DefaultCircuitBreakerConfig("box-tracking-api"),
		Retry:   resilience.DefaultRetryConfig(retryableLookup),
	}
}

// An open circuit fails fast; retrying it would only wait out the backoff.
func retryableLookup(err error) bool {
	return IsTransient(err) && !errors.Is(err, resilience.ErrCircuitOpen)
}

// Client calls the box tracking API
type Client struct {
	baseURL    string
	operatorID string
	httpClient *http.Client
	breaker    *resilience.CircuitBreaker
	retry      *resilience.RetryConfig
}

// New creates a client. Only transient failures count against the breaker;
// rejections and cancelled requests do not.
func New(config *Config, logger *slog.Logger) *Client {
	breakerConfig := *config.Breaker
	breakerConfig.IsFailure = func(err error) bool {
		return !errors.Is(err, ErrRejected) && !errors.Is(err, context.Canceled)
	}

	return &Client{
		baseURL:    strings.TrimRight(config.BaseURL, "/"),
		operatorID: config.OperatorID,
		httpClient: &http.Client{Timeout: config.Timeout},
		breaker:    resilience.NewCircuitBreaker(&breakerConfig, logger, nil),
		retry:      config.Retry,
	}
}

// OperatorID returns the operator the client acts for
func (c *Client) OperatorID() string {
	return c.operatorID
}

// Classify asks which workflow a scan belongs to
func (c *Client) Classify(ctx context.Context, barcode, stationID string, trace bool) (*application.ClassificationDTO, error) {
	req := dto.ClassifyRequest{Barcode: barcode, CurrentStationID: stationID, OperatorID: c.operatorID}
	if trace {
		req.Intent = dto.IntentTrace
	}

	var result application.ClassificationDTO
	if err := c.lookup(ctx, http.MethodPost, "/api/v1/scans/classify", nil, req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// PendingBoxes lists the boxes of order awaiting receipt at stationID
func (c *Client) PendingBoxes(ctx context.Context, order, stationID, scanned string) (*application.PendingBoxesDTO, error) {
	query := url.Values{"stationId": {stationID}}
	if scanned != "" {
		query.Set("scanned", scanned)
	}

	var result application.PendingBoxesDTO
	path := "/api/v1/orders/" + url.PathEscape(order) + "/pending-boxes"
	if err := c.lookup(ctx, http.MethodGet, path, query, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// InboundQuantity returns the quantity of order received at stationID
func (c *Client) InboundQuantity(ctx context.Context, order, stationID string) (*application.InboundQuantityDTO, error) {
	var result application.InboundQuantityDTO
	path := "/api/v1/orders/" + url.PathEscape(order) + "/inbound-quantity"
	if err := c.lookup(ctx, http.MethodGet, path, url.Values{"stationId": {stationID}}, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// FirstStation creates the first boxes of an order. key is the
// Idempotency-Key; a fresh one is generated when empty.
func (c *Client) FirstStation(ctx context.Context, req dto.FirstStationRequest, key string) (*application.DispatchDTO, error) {
	if req.OperatorID == "" {
		req.OperatorID = c.operatorID
	}

	var result application.DispatchDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/scans/first-station", nil, req, submissionKey(key), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Outbound dispatches a received box
func (c *Client) Outbound(ctx context.Context, req dto.OutboundRequest, key string) (*application.DispatchDTO, error) {
	if req.OperatorID == "" {
		req.OperatorID = c.operatorID
	}

	var result application.DispatchDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/scans/outbound", nil, req, submissionKey(key), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Inbound receives the selected boxes
func (c *Client) Inbound(ctx context.Context, stationID string, barcodes []string, key string) (*application.InboundResultDTO, error) {
	req := dto.InboundRequest{Barcodes: barcodes, OperatorID: c.operatorID, CurrentStationID: stationID}

	var result application.InboundResultDTO
	if err := c.do(ctx, http.MethodPost, "/api/v1/scans/inbound", nil, req, submissionKey(key), &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Trace reads the history of the order a barcode belongs to
func (c *Client) Trace(ctx context.Context, barcode string) (*application.TraceDTO, error) {
	var result application.TraceDTO
	if err := c.lookup(ctx, http.MethodPost, "/api/v1/scans/trace", nil, dto.TraceRequest{Barcode: barcode}, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

func submissionKey(key string) string {
	if key != "" {
		return key
	}
	return uuid.New().String()
}

func (c *Client) lookup(ctx context.Context, method, path string, query url.Values, body interface{}, result interface{}) error {
	if c.retry == nil {
		return c.do(ctx, method, path, query, body, "", result)
	}
	return resilience.Retry(ctx, c.retry, func(ctx context.Context) error {
		return c.do(ctx, method, path, query, body, "", result)
	})
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body interface{}, key string, result interface{}) error {
	_, err := resilience.Call(ctx, c.breaker, func(ctx context.Context) (struct{}, error) {
		return struct{}{}, c.roundTrip(ctx, method, path, query, body, key, result)
	})
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return fmt.Errorf("%w: %w", ErrTransient, err)
	}
	return err
}

func (c *Client) roundTrip(ctx context.Context, method, path string, query url.Values, body interface{}, key string, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	target := c.baseURL + path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	if c.operatorID != "" {
		req.Header.Set(middleware.HeaderOperatorID, c.operatorID)
	}
	if key != "" {
		req.Header.Set(idempotency.HeaderIdempotencyKey, key)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("%w: request failed: %w", ErrTransient, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%w: failed to read response body: %w", ErrTransient, err)
	}

	if resp.StatusCode >= 400 {
		return decodeAPIError(resp.StatusCode, respBody)
	}

	if result != nil && len(respBody) > 0 {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}
	return nil
}

func decodeAPIError(status int, body []byte) *APIError {
	apiErr := &APIError{Status: status, kind: ErrRejected}

	var resp middleware.APIErrorResponse
	if json.Unmarshal(body, &resp) == nil {
		apiErr.Code = resp.Code
		apiErr.Message = resp.Message
		apiErr.Details = resp.Details
	}

	if apperrors.NewAppError(apiErr.Code, apiErr.Message, status).IsRetryable() {
		apiErr.kind = ErrTransient
	}
	return apiErr
}
