package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/internal/domain"
	"github.com/wms-platform/box-tracking-service/pkg/contracts/openapi"
	"github.com/wms-platform/box-tracking-service/pkg/errors"
)

func loadOpenAPIValidator(t *testing.T) *openapi.Validator {
	t.Helper()
	specPath := filepath.Join("..", "..", "..", "api", "openapi.yaml")
	if _, err := os.Stat(specPath); os.IsNotExist(err) {
		t.Skipf("OpenAPI spec not found at %s", specPath)
	}
	validator, err := openapi.NewValidator(specPath)
	require.NoError(t, err)
	return validator
}

func contractBoxes() []application.BoxDTO {
	return []application.BoxDTO{
		{Number: 1, Barcode: nextBarcode, BoxSeq: "01", Disposition: "good", Status: "G", Quantity: 50},
		{Number: 1, Barcode: "25111901P2AC350B101S0005QRS", BoxSeq: "01", Disposition: "bad", Status: "S", Quantity: 5},
	}
}

func contractService() *mockScanService {
	return &mockScanService{
		classifyFn: func(ctx context.Context, query application.ClassifyQuery) (*application.ClassificationDTO, error) {
			return &application.ClassificationDTO{
				SuggestedAction:  "outbound",
				Barcode:          application.BarcodeDTO{Code: testBarcode, Order: "25111901", Process: "P1", SKU: "AC350", Container: "B1", BoxSeq: "01", Status: "G", Qty: "0050"},
				StationID:        query.StationID,
				OrderFacts:       &application.OrderFacts{ReceivedHere: true, OrderSeenElsewhere: true},
				NextStation:      "P3",
				ReceivedQuantity: intPtr(50),
			}, nil
		},
		pendingBoxesFn: func(ctx context.Context, query application.PendingBoxesQuery) (*application.PendingBoxesDTO, error) {
			return &application.PendingBoxesDTO{
				Order:     query.Order,
				StationID: query.StationID,
				Candidates: []application.BatchCandidateDTO{
					{Barcode: testBarcode, Process: "P1", Container: "B1", BoxSeq: "01", Qty: "0050", Status: "G", Selected: true},
				},
			}, nil
		},
		inboundQuantityFn: func(ctx context.Context, query application.InboundQuantityQuery) (*application.InboundQuantityDTO, error) {
			return &application.InboundQuantityDTO{Order: query.Order, StationID: query.StationID, TotalInboundQty: 50, Known: true}, nil
		},
		firstStationFn: func(ctx context.Context, cmd application.FirstStationCommand) (*application.DispatchDTO, error) {
			return &application.DispatchDTO{Action: "first_station", Order: cmd.Order, SKU: "AC350", StationID: cmd.StationID, NextStation: "P2", Boxes: contractBoxes()}, nil
		},
		outboundFn: func(ctx context.Context, cmd application.OutboundCommand) (*application.DispatchDTO, error) {
			return &application.DispatchDTO{
				Action:         "outbound",
				Order:          "25111901",
				SKU:            "AC350",
				StationID:      cmd.StationID,
				NextStation:    "P3",
				Boxes:          contractBoxes(),
				Reconciliation: &application.ReconciliationDTO{Expected: intPtr(55), Actual: 55},
			}, nil
		},
		inboundFn: func(ctx context.Context, cmd application.InboundCommand) (*application.InboundResultDTO, error) {
			return &application.InboundResultDTO{StationID: cmd.StationID, Received: 1, ReceivedBarcodes: cmd.Barcodes, SuggestedAction: "outbound"}, nil
		},
		traceFn: func(ctx context.Context, query application.TraceQuery) (*application.TraceDTO, error) {
			return &application.TraceDTO{
				Order: "25111901",
				SKU:   "AC350",
				Records: []application.ScanRecordDTO{
					{RecordID: "r-1", Direction: "OUT", Action: "first_station", OperatorID: "op-7", Order: "25111901", StationID: "P1", SKU: "AC350", Container: "B1", BoxSeq: "01", Quantity: 50, Status: "G", NewBarcode: testBarcode, ScannedAt: time.Date(2025, 11, 19, 8, 0, 0, 0, time.UTC)},
				},
				Statistics: domain.YieldStatistics{TotalQty: 50, GoodQty: 50, YieldRate: 100},
			}, nil
		},
	}
}

func TestScanHandlers_OpenAPIContract(t *testing.T) {
	validator := loadOpenAPIValidator(t)
	router := newTestRouter(contractService())

	tests := []struct {
		name        string
		method      string
		path        string
		body        string
		operationID string
		status      int
	}{
		{"classify", http.MethodPost, "/api/v1/scans/classify",
			fmt.Sprintf(`{"barcode":%q,"currentStationId":"P2"}`, testBarcode), "classifyScan", http.StatusOK},
		{"pending boxes", http.MethodGet, "/api/v1/orders/25111901/pending-boxes?stationId=P2", "", "pendingBoxes", http.StatusOK},
		{"inbound quantity", http.MethodGet, "/api/v1/orders/25111901/inbound-quantity?stationId=P2", "", "inboundQuantity", http.StatusOK},
		{"first station", http.MethodPost, "/api/v1/scans/first-station",
			`{"order":"25111901","operatorId":"op-7","currentStationId":"P1","seriesCode":"AC","modelCode":"350","container":"B1","goodQty":50,"badQty":5}`, "firstStation", http.StatusCreated},
		{"outbound", http.MethodPost, "/api/v1/scans/outbound",
			fmt.Sprintf(`{"barcode":%q,"operatorId":"op-7","currentStationId":"P2","goodQty":50,"badQty":5}`, testBarcode), "outbound", http.StatusCreated},
		{"inbound", http.MethodPost, "/api/v1/scans/inbound",
			fmt.Sprintf(`{"barcodes":[%q],"operatorId":"op-7","currentStationId":"P2"}`, testBarcode), "inbound", http.StatusCreated},
		{"trace", http.MethodPost, "/api/v1/scans/trace", fmt.Sprintf(`{"barcode":%q}`, testBarcode), "traceOrder", http.StatusOK},
		{"validation error", http.MethodPost, "/api/v1/scans/trace", `{}`, "traceOrder", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := newRequest(tt.method, tt.path, tt.body)

			opID, err := validator.OperationID(req)
			require.NoError(t, err)
			assert.Equal(t, tt.operationID, opID)

			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)
			require.Equal(t, tt.status, rec.Code, rec.Body.String())

			assert.NoError(t, validator.ValidateResponse(req, rec.Code, rec.Header(), rec.Body.Bytes()))
		})
	}
}

func TestScanHandlers_OpenAPIContract_Errors(t *testing.T) {
	validator := loadOpenAPIValidator(t)

	service := &mockScanService{
		outboundFn: func(ctx context.Context, cmd application.OutboundCommand) (*application.DispatchDTO, error) {
			return nil, errors.NewAppError("QUANTITY_MISMATCH", "dispatched quantity does not match received quantity", http.StatusUnprocessableEntity).
				WithDetail("expected", "60").
				WithDetail("actual", "55")
		},
	}
	router := newTestRouter(service)

	req := newRequest(http.MethodPost, "/api/v1/scans/outbound",
		fmt.Sprintf(`{"barcode":%q,"operatorId":"op-7","currentStationId":"P2","goodQty":55}`, testBarcode))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusUnprocessableEntity, rec.Code)
	assert.NoError(t, validator.ValidateResponse(req, rec.Code, rec.Header(), rec.Body.Bytes()))
}

func TestCatalogHandlers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	catalog := &domain.Catalog{
		Series:     map[string]string{"AC": "Actuator", "ST": "Starter"},
		Models:     map[string]string{"350": "350"},
		Containers: map[string]int{"B1": 50},
		Statuses:   map[string]string{"G": "Good", "S": "Scrap"},
		Stations:   map[string]string{"P1": "Cutting", "P2": "Forming"},
		Routes: map[string]domain.Route{
			"AC":                   domain.NewRoute("P1", "P2"),
			domain.DefaultRouteKey: domain.NewRoute("P1", "P2", "P3"),
		},
	}
	NewCatalogHandlers(catalog).RegisterRoutes(router.Group("/api/v1"))

	validator := loadOpenAPIValidator(t)

	tests := []struct {
		path string
		want string
	}{
		{"/api/v1/catalog/series", `"code":"AC"`},
		{"/api/v1/catalog/containers", `"capacity":50`},
		{"/api/v1/catalog/statuses", `"code":"S"`},
		{"/api/v1/catalog/stations", `"code":"P2"`},
		{"/api/v1/catalog/routes/AC", `"stations":["P1","P2"]`},
		{"/api/v1/catalog/routes/ZZ", `"stations":["P1","P2","P3"]`},
	}
	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			req := newRequest(http.MethodGet, tt.path, "")
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			require.Equal(t, http.StatusOK, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
			assert.NoError(t, validator.ValidateResponse(req, rec.Code, rec.Header(), rec.Body.Bytes()))
		})
	}
}
