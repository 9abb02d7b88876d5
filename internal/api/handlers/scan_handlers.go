package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/box-tracking-service/internal/api/dto"
	"github.com/wms-platform/box-tracking-service/internal/application"
	"github.com/wms-platform/box-tracking-service/pkg/logging"
	"github.com/wms-platform/box-tracking-service/pkg/middleware"
)

// ScanService is the application surface the scan handlers call
type ScanService interface {
	Classify(ctx context.Context, query application.ClassifyQuery) (*application.ClassificationDTO, error)
	PendingBoxes(ctx context.Context, query application.PendingBoxesQuery) (*application.PendingBoxesDTO, error)
	InboundQuantity(ctx context.Context, query application.InboundQuantityQuery) (*application.InboundQuantityDTO, error)
	FirstStation(ctx context.Context, cmd application.FirstStationCommand) (*application.DispatchDTO, error)
	Outbound(ctx context.Context, cmd application.OutboundCommand) (*application.DispatchDTO, error)
	Inbound(ctx context.Context, cmd application.InboundCommand) (*application.InboundResultDTO, error)
	Trace(ctx context.Context, query application.TraceQuery) (*application.TraceDTO, error)
}

// ScanHandlers contains handlers for scan operations
type ScanHandlers struct {
	service ScanService
	logger  *logging.Logger
}

// NewScanHandlers creates a new ScanHandlers
func NewScanHandlers(service ScanService, logger *logging.Logger) *ScanHandlers {
	return &ScanHandlers{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers scan routes on the router. mutating wraps the
// submission endpoints, typically with the idempotency middleware.
func (h *ScanHandlers) RegisterRoutes(router *gin.RouterGroup, mutating ...gin.HandlerFunc) {
	chain := func(handler gin.HandlerFunc) []gin.HandlerFunc {
		return append(append([]gin.HandlerFunc{}, mutating...), handler)
	}

	scans := router.Group("/scans")
	{
		scans.POST("/classify", h.Classify)
		scans.POST("/trace", h.Trace)
		scans.POST("/first-station", chain(h.FirstStation)...)
		scans.POST("/outbound", chain(h.Outbound)...)
		scans.POST("/inbound", chain(h.Inbound)...)
	}

	orders := router.Group("/orders")
	{
		orders.GET("/:order/pending-boxes", h.PendingBoxes)
		orders.GET("/:order/inbound-quantity", h.InboundQuantity)
	}
}

// Classify handles the classify lookup
func (h *ScanHandlers) Classify(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req dto.ClassifyRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"scan.barcode": req.Barcode,
		"station.id":   req.CurrentStationID,
	})

	result, err := h.service.Classify(c.Request.Context(), application.ClassifyQuery{
		Barcode:     req.Barcode,
		StationID:   req.CurrentStationID,
		OperatorID:  operatorID(c, req.OperatorID),
		TraceIntent: req.Intent == dto.IntentTrace,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{"scan.action": result.SuggestedAction})
	c.JSON(http.StatusOK, result)
}

// PendingBoxes handles the prior-station barcode query
func (h *ScanHandlers) PendingBoxes(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var params dto.PendingBoxesParams
	if appErr := middleware.BindQuery(c, &params); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.PendingBoxes(c.Request.Context(), application.PendingBoxesQuery{
		Order:     c.Param("order"),
		StationID: params.StationID,
		Scanned:   params.Scanned,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// InboundQuantity handles the inbound-quantity query
func (h *ScanHandlers) InboundQuantity(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var params dto.InboundQuantityParams
	if appErr := middleware.BindQuery(c, &params); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.InboundQuantity(c.Request.Context(), application.InboundQuantityQuery{
		Order:     c.Param("order"),
		StationID: params.StationID,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// FirstStation handles the first-station submission
func (h *ScanHandlers) FirstStation(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req dto.FirstStationRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"order.id":   req.Order,
		"station.id": req.CurrentStationID,
	})

	result, err := h.service.FirstStation(c.Request.Context(), application.FirstStationCommand{
		OperatorID:   req.OperatorID,
		StationID:    req.CurrentStationID,
		Order:        req.Order,
		Barcode:      req.Barcode,
		SeriesCode:   req.SeriesCode,
		ModelCode:    req.ModelCode,
		Container:    req.Container,
		Quantities:   req.Quantities.ToDomain(),
		DefectStatus: req.DefectStatus,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Outbound handles the outbound submission
func (h *ScanHandlers) Outbound(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req dto.OutboundRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"scan.barcode": req.Barcode,
		"station.id":   req.CurrentStationID,
	})

	result, err := h.service.Outbound(c.Request.Context(), application.OutboundCommand{
		OperatorID:   req.OperatorID,
		StationID:    req.CurrentStationID,
		Barcode:      req.Barcode,
		Container:    req.Container,
		Quantities:   req.Quantities.ToDomain(),
		DefectStatus: req.DefectStatus,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Inbound handles the inbound submission
func (h *ScanHandlers) Inbound(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req dto.InboundRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	middleware.AddSpanAttributes(c, map[string]interface{}{
		"station.id": req.CurrentStationID,
		"scan.boxes": len(req.Barcodes),
	})

	result, err := h.service.Inbound(c.Request.Context(), application.InboundCommand{
		OperatorID: req.OperatorID,
		StationID:  req.CurrentStationID,
		Barcodes:   req.Barcodes,
	})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusCreated, result)
}

// Trace handles the trace query
func (h *ScanHandlers) Trace(c *gin.Context) {
	responder := middleware.NewErrorResponder(c, h.logger.Logger)

	var req dto.TraceRequest
	if appErr := middleware.BindAndValidate(c, &req); appErr != nil {
		responder.RespondWithAppError(appErr)
		return
	}

	result, err := h.service.Trace(c.Request.Context(), application.TraceQuery{Barcode: req.Barcode})
	if err != nil {
		responder.RespondWithError(err)
		return
	}

	c.JSON(http.StatusOK, result)
}

// operatorID prefers the body value and falls back to the operator header
func operatorID(c *gin.Context, fromBody string) string {
	if fromBody != "" {
		return fromBody
	}
	return c.GetHeader(middleware.HeaderOperatorID)
}
