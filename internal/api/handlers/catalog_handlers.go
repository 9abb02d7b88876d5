package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/wms-platform/box-tracking-service/internal/domain"
)

// CatalogHandlers serves the option lists operators pick from
type CatalogHandlers struct {
	catalog *domain.Catalog
}

// NewCatalogHandlers creates a new CatalogHandlers
func NewCatalogHandlers(catalog *domain.Catalog) *CatalogHandlers {
	return &CatalogHandlers{catalog: catalog}
}

// RegisterRoutes registers catalog routes on the router
func (h *CatalogHandlers) RegisterRoutes(router *gin.RouterGroup) {
	catalog := router.Group("/catalog")
	{
		catalog.GET("/series", h.options(h.catalog.SeriesOptions))
		catalog.GET("/models", h.options(h.catalog.ModelOptions))
		catalog.GET("/containers", h.options(h.catalog.ContainerOptions))
		catalog.GET("/statuses", h.options(h.catalog.StatusOptions))
		catalog.GET("/stations", h.options(h.catalog.StationOptions))
		catalog.GET("/routes/:series", h.Route)
	}
}

func (h *CatalogHandlers) options(list func() []domain.CatalogOption) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"options": list()})
	}
}

// Route returns the station route of a series
func (h *CatalogHandlers) Route(c *gin.Context) {
	series := c.Param("series")
	c.JSON(http.StatusOK, gin.H{
		"series":   series,
		"stations": h.catalog.RouteFor(series),
	})
}
