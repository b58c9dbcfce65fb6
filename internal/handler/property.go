package handler

import (
	"context"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"righthome/internal/model"
)

// PropertyService serves listing lookups
type PropertyService interface {
	Search(ctx context.Context, query *model.PropertyQuery) (*model.PropertySearchResponse, error)
	GetProperty(ctx context.Context, id int64) (*model.Listing, error)
}

// PropertyHandler handles property HTTP requests
type PropertyHandler struct {
	properties PropertyService
}

// NewPropertyHandler creates a new property handler
func NewPropertyHandler(properties PropertyService) *PropertyHandler {
	return &PropertyHandler{properties: properties}
}

// Search handles GET /api/v1/properties
func (h *PropertyHandler) Search(c *gin.Context) {
	var query model.PropertyQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query: " + err.Error()})
		return
	}

	response, err := h.properties.Search(c.Request.Context(), &query)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Search failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, response)
}

// GetProperty handles GET /api/v1/properties/:id
func (h *PropertyHandler) GetProperty(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid property ID"})
		return
	}

	listing, err := h.properties.GetProperty(c.Request.Context(), id)
	if err != nil {
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get property: " + err.Error()})
		return
	}

	if listing == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Property not found"})
		return
	}

	c.JSON(http.StatusOK, listing)
}
