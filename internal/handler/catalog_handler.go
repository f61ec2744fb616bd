package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/service"
	"github.com/jengzang/crime-lisa-go/pkg/response"
)

// CatalogHandler serves the crime taxonomy
type CatalogHandler struct {
	service *service.CatalogService
}

// NewCatalogHandler creates a new catalog handler
func NewCatalogHandler(service *service.CatalogService) *CatalogHandler {
	return &CatalogHandler{service: service}
}

// GetCrimeTypes lists crime types that have data for a measure
// GET /api/v1/crime-types?measure=rate
func (h *CatalogHandler) GetCrimeTypes(c *gin.Context) {
	types, err := h.service.CrimeTypes(c.Request.Context(), c.Query("measure"))
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Success(c, gin.H{
		"crime_types": types,
		"categories":  h.service.Categories(),
	})
}
