package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/service"
	"github.com/jengzang/crime-lisa-go/pkg/response"
)

// VariationHandler handles baseline variation requests
type VariationHandler struct {
	service *service.VariationService
}

// NewVariationHandler creates a new variation handler
func NewVariationHandler(service *service.VariationService) *VariationHandler {
	return &VariationHandler{service: service}
}

// GetVariation returns per-unit percentage change against the baseline
// GET /api/v1/variation?crime=THEFT&period=post-covid
func (h *VariationHandler) GetVariation(c *gin.Context) {
	var filter models.VariationFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, err := h.service.Variation(c.Request.Context(), filter)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Success(c, report)
}
