package handler

import (
	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/service"
	"github.com/jengzang/crime-lisa-go/pkg/response"
)

// LisaHandler handles HTTP requests for spatial autocorrelation
type LisaHandler struct {
	service *service.LisaService
}

// NewLisaHandler creates a new LISA handler
func NewLisaHandler(service *service.LisaService) *LisaHandler {
	return &LisaHandler{service: service}
}

// GetPeriods lists the configured analysis periods
// GET /api/v1/periods
func (h *LisaHandler) GetPeriods(c *gin.Context) {
	response.Success(c, h.service.Periods())
}

// GetLisa computes local Moran's I and cluster labels for one period
// GET /api/v1/lisa?level=provinces&measure=rate&crime=THEFT&period=pre-covid
func (h *LisaHandler) GetLisa(c *gin.Context) {
	var filter models.LisaFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	result, err := h.service.ComputePeriod(c.Request.Context(), filter)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Success(c, result)
}

// GetMoran compares global Moran's I across every period
// GET /api/v1/moran?level=regions&crime=TOT
func (h *LisaHandler) GetMoran(c *gin.Context) {
	var filter models.MoranFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	overview, err := h.service.CompareGlobal(c.Request.Context(), filter)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Success(c, overview)
}

// GetTransitions classifies cluster changes between two periods
// GET /api/v1/transitions?crime=THEFT&from=pre-covid&to=post-covid
func (h *LisaHandler) GetTransitions(c *gin.Context) {
	var filter models.TransitionFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}

	report, err := h.service.Transitions(c.Request.Context(), filter)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Success(c, report)
}
