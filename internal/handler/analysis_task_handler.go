package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/jengzang/crime-lisa-go/internal/models"
	"github.com/jengzang/crime-lisa-go/internal/repository"
	"github.com/jengzang/crime-lisa-go/internal/service"
	"github.com/jengzang/crime-lisa-go/pkg/response"
)

// AnalysisTaskHandler handles HTTP requests for analysis tasks
type AnalysisTaskHandler struct {
	service *service.AnalysisTaskService
}

// NewAnalysisTaskHandler creates a new analysis task handler
func NewAnalysisTaskHandler(service *service.AnalysisTaskService) *AnalysisTaskHandler {
	return &AnalysisTaskHandler{service: service}
}

// CreateTaskRequest represents the request body for creating an analysis task
type CreateTaskRequest struct {
	Level   string `json:"level"`
	Measure string `json:"measure"`
	Crime   string `json:"crime" binding:"required"`
}

// CreateTask starts a batch LISA run over every configured period
// POST /api/v1/tasks
func (h *AnalysisTaskHandler) CreateTask(c *gin.Context) {
	var req CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "Invalid request body")
		return
	}

	// Set by the auth middleware
	createdBy := c.GetString("user")
	if createdBy == "" {
		createdBy = "anonymous"
	}

	task, err := h.service.CreateTask(c.Request.Context(), req.Level, req.Measure, req.Crime, createdBy)
	if err != nil {
		response.DomainError(c, err)
		return
	}

	response.Created(c, task)
}

// GetTask retrieves a task by ID
// GET /api/v1/tasks/:id
func (h *AnalysisTaskHandler) GetTask(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		response.BadRequest(c, "Invalid task ID")
		return
	}

	task, err := h.service.GetTask(c.Request.Context(), id)
	if errors.Is(err, repository.ErrTaskNotFound) {
		response.NotFound(c, err.Error())
		return
	}
	if err != nil {
		response.InternalError(c, err.Error())
		return
	}

	response.Success(c, task)
}

// ListTasks retrieves tasks, newest first
// GET /api/v1/tasks?status=completed&limit=20&offset=0
func (h *AnalysisTaskHandler) ListTasks(c *gin.Context) {
	var filter models.TaskFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	filter.Normalize()

	tasks, err := h.service.ListTasks(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	response.Success(c, gin.H{
		"tasks":  tasks,
		"limit":  filter.Limit,
		"offset": filter.Offset,
	})
}
