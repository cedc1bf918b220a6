package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// ErrorLogHandler exposes the captured API error trail.
type ErrorLogHandler struct {
	errorLogs *service.ErrorLogService
}

// NewErrorLogHandler constructs ErrorLogHandler.
func NewErrorLogHandler(errorLogs *service.ErrorLogService) *ErrorLogHandler {
	return &ErrorLogHandler{errorLogs: errorLogs}
}

// List godoc
// @Summary List captured API errors
// @Tags ErrorLogs
// @Produce json
// @Param resolved query bool false "Filter by resolution state"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/error-logs [get]
func (h *ErrorLogHandler) List(c *gin.Context) {
	var filter models.ErrorLogFilter
	if raw := c.Query("resolved"); raw != "" {
		if resolved, err := strconv.ParseBool(raw); err == nil {
			filter.Resolved = &resolved
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	logs, pagination, err := h.errorLogs.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, logs, pagination)
}

// Resolve godoc
// @Summary Mark an error entry resolved
// @Tags ErrorLogs
// @Produce json
// @Param id path string true "Error log ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /admin/error-logs/{id}/resolve [put]
func (h *ErrorLogHandler) Resolve(c *gin.Context) {
	if err := h.errorLogs.Resolve(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
