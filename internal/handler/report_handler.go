package handler

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/export"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// ReportHandler exposes admin export endpoints.
type ReportHandler struct {
	reports *service.ReportService
}

// NewReportHandler constructs ReportHandler.
func NewReportHandler(reports *service.ReportService) *ReportHandler {
	return &ReportHandler{reports: reports}
}

// Packages godoc
// @Summary Export the package inventory
// @Tags Reports
// @Produce text/csv
// @Produce application/pdf
// @Param format query string false "csv or pdf" default(csv)
// @Param registrationId query string false "Filter by registration"
// @Param status query string false "Filter by status"
// @Param from query string false "Received from (RFC3339)"
// @Param to query string false "Received until (RFC3339)"
// @Success 200 {file} byte
// @Failure 400 {object} response.Envelope
// @Router /admin/reports/packages [get]
func (h *ReportHandler) Packages(c *gin.Context) {
	format := export.Format(strings.ToLower(c.DefaultQuery("format", "csv")))
	filter := packageFilterFromQuery(c)

	result, err := h.reports.Packages(c.Request.Context(), filter, format)
	if err != nil {
		response.Error(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+result.Filename)
	c.Data(200, result.ContentType, result.Content)
}
