package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/service"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// DashboardHandler serves the admin operational snapshot.
type DashboardHandler struct {
	dashboard *service.DashboardService
}

// NewDashboardHandler constructs DashboardHandler.
func NewDashboardHandler(dashboard *service.DashboardService) *DashboardHandler {
	return &DashboardHandler{dashboard: dashboard}
}

// Snapshot godoc
// @Summary Operational dashboard snapshot
// @Description Package counts per status, pending KYC and rewards, locker occupancy
// @Tags Dashboard
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /admin/dashboard [get]
func (h *DashboardHandler) Snapshot(c *gin.Context) {
	snapshot, err := h.dashboard.Snapshot(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, snapshot, nil)
}
