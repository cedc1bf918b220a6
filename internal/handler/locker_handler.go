package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// LockerHandler exposes locker pool and assignment endpoints.
type LockerHandler struct {
	lockers *service.LockerService
}

// NewLockerHandler constructs LockerHandler.
func NewLockerHandler(lockers *service.LockerService) *LockerHandler {
	return &LockerHandler{lockers: lockers}
}

// List godoc
// @Summary List lockers
// @Tags Lockers
// @Produce json
// @Param locationId query string false "Filter by location"
// @Param available query bool false "Filter by availability"
// @Param search query string false "Search by locker code"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /lockers [get]
func (h *LockerHandler) List(c *gin.Context) {
	var filter models.LockerFilter
	filter.LocationID = c.Query("locationId")
	filter.Search = c.Query("search")
	if raw := c.Query("available"); raw != "" {
		if available, err := strconv.ParseBool(raw); err == nil {
			filter.Available = &available
		}
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "50")); err == nil {
		filter.PageSize = size
	}

	lockers, pagination, err := h.lockers.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, lockers, pagination)
}

// Assign godoc
// @Summary Assign a locker to a registration
// @Tags Lockers
// @Accept json
// @Produce json
// @Param payload body dto.AssignLockerRequest true "Assignment payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /lockers/assignments [post]
func (h *LockerHandler) Assign(c *gin.Context) {
	var req dto.AssignLockerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignment payload"))
		return
	}
	assignment, err := h.lockers.Assign(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, assignment)
}

// Unassign godoc
// @Summary Release a locker assignment
// @Tags Lockers
// @Produce json
// @Param id path string true "Assignment ID"
// @Success 204 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /lockers/assignments/{id} [delete]
func (h *LockerHandler) Unassign(c *gin.Context) {
	if err := h.lockers.Unassign(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Assignments godoc
// @Summary List locker assignments of a registration
// @Tags Lockers
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Router /registrations/{id}/lockers [get]
func (h *LockerHandler) Assignments(c *gin.Context) {
	assignments, err := h.lockers.Assignments(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, assignments, nil)
}
