package handler

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/jobs"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// RegistrationHandler exposes mailbox subscription endpoints.
type RegistrationHandler struct {
	registrations *service.RegistrationService
	expiryQueue   *jobs.Queue
}

// NewRegistrationHandler constructs RegistrationHandler. The queue may
// be nil when the background sweep is disabled.
func NewRegistrationHandler(registrations *service.RegistrationService, expiryQueue *jobs.Queue) *RegistrationHandler {
	return &RegistrationHandler{registrations: registrations, expiryQueue: expiryQueue}
}

// Create godoc
// @Summary Subscribe to a mailbox plan
// @Description Requires a verified identity
// @Tags Registrations
// @Accept json
// @Produce json
// @Param payload body dto.CreateRegistrationRequest true "Subscription payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 412 {object} response.Envelope
// @Router /registrations [post]
func (h *RegistrationHandler) Create(c *gin.Context) {
	var req dto.CreateRegistrationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid registration payload"))
		return
	}
	reg, err := h.registrations.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, reg)
}

// Get godoc
// @Summary Get one registration
// @Tags Registrations
// @Produce json
// @Param id path string true "Registration ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /registrations/{id} [get]
func (h *RegistrationHandler) Get(c *gin.Context) {
	reg, err := h.registrations.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reg, nil)
}

// List godoc
// @Summary List registrations
// @Tags Registrations
// @Produce json
// @Param locationId query string false "Filter by location"
// @Param status query string false "Filter by status"
// @Param search query string false "Search by plan"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /registrations [get]
func (h *RegistrationHandler) List(c *gin.Context) {
	var filter models.RegistrationFilter
	filter.LocationID = c.Query("locationId")
	filter.Search = c.Query("search")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.RegistrationStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")

	regs, pagination, err := h.registrations.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, regs, pagination)
}

// Locations godoc
// @Summary List mailroom locations
// @Tags Registrations
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /locations [get]
func (h *RegistrationHandler) Locations(c *gin.Context) {
	locations, err := h.registrations.Locations(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, locations, nil)
}

// Sync godoc
// @Summary Trigger the registration expiry sweep
// @Description Enqueues the sweep that marks lapsed subscriptions EXPIRED
// @Tags Registrations
// @Produce json
// @Success 202 {object} response.Envelope
// @Router /admin/sync/registrations [post]
func (h *RegistrationHandler) Sync(c *gin.Context) {
	if h.expiryQueue == nil {
		count, err := h.registrations.ExpirySweep(c.Request.Context())
		if err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, http.StatusOK, gin.H{"expired": count}, nil)
		return
	}

	job := jobs.Job{
		ID:       "registration-expiry-" + strconv.FormatInt(time.Now().UnixNano(), 10),
		Type:     "registration-expiry",
		Enqueued: time.Now().UTC(),
	}
	if err := h.expiryQueue.Enqueue(job); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to enqueue sweep"))
		return
	}
	response.JSON(c, http.StatusAccepted, gin.H{"queued": true}, nil)
}
