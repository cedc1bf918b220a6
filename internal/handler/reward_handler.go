package handler

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// RewardHandler exposes referral reward endpoints.
type RewardHandler struct {
	rewards *service.RewardService
}

// NewRewardHandler constructs RewardHandler.
func NewRewardHandler(rewards *service.RewardService) *RewardHandler {
	return &RewardHandler{rewards: rewards}
}

// Claim godoc
// @Summary Open a reward claim
// @Description Requires the referral threshold and no claim already in flight
// @Tags Rewards
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /rewards/claims [post]
func (h *RewardHandler) Claim(c *gin.Context) {
	claim, err := h.rewards.Claim(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, claim)
}

// Update godoc
// @Summary Advance a reward claim
// @Description PROCESSING requires a payment proof; PAID closes the claim
// @Tags Rewards
// @Accept json
// @Produce json
// @Param id path string true "Claim ID"
// @Param payload body dto.UpdateRewardRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/rewards/{id} [put]
func (h *RewardHandler) Update(c *gin.Context) {
	var req dto.UpdateRewardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid reward payload"))
		return
	}
	claim, err := h.rewards.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claim, nil)
}

// List godoc
// @Summary List reward claims
// @Tags Rewards
// @Produce json
// @Param status query string false "Filter by status"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /rewards/claims [get]
func (h *RewardHandler) List(c *gin.Context) {
	var filter models.RewardFilter
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.RewardStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	claims, pagination, err := h.rewards.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, claims, pagination)
}
