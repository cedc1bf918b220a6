package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

type kycService interface {
	Submit(ctx context.Context, claims *models.JWTClaims, req dto.SubmitKYCRequest) (*models.KYCRecord, error)
	Status(ctx context.Context, claims *models.JWTClaims) (*models.KYCRecord, error)
	Review(ctx context.Context, claims *models.JWTClaims, kycID string, req dto.KYCVerdictRequest) (*models.KYCRecord, error)
	List(ctx context.Context, filter models.KYCFilter) ([]models.KYCRecord, *models.Pagination, error)
	Reviews(ctx context.Context, kycID string) ([]models.KYCReview, error)
}

// KYCHandler exposes identity verification endpoints.
type KYCHandler struct {
	kyc kycService
}

// NewKYCHandler constructs KYCHandler.
func NewKYCHandler(kyc kycService) *KYCHandler {
	return &KYCHandler{kyc: kyc}
}

// Submit godoc
// @Summary Submit identity document
// @Description First submission creates the record; after a rejection the same call resubmits
// @Tags KYC
// @Accept json
// @Produce json
// @Param payload body dto.SubmitKYCRequest true "Document payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /kyc [post]
func (h *KYCHandler) Submit(c *gin.Context) {
	var req dto.SubmitKYCRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid kyc payload"))
		return
	}
	record, err := h.kyc.Submit(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, record)
}

// Status godoc
// @Summary Current verification status
// @Tags KYC
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /kyc/status [get]
func (h *KYCHandler) Status(c *gin.Context) {
	record, err := h.kyc.Status(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// Review godoc
// @Summary Apply an admin verdict
// @Tags KYC
// @Accept json
// @Produce json
// @Param id path string true "KYC record ID"
// @Param payload body dto.KYCVerdictRequest true "Verdict payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /admin/kyc/{id}/review [put]
func (h *KYCHandler) Review(c *gin.Context) {
	var req dto.KYCVerdictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verdict payload"))
		return
	}
	record, err := h.kyc.Review(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, record, nil)
}

// List godoc
// @Summary List verification records
// @Tags KYC
// @Produce json
// @Param status query string false "Filter by status"
// @Param search query string false "Search by user"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /admin/kyc [get]
func (h *KYCHandler) List(c *gin.Context) {
	var filter models.KYCFilter
	filter.Search = c.Query("search")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.KYCStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	records, pagination, err := h.kyc.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, records, pagination)
}

// Reviews godoc
// @Summary Verdict history of a record
// @Tags KYC
// @Produce json
// @Param id path string true "KYC record ID"
// @Success 200 {object} response.Envelope
// @Router /admin/kyc/{id}/reviews [get]
func (h *KYCHandler) Reviews(c *gin.Context) {
	reviews, err := h.kyc.Reviews(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, reviews, nil)
}
