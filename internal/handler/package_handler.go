package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/models"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

type packageService interface {
	Intake(ctx context.Context, claims *models.JWTClaims, req dto.CreatePackageRequest) (*models.Package, error)
	Do(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.PackageActionRequest) (*models.Package, error)
	Get(ctx context.Context, claims *models.JWTClaims, packageID string) (*dto.PackageItem, error)
	List(ctx context.Context, claims *models.JWTClaims, filter models.PackageFilter) ([]dto.PackageItem, *models.Pagination, error)
	AttachFile(ctx context.Context, claims *models.JWTClaims, packageID string, req dto.AttachFileRequest) (*models.PackageFile, error)
	History(ctx context.Context, claims *models.JWTClaims, packageID string) ([]models.PackageStatusEvent, error)
}

// PackageHandler exposes package intake and lifecycle endpoints.
type PackageHandler struct {
	packages packageService
}

// NewPackageHandler constructs PackageHandler.
func NewPackageHandler(packages packageService) *PackageHandler {
	return &PackageHandler{packages: packages}
}

// List godoc
// @Summary List packages
// @Tags Packages
// @Produce json
// @Param registrationId query string false "Filter by registration"
// @Param status query string false "Filter by status"
// @Param type query string false "Filter by package type"
// @Param search query string false "Search in description"
// @Param from query string false "Received from (RFC3339)"
// @Param to query string false "Received until (RFC3339)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /packages [get]
func (h *PackageHandler) List(c *gin.Context) {
	filter := packageFilterFromQuery(c)

	items, pagination, err := h.packages.List(c.Request.Context(), claimsFromContext(c), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, items, pagination)
}

// Get godoc
// @Summary Get one package with its files
// @Tags Packages
// @Produce json
// @Param id path string true "Package ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /packages/{id} [get]
func (h *PackageHandler) Get(c *gin.Context) {
	item, err := h.packages.Get(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, item, nil)
}

// Create godoc
// @Summary Register a received package
// @Description Admin intake for a physical item arriving at the mailroom
// @Tags Packages
// @Accept json
// @Produce json
// @Param payload body dto.CreatePackageRequest true "Intake payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /packages [post]
func (h *PackageHandler) Create(c *gin.Context) {
	var req dto.CreatePackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	pkg, err := h.packages.Intake(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, pkg)
}

// Action godoc
// @Summary Apply a lifecycle action
// @Description Single mutation endpoint for all package transitions
// @Tags Packages
// @Accept json
// @Produce json
// @Param id path string true "Package ID"
// @Param payload body dto.PackageActionRequest true "Action payload"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /packages/{id}/action [patch]
func (h *PackageHandler) Action(c *gin.Context) {
	var req dto.PackageActionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid action payload"))
		return
	}
	pkg, err := h.packages.Do(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, pkg, nil)
}

// AttachFile godoc
// @Summary Attach a media record to a package
// @Tags Packages
// @Accept json
// @Produce json
// @Param id path string true "Package ID"
// @Param payload body dto.AttachFileRequest true "File payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /packages/{id}/files [post]
func (h *PackageHandler) AttachFile(c *gin.Context) {
	var req dto.AttachFileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid file payload"))
		return
	}
	file, err := h.packages.AttachFile(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, file)
}

// History godoc
// @Summary Package transition history
// @Tags Packages
// @Produce json
// @Param id path string true "Package ID"
// @Success 200 {object} response.Envelope
// @Router /packages/{id}/history [get]
func (h *PackageHandler) History(c *gin.Context) {
	events, err := h.packages.History(c.Request.Context(), claimsFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, events, nil)
}

func packageFilterFromQuery(c *gin.Context) models.PackageFilter {
	var filter models.PackageFilter
	filter.RegistrationID = c.Query("registrationId")
	filter.Search = c.Query("search")
	if status := strings.ToUpper(c.Query("status")); status != "" {
		s := models.PackageStatus(status)
		filter.Status = &s
	}
	if pkgType := strings.ToUpper(c.Query("type")); pkgType != "" {
		t := models.PackageType(pkgType)
		filter.Type = &t
	}
	if from, err := time.Parse(time.RFC3339, c.Query("from")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse(time.RFC3339, c.Query("to")); err == nil {
		filter.DateTo = &to
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}
	filter.SortBy = c.Query("sort")
	filter.SortOrder = c.Query("order")
	return filter
}
