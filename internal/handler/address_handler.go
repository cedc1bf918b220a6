package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/ja-yanga/keep-ph-api/internal/dto"
	"github.com/ja-yanga/keep-ph-api/internal/service"
	appErrors "github.com/ja-yanga/keep-ph-api/pkg/errors"
	"github.com/ja-yanga/keep-ph-api/pkg/response"
)

// AddressHandler exposes saved address endpoints.
type AddressHandler struct {
	addresses *service.AddressService
}

// NewAddressHandler constructs AddressHandler.
func NewAddressHandler(addresses *service.AddressService) *AddressHandler {
	return &AddressHandler{addresses: addresses}
}

// List godoc
// @Summary List the caller's addresses
// @Tags Addresses
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /addresses [get]
func (h *AddressHandler) List(c *gin.Context) {
	addresses, err := h.addresses.List(c.Request.Context(), claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, addresses, nil)
}

// Create godoc
// @Summary Add a saved address
// @Tags Addresses
// @Accept json
// @Produce json
// @Param payload body dto.CreateAddressRequest true "Address payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /addresses [post]
func (h *AddressHandler) Create(c *gin.Context) {
	var req dto.CreateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid address payload"))
		return
	}
	addr, err := h.addresses.Create(c.Request.Context(), claimsFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, addr)
}

// Update godoc
// @Summary Edit a saved address
// @Tags Addresses
// @Accept json
// @Produce json
// @Param id path string true "Address ID"
// @Param payload body dto.UpdateAddressRequest true "Address payload"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /addresses/{id} [put]
func (h *AddressHandler) Update(c *gin.Context) {
	var req dto.UpdateAddressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid address payload"))
		return
	}
	addr, err := h.addresses.Update(c.Request.Context(), claimsFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, addr, nil)
}

// Delete godoc
// @Summary Remove a saved address
// @Description Refused while a pending release request references the address
// @Tags Addresses
// @Produce json
// @Param id path string true "Address ID"
// @Success 204 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /addresses/{id} [delete]
func (h *AddressHandler) Delete(c *gin.Context) {
	if err := h.addresses.Delete(c.Request.Context(), claimsFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
