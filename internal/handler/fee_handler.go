package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/edupay/edupay-api/internal/models"
	"github.com/edupay/edupay-api/internal/service"
	appErrors "github.com/edupay/edupay-api/pkg/errors"
	"github.com/edupay/edupay-api/pkg/response"
)

// FeeHandler exposes fee and fee type endpoints.
type FeeHandler struct {
	fees *service.FeeService
}

// NewFeeHandler constructs FeeHandler.
func NewFeeHandler(fees *service.FeeService) *FeeHandler {
	return &FeeHandler{fees: fees}
}

// ListFeeTypes godoc
// @Summary List fee types
// @Tags Fees
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /fees/types [get]
func (h *FeeHandler) ListFeeTypes(c *gin.Context) {
	feeTypes, err := h.fees.ListFeeTypes(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, feeTypes, nil)
}

// CreateFeeType godoc
// @Summary Create fee type
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeTypeRequest true "Fee type payload"
// @Success 201 {object} response.Envelope
// @Router /fees/types [post]
func (h *FeeHandler) CreateFeeType(c *gin.Context) {
	var req service.CreateFeeTypeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	feeType, err := h.fees.CreateFeeType(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, feeType)
}

// DeleteFeeType godoc
// @Summary Delete fee type
// @Tags Fees
// @Produce json
// @Param id path string true "Fee type ID"
// @Success 204
// @Router /fees/types/{id} [delete]
func (h *FeeHandler) DeleteFeeType(c *gin.Context) {
	if err := h.fees.DeleteFeeType(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// List godoc
// @Summary List fees
// @Tags Fees
// @Produce json
// @Param studentId query string false "Filter by student"
// @Param status query string false "Filter by status (pending, partial, paid)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /fees [get]
func (h *FeeHandler) List(c *gin.Context) {
	var filter models.FeeFilter
	filter.StudentID = c.Query("studentId")
	if status := c.Query("status"); status != "" {
		s := models.FeeStatus(status)
		filter.Status = &s
	}
	if page, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		filter.Page = page
	}
	if size, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		filter.PageSize = size
	}

	fees, pagination, err := h.fees.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, pagination)
}

// Get godoc
// @Summary Get fee detail
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 200 {object} response.Envelope
// @Router /fees/{id} [get]
func (h *FeeHandler) Get(c *gin.Context) {
	fee, err := h.fees.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Create godoc
// @Summary Assign fee to student
// @Tags Fees
// @Accept json
// @Produce json
// @Param payload body service.CreateFeeRequest true "Fee payload"
// @Success 201 {object} response.Envelope
// @Router /fees [post]
func (h *FeeHandler) Create(c *gin.Context) {
	var req service.CreateFeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.Create(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, fee)
}

// ListByStudent godoc
// @Summary List a student's fees
// @Tags Fees
// @Produce json
// @Param id path string true "Student ID"
// @Success 200 {object} response.Envelope
// @Router /fees/student/{id} [get]
func (h *FeeHandler) ListByStudent(c *gin.Context) {
	fees, err := h.fees.ListByStudent(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fees, nil)
}

// UpdateStatus godoc
// @Summary Override fee status
// @Tags Fees
// @Accept json
// @Produce json
// @Param id path string true "Fee ID"
// @Param payload body object true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /fees/{id}/status [patch]
func (h *FeeHandler) UpdateStatus(c *gin.Context) {
	var req struct {
		Status models.FeeStatus `json:"status"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	fee, err := h.fees.UpdateStatus(c.Request.Context(), c.Param("id"), req.Status)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, fee, nil)
}

// Delete godoc
// @Summary Delete fee
// @Tags Fees
// @Produce json
// @Param id path string true "Fee ID"
// @Success 204
// @Router /fees/{id} [delete]
func (h *FeeHandler) Delete(c *gin.Context) {
	if err := h.fees.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
