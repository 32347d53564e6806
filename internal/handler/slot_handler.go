package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/models"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// SlotHandler exposes time-slot generation endpoints.
type SlotHandler struct {
	slots *service.SlotService
}

// NewSlotHandler constructs handler.
func NewSlotHandler(slots *service.SlotService) *SlotHandler {
	return &SlotHandler{slots: slots}
}

// Generate godoc
// @Summary Generate fixed-length time slots for a shift
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.GenerateSlotsRequest true "Slot generation parameters"
// @Success 200 {object} response.Envelope
// @Router /slots/generate [post]
func (h *SlotHandler) Generate(c *gin.Context) {
	var req dto.GenerateSlotsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.slots.GenerateFixed(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// GenerateDistribution godoc
// @Summary Generate day-scoped slots from a length distribution
// @Tags TimeSlots
// @Accept json
// @Produce json
// @Param payload body dto.GenerateDistributionRequest true "Distribution parameters"
// @Success 200 {object} response.Envelope
// @Router /slots/distribution [post]
func (h *SlotHandler) GenerateDistribution(c *gin.Context) {
	var req dto.GenerateDistributionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.slots.GenerateDistribution(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List time slots for a shift
// @Tags TimeSlots
// @Produce json
// @Param shift query string true "Shift" Enums(morning, evening, weekend)
// @Success 200 {object} response.Envelope
// @Router /slots [get]
func (h *SlotHandler) List(c *gin.Context) {
	shift := models.Shift(c.Query("shift"))
	if !models.ValidShift(shift) {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "shift must be morning, evening or weekend"))
		return
	}
	slots, err := h.slots.ListByShift(c.Request.Context(), shift)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, slots, nil)
}
