package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// ScheduleHandler exposes the schedule reset endpoint.
type ScheduleHandler struct {
	schedule *service.ScheduleService
}

// NewScheduleHandler constructs handler.
func NewScheduleHandler(schedule *service.ScheduleService) *ScheduleHandler {
	return &ScheduleHandler{schedule: schedule}
}

// Reset godoc
// @Summary Clear generated scheduling state by scope
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ResetScheduleRequest true "Reset scope"
// @Success 200 {object} response.Envelope
// @Router /schedule/reset [post]
func (h *ScheduleHandler) Reset(c *gin.Context) {
	var req dto.ResetScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.schedule.Reset(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
