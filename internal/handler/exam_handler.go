package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// ExamHandler exposes exam scheduling endpoints.
type ExamHandler struct {
	exams *service.ExamService
}

// NewExamHandler constructs handler.
func NewExamHandler(exams *service.ExamService) *ExamHandler {
	return &ExamHandler{exams: exams}
}

// GenerateSession godoc
// @Summary Schedule an exam session across its calendar window
// @Tags Exams
// @Accept json
// @Produce json
// @Param payload body dto.GenerateExamSessionRequest true "Session parameters"
// @Success 200 {object} response.Envelope
// @Router /exams/sessions [post]
func (h *ExamHandler) GenerateSession(c *gin.Context) {
	var req dto.GenerateExamSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exams.GenerateSession(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List scheduled exams
// @Tags Exams
// @Produce json
// @Param examType query string false "Filter by exam type"
// @Param sectionId query string false "Filter by section"
// @Success 200 {object} response.Envelope
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	filter := dto.ExamFilter{ExamType: c.Query("examType"), SectionID: c.Query("sectionId")}
	exams, err := h.exams.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, exams, nil)
}
