package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// RequestHandler exposes the course-request lifecycle endpoints.
type RequestHandler struct {
	requests *service.RequestService
}

// NewRequestHandler constructs handler.
func NewRequestHandler(requests *service.RequestService) *RequestHandler {
	return &RequestHandler{requests: requests}
}

// Generate godoc
// @Summary Generate pending course requests for uncovered offerings
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param payload body dto.GenerateRequestsFilter true "Offering filter"
// @Success 200 {object} response.Envelope
// @Router /course-requests/generate [post]
func (h *RequestHandler) Generate(c *gin.Context) {
	var filter dto.GenerateRequestsFilter
	if err := c.ShouldBindJSON(&filter); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.requests.Generate(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// List godoc
// @Summary List course requests by status
// @Tags CourseRequests
// @Produce json
// @Param status query string true "Request status" Enums(pending, accepted, committed)
// @Success 200 {object} response.Envelope
// @Router /course-requests [get]
func (h *RequestHandler) List(c *gin.Context) {
	requests, err := h.requests.List(c.Request.Context(), c.Query("status"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, requests, nil)
}

// Accept godoc
// @Summary Accept a pending course request with teaching preferences
// @Tags CourseRequests
// @Accept json
// @Produce json
// @Param id path string true "Request id"
// @Param payload body dto.AcceptRequestPayload true "Day and slot preferences"
// @Success 200 {object} response.Envelope
// @Router /course-requests/{id}/accept [post]
func (h *RequestHandler) Accept(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var payload dto.AcceptRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.requests.Accept(c.Request.Context(), c.Param("id"), claims.UserID, payload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Undo godoc
// @Summary Undo a recent acceptance while its window is open
// @Tags CourseRequests
// @Produce json
// @Param id path string true "Request id"
// @Success 200 {object} response.Envelope
// @Router /course-requests/{id}/undo [post]
func (h *RequestHandler) Undo(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	result, err := h.requests.Undo(c.Request.Context(), c.Param("id"), claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}
