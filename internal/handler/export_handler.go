package handler

import (
	"net/http"
	"path/filepath"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// ExportHandler exposes asynchronous export endpoints.
type ExportHandler struct {
	exports *service.ExportService
}

// NewExportHandler constructs handler.
func NewExportHandler(exports *service.ExportService) *ExportHandler {
	return &ExportHandler{exports: exports}
}

// Enqueue godoc
// @Summary Queue a timetable or exam-plan export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export parameters"
// @Success 202 {object} response.Envelope
// @Router /exports [post]
func (h *ExportHandler) Enqueue(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	result, err := h.exports.Enqueue(c.Request.Context(), req, claims.UserID)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusAccepted, result, nil)
}

// Status godoc
// @Summary Report an export job's state and download URL
// @Tags Exports
// @Produce json
// @Param id path string true "Job id"
// @Success 200 {object} response.Envelope
// @Router /exports/{id} [get]
func (h *ExportHandler) Status(c *gin.Context) {
	result, err := h.exports.Status(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// RenderBlocks godoc
// @Summary Download the class timetable directly
// @Tags Exports
// @Produce octet-stream
// @Param format query string false "csv or pdf" default(csv)
// @Success 200 {file} binary
// @Router /blocks/export [get]
func (h *ExportHandler) RenderBlocks(c *gin.Context) {
	format := c.Query("format")
	rendered, contentType, err := h.exports.Render(c.Request.Context(), "blocks", format)
	if err != nil {
		response.Error(c, err)
		return
	}
	if format == "" {
		format = "csv"
	}
	c.Header("Content-Disposition", `attachment; filename="timetable.`+format+`"`)
	c.Data(http.StatusOK, contentType, rendered)
}

// Download godoc
// @Summary Download a completed export via signed token
// @Tags Exports
// @Produce octet-stream
// @Param token query string true "Signed download token"
// @Success 200 {file} binary
// @Router /exports/download [get]
func (h *ExportHandler) Download(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token required"))
		return
	}
	path, err := h.exports.Open(token)
	if err != nil {
		response.Error(c, err)
		return
	}
	c.FileAttachment(path, filepath.Base(path))
}
