package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/gux-htm/EmersonSched-sub000/internal/dto"
	"github.com/gux-htm/EmersonSched-sub000/internal/service"
	appErrors "github.com/gux-htm/EmersonSched-sub000/pkg/errors"
	"github.com/gux-htm/EmersonSched-sub000/pkg/response"
)

// BlockHandler exposes block allocation endpoints.
type BlockHandler struct {
	blocks *service.BlockService
}

// NewBlockHandler constructs handler.
func NewBlockHandler(blocks *service.BlockService) *BlockHandler {
	return &BlockHandler{blocks: blocks}
}

// Generate godoc
// @Summary Run the block allocator over accepted course requests
// @Tags Blocks
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /blocks/generate [post]
func (h *BlockHandler) Generate(c *gin.Context) {
	result, err := h.blocks.Generate(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, result, nil)
}

// Move godoc
// @Summary Manually relocate a block to a new room, day and slot
// @Tags Blocks
// @Accept json
// @Produce json
// @Param id path string true "Block id"
// @Param payload body dto.MoveBlockRequest true "Target placement"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /blocks/{id} [patch]
func (h *BlockHandler) Move(c *gin.Context) {
	var req dto.MoveBlockRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}
	block, err := h.blocks.Move(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, block, nil)
}

// List godoc
// @Summary List committed blocks
// @Tags Blocks
// @Produce json
// @Param shift query string false "Filter by shift"
// @Param day query int false "Filter by day of week (1-7)"
// @Param sectionId query string false "Filter by section"
// @Param teacherId query string false "Filter by instructor"
// @Success 200 {object} response.Envelope
// @Router /blocks [get]
func (h *BlockHandler) List(c *gin.Context) {
	day, _ := strconv.Atoi(c.Query("day"))
	filter := dto.BlockFilter{
		Shift:     c.Query("shift"),
		DayOfWeek: day,
		SectionID: c.Query("sectionId"),
		TeacherID: c.Query("teacherId"),
	}
	blocks, err := h.blocks.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, blocks, nil)
}
