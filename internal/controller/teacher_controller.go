package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/service"
	"github.com/rs/zerolog/log"
)

type TeacherController struct {
	gradingSvc service.GradingService
}

func NewTeacherController(gradingSvc service.GradingService) *TeacherController {
	return &TeacherController{gradingSvc: gradingSvc}
}

func (ctrl *TeacherController) RegisterRoutes(apiV1 *gin.RouterGroup) {
	teacher := apiV1.Group("/teacher")
	{
		teacher.POST("/answers/:answer_id/grade", ctrl.ManualGradeHandler)
		teacher.POST("/attempts/:attempt_id/publish", ctrl.PublishHandler)
	}
}

// ManualGradeHandler godoc
// @Summary Manually grade an answer
// @Description Records a human score and feedback for an answer awaiting manual review and recomputes the attempt totals
// @Tags teacher
// @Accept json
// @Produce json
// @Param answer_id path int true "Answer ID"
// @Param request body dto.ManualGradeRequest true "Score and feedback"
// @Success 200 {object} dto.AckResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Answer not found"
// @Router /teacher/answers/{answer_id}/grade [post]
func (ctrl *TeacherController) ManualGradeHandler(c *gin.Context) {
	answerID, err := strconv.ParseUint(c.Param("answer_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid answer ID format"})
		return
	}

	var req dto.ManualGradeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}
	if req.Score < 0 {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "score must not be negative"})
		return
	}

	if err := ctrl.gradingSvc.GradeManually(uint(answerID), req); err != nil {
		log.Error().Err(err).Uint64("answer_id", answerID).Msg("Manual grade failed")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{Message: "answer graded"})
}

// PublishHandler godoc
// @Summary Publish an attempt's results
// @Description Makes scores visible to the student; valid only once grading is auto-graded or completed
// @Tags teacher
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.AckResponse
// @Failure 400 {object} dto.ErrorResponse "Attempt not in a publishable state"
// @Router /teacher/attempts/{attempt_id}/publish [post]
func (ctrl *TeacherController) PublishHandler(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("attempt_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid attempt ID format"})
		return
	}

	if err := ctrl.gradingSvc.PublishResult(uint(attemptID)); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{Message: "results published"})
}
