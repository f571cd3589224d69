package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/service"
	"github.com/rs/zerolog/log"
)

type StudentController struct {
	attemptSvc service.AttemptService
}

func NewStudentController(attemptSvc service.AttemptService) *StudentController {
	return &StudentController{attemptSvc: attemptSvc}
}

func (ctrl *StudentController) RegisterRoutes(apiV1 *gin.RouterGroup) {
	student := apiV1.Group("/student")
	{
		student.POST("/download", ctrl.DownloadPackageHandler)
		student.POST("/answers", ctrl.SubmitAnswerHandler)
		student.POST("/submit", ctrl.SubmitExamHandler)
		student.GET("/result/:attempt_id", ctrl.GetResultHandler)
	}
}

// DownloadPackageHandler godoc
// @Summary Download an exam package and start an attempt
// @Description Validates the session token, creates the attempt if this idempotency key is new, and returns the question package without answer keys
// @Tags student
// @Accept json
// @Produce json
// @Param request body dto.DownloadPackageRequest true "Download request"
// @Success 200 {object} dto.PackageResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request or token mismatch"
// @Failure 404 {object} dto.ErrorResponse "Session not found or not active"
// @Router /student/download [post]
func (ctrl *StudentController) DownloadPackageHandler(c *gin.Context) {
	var req dto.DownloadPackageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind DownloadPackageRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := ctrl.attemptSvc.DownloadPackage(req)
	if err != nil {
		log.Warn().Err(err).Uint("session_id", req.SessionID).Uint("user_id", req.UserID).
			Msg("Package download refused")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitAnswerHandler godoc
// @Summary Submit or update an answer
// @Description Upserts an answer for an in-progress attempt; a repeated idempotency key is treated as a retry of the same edit
// @Tags student
// @Accept json
// @Produce json
// @Param request body dto.SubmitAnswerRequest true "Answer payload"
// @Success 200 {object} dto.AnswerResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request or attempt closed"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /student/answers [post]
func (ctrl *StudentController) SubmitAnswerHandler(c *gin.Context) {
	var req dto.SubmitAnswerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := ctrl.attemptSvc.SubmitAnswer(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// SubmitExamHandler godoc
// @Summary Submit an exam attempt
// @Description Closes the attempt and schedules grading; a retry on an already-submitted attempt returns an acknowledgement, not an error
// @Tags student
// @Accept json
// @Produce json
// @Param request body dto.SubmitExamRequest true "Submission request"
// @Success 200 {object} dto.SubmitExamResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid request"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /student/submit [post]
func (ctrl *StudentController) SubmitExamHandler(c *gin.Context) {
	var req dto.SubmitExamRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := ctrl.attemptSvc.SubmitExam(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// GetResultHandler godoc
// @Summary Get the result of an attempt
// @Description Returns grading status only until results are published, then the full score breakdown
// @Tags student
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Param user_id query int true "Requesting user ID"
// @Success 200 {object} dto.AttemptResultResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Failure 404 {object} dto.ErrorResponse "Attempt not found"
// @Router /student/result/{attempt_id} [get]
func (ctrl *StudentController) GetResultHandler(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("attempt_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid attempt ID format"})
		return
	}
	userID, err := strconv.ParseUint(c.Query("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID format"})
		return
	}

	resp, err := ctrl.attemptSvc.GetAttemptResult(uint(attemptID), uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
