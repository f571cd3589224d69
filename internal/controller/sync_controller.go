package controller

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/service"
	"github.com/rs/zerolog/log"
)

type SyncController struct {
	syncSvc   service.SyncService
	uploadSvc service.UploadService
}

func NewSyncController(syncSvc service.SyncService, uploadSvc service.UploadService) *SyncController {
	return &SyncController{syncSvc: syncSvc, uploadSvc: uploadSvc}
}

func (ctrl *SyncController) RegisterRoutes(apiV1 *gin.RouterGroup) {
	sync := apiV1.Group("/sync")
	{
		sync.POST("", ctrl.PushBatchHandler)
		sync.GET("/:attempt_id/status", ctrl.StatusHandler)
		sync.POST("/retry", ctrl.RetryHandler)
		sync.GET("/checkpoint/:user_id", ctrl.CheckpointHandler)

		upload := sync.Group("/upload")
		upload.POST("/chunk", ctrl.UploadChunkHandler)
		upload.GET("/:file_id/status", ctrl.ChunkStatusHandler)
		upload.POST("/finalize", ctrl.FinalizeUploadHandler)
	}
}

// PushBatchHandler godoc
// @Summary Push a batch of offline-logged mutations
// @Description Accepts queued mutations for asynchronous replay; duplicates by idempotency key are absorbed and reported, not re-run
// @Tags sync
// @Accept json
// @Produce json
// @Param request body dto.SyncPushRequest true "Sync batch"
// @Success 202 {object} dto.SyncPushResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid or empty batch"
// @Router /sync [post]
func (ctrl *SyncController) PushBatchHandler(c *gin.Context) {
	var req dto.SyncPushRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		log.Warn().Err(err).Msg("Failed to bind SyncPushRequest")
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := ctrl.syncSvc.PushBatch(req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusAccepted, resp)
}

// StatusHandler godoc
// @Summary Inspect the sync queue for an attempt
// @Description Lists every queued mutation for the attempt with per-status counts
// @Tags sync
// @Produce json
// @Param attempt_id path int true "Attempt ID"
// @Success 200 {object} dto.SyncStatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Router /sync/{attempt_id}/status [get]
func (ctrl *SyncController) StatusHandler(c *gin.Context) {
	attemptID, err := strconv.ParseUint(c.Param("attempt_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid attempt ID format"})
		return
	}

	resp, err := ctrl.syncSvc.Status(uint(attemptID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// RetryHandler godoc
// @Summary Retry a failed sync item
// @Description Rearms a FAILED sync item for another replay; dead-lettered and completed items are not retryable
// @Tags sync
// @Accept json
// @Produce json
// @Param request body dto.SyncRetryRequest true "Retry request"
// @Success 200 {object} dto.AckResponse
// @Failure 400 {object} dto.ErrorResponse "Item is not retryable"
// @Failure 404 {object} dto.ErrorResponse "Item not found"
// @Router /sync/retry [post]
func (ctrl *SyncController) RetryHandler(c *gin.Context) {
	var req dto.SyncRetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	if err := ctrl.syncSvc.Retry(req.SyncItemID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.AckResponse{Message: "sync item queued for retry"})
}

// CheckpointHandler godoc
// @Summary Get a user's sync checkpoint
// @Description Returns the timestamp of the user's most recently completed sync item
// @Tags sync
// @Produce json
// @Param user_id path int true "User ID"
// @Success 200 {object} dto.CheckpointResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid ID format"
// @Router /sync/checkpoint/{user_id} [get]
func (ctrl *SyncController) CheckpointHandler(c *gin.Context) {
	userID, err := strconv.ParseUint(c.Param("user_id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "Invalid user ID format"})
		return
	}

	resp, err := ctrl.syncSvc.Checkpoint(uint(userID))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// UploadChunkHandler godoc
// @Summary Upload one chunk of an answer media file
// @Description Stores a single chunk in the staging area; chunks may arrive in any order and re-uploads of the same index are idempotent
// @Tags sync
// @Accept multipart/form-data
// @Produce json
// @Param file_id formData string true "Client-chosen upload identifier"
// @Param chunk_index formData int true "Zero-based chunk index"
// @Param total_chunks formData int true "Total number of chunks"
// @Param chunk formData file true "Chunk content"
// @Success 200 {object} dto.ChunkStatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid chunk metadata"
// @Router /sync/upload/chunk [post]
func (ctrl *SyncController) UploadChunkHandler(c *gin.Context) {
	fileID := c.PostForm("file_id")
	index, errIdx := strconv.Atoi(c.PostForm("chunk_index"))
	total, errTot := strconv.Atoi(c.PostForm("total_chunks"))
	if fileID == "" || errIdx != nil || errTot != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "file_id, chunk_index and total_chunks are required"})
		return
	}

	fileHeader, err := c.FormFile("chunk")
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "chunk file is required"})
		return
	}
	f, err := fileHeader.Open()
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "could not read chunk file"})
		return
	}
	defer f.Close()

	resp, err := ctrl.uploadSvc.SaveChunk(fileID, index, total, f)
	if err != nil {
		log.Warn().Err(err).Str("file_id", fileID).Int("chunk_index", index).Msg("Chunk upload rejected")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// ChunkStatusHandler godoc
// @Summary Check which chunks of an upload have arrived
// @Description Lets a client resume an interrupted upload by reporting the saved chunk count
// @Tags sync
// @Produce json
// @Param file_id path string true "Upload identifier"
// @Param total_chunks query int true "Total number of chunks"
// @Success 200 {object} dto.ChunkStatusResponse
// @Failure 400 {object} dto.ErrorResponse "Invalid parameters"
// @Router /sync/upload/{file_id}/status [get]
func (ctrl *SyncController) ChunkStatusHandler(c *gin.Context) {
	fileID := c.Param("file_id")
	total, err := strconv.Atoi(c.Query("total_chunks"))
	if err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: "total_chunks query param is required"})
		return
	}

	resp, err := ctrl.uploadSvc.ChunkStatus(fileID, total)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// FinalizeUploadHandler godoc
// @Summary Finalize a chunked upload
// @Description Assembles all chunks into one object, ships it to object storage and returns the media URL; fails listing the missing chunk indexes if incomplete
// @Tags sync
// @Accept json
// @Produce json
// @Param request body dto.FinalizeUploadRequest true "Finalize request"
// @Success 200 {object} dto.FinalizeUploadResponse
// @Failure 400 {object} dto.ErrorResponse "Upload incomplete or already finalized"
// @Router /sync/upload/finalize [post]
func (ctrl *SyncController) FinalizeUploadHandler(c *gin.Context) {
	var req dto.FinalizeUploadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
		return
	}

	resp, err := ctrl.uploadSvc.Finalize(c.Request.Context(), req)
	if err != nil {
		log.Warn().Err(err).Str("file_id", req.FileID).Msg("Upload finalize rejected")
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
