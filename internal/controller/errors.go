package controller

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/quinloq/examgate/internal/dto"
	"github.com/quinloq/examgate/internal/service"
)

// respondError maps service errors to HTTP statuses. Unknown errors are a 500
// with a generic body; details stay in the logs.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrNotFound):
		c.JSON(http.StatusNotFound, dto.ErrorResponse{Error: "not found"})
	case errors.Is(err, service.ErrTokenMismatch),
		errors.Is(err, service.ErrAttemptClosed),
		errors.Is(err, service.ErrEmptyBatch),
		errors.Is(err, service.ErrNotRetryable),
		errors.Is(err, service.ErrBadChunkIndex),
		errors.Is(err, service.ErrUploadIncomplete),
		errors.Is(err, service.ErrUploadGone),
		errors.Is(err, service.ErrBadRequest):
		c.JSON(http.StatusBadRequest, dto.ErrorResponse{Error: err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, dto.ErrorResponse{Error: "internal server error"})
	}
}
