package handlers

import (
	"errors"
	"net/http"

	"gridreplay/internal/dataset"
	"gridreplay/internal/replay"
	"gridreplay/internal/repository"
	"gridreplay/internal/service"

	"github.com/gin-gonic/gin"
)

const errInternal = "internal error"

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, service.ErrInvalidDataset),
		errors.Is(err, replay.ErrEmptyDataset),
		errors.Is(err, service.ErrInvalidTimeRange),
		errors.Is(err, service.ErrUnknownEventType),
		errors.Is(err, dataset.ErrUnsupportedFormat),
		errors.Is(err, service.ErrEmptyUsername),
		errors.Is(err, service.ErrInvalidPassword):
		return http.StatusBadRequest
	case errors.Is(err, repository.ErrDatasetNotFound),
		errors.Is(err, service.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, replay.ErrUnexportedHistory),
		errors.Is(err, replay.ErrSessionNotLoaded),
		errors.Is(err, service.ErrSessionExhausted),
		errors.Is(err, service.ErrGenerationChanged),
		errors.Is(err, repository.ErrUserExists):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// respondError writes {"error": msg}. Server errors are logged and their
// text is not echoed to the client.
func (h *Handler) respondError(c *gin.Context, logKey string, err error, kv ...interface{}) {
	code := statusFor(err)
	msg := err.Error()
	if code == http.StatusInternalServerError {
		if h.log != nil {
			fields := append([]interface{}{"err", err}, kv...)
			h.log.Errorw(logKey, fields...)
		}
		msg = errInternal
	}
	c.JSON(code, gin.H{"error": msg})
}
