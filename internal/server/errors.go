package server

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/spacesedan/sentiscope/internal/nlp"
)

// ErrorResponse mirrors the {"detail": ...} body inference services return,
// so one gateway can sit behind another.
type ErrorResponse struct {
	Detail    string `json:"detail"`
	RequestID string `json:"request_id,omitempty"`
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, nlp.ErrUnknownTask):
		return http.StatusBadRequest
	case errors.Is(err, nlp.ErrMalformedResult):
		return http.StatusBadGateway
	case errors.Is(err, nlp.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	case errors.Is(err, nlp.ErrBackend), errors.Is(err, nlp.ErrUnsupportedTask), errors.Is(err, nlp.ErrCorrelatorClosed):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func respondError(c *gin.Context, status int, detail string) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Detail:    detail,
		RequestID: c.GetString(requestIDKey),
	})
}

func handleAnalysisError(c *gin.Context, err error) {
	_ = c.Error(err)
	respondError(c, statusFor(err), err.Error())
}
