package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"vault-indexer/internal/domain"
)

type apiResponse struct {
	Code    int            `json:"code"`
	Message string         `json:"message"`
	Data    any            `json:"data,omitempty"`
	Meta    map[string]any `json:"meta,omitempty"`
}

// Ok writes data as a plain 200 JSON body.
func Ok(c *gin.Context, data any) {
	c.JSON(http.StatusOK, data)
}

// Error writes an error envelope and aborts the chain.
func Error(c *gin.Context, status int, message string, meta map[string]any) {
	c.AbortWithStatusJSON(status, apiResponse{
		Code:    status,
		Message: message,
		Meta:    meta,
	})
}

// StatusFor maps a domain error to its HTTP status.
func StatusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrValidation),
		errors.Is(err, domain.ErrConflict),
		errors.Is(err, domain.ErrNotEligible):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, domain.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrRateLimited):
		return http.StatusTooManyRequests
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err with its mapped status. Internal errors are logged and
// their text is not exposed.
func fail(c *gin.Context, logger *zap.Logger, err error) {
	status := StatusFor(err)
	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("route", c.FullPath()),
			zap.Error(err),
		)
		Error(c, status, "internal error", nil)
		return
	}
	Error(c, status, err.Error(), nil)
}

func badRequest(c *gin.Context, message string) {
	Error(c, http.StatusBadRequest, message, nil)
}

func unavailable(c *gin.Context, what string) {
	Error(c, http.StatusServiceUnavailable, what+" unavailable", nil)
}
