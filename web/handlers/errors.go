package handlers

import (
	"net/http"

	apperrors "pa-intake/errors"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// respondWithError logs the technical error and returns a user-friendly message
func respondWithError(c *gin.Context, statusCode int, technicalError error, userMessage string, logger *zap.Logger, fields ...zap.Field) {
	if logger != nil {
		fields = append(fields, zap.Error(technicalError))
		logger.Error("Request failed", fields...)
	}

	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondWithClientError returns a client error (no logging needed for validation errors)
func respondWithClientError(c *gin.Context, statusCode int, userMessage string) {
	c.JSON(statusCode, gin.H{"error": userMessage})
}

// respondEngineError maps the engine's error taxonomy onto HTTP statuses.
func respondEngineError(c *gin.Context, err error, logger *zap.Logger, fields ...zap.Field) {
	switch {
	case apperrors.IsSessionNotFound(err):
		respondWithClientError(c, http.StatusNotFound, "session not found")
	case apperrors.IsSessionClosed(err):
		respondWithClientError(c, http.StatusConflict, "session is closed")
	case apperrors.IsGraphNotFound(err):
		respondWithError(c, http.StatusInternalServerError, err, "intake is misconfigured for this medication", logger, fields...)
	case apperrors.IsInvalidInput(err):
		respondWithClientError(c, http.StatusBadRequest, err.Error())
	default:
		respondWithError(c, http.StatusInternalServerError, err, "internal error", logger, fields...)
	}
}
