package handlers

import (
	"errors"
	"net/http"

	"github.com/pocketbase/pocketbase/core"
	"go.uber.org/zap"

	"budgetledger/services"
)

// genericErrorMessage is shown for failures the caller cannot fix.
const genericErrorMessage = "Something went wrong. Please try again."

// ErrorJSON writes {"error": message} with the given status.
func ErrorJSON(e *core.RequestEvent, statusCode int, message string) error {
	return e.JSON(statusCode, map[string]string{"error": message})
}

// respondError maps err to a status code. Invalid input and missing records
// are reported to the caller; everything else is logged and hidden.
func respondError(e *core.RequestEvent, logger *zap.Logger, op string, err error) error {
	var invalid *services.InvalidInputError
	var tooLarge *http.MaxBytesError
	switch {
	case errors.As(err, &invalid):
		logger.Debug(op+": invalid input", zap.Error(err))
		return ErrorJSON(e, http.StatusBadRequest, invalid.Error())
	case errors.As(err, &tooLarge):
		return ErrorJSON(e, http.StatusRequestEntityTooLarge, "Upload is too large")
	case errors.Is(err, services.ErrNotFound):
		return ErrorJSON(e, http.StatusNotFound, "Not found")
	default:
		logger.Error(op+" failed",
			zap.Error(err),
			zap.String("method", e.Request.Method),
			zap.String("path", e.Request.URL.Path),
		)
		return ErrorJSON(e, http.StatusInternalServerError, genericErrorMessage)
	}
}
