package ginserver

import (
	"errors"
	"log/slog"
	"net/http"

	gin "github.com/gin-gonic/gin"

	rateplansapp "rateplans/internal/app/handlers/rateplans"
	"rateplans/internal/app/middleware"
	domainproperties "rateplans/internal/domain/properties"
	domainrateplans "rateplans/internal/domain/rateplans"
	domainreservations "rateplans/internal/domain/reservations"
	"rateplans/internal/infra/db/mongo"
	"rateplans/internal/infra/lock"
	"rateplans/internal/infra/storage/memory"
)

const retryAfterSeconds = "1"

// handleError writes the response for err and logs anything that is not a client mistake.
func handleError(c *gin.Context, logger *slog.Logger, err error) {
	var blocked *rateplansapp.DeletionBlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusConflict, blocked.Deletion)
		return
	}

	status := statusFor(err)
	body := gin.H{"error": err.Error()}
	if fields := fieldsOf(err); len(fields) > 0 {
		body["fields"] = fields
	}
	if status == http.StatusServiceUnavailable {
		c.Header("Retry-After", retryAfterSeconds)
	}
	if logger != nil && status >= http.StatusInternalServerError {
		logger.Error("request failed", "status", status, "error", err, "path", c.FullPath(), "request_id", c.GetString("request_id"))
	}
	c.JSON(status, body)
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, middleware.ErrInvalidInput),
		errors.Is(err, domainrateplans.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, middleware.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, middleware.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, domainproperties.ErrPropertyNotFound),
		errors.Is(err, domainrateplans.ErrRatePlanNotFound),
		errors.Is(err, domainreservations.ErrReservationNotFound),
		errors.Is(err, rateplansapp.ErrOverrideNotFound):
		return http.StatusNotFound
	case errors.Is(err, rateplansapp.ErrDeletionBlocked),
		errors.Is(err, domainrateplans.ErrConcurrentUpdate),
		errors.Is(err, memory.ErrConcurrentUpdate),
		errors.Is(err, mongo.ErrConcurrentUpdate):
		return http.StatusConflict
	case errors.Is(err, lock.ErrLockTimeout),
		errors.Is(err, rateplansapp.ErrExportUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func fieldsOf(err error) map[string]string {
	var input *middleware.InputError
	if errors.As(err, &input) {
		return input.Fields
	}
	var validation *domainrateplans.ValidationError
	if errors.As(err, &validation) {
		return validation.Fields()
	}
	return nil
}

func respondBadRequest(c *gin.Context, field, message string) {
	handleError(c, nil, middleware.NewInputError(field, message))
}
