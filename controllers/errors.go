package controllers

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yeremiapane/table-order/database"
	"github.com/yeremiapane/table-order/models"
	"github.com/yeremiapane/table-order/services"
	"github.com/yeremiapane/table-order/utils"
)

// statusFor maps a service error to the HTTP status of the web front.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrMissingTable),
		errors.Is(err, services.ErrInvalidSession),
		errors.Is(err, services.ErrEmptyCart),
		errors.Is(err, services.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, services.ErrInvalidPIN),
		errors.Is(err, services.ErrAdminLocked):
		return http.StatusUnauthorized
	case errors.Is(err, services.ErrUnknownItem),
		errors.Is(err, services.ErrOrderNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrItemUnavailable),
		errors.Is(err, services.ErrIllegalTransition),
		errors.Is(err, services.ErrSubmitInFlight):
		return http.StatusConflict
	case errors.Is(err, services.ErrConfirmationRequired):
		return http.StatusPreconditionRequired
	case errors.Is(err, database.ErrValueTooLarge):
		return http.StatusRequestEntityTooLarge
	case errors.Is(err, services.ErrMissingOrderID),
		services.IsConnectivity(err):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	}
	if ae, ok := services.AsAPIError(err); ok {
		if ae.StatusCode >= 400 && ae.StatusCode < 500 {
			return ae.StatusCode
		}
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

// respondServiceError answers with the user-facing message of err.
func respondServiceError(c *gin.Context, err error, fallback string) {
	code := statusFor(err)
	if code >= http.StatusInternalServerError {
		utils.ErrorLogger.Printf("%s %s: %v", c.Request.Method, c.Request.URL.Path, err)
	}
	utils.RespondError(c, code, errors.New(services.UserMessage(err, fallback)))
}

// confirmed reads the confirm flag of destructive actions from the query.
func confirmed(c *gin.Context) bool {
	v := c.Query("confirm")
	return v == "true" || v == "1"
}
