package helpers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gatherly/api/internal/services"
)

type ErrorResponse struct {
	Error   string            `json:"error"`
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func HTTPStatusText(code int) string {
	return http.StatusText(code)
}

func RespondWithError(c *gin.Context, statusCode int, customMessage string) {
	c.JSON(statusCode, ErrorResponse{
		Error:   HTTPStatusText(statusCode),
		Message: customMessage,
	})
}

// RespondWithDomainError maps the service error taxonomy onto HTTP statuses:
// validation 400, conflict 409, authentication 401, permission 403, not
// found 404. Anything unrecognized is a 500.
func RespondWithDomainError(c *gin.Context, err error) {
	var validationErr *services.ValidationError
	if errors.As(err, &validationErr) {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   HTTPStatusText(http.StatusBadRequest),
			Message: "Validation failed.",
			Fields:  validationErr.Fields,
		})
		return
	}

	var conflictErr *services.ConflictError
	if errors.As(err, &conflictErr) {
		RespondWithError(c, http.StatusConflict, conflictErr.Message)
		return
	}

	var authErr *services.AuthenticationError
	if errors.As(err, &authErr) {
		RespondWithError(c, http.StatusUnauthorized, authErr.Reason)
		return
	}

	var permErr *services.PermissionError
	if errors.As(err, &permErr) {
		RespondWithError(c, http.StatusForbidden, permErr.Reason)
		return
	}

	var notFoundErr *services.NotFoundError
	if errors.As(err, &notFoundErr) {
		RespondWithError(c, http.StatusNotFound, notFoundErr.Error())
		return
	}

	RespondWithError(c, http.StatusInternalServerError, "Something went wrong.")
}
