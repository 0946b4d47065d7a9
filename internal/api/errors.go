package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"deskhub/internal/apperr"
)

// Error writes a JSON error response with the status implied by the error's
// kind. Unknown errors are masked as a generic 500.
func Error(c *gin.Context, err error) {
	ErrorWithDetails(c, err, nil)
}

func ErrorWithDetails(c *gin.Context, err error, details interface{}) {
	status := http.StatusInternalServerError
	message := err.Error()

	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindNotFound:
		status = http.StatusNotFound
	case apperr.KindConflict:
		status = http.StatusConflict
	case apperr.KindResourceExhausted:
		status = http.StatusUnprocessableEntity
	case apperr.KindInconsistency:
		status = http.StatusInternalServerError
	case apperr.KindExternal:
		status = http.StatusBadGateway
	default:
		message = "internal server error"
	}

	c.JSON(status, ErrorResponse{Error: message, Details: details})
}
