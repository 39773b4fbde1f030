package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/numeraire/swissknife-go/internal/apperrors"
	"github.com/numeraire/swissknife-go/internal/httpapi/dto"
)

// writeError maps err to the {status, reason} body the external interface
// promises, deriving the status code from its apperrors.Kind when present.
func writeError(c *gin.Context, err error) {
	if appErr, ok := apperrors.As(err); ok {
		status := appErr.HTTPStatus()
		if appErr.Kind == apperrors.KindAuthentication {
			c.Header("WWW-Authenticate", `Bearer realm="swissknife"`)
		}
		c.AbortWithStatusJSON(status, dto.ErrorResponse{Status: status, Reason: appErr.Message})
		return
	}
	c.AbortWithStatusJSON(http.StatusInternalServerError, dto.ErrorResponse{
		Status: http.StatusInternalServerError,
		Reason: "internal server error",
	})
}

// writeValidationError reports a request body/query that failed binding or
// struct validation as a 400.
func writeValidationError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, dto.ErrorResponse{
		Status: http.StatusBadRequest,
		Reason: err.Error(),
	})
}
