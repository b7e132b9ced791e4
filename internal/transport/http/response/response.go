package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeBadRequest        = 40000
	CodeDuplicateIdentity = 40001
	CodeUnauthorized      = 40100
	CodeInternalServer    = 50000
	CodeUnavailable       = 50300
)

// UnauthorizedMessage is returned for every rejected credential.
const UnauthorizedMessage = "could not validate credentials"

type APIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// OK writes data as the bare response body.
func OK(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, data)
}

func Error(c *gin.Context, httpStatus, code int, message string) {
	c.AbortWithStatusJSON(httpStatus, APIError{
		Code:    code,
		Message: message,
	})
}

func Unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	Error(c, http.StatusUnauthorized, CodeUnauthorized, UnauthorizedMessage)
}
