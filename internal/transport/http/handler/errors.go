package handler

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"anime-api/internal/app"
	"anime-api/internal/logging"
	"anime-api/internal/transport/http/middleware"
	"anime-api/internal/transport/http/response"
)

func badRequest(c *gin.Context, err error) {
	logging.FromContext(c.Request.Context()).Debug("bind request failed", slog.Any("error", err))
	response.Error(c, http.StatusBadRequest, response.CodeBadRequest, "invalid request payload")
}

// writeError maps service errors to responses. Unexpected errors are logged
// and reported with the generic message.
func writeError(c *gin.Context, err error, message string) {
	switch {
	case errors.Is(err, app.ErrInvalidInput):
		response.Error(c, http.StatusBadRequest, response.CodeBadRequest, err.Error())
	case errors.Is(err, app.ErrDuplicateIdentity):
		response.Error(c, http.StatusBadRequest, response.CodeDuplicateIdentity, err.Error())
	case app.IsUnauthorized(err):
		middleware.RejectUnauthorized(c, err)
	default:
		logging.FromContext(c.Request.Context()).Error(message, slog.Any("error", err))
		response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, message)
	}
}
