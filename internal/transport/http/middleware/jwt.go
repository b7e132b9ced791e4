package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"anime-api/internal/app"
	"anime-api/internal/logging"
	"anime-api/internal/metrics"
	"anime-api/internal/model"
	"anime-api/internal/transport/http/response"
)

const ContextUserKey = "current_user"

type Authenticator interface {
	Authenticate(ctx context.Context, token string) (*model.User, error)
}

// RequireUser resolves the bearer token to a user and stores it in the gin
// context. Every rejection produces the same 401 response.
func RequireUser(auth Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := BearerToken(c.GetHeader("Authorization"))
		user, err := auth.Authenticate(c.Request.Context(), token)
		if err != nil {
			if app.IsUnauthorized(err) {
				RejectUnauthorized(c, err)
				return
			}
			logging.FromContext(c.Request.Context()).Error("authenticate request failed", slog.Any("error", err))
			response.Error(c, http.StatusInternalServerError, response.CodeInternalServer, "authentication unavailable")
			return
		}

		c.Set(ContextUserKey, user)
		c.Next()
	}
}

// RejectUnauthorized logs and counts the failure kind, then writes the
// uniform 401.
func RejectUnauthorized(c *gin.Context, err error) {
	kind, _ := AuthKind(err)
	logging.FromContext(c.Request.Context()).Warn("request unauthorized",
		slog.String("kind", kind),
		slog.Any("error", err),
	)
	metrics.IncAuthRejection(kind)
	response.Unauthorized(c)
}

func AuthKind(err error) (string, bool) {
	kind, ok := app.AuthFailureKind(err)
	if !ok {
		return "unknown", false
	}
	return kind, true
}

// BearerToken extracts the token from an Authorization header value. The
// scheme is matched case-insensitively; any other scheme yields "".
func BearerToken(header string) string {
	fields := strings.Fields(header)
	if len(fields) != 2 || !strings.EqualFold(fields[0], "bearer") {
		return ""
	}
	return fields[1]
}

func CurrentUser(c *gin.Context) (*model.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*model.User)
	return user, ok && user != nil
}
