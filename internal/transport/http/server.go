package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"anime-api/internal/bootstrap"
	"anime-api/internal/transport/http/handler"
	"anime-api/internal/transport/http/middleware"
)

const metricsPath = "/metrics"

// NewRouter exposes the services wired in app. app.Auth and app.Posts must
// be set.
func NewRouter(app *bootstrap.App) *gin.Engine {
	gin.SetMode(app.Config.App.GinMode)
	router := gin.New()
	router.Use(
		middleware.RequestID(app.Logger),
		middleware.RequestLog(),
		middleware.Prometheus(metricsPath),
		gin.Recovery(),
	)

	healthHandler := handler.NewHealthHandler(app)
	authHandler := handler.NewAuthHandler(app.Auth)
	postHandler := handler.NewPostHandler(app.Posts)

	router.GET("/healthz", healthHandler.Check)
	router.GET(metricsPath, gin.WrapH(promhttp.Handler()))

	router.POST("/register", authHandler.Register)
	router.POST("/token", authHandler.Token)

	router.GET("/posts", postHandler.List)
	router.POST("/posts", middleware.RequireUser(app.Auth), postHandler.Create)

	return router
}
