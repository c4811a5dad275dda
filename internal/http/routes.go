package http

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(RequestID())
	r.Use(Metrics())

	r.GET("/healthz", h.Healthz)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	auth := r.Group("/api/auth")
	{
		auth.POST("/otp/send", h.SendOTP)
		auth.POST("/otp/verify", h.VerifyOTP)
		auth.GET("/google/login", h.GoogleLogin)
		auth.GET("/google/callback", h.GoogleCallback)
		auth.POST("/refresh", h.Refresh)
		auth.POST("/logout", h.Logout)
		auth.GET("/me", AuthJWT(h.JWTSecret), h.Me)
	}

	api := r.Group("/api", AuthJWT(h.JWTSecret))
	{
		api.GET("/profile", h.Profile)
		api.POST("/trade/:kind", h.Trade)
		api.POST("/fd", h.CreateFD)
		api.GET("/price/:symbol", h.Quote)
	}

	return r
}
