// Package router contains routing and server setup for the HTTP delivery.
package router

import (
	"critiqit/internal/delivery/http/middleware"
	"critiqit/internal/delivery/http/router/handler"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
)

type RouterParams struct {
	fx.In

	OTPHandler     *handler.OTPHandler
	AccountHandler *handler.AccountHandler
	UserHandler    *handler.UserHandler
	RateLimiter    *middleware.RateLimiter
	Registry       *prometheus.Registry
}

// router holds all the handlers that need to be registered.
type router struct {
	otpHandler     *handler.OTPHandler
	accountHandler *handler.AccountHandler
	userHandler    *handler.UserHandler
	rateLimiter    *middleware.RateLimiter
	registry       *prometheus.Registry
}

// NewRouter is the constructor for the Router.
// Fx will inject the required handlers here.
func NewRouter(params RouterParams) *router {
	return &router{
		otpHandler:     params.OTPHandler,
		accountHandler: params.AccountHandler,
		userHandler:    params.UserHandler,
		rateLimiter:    params.RateLimiter,
		registry:       params.Registry,
	}
}

// RegisterRoutes sets up all the API routes for the application.
func (r *router) RegisterRoutes(e *echo.Echo) {
	// Health check endpoint
	e.GET("/health", handler.HealthCheck)

	// Prometheus scrape endpoint
	e.GET("/metrics", echo.WrapHandler(promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{})))

	// The relay keeps the same path the web client already calls.
	functions := e.Group("/functions/v1")
	{
		functions.POST("/verify-otp-securely", r.otpHandler.VerifyOTP, r.rateLimiter.Limit)
	}

	// Auth routes
	authGroup := e.Group("/api/v1/auth")
	{
		authGroup.POST("/signup", r.accountHandler.SignUp)
		authGroup.POST("/login", r.accountHandler.Login)
		authGroup.POST("/login/idtoken", r.accountHandler.LoginWithIDToken)
		authGroup.GET("/oauth/:provider/url", r.accountHandler.OAuthURL)
		authGroup.POST("/resend", r.accountHandler.Resend)
		authGroup.POST("/reset-password", r.accountHandler.ResetPassword)
		authGroup.POST("/session", r.accountHandler.AdoptSession)
		authGroup.POST("/logout", r.accountHandler.Logout)
	}

	// Current-user routes backed by the synchronizer
	meGroup := e.Group("/api/v1/me")
	{
		meGroup.GET("", r.userHandler.Me)
		meGroup.POST("/refresh", r.userHandler.RefreshMe)
		meGroup.POST("/avatar", r.userHandler.UploadAvatar)
	}
}
