package api

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"enclaveai-backend/internal/audit"
	"enclaveai-backend/internal/auth"
	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/cloud"
	"enclaveai-backend/internal/data"
	"enclaveai-backend/internal/profile"
	"enclaveai-backend/internal/session"
)

// Deps carries the initialized services the handlers use
type Deps struct {
	Sessions *session.Store
	Backend  backend.Backend
	Profiles *profile.Service
	Data     *data.Service
	Cloud    *cloud.Client // nil when the model provider is not configured
	Audit    *audit.Recorder

	EmergencyKeyHash string
}

var (
	sessions         *session.Store
	backendSvc       backend.Backend
	profiles         *profile.Service
	dataSvc          *data.Service
	cloudClient      *cloud.Client
	auditRec         *audit.Recorder
	emergencyKeyHash string

	loginLimiter = auth.DefaultRateLimiter()
)

// RegisterRoutes sets up all API routes
func RegisterRoutes(api *echo.Group, d Deps) {
	sessions = d.Sessions
	backendSvc = d.Backend
	profiles = d.Profiles
	dataSvc = d.Data
	cloudClient = d.Cloud
	auditRec = d.Audit
	emergencyKeyHash = d.EmergencyKeyHash

	// Health check (public)
	api.GET("/health", healthCheck)

	// Auth routes (public - no auth required for login)
	authGroup := api.Group("/auth")
	authGroup.POST("/login", loginHandler, loginLimiter.Middleware())
	authGroup.POST("/logout", logoutHandler)
	authGroup.GET("/session", sessionStatusHandler)
	authGroup.POST("/refresh", refreshSessionHandler)
	authGroup.POST("/emergency", emergencyHandler, loginLimiter.Middleware())
	authGroup.GET("/oidc/url", oidcURLHandler)
	authGroup.POST("/oidc/callback", oidcCallbackHandler, loginLimiter.Middleware())

	// Profile sync (authenticated)
	profileGroup := api.Group("/profile")
	profileGroup.Use(auth.RequireAuth(sessions))
	profileGroup.GET("", getProfileHandler)

	// Generic table pass-through (authenticated)
	dataGroup := api.Group("/data")
	dataGroup.Use(auth.RequireAuth(sessions))
	dataGroup.GET("/:table", fetchRowsHandler)
	dataGroup.POST("/:table", insertRowHandler)
	dataGroup.PATCH("/:table", updateRowsHandler)
	dataGroup.DELETE("/:table", deleteRowsHandler)

	// Admin console (requires admin role)
	admin := api.Group("/admin")
	admin.Use(auth.RequireAuth(sessions))
	admin.Use(auth.RequireAdmin(sessions))
	admin.GET("/instances", listInstancesHandler)
	admin.GET("/audit", listAuditLogsHandler)

	// Serverless-function compatible proxy. CORS is fully open on this
	// group only, matching the function it replaces; auth is the bearer
	// access token, validated against the hosted auth system directly.
	fns := api.Group("/functions")
	fns.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{http.MethodPost, http.MethodOptions},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAuthorization},
	}))
	fns.POST("/model-admin", modelAdminProxyHandler)

	// Channel diagnostics WebSocket (authentication handled inside handler)
	api.GET("/channels/ws", channelDiagnosticsHandler)
}

// Health check
func healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
	})
}
