package auth

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/models"
	"enclaveai-backend/internal/session"
)

// Context keys for storing session data
const (
	ContextKeyToken   = "session_token"
	ContextKeySession = "session_record"
)

// RequireAuth middleware checks for a valid session token
func RequireAuth(sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token := GetTokenFromRequest(c)
			if token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}

			ctx := c.Request().Context()
			if !sessions.IsLoggedIn(ctx, token) {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "invalid or expired session",
				})
			}

			c.Set(ContextKeyToken, token)
			if rec := sessions.Record(ctx, token); rec != nil {
				c.Set(ContextKeySession, rec)
			}
			return next(c)
		}
	}
}

// RequireAdmin middleware checks the cached profile's role.
// Must be used after RequireAuth.
func RequireAdmin(sessions *session.Store) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			token, ok := c.Get(ContextKeyToken).(string)
			if !ok || token == "" {
				return c.JSON(http.StatusUnauthorized, map[string]string{
					"error": "authentication required",
				})
			}
			if !sessions.IsAdmin(c.Request().Context(), token) {
				return c.JSON(http.StatusForbidden, map[string]string{
					"error": "insufficient permissions",
				})
			}
			return next(c)
		}
	}
}

// GetTokenFromRequest extracts the session token from the request
func GetTokenFromRequest(c echo.Context) string {
	// Try Authorization header first (Bearer token)
	authHeader := c.Request().Header.Get("Authorization")
	if strings.HasPrefix(authHeader, "Bearer ") {
		return strings.TrimPrefix(authHeader, "Bearer ")
	}

	// Try cookie
	cookie, err := c.Cookie("session_token")
	if err == nil && cookie.Value != "" {
		return cookie.Value
	}

	// Try query parameter (used by the websocket diagnostics endpoint)
	if token := c.QueryParam("token"); token != "" {
		return token
	}

	return ""
}

// GetTokenFromContext retrieves the validated session token
func GetTokenFromContext(c echo.Context) string {
	token, ok := c.Get(ContextKeyToken).(string)
	if !ok {
		return ""
	}
	return token
}

// GetSessionFromContext retrieves the current session record
func GetSessionFromContext(c echo.Context) *models.SessionRecord {
	rec, ok := c.Get(ContextKeySession).(*models.SessionRecord)
	if !ok {
		return nil
	}
	return rec
}
