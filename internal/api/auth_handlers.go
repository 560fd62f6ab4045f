package api

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/auth"
	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/models"
)

// newSessionToken generates a random session token
func newSessionToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

// loginHandler handles POST /api/auth/login: the dashboard presents the
// access token it got from the hosted auth provider, we validate it and
// open a session.
func loginHandler(c echo.Context) error {
	var req models.LoginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.AccessToken == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "access_token is required",
		})
	}

	ctx := c.Request().Context()
	authSess, err := backendSvc.Auth().GetSession(ctx, req.AccessToken)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid access token",
			})
		}
		c.Logger().Error("login error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "authentication failed",
		})
	}

	return openSession(c, authSess)
}

// openSession creates the session record and cookie for a verified identity
func openSession(c echo.Context, authSess *backend.AuthSession) error {
	ctx := c.Request().Context()

	token, err := newSessionToken()
	if err != nil {
		c.Logger().Error("token generation error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "authentication failed",
		})
	}
	rec, err := sessions.MarkLoggedIn(ctx, token, authSess.UserID, authSess.Email)
	if err != nil {
		c.Logger().Error("session store error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "session store unavailable",
		})
	}

	// Profile sync failure does not block login; the dashboard retries
	// through GET /api/profile.
	var prof *models.Profile
	if result, err := profiles.Ensure(ctx, token, authSess.UserID, authSess.Email); err != nil {
		c.Logger().Error("profile sync error: ", err)
	} else {
		prof = result.Profile
	}

	loginLimiter.RecordSuccess(c.RealIP())

	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		Secure:   c.Request().TLS != nil,
		SameSite: http.SameSiteStrictMode,
		MaxAge:   int(rec.Duration.Seconds()),
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, models.LoginResponse{
		Token:     token,
		UserID:    rec.UserID,
		Email:     rec.Email,
		ExpiresAt: rec.ExpiresAt,
		Profile:   prof,
	})
}

// logoutHandler handles POST /api/auth/logout
func logoutHandler(c echo.Context) error {
	token := auth.GetTokenFromRequest(c)
	if token == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "no session token",
		})
	}

	sessions.MarkLoggedOut(c.Request().Context(), token)

	cookie := &http.Cookie{
		Name:     "session_token",
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		MaxAge:   -1,
	}
	c.SetCookie(cookie)

	return c.JSON(http.StatusOK, map[string]string{
		"message": "logged out successfully",
	})
}

// sessionStatusHandler handles GET /api/auth/session
func sessionStatusHandler(c echo.Context) error {
	token := auth.GetTokenFromRequest(c)
	ctx := c.Request().Context()

	status := models.SessionStatus{}
	if token != "" && sessions.IsLoggedIn(ctx, token) {
		status.LoggedIn = true
		status.IsAdmin = sessions.IsAdmin(ctx, token)
		if rec := sessions.Record(ctx, token); rec != nil {
			status.UserID = rec.UserID
			status.Email = rec.Email
			status.ExpiresAt = rec.ExpiresAt
		}
	}
	return c.JSON(http.StatusOK, status)
}

// refreshSessionHandler handles POST /api/auth/refresh
func refreshSessionHandler(c echo.Context) error {
	token := auth.GetTokenFromRequest(c)
	ctx := c.Request().Context()
	if token == "" || !sessions.IsLoggedIn(ctx, token) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "session expired or invalid",
		})
	}

	sessions.RefreshSession(ctx, token)
	rec := sessions.Record(ctx, token)
	if rec == nil {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "session expired or invalid",
		})
	}
	return c.JSON(http.StatusOK, map[string]interface{}{
		"expires_at": rec.ExpiresAt,
	})
}

// emergencyHandler handles POST /api/auth/emergency: a time-boxed access
// grant for operators locked out of the regular flow. The shared key is
// verified against a bcrypt hash from config and every grant is audited.
func emergencyHandler(c echo.Context) error {
	if emergencyKeyHash == "" {
		return c.JSON(http.StatusForbidden, map[string]string{
			"error": "emergency access is disabled",
		})
	}

	var req models.EmergencyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}
	if req.UserID == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "user_id is required",
		})
	}
	if !auth.VerifyEmergencyKey(req.EmergencyKey, emergencyKeyHash) {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "invalid emergency key",
		})
	}

	ctx := c.Request().Context()
	token, err := newSessionToken()
	if err != nil {
		c.Logger().Error("token generation error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "emergency grant failed",
		})
	}
	expiresAt, err := sessions.GrantEmergencyAccess(ctx, token, req.UserID)
	if err != nil {
		c.Logger().Error("emergency grant error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "emergency grant failed",
		})
	}

	if err := auditRec.Record(ctx, models.AuditLog{
		UserID:    req.UserID,
		Action:    models.ActionEmergencyGrant,
		Target:    req.UserID,
		IPAddress: c.RealIP(),
	}); err != nil {
		c.Logger().Error("audit record error: ", err)
	}

	loginLimiter.RecordSuccess(c.RealIP())

	return c.JSON(http.StatusOK, models.EmergencyResponse{
		Token:     token,
		UserID:    req.UserID,
		ExpiresAt: expiresAt,
	})
}

// oidcURLHandler handles GET /api/auth/oidc/url. Only available when the
// backend auth is configured in OIDC issuer mode.
func oidcURLHandler(c echo.Context) error {
	oa, ok := backendSvc.Auth().(*backend.OIDCAuth)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "hosted login is not configured",
		})
	}
	redirectURI := c.QueryParam("redirect_uri")
	if redirectURI == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "redirect_uri is required",
		})
	}
	state := uuid.NewString()
	return c.JSON(http.StatusOK, map[string]string{
		"url":   oa.AuthURL(state, redirectURI),
		"state": state,
	})
}

// oidcCallbackHandler handles POST /api/auth/oidc/callback
func oidcCallbackHandler(c echo.Context) error {
	oa, ok := backendSvc.Auth().(*backend.OIDCAuth)
	if !ok {
		return c.JSON(http.StatusNotFound, map[string]string{
			"error": "hosted login is not configured",
		})
	}
	var req struct {
		Code        string `json:"code"`
		RedirectURI string `json:"redirect_uri"`
	}
	if err := c.Bind(&req); err != nil || req.Code == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "code is required",
		})
	}

	authSess, _, err := oa.ExchangeCode(c.Request().Context(), req.Code, req.RedirectURI)
	if err != nil {
		c.Logger().Error("oidc exchange error: ", err)
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "authorization code exchange failed",
		})
	}
	return openSession(c, authSess)
}
