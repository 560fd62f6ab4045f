package api

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/backend"
	"enclaveai-backend/internal/models"
)

// modelAdminProxyHandler handles POST /api/functions/model-admin. This is
// the serverless function the dashboard used to call directly: the bearer
// token is the hosted auth provider's access token (not a session token),
// validated on every call.
func modelAdminProxyHandler(c echo.Context) error {
	authHeader := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(authHeader, "Bearer ") {
		return c.JSON(http.StatusUnauthorized, map[string]string{
			"error": "missing bearer token",
		})
	}
	accessToken := strings.TrimPrefix(authHeader, "Bearer ")

	ctx := c.Request().Context()
	authSess, err := backendSvc.Auth().GetSession(ctx, accessToken)
	if err != nil {
		if errors.Is(err, backend.ErrInvalidToken) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "invalid access token",
			})
		}
		c.Logger().Error("proxy auth error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "authentication failed",
		})
	}

	var req struct {
		Action string `json:"action"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{
			"error": "invalid request body",
		})
	}

	if err := auditRec.Record(ctx, models.AuditLog{
		UserID:    authSess.UserID,
		Action:    models.ActionProxyCall,
		Target:    req.Action,
		IPAddress: c.RealIP(),
	}); err != nil {
		c.Logger().Error("audit record error: ", err)
	}

	switch req.Action {
	case "test":
		region := ""
		if cloudClient != nil {
			region = cloudClient.Region()
		}
		return c.JSON(http.StatusOK, map[string]interface{}{
			"status":    "ok",
			"user_id":   authSess.UserID,
			"email":     authSess.Email,
			"region":    region,
			"timestamp": time.Now().UTC().Format(time.RFC3339),
		})
	case "listInstances":
		if cloudClient == nil {
			return c.JSON(http.StatusServiceUnavailable, map[string]string{
				"error": "model provider is not configured",
			})
		}
		out, err := cloudClient.ListRaw(ctx)
		if err != nil {
			c.Logger().Error("provider list error: ", err)
			return c.JSON(http.StatusBadGateway, map[string]string{
				"error": "model provider request failed",
			})
		}
		return c.JSON(http.StatusOK, out)
	}

	return c.JSON(http.StatusBadRequest, map[string]string{
		"error": "unknown action: " + req.Action,
	})
}
