package api

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"enclaveai-backend/internal/auth"
	"enclaveai-backend/internal/profile"
)

// getProfileHandler handles GET /api/profile. Fetches or creates the
// caller's profile row; the identity comes from the session record.
func getProfileHandler(c echo.Context) error {
	token := auth.GetTokenFromContext(c)

	result, err := profiles.Ensure(c.Request().Context(), token, "", "")
	if err != nil {
		if errors.Is(err, profile.ErrMissingUserID) {
			return c.JSON(http.StatusUnauthorized, map[string]string{
				"error": "session has no identity",
			})
		}
		c.Logger().Error("profile sync error: ", err)
		return c.JSON(http.StatusInternalServerError, map[string]string{
			"error": "profile sync failed",
		})
	}

	return c.JSON(http.StatusOK, map[string]interface{}{
		"profile":    result.Profile,
		"from_cache": result.FromCache,
	})
}
