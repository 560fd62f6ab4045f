package auth

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"enclaveai-backend/internal/models"
	"enclaveai-backend/internal/session"
	"enclaveai-backend/internal/storage/memory"
)

func newTestSessions(t *testing.T) *session.Store {
	t.Helper()
	return session.New(session.Config{
		Durable:        memory.New(),
		Volatile:       memory.New(),
		Duration:       8 * time.Hour,
		OverrideSecret: []byte("secret"),
	})
}

func okHandler(c echo.Context) error {
	return c.NoContent(http.StatusOK)
}

func TestRequireAuthRejectsMissingToken(t *testing.T) {
	sessions := newTestSessions(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()

	err := RequireAuth(sessions)(okHandler)(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthRejectsUnknownToken(t *testing.T) {
	sessions := newTestSessions(t)
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	err := RequireAuth(sessions)(okHandler)(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireAuthAcceptsValidSession(t *testing.T) {
	sessions := newTestSessions(t)
	_, err := sessions.MarkLoggedIn(context.Background(), "tok1", "user-1", "u1@example.com")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer tok1")
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var gotToken string
	var gotRec *models.SessionRecord
	handler := RequireAuth(sessions)(func(c echo.Context) error {
		gotToken = GetTokenFromContext(c)
		gotRec = GetSessionFromContext(c)
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "tok1", gotToken)
	require.NotNil(t, gotRec)
	assert.Equal(t, "user-1", gotRec.UserID)
}

func TestRequireAuthAcceptsCookieToken(t *testing.T) {
	sessions := newTestSessions(t)
	_, err := sessions.MarkLoggedIn(context.Background(), "tok1", "user-1", "")
	require.NoError(t, err)

	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "tok1"})
	rec := httptest.NewRecorder()

	err = RequireAuth(sessions)(okHandler)(e.NewContext(req, rec))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireAdmin(t *testing.T) {
	sessions := newTestSessions(t)
	ctx := context.Background()
	_, err := sessions.MarkLoggedIn(ctx, "tok1", "user-1", "")
	require.NoError(t, err)

	e := echo.New()
	run := func() *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer tok1")
		rec := httptest.NewRecorder()
		chain := RequireAuth(sessions)(RequireAdmin(sessions)(okHandler))
		require.NoError(t, chain(e.NewContext(req, rec)))
		return rec
	}

	// Plain user: forbidden
	sessions.CacheProfile(ctx, "tok1", &models.Profile{ID: "user-1", Role: models.RoleUser})
	assert.Equal(t, http.StatusForbidden, run().Code)

	// Admin profile in cache: allowed
	sessions.CacheProfile(ctx, "tok1", &models.Profile{ID: "user-1", Role: models.RoleAdmin})
	assert.Equal(t, http.StatusOK, run().Code)
}

func TestGetTokenFromRequestPrecedence(t *testing.T) {
	e := echo.New()

	req := httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	req.Header.Set("Authorization", "Bearer from-header")
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "from-cookie"})
	c := e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "from-header", GetTokenFromRequest(c))

	req = httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	req.AddCookie(&http.Cookie{Name: "session_token", Value: "from-cookie"})
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "from-cookie", GetTokenFromRequest(c))

	req = httptest.NewRequest(http.MethodGet, "/?token=from-query", nil)
	c = e.NewContext(req, httptest.NewRecorder())
	assert.Equal(t, "from-query", GetTokenFromRequest(c))
}
