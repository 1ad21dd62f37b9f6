package middleware_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/amirphl/dokany-admin/app/middleware"
	"github.com/amirphl/dokany-admin/models"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticSession models.Session

func (s staticSession) Snapshot() models.Session {
	return models.Session(s)
}

var admin = &models.AdminIdentity{UserID: "42", Email: "admin@dokany.test", DisplayName: "Dokany Admin"}

func TestDecide(t *testing.T) {
	cases := []struct {
		name    string
		session models.Session
		want    middleware.GuardDecision
	}{
		{"Loading", models.Session{Loading: true}, middleware.GuardWait},
		{"LoadingWithIdentity", models.Session{Loading: true, IsAuthenticated: true, Identity: admin}, middleware.GuardWait},
		{"SignedOut", models.Session{}, middleware.GuardRedirect},
		{"AuthenticatedWithoutIdentity", models.Session{IsAuthenticated: true}, middleware.GuardRedirect},
		{"Authenticated", models.Session{IsAuthenticated: true, Identity: admin}, middleware.GuardAllow},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, middleware.Decide(tc.session))
		})
	}

	assert.Equal(t, "wait", middleware.GuardWait.String())
	assert.Equal(t, "unknown", middleware.GuardDecision(9).String())
}

func newGuardedApp(session models.Session) *fiber.App {
	app := fiber.New()
	app.Use(requestid.New())
	app.Get("/campaigns", middleware.RouteGuard(staticSession(session)), func(c fiber.Ctx) error {
		identity := middleware.AdminIdentity(c)
		return c.JSON(fiber.Map{
			"admin_id":   c.Locals(middleware.LocalAdminID),
			"email":      identity.Email,
			"request_id": c.Locals(middleware.LocalRequestID),
		})
	})
	return app
}

func TestRouteGuard(t *testing.T) {
	t.Run("WaitsWhileLoading", func(t *testing.T) {
		resp, err := newGuardedApp(models.Session{Loading: true}).Test(httptest.NewRequest(http.MethodGet, "/campaigns", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		assert.Equal(t, "1", resp.Header.Get("Retry-After"))
		assert.Empty(t, resp.Header.Get("Location"))

		var body map[string]any
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, false, body["success"])
		assert.Equal(t, "SESSION_LOADING", body["error"].(map[string]any)["code"])
	})

	t.Run("RedirectsWhenSignedOut", func(t *testing.T) {
		resp, err := newGuardedApp(models.Session{}).Test(httptest.NewRequest(http.MethodGet, "/campaigns", nil))
		require.NoError(t, err)
		defer resp.Body.Close()

		assert.Equal(t, http.StatusSeeOther, resp.StatusCode)
		assert.Equal(t, "/login", resp.Header.Get("Location"))
	})

	t.Run("AllowsAuthenticated", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/campaigns", nil)
		req.Header.Set("X-Request-ID", "req-7")

		resp, err := newGuardedApp(models.Session{IsAuthenticated: true, Identity: admin}).Test(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		raw, err := io.ReadAll(resp.Body)
		require.NoError(t, err)
		assert.JSONEq(t, `{"admin_id":"42","email":"admin@dokany.test","request_id":"req-7"}`, string(raw))
	})
}

func TestAdminIdentityOutsideGuard(t *testing.T) {
	app := fiber.New()
	app.Get("/open", func(c fiber.Ctx) error {
		if middleware.AdminIdentity(c) != nil {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.SendStatus(http.StatusNoContent)
	})

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/open", nil))
	require.NoError(t, err)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
}
