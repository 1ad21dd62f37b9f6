package router

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/amirphl/dokany-admin/app/handlers"
	"github.com/amirphl/dokany-admin/app/services"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/config"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/repository"
	testingutil "github.com/amirphl/dokany-admin/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logx.Set(zap.NewNop())
}

type consoleFixture struct {
	router Router
	fake   *testingutil.FakeDashboardAPI
}

func newConsoleFixture(t *testing.T) *consoleFixture {
	t.Helper()
	fake := testingutil.NewFakeDashboardAPI()
	t.Cleanup(fake.Close)

	var session *businessflow.SessionStoreImpl
	api := services.NewAPIClient(fake.URL(), 5*time.Second, services.TokenSourceFunc(func() string {
		return session.Token()
	}))
	session = businessflow.NewSessionStore(repository.NewMemoryTokenStore(""), services.NewTokenDecoder(""), services.NewAuthClient(api), nil)
	session.Bootstrap(context.Background())

	campaignClient := services.NewCampaignClient(api)
	adminFlow := businessflow.NewCampaignAdminFlow(campaignClient)
	draftFlow := businessflow.NewCampaignDraftFlow(campaignClient, services.NewCatalogClient(api), nil)
	dashboardFlow := businessflow.NewDashboardFlow(services.NewDashboardClient(api), adminFlow, nil)

	cfg := &config.ConsoleConfig{
		Server: config.ServerConfig{Host: "127.0.0.1", Port: 8088},
		Security: config.SecurityConfig{
			AllowedOrigins:  []string{"http://localhost:5173"},
			RateLimit:       1000,
			AuthRateLimit:   1000,
			RateLimitWindow: time.Minute,
		},
	}
	r := NewFiberRouter(cfg, Handlers{
		Auth:      handlers.NewAuthHandler(session),
		Campaign:  handlers.NewCampaignHandler(adminFlow, session),
		Draft:     handlers.NewDraftHandler(draftFlow, session),
		Dashboard: handlers.NewDashboardHandler(dashboardFlow, session),
	}, session)
	r.SetupRoutes()

	return &consoleFixture{router: r, fake: fake}
}

func (f *consoleFixture) do(t *testing.T, method, path, body string) (*http.Response, map[string]any) {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := f.router.GetApp().Test(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func (f *consoleFixture) signIn(t *testing.T) {
	t.Helper()
	token, err := testingutil.ValidAdminToken()
	require.NoError(t, err)
	f.fake.Respond(http.MethodPost, "/auth/admin/login", http.StatusOK, map[string]any{"token": token})

	resp, body := f.do(t, http.MethodPost, "/auth/login", `{"email":"admin@dokany.test","password":"secret123"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
}

func TestDraftListIsNotACampaignLookup(t *testing.T) {
	f := newConsoleFixture(t)
	f.signIn(t)

	resp, body := f.do(t, http.MethodPost, "/campaigns/drafts", "")
	require.Equal(t, http.StatusCreated, resp.StatusCode, body)
	draftID := body["data"].(map[string]any)["id"]

	resp, body = f.do(t, http.MethodGet, "/campaigns/drafts", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	drafts := body["data"].([]any)
	require.Len(t, drafts, 1)
	assert.Equal(t, draftID, drafts[0].(map[string]any)["id"])

	assert.Zero(t, f.fake.RequestCount(http.MethodGet, "/admin/campaigns/drafts"))
}

func TestCampaignStatusFilter(t *testing.T) {
	f := newConsoleFixture(t)
	f.signIn(t)
	f.fake.Respond(http.MethodGet, "/admin/campaigns", http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"campaigns": []any{}},
	})

	resp, body := f.do(t, http.MethodGet, "/campaigns?status=active&page=1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	reqs := f.fake.Requests()
	assert.Contains(t, reqs[len(reqs)-1].RawQuery, "status=ACTIVE")

	resp, body = f.do(t, http.MethodGet, "/campaigns?status=archived", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_ERROR", body["error"].(map[string]any)["code"])
}

func TestForgotPasswordIsPublic(t *testing.T) {
	f := newConsoleFixture(t)
	f.fake.Respond(http.MethodPost, "/auth/admin/reset-password", http.StatusOK, map[string]any{})

	resp, body := f.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"admin@dokany.test"}`)
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Equal(t, services.ResetSentMessage, body["message"])

	resp, body = f.do(t, http.MethodPost, "/auth/forgot-password", `{"email":"nope"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	assert.Equal(t, 1, f.fake.RequestCount(http.MethodPost, "/auth/admin/reset-password"))
}

func TestActivityRoutes(t *testing.T) {
	f := newConsoleFixture(t)
	f.signIn(t)

	resp, body := f.do(t, http.MethodGet, "/dashboard/activity?admin=42&failed=true&limit=5", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)
	assert.Empty(t, body["data"].(map[string]any)["activity"])

	resp, _ = f.do(t, http.MethodGet, "/dashboard/activity/abc", "")
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = f.do(t, http.MethodGet, "/dashboard/activity/7", "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "ACTIVITY_NOT_FOUND", body["error"].(map[string]any)["code"])
}

func TestSellerRoutes(t *testing.T) {
	f := newConsoleFixture(t)
	f.signIn(t)
	f.fake.Respond(http.MethodDelete, "/admin/sellers/s1", http.StatusOK, map[string]any{"message": "deleted"})

	resp, body := f.do(t, http.MethodDelete, "/sellers/s1", "")
	require.Equal(t, http.StatusOK, resp.StatusCode, body)

	resp, body = f.do(t, http.MethodPost, "/sellers", `{"user_name":"nour_store"}`)
	assert.Equal(t, http.StatusUnprocessableEntity, resp.StatusCode)
	details := body["error"].(map[string]any)["details"].(map[string]any)
	assert.Contains(t, details, "email")
	assert.Zero(t, f.fake.RequestCount(http.MethodPost, "/admin/sellers"))
}
