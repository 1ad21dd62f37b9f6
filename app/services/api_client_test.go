package services_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/amirphl/dokany-admin/app/services"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	testingutil "github.com/amirphl/dokany-admin/testing"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func init() {
	logx.Set(zap.NewNop())
}

func staticToken(token string) services.TokenSource {
	return services.TokenSourceFunc(func() string { return token })
}

func serveLocations(fake *testingutil.FakeDashboardAPI) {
	countries, governorates, cities := testingutil.SampleLocationTiers()
	fake.Respond(http.MethodGet, "/admin/dashboard/locations", http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]any{
			"countries":    countries,
			"governorates": governorates,
			"cities":       cities,
		},
	})
}

func TestAPIClientAuthorization(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	fake.Respond(http.MethodGet, "/admin/campaigns/stats", http.StatusOK, map[string]any{
		"success": true,
		"data":    map[string]any{"total_campaigns": 3},
	})

	t.Run("NoTokenShortCircuits", func(t *testing.T) {
		client := services.NewCampaignClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("")))

		_, err := client.GetCampaignStats(context.Background())
		require.Error(t, err)
		assert.True(t, services.IsAuthError(err))
		assert.ErrorIs(t, err, services.ErrNoToken)
		assert.Empty(t, fake.Requests())
	})

	t.Run("BearerAndRequestIDAreForwarded", func(t *testing.T) {
		client := services.NewCampaignClient(services.NewAPIClient(fake.URL()+"/", time.Second, staticToken("abc")))
		ctx := context.WithValue(context.Background(), utils.RequestIDKey, "req-123")

		stats, err := client.GetCampaignStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, stats.TotalCampaigns)

		reqs := fake.Requests()
		require.NotEmpty(t, reqs)
		last := reqs[len(reqs)-1]
		assert.Equal(t, "/admin/campaigns/stats", last.Path)
		assert.Equal(t, "Bearer abc", last.Authorization)
		assert.Equal(t, "req-123", last.RequestID)
	})
}

func TestAPIClientErrorNormalization(t *testing.T) {
	cases := []struct {
		name    string
		status  int
		body    any
		code    string
		message string
	}{
		{"MessageWins", http.StatusBadRequest, map[string]any{"message": "Title too short", "error": "ignored"}, services.CodeBadRequest, "Title too short"},
		{"ErrorString", http.StatusForbidden, map[string]any{"error": "Not allowed"}, services.CodeForbidden, "Not allowed"},
		{"NestedErrorMessage", http.StatusInternalServerError, map[string]any{"error": map[string]any{"message": "db down"}}, services.CodeUpstreamError, "db down"},
		{"Fallback", http.StatusBadGateway, nil, services.CodeUpstreamError, "Failed to fetch campaign details. Please try again."},
		{"Unauthorized", http.StatusUnauthorized, map[string]any{"message": "jwt expired"}, services.CodeUnauthorized, "jwt expired"},
		{"NotFound", http.StatusNotFound, map[string]any{"message": "No campaign"}, services.CodeNotFound, "No campaign"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			fake := testingutil.NewFakeDashboardAPI()
			defer fake.Close()
			fake.Respond(http.MethodGet, "/admin/campaigns/c1", tc.status, tc.body)

			client := services.NewCampaignClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("abc")))
			_, err := client.GetCampaign(context.Background(), "c1")
			require.Error(t, err)

			apiErr := services.AsAPIError(err, "unused")
			assert.Equal(t, tc.status, apiErr.Status)
			assert.Equal(t, tc.code, apiErr.Code)
			assert.Equal(t, tc.message, apiErr.Message)
		})
	}
}

func TestAPIClientFieldErrors(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	client := services.NewDashboardClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("abc")))

	t.Run("FieldMapIsKept", func(t *testing.T) {
		fake.Respond(http.MethodDelete, "/admin/sellers/s1", http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  map[string]string{"phone": "Phone already registered"},
		})

		err := client.DeleteSeller(context.Background(), "s1")
		apiErr := services.AsAPIError(err, "unused")
		assert.Equal(t, "Validation failed", apiErr.Message)
		assert.Equal(t, map[string]string{"phone": "Phone already registered"}, apiErr.Fields)
	})

	t.Run("ListShapedErrorsAreIgnored", func(t *testing.T) {
		fake.Respond(http.MethodDelete, "/admin/sellers/s2", http.StatusBadRequest, map[string]any{
			"message": "Validation failed",
			"errors":  []string{"phone is taken"},
		})

		err := client.DeleteSeller(context.Background(), "s2")
		assert.Nil(t, services.AsAPIError(err, "unused").Fields)
	})
}

func TestAPIClientEnvelopeMismatch(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	fake.Respond(http.MethodGet, "/admin/campaigns/stats", http.StatusOK, map[string]any{"success": false})
	fake.RespondFunc(http.MethodGet, "/admin/campaigns/c1", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte("<html>gateway</html>"))
	})

	client := services.NewCampaignClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("abc")))

	_, err := client.GetCampaignStats(context.Background())
	assert.ErrorIs(t, err, services.ErrUnexpectedResponse)
	assert.Equal(t, "Failed to fetch campaign statistics.", services.AsAPIError(err, "").Message)

	_, err = client.GetCampaign(context.Background(), "c1")
	assert.ErrorIs(t, err, services.ErrUnexpectedResponse)
}

func TestAPIClientUnreachable(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	url := fake.URL()
	fake.Close()

	client := services.NewCampaignClient(services.NewAPIClient(url, time.Second, staticToken("abc")))
	_, err := client.ListCampaigns(context.Background(), models.CampaignListQuery{Page: 1, Limit: 20})
	require.Error(t, err)
	assert.ErrorIs(t, err, services.ErrUpstreamUnavailable)
	assert.Equal(t, services.CodeUpstreamUnavailable, services.AsAPIError(err, "").Code)
}

func TestAsAPIError(t *testing.T) {
	assert.Nil(t, services.AsAPIError(nil, "x"))

	wrapped := services.AsAPIError(errors.New("boom"), "Something failed")
	assert.Equal(t, services.CodeUpstreamError, wrapped.Code)
	assert.Equal(t, "Something failed", wrapped.Message)
	assert.False(t, services.IsAuthError(wrapped))
}

func TestCatalogClient(t *testing.T) {
	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	serveLocations(fake)
	fake.Respond(http.MethodGet, "/admin/dashboard/themes", http.StatusOK, map[string]any{
		"success": true,
		"themes":  testingutil.SampleThemes(),
	})

	client := services.NewCatalogClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("abc")))

	t.Run("LocationsAreFlattenedInTierOrder", func(t *testing.T) {
		catalog, err := client.Locations(context.Background())
		require.NoError(t, err)
		require.Len(t, catalog, 6)

		levels := make([]models.LocationLevel, 0, len(catalog))
		for _, e := range catalog {
			levels = append(levels, e.Type)
		}
		assert.Equal(t, []models.LocationLevel{
			models.LocationCountry, models.LocationCountry,
			models.LocationGovernorate, models.LocationGovernorate,
			models.LocationCity, models.LocationCity,
		}, levels)
		assert.Equal(t, "Egypt", catalog[0].Name)
		assert.Equal(t, 120, catalog[0].SellerCount)
	})

	t.Run("Themes", func(t *testing.T) {
		themes, err := client.Themes(context.Background())
		require.NoError(t, err)
		require.Len(t, themes, 3)
		assert.Equal(t, "Summer Sale", themes[0].Name)
	})

	t.Run("ThemesWithoutSuccessFlag", func(t *testing.T) {
		other := testingutil.NewFakeDashboardAPI()
		defer other.Close()
		other.Respond(http.MethodGet, "/admin/dashboard/themes", http.StatusOK, map[string]any{"themes": []any{}})

		c := services.NewCatalogClient(services.NewAPIClient(other.URL(), time.Second, staticToken("abc")))
		_, err := c.Themes(context.Background())
		assert.ErrorIs(t, err, services.ErrUnexpectedResponse)
	})
}

func TestCachedCatalogClient(t *testing.T) {
	mr := miniredis.RunT(t)
	rc := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rc.Close()

	fake := testingutil.NewFakeDashboardAPI()
	defer fake.Close()
	serveLocations(fake)

	upstream := services.NewCatalogClient(services.NewAPIClient(fake.URL(), time.Second, staticToken("abc")))
	client := services.NewCachedCatalogClient(upstream, rc, "test:", time.Minute)
	ctx := context.Background()

	first, err := client.Locations(ctx)
	require.NoError(t, err)
	second, err := client.Locations(ctx)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, fake.RequestCount(http.MethodGet, "/admin/dashboard/locations"))
	assert.True(t, mr.Exists("test:catalog:locations"))

	t.Run("InvalidateForcesReload", func(t *testing.T) {
		inv, ok := client.(interface{ Invalidate(context.Context) error })
		require.True(t, ok)
		require.NoError(t, inv.Invalidate(ctx))
		assert.False(t, mr.Exists("test:catalog:locations"))

		_, err := client.Locations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, fake.RequestCount(http.MethodGet, "/admin/dashboard/locations"))
	})

	t.Run("ExpiredEntryIsReloaded", func(t *testing.T) {
		mr.FastForward(2 * time.Minute)
		_, err := client.Locations(ctx)
		require.NoError(t, err)
		assert.Equal(t, 3, fake.RequestCount(http.MethodGet, "/admin/dashboard/locations"))
	})

	t.Run("CacheOutageFallsThrough", func(t *testing.T) {
		mr.Close()
		catalog, err := client.Locations(ctx)
		require.NoError(t, err)
		assert.Len(t, catalog, 6)
	})

	t.Run("UpstreamErrorsAreNotCached", func(t *testing.T) {
		mr2 := miniredis.RunT(t)
		rc2 := redis.NewClient(&redis.Options{Addr: mr2.Addr()})
		defer rc2.Close()

		failing := testingutil.NewFakeDashboardAPI()
		defer failing.Close()
		failing.Respond(http.MethodGet, "/admin/dashboard/locations", http.StatusInternalServerError, nil)

		c := services.NewCachedCatalogClient(
			services.NewCatalogClient(services.NewAPIClient(failing.URL(), time.Second, staticToken("abc"))),
			rc2, "test:", time.Minute,
		)
		_, err := c.Locations(ctx)
		require.Error(t, err)
		assert.False(t, mr2.Exists("test:catalog:locations"))
	})
}
