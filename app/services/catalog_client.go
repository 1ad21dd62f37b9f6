package services

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/redis/go-redis/v9"
)

const (
	themesFallback    = "Failed to fetch themes."
	locationsFallback = "Failed to fetch locations."
)

// CatalogClient reads the theme and location catalogs the audience resolver works against
type CatalogClient interface {
	Themes(ctx context.Context) ([]models.Theme, error)
	Locations(ctx context.Context) (models.LocationCatalog, error)
}

type CatalogClientImpl struct {
	api *APIClient
}

func NewCatalogClient(api *APIClient) CatalogClient {
	return &CatalogClientImpl{api: api}
}

type themesResponse struct {
	Success bool           `json:"success"`
	Themes  []models.Theme `json:"themes"`
}

type locationTiers struct {
	Countries    []models.LocationEntry `json:"countries"`
	Governorates []models.LocationEntry `json:"governorates"`
	Cities       []models.LocationEntry `json:"cities"`
}

func (c *CatalogClientImpl) Themes(ctx context.Context) ([]models.Theme, error) {
	req := apiRequest{
		method:   http.MethodGet,
		path:     "/admin/dashboard/themes",
		fallback: themesFallback,
	}
	var resp themesResponse
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if !resp.Success || resp.Themes == nil {
		return nil, unexpected(req, "missing success or themes")
	}
	return resp.Themes, nil
}

func (c *CatalogClientImpl) Locations(ctx context.Context) (models.LocationCatalog, error) {
	tiers, err := fetchEnvelope[locationTiers](ctx, c.api, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/dashboard/locations",
		fallback: locationsFallback,
	})
	if err != nil {
		return nil, err
	}
	return models.NewLocationCatalog(tiers.Countries, tiers.Governorates, tiers.Cities), nil
}

// CachedCatalogClient keeps catalogs in redis for ttl. Cache failures fall through to the upstream.
type CachedCatalogClient struct {
	upstream CatalogClient
	cache    redis.UniversalClient
	prefix   string
	ttl      time.Duration
}

func NewCachedCatalogClient(upstream CatalogClient, cache redis.UniversalClient, prefix string, ttl time.Duration) CatalogClient {
	if ttl <= 0 {
		ttl = utils.DefaultCatalogCacheTTL
	}
	return &CachedCatalogClient{
		upstream: upstream,
		cache:    cache,
		prefix:   prefix + utils.CatalogCachePrefix,
		ttl:      ttl,
	}
}

func (c *CachedCatalogClient) Themes(ctx context.Context) ([]models.Theme, error) {
	return cached(ctx, c, "themes", c.upstream.Themes)
}

func (c *CachedCatalogClient) Locations(ctx context.Context) (models.LocationCatalog, error) {
	return cached(ctx, c, "locations", c.upstream.Locations)
}

// Invalidate drops both cached catalogs
func (c *CachedCatalogClient) Invalidate(ctx context.Context) error {
	return c.cache.Del(ctx, c.prefix+"themes", c.prefix+"locations").Err()
}

func cached[T any](ctx context.Context, c *CachedCatalogClient, name string, load func(context.Context) (T, error)) (T, error) {
	key := c.prefix + name

	raw, err := c.cache.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var out T
		if jsonErr := json.Unmarshal(raw, &out); jsonErr == nil {
			return out, nil
		}
		logx.L().Warnw("discarding undecodable catalog cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		logx.L().Warnw("catalog cache read failed", "key", key, "error", err)
	}

	out, err := load(ctx)
	if err != nil {
		return out, err
	}

	if data, err := json.Marshal(out); err == nil {
		if err := c.cache.Set(ctx, key, data, c.ttl).Err(); err != nil {
			logx.L().Warnw("catalog cache write failed", "key", key, "error", err)
		}
	}
	return out, nil
}
