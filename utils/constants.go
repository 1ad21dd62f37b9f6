package utils

import (
	"time"
)

// Session and upstream constants
const (
	// DefaultTokenKey is the storage key the bearer token is persisted under
	DefaultTokenKey = "token"

	// BearerPrefix precedes the token in the Authorization header
	BearerPrefix = "Bearer "

	// DefaultUpstreamURL is the production dashboard API
	DefaultUpstreamURL = "https://dokany-api-production.up.railway.app"

	// DefaultUpstreamTimeout bounds every call to the dashboard API
	DefaultUpstreamTimeout = 15 * time.Second

	// DefaultRequestTimeout bounds a single console request end to end
	DefaultRequestTimeout = 30 * time.Second
)

// Console routing constants
const (
	// LoginPath is the login entry point the route guard redirects to
	LoginPath = "/login"

	// HomePath is where a freshly authenticated admin lands
	HomePath = "/dashboard/analytics"

	// CampaignsPath is the list view refreshed after a successful submission
	CampaignsPath = "/campaigns"
)

// MaxSelectedThemes is enforced at validation because the upstream accepts a single target_theme_id
const MaxSelectedThemes = 1

// CORS and security constants
const (
	// CORSMaxAge is the maximum age for CORS preflight requests (24 hours)
	CORSMaxAge = 86400
)

// Cache constants
const (
	// DefaultCatalogCacheTTL is how long theme and location catalogs stay cached
	DefaultCatalogCacheTTL = 5 * time.Minute

	// CatalogCachePrefix namespaces catalog keys in redis
	CatalogCachePrefix = "catalog:"
)
