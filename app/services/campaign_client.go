package services

import (
	"context"
	"net/http"
	"net/url"
	"strconv"

	"github.com/amirphl/dokany-admin/models"
)

const (
	createCampaignFallback = "Failed to create campaign. Please try again."
	listCampaignsFallback  = "Failed to fetch campaigns. Please try again."
	getCampaignFallback    = "Failed to fetch campaign details. Please try again."
	statsFallback          = "Failed to fetch campaign statistics."
	testEmailFallback      = "Failed to send test email. Please try again."
)

// CampaignClient wraps the /admin/campaigns resource
type CampaignClient interface {
	ListCampaigns(ctx context.Context, query models.CampaignListQuery) (*models.CampaignPage, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	CreateCampaign(ctx context.Context, payload models.CampaignPayload) (*models.Campaign, error)
	GetCampaignStats(ctx context.Context) (*models.CampaignStats, error)
	SendTestEmail(ctx context.Context, email string) error
}

type CampaignClientImpl struct {
	api *APIClient
}

func NewCampaignClient(api *APIClient) CampaignClient {
	return &CampaignClientImpl{api: api}
}

// envelope is the {success, data} wrapper the campaign endpoints answer with
type envelope[T any] struct {
	Success bool `json:"success"`
	Data    *T   `json:"data"`
}

func fetchEnvelope[T any](ctx context.Context, api *APIClient, req apiRequest) (*T, error) {
	var env envelope[T]
	if err := api.do(ctx, req, &env); err != nil {
		return nil, err
	}
	if !env.Success || env.Data == nil {
		return nil, unexpected(req, "missing success or data")
	}
	return env.Data, nil
}

func (c *CampaignClientImpl) ListCampaigns(ctx context.Context, query models.CampaignListQuery) (*models.CampaignPage, error) {
	q := pageQuery(query.Page, query.Limit)
	if query.Status != "" {
		q.Set("status", string(query.Status))
	}
	out, err := fetchEnvelope[models.CampaignPage](ctx, c.api, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/campaigns",
		query:    q,
		fallback: listCampaignsFallback,
	})
	if err != nil {
		return nil, err
	}
	if out.Campaigns == nil {
		out.Campaigns = []models.Campaign{}
	}
	return out, nil
}

func (c *CampaignClientImpl) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	return fetchEnvelope[models.Campaign](ctx, c.api, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/campaigns/" + url.PathEscape(id),
		fallback: getCampaignFallback,
	})
}

func (c *CampaignClientImpl) CreateCampaign(ctx context.Context, payload models.CampaignPayload) (*models.Campaign, error) {
	return fetchEnvelope[models.Campaign](ctx, c.api, apiRequest{
		method:   http.MethodPost,
		path:     "/admin/campaigns",
		body:     payload,
		fallback: createCampaignFallback,
	})
}

func (c *CampaignClientImpl) GetCampaignStats(ctx context.Context) (*models.CampaignStats, error) {
	return fetchEnvelope[models.CampaignStats](ctx, c.api, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/campaigns/stats",
		fallback: statsFallback,
	})
}

func (c *CampaignClientImpl) SendTestEmail(ctx context.Context, email string) error {
	return c.api.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/admin/campaigns/test-email",
		body:     map[string]string{"email": email},
		fallback: testEmailFallback,
	}, nil)
}

// pageQuery builds ?page=&limit=, skipping non-positive values
func pageQuery(page, limit int) url.Values {
	q := url.Values{}
	if page > 0 {
		q.Set("page", strconv.Itoa(page))
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	return q
}
