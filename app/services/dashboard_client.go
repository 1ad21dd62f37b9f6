package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"

	"github.com/amirphl/dokany-admin/models"
)

// DashboardClient covers the plain REST resources behind the dashboard screens
type DashboardClient interface {
	Sellers(ctx context.Context) ([]models.Seller, error)
	SearchSellers(ctx context.Context, query string) ([]models.Seller, error)
	Seller(ctx context.Context, id string) (*models.Seller, error)
	CreateSeller(ctx context.Context, in models.SellerInput) (*models.Seller, error)
	UpdateSeller(ctx context.Context, id string, in models.SellerInput) (*models.Seller, error)
	DeleteSeller(ctx context.Context, id string) error

	Managers(ctx context.Context) ([]models.Manager, error)
	CreateManager(ctx context.Context, in models.ManagerInput) (*models.Manager, error)
	SearchManagers(ctx context.Context, query string) ([]models.Manager, error)
	Manager(ctx context.Context, id string) (*models.Manager, error)
	UpdateManager(ctx context.Context, id string, update models.ManagerUpdate) (*models.Manager, error)
	DeleteManager(ctx context.Context, id string) error
	Profile(ctx context.Context) (*models.Manager, error)

	Payouts(ctx context.Context) ([]models.Payout, error)
	SetPayoutStatus(ctx context.Context, id string, status models.PayoutStatus) error

	Summary(ctx context.Context) (*models.DashboardSummary, error)
}

type DashboardClientImpl struct {
	api *APIClient
}

func NewDashboardClient(api *APIClient) DashboardClient {
	return &DashboardClientImpl{api: api}
}

func (c *DashboardClientImpl) Sellers(ctx context.Context) ([]models.Seller, error) {
	req := apiRequest{method: http.MethodGet, path: "/admin/sellers", fallback: "Failed to fetch sellers"}
	var resp struct {
		Sellers []models.Seller `json:"sellers"`
	}
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Sellers == nil {
		return nil, unexpected(req, "missing sellers")
	}
	return resp.Sellers, nil
}

// SearchSellers accepts both {"sellers": [...]} and a bare array
func (c *DashboardClientImpl) SearchSellers(ctx context.Context, query string) ([]models.Seller, error) {
	req := apiRequest{
		method:   http.MethodGet,
		path:     "/admin/sellers/search",
		query:    url.Values{"query": []string{query}},
		fallback: "Search failed",
	}
	var raw json.RawMessage
	if err := c.api.do(ctx, req, &raw); err != nil {
		return nil, err
	}

	var wrapped struct {
		Sellers []models.Seller `json:"sellers"`
	}
	if err := json.Unmarshal(raw, &wrapped); err == nil {
		if wrapped.Sellers == nil {
			return []models.Seller{}, nil
		}
		return wrapped.Sellers, nil
	}
	var bare []models.Seller
	if err := json.Unmarshal(raw, &bare); err != nil {
		return nil, unexpected(req, err.Error())
	}
	if bare == nil {
		bare = []models.Seller{}
	}
	return bare, nil
}

func (c *DashboardClientImpl) Seller(ctx context.Context, id string) (*models.Seller, error) {
	return c.seller(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/sellers/" + url.PathEscape(id),
		fallback: "Failed to fetch seller",
	})
}

// CreateSeller sends the form as multipart so the profile image and logo travel with it
func (c *DashboardClientImpl) CreateSeller(ctx context.Context, in models.SellerInput) (*models.Seller, error) {
	return c.seller(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/admin/sellers",
		form:     sellerForm(in, true),
		fallback: "Failed to create seller",
	})
}

// UpdateSeller never replaces the logo; it is set once at creation
func (c *DashboardClientImpl) UpdateSeller(ctx context.Context, id string, in models.SellerInput) (*models.Seller, error) {
	return c.seller(ctx, apiRequest{
		method:   http.MethodPut,
		path:     "/admin/sellers/" + url.PathEscape(id),
		form:     sellerForm(in, false),
		fallback: "Failed to update seller",
	})
}

func (c *DashboardClientImpl) DeleteSeller(ctx context.Context, id string) error {
	return c.api.do(ctx, apiRequest{
		method:   http.MethodDelete,
		path:     "/admin/sellers/" + url.PathEscape(id),
		fallback: "Failed to delete seller",
	}, nil)
}

func sellerForm(in models.SellerInput, withLogo bool) *multipartForm {
	form := &multipartForm{fields: in.FormFields(), files: map[string]*models.Upload{}}
	if in.ProfileImage != nil {
		form.files["profile_imge"] = in.ProfileImage
	}
	if withLogo && in.Logo != nil {
		form.files["logo"] = in.Logo
	}
	return form
}

// seller decodes {"seller": {...}} or the seller itself
func (c *DashboardClientImpl) seller(ctx context.Context, req apiRequest) (*models.Seller, error) {
	var resp struct {
		Wrapped *models.Seller `json:"seller"`
		models.Seller
	}
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Wrapped != nil {
		return resp.Wrapped, nil
	}
	if resp.ID == "" {
		return nil, unexpected(req, "missing seller")
	}
	return &resp.Seller, nil
}

type managersResponse struct {
	Admins []models.Manager `json:"admins"`
}

func (c *DashboardClientImpl) Managers(ctx context.Context) ([]models.Manager, error) {
	req := apiRequest{method: http.MethodGet, path: "/admin/admins", fallback: "Failed to fetch admins"}
	var resp managersResponse
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Admins == nil {
		return nil, unexpected(req, "missing admins")
	}
	return resp.Admins, nil
}

func (c *DashboardClientImpl) CreateManager(ctx context.Context, in models.ManagerInput) (*models.Manager, error) {
	form := &multipartForm{fields: in.FormFields(), files: map[string]*models.Upload{}}
	if in.ProfileImage != nil {
		form.files["profile_imge"] = in.ProfileImage
	}
	return c.manager(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/admin/admins",
		form:     form,
		fallback: "Failed to create admin",
	})
}

// SearchManagers treats a 404 as "no matches"
func (c *DashboardClientImpl) SearchManagers(ctx context.Context, query string) ([]models.Manager, error) {
	req := apiRequest{
		method:   http.MethodGet,
		path:     "/admin/admins/search",
		query:    url.Values{"query": []string{query}},
		fallback: "Failed to search admins",
	}
	var resp managersResponse
	if err := c.api.do(ctx, req, &resp); err != nil {
		if IsNotFound(err) {
			return []models.Manager{}, nil
		}
		return nil, err
	}
	if resp.Admins == nil {
		return []models.Manager{}, nil
	}
	return resp.Admins, nil
}

func (c *DashboardClientImpl) Manager(ctx context.Context, id string) (*models.Manager, error) {
	return c.manager(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/admins/" + url.PathEscape(id),
		fallback: "Failed to fetch admin",
	})
}

func (c *DashboardClientImpl) UpdateManager(ctx context.Context, id string, update models.ManagerUpdate) (*models.Manager, error) {
	return c.manager(ctx, apiRequest{
		method:   http.MethodPut,
		path:     "/admin/admins/" + url.PathEscape(id),
		body:     update,
		fallback: "Failed to update admin",
	})
}

func (c *DashboardClientImpl) DeleteManager(ctx context.Context, id string) error {
	return c.api.do(ctx, apiRequest{
		method:   http.MethodDelete,
		path:     "/admin/admins/" + url.PathEscape(id),
		fallback: "Failed to delete admin",
	}, nil)
}

func (c *DashboardClientImpl) Profile(ctx context.Context) (*models.Manager, error) {
	return c.manager(ctx, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/admins/me",
		fallback: "Failed to load profile data",
	})
}

// manager decodes {"admin": {...}} or the admin itself
func (c *DashboardClientImpl) manager(ctx context.Context, req apiRequest) (*models.Manager, error) {
	var resp struct {
		Admin *models.Manager `json:"admin"`
		models.Manager
	}
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if resp.Admin != nil && resp.Admin.ID != "" {
		return resp.Admin, nil
	}
	if resp.ID == "" {
		return nil, unexpected(req, "missing admin id")
	}
	return &resp.Manager, nil
}

func (c *DashboardClientImpl) Payouts(ctx context.Context) ([]models.Payout, error) {
	req := apiRequest{method: http.MethodGet, path: "/api/payouts", fallback: "Failed to fetch payouts"}
	var payouts []models.Payout
	if err := c.api.do(ctx, req, &payouts); err != nil {
		return nil, err
	}
	if payouts == nil {
		payouts = []models.Payout{}
	}
	return payouts, nil
}

func (c *DashboardClientImpl) SetPayoutStatus(ctx context.Context, id string, status models.PayoutStatus) error {
	return c.api.do(ctx, apiRequest{
		method:   http.MethodPut,
		path:     "/api/payouts/" + url.PathEscape(id) + "/status",
		body:     map[string]models.PayoutStatus{"status": status},
		fallback: "Failed to update payout. Please try again.",
	}, nil)
}

func (c *DashboardClientImpl) Summary(ctx context.Context) (*models.DashboardSummary, error) {
	return fetchEnvelope[models.DashboardSummary](ctx, c.api, apiRequest{
		method:   http.MethodGet,
		path:     "/admin/dashboard/summary",
		fallback: "Failed to fetch dashboard summary",
	})
}
