package services

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/amirphl/dokany-admin/models"
)

const (
	loginFallbackMessage = "Invalid email or password. Please try again."
	resetFallbackMessage = "An unexpected error occurred."
	// ResetSentMessage is shown when the upstream accepts a reset without saying anything
	ResetSentMessage = "If an account with that email exists, a reset link has been sent."
)

// LoginResult is the upstream answer to a successful admin login
type LoginResult struct {
	Token string
	User  *models.AdminIdentity
}

// AuthClient talks to the dashboard's public admin auth endpoints
type AuthClient interface {
	Login(ctx context.Context, email, password string) (*LoginResult, error)
	RequestPasswordReset(ctx context.Context, email string) (string, error)
}

type AuthClientImpl struct {
	api *APIClient
}

func NewAuthClient(api *APIClient) AuthClient {
	return &AuthClientImpl{api: api}
}

// flexibleID accepts both "42" and 42
type flexibleID string

func (f *flexibleID) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*f = flexibleID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return err
	}
	*f = flexibleID(n.String())
	return nil
}

type loginResponse struct {
	Token string `json:"token"`
	User  *struct {
		ID       flexibleID `json:"id"`
		Email    string     `json:"email"`
		Name     string     `json:"name"`
		UserName string     `json:"user_name"`
	} `json:"user"`
}

// Login posts {email, password} to /auth/admin/login and expects {user, token}
func (c *AuthClientImpl) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	req := apiRequest{
		method:   http.MethodPost,
		path:     "/auth/admin/login",
		body:     map[string]string{"email": email, "password": password},
		public:   true,
		fallback: loginFallbackMessage,
	}

	var resp loginResponse
	if err := c.api.do(ctx, req, &resp); err != nil {
		return nil, err
	}
	if strings.TrimSpace(resp.Token) == "" {
		return nil, unexpected(req, "missing token")
	}

	result := &LoginResult{Token: resp.Token}
	if resp.User != nil && resp.User.ID != "" {
		name := resp.User.Name
		if name == "" {
			name = resp.User.UserName
		}
		result.User = &models.AdminIdentity{
			UserID:      string(resp.User.ID),
			Email:       resp.User.Email,
			DisplayName: name,
		}
	}
	return result, nil
}

// RequestPasswordReset asks the dashboard to mail a reset link and returns its confirmation message
func (c *AuthClientImpl) RequestPasswordReset(ctx context.Context, email string) (string, error) {
	var resp struct {
		Message string `json:"message"`
	}
	err := c.api.do(ctx, apiRequest{
		method:   http.MethodPost,
		path:     "/auth/admin/reset-password",
		body:     map[string]string{"email": email},
		public:   true,
		fallback: resetFallbackMessage,
	}, &resp)
	if err != nil {
		return "", err
	}
	if strings.TrimSpace(resp.Message) == "" {
		return ResetSentMessage, nil
	}
	return resp.Message, nil
}
