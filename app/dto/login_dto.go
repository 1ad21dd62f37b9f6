package dto

import "github.com/amirphl/dokany-admin/models"

// LoginRequest is the login form. Field rules are enforced by the session store
// so a rejected form never reaches the dashboard API.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// ForgotPasswordRequest asks the dashboard to email a reset link
type ForgotPasswordRequest struct {
	Email string `json:"email"`
}

// LoginField describes one input of the login form
type LoginField struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Placeholder string `json:"placeholder"`
	Rule        string `json:"rule"`
}

// LoginView is rendered at the login entry point
type LoginView struct {
	Title  string       `json:"title"`
	Fields []LoginField `json:"fields"`
	Action string       `json:"action"`
}

// SessionResponse is the public projection of the admin session
type SessionResponse struct {
	User            *models.AdminIdentity `json:"user"`
	IsAuthenticated bool                  `json:"isAuthenticated"`
	Loading         bool                  `json:"loading"`
	Next            string                `json:"next,omitempty"`
}

func NewSessionResponse(s models.Session, next string) SessionResponse {
	return SessionResponse{
		User:            s.Identity,
		IsAuthenticated: s.IsAuthenticated,
		Loading:         s.Loading,
		Next:            next,
	}
}
