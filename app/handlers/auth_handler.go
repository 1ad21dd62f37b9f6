package handlers

import (
	"github.com/amirphl/dokany-admin/app/dto"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/gofiber/fiber/v3"
)

// AuthHandlerInterface defines the contract for the session endpoints
type AuthHandlerInterface interface {
	LoginPage(c fiber.Ctx) error
	Login(c fiber.Ctx) error
	Logout(c fiber.Ctx) error
	ForgotPassword(c fiber.Ctx) error
	Session(c fiber.Ctx) error
}

// AuthHandler implements AuthHandlerInterface
type AuthHandler struct {
	baseHandler
}

func NewAuthHandler(session businessflow.SessionStore) AuthHandlerInterface {
	return &AuthHandler{baseHandler: newBaseHandler(session)}
}

var loginView = dto.LoginView{
	Title:  "Admin Login",
	Action: "/auth/login",
	Fields: []dto.LoginField{
		{Name: "email", Type: "email", Placeholder: "admin@example.com", Rule: "A valid email address"},
		{Name: "password", Type: "password", Placeholder: "Password", Rule: "At least 6 characters"},
	},
}

// LoginPage renders the login entry point; a signed-in operator is sent to the dashboard
// @Summary Login page
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.LoginView} "Please sign in"
// @Success 303 {string} string "Already signed in, redirect to the dashboard"
// @Failure 503 {object} dto.APIResponse "Session still loading"
// @Router /login [get]
func (h *AuthHandler) LoginPage(c fiber.Ctx) error {
	snap := h.session.Snapshot()
	if snap.Loading {
		c.Set(fiber.HeaderRetryAfter, "1")
		return h.ErrorResponse(c, fiber.StatusServiceUnavailable, "Loading session, please wait", "SESSION_LOADING", nil)
	}
	if snap.IsAuthenticated {
		return c.Redirect().Status(fiber.StatusSeeOther).To(utils.HomePath)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Please sign in", loginView)
}

// Login authenticates against the dashboard API and persists the session
// @Summary Admin login
// @Description Validates the form, signs in against the dashboard API and stores the token
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.LoginRequest true "Credentials"
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Login successful"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 401 {object} dto.APIResponse "Incorrect credentials"
// @Failure 409 {object} dto.APIResponse "Login already in progress"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Router /auth/login [post]
func (h *AuthHandler) Login(c fiber.Ctx) error {
	var req dto.LoginRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/auth/login")
	defer cancel()

	session, err := h.session.Login(ctx, req.Email, req.Password, h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}

	return h.SuccessResponse(c, fiber.StatusOK, "Login successful", dto.NewSessionResponse(session, utils.HomePath))
}

// Logout is idempotent
// @Summary Logout
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Logged out"
// @Router /auth/logout [post]
func (h *AuthHandler) Logout(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/auth/logout")
	defer cancel()

	session := h.session.Logout(ctx, h.clientMetadata(c))
	return h.SuccessResponse(c, fiber.StatusOK, "Logged out", dto.NewSessionResponse(session, utils.LoginPath))
}

// ForgotPassword asks the dashboard API to email a reset link
// @Summary Forgot password
// @Description The answer does not reveal whether the email belongs to an admin
// @Tags Authentication
// @Accept json
// @Produce json
// @Param request body dto.ForgotPasswordRequest true "Admin email"
// @Success 200 {object} dto.APIResponse "Reset link sent"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Invalid email"
// @Router /auth/forgot-password [post]
func (h *AuthHandler) ForgotPassword(c fiber.Ctx) error {
	var req dto.ForgotPasswordRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/auth/forgot-password")
	defer cancel()

	message, err := h.session.RequestPasswordReset(ctx, req.Email, h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, message, nil)
}

// Session returns the current session snapshot without guarding it
// @Summary Session snapshot
// @Tags Authentication
// @Produce json
// @Success 200 {object} dto.APIResponse{data=dto.SessionResponse} "Session retrieved"
// @Router /session [get]
func (h *AuthHandler) Session(c fiber.Ctx) error {
	return h.SuccessResponse(c, fiber.StatusOK, "Session retrieved", dto.NewSessionResponse(h.session.Snapshot(), ""))
}
