// Package handlers contains HTTP request handlers and presentation layer logic for the console views
package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/amirphl/dokany-admin/app/dto"
	"github.com/amirphl/dokany-admin/app/middleware"
	"github.com/amirphl/dokany-admin/app/services"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/requestid"
)

func getValidationErrorMessage(err validator.FieldError) string {
	switch err.Tag() {
	case "required":
		return err.Field() + " is required"
	case "email":
		return "Invalid email format"
	case "min":
		return err.Field() + " must be at least " + err.Param() + " characters"
	case "max":
		return err.Field() + " must be at most " + err.Param() + " characters"
	case "oneof":
		return err.Field() + " must be one of: " + err.Param()
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", err.Field(), err.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", err.Field(), err.Param())
	default:
		return err.Field() + " is invalid"
	}
}

// baseHandler carries the response helpers every console handler shares
type baseHandler struct {
	session   businessflow.SessionStore
	validator *validator.Validate
	timeout   time.Duration
}

func newBaseHandler(session businessflow.SessionStore) baseHandler {
	return baseHandler{
		session:   session,
		validator: validator.New(),
		timeout:   utils.DefaultRequestTimeout,
	}
}

// ErrorResponse standard JSON error
func (h *baseHandler) ErrorResponse(c fiber.Ctx, statusCode int, message, errorCode string, details any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Error: dto.ErrorDetail{
			Code:    errorCode,
			Details: details,
		},
	})
}

// SuccessResponse standard JSON success
func (h *baseHandler) SuccessResponse(c fiber.Ctx, statusCode int, message string, data any) error {
	return c.Status(statusCode).JSON(dto.APIResponse{
		Success: true,
		Message: message,
		Data:    data,
	})
}

// validate runs struct validation and answers 400 when it fails; the bool reports whether a response was written
func (h *baseHandler) validate(c fiber.Ctx, req any) (bool, error) {
	err := h.validator.Struct(req)
	if err == nil {
		return false, nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request", "INVALID_REQUEST", err.Error())
	}
	messages := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		messages = append(messages, getValidationErrorMessage(fe))
	}
	return true, h.ErrorResponse(c, fiber.StatusBadRequest, "Validation failed", "VALIDATION_ERROR", messages)
}

// createRequestContext copies request-scoped values onto a context bounded by the handler timeout
func (h *baseHandler) createRequestContext(c fiber.Ctx, endpoint string) (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), h.timeout)
	ctx = context.WithValue(ctx, utils.RequestIDKey, requestid.FromContext(c))
	ctx = context.WithValue(ctx, utils.UserAgentKey, c.Get("User-Agent"))
	ctx = context.WithValue(ctx, utils.IPAddressKey, c.IP())
	ctx = context.WithValue(ctx, utils.EndpointKey, endpoint)
	if admin := middleware.AdminIdentity(c); admin != nil {
		ctx = context.WithValue(ctx, utils.AdminIDKey, admin.UserID)
	}
	return ctx, cancel
}

func (h *baseHandler) clientMetadata(c fiber.Ctx) *businessflow.ClientMetadata {
	metadata := businessflow.NewClientMetadata(c.IP(), c.Get("User-Agent"))
	metadata.SetRequestID(requestid.FromContext(c))
	return metadata
}

// handleError maps a flow error onto a response. An upstream 401 ends the session.
// data, when set, is returned alongside the error so the view can be re-rendered.
func (h *baseHandler) handleError(c fiber.Ctx, err error, data any) error {
	if services.IsAuthError(err) && !businessflow.IsLoginRejected(err) {
		ctx, cancel := h.createRequestContext(c, c.Path())
		defer cancel()
		h.session.Invalidate(ctx, businessflow.UserMessage(err))
		return h.ErrorResponse(c, fiber.StatusUnauthorized, "Your session has expired. Please log in again.", "SESSION_EXPIRED", fiber.Map{"next": utils.LoginPath})
	}

	status, code := statusFor(err)
	message := businessflow.UserMessage(err)
	var details any
	if ve, ok := businessflow.AsValidationError(err); ok {
		details = ve.Fields
		message = "Validation failed"
	}
	if status >= fiber.StatusInternalServerError {
		logx.L().Errorw("request failed", "path", c.Path(), "code", code, "error", err)
	}

	return c.Status(status).JSON(dto.APIResponse{
		Success: false,
		Message: message,
		Data:    data,
		Error:   dto.ErrorDetail{Code: code, Details: details},
	})
}

func statusFor(err error) (int, string) {
	if _, ok := businessflow.AsValidationError(err); ok {
		return fiber.StatusUnprocessableEntity, "VALIDATION_ERROR"
	}

	code := "INTERNAL_ERROR"
	var be *businessflow.BusinessError
	if errors.As(err, &be) && be.Code != "" {
		code = be.Code
	}

	switch {
	case businessflow.IsDraftNotFound(err), businessflow.IsCampaignNotFound(err), businessflow.IsPayoutNotFound(err),
		businessflow.IsActivityNotFound(err):
		return fiber.StatusNotFound, code
	case businessflow.IsDraftClosed(err), businessflow.IsSubmissionInFlight(err), businessflow.IsLoginInProgress(err):
		return fiber.StatusConflict, code
	case businessflow.IsInvalidTargetType(err), errors.Is(err, businessflow.ErrInvalidPayout):
		return fiber.StatusBadRequest, code
	case businessflow.IsLoginRejected(err):
		return fiber.StatusUnauthorized, code
	}

	var apiErr *services.APIError
	if errors.As(err, &apiErr) {
		if be == nil {
			code = apiErr.Code
		}
		switch apiErr.Code {
		case services.CodeNotFound:
			return fiber.StatusNotFound, code
		case services.CodeForbidden:
			return fiber.StatusForbidden, code
		case services.CodeBadRequest:
			return fiber.StatusBadRequest, code
		case services.CodeUpstreamUnavailable:
			return fiber.StatusServiceUnavailable, code
		default:
			return fiber.StatusBadGateway, code
		}
	}
	return fiber.StatusInternalServerError, code
}
