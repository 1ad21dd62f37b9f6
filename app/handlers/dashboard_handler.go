package handlers

import (
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/amirphl/dokany-admin/app/dto"
	"github.com/amirphl/dokany-admin/app/middleware"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/models"
	"github.com/gofiber/fiber/v3"
)

// DashboardHandlerInterface defines the contract for the dashboard screens
type DashboardHandlerInterface interface {
	Analytics(c fiber.Ctx) error
	ListSellers(c fiber.Ctx) error
	GetSeller(c fiber.Ctx) error
	CreateSeller(c fiber.Ctx) error
	UpdateSeller(c fiber.Ctx) error
	DeleteSeller(c fiber.Ctx) error
	ListManagers(c fiber.Ctx) error
	GetManager(c fiber.Ctx) error
	CreateManager(c fiber.Ctx) error
	UpdateManager(c fiber.Ctx) error
	DeleteManager(c fiber.Ctx) error
	Profile(c fiber.Ctx) error
	UpdateProfile(c fiber.Ctx) error
	ListPayouts(c fiber.Ctx) error
	TogglePayout(c fiber.Ctx) error
	RecentActivity(c fiber.Ctx) error
	ActivityEntry(c fiber.Ctx) error
}

// DashboardHandler implements DashboardHandlerInterface
type DashboardHandler struct {
	baseHandler
	flow businessflow.DashboardFlow
}

func NewDashboardHandler(flow businessflow.DashboardFlow, session businessflow.SessionStore) DashboardHandlerInterface {
	return &DashboardHandler{
		baseHandler: newBaseHandler(session),
		flow:        flow,
	}
}

// Analytics is the home view after sign-in
// @Summary Dashboard analytics
// @Description Summary counts, campaign stats and recent console activity. Sections that fail to load are listed in warnings.
// @Tags Dashboard
// @Produce json
// @Success 200 {object} dto.APIResponse{data=object{user=models.AdminIdentity,analytics=businessflow.AnalyticsView}} "Analytics retrieved"
// @Router /dashboard/analytics [get]
func (h *DashboardHandler) Analytics(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/dashboard/analytics")
	defer cancel()

	view := h.flow.Analytics(ctx)
	return h.SuccessResponse(c, fiber.StatusOK, "Analytics retrieved", fiber.Map{
		"user":      middleware.AdminIdentity(c),
		"analytics": view,
	})
}

// ListSellers lists sellers, or searches them when query is set
// @Summary List sellers
// @Tags Sellers
// @Produce json
// @Param query query string false "Search by name, email or phone"
// @Success 200 {object} dto.APIResponse{data=object{sellers=[]models.Seller}} "Sellers retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid query parameters"
// @Failure 502 {object} dto.APIResponse "Dashboard API error"
// @Router /sellers [get]
func (h *DashboardHandler) ListSellers(c fiber.Ctx) error {
	var q dto.SellerSearchQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &q); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/sellers")
	defer cancel()

	sellers, err := h.flow.ListSellers(ctx, q.Query)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Sellers retrieved", fiber.Map{"sellers": sellers})
}

// GetSeller returns one seller
// @Summary Get seller
// @Tags Sellers
// @Produce json
// @Param id path string true "Seller ID"
// @Success 200 {object} dto.APIResponse{data=models.Seller} "Seller retrieved"
// @Failure 404 {object} dto.APIResponse "Seller not found"
// @Router /sellers/{id} [get]
func (h *DashboardHandler) GetSeller(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/sellers/:id")
	defer cancel()

	seller, err := h.flow.GetSeller(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Seller retrieved", seller)
}

// CreateSeller registers a seller. Supports multipart form upload or JSON.
// @Summary Create seller
// @Tags Sellers
// @Accept mpfd
// @Accept json
// @Produce json
// @Param user_name formData string false "Username"
// @Param email formData string false "Email"
// @Param password formData string false "Password (>=6 chars)"
// @Param profile_imge formData file false "Profile image"
// @Param logo formData file false "Store logo"
// @Param request body dto.SellerRequest false "JSON alternative without uploads"
// @Success 201 {object} dto.APIResponse{data=models.Seller} "Seller created"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Failure 502 {object} dto.APIResponse "Dashboard API error"
// @Router /sellers [post]
func (h *DashboardHandler) CreateSeller(c fiber.Ctx) error {
	in, done, err := h.bindSeller(c, true)
	if done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/sellers")
	defer cancel()

	seller, err := h.flow.CreateSeller(ctx, in, middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Seller created", seller)
}

// UpdateSeller edits a seller; an empty password keeps the current one
// @Summary Update seller
// @Tags Sellers
// @Accept mpfd
// @Accept json
// @Produce json
// @Param id path string true "Seller ID"
// @Param profile_imge formData file false "Profile image"
// @Param request body dto.SellerRequest false "JSON alternative without uploads"
// @Success 200 {object} dto.APIResponse{data=models.Seller} "Seller updated"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Failure 404 {object} dto.APIResponse "Seller not found"
// @Router /sellers/{id} [put]
func (h *DashboardHandler) UpdateSeller(c fiber.Ctx) error {
	in, done, err := h.bindSeller(c, false)
	if done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/sellers/:id")
	defer cancel()

	seller, err := h.flow.UpdateSeller(ctx, c.Params("id"), in, middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Seller updated", seller)
}

// DeleteSeller removes a seller
// @Summary Delete seller
// @Tags Sellers
// @Produce json
// @Param id path string true "Seller ID"
// @Success 200 {object} dto.APIResponse "Seller deleted"
// @Failure 404 {object} dto.APIResponse "Seller not found"
// @Router /sellers/{id} [delete]
func (h *DashboardHandler) DeleteSeller(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/sellers/:id")
	defer cancel()

	if err := h.flow.DeleteSeller(ctx, c.Params("id"), middleware.AdminIdentity(c), h.clientMetadata(c)); err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Seller deleted", nil)
}

// ListManagers lists admins, or searches them when query is set
// @Summary List admins
// @Tags Admins
// @Produce json
// @Param query query string false "Search by name or email"
// @Success 200 {object} dto.APIResponse{data=object{admins=[]models.Manager}} "Admins retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid query parameters"
// @Router /managers [get]
func (h *DashboardHandler) ListManagers(c fiber.Ctx) error {
	var q dto.ManagerSearchQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &q); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/managers")
	defer cancel()

	managers, err := h.flow.ListManagers(ctx, q.Query)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Admins retrieved", fiber.Map{"admins": managers})
}

// GetManager returns one admin
// @Summary Get admin
// @Tags Admins
// @Produce json
// @Param id path string true "Admin ID"
// @Success 200 {object} dto.APIResponse{data=models.Manager} "Admin retrieved"
// @Failure 404 {object} dto.APIResponse "Admin not found"
// @Router /managers/{id} [get]
func (h *DashboardHandler) GetManager(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/managers/:id")
	defer cancel()

	manager, err := h.flow.GetManager(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Admin retrieved", manager)
}

// CreateManager adds an admin. Supports multipart form upload or JSON.
// @Summary Create admin
// @Tags Admins
// @Accept mpfd
// @Accept json
// @Produce json
// @Param profile_imge formData file false "Profile image"
// @Param request body dto.CreateManagerRequest false "JSON alternative without uploads"
// @Success 201 {object} dto.APIResponse{data=models.Manager} "Admin created"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Router /managers [post]
func (h *DashboardHandler) CreateManager(c fiber.Ctx) error {
	var req dto.CreateManagerRequest
	var in models.ManagerInput

	if isMultipart(c) {
		form, err := c.MultipartForm()
		if err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid form data", "INVALID_REQUEST", err.Error())
		}
		req = dto.CreateManagerRequest{
			UserName:    c.FormValue("user_name"),
			FirstName:   c.FormValue("f_name"),
			LastName:    c.FormValue("l_name"),
			Email:       c.FormValue("email"),
			Phone:       c.FormValue("phone"),
			Password:    c.FormValue("password"),
			Role:        c.FormValue("role"),
			City:        c.FormValue("city"),
			Governorate: c.FormValue("governorate"),
			Country:     c.FormValue("country"),
		}
		in = req.ToModel()
		if in.ProfileImage, err = readUpload(form, "profile_imge"); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
		}
	} else {
		if err := c.Bind().JSON(&req); err != nil {
			return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		in = req.ToModel()
	}

	ctx, cancel := h.createRequestContext(c, "/managers")
	defer cancel()

	manager, err := h.flow.CreateManager(ctx, in, middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Admin created", manager)
}

// UpdateManager edits an admin; omitted fields are left unchanged
// @Summary Update admin
// @Tags Admins
// @Accept json
// @Produce json
// @Param id path string true "Admin ID"
// @Param request body dto.UpdateManagerRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Manager} "Admin updated"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Router /managers/{id} [put]
func (h *DashboardHandler) UpdateManager(c fiber.Ctx) error {
	var req dto.UpdateManagerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &req); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/managers/:id")
	defer cancel()

	manager, err := h.flow.UpdateManager(ctx, c.Params("id"), req.ToModel(), middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Admin updated", manager)
}

// DeleteManager removes an admin
// @Summary Delete admin
// @Tags Admins
// @Produce json
// @Param id path string true "Admin ID"
// @Success 200 {object} dto.APIResponse "Admin deleted"
// @Failure 404 {object} dto.APIResponse "Admin not found"
// @Router /managers/{id} [delete]
func (h *DashboardHandler) DeleteManager(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/managers/:id")
	defer cancel()

	if err := h.flow.DeleteManager(ctx, c.Params("id"), middleware.AdminIdentity(c), h.clientMetadata(c)); err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Admin deleted", nil)
}

// Profile returns the signed-in admin
// @Summary My profile
// @Tags Profile
// @Produce json
// @Success 200 {object} dto.APIResponse{data=models.Manager} "Profile retrieved"
// @Failure 401 {object} dto.APIResponse "Session expired"
// @Router /profile [get]
func (h *DashboardHandler) Profile(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/profile")
	defer cancel()

	profile, err := h.flow.Profile(ctx)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Profile retrieved", profile)
}

// UpdateProfile edits the signed-in admin
// @Summary Update my profile
// @Tags Profile
// @Accept json
// @Produce json
// @Param request body dto.UpdateManagerRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=models.Manager} "Profile updated"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Validation failed"
// @Router /profile [put]
func (h *DashboardHandler) UpdateProfile(c fiber.Ctx) error {
	var req dto.UpdateManagerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &req); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/profile")
	defer cancel()

	profile, err := h.flow.UpdateProfile(ctx, req.ToModel(), middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Profile updated", profile)
}

// ListPayouts lists seller payouts
// @Summary List payouts
// @Tags Payouts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=object{payouts=[]models.Payout}} "Payouts retrieved"
// @Failure 502 {object} dto.APIResponse "Dashboard API error"
// @Router /payouts [get]
func (h *DashboardHandler) ListPayouts(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/payouts")
	defer cancel()

	payouts, err := h.flow.ListPayouts(ctx)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Payouts retrieved", fiber.Map{"payouts": payouts})
}

// TogglePayout flips a payout between Paid and Pending
// @Summary Toggle payout status
// @Tags Payouts
// @Produce json
// @Param id path string true "Payout ID"
// @Success 200 {object} dto.APIResponse{data=models.Payout} "Payout status changed"
// @Failure 404 {object} dto.APIResponse "Payout not found"
// @Router /payouts/{id}/toggle [post]
func (h *DashboardHandler) TogglePayout(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/payouts/:id/toggle")
	defer cancel()

	payout, err := h.flow.TogglePayout(ctx, c.Params("id"), middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Payout marked as "+string(payout.Status), payout)
}

// RecentActivity lists console audit entries, newest first
// @Summary Recent activity
// @Tags Dashboard
// @Produce json
// @Param limit query int false "Entries to return (default 10, max 100)"
// @Param admin query string false "Only entries by this admin ID"
// @Param failed query bool false "Only failed actions"
// @Success 200 {object} dto.APIResponse{data=object{activity=[]models.AuditLog}} "Activity retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid query parameters"
// @Router /dashboard/activity [get]
func (h *DashboardHandler) RecentActivity(c fiber.Ctx) error {
	var q dto.ActivityQuery
	if err := c.Bind().Query(&q); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &q); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/dashboard/activity")
	defer cancel()

	logs, err := h.flow.RecentActivity(ctx, businessflow.ActivityFilter{
		Limit:      q.Limit,
		AdminID:    q.Admin,
		FailedOnly: q.Failed,
	})
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Activity retrieved", fiber.Map{"activity": logs})
}

// ActivityEntry returns one audit entry
// @Summary Activity entry
// @Tags Dashboard
// @Produce json
// @Param id path int true "Entry ID"
// @Success 200 {object} dto.APIResponse{data=models.AuditLog} "Activity entry retrieved"
// @Failure 400 {object} dto.APIResponse "Invalid entry ID"
// @Failure 404 {object} dto.APIResponse "Activity entry not found"
// @Router /dashboard/activity/{id} [get]
func (h *DashboardHandler) ActivityEntry(c fiber.Ctx) error {
	id, err := strconv.ParseUint(c.Params("id"), 10, 64)
	if err != nil || id == 0 {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid entry ID", "INVALID_REQUEST", nil)
	}

	ctx, cancel := h.createRequestContext(c, "/dashboard/activity/:id")
	defer cancel()

	entry, err := h.flow.ActivityEntry(ctx, uint(id))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Activity entry retrieved", entry)
}

// bindSeller reads the seller form from multipart or JSON. The logo is only read on create.
func (h *DashboardHandler) bindSeller(c fiber.Ctx, withLogo bool) (models.SellerInput, bool, error) {
	var req dto.SellerRequest

	if !isMultipart(c) {
		if err := c.Bind().JSON(&req); err != nil {
			return models.SellerInput{}, true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
		}
		return req.ToModel(), false, nil
	}

	form, err := c.MultipartForm()
	if err != nil {
		return models.SellerInput{}, true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid form data", "INVALID_REQUEST", err.Error())
	}
	req = dto.SellerRequest{
		UserName:     c.FormValue("user_name"),
		FirstName:    c.FormValue("f_name"),
		LastName:     c.FormValue("l_name"),
		Email:        c.FormValue("email"),
		Phone:        c.FormValue("phone"),
		City:         c.FormValue("city"),
		Governorate:  c.FormValue("governorate"),
		Country:      c.FormValue("country"),
		Password:     c.FormValue("password"),
		Subdomain:    c.FormValue("subdomain"),
		PayoutMethod: c.FormValue("payout_method"),
		ThemeID:      c.FormValue("theme_id"),
	}
	in := req.ToModel()

	if in.ProfileImage, err = readUpload(form, "profile_imge"); err != nil {
		return in, true, h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
	}
	if withLogo {
		if in.Logo, err = readUpload(form, "logo"); err != nil {
			return in, true, h.ErrorResponse(c, fiber.StatusBadRequest, "File upload failed", "FILE_UPLOAD_FAILED", err.Error())
		}
	}
	return in, false, nil
}

func isMultipart(c fiber.Ctx) bool {
	return strings.HasPrefix(c.Get("Content-Type"), "multipart/form-data")
}

// readUpload returns the first file under key, or nil when none was attached
func readUpload(form *multipart.Form, key string) (*models.Upload, error) {
	files := form.File[key]
	if len(files) == 0 || files[0] == nil {
		return nil, nil
	}
	f, err := files[0].Open()
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", key, err)
	}
	defer f.Close()

	content, err := io.ReadAll(f)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", key, err)
	}
	return &models.Upload{Filename: files[0].Filename, Content: content}, nil
}
