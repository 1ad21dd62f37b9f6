package handlers

import (
	"github.com/amirphl/dokany-admin/app/dto"
	"github.com/amirphl/dokany-admin/app/middleware"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/gofiber/fiber/v3"
)

// DraftHandlerInterface defines the contract for campaign composition
type DraftHandlerInterface interface {
	CreateDraft(c fiber.Ctx) error
	ListDrafts(c fiber.Ctx) error
	GetDraft(c fiber.Ctx) error
	UpdateDraft(c fiber.Ctx) error
	ToggleTheme(c fiber.Ctx) error
	ToggleLocation(c fiber.Ctx) error
	SubmitDraft(c fiber.Ctx) error
	DiscardDraft(c fiber.Ctx) error
	Catalogs(c fiber.Ctx) error
	RefreshCatalogs(c fiber.Ctx) error
}

// DraftHandler implements DraftHandlerInterface
type DraftHandler struct {
	baseHandler
	flow businessflow.CampaignDraftFlow
}

func NewDraftHandler(flow businessflow.CampaignDraftFlow, session businessflow.SessionStore) DraftHandlerInterface {
	return &DraftHandler{
		baseHandler: newBaseHandler(session),
		flow:        flow,
	}
}

// CreateDraft opens a new campaign draft
// @Summary Create draft
// @Tags Campaign Drafts
// @Produce json
// @Success 201 {object} dto.APIResponse{data=businessflow.DraftView} "Draft created"
// @Failure 401 {object} dto.APIResponse "Session expired"
// @Router /campaigns/drafts [post]
func (h *DraftHandler) CreateDraft(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts")
	defer cancel()

	view, err := h.flow.CreateDraft(ctx)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Draft created", view)
}

// ListDrafts lists the open drafts, most recently edited first
// @Summary List drafts
// @Description Drafts idle past their lifetime are dropped before listing
// @Tags Campaign Drafts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=[]businessflow.DraftSummary} "Drafts retrieved"
// @Router /campaigns/drafts [get]
func (h *DraftHandler) ListDrafts(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts")
	defer cancel()

	return h.SuccessResponse(c, fiber.StatusOK, "Drafts retrieved", h.flow.ListDrafts(ctx))
}

// GetDraft re-renders one draft
// @Summary Get draft
// @Tags Campaign Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} dto.APIResponse{data=businessflow.DraftView} "Draft retrieved"
// @Failure 404 {object} dto.APIResponse "Draft not found"
// @Router /campaigns/drafts/{id} [get]
func (h *DraftHandler) GetDraft(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id")
	defer cancel()

	view, err := h.flow.GetDraft(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft retrieved", view)
}

// UpdateDraft applies title, content and target type edits
// @Summary Update draft
// @Description Switching the target type clears the selection of the other type
// @Tags Campaign Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body dto.UpdateDraftRequest true "Fields to change"
// @Success 200 {object} dto.APIResponse{data=businessflow.DraftView} "Draft updated"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 404 {object} dto.APIResponse "Draft not found"
// @Failure 409 {object} dto.APIResponse "Draft already submitted"
// @Router /campaigns/drafts/{id} [patch]
func (h *DraftHandler) UpdateDraft(c fiber.Ctx) error {
	var req dto.UpdateDraftRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &req); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id")
	defer cancel()

	view, err := h.flow.UpdateDraft(ctx, c.Params("id"), businessflow.DraftUpdate{
		Title:      req.Title,
		Content:    req.Content,
		TargetType: req.TargetType,
	})
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft updated", view)
}

// ToggleTheme adds or removes one theme from the selection
// @Summary Toggle theme
// @Tags Campaign Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body dto.ToggleThemeRequest true "Theme to toggle"
// @Success 200 {object} dto.APIResponse{data=businessflow.DraftView} "Theme selection updated"
// @Failure 400 {object} dto.APIResponse "Draft is not targeting themes"
// @Failure 404 {object} dto.APIResponse "Draft not found"
// @Router /campaigns/drafts/{id}/themes [post]
func (h *DraftHandler) ToggleTheme(c fiber.Ctx) error {
	var req dto.ToggleThemeRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &req); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id/themes")
	defer cancel()

	view, err := h.flow.ToggleTheme(ctx, c.Params("id"), req.ThemeID)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Theme selection updated", view)
}

// ToggleLocation adds or removes one location name from the selection
// @Summary Toggle location
// @Tags Campaign Drafts
// @Accept json
// @Produce json
// @Param id path string true "Draft ID"
// @Param request body dto.ToggleLocationRequest true "Location to toggle"
// @Success 200 {object} dto.APIResponse{data=businessflow.DraftView} "Location selection updated"
// @Failure 400 {object} dto.APIResponse "Draft is not targeting locations"
// @Failure 404 {object} dto.APIResponse "Draft not found"
// @Router /campaigns/drafts/{id}/locations [post]
func (h *DraftHandler) ToggleLocation(c fiber.Ctx) error {
	var req dto.ToggleLocationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}
	if done, err := h.validate(c, &req); done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id/locations")
	defer cancel()

	view, err := h.flow.ToggleLocation(ctx, c.Params("id"), req.Name)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Location selection updated", view)
}

// SubmitDraft returns the re-rendered draft with both success and failure
// @Summary Submit draft
// @Description Validates the draft, resolves the audience and creates the campaign
// @Tags Campaign Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 201 {object} dto.APIResponse{data=businessflow.DraftView} "Campaign created successfully"
// @Failure 409 {object} dto.APIResponse "Submission already in progress"
// @Failure 422 {object} dto.APIResponse{data=businessflow.DraftView} "Draft has invalid fields"
// @Failure 502 {object} dto.APIResponse{data=businessflow.DraftView} "Dashboard API rejected the campaign"
// @Router /campaigns/drafts/{id}/submit [post]
func (h *DraftHandler) SubmitDraft(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id/submit")
	defer cancel()

	view, err := h.flow.Submit(ctx, c.Params("id"), middleware.AdminIdentity(c), h.clientMetadata(c))
	if err != nil {
		var data any
		if view != nil {
			data = view
		}
		return h.handleError(c, err, data)
	}
	return h.SuccessResponse(c, fiber.StatusCreated, "Campaign created successfully", view)
}

// DiscardDraft drops a draft without submitting it
// @Summary Discard draft
// @Tags Campaign Drafts
// @Produce json
// @Param id path string true "Draft ID"
// @Success 200 {object} dto.APIResponse "Draft discarded"
// @Failure 404 {object} dto.APIResponse "Draft not found"
// @Router /campaigns/drafts/{id} [delete]
func (h *DraftHandler) DiscardDraft(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/drafts/:id")
	defer cancel()

	if err := h.flow.DiscardDraft(ctx, c.Params("id")); err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Draft discarded", nil)
}

// Catalogs lists themes and locations for the selection panels
// @Summary Selection catalogs
// @Description Themes and location tiers. A tier that failed to load is reported in warnings.
// @Tags Campaign Drafts
// @Produce json
// @Success 200 {object} dto.APIResponse{data=object{themes=[]models.Theme,locations=models.LocationCatalog,warnings=[]string}} "Catalogs retrieved"
// @Router /campaigns/catalogs [get]
func (h *DraftHandler) Catalogs(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/catalogs")
	defer cancel()

	catalogs, warnings := h.flow.Catalogs(ctx)
	return h.SuccessResponse(c, fiber.StatusOK, "Catalogs retrieved", fiber.Map{
		"themes":    catalogs.Themes,
		"locations": catalogs.Locations,
		"warnings":  warnings,
	})
}

// RefreshCatalogs drops the cached catalogs so the next read reloads them
// @Summary Refresh catalogs
// @Tags Campaign Drafts
// @Produce json
// @Success 200 {object} dto.APIResponse "Catalog cache cleared"
// @Failure 503 {object} dto.APIResponse "Cache unavailable"
// @Router /campaigns/catalogs/refresh [post]
func (h *DraftHandler) RefreshCatalogs(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/catalogs/refresh")
	defer cancel()

	if err := h.flow.RefreshCatalogs(ctx); err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Catalog cache cleared", nil)
}
