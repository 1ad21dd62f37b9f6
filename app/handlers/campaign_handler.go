package handlers

import (
	"github.com/amirphl/dokany-admin/app/dto"
	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/models"
	"github.com/gofiber/fiber/v3"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// CampaignHandlerInterface defines the contract for the campaign list views
type CampaignHandlerInterface interface {
	ListCampaigns(c fiber.Ctx) error
	GetCampaign(c fiber.Ctx) error
	GetStats(c fiber.Ctx) error
	ExportCampaigns(c fiber.Ctx) error
	SendTestEmail(c fiber.Ctx) error
}

// CampaignHandler implements CampaignHandlerInterface
type CampaignHandler struct {
	baseHandler
	flow businessflow.CampaignAdminFlow
}

func NewCampaignHandler(flow businessflow.CampaignAdminFlow, session businessflow.SessionStore) CampaignHandlerInterface {
	return &CampaignHandler{
		baseHandler: newBaseHandler(session),
		flow:        flow,
	}
}

func (h *CampaignHandler) bindListQuery(c fiber.Ctx) (models.CampaignListQuery, bool, error) {
	var q dto.CampaignListQuery
	if err := c.Bind().Query(&q); err != nil {
		return models.CampaignListQuery{}, true, h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid query parameters", "INVALID_REQUEST", err.Error())
	}
	done, err := h.validate(c, &q)
	return models.CampaignListQuery{Page: q.Page, Limit: q.Limit, Status: models.CampaignStatus(q.Status)}, done, err
}

// ListCampaigns returns one page of campaigns
// @Summary List campaigns
// @Description One page of campaigns, newest first, optionally narrowed to one status
// @Tags Campaigns
// @Produce json
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param status query string false "PENDING, ACTIVE, COMPLETED, CANCELLED or FAILED"
// @Success 200 {object} dto.APIResponse{data=models.CampaignPage} "Campaigns retrieved successfully"
// @Failure 400 {object} dto.APIResponse "Invalid query parameters"
// @Failure 401 {object} dto.APIResponse "Session expired"
// @Failure 502 {object} dto.APIResponse "Dashboard API error"
// @Router /campaigns [get]
func (h *CampaignHandler) ListCampaigns(c fiber.Ctx) error {
	q, done, err := h.bindListQuery(c)
	if done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns")
	defer cancel()

	page, err := h.flow.ListCampaigns(ctx, q)
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaigns retrieved successfully", page)
}

// GetCampaign returns one campaign
// @Summary Get campaign
// @Tags Campaigns
// @Produce json
// @Param id path string true "Campaign ID"
// @Success 200 {object} dto.APIResponse{data=models.Campaign} "Campaign retrieved successfully"
// @Failure 404 {object} dto.APIResponse "Campaign not found"
// @Router /campaigns/{id} [get]
func (h *CampaignHandler) GetCampaign(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/:id")
	defer cancel()

	campaign, err := h.flow.GetCampaign(ctx, c.Params("id"))
	if err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Campaign retrieved successfully", campaign)
}

// GetStats always answers 200; degraded stats are flagged in the body
// @Summary Campaign statistics
// @Description Totals per status. A failed upstream call yields zeroed stats with degraded set.
// @Tags Campaigns
// @Produce json
// @Success 200 {object} dto.APIResponse{data=businessflow.CampaignStatsView} "Campaign statistics retrieved"
// @Router /campaigns/stats [get]
func (h *CampaignHandler) GetStats(c fiber.Ctx) error {
	ctx, cancel := h.createRequestContext(c, "/campaigns/stats")
	defer cancel()

	return h.SuccessResponse(c, fiber.StatusOK, "Campaign statistics retrieved", h.flow.GetStats(ctx))
}

// ExportCampaigns downloads the requested page as an xlsx workbook
// @Summary Export campaigns
// @Tags Campaigns
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param page query int false "Page number (default 1)"
// @Param limit query int false "Page size (default 10, max 100)"
// @Param status query string false "PENDING, ACTIVE, COMPLETED, CANCELLED or FAILED"
// @Success 200 {string} string "Excel file"
// @Failure 400 {object} dto.APIResponse "Invalid query parameters"
// @Failure 502 {object} dto.APIResponse "Dashboard API error"
// @Router /campaigns/export [get]
func (h *CampaignHandler) ExportCampaigns(c fiber.Ctx) error {
	q, done, err := h.bindListQuery(c)
	if done {
		return err
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns/export")
	defer cancel()

	filename, data, err := h.flow.ExportCampaigns(ctx, q)
	if err != nil {
		return h.handleError(c, err, nil)
	}

	c.Set("Content-Type", xlsxContentType)
	c.Set("Content-Disposition", "attachment; filename="+filename)
	return c.Send(data)
}

// SendTestEmail sends the campaign preview to one address
// @Summary Send test email
// @Tags Campaigns
// @Accept json
// @Produce json
// @Param request body dto.TestEmailRequest true "Recipient"
// @Success 200 {object} dto.APIResponse "Test email sent"
// @Failure 400 {object} dto.APIResponse "Invalid request body"
// @Failure 422 {object} dto.APIResponse "Invalid email"
// @Router /campaigns/test-email [post]
func (h *CampaignHandler) SendTestEmail(c fiber.Ctx) error {
	var req dto.TestEmailRequest
	if err := c.Bind().JSON(&req); err != nil {
		return h.ErrorResponse(c, fiber.StatusBadRequest, "Invalid request body", "INVALID_REQUEST", err.Error())
	}

	ctx, cancel := h.createRequestContext(c, "/campaigns/test-email")
	defer cancel()

	if err := h.flow.SendTestEmail(ctx, req.Email); err != nil {
		return h.handleError(c, err, nil)
	}
	return h.SuccessResponse(c, fiber.StatusOK, "Test email sent", fiber.Map{"email": req.Email})
}
