package businessflow

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/amirphl/dokany-admin/app/services"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/go-playground/validator/v10"
	"github.com/xuri/excelize/v2"
)

const (
	defaultCampaignPageSize = 20
	maxCampaignPageSize     = 100
)

var emailValidator = validator.New()

// CampaignStatsView is the stats panel; Degraded marks zeroed stats shown because the upstream failed
type CampaignStatsView struct {
	models.CampaignStats
	Degraded bool `json:"degraded,omitempty"`
}

// CampaignAdminFlow reads campaigns the dashboard API already holds
type CampaignAdminFlow interface {
	ListCampaigns(ctx context.Context, query models.CampaignListQuery) (*models.CampaignPage, error)
	GetCampaign(ctx context.Context, id string) (*models.Campaign, error)
	GetStats(ctx context.Context) *CampaignStatsView
	ExportCampaigns(ctx context.Context, query models.CampaignListQuery) (string, []byte, error)
	SendTestEmail(ctx context.Context, email string) error
}

type CampaignAdminFlowImpl struct {
	campaigns services.CampaignClient
}

func NewCampaignAdminFlow(campaigns services.CampaignClient) CampaignAdminFlow {
	return &CampaignAdminFlowImpl{campaigns: campaigns}
}

func normalizePage(page, limit int) (int, int) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = defaultCampaignPageSize
	}
	if limit > maxCampaignPageSize {
		limit = maxCampaignPageSize
	}
	return page, limit
}

// ListCampaigns returns one page; an empty status lists every campaign
func (f *CampaignAdminFlowImpl) ListCampaigns(ctx context.Context, query models.CampaignListQuery) (*models.CampaignPage, error) {
	query.Page, query.Limit = normalizePage(query.Page, query.Limit)
	query.Status = models.CampaignStatus(strings.ToUpper(strings.TrimSpace(string(query.Status))))
	out, err := f.campaigns.ListCampaigns(ctx, query)
	if err != nil {
		apiErr := services.AsAPIError(err, "Failed to fetch campaigns. Please try again.")
		return nil, NewBusinessError("CAMPAIGN_LIST_FAILED", apiErr.Message, err)
	}
	return out, nil
}

func (f *CampaignAdminFlowImpl) GetCampaign(ctx context.Context, id string) (*models.Campaign, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found.", ErrCampaignNotFound)
	}
	c, err := f.campaigns.GetCampaign(ctx, id)
	if err != nil {
		if services.IsNotFound(err) {
			return nil, NewBusinessError("CAMPAIGN_NOT_FOUND", "Campaign not found.", fmt.Errorf("%w: %w", ErrCampaignNotFound, err))
		}
		apiErr := services.AsAPIError(err, "Failed to fetch campaign details. Please try again.")
		return nil, NewBusinessError("CAMPAIGN_FETCH_FAILED", apiErr.Message, err)
	}
	return c, nil
}

// GetStats never fails; unavailable stats are reported as zeros
func (f *CampaignAdminFlowImpl) GetStats(ctx context.Context) *CampaignStatsView {
	stats, err := f.campaigns.GetCampaignStats(ctx)
	if err != nil {
		logx.L().Warnw("campaign stats unavailable, reporting zeros", "error", err)
		return &CampaignStatsView{Degraded: true}
	}
	return &CampaignStatsView{CampaignStats: *stats}
}

func (f *CampaignAdminFlowImpl) SendTestEmail(ctx context.Context, email string) error {
	email = strings.TrimSpace(email)
	if err := emailValidator.Var(email, "required,email"); err != nil {
		return newValidationError(ErrInvalidEmail, FieldErrors{"email": "Please enter a valid email address."})
	}
	if err := f.campaigns.SendTestEmail(ctx, email); err != nil {
		apiErr := services.AsAPIError(err, "Failed to send test email. Please try again.")
		return NewBusinessError("TEST_EMAIL_FAILED", apiErr.Message, err)
	}
	return nil
}

// ExportCampaigns renders one page of campaigns into an xlsx workbook
func (f *CampaignAdminFlowImpl) ExportCampaigns(ctx context.Context, query models.CampaignListQuery) (string, []byte, error) {
	list, err := f.ListCampaigns(ctx, query)
	if err != nil {
		return "", nil, err
	}

	xl := excelize.NewFile()
	defer func() { _ = xl.Close() }()

	const sheet = "Campaigns"
	if err := xl.SetSheetName("Sheet1", sheet); err != nil {
		return "", nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	header := []any{"ID", "Title", "Type", "Status", "Sender", "Targeting", "Receivers", "Cost", "Created At"}
	if err := setRow(xl, sheet, 1, header); err != nil {
		return "", nil, err
	}

	for i, c := range list.Campaigns {
		sender := string(c.SenderType)
		if c.Sender != nil {
			sender = strings.TrimSpace(c.Sender.FirstName + " " + c.Sender.LastName)
			if sender == "" {
				sender = c.Sender.Email
			}
		}
		createdAt := ""
		if !c.CreatedAt.IsZero() {
			createdAt = c.CreatedAt.UTC().Format(time.RFC3339)
		}
		row := []any{c.ID, c.Title, string(c.Type), string(c.Status), sender, c.TargetingLabel(), c.ReceiverCount, c.CampaignCost, createdAt}
		if err := setRow(xl, sheet, i+2, row); err != nil {
			return "", nil, err
		}
	}

	buf, err := xl.WriteToBuffer()
	if err != nil {
		return "", nil, fmt.Errorf("failed to write workbook: %w", err)
	}

	filename := fmt.Sprintf("campaigns_page_%d_%s.xlsx", list.Pagination.Page, utils.UTCNow().Format("20060102_150405"))
	return filename, buf.Bytes(), nil
}

func setRow(xl *excelize.File, sheet string, row int, values []any) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	if err := xl.SetSheetRow(sheet, cell, &values); err != nil {
		return fmt.Errorf("failed to write row %d: %w", row, err)
	}
	return nil
}
