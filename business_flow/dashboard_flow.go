package businessflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/amirphl/dokany-admin/app/services"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/go-playground/validator/v10"
)

const defaultActivityLimit = 20

// AnalyticsView is the landing page after sign-in
type AnalyticsView struct {
	Summary        *models.DashboardSummary `json:"summary,omitempty"`
	SummaryError   string                   `json:"summary_error,omitempty"`
	Stats          *CampaignStatsView       `json:"campaign_stats"`
	RecentActivity []*models.AuditLog       `json:"recent_activity"`
}

// ActivityFilter narrows the console activity list
type ActivityFilter struct {
	Limit      int
	AdminID    string
	FailedOnly bool
}

// DashboardFlow serves the dashboard screens
type DashboardFlow interface {
	Analytics(ctx context.Context) *AnalyticsView

	ListSellers(ctx context.Context, query string) ([]models.Seller, error)
	GetSeller(ctx context.Context, id string) (*models.Seller, error)
	CreateSeller(ctx context.Context, in models.SellerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Seller, error)
	UpdateSeller(ctx context.Context, id string, in models.SellerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Seller, error)
	DeleteSeller(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) error

	ListManagers(ctx context.Context, query string) ([]models.Manager, error)
	GetManager(ctx context.Context, id string) (*models.Manager, error)
	CreateManager(ctx context.Context, in models.ManagerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error)
	UpdateManager(ctx context.Context, id string, update models.ManagerUpdate, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error)
	DeleteManager(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) error
	Profile(ctx context.Context) (*models.Manager, error)
	UpdateProfile(ctx context.Context, update models.ManagerUpdate, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error)

	ListPayouts(ctx context.Context) ([]models.Payout, error)
	TogglePayout(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Payout, error)

	RecentActivity(ctx context.Context, filter ActivityFilter) ([]*models.AuditLog, error)
	ActivityEntry(ctx context.Context, id uint) (*models.AuditLog, error)
}

type DashboardFlowImpl struct {
	dashboard services.DashboardClient
	campaigns CampaignAdminFlow
	auditRepo repository.AuditLogRepository
	audit     auditRecorder
	validator *validator.Validate
}

func NewDashboardFlow(dashboard services.DashboardClient, campaigns CampaignAdminFlow, auditRepo repository.AuditLogRepository) DashboardFlow {
	return &DashboardFlowImpl{
		dashboard: dashboard,
		campaigns: campaigns,
		auditRepo: auditRepo,
		audit:     auditRecorder{repo: auditRepo},
		validator: validator.New(),
	}
}

// Analytics combines the summary, campaign stats and recent console activity.
// Each part degrades on its own; the view is always returned.
func (f *DashboardFlowImpl) Analytics(ctx context.Context) *AnalyticsView {
	view := &AnalyticsView{
		Stats:          f.campaigns.GetStats(ctx),
		RecentActivity: []*models.AuditLog{},
	}

	summary, err := f.dashboard.Summary(ctx)
	if err != nil {
		view.SummaryError = services.AsAPIError(err, "Failed to fetch dashboard summary").Message
	} else {
		view.Summary = summary
	}

	if activity, err := f.RecentActivity(ctx, ActivityFilter{Limit: defaultActivityLimit}); err != nil {
		logx.L().Warnw("failed to load recent activity", "error", err)
	} else {
		view.RecentActivity = activity
	}
	return view
}

// ListSellers searches when query is set and lists everyone otherwise
func (f *DashboardFlowImpl) ListSellers(ctx context.Context, query string) ([]models.Seller, error) {
	if q := strings.TrimSpace(query); q != "" {
		sellers, err := f.dashboard.SearchSellers(ctx, q)
		if err != nil {
			return nil, resourceError("SELLERS_SEARCH_FAILED", "Search failed", err)
		}
		return sellers, nil
	}

	sellers, err := f.dashboard.Sellers(ctx)
	if err != nil {
		return nil, resourceError("SELLERS_FETCH_FAILED", "Failed to fetch sellers", err)
	}
	return sellers, nil
}

func (f *DashboardFlowImpl) GetSeller(ctx context.Context, id string) (*models.Seller, error) {
	seller, err := f.dashboard.Seller(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, resourceError("SELLER_FETCH_FAILED", "Failed to fetch seller", err)
	}
	return seller, nil
}

func (f *DashboardFlowImpl) CreateSeller(ctx context.Context, in models.SellerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Seller, error) {
	in = normalizeSellerInput(in)
	if fields := f.validateSeller(in, true); len(fields) > 0 {
		return nil, newValidationError(ErrInvalidSeller, fields)
	}

	seller, err := f.dashboard.CreateSeller(ctx, in)
	if err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionSellerCreated,
			identity:    admin,
			description: "Failed to create seller " + in.Email,
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return nil, resourceError("SELLER_CREATE_FAILED", "Failed to create seller", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionSellerCreated,
		identity:    admin,
		description: "Created seller " + in.Email,
		success:     true,
		metadata:    map[string]string{"seller_id": seller.ID},
	}, metadata)
	return seller, nil
}

// UpdateSeller keeps the current password when none is given
func (f *DashboardFlowImpl) UpdateSeller(ctx context.Context, id string, in models.SellerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Seller, error) {
	id = strings.TrimSpace(id)
	in = normalizeSellerInput(in)
	if fields := f.validateSeller(in, false); len(fields) > 0 {
		return nil, newValidationError(ErrInvalidSeller, fields)
	}

	seller, err := f.dashboard.UpdateSeller(ctx, id, in)
	if err != nil {
		return nil, resourceError("SELLER_UPDATE_FAILED", "Failed to update seller", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionSellerUpdated,
		identity:    admin,
		description: "Updated seller " + seller.Email,
		success:     true,
		metadata:    map[string]any{"seller_id": id, "password_changed": in.Password != ""},
	}, metadata)
	return seller, nil
}

func (f *DashboardFlowImpl) DeleteSeller(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) error {
	id = strings.TrimSpace(id)
	if err := f.dashboard.DeleteSeller(ctx, id); err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionSellerDeleted,
			identity:    admin,
			description: "Failed to delete seller " + id,
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return resourceError("SELLER_DELETE_FAILED", "Failed to delete seller", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionSellerDeleted,
		identity:    admin,
		description: "Deleted seller " + id,
		success:     true,
		metadata:    map[string]string{"seller_id": id},
	}, metadata)
	return nil
}

// ListManagers searches when query is set and lists everyone otherwise
func (f *DashboardFlowImpl) ListManagers(ctx context.Context, query string) ([]models.Manager, error) {
	var (
		managers []models.Manager
		err      error
	)
	if q := strings.TrimSpace(query); q != "" {
		managers, err = f.dashboard.SearchManagers(ctx, q)
	} else {
		managers, err = f.dashboard.Managers(ctx)
	}
	if err != nil {
		return nil, resourceError("MANAGERS_FETCH_FAILED", "Failed to fetch admins", err)
	}
	return managers, nil
}

func (f *DashboardFlowImpl) GetManager(ctx context.Context, id string) (*models.Manager, error) {
	m, err := f.dashboard.Manager(ctx, strings.TrimSpace(id))
	if err != nil {
		return nil, resourceError("MANAGER_FETCH_FAILED", "Failed to fetch admin", err)
	}
	return m, nil
}

func (f *DashboardFlowImpl) CreateManager(ctx context.Context, in models.ManagerInput, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error) {
	in.UserName = strings.TrimSpace(in.UserName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = digitsOnly(in.Phone)
	if fields := f.validateManagerInput(in); len(fields) > 0 {
		return nil, newValidationError(ErrInvalidManager, fields)
	}

	m, err := f.dashboard.CreateManager(ctx, in)
	if err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionManagerCreated,
			identity:    admin,
			description: "Failed to create admin " + in.Email,
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return nil, resourceError("MANAGER_CREATE_FAILED", "Failed to create admin", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionManagerCreated,
		identity:    admin,
		description: "Created admin " + m.Email,
		success:     true,
		metadata:    map[string]string{"manager_id": m.ID, "role": in.Role},
	}, metadata)
	return m, nil
}

func (f *DashboardFlowImpl) UpdateManager(ctx context.Context, id string, update models.ManagerUpdate, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error) {
	if fields := f.validateManagerUpdate(update); len(fields) > 0 {
		return nil, newValidationError(ErrInvalidManager, fields)
	}

	m, err := f.dashboard.UpdateManager(ctx, strings.TrimSpace(id), update)
	if err != nil {
		return nil, resourceError("MANAGER_UPDATE_FAILED", "Failed to update admin", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionManagerUpdated,
		identity:    admin,
		description: "Updated admin " + m.Email,
		success:     true,
		metadata:    map[string]string{"manager_id": m.ID},
	}, metadata)
	return m, nil
}

func (f *DashboardFlowImpl) DeleteManager(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) error {
	id = strings.TrimSpace(id)
	if err := f.dashboard.DeleteManager(ctx, id); err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionManagerDeleted,
			identity:    admin,
			description: "Failed to delete admin " + id,
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return resourceError("MANAGER_DELETE_FAILED", "Failed to delete admin", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionManagerDeleted,
		identity:    admin,
		description: "Deleted admin " + id,
		success:     true,
		metadata:    map[string]string{"manager_id": id},
	}, metadata)
	return nil
}

func (f *DashboardFlowImpl) Profile(ctx context.Context) (*models.Manager, error) {
	m, err := f.dashboard.Profile(ctx)
	if err != nil {
		return nil, resourceError("PROFILE_FETCH_FAILED", "Failed to load profile data", err)
	}
	return m, nil
}

// UpdateProfile edits the signed-in admin. The dashboard has no /me write endpoint,
// so the id is looked up first.
func (f *DashboardFlowImpl) UpdateProfile(ctx context.Context, update models.ManagerUpdate, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Manager, error) {
	if fields := f.validateManagerUpdate(update); len(fields) > 0 {
		return nil, newValidationError(ErrInvalidManager, fields)
	}

	me, err := f.Profile(ctx)
	if err != nil {
		return nil, err
	}

	m, err := f.dashboard.UpdateManager(ctx, me.ID, update)
	if err != nil {
		return nil, resourceError("PROFILE_UPDATE_FAILED", "Failed to update profile", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionProfileUpdated,
		identity:    admin,
		description: "Updated own profile",
		success:     true,
		metadata:    map[string]string{"manager_id": me.ID},
	}, metadata)
	return m, nil
}

func (f *DashboardFlowImpl) ListPayouts(ctx context.Context) ([]models.Payout, error) {
	payouts, err := f.dashboard.Payouts(ctx)
	if err != nil {
		return nil, resourceError("PAYOUTS_FETCH_FAILED", "Failed to fetch payouts", err)
	}
	return payouts, nil
}

// TogglePayout flips a payout between Paid and Pending based on its current upstream status
func (f *DashboardFlowImpl) TogglePayout(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) (*models.Payout, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, NewBusinessError("INVALID_PAYOUT", "Payout id is required.", ErrInvalidPayout)
	}

	payouts, err := f.ListPayouts(ctx)
	if err != nil {
		return nil, err
	}

	var current *models.Payout
	for i := range payouts {
		if payouts[i].ID == id {
			current = &payouts[i]
			break
		}
	}
	if current == nil {
		return nil, NewBusinessError("PAYOUT_NOT_FOUND", "Payout not found.", ErrPayoutNotFound)
	}

	next := current.Status.Toggled()
	if err := f.dashboard.SetPayoutStatus(ctx, id, next); err != nil {
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionPayoutToggled,
			identity:    admin,
			description: fmt.Sprintf("Failed to mark payout %s as %s", id, next),
			success:     false,
			errMsg:      err.Error(),
		}, metadata)
		return nil, resourceError("PAYOUT_UPDATE_FAILED", "Failed to update payout. Please try again.", err)
	}

	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionPayoutToggled,
		identity:    admin,
		description: fmt.Sprintf("Marked payout %s as %s", id, next),
		success:     true,
		metadata: map[string]any{
			"payout_id": id,
			"from":      current.Status,
			"to":        next,
			"amount":    current.Amount,
		},
	}, metadata)

	updated := *current
	updated.Status = next
	return &updated, nil
}

// RecentActivity returns the newest audit entries, optionally for one admin or only failures.
// It is empty when auditing is disabled.
func (f *DashboardFlowImpl) RecentActivity(ctx context.Context, filter ActivityFilter) ([]*models.AuditLog, error) {
	if f.auditRepo == nil {
		return []*models.AuditLog{}, nil
	}
	limit := filter.Limit
	if limit <= 0 || limit > maxCampaignPageSize {
		limit = defaultActivityLimit
	}
	adminID := strings.TrimSpace(filter.AdminID)

	var (
		logs []*models.AuditLog
		err  error
	)
	switch {
	case adminID != "" && filter.FailedOnly:
		logs, err = f.auditRepo.ByFilter(ctx, models.AuditLogFilter{AdminID: &adminID, Success: utils.ToPtr(false)}, "", limit, 0)
	case adminID != "":
		logs, err = f.auditRepo.ListByAdmin(ctx, adminID, limit, 0)
	case filter.FailedOnly:
		logs, err = f.auditRepo.ListFailedActions(ctx, limit, 0)
	default:
		logs, err = f.auditRepo.ByFilter(ctx, models.AuditLogFilter{}, "", limit, 0)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list audit log: %w", err)
	}
	if logs == nil {
		logs = []*models.AuditLog{}
	}
	return logs, nil
}

func (f *DashboardFlowImpl) ActivityEntry(ctx context.Context, id uint) (*models.AuditLog, error) {
	if f.auditRepo == nil || id == 0 {
		return nil, NewBusinessError("ACTIVITY_NOT_FOUND", "Activity entry not found.", ErrActivityNotFound)
	}
	entry, err := f.auditRepo.ByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load audit entry: %w", err)
	}
	if entry == nil {
		return nil, NewBusinessError("ACTIVITY_NOT_FOUND", "Activity entry not found.", ErrActivityNotFound)
	}
	return entry, nil
}

type managerUpdateRules struct {
	Email *string `validate:"omitempty,email"`
	Phone *string `validate:"omitempty,min=6,max=20"`
}

func (f *DashboardFlowImpl) validateManagerUpdate(update models.ManagerUpdate) FieldErrors {
	rules := managerUpdateRules{Email: update.Email, Phone: update.Phone}
	if err := f.validator.Struct(&rules); err == nil {
		return nil
	}

	fields := FieldErrors{}
	if update.Email != nil && f.validator.Var(*update.Email, "email") != nil {
		fields["email"] = "Please enter a valid email address."
	}
	if update.Phone != nil && f.validator.Var(*update.Phone, "min=6,max=20") != nil {
		fields["phone"] = "Please enter a valid phone number."
	}
	return fields
}

type sellerRules struct {
	UserName    string `validate:"required,min=3,max=64"`
	FirstName   string `validate:"required,max=64"`
	LastName    string `validate:"required,max=64"`
	Email       string `validate:"required,email"`
	Phone       string `validate:"required,min=6,max=20"`
	City        string `validate:"required"`
	Governorate string `validate:"required"`
	Country     string `validate:"required"`
	Password    string `validate:"omitempty,min=6"`
}

var formFieldMessages = map[string]struct{ key, message string }{
	"UserName":    {"user_name", "Username must be 3 to 64 characters."},
	"FirstName":   {"f_name", "First name is required."},
	"LastName":    {"l_name", "Last name is required."},
	"Email":       {"email", "Please enter a valid email address."},
	"Phone":       {"phone", "Please enter a valid phone number."},
	"City":        {"city", "City is required."},
	"Governorate": {"governorate", "Governorate is required."},
	"Country":     {"country", "Country is required."},
	"Password":    {"password", "Password must be at least 6 characters long."},
}

// validateSeller checks the fields the seller form marks required; the password only on create
func (f *DashboardFlowImpl) validateSeller(in models.SellerInput, creating bool) FieldErrors {
	fields := f.structFieldErrors(sellerRules{
		UserName:    in.UserName,
		FirstName:   in.FirstName,
		LastName:    in.LastName,
		Email:       in.Email,
		Phone:       in.Phone,
		City:        in.City,
		Governorate: in.Governorate,
		Country:     in.Country,
		Password:    in.Password,
	}, formFieldMessages)
	if creating && in.Password == "" {
		fields["password"] = "Password is required."
	}
	return fields
}

type managerInputRules struct {
	UserName  string `validate:"required,min=3,max=64"`
	FirstName string `validate:"required,max=64"`
	LastName  string `validate:"required,max=64"`
	Email     string `validate:"required,email"`
	Phone     string `validate:"required,min=6,max=20"`
	Password  string `validate:"required,min=6"`
}

func (f *DashboardFlowImpl) validateManagerInput(in models.ManagerInput) FieldErrors {
	return f.structFieldErrors(managerInputRules{
		UserName:  in.UserName,
		FirstName: in.FirstName,
		LastName:  in.LastName,
		Email:     in.Email,
		Phone:     in.Phone,
		Password:  in.Password,
	}, formFieldMessages)
}

func (f *DashboardFlowImpl) structFieldErrors(rules any, messages map[string]struct{ key, message string }) FieldErrors {
	fields := FieldErrors{}
	err := f.validator.Struct(rules)
	if err == nil {
		return fields
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		fields["form"] = err.Error()
		return fields
	}
	for _, fe := range verrs {
		if m, ok := messages[fe.Field()]; ok {
			fields[m.key] = m.message
		}
	}
	return fields
}

func normalizeSellerInput(in models.SellerInput) models.SellerInput {
	in.UserName = strings.TrimSpace(in.UserName)
	in.FirstName = strings.TrimSpace(in.FirstName)
	in.LastName = strings.TrimSpace(in.LastName)
	in.Email = strings.TrimSpace(in.Email)
	in.Phone = digitsOnly(in.Phone)
	in.City = strings.TrimSpace(in.City)
	in.Governorate = strings.TrimSpace(in.Governorate)
	in.Country = strings.TrimSpace(in.Country)
	return in
}

// digitsOnly strips spaces, dashes and the leading + the phone inputs allow
func digitsOnly(phone string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, phone)
}

// resourceError keeps the upstream message and status visible to handlers.
// Field errors from a rejected form come back as a *ValidationError.
func resourceError(code, fallback string, err error) error {
	apiErr := services.AsAPIError(err, fallback)
	if len(apiErr.Fields) > 0 {
		return newValidationError(fmt.Errorf("%w: %w", ErrFormRejected, err), FieldErrors(apiErr.Fields))
	}
	return NewBusinessError(code, utils.FirstNonEmpty(apiErr.Message, fallback), err)
}
