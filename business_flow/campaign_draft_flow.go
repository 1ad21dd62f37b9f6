package businessflow

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/amirphl/dokany-admin/app/services"
	"github.com/amirphl/dokany-admin/logx"
	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/repository"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/google/uuid"
)

const (
	submissionFailedMessage = "Failed to create campaign. Please try again."
	draftIdleTTL            = 24 * time.Hour
)

// DraftPhase is where a draft sits in Editing > Validating > Submitting > Succeeded.
// A failed validation or submission returns the draft to Editing with its errors attached.
type DraftPhase string

const (
	PhaseEditing    DraftPhase = "editing"
	PhaseValidating DraftPhase = "validating"
	PhaseSubmitting DraftPhase = "submitting"
	PhaseSucceeded  DraftPhase = "succeeded"
)

// DraftUpdate carries field edits; nil fields are left alone
type DraftUpdate struct {
	Title      *string
	Content    *string
	TargetType *string
}

// DraftView is what the console renders for a draft
type DraftView struct {
	ID              string            `json:"id"`
	Phase           DraftPhase        `json:"phase"`
	Draft           CampaignDraft     `json:"draft"`
	FieldErrors     FieldErrors       `json:"field_errors"`
	SubmitError     string            `json:"submit_error,omitempty"`
	CanSubmit       bool              `json:"can_submit"`
	Estimate        RecipientEstimate `json:"estimate"`
	Catalogs        models.Catalogs   `json:"catalogs"`
	CatalogWarnings []string          `json:"catalog_warnings,omitempty"`
	Campaign        *models.Campaign  `json:"campaign,omitempty"`
	Next            string            `json:"next,omitempty"`
}

// DraftSummary is one row of the open drafts list
type DraftSummary struct {
	ID         string     `json:"id"`
	Phase      DraftPhase `json:"phase"`
	Title      string     `json:"title"`
	TargetType TargetType `json:"target_type"`
	UpdatedAt  time.Time  `json:"updated_at"`
}

// CampaignDraftFlow composes campaigns and submits them once
type CampaignDraftFlow interface {
	CreateDraft(ctx context.Context) (*DraftView, error)
	ListDrafts(ctx context.Context) []DraftSummary
	GetDraft(ctx context.Context, id string) (*DraftView, error)
	UpdateDraft(ctx context.Context, id string, update DraftUpdate) (*DraftView, error)
	ToggleTheme(ctx context.Context, id, themeID string) (*DraftView, error)
	ToggleLocation(ctx context.Context, id, name string) (*DraftView, error)
	Submit(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) (*DraftView, error)
	DiscardDraft(ctx context.Context, id string) error
	Catalogs(ctx context.Context) (models.Catalogs, []string)
	RefreshCatalogs(ctx context.Context) error
}

// catalogInvalidator is implemented by catalog clients that cache
type catalogInvalidator interface {
	Invalidate(ctx context.Context) error
}

type draftSession struct {
	mu          sync.Mutex
	id          string
	draft       CampaignDraft
	phase       DraftPhase
	fieldErrors FieldErrors
	submitError string
	campaign    *models.Campaign
	touchedAt   time.Time
}

// editable reports why the draft cannot be edited right now, if it cannot
func (s *draftSession) editable() error {
	switch s.phase {
	case PhaseValidating, PhaseSubmitting:
		return NewBusinessError("SUBMISSION_IN_FLIGHT", "The campaign is being submitted.", ErrSubmissionInFlight)
	case PhaseSucceeded:
		return NewBusinessError("DRAFT_CLOSED", "This campaign was already created.", ErrDraftClosed)
	}
	return nil
}

type CampaignDraftFlowImpl struct {
	campaigns services.CampaignClient
	catalogs  services.CatalogClient
	audit     auditRecorder

	mu     sync.Mutex
	drafts map[string]*draftSession
	now    func() time.Time
}

func NewCampaignDraftFlow(campaigns services.CampaignClient, catalogs services.CatalogClient, auditRepo repository.AuditLogRepository) *CampaignDraftFlowImpl {
	return &CampaignDraftFlowImpl{
		campaigns: campaigns,
		catalogs:  catalogs,
		audit:     auditRecorder{repo: auditRepo},
		drafts:    make(map[string]*draftSession),
		now:       utils.UTCNow,
	}
}

// WithClock overrides the clock used for idle tracking
func (f *CampaignDraftFlowImpl) WithClock(now func() time.Time) *CampaignDraftFlowImpl {
	f.now = now
	return f
}

func (f *CampaignDraftFlowImpl) CreateDraft(ctx context.Context) (*DraftView, error) {
	ds := &draftSession{
		id:          uuid.NewString(),
		draft:       NewCampaignDraft(),
		phase:       PhaseEditing,
		fieldErrors: FieldErrors{},
		touchedAt:   f.now(),
	}

	f.mu.Lock()
	f.evictIdleLocked()
	f.drafts[ds.id] = ds
	f.mu.Unlock()

	return f.view(ctx, ds), nil
}

// ListDrafts returns the drafts that survived idle eviction, most recently touched first
func (f *CampaignDraftFlowImpl) ListDrafts(_ context.Context) []DraftSummary {
	f.mu.Lock()
	f.evictIdleLocked()
	out := make([]DraftSummary, 0, len(f.drafts))
	for _, ds := range f.drafts {
		ds.mu.Lock()
		out = append(out, DraftSummary{
			ID:         ds.id,
			Phase:      ds.phase,
			Title:      ds.draft.Title,
			TargetType: ds.draft.TargetType,
			UpdatedAt:  ds.touchedAt,
		})
		ds.mu.Unlock()
	}
	f.mu.Unlock()

	slices.SortFunc(out, func(a, b DraftSummary) int {
		if c := b.UpdatedAt.Compare(a.UpdatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})
	return out
}

func (f *CampaignDraftFlowImpl) GetDraft(ctx context.Context, id string) (*DraftView, error) {
	ds, err := f.lookup(id)
	if err != nil {
		return nil, err
	}
	return f.view(ctx, ds), nil
}

func (f *CampaignDraftFlowImpl) UpdateDraft(ctx context.Context, id string, update DraftUpdate) (*DraftView, error) {
	var targetType TargetType
	if update.TargetType != nil {
		t, err := ParseTargetType(*update.TargetType)
		if err != nil {
			return nil, NewBusinessError("INVALID_TARGET_TYPE", "Target type must be one of all, theme, location.", err)
		}
		targetType = t
	}

	return f.edit(ctx, id, func(ds *draftSession) {
		if update.Title != nil {
			ds.draft.Title = *update.Title
			delete(ds.fieldErrors, FieldTitle)
		}
		if update.Content != nil {
			ds.draft.Content = *update.Content
			delete(ds.fieldErrors, FieldContent)
		}
		if update.TargetType != nil {
			ds.draft.SetTargetType(targetType)
			delete(ds.fieldErrors, FieldTargetType)
			delete(ds.fieldErrors, FieldTargetThemeIDs)
			delete(ds.fieldErrors, FieldTargetLocations)
		}
	})
}

func (f *CampaignDraftFlowImpl) ToggleTheme(ctx context.Context, id, themeID string) (*DraftView, error) {
	return f.edit(ctx, id, func(ds *draftSession) {
		ds.draft.ToggleTheme(themeID)
		delete(ds.fieldErrors, FieldTargetThemeIDs)
	})
}

func (f *CampaignDraftFlowImpl) ToggleLocation(ctx context.Context, id, name string) (*DraftView, error) {
	return f.edit(ctx, id, func(ds *draftSession) {
		ds.draft.ToggleLocation(name)
		delete(ds.fieldErrors, FieldTargetLocations)
	})
}

func (f *CampaignDraftFlowImpl) edit(ctx context.Context, id string, apply func(*draftSession)) (*DraftView, error) {
	ds, err := f.lookup(id)
	if err != nil {
		return nil, err
	}

	ds.mu.Lock()
	if err := ds.editable(); err != nil {
		ds.mu.Unlock()
		return nil, err
	}
	apply(ds)
	ds.submitError = ""
	ds.touchedAt = f.now()
	ds.mu.Unlock()

	return f.view(ctx, ds), nil
}

// Submit runs validation, payload shaping and the creation call in that order.
// Only one submission runs per draft; once dispatched the call is not cancelled with the request.
func (f *CampaignDraftFlowImpl) Submit(ctx context.Context, id string, admin *models.AdminIdentity, metadata *ClientMetadata) (*DraftView, error) {
	ds, err := f.lookup(id)
	if err != nil {
		return nil, err
	}

	ds.mu.Lock()
	if err := ds.editable(); err != nil {
		ds.mu.Unlock()
		return nil, err
	}
	ds.phase = PhaseValidating
	ds.submitError = ""
	draft := ds.draft.Clone()

	if fields := ValidateDraft(draft); len(fields) > 0 {
		ds.fieldErrors = fields
		ds.phase = PhaseEditing
		ds.mu.Unlock()
		campaignSubmissionsTotal.WithLabelValues("invalid", string(draft.TargetType)).Inc()
		return f.view(ctx, ds), newValidationError(ErrDraftInvalid, fields)
	}
	ds.fieldErrors = FieldErrors{}
	ds.mu.Unlock()

	var locations models.LocationCatalog
	if draft.TargetType == TargetLocation {
		locations = f.loadLocations(ctx)
	}
	payload, err := BuildPayload(draft, locations)
	if err != nil {
		logx.L().Errorw("refusing to submit campaign payload", "draft_id", id, "error", err)
		f.returnToEditing(ds, submissionFailedMessage)
		campaignSubmissionsTotal.WithLabelValues("rejected", string(draft.TargetType)).Inc()
		return f.view(ctx, ds), NewBusinessError("CONFLICTING_TARGETING", submissionFailedMessage, err)
	}

	ds.mu.Lock()
	ds.phase = PhaseSubmitting
	ds.mu.Unlock()

	created, err := f.campaigns.CreateCampaign(context.WithoutCancel(ctx), payload)
	if err != nil {
		apiErr := services.AsAPIError(err, submissionFailedMessage)
		f.returnToEditing(ds, apiErr.Message)
		campaignSubmissionsTotal.WithLabelValues("failed", string(draft.TargetType)).Inc()
		f.audit.record(ctx, auditEntry{
			action:      models.AuditActionCampaignRejected,
			identity:    admin,
			description: "Campaign rejected: " + payload.Title,
			success:     false,
			errMsg:      err.Error(),
			targetType:  string(draft.TargetType),
			locations:   draft.TargetLocations,
		}, metadata)
		return f.view(ctx, ds), NewBusinessError("CAMPAIGN_SUBMISSION_FAILED", apiErr.Message, fmt.Errorf("%w: %w", ErrSubmissionFailed, err))
	}

	ds.mu.Lock()
	ds.phase = PhaseSucceeded
	ds.campaign = created
	ds.touchedAt = f.now()
	ds.mu.Unlock()

	campaignSubmissionsTotal.WithLabelValues("created", string(draft.TargetType)).Inc()
	f.audit.record(ctx, auditEntry{
		action:      models.AuditActionCampaignSubmitted,
		identity:    admin,
		description: "Campaign created: " + payload.Title,
		success:     true,
		targetType:  string(draft.TargetType),
		locations:   draft.TargetLocations,
		metadata:    map[string]any{"campaign_id": created.ID, "target_theme_id": payload.TargetThemeID},
	}, metadata)

	view := f.view(ctx, ds)
	view.Next = utils.CampaignsPath
	return view, nil
}

func (f *CampaignDraftFlowImpl) DiscardDraft(_ context.Context, id string) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	ds, ok := f.drafts[id]
	if !ok {
		return NewBusinessError("DRAFT_NOT_FOUND", "Campaign draft not found.", ErrDraftNotFound)
	}
	ds.mu.Lock()
	busy := ds.phase == PhaseValidating || ds.phase == PhaseSubmitting
	ds.mu.Unlock()
	if busy {
		return NewBusinessError("SUBMISSION_IN_FLIGHT", "The campaign is being submitted.", ErrSubmissionInFlight)
	}
	delete(f.drafts, id)
	return nil
}

// Catalogs loads themes and locations. A failing catalog comes back empty with a warning.
func (f *CampaignDraftFlowImpl) Catalogs(ctx context.Context) (models.Catalogs, []string) {
	var warnings []string
	out := models.Catalogs{Themes: []models.Theme{}, Locations: models.LocationCatalog{}}

	themes, err := f.catalogs.Themes(ctx)
	if err != nil {
		logx.L().Warnw("theme catalog unavailable", "error", err)
		warnings = append(warnings, "Themes could not be loaded.")
	} else {
		out.Themes = themes
	}

	locations, err := f.catalogs.Locations(ctx)
	if err != nil {
		logx.L().Warnw("location catalog unavailable", "error", err)
		warnings = append(warnings, "Locations could not be loaded.")
	} else {
		out.Locations = locations
	}

	return out, warnings
}

// RefreshCatalogs drops cached catalogs so the next read goes upstream
func (f *CampaignDraftFlowImpl) RefreshCatalogs(ctx context.Context) error {
	inv, ok := f.catalogs.(catalogInvalidator)
	if !ok {
		return nil
	}
	if err := inv.Invalidate(ctx); err != nil {
		return fmt.Errorf("failed to invalidate catalog cache: %w", err)
	}
	return nil
}

func (f *CampaignDraftFlowImpl) loadLocations(ctx context.Context) models.LocationCatalog {
	locations, err := f.catalogs.Locations(ctx)
	if err != nil {
		logx.L().Warnw("location catalog unavailable at submission, unresolved names default to country", "error", err)
		return nil
	}
	return locations
}

func (f *CampaignDraftFlowImpl) returnToEditing(ds *draftSession, message string) {
	ds.mu.Lock()
	ds.phase = PhaseEditing
	ds.submitError = message
	ds.touchedAt = f.now()
	ds.mu.Unlock()
}

func (f *CampaignDraftFlowImpl) lookup(id string) (*draftSession, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ds, ok := f.drafts[strings.TrimSpace(id)]
	if !ok {
		return nil, NewBusinessError("DRAFT_NOT_FOUND", "Campaign draft not found.", ErrDraftNotFound)
	}
	return ds, nil
}

// SweepIdleDrafts evicts abandoned drafts and reports how many are left
func (f *CampaignDraftFlowImpl) SweepIdleDrafts() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.evictIdleLocked()
	return len(f.drafts)
}

// evictIdleLocked drops drafts nobody touched for draftIdleTTL; f.mu must be held
func (f *CampaignDraftFlowImpl) evictIdleLocked() {
	cutoff := f.now().Add(-draftIdleTTL)
	for id, ds := range f.drafts {
		ds.mu.Lock()
		idle := ds.touchedAt.Before(cutoff) && ds.phase != PhaseValidating && ds.phase != PhaseSubmitting
		ds.mu.Unlock()
		if idle {
			delete(f.drafts, id)
		}
	}
}

func (f *CampaignDraftFlowImpl) view(ctx context.Context, ds *draftSession) *DraftView {
	ds.mu.Lock()
	v := &DraftView{
		ID:          ds.id,
		Phase:       ds.phase,
		Draft:       ds.draft.Clone(),
		FieldErrors: maps.Clone(ds.fieldErrors),
		SubmitError: ds.submitError,
		CanSubmit:   ds.phase == PhaseEditing,
		Campaign:    ds.campaign,
	}
	ds.mu.Unlock()

	if v.FieldErrors == nil {
		v.FieldErrors = FieldErrors{}
	}
	v.Catalogs, v.CatalogWarnings = f.Catalogs(ctx)
	v.Estimate = EstimateRecipients(v.Draft, v.Catalogs.Locations)
	return v
}
