package businessflow

import (
	"errors"
	"slices"
	"strings"

	"github.com/amirphl/dokany-admin/models"
	"github.com/amirphl/dokany-admin/utils"
	"github.com/go-playground/validator/v10"
)

// TargetType is the audience a campaign is addressed to
type TargetType string

const (
	TargetAll      TargetType = "all"
	TargetTheme    TargetType = "theme"
	TargetLocation TargetType = "location"
)

// Draft field names as the console reports them
const (
	FieldTitle           = "title"
	FieldContent         = "content"
	FieldTargetType      = "targetType"
	FieldTargetThemeIDs  = "targetThemeIds"
	FieldTargetLocations = "targetLocations"
)

const themeEstimateLabel = "Theme-based targeting"

func ParseTargetType(s string) (TargetType, error) {
	switch t := TargetType(strings.ToLower(strings.TrimSpace(s))); t {
	case TargetAll, TargetTheme, TargetLocation:
		return t, nil
	}
	return "", ErrInvalidTargetType
}

// CampaignDraft is the in-progress campaign. Theme ids and location names are sets kept in selection order.
type CampaignDraft struct {
	Title           string     `json:"title"`
	Content         string     `json:"content"`
	TargetType      TargetType `json:"targetType"`
	TargetThemeIDs  []string   `json:"targetThemeIds"`
	TargetLocations []string   `json:"targetLocations"`
}

func NewCampaignDraft() CampaignDraft {
	return CampaignDraft{
		TargetType:      TargetAll,
		TargetThemeIDs:  []string{},
		TargetLocations: []string{},
	}
}

func (d CampaignDraft) Clone() CampaignDraft {
	d.TargetThemeIDs = slices.Clone(d.TargetThemeIDs)
	d.TargetLocations = slices.Clone(d.TargetLocations)
	return d
}

// ToggleTheme adds or removes one theme id; locations are untouched
func (d *CampaignDraft) ToggleTheme(id string) {
	d.TargetThemeIDs = toggle(d.TargetThemeIDs, id)
}

// ToggleLocation adds or removes one location name; themes are untouched
func (d *CampaignDraft) ToggleLocation(name string) {
	d.TargetLocations = toggle(d.TargetLocations, name)
}

// SetTargetType switches the audience. Leaving theme clears the theme ids,
// leaving location clears the locations; entering either starts empty.
func (d *CampaignDraft) SetTargetType(t TargetType) {
	if t != TargetTheme {
		d.TargetThemeIDs = []string{}
	}
	if t != TargetLocation {
		d.TargetLocations = []string{}
	}
	d.TargetType = t
}

func toggle(set []string, v string) []string {
	if i := slices.Index(set, v); i >= 0 {
		return slices.Delete(slices.Clone(set), i, i+1)
	}
	return append(slices.Clone(set), v)
}

var draftValidator = validator.New()

type draftTextRules struct {
	Title   string `validate:"required,min=5,max=100"`
	Content string `validate:"required,min=20,max=2000"`
}

// ValidateDraft checks every rule that must hold before a submission is attempted.
// An empty result means the draft may be submitted.
func ValidateDraft(d CampaignDraft) FieldErrors {
	fields := FieldErrors{}

	rules := draftTextRules{
		Title:   strings.TrimSpace(d.Title),
		Content: strings.TrimSpace(d.Content),
	}
	if err := draftValidator.Struct(&rules); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			for _, fe := range verrs {
				switch fe.Field() {
				case "Title":
					fields[FieldTitle] = draftTextMessage("Campaign title", "Title", fe)
				case "Content":
					fields[FieldContent] = draftTextMessage("Campaign content", "Content", fe)
				}
			}
		}
	}

	switch d.TargetType {
	case TargetAll:
	case TargetTheme:
		if len(d.TargetThemeIDs) == 0 {
			fields[FieldTargetThemeIDs] = "Please select at least one theme"
		} else if len(d.TargetThemeIDs) > utils.MaxSelectedThemes {
			fields[FieldTargetThemeIDs] = "Please select only one theme"
		}
	case TargetLocation:
		if len(d.TargetLocations) == 0 {
			fields[FieldTargetLocations] = "Please select at least one location"
		}
	default:
		fields[FieldTargetType] = "Please choose who should receive this campaign"
	}

	return fields
}

func draftTextMessage(requiredLabel, label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return requiredLabel + " is required"
	case "min":
		return label + " must be at least " + fe.Param() + " characters long"
	case "max":
		return label + " cannot exceed " + fe.Param() + " characters"
	default:
		return label + " is invalid"
	}
}

// BuildPayload shapes a validated draft into the creation payload.
// Exactly one of theme, locations or neither ends up in the result.
func BuildPayload(d CampaignDraft, catalog models.LocationCatalog) (models.CampaignPayload, error) {
	payload := models.CampaignPayload{
		Title:   strings.TrimSpace(d.Title),
		Content: strings.TrimSpace(d.Content),
	}

	switch {
	case d.TargetType == TargetTheme && len(d.TargetThemeIDs) > 0:
		payload.TargetThemeID = utils.ToPtr(d.TargetThemeIDs[0])
	case d.TargetType == TargetLocation && len(d.TargetLocations) > 0:
		payload.TargetLocations = ResolveLocations(d.TargetLocations, catalog)
	}

	if payload.HasTheme() && payload.HasLocations() {
		return models.CampaignPayload{}, ErrConflictingTargeting
	}
	return payload, nil
}

// ResolveLocations maps each name to a single-key filter of its catalog tier.
// Names missing from the catalog are treated as countries.
func ResolveLocations(names []string, catalog models.LocationCatalog) []models.LocationFilter {
	out := make([]models.LocationFilter, 0, len(names))
	for _, name := range names {
		level := models.LocationCountry
		if entry, ok := catalog.Lookup(name); ok && entry.Type.Valid() {
			level = entry.Type
		}
		out = append(out, models.LocationFilter{Level: level, Name: name})
	}
	return out
}

// RecipientEstimate is a preview only; it is never sent upstream
type RecipientEstimate struct {
	Count *int   `json:"count,omitempty"`
	Label string `json:"label"`
}

// EstimateRecipients sums seller counts for the draft's audience
func EstimateRecipients(d CampaignDraft, catalog models.LocationCatalog) RecipientEstimate {
	switch d.TargetType {
	case TargetTheme:
		return RecipientEstimate{Label: themeEstimateLabel}
	case TargetLocation:
		// same first-match lookup as ResolveLocations so the preview counts what gets targeted
		total := 0
		for _, name := range d.TargetLocations {
			if entry, ok := catalog.Lookup(name); ok {
				total += entry.SellerCount
			}
		}
		return RecipientEstimate{Count: &total, Label: "Sellers in selected locations"}
	default:
		total := 0
		for _, e := range catalog.OfType(models.LocationCountry) {
			total += e.SellerCount
		}
		return RecipientEstimate{Count: &total, Label: "All sellers"}
	}
}
