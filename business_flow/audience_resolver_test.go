package businessflow_test

import (
	"strings"
	"testing"

	businessflow "github.com/amirphl/dokany-admin/business_flow"
	"github.com/amirphl/dokany-admin/models"
	testingutil "github.com/amirphl/dokany-admin/testing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validDraft() businessflow.CampaignDraft {
	d := businessflow.NewCampaignDraft()
	d.Title = "Summer launch"
	d.Content = "Our summer collection is live for every seller."
	return d
}

func TestValidateDraft(t *testing.T) {
	t.Run("TitleBoundaries", func(t *testing.T) {
		cases := []struct {
			length  int
			message string
		}{
			{4, "Title must be at least 5 characters long"},
			{5, ""},
			{100, ""},
			{101, "Title cannot exceed 100 characters"},
		}
		for _, tc := range cases {
			d := validDraft()
			d.Title = strings.Repeat("a", tc.length)
			fields := businessflow.ValidateDraft(d)
			assert.Equal(t, tc.message, fields[businessflow.FieldTitle], "title length %d", tc.length)
		}
	})

	t.Run("ContentBoundaries", func(t *testing.T) {
		cases := []struct {
			length  int
			message string
		}{
			{19, "Content must be at least 20 characters long"},
			{20, ""},
			{2000, ""},
			{2001, "Content cannot exceed 2000 characters"},
		}
		for _, tc := range cases {
			d := validDraft()
			d.Content = strings.Repeat("b", tc.length)
			fields := businessflow.ValidateDraft(d)
			assert.Equal(t, tc.message, fields[businessflow.FieldContent], "content length %d", tc.length)
		}
	})

	t.Run("BlankFieldsAreRequired", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.Title = "    "
		fields := businessflow.ValidateDraft(d)
		assert.Equal(t, "Campaign title is required", fields[businessflow.FieldTitle])
		assert.Equal(t, "Campaign content is required", fields[businessflow.FieldContent])
	})

	t.Run("TitleIsTrimmedBeforeCounting", func(t *testing.T) {
		d := validDraft()
		d.Title = "  abcd  "
		assert.Contains(t, businessflow.ValidateDraft(d), businessflow.FieldTitle)
	})

	t.Run("ThemeTargetNeedsExactlyOneTheme", func(t *testing.T) {
		d := validDraft()
		d.SetTargetType(businessflow.TargetTheme)
		assert.Equal(t, "Please select at least one theme", businessflow.ValidateDraft(d)[businessflow.FieldTargetThemeIDs])

		d.ToggleTheme("t1")
		assert.Empty(t, businessflow.ValidateDraft(d))

		d.ToggleTheme("t2")
		assert.Equal(t, "Please select only one theme", businessflow.ValidateDraft(d)[businessflow.FieldTargetThemeIDs])
	})

	t.Run("LocationTargetNeedsALocation", func(t *testing.T) {
		d := validDraft()
		d.SetTargetType(businessflow.TargetLocation)
		assert.Equal(t, "Please select at least one location", businessflow.ValidateDraft(d)[businessflow.FieldTargetLocations])

		d.ToggleLocation("Cairo")
		assert.Empty(t, businessflow.ValidateDraft(d))
	})

	t.Run("UnknownTargetType", func(t *testing.T) {
		d := validDraft()
		d.TargetType = "everyone"
		assert.Contains(t, businessflow.ValidateDraft(d), businessflow.FieldTargetType)
	})
}

func TestDraftSelections(t *testing.T) {
	t.Run("ToggleRoundTrip", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.ToggleTheme("t1")
		d.ToggleTheme("t2")
		assert.Equal(t, []string{"t1", "t2"}, d.TargetThemeIDs)

		d.ToggleTheme("t1")
		assert.Equal(t, []string{"t2"}, d.TargetThemeIDs)

		d.ToggleLocation("Cairo")
		d.ToggleLocation("Cairo")
		assert.Empty(t, d.TargetLocations)
		assert.Equal(t, []string{"t2"}, d.TargetThemeIDs)
	})

	t.Run("SetTargetTypeClearsTheOtherSelection", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.SetTargetType(businessflow.TargetTheme)
		d.ToggleTheme("t1")

		d.SetTargetType(businessflow.TargetLocation)
		assert.Empty(t, d.TargetThemeIDs)
		d.ToggleLocation("Giza")

		d.SetTargetType(businessflow.TargetAll)
		assert.Empty(t, d.TargetThemeIDs)
		assert.Empty(t, d.TargetLocations)
		assert.Equal(t, businessflow.TargetAll, d.TargetType)
	})

	t.Run("CloneIsIndependent", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.ToggleLocation("Egypt")
		c := d.Clone()
		c.ToggleLocation("Giza")
		assert.Equal(t, []string{"Egypt"}, d.TargetLocations)
	})

	t.Run("ParseTargetType", func(t *testing.T) {
		tt, err := businessflow.ParseTargetType(" Theme ")
		require.NoError(t, err)
		assert.Equal(t, businessflow.TargetTheme, tt)

		_, err = businessflow.ParseTargetType("segment")
		assert.True(t, businessflow.IsInvalidTargetType(err))
	})
}

func TestResolveLocations(t *testing.T) {
	catalog := testingutil.SampleLocationCatalog()

	filters := businessflow.ResolveLocations([]string{"Egypt", "Cairo", "Nasr City", "Atlantis"}, catalog)
	require.Len(t, filters, 4)

	assert.Equal(t, models.LocationFilter{Level: models.LocationCountry, Name: "Egypt"}, filters[0])
	// Cairo is both a governorate and a city; the higher tier wins
	assert.Equal(t, models.LocationFilter{Level: models.LocationGovernorate, Name: "Cairo"}, filters[1])
	assert.Equal(t, models.LocationFilter{Level: models.LocationCity, Name: "Nasr City"}, filters[2])
	assert.Equal(t, models.LocationFilter{Level: models.LocationCountry, Name: "Atlantis"}, filters[3])

	t.Run("EmptyCatalogDefaultsToCountry", func(t *testing.T) {
		filters := businessflow.ResolveLocations([]string{"Giza"}, nil)
		assert.Equal(t, models.LocationCountry, filters[0].Level)
	})
}

func TestBuildPayload(t *testing.T) {
	catalog := testingutil.SampleLocationCatalog()

	t.Run("AllSellers", func(t *testing.T) {
		p, err := businessflow.BuildPayload(validDraft(), catalog)
		require.NoError(t, err)
		assert.False(t, p.HasTheme())
		assert.False(t, p.HasLocations())
		assert.Equal(t, "Summer launch", p.Title)
	})

	t.Run("ThemeSendsSingleID", func(t *testing.T) {
		d := validDraft()
		d.SetTargetType(businessflow.TargetTheme)
		d.ToggleTheme("t3")

		p, err := businessflow.BuildPayload(d, catalog)
		require.NoError(t, err)
		require.NotNil(t, p.TargetThemeID)
		assert.Equal(t, "t3", *p.TargetThemeID)
		assert.False(t, p.HasLocations())
	})

	t.Run("ThemeAndLocationsAreMutuallyExclusive", func(t *testing.T) {
		d := validDraft()
		d.TargetType = businessflow.TargetTheme
		d.TargetThemeIDs = []string{"t1"}
		d.TargetLocations = []string{"Cairo"}

		p, err := businessflow.BuildPayload(d, catalog)
		require.NoError(t, err)
		assert.True(t, p.HasTheme())
		assert.False(t, p.HasLocations())
	})

	t.Run("LocationsAreResolved", func(t *testing.T) {
		d := validDraft()
		d.SetTargetType(businessflow.TargetLocation)
		d.ToggleLocation("Giza")
		d.ToggleLocation("Saudi Arabia")

		p, err := businessflow.BuildPayload(d, catalog)
		require.NoError(t, err)
		assert.Nil(t, p.TargetThemeID)
		assert.Equal(t, []models.LocationFilter{
			{Level: models.LocationGovernorate, Name: "Giza"},
			{Level: models.LocationCountry, Name: "Saudi Arabia"},
		}, p.TargetLocations)
	})

	t.Run("TextIsTrimmed", func(t *testing.T) {
		d := validDraft()
		d.Title = "  Summer launch  "
		p, err := businessflow.BuildPayload(d, catalog)
		require.NoError(t, err)
		assert.Equal(t, "Summer launch", p.Title)
	})
}

func TestEstimateRecipients(t *testing.T) {
	catalog := testingutil.SampleLocationCatalog()

	t.Run("AllSumsCountries", func(t *testing.T) {
		est := businessflow.EstimateRecipients(businessflow.NewCampaignDraft(), catalog)
		require.NotNil(t, est.Count)
		assert.Equal(t, 200, *est.Count)
	})

	t.Run("LocationCountsOnlyTheResolvedTier", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.SetTargetType(businessflow.TargetLocation)
		d.ToggleLocation("Cairo")

		est := businessflow.EstimateRecipients(d, catalog)
		require.NotNil(t, est.Count)
		assert.Equal(t, 60, *est.Count, "governorate only; the city of the same name is not added")
	})

	t.Run("LocationMatchesPayloadTargets", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.SetTargetType(businessflow.TargetLocation)
		d.ToggleLocation("Cairo")
		d.ToggleLocation("Nasr City")
		d.ToggleLocation("Atlantis")

		payload, err := businessflow.BuildPayload(d, catalog)
		require.NoError(t, err)

		want := 0
		for _, f := range payload.TargetLocations {
			if entry, ok := catalog.Lookup(f.Name); ok {
				assert.Equal(t, entry.Type, f.Level)
				want += entry.SellerCount
			}
		}

		est := businessflow.EstimateRecipients(d, catalog)
		require.NotNil(t, est.Count)
		assert.Equal(t, 75, want)
		assert.Equal(t, want, *est.Count)
	})

	t.Run("ThemeHasNoCount", func(t *testing.T) {
		d := businessflow.NewCampaignDraft()
		d.SetTargetType(businessflow.TargetTheme)
		d.ToggleTheme("t1")

		est := businessflow.EstimateRecipients(d, catalog)
		assert.Nil(t, est.Count)
		assert.Equal(t, "Theme-based targeting", est.Label)
	})
}
