package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocationFilterJSON(t *testing.T) {
	t.Run("MarshalSingleKey", func(t *testing.T) {
		data, err := json.Marshal([]LocationFilter{
			{Level: LocationCountry, Name: "Egypt"},
			{Level: LocationCity, Name: "Nasr City"},
		})
		require.NoError(t, err)
		assert.JSONEq(t, `[{"country":"Egypt"},{"city":"Nasr City"}]`, string(data))
	})

	t.Run("MarshalRejectsIncomplete", func(t *testing.T) {
		_, err := json.Marshal(LocationFilter{Level: "district", Name: "X"})
		assert.ErrorIs(t, err, ErrInvalidLocationFilter)

		_, err = json.Marshal(LocationFilter{Level: LocationCity})
		assert.ErrorIs(t, err, ErrInvalidLocationFilter)
	})

	t.Run("Unmarshal", func(t *testing.T) {
		var f LocationFilter
		require.NoError(t, json.Unmarshal([]byte(`{"governorate":"Cairo","city":null}`), &f))
		assert.Equal(t, LocationFilter{Level: LocationGovernorate, Name: "Cairo"}, f)
	})

	for name, raw := range map[string]string{
		"TwoKeys":    `{"country":"Egypt","city":"Cairo"}`,
		"NoKnownKey": `{"district":"Maadi"}`,
		"EmptyName":  `{"city":""}`,
		"Empty":      `{}`,
	} {
		t.Run("UnmarshalRejects"+name, func(t *testing.T) {
			var f LocationFilter
			assert.ErrorIs(t, json.Unmarshal([]byte(raw), &f), ErrInvalidLocationFilter)
		})
	}
}

func TestLocationCatalog(t *testing.T) {
	catalog := NewLocationCatalog(
		[]LocationEntry{{Name: "Egypt", SellerCount: 120}},
		[]LocationEntry{{Name: "Cairo", SellerCount: 60}, {Name: "Giza", SellerCount: 25}},
		[]LocationEntry{{Name: "Cairo", SellerCount: 40, Type: LocationCountry}},
	)

	require.Len(t, catalog, 4)
	assert.Equal(t, LocationCountry, catalog[0].Type)
	assert.Equal(t, LocationCity, catalog[3].Type, "tier overrides any incoming type")

	entry, ok := catalog.Lookup("Cairo")
	require.True(t, ok)
	assert.Equal(t, LocationGovernorate, entry.Type, "first match in hierarchy order wins")
	assert.Equal(t, 60, entry.SellerCount)

	_, ok = catalog.Lookup("Atlantis")
	assert.False(t, ok)

	assert.Len(t, catalog.OfType(LocationGovernorate), 2)
	assert.Empty(t, catalog.OfType("district"))

	assert.True(t, LocationCity.Valid())
	assert.False(t, LocationLevel("").Valid())
}
