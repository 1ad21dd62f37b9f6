package models

import (
	"encoding/json"
	"errors"
	"fmt"
)

// LocationLevel is the tier of a location in the country > governorate > city hierarchy
type LocationLevel string

const (
	LocationCountry     LocationLevel = "country"
	LocationGovernorate LocationLevel = "governorate"
	LocationCity        LocationLevel = "city"
)

func (l LocationLevel) Valid() bool {
	switch l {
	case LocationCountry, LocationGovernorate, LocationCity:
		return true
	}
	return false
}

var ErrInvalidLocationFilter = errors.New("location filter must carry exactly one of country, governorate, city")

// LocationFilter is a single-key targeting entry: {"country": name}, {"governorate": name} or {"city": name}.
type LocationFilter struct {
	Level LocationLevel
	Name  string
}

func (f LocationFilter) MarshalJSON() ([]byte, error) {
	if !f.Level.Valid() || f.Name == "" {
		return nil, ErrInvalidLocationFilter
	}
	return json.Marshal(map[string]string{string(f.Level): f.Name})
}

func (f *LocationFilter) UnmarshalJSON(data []byte) error {
	var raw map[string]*string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var found []LocationFilter
	for _, level := range []LocationLevel{LocationCountry, LocationGovernorate, LocationCity} {
		if v, ok := raw[string(level)]; ok && v != nil && *v != "" {
			found = append(found, LocationFilter{Level: level, Name: *v})
		}
	}
	if len(found) != 1 {
		return fmt.Errorf("%w: got %d keys", ErrInvalidLocationFilter, len(found))
	}
	*f = found[0]
	return nil
}

// Theme is a storefront theme a campaign can target
type Theme struct {
	ID           string `json:"id"`
	Name         string `json:"name"`
	PreviewImage string `json:"preview_image,omitempty"`
	PreviewURL   string `json:"preview_url,omitempty"`
}

// LocationEntry is one row of the location catalog
type LocationEntry struct {
	Name        string        `json:"name"`
	Type        LocationLevel `json:"type"`
	SellerCount int           `json:"seller_count"`
}

// LocationCatalog is the flattened catalog, countries first, then governorates, then cities
type LocationCatalog []LocationEntry

// NewLocationCatalog tags each tier and flattens it in hierarchy order
func NewLocationCatalog(countries, governorates, cities []LocationEntry) LocationCatalog {
	out := make(LocationCatalog, 0, len(countries)+len(governorates)+len(cities))
	for _, tier := range []struct {
		level   LocationLevel
		entries []LocationEntry
	}{
		{LocationCountry, countries},
		{LocationGovernorate, governorates},
		{LocationCity, cities},
	} {
		for _, e := range tier.entries {
			e.Type = tier.level
			out = append(out, e)
		}
	}
	return out
}

// Lookup returns the first entry with the given name in hierarchy order
func (c LocationCatalog) Lookup(name string) (LocationEntry, bool) {
	for _, e := range c {
		if e.Name == name {
			return e, true
		}
	}
	return LocationEntry{}, false
}

// OfType returns the entries of a single tier
func (c LocationCatalog) OfType(level LocationLevel) []LocationEntry {
	var out []LocationEntry
	for _, e := range c {
		if e.Type == level {
			out = append(out, e)
		}
	}
	return out
}

// Catalogs groups the read-only data the audience resolver works against
type Catalogs struct {
	Themes    []Theme         `json:"themes"`
	Locations LocationCatalog `json:"locations"`
}
