package domain

import (
	"context"
	"strings"
)

// Feature is a single candidate returned by a geocoding provider.
type Feature struct {
	Coordinate  Coordinate
	ResultType  string   // e.g. "building", "house_number", "street", "suburb"
	Importance  *float64 // provider rank in [0,1], nil when not reported
	Street      string
	HouseNumber string
	Suburb      string
	District    string
	Formatted   string
	Name        string
}

// SearchQuery describes one forward-geocoding request.
type SearchQuery struct {
	Text        string
	CountryCode string
	Proximity   *Coordinate
	BBox        *BoundingBox
	Limit       int
	Language    string
}

// Provider looks up address candidates. Implementations talk to a remote
// geocoding API; results are returned in provider order.
type Provider interface {
	Search(ctx context.Context, q SearchQuery) ([]Feature, error)
}

// Suggestion is an autocomplete entry shown to the operator.
type Suggestion struct {
	DisplayText      string     `json:"displayText"`
	FormattedAddress string     `json:"formattedAddress"`
	Coordinate       Coordinate `json:"coordenadas"`
	ResultType       string     `json:"resultType"`
	Street           string     `json:"street,omitempty"`
	HouseNumber      string     `json:"housenumber,omitempty"`
	Suburb           string     `json:"suburb,omitempty"`
}

// NewSuggestion builds the autocomplete entry for a candidate.
func NewSuggestion(f Feature) Suggestion {
	return Suggestion{
		DisplayText:      DisplayText(f),
		FormattedAddress: f.Formatted,
		Coordinate:       f.Coordinate,
		ResultType:       f.ResultType,
		Street:           f.Street,
		HouseNumber:      f.HouseNumber,
		Suburb:           f.Suburb,
	}
}

// DisplayText renders "street housenumber" when both exist, otherwise the
// street, the formatted address or the name, whichever is present first.
// The suburb (or district, without a suburb) is appended after a comma.
func DisplayText(f Feature) string {
	var text string
	switch {
	case f.Street != "" && f.HouseNumber != "":
		text = f.Street + " " + f.HouseNumber
	case f.Street != "":
		text = f.Street
	case f.Formatted != "":
		text = f.Formatted
	default:
		text = f.Name
	}

	area := f.Suburb
	if area == "" {
		area = f.District
	}
	if area == "" {
		return text
	}
	if text == "" {
		return area
	}
	return strings.Join([]string{text, area}, ", ")
}
