package models

import "fmt"

// Placeholder is shown for every field until a lookup succeeds
const Placeholder = "To be shown..."

// Location is the geographic part of a lookup result
type Location struct {
	City      string  `json:"city"`
	Region    string  `json:"region"`
	Country   string  `json:"country"`
	Latitude  float64 `json:"lat"`
	Longitude float64 `json:"lng"`
	Timezone  string  `json:"timezone"` // UTC offset, e.g. "+01:00"
}

// LookupResult is the geolocation/ISP record displayed to the user.
// A new value replaces the previous one wholesale after each successful lookup.
type LookupResult struct {
	IP        string   `json:"ip"`
	Location  Location `json:"location"`
	ISP       string   `json:"isp"`
	Available bool     `json:"available"` // false until a lookup has completed
}

// NewPlaceholderResult returns the record shown before any lookup
func NewPlaceholderResult() LookupResult {
	return LookupResult{
		IP: Placeholder,
		Location: Location{
			City:     Placeholder,
			Region:   Placeholder,
			Country:  Placeholder,
			Timezone: Placeholder,
		},
		ISP: Placeholder,
	}
}

// Display is the four text fields the page renders
type Display struct {
	IP       string `json:"ip"`
	Location string `json:"location"`
	Timezone string `json:"timezone"`
	ISP      string `json:"isp"`
}

// Display projects the result onto its displayed text
func (r LookupResult) Display() Display {
	if !r.Available {
		return Display{
			IP:       Placeholder,
			Location: Placeholder,
			Timezone: Placeholder,
			ISP:      Placeholder,
		}
	}

	return Display{
		IP:       r.IP,
		Location: fmt.Sprintf("%s, %s, %s", r.Location.City, r.Location.Region, r.Location.Country),
		Timezone: "UTC " + r.Location.Timezone,
		ISP:      r.ISP,
	}
}

// ErrorResponse is the standard error response format
type ErrorResponse struct {
	Error string `json:"error"`
}
