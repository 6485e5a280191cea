// Package catalog holds the typed medicine catalog and the logic that builds it
// from loosely-typed spreadsheet rows.
//
// The package has no I/O. Everything here is a pure function of its inputs:
//
//   - [Reconcile] maps observed column headers onto the canonical fields.
//   - [Normalize] turns one [Row] into one [Medicine], never failing.
//   - [Inspect] reports what [Normalize] had to paper over, for diagnostics.
//   - [Apply] and [BuildFacets] serve catalog browsing (search, filters, sort, pages).
package catalog

import (
	"net/url"
	"strings"
	"unicode/utf8"
)

// Availability is the stock tier shown to shoppers.
// It is always derived from stock and is never set independently.
type Availability string

const (
	InStock    Availability = "In Stock"
	LowStock   Availability = "Low Stock"
	OutOfStock Availability = "Out of Stock"
)

// LowStockThreshold is the highest stock count still considered low.
const LowStockThreshold = 20

// AvailabilityFor returns the tier for a coerced stock count.
func AvailabilityFor(stock float64) Availability {
	switch {
	case stock > LowStockThreshold:
		return InStock
	case stock > 0:
		return LowStock
	default:
		return OutOfStock
	}
}

// Row is one spreadsheet row keyed by column header.
// Values are whatever the feed carried: strings, json.Number, float64, bool.
type Row map[string]any

// Medicine is the canonical catalog entity.
type Medicine struct {
	ID                string       `json:"id"`
	Name              string       `json:"name"`
	GenericName       string       `json:"genericName"`
	Brand             string       `json:"brand"`
	Category          string       `json:"category"`
	Manufacturer      string       `json:"manufacturer"`
	Description       string       `json:"description"`
	Dosage            string       `json:"dosage"`
	Form              string       `json:"form"`
	Price             float64      `json:"price"`
	Stock             float64      `json:"stock"`
	Availability      Availability `json:"availability"`
	Prescription      bool         `json:"prescription"`
	ImageURL          string       `json:"imageUrl,omitempty"`
	Uses              []string     `json:"uses"`
	SideEffects       []string     `json:"sideEffects"`
	Contraindications []string     `json:"contraindications"`

	// Raw is the row this medicine was built from. Read-only.
	Raw Row `json:"raw,omitempty"`
}

// HasImage reports whether the feed supplied an image reference.
func (m Medicine) HasImage() bool {
	return m.ImageURL != ""
}

// Image returns the image reference, or a placeholder derived from the name.
func (m Medicine) Image() string {
	if m.HasImage() {
		return m.ImageURL
	}
	return PlaceholderImage(m.Name)
}

// PlaceholderImage builds the placeholder image URL for a medicine name.
func PlaceholderImage(name string) string {
	initial := "M"
	if r, _ := utf8.DecodeRuneInString(strings.TrimSpace(name)); r != utf8.RuneError {
		initial = string(r)
	}
	return "https://placehold.co/600x600/0D9488/FFFFFF?text=" + url.QueryEscape(initial)
}
