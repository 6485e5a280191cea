package catalog

import (
	"sort"
	"strings"
)

// DefaultPageSize is the number of medicines per catalog page.
const DefaultPageSize = 24

// SortOrder selects how Apply orders results.
type SortOrder string

const (
	SortNameAsc      SortOrder = "name-asc"
	SortNameDesc     SortOrder = "name-desc"
	SortPriceAsc     SortOrder = "price-asc"
	SortPriceDesc    SortOrder = "price-desc"
	SortAvailability SortOrder = "availability"
)

// ParseSortOrder maps a query value to a SortOrder, defaulting to name-asc.
func ParseSortOrder(s string) SortOrder {
	switch o := SortOrder(strings.ToLower(strings.TrimSpace(s))); o {
	case SortNameDesc, SortPriceAsc, SortPriceDesc, SortAvailability:
		return o
	default:
		return SortNameAsc
	}
}

// Query is a catalog browse request. Zero values mean "no filter".
type Query struct {
	Search           string    // Matches name, generic name or brand, case-insensitive
	Category         string    // Exact category, "" or "all" for any
	Manufacturer     string    // Exact manufacturer, "" or "all" for any
	PrescriptionOnly bool      // Only medicines that need a prescription
	Sort             SortOrder // Result order
	Page             int       // 1-based page number
	PageSize         int       // Items per page, DefaultPageSize when <= 0
}

// Page is one page of browse results.
type Page struct {
	Items      []Medicine `json:"items"`
	Total      int        `json:"total"`
	Page       int        `json:"page"`
	PageSize   int        `json:"pageSize"`
	TotalPages int        `json:"totalPages"`
}

// Apply filters, sorts and paginates meds. The input slice is not modified.
// A page past the end is clamped to the last page.
func Apply(meds []Medicine, q Query) Page {
	search := strings.ToLower(strings.TrimSpace(q.Search))

	matched := make([]Medicine, 0, len(meds))
	for _, m := range meds {
		if search != "" &&
			!strings.Contains(strings.ToLower(m.Name), search) &&
			!strings.Contains(strings.ToLower(m.GenericName), search) &&
			!strings.Contains(strings.ToLower(m.Brand), search) {
			continue
		}
		if !matchesFacet(q.Category, m.Category) || !matchesFacet(q.Manufacturer, m.Manufacturer) {
			continue
		}
		if q.PrescriptionOnly && !m.Prescription {
			continue
		}
		matched = append(matched, m)
	}

	sortMedicines(matched, q.Sort)

	size := q.PageSize
	if size <= 0 {
		size = DefaultPageSize
	}
	totalPages := (len(matched) + size - 1) / size
	if totalPages < 1 {
		totalPages = 1
	}
	page := q.Page
	if page < 1 {
		page = 1
	}
	if page > totalPages {
		page = totalPages
	}

	start := (page - 1) * size
	end := start + size
	if end > len(matched) {
		end = len(matched)
	}

	return Page{
		Items:      matched[start:end],
		Total:      len(matched),
		Page:       page,
		PageSize:   size,
		TotalPages: totalPages,
	}
}

func matchesFacet(want, got string) bool {
	return want == "" || strings.EqualFold(want, "all") || want == got
}

func sortMedicines(meds []Medicine, order SortOrder) {
	byName := func(i, j int) bool {
		return strings.ToLower(meds[i].Name) < strings.ToLower(meds[j].Name)
	}

	var less func(i, j int) bool
	switch order {
	case SortNameDesc:
		less = func(i, j int) bool { return byName(j, i) }
	case SortPriceAsc:
		less = func(i, j int) bool { return meds[i].Price < meds[j].Price }
	case SortPriceDesc:
		less = func(i, j int) bool { return meds[i].Price > meds[j].Price }
	case SortAvailability:
		less = func(i, j int) bool { return meds[i].Stock > meds[j].Stock }
	default:
		less = byName
	}
	sort.SliceStable(meds, less)
}

// Facets are the distinct filter values present in the catalog.
type Facets struct {
	Categories    []string `json:"categories"`
	Manufacturers []string `json:"manufacturers"`
}

// BuildFacets collects sorted, de-duplicated categories and manufacturers.
func BuildFacets(meds []Medicine) Facets {
	categories := make(map[string]bool)
	manufacturers := make(map[string]bool)
	for _, m := range meds {
		if c := strings.TrimSpace(m.Category); c != "" {
			categories[c] = true
		}
		if mf := strings.TrimSpace(m.Manufacturer); mf != "" {
			manufacturers[mf] = true
		}
	}
	return Facets{
		Categories:    sortedKeys(categories),
		Manufacturers: sortedKeys(manufacturers),
	}
}

func sortedKeys(set map[string]bool) []string {
	keys := make([]string, 0, len(set))
	for k := range set {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		li, lj := strings.ToLower(keys[i]), strings.ToLower(keys[j])
		if li != lj {
			return li < lj
		}
		return keys[i] < keys[j]
	})
	return keys
}
