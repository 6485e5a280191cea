package templates

import (
	"sort"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/core"
)

// AdminData is everything the admin page shows.
type AdminData struct {
	Status   core.Status
	TTL      time.Duration
	Mapping  []catalog.MappingEntry
	Headers  []string // Observed sheet headers, in column order
	Unmapped []string
	Rows     []catalog.Row
	Warnings []catalog.Warning
}

func lastUpdated(st core.Status) string {
	if st.LastUpdated.IsZero() {
		return "never"
	}
	return st.LastUpdated.Format(time.RFC3339)
}

func sourceLabel(st core.Status) string {
	if st.Source == "" {
		return "none"
	}
	return string(st.Source)
}

// previewHeaders falls back to the sorted keys of the first row when no
// header list is known.
func previewHeaders(headers []string, rows []catalog.Row) []string {
	if len(headers) > 0 || len(rows) == 0 {
		return headers
	}
	keys := make([]string, 0, len(rows[0]))
	for k := range rows[0] {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func cellText(row catalog.Row, header string) string {
	return catalog.ToString(row[header])
}
