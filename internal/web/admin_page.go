package web

import (
	"fmt"
	"net/http"

	"github.com/JonMunkholm/catalog/internal/web/templates"
)

// handleAdminPage renders the catalog debug page.
func (s *Server) handleAdminPage(w http.ResponseWriter, r *http.Request) {
	mapping := mappingResponse(s.service.HeaderMapping())
	data := templates.AdminData{
		Status:   s.service.Status(),
		TTL:      s.service.TTL(),
		Mapping:  mapping.Entries,
		Headers:  mapping.Headers,
		Unmapped: mapping.Unmapped,
		Rows:     s.service.RawPreview(defaultPreviewRows),
		Warnings: s.service.Warnings(maxWarnings),
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := templates.AdminPage(data).Render(r.Context(), w); err != nil {
		s.respondError(w, r, fmt.Errorf("render admin page: %w", err), http.StatusInternalServerError)
	}
}
