package web

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/export"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// handleExport downloads the filtered catalog as CSV or XLSX. It accepts the
// same filters as /api/medicines but ignores pagination.
func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	format, err := export.ParseFormat(r.URL.Query().Get("format"))
	if err != nil {
		s.respondError(w, r, err, http.StatusBadRequest)
		return
	}

	all := s.service.Medicines()
	q := parseQuery(r)
	q.Page, q.PageSize = 1, len(all)+1
	meds := catalog.Apply(all, q).Items

	// Buffered so a failure can still produce a proper error response.
	var buf bytes.Buffer
	if err := export.Write(&buf, format, meds); err != nil {
		s.respondError(w, r, fmt.Errorf("export catalog: %w", err), http.StatusInternalServerError)
		return
	}

	filename := fmt.Sprintf("medicines_%s.%s", time.Now().Format("20060102_150405"), format)
	w.Header().Set("Content-Type", format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).Warn("export write failed", "error", err)
	}
}
