package web

import (
	"net/http"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

const (
	defaultPreviewRows = 5
	maxPreviewRows     = 100
	maxWarnings        = 200
)

// MappingResponse describes how observed headers feed catalog fields.
type MappingResponse struct {
	Entries  []catalog.MappingEntry `json:"entries"`
	Headers  []string               `json:"headers"`
	Unmapped []string               `json:"unmapped"`
}

// RawPreviewResponse is a preview of source rows with coercion warnings.
type RawPreviewResponse struct {
	Headers  []string          `json:"headers"`
	Rows     []catalog.Row     `json:"rows"`
	Warnings []catalog.Warning `json:"warnings"`
	Status   core.Status       `json:"status"`
}

func mappingResponse(m catalog.HeaderMapping) MappingResponse {
	resp := MappingResponse{
		Entries:  m.Entries(),
		Headers:  m.Headers(),
		Unmapped: m.Unmapped(),
	}
	if resp.Headers == nil {
		resp.Headers = []string{}
	}
	if resp.Unmapped == nil {
		resp.Unmapped = []string{}
	}
	return resp
}

// handleMapping returns the field to header table for the current catalog.
func (s *Server) handleMapping(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, mappingResponse(s.service.HeaderMapping()))
}

// handleRawPreview returns the first rows of the source data and warnings.
func (s *Server) handleRawPreview(w http.ResponseWriter, r *http.Request) {
	limit := min(parseIntParam(r, "limit", defaultPreviewRows), maxPreviewRows)

	warnings := s.service.Warnings(maxWarnings)
	if warnings == nil {
		warnings = []catalog.Warning{}
	}
	headers := s.service.HeaderMapping().Headers()
	if headers == nil {
		headers = []string{}
	}

	writeJSON(w, http.StatusOK, RawPreviewResponse{
		Headers:  headers,
		Rows:     s.service.RawPreview(limit),
		Warnings: warnings,
		Status:   s.service.Status(),
	})
}

// handleReload clears the persisted snapshot and fetches the sheet again.
// On failure the response carries the error and the status, which shows
// whether a fallback catalog is being served.
func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	logging.FromContext(r.Context()).Info("manual catalog reload requested", "ip", clientIP(r))

	if err := s.service.Refresh(r.Context()); err != nil {
		code := statusForError(err)
		msg := core.MapError(err)
		st := s.service.Status()

		logging.FromContext(r.Context()).Error("manual reload failed",
			"error", err.Error(),
			"code", msg.Code,
			"status", code,
		)
		writeJSON(w, code, ErrorResponse{
			Error:   msg.Message,
			Message: msg.Message,
			Action:  msg.Action,
			Code:    msg.Code,
			Status:  &st,
		})
		return
	}

	writeJSON(w, http.StatusOK, s.service.Status())
}

// handleInvalidate deletes the persisted snapshot without fetching.
func (s *Server) handleInvalidate(w http.ResponseWriter, r *http.Request) {
	if err := s.service.Invalidate(r.Context()); err != nil {
		s.respondError(w, r, err, http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Status())
}
