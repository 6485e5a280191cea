package web

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/catalog/internal/catalog"
	"github.com/JonMunkholm/catalog/internal/core"
	"github.com/JonMunkholm/catalog/internal/logging"
)

// maxPageSize caps per_page.
const maxPageSize = 100

// parseIntParam parses a positive integer query parameter with a default value.
func parseIntParam(r *http.Request, name string, defaultVal int) int {
	val := r.URL.Query().Get(name)
	if val == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return defaultVal
	}
	return i
}

// parseBoolParam treats 1, true and yes as set.
func parseBoolParam(r *http.Request, name string) bool {
	switch strings.ToLower(strings.TrimSpace(r.URL.Query().Get(name))) {
	case "1", "true", "yes", "y":
		return true
	}
	return false
}

// parseQuery builds a catalog query from the request's query string.
func parseQuery(r *http.Request) catalog.Query {
	q := r.URL.Query()
	return catalog.Query{
		Search:           strings.TrimSpace(q.Get("q")),
		Category:         strings.TrimSpace(q.Get("category")),
		Manufacturer:     strings.TrimSpace(q.Get("manufacturer")),
		PrescriptionOnly: parseBoolParam(r, "rx"),
		Sort:             catalog.ParseSortOrder(q.Get("sort")),
		Page:             parseIntParam(r, "page", 1),
		PageSize:         min(parseIntParam(r, "per_page", catalog.DefaultPageSize), maxPageSize),
	}
}

// MedicinesResponse is one page of the catalog plus the cache status.
type MedicinesResponse struct {
	catalog.Page
	Status core.Status `json:"status"`
}

// handleHealth reports liveness and the catalog state.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	st := s.service.Status()
	writeJSON(w, http.StatusOK, map[string]any{
		"status":   "ok",
		"state":    st.State,
		"count":    st.Count,
		"loading":  st.Loading,
		"hasError": st.Error != "",
	})
}

// handleListMedicines returns a filtered, sorted page of medicines.
func (s *Server) handleListMedicines(w http.ResponseWriter, r *http.Request) {
	page := catalog.Apply(s.service.Medicines(), parseQuery(r))
	writeJSON(w, http.StatusOK, MedicinesResponse{Page: page, Status: s.service.Status()})
}

// handleGetMedicine returns one medicine with its display image resolved.
func (s *Server) handleGetMedicine(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	med, ok := s.service.Medicine(id)
	if !ok {
		s.respondError(w, r, fmt.Errorf("%w: %q", errNotFound, id), http.StatusNotFound)
		return
	}
	med.ImageURL = med.Image()
	writeJSON(w, http.StatusOK, med)
}

// handleFacets returns the category and manufacturer filter options.
func (s *Server) handleFacets(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, catalog.BuildFacets(s.service.Medicines()))
}

// handleStatus returns the cache status.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.service.Status())
}

// handleStatusStream streams status changes via Server-Sent Events until the
// client disconnects.
func (s *Server) handleStatusStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		s.respondError(w, r, fmt.Errorf("streaming not supported"), http.StatusInternalServerError)
		return
	}

	log := logging.FromContext(r.Context())

	// The stream outlives the server's write timeout.
	if err := http.NewResponseController(w).SetWriteDeadline(time.Time{}); err != nil && !errors.Is(err, http.ErrNotSupported) {
		log.Warn("clear write deadline", "error", err)
	}

	updates, unsubscribe := s.service.Subscribe()
	defer unsubscribe()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	for {
		select {
		case <-r.Context().Done():
			return
		case st, ok := <-updates:
			if !ok {
				return
			}
			data, err := json.Marshal(st)
			if err != nil {
				log.Warn("encode status event", "error", err)
				continue
			}
			if _, err := fmt.Fprintf(w, "event: status\ndata: %s\n\n", data); err != nil {
				return
			}
			flusher.Flush()
		}
	}
}
