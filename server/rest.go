package server

import (
	"errors"
	"fmt"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/umputun/feedpipe/pkg/domain"
	"github.com/umputun/feedpipe/pkg/scheduler"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	sources, err := s.db.GetSources(r.Context(), false)
	if err != nil {
		log.Printf("[ERROR] failed to get sources: %v", err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}

	enabled := 0
	for _, src := range sources {
		if src.Enabled {
			enabled++
		}
	}

	status := map[string]any{
		"status":          "ok",
		"version":         s.version,
		"time":            time.Now().UTC(),
		"sources":         len(sources),
		"sources_enabled": enabled,
	}
	RenderJSON(w, r, http.StatusOK, status)
}

// ingestAllHandler runs all enabled sources and returns their runs
func (s *Server) ingestAllHandler(w http.ResponseWriter, r *http.Request) {
	runs, err := s.scheduler.TriggerAll(r.Context())
	if err != nil {
		log.Printf("[ERROR] failed to trigger ingestion: %v", err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, runs)
}

// ingestSourceHandler runs a single source and returns the run
func (s *Server) ingestSourceHandler(w http.ResponseWriter, r *http.Request) {
	name := r.PathValue("source")

	run, err := s.scheduler.TriggerNow(r.Context(), name)
	switch {
	case errors.Is(err, domain.ErrNotFound):
		RenderError(w, r, fmt.Errorf("source %q not found", name), http.StatusNotFound)
		return
	case errors.Is(err, scheduler.ErrInFlight), errors.Is(err, scheduler.ErrDisabled):
		RenderError(w, r, err, http.StatusConflict)
		return
	case err != nil:
		log.Printf("[ERROR] failed to trigger source %s: %v", name, err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, run)
}

// runsHandler returns recent ingestion runs, optionally for one source
func (s *Server) runsHandler(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	runs, err := s.db.ListRuns(r.Context(), r.URL.Query().Get("source"), limit)
	if err != nil {
		log.Printf("[ERROR] failed to list runs: %v", err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, runs)
}

// breakersHandler returns the state of all known circuit breakers
func (s *Server) breakersHandler(w http.ResponseWriter, r *http.Request) {
	RenderJSON(w, r, http.StatusOK, s.breakers.Snapshot())
}

// searchHandler queries the search index
func (s *Server) searchHandler(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query().Get("q")
	if query == "" {
		RenderError(w, r, errors.New("query parameter q is required"), http.StatusBadRequest)
		return
	}
	limit, err := parseLimit(r)
	if err != nil {
		RenderError(w, r, err, http.StatusBadRequest)
		return
	}

	docs, err := s.db.Search(r.Context(), query, limit)
	if err != nil {
		log.Printf("[ERROR] search %q failed: %v", query, err)
		RenderError(w, r, err, http.StatusInternalServerError)
		return
	}
	RenderJSON(w, r, http.StatusOK, docs)
}

// parseLimit reads the limit query parameter, capped at maxLimit
func parseLimit(r *http.Request) (int, error) {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return defaultLimit, nil
	}
	limit, err := strconv.Atoi(v)
	if err != nil || limit <= 0 {
		return 0, fmt.Errorf("invalid limit %q", v)
	}
	return min(limit, maxLimit), nil
}
