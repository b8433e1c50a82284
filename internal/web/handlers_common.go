package web

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/canvass/internal/core"
)

// maxJSONBody caps request bodies that are not file uploads.
const maxJSONBody = 64 << 20

// decodeJSON reads a single JSON value from the request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) error {
	body := http.MaxBytesReader(w, r.Body, maxJSONBody)
	dec := json.NewDecoder(body)
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadBody, err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("%w: trailing data after JSON value", errBadBody)
	}
	return nil
}

// entityParam parses the {entity} route segment.
func entityParam(r *http.Request) (core.EntityType, error) {
	return core.ParseEntityType(chi.URLParam(r, "entity"))
}

// int64Param parses a positive integer route segment.
func int64Param(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("%w: %s %q is not a positive integer", errBadBody, name, raw)
	}
	return id, nil
}

// parseIntParam parses an integer query parameter with a default value.
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

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.health != nil {
		if err := s.health.Ping(r.Context()); err != nil {
			s.respondError(w, r, err, http.StatusServiceUnavailable)
			return
		}
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleImportStatus reports the import limiter state. Used for monitoring
// and to check whether the server can take another batch.
func (s *Server) handleImportStatus(w http.ResponseWriter, r *http.Request) {
	l := s.importer.Limiter()
	if l == nil {
		writeJSON(w, http.StatusOK, core.LimiterStatus{})
		return
	}
	writeJSON(w, http.StatusOK, l.Status())
}
