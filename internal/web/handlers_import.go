package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/JonMunkholm/canvass/internal/core"
	"github.com/JonMunkholm/canvass/internal/logging"
)

// handlePreview parses an uploaded file and returns its headers, rows and
// diagnostics. Nothing is written.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	maxSize := s.cfg.Import.MaxFileSize
	r.Body = http.MaxBytesReader(w, r.Body, maxSize)

	if err := r.ParseMultipartForm(min(maxSize, 32<<20)); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.fail(w, r, fmt.Errorf("%w: limit is %d bytes", errFileTooLarge, maxSize))
			return
		}
		s.fail(w, r, fmt.Errorf("%w: %v", errNoFile, err))
		return
	}
	defer r.MultipartForm.RemoveAll()

	file, header, err := r.FormFile("file")
	if err != nil {
		s.fail(w, r, errNoFile)
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, r, fmt.Errorf("read upload: %w", err), http.StatusInternalServerError)
		return
	}

	mediaType := r.FormValue("mediaType")
	if mediaType == "" {
		mediaType = header.Header.Get("Content-Type")
	}

	preview, err := core.Ingest(data, mediaType, header.Filename)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	preview.Resample(s.cfg.Import.SampleRows)

	logging.FromContext(r.Context()).Info("file previewed",
		"file", header.Filename,
		"format", preview.Format,
		"rows", preview.TotalRows,
		"warnings", len(preview.Warnings),
	)
	writeJSON(w, http.StatusOK, preview)
}

// SuggestRequest is the body of the suggest-mapping call.
type SuggestRequest struct {
	Headers    []string        `json:"headers"`
	EntityType core.EntityType `json:"entityType"`
}

// SuggestResponse pairs the proposed mapping with every field the operator
// may map to.
type SuggestResponse struct {
	Suggestions     core.FieldMapping `json:"suggestions"`
	AvailableFields []core.FieldSpec  `json:"availableFields"`
}

func (s *Server) handleSuggestMapping(w http.ResponseWriter, r *http.Request) {
	entity, err := entityParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req SuggestRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := checkEntity(entity, req.EntityType); err != nil {
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, SuggestResponse{
		Suggestions:     core.SuggestMapping(req.Headers, entity),
		AvailableFields: core.AvailableFields(entity),
	})
}

func (s *Server) handleAvailableFields(w http.ResponseWriter, r *http.Request) {
	entity, err := entityParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, core.AvailableFields(entity))
}

// ImportRequest is the body of the execute-import call.
type ImportRequest struct {
	EntityType    core.EntityType   `json:"entityType"`
	FieldMappings core.FieldMapping `json:"fieldMappings"`
	PreviewData   []core.ImportRow  `json:"previewData"`
	FileName      string            `json:"fileName,omitempty"`
}

// handleImport runs one batch. Row problems come back inside the result
// with 200; only request-level and infrastructure failures are errors.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	entity, err := entityParam(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req ImportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if err := checkEntity(entity, req.EntityType); err != nil {
		s.fail(w, r, err)
		return
	}

	result, err := s.importer.Import(r.Context(), core.ImportRequest{
		Entity:   entity,
		Mapping:  req.FieldMappings,
		Rows:     req.PreviewData,
		FileName: req.FileName,
	})
	if err != nil {
		if errors.Is(err, core.ErrTooManyImports) {
			w.Header().Set("Retry-After", "30")
		}
		s.fail(w, r, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleRecentBatches(w http.ResponseWriter, r *http.Request) {
	batches, err := s.importer.RecentBatches(r.Context(), parseIntParam(r, "limit", 20))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, batches)
}

// checkEntity rejects a body whose entityType is missing or names another
// entity than the route.
func checkEntity(route, body core.EntityType) error {
	parsed, err := core.ParseEntityType(string(body))
	if err != nil || parsed != route {
		return fmt.Errorf("%w: route is %s, body says %q", core.ErrEntityMismatch, route, body)
	}
	return nil
}
