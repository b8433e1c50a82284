package web

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/canvass/internal/core"
)

// PendingResponse lists the persons waiting on one leader key.
type PendingResponse struct {
	LeaderKey string                 `json:"leaderKey"`
	Persons   []core.CanvassedPerson `json:"persons"`
}

func (s *Server) handleListPending(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "leaderKey")
	persons, err := s.resolver.ListPending(r.Context(), key)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if persons == nil {
		persons = []core.CanvassedPerson{}
	}
	writeJSON(w, http.StatusOK, PendingResponse{LeaderKey: key, Persons: persons})
}

// ResolveRequest is the body of the resolve-pending call. An empty IDs
// list resolves every person pending on the key.
type ResolveRequest struct {
	LeaderID int64   `json:"leaderId"`
	IDs      []int64 `json:"ids,omitempty"`
}

func (s *Server) handleResolvePending(w http.ResponseWriter, r *http.Request) {
	key := chi.URLParam(r, "leaderKey")

	var req ResolveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.LeaderID < 1 {
		s.fail(w, r, fmt.Errorf("%w: leaderId is required", errBadBody))
		return
	}

	res, err := s.resolver.Resolve(r.Context(), key, req.LeaderID, req.IDs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handlePendingSummary(w http.ResponseWriter, r *http.Request) {
	counts, err := s.resolver.Summary(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if counts == nil {
		counts = []core.PendingCount{}
	}
	writeJSON(w, http.StatusOK, counts)
}

func (s *Server) handleCleanupOrphans(w http.ResponseWriter, r *http.Request) {
	cleared, err := s.resolver.CleanupOrphans(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]int64{"cleared": cleared})
}

// handleRegisterLeader creates or updates one leader from a body keyed by
// field tag, e.g. {"national_id": "...", "first_name": "..."}.
func (s *Server) handleRegisterLeader(w http.ResponseWriter, r *http.Request) {
	var row core.ImportRow
	if err := decodeJSON(w, r, &row); err != nil {
		s.fail(w, r, err)
		return
	}

	mapping := make(core.FieldMapping, len(row))
	for k := range row {
		mapping[k] = core.FieldTag(k)
	}
	in, err := core.ApplyMapping(row, mapping, core.EntityLeader)
	if err != nil {
		s.fail(w, r, err)
		return
	}

	reg, err := s.importer.RegisterLeader(r.Context(), in.(*core.LeaderInput))
	if err != nil {
		s.fail(w, r, err)
		return
	}

	status := http.StatusOK
	if reg.Created {
		status = http.StatusCreated
	}
	writeJSON(w, status, reg)
}

// AssignRequest is the body of a manual assignment.
type AssignRequest struct {
	LeaderID int64 `json:"leaderId"`
}

func (s *Server) handleAssignPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := int64Param(r, "personID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	var req AssignRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.fail(w, r, err)
		return
	}
	if req.LeaderID < 1 {
		s.fail(w, r, fmt.Errorf("%w: leaderId is required", errBadBody))
		return
	}

	if err := s.resolver.Assign(r.Context(), personID, req.LeaderID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUnassignPerson(w http.ResponseWriter, r *http.Request) {
	personID, err := int64Param(r, "personID")
	if err != nil {
		s.fail(w, r, err)
		return
	}

	if err := s.resolver.Unassign(r.Context(), personID); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
