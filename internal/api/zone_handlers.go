package api

import (
	"net/http"
	"strconv"

	"github.com/banshee-data/crossing.report/internal/geom"
	"github.com/banshee-data/crossing.report/internal/httputil"
)

type zoneRequest struct {
	Name     string       `json:"name"`
	Boundary geom.Polygon `json:"boundary"`
}

type draftResponse struct {
	Points int `json:"points"`
}

func zoneID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		httputil.BadRequest(w, "invalid zone id")
		return 0, false
	}
	return id, true
}

func (s *Server) handleListZones(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.session.Zones())
}

func (s *Server) handleAddZone(w http.ResponseWriter, r *http.Request) {
	var req zoneRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	z, err := s.session.AddZone(req.Name, req.Boundary)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, z)
}

func (s *Server) handleEditZone(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	var req zoneRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	z, err := s.session.EditZone(id, req.Name, req.Boundary)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, z)
}

func (s *Server) handleRemoveZone(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	if err := s.session.RemoveZone(id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleBeginDraft(w http.ResponseWriter, r *http.Request) {
	s.session.BeginDraft()
	httputil.WriteJSONOK(w, draftResponse{})
}

func (s *Server) handleBeginEdit(w http.ResponseWriter, r *http.Request) {
	id, ok := zoneID(w, r)
	if !ok {
		return
	}
	if err := s.session.BeginEdit(id); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot().Draft)
}

func (s *Server) handleAddDraftPoint(w http.ResponseWriter, r *http.Request) {
	var p geom.Point
	if err := httputil.DecodeJSON(r, &p); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	httputil.WriteJSONOK(w, draftResponse{Points: s.session.AddDraftPoint(p)})
}

func (s *Server) handleUndoDraftPoint(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, draftResponse{Points: s.session.UndoDraftPoint()})
}

func (s *Server) handleClearDraft(w http.ResponseWriter, r *http.Request) {
	s.session.ClearDraft()
	httputil.WriteJSONOK(w, draftResponse{})
}

func (s *Server) handleCancelDraft(w http.ResponseWriter, r *http.Request) {
	s.session.CancelDraft()
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleFinishDraft(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Name string `json:"name"`
	}
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	z, err := s.session.FinishDraft(req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, z)
}
