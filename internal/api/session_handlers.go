package api

import (
	"errors"
	"image/png"
	"net/http"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/httputil"
	"github.com/banshee-data/crossing.report/internal/security"
	"github.com/banshee-data/crossing.report/internal/session"
)

type loadRequest struct {
	Path string `json:"path"`
}

type toggleRequest struct {
	Enabled bool `json:"enabled"`
}

type commitRequest struct {
	Name string `json:"name"`
}

type commitResponse struct {
	ID        int64 `json:"id,omitempty"`
	Cancelled bool  `json:"cancelled,omitempty"`
}

// stopResponse carries the commit request a Stop or Reset produced, if any.
type stopResponse struct {
	Status  session.Status          `json:"status"`
	Pending *session.CommitRequest `json:"pending,omitempty"`
}

func (s *Server) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) handleFrame(w http.ResponseWriter, r *http.Request) {
	img, ok := s.session.Frame()
	if !ok {
		httputil.NotFound(w, "no frame to show")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	if err := png.Encode(w, img); err != nil {
		log.Warn().Err(err).Msg("encoding frame")
	}
}

func (s *Server) handleLoad(w http.ResponseWriter, r *http.Request) {
	var req loadRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if req.Path == "" {
		httputil.BadRequest(w, "path is required")
		return
	}
	if len(s.mediaDirs) > 0 {
		if err := security.ValidatePathWithinAllowedDirs(req.Path, s.mediaDirs); err != nil {
			httputil.WriteJSONError(w, http.StatusForbidden, err.Error())
			return
		}
	}

	err := s.session.Load(r.Context(), req.Path)
	switch {
	case err == nil:
		httputil.WriteJSONOK(w, s.session.Snapshot())
	case errors.Is(err, session.ErrSessionActive), errors.Is(err, session.ErrCommitPending):
		writeError(w, err)
	default:
		// Anything else is an unreadable or missing video.
		httputil.BadRequest(w, err.Error())
	}
}

func (s *Server) handlePlay(w http.ResponseWriter, r *http.Request) {
	if err := s.session.Play(); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) handlePause(w http.ResponseWriter, r *http.Request) {
	s.session.Pause()
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) handleStop(w http.ResponseWriter, r *http.Request) {
	req, err := s.session.Stop()
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stopResponse{Status: s.session.Status(), Pending: req})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	req, err := s.session.Reset()
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, stopResponse{Status: s.session.Status(), Pending: req})
}

func (s *Server) handleRecording(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.session.SetRecording(req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) handleDetection(w http.ResponseWriter, r *http.Request) {
	var req toggleRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.session.SetDetection(req.Enabled); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, s.session.Snapshot())
}

func (s *Server) handlePendingCommit(w http.ResponseWriter, r *http.Request) {
	req := s.session.PendingCommit()
	if req == nil {
		httputil.NotFound(w, session.ErrNoPendingCommit.Error())
		return
	}
	httputil.WriteJSONOK(w, req)
}

func (s *Server) handleFinalizeCommit(w http.ResponseWriter, r *http.Request) {
	var req commitRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	id, err := s.session.FinalizeCommit(r.Context(), req.Name)
	if err != nil {
		writeError(w, err)
		return
	}
	if id == 0 {
		httputil.WriteJSONOK(w, commitResponse{Cancelled: true})
		return
	}
	httputil.WriteJSON(w, http.StatusCreated, commitResponse{ID: id})
}

func (s *Server) handleCancelCommit(w http.ResponseWriter, r *http.Request) {
	if err := s.session.CancelCommit(); err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, commitResponse{Cancelled: true})
}
