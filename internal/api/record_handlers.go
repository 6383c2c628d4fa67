package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/httputil"
	"github.com/banshee-data/crossing.report/internal/report"
	"github.com/banshee-data/crossing.report/internal/zones"
)

type recordDetail struct {
	db.Record
	Transitions []zones.TransitionCount `json:"transitions"`
}

func (s *Server) recordStore(w http.ResponseWriter) bool {
	if s.records == nil {
		httputil.NotFound(w, "no record store configured")
		return false
	}
	return true
}

func (s *Server) handleListRecords(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	recs, err := s.records.ListRecords(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	if recs == nil {
		recs = []db.Record{}
	}
	httputil.WriteJSONOK(w, recs)
}

func (s *Server) handleGetRecord(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	rec, err := s.records.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := s.records.GetTransitions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, recordDetail{Record: rec, Transitions: counts})
}

func (s *Server) handleTransitions(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	counts, err := s.records.GetTransitions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, counts)
}

func (s *Server) handleTotals(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	totals, err := s.records.TransitionTotals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	httputil.WriteJSONOK(w, totals)
}

func (s *Server) handleDeleteRecord(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	if err := s.records.DeleteRecord(r.Context(), id); err != nil {
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordChart(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	id, err := pathID(r)
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}
	rec, err := s.records.GetRecord(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	counts, err := s.records.GetTransitions(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeChart(w, r, report.Chart{
		Title:    rec.Name,
		Subtitle: fmt.Sprintf("%s, %d crossings", rec.CreatedAt.Format("2006-01-02 15:04"), rec.Total),
		Counts:   counts,
	})
}

func (s *Server) handleTotalsChart(w http.ResponseWriter, r *http.Request) {
	if !s.recordStore(w) {
		return
	}
	totals, err := s.records.TransitionTotals(r.Context())
	if err != nil {
		writeError(w, err)
		return
	}
	writeChart(w, r, report.Chart{Title: "All records", Counts: totals})
}

// writeChart renders c as HTML (default) or PNG (?format=png).
func writeChart(w http.ResponseWriter, r *http.Request, c report.Chart) {
	format := strings.ToLower(r.URL.Query().Get("format"))
	var (
		buf         bytes.Buffer
		err         error
		contentType string
	)
	switch format {
	case "", "html":
		err = report.RenderHTML(&buf, c)
		contentType = "text/html; charset=utf-8"
	case "png":
		err = report.WritePNG(&buf, c)
		contentType = "image/png"
	default:
		httputil.BadRequest(w, fmt.Sprintf("unsupported chart format %q", format))
		return
	}
	if errors.Is(err, report.ErrNoData) {
		httputil.NotFound(w, err.Error())
		return
	}
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("render error: %v", err))
		return
	}
	w.Header().Set("Content-Type", contentType)
	_, _ = w.Write(buf.Bytes())
}
