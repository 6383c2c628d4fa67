// Package api exposes the capture session, zone authoring and the saved
// records over HTTP/JSON.
package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/banshee-data/crossing.report/internal/db"
	"github.com/banshee-data/crossing.report/internal/httputil"
	"github.com/banshee-data/crossing.report/internal/session"
	"github.com/banshee-data/crossing.report/internal/zones"
)

// RecordStore is the read/delete side of the persistence gateway.
type RecordStore interface {
	ListRecords(ctx context.Context) ([]db.Record, error)
	GetRecord(ctx context.Context, id int64) (db.Record, error)
	GetTransitions(ctx context.Context, id int64) ([]zones.TransitionCount, error)
	TransitionTotals(ctx context.Context) ([]zones.TransitionCount, error)
	DeleteRecord(ctx context.Context, id int64) error
}

// Server serves the HTTP API for one session.
type Server struct {
	session *session.Session
	records RecordStore
	// mediaDirs restricts which video paths may be loaded. Empty allows any.
	mediaDirs []string
}

// NewServer creates a Server. records may be nil, in which case the record
// routes answer 404.
func NewServer(s *session.Session, records RecordStore, mediaDirs []string) *Server {
	return &Server{session: s, records: records, mediaDirs: mediaDirs}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

func (lrw *loggingResponseWriter) Flush() {
	if flusher, ok := lrw.ResponseWriter.(http.Flusher); ok {
		flusher.Flush()
	}
}

// LoggingMiddleware logs method, path, status, and duration.
func LoggingMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)

		ev := log.Info()
		if lrw.statusCode >= http.StatusInternalServerError {
			ev = log.Error()
		} else if lrw.statusCode >= http.StatusBadRequest {
			ev = log.Warn()
		}
		ev.Int("status", lrw.statusCode).
			Str("method", r.Method).
			Str("uri", r.RequestURI).
			Float64("ms", float64(time.Since(start).Nanoseconds())/1e6).
			Msg("http")
	})
}

// ServeMux returns a mux with every API route registered.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	s.AttachRoutes(mux)
	return mux
}

// AttachRoutes registers the API routes on mux.
func (s *Server) AttachRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/session", s.handleSnapshot)
	mux.HandleFunc("GET /api/session/frame.png", s.handleFrame)
	mux.HandleFunc("POST /api/session/load", s.handleLoad)
	mux.HandleFunc("POST /api/session/play", s.handlePlay)
	mux.HandleFunc("POST /api/session/pause", s.handlePause)
	mux.HandleFunc("POST /api/session/stop", s.handleStop)
	mux.HandleFunc("POST /api/session/reset", s.handleReset)
	mux.HandleFunc("PUT /api/session/recording", s.handleRecording)
	mux.HandleFunc("PUT /api/session/detection", s.handleDetection)
	mux.HandleFunc("GET /api/session/commit", s.handlePendingCommit)
	mux.HandleFunc("POST /api/session/commit", s.handleFinalizeCommit)
	mux.HandleFunc("DELETE /api/session/commit", s.handleCancelCommit)

	mux.HandleFunc("GET /api/zones", s.handleListZones)
	mux.HandleFunc("POST /api/zones", s.handleAddZone)
	mux.HandleFunc("PUT /api/zones/{id}", s.handleEditZone)
	mux.HandleFunc("DELETE /api/zones/{id}", s.handleRemoveZone)
	mux.HandleFunc("POST /api/zones/{id}/draft", s.handleBeginEdit)
	mux.HandleFunc("POST /api/zones/draft", s.handleBeginDraft)
	mux.HandleFunc("DELETE /api/zones/draft", s.handleCancelDraft)
	mux.HandleFunc("POST /api/zones/draft/points", s.handleAddDraftPoint)
	mux.HandleFunc("DELETE /api/zones/draft/points", s.handleClearDraft)
	mux.HandleFunc("DELETE /api/zones/draft/points/last", s.handleUndoDraftPoint)
	mux.HandleFunc("POST /api/zones/draft/finish", s.handleFinishDraft)

	mux.HandleFunc("GET /api/records", s.handleListRecords)
	mux.HandleFunc("GET /api/records/totals", s.handleTotals)
	mux.HandleFunc("GET /api/records/totals/chart", s.handleTotalsChart)
	mux.HandleFunc("GET /api/records/{id}", s.handleGetRecord)
	mux.HandleFunc("DELETE /api/records/{id}", s.handleDeleteRecord)
	mux.HandleFunc("GET /api/records/{id}/transitions", s.handleTransitions)
	mux.HandleFunc("GET /api/records/{id}/chart", s.handleRecordChart)
}

// writeError maps domain errors onto HTTP status codes.
func writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, zones.ErrDegeneratePolygon),
		errors.Is(err, zones.ErrEmptyName),
		errors.Is(err, db.ErrEmptyRecordName):
		httputil.BadRequest(w, err.Error())
	case errors.Is(err, zones.ErrZoneNotFound),
		errors.Is(err, db.ErrRecordNotFound):
		httputil.NotFound(w, err.Error())
	case errors.Is(err, session.ErrSessionActive),
		errors.Is(err, session.ErrCommitPending),
		errors.Is(err, session.ErrNoSource),
		errors.Is(err, session.ErrNoPendingCommit),
		errors.Is(err, session.ErrNoRecorder),
		errors.Is(err, session.ErrNoDetector):
		httputil.Conflict(w, err.Error())
	default:
		httputil.InternalServerError(w, err.Error())
	}
}

func pathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}
