package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/schedvox/schedvox/internal/calendar"
	"github.com/schedvox/schedvox/internal/dialogue"
	"github.com/schedvox/schedvox/internal/observe"
	"github.com/schedvox/schedvox/internal/schedule"
	"github.com/schedvox/schedvox/internal/session"
)

// maxBodyBytes caps request bodies. Transcripts are short; anything larger
// is a client bug.
const maxBodyBytes = 64 << 10

// errorBody is the JSON error envelope.
type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, `{"error":"encode response"}`, http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// decodeBody decodes the request body into v, rejecting unknown growth
// vectors (oversized bodies, trailing garbage).
func decodeBody(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxBodyBytes))
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("decode request: %w", err)
	}
	return nil
}

// writeTurnError maps orchestrator errors onto HTTP statuses.
func writeTurnError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, session.ErrNotFound):
		writeError(w, http.StatusNotFound, "unknown session")
	case errors.Is(err, dialogue.ErrEmptyTranscript):
		writeError(w, http.StatusBadRequest, "transcript must not be empty")
	default:
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

// --- voice endpoints ---

type initRequest struct {
	Timezone string `json:"timezone"`
}

type initResponse struct {
	SessionID string `json:"sessionId"`
	Status    string `json:"status"`
	Timezone  string `json:"timezone"`
}

func (s *Server) handleInit(w http.ResponseWriter, r *http.Request) {
	var req initRequest
	if r.ContentLength != 0 {
		if err := decodeBody(r, &req); err != nil {
			writeError(w, http.StatusBadRequest, "malformed request body")
			return
		}
	}

	sess, err := s.orch.InitSession(r.Context(), req.Timezone)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "create session")
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Timezone:  sess.Timezone,
	})
}

type processRequest struct {
	SessionID  string `json:"sessionId"`
	Transcript string `json:"transcript"`
}

func (s *Server) handleProcess(w http.ResponseWriter, r *http.Request) {
	var req processRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	res, err := s.orch.ProcessTurn(r.Context(), req.SessionID, req.Transcript)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type setDetailsRequest struct {
	SessionID string           `json:"sessionId"`
	Details   schedule.Details `json:"userDetails"`
}

func (s *Server) handleSetDetails(w http.ResponseWriter, r *http.Request) {
	var req setDetailsRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	res, err := s.orch.SetDetails(r.Context(), req.SessionID, req.Details)
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type sessionResponse struct {
	SessionID string           `json:"sessionId"`
	Status    string           `json:"status"`
	Timezone  string           `json:"timezone"`
	Details   schedule.Details `json:"userDetails"`
	Ready     bool             `json:"readyForEvent"`
	CreatedAt time.Time        `json:"createdAt"`
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.orch.Session(r.Context(), r.PathValue("id"))
	if err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sessionResponse{
		SessionID: sess.ID,
		Status:    string(sess.Status),
		Timezone:  sess.Timezone,
		Details:   sess.Details,
		Ready:     schedule.Ready(sess.Details),
		CreatedAt: sess.CreatedAt,
	})
}

// --- calendar endpoints ---

type createEventRequest struct {
	SessionID string `json:"sessionId"`
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var req createEventRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body")
		return
	}
	if req.SessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId is required")
		return
	}

	ctx := r.Context()
	sess, err := s.orch.Session(ctx, req.SessionID)
	if err != nil {
		writeTurnError(w, err)
		return
	}

	eventReq, err := calendar.FromDetails(sess.Details, sess.Timezone)
	if err != nil {
		var missing *calendar.MissingFieldsError
		if errors.As(err, &missing) {
			writeJSON(w, http.StatusBadRequest, map[string]any{
				"error":         "missing required details",
				"missingFields": missing.Fields,
			})
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	sched := s.schedulingConfig()
	if eventReq.AttendeeEmail == "" {
		eventReq.AttendeeEmail = sched.AttendeeEmail
	}

	svc := s.calendarFor(ctx, sess)
	if svc == nil {
		writeError(w, http.StatusServiceUnavailable, "calendar not configured; authenticate first or configure a service account")
		return
	}

	start := time.Now()
	result, err := svc.CreateEvent(ctx, *eventReq)
	if s.metrics != nil {
		s.metrics.CalendarDuration.Record(ctx, time.Since(start).Seconds())
	}
	if err != nil {
		if s.metrics != nil {
			s.metrics.RecordEventCreated(ctx, "error")
		}
		observe.Logger(ctx).Error("event creation failed",
			"session_id", sess.ID, "error", err)
		writeError(w, http.StatusBadGateway, "calendar backend rejected the event")
		return
	}
	if s.metrics != nil {
		s.metrics.RecordEventCreated(ctx, "ok")
	}
	writeJSON(w, http.StatusOK, result)
}

// calendarFor picks the calendar service for a session: per-user tokens when
// present, the shared service account otherwise.
func (s *Server) calendarFor(ctx context.Context, sess *session.Session) calendar.Service {
	if sess.Tokens != nil && s.oauth != nil && s.newCalendar != nil {
		return s.newCalendar(s.oauth.TokenSource(ctx, sess.Tokens))
	}
	return s.serviceCal
}

// --- auth endpoints ---

func (s *Server) handleAuthURL(w http.ResponseWriter, r *http.Request) {
	sessionID := r.URL.Query().Get("sessionId")
	if sessionID == "" {
		writeError(w, http.StatusBadRequest, "sessionId query parameter is required")
		return
	}
	if _, err := s.orch.Session(r.Context(), sessionID); err != nil {
		writeTurnError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{
		"url": s.oauth.AuthURL(sessionID),
	})
}

func (s *Server) handleAuthCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	code, state := q.Get("code"), q.Get("state")
	if code == "" || state == "" {
		writeError(w, http.StatusBadRequest, "code and state query parameters are required")
		return
	}

	tok, err := s.oauth.Exchange(r.Context(), code)
	if err != nil {
		observe.Logger(r.Context()).Warn("oauth exchange failed", "error", err)
		writeError(w, http.StatusBadGateway, "authorization code exchange failed")
		return
	}
	if err := s.orch.AttachTokens(r.Context(), state, tok); err != nil {
		writeTurnError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, "<html><body><h3>Authentication successful.</h3><p>You can close this window and return to your call.</p></body></html>")
}
