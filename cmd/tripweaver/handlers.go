package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/tripweaver/tripweaver/core"
	"github.com/tripweaver/tripweaver/session"
	"github.com/tripweaver/tripweaver/travel"
)

type api struct {
	orchestrator *travel.Orchestrator
	sessions     *session.Store
	logger       core.Logger
	idleWindow   time.Duration
}

func newAPI(orchestrator *travel.Orchestrator, sessions *session.Store, logger core.Logger, idleWindow time.Duration) *api {
	if idleWindow <= 0 {
		idleWindow = 5 * time.Minute
	}
	return &api{
		orchestrator: orchestrator,
		sessions:     sessions,
		logger:       logger,
		idleWindow:   idleWindow,
	}
}

type planRequest struct {
	Message   string `json:"message"`
	SessionID string `json:"session_id"`
}

type runOutcome struct {
	result *travel.Result
	err    error
}

// handlePlan runs the planning pipeline and streams its progress as
// SSE. Progress events are named "agent"; the stream always ends with
// exactly one terminal event, "result" or "error".
func (a *api) handlePlan(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method == http.MethodOptions {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req planRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Message == "" {
		writeJSONError(w, http.StatusBadRequest, "message is required")
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSONError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sess := a.resolveSession(r, req.SessionID)
	if sess != nil {
		a.sendEvent(w, flusher, "session", map[string]string{"session_id": sess.ID})
		if err := a.sessions.Append(r.Context(), sess.ID, session.RoleUser, req.Message); err != nil {
			a.logger.Warn("Failed to record user message", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
	}

	sink, events := travel.NewChannelSink(64)
	outcomeCh := make(chan runOutcome, 1)
	go func() {
		result, err := a.orchestrator.Run(r.Context(), req.Message, sink)
		// Closing after Run returns guarantees the drain loop below
		// terminates and no event outruns the terminal one.
		sink.Close()
		outcomeCh <- runOutcome{result: result, err: err}
	}()

	idle := time.NewTimer(a.idleWindow)
	defer idle.Stop()

	for events != nil {
		select {
		case ev, open := <-events:
			if !open {
				events = nil
				continue
			}
			a.sendEvent(w, flusher, "agent", ev)
			if !idle.Stop() {
				<-idle.C
			}
			idle.Reset(a.idleWindow)
		case <-idle.C:
			a.sendEvent(w, flusher, "error", map[string]string{"error": "stream closed after idle timeout"})
			return
		case <-r.Context().Done():
			return
		}
	}

	outcome := <-outcomeCh
	if outcome.err != nil {
		a.logger.Error("Planning run failed", map[string]interface{}{"error": outcome.err.Error()})
		a.sendEvent(w, flusher, "error", map[string]string{"error": outcome.err.Error()})
		return
	}

	a.sendEvent(w, flusher, "result", outcome.result)

	if sess != nil {
		if err := a.sessions.Append(r.Context(), sess.ID, session.RoleAssistant, outcome.result.Budget.Message); err != nil {
			a.logger.Warn("Failed to record result message", map[string]interface{}{
				"session_id": sess.ID,
				"error":      err.Error(),
			})
		}
	}
}

// resolveSession loads the requested session, or starts a fresh one
// when the id is absent or expired. Session failures never block
// planning; the run just proceeds without history.
func (a *api) resolveSession(r *http.Request, id string) *session.Session {
	if id != "" {
		sess, err := a.sessions.Get(r.Context(), id)
		if err == nil {
			return sess
		}
		if !errors.Is(err, core.ErrSessionNotFound) {
			a.logger.Warn("Session lookup failed", map[string]interface{}{
				"session_id": id,
				"error":      err.Error(),
			})
			return nil
		}
	}

	sess, err := a.sessions.Create(r.Context())
	if err != nil {
		a.logger.Warn("Session create failed", map[string]interface{}{"error": err.Error()})
		return nil
	}
	return sess
}

// handleExperts queries one expert directly, outside the pipeline.
// GET /api/travel/experts?domain=restaurants&q=Jeju+seafood
func (a *api) handleExperts(w http.ResponseWriter, r *http.Request) {
	setCORS(w)
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	domain := r.URL.Query().Get("domain")
	query := r.URL.Query().Get("q")
	if domain == "" || query == "" {
		writeJSONError(w, http.StatusBadRequest, "domain and q are required")
		return
	}

	candidates, err := a.orchestrator.GatherOnly(r.Context(), domain, query)
	if err != nil {
		if errors.Is(err, core.ErrUnknownDomain) {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		a.logger.Error("Expert query failed", map[string]interface{}{
			"domain": domain,
			"error":  err.Error(),
		})
		writeJSONError(w, http.StatusBadGateway, "expert query failed")
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"domain":     domain,
		"candidates": candidates,
	})
}

func (a *api) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// sendEvent writes one SSE event. Delivery failures are swallowed: a
// client that went away must not fail the pipeline.
func (a *api) sendEvent(w http.ResponseWriter, flusher http.Flusher, event string, data interface{}) {
	payload, err := json.Marshal(data)
	if err != nil {
		a.logger.Warn("Failed to encode event", map[string]interface{}{
			"event": event,
			"error": err.Error(),
		})
		return
	}
	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload); err != nil {
		return
	}
	flusher.Flush()
}

func setCORS(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
