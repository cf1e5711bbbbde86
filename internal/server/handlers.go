package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/drivesound/drivesound/internal/answers"
	"github.com/drivesound/drivesound/internal/flow"
	"github.com/drivesound/drivesound/internal/report"
)

// maxAnswerBytes bounds a forward request body.
const maxAnswerBytes = 64 << 10

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, HealthResponse{Status: "ok", Sessions: s.sessions.len()})
}

// handleCreate handles POST /v1/sessions.
func (s *Server) handleCreate(c *gin.Context) {
	ctl, err := flow.Start(flow.Options{
		Topology:         s.topo,
		Randomizer:       s.rng,
		Persister:        s.gw,
		Assets:           s.assets,
		Logger:           s.logger,
		AudioCheckAnswer: s.cfg.Survey.AudioCheckAnswer,
		Groups:           s.groups,
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "START_FAILED"})
		return
	}
	s.sessions.add(ctl)
	s.metrics.SessionsStarted.WithLabelValues(string(ctl.Session().Group())).Inc()
	s.metrics.ActiveSessions.Set(float64(s.sessions.len()))

	c.JSON(http.StatusCreated, s.state(ctl, flow.Outcome{}))
}

// handleGet handles GET /v1/sessions/:id. Sessions no longer in memory are
// answered from storage.
func (s *Server) handleGet(c *gin.Context) {
	id := c.Param("id")
	if e, ok := s.sessions.get(id); ok {
		defer e.mu.Unlock()
		c.JSON(http.StatusOK, s.state(e.c, flow.Outcome{}))
		return
	}

	rec, err := s.gw.Load(id)
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "LOAD_FAILED"})
		return
	}
	if rec == nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
		return
	}
	resp := StateResponse{
		SessionID:     rec.SessionID,
		Group:         string(rec.Group),
		Completed:     rec.Completed,
		Persisted:     true,
		StimulusOrder: rec.StimulusOrder,
	}
	if rec.Completed {
		resp.Progress = 100
	}
	c.JSON(http.StatusOK, resp)
}

// handleForward handles POST /v1/sessions/:id/forward.
//
// Response:
//
//	200 OK: StateResponse (retry is set when the comprehension check failed)
//	404 Not Found: unknown session
//	422 Unprocessable Entity: answer does not match the step
//	503 Service Unavailable: the completed session could not be saved
func (s *Server) handleForward(c *gin.Context) {
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
		return
	}
	defer e.mu.Unlock()

	var req ForwardRequest
	if c.Request.Body != nil {
		data, err := io.ReadAll(io.LimitReader(c.Request.Body, maxAnswerBytes+1))
		if err != nil || len(data) > maxAnswerBytes {
			c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST"})
			return
		}
		if len(bytes.TrimSpace(data)) > 0 {
			if err := json.Unmarshal(data, &req); err != nil {
				c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST", Details: err.Error()})
				return
			}
		}
	}

	spec, err := e.c.CurrentStep()
	if err != nil {
		s.writeError(c, e.c, err)
		return
	}

	var answer any
	if !e.c.Session().Completed() && !spec.Terminal && !answers.Info(spec.Kind) && !spec.MissingAsset {
		raw := bytes.TrimSpace(req.Answer)
		if len(raw) == 0 || string(raw) == "null" {
			s.writeError(c, e.c, fmt.Errorf("%w: %s: answer is required", answers.ErrInvalidAnswer, spec.Kind))
			return
		}
		answer, err = answers.Decode(spec.Kind, raw)
		if err != nil {
			s.writeError(c, e.c, err)
			return
		}
	}

	wasPersisted := e.c.Persisted()
	out, err := e.c.Forward(answer)
	if out.Retry != nil {
		s.metrics.AudioCheckFailures.Inc()
	}
	if !wasPersisted && e.c.Persisted() {
		s.metrics.SessionsCompleted.WithLabelValues(string(e.c.Session().Group())).Inc()
	}
	if err != nil {
		if errors.Is(err, flow.ErrPersistenceFailure) {
			s.metrics.PersistFailures.Inc()
		}
		s.writeError(c, e.c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(e.c, out))
}

// handleBack handles POST /v1/sessions/:id/back.
func (s *Server) handleBack(c *gin.Context) {
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
		return
	}
	defer e.mu.Unlock()

	out, err := e.c.Back()
	if err != nil {
		s.writeError(c, e.c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(e.c, out))
}

// handleJump handles POST /v1/sessions/:id/jump.
func (s *Server) handleJump(c *gin.Context) {
	var req JumpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request body", Code: "INVALID_REQUEST", Details: err.Error()})
		return
	}
	e, ok := s.sessions.get(c.Param("id"))
	if !ok {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "session not found", Code: "NOT_FOUND"})
		return
	}
	defer e.mu.Unlock()

	out, err := e.c.JumpTo(req.Phase, req.Step)
	if err != nil {
		s.writeError(c, e.c, err)
		return
	}
	c.JSON(http.StatusOK, s.state(e.c, out))
}

// handleStats handles GET /v1/stats.
func (s *Server) handleStats(c *gin.Context) {
	records, err := s.gw.LoadAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: err.Error(), Code: "LOAD_FAILED"})
		return
	}
	c.JSON(http.StatusOK, report.Summarize(records, s.cfg.StimulusIDs()))
}

// writeError maps flow and answer errors to status codes. The current
// state is included so clients can re-render.
func (s *Server) writeError(c *gin.Context, ctl *flow.Controller, err error) {
	status, code := http.StatusInternalServerError, "INTERNAL"
	switch {
	case errors.Is(err, answers.ErrInvalidAnswer):
		status, code = http.StatusUnprocessableEntity, "INVALID_ANSWER"
	case errors.Is(err, flow.ErrInvalidTransition):
		status, code = http.StatusConflict, "INVALID_TRANSITION"
	case errors.Is(err, flow.ErrPersistenceFailure):
		status, code = http.StatusServiceUnavailable, "PERSISTENCE_FAILURE"
	}
	state := s.state(ctl, flow.Outcome{})
	c.JSON(status, ErrorResponse{Error: err.Error(), Code: code, State: &state})
}

func (s *Server) state(ctl *flow.Controller, out flow.Outcome) StateResponse {
	sess := ctl.Session()
	resp := StateResponse{
		SessionID:     sess.ID(),
		Group:         string(sess.Group()),
		Phase:         sess.Phase(),
		Step:          sess.Step(),
		Progress:      ctl.Progress(),
		Completed:     sess.Completed(),
		Persisted:     ctl.Persisted(),
		StimulusOrder: sess.StimulusOrder(),
		Attempts:      ctl.Attempts(),
	}
	if out.Retry != nil {
		resp.Retry = out.Retry.Error()
	}
	if spec, err := ctl.CurrentStep(); err == nil {
		view := &StepView{
			Phase:         spec.Phase,
			Step:          spec.Step,
			Kind:          string(spec.Kind),
			Key:           spec.Key,
			Stimulus:      spec.Stimulus,
			StimulusIndex: spec.StimulusIndex,
			StimulusCount: spec.StimulusCount,
			MissingAsset:  spec.MissingAsset,
		}
		if spec.Kind == answers.KindAudioCheck {
			view.Options = s.cfg.Survey.AudioCheckOptions
		}
		resp.Current = view
	}
	return resp
}
