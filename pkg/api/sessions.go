package api

import (
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"gitlab.com/gomidi/midi/v2"

	"github.com/james-see/scalechord/pkg/config"
	"github.com/james-see/scalechord/pkg/engine"
	"github.com/james-see/scalechord/pkg/theory"
	"github.com/james-see/scalechord/pkg/tracker"
)

// session is a live engine driven over HTTP. A Processor is single-owner,
// so every access goes through mu.
type session struct {
	mu      sync.Mutex
	proc    *engine.Processor
	created time.Time
}

// SessionState is the observable state of a session
type SessionState struct {
	ID            string                `json:"id"`
	Created       time.Time             `json:"created"`
	Config        *config.Config        `json:"config"`
	Sustain       bool                  `json:"sustain"`
	SoundingNotes []int                 `json:"sounding_notes"`
	ActiveNotes   []tracker.ActiveNote  `json:"active_notes"`
	LastChord     theory.Chord          `json:"last_chord"`
	Analysis      *theory.ChordInfo     `json:"analysis,omitempty"`
	Suggestions   []theory.Substitution `json:"suggestions,omitempty"`
}

// Event is a MIDI event sent to or produced by a session
type Event struct {
	Type       string `json:"type"` // note_on, note_off, sustain, cc, other
	Channel    uint8  `json:"channel"`
	Note       uint8  `json:"note,omitempty"`
	Velocity   uint8  `json:"velocity,omitempty"`
	Controller uint8  `json:"controller,omitempty"`
	Value      uint8  `json:"value,omitempty"`
	On         bool   `json:"on,omitempty"` // sustain
	Raw        string `json:"raw,omitempty"`
}

// EventsRequest is a batch of input events processed in order
type EventsRequest struct {
	Events []Event `json:"events" binding:"required"`
}

func (e Event) message() (midi.Message, error) {
	switch e.Type {
	case "note_on":
		vel := e.Velocity
		if vel == 0 {
			vel = 100
		}
		return midi.NoteOn(e.Channel, e.Note, vel), nil
	case "note_off":
		return midi.NoteOff(e.Channel, e.Note), nil
	case "sustain":
		var v uint8
		if e.On {
			v = 127
		}
		return midi.ControlChange(e.Channel, engine.CCSustain, v), nil
	case "cc":
		return midi.ControlChange(e.Channel, e.Controller, e.Value), nil
	}
	return nil, fmt.Errorf("unknown event type %q", e.Type)
}

func describe(msg midi.Message) Event {
	var ch, key, vel, cc, val uint8
	switch {
	case msg.GetNoteStart(&ch, &key, &vel):
		return Event{Type: "note_on", Channel: ch, Note: key, Velocity: vel}
	case msg.GetNoteEnd(&ch, &key):
		return Event{Type: "note_off", Channel: ch, Note: key}
	case msg.GetControlChange(&ch, &cc, &val):
		return Event{Type: "cc", Channel: ch, Controller: cc, Value: val}
	}
	return Event{Type: "other", Raw: fmt.Sprintf("% X", []byte(msg))}
}

func (s *Server) lookup(c *gin.Context) (*session, uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid session id"})
		return nil, uuid.Nil, false
	}
	s.mu.Lock()
	sess, ok := s.sessions[id]
	s.mu.Unlock()
	if !ok {
		c.JSON(http.StatusNotFound, gin.H{"error": "session not found"})
		return nil, id, false
	}
	return sess, id, true
}

func (sess *session) state(id uuid.UUID) SessionState {
	st := SessionState{
		ID:            id.String(),
		Created:       sess.created,
		Config:        config.FromSettings(sess.proc.Settings()),
		Sustain:       sess.proc.SustainPedal(),
		SoundingNotes: sess.proc.SoundingNotes(),
		ActiveNotes:   sess.proc.ActiveNotes(),
		LastChord:     sess.proc.LastVoicing(),
	}
	if len(st.LastChord) > 0 {
		info := sess.proc.LastAnalysis()
		st.Analysis = &info
		st.Suggestions = sess.proc.Suggestions()
	}
	return st
}

// createSession godoc
// @Summary Create an engine session
// @Description Starts a live chord engine. The body is an optional configuration.
// @Tags sessions
// @Accept json
// @Produce json
// @Param request body config.Config false "Configuration"
// @Success 201 {object} SessionState
// @Failure 400 {object} map[string]string
// @Router /api/v1/sessions [post]
func (s *Server) createSession(c *gin.Context) {
	cfg := config.Default()
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(cfg); err != nil {
			badRequest(c, err)
			return
		}
	}
	settings, err := cfg.Settings()
	if err != nil {
		badRequest(c, err)
		return
	}
	proc, err := engine.New(settings, s.logger)
	if err != nil {
		badRequest(c, err)
		return
	}

	id := uuid.New()
	sess := &session{proc: proc, created: time.Now()}
	s.mu.Lock()
	s.sessions[id] = sess
	s.mu.Unlock()
	s.logger.Info("session created", "id", id, "scale", settings.Scale.Scale.String())

	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusCreated, sess.state(id))
}

// getSession godoc
// @Summary Get session state
// @Tags sessions
// @Produce json
// @Param id path string true "Session ID"
// @Success 200 {object} SessionState
// @Failure 404 {object} map[string]string
// @Router /api/v1/sessions/{id} [get]
func (s *Server) getSession(c *gin.Context) {
	sess, id, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()
	c.JSON(http.StatusOK, sess.state(id))
}

// updateSession godoc
// @Summary Change session settings
// @Description Applies a new configuration. Held notes keep their chords.
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body config.Config true "Configuration"
// @Success 200 {object} SessionState
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/sessions/{id}/settings [put]
func (s *Server) updateSession(c *gin.Context) {
	sess, id, ok := s.lookup(c)
	if !ok {
		return
	}
	sess.mu.Lock()
	defer sess.mu.Unlock()

	cfg := config.FromSettings(sess.proc.Settings())
	if err := c.ShouldBindJSON(cfg); err != nil {
		badRequest(c, err)
		return
	}
	settings, err := cfg.Settings()
	if err != nil {
		badRequest(c, err)
		return
	}
	if err := sess.proc.SetSettings(settings); err != nil {
		badRequest(c, err)
		return
	}
	c.JSON(http.StatusOK, sess.state(id))
}

// sendEvents godoc
// @Summary Send MIDI events
// @Description Runs events through the session engine and returns the generated output
// @Tags sessions
// @Accept json
// @Produce json
// @Param id path string true "Session ID"
// @Param request body EventsRequest true "Events"
// @Success 200 {object} map[string][]Event
// @Failure 400 {object} map[string]string
// @Failure 404 {object} map[string]string
// @Router /api/v1/sessions/{id}/events [post]
func (s *Server) sendEvents(c *gin.Context) {
	sess, _, ok := s.lookup(c)
	if !ok {
		return
	}
	var req EventsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	msgs := make([]midi.Message, 0, len(req.Events))
	for _, e := range req.Events {
		m, err := e.message()
		if err != nil {
			badRequest(c, err)
			return
		}
		msgs = append(msgs, m)
	}

	sess.mu.Lock()
	defer sess.mu.Unlock()
	out := make([]Event, 0, 8)
	for _, m := range msgs {
		for _, o := range sess.proc.Process(m) {
			out = append(out, describe(o))
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"output":         out,
		"sounding_notes": sess.proc.SoundingNotes(),
	})
}

// deleteSession godoc
// @Summary Delete a session
// @Tags sessions
// @Param id path string true "Session ID"
// @Success 204
// @Failure 404 {object} map[string]string
// @Router /api/v1/sessions/{id} [delete]
func (s *Server) deleteSession(c *gin.Context) {
	_, id, ok := s.lookup(c)
	if !ok {
		return
	}
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
	s.logger.Info("session deleted", "id", id)
	c.Status(http.StatusNoContent)
}

// SessionCount returns the number of live sessions
func (s *Server) SessionCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.sessions)
}
