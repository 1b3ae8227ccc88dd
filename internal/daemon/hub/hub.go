// Package hub fans daemon state, errors and terminal output out to every
// attached observer and dispatches the actions observers send back.
package hub

import (
	"sync"

	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/internal/daemon/store"
	"github.com/grovetools/gcpd/logging"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/sirupsen/logrus"
)

// Terminal is the view of the process multiplexer the hub needs.
type Terminal interface {
	Info() models.TerminalState
	Replay(fn func(state models.TerminalState, output []byte))
	SendInput(data []byte) error
}

// Checker requests reconciliation passes.
type Checker interface {
	RequestCheck()
}

// Hub tracks attached sessions.
type Hub struct {
	store    *store.Store
	terminal Terminal
	logger   *logrus.Entry

	checkerMu sync.RWMutex
	checker   Checker

	mu       sync.RWMutex
	sessions map[string]*Session
}

// New creates a Hub reading state from st and terminal.
func New(st *store.Store, terminal Terminal) *Hub {
	return &Hub{
		store:    st,
		terminal: terminal,
		logger:   logging.NewLogger("hub"),
		sessions: make(map[string]*Session),
	}
}

// SetController registers the receiver of reconciliation requests.
func (h *Hub) SetController(c Checker) {
	h.checkerMu.Lock()
	defer h.checkerMu.Unlock()
	h.checker = c
}

func (h *Hub) requestCheck() {
	h.checkerMu.RLock()
	c := h.checker
	h.checkerMu.RUnlock()
	if c != nil {
		c.RequestCheck()
	}
}

// Snapshot returns the current full state.
func (h *Hub) Snapshot() models.State {
	return h.store.Snapshot(h.terminal.Info())
}

// Attach registers an observer and sends it the current state followed by
// the output of the running process, if any.
func (h *Hub) Attach(t Transport) *Session {
	s := newSession(t)
	var failed bool

	h.terminal.Replay(func(term models.TerminalState, output []byte) {
		if err := s.send(StateMessage(h.store.Snapshot(term))); err != nil {
			failed = true
			return
		}
		if term.Running() && len(output) > 0 {
			if err := s.send(OutputMessage(output)); err != nil {
				failed = true
				return
			}
		}
		h.mu.Lock()
		h.sessions[s.ID] = s
		h.mu.Unlock()
	})

	if failed {
		h.logger.WithField("session", s.ID).Warn("Observer failed during attach")
		t.Close()
		return s
	}
	h.logger.WithFields(logrus.Fields{
		"session":  s.ID,
		"sessions": h.Sessions(),
	}).Info("Observer attached")
	return s
}

// Detach removes a session and closes its transport. Detaching twice is safe.
func (h *Hub) Detach(s *Session) {
	h.mu.Lock()
	_, ok := h.sessions[s.ID]
	delete(h.sessions, s.ID)
	h.mu.Unlock()
	if !ok {
		return
	}
	s.transport.Close()
	h.logger.WithField("session", s.ID).Info("Observer detached")
}

// Sessions returns the number of attached sessions.
func (h *Hub) Sessions() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// BroadcastState sends the full state to every session.
func (h *Hub) BroadcastState() {
	h.broadcast(StateMessage(h.Snapshot()))
}

// BroadcastError sends an error notification to every session.
func (h *Hub) BroadcastError(message string) {
	h.broadcast(ErrorMessage(message))
}

// TerminalOutput forwards a chunk of process output to every session.
func (h *Hub) TerminalOutput(data []byte) {
	h.broadcast(OutputMessage(data))
}

// TerminalChanged publishes a process start or exit.
func (h *Hub) TerminalChanged() {
	h.BroadcastState()
}

// broadcast sends msg to every session and drops those that cannot keep up.
func (h *Hub) broadcast(msg Message) {
	var dropped []*Session

	h.mu.RLock()
	for _, s := range h.sessions {
		if err := s.send(msg); err != nil {
			h.logger.WithError(err).WithField("session", s.ID).Warn("Dropping observer")
			dropped = append(dropped, s)
		}
	}
	h.mu.RUnlock()

	for _, s := range dropped {
		h.Detach(s)
	}
}

// Dispatch handles an action sent by session s.
func (h *Hub) Dispatch(a Action, s *Session) {
	logger := h.logger.WithField("action", a.Name)
	if s != nil {
		logger = logger.WithField("session", s.ID)
	}
	logger.Debug("Dispatching action")

	switch a.Name {
	case ActionActivateBranch:
		var params ActivateBranchParams
		if err := decodeParams(a.Parameters, &params); err != nil {
			h.reply(s, errors.InvalidAction(a.Name, err).Error())
			return
		}
		if !h.store.ToggleActive(params.BranchName) {
			logger.WithField("branch", params.BranchName).Debug("Branch not in inventory")
			return
		}
		h.BroadcastState()
		h.requestCheck()

	case ActionRecheck:
		h.requestCheck()

	case ActionInputTerminal:
		var params InputTerminalParams
		if err := decodeParams(a.Parameters, &params); err != nil {
			h.reply(s, errors.InvalidAction(a.Name, err).Error())
			return
		}
		if err := h.terminal.SendInput([]byte(params.DataString)); err != nil {
			logger.WithError(err).Warn("Failed to forward terminal input")
		}

	default:
		h.BroadcastError(errors.UnknownAction(a.Name).Error())
	}
}

// reply sends an error to one session, or to everyone when s is nil.
func (h *Hub) reply(s *Session, message string) {
	if s == nil {
		h.BroadcastError(message)
		return
	}
	if err := s.send(ErrorMessage(message)); err != nil {
		h.Detach(s)
	}
}
