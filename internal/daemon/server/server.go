// Package server exposes the hub to observers over HTTP and websockets.
package server

import (
	"context"
	"encoding/json"
	"net"
	"net/http"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/grovetools/gcpd/logging"
	"github.com/sirupsen/logrus"
)

// DefaultQueueSize is the number of outbound messages buffered per observer.
const DefaultQueueSize = 256

// Checker requests reconciliation passes.
type Checker interface {
	RequestCheck()
}

// Options configures a Server.
type Options struct {
	// StaticDir is served at / when set.
	StaticDir string
	QueueSize int
}

// RunningInfo describes the daemon for /api/info.
type RunningInfo struct {
	Repository   string    `json:"repository"`
	TargetBranch string    `json:"target_branch"`
	BaseBranch   string    `json:"base_branch"`
	Remote       string    `json:"remote"`
	StartedAt    time.Time `json:"started_at"`
}

// Server serves observer connections.
type Server struct {
	logger   *logrus.Entry
	hub      *hub.Hub
	checker  Checker
	opts     Options
	upgrader websocket.Upgrader
	server   *http.Server
	info     atomic.Pointer[RunningInfo]
}

// New creates a Server.
func New(h *hub.Hub, checker Checker, opts Options) *Server {
	if opts.QueueSize <= 0 {
		opts.QueueSize = DefaultQueueSize
	}
	return &Server{
		logger:  logging.NewLogger("server"),
		hub:     h,
		checker: checker,
		opts:    opts,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
	}
}

// SetRunningInfo sets the description returned by /api/info.
func (s *Server) SetRunningInfo(info *RunningInfo) {
	s.info.Store(info)
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	mux.HandleFunc("/ws", s.handleWebSocket)
	mux.HandleFunc("/api/state", s.handleGetState)
	mux.HandleFunc("/api/recheck", s.handleRecheck)
	mux.HandleFunc("/api/info", s.handleGetInfo)

	if s.opts.StaticDir != "" {
		mux.Handle("/", http.FileServer(http.Dir(s.opts.StaticDir)))
	}
	return mux
}

// ListenAndServe listens on addr and serves until Shutdown.
func (s *Server) ListenAndServe(addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return err
	}
	return s.Serve(listener)
}

// Serve serves on an existing listener.
func (s *Server) Serve(listener net.Listener) error {
	s.server = &http.Server{
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.logger.WithField("addr", listener.Addr().String()).Info("Listening for observers")
	err := s.server.Serve(listener)
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("Shutting down server...")
	if s.server != nil {
		return s.server.Shutdown(ctx)
	}
	return nil
}

// handleWebSocket attaches the connection as a session, requests a pass and
// dispatches actions until the observer goes away.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.WithError(err).Debug("Websocket upgrade failed")
		return
	}
	conn.SetReadLimit(maxMessageSize)
	conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	logger := s.logger.WithField("remote", r.RemoteAddr)
	transport := newWSTransport(conn, s.opts.QueueSize, logger)
	go transport.writeLoop()

	session := s.hub.Attach(transport)
	defer s.hub.Detach(session)
	s.checker.RequestCheck()

	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				logger.WithError(err).Debug("Observer connection lost")
			}
			return
		}

		var action hub.Action
		if err := json.Unmarshal(data, &action); err != nil {
			logger.WithError(err).Debug("Ignoring malformed action")
			continue
		}
		s.hub.Dispatch(action, session)
	}
}

// handleGetState returns the current snapshot as JSON.
func (s *Server) handleGetState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(s.hub.Snapshot())
}

// handleRecheck requests a reconciliation pass.
func (s *Server) handleRecheck(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	s.checker.RequestCheck()
	w.WriteHeader(http.StatusAccepted)
	json.NewEncoder(w).Encode(map[string]bool{"requested": true})
}

// handleGetInfo returns the running daemon description.
func (s *Server) handleGetInfo(w http.ResponseWriter, r *http.Request) {
	info := s.info.Load()
	if info == nil {
		http.Error(w, "info not initialized", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(info)
}
