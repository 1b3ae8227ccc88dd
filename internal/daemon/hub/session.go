package hub

import (
	"sync"

	"github.com/google/uuid"
	"github.com/grovetools/gcpd/pkg/models"
)

// Transport delivers messages to one observer. Send must not block for
// long; implementations queue and report an error when they cannot.
type Transport interface {
	Send(msg Message) error
	Close() error
}

// Session is one attached observer.
type Session struct {
	ID        string
	transport Transport

	mu   sync.Mutex
	last *models.State
}

func newSession(t Transport) *Session {
	return &Session{
		ID:        uuid.NewString(),
		transport: t,
	}
}

func (s *Session) send(msg Message) error {
	if msg.State != nil {
		s.mu.Lock()
		s.last = msg.State
		s.mu.Unlock()
	}
	return s.transport.Send(msg)
}

// LastState returns the snapshot most recently sent to this session.
func (s *Session) LastState() *models.State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}
