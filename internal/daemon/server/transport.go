package server

import (
	"fmt"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/sirupsen/logrus"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024
)

var (
	errTransportClosed = fmt.Errorf("observer connection closed")
	errQueueFull       = fmt.Errorf("observer send queue full")
)

// wsTransport queues messages for one websocket connection and writes them
// from a dedicated goroutine.
type wsTransport struct {
	conn   *websocket.Conn
	queue  chan hub.Message
	done   chan struct{}
	once   sync.Once
	logger *logrus.Entry
}

func newWSTransport(conn *websocket.Conn, queueSize int, logger *logrus.Entry) *wsTransport {
	return &wsTransport{
		conn:   conn,
		queue:  make(chan hub.Message, queueSize),
		done:   make(chan struct{}),
		logger: logger,
	}
}

// Send queues msg without blocking.
func (t *wsTransport) Send(msg hub.Message) error {
	select {
	case <-t.done:
		return errTransportClosed
	default:
	}
	select {
	case t.queue <- msg:
		return nil
	default:
		return errQueueFull
	}
}

// Close stops the writer, which closes the connection.
func (t *wsTransport) Close() error {
	t.once.Do(func() { close(t.done) })
	return nil
}

func (t *wsTransport) writeLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		t.conn.Close()
	}()

	for {
		select {
		case msg := <-t.queue:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteJSON(msg); err != nil {
				t.logger.WithError(err).Debug("Write failed")
				t.Close()
				return
			}
		case <-ticker.C:
			t.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := t.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				t.Close()
				return
			}
		case <-t.done:
			t.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			return
		}
	}
}
