package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/grovetools/gcpd/cli"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/spf13/cobra"
)

const clientTimeout = 10 * time.Second

// client talks to a running gcpd over HTTP and the observer websocket.
type client struct {
	addr string
	http *http.Client
}

func newClient(addr string) *client {
	return &client{
		addr: addr,
		http: &http.Client{Timeout: clientTimeout},
	}
}

// addFlagAddr registers --addr on an observer command.
func addFlagAddr(cmd *cobra.Command) {
	cmd.Flags().String("addr", "", "host:port of the running gcpd (default from config)")
}

// clientFor resolves --addr, falling back to the configured bind address.
func clientFor(cmd *cobra.Command) (*client, error) {
	addr, _ := cmd.Flags().GetString("addr")
	if addr != "" {
		return newClient(addr), nil
	}
	cfg, err := cli.LoadConfig(cmd)
	if err != nil {
		return nil, err
	}
	return newClient(net.JoinHostPort(cfg.Server.Bind, strconv.Itoa(cfg.Server.Port))), nil
}

func (c *client) url(scheme, path string) string {
	return (&url.URL{Scheme: scheme, Host: c.addr, Path: path}).String()
}

// State fetches the current snapshot.
func (c *client) State(ctx context.Context) (models.State, error) {
	var state models.State
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url("http", "/api/state"), nil)
	if err != nil {
		return state, err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return state, fmt.Errorf("failed to reach gcpd at %s: %w", c.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return state, fmt.Errorf("unexpected status from gcpd: %s", resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(&state); err != nil {
		return state, fmt.Errorf("failed to decode state: %w", err)
	}
	return state, nil
}

// Recheck requests a reconciliation pass.
func (c *client) Recheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url("http", "/api/recheck"), nil)
	if err != nil {
		return err
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("failed to reach gcpd at %s: %w", c.addr, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusAccepted {
		return fmt.Errorf("unexpected status from gcpd: %s", resp.Status)
	}
	return nil
}

// Dial opens an observer session.
func (c *client) Dial(ctx context.Context) (*websocket.Conn, error) {
	dialer := websocket.Dialer{HandshakeTimeout: clientTimeout}
	conn, _, err := dialer.DialContext(ctx, c.url("ws", "/ws"), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to gcpd at %s: %w", c.addr, err)
	}
	return conn, nil
}

// jsonWriter is the write side of an observer connection.
type jsonWriter interface {
	WriteJSON(v interface{}) error
}

// syncWriter serializes writes to a connection shared by goroutines.
type syncWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *syncWriter) WriteJSON(v interface{}) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(v)
}

// Close sends a close frame.
func (w *syncWriter) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
}

// sendAction writes one action to an observer session.
func sendAction(conn jsonWriter, name string, params interface{}) error {
	action, err := hub.NewAction(name, params)
	if err != nil {
		return err
	}
	return conn.WriteJSON(action)
}

// readState reads messages until a state snapshot arrives. Error
// notifications are written to errOut.
func readState(conn *websocket.Conn, errOut io.Writer) (models.State, error) {
	for {
		var msg hub.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return models.State{}, err
		}
		switch {
		case msg.State != nil:
			return *msg.State, nil
		case msg.Error != nil:
			fmt.Fprintf(errOut, "gcpd: %s\n", msg.Error.Message)
		}
	}
}
