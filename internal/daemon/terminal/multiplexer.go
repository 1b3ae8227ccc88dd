// Package terminal runs external processes one at a time on a shared
// pseudo-terminal whose output is streamed to observers.
package terminal

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/creack/pty"
	"github.com/grovetools/gcpd/errors"
	"github.com/grovetools/gcpd/logging"
	"github.com/grovetools/gcpd/pkg/models"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const (
	DefaultName        = "xterm-color"
	DefaultCols        = 80
	DefaultRows        = 30
	DefaultReplayBytes = 1024 * 1024

	readChunkSize = 32 * 1024
	// drainTimeout bounds how long output is read after the process exits,
	// in case a background child keeps the terminal open.
	drainTimeout = 2 * time.Second
)

// Observer receives terminal events. TerminalOutput is called with the
// multiplexer lock held and must not call back into the Multiplexer.
type Observer interface {
	TerminalOutput(data []byte)
	TerminalChanged()
}

// Options configures the pseudo-terminal.
type Options struct {
	Name        string
	Cols        uint16
	Rows        uint16
	ReplayBytes int
}

func (o Options) withDefaults() Options {
	if o.Name == "" {
		o.Name = DefaultName
	}
	if o.Cols == 0 {
		o.Cols = DefaultCols
	}
	if o.Rows == 0 {
		o.Rows = DefaultRows
	}
	if o.ReplayBytes <= 0 {
		o.ReplayBytes = DefaultReplayBytes
	}
	return o
}

// ExitError reports a process that exited with a non-zero code.
type ExitError struct {
	Command string
	Code    int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("%s exited with: %d", e.Command, e.Code)
}

// Multiplexer owns the single execution slot. Runs are serialized; a run
// requested while another is in progress waits for the slot.
type Multiplexer struct {
	opts   Options
	slot   *semaphore.Weighted
	logger *logrus.Entry

	mu       sync.Mutex
	state    models.TerminalState
	ptmx     *os.File
	replay   *ringBuffer
	observer Observer
}

// New creates an idle Multiplexer.
func New(opts Options) *Multiplexer {
	opts = opts.withDefaults()
	return &Multiplexer{
		opts:     opts,
		slot:     semaphore.NewWeighted(1),
		logger:   logging.NewLogger("terminal"),
		replay:   newRingBuffer(opts.ReplayBytes),
		observer: nopObserver{},
	}
}

// SetObserver registers the receiver of output and state changes.
func (m *Multiplexer) SetObserver(o Observer) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o == nil {
		o = nopObserver{}
	}
	m.observer = o
}

// Run executes name with args in dir on the shared terminal and waits for
// it to exit. ctx only bounds the wait for the slot; a started process
// always runs to completion.
func (m *Multiplexer) Run(ctx context.Context, name string, args []string, dir string) error {
	if err := m.slot.Acquire(ctx, 1); err != nil {
		return err
	}
	defer m.slot.Release(1)

	cmd := exec.Command(name, args...)
	cmd.Dir = dir
	cmd.Env = append(os.Environ(), "TERM="+m.opts.Name)

	ptmx, err := pty.StartWithSize(cmd, &pty.Winsize{Rows: m.opts.Rows, Cols: m.opts.Cols})
	if err != nil {
		return errors.CommandFailed(commandLine(name, args), err)
	}

	logger := m.logger.WithFields(logrus.Fields{
		"command": name,
		"args":    args,
		"cwd":     dir,
	})
	logger.Debug("Process started")

	m.mu.Lock()
	m.replay.Reset()
	m.ptmx = ptmx
	m.state = models.TerminalState{
		Command: &name,
		Args:    append([]string{}, args...),
		Cwd:     &dir,
	}
	m.emitLocked([]byte(fmt.Sprintf("\r\n%s> %s\r\n", dir, commandLine(name, args))))
	observer := m.observer
	m.mu.Unlock()
	observer.TerminalChanged()

	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		m.pump(ptmx)
	}()

	waitErr := cmd.Wait()
	select {
	case <-readDone:
	case <-time.After(drainTimeout):
		logger.Warn("Terminal still open after exit; closing")
	}
	ptmx.Close()
	<-readDone

	code := 0
	if cmd.ProcessState != nil {
		code = cmd.ProcessState.ExitCode()
	} else if waitErr != nil {
		code = -1
	}

	m.mu.Lock()
	m.emitLocked([]byte(fmt.Sprintf("\r\n%s> %s exited with: %d\r\n", dir, name, code)))
	m.ptmx = nil
	m.state = models.TerminalState{}
	observer = m.observer
	m.mu.Unlock()
	observer.TerminalChanged()

	logger.WithField("exit_code", code).Debug("Process exited")
	if code != 0 {
		return &ExitError{Command: name, Code: code}
	}
	return nil
}

func (m *Multiplexer) pump(ptmx *os.File) {
	buf := make([]byte, readChunkSize)
	for {
		n, err := ptmx.Read(buf)
		if n > 0 {
			m.mu.Lock()
			m.emitLocked(buf[:n])
			m.mu.Unlock()
		}
		if err != nil {
			return
		}
	}
}

// emitLocked records data for replay and forwards a copy to the observer.
func (m *Multiplexer) emitLocked(data []byte) {
	m.replay.Write(data)
	chunk := make([]byte, len(data))
	copy(chunk, data)
	m.observer.TerminalOutput(chunk)
}

// SendInput writes data to the running process. It is a no-op when idle.
func (m *Multiplexer) SendInput(data []byte) error {
	m.mu.Lock()
	ptmx := m.ptmx
	m.mu.Unlock()
	if ptmx == nil {
		return nil
	}
	// The pump needs the lock to drain output while this write blocks.
	if _, err := ptmx.Write(data); err != nil {
		return errors.Wrap(err, errors.ErrCodeInternal, "failed to write terminal input")
	}
	return nil
}

// Info returns the current terminal state.
func (m *Multiplexer) Info() models.TerminalState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copyState(m.state)
}

// Replay calls fn with the terminal state and the output of the current
// run. No output is emitted while fn runs, so a caller that subscribes to
// output inside fn sees every byte exactly once.
func (m *Multiplexer) Replay(fn func(state models.TerminalState, output []byte)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var output []byte
	if m.state.Running() {
		output = m.replay.Bytes()
	}
	fn(copyState(m.state), output)
}

func copyState(s models.TerminalState) models.TerminalState {
	if s.Args != nil {
		s.Args = append([]string{}, s.Args...)
	}
	return s
}

func commandLine(name string, args []string) string {
	return strings.TrimSpace(name + " " + strings.Join(args, " "))
}

type nopObserver struct{}

func (nopObserver) TerminalOutput([]byte) {}
func (nopObserver) TerminalChanged()      {}
