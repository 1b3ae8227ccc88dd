package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/gorilla/websocket"
	"github.com/grovetools/gcpd/internal/daemon/hub"
	"github.com/spf13/cobra"
	"golang.org/x/term"
)

// detachKey is Ctrl-] as in telnet.
const detachKey = 0x1d

// NewAttachCmd streams the daemon's terminal and forwards keystrokes to it.
func NewAttachCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "attach",
		Short: "Attach to the terminal of a running gcpd",
		Long: `Follow the git operations of a running gcpd as they happen. Keystrokes are
sent to the running process, so conflicts can be resolved interactively.
Press Ctrl-] to detach.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			c, err := clientFor(cmd)
			if err != nil {
				return err
			}
			conn, err := c.Dial(cmd.Context())
			if err != nil {
				return err
			}
			defer conn.Close()

			stdin := int(os.Stdin.Fd())
			if term.IsTerminal(stdin) {
				oldState, err := term.MakeRaw(stdin)
				if err != nil {
					return fmt.Errorf("failed to set raw mode: %w", err)
				}
				defer term.Restore(stdin, oldState)
			}

			w := &syncWriter{conn: conn}
			done := make(chan error, 2)
			go func() { done <- pumpOutput(conn, cmd.OutOrStdout(), cmd.ErrOrStderr()) }()
			go func() { done <- pumpInput(w, os.Stdin) }()

			err = <-done
			w.Close()
			if err == io.EOF || websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				return nil
			}
			return err
		},
	}
	addFlagAddr(cmd)
	return cmd
}

// pumpOutput writes terminal output to out and status lines to status until
// the connection closes.
func pumpOutput(conn *websocket.Conn, out, status io.Writer) error {
	var running bool
	for {
		var msg hub.Message
		if err := conn.ReadJSON(&msg); err != nil {
			return err
		}
		switch {
		case msg.TerminalOutput != nil:
			io.WriteString(out, msg.TerminalOutput.DataString)
		case msg.Error != nil:
			fmt.Fprintf(status, "\r\ngcpd: %s\r\n", msg.Error.Message)
		case msg.State != nil:
			if now := msg.State.Terminal.Running(); now != running {
				running = now
				if !running {
					fmt.Fprintf(status, "\r\n[idle]\r\n")
				}
			}
		}
	}
}

// pumpInput forwards keystrokes until the detach key or end of input.
func pumpInput(conn jsonWriter, in io.Reader) error {
	buf := make([]byte, 1024)
	for {
		n, err := in.Read(buf)
		if n > 0 {
			data := buf[:n]
			detach := false
			for i, b := range data {
				if b == detachKey {
					data, detach = data[:i], true
					break
				}
			}
			if len(data) > 0 {
				if err := sendAction(conn, hub.ActionInputTerminal, hub.InputTerminalParams{DataString: string(data)}); err != nil {
					return err
				}
			}
			if detach {
				return io.EOF
			}
		}
		if err != nil {
			return err
		}
	}
}
