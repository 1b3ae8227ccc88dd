package hub

import (
	"encoding/json"

	"github.com/grovetools/gcpd/pkg/models"
)

// Action names accepted from observers.
const (
	ActionActivateBranch = "ActivateBranch"
	ActionRecheck        = "Recheck"
	ActionInputTerminal  = "InputTerminal"
)

// Message is a server to observer message. Exactly one field is set.
type Message struct {
	State          *models.State          `json:"state,omitempty"`
	Error          *ErrorPayload          `json:"error,omitempty"`
	TerminalOutput *TerminalOutputPayload `json:"terminalOutput,omitempty"`
}

type ErrorPayload struct {
	Message string `json:"message"`
}

type TerminalOutputPayload struct {
	DataString string `json:"dataString"`
}

// Action is an observer to server message.
type Action struct {
	Name       string          `json:"name"`
	Parameters json.RawMessage `json:"parameters,omitempty"`
}

type ActivateBranchParams struct {
	BranchName string `json:"branchName"`
}

type InputTerminalParams struct {
	DataString string `json:"dataString"`
}

// StateMessage wraps a snapshot.
func StateMessage(state models.State) Message {
	return Message{State: &state}
}

// ErrorMessage wraps an error notification.
func ErrorMessage(message string) Message {
	return Message{Error: &ErrorPayload{Message: message}}
}

// OutputMessage wraps a chunk of terminal output.
func OutputMessage(data []byte) Message {
	return Message{TerminalOutput: &TerminalOutputPayload{DataString: string(data)}}
}

// NewAction builds an action with JSON-encoded parameters. A nil params
// value produces an action without parameters.
func NewAction(name string, params interface{}) (Action, error) {
	a := Action{Name: name}
	if params == nil {
		return a, nil
	}
	raw, err := json.Marshal(params)
	if err != nil {
		return Action{}, err
	}
	a.Parameters = raw
	return a, nil
}

func decodeParams(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	return json.Unmarshal(raw, v)
}
