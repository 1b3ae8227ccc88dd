package models

// TerminalState describes the process currently attached to the shared
// terminal. All fields are nil when nothing is running.
type TerminalState struct {
	Command *string  `json:"command"`
	Args    []string `json:"args"`
	Cwd     *string  `json:"cwd"`
}

// Running reports whether a process is attached.
func (t TerminalState) Running() bool {
	return t.Command != nil
}

// State is the full snapshot sent to observers.
type State struct {
	Branches     []Branch      `json:"branches"`
	BaseBranch   BaseBranch    `json:"baseBranch"`
	TargetBranch TargetBranch  `json:"targetBranch"`
	Terminal     TerminalState `json:"terminal"`
}
