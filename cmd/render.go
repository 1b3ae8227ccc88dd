package cmd

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/grovetools/gcpd/pkg/models"
)

var (
	headerStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#FFA066"))
	activeStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#98BB6C"))
	inactiveStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#727169"))
	hashStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#957FB8"))
	failStyle     = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#E46876"))
	busyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#E6C384"))
)

const shortHashLen = 8

func shortHash(hash string) string {
	if len(hash) > shortHashLen {
		return hash[:shortHashLen]
	}
	return hash
}

// renderState formats a snapshot for the terminal.
func renderState(state models.State) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s %s", headerStyle.Render("base"), state.BaseBranch.Name)
	if state.BaseBranch.Commit.Hash != "" {
		fmt.Fprintf(&b, " %s %s", hashStyle.Render(shortHash(state.BaseBranch.Commit.Hash)), state.BaseBranch.Commit.Message)
	}
	b.WriteString("\n")

	target := state.TargetBranch
	fmt.Fprintf(&b, "%s %s", headerStyle.Render("target"), target.Name)
	switch {
	case target.Processing:
		b.WriteString(" " + busyStyle.Render("rebuilding"))
	case target.Error != nil:
		b.WriteString(" " + failStyle.Render("failed"))
	}
	if target.UpdatedAt != nil {
		fmt.Fprintf(&b, " (updated %s)", target.UpdatedAt.Local().Format(time.RFC3339))
	}
	b.WriteString("\n")
	if target.Error != nil {
		fmt.Fprintf(&b, "  %s\n", failStyle.Render(*target.Error))
	}
	for _, c := range target.Commits {
		fmt.Fprintf(&b, "  %s %s\n", hashStyle.Render(shortHash(c.Hash)), c.Message)
	}

	b.WriteString("\n" + headerStyle.Render("branches") + "\n")
	if len(state.Branches) == 0 {
		b.WriteString("  " + inactiveStyle.Render("none") + "\n")
	}
	for _, br := range state.Branches {
		marker, style := "[ ]", inactiveStyle
		if br.Active {
			marker, style = "[x]", activeStyle
		}
		fmt.Fprintf(&b, "  %s %s %s\n", style.Render(marker), br.Name,
			inactiveStyle.Render(fmt.Sprintf("%d ahead", len(br.Commits))))
	}

	if state.Terminal.Running() {
		cmdline := *state.Terminal.Command
		if len(state.Terminal.Args) > 0 {
			cmdline += " " + strings.Join(state.Terminal.Args, " ")
		}
		fmt.Fprintf(&b, "\n%s %s\n", headerStyle.Render("running"), cmdline)
	}
	return b.String()
}
