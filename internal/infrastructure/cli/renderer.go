package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/doeshing/gensh/internal/domain"
	"github.com/doeshing/gensh/internal/ports"
)

// Renderer formats pipeline values as labelled blocks. Colors follow the
// capabilities of the writer it was built for; a pipe or buffer gets plain text.
type Renderer struct {
	label   lipgloss.Style
	command lipgloss.Style
	body    lipgloss.Style
	muted   lipgloss.Style
	levels  map[domain.RiskLevel]lipgloss.Style
}

// NewRenderer builds a renderer for w.
func NewRenderer(w io.Writer) *Renderer {
	r := lipgloss.NewRenderer(w)
	level := func(color string) lipgloss.Style {
		return r.NewStyle().Bold(true).Foreground(lipgloss.Color(color))
	}
	return &Renderer{
		label:   r.NewStyle().Bold(true).Foreground(lipgloss.Color("6")),
		command: r.NewStyle().Bold(true).PaddingLeft(2),
		body:    r.NewStyle().PaddingLeft(2),
		muted:   r.NewStyle().Faint(true),
		levels: map[domain.RiskLevel]lipgloss.Style{
			domain.RiskNone:     level("8"),
			domain.RiskLow:      level("2"),
			domain.RiskMedium:   level("3"),
			domain.RiskHigh:     level("1"),
			domain.RiskCritical: level("9"),
		},
	}
}

// CommandBlock renders the proposed command.
func (r *Renderer) CommandBlock(command string) string {
	if strings.TrimSpace(command) == "" {
		return r.label.Render("Command:") + "\n" + r.body.Render(r.muted.Render("(none)"))
	}
	return r.label.Render("Command:") + "\n" + r.command.Render(command)
}

// RiskBlock renders the risk level with the asserted confidence.
func (r *Renderer) RiskBlock(level domain.RiskLevel, confidence float64) string {
	style, ok := r.levels[level]
	if !ok {
		style = r.levels[domain.RiskLow]
	}
	return fmt.Sprintf("%s %s  %s",
		r.label.Render("Risk:"),
		style.Render(strings.ToUpper(string(level))),
		r.muted.Render(fmt.Sprintf("confidence %.2f", confidence)))
}

// NotesBlock renders free text. Empty notes render nothing.
func (r *Renderer) NotesBlock(notes string) string {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ""
	}
	return r.label.Render("Notes:") + "\n" + r.body.Render(notes)
}

// OutputBlock renders captured process output.
func (r *Renderer) OutputBlock(stdout, stderr string) string {
	var b strings.Builder
	if strings.TrimSpace(stdout) == "" && strings.TrimSpace(stderr) == "" {
		return r.label.Render("Output:") + "\n" + r.body.Render(r.muted.Render("(no output)"))
	}
	if stdout != "" {
		b.WriteString(r.label.Render("stdout:"))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(stdout, "\n"))
	}
	if stderr != "" {
		if b.Len() > 0 {
			b.WriteString("\n")
		}
		b.WriteString(r.label.Render("stderr:"))
		b.WriteString("\n")
		b.WriteString(strings.TrimRight(stderr, "\n"))
	}
	return b.String()
}

// Reasons renders a bullet list, one line per reason.
func (r *Renderer) Reasons(reasons []string) string {
	lines := make([]string, 0, len(reasons))
	for _, reason := range reasons {
		lines = append(lines, " - "+reason)
	}
	return strings.Join(lines, "\n")
}

// Warning renders a highlighted single-line message.
func (r *Renderer) Warning(msg string) string {
	return r.levels[domain.RiskMedium].Render(msg)
}

var _ ports.Renderer = (*Renderer)(nil)
