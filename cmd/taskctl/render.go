package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/BuzzLyutic/personal-tasks/internal/model"
	"github.com/BuzzLyutic/personal-tasks/pkg/client"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	idStyle     = lipgloss.NewStyle().Faint(true)
	doneStyle   = lipgloss.NewStyle().Strikethrough(true).Faint(true)
	emptyStyle  = lipgloss.NewStyle().Italic(true).Faint(true)
	dueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("6"))

	priorityStyles = map[model.Priority]lipgloss.Style{
		model.PriorityLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("2")),
		model.PriorityMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("3")),
		model.PriorityHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("1")).Bold(true),
	}
)

// render draws the visible tasks and the progress line. It reads only the
// board, so calling it after any change gives a consistent picture.
func render(out io.Writer, b *client.Board) {
	fmt.Fprintln(out, headerStyle.Render(fmt.Sprintf("Tasks (%s)", b.Filter())))

	visible := b.Visible()
	if len(visible) == 0 {
		fmt.Fprintln(out, emptyStyle.Render("  No tasks found. Start by adding a new task!"))
	}
	for _, t := range visible {
		fmt.Fprintln(out, renderTask(t, b.ShortID(t.ID)))
	}
	fmt.Fprintln(out)
	fmt.Fprintln(out, renderProgress(b.Progress()))
}

// renderTask draws one task under the given display id.
func renderTask(t model.Task, id string) string {
	box := "[ ]"
	title := t.Title
	if t.Completed {
		box = "[x]"
		title = doneStyle.Render(title)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "  %s %s %s %s", box, idStyle.Render(id), title, priorityStyles[t.Priority].Render(string(t.Priority)))
	if t.DueDate != nil {
		b.WriteString(" " + dueStyle.Render("due "+t.DueDate.Format("2006-01-02")))
	}
	if t.Description != "" {
		b.WriteString("\n      " + idStyle.Render(t.Description))
	}
	return b.String()
}

func renderProgress(p client.Progress) string {
	const width = 20
	filled := p.Percent * width / 100
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return bar + " " + p.String()
}
