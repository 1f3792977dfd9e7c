package ui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jesspatton/lazyexplorer/platform"
	"github.com/jesspatton/lazyexplorer/testobject"
)

func (m Model) renderHelp() string {
	title := titleStyle.Render("HELP")
	helpView := m.help.View(m.keys)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		paneStyle.Render(fmt.Sprintf("%s\n\n%s", title, helpView)),
	)
}

func (m Model) renderFooter() string {
	state := m.engine.State

	var status string
	if state.Discovering {
		status = fmt.Sprintf("%s discovering %d source(s)", m.spinner.View(), len(state.Running))
	} else {
		counts := state.Counts()
		status = fmt.Sprintf("%d tests · %s %d · %s %d",
			len(state.Results),
			passStyle.Render("passed"), counts[testobject.OutcomePassed],
			errorStyle.Render("failed"), counts[testobject.OutcomeFailed],
		)
		if state.LastAborted {
			status += " · " + warnStyle.Render("last run aborted")
		}
	}

	return lipgloss.JoinHorizontal(lipgloss.Top,
		statusStyle.Render(status),
		m.help.ShortHelpView(m.keys.ShortHelp()),
	)
}

// renderDetails describes the selected node, followed by the message log.
func (m Model) renderDetails() string {
	var b strings.Builder

	if n := m.selected(); n != nil {
		if n.Result != nil {
			writeTest(&b, n.Result)
		} else {
			writeField(&b, "path", n.Path)
			tests := n.Tests()
			writeField(&b, "tests", fmt.Sprint(len(tests)))
		}
	}

	state := m.engine.State
	if len(state.Messages) > 0 {
		b.WriteString("\n" + titleStyle.Render("MESSAGES") + "\n")
		for _, msg := range state.Messages {
			b.WriteString(levelStyle(msg.Level).Render(
				fmt.Sprintf("%s %-5s %s", msg.Time.Format("15:04:05"), msg.Level, msg.Text),
			) + "\n")
		}
	}
	return b.String()
}

func writeTest(b *strings.Builder, r *testobject.TestResult) {
	tc := r.TestCase()
	writeField(b, "name", tc.DisplayName())
	writeField(b, "fqn", tc.FullyQualifiedName())
	writeField(b, "source", tc.Source())
	if tc.CodeFilePath() != "" {
		writeField(b, "file", fmt.Sprintf("%s:%d", tc.CodeFilePath(), tc.LineNumber()))
	}
	writeField(b, "executor", tc.ExecutorURI())
	for _, t := range tc.Traits() {
		writeField(b, "trait", t.Name+"="+t.Value)
	}
	writeField(b, "outcome", outcomeIcon(r.Outcome())+" "+r.Outcome().String())
	if r.Duration() > 0 {
		writeField(b, "duration", r.Duration().String())
	}
	if r.ErrorMessage() != "" {
		writeField(b, "error", r.ErrorMessage())
	}
}

func writeField(b *strings.Builder, label, value string) {
	b.WriteString(labelStyle.Render(fmt.Sprintf("%-9s", label)) + " " + value + "\n")
}

func levelStyle(l platform.MessageLevel) lipgloss.Style {
	switch l {
	case platform.Warning:
		return warnStyle
	case platform.Error:
		return errorStyle
	default:
		return infoStyle
	}
}
