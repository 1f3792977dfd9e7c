package ui

import (
	"fmt"
	"slices"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/jesspatton/lazyexplorer/explorer"
	"github.com/jesspatton/lazyexplorer/testobject"
)

func (m Model) renderExplorer(paneWidth, paneHeight int) string {
	var explorerView strings.Builder

	// Render Tabs
	activeTabStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlight).
		Padding(0, 1).
		Foreground(highlight)

	inactiveTabStyle := lipgloss.NewStyle().
		Border(lipgloss.HiddenBorder()).
		BorderForeground(subtle).
		Padding(0, 1).
		Foreground(subtle)

	var explorerTab, sourcesTab string
	if m.activeTab == TabExplorer {
		explorerTab = activeTabStyle.Render("Explorer")
		sourcesTab = inactiveTabStyle.Render("Sources")
	} else {
		explorerTab = inactiveTabStyle.Render("Explorer")
		sourcesTab = activeTabStyle.Render("Sources")
	}

	tabs := lipgloss.JoinHorizontal(lipgloss.Bottom, explorerTab, sourcesTab)
	explorerView.WriteString(tabs + "\n\n")

	// Available height for the list
	treeHeight := paneHeight
	if (m.searchMode && m.activeTab == TabExplorer) || m.addMode {
		treeHeight -= 3 // 1 line text + 2 lines border
	}

	state := m.engine.State
	if m.activeTab == TabExplorer {
		if len(m.flatNodes) == 0 {
			if state.Discovering {
				explorerView.WriteString("Discovering...")
			} else {
				explorerView.WriteString("No tests.\nPress 'a' to add a source.")
			}
		} else {
			start, end := visibleRange(m.cursor, len(m.flatNodes), treeHeight)
			for i := start; i < end; i++ {
				m.renderNode(&explorerView, m.flatNodes[i], i)
			}
		}
	} else {
		if len(state.Sources) == 0 {
			explorerView.WriteString("No sources.\nPress 'a' to add one.")
		} else {
			start, end := visibleRange(m.sourceCursor, len(state.Sources), treeHeight)
			for i := start; i < end; i++ {
				path := state.Sources[i]

				cursor := " "
				if m.sourceCursor == i {
					cursor = ">"
				}
				icon := "📦"
				if slices.Contains(state.Running, path) {
					icon = "⏳"
				}

				line := fmt.Sprintf("%s %s %s", cursor, icon, path)
				if m.sourceCursor == i {
					explorerView.WriteString(lipgloss.NewStyle().Foreground(highlight).Render(line) + "\n")
				} else {
					explorerView.WriteString(line + "\n")
				}
			}
		}
	}

	// Fill remaining space to push the input bar to the bottom
	currentView := explorerView.String()
	currentHeight := lipgloss.Height(currentView)
	if currentHeight < treeHeight {
		currentView += strings.Repeat("\n", treeHeight-currentHeight)
	}

	inputStyle := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(highlight).
		Width(paneWidth - 4) // Account for border width

	switch {
	case m.addMode:
		currentView += inputStyle.Render(m.addInput.View())
	case m.searchMode && m.activeTab == TabExplorer:
		searchContent := m.searchInput.View()
		if !m.searchFocus {
			hints := "n: next • N: prev • Esc: exit"
			hintsStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("240"))

			availableWidth := paneWidth - 6 // -4 for outer margin, -2 for border
			contentWidth := lipgloss.Width(searchContent)
			hintsWidth := lipgloss.Width(hints)

			if contentWidth+hintsWidth+1 < availableWidth {
				padding := strings.Repeat(" ", availableWidth-contentWidth-hintsWidth)
				searchContent += padding + hintsStyle.Render(hints)
			}
		}
		currentView += inputStyle.Render(searchContent)
	}

	explorerStyle := paneStyle
	if m.activePane == PaneExplorer {
		explorerStyle = activePaneStyle
	}

	return explorerStyle.
		Width(paneWidth).
		Height(paneHeight).
		Render(currentView)
}

// visibleRange returns the window of a list of n rows that keeps cursor
// centred in height rows.
func visibleRange(cursor, n, height int) (int, int) {
	start := 0
	end := n

	if n > height {
		if cursor < height/2 {
			start = 0
			end = height
		} else if cursor > n-height/2 {
			start = n - height
			end = n
		} else {
			start = cursor - height/2
			end = cursor + height/2
		}
	}
	return start, end
}

func (m Model) renderNode(b *strings.Builder, node DisplayNode, index int) {
	cursor := " "
	if m.cursor == index {
		cursor = ">"
	}

	indent := strings.Repeat("  ", node.Depth)
	icon := m.getNodeIcon(node.Node)

	name := node.DisplayName
	// Highlight search matches
	if m.searchMode && m.searchInput.Value() != "" {
		name = highlightMatches(name, m.searchInput.Value())
	}

	line := fmt.Sprintf("%s %s%s %s", cursor, indent, icon, name)

	if m.cursor == index {
		b.WriteString(lipgloss.NewStyle().Foreground(highlight).Render(line) + "\n")
	} else {
		b.WriteString(line + "\n")
	}
}

func highlightMatches(name, query string) string {
	lowerName := strings.ToLower(name)
	lowerQuery := strings.ToLower(query)
	if !strings.Contains(lowerName, lowerQuery) {
		return name
	}

	var sb strings.Builder
	lastIdx := 0
	for {
		idx := strings.Index(lowerName[lastIdx:], lowerQuery)
		if idx == -1 {
			sb.WriteString(name[lastIdx:])
			break
		}
		idx += lastIdx
		sb.WriteString(name[lastIdx:idx])
		sb.WriteString(lipgloss.NewStyle().Background(lipgloss.Color("212")).Foreground(lipgloss.Color("0")).Render(name[idx : idx+len(lowerQuery)]))
		lastIdx = idx + len(lowerQuery)
	}
	return sb.String()
}

func (m Model) getNodeIcon(node *explorer.Node) string {
	switch node.Kind {
	case explorer.NodeSource:
		if slices.Contains(m.engine.State.Running, node.Path) {
			return "⏳"
		}
		return "📦"
	case explorer.NodeDir:
		return "📁"
	case explorer.NodeFile:
		return "📄"
	case explorer.NodeTest:
		return outcomeIcon(node.Result.Outcome())
	}
	return " "
}

func outcomeIcon(o testobject.Outcome) string {
	switch o {
	case testobject.OutcomePassed:
		return "✅"
	case testobject.OutcomeFailed:
		return "❌"
	case testobject.OutcomeSkipped:
		return "⏭"
	case testobject.OutcomeNotFound:
		return "❓"
	default:
		return "🧪"
	}
}
