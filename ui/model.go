// Package ui is the Bubble Tea terminal view of the test explorer.
package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/jesspatton/lazyexplorer/explorer"
)

// Pane represents a distinct section of the UI.
type Pane int

const (
	// PaneExplorer is the test tree pane.
	PaneExplorer Pane = iota
	// PaneDetails is the details and messages pane.
	PaneDetails
)

// LeftTab represents the active tab in the left pane.
type LeftTab int

const (
	// TabExplorer is the test tree tab.
	TabExplorer LeftTab = iota
	// TabSources is the tracked sources tab.
	TabSources
)

// Model represents the application state for the Bubbletea program.
type Model struct {
	// UI State
	activePane Pane
	width      int
	height     int
	ready      bool
	showHelp   bool
	cursor     int
	viewport   viewport.Model

	// Tab State
	activeTab    LeftTab
	sourceCursor int

	// Search State
	searchMode        bool
	searchFocus       bool
	searchInput       textinput.Model
	searchMatches     []int
	currentMatchIndex int

	// Add Source State
	addMode  bool
	addInput textinput.Model

	// Components
	keys    KeyMap
	help    help.Model
	spinner spinner.Model

	// Data / Dependencies
	engine    *explorer.Engine
	initial   []string
	flatNodes []DisplayNode
}

// NewModel creates a Model over e that adds sources on start.
func NewModel(e *explorer.Engine, sources ...string) Model {
	h := help.New()
	h.Styles.ShortKey = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#A0A0A0"})
	h.Styles.ShortDesc = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B0B0B0", Dark: "#808080"})
	h.Styles.ShortSeparator = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#606060"})
	h.Styles.FullKey = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#909090", Dark: "#A0A0A0"})
	h.Styles.FullDesc = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#B0B0B0", Dark: "#808080"})
	h.Styles.FullSeparator = lipgloss.NewStyle().Foreground(lipgloss.AdaptiveColor{Light: "#D0D0D0", Dark: "#606060"})

	ti := textinput.New()
	ti.Placeholder = "Search..."
	ti.Prompt = "/"
	ti.CharLimit = 156
	ti.Width = 20

	add := textinput.New()
	add.Placeholder = "path/to/package"
	add.Prompt = "add: "
	add.CharLimit = 1024

	sp := spinner.New()
	sp.Spinner = spinner.MiniDot
	sp.Style = lipgloss.NewStyle().Foreground(highlight)

	return Model{
		activePane:  PaneExplorer,
		keys:        NewKeyMap(),
		help:        h,
		spinner:     sp,
		searchInput: ti,
		addInput:    add,
		engine:      e,
		initial:     sources,
	}
}

// Init initializes the Bubbletea program.
func (m Model) Init() tea.Cmd {
	return tea.Batch(
		m.engine.Init(m.initial...),
		m.spinner.Tick,
	)
}

// Update handles incoming messages and updates the model state.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd

	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

		// Width: (Total / 2) - Border(2) - Padding(2)
		paneWidth := (m.width / 2) - 4
		// Height: Total - Footer - Border, with two lines of margin
		paneHeight := m.height - 5
		// The pane title takes two lines.
		viewportHeight := paneHeight - 2

		if !m.ready {
			m.viewport = viewport.New(paneWidth, viewportHeight)
			m.ready = true
		} else {
			m.viewport.Width = paneWidth
			m.viewport.Height = viewportHeight
		}
		m.refreshDetails()
		return m, nil

	case spinner.TickMsg:
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case explorer.ChangeMsg, explorer.DiscoveryStartedMsg, explorer.DiscoveryFinishedMsg,
		explorer.LogMsg, explorer.ActionDoneMsg, explorer.WatcherReadyMsg,
		explorer.WatcherFailedMsg, explorer.WatcherMsg:
		cmd = m.engine.Update(msg)
		m.syncTree()
		return m, cmd
	}

	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.addMode {
		switch {
		case key.Matches(msg, m.keys.ExitSearch):
			m.addMode = false
			m.addInput.Blur()
			m.addInput.Reset()
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			path := strings.TrimSpace(m.addInput.Value())
			m.addMode = false
			m.addInput.Blur()
			m.addInput.Reset()
			if path == "" {
				return m, nil
			}
			return m, m.engine.AddSource(path)
		default:
			var cmd tea.Cmd
			m.addInput, cmd = m.addInput.Update(msg)
			return m, cmd
		}
	}

	// Global keys are off while searching so they can be typed.
	if !m.searchMode {
		switch {
		case key.Matches(msg, m.keys.Quit):
			m.engine.Close()
			return m, tea.Quit
		case key.Matches(msg, m.keys.Help):
			m.showHelp = !m.showHelp
			return m, nil
		case key.Matches(msg, m.keys.Tab):
			if m.activePane == PaneExplorer {
				m.activePane = PaneDetails
			} else {
				m.activePane = PaneExplorer
			}
			return m, nil
		case key.Matches(msg, m.keys.NextTab), key.Matches(msg, m.keys.PrevTab):
			if m.activePane == PaneExplorer {
				if m.activeTab == TabExplorer {
					m.activeTab = TabSources
				} else {
					m.activeTab = TabExplorer
				}
			}
			return m, nil
		case key.Matches(msg, m.keys.Add):
			m.addMode = true
			m.addInput.Focus()
			return m, textinput.Blink
		case key.Matches(msg, m.keys.RefreshAll):
			return m, m.engine.Refresh()
		case key.Matches(msg, m.keys.Cancel):
			m.engine.Cancel()
			return m, nil
		}
	}

	if m.activePane == PaneDetails {
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return m, cmd
	}

	if m.activeTab == TabSources {
		sources := m.engine.State.Sources
		switch {
		case key.Matches(msg, m.keys.Up):
			if m.sourceCursor > 0 {
				m.sourceCursor--
			}
		case key.Matches(msg, m.keys.Down):
			if m.sourceCursor < len(sources)-1 {
				m.sourceCursor++
			}
		case key.Matches(msg, m.keys.Remove):
			if m.sourceCursor < len(sources) {
				return m, m.engine.RemoveSource(sources[m.sourceCursor])
			}
		case key.Matches(msg, m.keys.Refresh):
			if m.sourceCursor < len(sources) {
				return m, m.engine.Refresh(sources[m.sourceCursor])
			}
		}
		return m, nil
	}

	if m.searchMode {
		return m.handleSearchKey(msg)
	}

	switch {
	case key.Matches(msg, m.keys.Search):
		m.searchMode = true
		m.searchFocus = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.Up):
		if m.cursor > 0 {
			m.cursor--
			m.refreshDetails()
		}
	case key.Matches(msg, m.keys.Down):
		if m.cursor < len(m.flatNodes)-1 {
			m.cursor++
			m.refreshDetails()
		}
	case key.Matches(msg, m.keys.Enter):
		if m.selected() != nil {
			m.activePane = PaneDetails
			m.viewport.GotoTop()
		}
	case key.Matches(msg, m.keys.Remove):
		if src := sourceOf(m.selected()); src != nil {
			return m, m.engine.RemoveSource(src.Path)
		}
	case key.Matches(msg, m.keys.Refresh):
		if src := sourceOf(m.selected()); src != nil {
			return m, m.engine.Refresh(src.Path)
		}
	}
	return m, nil
}

func (m Model) handleSearchKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.searchFocus {
		// Typing Mode
		switch {
		case key.Matches(msg, m.keys.ExitSearch):
			m.exitSearch()
			return m, nil
		case key.Matches(msg, m.keys.Enter):
			m.searchFocus = false
			m.searchInput.Blur()
			if len(m.searchMatches) > 0 {
				m.currentMatchIndex = 0
				m.cursor = m.searchMatches[0]
				m.refreshDetails()
			}
			return m, nil
		default:
			var cmd tea.Cmd
			m.searchInput, cmd = m.searchInput.Update(msg)
			m.updateMatches()
			return m, cmd
		}
	}

	// Navigation Mode
	switch {
	case key.Matches(msg, m.keys.ExitSearch):
		m.exitSearch()
	case key.Matches(msg, m.keys.Search):
		m.searchFocus = true
		m.searchInput.Focus()
		return m, textinput.Blink
	case key.Matches(msg, m.keys.NextMatch):
		if len(m.searchMatches) > 0 {
			m.currentMatchIndex = (m.currentMatchIndex + 1) % len(m.searchMatches)
			m.cursor = m.searchMatches[m.currentMatchIndex]
			m.refreshDetails()
		}
	case key.Matches(msg, m.keys.PrevMatch):
		if len(m.searchMatches) > 0 {
			m.currentMatchIndex = (m.currentMatchIndex - 1 + len(m.searchMatches)) % len(m.searchMatches)
			m.cursor = m.searchMatches[m.currentMatchIndex]
			m.refreshDetails()
		}
	case key.Matches(msg, m.keys.Enter):
		m.exitSearch()
		if m.selected() != nil {
			m.activePane = PaneDetails
			m.viewport.GotoTop()
		}
	}
	return m, nil
}

func (m *Model) exitSearch() {
	m.searchMode = false
	m.searchFocus = false
	m.searchInput.Blur()
	m.searchInput.Reset()
	m.searchMatches = nil
}

func (m *Model) updateMatches() {
	m.searchMatches = []int{}
	query := strings.ToLower(m.searchInput.Value())
	if query == "" {
		return
	}
	for i, node := range m.flatNodes {
		if strings.Contains(strings.ToLower(node.DisplayName), query) {
			m.searchMatches = append(m.searchMatches, i)
		}
	}
}

// syncTree re-flattens the tree after the engine state changed.
func (m *Model) syncTree() {
	m.flatNodes = flattenNodes(m.engine.State.Tree)
	if m.cursor >= len(m.flatNodes) {
		m.cursor = max(len(m.flatNodes)-1, 0)
	}
	if n := len(m.engine.State.Sources); m.sourceCursor >= n {
		m.sourceCursor = max(n-1, 0)
	}
	if m.searchMode {
		m.updateMatches()
	}
	m.refreshDetails()
}

func (m *Model) selected() *explorer.Node {
	if m.cursor < len(m.flatNodes) {
		return m.flatNodes[m.cursor].Node
	}
	return nil
}

func (m *Model) refreshDetails() {
	if !m.ready {
		return
	}
	m.viewport.SetContent(m.wrapOutput(m.viewport.Width, m.renderDetails()))
}

func (m Model) wrapOutput(width int, content string) string {
	if width <= 0 {
		return content
	}
	return lipgloss.NewStyle().Width(width).Render(content)
}

// View renders the UI based on the current state.
func (m Model) View() string {
	if m.showHelp {
		return m.renderHelp()
	}

	if m.width == 0 {
		return "Loading..."
	}

	paneWidth := (m.width / 2) - 2
	paneHeight := m.height - 4

	explorerRender := m.renderExplorer(paneWidth, paneHeight)

	var detailsView strings.Builder
	detailsView.WriteString(titleStyle.Render("DETAILS") + "\n\n")
	if !m.ready {
		detailsView.WriteString("Initializing...")
	} else {
		detailsView.WriteString(m.viewport.View())
	}

	detailsStyle := paneStyle
	if m.activePane == PaneDetails {
		detailsStyle = activePaneStyle
	}
	detailsRender := detailsStyle.
		Width(paneWidth).
		Height(paneHeight).
		Render(detailsView.String())

	panes := lipgloss.JoinHorizontal(lipgloss.Top, explorerRender, detailsRender)
	footer := m.renderFooter()

	return lipgloss.JoinVertical(lipgloss.Left, panes, footer)
}
