// Package tui is the terminal front end: a search box above the catalog
// table. Every keystroke goes to a livesearch.Session and the table is
// redrawn when the debounced result arrives.
package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/conneroisu/shelfsearch/internal/livesearch"
)

var (
	titleStyle   = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	headerStyle  = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("86")).Padding(0, 1)
	cellStyle    = lipgloss.NewStyle().Padding(0, 1)
	oddCellStyle = cellStyle.Foreground(lipgloss.Color("245"))
	borderStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("62"))
	statusStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	pendingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("214"))
	emptyStyle   = lipgloss.NewStyle().Italic(true).Foreground(lipgloss.Color("241"))
)

// chrome is the number of lines taken by everything except table rows.
const chrome = 8

// ResultMsg carries a debounced search result into the program.
type ResultMsg struct {
	Result livesearch.Result
}

// Model is the bubbletea model for the browse screen.
type Model struct {
	input   textinput.Model
	session *livesearch.Session
	result  livesearch.Result
	title   string

	width  int
	height int

	quitting bool
}

// NewModel creates the browse screen. initial is shown until the first
// debounced result arrives.
func NewModel(session *livesearch.Session, initial livesearch.Result, title string) Model {
	ti := textinput.New()
	ti.Placeholder = "Type to filter..."
	ti.Prompt = "/ "
	ti.CharLimit = 256
	ti.Width = 40
	ti.Focus()

	return Model{
		input:   ti,
		session: session,
		result:  initial,
		title:   title,
	}
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return textinput.Blink
}

// Query returns the text currently in the search box.
func (m Model) Query() string {
	return m.input.Value()
}

// Result returns the result being displayed.
func (m Model) Result() livesearch.Result {
	return m.result
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.input.Width = max(10, msg.Width-4)
		return m, nil

	case ResultMsg:
		m.result = msg.Result
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			return m.quit()
		case "esc":
			if m.input.Value() == "" {
				return m.quit()
			}
			m.input.SetValue("")
			m.session.Input("")
			return m, refresh(m.session)
		case "enter":
			return m, refresh(m.session)
		}
	}

	if m.quitting {
		return m, nil
	}

	prev := m.input.Value()
	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	if q := m.input.Value(); q != prev {
		m.session.Input(q)
	}
	return m, cmd
}

// refresh filters off the event loop. The session delivers its result
// through Program.Send, which blocks until the loop is free again.
func refresh(s *livesearch.Session) tea.Cmd {
	return func() tea.Msg {
		s.Refresh()
		return nil
	}
}

func (m Model) quit() (tea.Model, tea.Cmd) {
	m.quitting = true
	m.session.Close()
	return m, tea.Quit
}

// View implements tea.Model.
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	if m.title != "" {
		b.WriteString(titleStyle.Render(m.title))
		b.WriteString("\n")
	}
	b.WriteString(m.input.View())
	b.WriteString("\n\n")
	b.WriteString(m.renderTable())
	b.WriteString("\n")
	b.WriteString(m.renderStatus())
	b.WriteString("\n")
	return b.String()
}

func (m Model) renderTable() string {
	res := m.result
	if len(res.Columns) == 0 && len(res.Rows) == 0 {
		return emptyStyle.Render("The catalog is empty.")
	}
	if len(res.Rows) == 0 {
		return emptyStyle.Render(fmt.Sprintf("No rows match %q.", res.Query))
	}

	rows := res.Rows
	hidden := 0
	if limit := m.height - chrome; m.height > 0 && len(rows) > limit {
		if limit < 1 {
			limit = 1
		}
		hidden = len(rows) - limit
		rows = rows[:limit]
	}

	t := table.New().
		Border(lipgloss.RoundedBorder()).
		BorderStyle(borderStyle).
		Headers(res.Columns...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			switch {
			case row == table.HeaderRow:
				return headerStyle
			case row%2 == 1:
				return oddCellStyle
			default:
				return cellStyle
			}
		})
	if m.width > 0 {
		t = t.Width(m.width)
	}

	out := t.String()
	if hidden > 0 {
		out += "\n" + statusStyle.Render(fmt.Sprintf("... %d more", hidden))
	}
	return out
}

func (m Model) renderStatus() string {
	res := m.result
	status := fmt.Sprintf("%d of %d rows", res.Matched, res.Total)
	if res.Skipped > 0 {
		status += fmt.Sprintf(", %d unreadable", res.Skipped)
	}
	status += "  esc clear/quit  enter search now"
	line := statusStyle.Render(status)
	if m.session != nil && m.session.Pending() {
		line += "  " + pendingStyle.Render("filtering...")
	}
	return line
}
