// Package browse implements the interactive two-pane contact browser.
package browse

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/smileynet/phonebook/internal/book"
)

// CursorMarker is the prefix shown on the selected contact row.
const CursorMarker = "▸ "

// helpBarHeight is the number of lines reserved for the help bar at the bottom.
const helpBarHeight = 1

// statusHeight is the number of lines reserved for the status line.
const statusHeight = 1

// borderChrome is the number of lines consumed by top + bottom borders.
const borderChrome = 2

// sortFields is the order the sort key cycles through.
var sortFields = []string{"last", "name", "email", "birthdate"}

// Mode selects how key presses are routed.
type Mode int

const (
	ModeList    Mode = iota // Navigating the list
	ModeFilter              // Typing into the filter input
	ModeConfirm             // Awaiting y/n for a delete
)

// Model is the root Bubble Tea model for the contact browser. It edits the
// book it was created with in place.
type Model struct {
	book *book.Book
	rows []book.Entry

	mode      Mode
	cursor    int
	sortIdx   int
	pendingID string

	status    string
	statusErr bool

	width  int
	height int
	filter textinput.Model
	detail viewport.Model
	help   help.Model
}

// NewModel creates a browser over b in list mode.
func NewModel(b *book.Book) Model {
	ti := textinput.New()
	ti.Prompt = "/ "
	ti.Placeholder = "name or email"
	ti.CharLimit = 64

	m := Model{
		book:   b,
		filter: ti,
		detail: viewport.New(0, 0),
		help:   help.New(),
	}
	m.refresh()
	return m
}

// Init returns the initial command.
func (m Model) Init() tea.Cmd {
	return nil
}

// Update handles incoming messages with mode-based routing.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		left, right := splitWidth(msg.Width)
		m.filter.Width = max(left-borderChrome-len(m.filter.Prompt)-1, 1)
		m.detail.Width = max(right-borderChrome, 0)
		m.detail.Height = m.contentHeight()
		m.syncDetail()
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.mode {
		case ModeFilter:
			return m.handleFilterKey(msg)
		case ModeConfirm:
			return m.handleConfirmKey(msg), nil
		default:
			return m.handleListKey(msg)
		}
	}

	return m, nil
}

func (m Model) handleListKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := ListKeyMap()
	switch {
	case key.Matches(msg, keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, keys.Up):
		if len(m.rows) > 0 {
			m.cursor--
			if m.cursor < 0 {
				m.cursor = len(m.rows) - 1
			}
			m.syncDetail()
		}

	case key.Matches(msg, keys.Down):
		if len(m.rows) > 0 {
			m.cursor++
			if m.cursor >= len(m.rows) {
				m.cursor = 0
			}
			m.syncDetail()
		}

	case key.Matches(msg, keys.Filter):
		m.mode = ModeFilter
		return m, m.filter.Focus()

	case key.Matches(msg, keys.Sort):
		m.sortNext()

	case key.Matches(msg, keys.Delete):
		if id := m.SelectedID(); id != "" {
			m.pendingID = id
			m.mode = ModeConfirm
		}

	default:
		var cmd tea.Cmd
		m.detail, cmd = m.detail.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m Model) handleFilterKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	keys := FilterKeyMap()
	switch {
	case key.Matches(msg, keys.Apply):
		m.filter.Blur()
		m.mode = ModeList
		return m, nil

	case key.Matches(msg, keys.Clear):
		m.filter.SetValue("")
		m.filter.Blur()
		m.mode = ModeList
		m.cursor = 0
		m.refresh()
		return m, nil
	}

	before := m.filter.Value()
	var cmd tea.Cmd
	m.filter, cmd = m.filter.Update(msg)
	if m.filter.Value() != before {
		m.cursor = 0
		m.refresh()
	}
	return m, cmd
}

func (m Model) handleConfirmKey(msg tea.KeyMsg) Model {
	keys := ConfirmKeyMap()
	switch {
	case key.Matches(msg, keys.Yes):
		name := m.nameOf(m.pendingID)
		if err := m.book.RemoveByID(m.pendingID); err != nil {
			m.setStatus(fmt.Sprintf("Delete %s: %v", name, err), true)
		} else {
			m.setStatus("Deleted "+name, false)
		}
		m.pendingID = ""
		m.mode = ModeList
		m.refresh()

	case key.Matches(msg, keys.No):
		m.pendingID = ""
		m.mode = ModeList
		m.setStatus("Delete canceled", false)
	}
	return m
}

// sortNext sorts the book by the next field in the cycle, keeping the
// selected contact selected.
func (m *Model) sortNext() {
	field := sortFields[m.sortIdx%len(sortFields)]
	m.sortIdx++
	selected := m.SelectedID()

	if err := m.book.SortBy(field); err != nil {
		m.setStatus(fmt.Sprintf("Sort by %s: %v", field, err), true)
	} else {
		m.setStatus("Sorted by "+field, false)
	}

	m.refresh()
	for i, e := range m.rows {
		if e.ID == selected {
			m.cursor = i
			break
		}
	}
	m.syncDetail()
}

// refresh rebuilds the visible rows from the book and the current filter.
func (m *Model) refresh() {
	q := strings.TrimSpace(m.filter.Value())
	if q == "" {
		m.rows = m.book.Entries()
	} else {
		m.rows = m.book.Find(q)
	}
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
	m.syncDetail()
}

func (m *Model) syncDetail() {
	if id := m.SelectedID(); id != "" {
		m.detail.SetContent(DetailView(m.rows[m.cursor].Contact))
	} else {
		m.detail.SetContent("")
	}
	m.detail.GotoTop()
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status = s
	m.statusErr = isErr
}

func (m Model) nameOf(id string) string {
	for _, e := range m.rows {
		if e.ID == id {
			return e.Contact.FullName()
		}
	}
	return id
}

// SelectedID returns the ID of the contact under the cursor, or "" if no
// contact is visible.
func (m Model) SelectedID() string {
	if len(m.rows) == 0 || m.cursor < 0 || m.cursor >= len(m.rows) {
		return ""
	}
	return m.rows[m.cursor].ID
}

// Mode returns the current input mode.
func (m Model) Mode() Mode { return m.mode }

// contentHeight returns the usable height for pane content,
// accounting for border chrome, the status line and the help bar.
func (m Model) contentHeight() int {
	return max(m.height-borderChrome-helpBarHeight-statusHeight, 1)
}

// View renders the two-pane layout with status line and help bar.
func (m Model) View() string {
	if m.width == 0 || m.height == 0 {
		return "Initializing..."
	}

	listWidth, detailWidth := splitWidth(m.width)
	h := m.contentHeight()
	confirming := m.mode == ModeConfirm

	leftStyle := paneStyle(!confirming).Width(listWidth - borderChrome).Height(h)
	rightStyle := paneStyle(confirming).Width(detailWidth - borderChrome).Height(h)

	panes := lipgloss.JoinHorizontal(lipgloss.Top,
		leftStyle.Render(m.viewList()),
		rightStyle.Render(m.viewRight()),
	)

	status := m.status
	if m.statusErr {
		status = errorText.Render(status)
	} else {
		status = mutedText.Render(status)
	}

	return lipgloss.JoinVertical(lipgloss.Left, panes, status, m.help.View(m.helpKeys()))
}

func (m Model) helpKeys() help.KeyMap {
	switch m.mode {
	case ModeFilter:
		return FilterKeyMap()
	case ModeConfirm:
		return ConfirmKeyMap()
	default:
		return ListKeyMap()
	}
}

func (m Model) viewList() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Contacts (%d/%d)", len(m.rows), m.book.Len())
	if m.mode == ModeFilter || m.filter.Value() != "" {
		b.WriteString("\n" + m.filter.View())
	}
	b.WriteString("\n")

	if len(m.rows) == 0 {
		if m.filter.Value() != "" {
			b.WriteString("\n" + mutedText.Render("No matches"))
		} else {
			b.WriteString("\n" + mutedText.Render("No contacts"))
		}
		return b.String()
	}

	for i, e := range m.rows {
		b.WriteByte('\n')
		if i == m.cursor {
			b.WriteString(CursorMarker)
		} else {
			b.WriteString("  ")
		}
		b.WriteString(e.Contact.FullName())
	}
	return b.String()
}

func (m Model) viewRight() string {
	if m.mode == ModeConfirm {
		return confirmView(m.nameOf(m.pendingID))
	}
	if m.SelectedID() == "" {
		return mutedText.Render("Nothing selected")
	}
	return m.detail.View()
}
