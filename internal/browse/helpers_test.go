package browse

import (
	"strings"
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/ansi"

	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/contact"
)

// stripANSI removes ANSI escape sequences from a string.
func stripANSI(s string) string {
	return ansi.Strip(s)
}

// containsPlainText checks if s contains sub after stripping ANSI escapes.
func containsPlainText(s, sub string) bool {
	return strings.Contains(stripANSI(s), sub)
}

func mkContact(t *testing.T, first, last, email, birth string) contact.Contact {
	t.Helper()
	p, err := contact.NewPhoneNumber(contact.Home, "89161234567")
	if err != nil {
		t.Fatal(err)
	}
	c, err := contact.New(first, last, email, p)
	if err != nil {
		t.Fatal(err)
	}
	if err := c.SetBirthDate(birth); err != nil {
		t.Fatal(err)
	}
	return *c
}

// sampleBook returns a book holding Boris Sidorov, Anna Zaitseva and
// Clara Abramova, in that order.
func sampleBook(t *testing.T) *book.Book {
	t.Helper()
	b := book.New()
	for _, c := range []contact.Contact{
		mkContact(t, "Boris", "Sidorov", "boris@mail.ru", "1985-01-02"),
		mkContact(t, "Anna", "Zaitseva", "anna@example.com", ""),
		mkContact(t, "Clara", "Abramova", "clara@b.org", "1970-12-31"),
	} {
		if _, err := b.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	return b
}

func newSizedModel(t *testing.T, b *book.Book) Model {
	t.Helper()
	updated, _ := NewModel(b).Update(tea.WindowSizeMsg{Width: 90, Height: 30})
	return updated.(Model)
}

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

// press sends each message to m in order and returns the final model.
func press(m Model, msgs ...tea.Msg) Model {
	for _, msg := range msgs {
		updated, _ := m.Update(msg)
		m = updated.(Model)
	}
	return m
}

func typeText(m Model, s string) Model {
	for _, r := range s {
		m = press(m, runeKey(r))
	}
	return m
}

func selectedName(t *testing.T, m Model) string {
	t.Helper()
	id := m.SelectedID()
	if id == "" {
		return ""
	}
	c, err := m.book.GetByID(id)
	if err != nil {
		t.Fatal(err)
	}
	return c.FirstName()
}
