package browse

import (
	"fmt"
	"strings"

	"github.com/smileynet/phonebook/internal/contact"
)

// DetailView renders every field of c for the right pane. Empty optional
// fields are omitted.
func DetailView(c contact.Contact) string {
	var b strings.Builder
	row := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(&b, "%s %s\n", labelText.Render(fmt.Sprintf("%-11s", label)), value)
	}

	row("Name:", c.FullName())
	row("Email:", c.Email())
	row("Address:", c.Address())
	row("Birth date:", c.BirthDate())

	b.WriteString("\n" + labelText.Render("Phones:"))
	phones := c.Phones()
	if len(phones) == 0 {
		b.WriteString("\n  " + mutedText.Render("none"))
	}
	for _, p := range phones {
		b.WriteString("\n  " + p.String())
	}
	return b.String()
}

func confirmView(name string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s\n", warnText.Render("Delete contact?"))
	fmt.Fprintf(&b, "\n  %s\n", name)
	b.WriteString("\n  [y] Delete   [n] Cancel")
	return b.String()
}
