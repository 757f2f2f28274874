package contact

import (
	"fmt"
	"strings"

	"github.com/smileynet/phonebook/internal/validate"
)

// Category classifies a phone number. The numeric values are part of the
// line format and must not be reordered.
type Category int

const (
	Work   Category = iota // Work phone.
	Home                   // Home phone.
	Office                 // Office phone.
)

// String returns the display name of the category.
func (c Category) String() string {
	switch c {
	case Work:
		return "Work"
	case Home:
		return "Home"
	case Office:
		return "Office"
	default:
		return fmt.Sprintf("Category(%d)", int(c))
	}
}

// Valid reports whether c is one of the known categories.
func (c Category) Valid() bool {
	return c >= Work && c <= Office
}

// ParseCategory maps free text typed by a user onto a category. Text
// mentioning "home" or "office" selects that category; anything else is Work.
func ParseCategory(s string) Category {
	l := strings.ToLower(s)
	switch {
	case strings.Contains(l, "home"):
		return Home
	case strings.Contains(l, "office"):
		return Office
	default:
		return Work
	}
}

// CategoryFromInt converts the numeric form used on disk.
func CategoryFromInt(n int) (Category, error) {
	c := Category(n)
	if !c.Valid() {
		return Work, fmt.Errorf("%w: phone category %d", ErrInvalidArgument, n)
	}
	return c, nil
}

// PhoneNumber is an immutable categorized phone number. The number is held
// in its normalized 11-digit form.
type PhoneNumber struct {
	category Category
	number   string
}

// NewPhoneNumber validates raw and returns the phone number in normalized
// form. Surrounding spaces and tabs are ignored.
func NewPhoneNumber(category Category, raw string) (PhoneNumber, error) {
	if !category.Valid() {
		return PhoneNumber{}, fmt.Errorf("%w: phone category %d", ErrInvalidArgument, int(category))
	}
	digits, ok := validate.NormalizePhone(validate.Trim(raw))
	if !ok {
		return PhoneNumber{}, fmt.Errorf("%w: phone number %q", ErrInvalidArgument, raw)
	}
	return PhoneNumber{category: category, number: digits}, nil
}

// Category returns the phone category.
func (p PhoneNumber) Category() Category { return p.category }

// Number returns the normalized 11-digit number.
func (p PhoneNumber) Number() string { return p.number }

// Display returns the number formatted as "8 (DDD) DDD-DD-DD".
func (p PhoneNumber) Display() string {
	return validate.FormatPhone(p.number)
}

// String renders the phone as "Category: number" for listings.
func (p PhoneNumber) String() string {
	return p.category.String() + ": " + p.Display()
}
