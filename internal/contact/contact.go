// Package contact defines the validated Contact aggregate, its phone
// numbers, and the semicolon-delimited line format used by flat files.
package contact

import (
	"errors"
	"fmt"
	"strings"

	"github.com/smileynet/phonebook/internal/validate"
)

var (
	// ErrInvalidArgument indicates a field value failed validation.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrOutOfRange indicates an index beyond the current bounds.
	ErrOutOfRange = errors.New("index out of range")
)

// Contact is one person's details plus an ordered list of phone numbers.
// All mutation goes through setters that validate before storing; a
// rejected value leaves the previous value in place.
//
// Contact has value semantics only through Clone: copying the struct shares
// the phone slice.
type Contact struct {
	firstName  string
	lastName   string
	middleName string
	address    string
	birthDate  string
	email      string
	phones     []PhoneNumber
}

// New builds a Contact from its required fields and first phone number.
func New(firstName, lastName, email string, phone PhoneNumber) (*Contact, error) {
	c := &Contact{}
	if err := c.SetFirstName(firstName); err != nil {
		return nil, err
	}
	if err := c.SetLastName(lastName); err != nil {
		return nil, err
	}
	if err := c.SetEmail(email); err != nil {
		return nil, err
	}
	c.AddPhone(phone)
	return c, nil
}

// Field accessors.
func (c Contact) FirstName() string  { return c.firstName }
func (c Contact) LastName() string   { return c.lastName }
func (c Contact) MiddleName() string { return c.middleName }
func (c Contact) Address() string    { return c.address }
func (c Contact) BirthDate() string  { return c.birthDate }
func (c Contact) Email() string      { return c.email }

// Phones returns a copy of the phone list.
func (c Contact) Phones() []PhoneNumber {
	return append([]PhoneNumber(nil), c.phones...)
}

// PhoneCount returns the number of phone numbers.
func (c Contact) PhoneCount() int { return len(c.phones) }

// SetFirstName validates and stores the trimmed first name.
func (c *Contact) SetFirstName(name string) error {
	if !validate.Name(name) {
		return fmt.Errorf("%w: first name %q", ErrInvalidArgument, name)
	}
	c.firstName = validate.Trim(name)
	return nil
}

// SetLastName validates and stores the trimmed last name.
func (c *Contact) SetLastName(name string) error {
	if !validate.Name(name) {
		return fmt.Errorf("%w: last name %q", ErrInvalidArgument, name)
	}
	c.lastName = validate.Trim(name)
	return nil
}

// SetMiddleName stores the trimmed middle name. Empty clears it.
func (c *Contact) SetMiddleName(name string) error {
	if name != "" && !validate.Name(name) {
		return fmt.Errorf("%w: middle name %q", ErrInvalidArgument, name)
	}
	c.middleName = validate.Trim(name)
	return nil
}

// SetAddress stores the trimmed address. Any text is accepted.
func (c *Contact) SetAddress(addr string) {
	c.address = validate.Trim(addr)
}

// SetBirthDate stores a YYYY-MM-DD date in the past. Empty clears it.
func (c *Contact) SetBirthDate(date string) error {
	if date != "" && !validate.Date(date) {
		return fmt.Errorf("%w: birth date %q", ErrInvalidArgument, date)
	}
	c.birthDate = date
	return nil
}

// SetEmail validates and stores the trimmed email address.
func (c *Contact) SetEmail(email string) error {
	if !validate.Email(email) {
		return fmt.Errorf("%w: email %q", ErrInvalidArgument, email)
	}
	c.email = validate.Trim(email)
	return nil
}

// AddPhone appends p. Duplicates are allowed.
func (c *Contact) AddPhone(p PhoneNumber) {
	c.phones = append(c.phones, p)
}

// RemovePhone deletes the phone at index, shifting later entries down.
func (c *Contact) RemovePhone(index int) error {
	if index < 0 || index >= len(c.phones) {
		return fmt.Errorf("%w: phone %d of %d", ErrOutOfRange, index, len(c.phones))
	}
	// Shallow copies may share the backing array.
	c.phones = append(append([]PhoneNumber(nil), c.phones[:index]...), c.phones[index+1:]...)
	return nil
}

// ClearPhones removes every phone number.
func (c *Contact) ClearPhones() {
	c.phones = nil
}

// FullName joins first, last and (when set) middle name with spaces.
func (c Contact) FullName() string {
	name := c.firstName + " " + c.lastName
	if c.middleName != "" {
		name += " " + c.middleName
	}
	return name
}

// Clone returns a deep copy.
func (c Contact) Clone() Contact {
	c.phones = c.Phones()
	return c
}

// Equal reports whether both contacts carry the same fields and phones.
func (c Contact) Equal(other Contact) bool {
	if c.firstName != other.firstName || c.lastName != other.lastName ||
		c.middleName != other.middleName || c.address != other.address ||
		c.birthDate != other.birthDate || c.email != other.email ||
		len(c.phones) != len(other.phones) {
		return false
	}
	for i := range c.phones {
		if c.phones[i] != other.phones[i] {
			return false
		}
	}
	return true
}

// Matches reports whether the lower-cased query occurs in the first name,
// last name, "first last", or email. An empty query matches nothing.
func (c Contact) Matches(query string) bool {
	q := strings.ToLower(validate.Trim(query))
	if q == "" {
		return false
	}
	for _, field := range []string{c.firstName, c.lastName, c.firstName + " " + c.lastName, c.email} {
		if strings.Contains(strings.ToLower(field), q) {
			return true
		}
	}
	return false
}
