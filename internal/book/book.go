// Package book implements the in-memory phone book: an ordered collection of
// contacts addressed by position or by a stable ID assigned on insertion.
package book

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"unicode"

	"github.com/google/uuid"

	"github.com/smileynet/phonebook/internal/contact"
)

var (
	// ErrOutOfRange indicates an index outside the collection.
	ErrOutOfRange = contact.ErrOutOfRange

	// ErrNotFound indicates no entry carries the requested ID.
	ErrNotFound = errors.New("book: contact not found")

	// ErrUnknownField indicates a sort field name that is not recognized.
	ErrUnknownField = errors.New("book: unknown sort field")
)

// Entry pairs a contact with its stable identifier.
type Entry struct {
	ID      string
	Contact contact.Contact
}

func (e Entry) clone() Entry {
	return Entry{ID: e.ID, Contact: e.Contact.Clone()}
}

// SyncFunc receives the full entry list after every mutation.
type SyncFunc func(entries []Entry) error

// Source supplies a full set of entries, e.g. a store being loaded.
type Source interface {
	Load(ctx context.Context) ([]Entry, error)
}

// Sink accepts a full set of entries, e.g. a store being saved to.
type Sink interface {
	Save(ctx context.Context, entries []Entry) error
}

// Option configures a Book.
type Option func(*Book)

// WithSync installs fn to be called after each mutation.
func WithSync(fn SyncFunc) Option {
	return func(b *Book) { b.sync = fn }
}

// WithIDGenerator replaces the UUID generator.
func WithIDGenerator(fn func() string) Option {
	return func(b *Book) { b.newID = fn }
}

// Book is an ordered collection of contacts. It owns copies of everything
// passed in and hands out copies, so callers never share phone slices with it.
// Book is not safe for concurrent use.
type Book struct {
	entries []Entry
	sync    SyncFunc
	newID   func() string
}

// New creates an empty Book.
func New(opts ...Option) *Book {
	b := &Book{newID: uuid.NewString}
	for _, o := range opts {
		o(b)
	}
	return b
}

// Len returns the number of contacts.
func (b *Book) Len() int { return len(b.entries) }

// Add appends a copy of c and returns its new ID. A sync error is returned
// after the contact has been added in memory.
func (b *Book) Add(c contact.Contact) (string, error) {
	e := Entry{ID: b.newID(), Contact: c.Clone()}
	b.entries = append(b.entries, e)
	return e.ID, b.flush()
}

// Remove deletes the contact at index, shifting later contacts down.
func (b *Book) Remove(index int) error {
	if err := b.checkIndex(index); err != nil {
		return err
	}
	b.entries = append(b.entries[:index], b.entries[index+1:]...)
	return b.flush()
}

// Edit replaces the contact at index. The entry keeps its ID.
func (b *Book) Edit(index int, c contact.Contact) error {
	if err := b.checkIndex(index); err != nil {
		return err
	}
	b.entries[index].Contact = c.Clone()
	return b.flush()
}

// RemoveByID deletes the contact with the given ID.
func (b *Book) RemoveByID(id string) error {
	i := b.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return b.Remove(i)
}

// EditByID replaces the contact with the given ID.
func (b *Book) EditByID(id string, c contact.Contact) error {
	i := b.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return b.Edit(i, c)
}

// Get returns a copy of the contact at index.
func (b *Book) Get(index int) (contact.Contact, error) {
	if err := b.checkIndex(index); err != nil {
		return contact.Contact{}, err
	}
	return b.entries[index].Contact.Clone(), nil
}

// GetByID returns a copy of the contact with the given ID.
func (b *Book) GetByID(id string) (contact.Contact, error) {
	i := b.IndexOf(id)
	if i < 0 {
		return contact.Contact{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return b.entries[i].Contact.Clone(), nil
}

// IndexOf returns the current position of id, or -1.
func (b *Book) IndexOf(id string) int {
	for i, e := range b.entries {
		if e.ID == id {
			return i
		}
	}
	return -1
}

// Entries returns copies of all entries in order.
func (b *Book) Entries() []Entry {
	out := make([]Entry, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.clone()
	}
	return out
}

// Contacts returns copies of all contacts in order.
func (b *Book) Contacts() []contact.Contact {
	out := make([]contact.Contact, len(b.entries))
	for i, e := range b.entries {
		out[i] = e.Contact.Clone()
	}
	return out
}

// Find returns the entries whose contact matches query (see
// contact.Contact.Matches). An empty query returns nothing.
func (b *Book) Find(query string) []Entry {
	var out []Entry
	for _, e := range b.entries {
		if e.Contact.Matches(query) {
			out = append(out, e.clone())
		}
	}
	return out
}

// Search is Find without the IDs.
func (b *Book) Search(query string) []contact.Contact {
	found := b.Find(query)
	out := make([]contact.Contact, len(found))
	for i, e := range found {
		out[i] = e.Contact
	}
	return out
}

// SortKey extracts the string a sort compares.
type SortKey func(contact.Contact) string

// ResolveSortField maps a user-supplied field name onto a sort key. Matching
// ignores case and whitespace.
func ResolveSortField(field string) (SortKey, bool) {
	f := strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return unicode.ToLower(r)
	}, field)

	switch f {
	case "name", "firstname", "first":
		return contact.Contact.FirstName, true
	case "last", "lastname", "surname":
		return contact.Contact.LastName, true
	case "email":
		return contact.Contact.Email, true
	case "birthdate", "date":
		return contact.Contact.BirthDate, true
	}
	return nil, false
}

// SortBy stably sorts the book ascending by the named field using byte-wise
// comparison. An unknown field leaves the book untouched and returns
// ErrUnknownField.
func (b *Book) SortBy(field string) error {
	key, ok := ResolveSortField(field)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	sort.SliceStable(b.entries, func(i, j int) bool {
		return key(b.entries[i].Contact) < key(b.entries[j].Contact)
	})
	return b.flush()
}

// Clear removes every contact.
func (b *Book) Clear() error {
	b.entries = nil
	return b.flush()
}

// Replace swaps the whole collection for entries. Entries without an ID are
// given a fresh one.
func (b *Book) Replace(entries []Entry) error {
	b.entries = make([]Entry, len(entries))
	for i, e := range entries {
		e = e.clone()
		if e.ID == "" {
			e.ID = b.newID()
		}
		b.entries[i] = e
	}
	return b.flush()
}

// Load replaces the collection with everything src returns. On error the
// book is left unchanged.
func (b *Book) Load(ctx context.Context, src Source) error {
	entries, err := src.Load(ctx)
	if err != nil {
		return err
	}
	return b.Replace(entries)
}

// Save writes the whole collection to dst.
func (b *Book) Save(ctx context.Context, dst Sink) error {
	return dst.Save(ctx, b.Entries())
}

func (b *Book) checkIndex(index int) error {
	if index < 0 || index >= len(b.entries) {
		return fmt.Errorf("%w: contact %d of %d", ErrOutOfRange, index, len(b.entries))
	}
	return nil
}

func (b *Book) flush() error {
	if b.sync == nil {
		return nil
	}
	if err := b.sync(b.Entries()); err != nil {
		return fmt.Errorf("book: sync: %w", err)
	}
	return nil
}
