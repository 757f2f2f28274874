// Package shell implements the line-oriented interactive phone book console.
package shell

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/contact"
	"github.com/smileynet/phonebook/internal/validate"
)

const prompt = "\n> add | remove <id> | edit <id> | search <q> | sort <field> | list | exit\n> "

// Option configures a Shell.
type Option func(*Shell)

// WithLogger sets the logger used for persistence failures.
func WithLogger(log *zap.Logger) Option {
	return func(s *Shell) { s.log = log }
}

// WithEmptyQueryAll makes "search" with no text list every contact instead
// of asking for search text.
func WithEmptyQueryAll(all bool) Option {
	return func(s *Shell) { s.emptyQueryAll = all }
}

// Shell reads commands from in and writes results to out.
type Shell struct {
	book          *book.Book
	in            *bufio.Scanner
	out           io.Writer
	log           *zap.Logger
	emptyQueryAll bool

	// Lines are scanned on a separate goroutine, one per request, so a
	// blocked read can be abandoned when ctx is done.
	reqs    chan struct{}
	lines   chan readResult
	pending bool
}

type readResult struct {
	line string
	err  error
}

// New creates a Shell over b.
func New(b *book.Book, in io.Reader, out io.Writer, opts ...Option) *Shell {
	s := &Shell{
		book: b,
		in:   bufio.NewScanner(in),
		out:  out,
		log:  zap.NewNop(),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// Run processes commands until "exit", end of input, or ctx is done.
// Cancelling ctx interrupts a pending read, including one in the middle of
// "add" or "edit", and Run returns ctx.Err(). Saving the book is left to
// the caller.
func (s *Shell) Run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		fmt.Fprint(s.out, prompt)
		line, err := s.readLine(ctx)
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}

		cmd, arg := splitCommand(line)
		switch cmd {
		case "exit":
			return nil
		case "list":
			s.list()
		case "add":
			if err := s.add(ctx); err != nil {
				return endOfInput(err)
			}
		case "remove":
			s.remove(arg)
		case "edit":
			if err := s.edit(ctx, arg); err != nil {
				return endOfInput(err)
			}
		case "search":
			s.search(arg)
		case "sort":
			s.sort(arg)
		default:
			fmt.Fprintln(s.out, "Unknown command.")
		}
	}
}

func splitCommand(line string) (cmd, arg string) {
	line = validate.Trim(line)
	cmd, arg, _ = strings.Cut(line, " ")
	return cmd, validate.Trim(arg)
}

// endOfInput maps io.EOF to a clean exit.
func endOfInput(err error) error {
	if errors.Is(err, io.EOF) {
		return nil
	}
	return err
}

// readLine returns the next input line, or ctx.Err() if ctx is done first.
// A read abandoned that way is delivered to the next call.
func (s *Shell) readLine(ctx context.Context) (string, error) {
	if s.reqs == nil {
		s.reqs = make(chan struct{}, 1)
		s.lines = make(chan readResult, 1)
		go s.scan()
	}
	if !s.pending {
		s.reqs <- struct{}{}
		s.pending = true
	}
	select {
	case r := <-s.lines:
		s.pending = false
		return r.line, r.err
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

func (s *Shell) scan() {
	for range s.reqs {
		var r readResult
		if s.in.Scan() {
			r.line = strings.TrimSuffix(s.in.Text(), "\r")
		} else if r.err = s.in.Err(); r.err == nil {
			r.err = io.EOF
		}
		s.lines <- r
	}
}

func (s *Shell) ask(ctx context.Context, label string) (string, error) {
	fmt.Fprint(s.out, label)
	return s.readLine(ctx)
}

func (s *Shell) list() {
	for i, c := range s.book.Contacts() {
		PrintContact(s.out, c, i)
	}
}

func (s *Shell) add(ctx context.Context) error {
	c, err := s.readContact(ctx)
	if err != nil {
		return err
	}
	if _, err := s.book.Add(*c); err != nil {
		s.reportSyncError(err)
	}
	fmt.Fprintln(s.out, "Contact added.")
	return nil
}

func (s *Shell) remove(arg string) {
	i, ok := s.parseIndex(arg)
	if !ok {
		fmt.Fprintln(s.out, "Invalid ID.")
		return
	}
	if err := s.book.Remove(i); err != nil {
		if errors.Is(err, book.ErrOutOfRange) {
			fmt.Fprintln(s.out, "Invalid ID.")
			return
		}
		s.reportSyncError(err)
	}
	fmt.Fprintln(s.out, "Removed.")
}

func (s *Shell) edit(ctx context.Context, arg string) error {
	i, ok := s.parseIndex(arg)
	if !ok {
		fmt.Fprintln(s.out, "Invalid ID.")
		return nil
	}
	c, err := s.readContact(ctx)
	if err != nil {
		return err
	}
	if err := s.book.Edit(i, *c); err != nil {
		if errors.Is(err, book.ErrOutOfRange) {
			fmt.Fprintln(s.out, "Edit failed.")
			return nil
		}
		s.reportSyncError(err)
	}
	fmt.Fprintln(s.out, "Updated.")
	return nil
}

func (s *Shell) search(query string) {
	var results []contact.Contact
	switch {
	case query != "":
		results = s.book.Search(query)
	case s.emptyQueryAll:
		results = s.book.Contacts()
	default:
		fmt.Fprintln(s.out, "Enter search text.")
		return
	}
	if len(results) == 0 {
		fmt.Fprintln(s.out, "No results.")
		return
	}
	for i, c := range results {
		PrintContact(s.out, c, i)
	}
}

func (s *Shell) sort(field string) {
	if field == "" {
		fmt.Fprintln(s.out, "Enter field: name, last, email")
		return
	}
	if err := s.book.SortBy(field); err != nil {
		if errors.Is(err, book.ErrUnknownField) {
			fmt.Fprintln(s.out, "Unknown field. Use: name, last, email")
			return
		}
		s.reportSyncError(err)
	}
	fmt.Fprintf(s.out, "Sorted by '%s'.\n", strings.ToLower(field))
	s.list()
}

// parseIndex accepts a non-negative integer below the book size.
func (s *Shell) parseIndex(arg string) (int, bool) {
	f := strings.Fields(arg)
	if len(f) == 0 {
		return 0, false
	}
	i, err := strconv.Atoi(f[0])
	if err != nil || i < 0 || i >= s.book.Len() {
		return 0, false
	}
	return i, true
}

// readContact prompts for a full contact. Required fields are asked again
// as a group until they validate; each optional field is asked again until
// it is valid or left empty.
func (s *Shell) readContact(ctx context.Context) (*contact.Contact, error) {
	var c *contact.Contact
	for c == nil {
		var fields [5]string
		for i, label := range []string{
			"First Name: ", "Last Name: ", "Email: ",
			"Phone type (work/home/office): ", "Phone number: ",
		} {
			v, err := s.ask(ctx, label)
			if err != nil {
				return nil, err
			}
			fields[i] = v
		}

		phone, err := contact.NewPhoneNumber(contact.ParseCategory(fields[3]), fields[4])
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		c, err = contact.New(fields[0], fields[1], fields[2], phone)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
	}

	if err := s.askOptional(ctx, "Middle Name (opt): ", c.SetMiddleName); err != nil {
		return nil, err
	}
	addr, err := s.ask(ctx, "Address (opt): ")
	if err != nil {
		return nil, err
	}
	c.SetAddress(addr)
	if err := s.askOptional(ctx, "Birth Date (YYYY-MM-DD, opt): ", c.SetBirthDate); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *Shell) askOptional(ctx context.Context, label string, set func(string) error) error {
	for {
		v, err := s.ask(ctx, label)
		if err != nil {
			return err
		}
		if validate.Trim(v) == "" {
			return nil
		}
		if err := set(v); err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
			continue
		}
		return nil
	}
}

func (s *Shell) reportSyncError(err error) {
	s.log.Error("saving phone book", zap.Error(err))
	fmt.Fprintf(s.out, "Warning: changes not saved: %v\n", err)
}

// PrintContact writes c as a numbered block:
//
//	=== 0 ===
//	First Last Middle
//	Email: e@x.y
//	Work: 8 (916) 123-45-67
func PrintContact(w io.Writer, c contact.Contact, i int) {
	fmt.Fprintf(w, "=== %d ===\n", i)
	fmt.Fprintln(w, c.FullName())
	fmt.Fprintf(w, "Email: %s\n", c.Email())
	for _, p := range c.Phones() {
		fmt.Fprintln(w, p.String())
	}
	fmt.Fprintln(w)
}
