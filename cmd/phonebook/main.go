package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"go.uber.org/zap"

	"github.com/smileynet/phonebook"
	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/browse"
	"github.com/smileynet/phonebook/internal/config"
	"github.com/smileynet/phonebook/internal/contact"
	"github.com/smileynet/phonebook/internal/logging"
	"github.com/smileynet/phonebook/internal/shell"
	"github.com/smileynet/phonebook/internal/store"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

// CLI is the top-level command structure for phonebook.
type CLI struct {
	Globals

	Version kong.VersionFlag `help:"Show version." short:"V"`
	Shell   ShellCmd         `cmd:"" default:"1" help:"Start the interactive shell (default)."`
	List    ListCmd          `cmd:"" help:"Print every contact."`
	Add     AddCmd           `cmd:"" help:"Add a contact."`
	Remove  RemoveCmd        `cmd:"" help:"Remove the contact at an index."`
	Search  SearchCmd        `cmd:"" help:"Find contacts by name or email."`
	Sort    SortCmd          `cmd:"" help:"Sort the phone book by a field."`
	Browse  BrowseCmd        `cmd:"" help:"Open the interactive contact browser."`
	Import  ImportCmd        `cmd:"" help:"Copy contacts from another store into the phone book."`
	Export  ExportCmd        `cmd:"" help:"Copy the phone book into another store."`
	Init    InitCmd          `cmd:"" help:"Write an annotated config file."`
}

// Globals holds flags shared by every command. Set flags override the
// config file and environment.
type Globals struct {
	File    string `help:"Contacts file for the file backend." short:"f" placeholder:"PATH"`
	Backend string `help:"Store backend (file or postgres)."`
	DSN     string `help:"PostgreSQL connection string." name:"dsn"`
}

// loadConfig loads layered config from user and project paths with env
// overrides, then applies g on top.
func loadConfig(g *Globals) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}
	cfg, err := config.LoadLayered(
		os.ExpandEnv("$HOME/.config/phonebook/config.yaml"),
		".phonebook/config.yaml",
	)
	if err != nil {
		return nil, err
	}
	if err := cfg.ApplyEnv(); err != nil {
		return nil, err
	}
	if g != nil {
		if g.Backend != "" {
			cfg.Store.Backend = g.Backend
		}
		if g.File != "" {
			cfg.Store.Path = g.File
		}
		if g.DSN != "" {
			cfg.Store.DSN = g.DSN
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// session is an opened phone book together with everything needed to
// persist it and release its resources.
type session struct {
	cfg   *config.Config
	log   *zap.Logger
	store store.Store
	book  *book.Book
	close func()
}

// openSession loads config, builds the logger and store, and loads the book.
// Every later mutation of the book is saved to the store immediately.
func openSession(ctx context.Context, g *Globals) (*session, error) {
	cfg, err := loadConfig(g)
	if err != nil {
		return nil, err
	}
	log, syncLog, err := logging.New(cfg.Log)
	if err != nil {
		return nil, err
	}
	st, closeStore, err := store.Open(ctx, cfg.Store, log)
	if err != nil {
		syncLog()
		return nil, err
	}

	b, err := loadBook(ctx, st)
	if err != nil {
		_ = closeStore()
		syncLog()
		return nil, err
	}
	log.Debug("phone book loaded",
		zap.String("backend", cfg.Store.Backend),
		zap.Int("contacts", b.Len()),
	)

	return &session{
		cfg:   cfg,
		log:   log,
		store: st,
		book:  b,
		close: func() {
			if err := closeStore(); err != nil {
				log.Warn("closing store", zap.Error(err))
			}
			syncLog()
		},
	}, nil
}

// loadBook reads st into a new book that writes back to st on every
// mutation after the initial load.
func loadBook(ctx context.Context, st store.Store) (*book.Book, error) {
	var loaded bool
	b := book.New(book.WithSync(func(entries []book.Entry) error {
		if !loaded {
			return nil
		}
		return st.Save(ctx, entries)
	}))
	if err := b.Load(ctx, st); err != nil {
		return nil, err
	}
	loaded = true
	return b, nil
}

// ShellCmd runs the line-oriented interactive shell.
type ShellCmd struct{}

// Run executes the shell command.
func (s *ShellCmd) Run(g *Globals) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	defer sess.close()

	sh := shell.New(sess.book, os.Stdin, os.Stdout,
		shell.WithLogger(sess.log),
		shell.WithEmptyQueryAll(sess.cfg.Search.EmptyQuery == config.EmptyQueryAll),
	)
	return s.run(ctx, sh)
}

// shellRunner abstracts shell.Shell for testing.
type shellRunner interface {
	Run(ctx context.Context) error
}

// run executes the shell, treating an interrupt as a normal exit.
func (s *ShellCmd) run(ctx context.Context, sh shellRunner) error {
	err := sh.Run(ctx)
	if errors.Is(err, context.Canceled) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("shell: %w", err)
	}
	return nil
}

// ListCmd prints every contact.
type ListCmd struct{}

// Run executes the list command.
func (l *ListCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("list: %w", err)
	}
	defer sess.close()
	return l.run(os.Stdout, sess.book)
}

// run prints b to w, enabling testable wiring.
func (l *ListCmd) run(w io.Writer, b *book.Book) error {
	if b.Len() == 0 {
		_, _ = fmt.Fprintln(w, "Phone book is empty.")
		return nil
	}
	for i, c := range b.Contacts() {
		shell.PrintContact(w, c, i)
	}
	return nil
}

// AddCmd adds one contact from flags.
type AddCmd struct {
	First   string `help:"First name." required:""`
	Last    string `help:"Last name." required:""`
	Email   string `help:"Email address." required:""`
	Phone   string `help:"Phone number." required:""`
	Type    string `help:"Phone type (work, home or office)." default:"home"`
	Middle  string `help:"Middle name."`
	Address string `help:"Postal address."`
	Birth   string `help:"Birth date (YYYY-MM-DD)."`
}

// Run executes the add command.
func (a *AddCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	defer sess.close()
	return a.run(os.Stdout, sess.book)
}

// run builds the contact from flags and adds it to b.
func (a *AddCmd) run(w io.Writer, b *book.Book) error {
	c, err := a.contact()
	if err != nil {
		return fmt.Errorf("add: %w", err)
	}
	if _, err := b.Add(*c); err != nil {
		return fmt.Errorf("add: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Added %s (index %d)\n", c.FullName(), b.Len()-1)
	return nil
}

func (a *AddCmd) contact() (*contact.Contact, error) {
	phone, err := contact.NewPhoneNumber(contact.ParseCategory(a.Type), a.Phone)
	if err != nil {
		return nil, err
	}
	c, err := contact.New(a.First, a.Last, a.Email, phone)
	if err != nil {
		return nil, err
	}
	if a.Middle != "" {
		if err := c.SetMiddleName(a.Middle); err != nil {
			return nil, err
		}
	}
	c.SetAddress(a.Address)
	if a.Birth != "" {
		if err := c.SetBirthDate(a.Birth); err != nil {
			return nil, err
		}
	}
	return c, nil
}

// RemoveCmd removes the contact at a zero-based index.
type RemoveCmd struct {
	Index int `arg:"" help:"Zero-based index as shown by list."`
}

// Run executes the remove command.
func (r *RemoveCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	defer sess.close()
	return r.run(os.Stdout, sess.book)
}

func (r *RemoveCmd) run(w io.Writer, b *book.Book) error {
	c, err := b.Get(r.Index)
	if err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	if err := b.Remove(r.Index); err != nil {
		return fmt.Errorf("remove: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Removed %s\n", c.FullName())
	return nil
}

// SearchCmd prints contacts matching a query.
type SearchCmd struct {
	Query string `arg:"" optional:"" help:"Text to match against names and email."`
}

// Run executes the search command.
func (s *SearchCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("search: %w", err)
	}
	defer sess.close()
	return s.run(os.Stdout, sess.book, sess.cfg.Search.EmptyQuery)
}

// run prints the matches for the query. An empty query matches everything
// only when emptyQuery is "all".
func (s *SearchCmd) run(w io.Writer, b *book.Book, emptyQuery string) error {
	var results []contact.Contact
	switch {
	case s.Query != "":
		results = b.Search(s.Query)
	case emptyQuery == config.EmptyQueryAll:
		results = b.Contacts()
	}
	if len(results) == 0 {
		_, _ = fmt.Fprintln(w, "No results.")
		return nil
	}
	for i, c := range results {
		shell.PrintContact(w, c, i)
	}
	return nil
}

// SortCmd sorts the phone book in place and saves the new order.
type SortCmd struct {
	Field string `arg:"" help:"Sort field: name, last, email or birthdate."`
}

// Run executes the sort command.
func (s *SortCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	defer sess.close()
	return s.run(os.Stdout, sess.book)
}

func (s *SortCmd) run(w io.Writer, b *book.Book) error {
	if err := b.SortBy(s.Field); err != nil {
		return fmt.Errorf("sort: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Sorted %d contacts by %s\n", b.Len(), s.Field)
	return nil
}

// --- Browse command ---

// BrowseCmd opens the contact browser TUI.
type BrowseCmd struct{}

// teaRunner abstracts Bubble Tea program execution for testing.
type teaRunner interface {
	Run() (tea.Model, error)
}

// Run builds real dependencies and launches the browser.
func (c *BrowseCmd) Run(g *Globals) error {
	isTTY := isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())
	if !isTTY {
		return c.run(false, nil)
	}

	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	defer sess.close()

	prog := tea.NewProgram(browse.NewModel(sess.book), tea.WithAltScreen())
	return c.run(true, prog)
}

// run executes the tea program, enabling testable wiring.
func (c *BrowseCmd) run(isTTY bool, prog teaRunner) error {
	if !isTTY {
		return fmt.Errorf("browse: requires a terminal (TTY)")
	}
	if _, err := prog.Run(); err != nil {
		return fmt.Errorf("browse: %w", err)
	}
	return nil
}

// --- Import and export ---

// StoreFlags selects a store other than the configured one.
type StoreFlags struct {
	Backend  string `help:"Backend of the other store (file or postgres)." default:"file"`
	Encoding string `help:"Encoding of the other file store (utf-8 or cp1251)." default:"utf-8"`
	DSN      string `help:"Connection string of the other postgres store." name:"dsn"`
}

// config returns the store config for path, which is a file path for the
// file backend and ignored for postgres.
func (f StoreFlags) config(path string) config.Store {
	return config.Store{
		Backend:  f.Backend,
		Path:     path,
		Encoding: f.Encoding,
		DSN:      f.DSN,
	}
}

// ImportCmd copies contacts from another store into the phone book.
type ImportCmd struct {
	Src     string     `arg:"" optional:"" help:"Source contacts file (file backend)."`
	From    StoreFlags `embed:"" prefix:"from-"`
	Replace bool       `help:"Replace the phone book instead of appending."`
}

// Run executes the import command.
func (c *ImportCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer sess.close()

	src, closeSrc, err := store.Open(ctx, c.From.config(c.Src), sess.log)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	defer func() { _ = closeSrc() }()

	return c.run(ctx, os.Stdout, sess.book, src)
}

// run loads src and merges it into b.
func (c *ImportCmd) run(ctx context.Context, w io.Writer, b *book.Book, src book.Source) error {
	entries, err := src.Load(ctx)
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	if c.Replace {
		err = b.Replace(entries)
	} else {
		// Imported contacts get fresh identities so a repeated import
		// cannot collide with existing entries.
		merged := b.Entries()
		for _, e := range entries {
			merged = append(merged, book.Entry{Contact: e.Contact})
		}
		err = b.Replace(merged)
	}
	if err != nil {
		return fmt.Errorf("import: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Imported %d contacts (%d total)\n", len(entries), b.Len())
	return nil
}

// ExportCmd copies the phone book into another store.
type ExportCmd struct {
	Dst string     `arg:"" optional:"" help:"Destination contacts file (file backend)."`
	To  StoreFlags `embed:"" prefix:"to-"`
}

// Run executes the export command.
func (c *ExportCmd) Run(g *Globals) error {
	ctx := context.Background()
	sess, err := openSession(ctx, g)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer sess.close()

	dst, closeDst, err := store.Open(ctx, c.To.config(c.Dst), sess.log)
	if err != nil {
		return fmt.Errorf("export: %w", err)
	}
	defer func() { _ = closeDst() }()

	return c.run(ctx, os.Stdout, sess.book, dst)
}

func (c *ExportCmd) run(ctx context.Context, w io.Writer, b *book.Book, dst book.Sink) error {
	if err := b.Save(ctx, dst); err != nil {
		return fmt.Errorf("export: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Exported %d contacts\n", b.Len())
	return nil
}

// --- Init command ---

// InitCmd writes the annotated default config.
type InitCmd struct {
	Path  string `arg:"" optional:"" default:".phonebook/config.yaml" help:"Where to write the config."`
	Force bool   `help:"Overwrite an existing file."`
}

// Run executes the init command.
func (c *InitCmd) Run() error {
	return c.run(os.Stdout)
}

func (c *InitCmd) run(w io.Writer) error {
	if !c.Force {
		if _, err := os.Stat(c.Path); err == nil {
			return fmt.Errorf("init: %s already exists (use --force to overwrite)", c.Path)
		}
	}
	if err := os.MkdirAll(filepath.Dir(c.Path), 0o755); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	if err := os.WriteFile(c.Path, phonebook.DefaultConfig, 0o644); err != nil {
		return fmt.Errorf("init: %w", err)
	}
	_, _ = fmt.Fprintf(w, "Wrote %s\n", c.Path)
	return nil
}

const (
	exitSuccess = 0
	exitData    = 1
	exitSetup   = 2
)

// exitCode maps an error to the appropriate exit code.
func exitCode(err error) int {
	if err == nil {
		return exitSuccess
	}
	for _, target := range []error{
		contact.ErrInvalidArgument,
		contact.ErrOutOfRange,
		contact.ErrMalformed,
		book.ErrNotFound,
		book.ErrUnknownField,
	} {
		if errors.Is(err, target) {
			return exitData
		}
	}
	return exitSetup
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("phonebook"),
		kong.Description("Keep a phone book in a flat file or PostgreSQL."),
		kong.Vars{"version": version + " " + commit + " " + date},
	)
	err := ctx.Run(&cli.Globals)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %s\n", err)
		os.Exit(exitCode(err))
	}
}
