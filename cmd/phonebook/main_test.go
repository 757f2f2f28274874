package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/alecthomas/kong"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/smileynet/phonebook"
	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/config"
	"github.com/smileynet/phonebook/internal/contact"
	"github.com/smileynet/phonebook/internal/store"
)

// errExitCalled is a sentinel used to catch kong's os.Exit calls in tests.
var errExitCalled = errors.New("exit called")

func newParser(t *testing.T, cli *CLI) *kong.Kong {
	t.Helper()
	k, err := kong.New(cli, kong.Vars{"version": "test"})
	if err != nil {
		t.Fatal(err)
	}
	return k
}

func TestFeature_CommandParsing(t *testing.T) {
	t.Run("version flag prints version commit and date", func(t *testing.T) {
		// Given: a CLI parser with version, commit, and date fields
		var cli CLI
		var buf bytes.Buffer
		versionStr := "v1.0.0 abc1234 2026-01-01T00:00:00Z"
		k, err := kong.New(&cli,
			kong.Vars{"version": versionStr},
			kong.Writers(&buf, &buf),
			kong.Exit(func(int) { panic(errExitCalled) }),
		)
		if err != nil {
			t.Fatal(err)
		}

		// When: --version flag is passed
		defer func() {
			r := recover()
			if r == nil {
				t.Fatal("expected panic from --version flag")
			}
			err, ok := r.(error)
			if !ok || !errors.Is(err, errExitCalled) {
				panic(r)
			}

			// Then: version, commit, and date are all present in output
			output := buf.String()
			for _, want := range []string{"v1.0.0", "abc1234", "2026-01-01T00:00:00Z"} {
				if !strings.Contains(output, want) {
					t.Errorf("version output = %q, want to contain %q", output, want)
				}
			}
		}()

		k.Parse([]string{"--version"}) //nolint:errcheck // --version triggers panic via Exit hook
	})

	t.Run("no args selects the shell", func(t *testing.T) {
		var cli CLI
		kctx, err := newParser(t, &cli).Parse([]string{})
		if err != nil {
			t.Fatal(err)
		}
		if kctx.Command() != "shell" {
			t.Errorf("got command %q, want %q", kctx.Command(), "shell")
		}
	})

	tests := []struct {
		name    string
		args    []string
		command string
		check   func(t *testing.T, cli *CLI)
	}{
		{
			name:    "add with flags",
			args:    []string{"add", "--first", "Ivan", "--last", "Petrov", "--email", "i@p.ru", "--phone", "89161234567", "--type", "office"},
			command: "add",
			check: func(t *testing.T, cli *CLI) {
				if cli.Add.First != "Ivan" || cli.Add.Phone != "89161234567" || cli.Add.Type != "office" {
					t.Errorf("add flags = %+v", cli.Add)
				}
			},
		},
		{
			name:    "add defaults phone type to home",
			args:    []string{"add", "--first", "A", "--last", "B", "--email", "a@b.cd", "--phone", "1234567"},
			command: "add",
			check: func(t *testing.T, cli *CLI) {
				if cli.Add.Type != "home" {
					t.Errorf("type = %q, want home", cli.Add.Type)
				}
			},
		},
		{
			name:    "remove takes an index",
			args:    []string{"remove", "3"},
			command: "remove <index>",
			check: func(t *testing.T, cli *CLI) {
				if cli.Remove.Index != 3 {
					t.Errorf("index = %d, want 3", cli.Remove.Index)
				}
			},
		},
		{
			name:    "global flags",
			args:    []string{"-f", "other.txt", "--backend", "file", "list"},
			command: "list",
			check: func(t *testing.T, cli *CLI) {
				if cli.File != "other.txt" || cli.Backend != "file" {
					t.Errorf("globals = %+v", cli.Globals)
				}
			},
		},
		{
			name:    "import with prefixed store flags",
			args:    []string{"import", "old.txt", "--from-encoding", "cp1251", "--replace"},
			command: "import <src>",
			check: func(t *testing.T, cli *CLI) {
				if cli.Import.Src != "old.txt" || cli.Import.From.Encoding != "cp1251" || !cli.Import.Replace {
					t.Errorf("import = %+v", cli.Import)
				}
				if cli.Import.From.Backend != "file" {
					t.Errorf("from backend = %q, want file", cli.Import.From.Backend)
				}
			},
		},
		{
			name:    "export to postgres",
			args:    []string{"export", "--to-backend", "postgres", "--to-dsn", "postgres://x"},
			command: "export",
			check: func(t *testing.T, cli *CLI) {
				if cli.Export.To.Backend != "postgres" || cli.Export.To.DSN != "postgres://x" {
					t.Errorf("export = %+v", cli.Export)
				}
			},
		},
		{
			name:    "init default path",
			args:    []string{"init"},
			command: "init",
			check: func(t *testing.T, cli *CLI) {
				if cli.Init.Path != ".phonebook/config.yaml" {
					t.Errorf("path = %q", cli.Init.Path)
				}
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cli CLI
			kctx, err := newParser(t, &cli).Parse(tt.args)
			if err != nil {
				t.Fatal(err)
			}
			if kctx.Command() != tt.command {
				t.Errorf("got command %q, want %q", kctx.Command(), tt.command)
			}
			tt.check(t, &cli)
		})
	}

	t.Run("add requires its flags", func(t *testing.T) {
		var cli CLI
		if _, err := newParser(t, &cli).Parse([]string{"add", "--first", "Ivan"}); err == nil {
			t.Fatal("expected error for missing required flags")
		}
	})
}

// --- Helpers ---

func mkContact(t *testing.T, first, last, email string) contact.Contact {
	t.Helper()
	p, err := contact.NewPhoneNumber(contact.Work, "89161234567")
	if err != nil {
		t.Fatal(err)
	}
	c, err := contact.New(first, last, email, p)
	if err != nil {
		t.Fatal(err)
	}
	return *c
}

// seedFile writes contacts to a new file store and returns its path.
func seedFile(t *testing.T, contacts ...contact.Contact) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "contacts.txt")
	st, err := store.NewFileStore(path, config.EncodingUTF8, nil)
	if err != nil {
		t.Fatal(err)
	}
	b := book.New()
	for _, c := range contacts {
		if _, err := b.Add(c); err != nil {
			t.Fatal(err)
		}
	}
	if err := b.Save(context.Background(), st); err != nil {
		t.Fatal(err)
	}
	return path
}

// openFileBook loads the file at path into an autosaving book.
func openFileBook(t *testing.T, path string) *book.Book {
	t.Helper()
	st, err := store.NewFileStore(path, config.EncodingUTF8, nil)
	if err != nil {
		t.Fatal(err)
	}
	b, err := loadBook(context.Background(), st)
	if err != nil {
		t.Fatal(err)
	}
	return b
}

func readLines(t *testing.T, path string) []string {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	return strings.Split(strings.TrimRight(string(data), "\n"), "\n")
}

// --- Session wiring ---

func TestLoadBook_SavesOnlyAfterLoad(t *testing.T) {
	// Given: a file with one good line and one malformed line
	path := filepath.Join(t.TempDir(), "contacts.txt")
	good := mkContact(t, "Ivan", "Petrov", "i@p.ru")
	content := good.String() + "\nbroken;line\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	// When: the book is loaded
	b := openFileBook(t, path)

	// Then: loading does not rewrite the file
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != content {
		t.Errorf("file rewritten on load:\n%s", data)
	}
	if b.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", b.Len())
	}

	// When: the book is mutated
	if _, err := b.Add(mkContact(t, "Anna", "Lee", "a@l.io")); err != nil {
		t.Fatal(err)
	}

	// Then: the file holds exactly the book
	lines := readLines(t, path)
	if len(lines) != 2 || !strings.HasPrefix(lines[1], "Anna;Lee;") {
		t.Errorf("file after add = %q", lines)
	}
}

func TestLoadConfig(t *testing.T) {
	isolate := func(t *testing.T) string {
		t.Helper()
		dir := t.TempDir()
		wd, err := os.Getwd()
		if err != nil {
			t.Fatal(err)
		}
		if err := os.Chdir(dir); err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = os.Chdir(wd) })
		t.Setenv("HOME", t.TempDir())
		for _, v := range []string{"PHONEBOOK_STORE", "PHONEBOOK_PATH", "PHONEBOOK_ENCODING", "PHONEBOOK_DSN", "PHONEBOOK_LOG_LEVEL"} {
			t.Setenv(v, "")
		}
		return dir
	}

	t.Run("defaults", func(t *testing.T) {
		isolate(t)
		cfg, err := loadConfig(nil)
		if err != nil {
			t.Fatal(err)
		}
		if *cfg != config.DefaultConfig() {
			t.Errorf("cfg = %+v, want defaults", *cfg)
		}
	})

	t.Run("project file, env and flags stack in order", func(t *testing.T) {
		// Given: a project config, an env override and a global flag
		dir := isolate(t)
		if err := os.MkdirAll(filepath.Join(dir, ".phonebook"), 0o755); err != nil {
			t.Fatal(err)
		}
		yaml := "store:\n  path: project.txt\n  encoding: cp1251\nlog:\n  level: info\n"
		if err := os.WriteFile(filepath.Join(dir, ".phonebook", "config.yaml"), []byte(yaml), 0o644); err != nil {
			t.Fatal(err)
		}
		t.Setenv("PHONEBOOK_LOG_LEVEL", "debug")

		// When: config is loaded with a file flag
		cfg, err := loadConfig(&Globals{File: "flag.txt"})
		if err != nil {
			t.Fatal(err)
		}

		// Then: each layer wins over the one before it
		if cfg.Store.Path != "flag.txt" {
			t.Errorf("path = %q, want flag.txt", cfg.Store.Path)
		}
		if cfg.Store.Encoding != config.EncodingCP1251 {
			t.Errorf("encoding = %q, want cp1251", cfg.Store.Encoding)
		}
		if cfg.Log.Level != "debug" {
			t.Errorf("level = %q, want debug", cfg.Log.Level)
		}
	})

	t.Run("dotenv file is honored", func(t *testing.T) {
		dir := isolate(t)
		os.Unsetenv("PHONEBOOK_PATH") //nolint:errcheck // restored by t.Setenv cleanup
		if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("PHONEBOOK_PATH=from-dotenv.txt\n"), 0o644); err != nil {
			t.Fatal(err)
		}
		cfg, err := loadConfig(nil)
		if err != nil {
			t.Fatal(err)
		}
		if cfg.Store.Path != "from-dotenv.txt" {
			t.Errorf("path = %q, want from-dotenv.txt", cfg.Store.Path)
		}
	})

	t.Run("postgres without dsn fails validation", func(t *testing.T) {
		isolate(t)
		_, err := loadConfig(&Globals{Backend: config.BackendPostgres})
		if err == nil {
			t.Fatal("expected validation error")
		}
		if exitCode(err) != exitSetup {
			t.Errorf("exitCode = %d, want %d", exitCode(err), exitSetup)
		}
	})
}

// --- One-shot commands ---

func TestListCmd(t *testing.T) {
	t.Run("empty book", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&ListCmd{}).run(&buf, book.New()); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "Phone book is empty.\n" {
			t.Errorf("output = %q", buf.String())
		}
	})

	t.Run("numbered blocks", func(t *testing.T) {
		b := openFileBook(t, seedFile(t,
			mkContact(t, "Ivan", "Petrov", "i@p.ru"),
			mkContact(t, "Anna", "Lee", "a@l.io"),
		))
		var buf bytes.Buffer
		if err := (&ListCmd{}).run(&buf, b); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"=== 0 ===\nIvan Petrov\nEmail: i@p.ru\n", "=== 1 ===\nAnna Lee\n", "Work: 8 (916) 123-45-67"} {
			if !strings.Contains(out, want) {
				t.Errorf("output missing %q, got:\n%s", want, out)
			}
		}
	})
}

func TestAddCmd(t *testing.T) {
	t.Run("adds and saves", func(t *testing.T) {
		// Given: an empty phone book file
		path := seedFile(t)
		b := openFileBook(t, path)
		cmd := &AddCmd{
			First: "Ivan", Last: "Petrov", Email: "ivan@example.com",
			Phone: "+7 916 123-45-67", Type: "office",
			Middle: "Sergeevich", Address: "Moscow", Birth: "1990-05-17",
		}

		// When: add runs
		var buf bytes.Buffer
		if err := cmd.run(&buf, b); err != nil {
			t.Fatal(err)
		}

		// Then: the contact is reported and persisted
		if !strings.Contains(buf.String(), "Added Ivan Petrov Sergeevich (index 0)") {
			t.Errorf("output = %q", buf.String())
		}
		lines := readLines(t, path)
		want := "Ivan;Petrov;Sergeevich;Moscow;1990-05-17;ivan@example.com;phones:(2,89161234567)"
		if len(lines) != 1 || lines[0] != want {
			t.Errorf("file = %q, want [%q]", lines, want)
		}
	})

	tests := []struct {
		name string
		cmd  AddCmd
	}{
		{"bad first name", AddCmd{First: "1van", Last: "Petrov", Email: "i@p.ru", Phone: "89161234567"}},
		{"bad email", AddCmd{First: "Ivan", Last: "Petrov", Email: "nope", Phone: "89161234567"}},
		{"bad phone", AddCmd{First: "Ivan", Last: "Petrov", Email: "i@p.ru", Phone: "12"}},
		{"bad birth date", AddCmd{First: "Ivan", Last: "Petrov", Email: "i@p.ru", Phone: "89161234567", Birth: "1990-02-30"}},
		{"bad middle name", AddCmd{First: "Ivan", Last: "Petrov", Email: "i@p.ru", Phone: "89161234567", Middle: "-x"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b := book.New()
			err := tt.cmd.run(&bytes.Buffer{}, b)
			if !errors.Is(err, contact.ErrInvalidArgument) {
				t.Fatalf("err = %v, want ErrInvalidArgument", err)
			}
			if exitCode(err) != exitData {
				t.Errorf("exitCode = %d, want %d", exitCode(err), exitData)
			}
			if b.Len() != 0 {
				t.Errorf("Len() = %d, want 0", b.Len())
			}
		})
	}
}

func TestRemoveCmd(t *testing.T) {
	path := seedFile(t,
		mkContact(t, "Ivan", "Petrov", "i@p.ru"),
		mkContact(t, "Anna", "Lee", "a@l.io"),
	)
	b := openFileBook(t, path)

	t.Run("out of range", func(t *testing.T) {
		err := (&RemoveCmd{Index: 2}).run(&bytes.Buffer{}, b)
		if !errors.Is(err, book.ErrOutOfRange) {
			t.Fatalf("err = %v, want ErrOutOfRange", err)
		}
		if exitCode(err) != exitData {
			t.Errorf("exitCode = %d, want %d", exitCode(err), exitData)
		}
		if len(readLines(t, path)) != 2 {
			t.Error("file should be untouched")
		}
	})

	t.Run("removes and saves", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&RemoveCmd{Index: 0}).run(&buf, b); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "Removed Ivan Petrov\n" {
			t.Errorf("output = %q", buf.String())
		}
		lines := readLines(t, path)
		if len(lines) != 1 || !strings.HasPrefix(lines[0], "Anna;") {
			t.Errorf("file = %q", lines)
		}
	})
}

func TestSearchCmd(t *testing.T) {
	b := book.New()
	for _, c := range []contact.Contact{
		mkContact(t, "Ivan", "Petrov", "ivan@example.com"),
		mkContact(t, "Anna", "Lee", "anna@mail.ru"),
	} {
		if _, err := b.Add(c); err != nil {
			t.Fatal(err)
		}
	}

	tests := []struct {
		name       string
		query      string
		emptyQuery string
		want       []string
		wantNone   bool
	}{
		{"by last name", "petrov", config.EmptyQueryNone, []string{"Ivan Petrov"}, false},
		{"by full name", "Anna Lee", config.EmptyQueryNone, []string{"Anna Lee"}, false},
		{"by email", "MAIL.RU", config.EmptyQueryNone, []string{"Anna Lee"}, false},
		{"no match", "zzz", config.EmptyQueryNone, nil, true},
		{"empty query matches nothing", "", config.EmptyQueryNone, nil, true},
		{"empty query matches all", "", config.EmptyQueryAll, []string{"Ivan Petrov", "Anna Lee"}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := (&SearchCmd{Query: tt.query}).run(&buf, b, tt.emptyQuery); err != nil {
				t.Fatal(err)
			}
			out := buf.String()
			if tt.wantNone && out != "No results.\n" {
				t.Errorf("output = %q, want No results.", out)
			}
			for _, want := range tt.want {
				if !strings.Contains(out, want) {
					t.Errorf("output missing %q, got:\n%s", want, out)
				}
			}
		})
	}
}

func TestSortCmd(t *testing.T) {
	path := seedFile(t,
		mkContact(t, "Ivan", "Petrov", "ivan@example.com"),
		mkContact(t, "Anna", "Lee", "anna@mail.ru"),
	)
	b := openFileBook(t, path)

	t.Run("unknown field", func(t *testing.T) {
		err := (&SortCmd{Field: "phone"}).run(&bytes.Buffer{}, b)
		if !errors.Is(err, book.ErrUnknownField) {
			t.Fatalf("err = %v, want ErrUnknownField", err)
		}
		if exitCode(err) != exitData {
			t.Errorf("exitCode = %d, want %d", exitCode(err), exitData)
		}
	})

	t.Run("sorts and saves", func(t *testing.T) {
		var buf bytes.Buffer
		if err := (&SortCmd{Field: "name"}).run(&buf, b); err != nil {
			t.Fatal(err)
		}
		if buf.String() != "Sorted 2 contacts by name\n" {
			t.Errorf("output = %q", buf.String())
		}
		lines := readLines(t, path)
		if !strings.HasPrefix(lines[0], "Anna;") || !strings.HasPrefix(lines[1], "Ivan;") {
			t.Errorf("file order = %q", lines)
		}
	})
}

// --- Import and export ---

func TestImportCmd(t *testing.T) {
	src := func(t *testing.T) store.Store {
		t.Helper()
		st, err := store.NewFileStore(seedFile(t, mkContact(t, "Anna", "Lee", "a@l.io")), config.EncodingUTF8, nil)
		if err != nil {
			t.Fatal(err)
		}
		return st
	}

	t.Run("appends twice with fresh identities", func(t *testing.T) {
		// Given: a book with one contact and a source with one contact
		path := seedFile(t, mkContact(t, "Ivan", "Petrov", "i@p.ru"))
		b := openFileBook(t, path)
		s := src(t)
		cmd := &ImportCmd{}

		// When: the same source is imported twice
		var buf bytes.Buffer
		for i := 0; i < 2; i++ {
			if err := cmd.run(context.Background(), &buf, b, s); err != nil {
				t.Fatal(err)
			}
		}

		// Then: both copies are kept with distinct identities and saved
		if b.Len() != 3 {
			t.Fatalf("Len() = %d, want 3", b.Len())
		}
		seen := map[string]bool{}
		for _, e := range b.Entries() {
			if seen[e.ID] {
				t.Errorf("duplicate ID %q", e.ID)
			}
			seen[e.ID] = true
		}
		if !strings.Contains(buf.String(), "Imported 1 contacts (3 total)") {
			t.Errorf("output = %q", buf.String())
		}
		if len(readLines(t, path)) != 3 {
			t.Errorf("file has %d lines, want 3", len(readLines(t, path)))
		}
	})

	t.Run("replace", func(t *testing.T) {
		b := openFileBook(t, seedFile(t, mkContact(t, "Ivan", "Petrov", "i@p.ru")))
		if err := (&ImportCmd{Replace: true}).run(context.Background(), &bytes.Buffer{}, b, src(t)); err != nil {
			t.Fatal(err)
		}
		c, err := b.Get(0)
		if err != nil {
			t.Fatal(err)
		}
		if b.Len() != 1 || c.FirstName() != "Anna" {
			t.Errorf("book = %d contacts, first %q; want only Anna", b.Len(), c.FirstName())
		}
	})

	t.Run("source error leaves book untouched", func(t *testing.T) {
		b := book.New()
		err := (&ImportCmd{}).run(context.Background(), &bytes.Buffer{}, b, failingStore{})
		if err == nil || !strings.Contains(err.Error(), "import:") {
			t.Fatalf("err = %v, want import error", err)
		}
		if exitCode(err) != exitSetup {
			t.Errorf("exitCode = %d, want %d", exitCode(err), exitSetup)
		}
	})
}

func TestExportCmd_Cp1251(t *testing.T) {
	// Given: a book with a Cyrillic contact
	b := book.New()
	if _, err := b.Add(mkContact(t, "Анна", "Смирнова", "anna@mail.ru")); err != nil {
		t.Fatal(err)
	}
	dst := filepath.Join(t.TempDir(), "out.txt")
	cmd := &ExportCmd{Dst: dst, To: StoreFlags{Backend: config.BackendFile, Encoding: config.EncodingCP1251}}

	// When: exported through a cp1251 file store
	st, closeStore, err := store.Open(context.Background(), cmd.To.config(cmd.Dst), nil)
	if err != nil {
		t.Fatal(err)
	}
	defer func() { _ = closeStore() }()
	var buf bytes.Buffer
	if err := cmd.run(context.Background(), &buf, b, st); err != nil {
		t.Fatal(err)
	}

	// Then: the file is single-byte encoded and reads back intact
	data, err := os.ReadFile(dst)
	if err != nil {
		t.Fatal(err)
	}
	if bytes.Contains(data, []byte("Анна")) {
		t.Error("file should not contain UTF-8 Cyrillic")
	}
	if data[0] != 0xC0 { // 'А' in Windows-1251
		t.Errorf("first byte = %#x, want 0xc0", data[0])
	}
	entries, err := st.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Contact.FirstName() != "Анна" {
		t.Errorf("reloaded = %+v", entries)
	}
	if buf.String() != "Exported 1 contacts\n" {
		t.Errorf("output = %q", buf.String())
	}
}

type failingStore struct{}

func (failingStore) Load(context.Context) ([]book.Entry, error) {
	return nil, errors.New("disk on fire")
}

func (failingStore) Save(context.Context, []book.Entry) error {
	return errors.New("disk on fire")
}

// --- Init ---

func TestInitCmd(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".phonebook", "config.yaml")

	// Writes the embedded template, creating parent directories.
	var buf bytes.Buffer
	if err := (&InitCmd{Path: path}).run(&buf); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, phonebook.DefaultConfig) {
		t.Error("written config differs from the embedded template")
	}

	// Refuses to overwrite without --force.
	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = (&InitCmd{Path: path}).run(&bytes.Buffer{})
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("err = %v, want already exists", err)
	}

	// Overwrites with --force.
	if err := (&InitCmd{Path: path, Force: true}).run(&bytes.Buffer{}); err != nil {
		t.Fatal(err)
	}
	data, _ = os.ReadFile(path)
	if !bytes.Equal(data, phonebook.DefaultConfig) {
		t.Error("--force should overwrite the file")
	}
}

// --- Interactive commands ---

type fakeShell struct{ err error }

func (f fakeShell) Run(context.Context) error { return f.err }

func TestShellCmd_Run(t *testing.T) {
	tests := []struct {
		name    string
		err     error
		wantErr bool
	}{
		{"clean exit", nil, false},
		{"interrupt", context.Canceled, false},
		{"read failure", errors.New("stdin closed"), true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&ShellCmd{}).run(context.Background(), fakeShell{err: tt.err})
			if (err != nil) != tt.wantErr {
				t.Errorf("err = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestFeature_BrowseCommand(t *testing.T) {
	t.Run("run returns error when not a TTY", func(t *testing.T) {
		// Given a BrowseCmd
		cmd := &BrowseCmd{}

		// When run is called with isTTY=false
		err := cmd.run(false, nil)

		// Then an error mentioning "terminal" is returned
		if err == nil {
			t.Fatal("expected error, got nil")
		}
		if !strings.Contains(err.Error(), "terminal") {
			t.Errorf("error = %q, want to contain 'terminal'", err)
		}
	})

	t.Run("run executes tea program when TTY", func(t *testing.T) {
		cmd := &BrowseCmd{}
		mock := &mockTeaRunner{}

		if err := cmd.run(true, mock); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if !mock.ran {
			t.Error("tea program was not run")
		}
	})

	t.Run("run returns tea program error", func(t *testing.T) {
		cmd := &BrowseCmd{}
		mock := &mockTeaRunner{err: fmt.Errorf("tea: terminal error")}

		err := cmd.run(true, mock)
		if err == nil || !strings.Contains(err.Error(), "tea: terminal error") {
			t.Errorf("error = %v, want to contain tea error", err)
		}
	})
}

// mockTeaRunner stubs tea program execution for BrowseCmd testing.
type mockTeaRunner struct {
	ran bool
	err error
}

func (m *mockTeaRunner) Run() (tea.Model, error) {
	m.ran = true
	return nil, m.err
}

// Compile-time check: mockTeaRunner satisfies teaRunner.
var _ teaRunner = (*mockTeaRunner)(nil)

func TestExitCode(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil", nil, exitSuccess},
		{"invalid argument", fmt.Errorf("add: %w", contact.ErrInvalidArgument), exitData},
		{"out of range", fmt.Errorf("remove: %w", book.ErrOutOfRange), exitData},
		{"not found", book.ErrNotFound, exitData},
		{"unknown field", fmt.Errorf("sort: %w", book.ErrUnknownField), exitData},
		{"malformed", contact.ErrMalformed, exitData},
		{"setup", errors.New("store: connection refused"), exitSetup},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := exitCode(tt.err); got != tt.want {
				t.Errorf("exitCode(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
