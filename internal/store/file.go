package store

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"
	"golang.org/x/text/transform"

	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/config"
	"github.com/smileynet/phonebook/internal/contact"
)

// maxLineSize bounds a single contact line; longer lines are skipped.
const maxLineSize = 1 << 20

// FileStore keeps one contact per line in a text file.
type FileStore struct {
	path string
	enc  encoding.Encoding // nil means UTF-8
	log  *zap.Logger
}

// NewFileStore creates a FileStore for path. encodingName is "utf-8" (or
// empty) or "cp1251".
func NewFileStore(path, encodingName string, log *zap.Logger) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("store: file path cannot be empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	s := &FileStore{path: path, log: log}
	switch strings.ToLower(encodingName) {
	case "", config.EncodingUTF8, "utf8":
	case config.EncodingCP1251, "windows-1251":
		s.enc = charmap.Windows1251
	default:
		return nil, fmt.Errorf("store: unsupported encoding %q", encodingName)
	}
	return s, nil
}

// Path returns the file the store reads and writes.
func (s *FileStore) Path() string { return s.path }

// Load reads every well-formed line. A file that cannot be opened yields an
// empty result. Lines that fail to parse are skipped and logged.
func (s *FileStore) Load(_ context.Context) ([]book.Entry, error) {
	f, err := os.Open(s.path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			s.log.Debug("contacts file not found, starting empty", zap.String("path", s.path))
		} else {
			s.log.Warn("cannot open contacts file, starting empty", zap.String("path", s.path), zap.Error(err))
		}
		return nil, nil
	}
	defer f.Close()

	var r io.Reader = f
	if s.enc != nil {
		r = transform.NewReader(f, s.enc.NewDecoder())
	}

	var (
		entries []book.Entry
		skipped int
		lineNo  int
	)
	br := bufio.NewReader(r)
	for {
		line, tooLong, err := readLine(br)
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("store: reading %s: %w", s.path, err)
		}
		lineNo++
		if tooLong {
			skipped++
			s.log.Warn("skipping oversized contact line",
				zap.String("path", s.path), zap.Int("line", lineNo), zap.Int("limit", maxLineSize))
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		c, err := contact.Parse(line)
		if err != nil {
			skipped++
			s.log.Warn("skipping malformed contact line",
				zap.String("path", s.path), zap.Int("line", lineNo), zap.Error(err))
			continue
		}
		entries = append(entries, book.Entry{Contact: *c})
	}

	s.log.Debug("loaded contacts", zap.String("path", s.path),
		zap.Int("contacts", len(entries)), zap.Int("skipped", skipped))
	return entries, nil
}

// readLine returns the next line without its "\n" or "\r\n" terminator.
// A line longer than maxLineSize is consumed to its end and reported with
// tooLong set instead of being returned.
func readLine(br *bufio.Reader) (line string, tooLong bool, err error) {
	var buf []byte
	for {
		chunk, isPrefix, err := br.ReadLine()
		if err != nil {
			if errors.Is(err, io.EOF) && (len(buf) > 0 || tooLong) {
				return string(buf), tooLong, nil
			}
			return "", false, err
		}
		if !tooLong {
			if len(buf)+len(chunk) > maxLineSize {
				tooLong, buf = true, nil
			} else {
				buf = append(buf, chunk...)
			}
		}
		if !isPrefix {
			return string(buf), tooLong, nil
		}
	}
}

// Save overwrites the file with entries, one per line. The file is replaced
// atomically via a temporary file in the same directory.
func (s *FileStore) Save(_ context.Context, entries []book.Entry) (err error) {
	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("store: creating directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.path)+".*")
	if err != nil {
		return fmt.Errorf("store: creating temp file: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	if err := tmp.Chmod(0o644); err != nil {
		return fmt.Errorf("store: setting mode on %s: %w", tmp.Name(), err)
	}

	var (
		w  io.Writer = tmp
		tw *transform.Writer
	)
	if s.enc != nil {
		tw = transform.NewWriter(tmp, s.enc.NewEncoder())
		w = tw
	}
	bw := bufio.NewWriter(w)
	for _, e := range entries {
		if _, err := bw.WriteString(e.Contact.String() + "\n"); err != nil {
			return fmt.Errorf("store: writing %s: %w", s.path, err)
		}
	}
	if err := bw.Flush(); err != nil {
		return fmt.Errorf("store: writing %s: %w", s.path, err)
	}
	if tw != nil {
		if err := tw.Close(); err != nil {
			return fmt.Errorf("store: encoding %s: %w", s.path, err)
		}
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("store: closing %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		return fmt.Errorf("store: replacing %s: %w", s.path, err)
	}

	s.log.Debug("saved contacts", zap.String("path", s.path), zap.Int("contacts", len(entries)))
	return nil
}
