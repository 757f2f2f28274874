package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/smileynet/phonebook/internal/book"
	"github.com/smileynet/phonebook/internal/contact"
)

const schema = `
CREATE TABLE IF NOT EXISTS contacts (
	id          TEXT PRIMARY KEY,
	position    INTEGER NOT NULL DEFAULT 0,
	first_name  TEXT NOT NULL,
	last_name   TEXT NOT NULL,
	middle_name TEXT NOT NULL DEFAULT '',
	address     TEXT NOT NULL DEFAULT '',
	birth_date  TEXT NOT NULL DEFAULT '',
	email       TEXT NOT NULL
);
CREATE TABLE IF NOT EXISTS phone_numbers (
	id         BIGSERIAL PRIMARY KEY,
	contact_id TEXT NOT NULL REFERENCES contacts(id) ON DELETE CASCADE,
	position   INTEGER NOT NULL,
	type       SMALLINT NOT NULL,
	number     TEXT NOT NULL
);
CREATE INDEX IF NOT EXISTS phone_numbers_contact_id_idx ON phone_numbers (contact_id);
`

const contactColumns = `id, first_name, last_name, middle_name, address, birth_date, email`

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// PostgresStore keeps entries in the contacts and phone_numbers tables.
type PostgresStore struct {
	db  *sql.DB
	log *zap.Logger

	// unreadable holds IDs of rows the last FetchAll skipped. Save keeps
	// them so a row that fails validation is never pruned unseen.
	unreadable map[string]struct{}
}

// OpenPostgres connects to dsn and verifies the connection.
func OpenPostgres(ctx context.Context, dsn string, log *zap.Logger) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("store: opening database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("store: pinging database: %w", err)
	}
	return NewPostgresStore(db, log), nil
}

// NewPostgresStore wraps an existing connection pool.
func NewPostgresStore(db *sql.DB, log *zap.Logger) *PostgresStore {
	if log == nil {
		log = zap.NewNop()
	}
	return &PostgresStore{db: db, log: log}
}

// Close releases the connection pool.
func (s *PostgresStore) Close() error {
	if s.db == nil {
		return nil
	}
	return s.db.Close()
}

// EnsureSchema creates the tables if they do not exist.
func (s *PostgresStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("store: creating schema: %w", err)
	}
	return nil
}

// Add inserts e after every existing contact.
func (s *PostgresStore) Add(ctx context.Context, e book.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		var pos int
		if err := tx.QueryRowContext(ctx, `SELECT COALESCE(MAX(position), -1) + 1 FROM contacts`).Scan(&pos); err != nil {
			return fmt.Errorf("store: next position: %w", err)
		}
		c := e.Contact
		if _, err := tx.ExecContext(ctx,
			`INSERT INTO contacts (`+contactColumns+`, position) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			e.ID, c.FirstName(), c.LastName(), c.MiddleName(), c.Address(), c.BirthDate(), c.Email(), pos,
		); err != nil {
			return fmt.Errorf("store: inserting contact %s: %w", e.ID, err)
		}
		return writePhones(ctx, tx, e)
	})
}

// Update rewrites the fields and phones of an existing contact.
func (s *PostgresStore) Update(ctx context.Context, e book.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		c := e.Contact
		res, err := tx.ExecContext(ctx,
			`UPDATE contacts SET first_name = $2, last_name = $3, middle_name = $4,
				address = $5, birth_date = $6, email = $7
			 WHERE id = $1`,
			e.ID, c.FirstName(), c.LastName(), c.MiddleName(), c.Address(), c.BirthDate(), c.Email(),
		)
		if err != nil {
			return fmt.Errorf("store: updating contact %s: %w", e.ID, err)
		}
		if err := expectRow(res, e.ID); err != nil {
			return err
		}
		return writePhones(ctx, tx, e)
	})
}

// Delete removes the contact with id and its phones.
func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM contacts WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("store: deleting contact %s: %w", id, err)
	}
	return expectRow(res, id)
}

// FetchByID returns the contact with id.
func (s *PostgresStore) FetchByID(ctx context.Context, id string) (book.Entry, error) {
	var r contactRow
	err := s.db.QueryRowContext(ctx,
		`SELECT `+contactColumns+` FROM contacts WHERE id = $1`, id,
	).Scan(&r.id, &r.first, &r.last, &r.middle, &r.address, &r.birth, &r.email)
	if errors.Is(err, sql.ErrNoRows) {
		return book.Entry{}, fmt.Errorf("%w: %q", book.ErrNotFound, id)
	}
	if err != nil {
		return book.Entry{}, fmt.Errorf("store: fetching contact %s: %w", id, err)
	}

	phones, err := s.fetchPhones(ctx, `WHERE contact_id = $1`, id)
	if err != nil {
		return book.Entry{}, err
	}
	c, err := assemble(r, phones[id])
	if err != nil {
		return book.Entry{}, fmt.Errorf("store: contact %s: %w", id, err)
	}
	return book.Entry{ID: id, Contact: c}, nil
}

// FetchAll returns every contact in stored order. Rows that cannot be
// rebuilt into a valid contact are skipped and logged.
func (s *PostgresStore) FetchAll(ctx context.Context) ([]book.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+contactColumns+` FROM contacts ORDER BY position, id`)
	if err != nil {
		return nil, fmt.Errorf("store: listing contacts: %w", err)
	}
	defer rows.Close()

	var list []contactRow
	for rows.Next() {
		var r contactRow
		if err := rows.Scan(&r.id, &r.first, &r.last, &r.middle, &r.address, &r.birth, &r.email); err != nil {
			return nil, fmt.Errorf("store: scanning contact: %w", err)
		}
		list = append(list, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing contacts: %w", err)
	}

	phones, err := s.fetchPhones(ctx, "")
	if err != nil {
		return nil, err
	}

	entries := make([]book.Entry, 0, len(list))
	s.unreadable = make(map[string]struct{})
	for _, r := range list {
		c, err := assemble(r, phones[r.id])
		if err != nil {
			s.unreadable[r.id] = struct{}{}
			s.log.Warn("skipping stored contact", zap.String("id", r.id), zap.Error(err))
			continue
		}
		entries = append(entries, book.Entry{ID: r.id, Contact: c})
	}
	return entries, nil
}

// Load implements book.Source.
func (s *PostgresStore) Load(ctx context.Context) ([]book.Entry, error) {
	return s.FetchAll(ctx)
}

// Save makes the tables mirror entries: every entry is upserted at its
// position and contacts not in entries are deleted, all in one transaction.
// Rows the last FetchAll could not read are left in place.
func (s *PostgresStore) Save(ctx context.Context, entries []book.Entry) error {
	return s.inTx(ctx, func(tx *sql.Tx) error {
		for pos, e := range entries {
			if e.ID == "" {
				return fmt.Errorf("store: entry %d has no ID", pos)
			}
			c := e.Contact
			if _, err := tx.ExecContext(ctx,
				`INSERT INTO contacts (`+contactColumns+`, position) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
				 ON CONFLICT (id) DO UPDATE SET
					first_name = EXCLUDED.first_name, last_name = EXCLUDED.last_name,
					middle_name = EXCLUDED.middle_name, address = EXCLUDED.address,
					birth_date = EXCLUDED.birth_date, email = EXCLUDED.email,
					position = EXCLUDED.position`,
				e.ID, c.FirstName(), c.LastName(), c.MiddleName(), c.Address(), c.BirthDate(), c.Email(), pos,
			); err != nil {
				return fmt.Errorf("store: saving contact %s: %w", e.ID, err)
			}
			if err := writePhones(ctx, tx, e); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM contacts WHERE NOT (id = ANY($1))`, pq.Array(s.keepIDs(entries))); err != nil {
			return fmt.Errorf("store: pruning contacts: %w", err)
		}
		s.log.Debug("saved contacts", zap.Int("contacts", len(entries)))
		return nil
	})
}

// keepIDs lists the contact IDs Save must not prune: every entry plus the
// rows the last FetchAll skipped.
func (s *PostgresStore) keepIDs(entries []book.Entry) []string {
	ids := make([]string, 0, len(entries)+len(s.unreadable))
	for _, e := range entries {
		ids = append(ids, e.ID)
	}
	for id := range s.unreadable {
		ids = append(ids, id)
	}
	return ids
}

func (s *PostgresStore) inTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("store: begin: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()
	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("store: commit: %w", err)
	}
	return nil
}

// fetchPhones returns phone rows grouped by contact ID, in position order.
func (s *PostgresStore) fetchPhones(ctx context.Context, where string, args ...any) (map[string][]phoneRow, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT contact_id, type, number FROM phone_numbers `+where+` ORDER BY contact_id, position`, args...)
	if err != nil {
		return nil, fmt.Errorf("store: listing phones: %w", err)
	}
	defer rows.Close()

	out := make(map[string][]phoneRow)
	for rows.Next() {
		var (
			id string
			p  phoneRow
		)
		if err := rows.Scan(&id, &p.typ, &p.number); err != nil {
			return nil, fmt.Errorf("store: scanning phone: %w", err)
		}
		out[id] = append(out[id], p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("store: listing phones: %w", err)
	}
	return out, nil
}

func writePhones(ctx context.Context, db execer, e book.Entry) error {
	if _, err := db.ExecContext(ctx, `DELETE FROM phone_numbers WHERE contact_id = $1`, e.ID); err != nil {
		return fmt.Errorf("store: clearing phones of %s: %w", e.ID, err)
	}
	for i, p := range e.Contact.Phones() {
		if _, err := db.ExecContext(ctx,
			`INSERT INTO phone_numbers (contact_id, position, type, number) VALUES ($1, $2, $3, $4)`,
			e.ID, i, int(p.Category()), p.Number(),
		); err != nil {
			return fmt.Errorf("store: inserting phone of %s: %w", e.ID, err)
		}
	}
	return nil
}

func expectRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("store: rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %q", book.ErrNotFound, id)
	}
	return nil
}

type contactRow struct {
	id, first, last, middle, address, birth, email string
}

type phoneRow struct {
	typ    int
	number string
}

// assemble rebuilds a contact from its row and phone rows. Header fields go
// through the validating setters; invalid phone rows are dropped, so the
// result may have no phones, just like a parsed line.
func assemble(r contactRow, rows []phoneRow) (contact.Contact, error) {
	var c contact.Contact
	if err := c.SetFirstName(r.first); err != nil {
		return contact.Contact{}, err
	}
	if err := c.SetLastName(r.last); err != nil {
		return contact.Contact{}, err
	}
	if err := c.SetEmail(r.email); err != nil {
		return contact.Contact{}, err
	}
	if err := c.SetMiddleName(r.middle); err != nil {
		return contact.Contact{}, err
	}
	c.SetAddress(r.address)
	if err := c.SetBirthDate(r.birth); err != nil {
		return contact.Contact{}, err
	}

	for _, pr := range rows {
		cat, err := contact.CategoryFromInt(pr.typ)
		if err != nil {
			continue
		}
		p, err := contact.NewPhoneNumber(cat, pr.number)
		if err != nil {
			continue
		}
		c.AddPhone(p)
	}
	return c, nil
}
