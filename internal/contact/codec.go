package contact

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
)

// ErrMalformed indicates a serialized contact line is structurally broken.
var ErrMalformed = errors.New("malformed contact line")

const (
	fieldSep     = ";"
	phonesPrefix = "phones:"
	minFields    = 6 // the phones segment is optional
)

// String serializes c as one line:
//
//	first;last;middle;address;birthDate;email;phones:(type,number)(type,number)
func (c Contact) String() string {
	var b strings.Builder
	for _, f := range []string{c.firstName, c.lastName, c.middleName, c.address, c.birthDate, c.email} {
		b.WriteString(f)
		b.WriteString(fieldSep)
	}
	b.WriteString(phonesPrefix)
	for _, p := range c.phones {
		b.WriteByte('(')
		b.WriteString(strconv.Itoa(int(p.category)))
		b.WriteByte(',')
		b.WriteString(p.number)
		b.WriteByte(')')
	}
	return b.String()
}

// MarshalText implements encoding.TextMarshaler using the line format.
func (c Contact) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler using Parse.
func (c *Contact) UnmarshalText(text []byte) error {
	parsed, err := Parse(string(text))
	if err != nil {
		return err
	}
	*c = *parsed
	return nil
}

// Parse rebuilds a Contact from a line produced by String.
//
// A line with fewer than six fields fails with ErrMalformed; a header field
// that fails validation fails with ErrInvalidArgument. Individual phone
// entries that cannot be parsed or validated are dropped without error, so
// the result may have no phones at all.
func Parse(line string) (*Contact, error) {
	fields := splitFields(line)
	if len(fields) < minFields {
		return nil, fmt.Errorf("%w: %d fields, want %d", ErrMalformed, len(fields), minFields)
	}

	c := &Contact{}
	if err := c.SetFirstName(fields[0]); err != nil {
		return nil, err
	}
	if err := c.SetLastName(fields[1]); err != nil {
		return nil, err
	}
	if err := c.SetEmail(fields[5]); err != nil {
		return nil, err
	}
	if err := c.SetMiddleName(fields[2]); err != nil {
		return nil, err
	}
	c.SetAddress(fields[3])
	if err := c.SetBirthDate(fields[4]); err != nil {
		return nil, err
	}

	if len(fields) > minFields {
		c.phones = parsePhones(fields[minFields])
	}
	return c, nil
}

// splitFields splits on ';' the way a delimiter-driven line reader does:
// a trailing empty field is not produced.
func splitFields(line string) []string {
	if line == "" {
		return nil
	}
	fields := strings.Split(line, fieldSep)
	if fields[len(fields)-1] == "" {
		fields = fields[:len(fields)-1]
	}
	return fields
}

// parsePhones decodes "phones:(t,n)(t,n)...". Characters outside parentheses
// are skipped; an unterminated entry ends the scan.
func parsePhones(seg string) []PhoneNumber {
	rest, ok := strings.CutPrefix(seg, phonesPrefix)
	if !ok {
		return nil
	}

	var phones []PhoneNumber
	for {
		open := strings.IndexByte(rest, '(')
		if open < 0 {
			return phones
		}
		rest = rest[open+1:]
		end := strings.IndexByte(rest, ')')
		if end < 0 {
			return phones
		}
		if p, err := parsePhoneEntry(rest[:end]); err == nil {
			phones = append(phones, p)
		}
		rest = rest[end+1:]
	}
}

func parsePhoneEntry(pair string) (PhoneNumber, error) {
	typ, num, ok := strings.Cut(pair, ",")
	if !ok {
		return PhoneNumber{}, fmt.Errorf("%w: phone entry %q", ErrMalformed, pair)
	}
	n, err := strconv.Atoi(strings.TrimSpace(typ))
	if err != nil {
		return PhoneNumber{}, fmt.Errorf("%w: phone type %q", ErrMalformed, typ)
	}
	cat, err := CategoryFromInt(n)
	if err != nil {
		return PhoneNumber{}, err
	}
	return NewPhoneNumber(cat, num)
}
