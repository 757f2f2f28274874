// Package validate holds the pure text checks applied to contact fields:
// names, email addresses, phone numbers and birth dates.
package validate

import (
	"strings"
	"time"
)

// Trim strips leading and trailing spaces and tabs. Other whitespace
// (newlines, non-breaking spaces) is left in place.
func Trim(s string) string {
	return strings.Trim(s, " \t")
}

// IsLetter reports whether r is an ASCII Latin letter or a Russian Cyrillic
// letter (А-я, Ё, ё).
func IsLetter(r rune) bool {
	switch {
	case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z':
		return true
	case r >= 'А' && r <= 'я', r == 'Ё', r == 'ё':
		return true
	}
	return false
}

func isDigit(r rune) bool {
	return r >= '0' && r <= '9'
}

// Name reports whether s is an acceptable first, last or middle name.
// After trimming it must start with a letter and contain only letters,
// digits, spaces and single hyphens that neither start nor end the name.
func Name(s string) bool {
	runes := []rune(Trim(s))
	if len(runes) == 0 || !IsLetter(runes[0]) {
		return false
	}
	last := len(runes) - 1
	for i, r := range runes {
		switch {
		case IsLetter(r), isDigit(r), r == ' ':
		case r == '-':
			if i == 0 || i == last || runes[i-1] == '-' {
				return false
			}
		default:
			return false
		}
	}
	return true
}

// Email reports whether s looks like an email address. The check is
// deliberately loose: a second '@' is not rejected as long as the last '.'
// follows the first '@' by at least two characters.
func Email(s string) bool {
	t := Trim(s)
	if t == "" {
		return false
	}

	at := strings.IndexByte(t, '@')
	if at <= 0 || at == len(t)-1 {
		return false
	}

	// Spaces hugging the '@' are tolerated and dropped.
	for at > 0 && t[at-1] == ' ' {
		t = t[:at-1] + t[at:]
		at--
	}
	for at+1 < len(t) && t[at+1] == ' ' {
		t = t[:at+1] + t[at+2:]
	}

	dot := strings.LastIndexByte(t, '.')
	if dot < 0 || dot <= at+1 || dot == len(t)-1 {
		return false
	}

	for i := 0; i < len(t); i++ {
		c := t[i]
		if isASCIIAlnum(c) || c == '@' || c == '.' || c == '_' || c == '-' {
			continue
		}
		return false
	}
	return true
}

func isASCIIAlnum(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z')
}

// NormalizePhone extracts the digits of s and rewrites a "+7" or "7"
// country prefix to the domestic "8". It returns the 11-digit result and
// true when the number is valid.
func NormalizePhone(s string) (string, bool) {
	t := Trim(s)
	if t == "" {
		return "", false
	}

	var b strings.Builder
	for i := 0; i < len(t); i++ {
		c := t[i]
		switch {
		case c >= '0' && c <= '9':
			b.WriteByte(c)
		case c == '+' && b.Len() == 0:
			b.WriteByte(c)
		}
	}
	digits := b.String()

	switch {
	case strings.HasPrefix(digits, "+7"):
		digits = "8" + digits[2:]
	case strings.HasPrefix(digits, "7"):
		digits = "8" + digits[1:]
	}

	if len(digits) != 11 || digits[0] != '8' {
		return digits, false
	}
	for i := 1; i < len(digits); i++ {
		if digits[i] < '0' || digits[i] > '9' {
			return digits, false
		}
	}
	return digits, true
}

// Phone reports whether s normalizes to an 11-digit number starting with 8.
func Phone(s string) bool {
	_, ok := NormalizePhone(s)
	return ok
}

// FormatPhone renders a phone number as "D (DDD) DDD-DD-DD". Input that does
// not reduce to 11 digits is returned as its bare digits.
func FormatPhone(s string) string {
	var b strings.Builder
	for i := 0; i < len(s); i++ {
		if s[i] >= '0' && s[i] <= '9' {
			b.WriteByte(s[i])
		}
	}
	d := b.String()
	if strings.HasPrefix(d, "7") {
		d = "8" + d[1:]
	}
	if len(d) != 11 {
		return d
	}
	return d[:1] + " (" + d[1:4] + ") " + d[4:7] + "-" + d[7:9] + "-" + d[9:11]
}

// DateLayout is the only accepted birth date format.
const DateLayout = "2006-01-02"

// minYear is the earliest accepted birth year.
const minYear = 1900

// Date reports whether s is empty or a well-formed calendar date strictly
// before today in local time.
func Date(s string) bool {
	return DateAt(s, time.Now())
}

// DateAt is Date with an explicit reference day. Only the calendar date of
// today is used; its clock time is ignored.
func DateAt(s string, today time.Time) bool {
	if s == "" {
		return true
	}
	y, m, d, ok := splitDate(s)
	if !ok {
		return false
	}
	if y < minYear || m < 1 || m > 12 || d < 1 || d > daysIn(m, y) {
		return false
	}

	cy, cmon, cd := today.Date()
	cm := int(cmon)
	switch {
	case y != cy:
		return y < cy
	case m != cm:
		return m < cm
	default:
		return d < cd
	}
}

// splitDate parses the fixed-width YYYY-MM-DD form without range checks.
func splitDate(s string) (y, m, d int, ok bool) {
	if len(s) != len(DateLayout) || s[4] != '-' || s[7] != '-' {
		return 0, 0, 0, false
	}
	num := func(part string) (int, bool) {
		n := 0
		for i := 0; i < len(part); i++ {
			c := part[i]
			if c < '0' || c > '9' {
				return 0, false
			}
			n = n*10 + int(c-'0')
		}
		return n, true
	}
	var oky, okm, okd bool
	y, oky = num(s[0:4])
	m, okm = num(s[5:7])
	d, okd = num(s[8:10])
	return y, m, d, oky && okm && okd
}

var monthDays = [13]int{0, 31, 28, 31, 30, 31, 30, 31, 31, 30, 31, 30, 31}

func daysIn(month, year int) int {
	if month == 2 && isLeap(year) {
		return 29
	}
	return monthDays[month]
}

func isLeap(year int) bool {
	return (year%4 == 0 && year%100 != 0) || year%400 == 0
}
