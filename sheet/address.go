package sheet

import (
	"strconv"
	"strings"

	"github.com/teranos/kalc/errors"
)

// Address identifies a cell by 1-based row and column.
type Address struct {
	Row int
	Col int
}

// ParseAddress parses A1-notation: one or more letters (case-insensitive
// column, base-26 with A=1) followed by one or more digits (1-based row).
func ParseAddress(ref string) (Address, error) {
	i := 0
	col := 0
	for i < len(ref) {
		c := ref[i]
		switch {
		case c >= 'A' && c <= 'Z':
			col = col*26 + int(c-'A') + 1
		case c >= 'a' && c <= 'z':
			col = col*26 + int(c-'a') + 1
		default:
			goto digits
		}
		i++
	}
digits:
	if i == 0 || col == 0 {
		return Address{}, errors.Newf("invalid cell reference %q: missing column letters", ref)
	}
	if i == len(ref) {
		return Address{}, errors.Newf("invalid cell reference %q: missing row digits", ref)
	}
	row := 0
	for ; i < len(ref); i++ {
		c := ref[i]
		if c < '0' || c > '9' {
			return Address{}, errors.Newf("invalid cell reference %q: unexpected character %q", ref, string(c))
		}
		row = row*10 + int(c-'0')
	}
	if row == 0 {
		return Address{}, errors.Newf("invalid cell reference %q: rows are 1-based", ref)
	}
	return Address{Row: row, Col: col}, nil
}

// IsRef reports whether s has the shape of a cell reference. Used by the
// lexer to distinguish references from function names.
func IsRef(s string) bool {
	_, err := ParseAddress(s)
	return err == nil
}

// String renders the address in A1 notation.
func (a Address) String() string {
	var sb strings.Builder
	col := a.Col
	var letters []byte
	for col > 0 {
		col--
		letters = append(letters, byte('A'+col%26))
		col /= 26
	}
	for i := len(letters) - 1; i >= 0; i-- {
		sb.WriteByte(letters[i])
	}
	sb.WriteString(strconv.Itoa(a.Row))
	return sb.String()
}
