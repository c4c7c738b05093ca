package board

import (
	"errors"
	"fmt"
	"strings"

	nchess "github.com/corentings/chess/v2"
)

// Field is one of the 64 algebraic coordinates, indexed rank*8+file so that
// a1 is 0 and h8 is 63 (the same layout as nchess.Square).
type Field uint8

// NoField is returned where no field applies.
const NoField Field = 64

var ErrInvalidField = errors.New("invalid field")

// NewField builds a field from zero-based file (a=0) and rank (1=0).
func NewField(file, rank int) (Field, bool) {
	if file < 0 || file > 7 || rank < 0 || rank > 7 {
		return NoField, false
	}
	return Field(rank*8 + file), true
}

// ParseField accepts the canonical "<col><row>" form, e.g. "e4".
func ParseField(s string) (Field, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 2 || s[0] < 'a' || s[0] > 'h' || s[1] < '1' || s[1] > '8' {
		return NoField, fmt.Errorf("%w: %q", ErrInvalidField, s)
	}
	f, _ := NewField(int(s[0]-'a'), int(s[1]-'1'))
	return f, nil
}

// MustField is ParseField for literals; it panics on bad input.
func MustField(s string) Field {
	f, err := ParseField(s)
	if err != nil {
		panic(err)
	}
	return f
}

func (f Field) Valid() bool { return f < NoField }

func (f Field) File() int { return int(f) % 8 }

func (f Field) Rank() int { return int(f) / 8 }

func (f Field) String() string {
	if !f.Valid() {
		return "-"
	}
	return string([]byte{byte('a' + f.File()), byte('1' + f.Rank())})
}

// Mirror reverses both column and row (a1 <-> h8).
func (f Field) Mirror() Field {
	if !f.Valid() {
		return NoField
	}
	return Field(63 - int(f))
}

// Square converts to the chess library square.
func (f Field) Square() nchess.Square {
	if !f.Valid() {
		return nchess.NoSquare
	}
	return nchess.NewSquare(nchess.File(f.File()), nchess.Rank(f.Rank()))
}

func FieldFromSquare(sq nchess.Square) Field {
	if sq == nchess.NoSquare {
		return NoField
	}
	f, ok := NewField(int(sq.File()), int(sq.Rank()))
	if !ok {
		return NoField
	}
	return f
}

// AllFields lists a1..h8 in index order.
func AllFields() []Field {
	out := make([]Field, 0, 64)
	for i := 0; i < 64; i++ {
		out = append(out, Field(i))
	}
	return out
}
