package scale

import (
	"errors"
	"fmt"
	"strings"
)

// NumNotches is the size of the rating alphabet (AAA..D).
const NumNotches = 22

const (
	// Best is the notch of AAA/Aaa
	Best = 21
	// Default is the notch of D
	Default = 0
)

// ErrUnknownCode is returned when a rating string is outside every known notation
var ErrUnknownCode = errors.New("unknown rating code")

// Code is a rating on the unified notch scale.
// The zero value is NR (not rated); it is never a member of the 22-state alphabet.
// ⭐ SSOT: alphanumeric <-> notch mapping lives only in this package
type Code struct {
	notch uint8
	rated bool
}

// NR is the not-rated sentinel
var NR = Code{}

// canonical spelling per notch (index = notch)
var canonical = [NumNotches]string{
	"D", "C", "CC",
	"CCC3", "CCC2", "CCC1",
	"B3", "B2", "B1",
	"BB3", "BB2", "BB1",
	"BBB3", "BBB2", "BBB1",
	"A3", "A2", "A1",
	"AA3", "AA2", "AA1",
	"AAA",
}

// spellings maps every accepted notation to a notch; -1 marks an explicit not-rated spelling.
// Composite, Moody's and S&P/Fitch notations share one table, built once.
var spellings = func() map[string]int {
	m := map[string]int{
		// Moody's
		"Aaa": 21, "Aa1": 20, "Aa2": 19, "Aa3": 18,
		"Baa1": 14, "Baa2": 13, "Baa3": 12,
		"Ba1": 11, "Ba2": 10, "Ba3": 9,
		"Caa1": 5, "Caa2": 4, "Caa3": 3,
		"Ca": 2,

		// S&P / Fitch
		"AA+": 20, "AA": 19, "AA-": 18,
		"A+": 17, "A": 16, "A-": 15,
		"BBB+": 14, "BBB": 13, "BBB-": 12,
		"BB+": 11, "BB": 10, "BB-": 9,
		"B+": 8, "B": 7, "B-": 6,
		"CCC+": 5, "CCC": 4, "CCC-": 3,
		"SD": 0, "RD": 0, "DD": 0, "DDD": 0,

		// withdrawn / not rated
		"NR": -1, "WR": -1, "WD": -1,
	}
	for notch, s := range canonical {
		m[s] = notch
	}
	return m
}()

// Parse maps an alphanumeric rating in any supported notation to a Code.
// Surrounding whitespace is ignored; an empty string is NR.
func Parse(s string) (Code, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return NR, nil
	}
	notch, ok := spellings[s]
	if !ok {
		return NR, fmt.Errorf("%w: %q", ErrUnknownCode, s)
	}
	if notch < 0 {
		return NR, nil
	}
	return Code{notch: uint8(notch), rated: true}, nil
}

// MustParse is Parse for static tables and tests
func MustParse(s string) Code {
	c, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return c
}

// FromNotch returns the canonical code for a notch in [0, 21]
func FromNotch(n int) (Code, bool) {
	if n < Default || n > Best {
		return NR, false
	}
	return Code{notch: uint8(n), rated: true}, true
}

// Notch returns the numeric position and whether the code is rated
func (c Code) Notch() (int, bool) {
	return int(c.notch), c.rated
}

// IsRated reports whether c is a member of the 22-state alphabet
func (c Code) IsRated() bool {
	return c.rated
}

// IsDefault reports whether c is D
func (c Code) IsDefault() bool {
	return c.rated && c.notch == Default
}

// String returns the canonical spelling, or "NR"
func (c Code) String() string {
	if !c.rated {
		return "NR"
	}
	return canonical[c.notch]
}

// MarshalText implements encoding.TextMarshaler
func (c Code) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (c *Code) UnmarshalText(b []byte) error {
	parsed, err := Parse(string(b))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// Descending returns all 22 rated codes from AAA down to D
func Descending() []Code {
	out := make([]Code, 0, NumNotches)
	for n := Best; n >= Default; n-- {
		out = append(out, Code{notch: uint8(n), rated: true})
	}
	return out
}
