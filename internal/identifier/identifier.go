package identifier

import (
	"fmt"
	"strings"
)

// IDType is the declared identifier family of a feed row
type IDType int

const (
	// Unknown identifiers are passed through untouched
	Unknown IDType = iota
	// CUSIP family identifiers are truncated to the 8-character issue id (no check digit)
	CUSIP
	// ISIN identifiers are truncated to 12 characters
	ISIN
)

const (
	CUSIPLength = 8
	ISINLength  = 12
)

// labels used by the agency exports for CUSIP-family identifiers
var cusipLabels = map[string]struct{}{
	// S&P / Fitch
	"cusip1": {}, "cusip2": {}, "cusip3": {}, "cusip4": {}, "cusip5": {}, "cusip6": {},
	// Moody's
	"cusip":                         {},
	"cusip 3":                       {},
	"cusip 4":                       {},
	"cusip 5":                       {},
	"cusip - previous":              {},
	"cusip - second":                {},
	"cusip-2ndary wrap orig. cusip": {},
	"cusip-deriv/underlying bond":   {},
}

// ParseIDType maps a feed's identifier-type label to an IDType
func ParseIDType(label string) IDType {
	l := strings.ToLower(strings.TrimSpace(label))
	if _, ok := cusipLabels[l]; ok {
		return CUSIP
	}
	if l == "isin" {
		return ISIN
	}
	return Unknown
}

func (t IDType) String() string {
	switch t {
	case CUSIP:
		return "CUSIP"
	case ISIN:
		return "ISIN"
	default:
		return "UNKNOWN"
	}
}

// Normalize truncates an identifier to the canonical length of its family.
// Shorter identifiers are returned as-is; nothing is ever padded.
func Normalize(raw string, t IDType) string {
	id := strings.TrimSpace(raw)

	var n int
	switch t {
	case CUSIP:
		n = CUSIPLength
	case ISIN:
		n = ISINLength
	default:
		return id
	}

	if len(id) > n {
		return id[:n]
	}
	return id
}

// Validate reports a malformed identifier (empty or shorter than its canonical length)
func Validate(id string, t IDType) error {
	if id == "" {
		return fmt.Errorf("empty identifier")
	}
	switch t {
	case CUSIP:
		if len(id) < CUSIPLength {
			return fmt.Errorf("cusip %q shorter than %d characters", id, CUSIPLength)
		}
	case ISIN:
		if len(id) < ISINLength {
			return fmt.Errorf("isin %q shorter than %d characters", id, ISINLength)
		}
	}
	return nil
}
