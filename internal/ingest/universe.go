package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/identifier"
)

// ReadUniverse parses an index constituents export.
// Required: cusip. Optional: isin, ticker, name, mkt_val, oas_0, oas_1.
// Quoted cusips ('12345678') are unwrapped before normalization.
func ReadUniverse(r io.Reader) (*contracts.Universe, error) {
	cr, err := NewCSVReader(r, "cusip")
	if err != nil {
		return nil, fmt.Errorf("universe: %w", err)
	}

	u := &contracts.Universe{}
	for {
		row, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("universe: %w", err)
		}

		cusip := strings.Trim(row.Get("cusip"), `'"`)
		c := contracts.Constituent{
			BondID: identifier.Normalize(cusip, identifier.CUSIP),
			ISIN:   identifier.Normalize(row.Get("isin"), identifier.ISIN),
			Ticker: row.Get("ticker"),
			Name:   row.Get("name"),
		}
		if c.BondID == "" {
			continue
		}

		if c.MarketValue, err = optionalFloat(row, "mkt_val"); err != nil {
			return nil, err
		}
		if c.OASStart, err = optionalFloatPtr(row, "oas_0"); err != nil {
			return nil, err
		}
		if c.OASEnd, err = optionalFloatPtr(row, "oas_1"); err != nil {
			return nil, err
		}

		u.Constituents = append(u.Constituents, c)
	}
	return u, nil
}

// ReadUniverseFile opens and parses a constituents export
func ReadUniverseFile(path string) (*contracts.Universe, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open universe: %w", err)
	}
	defer f.Close()
	return ReadUniverse(f)
}

// UniverseFromIDs builds an unweighted universe from bare identifiers
func UniverseFromIDs(ids []string) *contracts.Universe {
	u := &contracts.Universe{Constituents: make([]contracts.Constituent, 0, len(ids))}
	for _, id := range ids {
		t := identifier.CUSIP
		if len(strings.TrimSpace(id)) >= identifier.ISINLength {
			t = identifier.ISIN
		}
		u.Constituents = append(u.Constituents, contracts.Constituent{BondID: identifier.Normalize(id, t)})
	}
	return u
}

func optionalFloat(row Row, col string) (float64, error) {
	p, err := optionalFloatPtr(row, col)
	if err != nil || p == nil {
		return 0, err
	}
	return *p, nil
}

func optionalFloatPtr(row Row, col string) (*float64, error) {
	s := strings.ReplaceAll(row.Get(col), ",", "")
	if s == "" || strings.EqualFold(s, "nan") {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("universe line %d: %s: %w", row.Line, col, err)
	}
	return &v, nil
}
