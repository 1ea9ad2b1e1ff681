package defaults

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/identifier"
	"github.com/wonny/acr/internal/ingest"
	"github.com/wonny/acr/internal/scale"
)

// ReadSP parses the S&P default export (Cusips, Isins, SP_Rating, RatingDate,
// SP_RoleType). Only issuer-role rows with a default rating are kept.
func ReadSP(r io.Reader) ([]Event, error) {
	cr, err := ingest.NewCSVReader(r, "Cusips", "Isins", "SP_Rating", "RatingDate", "SP_RoleType")
	if err != nil {
		return nil, fmt.Errorf("sp defaults: %w", err)
	}

	var out []Event
	for {
		row, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("sp defaults: %w", err)
		}
		if !strings.EqualFold(row.Get("SP_RoleType"), "Issuer") {
			continue
		}
		ev, ok, err := event(SourceSP, row, "Cusips", "Isins", "SP_Rating", "RatingDate")
		if err != nil {
			return nil, fmt.Errorf("sp defaults: %w", err)
		}
		if ok {
			out = append(out, ev)
		}
	}
}

// ReadFitch parses the Fitch issue export (Cusip, Isin, LongTermIssueRating,
// LongTermIssueRatingEffectiveDate), keeping D/DD/DDD rows
func ReadFitch(r io.Reader) ([]Event, error) {
	cr, err := ingest.NewCSVReader(r, "Cusip", "Isin", "LongTermIssueRating", "LongTermIssueRatingEffectiveDate")
	if err != nil {
		return nil, fmt.Errorf("fitch defaults: %w", err)
	}

	var out []Event
	for {
		row, err := cr.Next()
		if errors.Is(err, io.EOF) {
			return out, nil
		}
		if err != nil {
			return nil, fmt.Errorf("fitch defaults: %w", err)
		}
		ev, ok, err := event(SourceFitch, row, "Cusip", "Isin", "LongTermIssueRating", "LongTermIssueRatingEffectiveDate")
		if err != nil {
			return nil, fmt.Errorf("fitch defaults: %w", err)
		}
		if ok {
			out = append(out, ev)
		}
	}
}

// event builds a default event from a row; ok is false for non-default ratings
func event(src Source, row ingest.Row, cusipCol, isinCol, ratingCol, dateCol string) (Event, bool, error) {
	rating := row.Get(ratingCol)
	code, err := scale.Parse(rating)
	if err != nil || !code.IsDefault() {
		// non-default and unrecognised ratings are not default cases
		return Event{}, false, nil
	}

	date, err := contracts.ParseDate(row.Get(dateCol))
	if err != nil {
		return Event{}, false, fmt.Errorf("line %d: %w", row.Line, err)
	}

	ev := Event{
		Source: src,
		CUSIP:  identifier.Normalize(missing(row.Get(cusipCol)), identifier.CUSIP),
		ISIN:   identifier.Normalize(missing(row.Get(isinCol)), identifier.ISIN),
		Rating: rating,
		Date:   date,
	}
	if ev.CUSIP == "" && ev.ISIN == "" {
		return Event{}, false, nil
	}
	return ev, true, nil
}

// missing maps the exports' placeholder values to ""
func missing(s string) string {
	switch strings.ToLower(s) {
	case "nan", "none", "null", "n/a":
		return ""
	}
	return s
}

func readFile(path string, read func(io.Reader) ([]Event, error)) ([]Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open defaults: %w", err)
	}
	defer f.Close()
	return read(f)
}
