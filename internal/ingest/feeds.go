package ingest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/identifier"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/pkg/logger"
)

// layout names the columns of one agency's rating history export
type layout struct {
	id, idType, date, rating string
	// Moody's only
	securityClass, ratingClass string
}

var layouts = map[contracts.Agency]layout{
	contracts.Moodys: {
		id:            "instrument_id_value",
		idType:        "id_type_text",
		date:          "rating_date",
		rating:        "rating_text",
		securityClass: "security_class_short_description",
		ratingClass:   "rating_class_text",
	},
	contracts.SP: {
		id:     "id_value",
		idType: "id_type",
		date:   "rating_date",
		rating: "rating",
	},
	contracts.Fitch: {
		id:     "id_value",
		idType: "id_type",
		date:   "long_term_issue_rating_effective_date",
		rating: "long_term_issue_rating",
	},
}

func (l layout) required() []string {
	cols := []string{l.id, l.idType, l.date, l.rating}
	if l.securityClass != "" {
		cols = append(cols, l.securityClass, l.ratingClass)
	}
	return cols
}

// Moody's security classes that carry the regular bond rating
var moodysBondClasses = map[string]struct{}{
	"REG": {}, // regular bond/debenture
	"MTN": {}, // medium term note
	"PRF": {},
	"CON": {},
}

// ReadOptions controls how strictly a feed is parsed
type ReadOptions struct {
	// SkipUnknownCodes logs and drops rows whose rating is outside every notation
	SkipUnknownCodes bool
	Logger           *logger.Logger
}

// ReadStats counts what happened to the rows of one feed
type ReadStats struct {
	Rows         int `json:"rows"`
	Kept         int `json:"kept"`
	Filtered     int `json:"filtered"`      // class/LGD filter
	UnknownCodes int `json:"unknown_codes"` // skipped under SkipUnknownCodes
	NoIdentifier int `json:"no_identifier"`
}

// ReadFeed parses one agency's rating history export. Records carry their
// 1-based position in the file as Seq, so same-day actions keep feed order.
func ReadFeed(r io.Reader, agency contracts.Agency, opts ReadOptions) ([]contracts.RatingRecord, ReadStats, error) {
	var stats ReadStats
	lay, ok := layouts[agency]
	if !ok {
		return nil, stats, fmt.Errorf("no feed layout for %s", agency)
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}

	cr, err := NewCSVReader(r, lay.required()...)
	if err != nil {
		return nil, stats, fmt.Errorf("%s feed: %w", agency, err)
	}

	var out []contracts.RatingRecord
	for {
		row, err := cr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, stats, fmt.Errorf("%s feed: %w", agency, err)
		}
		stats.Rows++

		if agency == contracts.Moodys && !keepMoodys(row, lay) {
			stats.Filtered++
			continue
		}

		bondID := identifier.Normalize(row.Get(lay.id), identifier.ParseIDType(row.Get(lay.idType)))
		if bondID == "" {
			stats.NoIdentifier++
			continue
		}

		date, err := contracts.ParseDate(row.Get(lay.date))
		if err != nil {
			return nil, stats, fmt.Errorf("%s feed line %d: %w", agency, row.Line, err)
		}

		raw := row.Get(lay.rating)
		code, err := scale.Parse(raw)
		if err != nil {
			if !opts.SkipUnknownCodes {
				return nil, stats, fmt.Errorf("%s feed line %d: %w", agency, row.Line, err)
			}
			stats.UnknownCodes++
			log.WithFields(map[string]interface{}{
				"agency": agency.String(),
				"line":   row.Line,
				"rating": raw,
			}).Warn("Skipping unknown rating code")
			continue
		}

		out = append(out, contracts.RatingRecord{
			Agency:     agency,
			BondID:     bondID,
			RatingDate: date,
			Code:       code,
			Raw:        raw,
			Seq:        int64(row.Line),
		})
		stats.Kept++
	}

	log.WithFields(map[string]interface{}{
		"agency":   agency.String(),
		"rows":     stats.Rows,
		"kept":     stats.Kept,
		"filtered": stats.Filtered,
	}).Info("Feed parsed")

	return out, stats, nil
}

// keepMoodys retains regular bond ratings and drops loss-given-default ratings
func keepMoodys(row Row, lay layout) bool {
	if _, ok := moodysBondClasses[strings.ToUpper(row.Get(lay.securityClass))]; !ok {
		return false
	}
	return !strings.Contains(strings.ToUpper(row.Get(lay.ratingClass)), "LGD")
}

// ReadFeedFile opens and parses a feed export
func ReadFeedFile(path string, agency contracts.Agency, opts ReadOptions) ([]contracts.RatingRecord, ReadStats, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, ReadStats{}, fmt.Errorf("open %s feed: %w", agency, err)
	}
	defer f.Close()
	return ReadFeed(f, agency, opts)
}
