package contracts

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/acr/internal/scale"
)

// Agency identifies a rating agency feed
type Agency int

const (
	Moodys Agency = iota
	SP
	Fitch
)

// Agencies lists every feed in a fixed order (Moody's, S&P, Fitch)
var Agencies = [3]Agency{Moodys, SP, Fitch}

func (a Agency) String() string {
	switch a {
	case Moodys:
		return "moodys"
	case SP:
		return "sp"
	case Fitch:
		return "fitch"
	default:
		return fmt.Sprintf("agency(%d)", int(a))
	}
}

// ParseAgency accepts the short names used on the CLI and in the database
func ParseAgency(s string) (Agency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "moodys", "moody's", "moody":
		return Moodys, nil
	case "sp", "s&p", "snp":
		return SP, nil
	case "fitch":
		return Fitch, nil
	default:
		return 0, fmt.Errorf("unknown agency %q", s)
	}
}

// RatingRecord is one rating action from an agency feed
// ⭐ SSOT: 피드 → Rating Series Store 전달 단위
type RatingRecord struct {
	Agency     Agency     `json:"agency"`
	BondID     string     `json:"bond_id"`     // normalized CUSIP/ISIN
	RatingDate time.Time  `json:"rating_date"` // calendar date (UTC midnight)
	Code       scale.Code `json:"code"`
	Raw        string     `json:"raw,omitempty"` // agency spelling as delivered
	Seq        int64      `json:"seq"`           // position in the feed; breaks same-day ties
}

// AgencyRatings holds the three agency codes in force for one bond
type AgencyRatings struct {
	Moodys scale.Code `json:"moodys"`
	SP     scale.Code `json:"sp"`
	Fitch  scale.Code `json:"fitch"`
}

// Get returns the code for one agency
func (r AgencyRatings) Get(a Agency) scale.Code {
	switch a {
	case Moodys:
		return r.Moodys
	case SP:
		return r.SP
	case Fitch:
		return r.Fitch
	}
	return scale.NR
}

// Set stores the code for one agency
func (r *AgencyRatings) Set(a Agency, c scale.Code) {
	switch a {
	case Moodys:
		r.Moodys = c
	case SP:
		r.SP = c
	case Fitch:
		r.Fitch = c
	}
}

// CompositeObservation is the derived composite for one bond on one date
type CompositeObservation struct {
	BondID      string     `json:"bond_id"`
	Date        time.Time  `json:"date"`
	Moodys      scale.Code `json:"moodys"`
	SP          scale.Code `json:"sp"`
	Fitch       scale.Code `json:"fitch"`
	Composite   scale.Code `json:"composite"`
	AgencyCount int        `json:"agency_count"`
}
