package composite

import (
	"fmt"
	"math"
	"time"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
)

const (
	// DefaultMinAgencies is the agency count below which the composite is NR
	DefaultMinAgencies = 2
	// DefaultBias is subtracted from the mean before rounding so that an exact .5
	// rounds to the lower (worse) notch
	DefaultBias = 2e-4
)

// Calculator computes agency composite ratings
// ⭐ SSOT: composite = round(mean(notches) - bias), NR below MinAgencies
type Calculator struct {
	MinAgencies int
	Bias        float64
}

// NewCalculator creates a calculator with the given policy
func NewCalculator(minAgencies int, bias float64) (*Calculator, error) {
	if minAgencies < 1 || minAgencies > len(contracts.Agencies) {
		return nil, fmt.Errorf("min agencies must be in [1, %d], got %d", len(contracts.Agencies), minAgencies)
	}
	if bias < 0 || bias >= 0.5 {
		return nil, fmt.Errorf("rounding bias must be in [0, 0.5), got %g", bias)
	}
	return &Calculator{MinAgencies: minAgencies, Bias: bias}, nil
}

// Default returns the calculator with the standard policy (two agencies, 2e-4 bias)
func Default() *Calculator {
	return &Calculator{MinAgencies: DefaultMinAgencies, Bias: DefaultBias}
}

// Result is a composite and the number of agencies that contributed to it
type Result struct {
	Composite   scale.Code `json:"composite"`
	AgencyCount int        `json:"agency_count"`
}

// Compute averages the rated agency codes. NR inputs are ignored.
func (c *Calculator) Compute(moodys, sp, fitch scale.Code) Result {
	var sum, n int
	for _, code := range [3]scale.Code{moodys, sp, fitch} {
		if notch, ok := code.Notch(); ok {
			sum += notch
			n++
		}
	}

	res := Result{AgencyCount: n}
	if n == 0 || n < c.MinAgencies {
		return res
	}

	avg := float64(sum)/float64(n) - c.Bias
	notch := int(math.Round(avg))
	if notch < scale.Default {
		notch = scale.Default
	}
	res.Composite, _ = scale.FromNotch(notch)
	return res
}

// ComputeRatings is Compute over an AgencyRatings triple
func (c *Calculator) ComputeRatings(r contracts.AgencyRatings) Result {
	return c.Compute(r.Moodys, r.SP, r.Fitch)
}

// Observe builds the composite observation for one bond at a point query
func (c *Calculator) Observe(src contracts.RatingSource, bondID string, q contracts.DateQuery) (contracts.CompositeObservation, error) {
	ratings, err := src.Ratings(bondID, q)
	if err != nil {
		return contracts.CompositeObservation{}, fmt.Errorf("ratings for %s: %w", bondID, err)
	}

	res := c.ComputeRatings(ratings)

	var date time.Time
	if q.Kind() == contracts.QueryAsOf {
		date = q.Date()
	}

	return contracts.CompositeObservation{
		BondID:      bondID,
		Date:        date,
		Moodys:      ratings.Moodys,
		SP:          ratings.SP,
		Fitch:       ratings.Fitch,
		Composite:   res.Composite,
		AgencyCount: res.AgencyCount,
	}, nil
}

// Snapshot computes composite observations for every bond at one point query
func (c *Calculator) Snapshot(src contracts.RatingSource, bondIDs []string, q contracts.DateQuery) ([]contracts.CompositeObservation, error) {
	out := make([]contracts.CompositeObservation, 0, len(bondIDs))
	for _, id := range bondIDs {
		obs, err := c.Observe(src, id, q)
		if err != nil {
			return nil, err
		}
		out = append(out, obs)
	}
	return out, nil
}
