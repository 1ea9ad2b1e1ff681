package study

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/logger"
)

// ErrInvalidPeriod is returned when end is not after start
var ErrInvalidPeriod = errors.New("study end must be after start")

// Config describes one two-date transition study
type Config struct {
	Start      time.Time
	End        time.Time
	Universe   *contracts.Universe
	Calculator *composite.Calculator
	// Defaults may be nil (no default overrides)
	Defaults contracts.DefaultChecker
	// Severity accumulates oas_1 - oas_0 weighted by market value
	Severity   bool
	ConfigHash string
	Workers    int
}

// Pair is one bond's start and end observation
type Pair struct {
	BondID string                         `json:"bond_id"`
	Start  contracts.CompositeObservation `json:"start"`
	End    contracts.CompositeObservation `json:"end"`
	// EndComposite is End.Composite after the default override
	EndComposite scale.Code `json:"end_composite"`
	DefaultDate  *time.Time `json:"default_date,omitempty"`
	// Counted is false when either side is NR
	Counted bool `json:"counted"`
}

// NotchChange returns the signed notch move of a counted pair
func (p Pair) NotchChange() (int, bool) {
	s, ok := p.Start.Composite.Notch()
	if !ok {
		return 0, false
	}
	e, ok := p.EndComposite.Notch()
	if !ok {
		return 0, false
	}
	return e - s, true
}

// Summary holds run-level statistics
type Summary struct {
	Bonds       int `json:"bonds"`
	Transitions int `json:"transitions"`
	Skipped     int `json:"skipped"` // NR at start or end
	Defaults    int `json:"defaults"`
	Upgrades    int `json:"upgrades"`
	Downgrades  int `json:"downgrades"`
	Unchanged   int `json:"unchanged"`
	Weighted    int `json:"weighted"` // pairs that fed the severity matrix
}

// Result is a finished study
type Result struct {
	RunID      uuid.UUID               `json:"run_id"`
	Start      time.Time               `json:"start"`
	End        time.Time               `json:"end"`
	ConfigHash string                  `json:"config_hash,omitempty"`
	Pairs      []Pair                  `json:"pairs"`
	Matrix     *transition.Matrix      `json:"-"`
	Rows       []transition.RowSummary `json:"rows"`
	Summary    Summary                 `json:"summary"`
	CreatedAt  time.Time               `json:"created_at"`
}

// Runner executes transition studies against a rating source
// ⭐ SSOT: 전이 스터디 파이프라인 (start/end composite → default override → matrix)
type Runner struct {
	src    contracts.RatingSource
	logger *logger.Logger
}

// NewRunner creates a study runner
func NewRunner(src contracts.RatingSource, log *logger.Logger) *Runner {
	if log == nil {
		log = logger.Nop()
	}
	return &Runner{src: src, logger: log}
}

// Run builds start and end composites for every constituent, overrides the end
// composite to D for bonds that defaulted strictly inside the period, skips pairs
// with NR on either side and accumulates the transition matrix.
// Bonds are split into disjoint slices; each worker fills its own partial matrix
// and the partials are merged once all workers finish.
func (r *Runner) Run(ctx context.Context, cfg Config) (*Result, error) {
	start, end := contracts.DateOf(cfg.Start), contracts.DateOf(cfg.End)
	if !start.Before(end) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidPeriod, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	}
	if cfg.Universe == nil {
		return nil, fmt.Errorf("study needs a universe")
	}
	calc := cfg.Calculator
	if calc == nil {
		calc = composite.Default()
	}
	workers := cfg.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	constituents := dedupe(cfg.Universe.Constituents)
	pairs := make([]Pair, len(constituents))
	chunks := split(len(constituents), workers)
	partials := make([]*transition.Matrix, len(chunks))

	g, gctx := errgroup.WithContext(ctx)
	for ci, chunk := range chunks {
		g.Go(func() error {
			m := transition.New()
			for i := chunk[0]; i < chunk[1]; i++ {
				if err := gctx.Err(); err != nil {
					return err
				}
				p, err := r.pair(calc, cfg, constituents[i], start, end)
				if err != nil {
					return err
				}
				if err := record(m, p, constituents[i], cfg.Severity); err != nil {
					return err
				}
				pairs[i] = p
			}
			partials[ci] = m
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("study: %w", err)
	}

	matrix := transition.New()
	for _, m := range partials {
		matrix.Merge(m)
	}

	res := &Result{
		RunID:      uuid.New(),
		Start:      start,
		End:        end,
		ConfigHash: cfg.ConfigHash,
		Pairs:      pairs,
		Matrix:     matrix,
		Rows:       matrix.Summary(),
		Summary:    summarize(pairs, constituents, cfg.Severity),
		CreatedAt:  time.Now(),
	}

	r.logger.WithFields(map[string]interface{}{
		"run_id":      res.RunID.String(),
		"start":       start.Format(contracts.DateLayout),
		"end":         end.Format(contracts.DateLayout),
		"bonds":       res.Summary.Bonds,
		"transitions": res.Summary.Transitions,
		"skipped":     res.Summary.Skipped,
		"defaults":    res.Summary.Defaults,
	}).Info("Transition study completed")

	return res, nil
}

func (r *Runner) pair(calc *composite.Calculator, cfg Config, c contracts.Constituent, start, end time.Time) (Pair, error) {
	s, err := calc.Observe(r.src, c.BondID, contracts.AsOf(start))
	if err != nil {
		return Pair{}, err
	}
	e, err := calc.Observe(r.src, c.BondID, contracts.AsOf(end))
	if err != nil {
		return Pair{}, err
	}

	p := Pair{BondID: c.BondID, Start: s, End: e, EndComposite: e.Composite}
	if cfg.Defaults != nil {
		if d, ok := cfg.Defaults.DefaultedBetween(c.BondID, start, end); ok {
			p.DefaultDate = &d
			p.EndComposite, _ = scale.FromNotch(scale.Default)
		}
	}
	p.Counted = p.Start.Composite.IsRated() && p.EndComposite.IsRated()
	return p, nil
}

// record feeds a counted pair into the matrix; NR pairs never reach it
func record(m *transition.Matrix, p Pair, c contracts.Constituent, severity bool) error {
	if !p.Counted {
		return nil
	}
	if err := m.RecordTransition(p.Start.Composite, p.EndComposite); err != nil {
		return fmt.Errorf("bond %s: %w", p.BondID, err)
	}
	if !severity {
		return nil
	}
	change, ok := c.OASChange()
	if !ok || c.MarketValue <= 0 {
		return nil
	}
	if err := m.RecordSeverity(p.Start.Composite, p.EndComposite, change, c.MarketValue); err != nil {
		return fmt.Errorf("bond %s: %w", p.BondID, err)
	}
	return nil
}

func summarize(pairs []Pair, constituents []contracts.Constituent, severity bool) Summary {
	s := Summary{Bonds: len(pairs)}
	for i, p := range pairs {
		if p.DefaultDate != nil {
			s.Defaults++
		}
		if !p.Counted {
			s.Skipped++
			continue
		}
		s.Transitions++
		change, _ := p.NotchChange()
		switch {
		case change > 0:
			s.Upgrades++
		case change < 0:
			s.Downgrades++
		default:
			s.Unchanged++
		}
		if _, ok := constituents[i].OASChange(); ok && severity && constituents[i].MarketValue > 0 {
			s.Weighted++
		}
	}
	return s
}

// dedupe keeps the first constituent per bond id
func dedupe(in []contracts.Constituent) []contracts.Constituent {
	seen := make(map[string]struct{}, len(in))
	out := make([]contracts.Constituent, 0, len(in))
	for _, c := range in {
		if _, ok := seen[c.BondID]; ok {
			continue
		}
		seen[c.BondID] = struct{}{}
		out = append(out, c)
	}
	return out
}

// split partitions [0, n) into at most k contiguous [lo, hi) ranges
func split(n, k int) [][2]int {
	if n == 0 {
		return nil
	}
	if k > n {
		k = n
	}
	size := (n + k - 1) / k
	out := make([][2]int, 0, k)
	for lo := 0; lo < n; lo += size {
		out = append(out, [2]int{lo, min(lo+size, n)})
	}
	return out
}
