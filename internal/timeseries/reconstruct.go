package timeseries

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/pkg/logger"
)

// ErrInvalidWindow is returned when end precedes start or either bound is unset
var ErrInvalidWindow = errors.New("invalid reconstruction window")

// Options controls a reconstruction
type Options struct {
	Frequency Frequency
	// Workers bounds the per-bond fan-out; <= 0 means runtime.NumCPU()
	Workers int
	// Calculator, when set, fills the composite columns of every row
	Calculator *composite.Calculator
	Logger     *logger.Logger
}

// Row is one (bond, date) of the reconstructed series
type Row struct {
	BondID      string                  `json:"bond_id"`
	Date        time.Time               `json:"date"`
	Ratings     contracts.AgencyRatings `json:"ratings"`
	Composite   scale.Code              `json:"composite"`
	AgencyCount int                     `json:"agency_count"`
}

// Series is the reconstructed grid, ordered by bond (input order) then date
type Series struct {
	Start     time.Time `json:"start"`
	End       time.Time `json:"end"`
	Frequency Frequency `json:"-"`
	Bonds     []string  `json:"bonds"`
	Rows      []Row     `json:"rows"`
}

// Bond returns the rows of one bond
func (s *Series) Bond(bondID string) []Row {
	for i, id := range s.Bonds {
		if id != bondID {
			continue
		}
		n := len(s.Rows) / max(len(s.Bonds), 1)
		return s.Rows[i*n : (i+1)*n]
	}
	return nil
}

// distinct drops repeated bond ids, keeping first-seen order
func distinct(bonds []string) []string {
	seen := make(map[string]struct{}, len(bonds))
	out := make([]string, 0, len(bonds))
	for _, id := range bonds {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

// cell is one row of the per-bond outer join (grid dates plus anchor events)
type cell struct {
	date   time.Time
	inGrid bool
	codes  [3]scale.Code
	set    [3]bool
}

// Reconstruct turns every bond's incremental agency series into a forward-filled
// grid over [start, end].
// ⭐ SSOT: 일별 시계열 재구성
func Reconstruct(ctx context.Context, src contracts.RatingSource, bonds []string, start, end time.Time, opts Options) (*Series, error) {
	if start.IsZero() || end.IsZero() || contracts.DateOf(end).Before(contracts.DateOf(start)) {
		return nil, fmt.Errorf("%w: %s to %s", ErrInvalidWindow, start.Format(contracts.DateLayout), end.Format(contracts.DateLayout))
	}
	log := opts.Logger
	if log == nil {
		log = logger.Nop()
	}
	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	bonds = distinct(bonds)
	grid := Grid(start, end, opts.Frequency)
	perBond := make([][]Row, len(bonds))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i, bondID := range bonds {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			// each worker writes only its own slot
			perBond[i] = reconstructBond(src, bondID, grid, opts.Calculator)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("reconstruct: %w", err)
	}

	series := &Series{
		Start:     contracts.DateOf(start),
		End:       contracts.DateOf(end),
		Frequency: opts.Frequency,
		Bonds:     append([]string(nil), bonds...),
		Rows:      make([]Row, 0, len(bonds)*len(grid)),
	}
	for _, rows := range perBond {
		series.Rows = append(series.Rows, rows...)
	}

	log.WithFields(map[string]interface{}{
		"bonds":     len(bonds),
		"dates":     len(grid),
		"rows":      len(series.Rows),
		"frequency": opts.Frequency.String(),
	}).Debug("Time series reconstructed")

	return series, nil
}

func reconstructBond(src contracts.RatingSource, bondID string, grid []time.Time, calc *composite.Calculator) []Row {
	// 1. dense grid
	cells := make(map[time.Time]*cell, len(grid))
	for _, d := range grid {
		cells[d] = &cell{date: d, inGrid: true}
	}

	// 2. outer join each agency's events; off-grid events become anchor rows
	for ai, agency := range contracts.Agencies {
		for _, rec := range src.Incremental(bondID, agency) {
			c, ok := cells[rec.RatingDate]
			if !ok {
				c = &cell{date: rec.RatingDate}
				cells[rec.RatingDate] = c
			}
			c.codes[ai] = rec.Code
			c.set[ai] = true
		}
	}

	ordered := make([]*cell, 0, len(cells))
	for _, c := range cells {
		ordered = append(ordered, c)
	}
	sort.Slice(ordered, func(i, j int) bool { return ordered[i].date.Before(ordered[j].date) })

	// 3. forward fill per agency
	var last [3]scale.Code
	for _, c := range ordered {
		for ai := range last {
			if c.set[ai] {
				last[ai] = c.codes[ai]
			} else {
				c.codes[ai] = last[ai]
			}
		}
	}

	// 4. drop anchors
	rows := make([]Row, 0, len(grid))
	for _, c := range ordered {
		if !c.inGrid {
			continue
		}
		row := Row{
			BondID: bondID,
			Date:   c.date,
			Ratings: contracts.AgencyRatings{
				Moodys: c.codes[0],
				SP:     c.codes[1],
				Fitch:  c.codes[2],
			},
		}
		if calc != nil {
			res := calc.ComputeRatings(row.Ratings)
			row.Composite, row.AgencyCount = res.Composite, res.AgencyCount
		}
		rows = append(rows, row)
	}
	return rows
}
