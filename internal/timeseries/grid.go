package timeseries

import (
	"fmt"
	"strings"
	"time"

	"github.com/wonny/acr/internal/contracts"
)

// Frequency is the spacing of the reconstruction grid
type Frequency int

const (
	Daily Frequency = iota
	Weekly
	MonthEnd
)

func (f Frequency) String() string {
	switch f {
	case Weekly:
		return "weekly"
	case MonthEnd:
		return "month-end"
	default:
		return "daily"
	}
}

// ParseFrequency accepts daily, weekly and month-end (or monthly)
func ParseFrequency(s string) (Frequency, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "daily", "d":
		return Daily, nil
	case "weekly", "w":
		return Weekly, nil
	case "month-end", "monthly", "m":
		return MonthEnd, nil
	default:
		return Daily, fmt.Errorf("unknown frequency %q", s)
	}
}

// Grid returns the calendar dates of [start, end] at the given frequency.
// Weekly grids start on start and step seven days; month-end grids hold the last
// day of every month whose month-end falls inside the window.
func Grid(start, end time.Time, freq Frequency) []time.Time {
	start, end = contracts.DateOf(start), contracts.DateOf(end)
	if end.Before(start) {
		return nil
	}

	var out []time.Time
	switch freq {
	case Weekly:
		for d := start; !d.After(end); d = d.AddDate(0, 0, 7) {
			out = append(out, d)
		}
	case MonthEnd:
		m := time.Date(start.Year(), start.Month(), 1, 0, 0, 0, 0, time.UTC)
		for {
			last := m.AddDate(0, 1, -1)
			if last.After(end) {
				break
			}
			if !last.Before(start) {
				out = append(out, last)
			}
			m = m.AddDate(0, 1, 0)
		}
	default:
		out = make([]time.Time, 0, int(end.Sub(start).Hours()/24)+1)
		for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
			out = append(out, d)
		}
	}
	return out
}
