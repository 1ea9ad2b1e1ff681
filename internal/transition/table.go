package transition

import (
	"encoding/json"
	"fmt"
	"math"

	"github.com/wonny/acr/internal/scale"
)

// Kind selects which statistic a Table holds
type Kind int

const (
	Probabilities Kind = iota
	Counts
	Severities
)

func (k Kind) String() string {
	switch k {
	case Counts:
		return "counts"
	case Severities:
		return "severity"
	default:
		return "probabilities"
	}
}

// MarshalText writes the kind by name
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler
func (k *Kind) UnmarshalText(b []byte) error {
	parsed, err := ParseKind(string(b))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// ParseKind accepts the names returned by Kind.String
func ParseKind(s string) (Kind, error) {
	switch s {
	case "probabilities", "probability", "prob", "":
		return Probabilities, nil
	case "counts", "count":
		return Counts, nil
	case "severity", "severities":
		return Severities, nil
	default:
		return Probabilities, fmt.Errorf("unknown table kind %q", s)
	}
}

// TableRow is one start rating of an exported matrix
type TableRow struct {
	Start  scale.Code `json:"start"`
	Values []float64  `json:"values"` // one per Table.Columns; NaN when undefined
	Count  int        `json:"count"`  // start total
}

// MarshalJSON writes undefined cells as null
func (r TableRow) MarshalJSON() ([]byte, error) {
	values := make([]*float64, len(r.Values))
	for i := range r.Values {
		if !math.IsNaN(r.Values[i]) {
			values[i] = &r.Values[i]
		}
	}
	return json.Marshal(struct {
		Start  scale.Code `json:"start"`
		Values []*float64 `json:"values"`
		Count  int        `json:"count"`
	}{r.Start, values, r.Count})
}

// Table is a 22×22 export ordered by descending notch on both axes, plus a Count column
type Table struct {
	Kind    Kind         `json:"kind"`
	Columns []scale.Code `json:"columns"`
	Rows    []TableRow   `json:"rows"`
}

// Table exports the matrix as the requested statistic
func (m *Matrix) Table(kind Kind) Table {
	codes := scale.Descending()
	t := Table{Kind: kind, Columns: codes, Rows: make([]TableRow, 0, len(codes))}

	for _, start := range codes {
		row := TableRow{Start: start, Count: m.StartCount(start), Values: make([]float64, len(codes))}
		for i, end := range codes {
			switch kind {
			case Counts:
				row.Values[i] = float64(m.Count(start, end))
			case Severities:
				row.Values[i] = m.WeightedSeverity(start, end)
			default:
				row.Values[i] = m.TransitionProbability(start, end)
			}
		}
		t.Rows = append(t.Rows, row)
	}
	return t
}

// ProbabilityTable is Table(Probabilities)
func (m *Matrix) ProbabilityTable() Table { return m.Table(Probabilities) }

// CountTable is Table(Counts)
func (m *Matrix) CountTable() Table { return m.Table(Counts) }

// SeverityTable is Table(Severities)
func (m *Matrix) SeverityTable() Table { return m.Table(Severities) }

// Cell returns one value by codes; NaN when either code is NR
func (t Table) Cell(start, end scale.Code) float64 {
	s, ok := start.Notch()
	if !ok {
		return math.NaN()
	}
	e, ok := end.Notch()
	if !ok {
		return math.NaN()
	}
	// rows and columns run from Best down to Default
	return t.Rows[scale.Best-s].Values[scale.Best-e]
}
