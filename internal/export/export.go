package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strconv"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/internal/timeseries"
	"github.com/wonny/acr/internal/transition"
)

// WriteTable writes a matrix table as CSV: Start, one column per end rating
// (AAA..D), Count. Undefined cells are empty.
func WriteTable(w io.Writer, t transition.Table) error {
	cw := csv.NewWriter(w)

	header := make([]string, 0, len(t.Columns)+2)
	header = append(header, "Start")
	for _, c := range t.Columns {
		header = append(header, c.String())
	}
	header = append(header, "Count")
	if err := cw.Write(header); err != nil {
		return err
	}

	for _, row := range t.Rows {
		rec := make([]string, 0, len(header))
		rec = append(rec, row.Start.String())
		for _, v := range row.Values {
			rec = append(rec, formatValue(v, t.Kind))
		}
		rec = append(rec, strconv.Itoa(row.Count))
		if err := cw.Write(rec); err != nil {
			return err
		}
	}

	cw.Flush()
	return cw.Error()
}

func formatValue(v float64, kind transition.Kind) string {
	if math.IsNaN(v) {
		return ""
	}
	if kind == transition.Counts {
		return strconv.FormatInt(int64(v), 10)
	}
	return strconv.FormatFloat(v, 'f', 6, 64)
}

// PersistTable writes a table to dir/<prefix>_<kind>.csv when persist is set.
// It returns the written path, or "" when persist is false.
func PersistTable(dir, prefix string, t transition.Table, persist bool) (string, error) {
	if !persist {
		return "", nil
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, t.Kind))
	return path, writeFile(path, func(w io.Writer) error { return WriteTable(w, t) })
}

// WriteSeries writes a reconstructed series, one row per (bond, date)
func WriteSeries(w io.Writer, s *timeseries.Series) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bond_id", "date", "moodys", "sp", "fitch", "composite", "agency_count"}); err != nil {
		return err
	}
	for _, r := range s.Rows {
		rec := []string{
			r.BondID,
			r.Date.Format(contracts.DateLayout),
			r.Ratings.Moodys.String(),
			r.Ratings.SP.String(),
			r.Ratings.Fitch.String(),
			r.Composite.String(),
			strconv.Itoa(r.AgencyCount),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteObservations writes a composite snapshot
func WriteObservations(w io.Writer, obs []contracts.CompositeObservation) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bond_id", "date", "moodys", "sp", "fitch", "composite", "agency_count"}); err != nil {
		return err
	}
	for _, o := range obs {
		date := ""
		if !o.Date.IsZero() {
			date = o.Date.Format(contracts.DateLayout)
		}
		rec := []string{
			o.BondID, date,
			o.Moodys.String(), o.SP.String(), o.Fitch.String(),
			o.Composite.String(), strconv.Itoa(o.AgencyCount),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WritePairs writes the per-bond start/end composites of a study
func WritePairs(w io.Writer, pairs []study.Pair) error {
	cw := csv.NewWriter(w)
	if err := cw.Write([]string{"bond_id", "composite_t0", "composite_t1", "observed_t1", "default_date", "counted"}); err != nil {
		return err
	}
	for _, p := range pairs {
		def := ""
		if p.DefaultDate != nil {
			def = p.DefaultDate.Format(contracts.DateLayout)
		}
		rec := []string{
			p.BondID,
			p.Start.Composite.String(),
			p.EndComposite.String(),
			p.End.Composite.String(),
			def,
			strconv.FormatBool(p.Counted),
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// PersistStudy writes the requested tables and the pair list of a study to dir
func PersistStudy(dir string, res *study.Result, kinds []transition.Kind) ([]string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create output dir: %w", err)
	}
	prefix := fmt.Sprintf("transition_%s_%s", res.Start.Format("20060102"), res.End.Format("20060102"))

	var paths []string
	for _, kind := range kinds {
		path, err := PersistTable(dir, prefix, res.Matrix.Table(kind), true)
		if err != nil {
			return paths, err
		}
		paths = append(paths, path)
	}

	pairsPath := filepath.Join(dir, prefix+"_bonds.csv")
	if err := writeFile(pairsPath, func(w io.Writer) error { return WritePairs(w, res.Pairs) }); err != nil {
		return paths, err
	}
	return append(paths, pairsPath), nil
}

func writeFile(path string, write func(io.Writer) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}
	return f.Close()
}
