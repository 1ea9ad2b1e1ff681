package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/internal/store"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/internal/timeseries"
	"github.com/wonny/acr/internal/transition"
)

func readCSV(t *testing.T, b []byte) [][]string {
	t.Helper()
	recs, err := csv.NewReader(bytes.NewReader(b)).ReadAll()
	require.NoError(t, err)
	return recs
}

func matrix(t *testing.T) *transition.Matrix {
	t.Helper()
	m := transition.New()
	require.NoError(t, m.RecordTransition(scale.MustParse("A2"), scale.MustParse("BBB1")))
	require.NoError(t, m.RecordTransition(scale.MustParse("A2"), scale.MustParse("A2")))
	require.NoError(t, m.RecordTransition(scale.MustParse("A2"), scale.MustParse("D")))
	return m
}

func TestWriteTable_Probabilities(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, matrix(t).ProbabilityTable()))

	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, scale.NumNotches+1)
	header := recs[0]
	require.Len(t, header, scale.NumNotches+2)
	assert.Equal(t, "Start", header[0])
	assert.Equal(t, "AAA", header[1])
	assert.Equal(t, "D", header[scale.NumNotches])
	assert.Equal(t, "Count", header[scale.NumNotches+1])

	// A2 is notch 16 -> row 21-16+1
	a2 := recs[scale.Best-16+1]
	assert.Equal(t, "A2", a2[0])
	assert.Equal(t, "0.333333", a2[1+scale.Best-14])
	assert.Equal(t, "3", a2[len(a2)-1])

	aaa := recs[1]
	assert.Equal(t, "", aaa[1], "undefined probability is empty")
	assert.Equal(t, "0", aaa[len(aaa)-1])
}

func TestWriteTable_Counts(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, WriteTable(&buf, matrix(t).CountTable()))
	recs := readCSV(t, buf.Bytes())
	a2 := recs[scale.Best-16+1]
	assert.Equal(t, "1", a2[len(a2)-2], "A2 -> D")
	assert.Equal(t, "0", recs[1][1])
}

func TestPersistTable(t *testing.T) {
	dir := t.TempDir()

	path, err := PersistTable(dir, "x", matrix(t).CountTable(), false)
	require.NoError(t, err)
	assert.Empty(t, path)
	entries, _ := os.ReadDir(dir)
	assert.Empty(t, entries)

	path, err = PersistTable(dir, "x", matrix(t).CountTable(), true)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "x_counts.csv"), path)
	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(b), "Start,AAA,"))
}

func fixtureStore() *store.Store {
	s := store.New()
	d := time.Date(2014, 1, 2, 0, 0, 0, 0, time.UTC)
	for _, a := range []contracts.Agency{contracts.SP, contracts.Fitch} {
		s.Add(contracts.RatingRecord{Agency: a, BondID: "BOND0001", RatingDate: d, Code: scale.MustParse("BBB")})
	}
	return s
}

func TestWriteSeries(t *testing.T) {
	series, err := timeseries.Reconstruct(context.Background(), fixtureStore(), []string{"BOND0001"},
		time.Date(2014, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2014, 1, 3, 0, 0, 0, 0, time.UTC),
		timeseries.Options{Calculator: composite.Default()})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteSeries(&buf, series))
	recs := readCSV(t, buf.Bytes())
	require.Len(t, recs, 4)
	assert.Equal(t, []string{"BOND0001", "2014-01-01", "NR", "NR", "NR", "NR", "0"}, recs[1])
	assert.Equal(t, []string{"BOND0001", "2014-01-03", "NR", "BBB2", "BBB2", "BBB2", "2"}, recs[3])
}

func TestWriteObservations(t *testing.T) {
	obs, err := composite.Default().Snapshot(fixtureStore(), []string{"BOND0001"}, contracts.Current())
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteObservations(&buf, obs))
	recs := readCSV(t, buf.Bytes())
	assert.Equal(t, []string{"BOND0001", "", "NR", "BBB2", "BBB2", "BBB2", "2"}, recs[1])
}

func TestPersistStudy(t *testing.T) {
	u := &contracts.Universe{Constituents: []contracts.Constituent{{BondID: "BOND0001"}, {BondID: "BOND0002"}}}
	res, err := study.NewRunner(fixtureStore(), nil).Run(context.Background(), study.Config{
		Start:    time.Date(2014, 6, 30, 0, 0, 0, 0, time.UTC),
		End:      time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC),
		Universe: u,
	})
	require.NoError(t, err)

	dir := filepath.Join(t.TempDir(), "out")
	paths, err := PersistStudy(dir, res, []transition.Kind{transition.Probabilities, transition.Counts})
	require.NoError(t, err)
	require.Len(t, paths, 3)
	assert.Equal(t, filepath.Join(dir, "transition_20140630_20141231_probabilities.csv"), paths[0])

	b, err := os.ReadFile(paths[2])
	require.NoError(t, err)
	recs := readCSV(t, b)
	require.Len(t, recs, 3)
	assert.Equal(t, []string{"BOND0001", "BBB2", "BBB2", "BBB2", "", "true"}, recs[1])
	assert.Equal(t, []string{"BOND0002", "NR", "NR", "NR", "", "false"}, recs[2])
}
