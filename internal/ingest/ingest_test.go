package ingest

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/pkg/config"
)

const moodysCSV = `instrument_id_value,id_type_text,rating_date,rating_text,security_class_short_description,rating_class_text
037833100,CUSIP,2014-05-01 00:00:00,Aa1,REG,Long Term Rating
037833100,CUSIP,2014-05-01 00:00:00,LGD3 - 40%,REG,LGD Rating
037833100,CUSIP,2015-01-10,Aa2,BCF,Long Term Rating
US0378331005,ISIN,2016-02-01,Aa3,MTN,Long Term Rating
`

const spCSV = `id_value,id_type,rating_date,rating
037833100,Cusip1,2014-03-01,AA+
037833100,Cusip1,2014-03-01,AA
594918104,Cusip2,2013-07-15,AAA
`

const fitchCSV = `id_value,id_type,long_term_issue_rating_effective_date,long_term_issue_rating
037833100,Cusip1,2014-06-30,AA-
037833100,Cusip1,2015-06-30,WD
`

func TestReadFeed_Moodys(t *testing.T) {
	recs, stats, err := ReadFeed(strings.NewReader(moodysCSV), contracts.Moodys, ReadOptions{})
	require.NoError(t, err)

	assert.Equal(t, 4, stats.Rows)
	assert.Equal(t, 2, stats.Filtered, "LGD and non-bond classes are dropped")
	require.Len(t, recs, 2)

	assert.Equal(t, "03783310", recs[0].BondID)
	assert.Equal(t, time.Date(2014, 5, 1, 0, 0, 0, 0, time.UTC), recs[0].RatingDate)
	assert.Equal(t, "AA1", recs[0].Code.String())
	assert.Equal(t, "Aa1", recs[0].Raw)
	assert.Equal(t, int64(2), recs[0].Seq)

	assert.Equal(t, "US0378331005", recs[1].BondID)
}

func TestReadFeed_SPKeepsFeedOrder(t *testing.T) {
	recs, _, err := ReadFeed(strings.NewReader(spCSV), contracts.SP, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 3)
	assert.Less(t, recs[0].Seq, recs[1].Seq)
	assert.Equal(t, "59491810", recs[2].BondID)
}

func TestReadFeed_FitchWithdrawnIsNR(t *testing.T) {
	recs, _, err := ReadFeed(strings.NewReader(fitchCSV), contracts.Fitch, ReadOptions{})
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "AA3", recs[0].Code.String())
	assert.Equal(t, scale.NR, recs[1].Code)
}

func TestReadFeed_UnknownCode(t *testing.T) {
	bad := "id_value,id_type,rating_date,rating\n037833100,Cusip1,2014-03-01,ZZZ\n037833100,Cusip1,2014-04-01,A\n"

	_, _, err := ReadFeed(strings.NewReader(bad), contracts.SP, ReadOptions{})
	assert.ErrorIs(t, err, scale.ErrUnknownCode)

	recs, stats, err := ReadFeed(strings.NewReader(bad), contracts.SP, ReadOptions{SkipUnknownCodes: true})
	require.NoError(t, err)
	assert.Len(t, recs, 1)
	assert.Equal(t, 1, stats.UnknownCodes)
}

func TestReadFeed_MalformedDate(t *testing.T) {
	bad := "id_value,id_type,rating_date,rating\n037833100,Cusip1,not-a-date,A\n"
	_, _, err := ReadFeed(strings.NewReader(bad), contracts.SP, ReadOptions{SkipUnknownCodes: true})
	assert.Error(t, err)
}

func TestReadFeed_MissingColumn(t *testing.T) {
	_, _, err := ReadFeed(strings.NewReader("id_value,rating\nX,A\n"), contracts.SP, ReadOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)

	_, _, err = ReadFeed(strings.NewReader(""), contracts.Fitch, ReadOptions{})
	assert.ErrorIs(t, err, ErrMissingColumn)
}

func TestCSVReader_HeaderMatching(t *testing.T) {
	cr, err := NewCSVReader(strings.NewReader("\ufeff Cusip ,MKT_VAL\nabc,1\n"), "cusip", "mkt_val")
	require.NoError(t, err)
	assert.True(t, cr.Has("CUSIP"))
	assert.False(t, cr.Has("isin"))

	row, err := cr.Next()
	require.NoError(t, err)
	assert.Equal(t, "abc", row.Get("cusip"))
	assert.Equal(t, "", row.Get("isin"))
	assert.Equal(t, 2, row.Line)
}

func TestReadUniverse(t *testing.T) {
	in := `cusip,isin,ticker,name,mkt_val,oas_0,oas_1
'037833100',US0378331005,AAPL,Apple Inc,"1,250.5",85,92.5
594918104,,MSFT,Microsoft,300,,
,,,,,,
`
	u, err := ReadUniverse(strings.NewReader(in))
	require.NoError(t, err)
	require.Equal(t, 2, u.Count())

	apple := u.Constituents[0]
	assert.Equal(t, "03783310", apple.BondID)
	assert.Equal(t, "US0378331005", apple.ISIN)
	assert.Equal(t, "AAPL", apple.Ticker)
	assert.InDelta(t, 1250.5, apple.MarketValue, 1e-9)
	change, ok := apple.OASChange()
	require.True(t, ok)
	assert.InDelta(t, 7.5, change, 1e-9)

	_, ok = u.Constituents[1].OASChange()
	assert.False(t, ok)
}

func TestReadUniverse_BadNumber(t *testing.T) {
	_, err := ReadUniverse(strings.NewReader("cusip,mkt_val\n037833100,lots\n"))
	assert.Error(t, err)
}

func TestUniverseFromIDs(t *testing.T) {
	u := UniverseFromIDs([]string{"037833100", "US0378331005XX", "1234"})
	assert.Equal(t, []string{"03783310", "US0378331005", "1234"}, u.BondIDs())
}

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(p, []byte(body), 0o644))
	return p
}

func TestFileLoader_LoadStore(t *testing.T) {
	dir := t.TempDir()
	cfg := config.FeedConfig{
		MoodysPath: writeFile(t, dir, "moodys.csv", moodysCSV),
		SPPath:     writeFile(t, dir, "sp.csv", spCSV),
		FitchPath:  writeFile(t, dir, "fitch.csv", fitchCSV),
	}

	s, err := LoadStore(context.Background(), NewFileLoader(cfg, nil), nil)
	require.NoError(t, err)

	ratings, err := s.Ratings("03783310", contracts.AsOf(time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	assert.Equal(t, "AA1", ratings.Moodys.String())
	assert.Equal(t, "AA2", ratings.SP.String(), "same-day re-rating keeps the later row")
	assert.Equal(t, "AA3", ratings.Fitch.String())

	st := s.Stats()
	assert.Equal(t, 2, st.Records[contracts.Moodys])
	assert.Equal(t, 3, st.Records[contracts.SP])
}

func TestFileLoader_SkipsEmptyPathAndFailsOnMissingFile(t *testing.T) {
	dir := t.TempDir()
	l := NewFileLoader(config.FeedConfig{SPPath: writeFile(t, dir, "sp.csv", spCSV)}, nil)
	recs, err := l.Load(context.Background())
	require.NoError(t, err)
	assert.Len(t, recs, 3)

	l = NewFileLoader(config.FeedConfig{FitchPath: filepath.Join(dir, "missing.csv")}, nil)
	_, err = l.Load(context.Background())
	assert.Error(t, err)
}
