package contracts

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/internal/scale"
)

func TestParseDateQuery(t *testing.T) {
	q, err := ParseDateQuery("current")
	require.NoError(t, err)
	assert.Equal(t, QueryCurrent, q.Kind())

	q, err = ParseDateQuery("")
	require.NoError(t, err)
	assert.Equal(t, QueryCurrent, q.Kind())

	q, err = ParseDateQuery("incremental")
	require.NoError(t, err)
	assert.Equal(t, QueryIncremental, q.Kind())

	q, err = ParseDateQuery("2014-12-31")
	require.NoError(t, err)
	assert.Equal(t, QueryAsOf, q.Kind())
	assert.Equal(t, time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC), q.Date())
	assert.Equal(t, "2014-12-31", q.String())

	_, err = ParseDateQuery("31st of December")
	assert.Error(t, err)
}

func TestAsOf_DropsTimeOfDay(t *testing.T) {
	q := AsOf(time.Date(2015, 3, 2, 23, 59, 59, 0, time.UTC))
	assert.Equal(t, time.Date(2015, 3, 2, 0, 0, 0, 0, time.UTC), q.Date())
}

func TestParseDate_Layouts(t *testing.T) {
	want := time.Date(2014, 3, 5, 0, 0, 0, 0, time.UTC)
	for _, s := range []string{"2014-03-05", "2014-03-05 13:45:00", "03/05/2014", "3/5/14", "2014-03-05T10:00:00Z"} {
		got, err := ParseDate(s)
		require.NoError(t, err, s)
		assert.Equal(t, want, got, s)
	}

	_, err := ParseDate("not a date")
	assert.Error(t, err)
}

func TestAgency(t *testing.T) {
	a, err := ParseAgency("S&P")
	require.NoError(t, err)
	assert.Equal(t, SP, a)
	assert.Equal(t, "fitch", Fitch.String())

	_, err = ParseAgency("dbrs")
	assert.Error(t, err)
}

func TestAgencyRatings_GetSet(t *testing.T) {
	var r AgencyRatings
	r.Set(SP, scale.MustParse("BBB+"))
	assert.Equal(t, scale.MustParse("BBB1"), r.Get(SP))
	assert.Equal(t, scale.NR, r.Get(Moodys))
}

func TestUniverse(t *testing.T) {
	oas0, oas1 := 120.0, 180.0
	u := Universe{Constituents: []Constituent{
		{BondID: "AAA11111", MarketValue: 10, OASStart: &oas0, OASEnd: &oas1},
		{BondID: "BBB22222", MarketValue: 5},
		{BondID: "AAA11111", MarketValue: 10},
	}}

	assert.Equal(t, []string{"AAA11111", "BBB22222"}, u.BondIDs())
	assert.True(t, u.Contains("BBB22222"))
	assert.Equal(t, 3, u.Count())

	change, ok := u.Constituents[0].OASChange()
	assert.True(t, ok)
	assert.InDelta(t, 60.0, change, 1e-9)

	_, ok = u.Constituents[1].OASChange()
	assert.False(t, ok)
}
