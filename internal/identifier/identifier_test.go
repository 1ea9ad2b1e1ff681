package identifier

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		typ  IDType
		want string
	}{
		{"cusip with check digit", "037833100", CUSIP, "03783310"},
		{"cusip already 8", "03783310", CUSIP, "03783310"},
		{"short cusip passes through", "0378", CUSIP, "0378"},
		{"isin exact", "US0378331005", ISIN, "US0378331005"},
		{"isin too long", "US0378331005XX", ISIN, "US0378331005"},
		{"unknown untouched", "ABCDEFGHIJKLMNOP", Unknown, "ABCDEFGHIJKLMNOP"},
		{"whitespace trimmed", " 037833100 ", CUSIP, "03783310"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Normalize(tt.raw, tt.typ))
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	once := Normalize("037833100", CUSIP)
	assert.Equal(t, once, Normalize(once, CUSIP))
}

func TestParseIDType(t *testing.T) {
	assert.Equal(t, CUSIP, ParseIDType("Cusip1"))
	assert.Equal(t, CUSIP, ParseIDType("Cusip6"))
	assert.Equal(t, CUSIP, ParseIDType("CUSIP - Previous"))
	assert.Equal(t, CUSIP, ParseIDType("CUSIP-Deriv/Underlying Bond"))
	assert.Equal(t, ISIN, ParseIDType("ISIN"))
	assert.Equal(t, Unknown, ParseIDType("SEDOL"))
	assert.Equal(t, "CUSIP", CUSIP.String())
}

func TestValidate(t *testing.T) {
	assert.NoError(t, Validate("03783310", CUSIP))
	assert.Error(t, Validate("0378", CUSIP))
	assert.Error(t, Validate("", ISIN))
	assert.Error(t, Validate("US03", ISIN))
	assert.NoError(t, Validate("anything", Unknown))
}
