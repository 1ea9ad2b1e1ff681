package studyconfig

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/config"
)

const fixedYAML = `
meta:
  study_id: na_ig_2014
  version: "1"
period:
  start: 2013-12-31
  end: 2014-12-31
composite:
  min_agencies: 2
  rounding_bias: 0.0002
inputs:
  universe: universe.csv
severity:
  enabled: true
output:
  dir: out
  persist: true
`

func TestParse(t *testing.T) {
	cfg, err := Parse([]byte(fixedYAML))
	require.NoError(t, err)

	assert.Equal(t, "na_ig_2014", cfg.Meta.StudyID)
	assert.Equal(t, []string{"probabilities", "counts", "severity"}, cfg.Output.Tables)

	start, end, err := cfg.Window(time.Now())
	require.NoError(t, err)
	assert.Equal(t, time.Date(2013, 12, 31, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2014, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestParse_UnknownFieldFails(t *testing.T) {
	_, err := Parse([]byte(fixedYAML + "extra: true\n"))
	assert.Error(t, err)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(fixedYAML), 0o644))

	cfg, data, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, fixedYAML, string(data))

	// 동일 설정 → 동일 해시
	h1, err := Hash(cfg)
	require.NoError(t, err)
	h2, _ := Hash(cfg)
	assert.Len(t, h1, 64)
	assert.Equal(t, h1, h2)

	cfg.Composite.MinAgencies = 1
	h3, _ := Hash(cfg)
	assert.NotEqual(t, h1, h3)
}

func TestRollingWindow(t *testing.T) {
	cfg, err := Parse([]byte(`
meta: {study_id: rolling}
period:
  rolling: {enabled: true, window: 1y, schedule: "0 6 * * 1-5"}
`))
	require.NoError(t, err)

	start, end, err := cfg.Window(time.Date(2020, 3, 15, 18, 30, 0, 0, time.UTC))
	require.NoError(t, err)
	assert.Equal(t, time.Date(2019, 3, 15, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2020, 3, 15, 0, 0, 0, 0, time.UTC), end)
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		cfg, err := Parse([]byte(fixedYAML))
		require.NoError(t, err)
		return cfg
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"missing id", func(c *Config) { c.Meta.StudyID = "" }, "meta.study_id"},
		{"bad start", func(c *Config) { c.Period.Start = "yesterday" }, "period.start"},
		{"reversed", func(c *Config) { c.Period.Start, c.Period.End = c.Period.End, c.Period.Start }, "period"},
		{"min agencies", func(c *Config) { c.Composite.MinAgencies = 4 }, "composite.min_agencies"},
		{"bias", func(c *Config) { c.Composite.RoundingBias = 0.5 }, "composite.rounding_bias"},
		{"unknown table", func(c *Config) { c.Output.Tables = []string{"heatmap"} }, "output.tables"},
		{"severity off", func(c *Config) { c.Severity.Enabled = false }, "output.tables"},
		{"rolling with dates", func(c *Config) { c.Period.Rolling = Rolling{Enabled: true, Window: "1y"} }, "period"},
		{"bad window", func(c *Config) {
			c.Period = Period{Rolling: Rolling{Enabled: true, Window: "fortnight"}}
		}, "period.rolling.window"},
		{"bad schedule", func(c *Config) {
			c.Period = Period{Rolling: Rolling{Enabled: true, Window: "6m", Schedule: "every day"}}
		}, "period.rolling.schedule"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := Validate(cfg)
			var verr ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}
}

func TestFeedsAndKinds(t *testing.T) {
	cfg, err := Parse([]byte(fixedYAML))
	require.NoError(t, err)

	feeds := cfg.Feeds(config.FeedConfig{UniversePath: "env.csv", SPPath: "sp.csv", SPDefaultsPath: "sp_def.csv"})
	assert.Equal(t, "universe.csv", feeds.UniversePath)
	assert.Equal(t, "sp.csv", feeds.SPPath)
	assert.Equal(t, "sp_def.csv", feeds.SPDefaultsPath)

	assert.Equal(t, []transition.Kind{transition.Probabilities, transition.Counts, transition.Severities}, cfg.Kinds())
}
