package studyconfig

import (
	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/config"
)

// Config는 등급 전이 스터디의 전체 설정
type Config struct {
	Meta      Meta      `yaml:"meta" json:"meta"`
	Period    Period    `yaml:"period" json:"period"`
	Composite Composite `yaml:"composite" json:"composite"`
	Inputs    Inputs    `yaml:"inputs" json:"inputs"`
	Severity  Severity  `yaml:"severity" json:"severity"`
	Output    Output    `yaml:"output" json:"output"`
}

// Meta 메타 정보
type Meta struct {
	StudyID string `yaml:"study_id" json:"study_id"`
	Version string `yaml:"version" json:"version"`
}

// Period is either a fixed [start, end] pair or a rolling window ending on the run date
type Period struct {
	Start   string  `yaml:"start" json:"start"` // YYYY-MM-DD
	End     string  `yaml:"end" json:"end"`     // YYYY-MM-DD
	Rolling Rolling `yaml:"rolling" json:"rolling"`
}

// Rolling window for scheduled runs
type Rolling struct {
	Enabled  bool   `yaml:"enabled" json:"enabled"`
	Window   string `yaml:"window" json:"window"`     // 90d, 6m, 1y
	Schedule string `yaml:"schedule" json:"schedule"` // cron expression (5 fields)
}

// Composite averaging policy
type Composite struct {
	MinAgencies  int     `yaml:"min_agencies" json:"min_agencies"`
	RoundingBias float64 `yaml:"rounding_bias" json:"rounding_bias"`
}

// Inputs overrides the feed paths from the environment; empty keeps the env value
type Inputs struct {
	Universe       string `yaml:"universe" json:"universe"`
	SPDefaults     string `yaml:"sp_defaults" json:"sp_defaults"`
	FitchDefaults  string `yaml:"fitch_defaults" json:"fitch_defaults"`
	ManualDefaults string `yaml:"manual_defaults" json:"manual_defaults"`
}

// Severity weighting of the transition matrix
type Severity struct {
	Enabled bool `yaml:"enabled" json:"enabled"` // oas_1 - oas_0 weighted by mkt_val
}

// Output 내보내기 설정
type Output struct {
	Dir     string   `yaml:"dir" json:"dir"`
	Persist bool     `yaml:"persist" json:"persist"` // write CSV tables
	Tables  []string `yaml:"tables" json:"tables"`   // probabilities, counts, severity
	Save    bool     `yaml:"save" json:"save"`       // store the run in Postgres
}

// Feeds overlays the configured inputs on the environment feed paths
func (c *Config) Feeds(env config.FeedConfig) config.FeedConfig {
	out := env
	if c.Inputs.Universe != "" {
		out.UniversePath = c.Inputs.Universe
	}
	if c.Inputs.SPDefaults != "" {
		out.SPDefaultsPath = c.Inputs.SPDefaults
	}
	if c.Inputs.FitchDefaults != "" {
		out.FitchDefaultsPath = c.Inputs.FitchDefaults
	}
	if c.Inputs.ManualDefaults != "" {
		out.ManualDefaultsPath = c.Inputs.ManualDefaults
	}
	return out
}

// Kinds returns the requested output tables
func (c *Config) Kinds() []transition.Kind {
	kinds := make([]transition.Kind, 0, len(c.Output.Tables))
	for _, name := range c.Output.Tables {
		if k, err := transition.ParseKind(name); err == nil {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
