package studyconfig

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/transition"
)

// ValidationError 검증 실패 (프로그램 중단)
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

var windowPattern = regexp.MustCompile(`^(\d+)([dwmy])$`)

// Validate checks all required constraints
func Validate(cfg *Config) error {
	// === Meta ===
	if cfg.Meta.StudyID == "" {
		return ValidationError{"meta.study_id", "required"}
	}

	// === Period ===
	if cfg.Period.Rolling.Enabled {
		if cfg.Period.Start != "" || cfg.Period.End != "" {
			return ValidationError{"period", "start/end and rolling are mutually exclusive"}
		}
		if _, _, err := parseWindow(cfg.Period.Rolling.Window); err != nil {
			return ValidationError{"period.rolling.window", err.Error()}
		}
		if cfg.Period.Rolling.Schedule != "" {
			if _, err := cron.ParseStandard(cfg.Period.Rolling.Schedule); err != nil {
				return ValidationError{"period.rolling.schedule", err.Error()}
			}
		}
	} else {
		start, err := contracts.ParseDate(cfg.Period.Start)
		if err != nil {
			return ValidationError{"period.start", err.Error()}
		}
		end, err := contracts.ParseDate(cfg.Period.End)
		if err != nil {
			return ValidationError{"period.end", err.Error()}
		}
		if !start.Before(end) {
			return ValidationError{"period", "start must be before end"}
		}
	}

	// === Composite ===
	if cfg.Composite.MinAgencies < 1 || cfg.Composite.MinAgencies > len(contracts.Agencies) {
		return ValidationError{"composite.min_agencies", "must be in [1, 3]"}
	}
	if cfg.Composite.RoundingBias < 0 || cfg.Composite.RoundingBias >= 0.5 {
		return ValidationError{"composite.rounding_bias", "must be in [0, 0.5)"}
	}

	// === Output ===
	for _, name := range cfg.Output.Tables {
		kind, err := transition.ParseKind(name)
		if err != nil {
			return ValidationError{"output.tables", err.Error()}
		}
		if kind == transition.Severities && !cfg.Severity.Enabled {
			return ValidationError{"output.tables", "severity table requires severity.enabled"}
		}
	}

	return nil
}

func parseWindow(s string) (int, string, error) {
	m := windowPattern.FindStringSubmatch(strings.ToLower(strings.TrimSpace(s)))
	if m == nil {
		return 0, "", fmt.Errorf("window %q must look like 90d, 4w, 6m or 1y", s)
	}
	n, err := strconv.Atoi(m[1])
	if err != nil || n <= 0 {
		return 0, "", fmt.Errorf("window %q must be positive", s)
	}
	return n, m[2], nil
}

// Window resolves the study period. Fixed periods ignore asOf; rolling periods
// end on asOf's calendar date.
func (c *Config) Window(asOf time.Time) (time.Time, time.Time, error) {
	if !c.Period.Rolling.Enabled {
		start, err := contracts.ParseDate(c.Period.Start)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		end, err := contracts.ParseDate(c.Period.End)
		if err != nil {
			return time.Time{}, time.Time{}, err
		}
		return start, end, nil
	}

	n, unit, err := parseWindow(c.Period.Rolling.Window)
	if err != nil {
		return time.Time{}, time.Time{}, err
	}
	end := contracts.DateOf(asOf)
	var start time.Time
	switch unit {
	case "d":
		start = end.AddDate(0, 0, -n)
	case "w":
		start = end.AddDate(0, 0, -7*n)
	case "m":
		start = end.AddDate(0, -n, 0)
	default:
		start = end.AddDate(-n, 0, 0)
	}
	return start, end, nil
}
