package commands

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scheduler/jobs"
	"github.com/wonny/acr/internal/studyconfig"
)

// transitionCmd represents the transition command
var transitionCmd = &cobra.Command{
	Use:   "transition",
	Short: "등급 전이 행렬 분석",
	Long: `두 시점 사이의 composite 등급 전이 행렬을 계산합니다.

Subcommands:
  run    - 전이 스터디 실행 (플래그 또는 --config YAML)
  runs   - 저장된 스터디 목록 (DATABASE_URL 필요)
  cells  - 저장된 스터디의 행렬 셀

Example:
  go run ./cmd/acr transition run --start 2013-12-31 --end 2014-12-31
  go run ./cmd/acr transition run --start 2013-12-31 --end 2014-12-31 --severity --persist --out ./out
  go run ./cmd/acr transition run --config studies/na_ig.yaml
  go run ./cmd/acr transition runs --limit 10`,
}

var (
	transitionRunCmd = &cobra.Command{
		Use:   "run",
		Short: "전이 스터디 실행",
		RunE:  runTransition,
	}

	transitionRunsCmd = &cobra.Command{
		Use:   "runs",
		Short: "저장된 스터디 목록",
		RunE:  listTransitionRuns,
	}

	transitionCellsCmd = &cobra.Command{
		Use:   "cells [run_id]",
		Short: "저장된 행렬 셀",
		Args:  cobra.ExactArgs(1),
		RunE:  showTransitionCells,
	}

	trConfig   string
	trStart    string
	trEnd      string
	trUniverse string
	trSeverity bool
	trPersist  bool
	trOut      string
	trTables   []string
	trSave     bool
	trLimit    int
)

func init() {
	rootCmd.AddCommand(transitionCmd)
	transitionCmd.AddCommand(transitionRunCmd)
	transitionCmd.AddCommand(transitionRunsCmd)
	transitionCmd.AddCommand(transitionCellsCmd)

	f := transitionRunCmd.Flags()
	f.StringVar(&trConfig, "config", "", "study config YAML (overrides the other flags)")
	f.StringVar(&trStart, "start", "", "start date YYYY-MM-DD")
	f.StringVar(&trEnd, "end", "", "end date YYYY-MM-DD")
	f.StringVar(&trUniverse, "universe", "", "constituents CSV (default: UNIVERSE_FILE)")
	f.BoolVar(&trSeverity, "severity", false, "also build the OAS-weighted severity matrix")
	f.BoolVar(&trPersist, "persist", false, "write the tables as CSV")
	f.StringVar(&trOut, "out", "", "output directory (default: OUTPUT_DIR)")
	f.StringSliceVar(&trTables, "tables", nil, "tables to print/persist (probabilities,counts,severity)")
	f.BoolVar(&trSave, "save", false, "store the run in Postgres")

	transitionRunsCmd.Flags().IntVar(&trLimit, "limit", 20, "number of runs")
}

// studyFromFlags builds a one-off study config from the command line
func studyFromFlags(a *app) (*studyconfig.Config, error) {
	out := trOut
	if out == "" {
		out = a.cfg.Output.Dir
	}
	tables := trTables
	if len(tables) == 0 {
		tables = []string{"probabilities", "counts"}
		if trSeverity {
			tables = append(tables, "severity")
		}
	}

	cfg := &studyconfig.Config{
		Meta:      studyconfig.Meta{StudyID: "adhoc", Version: "cli"},
		Period:    studyconfig.Period{Start: trStart, End: trEnd},
		Composite: studyconfig.Composite{MinAgencies: a.cfg.Composite.MinAgencies, RoundingBias: a.cfg.Composite.RoundingBias},
		Inputs:    studyconfig.Inputs{Universe: trUniverse},
		Severity:  studyconfig.Severity{Enabled: trSeverity},
		Output:    studyconfig.Output{Dir: out, Persist: trPersist, Tables: tables, Save: trSave},
	}
	return cfg, studyconfig.Validate(cfg)
}

func runTransition(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	var cfg *studyconfig.Config
	if trConfig != "" {
		cfg, _, err = studyconfig.Load(trConfig)
		if err != nil {
			return err
		}
		if err := studyconfig.Validate(cfg); err != nil {
			return err
		}
		if trUniverse != "" {
			cfg.Inputs.Universe = trUniverse
		}
	} else {
		if cfg, err = studyFromFlags(a); err != nil {
			return err
		}
	}

	repo := a.repository()
	if cfg.Output.Save {
		if repo == nil {
			return fmt.Errorf("--save needs DATABASE_URL")
		}
		if err := a.db.EnsureSchema(cmd.Context()); err != nil {
			return err
		}
	}

	loader, err := a.loader()
	if err != nil {
		return err
	}
	job, err := jobs.NewStudyJob(cfg, a.cfg, loader, repo, a.cache, a.log)
	if err != nil {
		return err
	}

	res, files, err := job.Execute(cmd.Context())
	if err != nil {
		return err
	}

	PrintHeader("Rating Transition Study",
		fmt.Sprintf("Study     : %s", cfg.Meta.StudyID),
		fmt.Sprintf("Run ID    : %s", res.RunID),
		fmt.Sprintf("Period    : %s ~ %s", res.Start.Format(contracts.DateLayout), res.End.Format(contracts.DateLayout)),
	)
	s := res.Summary
	PrintKeyValue("Bonds", fmt.Sprintf("%d", s.Bonds), 12)
	PrintKeyValue("Transitions", fmt.Sprintf("%d", s.Transitions), 12)
	PrintKeyValue("Skipped (NR)", fmt.Sprintf("%d", s.Skipped), 12)
	PrintKeyValue("Defaults", fmt.Sprintf("%d", s.Defaults), 12)
	PrintKeyValue("Upgrades", fmt.Sprintf("%d", s.Upgrades), 12)
	PrintKeyValue("Downgrades", fmt.Sprintf("%d", s.Downgrades), 12)
	PrintKeyValue("Unchanged", fmt.Sprintf("%d", s.Unchanged), 12)
	if cfg.Severity.Enabled {
		PrintKeyValue("Weighted", fmt.Sprintf("%d", s.Weighted), 12)
	}

	// per-start summary
	fmt.Println()
	widths := []int{5, 6, 9, 9, 9, 9}
	PrintTableHeader([]string{"Start", "N", "Upgrade", "Downgr.", "Default", "E[Δ]"}, widths)
	for _, row := range res.Rows {
		PrintTableRow([]string{
			row.Start.String(),
			fmt.Sprintf("%d", row.Count),
			fmt.Sprintf("%.4f", row.Upgrade),
			fmt.Sprintf("%.4f", row.Downgrade),
			fmt.Sprintf("%.4f", row.Default),
			fmt.Sprintf("%+.3f", row.ExpectedNotchChange),
		}, widths)
	}

	for _, kind := range cfg.Kinds() {
		PrintMatrix(res.Matrix.Table(kind))
	}

	fmt.Println()
	for _, f := range files {
		PrintSuccess("Wrote " + f)
	}
	if cfg.Output.Save {
		PrintSuccess(fmt.Sprintf("Saved run %s", res.RunID))
	}
	return nil
}

func listTransitionRuns(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	repo := a.repository()
	if repo == nil {
		return fmt.Errorf("transition runs needs DATABASE_URL")
	}

	runs, err := repo.ListRuns(cmd.Context(), trLimit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		PrintInfo("no stored runs")
		return nil
	}

	widths := []int{36, 10, 10, 6, 6, 8, 19}
	PrintTableHeader([]string{"Run ID", "Start", "End", "Bonds", "Trans", "Defaults", "Created"}, widths)
	for _, r := range runs {
		PrintTableRow([]string{
			r.RunID.String(),
			r.Start.Format(contracts.DateLayout),
			r.End.Format(contracts.DateLayout),
			fmt.Sprintf("%d", r.Bonds),
			fmt.Sprintf("%d", r.Transitions),
			fmt.Sprintf("%d", r.Defaults),
			r.CreatedAt.Format("2006-01-02 15:04:05"),
		}, widths)
	}
	return nil
}

func showTransitionCells(cmd *cobra.Command, args []string) error {
	runID, err := uuid.Parse(args[0])
	if err != nil {
		return fmt.Errorf("invalid run id: %w", err)
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	repo := a.repository()
	if repo == nil {
		return fmt.Errorf("transition cells needs DATABASE_URL")
	}

	cells, err := repo.Cells(cmd.Context(), runID)
	if err != nil {
		return err
	}

	widths := []int{5, 5, 6, 11, 11}
	PrintTableHeader([]string{"From", "To", "Count", "Prob.", "Severity"}, widths)
	for _, c := range cells {
		PrintTableRow([]string{c.From.String(), c.To.String(), fmt.Sprintf("%d", c.Count), optional(c.Probability), optional(c.Severity)}, widths)
	}
	return nil
}

func optional(v *float64) string {
	if v == nil {
		return "-"
	}
	return strings.TrimRight(strings.TrimRight(fmt.Sprintf("%.6f", *v), "0"), ".")
}
