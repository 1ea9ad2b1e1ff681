package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/export"
	"github.com/wonny/acr/internal/timeseries"
)

// timeseriesCmd represents the timeseries command
var timeseriesCmd = &cobra.Command{
	Use:   "timeseries",
	Short: "일별 등급 시계열 재구성 (CSV)",
	Long: `등급 변경 이력을 일별(또는 주별/월말) 격자로 forward-fill 하여
bond × date 패널을 생성합니다.

Example:
  go run ./cmd/acr timeseries --start 2020-01-01 --end 2020-12-31
  go run ./cmd/acr timeseries --start 2010-01-01 --end 2020-12-31 --freq month-end --out panel.csv`,
	RunE: runTimeSeries,
}

var (
	tsStart string
	tsEnd   string
	tsFreq  string
	tsIDs   string
	tsOut   string
)

func init() {
	rootCmd.AddCommand(timeseriesCmd)

	timeseriesCmd.Flags().StringVar(&tsStart, "start", "", "first date YYYY-MM-DD (required)")
	timeseriesCmd.Flags().StringVar(&tsEnd, "end", "", "last date YYYY-MM-DD (required)")
	timeseriesCmd.Flags().StringVar(&tsFreq, "freq", "daily", "daily|weekly|month-end")
	timeseriesCmd.Flags().StringVar(&tsIDs, "ids", "", "comma-separated bond ids (default: UNIVERSE_FILE)")
	timeseriesCmd.Flags().StringVar(&tsOut, "out", "", "output CSV path (default: stdout)")
	timeseriesCmd.MarkFlagRequired("start")
	timeseriesCmd.MarkFlagRequired("end")
}

func runTimeSeries(cmd *cobra.Command, args []string) error {
	start, err := contracts.ParseDate(tsStart)
	if err != nil {
		return err
	}
	end, err := contracts.ParseDate(tsEnd)
	if err != nil {
		return err
	}
	freq, err := timeseries.ParseFrequency(tsFreq)
	if err != nil {
		return err
	}

	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	st, err := a.loadStore(cmd.Context())
	if err != nil {
		return err
	}
	u, err := a.universe(tsIDs, st)
	if err != nil {
		return err
	}

	series, err := timeseries.Reconstruct(cmd.Context(), st, u.BondIDs(), start, end, timeseries.Options{
		Frequency:  freq,
		Workers:    a.cfg.Workers,
		Calculator: a.calc,
		Logger:     a.log,
	})
	if err != nil {
		return err
	}

	if tsOut == "" {
		return export.WriteSeries(os.Stdout, series)
	}

	f, err := os.Create(tsOut)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteSeries(f, series); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%d rows (%d bonds, %s) written to %s", len(series.Rows), len(series.Bonds), freq, tsOut))
	return nil
}
