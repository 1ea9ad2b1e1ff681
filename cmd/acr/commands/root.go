package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	env     string
	verbose bool
	source  string
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "acr",
	Short: "Composite rating & transition analytics",
	Long: `ACR Unified CLI

Moody's / S&P / Fitch 등급 이력을 통합 notch 스케일로 변환하고
composite 등급, 일별 시계열, 등급 전이 행렬을 계산합니다.

Feeds are configured through the environment (.env):
  MOODYS_FEED, SP_FEED, FITCH_FEED          agency rating histories
  UNIVERSE_FILE                             index constituents
  SP_DEFAULTS, FITCH_DEFAULTS, MANUAL_DEFAULTS

Usage:
  go run ./cmd/acr [command]

Examples:
  go run ./cmd/acr ratings show 03783310 --date 2020-06-30
  go run ./cmd/acr composite --date current
  go run ./cmd/acr timeseries --start 2020-01-01 --end 2020-12-31
  go run ./cmd/acr transition run --start 2013-12-31 --end 2014-12-31
  go run ./cmd/acr api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&env, "env", "", "environment override (development|staging|production)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
	rootCmd.PersistentFlags().StringVar(&source, "source", "files", "rating source (files|db)")
}
