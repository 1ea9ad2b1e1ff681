package commands

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/export"
)

// compositeCmd represents the composite command
var compositeCmd = &cobra.Command{
	Use:   "composite",
	Short: "Composite 등급 스냅샷 (CSV)",
	Long: `Universe 전체의 composite 등급을 한 시점 기준으로 계산합니다.
CSV는 stdout (또는 --out 파일)으로 출력됩니다.

Example:
  go run ./cmd/acr composite --date current
  go run ./cmd/acr composite --date 2014-12-31 --ids 03783310,91282CAB
  go run ./cmd/acr composite --date 2014-12-31 --out composite_20141231.csv`,
	RunE: runComposite,
}

var (
	compositeDate string
	compositeIDs  string
	compositeOut  string
)

func init() {
	rootCmd.AddCommand(compositeCmd)

	compositeCmd.Flags().StringVar(&compositeDate, "date", "current", "current or YYYY-MM-DD")
	compositeCmd.Flags().StringVar(&compositeIDs, "ids", "", "comma-separated bond ids (default: UNIVERSE_FILE)")
	compositeCmd.Flags().StringVar(&compositeOut, "out", "", "output CSV path (default: stdout)")
}

func runComposite(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	q, err := contracts.ParseDateQuery(compositeDate)
	if err != nil {
		return err
	}
	if q.Kind() == contracts.QueryIncremental {
		return fmt.Errorf("composite needs a point query (current or a date)")
	}

	st, err := a.loadStore(cmd.Context())
	if err != nil {
		return err
	}
	u, err := a.universe(compositeIDs, st)
	if err != nil {
		return err
	}

	obs, err := composite.NewSnapshotCache(a.calc, a.cache).Snapshot(cmd.Context(), st, u.BondIDs(), q)
	if err != nil {
		return err
	}

	if compositeOut == "" {
		return export.WriteObservations(os.Stdout, obs)
	}

	f, err := os.Create(compositeOut)
	if err != nil {
		return err
	}
	defer f.Close()
	if err := export.WriteObservations(f, obs); err != nil {
		return err
	}
	PrintSuccess(fmt.Sprintf("%d observations written to %s", len(obs), compositeOut))
	return nil
}
