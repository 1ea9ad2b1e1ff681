package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/identifier"
	"github.com/wonny/acr/internal/ingest"
)

// ratingsCmd represents the ratings command
var ratingsCmd = &cobra.Command{
	Use:   "ratings",
	Short: "등급 이력 조회 및 적재",
	Long: `Rating Series Store 조회와 Postgres 적재.

Subcommands:
  show     - 특정 일자의 3사 등급과 composite
  history  - 한 기관의 등급 변경 이력
  import   - 파일 피드를 rating_history 테이블로 적재

Example:
  go run ./cmd/acr ratings show 03783310 --date 2020-06-30
  go run ./cmd/acr ratings history 03783310 --agency sp
  go run ./cmd/acr ratings import`,
}

var (
	ratingsShowCmd = &cobra.Command{
		Use:   "show [bond_id]",
		Short: "3사 등급과 composite 조회",
		Args:  cobra.ExactArgs(1),
		RunE:  runRatingsShow,
	}

	ratingsHistoryCmd = &cobra.Command{
		Use:   "history [bond_id]",
		Short: "기관별 등급 변경 이력",
		Args:  cobra.ExactArgs(1),
		RunE:  runRatingsHistory,
	}

	ratingsImportCmd = &cobra.Command{
		Use:   "import",
		Short: "파일 피드 → rating_history",
		RunE:  runRatingsImport,
	}

	ratingsDate   string
	ratingsAgency string
)

func init() {
	rootCmd.AddCommand(ratingsCmd)
	ratingsCmd.AddCommand(ratingsShowCmd)
	ratingsCmd.AddCommand(ratingsHistoryCmd)
	ratingsCmd.AddCommand(ratingsImportCmd)

	ratingsShowCmd.Flags().StringVar(&ratingsDate, "date", "current", "current or YYYY-MM-DD")
	ratingsHistoryCmd.Flags().StringVar(&ratingsAgency, "agency", "sp", "moodys|sp|fitch")
}

func runRatingsShow(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	q, err := contracts.ParseDateQuery(ratingsDate)
	if err != nil {
		return err
	}

	st, err := a.loadStore(cmd.Context())
	if err != nil {
		return err
	}

	bondID := normalizeArg(args[0])
	obs, err := a.calc.Observe(st, bondID, q)
	if err != nil {
		return err
	}

	PrintHeader("Composite Rating", fmt.Sprintf("Bond      : %s", bondID), fmt.Sprintf("Query     : %s", q))
	PrintKeyValue("Moody's", obs.Moodys.String(), 10)
	PrintKeyValue("S&P", obs.SP.String(), 10)
	PrintKeyValue("Fitch", obs.Fitch.String(), 10)
	PrintSeparator()
	PrintKeyValue("Composite", obs.Composite.String(), 10)
	PrintKeyValue("Agencies", fmt.Sprintf("%d", obs.AgencyCount), 10)
	return nil
}

func runRatingsHistory(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	agency, err := contracts.ParseAgency(ratingsAgency)
	if err != nil {
		return err
	}

	st, err := a.loadStore(cmd.Context())
	if err != nil {
		return err
	}

	bondID := normalizeArg(args[0])
	history := st.Incremental(bondID, agency)

	PrintHeader("Rating History", fmt.Sprintf("Bond      : %s", bondID), fmt.Sprintf("Agency    : %s", agency))
	if len(history) == 0 {
		PrintWarning("no rating actions")
		return nil
	}

	widths := []int{12, 6, 8}
	PrintTableHeader([]string{"Date", "Code", "Raw"}, widths)
	for _, r := range history {
		PrintTableRow([]string{r.RatingDate.Format(contracts.DateLayout), r.Code.String(), r.Raw}, widths)
	}
	return nil
}

func runRatingsImport(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.close()

	if a.db == nil {
		return fmt.Errorf("ratings import needs DATABASE_URL")
	}

	ctx := cmd.Context()

	if err := a.db.EnsureSchema(ctx); err != nil {
		return err
	}

	recs, err := ingest.NewFileLoader(a.cfg.Feeds, a.log).Load(ctx)
	if err != nil {
		return err
	}

	n, err := ingest.ImportRecords(ctx, a.db.Pool, recs)
	if err != nil {
		return err
	}

	PrintSuccess(fmt.Sprintf("Imported %d rating actions into rating_history", n))
	return nil
}

// normalizeArg accepts full 9-digit CUSIPs and 12-char ISINs on the command line
func normalizeArg(id string) string {
	if len(id) >= identifier.ISINLength {
		return identifier.Normalize(id, identifier.ISIN)
	}
	return identifier.Normalize(id, identifier.CUSIP)
}
