package commands

import (
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/scheduler"
	"github.com/wonny/acr/internal/scheduler/jobs"
	"github.com/wonny/acr/internal/studyconfig"
)

// schedulerCmd represents the scheduler command
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 관리",
	Long: `정기 전이 스터디 스케줄러.

--studies 디렉토리의 *.yaml 파일마다 하나의 study job이 등록됩니다.
rolling.schedule이 없으면 매월 1일 06:00에 실행됩니다.

Subcommands:
  start   - 스케줄러 시작
  list    - 등록된 작업 목록
  run     - 특정 작업 즉시 실행 (동기)

Example:
  go run ./cmd/acr scheduler start --studies ./studies
  go run ./cmd/acr scheduler list --studies ./studies
  go run ./cmd/acr scheduler run study_na_ig_rolling --studies ./studies`,
}

var (
	schedulerStartCmd = &cobra.Command{
		Use:   "start",
		Short: "스케줄러 시작",
		RunE:  runScheduler,
	}

	schedulerListCmd = &cobra.Command{
		Use:   "list",
		Short: "등록된 작업 목록",
		RunE:  listJobs,
	}

	schedulerRunCmd = &cobra.Command{
		Use:   "run [job_name]",
		Short: "특정 작업 즉시 실행",
		Args:  cobra.ExactArgs(1),
		RunE:  runJob,
	}

	studiesDir string
)

func init() {
	rootCmd.AddCommand(schedulerCmd)
	schedulerCmd.AddCommand(schedulerStartCmd)
	schedulerCmd.AddCommand(schedulerListCmd)
	schedulerCmd.AddCommand(schedulerRunCmd)

	schedulerCmd.PersistentFlags().StringVar(&studiesDir, "studies", "studies", "directory of study config YAML files")
}

func runScheduler(cmd *cobra.Command, args []string) error {
	fmt.Println("=== ACR Scheduler ===")

	a, sched, _, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	sched.Start()

	fmt.Println("\n✅ Scheduler started successfully")
	fmt.Println("\nRegistered jobs:")
	for _, jobName := range sched.GetAllJobs() {
		next, _ := sched.NextRun(jobName)
		fmt.Printf("  - %s (next: %s)\n", jobName, next.Format("2006-01-02 15:04"))
	}
	fmt.Println("\nPress Ctrl+C to stop")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	fmt.Println("\nShutting down scheduler...")
	sched.Stop()
	fmt.Println("Scheduler stopped")

	return nil
}

func listJobs(cmd *cobra.Command, args []string) error {
	a, sched, studies, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	// last run per study config, from the digest the job caches
	latest := make(map[string]string, len(studies))
	for _, job := range studies {
		digest, found, err := jobs.LatestDigest(cmd.Context(), a.cache, job.Hash())
		if err != nil {
			a.log.WithError(err).Warn("Failed to read study digest")
			continue
		}
		if found {
			latest[job.Name()] = scheduler.Outcome{
				RunID:       digest.RunID,
				Bonds:       digest.Summary.Bonds,
				Transitions: digest.Summary.Transitions,
			}.String() + " " + digest.Start + ".." + digest.End
		}
	}

	fmt.Println("Registered jobs:")
	stats := sched.GetJobStats()
	for _, jobName := range sched.GetAllJobs() {
		last, ok := latest[jobName]
		if !ok {
			last = "-"
		}
		fmt.Printf("  - %-32s %-14s last: %s\n", jobName, stats[jobName].Schedule, last)
	}

	return nil
}

func runJob(cmd *cobra.Command, args []string) error {
	jobName := args[0]

	a, sched, _, err := initScheduler(cmd)
	if err != nil {
		return fmt.Errorf("init scheduler: %w", err)
	}
	defer a.close()

	fmt.Printf("Running job: %s\n", jobName)

	res, err := sched.RunNow(cmd.Context(), jobName)
	if err != nil {
		return fmt.Errorf("run job: %w", err)
	}
	if !res.Success {
		return fmt.Errorf("job %s failed: %s", jobName, res.Error)
	}

	PrintSuccess(fmt.Sprintf("Job %s completed in %.2fs: %s", jobName, res.Duration.Seconds(), res.Outcome))
	return nil
}

// initScheduler registers one study job per config file plus the snapshot warmer
func initScheduler(cmd *cobra.Command) (*app, *scheduler.Scheduler, []*jobs.StudyJob, error) {
	a, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}

	sched, studies, err := registerJobs(cmd, a)
	if err != nil {
		a.close()
		return nil, nil, nil, err
	}

	if len(sched.GetAllJobs()) == 0 {
		PrintWarning(fmt.Sprintf("no jobs: %s has no *.yaml and UNIVERSE_FILE is unset", studiesDir))
	}

	return a, sched, studies, nil
}

func registerJobs(cmd *cobra.Command, a *app) (*scheduler.Scheduler, []*jobs.StudyJob, error) {
	paths, err := filepath.Glob(filepath.Join(studiesDir, "*.yaml"))
	if err != nil {
		return nil, nil, err
	}

	loader, err := a.loader()
	if err != nil {
		return nil, nil, err
	}

	repo := a.repository()
	if repo != nil {
		if err := a.db.EnsureSchema(cmd.Context()); err != nil {
			return nil, nil, err
		}
	}

	sched := scheduler.New(a.log)

	var studies []*jobs.StudyJob
	for _, path := range paths {
		cfg, _, err := studyconfig.Load(path)
		if err != nil {
			return nil, nil, err
		}
		if err := studyconfig.Validate(cfg); err != nil {
			return nil, nil, fmt.Errorf("%s: %w", path, err)
		}

		job, err := jobs.NewStudyJob(cfg, a.cfg, loader, repo, a.cache, a.log)
		if err != nil {
			return nil, nil, err
		}
		if err := sched.AddJob(job); err != nil {
			return nil, nil, err
		}
		studies = append(studies, job)
	}

	// Snapshot warmer reloads feeds and universe on every run
	if a.cfg.Feeds.UniversePath != "" {
		cache := composite.NewSnapshotCache(a.calc, a.cache)
		if err := sched.AddJob(jobs.NewSnapshotJob(loader, a.cfg.Feeds.UniversePath, cache, a.log)); err != nil {
			return nil, nil, err
		}
	}

	return sched, studies, nil
}
