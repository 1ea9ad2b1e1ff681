package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/defaults"
	"github.com/wonny/acr/internal/export"
	"github.com/wonny/acr/internal/ingest"
	"github.com/wonny/acr/internal/scheduler"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/internal/studyconfig"
	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/config"
	"github.com/wonny/acr/pkg/logger"
	"github.com/wonny/acr/pkg/redis"
)

// DefaultStudySchedule runs rolling studies on the first of each month
const DefaultStudySchedule = "0 6 1 * *"

// StudyDigest is the cached outcome of the latest run of a study config
type StudyDigest struct {
	RunID   string                  `json:"run_id"`
	Start   string                  `json:"start"`
	End     string                  `json:"end"`
	Summary study.Summary           `json:"summary"`
	Rows    []transition.RowSummary `json:"rows"`
	Files   []string                `json:"files,omitempty"`
}

// StudyJob reloads every input and runs a transition study from a study config
// ⭐ SSOT: 정기 전이 스터디는 이 Job에서만
type StudyJob struct {
	study   *studyconfig.Config
	hash    string
	feeds   config.FeedConfig
	loader  contracts.RatingLoader
	repo    *study.Repository // optional
	cache   *redis.Cache      // optional
	workers int
	logger  *logger.Logger

	now func() time.Time
}

// NewStudyJob creates a new study job. The config must already be validated.
func NewStudyJob(cfg *studyconfig.Config, env *config.Config, loader contracts.RatingLoader, repo *study.Repository, cache *redis.Cache, log *logger.Logger) (*StudyJob, error) {
	hash, err := studyconfig.Hash(cfg)
	if err != nil {
		return nil, fmt.Errorf("hash study config: %w", err)
	}
	if log == nil {
		log = logger.Nop()
	}
	return &StudyJob{
		study:   cfg,
		hash:    hash,
		feeds:   cfg.Feeds(env.Feeds),
		loader:  loader,
		repo:    repo,
		cache:   cache,
		workers: env.Workers,
		logger:  log.WithField("study_id", cfg.Meta.StudyID),
		now:     time.Now,
	}, nil
}

// Name returns the job name
func (j *StudyJob) Name() string {
	return "study_" + j.study.Meta.StudyID
}

// Schedule returns the rolling schedule of the study
func (j *StudyJob) Schedule() string {
	if s := j.study.Period.Rolling.Schedule; s != "" {
		return s
	}
	return DefaultStudySchedule
}

// Run executes the study
func (j *StudyJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	res, files, err := j.Execute(ctx)
	if err != nil {
		return scheduler.Outcome{}, err
	}
	return scheduler.Outcome{
		RunID:       res.RunID.String(),
		AsOf:        res.End.Format(contracts.DateLayout),
		Bonds:       res.Summary.Bonds,
		Transitions: res.Summary.Transitions,
		Files:       len(files),
	}, nil
}

// Execute runs the study and returns the result with the files it wrote
func (j *StudyJob) Execute(ctx context.Context) (*study.Result, []string, error) {
	start, end, err := j.study.Window(j.now())
	if err != nil {
		return nil, nil, fmt.Errorf("resolve window: %w", err)
	}

	// 1. Ratings
	st, err := ingest.LoadStore(ctx, j.loader, j.logger)
	if err != nil {
		return nil, nil, err
	}

	// 2. Universe
	if j.feeds.UniversePath == "" {
		return nil, nil, fmt.Errorf("study %s: no universe configured", j.study.Meta.StudyID)
	}
	universe, err := ingest.ReadUniverseFile(j.feeds.UniversePath)
	if err != nil {
		return nil, nil, err
	}

	// 3. Defaults
	reg, err := defaults.Load(j.feeds, universe, j.logger)
	if err != nil {
		return nil, nil, err
	}

	calc, err := composite.NewCalculator(j.study.Composite.MinAgencies, j.study.Composite.RoundingBias)
	if err != nil {
		return nil, nil, err
	}

	// 4. Study
	res, err := study.NewRunner(st, j.logger).Run(ctx, study.Config{
		Start:      start,
		End:        end,
		Universe:   universe,
		Calculator: calc,
		Defaults:   reg,
		Severity:   j.study.Severity.Enabled,
		ConfigHash: j.hash,
		Workers:    j.workers,
	})
	if err != nil {
		return nil, nil, err
	}

	// 5. Outputs
	var files []string
	if j.study.Output.Persist {
		files, err = export.PersistStudy(j.study.Output.Dir, res, j.study.Kinds())
		if err != nil {
			return nil, nil, err
		}
	}

	if j.study.Output.Save {
		if j.repo == nil {
			j.logger.Warn("output.save requested but persistence is disabled")
		} else if err := j.repo.SaveRun(ctx, res); err != nil {
			return nil, nil, err
		}
	}

	if j.cache != nil {
		digest := StudyDigest{
			RunID:   res.RunID.String(),
			Start:   res.Start.Format(contracts.DateLayout),
			End:     res.End.Format(contracts.DateLayout),
			Summary: res.Summary,
			Rows:    res.Rows,
			Files:   files,
		}
		if err := j.cache.Set(ctx, redis.StudyKey(j.hash), digest, j.cache.TTL()); err != nil {
			j.logger.WithError(err).Warn("Failed to cache study digest")
		}
	}

	j.logger.WithFields(map[string]interface{}{
		"run_id":      res.RunID.String(),
		"start":       res.Start.Format(contracts.DateLayout),
		"end":         res.End.Format(contracts.DateLayout),
		"transitions": res.Summary.Transitions,
		"files":       len(files),
	}).Info("Study completed")

	return res, files, nil
}

// Hash returns the study config hash used as the cache key
func (j *StudyJob) Hash() string {
	return j.hash
}

// LatestDigest reads the digest of the last run of a study config
func LatestDigest(ctx context.Context, cache *redis.Cache, hash string) (*StudyDigest, bool, error) {
	var digest StudyDigest
	found, err := cache.Get(ctx, redis.StudyKey(hash), &digest)
	if err != nil || !found {
		return nil, false, err
	}
	return &digest, true, nil
}
