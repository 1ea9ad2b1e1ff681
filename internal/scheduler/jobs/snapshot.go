package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/ingest"
	"github.com/wonny/acr/internal/scheduler"
	"github.com/wonny/acr/pkg/logger"
)

// DefaultSnapshotSchedule warms snapshots before the market opens on weekdays
const DefaultSnapshotSchedule = "0 7 * * 1-5"

// SnapshotJob reloads the feeds and warms the as-of composite snapshot of the
// previous business day, the date `acr composite --date` and GET /api/composite
// are asked for the morning after a close.
type SnapshotJob struct {
	loader       contracts.RatingLoader
	universePath string
	cache        *composite.SnapshotCache
	logger       *logger.Logger

	now func() time.Time
}

// NewSnapshotJob creates a new snapshot job
func NewSnapshotJob(loader contracts.RatingLoader, universePath string, cache *composite.SnapshotCache, log *logger.Logger) *SnapshotJob {
	if log == nil {
		log = logger.Nop()
	}
	return &SnapshotJob{
		loader:       loader,
		universePath: universePath,
		cache:        cache,
		logger:       log.WithField("job", "composite_snapshot"),
		now:          time.Now,
	}
}

// Name returns the job name
func (j *SnapshotJob) Name() string {
	return "composite_snapshot"
}

// Schedule returns the cron schedule
func (j *SnapshotJob) Schedule() string {
	return DefaultSnapshotSchedule
}

// Run warms the snapshot
func (j *SnapshotJob) Run(ctx context.Context) (scheduler.Outcome, error) {
	asOf, obs, err := j.Execute(ctx)
	if err != nil {
		return scheduler.Outcome{}, err
	}
	return scheduler.Outcome{
		AsOf:  asOf.Format(contracts.DateLayout),
		Bonds: len(obs),
	}, nil
}

// Execute reloads ratings and universe, then snapshots the previous business day
func (j *SnapshotJob) Execute(ctx context.Context) (time.Time, []contracts.CompositeObservation, error) {
	st, err := ingest.LoadStore(ctx, j.loader, j.logger)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("snapshot: %w", err)
	}

	universe, err := ingest.ReadUniverseFile(j.universePath)
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("snapshot: %w", err)
	}
	ids := universe.BondIDs()
	if len(ids) == 0 {
		return time.Time{}, nil, fmt.Errorf("snapshot: empty universe")
	}

	asOf := PreviousBusinessDay(j.now())
	obs, err := j.cache.Snapshot(ctx, st, ids, contracts.AsOf(asOf))
	if err != nil {
		return time.Time{}, nil, fmt.Errorf("snapshot: %w", err)
	}

	rated := 0
	for _, o := range obs {
		if o.Composite.IsRated() {
			rated++
		}
	}
	j.logger.WithFields(map[string]interface{}{
		"as_of":       asOf.Format(contracts.DateLayout),
		"bonds":       len(obs),
		"rated":       rated,
		"fingerprint": st.Fingerprint(),
	}).Info("Composite snapshot refreshed")

	return asOf, obs, nil
}

// PreviousBusinessDay returns the last weekday strictly before t's date
func PreviousBusinessDay(t time.Time) time.Time {
	d := contracts.DateOf(t).AddDate(0, 0, -1)
	for d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
		d = d.AddDate(0, 0, -1)
	}
	return d
}
