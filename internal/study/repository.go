package study

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/acr/internal/scale"
)

// Repository persists study runs (tables created by database.EnsureSchema)
// ⭐ SSOT: 스터디 결과 저장소는 여기서만
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new study repository
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// RunRecord is one row of study_runs
type RunRecord struct {
	RunID       uuid.UUID `json:"run_id"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
	ConfigHash  string    `json:"config_hash"`
	Bonds       int       `json:"bonds"`
	Transitions int       `json:"transitions"`
	Skipped     int       `json:"skipped"`
	Defaults    int       `json:"defaults"`
	CreatedAt   time.Time `json:"created_at"`
}

// Cell is one persisted transition cell
type Cell struct {
	From        scale.Code `json:"from"`
	To          scale.Code `json:"to"`
	Count       int        `json:"count"`
	Probability *float64   `json:"probability"`
	Severity    *float64   `json:"severity"`
}

// SaveRun stores the run header, every non-empty matrix cell and both composite
// snapshots in one transaction
func (r *Repository) SaveRun(ctx context.Context, res *Result) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO study_runs (run_id, start_date, end_date, config_hash, bonds, transitions, skipped, defaults, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, res.RunID, res.Start, res.End, res.ConfigHash,
		res.Summary.Bonds, res.Summary.Transitions, res.Summary.Skipped, res.Summary.Defaults, res.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert study run: %w", err)
	}

	cells := cellRows(res)
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"transition_cells"},
		[]string{"run_id", "from_code", "to_code", "count", "probability", "severity"},
		pgx.CopyFromRows(cells),
	); err != nil {
		return fmt.Errorf("copy transition cells: %w", err)
	}

	snaps := make([][]interface{}, 0, 2*len(res.Pairs))
	for _, p := range res.Pairs {
		snaps = append(snaps,
			[]interface{}{res.RunID, p.BondID, "start", p.Start.Moodys.String(), p.Start.SP.String(), p.Start.Fitch.String(), p.Start.Composite.String(), p.Start.AgencyCount},
			[]interface{}{res.RunID, p.BondID, "end", p.End.Moodys.String(), p.End.SP.String(), p.End.Fitch.String(), p.EndComposite.String(), p.End.AgencyCount},
		)
	}
	if _, err := tx.CopyFrom(ctx,
		pgx.Identifier{"composite_snapshots"},
		[]string{"run_id", "bond_id", "side", "moodys", "sp", "fitch", "composite", "agency_count"},
		pgx.CopyFromRows(snaps),
	); err != nil {
		return fmt.Errorf("copy composite snapshots: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// cellRows flattens the non-empty cells of a result's matrix
func cellRows(res *Result) [][]interface{} {
	var out [][]interface{}
	for _, from := range scale.Descending() {
		for _, to := range scale.Descending() {
			count := res.Matrix.Count(from, to)
			sev := res.Matrix.WeightedSeverity(from, to)
			if count == 0 && math.IsNaN(sev) {
				continue
			}
			out = append(out, []interface{}{
				res.RunID, from.String(), to.String(), count,
				nullable(res.Matrix.TransitionProbability(from, to)),
				nullable(sev),
			})
		}
	}
	return out
}

func nullable(v float64) *float64 {
	if math.IsNaN(v) {
		return nil
	}
	return &v
}

// ListRuns returns the most recent runs first
func (r *Repository) ListRuns(ctx context.Context, limit int) ([]RunRecord, error) {
	query := `
		SELECT run_id, start_date, end_date, config_hash, bonds, transitions, skipped, defaults, created_at
		FROM study_runs
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var runs []RunRecord
	for rows.Next() {
		var rr RunRecord
		if err := rows.Scan(&rr.RunID, &rr.Start, &rr.End, &rr.ConfigHash,
			&rr.Bonds, &rr.Transitions, &rr.Skipped, &rr.Defaults, &rr.CreatedAt); err != nil {
			return nil, err
		}
		runs = append(runs, rr)
	}
	return runs, rows.Err()
}

// Cells returns the stored matrix cells of one run
func (r *Repository) Cells(ctx context.Context, runID uuid.UUID) ([]Cell, error) {
	query := `
		SELECT from_code, to_code, count, probability, severity
		FROM transition_cells
		WHERE run_id = $1
	`

	rows, err := r.pool.Query(ctx, query, runID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var cells []Cell
	for rows.Next() {
		var (
			c        Cell
			from, to string
		)
		if err := rows.Scan(&from, &to, &c.Count, &c.Probability, &c.Severity); err != nil {
			return nil, err
		}
		if c.From, err = scale.Parse(from); err != nil {
			return nil, err
		}
		if c.To, err = scale.Parse(to); err != nil {
			return nil, err
		}
		cells = append(cells, c)
	}
	return cells, rows.Err()
}
