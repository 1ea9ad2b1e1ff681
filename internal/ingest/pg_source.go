package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
)

// PGLoader reads rating history from the rating_history table.
// The serial id stands in for feed order.
type PGLoader struct {
	pool *pgxpool.Pool
}

// NewPGLoader creates a loader over a pool
func NewPGLoader(pool *pgxpool.Pool) *PGLoader {
	return &PGLoader{pool: pool}
}

// Load implements contracts.RatingLoader
func (l *PGLoader) Load(ctx context.Context) ([]contracts.RatingRecord, error) {
	query := `
		SELECT id, agency, bond_id, rating_date, rating
		FROM rating_history
		ORDER BY agency, bond_id, rating_date, id
	`

	rows, err := l.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query rating_history: %w", err)
	}
	defer rows.Close()

	var out []contracts.RatingRecord
	for rows.Next() {
		var (
			id         int64
			agencyName string
			bondID     string
			date       time.Time
			raw        string
		)
		if err := rows.Scan(&id, &agencyName, &bondID, &date, &raw); err != nil {
			return nil, fmt.Errorf("scan rating_history: %w", err)
		}

		agency, err := contracts.ParseAgency(agencyName)
		if err != nil {
			return nil, fmt.Errorf("rating_history id %d: %w", id, err)
		}
		code, err := scale.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("rating_history id %d: %w", id, err)
		}

		out = append(out, contracts.RatingRecord{
			Agency:     agency,
			BondID:     bondID,
			RatingDate: contracts.DateOf(date),
			Code:       code,
			Raw:        raw,
			Seq:        id,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rating_history: %w", err)
	}

	return out, nil
}

// ImportRecords copies parsed feed records into rating_history in feed order
func ImportRecords(ctx context.Context, pool *pgxpool.Pool, recs []contracts.RatingRecord) (int64, error) {
	rows := make([][]interface{}, 0, len(recs))
	for _, r := range recs {
		raw := r.Raw
		if raw == "" {
			raw = r.Code.String()
		}
		rows = append(rows, []interface{}{r.Agency.String(), r.BondID, r.RatingDate, raw})
	}

	n, err := pool.CopyFrom(ctx,
		pgx.Identifier{"rating_history"},
		[]string{"agency", "bond_id", "rating_date", "rating"},
		pgx.CopyFromRows(rows),
	)
	if err != nil {
		return 0, fmt.Errorf("copy rating_history: %w", err)
	}
	return n, nil
}
