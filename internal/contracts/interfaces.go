package contracts

import (
	"context"
	"time"

	"github.com/wonny/acr/internal/scale"
)

// RatingSource answers point-in-time and history queries over the agency feeds
// ⭐ SSOT: 등급 조회 인터페이스
type RatingSource interface {
	MostRecent(bondID string, agency Agency, q DateQuery) (scale.Code, error)
	Incremental(bondID string, agency Agency) []RatingRecord
	Ratings(bondID string, q DateQuery) (AgencyRatings, error)
}

// Fingerprinter identifies the rating data behind a source, for cache keys
type Fingerprinter interface {
	Fingerprint() string
}

// RatingLoader delivers already-filtered, normalized feed records
type RatingLoader interface {
	Load(ctx context.Context) ([]RatingRecord, error)
}

// DefaultChecker answers whether a bond defaulted strictly inside (start, end)
type DefaultChecker interface {
	DefaultedBetween(bondID string, start, end time.Time) (time.Time, bool)
}
