package composite

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strings"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/pkg/redis"
)

// SnapshotCache memoizes composite snapshots in Redis.
// Keys carry the fingerprint of the rating data, so a reload with different
// records never reads a snapshot computed from the old ones. Sources without a
// fingerprint are always computed.
type SnapshotCache struct {
	calc  *Calculator
	cache *redis.Cache
}

// NewSnapshotCache creates a cache over a calculator
func NewSnapshotCache(calc *Calculator, cache *redis.Cache) *SnapshotCache {
	return &SnapshotCache{calc: calc, cache: cache}
}

// Snapshot returns cached observations when present, computing them otherwise
func (s *SnapshotCache) Snapshot(ctx context.Context, src contracts.RatingSource, bondIDs []string, q contracts.DateQuery) ([]contracts.CompositeObservation, error) {
	fp, ok := src.(contracts.Fingerprinter)
	if !ok || q.Kind() == contracts.QueryIncremental {
		return s.calc.Snapshot(src, bondIDs, q)
	}

	ttl := s.cache.TTL()
	if q.Kind() == contracts.QueryCurrent {
		ttl = redis.TTLShort
	}

	var out []contracts.CompositeObservation
	err := s.cache.GetOrSet(ctx, s.key(fp.Fingerprint(), bondIDs, q), &out, ttl, func() (interface{}, error) {
		return s.calc.Snapshot(src, bondIDs, q)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *SnapshotCache) key(fingerprint string, bondIDs []string, q contracts.DateQuery) string {
	return redis.CompositeSnapshotKey(fingerprint, q.String(), UniverseHash(bondIDs, s.calc))
}

// UniverseHash digests a bond list together with the composite policy
func UniverseHash(bondIDs []string, calc *Calculator) string {
	h := sha256.New()
	fmt.Fprintf(h, "%s|%d|%g", strings.Join(bondIDs, ","), calc.MinAgencies, calc.Bias)
	return hex.EncodeToString(h.Sum(nil))[:16]
}
