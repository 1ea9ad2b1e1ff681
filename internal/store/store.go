package store

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/cespare/xxhash/v2"

	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/scale"
)

// ErrIncrementalQuery is returned when a point lookup is asked for the full history
var ErrIncrementalQuery = errors.New("incremental query has no single rating; use Incremental")

type seriesKey struct {
	agency contracts.Agency
	bondID string
}

// Store holds every agency's rating history per bond.
// Series are kept sorted by (date, feed sequence); lookups treat each series as a
// right-continuous step function.
// ⭐ SSOT: Rating Series Store
type Store struct {
	mu     sync.RWMutex
	series map[seriesKey][]contracts.RatingRecord
	bonds  map[string]struct{}
	seq    int64
	digest *xxhash.Digest
	count  int
}

// New creates an empty store
func New() *Store {
	return &Store{
		series: make(map[seriesKey][]contracts.RatingRecord),
		bonds:  make(map[string]struct{}),
		digest: xxhash.New(),
	}
}

// Add appends records in feed order. Records without a Seq get one from the
// store's running counter so later additions sort after earlier ones.
func (s *Store) Add(records ...contracts.RatingRecord) {
	if len(records) == 0 {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	touched := make(map[seriesKey]struct{})
	for _, rec := range records {
		s.seq++
		if rec.Seq == 0 {
			rec.Seq = s.seq
		} else if rec.Seq > s.seq {
			s.seq = rec.Seq
		}
		rec.RatingDate = contracts.DateOf(rec.RatingDate)

		key := seriesKey{agency: rec.Agency, bondID: rec.BondID}
		s.series[key] = append(s.series[key], rec)
		s.bonds[rec.BondID] = struct{}{}
		touched[key] = struct{}{}

		fmt.Fprintf(s.digest, "%d|%s|%s|%s|%d;", rec.Agency, rec.BondID, rec.RatingDate.Format(contracts.DateLayout), rec.Code, rec.Seq)
		s.count++
	}

	for key := range touched {
		recs := s.series[key]
		sort.SliceStable(recs, func(i, j int) bool {
			if !recs[i].RatingDate.Equal(recs[j].RatingDate) {
				return recs[i].RatingDate.Before(recs[j].RatingDate)
			}
			return recs[i].Seq < recs[j].Seq
		})
	}
}

// MostRecent returns the rating in force for the query, or NR when no record qualifies.
// Unknown bonds are NR, not an error.
func (s *Store) MostRecent(bondID string, agency contracts.Agency, q contracts.DateQuery) (scale.Code, error) {
	rec, ok, err := s.lookup(bondID, agency, q)
	if err != nil || !ok {
		return scale.NR, err
	}
	return rec.Code, nil
}

// MostRecentRecord is MostRecent returning the full record
func (s *Store) MostRecentRecord(bondID string, agency contracts.Agency, q contracts.DateQuery) (contracts.RatingRecord, bool, error) {
	return s.lookup(bondID, agency, q)
}

func (s *Store) lookup(bondID string, agency contracts.Agency, q contracts.DateQuery) (contracts.RatingRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.series[seriesKey{agency: agency, bondID: bondID}]

	switch q.Kind() {
	case contracts.QueryIncremental:
		return contracts.RatingRecord{}, false, ErrIncrementalQuery
	case contracts.QueryCurrent:
		if len(recs) == 0 {
			return contracts.RatingRecord{}, false, nil
		}
		return recs[len(recs)-1], true, nil
	}

	// first index with date > asOf; the record before it is in force
	asOf := q.Date()
	idx := sort.Search(len(recs), func(i int) bool {
		return recs[i].RatingDate.After(asOf)
	})
	if idx == 0 {
		return contracts.RatingRecord{}, false, nil
	}
	return recs[idx-1], true, nil
}

// Incremental returns the rating actions of one bond/agency in date order,
// keeping only the last action per calendar date.
func (s *Store) Incremental(bondID string, agency contracts.Agency) []contracts.RatingRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()

	recs := s.series[seriesKey{agency: agency, bondID: bondID}]
	out := make([]contracts.RatingRecord, 0, len(recs))
	for i, rec := range recs {
		if i+1 < len(recs) && recs[i+1].RatingDate.Equal(rec.RatingDate) {
			continue
		}
		out = append(out, rec)
	}
	return out
}

// Ratings returns all three agency codes for a point query
func (s *Store) Ratings(bondID string, q contracts.DateQuery) (contracts.AgencyRatings, error) {
	var out contracts.AgencyRatings
	for _, agency := range contracts.Agencies {
		code, err := s.MostRecent(bondID, agency, q)
		if err != nil {
			return contracts.AgencyRatings{}, err
		}
		out.Set(agency, code)
	}
	return out, nil
}

// Bonds returns every bond with at least one record, sorted
func (s *Store) Bonds() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.bonds))
	for id := range s.bonds {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Fingerprint identifies the loaded rating data. Two stores filled with the
// same records in the same order share a fingerprint across processes.
func (s *Store) Fingerprint() string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return fmt.Sprintf("%d-%016x", s.count, s.digest.Sum64())
}

// Stats summarizes the store contents per agency
type Stats struct {
	Bonds   int                      `json:"bonds"`
	Records map[contracts.Agency]int `json:"records"`
}

// Stats returns record counts per agency
func (s *Store) Stats() Stats {
	s.mu.RLock()
	defer s.mu.RUnlock()

	st := Stats{Bonds: len(s.bonds), Records: make(map[contracts.Agency]int, 3)}
	for key, recs := range s.series {
		st.Records[key.agency] += len(recs)
	}
	return st
}
