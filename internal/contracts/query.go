package contracts

import (
	"fmt"
	"strings"
	"time"
)

// QueryKind selects how a rating lookup resolves dates
type QueryKind int

const (
	// QueryCurrent uses the latest record with no upper bound
	QueryCurrent QueryKind = iota
	// QueryIncremental returns every rating action
	QueryIncremental
	// QueryAsOf returns the record in force at a date
	QueryAsOf
)

// DateQuery is the tagged union Current | Incremental | AsOf(date)
type DateQuery struct {
	kind QueryKind
	date time.Time
}

// Current queries the latest known rating
func Current() DateQuery {
	return DateQuery{kind: QueryCurrent}
}

// Incremental queries the full action history
func Incremental() DateQuery {
	return DateQuery{kind: QueryIncremental}
}

// AsOf queries the rating in force at the end of day d
func AsOf(d time.Time) DateQuery {
	return DateQuery{kind: QueryAsOf, date: DateOf(d)}
}

// Kind returns the query variant
func (q DateQuery) Kind() QueryKind {
	return q.kind
}

// Date returns the as-of date; zero for other variants
func (q DateQuery) Date() time.Time {
	return q.date
}

func (q DateQuery) String() string {
	switch q.kind {
	case QueryCurrent:
		return "current"
	case QueryIncremental:
		return "incremental"
	default:
		return q.date.Format(DateLayout)
	}
}

// ParseDateQuery accepts "current", "incremental" or a date
func ParseDateQuery(s string) (DateQuery, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "current":
		return Current(), nil
	case "incremental":
		return Incremental(), nil
	}
	d, err := ParseDate(s)
	if err != nil {
		return DateQuery{}, fmt.Errorf("parse date query: %w", err)
	}
	return AsOf(d), nil
}
