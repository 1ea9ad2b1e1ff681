package defaults

import (
	"sort"
	"sync"
	"time"

	"github.com/wonny/acr/internal/contracts"
)

// Source identifies where a default event came from
type Source string

const (
	SourceSP     Source = "sp"
	SourceFitch  Source = "fitch"
	SourceManual Source = "manual" // Moody's and hand-maintained workbook
)

// Event is one default case.
// Agency feeds key events by CUSIP/ISIN; the manual workbook keys them by ticker.
type Event struct {
	Source Source    `json:"source"`
	CUSIP  string    `json:"cusip,omitempty"`
	ISIN   string    `json:"isin,omitempty"`
	Ticker string    `json:"ticker,omitempty"`
	Name   string    `json:"name,omitempty"`
	Rating string    `json:"rating"`
	Date   time.Time `json:"date"`
}

// Registry answers "did this bond default inside a period" across every source.
// ⭐ SSOT: 디폴트 판정
type Registry struct {
	mu       sync.RWMutex
	byID     map[string][]Event // CUSIP or ISIN
	byTicker map[string][]Event
	bonds    map[string]bondKeys // universe bond -> alternate keys
	events   int
}

type bondKeys struct {
	isin   string
	ticker string
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[string][]Event),
		byTicker: make(map[string][]Event),
		bonds:    make(map[string]bondKeys),
	}
}

// Add registers default events
func (r *Registry) Add(events ...Event) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		ev.Date = contracts.DateOf(ev.Date)
		indexed := false
		if ev.CUSIP != "" {
			r.byID[ev.CUSIP] = append(r.byID[ev.CUSIP], ev)
			indexed = true
		}
		if ev.ISIN != "" {
			r.byID[ev.ISIN] = append(r.byID[ev.ISIN], ev)
			indexed = true
		}
		if ev.Ticker != "" {
			r.byTicker[ev.Ticker] = append(r.byTicker[ev.Ticker], ev)
			indexed = true
		}
		if indexed {
			r.events++
		}
	}
}

// AttachUniverse records each constituent's ISIN and ticker so ISIN-keyed and
// ticker-keyed (manual) events resolve to the constituent's bond id
func (r *Registry) AttachUniverse(u *contracts.Universe) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, c := range u.Constituents {
		r.bonds[c.BondID] = bondKeys{isin: c.ISIN, ticker: c.Ticker}
	}
}

// Events returns every event that applies to a bond, earliest first
func (r *Registry) Events(bondID string) []Event {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []Event
	out = append(out, r.byID[bondID]...)
	if keys, ok := r.bonds[bondID]; ok {
		if keys.isin != "" && keys.isin != bondID {
			out = append(out, r.byID[keys.isin]...)
		}
		if keys.ticker != "" {
			out = append(out, r.byTicker[keys.ticker]...)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Date.Before(out[j].Date) })
	return out
}

// DefaultedBetween returns the earliest default strictly inside (start, end)
func (r *Registry) DefaultedBetween(bondID string, start, end time.Time) (time.Time, bool) {
	start, end = contracts.DateOf(start), contracts.DateOf(end)
	for _, ev := range r.Events(bondID) {
		if ev.Date.After(start) && ev.Date.Before(end) {
			return ev.Date, true
		}
	}
	return time.Time{}, false
}

// Len returns the number of registered events
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.events
}

var _ contracts.DefaultChecker = (*Registry)(nil)
