package contracts

// Constituent is one bond of the study universe (index constituent at period start)
type Constituent struct {
	BondID      string   `json:"bond_id"` // normalized CUSIP
	ISIN        string   `json:"isin,omitempty"`
	Ticker      string   `json:"ticker,omitempty"`
	Name        string   `json:"name,omitempty"`
	MarketValue float64  `json:"mkt_val"`
	OASStart    *float64 `json:"oas_0,omitempty"`
	OASEnd      *float64 `json:"oas_1,omitempty"`
}

// OASChange returns oas_1 - oas_0 when both are present
func (c Constituent) OASChange() (float64, bool) {
	if c.OASStart == nil || c.OASEnd == nil {
		return 0, false
	}
	return *c.OASEnd - *c.OASStart, true
}

// Universe is the set of bonds a study runs over
// ⭐ SSOT: 유니버스 → 스터디 전달
type Universe struct {
	Constituents []Constituent `json:"constituents"`
}

// BondIDs returns the distinct bond ids in input order
func (u *Universe) BondIDs() []string {
	seen := make(map[string]struct{}, len(u.Constituents))
	ids := make([]string, 0, len(u.Constituents))
	for _, c := range u.Constituents {
		if _, ok := seen[c.BondID]; ok {
			continue
		}
		seen[c.BondID] = struct{}{}
		ids = append(ids, c.BondID)
	}
	return ids
}

// Contains checks if a bond is in the universe
func (u *Universe) Contains(bondID string) bool {
	for _, c := range u.Constituents {
		if c.BondID == bondID {
			return true
		}
	}
	return false
}

// Count returns the number of constituents
func (u *Universe) Count() int {
	return len(u.Constituents)
}
