package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/store"
	"github.com/wonny/acr/internal/timeseries"
	"github.com/wonny/acr/pkg/logger"
)

// RatingsHandler serves point-in-time ratings, composites and reconstructed series
// ⭐ SSOT: 등급 조회 API 핸들러
type RatingsHandler struct {
	store  *store.Store
	calc   *composite.Calculator
	cache  *composite.SnapshotCache
	logger *logger.Logger
}

// NewRatingsHandler creates a new ratings handler; cache may be nil
func NewRatingsHandler(s *store.Store, calc *composite.Calculator, cache *composite.SnapshotCache, log *logger.Logger) *RatingsHandler {
	return &RatingsHandler{store: s, calc: calc, cache: cache, logger: log}
}

// GetStats returns store contents per agency
// GET /api/stats
func (h *RatingsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	st := h.store.Stats()
	records := make(map[string]int, len(st.Records))
	for a, n := range st.Records {
		records[a.String()] = n
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": map[string]interface{}{
			"bonds":   st.Bonds,
			"records": records,
		},
	})
}

// GetRatings returns the three agency ratings and the composite for a bond
// GET /api/bonds/{id}/ratings?date=current|YYYY-MM-DD
func (h *RatingsHandler) GetRatings(w http.ResponseWriter, r *http.Request) {
	bondID := mux.Vars(r)["id"]

	q, err := contracts.ParseDateQuery(r.URL.Query().Get("date"))
	if err != nil || q.Kind() == contracts.QueryIncremental {
		respondError(w, http.StatusBadRequest, "date must be 'current' or YYYY-MM-DD")
		return
	}

	obs, err := h.calc.Observe(h.store, bondID, q)
	if err != nil {
		h.logger.WithError(err).WithField("bond_id", bondID).Error("Failed to observe ratings")
		respondError(w, http.StatusInternalServerError, "Failed to retrieve ratings")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    obs,
	})
}

// GetHistory returns the deduplicated rating actions of one agency
// GET /api/bonds/{id}/history?agency=sp
func (h *RatingsHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	bondID := mux.Vars(r)["id"]

	agency, err := contracts.ParseAgency(r.URL.Query().Get("agency"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    h.store.Incremental(bondID, agency),
	})
}

// GetComposite returns a composite snapshot for a list of bonds
// GET /api/composite?date=current|YYYY-MM-DD&ids=a,b
func (h *RatingsHandler) GetComposite(w http.ResponseWriter, r *http.Request) {
	q, err := contracts.ParseDateQuery(r.URL.Query().Get("date"))
	if err != nil || q.Kind() == contracts.QueryIncremental {
		respondError(w, http.StatusBadRequest, "date must be 'current' or YYYY-MM-DD")
		return
	}
	ids := queryIDs(r)
	if len(ids) == 0 {
		respondError(w, http.StatusBadRequest, "ids is required")
		return
	}

	var obs []contracts.CompositeObservation
	if h.cache != nil {
		obs, err = h.cache.Snapshot(r.Context(), h.store, ids, q)
	} else {
		obs, err = h.calc.Snapshot(h.store, ids, q)
	}
	if err != nil {
		h.logger.WithError(err).Error("Failed to build composite snapshot")
		respondError(w, http.StatusInternalServerError, "Failed to build composite snapshot")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    obs,
	})
}

// GetTimeSeries returns the forward-filled series of one bond
// GET /api/bonds/{id}/timeseries?start=YYYY-MM-DD&end=YYYY-MM-DD&frequency=daily
func (h *RatingsHandler) GetTimeSeries(w http.ResponseWriter, r *http.Request) {
	bondID := mux.Vars(r)["id"]

	start, ok := queryDate(r, "start")
	if !ok {
		respondError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, ok := queryDate(r, "end")
	if !ok {
		respondError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	freq, err := timeseries.ParseFrequency(r.URL.Query().Get("frequency"))
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	series, err := timeseries.Reconstruct(r.Context(), h.store, []string{bondID}, start, end, timeseries.Options{
		Frequency:  freq,
		Workers:    1,
		Calculator: h.calc,
		Logger:     h.logger,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    series.Rows,
	})
}
