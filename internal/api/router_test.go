package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/acr/internal/api/handlers"
	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/defaults"
	"github.com/wonny/acr/internal/scale"
	"github.com/wonny/acr/internal/store"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/logger"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Error   string          `json:"error"`
}

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	s := store.New()
	add := func(a contracts.Agency, bond string, d time.Time, code string) {
		s.Add(contracts.RatingRecord{Agency: a, BondID: bond, RatingDate: d, Code: scale.MustParse(code)})
	}
	add(contracts.Moodys, "037833100", day(2019, 1, 2), "A2")
	add(contracts.SP, "037833100", day(2019, 1, 2), "A2")
	add(contracts.SP, "037833100", day(2020, 6, 1), "BBB1")
	add(contracts.Fitch, "037833100", day(2020, 6, 1), "BBB1")
	add(contracts.SP, "912828ZT0", day(2019, 1, 2), "AA2")

	u := &contracts.Universe{Constituents: []contracts.Constituent{
		{BondID: "037833100", MarketValue: 100},
		{BondID: "912828ZT0", MarketValue: 50},
	}}

	log := logger.Nop()
	calc := composite.Default()
	ratings := handlers.NewRatingsHandler(s, calc, nil, log)
	transitions := handlers.NewTransitionHandler(study.NewRunner(s, log), u, defaults.NewRegistry(), calc, nil, log)
	return NewRouter(ratings, transitions, log)
}

func do(t *testing.T, h http.Handler, method, target string, body []byte) (*httptest.ResponseRecorder, envelope) {
	t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env envelope
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env), "body: %s", rec.Body.String())
	return rec, env
}

func TestHealth(t *testing.T) {
	h := newTestRouter(t)
	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "acr-api")
}

func TestGetRatings_AsOf(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/bonds/037833100/ratings?date=2019-12-31", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.True(t, env.Success)

	var obs contracts.CompositeObservation
	require.NoError(t, json.Unmarshal(env.Data, &obs))
	assert.Equal(t, scale.MustParse("A2"), obs.Composite)
	assert.Equal(t, 2, obs.AgencyCount)
	assert.Equal(t, scale.NR, obs.Fitch)
}

func TestGetRatings_Current(t *testing.T) {
	h := newTestRouter(t)

	_, env := do(t, h, http.MethodGet, "/api/bonds/037833100/ratings", nil)

	var obs contracts.CompositeObservation
	require.NoError(t, json.Unmarshal(env.Data, &obs))
	// A2, BBB1, BBB1 average 14.67, which rounds to A3
	assert.Equal(t, scale.MustParse("A3"), obs.Composite)
	assert.Equal(t, 3, obs.AgencyCount)
}

func TestGetRatings_BadDate(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/bonds/037833100/ratings?date=incremental", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.NotEmpty(t, env.Error)

	rec, _ = do(t, h, http.MethodGet, "/api/bonds/037833100/ratings?date=31/31/2019", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetHistory(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/bonds/037833100/history?agency=sp", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var recs []contracts.RatingRecord
	require.NoError(t, json.Unmarshal(env.Data, &recs))
	require.Len(t, recs, 2)
	assert.Equal(t, scale.MustParse("BBB1"), recs[1].Code)

	rec, _ = do(t, h, http.MethodGet, "/api/bonds/037833100/history?agency=dbrs", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetComposite(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/composite?date=2019-06-30&ids=037833100,912828ZT0", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var obs []contracts.CompositeObservation
	require.NoError(t, json.Unmarshal(env.Data, &obs))
	require.Len(t, obs, 2)
	assert.Equal(t, scale.MustParse("A2"), obs[0].Composite)
	// single agency is below the two-agency minimum
	assert.Equal(t, scale.NR, obs[1].Composite)

	rec, _ = do(t, h, http.MethodGet, "/api/composite", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetTimeSeries(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/bonds/037833100/timeseries?start=2020-05-30&end=2020-06-02", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var rows []struct {
		Composite scale.Code `json:"composite"`
	}
	require.NoError(t, json.Unmarshal(env.Data, &rows))
	require.Len(t, rows, 4)
	assert.Equal(t, scale.MustParse("A2"), rows[0].Composite)
	assert.Equal(t, scale.MustParse("A3"), rows[2].Composite)

	rec, _ = do(t, h, http.MethodGet, "/api/bonds/037833100/timeseries?start=2020-06-02&end=2020-05-30", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec, _ = do(t, h, http.MethodGet, "/api/bonds/037833100/timeseries?start=2020-05-30&end=2020-06-02&frequency=hourly", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRunStudy(t *testing.T) {
	h := newTestRouter(t)

	body, _ := json.Marshal(handlers.StudyRequest{Start: "2019-12-31", End: "2020-12-31"})
	rec, env := do(t, h, http.MethodPost, "/api/transitions", body)
	require.Equal(t, http.StatusOK, rec.Code, env.Error)

	var resp handlers.StudyResponse
	require.NoError(t, json.Unmarshal(env.Data, &resp))
	assert.Equal(t, 1, resp.Summary.Transitions)
	assert.Equal(t, 1, resp.Summary.Skipped)
	assert.Equal(t, 1, resp.Summary.Downgrades)
	require.Len(t, resp.Tables, 2)
	assert.Equal(t, transition.Probabilities, resp.Tables[0].Kind)
	assert.Equal(t, transition.Counts, resp.Tables[1].Kind)
	assert.Contains(t, string(env.Data), `"kind":"probabilities"`)
	require.Len(t, resp.Rows, 1)
	assert.Equal(t, scale.MustParse("A2"), resp.Rows[0].Start)
	assert.InDelta(t, 1.0, resp.Rows[0].Downgrade, 1e-12)
}

func TestRunStudy_Errors(t *testing.T) {
	h := newTestRouter(t)

	rec, _ := do(t, h, http.MethodPost, "/api/transitions", []byte("{"))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ := json.Marshal(handlers.StudyRequest{Start: "2020-12-31", End: "2019-12-31"})
	rec, _ = do(t, h, http.MethodPost, "/api/transitions", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	body, _ = json.Marshal(handlers.StudyRequest{Start: "2019-12-31", End: "2020-12-31", Save: true})
	rec, _ = do(t, h, http.MethodPost, "/api/transitions", body)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestListRuns_NoDatabase(t *testing.T) {
	h := newTestRouter(t)

	rec, env := do(t, h, http.MethodGet, "/api/transitions/runs", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, env.Error, "DATABASE_URL")
}

func TestRecoveryMiddleware(t *testing.T) {
	h := recoveryMiddleware(logger.Nop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}
