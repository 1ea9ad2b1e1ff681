package handlers

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/wonny/acr/internal/composite"
	"github.com/wonny/acr/internal/contracts"
	"github.com/wonny/acr/internal/study"
	"github.com/wonny/acr/internal/transition"
	"github.com/wonny/acr/pkg/logger"
)

// TransitionHandler runs transition studies and serves stored runs
// ⭐ SSOT: 전이 행렬 API 핸들러
type TransitionHandler struct {
	runner   *study.Runner
	universe *contracts.Universe
	defaults contracts.DefaultChecker
	calc     *composite.Calculator
	repo     *study.Repository // nil without DATABASE_URL
	logger   *logger.Logger
}

// NewTransitionHandler creates a new transition handler
func NewTransitionHandler(runner *study.Runner, universe *contracts.Universe, defaults contracts.DefaultChecker, calc *composite.Calculator, repo *study.Repository, log *logger.Logger) *TransitionHandler {
	return &TransitionHandler{
		runner:   runner,
		universe: universe,
		defaults: defaults,
		calc:     calc,
		repo:     repo,
		logger:   log,
	}
}

// StudyRequest is the body of POST /api/transitions
type StudyRequest struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Severity bool   `json:"severity"`
	Save     bool   `json:"save"`
}

// StudyResponse is a finished study with its tables
type StudyResponse struct {
	RunID   string                  `json:"run_id"`
	Start   string                  `json:"start"`
	End     string                  `json:"end"`
	Summary study.Summary           `json:"summary"`
	Rows    []transition.RowSummary `json:"rows"`
	Tables  []transition.Table      `json:"tables"`
	Saved   bool                    `json:"saved"`
}

// RunStudy runs a two-date transition study over the loaded universe
// POST /api/transitions
func (h *TransitionHandler) RunStudy(w http.ResponseWriter, r *http.Request) {
	var req StudyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	start, err := contracts.ParseDate(req.Start)
	if err != nil {
		respondError(w, http.StatusBadRequest, "start must be YYYY-MM-DD")
		return
	}
	end, err := contracts.ParseDate(req.End)
	if err != nil {
		respondError(w, http.StatusBadRequest, "end must be YYYY-MM-DD")
		return
	}
	if h.universe == nil || h.universe.Count() == 0 {
		respondError(w, http.StatusServiceUnavailable, "no universe loaded (UNIVERSE_FILE)")
		return
	}
	if req.Save && h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence disabled (DATABASE_URL)")
		return
	}

	res, err := h.runner.Run(r.Context(), study.Config{
		Start:      start,
		End:        end,
		Universe:   h.universe,
		Calculator: h.calc,
		Defaults:   h.defaults,
		Severity:   req.Severity,
	})
	if err != nil {
		respondError(w, http.StatusBadRequest, err.Error())
		return
	}

	if req.Save {
		if err := h.repo.SaveRun(r.Context(), res); err != nil {
			h.logger.WithError(err).WithField("run_id", res.RunID.String()).Error("Failed to save study run")
			respondError(w, http.StatusInternalServerError, "Failed to save study run")
			return
		}
	}

	kinds := []transition.Kind{transition.Probabilities, transition.Counts}
	if req.Severity {
		kinds = append(kinds, transition.Severities)
	}
	tables := make([]transition.Table, 0, len(kinds))
	for _, k := range kinds {
		tables = append(tables, res.Matrix.Table(k))
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data": StudyResponse{
			RunID:   res.RunID.String(),
			Start:   res.Start.Format(contracts.DateLayout),
			End:     res.End.Format(contracts.DateLayout),
			Summary: res.Summary,
			Rows:    res.Rows,
			Tables:  tables,
			Saved:   req.Save,
		},
	})
}

// ListRuns returns stored study runs
// GET /api/transitions/runs?limit=20
func (h *TransitionHandler) ListRuns(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence disabled (DATABASE_URL)")
		return
	}

	limit := 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if n, err := strconv.Atoi(s); err == nil && n > 0 && n <= 500 {
			limit = n
		}
	}

	runs, err := h.repo.ListRuns(r.Context(), limit)
	if err != nil {
		h.logger.WithError(err).Error("Failed to list study runs")
		respondError(w, http.StatusInternalServerError, "Failed to list study runs")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    runs,
	})
}

// GetRunCells returns the stored matrix cells of one run
// GET /api/transitions/runs/{id}/cells
func (h *TransitionHandler) GetRunCells(w http.ResponseWriter, r *http.Request) {
	if h.repo == nil {
		respondError(w, http.StatusServiceUnavailable, "persistence disabled (DATABASE_URL)")
		return
	}

	runID, err := uuid.Parse(mux.Vars(r)["id"])
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	cells, err := h.repo.Cells(r.Context(), runID)
	if err != nil {
		h.logger.WithError(err).WithField("run_id", runID.String()).Error("Failed to load run cells")
		respondError(w, http.StatusInternalServerError, "Failed to load run cells")
		return
	}

	respondJSON(w, http.StatusOK, map[string]interface{}{
		"success": true,
		"data":    cells,
	})
}
