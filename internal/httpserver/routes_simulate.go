package httpserver

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog/log"

	"github.com/robalobadob/mastermind/internal/rules"
	"github.com/robalobadob/mastermind/internal/simulate"
)

// mountSimulate registers the batch evaluation endpoints.
func (s *Server) mountSimulate(r chi.Router) {
	r.Post("/simulate", s.handleSimulate)
	r.Get("/simulate/runs", s.handleSimulateRuns)
}

type simulateReq struct {
	Preset   string `json:"preset"`
	Strategy string `json:"strategy"`
	Limit    int    `json:"limit"` // 0 or above the configured cap means the cap
}

type simulateRes struct {
	Run    simulate.RunRecord `json:"run"`
	Report simulate.Report    `json:"report"`
}

// handleSimulate plays the solver against the first Limit secrets of a
// preset's space and persists the summary.
func (s *Server) handleSimulate(w http.ResponseWriter, r *http.Request) {
	var req simulateReq
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "bad_json")
		return
	}
	rl, err := rules.Get(s.presetOrDefault(req.Preset))
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	strategy, err := s.strategyOrDefault(req.Strategy)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	limit := req.Limit
	if limit <= 0 || limit > s.cfg.Sim.MaxGames {
		limit = s.cfg.Sim.MaxGames
	}

	rep, err := simulate.Run(r.Context(), simulate.Options{
		Rules:    rl,
		Strategy: strategy,
		Workers:  s.cfg.Sim.Workers,
		Limit:    limit,
	})
	if err != nil {
		log.Warn().Err(err).Str("preset", rl.Name).Msg("simulation aborted")
		writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	rec, err := s.sims.Save(r.Context(), rep)
	if err != nil {
		log.Warn().Err(err).Msg("save simulation run")
	}
	writeJSON(w, http.StatusOK, simulateRes{Run: rec, Report: rep})
}

func (s *Server) handleSimulateRuns(w http.ResponseWriter, r *http.Request) {
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	runs, err := s.sims.Recent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "db_error")
		return
	}
	writeJSON(w, http.StatusOK, runs)
}
