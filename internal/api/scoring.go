package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/sells-group/lead-qualifier/internal/model"
)

func (s *Server) scoreAll(w http.ResponseWriter, r *http.Request) {
	writeReport(w, r)(s.orch.ScoreAllUnscored(r.Context()))
}

func (s *Server) scoreOne(w http.ResponseWriter, r *http.Request) {
	writeReport(w, r)(s.orch.ScoreOne(r.Context(), chi.URLParam(r, "leadId")))
}

func (s *Server) rescoreAll(w http.ResponseWriter, r *http.Request) {
	writeReport(w, r)(s.orch.RescoreAll(r.Context()))
}

func (s *Server) rescoreByIntent(w http.ResponseWriter, r *http.Request) {
	tier, err := model.ParseIntentTier(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeReport(w, r)(s.orch.RescoreByTier(r.Context(), tier))
}

func writeReport(w http.ResponseWriter, r *http.Request) func(*model.BatchReport, error) {
	return func(report *model.BatchReport, err error) {
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, report)
	}
}
