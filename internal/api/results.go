package api

import (
	"bytes"
	"net/http"

	"github.com/sells-group/lead-qualifier/internal/leadfile"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/store"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

func rankedResults() store.LeadFilter {
	f := store.Scored(true)
	f.OrderByScore = true
	return f
}

func (s *Server) results(w http.ResponseWriter, r *http.Request) {
	s.writeLeads(w, r, rankedResults())
}

func (s *Server) resultsByTier(tier model.IntentTier) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		f := store.ByTier(tier)
		f.OrderByScore = true
		s.writeLeads(w, r, f)
	}
}

func (s *Server) exportResults(w http.ResponseWriter, r *http.Request) {
	leads, err := s.store.ListLeads(r.Context(), rankedResults())
	if err != nil {
		writeError(w, r, err)
		return
	}

	var buf bytes.Buffer
	switch format := r.URL.Query().Get("format"); format {
	case "", "csv":
		if err := leadfile.WriteCSV(&buf, leads); err != nil {
			writeError(w, r, err)
			return
		}
		writeFile(w, "text/csv", "lead_results.csv", buf.Bytes())
	case "xlsx":
		if err := leadfile.WriteXLSX(&buf, leads); err != nil {
			writeError(w, r, err)
			return
		}
		writeFile(w, xlsxContentType, "lead_results.xlsx", buf.Bytes())
	default:
		writeError(w, r, model.Validation("unsupported export format: "+format, "expected csv or xlsx"))
	}
}

func (s *Server) resultsSummary(w http.ResponseWriter, r *http.Request) {
	c, err := s.counts(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.ResultsSummary{
		TotalLeads:        c.total,
		ScoredLeads:       c.scored,
		UnscoredLeads:     c.total - c.scored,
		HighIntentLeads:   c.tiers[model.IntentHigh],
		MediumIntentLeads: c.tiers[model.IntentMedium],
		LowIntentLeads:    c.tiers[model.IntentLow],
		ScoringProgress:   model.Progress(c.scored, c.total),
	})
}
