package api

import (
	"bytes"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sells-group/lead-qualifier/internal/leadfile"
	"github.com/sells-group/lead-qualifier/internal/model"
	"github.com/sells-group/lead-qualifier/internal/store"
)

// leadResponse is the API view of a lead.
type leadResponse struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Role        string `json:"role,omitempty"`
	Company     string `json:"company,omitempty"`
	Industry    string `json:"industry,omitempty"`
	Location    string `json:"location,omitempty"`
	LinkedInBio string `json:"linkedin_bio,omitempty"`
	RuleScore   *int   `json:"rule_score"`
	AIScore     *int   `json:"ai_score"`
	Score       *int   `json:"score"`
	Intent      string `json:"intent,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
	IsScored    bool   `json:"is_scored"`
}

func newLeadResponse(l *model.Lead) leadResponse {
	resp := leadResponse{
		ID:          l.ID,
		Name:        l.Name,
		Role:        l.Role,
		Company:     l.Company,
		Industry:    l.Industry,
		Location:    l.Location,
		LinkedInBio: l.LinkedInBio,
		IsScored:    l.IsScored,
	}
	if s := l.Scoring; s != nil {
		rule, ai, total := s.RuleScore, s.AIScore, s.TotalScore
		resp.RuleScore, resp.AIScore, resp.Score = &rule, &ai, &total
		resp.Intent = s.Intent.Label()
		resp.Reasoning = s.Reasoning
	}
	return resp
}

func newLeadResponses(leads []model.Lead) []leadResponse {
	out := make([]leadResponse, len(leads))
	for i := range leads {
		out[i] = newLeadResponse(&leads[i])
	}
	return out
}

func (s *Server) writeLeads(w http.ResponseWriter, r *http.Request, filter store.LeadFilter) {
	leads, err := s.store.ListLeads(r.Context(), filter)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadResponses(leads))
}

func (s *Server) uploadLeads(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)

	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, r, model.Validation("Please select a file to upload", err.Error()))
		return
	}
	defer file.Close()

	if header.Size == 0 {
		writeError(w, r, model.Validation("Please select a file to upload"))
		return
	}
	format, err := leadfile.FormatOf(header.Filename)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zap.L().Info("api: lead upload", zap.String("file", header.Filename), zap.Int64("size", header.Size))
	res, err := leadfile.Import(r.Context(), s.store, file, format)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) listLeads(w http.ResponseWriter, r *http.Request) {
	minScore, err := intParam(r, "min_score")
	if err != nil {
		writeError(w, r, err)
		return
	}
	maxScore, err := intParam(r, "max_score")
	if err != nil {
		writeError(w, r, err)
		return
	}
	if minScore != nil && maxScore != nil && *minScore > *maxScore {
		writeError(w, r, model.Validation("min_score must not exceed max_score"))
		return
	}

	s.writeLeads(w, r, store.LeadFilter{
		MinScore:     minScore,
		MaxScore:     maxScore,
		OrderByScore: minScore != nil || maxScore != nil,
	})
}

func (s *Server) listScoredLeads(w http.ResponseWriter, r *http.Request) {
	f := store.Scored(true)
	f.OrderByScore = true
	s.writeLeads(w, r, f)
}

func (s *Server) listUnscoredLeads(w http.ResponseWriter, r *http.Request) {
	s.writeLeads(w, r, store.Scored(false))
}

func (s *Server) listLeadsByIntent(w http.ResponseWriter, r *http.Request) {
	tier, err := model.ParseIntentTier(chi.URLParam(r, "level"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	f := store.ByTier(tier)
	f.OrderByScore = true
	s.writeLeads(w, r, f)
}

func (s *Server) getLead(w http.ResponseWriter, r *http.Request) {
	lead, err := s.store.GetLead(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, newLeadResponse(lead))
}

func (s *Server) deleteLeads(w http.ResponseWriter, r *http.Request) {
	s.delete(w, r, store.LeadFilter{})
}

func (s *Server) deleteUnscoredLeads(w http.ResponseWriter, r *http.Request) {
	s.delete(w, r, store.Scored(false))
}

func (s *Server) delete(w http.ResponseWriter, r *http.Request, f store.LeadFilter) {
	n, err := s.store.DeleteLeads(r.Context(), f)
	if err != nil {
		writeError(w, r, model.Persistence(err, "failed to delete leads"))
		return
	}
	zap.L().Info("api: deleted leads", zap.Int("leads", n))
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) leadStats(w http.ResponseWriter, r *http.Request) {
	c, err := s.counts(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, model.LeadStats{
		TotalLeads:      c.total,
		ScoredLeads:     c.scored,
		HighIntentLeads: c.tiers[model.IntentHigh],
		UnscoredLeads:   c.total - c.scored,
	})
}

func (s *Server) exportLeads(w http.ResponseWriter, r *http.Request) {
	s.exportCSV(w, r, store.LeadFilter{}, "leads.csv")
}

func (s *Server) exportScoredLeads(w http.ResponseWriter, r *http.Request) {
	f := store.Scored(true)
	f.OrderByScore = true
	s.exportCSV(w, r, f, "scored_leads.csv")
}

func (s *Server) exportCSV(w http.ResponseWriter, r *http.Request, f store.LeadFilter, filename string) {
	leads, err := s.store.ListLeads(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	var buf bytes.Buffer
	if err := leadfile.WriteCSV(&buf, leads); err != nil {
		writeError(w, r, err)
		return
	}
	writeFile(w, "text/csv", filename, buf.Bytes())
}

type leadCounts struct {
	total  int
	scored int
	tiers  map[model.IntentTier]int
}

func (s *Server) counts(r *http.Request) (*leadCounts, error) {
	ctx := r.Context()
	c := &leadCounts{tiers: make(map[model.IntentTier]int, len(model.IntentTiers))}

	var err error
	if c.total, err = s.store.CountLeads(ctx, store.LeadFilter{}); err != nil {
		return nil, err
	}
	if c.scored, err = s.store.CountLeads(ctx, store.Scored(true)); err != nil {
		return nil, err
	}
	for _, t := range model.IntentTiers {
		n, err := s.store.CountLeads(ctx, store.ByTier(t))
		if err != nil {
			return nil, err
		}
		c.tiers[t] = n
	}
	return c, nil
}
