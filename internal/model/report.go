package model

import (
	"math"
	"time"
)

// BatchReport summarizes one scoring operation.
type BatchReport struct {
	Message          string    `json:"message"`
	TotalLeads       int       `json:"total_leads"`
	SuccessfulScores int       `json:"successful_scores"`
	FailedScores     int       `json:"failed_scores"`
	ScoredAt         time.Time `json:"scored_at"`
}

// NewBatchReport stamps a report with the current UTC time.
func NewBatchReport(msg string, total, succeeded, failed int) *BatchReport {
	return &BatchReport{
		Message:          msg,
		TotalLeads:       total,
		SuccessfulScores: succeeded,
		FailedScores:     failed,
		ScoredAt:         time.Now().UTC(),
	}
}

// LeadStats is the lead-management overview.
type LeadStats struct {
	TotalLeads      int `json:"total_leads"`
	ScoredLeads     int `json:"scored_leads"`
	HighIntentLeads int `json:"high_intent_leads"`
	UnscoredLeads   int `json:"unscored_leads"`
}

// ResultsSummary is the scoring-results overview.
type ResultsSummary struct {
	TotalLeads        int     `json:"total_leads"`
	ScoredLeads       int     `json:"scored_leads"`
	UnscoredLeads     int     `json:"unscored_leads"`
	HighIntentLeads   int     `json:"high_intent_leads"`
	MediumIntentLeads int     `json:"medium_intent_leads"`
	LowIntentLeads    int     `json:"low_intent_leads"`
	ScoringProgress   float64 `json:"scoring_progress"`
}

// Progress returns scored/total as a percentage rounded to one decimal.
func Progress(scored, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(scored)/float64(total)*1000) / 10
}
