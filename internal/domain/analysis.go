package domain

import "time"

// SuggestedSeverity represents the AI's independent severity assessment.
// Unlike the reporter-declared Severity it includes a critical level.
type SuggestedSeverity string

// Suggested severity levels.
const (
	SuggestedSeverityLow      SuggestedSeverity = "low"
	SuggestedSeverityMedium   SuggestedSeverity = "medium"
	SuggestedSeverityHigh     SuggestedSeverity = "high"
	SuggestedSeverityCritical SuggestedSeverity = "critical"
)

// IsValid checks if the suggested severity is valid.
func (s SuggestedSeverity) IsValid() bool {
	switch s {
	case SuggestedSeverityLow, SuggestedSeverityMedium,
		SuggestedSeverityHigh, SuggestedSeverityCritical:
		return true
	}
	return false
}

// AnalysisResult is the normalized AI analysis embedded in an incident.
// It is attached once at creation and never regenerated.
type AnalysisResult struct {
	Summary           string            `json:"summary"`
	RootCauses        []string          `json:"root_causes"`
	CustomerMessage   string            `json:"customer_message"`
	ActionItems       []string          `json:"action_items"`
	SuggestedSeverity SuggestedSeverity `json:"suggested_severity"`
	Metadata          AnalysisMetadata  `json:"metadata"`
}

// AnalysisMetadata carries provenance for an analysis result.
// FallbackMode is true iff the result was produced by the deterministic
// fallback path instead of a successful model call.
type AnalysisMetadata struct {
	SeverityJustification string    `json:"severity_justification"`
	SimilarPatterns       []string  `json:"similar_patterns"`
	PreventiveMeasures    []string  `json:"preventive_measures"`
	AnalysisTimestamp     time.Time `json:"analysis_timestamp"`
	TokensUsed            int       `json:"tokens_used"`
	FallbackMode          bool      `json:"fallback_mode"`
}
