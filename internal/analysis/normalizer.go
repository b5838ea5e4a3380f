package analysis

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/incident-triage/internal/domain"
)

// Normalization errors. These never propagate past Normalize; they only
// name the reason a result degraded to fallback mode.
var (
	ErrEmptyResponse         = errors.New("analyzer returned no result")
	ErrMissingSummary        = errors.New("analysis missing summary")
	ErrMissingRootCauses     = errors.New("analysis missing root causes")
	ErrMissingCustomerUpdate = errors.New("analysis missing customer message")
)

const defaultReasoning = "No reasoning provided"

// Normalize converts a raw model response into an AnalysisResult.
//
// It is a total function: every input path, including a nil raw response,
// a failed call or output missing required fields, yields a valid result.
// Failures degrade to the deterministic fallback and are never raised.
func Normalize(req Request, raw *RawAnalysis, failure error) domain.AnalysisResult {
	if failure != nil {
		return Fallback(req, failure)
	}
	if raw == nil {
		return Fallback(req, ErrEmptyResponse)
	}
	if err := validateRequired(raw); err != nil {
		return Fallback(req, err)
	}

	causes := make([]string, 0, len(raw.RootCauses))
	for _, c := range raw.RootCauses {
		causes = append(causes, formatRootCause(c))
	}

	items := make([]string, 0, len(raw.ActionItems))
	for i, item := range raw.ActionItems {
		items = append(items, formatActionItem(i, item))
	}

	tokens := raw.TokensUsed
	if tokens < 0 {
		tokens = 0
	}

	return domain.AnalysisResult{
		Summary:           strings.TrimSpace(raw.Summary),
		RootCauses:        causes,
		CustomerMessage:   strings.TrimSpace(raw.CustomerMessage),
		ActionItems:       items,
		SuggestedSeverity: suggestedSeverity(raw.SuggestedSeverity, req.Severity),
		Metadata: domain.AnalysisMetadata{
			SeverityJustification: defaultString(raw.SeverityJustification, "No justification provided"),
			SimilarPatterns:       defaultSlice(raw.SimilarPatterns),
			PreventiveMeasures:    defaultSlice(raw.PreventiveMeasures),
			AnalysisTimestamp:     time.Now().UTC(),
			TokensUsed:            tokens,
			FallbackMode:          false,
		},
	}
}

// validateRequired checks the fields without which an analysis is unusable.
// Any of them missing means the whole response is treated as a failure.
func validateRequired(raw *RawAnalysis) error {
	if strings.TrimSpace(raw.Summary) == "" {
		return ErrMissingSummary
	}
	if len(raw.RootCauses) == 0 {
		return ErrMissingRootCauses
	}
	if strings.TrimSpace(raw.CustomerMessage) == "" {
		return ErrMissingCustomerUpdate
	}
	return nil
}

// formatRootCause renders a root cause as a single canonical string.
// Structured entries become "[LIKELIHOOD] cause (Components: a, b)" with a
// reasoning line; bare strings pass through unchanged.
func formatRootCause(c RootCause) string {
	if c.Text != "" {
		return c.Text
	}

	likelihood := strings.ToUpper(strings.TrimSpace(c.Likelihood))
	if likelihood == "" {
		likelihood = "UNKNOWN"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "[%s] %s", likelihood, c.Cause)
	if len(c.Components) > 0 {
		fmt.Fprintf(&b, " (Components: %s)", strings.Join(c.Components, ", "))
	}
	reasoning := strings.TrimSpace(c.Reasoning)
	if reasoning == "" {
		reasoning = defaultReasoning
	}
	fmt.Fprintf(&b, "\nReasoning: %s", reasoning)
	return b.String()
}

// formatActionItem renders a 1-indexed, numbered action string.
func formatActionItem(idx int, item ActionItem) string {
	if item.Text != "" {
		return fmt.Sprintf("%d. %s", idx+1, item.Text)
	}

	priority := strings.ToUpper(strings.TrimSpace(item.Priority))
	if priority == "" {
		priority = "MEDIUM"
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%d. [%s] ", idx+1, priority)
	if item.Owner != "" {
		fmt.Fprintf(&b, "@%s ", item.Owner)
	}
	b.WriteString(item.Action)
	if item.Command != "" {
		fmt.Fprintf(&b, "\n   Command: %s", item.Command)
	}
	return b.String()
}

// suggestedSeverity lowercases the model's assessment and falls back to
// the reporter-declared severity when it is absent or unrecognized.
func suggestedSeverity(raw, declared string) domain.SuggestedSeverity {
	s := domain.SuggestedSeverity(strings.ToLower(strings.TrimSpace(raw)))
	if s.IsValid() {
		return s
	}
	return domain.SuggestedSeverity(strings.ToLower(declared))
}

func defaultString(s, fallback string) string {
	if strings.TrimSpace(s) == "" {
		return fallback
	}
	return s
}

func defaultSlice(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
