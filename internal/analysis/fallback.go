package analysis

import (
	"fmt"
	"strings"
	"time"

	"github.com/bissquit/incident-triage/internal/domain"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var severityCaser = cases.Title(language.English)

// Fallback builds the deterministic degraded analysis used when the model
// call failed or returned unusable output. The result is always valid and
// is marked with Metadata.FallbackMode = true.
func Fallback(req Request, failure error) domain.AnalysisResult {
	severity := strings.ToLower(strings.TrimSpace(req.Severity))

	justification := "Severity taken from the reporter's declaration"
	if failure != nil {
		justification = fmt.Sprintf("Severity taken from the reporter's declaration (analysis failed: %v)", failure)
	}

	return domain.AnalysisResult{
		Summary: fmt.Sprintf("%s severity incident: %s. Automated analysis unavailable, manual triage required.",
			severityCaser.String(severity), req.Title),
		RootCauses: []string{
			"Automated root cause analysis was unavailable for this incident - manual investigation required",
			"Review recent deployments, configuration changes and infrastructure events around the incident start time",
			"Inspect application logs and monitoring dashboards to establish the failure sequence",
		},
		CustomerMessage: "We are aware of an issue affecting our service and our engineering team is actively investigating. " +
			"We will provide an update as soon as more information is available. We apologize for any inconvenience.",
		ActionItems: []string{
			"1. [HIGH] Review application logs for errors and stack traces around the incident window",
			"2. [HIGH] Check system metrics for anomalies (latency, error rate, saturation)",
			"3. [MEDIUM] Verify resource utilization (CPU, memory, disk, connections) against capacity limits",
			"4. [MEDIUM] Identify the most recent deployment and evaluate a rollback",
			"5. [MEDIUM] Check the status of external dependencies and upstream providers",
			"6. [LOW] Document findings and timeline for the post-incident review",
		},
		SuggestedSeverity: domain.SuggestedSeverity(severity),
		Metadata: domain.AnalysisMetadata{
			SeverityJustification: justification,
			SimilarPatterns:       []string{},
			PreventiveMeasures: []string{
				"Configure a secondary analysis provider so triage does not depend on a single service",
				"Alert on repeated analysis fallbacks to detect provider outages early",
			},
			AnalysisTimestamp: time.Now().UTC(),
			TokensUsed:        0,
			FallbackMode:      true,
		},
	}
}
