//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/incident-triage/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
)

type incidentJSON struct {
	ID          string   `json:"id"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Severity    string   `json:"severity"`
	Status      string   `json:"status"`
	AssignedTo  *string  `json:"assigned_to"`
	ResolvedAt  *string  `json:"resolved_at"`
	ClosedAt    *string  `json:"closed_at"`
	Analysis    struct {
		Summary           string   `json:"summary"`
		RootCauses        []string `json:"root_causes"`
		CustomerMessage   string   `json:"customer_message"`
		ActionItems       []string `json:"action_items"`
		SuggestedSeverity string   `json:"suggested_severity"`
		Metadata          struct {
			SeverityJustification string   `json:"severity_justification"`
			SimilarPatterns       []string `json:"similar_patterns"`
			PreventiveMeasures    []string `json:"preventive_measures"`
			TokensUsed            int      `json:"tokens_used"`
			FallbackMode          bool     `json:"fallback_mode"`
		} `json:"metadata"`
	} `json:"analysis"`
}

type activityJSON struct {
	ID           string         `json:"id"`
	IncidentID   string         `json:"incident_id"`
	ActivityType string         `json:"activity_type"`
	ActorName    *string        `json:"actor_name"`
	Description  string         `json:"description"`
	Detail       map[string]any `json:"detail"`
	OccurredAt   string         `json:"occurred_at"`
}

type commentJSON struct {
	ID         string `json:"id"`
	IncidentID string `json:"incident_id"`
	AuthorName string `json:"author_name"`
	Text       string `json:"text"`
	CreatedAt  string `json:"created_at"`
}

// createTestIncident creates an incident via the API and returns it.
func createTestIncident(t *testing.T, client *testutil.Client, title, severity string) incidentJSON {
	t.Helper()

	resp, err := client.POST("/api/incidents", map[string]any{
		"title":         title,
		"severity":      severity,
		"description":   fmt.Sprintf("integration test incident: %s", title),
		"reporter_name": "integration-test",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	require.NotEmpty(t, result.Data.ID)
	return result.Data
}

// getIncident fetches an incident by ID via the API.
func getIncident(t *testing.T, client *testutil.Client, id string) incidentJSON {
	t.Helper()

	resp, err := client.GET("/api/incidents/" + id)
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// changeStatus transitions an incident through the API, requiring success.
func changeStatus(t *testing.T, client *testutil.Client, id, status string) incidentJSON {
	t.Helper()

	resp, err := client.PATCH("/api/incidents/"+id+"/status", map[string]any{
		"status":     status,
		"actor_name": "integration-test",
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// listActivity fetches the activity log for an incident.
func listActivity(t *testing.T, client *testutil.Client, id string) []activityJSON {
	t.Helper()

	resp, err := client.GET("/api/incidents/" + id + "/activity")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []activityJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

// missingIncidentID returns a well-formed ID that matches no incident.
func missingIncidentID() string {
	return uuid.New().String()
}
