//go:build integration

package integration

import (
	"net/http"
	"testing"

	"github.com/bissquit/incident-triage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreateIncident(t *testing.T) {
	client := newTestClient(t)

	incident := createTestIncident(t, client, "API returning 500s", "high")

	assert.Equal(t, "API returning 500s", incident.Title)
	assert.Equal(t, "high", incident.Severity)
	assert.Equal(t, "open", incident.Status)
	assert.Nil(t, incident.AssignedTo)
	assert.Nil(t, incident.ResolvedAt)
	assert.Nil(t, incident.ClosedAt)

	// Analysis came from the stub provider, not the fallback.
	assert.False(t, incident.Analysis.Metadata.FallbackMode)
	assert.Equal(t, 256, incident.Analysis.Metadata.TokensUsed)
	assert.Equal(t, "Connection pool exhaustion in the API tier", incident.Analysis.Summary)
	require.Len(t, incident.Analysis.RootCauses, 1)
	assert.Equal(t,
		"[HIGH] Connection leak (Components: api, postgres)\nReasoning: Connections grow without bound",
		incident.Analysis.RootCauses[0])
	require.Len(t, incident.Analysis.ActionItems, 1)
	assert.Equal(t,
		"1. [HIGH] @oncall Restart the API pods\n   Command: kubectl rollout restart deploy/api",
		incident.Analysis.ActionItems[0])
	assert.Equal(t, "high", incident.Analysis.SuggestedSeverity)

	fetched := getIncident(t, client, incident.ID)
	assert.Equal(t, incident.ID, fetched.ID)
	assert.Equal(t, incident.Analysis.Summary, fetched.Analysis.Summary)
}

func TestCreateIncident_SeverityNormalized(t *testing.T) {
	client := newTestClient(t)

	incident := createTestIncident(t, client, "Mixed case severity", "MEDIUM")
	assert.Equal(t, "medium", incident.Severity)
}

func TestCreateIncident_AnalysisProviderDown(t *testing.T) {
	client := newTestClient(t)

	aiStub.failWith(http.StatusServiceUnavailable)
	t.Cleanup(aiStub.reset)

	// Creation succeeds regardless of the provider outage.
	incident := createTestIncident(t, client, "Created during provider outage", "medium")

	assert.True(t, incident.Analysis.Metadata.FallbackMode)
	assert.Equal(t, 0, incident.Analysis.Metadata.TokensUsed)
	assert.Len(t, incident.Analysis.RootCauses, 3)
	assert.Len(t, incident.Analysis.ActionItems, 6)
	assert.Equal(t, "medium", incident.Analysis.SuggestedSeverity)
	assert.Contains(t, incident.Analysis.Summary, "Automated analysis unavailable")

	entries := listActivity(t, client, incident.ID)
	require.Len(t, entries, 1)
	assert.Equal(t, "created", entries[0].ActivityType)
	assert.Equal(t, true, entries[0].Detail["fallback_mode"])
}

func TestCreateIncident_Validation(t *testing.T) {
	client := newTestClient(t)

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing title", map[string]any{"severity": "low", "description": "d"}},
		{"missing description", map[string]any{"title": "t", "severity": "low"}},
		{"invalid severity", map[string]any{"title": "t", "severity": "urgent", "description": "d"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.POST("/api/incidents", tt.payload)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}
}

func TestGetIncident_NotFound(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/incidents/" + missingIncidentID())
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestListIncidents_Filters(t *testing.T) {
	client := newTestClient(t)

	low := createTestIncident(t, client, "Filter target low", "low")
	high := createTestIncident(t, client, "Filter target high", "high")
	changeStatus(t, client, high.ID, "investigating")

	resp, err := client.GET("/api/incidents?severity=low&limit=100")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []incidentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	ids := make(map[string]bool)
	for _, incident := range result.Data {
		assert.Equal(t, "low", incident.Severity)
		ids[incident.ID] = true
	}
	assert.True(t, ids[low.ID])
	assert.False(t, ids[high.ID])

	resp, err = client.GET("/api/incidents?status=investigating&limit=100")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	result.Data = nil
	testutil.DecodeJSON(t, resp, &result)
	found := false
	for _, incident := range result.Data {
		assert.Equal(t, "investigating", incident.Status)
		if incident.ID == high.ID {
			found = true
		}
	}
	assert.True(t, found)
}

func TestListIncidents_InvalidFilter(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.GET("/api/incidents?status=archived")
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestIncidentStats(t *testing.T) {
	client := newTestClient(t)

	createTestIncident(t, client, "Stats sample", "high")

	resp, err := client.GET("/api/incidents/stats")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data struct {
			Total            int            `json:"total"`
			ByStatus         map[string]int `json:"by_status"`
			BySeverity       map[string]int `json:"by_severity"`
			FallbackAnalyses int            `json:"fallback_analyses"`
		} `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)

	assert.GreaterOrEqual(t, result.Data.Total, 1)
	assert.GreaterOrEqual(t, result.Data.ByStatus["open"], 1)
	assert.GreaterOrEqual(t, result.Data.BySeverity["high"], 1)
	assert.GreaterOrEqual(t, result.Data.FallbackAnalyses, 0)
}
