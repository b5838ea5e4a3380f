//go:build integration

package integration

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/bissquit/incident-triage/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func addComment(t *testing.T, client *testutil.Client, incidentID, author, text string) commentJSON {
	t.Helper()

	resp, err := client.POST("/api/incidents/"+incidentID+"/comments", map[string]any{
		"author_name": author,
		"text":        text,
	})
	require.NoError(t, err)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var result struct {
		Data commentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func listComments(t *testing.T, client *testutil.Client, incidentID string) []commentJSON {
	t.Helper()

	resp, err := client.GET("/api/incidents/" + incidentID + "/comments")
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var result struct {
		Data []commentJSON `json:"data"`
	}
	testutil.DecodeJSON(t, resp, &result)
	return result.Data
}

func TestAddComment(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "Comment target", "low")

	comment := addComment(t, client, incident.ID, "alice", "restarted the pods")

	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, incident.ID, comment.IncidentID)
	assert.Equal(t, "alice", comment.AuthorName)
	assert.Equal(t, "restarted the pods", comment.Text)

	// The comment and its activity entry land atomically.
	entries := listActivity(t, client, incident.ID)
	require.Len(t, entries, 2)
	assert.Equal(t, "commented", entries[0].ActivityType)
	assert.Equal(t, "alice added a comment", entries[0].Description)
	assert.Equal(t, comment.ID, entries[0].Detail["comment_id"])
}

func TestAddComment_Validation(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "Comment validation", "low")

	tests := []struct {
		name    string
		payload map[string]any
	}{
		{"missing author", map[string]any{"text": "hello"}},
		{"empty text", map[string]any{"author_name": "alice", "text": "   "}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := client.POST("/api/incidents/"+incident.ID+"/comments", tt.payload)
			require.NoError(t, err)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			_ = resp.Body.Close()
		})
	}

	entries := listActivity(t, client, incident.ID)
	require.Len(t, entries, 1)
}

func TestAddComment_UnknownIncident(t *testing.T) {
	client := newTestClient(t)

	resp, err := client.POST("/api/incidents/"+missingIncidentID()+"/comments", map[string]any{
		"author_name": "alice",
		"text":        "hello",
	})
	require.NoError(t, err)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	_ = resp.Body.Close()
}

func TestListComments_OldestFirst(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "Comment ordering", "low")

	for i := 1; i <= 3; i++ {
		addComment(t, client, incident.ID, "bob", fmt.Sprintf("comment %d", i))
	}

	comments := listComments(t, client, incident.ID)
	require.Len(t, comments, 3)
	assert.Equal(t, "comment 1", comments[0].Text)
	assert.Equal(t, "comment 2", comments[1].Text)
	assert.Equal(t, "comment 3", comments[2].Text)

	// The activity log uses the opposite order, newest first.
	entries := listActivity(t, client, incident.ID)
	require.Len(t, entries, 4)
	assert.Equal(t, "comment 3", mustCommentText(t, client, incident.ID, entries[0]))
	assert.Equal(t, "created", entries[3].ActivityType)
}

// mustCommentText resolves the comment referenced by a commented activity
// entry back to its text.
func mustCommentText(t *testing.T, client *testutil.Client, incidentID string, entry activityJSON) string {
	t.Helper()

	require.Equal(t, "commented", entry.ActivityType)
	commentID, ok := entry.Detail["comment_id"].(string)
	require.True(t, ok, "commented entry carries comment_id")

	for _, c := range listComments(t, client, incidentID) {
		if c.ID == commentID {
			return c.Text
		}
	}
	t.Fatalf("comment %s not found", commentID)
	return ""
}

func TestListComments_Empty(t *testing.T) {
	client := newTestClient(t)
	incident := createTestIncident(t, client, "No comments", "low")

	comments := listComments(t, client, incident.ID)
	assert.Empty(t, comments)
}
