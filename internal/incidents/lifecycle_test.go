package incidents

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-triage/internal/domain"
)

func seedIncident(repo *fakeRepository, status domain.IncidentStatus) *domain.Incident {
	incident := &domain.Incident{
		ID:       "inc-1",
		Title:    "API down",
		Severity: domain.SeverityHigh,
		Status:   status,
	}
	repo.incidents[incident.ID] = incident
	return incident
}

func TestService_ChangeStatus(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusOpen)
	svc := NewService(repo, successfulAnalyzer(), 0)

	incident, err := svc.ChangeStatus(context.Background(), "inc-1", domain.IncidentStatusInvestigating, "bob")
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)
	assert.Nil(t, incident.ResolvedAt)
	assert.Equal(t, domain.IncidentStatusInvestigating, repo.incidents["inc-1"].Status)

	require.Len(t, repo.activity, 1)
	entry := repo.activity[0]
	assert.Equal(t, domain.ActivityTypeStatusChanged, entry.ActivityType)
	assert.Equal(t, "Status changed from open to investigating", entry.Description)
	assert.Equal(t, "open", entry.Detail["old_status"])
	assert.Equal(t, "investigating", entry.Detail["new_status"])
	require.NotNil(t, entry.ActorName)
	assert.Equal(t, "bob", *entry.ActorName)
}

func TestService_ChangeStatus_InvalidStatus(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusOpen)
	svc := NewService(repo, successfulAnalyzer(), 0)

	_, err := svc.ChangeStatus(context.Background(), "inc-1", "archived", "bob")
	assert.ErrorIs(t, err, ErrInvalidStatus)
	assert.Empty(t, repo.activity)
}

func TestService_ChangeStatus_NotFound(t *testing.T) {
	svc := NewService(newFakeRepository(), successfulAnalyzer(), 0)

	_, err := svc.ChangeStatus(context.Background(), "missing", domain.IncidentStatusResolved, "")
	assert.ErrorIs(t, err, ErrIncidentNotFound)
}

func TestService_ChangeStatus_NoOpNotLogged(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusInvestigating)
	svc := NewService(repo, successfulAnalyzer(), 0)

	incident, err := svc.ChangeStatus(context.Background(), "inc-1", domain.IncidentStatusInvestigating, "bob")
	require.NoError(t, err)

	assert.Equal(t, domain.IncidentStatusInvestigating, incident.Status)
	assert.Empty(t, repo.activity)
	assert.Zero(t, repo.updateCalls)
}

func TestService_ChangeStatus_ResolvedAtSetOnce(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusOpen)
	svc := NewService(repo, successfulAnalyzer(), 0)
	ctx := context.Background()

	incident, err := svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusResolved, "")
	require.NoError(t, err)
	require.NotNil(t, incident.ResolvedAt)
	firstResolved := *incident.ResolvedAt

	// Reopen, then resolve again. The original timestamp survives.
	_, err = svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusOpen, "")
	require.NoError(t, err)

	time.Sleep(10 * time.Millisecond)
	incident, err = svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusResolved, "")
	require.NoError(t, err)
	require.NotNil(t, incident.ResolvedAt)
	assert.Equal(t, firstResolved, *incident.ResolvedAt)
}

func TestService_ChangeStatus_ClosedAtSetOnce(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusResolved)
	svc := NewService(repo, successfulAnalyzer(), 0)
	ctx := context.Background()

	incident, err := svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusClosed, "")
	require.NoError(t, err)
	require.NotNil(t, incident.ClosedAt)
	firstClosed := *incident.ClosedAt

	// Backward transition out of closed is allowed.
	incident, err = svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusOpen, "")
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusOpen, incident.Status)

	incident, err = svc.ChangeStatus(ctx, "inc-1", domain.IncidentStatusClosed, "")
	require.NoError(t, err)
	assert.Equal(t, firstClosed, *incident.ClosedAt)
}

func TestService_Assign(t *testing.T) {
	alice := "alice"
	bob := "bob"

	tests := []struct {
		name            string
		current         *string
		assignee        *string
		wantDescription string
		wantOld         any
		wantNew         any
	}{
		{"assign", nil, &alice, "Incident assigned to alice", nil, "alice"},
		{"reassign", &alice, &bob, "Incident reassigned from alice to bob", "alice", "bob"},
		{"unassign", &bob, nil, "Incident unassigned", "bob", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newFakeRepository()
			incident := seedIncident(repo, domain.IncidentStatusOpen)
			incident.AssignedTo = tt.current
			svc := NewService(repo, successfulAnalyzer(), 0)

			updated, err := svc.Assign(context.Background(), "inc-1", tt.assignee, "carol")
			require.NoError(t, err)
			assert.Equal(t, tt.assignee, updated.AssignedTo)

			require.Len(t, repo.activity, 1)
			entry := repo.activity[0]
			assert.Equal(t, domain.ActivityTypeAssigned, entry.ActivityType)
			assert.Equal(t, tt.wantDescription, entry.Description)
			assert.Equal(t, tt.wantOld, entry.Detail["old_assignee"])
			assert.Equal(t, tt.wantNew, entry.Detail["new_assignee"])
		})
	}
}

func TestService_Assign_NoOpNotLogged(t *testing.T) {
	alice := "alice"

	repo := newFakeRepository()
	incident := seedIncident(repo, domain.IncidentStatusOpen)
	incident.AssignedTo = &alice
	svc := NewService(repo, successfulAnalyzer(), 0)

	same := "alice"
	updated, err := svc.Assign(context.Background(), "inc-1", &same, "carol")
	require.NoError(t, err)

	require.NotNil(t, updated.AssignedTo)
	assert.Equal(t, "alice", *updated.AssignedTo)
	assert.Empty(t, repo.activity)
	assert.Zero(t, repo.updateCalls)
}

func TestService_Assign_WhitespaceMeansUnassign(t *testing.T) {
	repo := newFakeRepository()
	seedIncident(repo, domain.IncidentStatusOpen)
	svc := NewService(repo, successfulAnalyzer(), 0)

	blank := "   "
	updated, err := svc.Assign(context.Background(), "inc-1", &blank, "")
	require.NoError(t, err)

	// Already unassigned, so a blank assignee is a no-op.
	assert.Nil(t, updated.AssignedTo)
	assert.Empty(t, repo.activity)
}
