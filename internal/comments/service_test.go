package comments

import (
	"context"
	"errors"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/bissquit/incident-triage/internal/incidents"
)

type fakeTx struct {
	pgx.Tx
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Commit(_ context.Context) error {
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(_ context.Context) error {
	if t.committed {
		return pgx.ErrTxClosed
	}
	t.rolledBack = true
	return nil
}

type fakeRepository struct {
	comments []*domain.Comment
	activity []*domain.ActivityEntry

	lastTx *fakeTx

	createErr   error
	activityErr error
}

func (r *fakeRepository) ListComments(_ context.Context, incidentID string) ([]*domain.Comment, error) {
	var out []*domain.Comment
	for _, c := range r.comments {
		if c.IncidentID == incidentID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (r *fakeRepository) BeginTx(_ context.Context) (pgx.Tx, error) {
	r.lastTx = &fakeTx{}
	return r.lastTx, nil
}

func (r *fakeRepository) CreateCommentTx(_ context.Context, _ pgx.Tx, comment *domain.Comment) error {
	if r.createErr != nil {
		return r.createErr
	}
	r.comments = append(r.comments, comment)
	return nil
}

func (r *fakeRepository) AppendActivityTx(_ context.Context, _ pgx.Tx, entry *domain.ActivityEntry) error {
	if r.activityErr != nil {
		return r.activityErr
	}
	r.activity = append(r.activity, entry)
	return nil
}

type fakeIncidentReader struct {
	known map[string]bool
}

func (f *fakeIncidentReader) GetIncident(_ context.Context, id string) (*domain.Incident, error) {
	if !f.known[id] {
		return nil, incidents.ErrIncidentNotFound
	}
	return &domain.Incident{ID: id}, nil
}

func newTestService() (*Service, *fakeRepository) {
	repo := &fakeRepository{}
	reader := &fakeIncidentReader{known: map[string]bool{"inc-1": true}}
	return NewService(repo, reader), repo
}

func TestService_AddComment(t *testing.T) {
	svc, repo := newTestService()

	comment, err := svc.AddComment(context.Background(), "inc-1", "  alice  ", "  restarted the pods  ")
	require.NoError(t, err)

	assert.NotEmpty(t, comment.ID)
	assert.Equal(t, "inc-1", comment.IncidentID)
	assert.Equal(t, "alice", comment.AuthorName)
	assert.Equal(t, "restarted the pods", comment.Text)

	require.True(t, repo.lastTx.committed)
	require.Len(t, repo.activity, 1)
	entry := repo.activity[0]
	assert.Equal(t, domain.ActivityTypeCommented, entry.ActivityType)
	assert.Equal(t, "alice added a comment", entry.Description)
	assert.Equal(t, comment.ID, entry.Detail["comment_id"])
	require.NotNil(t, entry.ActorName)
	assert.Equal(t, "alice", *entry.ActorName)
}

func TestService_AddComment_Validation(t *testing.T) {
	tests := []struct {
		name    string
		author  string
		text    string
		wantErr error
	}{
		{"empty author", "  ", "some text", ErrAuthorRequired},
		{"empty text", "alice", "   ", ErrEmptyComment},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo := newTestService()

			_, err := svc.AddComment(context.Background(), "inc-1", tt.author, tt.text)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, repo.comments)
			assert.Empty(t, repo.activity)
		})
	}
}

func TestService_AddComment_UnknownIncident(t *testing.T) {
	svc, repo := newTestService()

	_, err := svc.AddComment(context.Background(), "missing", "alice", "text")
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
	assert.Empty(t, repo.comments)
}

func TestService_AddComment_ActivityFailureRollsBack(t *testing.T) {
	svc, repo := newTestService()
	repo.activityErr = errors.New("insert failed")

	_, err := svc.AddComment(context.Background(), "inc-1", "alice", "text")
	require.Error(t, err)
	assert.True(t, repo.lastTx.rolledBack)
	assert.False(t, repo.lastTx.committed)
}

func TestService_ListComments_UnknownIncident(t *testing.T) {
	svc, _ := newTestService()

	_, err := svc.ListComments(context.Background(), "missing")
	assert.ErrorIs(t, err, incidents.ErrIncidentNotFound)
}
