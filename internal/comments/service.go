// Package comments implements free-text collaboration entries on incidents.
package comments

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// IncidentReader checks that a referenced incident exists.
type IncidentReader interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
}

// Service implements comment business logic.
type Service struct {
	repo      Repository
	incidents IncidentReader
}

// NewService creates a new comment service.
func NewService(repo Repository, incidents IncidentReader) *Service {
	return &Service{
		repo:      repo,
		incidents: incidents,
	}
}

// AddComment appends a comment and its commented activity entry in one
// transaction; the caller never observes one without the other.
func (s *Service) AddComment(ctx context.Context, incidentID, authorName, text string) (*domain.Comment, error) {
	author := strings.TrimSpace(authorName)
	if author == "" {
		return nil, ErrAuthorRequired
	}
	body := strings.TrimSpace(text)
	if body == "" {
		return nil, ErrEmptyComment
	}

	if _, err := s.incidents.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}

	comment := &domain.Comment{
		ID:         uuid.New().String(),
		IncidentID: incidentID,
		AuthorName: author,
		Text:       body,
	}

	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.CreateCommentTx(ctx, tx, comment); err != nil {
		return nil, fmt.Errorf("create comment: %w", err)
	}

	entry := &domain.ActivityEntry{
		ID:           uuid.New().String(),
		IncidentID:   incidentID,
		ActivityType: domain.ActivityTypeCommented,
		ActorName:    &author,
		Description:  fmt.Sprintf("%s added a comment", author),
		Detail: map[string]any{
			"comment_id": comment.ID,
		},
	}
	if err := s.repo.AppendActivityTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return comment, nil
}

// ListComments returns the comments for an incident in creation order,
// oldest first. The activity log deliberately uses the opposite order.
func (s *Service) ListComments(ctx context.Context, incidentID string) ([]*domain.Comment, error) {
	if _, err := s.incidents.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.repo.ListComments(ctx, incidentID)
}
