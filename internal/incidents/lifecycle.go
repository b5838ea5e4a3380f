package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// ChangeStatus transitions an incident to newStatus and records a
// status_changed activity entry in the same transaction.
//
// Re-entering resolved or closed never overwrites an existing timestamp,
// and a no-op transition (same status) is neither stored nor logged.
// Backward transitions (e.g. closed to open) are intentionally permitted.
func (s *Service) ChangeStatus(ctx context.Context, id string, newStatus domain.IncidentStatus, actorName string) (*domain.Incident, error) {
	if !newStatus.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, newStatus)
	}

	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	oldStatus := incident.Status
	if oldStatus == newStatus {
		return incident, nil
	}

	now := time.Now().UTC()
	incident.Status = newStatus
	if newStatus == domain.IncidentStatusResolved && incident.ResolvedAt == nil {
		incident.ResolvedAt = &now
	}
	if newStatus == domain.IncidentStatusClosed && incident.ClosedAt == nil {
		incident.ClosedAt = &now
	}

	entry := &domain.ActivityEntry{
		ID:           uuid.New().String(),
		IncidentID:   incident.ID,
		ActivityType: domain.ActivityTypeStatusChanged,
		ActorName:    optionalName(actorName),
		Description:  fmt.Sprintf("Status changed from %s to %s", oldStatus, newStatus),
		Detail: map[string]any{
			"old_status": string(oldStatus),
			"new_status": string(newStatus),
		},
	}

	if err := s.applyChange(ctx, incident, entry); err != nil {
		return nil, err
	}
	return incident, nil
}

// Assign sets or clears the incident assignee and records an assigned
// activity entry. Assigning the current assignee again is a no-op and is
// neither stored nor logged.
func (s *Service) Assign(ctx context.Context, id string, assignee *string, actorName string) (*domain.Incident, error) {
	incident, err := s.repo.GetIncident(ctx, id)
	if err != nil {
		return nil, err
	}

	newAssignee := normalizeAssignee(assignee)
	oldAssignee := incident.AssignedTo
	if sameAssignee(oldAssignee, newAssignee) {
		return incident, nil
	}

	incident.AssignedTo = newAssignee

	entry := &domain.ActivityEntry{
		ID:           uuid.New().String(),
		IncidentID:   incident.ID,
		ActivityType: domain.ActivityTypeAssigned,
		ActorName:    optionalName(actorName),
		Description:  assignmentDescription(oldAssignee, newAssignee),
		Detail: map[string]any{
			"old_assignee": derefOrNil(oldAssignee),
			"new_assignee": derefOrNil(newAssignee),
		},
	}

	if err := s.applyChange(ctx, incident, entry); err != nil {
		return nil, err
	}
	return incident, nil
}

// applyChange persists an incident mutation and its activity entry atomically.
func (s *Service) applyChange(ctx context.Context, incident *domain.Incident, entry *domain.ActivityEntry) error {
	tx, err := s.repo.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer func() {
		if err := tx.Rollback(ctx); err != nil && !errors.Is(err, pgx.ErrTxClosed) {
			slog.Error("failed to rollback transaction", "error", err)
		}
	}()

	if err := s.repo.UpdateIncidentTx(ctx, tx, incident); err != nil {
		return fmt.Errorf("update incident: %w", err)
	}
	if err := s.repo.AppendActivityTx(ctx, tx, entry); err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// assignmentDescription renders the human-readable audit sentence for an
// assignment change.
func assignmentDescription(oldAssignee, newAssignee *string) string {
	switch {
	case newAssignee == nil:
		return "Incident unassigned"
	case oldAssignee == nil:
		return fmt.Sprintf("Incident assigned to %s", *newAssignee)
	default:
		return fmt.Sprintf("Incident reassigned from %s to %s", *oldAssignee, *newAssignee)
	}
}

func normalizeAssignee(assignee *string) *string {
	if assignee == nil {
		return nil
	}
	return optionalName(*assignee)
}

func sameAssignee(a, b *string) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return *a == *b
}

func derefOrNil(s *string) any {
	if s == nil {
		return nil
	}
	return *s
}
