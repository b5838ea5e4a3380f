package comments

import (
	"context"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for comment storage.
type Repository interface {
	ListComments(ctx context.Context, incidentID string) ([]*domain.Comment, error)

	// Transaction support
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateCommentTx(ctx context.Context, tx pgx.Tx, comment *domain.Comment) error
	AppendActivityTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error
}
