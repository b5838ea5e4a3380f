// Package postgres provides the PostgreSQL implementation of the comments repository.
package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repository implements comments.Repository using PostgreSQL.
type Repository struct {
	db *pgxpool.Pool
}

// NewRepository creates a new PostgreSQL repository.
func NewRepository(db *pgxpool.Pool) *Repository {
	return &Repository{db: db}
}

// BeginTx starts a new transaction.
func (r *Repository) BeginTx(ctx context.Context) (pgx.Tx, error) {
	return r.db.Begin(ctx)
}

// CreateCommentTx inserts a comment.
func (r *Repository) CreateCommentTx(ctx context.Context, tx pgx.Tx, comment *domain.Comment) error {
	query := `
		INSERT INTO comments (id, incident_id, author_name, body)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err := tx.QueryRow(ctx, query,
		comment.ID,
		comment.IncidentID,
		comment.AuthorName,
		comment.Text,
	).Scan(&comment.CreatedAt)

	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// AppendActivityTx inserts an activity entry alongside a comment write.
func (r *Repository) AppendActivityTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error {
	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal activity detail: %w", err)
	}

	query := `
		INSERT INTO activity_log (id, incident_id, activity_type, actor_name, description, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING occurred_at
	`
	err = tx.QueryRow(ctx, query,
		entry.ID,
		entry.IncidentID,
		entry.ActivityType,
		entry.ActorName,
		entry.Description,
		detailJSON,
	).Scan(&entry.OccurredAt)

	if err != nil {
		return fmt.Errorf("append activity: %w", err)
	}
	return nil
}

// ListComments retrieves comments for an incident in creation order, oldest first.
func (r *Repository) ListComments(ctx context.Context, incidentID string) ([]*domain.Comment, error) {
	query := `
		SELECT id, incident_id, author_name, body, created_at
		FROM comments
		WHERE incident_id = $1
		ORDER BY created_at ASC, id ASC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	list := make([]*domain.Comment, 0)
	for rows.Next() {
		var comment domain.Comment
		if err := rows.Scan(
			&comment.ID,
			&comment.IncidentID,
			&comment.AuthorName,
			&comment.Text,
			&comment.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan comment: %w", err)
		}
		list = append(list, &comment)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return list, nil
}
