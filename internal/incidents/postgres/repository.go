// Package postgres provides the PostgreSQL implementation of the incidents repository.
package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/bissquit/incident-triage/internal/incidents"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// querier is an interface for database operations that both *pgxpool.Pool and pgx.Tx implement.
type querier interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Repository implements incidents.Repository using PostgreSQL.
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

// CreateIncidentTx inserts an incident with its embedded analysis.
func (r *Repository) CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	return createIncident(ctx, tx, incident)
}

func createIncident(ctx context.Context, q querier, incident *domain.Incident) error {
	analysisJSON, err := json.Marshal(incident.Analysis)
	if err != nil {
		return fmt.Errorf("marshal analysis: %w", err)
	}

	query := `
		INSERT INTO incidents (
			id, title, description, severity, status, assigned_to, analysis,
			resolved_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at, updated_at
	`
	err = q.QueryRow(ctx, query,
		incident.ID,
		incident.Title,
		incident.Description,
		incident.Severity,
		incident.Status,
		incident.AssignedTo,
		analysisJSON,
		incident.ResolvedAt,
		incident.ClosedAt,
	).Scan(&incident.CreatedAt, &incident.UpdatedAt)

	if err != nil {
		return fmt.Errorf("create incident: %w", err)
	}
	return nil
}

// UpdateIncidentTx persists status, assignee and lifecycle timestamps.
// The analysis is immutable and is deliberately not part of the update.
func (r *Repository) UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error {
	query := `
		UPDATE incidents
		SET status = $2,
		    assigned_to = $3,
		    resolved_at = $4,
		    closed_at = $5,
		    updated_at = now()
		WHERE id = $1
		RETURNING updated_at
	`
	err := tx.QueryRow(ctx, query,
		incident.ID,
		incident.Status,
		incident.AssignedTo,
		incident.ResolvedAt,
		incident.ClosedAt,
	).Scan(&incident.UpdatedAt)

	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return incidents.ErrIncidentNotFound
		}
		return fmt.Errorf("update incident: %w", err)
	}
	return nil
}

// GetIncident retrieves an incident by ID.
func (r *Repository) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	query := `
		SELECT id, title, description, severity, status, assigned_to, analysis,
		       resolved_at, closed_at, created_at, updated_at
		FROM incidents
		WHERE id = $1
	`
	incident, err := scanIncident(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, incidents.ErrIncidentNotFound
		}
		return nil, fmt.Errorf("get incident: %w", err)
	}
	return incident, nil
}

// ListIncidents retrieves incidents with optional filters, newest first.
func (r *Repository) ListIncidents(ctx context.Context, filters incidents.IncidentFilters) ([]*domain.Incident, error) {
	query := `
		SELECT id, title, description, severity, status, assigned_to, analysis,
		       resolved_at, closed_at, created_at, updated_at
		FROM incidents
		WHERE 1=1
	`
	args := []any{}
	argPos := 1

	if filters.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", argPos)
		args = append(args, *filters.Status)
		argPos++
	}
	if filters.Severity != nil {
		query += fmt.Sprintf(" AND severity = $%d", argPos)
		args = append(args, *filters.Severity)
		argPos++
	}
	if filters.AssignedTo != nil {
		query += fmt.Sprintf(" AND assigned_to = $%d", argPos)
		args = append(args, *filters.AssignedTo)
		argPos++
	}

	query += " ORDER BY created_at DESC"

	if filters.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argPos)
		args = append(args, filters.Limit)
		argPos++
	}
	if filters.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argPos)
		args = append(args, filters.Offset)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list incidents: %w", err)
	}
	defer rows.Close()

	result := make([]*domain.Incident, 0)
	for rows.Next() {
		incident, err := scanIncident(rows)
		if err != nil {
			return nil, fmt.Errorf("scan incident: %w", err)
		}
		result = append(result, incident)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate incidents: %w", err)
	}
	return result, nil
}

// GetStats returns aggregate incident counts.
func (r *Repository) GetStats(ctx context.Context) (*incidents.Stats, error) {
	stats := &incidents.Stats{
		ByStatus:   make(map[domain.IncidentStatus]int),
		BySeverity: make(map[domain.Severity]int),
	}

	rows, err := r.db.Query(ctx, `SELECT status, count(*) FROM incidents GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("count by status: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var status domain.IncidentStatus
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan status count: %w", err)
		}
		stats.ByStatus[status] = count
		stats.Total += count
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate status counts: %w", err)
	}

	sevRows, err := r.db.Query(ctx, `SELECT severity, count(*) FROM incidents GROUP BY severity`)
	if err != nil {
		return nil, fmt.Errorf("count by severity: %w", err)
	}
	defer sevRows.Close()
	for sevRows.Next() {
		var severity domain.Severity
		var count int
		if err := sevRows.Scan(&severity, &count); err != nil {
			return nil, fmt.Errorf("scan severity count: %w", err)
		}
		stats.BySeverity[severity] = count
	}
	if err := sevRows.Err(); err != nil {
		return nil, fmt.Errorf("iterate severity counts: %w", err)
	}

	err = r.db.QueryRow(ctx,
		`SELECT count(*) FROM incidents WHERE (analysis -> 'metadata' ->> 'fallback_mode')::boolean`,
	).Scan(&stats.FallbackAnalyses)
	if err != nil {
		return nil, fmt.Errorf("count fallback analyses: %w", err)
	}

	return stats, nil
}

// AppendActivityTx inserts an activity entry.
func (r *Repository) AppendActivityTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error {
	return appendActivity(ctx, tx, entry)
}

func appendActivity(ctx context.Context, q querier, entry *domain.ActivityEntry) error {
	detailJSON, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal activity detail: %w", err)
	}

	query := `
		INSERT INTO activity_log (id, incident_id, activity_type, actor_name, description, detail)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING occurred_at
	`
	err = q.QueryRow(ctx, query,
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

// ListActivity retrieves activity entries for an incident, newest first.
func (r *Repository) ListActivity(ctx context.Context, incidentID string) ([]*domain.ActivityEntry, error) {
	query := `
		SELECT id, incident_id, activity_type, actor_name, description, detail, occurred_at
		FROM activity_log
		WHERE incident_id = $1
		ORDER BY occurred_at DESC, id DESC
	`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, fmt.Errorf("list activity: %w", err)
	}
	defer rows.Close()

	entries := make([]*domain.ActivityEntry, 0)
	for rows.Next() {
		var entry domain.ActivityEntry
		var detailJSON []byte
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.ActivityType,
			&entry.ActorName,
			&entry.Description,
			&detailJSON,
			&entry.OccurredAt,
		); err != nil {
			return nil, fmt.Errorf("scan activity entry: %w", err)
		}
		if len(detailJSON) > 0 {
			if err := json.Unmarshal(detailJSON, &entry.Detail); err != nil {
				return nil, fmt.Errorf("unmarshal activity detail: %w", err)
			}
		}
		entries = append(entries, &entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate activity entries: %w", err)
	}
	return entries, nil
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var incident domain.Incident
	var analysisJSON []byte
	if err := row.Scan(
		&incident.ID,
		&incident.Title,
		&incident.Description,
		&incident.Severity,
		&incident.Status,
		&incident.AssignedTo,
		&analysisJSON,
		&incident.ResolvedAt,
		&incident.ClosedAt,
		&incident.CreatedAt,
		&incident.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(analysisJSON, &incident.Analysis); err != nil {
		return nil, fmt.Errorf("unmarshal analysis: %w", err)
	}
	return &incident, nil
}
