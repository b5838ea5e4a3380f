package incidents

import (
	"context"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/jackc/pgx/v5"
)

// Repository defines the interface for incident storage.
type Repository interface {
	GetIncident(ctx context.Context, id string) (*domain.Incident, error)
	ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error)
	GetStats(ctx context.Context) (*Stats, error)
	ListActivity(ctx context.Context, incidentID string) ([]*domain.ActivityEntry, error)

	// Transaction support
	BeginTx(ctx context.Context) (pgx.Tx, error)
	CreateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	UpdateIncidentTx(ctx context.Context, tx pgx.Tx, incident *domain.Incident) error
	AppendActivityTx(ctx context.Context, tx pgx.Tx, entry *domain.ActivityEntry) error
}

// IncidentFilters holds filter options for listing incidents.
type IncidentFilters struct {
	Status     *domain.IncidentStatus
	Severity   *domain.Severity
	AssignedTo *string
	Limit      int
	Offset     int
}

// Stats holds aggregate incident counts.
type Stats struct {
	Total            int                           `json:"total"`
	ByStatus         map[domain.IncidentStatus]int `json:"by_status"`
	BySeverity       map[domain.Severity]int       `json:"by_severity"`
	FallbackAnalyses int                           `json:"fallback_analyses"`
}
