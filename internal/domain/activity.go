package domain

import "time"

// ActivityType represents the kind of audit event recorded for an incident.
type ActivityType string

// Activity types.
const (
	ActivityTypeCreated       ActivityType = "created"
	ActivityTypeStatusChanged ActivityType = "status_changed"
	ActivityTypeAssigned      ActivityType = "assigned"
	ActivityTypeCommented     ActivityType = "commented"
)

// ActivityEntry is an append-only audit record of a lifecycle or
// collaboration event. Entries are never mutated or deleted.
type ActivityEntry struct {
	ID           string         `json:"id"`
	IncidentID   string         `json:"incident_id"`
	ActivityType ActivityType   `json:"activity_type"`
	ActorName    *string        `json:"actor_name,omitempty"`
	Description  string         `json:"description"`
	Detail       map[string]any `json:"detail,omitempty"`
	OccurredAt   time.Time      `json:"occurred_at"`
}

// Comment is a free-text collaboration entry attached to an incident.
type Comment struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incident_id"`
	AuthorName string    `json:"author_name"`
	Text       string    `json:"text"`
	CreatedAt  time.Time `json:"created_at"`
}
