// Package incidents implements incident creation and lifecycle management.
package incidents

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/bissquit/incident-triage/internal/analysis"
	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/bissquit/incident-triage/internal/pkg/ctxlog"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// Service implements incident business logic.
type Service struct {
	repo      Repository
	analyzer  analysis.Analyzer
	aiTimeout time.Duration
}

// NewService creates a new incident service.
func NewService(repo Repository, analyzer analysis.Analyzer, aiTimeout time.Duration) *Service {
	if aiTimeout <= 0 {
		aiTimeout = 30 * time.Second
	}
	return &Service{
		repo:      repo,
		analyzer:  analyzer,
		aiTimeout: aiTimeout,
	}
}

// CreateIncidentInput holds data for creating an incident.
type CreateIncidentInput struct {
	Title        string
	Severity     string
	Description  string
	ReporterName string
}

// Create validates the input, obtains an AI analysis (degrading to the
// deterministic fallback on any analyzer failure) and persists the incident
// together with its `created` activity entry in one transaction.
//
// Creation never fails because the analyzer is unavailable; only bad input
// or a storage failure is surfaced to the caller.
func (s *Service) Create(ctx context.Context, input CreateIncidentInput) (*domain.Incident, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}
	description := strings.TrimSpace(input.Description)
	if description == "" {
		return nil, ErrDescriptionRequired
	}
	severity := domain.Severity(strings.ToLower(strings.TrimSpace(input.Severity)))
	if !severity.IsValid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidSeverity, input.Severity)
	}

	result := s.analyze(ctx, analysis.Request{
		Title:       title,
		Severity:    string(severity),
		Description: description,
	})

	incident := &domain.Incident{
		ID:          uuid.New().String(),
		Title:       title,
		Description: description,
		Severity:    severity,
		Status:      domain.IncidentStatusOpen,
		AssignedTo:  nil,
		Analysis:    result,
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

	if err := s.repo.CreateIncidentTx(ctx, tx, incident); err != nil {
		return nil, fmt.Errorf("create incident: %w", err)
	}

	entry := &domain.ActivityEntry{
		ID:           uuid.New().String(),
		IncidentID:   incident.ID,
		ActivityType: domain.ActivityTypeCreated,
		ActorName:    optionalName(input.ReporterName),
		Description:  fmt.Sprintf("Incident created: %s", title),
		Detail: map[string]any{
			"severity":      string(severity),
			"fallback_mode": result.Metadata.FallbackMode,
		},
	}
	if err := s.repo.AppendActivityTx(ctx, tx, entry); err != nil {
		return nil, fmt.Errorf("append activity: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	recordIncidentCreated(string(severity))

	return incident, nil
}

// analyze invokes the AI capability and normalizes whatever comes back.
// The analyzer call is bounded by the configured timeout; a timeout or
// error routes into the fallback branch instead of propagating.
func (s *Service) analyze(ctx context.Context, req analysis.Request) domain.AnalysisResult {
	aiCtx, cancel := context.WithTimeout(ctx, s.aiTimeout)
	defer cancel()

	start := time.Now()
	raw, err := s.analyzer.Analyze(aiCtx, req)
	recordAnalysisDuration(time.Since(start))

	if err != nil {
		ctxlog.FromContext(ctx).Warn("incident analysis failed, using fallback",
			"title", req.Title,
			"error", err,
		)
	}

	result := analysis.Normalize(req, raw, err)
	if result.Metadata.FallbackMode {
		recordAnalysisFallback()
	} else {
		recordAnalysisTokens(result.Metadata.TokensUsed)
	}
	return result
}

// GetIncident retrieves an incident by ID.
func (s *Service) GetIncident(ctx context.Context, id string) (*domain.Incident, error) {
	return s.repo.GetIncident(ctx, id)
}

// ListIncidents retrieves incidents with optional filters.
func (s *Service) ListIncidents(ctx context.Context, filters IncidentFilters) ([]*domain.Incident, error) {
	return s.repo.ListIncidents(ctx, filters)
}

// GetStats returns aggregate incident counts.
func (s *Service) GetStats(ctx context.Context) (*Stats, error) {
	return s.repo.GetStats(ctx)
}

// ListActivity returns the activity log for an incident, newest first.
func (s *Service) ListActivity(ctx context.Context, incidentID string) ([]*domain.ActivityEntry, error) {
	if _, err := s.repo.GetIncident(ctx, incidentID); err != nil {
		return nil, err
	}
	return s.repo.ListActivity(ctx, incidentID)
}

func optionalName(name string) *string {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil
	}
	return &name
}
