package incidents

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/bissquit/incident-triage/internal/domain"
	"github.com/bissquit/incident-triage/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Pagination constants.
const (
	DefaultIncidentsLimit = 20
	MaxIncidentsLimit     = 100
)

// Handler handles HTTP requests for the incidents module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new incidents handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the incidents module.
// The router is expected to be mounted at the incidents base path.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.ListIncidents)
	r.Post("/", h.CreateIncident)
	r.Get("/stats", h.GetStats)
	r.Get("/{id}", h.GetIncident)
	r.Patch("/{id}/status", h.ChangeStatus)
	r.Patch("/{id}/assignee", h.Assign)
	r.Get("/{id}/activity", h.ListActivity)
}

// CreateIncidentRequest represents the request body for creating an incident.
type CreateIncidentRequest struct {
	Title        string `json:"title" validate:"required,min=1,max=500"`
	Severity     string `json:"severity" validate:"required"`
	Description  string `json:"description" validate:"required,min=1"`
	ReporterName string `json:"reporter_name" validate:"omitempty,max=255"`
}

// ChangeStatusRequest represents the request body for a status transition.
type ChangeStatusRequest struct {
	Status    string `json:"status" validate:"required"`
	ActorName string `json:"actor_name" validate:"omitempty,max=255"`
}

// AssignRequest represents the request body for changing the assignee.
// A null assigned_to unassigns the incident.
type AssignRequest struct {
	AssignedTo *string `json:"assigned_to" validate:"omitempty,max=255"`
	ActorName  string  `json:"actor_name" validate:"omitempty,max=255"`
}

// CreateIncident handles POST /incidents.
func (h *Handler) CreateIncident(w http.ResponseWriter, r *http.Request) {
	var req CreateIncidentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.Create(r.Context(), CreateIncidentInput{
		Title:        req.Title,
		Severity:     req.Severity,
		Description:  req.Description,
		ReporterName: req.ReporterName,
	})
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}

	httputil.Success(w, http.StatusCreated, incident)
}

// GetIncident handles GET /incidents/{id}.
func (h *Handler) GetIncident(w http.ResponseWriter, r *http.Request) {
	incident, err := h.service.GetIncident(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// ListIncidents handles GET /incidents.
func (h *Handler) ListIncidents(w http.ResponseWriter, r *http.Request) {
	filters := IncidentFilters{
		Limit: DefaultIncidentsLimit,
	}

	if v := r.URL.Query().Get("status"); v != "" {
		status := domain.IncidentStatus(v)
		if !status.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid status filter")
			return
		}
		filters.Status = &status
	}
	if v := r.URL.Query().Get("severity"); v != "" {
		severity := domain.Severity(v)
		if !severity.IsValid() {
			httputil.Error(w, http.StatusBadRequest, "invalid severity filter")
			return
		}
		filters.Severity = &severity
	}
	if v := r.URL.Query().Get("assigned_to"); v != "" {
		filters.AssignedTo = &v
	}
	if v := r.URL.Query().Get("limit"); v != "" {
		limit, err := strconv.Atoi(v)
		if err != nil || limit < 1 {
			httputil.Error(w, http.StatusBadRequest, "invalid limit")
			return
		}
		if limit > MaxIncidentsLimit {
			limit = MaxIncidentsLimit
		}
		filters.Limit = limit
	}
	if v := r.URL.Query().Get("offset"); v != "" {
		offset, err := strconv.Atoi(v)
		if err != nil || offset < 0 {
			httputil.Error(w, http.StatusBadRequest, "invalid offset")
			return
		}
		filters.Offset = offset
	}

	incidents, err := h.service.ListIncidents(r.Context(), filters)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, incidents)
}

// GetStats handles GET /incidents/stats.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.GetStats(r.Context())
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, stats)
}

// ChangeStatus handles PATCH /incidents/{id}/status.
func (h *Handler) ChangeStatus(w http.ResponseWriter, r *http.Request) {
	var req ChangeStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.ChangeStatus(r.Context(), chi.URLParam(r, "id"),
		domain.IncidentStatus(req.Status), req.ActorName)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// Assign handles PATCH /incidents/{id}/assignee.
func (h *Handler) Assign(w http.ResponseWriter, r *http.Request) {
	var req AssignRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	incident, err := h.service.Assign(r.Context(), chi.URLParam(r, "id"),
		req.AssignedTo, req.ActorName)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, incident)
}

// ListActivity handles GET /incidents/{id}/activity.
func (h *Handler) ListActivity(w http.ResponseWriter, r *http.Request) {
	entries, err := h.service.ListActivity(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, entries)
}

func (h *Handler) errorMappings() []httputil.ErrorMapping {
	return []httputil.ErrorMapping{
		{Error: ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrTitleRequired, Status: http.StatusBadRequest},
		{Error: ErrDescriptionRequired, Status: http.StatusBadRequest},
		{Error: ErrInvalidSeverity, Status: http.StatusBadRequest},
		{Error: ErrInvalidStatus, Status: http.StatusBadRequest},
	}
}
