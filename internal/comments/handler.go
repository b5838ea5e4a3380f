package comments

import (
	"encoding/json"
	"net/http"

	"github.com/bissquit/incident-triage/internal/incidents"
	"github.com/bissquit/incident-triage/internal/pkg/httputil"
	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
)

// Handler handles HTTP requests for the comments module.
type Handler struct {
	service   *Service
	validator *validator.Validate
}

// NewHandler creates a new comments handler.
func NewHandler(service *Service) *Handler {
	return &Handler{
		service:   service,
		validator: validator.New(),
	}
}

// RegisterRoutes registers all HTTP routes for the comments module.
// The router is expected to be mounted at the incidents base path.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/{id}/comments", func(r chi.Router) {
		r.Get("/", h.ListComments)
		r.Post("/", h.AddComment)
	})
}

// AddCommentRequest represents the request body for adding a comment.
type AddCommentRequest struct {
	AuthorName string `json:"author_name" validate:"required,min=1,max=255"`
	Text       string `json:"text" validate:"required,min=1"`
}

// AddComment handles POST /incidents/{id}/comments.
func (h *Handler) AddComment(w http.ResponseWriter, r *http.Request) {
	var req AddCommentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httputil.Error(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httputil.ValidationError(w, err)
		return
	}

	comment, err := h.service.AddComment(r.Context(), chi.URLParam(r, "id"), req.AuthorName, req.Text)
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusCreated, comment)
}

// ListComments handles GET /incidents/{id}/comments.
func (h *Handler) ListComments(w http.ResponseWriter, r *http.Request) {
	list, err := h.service.ListComments(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		httputil.HandleError(r.Context(), w, err, h.errorMappings())
		return
	}
	httputil.Success(w, http.StatusOK, list)
}

func (h *Handler) errorMappings() []httputil.ErrorMapping {
	return []httputil.ErrorMapping{
		{Error: incidents.ErrIncidentNotFound, Status: http.StatusNotFound},
		{Error: ErrEmptyComment, Status: http.StatusBadRequest},
		{Error: ErrAuthorRequired, Status: http.StatusBadRequest},
	}
}
