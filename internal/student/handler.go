package student

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/platform/httpx"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Handler wires HTTP endpoints for student management.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     authz.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard authz.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers student routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Guard("student.create")).Post("/", h.create)
	r.With(h.guard.Guard("student.list")).Get("/", h.list)
	r.With(h.guard.Guard("student.get")).Get("/{studentID}", h.get)
	r.With(h.guard.Guard("student.update")).Put("/{studentID}", h.update)
	r.With(h.guard.Guard("student.delete")).Delete("/{studentID}", h.delete)
}

type createStudentRequest struct {
	SchoolID    string `json:"schoolId" validate:"required,uuid"`
	FirstName   string `json:"firstname" validate:"required,min=1,max=100"`
	LastName    string `json:"lastname" validate:"required,min=1,max=100"`
	Email       string `json:"email" validate:"required,email"`
	ClassroomID string `json:"classroomId" validate:"omitempty,uuid"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())

	st := &Student{
		SchoolID:  uuid.MustParse(req.SchoolID),
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	if req.ClassroomID != "" {
		st.ClassroomID = uuid.MustParse(req.ClassroomID)
	}

	created, err := h.service.Create(r.Context(), actor, st)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"student": created})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.PrincipalFromContext(r.Context())
	page := shared.PageFromRequest(r)

	schoolID := uuid.Nil
	if raw := r.URL.Query().Get("schoolId"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			httpx.RespondError(w, shared.NotFound("school_not_found"))
			return
		}
		schoolID = parsed
	}

	students, total, err := h.service.List(r.Context(), actor, schoolID, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"students":   students,
		"pagination": shared.NewPagination(page.Page, page.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("student_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	st, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"student": st})
}

type updateStudentRequest struct {
	FirstName   *string `json:"firstname" validate:"omitempty,min=1,max=100"`
	LastName    *string `json:"lastname" validate:"omitempty,min=1,max=100"`
	Email       *string `json:"email" validate:"omitempty,email"`
	ClassroomID *string `json:"classroomId" validate:"omitempty,uuid"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("student_not_found"))
		return
	}
	var req updateStudentRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())

	changes := Changes{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
	}
	if req.ClassroomID != nil {
		parsed := uuid.MustParse(*req.ClassroomID)
		changes.ClassroomID = &parsed
	}

	updated, err := h.service.Update(r.Context(), actor, id, changes)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"student": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "studentID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("student_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
