package classroom

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

// Handler wires HTTP endpoints for classroom management.
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

// MountRoutes registers classroom routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Guard("classroom.create")).Post("/", h.create)
	r.With(h.guard.Guard("classroom.list")).Get("/", h.list)
	r.With(h.guard.Guard("classroom.get")).Get("/{classroomID}", h.get)
	r.With(h.guard.Guard("classroom.update")).Put("/{classroomID}", h.update)
	r.With(h.guard.Guard("classroom.delete")).Delete("/{classroomID}", h.delete)
}

type createClassroomRequest struct {
	SchoolID  string   `json:"schoolId" validate:"required,uuid"`
	Name      string   `json:"name" validate:"required,min=2,max=100"`
	Capacity  int      `json:"capacity" validate:"required,min=1"`
	Resources []string `json:"resources" validate:"omitempty,dive,min=1"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createClassroomRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, &Classroom{
		SchoolID:  uuid.MustParse(req.SchoolID),
		Name:      req.Name,
		Capacity:  req.Capacity,
		Resources: req.Resources,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"classroom": created})
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

	classrooms, total, err := h.service.List(r.Context(), actor, schoolID, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"classrooms": classrooms,
		"pagination": shared.NewPagination(page.Page, page.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "classroomID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("classroom_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	c, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classroom": c})
}

type updateClassroomRequest struct {
	Name      *string   `json:"name" validate:"omitempty,min=2,max=100"`
	Capacity  *int      `json:"capacity" validate:"omitempty,min=1"`
	Resources *[]string `json:"resources" validate:"omitempty,dive,min=1"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "classroomID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("classroom_not_found"))
		return
	}
	var req updateClassroomRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	updated, err := h.service.Update(r.Context(), actor, id, Changes{
		Name:      req.Name,
		Capacity:  req.Capacity,
		Resources: req.Resources,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"classroom": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "classroomID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("classroom_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}
