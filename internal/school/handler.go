package school

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

// Handler wires HTTP endpoints for school management.
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

// MountRoutes registers school routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Guard("school.create")).Post("/", h.create)
	r.With(h.guard.Guard("school.get")).Get("/{schoolID}", h.get)
	r.With(h.guard.Guard("school.update")).Put("/{schoolID}", h.update)
	r.With(h.guard.Guard("school.delete")).Delete("/{schoolID}", h.delete)
	r.With(h.guard.Guard("school.create_admin")).Post("/{schoolID}/admins", h.createAdmin)
}

type createSchoolRequest struct {
	Name        string `json:"name" validate:"required,min=3,max=100"`
	Code        string `json:"code" validate:"required,alphanum,min=2,max=10"`
	Address     string `json:"address" validate:"omitempty,max=255"`
	Phone       string `json:"phone" validate:"omitempty,max=30"`
	Email       string `json:"email" validate:"omitempty,email"`
	MaxCapacity int    `json:"maxCapacity" validate:"omitempty,min=0"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createSchoolRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	created, err := h.service.Create(r.Context(), actor, &School{
		Name:        req.Name,
		Code:        req.Code,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"school": created})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "schoolID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("school_not_found"))
		return
	}
	school, err := h.service.Get(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"school": school})
}

type updateSchoolRequest struct {
	Name        *string `json:"name" validate:"omitempty,min=3,max=100"`
	Code        *string `json:"code" validate:"omitempty,alphanum,min=2,max=10"`
	Address     *string `json:"address" validate:"omitempty,max=255"`
	Phone       *string `json:"phone" validate:"omitempty,max=30"`
	Email       *string `json:"email" validate:"omitempty,email"`
	MaxCapacity *int    `json:"maxCapacity" validate:"omitempty,min=0"`
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "schoolID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("school_not_found"))
		return
	}
	var req updateSchoolRequest
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
		Name:        req.Name,
		Code:        req.Code,
		Address:     req.Address,
		Phone:       req.Phone,
		Email:       req.Email,
		MaxCapacity: req.MaxCapacity,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"school": updated})
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "schoolID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("school_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	if err := h.service.Delete(r.Context(), actor, id); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

type createAdminRequest struct {
	FirstName string `json:"firstname" validate:"required,min=2,max=50"`
	LastName  string `json:"lastname" validate:"required,min=2,max=50"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *Handler) createAdmin(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "schoolID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("school_not_found"))
		return
	}
	var req createAdminRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	admin, err := h.service.CreateAdmin(r.Context(), actor, id, req.FirstName, req.LastName, req.Email, req.Password)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": admin})
}
