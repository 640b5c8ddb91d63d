package auth

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/platform/httpx"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Handler wires HTTP endpoints for authentication flows.
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

// MountRoutes registers auth routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Guard("auth.setup")).Post("/setup", h.setup)
	r.With(h.guard.Guard("auth.login")).Post("/login", h.login)
	r.With(h.guard.Guard("auth.logout")).Post("/logout", h.logout)
	r.With(h.guard.Guard("auth.refresh")).Post("/refresh", h.refresh)
	r.With(h.guard.Guard("auth.me")).Get("/me", h.me)
}

type setupRequest struct {
	FirstName string `json:"firstname" validate:"required,min=1,max=100"`
	LastName  string `json:"lastname" validate:"required,min=1,max=100"`
	Email     string `json:"email" validate:"required,email"`
	Password  string `json:"password" validate:"required,min=8"`
}

func (h *Handler) setup(w http.ResponseWriter, r *http.Request) {
	var req setupRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	created, err := h.service.SetupSuperadmin(r.Context(), SetupInput{
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Email:     req.Email,
		Password:  req.Password,
	})
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"user": created})
}

type loginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	result, err := h.service.Login(r.Context(), req.Email, req.Password, r.UserAgent(), r.RemoteAddr)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":        result.User,
		"accessToken": result.AccessToken,
		"longToken":   result.LongToken,
	})
}

type longTokenRequest struct {
	LongToken string `json:"longToken" validate:"required"`
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	var req longTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.service.Logout(r.Context(), req.LongToken); err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"success": true})
}

func (h *Handler) refresh(w http.ResponseWriter, r *http.Request) {
	var req longTokenRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	accessToken, u, err := h.service.Refresh(r.Context(), req.LongToken)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"user":        u,
		"accessToken": accessToken,
	})
}

func (h *Handler) me(w http.ResponseWriter, r *http.Request) {
	actor := shared.PrincipalFromContext(r.Context())
	u, err := h.service.Me(r.Context(), actor)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"user": u})
}
