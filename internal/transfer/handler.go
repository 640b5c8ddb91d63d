package transfer

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/platform/httpx"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Handler wires HTTP endpoints for the transfer workflow.
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

// MountRoutes registers transfer routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.With(h.guard.Guard("transfer.create")).Post("/", h.propose)
	r.With(h.guard.Guard("transfer.list")).Get("/", h.list)
	r.With(h.guard.Guard("transfer.get")).Get("/{requestID}", h.get)
	r.With(h.guard.Guard("transfer.approve")).Post("/{requestID}/approve", h.approve)
	r.With(h.guard.Guard("transfer.reject")).Post("/{requestID}/reject", h.reject)
}

type proposeRequest struct {
	StudentID     string `json:"studentId" validate:"required,uuid"`
	ToSchoolID    string `json:"toSchoolId" validate:"required,uuid"`
	ToClassroomID string `json:"toClassroomId" validate:"omitempty,uuid"`
}

func (h *Handler) propose(w http.ResponseWriter, r *http.Request) {
	var req proposeRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.RespondValidation(w, err)
		return
	}
	actor := shared.PrincipalFromContext(r.Context())

	toClassroomID := uuid.Nil
	if req.ToClassroomID != "" {
		toClassroomID = uuid.MustParse(req.ToClassroomID)
	}

	created, err := h.service.Propose(r.Context(), actor,
		uuid.MustParse(req.StudentID), uuid.MustParse(req.ToSchoolID), toClassroomID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{"transferRequest": created})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	actor := shared.PrincipalFromContext(r.Context())
	page := shared.PageFromRequest(r)

	requests, total, err := h.service.List(r.Context(), actor, page)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"transferRequests": requests,
		"pagination":       shared.NewPagination(page.Page, page.Limit, total),
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("transfer_request_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	tr, err := h.service.Get(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transferRequest": tr})
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.Approve)
}

func (h *Handler) reject(w http.ResponseWriter, r *http.Request) {
	h.resolve(w, r, h.service.Reject)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request, fn func(ctx context.Context, actor *shared.Principal, id uuid.UUID) (*TransferRequest, error)) {
	id, err := uuid.Parse(chi.URLParam(r, "requestID"))
	if err != nil {
		httpx.RespondError(w, shared.NotFound("transfer_request_not_found"))
		return
	}
	actor := shared.PrincipalFromContext(r.Context())
	tr, err := fn(r.Context(), actor, id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"transferRequest": tr})
}
