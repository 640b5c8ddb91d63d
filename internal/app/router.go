package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/lyceum-app/lyceum/internal/auth"
	"github.com/lyceum-app/lyceum/internal/authz"
	"github.com/lyceum-app/lyceum/internal/classroom"
	"github.com/lyceum-app/lyceum/internal/policy"
	"github.com/lyceum-app/lyceum/internal/school"
	"github.com/lyceum-app/lyceum/internal/student"
	"github.com/lyceum-app/lyceum/internal/transfer"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger           *slog.Logger
	Config           *Config
	Guard            authz.Middleware
	Policies         policy.Table
	AuthHandler      *auth.Handler
	SchoolHandler    *school.Handler
	ClassroomHandler *classroom.Handler
	StudentHandler   *student.Handler
	TransferHandler  *transfer.Handler
}

// NewRouter constructs the chi.Router. The policy table is checked against
// the guard's action set first so an uncovered action aborts startup.
func NewRouter(params RouterParams) (http.Handler, error) {
	if err := params.Policies.Validate(params.Guard.Actions()); err != nil {
		return nil, err
	}

	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Route("/auth", params.AuthHandler.MountRoutes)
		r.Route("/schools", params.SchoolHandler.MountRoutes)
		r.Route("/classrooms", params.ClassroomHandler.MountRoutes)
		r.Route("/students", params.StudentHandler.MountRoutes)
		r.Route("/transfer-requests", params.TransferHandler.MountRoutes)
	})

	return r, nil
}
