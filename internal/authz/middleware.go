package authz

import (
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/lyceum-app/lyceum/internal/platform/httpx"
	"github.com/lyceum-app/lyceum/internal/policy"
	"github.com/lyceum-app/lyceum/internal/ratelimit"
	"github.com/lyceum-app/lyceum/internal/shared"
	"github.com/lyceum-app/lyceum/internal/token"
)

// Middleware authenticates requests, applies the per-action policy table
// and enforces per-action rate limits, in that order.
type Middleware struct {
	Tokens   *token.Service
	Policies policy.Table
	Limiter  *ratelimit.Limiter
	Logger   *slog.Logger
}

// Guard returns the middleware chain element for one action. It panics on
// an unknown action so a missing policy entry fails at startup, not at
// request time.
func (m Middleware) Guard(action string) func(http.Handler) http.Handler {
	rule, ok := m.Policies.Rule(action)
	if !ok {
		panic(fmt.Sprintf("authz: action %q has no policy entry", action))
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			principal, err := m.authenticate(r)
			if len(rule.Roles) > 0 {
				if err != nil || principal == nil {
					httpx.RespondError(w, shared.ErrUnauthorized)
					return
				}
				if authzErr := Authorize(principal, rule.Roles, uuid.Nil); authzErr != nil {
					httpx.RespondError(w, authzErr)
					return
				}
			}

			if rule.RateLimit != nil {
				identity := clientIdentity(r, principal)
				res := m.Limiter.Allow(r.Context(), identity, action, *rule.RateLimit)
				w.Header().Set("X-RateLimit-Limit", strconv.Itoa(res.Limit))
				w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(res.Remaining))
				w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(res.Reset, 10))
				if !res.Allowed {
					httpx.RespondError(w, shared.ErrRateLimited)
					return
				}
			}

			if principal != nil {
				r = r.WithContext(shared.ContextWithPrincipal(r.Context(), principal))
			}
			next.ServeHTTP(w, r)
		})
	}
}

// Actions lists every action the table must cover; used with
// policy.Table.Validate at startup.
func (m Middleware) Actions() []string {
	actions := make([]string, 0, len(m.Policies))
	for action := range m.Policies {
		actions = append(actions, action)
	}
	return actions
}

// authenticate resolves the bearer token into a principal. Public actions
// still attach the principal when a valid token is supplied, so the rate
// limiter can key on user identity.
func (m Middleware) authenticate(r *http.Request) (*shared.Principal, error) {
	header := r.Header.Get("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return nil, shared.ErrUnauthorized
	}
	raw := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
	if raw == "" {
		return nil, shared.ErrUnauthorized
	}
	return m.Tokens.VerifyAccessToken(raw)
}

func clientIdentity(r *http.Request, p *shared.Principal) string {
	if p != nil {
		return p.UserID.String()
	}
	// Unauthenticated callers are keyed by network address; RealIP has
	// already normalised RemoteAddr.
	host := r.RemoteAddr
	if idx := strings.LastIndex(host, ":"); idx > 0 {
		host = host[:idx]
	}
	return host
}
