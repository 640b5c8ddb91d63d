// Package policy declares the per-action access rules in one table
// resolved at startup; the router refuses to boot when a registered
// action has no entry.
package policy

import (
	"fmt"
	"time"

	"github.com/lyceum-app/lyceum/internal/ratelimit"
	"github.com/lyceum-app/lyceum/internal/shared"
)

// Rule binds one action to its allowed roles and optional rate limit. An
// empty Roles slice means the action carries no role restriction.
type Rule struct {
	Roles     []shared.Role
	RateLimit *ratelimit.Limit
}

// Table maps action identifiers to rules.
type Table map[string]Rule

// Rule looks up the rule for an action.
func (t Table) Rule(action string) (Rule, bool) {
	rule, ok := t[action]
	return rule, ok
}

// Validate ensures every registered action has a policy entry.
func (t Table) Validate(actions []string) error {
	for _, action := range actions {
		if _, ok := t[action]; !ok {
			return fmt.Errorf("policy: action %q has no policy entry", action)
		}
	}
	return nil
}

var (
	anyAdmin   = []shared.Role{shared.RoleSuperadmin, shared.RoleSchoolAdmin}
	superadmin = []shared.Role{shared.RoleSuperadmin}
)

// Default returns the policy table for the whole API surface.
func Default() Table {
	return Table{
		// Public bootstrap and login endpoints are limited by caller IP.
		"auth.setup":   {RateLimit: &ratelimit.Limit{Window: time.Hour, Max: 5}},
		"auth.login":   {RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 10}},
		"auth.logout":  {},
		"auth.refresh": {RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 30}},
		"auth.me":      {Roles: anyAdmin},

		"school.create":       {Roles: superadmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 20}},
		"school.get":          {Roles: superadmin},
		"school.update":       {Roles: superadmin},
		"school.delete":       {Roles: superadmin},
		"school.create_admin": {Roles: superadmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 20}},

		"classroom.create": {Roles: anyAdmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 30}},
		"classroom.list":   {Roles: anyAdmin},
		"classroom.get":    {Roles: anyAdmin},
		"classroom.update": {Roles: anyAdmin},
		"classroom.delete": {Roles: anyAdmin},

		"student.create": {Roles: anyAdmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 30}},
		"student.list":   {Roles: anyAdmin},
		"student.get":    {Roles: anyAdmin},
		"student.update": {Roles: anyAdmin},
		"student.delete": {Roles: anyAdmin},

		"transfer.create":  {Roles: anyAdmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 10}},
		"transfer.list":    {Roles: anyAdmin},
		"transfer.get":     {Roles: anyAdmin},
		"transfer.approve": {Roles: anyAdmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 10}},
		"transfer.reject":  {Roles: anyAdmin, RateLimit: &ratelimit.Limit{Window: time.Minute, Max: 10}},
	}
}
