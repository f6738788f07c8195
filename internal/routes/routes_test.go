// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package routes_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/taibuivan/legacyvault/internal/platform/sec"
	"github.com/taibuivan/legacyvault/internal/routes"
	"github.com/taibuivan/legacyvault/internal/users/auth"
	"github.com/taibuivan/legacyvault/internal/users/session"
)

func signedIn(role sec.Role) session.State {
	return session.AuthenticatedState(auth.Identity{ID: "42", Username: "alice", Role: role})
}

/*
TestDecide verifies the guard for every phase and role combination.
*/
func TestDecide(t *testing.T) {
	tests := []struct {
		name      string
		required  sec.Role
		state     session.State
		requested string
		want      routes.Decision
	}{
		{"restoring_waits", sec.RoleUser, session.RestoringState(), "/dashboard",
			routes.Decision{Action: routes.ActionWait}},
		{"restoring_public_waits", sec.RoleNone, session.RestoringState(), "/login",
			routes.Decision{Action: routes.ActionWait}},
		{"anonymous_user_route", sec.RoleUser, session.AnonymousState(), "/profile",
			routes.Decision{Action: routes.ActionRedirect, Target: "/login", From: "/profile"}},
		{"anonymous_admin_route", sec.RoleAdmin, session.AnonymousState(), "/admin/panel",
			routes.Decision{Action: routes.ActionRedirect, Target: "/admin/login", From: "/admin/panel"}},
		{"anonymous_public", sec.RoleNone, session.AnonymousState(), "/register",
			routes.Decision{Action: routes.ActionRender, Target: "/register"}},
		{"user_on_admin_route", sec.RoleAdmin, signedIn(sec.RoleUser), "/admin/dashboard",
			routes.Decision{Action: routes.ActionRedirect, Target: "/dashboard"}},
		{"admin_on_user_route", sec.RoleUser, signedIn(sec.RoleAdmin), "/dashboard",
			routes.Decision{Action: routes.ActionRedirect, Target: "/admin/dashboard"}},
		{"user_on_user_route", sec.RoleUser, signedIn(sec.RoleUser), "/dashboard",
			routes.Decision{Action: routes.ActionRender, Target: "/dashboard"}},
		{"unknown_role_user_route", sec.RoleUser, signedIn(sec.Role("")), "/dashboard",
			routes.Decision{Action: routes.ActionRedirect, Target: "/login", From: "/dashboard"}},
		{"unknown_role_admin_route", sec.RoleAdmin, signedIn(sec.Role("moderator")), "/admin/dashboard",
			routes.Decision{Action: routes.ActionRedirect, Target: "/admin/login", From: "/admin/dashboard"}},
		{"admin_on_admin_route", sec.RoleAdmin, signedIn(sec.RoleAdmin), "/admin/email-settings",
			routes.Decision{Action: routes.ActionRender, Target: "/admin/email-settings"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, routes.Decide(tt.required, tt.state, tt.requested))
		})
	}
}

/*
TestDecide_NeverRendersWithoutRole verifies that no protected route renders for the wrong principal.
*/
func TestDecide_NeverRendersWithoutRole(t *testing.T) {
	states := []session.State{
		session.RestoringState(),
		session.AnonymousState(),
		signedIn(sec.RoleUser),
		signedIn(sec.RoleAdmin),
		signedIn(sec.Role("")),
	}

	for _, route := range routes.All() {
		if route.Public() {
			continue
		}
		for _, state := range states {
			decision := routes.Decide(route.Required, state, route.Path)
			if decision.Action == routes.ActionRender {
				assert.Equal(t, route.Required, state.Role(), route.Path)
			}
		}
	}
}

/*
TestResolve verifies lookup, path cleaning and the unknown-path fallback.
*/
func TestResolve(t *testing.T) {
	anonymous := session.AnonymousState()

	assert.Equal(t,
		routes.Decision{Action: routes.ActionRedirect, Target: "/"},
		routes.Resolve("/vault/secret", anonymous))

	assert.Equal(t,
		routes.Decision{Action: routes.ActionRedirect, Target: "/login", From: "/dashboard"},
		routes.Resolve("/dashboard/?tab=assets", anonymous))

	assert.Equal(t,
		routes.Decision{Action: routes.ActionRender, Target: "/"},
		routes.Resolve("", anonymous))

	route, found := routes.Lookup("/admin/panel")
	assert.True(t, found)
	assert.Equal(t, sec.RoleAdmin, route.Required)
}

/*
TestDashboardFor verifies the landing location per role.
*/
func TestDashboardFor(t *testing.T) {
	assert.Equal(t, "/dashboard", routes.DashboardFor(sec.RoleUser))
	assert.Equal(t, "/admin/dashboard", routes.DashboardFor(sec.RoleAdmin))
	assert.Equal(t, "/login", routes.LoginFor(sec.RoleUser))
	assert.Equal(t, "/admin/login", routes.LoginFor(sec.RoleAdmin))
}
