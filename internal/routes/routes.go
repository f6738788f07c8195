// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package routes is the route guard: it decides, from the session state alone,
whether a client location may be shown.

# Decisions

  - Wait:     the session is still restoring; show a neutral placeholder.
  - Redirect: send the user elsewhere (login, or the dashboard of their role).
  - Render:   show the requested location.

The guard is a pure function of its inputs. It never calls the API or the store.
*/
package routes

import (
	"strings"

	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/sec"
	"github.com/taibuivan/legacyvault/internal/users/session"
)

// # Route Table

// Route is one client location and the role it requires.
type Route struct {
	Path     string
	Title    string
	Required sec.Role
}

// Public reports whether the route needs no session.
func (route Route) Public() bool {
	return route.Required == sec.RoleNone
}

var table = []Route{
	{Path: constants.RouteHome, Title: "Home"},
	{Path: constants.RouteLogin, Title: "Sign in"},
	{Path: constants.RouteRegister, Title: "Create account"},
	{Path: constants.RouteForgotPassword, Title: "Forgot password"},
	{Path: constants.RouteResetPassword, Title: "Reset password"},
	{Path: constants.RouteAdminLogin, Title: "Admin sign in"},
	{Path: constants.RouteAdminForgotPassword, Title: "Admin forgot password"},

	{Path: constants.RouteDashboard, Title: "Dashboard", Required: sec.RoleUser},
	{Path: constants.RouteProfile, Title: "Profile", Required: sec.RoleUser},

	{Path: constants.RouteAdminDashboard, Title: "Admin dashboard", Required: sec.RoleAdmin},
	{Path: constants.RouteAdminEmailSettings, Title: "Email settings", Required: sec.RoleAdmin},
	{Path: constants.RouteAdminPanel, Title: "Admin panel", Required: sec.RoleAdmin},
}

var byPath = func() map[string]Route {
	index := make(map[string]Route, len(table))
	for _, route := range table {
		index[route.Path] = route
	}
	return index
}()

// All returns the route table in display order.
func All() []Route {
	return append([]Route(nil), table...)
}

// Lookup finds the route for path. Query strings and a trailing slash are ignored.
func Lookup(path string) (Route, bool) {
	route, found := byPath[clean(path)]
	return route, found
}

func clean(path string) string {
	if index := strings.IndexAny(path, "?#"); index >= 0 {
		path = path[:index]
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	if path == "" {
		return constants.RouteHome
	}
	return path
}

// # Guard

// Action is what the client should do with a requested location.
type Action string

const (
	ActionRender   Action = "render"
	ActionWait     Action = "wait"
	ActionRedirect Action = "redirect"
)

// Decision is the guard's answer.
//
// For a redirect to a login page From holds the originally requested location,
// so the login flow can return there.
type Decision struct {
	Action Action
	Target string
	From   string
}

// DashboardFor returns the landing location of role.
func DashboardFor(role sec.Role) string {
	if role == sec.RoleAdmin {
		return constants.RouteAdminDashboard
	}
	return constants.RouteDashboard
}

// LoginFor returns the sign-in location that grants role.
func LoginFor(role sec.Role) string {
	if role == sec.RoleAdmin {
		return constants.RouteAdminLogin
	}
	return constants.RouteLogin
}

/*
Decide gates a location that requires role.

Parameters:
  - required: sec.Role (RoleNone for public locations)
  - state: session.State
  - requested: string (the location being opened)

Returns:
  - Decision: Wait while restoring; Redirect to login when anonymous or the
    identity carries no known role; Redirect to the own dashboard on a role
    mismatch; otherwise Render
*/
func Decide(required sec.Role, state session.State, requested string) Decision {
	if state.Phase == session.PhaseRestoring {
		return Decision{Action: ActionWait}
	}

	if required == sec.RoleNone {
		return Decision{Action: ActionRender, Target: requested}
	}

	if !state.Authenticated() || !state.Role().Valid() {
		return Decision{Action: ActionRedirect, Target: LoginFor(required), From: requested}
	}

	if state.Role() != required {
		return Decision{Action: ActionRedirect, Target: DashboardFor(state.Role())}
	}

	return Decision{Action: ActionRender, Target: requested}
}

// Resolve looks path up and gates it. Unknown locations redirect home.
func Resolve(path string, state session.State) Decision {
	route, found := Lookup(path)
	if !found {
		return Decision{Action: ActionRedirect, Target: constants.RouteHome}
	}
	return Decide(route.Required, state, route.Path)
}
