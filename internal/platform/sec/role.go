// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

// Package sec holds the security vocabulary shared by the session layer:
// principal roles and read-only inspection of bearer tokens.
package sec

// # User Roles

// Role represents the authorization level granted to an identity.
//
// A role is fixed for the lifetime of a session; a change requires signing in again.
type Role string

const (
	// RoleNone marks a route that any visitor may open.
	RoleNone Role = ""

	// Full access to the administrative panel and email configuration
	RoleAdmin Role = "admin"

	// Default role for registered vault owners
	RoleUser Role = "user"
)

// Valid reports whether r is one of the roles the API can assign.
func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleUser
}

// String implements fmt.Stringer.
func (r Role) String() string {
	if r == RoleNone {
		return "none"
	}
	return string(r)
}
