// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package session holds the single source of truth for "who is signed in".

# Architecture

A [Controller] owns the [State] and is its only writer. Readers take a
[Controller.Snapshot] or [Controller.Subscribe] to transitions; writers go
through the action methods, which are serialised so that session mutations
never interleave.

	Restoring ──► Authenticated(identity) ──► Anonymous
	    │                  ▲                     │
	    └──────────────────┴─────── login ◄──────┘
*/
package session

import (
	"github.com/taibuivan/legacyvault/internal/platform/sec"
	"github.com/taibuivan/legacyvault/internal/users/auth"
)

// Phase is the coarse session state.
type Phase string

const (
	PhaseRestoring     Phase = "restoring"
	PhaseAuthenticated Phase = "authenticated"
	PhaseAnonymous     Phase = "anonymous"
)

// State is an immutable snapshot of the session.
//
// States are built only through [RestoringState], [AuthenticatedState] and
// [AnonymousState], so the phase is authenticated exactly when an identity is
// present. The Identity must not be modified.
type State struct {
	Phase    Phase
	Identity *auth.Identity
	Loading  bool
}

// RestoringState is the initial state, before the persisted session is checked.
func RestoringState() State {
	return State{Phase: PhaseRestoring}
}

// AuthenticatedState holds a copy of identity.
func AuthenticatedState(identity auth.Identity) State {
	return State{Phase: PhaseAuthenticated, Identity: &identity}
}

// AnonymousState is the signed-out state.
func AnonymousState() State {
	return State{Phase: PhaseAnonymous}
}

// Authenticated reports whether an identity is present.
func (state State) Authenticated() bool {
	return state.Identity != nil
}

// Role returns the identity's role, or [sec.RoleNone].
func (state State) Role() sec.Role {
	if state.Identity == nil {
		return sec.RoleNone
	}
	return state.Identity.Role
}

func (state State) withLoading(loading bool) State {
	state.Loading = loading
	return state
}
