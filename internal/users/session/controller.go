// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package session

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/users/auth"
)

// # Contracts

// Sessions is the slice of [auth.Service] the controller drives.
type Sessions interface {
	Login(ctx context.Context, input auth.LoginInput) (*auth.AuthPayload, error)
	AdminLogin(ctx context.Context, email, password string) (*auth.AuthPayload, error)
	Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthPayload, error)
	Logout(ctx context.Context)
	Refresh(ctx context.Context) error
	Profile(ctx context.Context) (*auth.Identity, error)
	CurrentIdentity(ctx context.Context) (*auth.Identity, bool)
	AccessCredential(ctx context.Context) (string, bool)
}

var _ Sessions = (*auth.Service)(nil)

// ErrRoleChanged is returned when the server reports a different role than
// the one the session was opened with.
var ErrRoleChanged = &apperr.AppError{
	Kind:       apperr.KindAuthorization,
	Code:       "ROLE_CHANGED",
	Message:    "Your access level has changed. Please sign in again.",
	HTTPStatus: 403,
}

// # Controller

// Controller is safe for concurrent use.
type Controller struct {
	sessions Sessions
	logger   *slog.Logger

	// mutation serialises restoration and every action.
	mutation sync.Mutex

	mu          sync.RWMutex
	state       State
	subscribers map[int]func(State)
	nextID      int

	restoreOnce sync.Once
	ready       chan struct{}
}

// NewController starts in [PhaseRestoring].
func NewController(sessions Sessions, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = slog.Default()
	}
	return &Controller{
		sessions:    sessions,
		logger:      logger.With(slog.String("component", "session")),
		state:       RestoringState(),
		subscribers: make(map[int]func(State)),
		ready:       make(chan struct{}),
	}
}

// Snapshot returns the current state.
func (controller *Controller) Snapshot() State {
	controller.mu.RLock()
	defer controller.mu.RUnlock()
	return controller.state
}

// Subscribe registers fn for every later transition and returns a function
// that removes it. fn runs synchronously on the writer's goroutine and must
// not call back into action methods.
func (controller *Controller) Subscribe(fn func(State)) (unsubscribe func()) {
	controller.mu.Lock()
	defer controller.mu.Unlock()

	id := controller.nextID
	controller.nextID++
	controller.subscribers[id] = fn

	return func() {
		controller.mu.Lock()
		defer controller.mu.Unlock()
		delete(controller.subscribers, id)
	}
}

// Ready is closed once restoration has settled.
func (controller *Controller) Ready() <-chan struct{} {
	return controller.ready
}

// update applies fn to the state and notifies subscribers.
// Callers hold the mutation lock, so notifications arrive in transition order.
func (controller *Controller) update(fn func(State) State) State {
	controller.mu.Lock()
	next := fn(controller.state)
	controller.state = next
	subscribers := make([]func(State), 0, len(controller.subscribers))
	for _, subscriber := range controller.subscribers {
		subscribers = append(subscribers, subscriber)
	}
	controller.mu.Unlock()

	for _, subscriber := range subscribers {
		subscriber(next)
	}
	return next
}

// set replaces the state, keeping the current loading flag.
func (controller *Controller) set(next State) {
	controller.update(func(current State) State {
		return next.withLoading(current.Loading)
	})
}

// # Restoration

/*
Restore runs the startup restoration protocol once and returns the settled state.

Later and concurrent calls wait for the first run. Restoration never fails:
every error path ends in [PhaseAnonymous].

 1. Without a persisted identity and access credential: Anonymous, no network.
 2. Otherwise: Authenticated with the persisted identity, then fetch the profile.
 3. Profile failure: refresh and fetch again; a second failure logs out.
 4. A profile whose role differs from the persisted one logs out.
*/
func (controller *Controller) Restore(ctx context.Context) State {
	controller.restoreOnce.Do(func() {
		defer close(controller.ready)
		controller.restore(ctx)
	})
	<-controller.ready
	return controller.Snapshot()
}

func (controller *Controller) restore(ctx context.Context) {
	controller.mutation.Lock()
	defer controller.mutation.Unlock()

	ctx, cancel := context.WithTimeout(ctx, constants.RestoreTimeout)
	defer cancel()

	controller.logger.DebugContext(ctx, "session_restore_started")

	// 1. Local check
	persisted, hasIdentity := controller.sessions.CurrentIdentity(ctx)
	_, hasAccess := controller.sessions.AccessCredential(ctx)
	if !hasIdentity || !hasAccess {
		controller.set(AnonymousState())
		controller.logger.InfoContext(ctx, "session_restore_anonymous",
			slog.Bool("has_identity", hasIdentity),
			slog.Bool("has_access_token", hasAccess),
		)
		return
	}

	// 2. Optimistic
	controller.set(AuthenticatedState(*persisted))

	// 3. Server-side validation
	fresh, err := controller.sessions.Profile(ctx)
	if err != nil {
		controller.logger.InfoContext(ctx, "session_restore_profile_failed", slog.String("error", err.Error()))

		if err = controller.sessions.Refresh(ctx); err == nil {
			fresh, err = controller.sessions.Profile(ctx)
		}
	}
	if err != nil {
		controller.sessions.Logout(ctx)
		controller.set(AnonymousState())
		controller.logger.InfoContext(ctx, "session_restore_failed",
			slog.String("kind", string(apperr.KindOf(err))),
			slog.String("error", err.Error()),
		)
		return
	}

	// 4. Role is fixed for the lifetime of a session
	if fresh.Role != persisted.Role {
		controller.sessions.Logout(ctx)
		controller.set(AnonymousState())
		controller.logger.WarnContext(ctx, "session_role_changed",
			slog.String("user_id", fresh.ID),
			slog.String("from", persisted.Role.String()),
			slog.String("to", fresh.Role.String()),
		)
		return
	}

	controller.set(AuthenticatedState(*fresh))
	controller.logger.InfoContext(ctx, "session_restored", slog.String("user_id", fresh.ID))
}

// # Actions

// dispatch runs one action under the mutation lock with the loading flag raised.
// The flag is cleared on every exit path.
func (controller *Controller) dispatch(ctx context.Context, action string, fn func() error) error {
	controller.mutation.Lock()
	defer controller.mutation.Unlock()

	controller.update(func(current State) State { return current.withLoading(true) })
	defer controller.update(func(current State) State { return current.withLoading(false) })

	err := fn()
	if err != nil {
		controller.logger.InfoContext(ctx, "session_action_failed",
			slog.String("action", action),
			slog.String("kind", string(apperr.KindOf(err))),
			slog.String("error", err.Error()),
		)
		if apperr.IsKind(err, apperr.KindAuthentication) {
			controller.set(AnonymousState())
		}
	}
	return err
}

// Login signs in with the user endpoint.
func (controller *Controller) Login(ctx context.Context, input auth.LoginInput) (*auth.AuthPayload, error) {
	return controller.establish(ctx, "login", func() (*auth.AuthPayload, error) {
		return controller.sessions.Login(ctx, input)
	})
}

// AdminLogin signs in with the admin endpoint.
func (controller *Controller) AdminLogin(ctx context.Context, email, password string) (*auth.AuthPayload, error) {
	return controller.establish(ctx, "admin_login", func() (*auth.AuthPayload, error) {
		return controller.sessions.AdminLogin(ctx, email, password)
	})
}

// Register creates an account and signs in.
func (controller *Controller) Register(ctx context.Context, input auth.RegisterInput) (*auth.AuthPayload, error) {
	return controller.establish(ctx, "register", func() (*auth.AuthPayload, error) {
		return controller.sessions.Register(ctx, input)
	})
}

func (controller *Controller) establish(ctx context.Context, action string, fn func() (*auth.AuthPayload, error)) (*auth.AuthPayload, error) {
	var payload *auth.AuthPayload
	err := controller.dispatch(ctx, action, func() error {
		var err error
		if payload, err = fn(); err != nil {
			return err
		}
		controller.set(AuthenticatedState(payload.User))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return payload, nil
}

// Logout always ends in [PhaseAnonymous].
func (controller *Controller) Logout(ctx context.Context) {
	_ = controller.dispatch(ctx, "logout", func() error {
		controller.sessions.Logout(ctx)
		controller.set(AnonymousState())
		return nil
	})
}

// Refresh renews the credential pair.
//
// A failed refresh has already logged the session out, so any failure ends
// in [PhaseAnonymous].
func (controller *Controller) Refresh(ctx context.Context) error {
	return controller.dispatch(ctx, "refresh", func() error {
		if err := controller.sessions.Refresh(ctx); err != nil {
			controller.set(AnonymousState())
			return err
		}
		return nil
	})
}

// SyncProfile re-fetches the identity from the server.
//
// A role different from the session's ends the session with [ErrRoleChanged].
func (controller *Controller) SyncProfile(ctx context.Context) (*auth.Identity, error) {
	var fresh *auth.Identity
	err := controller.dispatch(ctx, "sync_profile", func() error {
		identity, err := controller.sessions.Profile(ctx)
		if err != nil {
			return err
		}

		if current := controller.Snapshot(); current.Authenticated() && current.Role() != identity.Role {
			controller.sessions.Logout(ctx)
			controller.set(AnonymousState())
			controller.logger.WarnContext(ctx, "session_role_changed",
				slog.String("user_id", identity.ID),
				slog.String("from", current.Role().String()),
				slog.String("to", identity.Role.String()),
			)
			return ErrRoleChanged
		}

		fresh = identity
		controller.set(AuthenticatedState(*identity))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return fresh, nil
}
