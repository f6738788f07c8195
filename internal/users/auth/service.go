// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/sec"
)

// # Contracts & Types

// Service implements the session use cases against the remote API.
//
// Every successful credential operation leaves the [Record] consistent with
// the server's answer; every failed one leaves it either untouched or purged.
type Service struct {
	client        *apiclient.Client
	record        *Record
	logger        *slog.Logger
	notifyTimeout time.Duration
}

// NewService constructs a [Service].
func NewService(client *apiclient.Client, record *Record, logger *slog.Logger) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		client:        client,
		record:        record,
		logger:        logger.With(slog.String("component", "auth")),
		notifyTimeout: constants.LogoutNotifyTimeout,
	}
}

// # Request Payloads

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe,omitempty"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type logoutRequest struct {
	RefreshToken string `json:"refreshToken,omitempty"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

type profileData struct {
	User Identity `json:"user"`
}

// # Authentication Flow

// LoginInput holds validated credentials; see [LoginForm].
type LoginInput struct {
	Email      string
	Password   string
	RememberMe bool
}

/*
Login authenticates with the user endpoint and persists the session.

Parameters:
  - ctx: context.Context
  - input: LoginInput

Returns:
  - *AuthPayload: Identity and credential pair
  - error: Authentication (record purged), Network, Server or Rejected
*/
func (service *Service) Login(ctx context.Context, input LoginInput) (*AuthPayload, error) {
	payload, err := apiclient.Call[AuthPayload](ctx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointLogin,
		Body:        loginRequest(input),
		SkipRefresh: true,
	})
	return service.establish(ctx, "login", payload, err)
}

/*
AdminLogin is [Service.Login] against the admin endpoint.

The role is not checked here; the route guard enforces it.
*/
func (service *Service) AdminLogin(ctx context.Context, email, password string) (*AuthPayload, error) {
	payload, err := apiclient.Call[AuthPayload](ctx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointAdminLogin,
		Body:        loginRequest{Email: email, Password: password},
		SkipRefresh: true,
	})
	return service.establish(ctx, "admin_login", payload, err)
}

// RegisterInput holds validated enrolment data; see [RegisterForm].
type RegisterInput struct {
	Email    string
	Username string
	Password string
}

/*
Register creates an account and persists the resulting session.

Parameters:
  - ctx: context.Context
  - input: RegisterInput

Returns:
  - *AuthPayload: Identity and credential pair
  - error: Rejected (e.g. email taken), Authentication, Network or Server
*/
func (service *Service) Register(ctx context.Context, input RegisterInput) (*AuthPayload, error) {
	payload, err := apiclient.Call[AuthPayload](ctx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointRegister,
		Body:        registerRequest(input),
		SkipRefresh: true,
	})
	return service.establish(ctx, "register", payload, err)
}

// establish persists a fresh session or reports why there is none.
func (service *Service) establish(ctx context.Context, operation string, payload AuthPayload, err error) (*AuthPayload, error) {
	if err != nil {
		service.logger.InfoContext(ctx, "auth_"+operation+"_failed",
			slog.String("kind", string(apperr.KindOf(err))),
			slog.String("error", err.Error()),
		)

		// A rejected credential must not leave an older session behind
		if apperr.IsKind(err, apperr.KindAuthentication) {
			service.record.Purge(ctx)
		}
		return nil, err
	}

	if payload.User.ID == "" || !payload.Tokens.Complete() {
		return nil, apperr.Server(http.StatusOK, "Authentication failed. Please try again later.", nil)
	}

	if !service.record.Save(ctx, payload) {
		service.logger.WarnContext(ctx, "auth_session_not_persisted", slog.String("operation", operation))
	}

	service.logger.InfoContext(ctx, "auth_"+operation+"_succeeded",
		slog.String("user_id", payload.User.ID),
		slog.String("role", payload.User.Role.String()),
	)
	return &payload, nil
}

/*
Logout ends the session locally, then tells the server.

The record is purged before any network activity, so the user is logged out
even when the server is unreachable. The notification carries the captured
credentials, is bounded by a short timeout and never fails the caller.
*/
func (service *Service) Logout(ctx context.Context) {

	// 1. Capture what the server needs to revoke, then forget it locally
	accessToken, hasAccess := service.record.AccessToken(ctx)
	refreshToken, _ := service.record.RefreshToken(ctx)
	service.record.Purge(ctx)
	service.logger.InfoContext(ctx, "auth_logout")

	if !hasAccess {
		return
	}

	// 2. Best-effort notification; it outlives a cancelled caller but not the timeout
	notifyCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), service.notifyTimeout)
	defer cancel()

	_, err := apiclient.Call[struct{}](notifyCtx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointLogout,
		Body:        logoutRequest{RefreshToken: refreshToken},
		Token:       accessToken,
		SkipRefresh: true,
	})
	if err != nil {
		service.logger.WarnContext(ctx, "auth_logout_notify_failed", slog.String("error", err.Error()))
	}
}

/*
Refresh exchanges the refresh credential for a new pair.

With no stored refresh credential it fails without a network call. On any
failure the session is logged out and the error is returned, except when the
session was already ended or replaced during the exchange, or when the caller
stopped waiting for it.
*/
func (service *Service) Refresh(ctx context.Context) error {
	_, err := service.client.RefreshCredentials(ctx)
	if err == nil {
		return nil
	}

	service.logger.InfoContext(ctx, "auth_refresh_failed", slog.String("error", err.Error()))
	if !errors.Is(err, apiclient.ErrSessionSuperseded) && ctx.Err() == nil {
		service.Logout(ctx)
	}
	return err
}

// # Identity

/*
Profile fetches the current identity and overwrites the persisted snapshot.

Returns:
  - *Identity: Fresh identity
  - error: Authentication, Network, Server, ...
*/
func (service *Service) Profile(ctx context.Context) (*Identity, error) {
	data, err := apiclient.Call[profileData](ctx, service.client, &apiclient.Request{
		Method: http.MethodGet,
		Path:   constants.EndpointProfile,
	})
	if err != nil {
		return nil, err
	}
	if data.User.ID == "" {
		return nil, apperr.Server(http.StatusOK, "Failed to get profile", nil)
	}

	service.record.StoreIdentity(ctx, data.User)
	return &data.User, nil
}

// CurrentIdentity reads the persisted identity. No network.
func (service *Service) CurrentIdentity(ctx context.Context) (*Identity, bool) {
	return service.record.Identity(ctx)
}

// AccessCredential reads the persisted access credential. No network.
func (service *Service) AccessCredential(ctx context.Context) (string, bool) {
	return service.record.AccessToken(ctx)
}

// AccessCredentialExpiry reads the expiry of the persisted access credential.
//
// It reports false when there is no credential or it carries no readable expiry.
func (service *Service) AccessCredentialExpiry(ctx context.Context) (time.Time, bool) {
	token, found := service.record.AccessToken(ctx)
	if !found {
		return time.Time{}, false
	}
	info, ok := sec.InspectToken(token)
	if !ok || info.ExpiresAt.IsZero() {
		return time.Time{}, false
	}
	return info.ExpiresAt, true
}

// # Password Recovery

// ForgotPassword asks the server to send a reset link and returns its message.
func (service *Service) ForgotPassword(ctx context.Context, email string) (string, error) {
	return apiclient.CallMessage(ctx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointForgotPassword,
		Body:        forgotPasswordRequest{Email: email},
		SkipRefresh: true,
	})
}

// ResetPassword sets a new password with a reset token and returns the server message.
func (service *Service) ResetPassword(ctx context.Context, token, password string) (string, error) {
	return apiclient.CallMessage(ctx, service.client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointResetPassword,
		Body:        resetPasswordRequest{Token: token, Password: password},
		SkipRefresh: true,
	})
}
