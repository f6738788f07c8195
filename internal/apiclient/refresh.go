// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
)

// refreshKey is the single-flight key shared by every concurrent refresh.
const refreshKey = "refresh"

// defaultRefreshTimeout bounds the shared exchange when no client timeout is set.
const defaultRefreshTimeout = 10 * time.Second

// ErrSessionSuperseded is returned by [Client.RefreshCredentials] when the
// session was logged out or replaced while the exchange was in flight.
var ErrSessionSuperseded = &apperr.AppError{
	Kind:       apperr.KindAuthentication,
	Code:       "SESSION_SUPERSEDED",
	Message:    "Session ended during refresh",
	HTTPStatus: http.StatusUnauthorized,
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

type refreshData struct {
	Tokens CredentialPair `json:"tokens"`
}

// # Refresh-on-401

// withRefresh is the outermost stage.
//
// A 401 on a request that has not been retried triggers one refresh; on
// success the request is re-sent through the inner stages carrying the pair
// the exchange returned, whether or not it could be persisted. A refresh the
// server rejects purges the credentials and navigates to login. A refresh
// that never got an answer, or that this caller stopped waiting for, says
// nothing about the session and leaves it alone. A refresh overtaken by a
// logout or a new login re-sends with whatever is stored and touches nothing.
// A 401 on the retried attempt is returned as-is.
func (client *Client) withRefresh() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, request *Request) (*Response, error) {
			response, err := next.Do(ctx, request)
			if err != nil || response.StatusCode != http.StatusUnauthorized {
				return response, err
			}
			if request.SkipRefresh || request.retried {
				return response, nil
			}

			request.retried = true

			pair, refreshErr := client.RefreshCredentials(ctx)
			if errors.Is(refreshErr, ErrSessionSuperseded) {
				// Whoever replaced the session owns it now; resend with what is stored
				request.Token = ""
				return next.Do(ctx, request)
			}
			if refreshErr != nil && (ctx.Err() != nil || apperr.IsKind(refreshErr, apperr.KindNetwork)) {
				client.logger.WarnContext(ctx, "api_refresh_unanswered",
					slog.String("path", request.Path),
					slog.String("error", refreshErr.Error()),
				)
				return nil, refreshErr
			}
			if refreshErr != nil {
				client.logger.WarnContext(ctx, "api_session_expired",
					slog.String("path", request.Path),
					slog.String("error", refreshErr.Error()),
				)
				if client.credentials != nil {
					client.credentials.Purge(ctx)
				}
				client.navigator.Navigate(constants.RouteLogin)
				return nil, apperr.SessionExpired(refreshErr)
			}

			request.Token = pair.AccessToken
			return next.Do(ctx, request)
		})
	}
}

// RefreshCredentials exchanges the stored refresh credential for a new pair
// and persists it.
//
// Concurrent callers share a single in-flight exchange and all observe its
// outcome. The exchange is bounded by the client timeout, not by any one
// caller: a caller whose context ends first gets a network error while the
// exchange carries on for the others. The call goes through the raw
// transport: no bearer, no refresh.
func (client *Client) RefreshCredentials(ctx context.Context) (CredentialPair, error) {
	results := client.refreshGroup.DoChan(refreshKey, func() (any, error) {
		exchangeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), client.refreshTimeout)
		defer cancel()
		return client.refresh(exchangeCtx)
	})

	select {
	case <-ctx.Done():
		client.logger.DebugContext(ctx, "api_refresh_abandoned", slog.String("error", ctx.Err().Error()))
		return CredentialPair{}, apperr.Network(ctx.Err())
	case result := <-results:
		if result.Shared {
			client.logger.DebugContext(ctx, "api_refresh_shared")
		}
		if result.Err != nil {
			return CredentialPair{}, result.Err
		}
		return result.Val.(CredentialPair), nil
	}
}

func (client *Client) refresh(ctx context.Context) (CredentialPair, error) {

	// 1. Without a refresh credential there is nothing to exchange
	if client.credentials == nil {
		return CredentialPair{}, apperr.Unauthorized("No refresh token available")
	}
	refreshToken, ok := client.credentials.RefreshToken(ctx)
	if !ok || refreshToken == "" {
		return CredentialPair{}, apperr.Unauthorized("No refresh token available")
	}

	// 2. Exchange
	request := &Request{
		Method:      http.MethodPost,
		Path:        constants.EndpointRefresh,
		Body:        refreshRequest{RefreshToken: refreshToken},
		SkipRefresh: true,
	}
	data, err := decode[refreshData](client.raw.Do(ctx, request))
	if err != nil {
		return CredentialPair{}, err
	}
	if !data.Tokens.Complete() {
		return CredentialPair{}, apperr.Server(http.StatusOK, "Token refresh failed", nil)
	}

	// 3. Persist, unless the session changed hands meanwhile
	switch client.credentials.RotateTokens(ctx, refreshToken, data.Tokens) {
	case RotationSuperseded:
		client.logger.InfoContext(ctx, "api_refresh_superseded")
		return CredentialPair{}, ErrSessionSuperseded
	case RotationUnpersisted:
		client.logger.WarnContext(ctx, "api_refresh_store_failed")
	}

	client.logger.InfoContext(ctx, "api_credentials_refreshed")
	return data.Tokens, nil
}
