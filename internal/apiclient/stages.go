// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"context"

	"github.com/google/uuid"
	"golang.org/x/time/rate"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/ctxutil"
)

// # Authorization

// withBearer attaches the access credential to every attempt.
//
// An explicit request token wins; otherwise the credential is read per
// attempt. The refresh stage sets the token of a retried request to the
// access credential it just minted.
func withBearer(credentials Credentials) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, request *Request) (*Response, error) {
			token := request.Token
			if token == "" && credentials != nil {
				token, _ = credentials.AccessToken(ctx)
			}

			if token != "" {
				request.Header().Set(constants.HeaderAuthorization, constants.BearerPrefix+token)
			} else {
				request.Header().Del(constants.HeaderAuthorization)
			}

			return next.Do(ctx, request)
		})
	}
}

// # Request Tracing

// withRequestID stamps each attempt with a correlation ID.
func withRequestID() Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, request *Request) (*Response, error) {

			// UUID v7 keeps IDs time-sortable in the logs
			requestID := uuid.NewString()
			if uuidV7, err := uuid.NewV7(); err == nil {
				requestID = uuidV7.String()
			}

			request.Header().Set(constants.HeaderXRequestID, requestID)
			return next.Do(ctxutil.WithRequestID(ctx, requestID), request)
		})
	}
}

// # Rate Limiting

// withRateLimit paces outbound attempts with a shared token bucket.
func withRateLimit(limiter *rate.Limiter) Middleware {
	return func(next Doer) Doer {
		return DoerFunc(func(ctx context.Context, request *Request) (*Response, error) {
			if err := limiter.Wait(ctx); err != nil {
				return nil, apperr.Network(err)
			}
			return next.Do(ctx, request)
		})
	}
}
