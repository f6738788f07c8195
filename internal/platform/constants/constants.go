// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package constants provides centralized, immutable values for the entire client.

It defines the API endpoints, client routes, persistent storage keys and
timeouts that are shared between different layers of the client.

Categories:

  - Endpoints: Paths of the remote vault API, relative to the base URL.
  - Routes: Client-visible locations gated by the route guard.
  - Storage: Keys of the persisted session record.

Using this package ensures Magic Strings and Magic Numbers are eliminated
from the business logic.
*/
package constants

import "time"

// # Metadata

const (
	AppName    = "legacyvault"
	AppVersion = "0.1.0-dev"
)

// # Timing

const (
	// LogoutNotifyTimeout bounds the best-effort server notification on logout.
	LogoutNotifyTimeout = 3 * time.Second

	// RestoreTimeout bounds the whole startup restoration protocol.
	RestoreTimeout = 30 * time.Second
)

// # API Endpoints

const (
	EndpointLogin          = "/auth/login"
	EndpointAdminLogin     = "/auth/admin/login"
	EndpointRegister       = "/auth/register"
	EndpointRefresh        = "/auth/refresh"
	EndpointLogout         = "/auth/logout"
	EndpointProfile        = "/auth/profile"
	EndpointForgotPassword = "/auth/forgot-password"
	EndpointResetPassword  = "/auth/reset-password"

	EndpointEmailSettings       = "/email/settings"
	EndpointEmailTestConnection = "/email/test-connection"
	EndpointEmailSendTest       = "/email/send-test"
)

// # Client Routes

const (
	RouteHome                = "/"
	RouteLogin               = "/login"
	RouteRegister            = "/register"
	RouteForgotPassword      = "/forgot-password"
	RouteResetPassword       = "/reset-password"
	RouteDashboard           = "/dashboard"
	RouteProfile             = "/profile"
	RouteAdminLogin          = "/admin/login"
	RouteAdminForgotPassword = "/admin/forgot-password"
	RouteAdminDashboard      = "/admin/dashboard"
	RouteAdminEmailSettings  = "/admin/email-settings"
	RouteAdminPanel          = "/admin/panel"
)

// # Persistent Storage Keys

const (
	StorageKeyAccessToken  = "accessToken"
	StorageKeyRefreshToken = "refreshToken"
	StorageKeyUser         = "user"

	// UI preference keys share the store but are outside the session record.
	StorageKeyTheme    = "theme"
	StorageKeyLanguage = "language"
)

// # HTTP Headers

const (
	HeaderAuthorization = "Authorization"
	HeaderContentType   = "Content-Type"
	HeaderXRequestID    = "X-Request-ID"
	HeaderUserAgent     = "User-Agent"

	BearerPrefix    = "Bearer "
	ContentTypeJSON = "application/json"
)
