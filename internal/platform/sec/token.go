// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenInfo is the subset of registered JWT claims the client can display.
type TokenInfo struct {
	Subject   string
	Issuer    string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// ExpiresIn returns the time left before expiry, or 0 if the token has no
// expiry or has already expired.
func (info TokenInfo) ExpiresIn(now time.Time) time.Duration {
	if info.ExpiresAt.IsZero() || !now.Before(info.ExpiresAt) {
		return 0
	}
	return info.ExpiresAt.Sub(now)
}

// Expired reports whether the token carried an expiry that has passed.
func (info TokenInfo) Expired(now time.Time) bool {
	return !info.ExpiresAt.IsZero() && !now.Before(info.ExpiresAt)
}

// InspectToken decodes the registered claims of a JWT access token WITHOUT
// verifying its signature.
//
// # Security
//
// The client holds no verification key and treats credentials as opaque bearer
// strings. The result is informational only (status output) and must never
// drive an authorization decision. ok is false for tokens that are not JWTs.
func InspectToken(token string) (info TokenInfo, ok bool) {
	claims := &jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return TokenInfo{}, false
	}

	info.Subject = claims.Subject
	info.Issuer = claims.Issuer
	if claims.IssuedAt != nil {
		info.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		info.ExpiresAt = claims.ExpiresAt.Time
	}

	return info, true
}
