// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package sec_test

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/legacyvault/internal/platform/sec"
)

/*
TestRole_Valid verifies the closed set of assignable roles.
*/
func TestRole_Valid(t *testing.T) {
	assert.True(t, sec.RoleUser.Valid())
	assert.True(t, sec.RoleAdmin.Valid())
	assert.False(t, sec.RoleNone.Valid())
	assert.False(t, sec.Role("moderator").Valid())
	assert.Equal(t, "none", sec.RoleNone.String())
}

/*
TestInspectToken reads claims from a signed token without the key.
*/
func TestInspectToken(t *testing.T) {
	now := time.Now().Truncate(time.Second)
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "42",
		Issuer:    "vault.test",
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
	}).SignedString([]byte("unknown-to-the-client"))
	require.NoError(t, err)

	info, ok := sec.InspectToken(signed)
	require.True(t, ok)
	assert.Equal(t, "42", info.Subject)
	assert.Equal(t, "vault.test", info.Issuer)
	assert.Equal(t, 15*time.Minute, info.ExpiresIn(now))
	assert.False(t, info.Expired(now))
	assert.True(t, info.Expired(now.Add(time.Hour)))
	assert.Zero(t, info.ExpiresIn(now.Add(time.Hour)))
}

/*
TestInspectToken_Opaque verifies that non-JWT credentials are reported as such.
*/
func TestInspectToken_Opaque(t *testing.T) {
	_, ok := sec.InspectToken("A1")
	assert.False(t, ok)
}
