// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apperr_test

import (
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
)

/*
TestKind_Constructors verifies that each constructor lands in the right class.
*/
func TestKind_Constructors(t *testing.T) {
	tests := []struct {
		name   string
		err    *apperr.AppError
		kind   apperr.Kind
		status int
	}{
		{"validation", apperr.ValidationError("bad"), apperr.KindValidation, 0},
		{"unauthorized", apperr.Unauthorized("no"), apperr.KindAuthentication, http.StatusUnauthorized},
		{"session_expired", apperr.SessionExpired(nil), apperr.KindAuthentication, http.StatusUnauthorized},
		{"forbidden", apperr.Forbidden("no"), apperr.KindAuthorization, http.StatusForbidden},
		{"not_found", apperr.NotFound("gone"), apperr.KindNotFound, http.StatusNotFound},
		{"network", apperr.Network(errors.New("dial")), apperr.KindNetwork, 0},
		{"server", apperr.Server(502, "later", nil), apperr.KindServer, 502},
		{"rejected", apperr.Rejected(409, "taken"), apperr.KindRejected, 409},
		{"storage", apperr.Storage(errors.New("quota")), apperr.KindStorage, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.kind, tt.err.Kind)
			assert.Equal(t, tt.status, tt.err.HTTPStatus)
			assert.True(t, apperr.IsKind(tt.err, tt.kind))
		})
	}
}

/*
TestAs_Wrapped verifies that AppErrors are found through fmt.Errorf wrapping.
*/
func TestAs_Wrapped(t *testing.T) {
	cause := errors.New("connection refused")
	wrapped := fmt.Errorf("profile: %w", apperr.Network(cause))

	ae := apperr.As(wrapped)
	require.NotNil(t, ae)
	assert.Equal(t, apperr.KindNetwork, ae.Kind)
	assert.ErrorIs(t, wrapped, cause)

	assert.Nil(t, apperr.As(errors.New("plain")))
	assert.Equal(t, apperr.KindServer, apperr.KindOf(errors.New("plain")))
	assert.Equal(t, apperr.KindNetwork, apperr.KindOf(wrapped))
}
