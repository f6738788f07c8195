// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package auth implements the client side of the vault session lifecycle.

It owns the persisted session record and every credential operation against
the remote API: login, registration, logout, refresh, profile fetch and
password recovery.

# Architecture

  - Identity: the user snapshot returned by the API.
  - Record: the persisted session (access credential, refresh credential,
    identity) on top of the key-value store.
  - Service: the credential operations; it keeps the record in sync with
    every server answer.
  - Forms: validation and normalisation of user input before any call.
*/
package auth

import (
	"time"

	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/sec"
)

// # Domain Entities

// Identity is the server-issued description of the current user.
//
// The role is fixed for the lifetime of a session.
type Identity struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          sec.Role  `json:"role"`
	IsActive      bool      `json:"isActive"`
	EmailVerified bool      `json:"emailVerified"`
	MFAEnabled    bool      `json:"mfaEnabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// IsAdmin reports whether the identity carries the admin role.
func (identity *Identity) IsAdmin() bool {
	return identity != nil && identity.Role == sec.RoleAdmin
}

// AuthPayload is what login, admin login and registration return.
type AuthPayload struct {
	User   Identity                 `json:"user"`
	Tokens apiclient.CredentialPair `json:"tokens"`
}

// # Field Identifiers

// Field names used in validation errors; they match the API's JSON names.
const (
	FieldEmail           = "email"
	FieldUsername        = "username"
	FieldPassword        = "password"
	FieldConfirmPassword = "confirmPassword"
	FieldToken           = "token"
)
