// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package auth

import (
	"context"
	"log/slog"
	"sync"

	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/storage"
)

// # Session Record

// Record is the persisted session: three keys in the shared store.
//
// A record with any key missing reads as "no session". Record implements
// [apiclient.Credentials].
type Record struct {
	store  *storage.Store
	logger *slog.Logger

	// writes serialises every mutation of the three keys
	writes sync.Mutex
}

var _ apiclient.Credentials = (*Record)(nil)

// NewRecord binds a record to store.
func NewRecord(store *storage.Store, logger *slog.Logger) *Record {
	if logger == nil {
		logger = slog.Default()
	}
	return &Record{store: store, logger: logger.With(slog.String("component", "session_record"))}
}

// AccessToken returns the persisted access credential.
func (record *Record) AccessToken(ctx context.Context) (string, bool) {
	return record.token(ctx, constants.StorageKeyAccessToken)
}

// RefreshToken returns the persisted refresh credential.
func (record *Record) RefreshToken(ctx context.Context) (string, bool) {
	return record.token(ctx, constants.StorageKeyRefreshToken)
}

func (record *Record) token(ctx context.Context, key string) (string, bool) {
	token, found := storage.Get[string](ctx, record.store, key)
	if !found || token == "" {
		return "", false
	}
	return token, true
}

// Identity returns the persisted identity snapshot.
func (record *Record) Identity(ctx context.Context) (*Identity, bool) {
	identity, found := storage.Get[Identity](ctx, record.store, constants.StorageKeyUser)
	if !found || identity.ID == "" {
		return nil, false
	}
	return &identity, true
}

// StoreTokens replaces both credentials.
//
// If either write fails both are removed, so a half-written pair never survives.
func (record *Record) StoreTokens(ctx context.Context, pair apiclient.CredentialPair) bool {
	record.writes.Lock()
	defer record.writes.Unlock()
	return record.storeTokens(ctx, pair)
}

func (record *Record) storeTokens(ctx context.Context, pair apiclient.CredentialPair) bool {
	if record.store.Set(ctx, constants.StorageKeyAccessToken, pair.AccessToken) &&
		record.store.Set(ctx, constants.StorageKeyRefreshToken, pair.RefreshToken) {
		return true
	}

	record.store.Remove(ctx, constants.StorageKeyAccessToken)
	record.store.Remove(ctx, constants.StorageKeyRefreshToken)
	return false
}

/*
RotateTokens replaces the pair only if previousRefresh is still the stored
refresh credential.

A logout or a new login that happened while the exchange was in flight wins:
the refreshed pair is dropped and [apiclient.RotationSuperseded] is returned.
A failed write leaves no partial session: all three keys are removed and
[apiclient.RotationUnpersisted] is returned.
*/
func (record *Record) RotateTokens(ctx context.Context, previousRefresh string, pair apiclient.CredentialPair) apiclient.Rotation {
	record.writes.Lock()
	defer record.writes.Unlock()

	if current, found := record.token(ctx, constants.StorageKeyRefreshToken); !found || current != previousRefresh {
		return apiclient.RotationSuperseded
	}
	if !record.storeTokens(ctx, pair) {
		record.purge(ctx)
		return apiclient.RotationUnpersisted
	}
	return apiclient.RotationStored
}

// StoreIdentity overwrites the identity snapshot.
func (record *Record) StoreIdentity(ctx context.Context, identity Identity) bool {
	record.writes.Lock()
	defer record.writes.Unlock()
	return record.store.Set(ctx, constants.StorageKeyUser, identity)
}

// Save persists a full session.
//
// All three keys are written; on any failure all three are removed.
func (record *Record) Save(ctx context.Context, payload AuthPayload) bool {
	record.writes.Lock()
	defer record.writes.Unlock()

	if record.storeTokens(ctx, payload.Tokens) && record.store.Set(ctx, constants.StorageKeyUser, payload.User) {
		return true
	}

	record.logger.WarnContext(ctx, "session_record_save_failed")
	record.purge(ctx)
	return false
}

// Purge removes the three session keys. Other keys (UI preferences) survive.
func (record *Record) Purge(ctx context.Context) {
	record.writes.Lock()
	defer record.writes.Unlock()
	record.purge(ctx)
}

func (record *Record) purge(ctx context.Context) {
	record.store.Remove(ctx, constants.StorageKeyAccessToken)
	record.store.Remove(ctx, constants.StorageKeyRefreshToken)
	record.store.Remove(ctx, constants.StorageKeyUser)
}

// Complete reports whether all three keys are present.
func (record *Record) Complete(ctx context.Context) bool {
	_, hasAccess := record.AccessToken(ctx)
	_, hasRefresh := record.RefreshToken(ctx)
	_, hasIdentity := record.Identity(ctx)
	return hasAccess && hasRefresh && hasIdentity
}
