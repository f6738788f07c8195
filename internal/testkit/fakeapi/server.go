// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package fakeapi is an in-process stand-in for the remote vault REST API.

It serves the same endpoints and envelope as the real API from an
[httptest.Server] so client packages can be tested end to end.

# Behaviour

  - Accounts: passwords are bcrypt hashes; access tokens are HS256 JWTs.
  - Sessions: access and refresh tokens are tracked server-side, so tests can
    expire or revoke them and seed literal values ("A1", "R1").
  - Faults: [Server.FailNext] queues canned error replies per path.
  - Inspection: [Server.Calls] counts hits per path; [Server.LastLogout]
    records what the logout endpoint received.
*/
package fakeapi

import (
	"fmt"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// BasePath is where the API is mounted; [Server.URL] already includes it.
const BasePath = "/api"

// # Domain Models

// User mirrors the identity document returned by the API.
type User struct {
	ID            string    `json:"id"`
	Email         string    `json:"email"`
	Username      string    `json:"username"`
	Role          string    `json:"role"`
	IsActive      bool      `json:"isActive"`
	EmailVerified bool      `json:"emailVerified"`
	MFAEnabled    bool      `json:"mfaEnabled"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
}

// Tokens mirrors the credential pair document.
type Tokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// EmailSettings mirrors the SMTP configuration document.
type EmailSettings struct {
	ID           string    `json:"id,omitempty"`
	SMTPHost     string    `json:"smtpHost"`
	SMTPPort     int       `json:"smtpPort"`
	SMTPSecure   bool      `json:"smtpSecure"`
	SMTPUser     string    `json:"smtpUser"`
	SMTPPassword string    `json:"smtpPassword"`
	FromName     string    `json:"fromName"`
	FromEmail    string    `json:"fromEmail"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt,omitempty"`
	UpdatedAt    time.Time `json:"updatedAt,omitempty"`
}

// LogoutRecord is what the logout endpoint received last.
type LogoutRecord struct {
	Authorization string
	RefreshToken  string
}

// Failure is a canned error reply.
type Failure struct {
	Status  int
	Message string

	// Raw, when set, is written verbatim instead of an envelope.
	Raw string
}

type account struct {
	user         User
	passwordHash []byte
}

type accessClaims struct {
	jwt.RegisteredClaims
	Role string `json:"rol"`
}

// # Server

// Server is safe for concurrent use by the code under test.
type Server struct {
	*httptest.Server

	secret    []byte
	accessTTL time.Duration

	mu            sync.Mutex
	accounts      map[string]*account // by lower-cased email
	accessTokens  map[string]string   // token -> user id
	refreshTokens map[string]string   // token -> user id
	queuedTokens  []Tokens
	failures      map[string][]Failure
	hooks         map[string]func()
	calls         map[string]int
	lastLogout    *LogoutRecord
	resetTokens   map[string]string // reset token -> user id
	settings      *EmailSettings
	sentTests     []string
}

// New starts a fake API and closes it when the test ends.
func New(t testing.TB) *Server {
	t.Helper()

	server := &Server{
		secret:        []byte("fakeapi-" + uuid.NewString()),
		accessTTL:     15 * time.Minute,
		accounts:      make(map[string]*account),
		accessTokens:  make(map[string]string),
		refreshTokens: make(map[string]string),
		failures:      make(map[string][]Failure),
		hooks:         make(map[string]func()),
		calls:         make(map[string]int),
		resetTokens:   make(map[string]string),
	}
	server.Server = httptest.NewServer(server.routes())
	t.Cleanup(server.Close)

	return server
}

// URL returns the API base URL, mount path included.
func (server *Server) URL() string {
	return server.Server.URL + BasePath
}

// # Fixtures

// AddUser registers an account and returns its identity.
func (server *Server) AddUser(email, username, password, role string) User {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	if err != nil {
		panic(fmt.Sprintf("fakeapi: hash password: %v", err))
	}

	now := time.Now().UTC().Truncate(time.Second)
	user := User{
		ID:            uuid.NewString(),
		Email:         strings.ToLower(email),
		Username:      username,
		Role:          role,
		IsActive:      true,
		EmailVerified: true,
		CreatedAt:     now,
		UpdatedAt:     now,
	}

	server.mu.Lock()
	defer server.mu.Unlock()
	server.accounts[user.Email] = &account{user: user, passwordHash: hash}
	return user
}

// AddUserWithID is [Server.AddUser] with a caller-chosen id.
func (server *Server) AddUserWithID(id, email, username, password, role string) User {
	user := server.AddUser(email, username, password, role)

	server.mu.Lock()
	defer server.mu.Unlock()
	user.ID = id
	server.accounts[user.Email].user = user
	return user
}

// SeedSession makes access and refresh valid credentials for userID.
// Either may be empty.
func (server *Server) SeedSession(userID, access, refresh string) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if access != "" {
		server.accessTokens[access] = userID
	}
	if refresh != "" {
		server.refreshTokens[refresh] = userID
	}
}

// QueueTokens makes the next credential issuance return pair verbatim.
func (server *Server) QueueTokens(pair Tokens) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.queuedTokens = append(server.queuedTokens, pair)
}

// ExpireAccessTokens invalidates every access token issued so far.
func (server *Server) ExpireAccessTokens() {
	server.mu.Lock()
	defer server.mu.Unlock()
	clear(server.accessTokens)
}

// RevokeRefreshTokens invalidates every refresh token issued so far.
func (server *Server) RevokeRefreshTokens() {
	server.mu.Lock()
	defer server.mu.Unlock()
	clear(server.refreshTokens)
}

// SetRole changes the role of an existing account.
func (server *Server) SetRole(email, role string) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if acct, ok := server.accounts[strings.ToLower(email)]; ok {
		acct.user.Role = role
		acct.user.UpdatedAt = time.Now().UTC().Truncate(time.Second)
	}
}

// SetUsername changes the username of an existing account.
func (server *Server) SetUsername(email, username string) {
	server.mu.Lock()
	defer server.mu.Unlock()
	if acct, ok := server.accounts[strings.ToLower(email)]; ok {
		acct.user.Username = username
	}
}

// FailNext answers the next times requests to path (relative to [BasePath])
// with failure instead of the real handler.
func (server *Server) FailNext(path string, failure Failure, times int) {
	server.mu.Lock()
	defer server.mu.Unlock()
	for range times {
		server.failures[path] = append(server.failures[path], failure)
	}
}

// OnRequest runs hook at the start of every request to path, before any
// canned failure. The hook runs outside the server lock.
func (server *Server) OnRequest(path string, hook func()) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.hooks[path] = hook
}

// SetEmailSettings replaces the stored SMTP configuration.
func (server *Server) SetEmailSettings(settings EmailSettings) {
	server.mu.Lock()
	defer server.mu.Unlock()
	server.settings = &settings
}

// IssueResetToken returns a password reset token for email.
func (server *Server) IssueResetToken(email string) string {
	server.mu.Lock()
	defer server.mu.Unlock()
	acct, ok := server.accounts[strings.ToLower(email)]
	if !ok {
		return ""
	}
	token := uuid.NewString()
	server.resetTokens[token] = acct.user.ID
	return token
}

// # Inspection

// Calls returns how many requests reached path.
func (server *Server) Calls(path string) int {
	server.mu.Lock()
	defer server.mu.Unlock()
	return server.calls[path]
}

// LastLogout returns the last logout notification, or nil.
func (server *Server) LastLogout() *LogoutRecord {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.lastLogout == nil {
		return nil
	}
	record := *server.lastLogout
	return &record
}

// EmailSettings returns the stored SMTP configuration, or nil.
func (server *Server) EmailSettings() *EmailSettings {
	server.mu.Lock()
	defer server.mu.Unlock()
	if server.settings == nil {
		return nil
	}
	settings := *server.settings
	return &settings
}

// SentTestEmails returns the recipients of test emails, in order.
func (server *Server) SentTestEmails() []string {
	server.mu.Lock()
	defer server.mu.Unlock()
	return append([]string(nil), server.sentTests...)
}

// ValidAccessToken reports whether token is currently accepted.
func (server *Server) ValidAccessToken(token string) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	_, ok := server.accessTokens[token]
	return ok
}

// ValidRefreshToken reports whether token is currently accepted.
func (server *Server) ValidRefreshToken(token string) bool {
	server.mu.Lock()
	defer server.mu.Unlock()
	_, ok := server.refreshTokens[token]
	return ok
}

// # Token Issuance

// issueTokens mints a pair for user. Caller holds mu.
func (server *Server) issueTokens(user User) (Tokens, error) {
	var pair Tokens

	if len(server.queuedTokens) > 0 {
		pair = server.queuedTokens[0]
		server.queuedTokens = server.queuedTokens[1:]
	} else {
		now := time.Now()
		claims := accessClaims{
			RegisteredClaims: jwt.RegisteredClaims{
				ID:        uuid.NewString(),
				Subject:   user.ID,
				Issuer:    "fakeapi",
				IssuedAt:  jwt.NewNumericDate(now),
				ExpiresAt: jwt.NewNumericDate(now.Add(server.accessTTL)),
			},
			Role: user.Role,
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(server.secret)
		if err != nil {
			return Tokens{}, fmt.Errorf("fakeapi: sign token: %w", err)
		}
		pair = Tokens{AccessToken: signed, RefreshToken: uuid.NewString()}
	}

	server.accessTokens[pair.AccessToken] = user.ID
	server.refreshTokens[pair.RefreshToken] = user.ID
	return pair, nil
}

// userByID looks up an account. Caller holds mu.
func (server *Server) userByID(id string) (*account, bool) {
	for _, acct := range server.accounts {
		if acct.user.ID == id {
			return acct, true
		}
	}
	return nil, false
}
