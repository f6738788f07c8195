// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package fakeapi

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

type ctxKey struct{}

// routes mirrors the real API surface under [BasePath].
func (server *Server) routes() http.Handler {
	router := chi.NewRouter()

	router.Route(BasePath, func(api chi.Router) {
		api.Use(server.intercept)

		api.Route("/auth", func(auth chi.Router) {
			auth.Post("/login", server.login)
			auth.Post("/admin/login", server.adminLogin)
			auth.Post("/register", server.register)
			auth.Post("/refresh", server.refresh)
			auth.Post("/logout", server.logout)
			auth.Post("/forgot-password", server.forgotPassword)
			auth.Post("/reset-password", server.resetPassword)

			auth.With(server.requireAuth).Get("/profile", server.profile)
		})

		api.Route("/email", func(email chi.Router) {
			email.Use(server.requireAuth, server.requireAdmin)
			email.Get("/settings", server.getEmailSettings)
			email.Post("/settings", server.saveEmailSettings)
			email.Post("/test-connection", server.testConnection)
			email.Post("/send-test", server.sendTestEmail)
		})
	})

	router.NotFound(func(writer http.ResponseWriter, request *http.Request) {
		writeFail(writer, http.StatusNotFound, "Route not found")
	})

	return router
}

// # Middleware

// intercept counts calls, runs hooks and serves canned failures.
func (server *Server) intercept(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		path := strings.TrimPrefix(request.URL.Path, BasePath)

		server.mu.Lock()
		server.calls[path]++
		hook := server.hooks[path]
		server.mu.Unlock()

		if hook != nil {
			hook()
		}

		server.mu.Lock()
		var failure *Failure
		if queue := server.failures[path]; len(queue) > 0 {
			failure = &queue[0]
			server.failures[path] = queue[1:]
		}
		server.mu.Unlock()

		if failure != nil {
			writeFailure(writer, *failure)
			return
		}

		next.ServeHTTP(writer, request)
	})
}

// requireAuth resolves the bearer token to an account.
func (server *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		user, found := server.authenticate(request)
		if !found {
			writeFail(writer, http.StatusUnauthorized, "Invalid or expired token")
			return
		}
		next.ServeHTTP(writer, request.WithContext(context.WithValue(request.Context(), ctxKey{}, user)))
	})
}

// requireAdmin must run after requireAuth.
func (server *Server) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		user, _ := request.Context().Value(ctxKey{}).(User)
		if user.Role != "admin" {
			writeFail(writer, http.StatusForbidden, "Admin access required")
			return
		}
		next.ServeHTTP(writer, request)
	})
}

func (server *Server) authenticate(request *http.Request) (User, bool) {
	header := request.Header.Get("Authorization")
	token, found := strings.CutPrefix(header, "Bearer ")
	if !found || token == "" {
		return User{}, false
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	userID, valid := server.accessTokens[token]
	if !valid {
		return User{}, false
	}
	acct, exists := server.userByID(userID)
	if !exists || !acct.user.IsActive {
		return User{}, false
	}
	return acct.user, true
}

// # Authentication

type loginRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	RememberMe bool   `json:"rememberMe"`
}

type authPayload struct {
	User   User   `json:"user"`
	Tokens Tokens `json:"tokens"`
}

func (server *Server) login(writer http.ResponseWriter, request *http.Request) {
	server.authenticateCredentials(writer, request, "")
}

func (server *Server) adminLogin(writer http.ResponseWriter, request *http.Request) {
	server.authenticateCredentials(writer, request, "admin")
}

func (server *Server) authenticateCredentials(writer http.ResponseWriter, request *http.Request, requiredRole string) {
	var input loginRequest
	if err := decodeJSON(request, &input); err != nil {
		writeFail(writer, http.StatusBadRequest, "Invalid request body")
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	acct, exists := server.accounts[strings.ToLower(input.Email)]
	if !exists || bcrypt.CompareHashAndPassword(acct.passwordHash, []byte(input.Password)) != nil {
		writeFail(writer, http.StatusUnauthorized, "Invalid email or password")
		return
	}
	if !acct.user.IsActive {
		writeFail(writer, http.StatusForbidden, "Account is disabled")
		return
	}
	if requiredRole != "" && acct.user.Role != requiredRole {
		writeFail(writer, http.StatusForbidden, "Admin access required")
		return
	}

	tokens, err := server.issueTokens(acct.user)
	if err != nil {
		writeFail(writer, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeOK(writer, "Login successful", authPayload{User: acct.user, Tokens: tokens})
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

func (server *Server) register(writer http.ResponseWriter, request *http.Request) {
	var input registerRequest
	if err := decodeJSON(request, &input); err != nil {
		writeFail(writer, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.Email == "" || input.Username == "" || input.Password == "" {
		writeFail(writer, http.StatusBadRequest, "Email, username and password are required")
		return
	}

	server.mu.Lock()
	_, duplicate := server.accounts[strings.ToLower(input.Email)]
	server.mu.Unlock()
	if duplicate {
		writeFail(writer, http.StatusConflict, "User with this email already exists")
		return
	}

	user := server.AddUser(input.Email, input.Username, input.Password, "user")

	server.mu.Lock()
	defer server.mu.Unlock()
	tokens, err := server.issueTokens(user)
	if err != nil {
		writeFail(writer, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeCreated(writer, "User registered successfully", authPayload{User: user, Tokens: tokens})
}

type refreshRequest struct {
	RefreshToken string `json:"refreshToken"`
}

func (server *Server) refresh(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	if err := decodeJSON(request, &input); err != nil || input.RefreshToken == "" {
		writeFail(writer, http.StatusBadRequest, "Refresh token is required")
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	userID, valid := server.refreshTokens[input.RefreshToken]
	if !valid {
		writeFail(writer, http.StatusUnauthorized, "Invalid refresh token")
		return
	}
	acct, exists := server.userByID(userID)
	if !exists {
		writeFail(writer, http.StatusUnauthorized, "Invalid refresh token")
		return
	}

	// Refresh tokens rotate
	delete(server.refreshTokens, input.RefreshToken)

	tokens, err := server.issueTokens(acct.user)
	if err != nil {
		writeFail(writer, http.StatusInternalServerError, "Internal server error")
		return
	}
	writeOK(writer, "Token refreshed successfully", map[string]Tokens{"tokens": tokens})
}

func (server *Server) logout(writer http.ResponseWriter, request *http.Request) {
	var input refreshRequest
	_ = decodeJSON(request, &input)

	header := request.Header.Get("Authorization")

	server.mu.Lock()
	server.lastLogout = &LogoutRecord{Authorization: header, RefreshToken: input.RefreshToken}
	server.mu.Unlock()

	if _, found := server.authenticate(request); !found {
		writeFail(writer, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	server.mu.Lock()
	delete(server.accessTokens, strings.TrimPrefix(header, "Bearer "))
	delete(server.refreshTokens, input.RefreshToken)
	server.mu.Unlock()

	writeOK(writer, "Logout successful", nil)
}

func (server *Server) profile(writer http.ResponseWriter, request *http.Request) {
	user, _ := request.Context().Value(ctxKey{}).(User)
	writeOK(writer, "Profile retrieved successfully", map[string]User{"user": user})
}

// # Password Recovery

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

func (server *Server) forgotPassword(writer http.ResponseWriter, request *http.Request) {
	var input forgotPasswordRequest
	if err := decodeJSON(request, &input); err != nil || input.Email == "" {
		writeFail(writer, http.StatusBadRequest, "Email is required")
		return
	}

	// The answer never reveals whether the account exists
	server.IssueResetToken(input.Email)
	writeOK(writer, "If an account with that email exists, a password reset link has been sent.", nil)
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

func (server *Server) resetPassword(writer http.ResponseWriter, request *http.Request) {
	var input resetPasswordRequest
	if err := decodeJSON(request, &input); err != nil || input.Token == "" || input.Password == "" {
		writeFail(writer, http.StatusBadRequest, "Token and password are required")
		return
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcrypt.MinCost)
	if err != nil {
		writeFail(writer, http.StatusInternalServerError, "Internal server error")
		return
	}

	server.mu.Lock()
	defer server.mu.Unlock()

	userID, valid := server.resetTokens[input.Token]
	if !valid {
		writeFail(writer, http.StatusBadRequest, "Invalid or expired reset token")
		return
	}
	delete(server.resetTokens, input.Token)

	if acct, exists := server.userByID(userID); exists {
		acct.passwordHash = hash
	}
	writeOK(writer, "Password reset successfully", nil)
}

// # Email Settings

func (server *Server) getEmailSettings(writer http.ResponseWriter, request *http.Request) {
	settings := server.EmailSettings()
	writeOK(writer, "Email settings retrieved", map[string]*EmailSettings{"settings": settings})
}

func (server *Server) saveEmailSettings(writer http.ResponseWriter, request *http.Request) {
	var input EmailSettings
	if err := decodeJSON(request, &input); err != nil {
		writeFail(writer, http.StatusBadRequest, "Invalid request body")
		return
	}
	if input.SMTPHost == "" || input.FromEmail == "" {
		writeFail(writer, http.StatusBadRequest, "SMTP host and from email are required")
		return
	}

	server.mu.Lock()
	now := time.Now().UTC().Truncate(time.Second)
	if server.settings != nil {
		input.ID = server.settings.ID
		input.CreatedAt = server.settings.CreatedAt
		if input.SMTPPassword == "" {
			input.SMTPPassword = server.settings.SMTPPassword
		}
	} else {
		input.ID = uuid.NewString()
		input.CreatedAt = now
	}
	input.UpdatedAt = now
	input.IsActive = true
	server.settings = &input
	server.mu.Unlock()

	writeOK(writer, "Email settings saved successfully", map[string]EmailSettings{"settings": input})
}

func (server *Server) testConnection(writer http.ResponseWriter, request *http.Request) {
	if server.EmailSettings() == nil {
		writeFail(writer, http.StatusBadRequest, "Email settings are not configured")
		return
	}
	writeOK(writer, "SMTP connection successful", nil)
}

type sendTestRequest struct {
	Email string `json:"email"`
}

func (server *Server) sendTestEmail(writer http.ResponseWriter, request *http.Request) {
	var input sendTestRequest
	if err := decodeJSON(request, &input); err != nil || input.Email == "" {
		writeFail(writer, http.StatusBadRequest, "Email is required")
		return
	}
	if server.EmailSettings() == nil {
		writeFail(writer, http.StatusBadRequest, "Email settings are not configured")
		return
	}

	server.mu.Lock()
	server.sentTests = append(server.sentTests, input.Email)
	server.mu.Unlock()

	writeOK(writer, "Test email sent successfully to "+input.Email, nil)
}
