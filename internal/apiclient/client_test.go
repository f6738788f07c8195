// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient_test

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/taibuivan/legacyvault/internal/apiclient"
	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/testkit/fakeapi"
)

// memoryCredentials is an in-memory [apiclient.Credentials].
type memoryCredentials struct {
	mu     sync.Mutex
	pair   apiclient.CredentialPair
	purges int
}

func (c *memoryCredentials) AccessToken(context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.AccessToken, c.pair.AccessToken != ""
}

func (c *memoryCredentials) RefreshToken(context.Context) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair.RefreshToken, c.pair.RefreshToken != ""
}

func (c *memoryCredentials) RotateTokens(_ context.Context, previous string, pair apiclient.CredentialPair) apiclient.Rotation {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pair.RefreshToken == "" || c.pair.RefreshToken != previous {
		return apiclient.RotationSuperseded
	}
	c.pair = pair
	return apiclient.RotationStored
}

func (c *memoryCredentials) Purge(context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.pair = apiclient.CredentialPair{}
	c.purges++
}

func (c *memoryCredentials) snapshot() (apiclient.CredentialPair, int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.pair, c.purges
}

// recordingNavigator remembers every forced navigation.
type recordingNavigator struct {
	mu    sync.Mutex
	paths []string
}

func (n *recordingNavigator) Navigate(path string) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.paths = append(n.paths, path)
}

func (n *recordingNavigator) visited() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.paths...)
}

type profileData struct {
	User fakeapi.User `json:"user"`
}

func newClient(baseURL string, credentials apiclient.Credentials, navigator apiclient.Navigator) *apiclient.Client {
	return apiclient.New(apiclient.Options{
		BaseURL:     baseURL,
		Timeout:     2 * time.Second,
		Credentials: credentials,
		Navigator:   navigator,
		Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
}

func profileRequest() *apiclient.Request {
	return &apiclient.Request{Method: http.MethodGet, Path: "/auth/profile"}
}

/*
TestClient_Headers verifies the bearer, correlation and content headers.
*/
func TestClient_Headers(t *testing.T) {
	var captured []http.Header
	var mu sync.Mutex
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		mu.Lock()
		captured = append(captured, request.Header.Clone())
		mu.Unlock()
		_, _ = writer.Write([]byte(`{"success":true,"message":"ok"}`))
	}))
	defer server.Close()

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
	client := newClient(server.URL, credentials, nil)
	ctx := context.Background()

	_, err := apiclient.Call[struct{}](ctx, client, profileRequest())
	require.NoError(t, err)

	_, err = apiclient.Call[struct{}](ctx, client, &apiclient.Request{Method: http.MethodPost, Path: "/auth/logout", Token: "OVERRIDE", Body: map[string]string{"refreshToken": "R1"}})
	require.NoError(t, err)

	credentials.Purge(ctx)
	_, err = apiclient.Call[struct{}](ctx, client, profileRequest())
	require.NoError(t, err)

	require.Len(t, captured, 3)
	assert.Equal(t, "Bearer A1", captured[0].Get("Authorization"))
	assert.Equal(t, "Bearer OVERRIDE", captured[1].Get("Authorization"))
	assert.Empty(t, captured[2].Get("Authorization"))

	assert.Equal(t, "application/json", captured[1].Get("Content-Type"))
	assert.NotEmpty(t, captured[0].Get("X-Request-ID"))
	assert.NotEqual(t, captured[0].Get("X-Request-ID"), captured[1].Get("X-Request-ID"))
}

/*
TestClient_RefreshOnUnauthorized verifies one refresh and one retry with the new bearer.
*/
func TestClient_RefreshOnUnauthorized(t *testing.T) {
	api := fakeapi.New(t)
	user := api.AddUserWithID("42", "alice@example.com", "alice", "Secret#123", "user")
	api.SeedSession(user.ID, "", "R1")
	api.QueueTokens(fakeapi.Tokens{AccessToken: "A2", RefreshToken: "R2"})

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
	navigator := &recordingNavigator{}
	client := newClient(api.URL(), credentials, navigator)

	data, err := apiclient.Call[profileData](context.Background(), client, profileRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", data.User.Username)

	pair, purges := credentials.snapshot()
	assert.Equal(t, apiclient.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}, pair)
	assert.Zero(t, purges)
	assert.Empty(t, navigator.visited())

	assert.Equal(t, 2, api.Calls("/auth/profile"))
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
}

/*
TestClient_RefreshFailure verifies purge, navigation to login and an expired-session error.
*/
func TestClient_RefreshFailure(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser("alice@example.com", "alice", "Secret#123", "user")

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R-unknown"}}
	navigator := &recordingNavigator{}
	client := newClient(api.URL(), credentials, navigator)

	_, err := apiclient.Call[profileData](context.Background(), client, profileRequest())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
	assert.Equal(t, "SESSION_EXPIRED", apperr.As(err).Code)

	pair, purges := credentials.snapshot()
	assert.Equal(t, apiclient.CredentialPair{}, pair)
	assert.Equal(t, 1, purges)
	assert.Equal(t, []string{"/login"}, navigator.visited())

	assert.Equal(t, 1, api.Calls("/auth/profile"))
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
}

// unstorableCredentials accepts every rotation but never keeps it.
type unstorableCredentials struct {
	*memoryCredentials
}

func (unstorableCredentials) RotateTokens(context.Context, string, apiclient.CredentialPair) apiclient.Rotation {
	return apiclient.RotationUnpersisted
}

/*
TestClient_RefreshUnpersisted verifies that the retry carries the refreshed
bearer even when the new pair could not be stored.
*/
func TestClient_RefreshUnpersisted(t *testing.T) {
	api := fakeapi.New(t)
	user := api.AddUserWithID("42", "alice@example.com", "alice", "Secret#123", "user")
	api.SeedSession(user.ID, "", "R1")
	api.QueueTokens(fakeapi.Tokens{AccessToken: "A2", RefreshToken: "R2"})

	credentials := unstorableCredentials{&memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}}
	navigator := &recordingNavigator{}
	client := newClient(api.URL(), credentials, navigator)

	data, err := apiclient.Call[profileData](context.Background(), client, profileRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", data.User.Username)

	pair, purges := credentials.snapshot()
	assert.Equal(t, apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}, pair)
	assert.Zero(t, purges)
	assert.Empty(t, navigator.visited())

	assert.Equal(t, 2, api.Calls("/auth/profile"))
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
}

/*
TestClient_CallerDeadlineKeepsSession verifies that a caller giving up on a
shared refresh neither cancels it for the others nor ends the session.
*/
func TestClient_CallerDeadlineKeepsSession(t *testing.T) {
	api := fakeapi.New(t)
	user := api.AddUserWithID("42", "alice@example.com", "alice", "Secret#123", "user")
	api.SeedSession(user.ID, "", "R1")
	api.QueueTokens(fakeapi.Tokens{AccessToken: "A2", RefreshToken: "R2"})

	started := make(chan struct{})
	var once sync.Once
	api.OnRequest("/auth/refresh", func() {
		once.Do(func() { close(started) })
		time.Sleep(150 * time.Millisecond)
	})

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
	navigator := &recordingNavigator{}
	client := newClient(api.URL(), credentials, navigator)

	// 1. The impatient caller starts the refresh and gives up on it
	impatient := make(chan error, 1)
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()
		_, err := apiclient.Call[profileData](ctx, client, profileRequest())
		impatient <- err
	}()

	select {
	case <-started:
	case <-time.After(time.Second):
		t.Fatal("refresh never reached the server")
	}

	// 2. A patient caller joins the same exchange
	data, err := apiclient.Call[profileData](context.Background(), client, profileRequest())
	require.NoError(t, err)
	assert.Equal(t, "alice", data.User.Username)

	impatientErr := <-impatient
	require.Error(t, impatientErr)
	assert.True(t, apperr.IsKind(impatientErr, apperr.KindNetwork))

	pair, purges := credentials.snapshot()
	assert.Equal(t, apiclient.CredentialPair{AccessToken: "A2", RefreshToken: "R2"}, pair)
	assert.Zero(t, purges)
	assert.Empty(t, navigator.visited())
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
}

/*
TestClient_SessionChangedDuringRefresh verifies that a logout or a new login
landing mid-refresh is never overwritten by the refreshed pair.
*/
func TestClient_SessionChangedDuringRefresh(t *testing.T) {
	tests := []struct {
		name       string
		replace    func(ctx context.Context, credentials *memoryCredentials)
		wantPair   apiclient.CredentialPair
		wantStatus int
	}{
		{
			name:       "logout_wins",
			replace:    func(ctx context.Context, credentials *memoryCredentials) { credentials.Purge(ctx) },
			wantPair:   apiclient.CredentialPair{},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name: "new_login_wins",
			replace: func(ctx context.Context, credentials *memoryCredentials) {
				credentials.mu.Lock()
				defer credentials.mu.Unlock()
				credentials.pair = apiclient.CredentialPair{AccessToken: "A9", RefreshToken: "R9"}
			},
			wantPair:   apiclient.CredentialPair{AccessToken: "A9", RefreshToken: "R9"},
			wantStatus: http.StatusOK,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			api := fakeapi.New(t)
			user := api.AddUserWithID("42", "alice@example.com", "alice", "Secret#123", "user")
			api.SeedSession(user.ID, "A9", "R1")
			api.QueueTokens(fakeapi.Tokens{AccessToken: "A2", RefreshToken: "R2"})

			credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
			api.OnRequest("/auth/refresh", func() { tt.replace(ctx, credentials) })

			navigator := &recordingNavigator{}
			client := newClient(api.URL(), credentials, navigator)

			_, err := apiclient.Call[profileData](ctx, client, profileRequest())
			if tt.wantStatus == http.StatusOK {
				require.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Equal(t, "UNAUTHORIZED", apperr.As(err).Code)
			}

			pair, _ := credentials.snapshot()
			assert.Equal(t, tt.wantPair, pair)
			assert.Empty(t, navigator.visited())
			assert.Equal(t, 1, api.Calls("/auth/refresh"))
			assert.Equal(t, 2, api.Calls("/auth/profile"))
		})
	}
}

/*
TestClient_SecondUnauthorizedIsFinal verifies that a retried 401 never loops.
*/
func TestClient_SecondUnauthorizedIsFinal(t *testing.T) {
	api := fakeapi.New(t)
	user := api.AddUser("alice@example.com", "alice", "Secret#123", "user")
	api.SeedSession(user.ID, "A1", "R1")
	api.FailNext("/auth/profile", fakeapi.Failure{Status: http.StatusUnauthorized, Message: "Token revoked"}, 2)

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
	navigator := &recordingNavigator{}
	client := newClient(api.URL(), credentials, navigator)

	_, err := apiclient.Call[profileData](context.Background(), client, profileRequest())
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
	assert.Equal(t, "Token revoked", err.Error())

	assert.Equal(t, 2, api.Calls("/auth/profile"))
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
	assert.Empty(t, navigator.visited())

	pair, _ := credentials.snapshot()
	assert.True(t, pair.Complete())
	assert.NotEqual(t, "R1", pair.RefreshToken)
}

/*
TestClient_SkipRefresh verifies that credential endpoints never trigger a refresh.
*/
func TestClient_SkipRefresh(t *testing.T) {
	api := fakeapi.New(t)
	api.AddUser("alice@example.com", "alice", "Secret#123", "user")

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A1", RefreshToken: "R1"}}
	client := newClient(api.URL(), credentials, nil)

	_, err := apiclient.Call[struct{}](context.Background(), client, &apiclient.Request{
		Method:      http.MethodPost,
		Path:        "/auth/login",
		Body:        map[string]string{"email": "alice@example.com", "password": "wrong"},
		SkipRefresh: true,
	})
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindAuthentication))
	assert.Equal(t, "Invalid email or password", err.Error())
	assert.Zero(t, api.Calls("/auth/refresh"))

	_, purges := credentials.snapshot()
	assert.Zero(t, purges)
}

/*
TestClient_ConcurrentUnauthorizedShareRefresh verifies single-flight refresh.
*/
func TestClient_ConcurrentUnauthorizedShareRefresh(t *testing.T) {
	const callers = 5

	api := fakeapi.New(t)
	user := api.AddUser("alice@example.com", "alice", "Secret#123", "user")
	api.SeedSession(user.ID, "", "R1")

	// Hold the refresh until every caller has seen its 401.
	api.OnRequest("/auth/refresh", func() {
		deadline := time.Now().Add(2 * time.Second)
		for api.Calls("/auth/profile") < callers && time.Now().Before(deadline) {
			time.Sleep(5 * time.Millisecond)
		}
		time.Sleep(100 * time.Millisecond)
	})

	credentials := &memoryCredentials{pair: apiclient.CredentialPair{AccessToken: "A-stale", RefreshToken: "R1"}}
	client := newClient(api.URL(), credentials, nil)

	var wg sync.WaitGroup
	errs := make([]error, callers)
	for i := range callers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = apiclient.Call[profileData](context.Background(), client, profileRequest())
		}()
	}
	wg.Wait()

	for _, err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, 1, api.Calls("/auth/refresh"))
	assert.Equal(t, 2*callers, api.Calls("/auth/profile"))

	pair, _ := credentials.snapshot()
	assert.True(t, api.ValidAccessToken(pair.AccessToken))
	assert.True(t, api.ValidRefreshToken(pair.RefreshToken))
}

/*
TestCall_ErrorMapping verifies the status code to error kind mapping.
*/
func TestCall_ErrorMapping(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		body    string
		kind    apperr.Kind
		message string
	}{
		{"forbidden_with_message", 403, `{"success":false,"message":"Admins only"}`, apperr.KindAuthorization, "Admins only"},
		{"not_found_no_body", 404, ``, apperr.KindNotFound, "The requested resource was not found."},
		{"too_many_requests", 429, `{"success":false}`, apperr.KindServer, "Too many requests. Please try again later."},
		{"server_error", 503, `{"success":false,"message":"db down"}`, apperr.KindServer, "Server error. Please try again later."},
		{"conflict", 409, `{"success":false,"error":"User with this email already exists"}`, apperr.KindRejected, "User with this email already exists"},
		{"bad_request_default", 400, `<html>`, apperr.KindRejected, "Request failed."},
		{"success_false", 200, `{"success":false,"message":"Nothing to do"}`, apperr.KindRejected, "Nothing to do"},
		{"undecodable_success", 200, `garbage`, apperr.KindServer, "Unexpected response from server."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, _ *http.Request) {
				writer.WriteHeader(tt.status)
				_, _ = writer.Write([]byte(tt.body))
			}))
			defer server.Close()

			client := newClient(server.URL, &memoryCredentials{}, nil)
			_, err := apiclient.Call[struct{}](context.Background(), client, profileRequest())

			require.Error(t, err)
			appErr := apperr.As(err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.kind, appErr.Kind)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}
}

/*
TestCall_Success verifies data decoding and data-less endpoints.
*/
func TestCall_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(writer http.ResponseWriter, request *http.Request) {
		if request.URL.Path == "/empty" {
			_, _ = writer.Write([]byte(`{"success":true,"message":"Done"}`))
			return
		}
		_ = json.NewEncoder(writer).Encode(map[string]any{
			"success": true,
			"message": "ok",
			"data":    map[string]any{"user": map[string]any{"id": "42", "username": "alice"}},
		})
	}))
	defer server.Close()

	client := newClient(server.URL, &memoryCredentials{}, nil)
	ctx := context.Background()

	data, err := apiclient.Call[profileData](ctx, client, profileRequest())
	require.NoError(t, err)
	assert.Equal(t, "42", data.User.ID)

	empty, err := apiclient.Call[profileData](ctx, client, &apiclient.Request{Method: http.MethodPost, Path: "/empty"})
	require.NoError(t, err)
	assert.Zero(t, empty)

	message, err := apiclient.CallMessage(ctx, client, &apiclient.Request{Method: http.MethodPost, Path: "/empty"})
	require.NoError(t, err)
	assert.Equal(t, "Done", message)
}

/*
TestCall_NetworkFailures verifies that unreachable hosts and timeouts are network errors.
*/
func TestCall_NetworkFailures(t *testing.T) {
	t.Run("unreachable", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		url := server.URL
		server.Close()

		client := newClient(url, &memoryCredentials{}, nil)
		_, err := apiclient.Call[struct{}](context.Background(), client, profileRequest())
		assert.True(t, apperr.IsKind(err, apperr.KindNetwork))
	})

	t.Run("timeout", func(t *testing.T) {
		release := make(chan struct{})
		server := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			<-release
		}))
		defer server.Close()
		defer close(release)

		client := apiclient.New(apiclient.Options{
			BaseURL:     server.URL,
			Timeout:     50 * time.Millisecond,
			Credentials: &memoryCredentials{},
			Logger:      slog.New(slog.NewTextHandler(io.Discard, nil)),
		})
		_, err := apiclient.Call[struct{}](context.Background(), client, profileRequest())
		assert.True(t, apperr.IsKind(err, apperr.KindNetwork))
	})
}
