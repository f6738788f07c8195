// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

/*
Package apiclient is the HTTP adapter between the vault client and the remote
vault REST API.

# Architecture

Every call runs through a pipeline of decorators around a raw JSON transport:

	refresh → rate limit → request id → bearer → transport

  - transport:  encodes the body, applies the fixed client timeout, reads the reply.
  - bearer:     attaches "Authorization: Bearer <access token>" from [Credentials].
  - request id: stamps every attempt with a fresh X-Request-ID for log correlation.
  - rate limit: paces outbound calls with a token bucket.
  - refresh:    on a first 401, mints a new credential pair and re-runs the rest of
    the pipeline exactly once.

[Call] decodes the standard envelope and maps every failure to the
[apperr] taxonomy; callers never see raw transport errors.
*/
package apiclient

import (
	"context"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/sync/singleflight"
	"golang.org/x/time/rate"

	"github.com/taibuivan/legacyvault/internal/platform/config"
)

// # Contracts

// CredentialPair is the access + refresh bearer tokens issued together by the API.
type CredentialPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// Complete reports whether both halves of the pair are present.
func (pair CredentialPair) Complete() bool {
	return pair.AccessToken != "" && pair.RefreshToken != ""
}

// Rotation is the outcome of persisting a refreshed pair.
type Rotation int

const (
	// RotationStored means the new pair replaced the old one.
	RotationStored Rotation = iota

	// RotationUnpersisted means the write failed; the pair is still usable in memory.
	RotationUnpersisted

	// RotationSuperseded means the session was purged or replaced while the
	// exchange was in flight. The new pair is discarded.
	RotationSuperseded
)

// Credentials is the slice of the persisted session record the adapter needs.
//
// Writes are best-effort: the store may silently fail to persist.
// RotateTokens and Purge must be mutually exclusive, so a logout that lands
// during a refresh is never undone by it.
type Credentials interface {
	AccessToken(ctx context.Context) (string, bool)
	RefreshToken(ctx context.Context) (string, bool)
	RotateTokens(ctx context.Context, previousRefresh string, pair CredentialPair) Rotation
	Purge(ctx context.Context)
}

// Navigator forces the client to a new location after an unrecoverable
// session failure. The adapter is the only component that calls it.
type Navigator interface {
	Navigate(path string)
}

// NavigatorFunc adapts a function to [Navigator].
type NavigatorFunc func(path string)

// Navigate implements [Navigator].
func (fn NavigatorFunc) Navigate(path string) { fn(path) }

// Request is one logical API call.
//
// The same Request value travels through every attempt; its retried flag is
// what keeps the refresh stage from retrying more than once.
type Request struct {
	Method string
	Path   string
	Body   any

	// Token, when set, is sent instead of the stored access credential.
	Token string

	// SkipRefresh disables refresh-on-401 (credential endpoints).
	SkipRefresh bool

	header  http.Header
	retried bool
}

// Header returns the outbound headers, allocating them on first use.
func (request *Request) Header() http.Header {
	if request.header == nil {
		request.header = make(http.Header)
	}
	return request.header
}

// Response is a fully-read API reply.
type Response struct {
	StatusCode int
	Header     http.Header
	Body       []byte
}

// Doer performs one attempt of a [Request].
type Doer interface {
	Do(ctx context.Context, request *Request) (*Response, error)
}

// DoerFunc adapts a function to [Doer].
type DoerFunc func(ctx context.Context, request *Request) (*Response, error)

// Do implements [Doer].
func (fn DoerFunc) Do(ctx context.Context, request *Request) (*Response, error) {
	return fn(ctx, request)
}

// Middleware decorates a [Doer].
type Middleware func(next Doer) Doer

// # Client

// Options configures [New].
type Options struct {
	BaseURL     string
	Timeout     time.Duration
	RateLimit   rate.Limit
	Burst       int
	Credentials Credentials
	Navigator   Navigator
	Logger      *slog.Logger

	// HTTPClient overrides the default client; its Timeout is replaced by Timeout when set.
	HTTPClient *http.Client
}

// Client is safe for concurrent use.
type Client struct {
	credentials Credentials
	navigator   Navigator
	logger      *slog.Logger

	// raw bypasses bearer and refresh; it is what the refresh call itself uses.
	raw      Doer
	pipeline Doer

	refreshGroup   singleflight.Group
	refreshTimeout time.Duration
}

// New assembles the request pipeline.
func New(options Options) *Client {
	logger := options.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With(slog.String("component", "apiclient"))

	navigator := options.Navigator
	if navigator == nil {
		navigator = NavigatorFunc(func(string) {})
	}

	httpClient := options.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{}
	}
	if options.Timeout > 0 {
		httpClient.Timeout = options.Timeout
	}

	limit, burst := options.RateLimit, options.Burst
	if limit <= 0 {
		limit = rate.Inf
	}
	if burst <= 0 {
		burst = 1
	}

	client := &Client{
		credentials:    options.Credentials,
		navigator:      navigator,
		logger:         logger,
		refreshTimeout: defaultRefreshTimeout,
	}
	if options.Timeout > 0 {
		client.refreshTimeout = options.Timeout
	}

	base := &transport{
		baseURL: strings.TrimRight(options.BaseURL, "/"),
		http:    httpClient,
		logger:  logger,
	}

	client.raw = chain(base, withRequestID())
	client.pipeline = chain(base,
		withBearer(options.Credentials),
		withRequestID(),
		withRateLimit(rate.NewLimiter(limit, burst)),
		client.withRefresh(),
	)

	return client
}

// NewFromConfig builds a [Client] from the loaded configuration.
func NewFromConfig(cfg *config.Config, credentials Credentials, navigator Navigator, logger *slog.Logger) *Client {
	return New(Options{
		BaseURL:     cfg.APIBaseURL,
		Timeout:     cfg.HTTPTimeout,
		RateLimit:   rate.Limit(cfg.RateLimitRPS),
		Burst:       cfg.RateLimitBurst,
		Credentials: credentials,
		Navigator:   navigator,
		Logger:      logger,
	})
}

// Do sends request through the full pipeline.
func (client *Client) Do(ctx context.Context, request *Request) (*Response, error) {
	return client.pipeline.Do(ctx, request)
}

// chain wraps base with middlewares; the first middleware is closest to base.
func chain(base Doer, middlewares ...Middleware) Doer {
	doer := base
	for _, middleware := range middlewares {
		doer = middleware(doer)
	}
	return doer
}
