// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
	"github.com/taibuivan/legacyvault/internal/platform/constants"
	"github.com/taibuivan/legacyvault/internal/platform/ctxutil"
)

// maxResponseBytes caps how much of a reply body is read into memory.
const maxResponseBytes = 1 << 20

var userAgent = constants.AppName + "/" + constants.AppVersion

// transport is the innermost [Doer]: one JSON round trip, nothing else.
type transport struct {
	baseURL string
	http    *http.Client
	logger  *slog.Logger
}

// Do implements [Doer].
func (t *transport) Do(ctx context.Context, request *Request) (*Response, error) {

	// 1. Encode the payload
	var body io.Reader
	if request.Body != nil {
		payload, err := json.Marshal(request.Body)
		if err != nil {
			return nil, apperr.Server(0, "Request could not be encoded", fmt.Errorf("apiclient: encode %s: %w", request.Path, err))
		}
		body = bytes.NewReader(payload)
	}

	httpRequest, err := http.NewRequestWithContext(ctx, request.Method, t.baseURL+request.Path, body)
	if err != nil {
		return nil, apperr.Network(err)
	}

	// 2. Copy the headers collected by the outer stages
	for name, values := range request.Header() {
		httpRequest.Header[name] = values
	}
	httpRequest.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	httpRequest.Header.Set("Accept", constants.ContentTypeJSON)
	httpRequest.Header.Set(constants.HeaderUserAgent, userAgent)

	// 3. Round trip; every transport-level failure is a network error
	startTime := time.Now()
	httpResponse, err := t.http.Do(httpRequest)
	if err != nil {
		t.logger.WarnContext(ctx, "api_request_failed",
			slog.String("method", request.Method),
			slog.String("path", request.Path),
			slog.String("request_id", ctxutil.GetRequestID(ctx)),
			slog.String("error", err.Error()),
		)
		return nil, apperr.Network(err)
	}
	defer httpResponse.Body.Close()

	data, err := io.ReadAll(io.LimitReader(httpResponse.Body, maxResponseBytes))
	if err != nil {
		return nil, apperr.Network(err)
	}

	// 4. Final log entry
	logLevel := slog.LevelDebug
	if httpResponse.StatusCode >= 500 {
		logLevel = slog.LevelWarn
	}
	t.logger.Log(ctx, logLevel, "api_request_finished",
		slog.String("method", request.Method),
		slog.String("path", request.Path),
		slog.String("request_id", ctxutil.GetRequestID(ctx)),
		slog.Int("status", httpResponse.StatusCode),
		slog.Int64("latency_ms", time.Since(startTime).Milliseconds()),
		slog.Bool("retried", request.retried),
	)

	return &Response{
		StatusCode: httpResponse.StatusCode,
		Header:     httpResponse.Header,
		Body:       data,
	}, nil
}
