// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/taibuivan/legacyvault/internal/platform/apperr"
)

// Envelope is the JSON shape of every vault API reply.
type Envelope[T any] struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    *T     `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Reason returns the user-facing explanation carried by the envelope.
func (envelope Envelope[T]) Reason() string {
	if envelope.Error != "" {
		return envelope.Error
	}
	return envelope.Message
}

// Default user-facing messages per failure class.
const (
	msgUnauthorized = "Invalid credentials. Please check your email and password."
	msgForbidden    = "Access denied. You do not have permission to perform this action."
	msgNotFound     = "The requested resource was not found."
	msgTooMany      = "Too many requests. Please try again later."
	msgServer       = "Server error. Please try again later."
	msgUnexpected   = "Unexpected response from server."
	msgRejected     = "Request failed."
)

// Call sends request through client and decodes the envelope's data into T.
//
// Endpoints that answer without data yield the zero T.
func Call[T any](ctx context.Context, client *Client, request *Request) (T, error) {
	return decode[T](client.Do(ctx, request))
}

// CallMessage is [Call] for endpoints whose only payload is the envelope message.
func CallMessage(ctx context.Context, client *Client, request *Request) (string, error) {
	envelope, err := decodeEnvelope[json.RawMessage](client.Do(ctx, request))
	if err != nil {
		return "", err
	}
	return envelope.Message, nil
}

func decode[T any](response *Response, err error) (T, error) {
	var zero T
	envelope, err := decodeEnvelope[T](response, err)
	if err != nil || envelope.Data == nil {
		return zero, err
	}
	return *envelope.Data, nil
}

// decodeEnvelope maps a reply (or transport failure) to the error taxonomy.
func decodeEnvelope[T any](response *Response, err error) (Envelope[T], error) {
	var envelope Envelope[T]

	if err != nil {
		if apperr.As(err) != nil {
			return envelope, err
		}
		return envelope, apperr.Network(err)
	}

	decodeErr := json.Unmarshal(response.Body, &envelope)
	status := response.StatusCode

	// 2xx: the body must be a well-formed envelope with success=true
	if status >= 200 && status < 300 {
		if decodeErr != nil {
			return envelope, apperr.Server(status, msgUnexpected, fmt.Errorf("apiclient: decode envelope: %w", decodeErr))
		}
		if !envelope.Success {
			return envelope, apperr.Rejected(status, orDefault(envelope.Reason(), msgRejected))
		}
		return envelope, nil
	}

	reason := ""
	if decodeErr == nil {
		reason = envelope.Reason()
	}

	switch {
	case status == http.StatusUnauthorized:
		return envelope, apperr.Unauthorized(orDefault(reason, msgUnauthorized))
	case status == http.StatusForbidden:
		return envelope, apperr.Forbidden(orDefault(reason, msgForbidden))
	case status == http.StatusNotFound:
		return envelope, apperr.NotFound(orDefault(reason, msgNotFound))
	case status == http.StatusTooManyRequests:
		return envelope, apperr.Server(status, orDefault(reason, msgTooMany), nil)
	case status >= 500:
		return envelope, apperr.Server(status, msgServer, serverCause(status, reason))
	default:
		return envelope, apperr.Rejected(status, orDefault(reason, msgRejected))
	}
}

func serverCause(status int, reason string) error {
	if reason == "" {
		return fmt.Errorf("apiclient: status %d", status)
	}
	return fmt.Errorf("apiclient: status %d: %s", status, reason)
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
