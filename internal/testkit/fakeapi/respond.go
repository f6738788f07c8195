// Copyright (c) 2026 Yomira. All rights reserved.
// Author: tai.buivan.jp@gmail.com

package fakeapi

import (
	"encoding/json"
	"net/http"
)

// envelope is the JSON envelope every endpoint answers with.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
	Error   string `json:"error,omitempty"`
}

// writeJSON writes payload with the given status code.
func writeJSON(writer http.ResponseWriter, statusCode int, payload any) {
	writer.Header().Set("Content-Type", "application/json; charset=utf-8")
	writer.WriteHeader(statusCode)
	_ = json.NewEncoder(writer).Encode(payload)
}

// writeOK writes a 200 success envelope.
func writeOK(writer http.ResponseWriter, message string, data any) {
	writeJSON(writer, http.StatusOK, envelope{Success: true, Message: message, Data: data})
}

// writeCreated writes a 201 success envelope.
func writeCreated(writer http.ResponseWriter, message string, data any) {
	writeJSON(writer, http.StatusCreated, envelope{Success: true, Message: message, Data: data})
}

// writeFail writes an error envelope.
func writeFail(writer http.ResponseWriter, statusCode int, message string) {
	writeJSON(writer, statusCode, envelope{Success: false, Message: message, Error: message})
}

// writeFailure writes a canned [Failure].
func writeFailure(writer http.ResponseWriter, failure Failure) {
	if failure.Raw != "" {
		writer.Header().Set("Content-Type", "application/json; charset=utf-8")
		writer.WriteHeader(failure.Status)
		_, _ = writer.Write([]byte(failure.Raw))
		return
	}
	writeFail(writer, failure.Status, failure.Message)
}

// decodeJSON reads the request body into target.
func decodeJSON(request *http.Request, target any) error {
	return json.NewDecoder(request.Body).Decode(target)
}
