package api

import (
	"bytes"
	"encoding/json"
	"net/http"
	"strings"
)

// Reasons used when the server gives none.
const (
	ReasonInvalidResponse = "Invalid server response"
	ReasonRequestFailed   = "Request failed"
)

// Result is the outcome of one endpoint call: either OK with a decoded
// Value, or not OK with a human-readable Reason.
type Result[T any] struct {
	OK     bool
	Value  T
	Reason string
}

// Succeeded builds an OK result.
func Succeeded[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// Failed builds a failed result.
func Failed[T any](reason string) Result[T] {
	if reason == "" {
		reason = ReasonRequestFailed
	}
	return Result[T]{Reason: reason}
}

// errorBody is the subset of an error response that carries a reason.
type errorBody struct {
	Detail json.RawMessage `json:"detail"`
	Error  json.RawMessage `json:"error"`
}

// decode turns a status code and raw body into a Result. An unparsable
// body fails regardless of status; a non-2xx status fails with the
// body's detail or error field when present.
func decode[T any](status int, body []byte) Result[T] {
	body = bytes.TrimSpace(body)
	if len(body) == 0 {
		body = []byte("{}")
	}
	if !json.Valid(body) {
		return Failed[T](ReasonInvalidResponse)
	}

	if status < http.StatusOK || status >= http.StatusMultipleChoices {
		var eb errorBody
		if err := json.Unmarshal(body, &eb); err != nil {
			return Failed[T](ReasonRequestFailed)
		}
		if reason := rawReason(eb.Detail); reason != "" {
			return Failed[T](reason)
		}
		return Failed[T](rawReason(eb.Error))
	}

	var v T
	if err := json.Unmarshal(body, &v); err != nil {
		return Failed[T](ReasonInvalidResponse)
	}
	return Succeeded(v)
}

// rawReason renders a detail/error value as text. Strings are used as is;
// anything else (validation maps, lists) is shown as compact JSON.
func rawReason(raw json.RawMessage) string {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return strings.TrimSpace(s)
	}
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return ""
	}
	return buf.String()
}
