package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrUnauthenticated is returned before any network I/O when no token is stored.
	ErrUnauthenticated = errors.New("not logged in")
	// ErrSchemaMismatch wraps a 2xx response whose body does not match the expected record.
	ErrSchemaMismatch = errors.New("response does not match expected schema")
)

// APIError is a non-2xx answer of the tracker API.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Detail)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	return StatusCode(err) == http.StatusNotFound
}

// IsUnauthorized reports whether err is a 401 from the API, i.e. an expired or rejected token.
func IsUnauthorized(err error) bool {
	return StatusCode(err) == http.StatusUnauthorized
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// Detail returns the server detail carried by err, or "".
func Detail(err error) string {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Detail
	}
	return ""
}

// newAPIError extracts the detail from an error body. The detail is usually
// a string; anything else is kept as raw JSON.
func newAPIError(status int, body []byte) *APIError {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}

	detail := strings.TrimSpace(string(body))
	if err := json.Unmarshal(body, &payload); err == nil && len(payload.Detail) > 0 {
		var text string
		if err := json.Unmarshal(payload.Detail, &text); err == nil {
			detail = text
		} else {
			detail = string(payload.Detail)
		}
	}
	if detail == "" {
		detail = http.StatusText(status)
	}

	return &APIError{StatusCode: status, Detail: detail}
}
