package base

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"
)

// HTTPError is returned for any non-2xx PagerDuty response.
type HTTPError struct {
	Method     string
	Path       string
	StatusCode int
	Body       string

	// Parsed from PagerDuty's {"error": {...}} payload when present
	Code    int
	Message string
	Details []string
}

// errorPayload mirrors PagerDuty's error response body
type errorPayload struct {
	Error struct {
		Message string   `json:"message"`
		Code    int      `json:"code"`
		Errors  []string `json:"errors"`
	} `json:"error"`
}

func newHTTPError(method, path string, status int, body []byte) *HTTPError {
	e := &HTTPError{
		Method:     method,
		Path:       path,
		StatusCode: status,
		Body:       string(body),
	}
	var payload errorPayload
	if json.Unmarshal(body, &payload) == nil && payload.Error.Message != "" {
		e.Code = payload.Error.Code
		e.Message = payload.Error.Message
		e.Details = payload.Error.Errors
	}
	return e
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		msg := fmt.Sprintf("PagerDuty API error %d (code %d) on %s %s: %s", e.StatusCode, e.Code, e.Method, e.Path, e.Message)
		if len(e.Details) > 0 {
			msg += ": " + strings.Join(e.Details, "; ")
		}
		return msg
	}
	return fmt.Sprintf("PagerDuty API error %d on %s %s: %s", e.StatusCode, e.Method, e.Path, truncate(e.Body, 200))
}

// ResponseBody returns the raw response body for logging
func (e *HTTPError) ResponseBody() string {
	return e.Body
}

// truncate shortens a string to at most maxLen bytes without splitting a
// UTF-8 sequence, adding "..." if truncated
func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	cut := maxLen
	for cut > 0 && !utf8.RuneStart(s[cut]) {
		cut--
	}
	return s[:cut] + "..."
}
