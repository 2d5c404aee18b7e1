package lmssdk

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/ministrylearn/ministrylearn/pkg/idx"
)

// ErrSessionExpired matches any *SessionExpiredError via errors.Is.
var ErrSessionExpired = errors.New("lmssdk: session expired")

// APIError is a non-2xx response from the API. Everything except a
// recoverable 401 reaches the caller in this form.
type APIError struct {
	StatusCode int
	Message    string
	Body       []byte
	RequestID  idx.ID
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("lmssdk: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("lmssdk: HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) IsUnauthorized() bool { return e.StatusCode == http.StatusUnauthorized }
func (e *APIError) IsForbidden() bool    { return e.StatusCode == http.StatusForbidden }
func (e *APIError) IsNotFound() bool     { return e.StatusCode == http.StatusNotFound }

// SessionExpiredError reports that the stored session could not be
// recovered and both tokens were cleared. Cause is the failure that ended it:
// the rejected response, the failed refresh exchange or a transport error.
type SessionExpiredError struct {
	Cause error
}

func (e *SessionExpiredError) Error() string {
	if e.Cause == nil {
		return ErrSessionExpired.Error()
	}
	return ErrSessionExpired.Error() + ": " + e.Cause.Error()
}

func (e *SessionExpiredError) Unwrap() error { return e.Cause }

func (e *SessionExpiredError) Is(target error) bool { return target == ErrSessionExpired }

// DecodeError reports a response body that did not match the expected schema.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("lmssdk: decode %s: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// StatusCode returns the HTTP status carried by err, or 0 when err is not
// an *APIError.
func StatusCode(err error) int {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// errorBody lists the message fields the API is known to use.
type errorBody struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Detail  any    `json:"detail"`
	Msg     string `json:"msg"`
}

func newAPIError(resp *Response) *APIError {
	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    parseErrorMessage(resp.StatusCode, resp.Body),
		Body:       resp.Body,
		RequestID:  resp.RequestID,
	}
}

// parseErrorMessage extracts a human readable message from an error body,
// falling back to the status text.
func parseErrorMessage(status int, body []byte) string {
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Message != "":
			return eb.Message
		case eb.Error != "":
			return eb.Error
		case eb.Msg != "":
			return eb.Msg
		}
		if s, ok := eb.Detail.(string); ok && s != "" {
			return s
		}
	}

	if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 200 && !strings.HasPrefix(text, "{") {
		return text
	}
	return http.StatusText(status)
}
