// Package apierror defines the normalized error shape returned by the
// authenticated request pipeline and the API surface.
package apierror

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

type Kind string

const (
	KindTransport   Kind = "transport"
	KindAuth        Kind = "auth"
	KindApplication Kind = "application"
	KindHTTP        Kind = "http"
)

const (
	DefaultCode    = http.StatusInternalServerError
	DefaultMessage = "request failed"
)

// ErrLoggedOut matches, via errors.Is, the auth error returned when the
// pipeline gave up on refreshing and cleared the session.
var ErrLoggedOut = errors.New("session ended")

// Error is the uniform {code, message, data} failure surfaced to callers.
type Error struct {
	Kind    Kind            `json:"-"`
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
	Err     error           `json:"-"`

	loggedOut bool
}

func (e *Error) Error() string {
	if e.Err != nil && e.Err.Error() != e.Message {
		return fmt.Sprintf("%s error %d: %s: %v", e.Kind, e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s error %d: %s", e.Kind, e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

func (e *Error) Is(target error) bool {
	return target == ErrLoggedOut && e.loggedOut
}

// Transport normalizes a network or timeout failure. There is no response,
// so the code falls back to 500.
func Transport(err error) *Error {
	msg := DefaultMessage
	if err != nil && strings.TrimSpace(err.Error()) != "" {
		msg = err.Error()
	}
	return &Error{Kind: KindTransport, Code: DefaultCode, Message: msg, Err: err}
}

// FromResponse normalizes a non-2xx HTTP response. The message comes from the
// body's "message" field, then its string "error" field, then DefaultMessage.
func FromResponse(status int, body []byte) *Error {
	kind := KindHTTP
	if status == http.StatusUnauthorized {
		kind = KindAuth
	}
	if status == 0 {
		status = DefaultCode
	}
	msg := messageFromBody(body)
	if msg == "" {
		msg = DefaultMessage
	}
	e := &Error{Kind: kind, Code: status, Message: msg}
	if json.Valid(body) {
		e.Data = json.RawMessage(body)
	}
	return e
}

// Application wraps a non-200 envelope code inside a successful transport
// response.
func Application(code int, message string, data json.RawMessage) *Error {
	if code == 0 {
		code = DefaultCode
	}
	if strings.TrimSpace(message) == "" {
		message = DefaultMessage
	}
	return &Error{Kind: KindApplication, Code: code, Message: message, Data: data}
}

// Auth marks an irrecoverable authentication failure such as a failed token
// refresh. The cause stays reachable through errors.Is / errors.As.
func Auth(cause error) *Error {
	e := &Error{Kind: KindAuth, Code: http.StatusUnauthorized, Message: "authentication required", Err: cause}
	var inner *Error
	if errors.As(cause, &inner) {
		e.Message = inner.Message
		e.Data = inner.Data
	} else if cause != nil {
		e.Message = cause.Error()
	}
	return e
}

// LoggedOut is Auth for a session the pipeline has already cleared.
func LoggedOut(cause error) *Error {
	e := Auth(cause)
	e.loggedOut = true
	return e
}

func IsKind(err error, kind Kind) bool {
	var e *Error
	return errors.As(err, &e) && e.Kind == kind
}

func Code(err error) int {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return 0
}

func messageFromBody(body []byte) string {
	if len(body) == 0 {
		return ""
	}
	var payload struct {
		Message string `json:"message"`
		Error   any    `json:"error"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}
	if m := strings.TrimSpace(payload.Message); m != "" {
		return m
	}
	if s, ok := payload.Error.(string); ok {
		return strings.TrimSpace(s)
	}
	return ""
}
