package apperr

import (
	"errors"
	"net/http"
)

// Error is a typed, status-aware application error. Code is stable and safe
// to branch on; Message is operator-facing.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message,omitempty"`
	Status  int    `json:"-"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return "error"
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is lets errors.Is match two apperr values by code, so callers can compare
// against the sentinels below without caring about the wrapped cause.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e != nil && t != nil && e.Code == t.Code
}

func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches err as the cause of a copy of base. A nil err returns nil.
func Wrap(err error, base *Error, message string) *Error {
	if err == nil {
		return nil
	}
	if base == nil {
		base = ErrInternal
	}
	copied := *base
	if message != "" {
		copied.Message = message
	}
	copied.Err = err
	return &copied
}

func As(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) && e != nil {
		return e, true
	}
	return nil, false
}

func Code(err error) string {
	if e, ok := As(err); ok && e.Code != "" {
		return e.Code
	}
	return "internal_error"
}

func Status(err error) int {
	if e, ok := As(err); ok && e.Status != 0 {
		return e.Status
	}
	return http.StatusInternalServerError
}

func Payload(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	if e, ok := As(err); ok {
		return map[string]any{"code": e.Code, "message": e.Error()}
	}
	return map[string]any{"code": "internal_error", "message": err.Error()}
}

var (
	ErrInvalidEmail    = New("invalid_email", http.StatusBadRequest, "email address is not valid")
	ErrBindingConflict = New("binding_conflict", http.StatusConflict, "email is already linked to another member")
	ErrGateway         = New("gateway_error", http.StatusBadGateway, "commerce lookup failed")
	ErrRoleConfig      = New("role_config", http.StatusInternalServerError, "configured role missing on platform")
	ErrPlatform        = New("platform_error", http.StatusBadGateway, "membership platform call failed")
	ErrStore           = New("store_error", http.StatusInternalServerError, "")
	ErrBadRequest      = New("bad_request", http.StatusBadRequest, "")
	ErrUnauthorized    = New("unauthorized", http.StatusUnauthorized, "")
	ErrInternal        = New("internal_error", http.StatusInternalServerError, "")
)
