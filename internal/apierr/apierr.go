// Package apierr translates domain errors into HTTP responses at the
// handler boundary. Not-found and authorization failures surface as 4xx,
// upstream oracle failures as 502, everything else as 500.
package apierr

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

type Error struct {
	Status int
	Code   string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	if e.Code != "" {
		return e.Code
	}
	return fmt.Sprintf("api error (%d)", e.Status)
}

func (e *Error) Unwrap() error { return e.Err }

func New(status int, code string, err error) *Error {
	return &Error{Status: status, Code: code, Err: err}
}

func NotFound(code string, err error) *Error {
	return New(http.StatusNotFound, code, err)
}

func BadRequest(code string, err error) *Error {
	return New(http.StatusBadRequest, code, err)
}

func Forbidden(code string, err error) *Error {
	return New(http.StatusForbidden, code, err)
}

func Upstream(code string, err error) *Error {
	return New(http.StatusBadGateway, code, err)
}

// Write renders err as a JSON error response. Unrecognized errors become
// a generic 500 without leaking internals.
func Write(w http.ResponseWriter, err error) {
	var ae *Error
	if !errors.As(err, &ae) {
		ae = New(http.StatusInternalServerError, "internal_error", nil)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(ae.Status)
	msg := ae.Code
	if ae.Err != nil {
		msg = ae.Err.Error()
	}
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   ae.Code,
		"message": msg,
	})
}
