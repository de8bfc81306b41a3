package apperrors

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionInvalid  = errors.New("session token invalid")

	ErrInvalidCredentials   = errors.New("invalid credentials")
	ErrRefreshTokenRejected = errors.New("refresh token rejected")

	ErrBackendUnavailable = errors.New("backend unavailable")
)

// FieldErrors is the backend's structured login/validation failure: lists of
// messages keyed by field name. The set of keys is not fixed, callers must
// render whatever names arrive.
type FieldErrors map[string][]string

func (e FieldErrors) Error() string {
	if len(e) == 0 {
		return "field errors"
	}

	keys := make([]string, 0, len(e))
	for k := range e {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, fmt.Sprintf("%s: %s", k, strings.Join(e[k], "; ")))
	}
	return strings.Join(parts, ", ")
}

// Add appends a message to the named field list
func (e FieldErrors) Add(field string, msg string) {
	e[field] = append(e[field], msg)
}
