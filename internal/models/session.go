package models

import (
	"time"

	"github.com/google/uuid"
)

// Marker stored in Session.Error after a failed token refresh. Consumers must
// treat a session carrying it as "require re-login".
const RefreshTokenError = "RefreshTokenError"

// Account kind discriminator. Kind-specific profile fields are only
// meaningful for the matching kind.
type AccountKind string

const (
	AccountPerson  AccountKind = "person"
	AccountCompany AccountKind = "company"
)

// User identity carried inside the session
type User struct {
	ID       uuid.UUID
	Username string
	Email    string
	Kind     AccountKind

	// Person fields
	FirstName string
	LastName  string

	// Company fields
	CompanyName string
	TaxID       string
}

// Session is one authenticated browser session: backend credentials plus the
// identity shown in the UI. It lives inside a signed cookie, every request
// re-derives its own snapshot, there is no shared in-process copy.
type Session struct {
	AccessToken     string
	RefreshToken    string
	AccessExpiresAt time.Time

	User User

	// Error is set instead of failing the pipeline, e.g. RefreshTokenError
	Error string
}

// Expired reports whether the access token must be refreshed before use
func (s Session) Expired(now time.Time) bool {
	return !now.Before(s.AccessExpiresAt)
}

// Authenticated reports whether the session carries a usable identity
func (s Session) Authenticated() bool {
	return s.AccessToken != ""
}
