package models

// SessionUpdate is the closed set of payloads that may be merged into a
// session after a successful account mutation. Callers state what they send,
// the merge site never inspects the payload shape to guess.
type SessionUpdate interface {
	applyTo(s Session) Session
}

// ProfileUpdate overlays the updated identity fields. Token fields are never
// touched.
type ProfileUpdate struct {
	Username string
	Email    string
	Kind     AccountKind

	FirstName string
	LastName  string

	CompanyName string
	TaxID       string
}

func (u ProfileUpdate) applyTo(s Session) Session {
	s.User.Username = u.Username
	s.User.Email = u.Email
	s.User.Kind = u.Kind

	switch u.Kind {
	case AccountPerson:
		s.User.FirstName = u.FirstName
		s.User.LastName = u.LastName
		s.User.CompanyName = ""
		s.User.TaxID = ""
	case AccountCompany:
		s.User.CompanyName = u.CompanyName
		s.User.TaxID = u.TaxID
		s.User.FirstName = ""
		s.User.LastName = ""
	}

	return s
}

// CredentialUpdate marks a password-only change. The session stores no
// credential material, so the merge leaves every field alone; the type exists
// so a credential change is never mistaken for a profile payload.
type CredentialUpdate struct {
	Password string
}

func (u CredentialUpdate) applyTo(s Session) Session {
	return s
}

// Apply merges a recognized update into the session and returns the result.
// A nil or unrecognized update is a no-op: the input session comes back
// unchanged.
func Apply(s Session, update SessionUpdate) Session {
	if update == nil {
		return s
	}
	return update.applyTo(s)
}
