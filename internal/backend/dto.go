package backend

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/susek555/carmarket-gateway/internal/models"
)

// Wire shapes of the backend auth endpoints. The backend speaks snake_case
// and encodes the account kind as a one-letter selector; everything crossing
// this boundary goes through the types below, there is no reflective key
// renaming anywhere else.

const (
	wireKindPerson  = "P"
	wireKindCompany = "C"
)

type loginRequest struct {
	Login    string `json:"login"`
	Password string `json:"password"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type refreshResponse struct {
	AccessToken string `json:"access_token"`
}

type revokeRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type userPayload struct {
	ID          uuid.UUID `json:"id"`
	Username    string    `json:"username"`
	Email       string    `json:"email"`
	AccountType string    `json:"account_type"`
	FirstName   string    `json:"first_name,omitempty"`
	LastName    string    `json:"last_name,omitempty"`
	CompanyName string    `json:"company_name,omitempty"`
	TaxID       string    `json:"tax_id,omitempty"`
}

type loginResponse struct {
	User         userPayload `json:"user"`
	AccessToken  string      `json:"access_token"`
	RefreshToken string      `json:"refresh_token"`
}

// errorEnvelope is the backend's structured failure body
type errorEnvelope struct {
	Errors map[string][]string `json:"errors"`
}

type profileUpdatePayload struct {
	Username    string `json:"username"`
	Email       string `json:"email"`
	AccountType string `json:"account_type"`
	FirstName   string `json:"first_name,omitempty"`
	LastName    string `json:"last_name,omitempty"`
	CompanyName string `json:"company_name,omitempty"`
	TaxID       string `json:"tax_id,omitempty"`
}

type credentialUpdatePayload struct {
	Password string `json:"password"`
}

func kindFromWire(selector string) (models.AccountKind, error) {
	switch selector {
	case wireKindPerson:
		return models.AccountPerson, nil
	case wireKindCompany:
		return models.AccountCompany, nil
	default:
		return "", fmt.Errorf("unknown account selector %q", selector)
	}
}

func kindToWire(kind models.AccountKind) (string, error) {
	switch kind {
	case models.AccountPerson:
		return wireKindPerson, nil
	case models.AccountCompany:
		return wireKindCompany, nil
	default:
		return "", fmt.Errorf("unknown account kind %q", kind)
	}
}

// toSession maps the login body to the Go model. AccessExpiresAt is left
// zero, stamping it is the session manager's job.
func (r loginResponse) toSession() (models.Session, error) {
	kind, err := kindFromWire(r.User.AccountType)
	if err != nil {
		return models.Session{}, fmt.Errorf("login response: %w", err)
	}

	return models.Session{
		AccessToken:     r.AccessToken,
		RefreshToken:    r.RefreshToken,
		AccessExpiresAt: time.Time{},
		User: models.User{
			ID:          r.User.ID,
			Username:    r.User.Username,
			Email:       r.User.Email,
			Kind:        kind,
			FirstName:   r.User.FirstName,
			LastName:    r.User.LastName,
			CompanyName: r.User.CompanyName,
			TaxID:       r.User.TaxID,
		},
	}, nil
}

// MarshalProfileUpdate encodes a profile change the way the backend expects it
func MarshalProfileUpdate(u models.ProfileUpdate) ([]byte, error) {
	selector, err := kindToWire(u.Kind)
	if err != nil {
		return nil, err
	}

	return json.Marshal(profileUpdatePayload{
		Username:    u.Username,
		Email:       u.Email,
		AccountType: selector,
		FirstName:   u.FirstName,
		LastName:    u.LastName,
		CompanyName: u.CompanyName,
		TaxID:       u.TaxID,
	})
}

// MarshalCredentialUpdate encodes a password-only change. It is deliberately
// a distinct payload, never a partial profile.
func MarshalCredentialUpdate(u models.CredentialUpdate) ([]byte, error) {
	return json.Marshal(credentialUpdatePayload{Password: u.Password})
}
