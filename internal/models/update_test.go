package models

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testSession() Session {
	return Session{
		AccessToken:     "access-token",
		RefreshToken:    "refresh-token",
		AccessExpiresAt: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
		User: User{
			ID:        uuid.New(),
			Username:  "alice",
			Email:     "alice@example.com",
			Kind:      AccountPerson,
			FirstName: "Alice",
			LastName:  "Smith",
		},
	}
}

func TestApply(t *testing.T) {
	t.Run("nil update is a no-op", func(t *testing.T) {
		s := testSession()

		got := Apply(s, nil)

		require.Equal(t, s, got, "session should come back unchanged")
	})

	t.Run("profile update overlays identity only", func(t *testing.T) {
		s := testSession()

		got := Apply(s, ProfileUpdate{
			Username:  "alice2",
			Email:     "alice2@example.com",
			Kind:      AccountPerson,
			FirstName: "Alicia",
			LastName:  "Smith",
		})

		assert.Equal(t, "alice2", got.User.Username)
		assert.Equal(t, "alice2@example.com", got.User.Email)
		assert.Equal(t, "Alicia", got.User.FirstName)

		assert.Equal(t, s.AccessToken, got.AccessToken, "access token must not change")
		assert.Equal(t, s.RefreshToken, got.RefreshToken, "refresh token must not change")
		assert.Equal(t, s.AccessExpiresAt, got.AccessExpiresAt, "expiry must not change")
		assert.Equal(t, s.User.ID, got.User.ID, "user id must not change")
	})

	t.Run("kind switch clears the other kind's fields", func(t *testing.T) {
		s := testSession()

		got := Apply(s, ProfileUpdate{
			Username:    "acme",
			Email:       "office@acme.example",
			Kind:        AccountCompany,
			CompanyName: "ACME",
			TaxID:       "1234567890",
		})

		assert.Equal(t, AccountCompany, got.User.Kind)
		assert.Equal(t, "ACME", got.User.CompanyName)
		assert.Equal(t, "1234567890", got.User.TaxID)
		assert.Empty(t, got.User.FirstName, "person fields should be cleared")
		assert.Empty(t, got.User.LastName, "person fields should be cleared")
	})

	t.Run("credential update leaves the session alone", func(t *testing.T) {
		s := testSession()

		got := Apply(s, CredentialUpdate{Password: "new-password"})

		require.Equal(t, s, got, "password change carries nothing to merge")
	})
}

func TestSession_Expired(t *testing.T) {
	expiresAt := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	s := Session{AccessExpiresAt: expiresAt}

	tests := []struct {
		name    string
		now     time.Time
		expired bool
	}{
		{"before expiry", expiresAt.Add(-time.Minute), false},
		{"at expiry", expiresAt, true},
		{"after expiry", expiresAt.Add(time.Minute), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.Equal(t, tt.expired, s.Expired(tt.now))
		})
	}
}
