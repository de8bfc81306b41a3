package session

import (
	"crypto/sha256"
	"fmt"
	"io"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/hkdf"

	"github.com/susek555/carmarket-gateway/internal/apperrors"
	"github.com/susek555/carmarket-gateway/internal/models"
)

// Info string for HKDF so the cookie key never equals the raw app secret
const tokenKeyInfo = "carmarket-gateway session token v1"

const signingMethod = "HS256"

// sessionClaims is the signed cookie payload. Everything the gateway knows
// about a browser session lives here; there is no server-side copy.
type sessionClaims struct {
	jwt.RegisteredClaims

	AccessToken     string           `json:"at"`
	RefreshToken    string           `json:"rt"`
	AccessExpiresAt *jwt.NumericDate `json:"ate,omitempty"`

	Username    string `json:"username"`
	Email       string `json:"email"`
	Kind        string `json:"kind"`
	FirstName   string `json:"firstName,omitempty"`
	LastName    string `json:"lastName,omitempty"`
	CompanyName string `json:"companyName,omitempty"`
	TaxID       string `json:"taxId,omitempty"`

	SessionError string `json:"sessionError,omitempty"`
}

// tokenCodec signs and verifies the session cookie value
type tokenCodec struct {
	key []byte
	alg jwt.SigningMethod

	// Lifetime of the container itself (the cookie), independent of the
	// access token expiry inside it
	ttl time.Duration
}

func newTokenCodec(secret string, ttl time.Duration) (tokenCodec, error) {
	key, err := deriveKey(secret)
	if err != nil {
		return tokenCodec{}, err
	}

	return tokenCodec{
		key: key,
		alg: jwt.GetSigningMethod(signingMethod),
		ttl: ttl,
	}, nil
}

func deriveKey(secret string) ([]byte, error) {
	r := hkdf.New(sha256.New, []byte(secret), nil, []byte(tokenKeyInfo))

	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("error while deriving session key. Err: %w", err)
	}

	return key, nil
}

func (c tokenCodec) Encode(s models.Session) (string, error) {
	now := time.Now().Truncate(time.Second)

	claims := sessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   s.User.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(c.ttl)),
		},
		AccessToken:  s.AccessToken,
		RefreshToken: s.RefreshToken,
		Username:     s.User.Username,
		Email:        s.User.Email,
		Kind:         string(s.User.Kind),
		FirstName:    s.User.FirstName,
		LastName:     s.User.LastName,
		CompanyName:  s.User.CompanyName,
		TaxID:        s.User.TaxID,
		SessionError: s.Error,
	}
	if !s.AccessExpiresAt.IsZero() {
		claims.AccessExpiresAt = jwt.NewNumericDate(s.AccessExpiresAt)
	}

	token, err := jwt.NewWithClaims(c.alg, claims).SignedString(c.key)
	if err != nil {
		return "", fmt.Errorf("error while signing session token. Err: %w", err)
	}

	return token, nil
}

func (c tokenCodec) Decode(value string) (models.Session, error) {
	claims := &sessionClaims{}

	_, err := jwt.ParseWithClaims(
		value,
		claims,
		func(t *jwt.Token) (any, error) { return c.key, nil },
		jwt.WithValidMethods([]string{c.alg.Alg()}),
	)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: %w", apperrors.ErrSessionInvalid, err)
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return models.Session{}, fmt.Errorf("%w: bad subject: %w", apperrors.ErrSessionInvalid, err)
	}

	s := models.Session{
		AccessToken:  claims.AccessToken,
		RefreshToken: claims.RefreshToken,
		User: models.User{
			ID:          userID,
			Username:    claims.Username,
			Email:       claims.Email,
			Kind:        models.AccountKind(claims.Kind),
			FirstName:   claims.FirstName,
			LastName:    claims.LastName,
			CompanyName: claims.CompanyName,
			TaxID:       claims.TaxID,
		},
		Error: claims.SessionError,
	}
	if claims.AccessExpiresAt != nil {
		s.AccessExpiresAt = claims.AccessExpiresAt.Time
	}

	return s, nil
}
