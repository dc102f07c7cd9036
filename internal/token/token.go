// Package token decodes and issues console session tokens.
//
// Decoding is purely local: it never calls the auth service and never consults the
// clock, so the same token always decodes to the same claims. Expiry is enforced by
// the auth service when the token is presented to it, not by the console.
package token

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// ErrMalformedToken is returned for any token that cannot be decoded into Claims.
var ErrMalformedToken = errors.New("malformed token")

// Claims is the typed payload of a session token.
type Claims struct {
	// LegacyID is the subject id as older auth service releases emit it.
	LegacyID           string   `json:"id,omitempty"`
	Name               string   `json:"name,omitempty"`
	Position           string   `json:"position,omitempty"`
	Rights             []string `json:"rights,omitempty"`
	MustChangePassword bool     `json:"must_change_password,omitempty"`
	jwt.RegisteredClaims
}

// SubjectID returns the account id the token was issued for.
func (c *Claims) SubjectID() string {
	if c.Subject != "" {
		return c.Subject
	}
	return c.LegacyID
}

// Decoder turns raw token strings into Claims.
type Decoder struct {
	key    []byte
	parser *jwt.Parser
}

// NewDecoder returns a Decoder. When verifyKey is empty the token is treated as opaque
// and only its payload is decoded; otherwise the HS256 signature must verify.
func NewDecoder(verifyKey string) *Decoder {
	return &Decoder{
		key: []byte(verifyKey),
		parser: jwt.NewParser(
			jwt.WithoutClaimsValidation(),
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		),
	}
}

// Verifies reports whether the decoder checks signatures.
func (d *Decoder) Verifies() bool {
	return len(d.key) > 0
}

// Decode parses raw. Every failure is reported as ErrMalformedToken.
func (d *Decoder) Decode(raw string) (*Claims, error) {
	if raw == "" {
		return nil, fmt.Errorf("%w: empty token", ErrMalformedToken)
	}

	claims := &Claims{}
	if !d.Verifies() {
		if _, _, err := d.parser.ParseUnverified(raw, claims); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
		}
		return normalize(claims)
	}

	parsed, err := d.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return d.key, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedToken, err)
	}
	if !parsed.Valid {
		return nil, fmt.Errorf("%w: invalid signature", ErrMalformedToken)
	}
	return normalize(claims)
}

func normalize(c *Claims) (*Claims, error) {
	if c.SubjectID() == "" {
		return nil, fmt.Errorf("%w: missing subject", ErrMalformedToken)
	}
	if c.Rights == nil {
		c.Rights = []string{}
	}
	return c, nil
}

// Profile is the identity a token is issued for.
type Profile struct {
	SubjectID          string
	Name               string
	Position           string
	Rights             []string
	MustChangePassword bool
}

// Issuer signs HS256 session tokens. The production auth service issues its own;
// this is used by the development auth stub and in tests.
type Issuer struct {
	signingKey []byte
	issuer     string
}

func NewIssuer(signingKey string, issuer string) *Issuer {
	return &Issuer{
		signingKey: []byte(signingKey),
		issuer:     issuer,
	}
}

func (i *Issuer) Issue(p Profile, expiresIn time.Duration) (string, error) {
	now := time.Now()
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		Name:               p.Name,
		Position:           p.Position,
		Rights:             p.Rights,
		MustChangePassword: p.MustChangePassword,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   p.SubjectID,
			ExpiresAt: jwt.NewNumericDate(now.Add(expiresIn)),
			IssuedAt:  jwt.NewNumericDate(now),
			Issuer:    i.issuer,
			ID:        uuid.NewString(),
		},
	})

	signed, err := t.SignedString(i.signingKey)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}
