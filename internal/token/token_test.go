package token

import (
	"encoding/base64"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const signingKey = "test-signing-key"

var issuer = NewIssuer(signingKey, "test-issuer")

var profile = Profile{
	SubjectID: "U1",
	Name:      "Ada Admin",
	Position:  "Administrator",
	Rights:    []string{"manage_dental", "manage_website"},
}

func Test_IssueAndDecode(t *testing.T) {
	raw, err := issuer.Issue(profile, time.Hour)
	require.NoError(t, err)

	for name, d := range map[string]*Decoder{
		"verifying": NewDecoder(signingKey),
		"opaque":    NewDecoder(""),
	} {
		t.Run(name, func(t *testing.T) {
			claims, err := d.Decode(raw)
			require.NoError(t, err)
			assert.Equal(t, "U1", claims.SubjectID())
			assert.Equal(t, "Ada Admin", claims.Name)
			assert.Equal(t, "Administrator", claims.Position)
			assert.ElementsMatch(t, profile.Rights, claims.Rights)
			assert.False(t, claims.MustChangePassword)
		})
	}
}

func Test_Decode_ExpiredTokenStillDecodes(t *testing.T) {
	raw, err := issuer.Issue(profile, -time.Hour)
	require.NoError(t, err)

	claims, err := NewDecoder(signingKey).Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "U1", claims.SubjectID())
}

func Test_Decode_Malformed(t *testing.T) {
	raw, err := issuer.Issue(profile, time.Hour)
	require.NoError(t, err)

	cases := map[string]struct {
		decoder *Decoder
		raw     string
	}{
		"empty":       {NewDecoder(""), ""},
		"garbage":     {NewDecoder(""), "not-a-token"},
		"wrong key":   {NewDecoder("other-key"), raw},
		"bad payload": {NewDecoder(""), "eyJhbGciOiJIUzI1NiJ9." + base64.RawURLEncoding.EncodeToString([]byte(`{"sub":"U1","rights":"manage_dental"}`)) + ".sig"},
		"no subject":  {NewDecoder(""), mustSign(t, jwt.MapClaims{"rights": []string{"manage_dental"}})},
		"alg none":    {NewDecoder(signingKey), unsignedNone(t)},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := tc.decoder.Decode(tc.raw)
			require.ErrorIs(t, err, ErrMalformedToken)
		})
	}
}

func Test_Decode_Defaults(t *testing.T) {
	raw := mustSign(t, jwt.MapClaims{"sub": "U9"})

	claims, err := NewDecoder(signingKey).Decode(raw)
	require.NoError(t, err)
	assert.NotNil(t, claims.Rights)
	assert.Empty(t, claims.Rights)
	assert.False(t, claims.MustChangePassword)
}

func Test_Decode_LegacySubject(t *testing.T) {
	raw := mustSign(t, jwt.MapClaims{"id": "42", "rights": []string{"view_reports"}, "must_change_password": true})

	claims, err := NewDecoder("").Decode(raw)
	require.NoError(t, err)
	assert.Equal(t, "42", claims.SubjectID())
	assert.True(t, claims.MustChangePassword)
}

func mustSign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(signingKey))
	require.NoError(t, err)
	return raw
}

func unsignedNone(t *testing.T) string {
	t.Helper()
	raw, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{"sub": "U1"}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)
	return raw
}
