package identity

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret"

func signToken(t *testing.T, method jwt.SigningMethod, key any, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(method, claims).SignedString(key)
	require.NoError(t, err)
	return token
}

func validClaims(role string) jwt.MapClaims {
	return jwt.MapClaims{
		"sub":      "42",
		"username": "sam",
		"role":     role,
		"exp":      time.Now().Add(time.Hour).Unix(),
	}
}

func TestVerifyAcceptsSignedToken(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, nil)
	require.NoError(t, err)

	claims, err := v.Verify(signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("admin")))
	require.NoError(t, err)
	assert.Equal(t, Claims{Subject: "42", Username: "sam", Role: "admin"}, claims)
}

func TestVerifyRejectsBadTokens(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, nil)
	require.NoError(t, err)

	expired := validClaims("customer")
	expired["exp"] = time.Now().Add(-time.Minute).Unix()
	noExpiry := validClaims("customer")
	delete(noExpiry, "exp")

	cases := map[string]string{
		"empty":         "",
		"garbage":       "not-a-token",
		"wrong secret":  signToken(t, jwt.SigningMethodHS256, []byte("other"), validClaims("customer")),
		"expired":       signToken(t, jwt.SigningMethodHS256, []byte(testSecret), expired),
		"missing exp":   signToken(t, jwt.SigningMethodHS256, []byte(testSecret), noExpiry),
		"wrong alg":     signToken(t, jwt.SigningMethodHS512, []byte(testSecret), validClaims("customer")),
		"unsigned none": signToken(t, jwt.SigningMethodNone, jwt.UnsafeAllowNoneSignatureType, validClaims("admin")),
	}
	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := v.Verify(token)
			assert.ErrorIs(t, err, ErrUnauthenticated)
		})
	}
}

func TestNewHMACVerifierRequiresSecret(t *testing.T) {
	_, err := NewHMACVerifier("  ", nil)
	assert.Error(t, err)
}

func TestFromClaims(t *testing.T) {
	p, err := FromClaims(Claims{Subject: "7", Username: "kim", Role: "Customer"})
	require.NoError(t, err)
	assert.Equal(t, Principal{ID: "7", Role: RoleCustomer, Username: "kim"}, p)
	assert.True(t, p.Authenticated())

	_, err = FromClaims(Claims{Subject: "7", Role: "superuser"})
	assert.ErrorIs(t, err, ErrUnauthenticated)

	_, err = FromClaims(Claims{Role: "admin"})
	assert.ErrorIs(t, err, ErrUnauthenticated)
}

func TestAuthenticate(t *testing.T) {
	v, err := NewHMACVerifier(testSecret, nil)
	require.NoError(t, err)

	p, err := Authenticate(v, "")
	require.NoError(t, err)
	assert.False(t, p.Authenticated())

	_, err = Authenticate(v, "Basic abc")
	assert.ErrorIs(t, err, ErrUnauthenticated)

	token := signToken(t, jwt.SigningMethodHS256, []byte(testSecret), validClaims("admin"))
	p, err = Authenticate(v, "Bearer "+token)
	require.NoError(t, err)
	assert.Equal(t, RoleAdmin, p.Role)
	assert.Equal(t, "42", p.ID)
}

func TestPrincipalContext(t *testing.T) {
	assert.Equal(t, Anonymous, FromContext(context.Background()))

	ctx := WithPrincipal(context.Background(), Principal{ID: "1", Role: RoleAdmin})
	assert.Equal(t, RoleAdmin, FromContext(ctx).Role)
}
