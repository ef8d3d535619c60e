package jwtutil_test

import (
	"context"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/impresso-project/content-authz/internal/bitmask"
	"github.com/impresso-project/content-authz/internal/jwtutil"
)

const testSecret = "shared-test-secret"

func signToken(t *testing.T, claims jwtutil.Claims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestValidateSucceeds(t *testing.T) {
	claims := jwtutil.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Bitmap: bitmask.FromInt(0x01).Base64(),
	}
	signed := signToken(t, claims)

	got := jwtutil.Validate(context.Background(), signed, testSecret, "", false)
	require.NotNil(t, got)
	assert.Equal(t, "user-1", got.Subject)
}

func TestValidateRejectsExpired(t *testing.T) {
	claims := jwtutil.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
		},
	}
	signed := signToken(t, claims)

	got := jwtutil.Validate(context.Background(), signed, testSecret, "", false)
	assert.Nil(t, got)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	signed := signToken(t, jwtutil.Claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "user-1"}})

	got := jwtutil.Validate(context.Background(), signed, "wrong-secret", "", false)
	assert.Nil(t, got)
}

func TestValidateAudience(t *testing.T) {
	claims := jwtutil.Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			Audience:  jwt.ClaimStrings{"https://example.org"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed := signToken(t, claims)

	assert.NotNil(t, jwtutil.Validate(context.Background(), signed, testSecret, "https://example.org", true))
	assert.Nil(t, jwtutil.Validate(context.Background(), signed, testSecret, "https://other.org", true))
}

func TestExtractBitmap(t *testing.T) {
	original := bitmask.FromInt(0x0102)
	claims := &jwtutil.Claims{Bitmap: original.Base64()}

	got := jwtutil.ExtractBitmap(claims, "")
	require.NotNil(t, got)
	assert.Equal(t, original, *got)
}

func TestExtractBitmapMissing(t *testing.T) {
	assert.Nil(t, jwtutil.ExtractBitmap(&jwtutil.Claims{}, "bitmap"))
	assert.Nil(t, jwtutil.ExtractBitmap(nil, "bitmap"))
}

func TestExtractBitmapCustomKey(t *testing.T) {
	original := bitmask.FromInt(0x0102)
	// Sign via raw MapClaims so the token carries a claim under a
	// non-default key, since jwtutil.Claims only has a struct field for
	// the default "bitmap".
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub":        "user-1",
		"rights_key": original.Base64(),
	})
	signed, err := tok.SignedString([]byte(testSecret))
	require.NoError(t, err)

	got := jwtutil.Validate(context.Background(), signed, testSecret, "", false)
	require.NotNil(t, got)

	mask := jwtutil.ExtractBitmap(got, "rights_key")
	require.NotNil(t, mask)
	assert.Equal(t, original, *mask)
}
