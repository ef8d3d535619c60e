// Package jwtutil validates HS256 shared-secret JWTs and extracts the
// base64-encoded bitmap claim signed-cookie tokens carry.
package jwtutil

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pitabwire/util"

	"github.com/impresso-project/content-authz/internal/bitmask"
)

// Claims is the decoded payload of a validated token: sub, exp, optional
// aud, and the base64-encoded bitmap. raw keeps every top-level claim so
// ExtractBitmap can read a configured key other than "bitmap".
type Claims struct {
	jwt.RegisteredClaims
	Bitmap string `json:"bitmap,omitempty"`

	raw map[string]any
}

// UnmarshalJSON decodes the registered claims and the default bitmap field,
// then keeps the full claim set in raw so a non-default key is still
// readable.
func (c *Claims) UnmarshalJSON(data []byte) error {
	type alias Claims
	if err := json.Unmarshal(data, (*alias)(c)); err != nil {
		return err
	}
	return json.Unmarshal(data, &c.raw)
}

// Validate verifies the token's HS256 signature against secret, its
// expiration, and, when verifyAudience is true and audience is non-empty,
// that audience is among the token's aud claim; an empty audience skips the
// audience check. Any failure returns nil and logs a structured warning;
// it never returns an error to the caller, matching the fail-closed
// extractor contract upstream.
func Validate(ctx context.Context, tokenString, secret, audience string, verifyAudience bool) *Claims {
	claims := &Claims{}

	opts := []jwt.ParserOption{jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name})}
	if verifyAudience && audience != "" {
		opts = append(opts, jwt.WithAudience(audience))
	}

	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return []byte(secret), nil
	}, opts...)
	if err != nil {
		logValidationFailure(ctx, err)
		return nil
	}

	if !parsed.Valid {
		return nil
	}

	return claims
}

func logValidationFailure(ctx context.Context, err error) {
	logger := util.Log(ctx).WithError(err)

	if errors.Is(err, jwt.ErrTokenExpired) {
		logger.Debug("jwt token expired")
		return
	}

	logger.Warn("jwt validation failed")
}

// ExtractBitmap reads claims[key] as a base64-encoded, big-endian mask and
// decodes it. An empty key defaults to "bitmap". A missing or non-string
// claim yields nil, never an error.
func ExtractBitmap(claims *Claims, key string) *bitmask.BitMask64 {
	if claims == nil {
		return nil
	}
	if key == "" || key == "bitmap" {
		if claims.Bitmap == "" {
			return nil
		}
		mask, err := bitmask.FromBase64(claims.Bitmap)
		if err != nil {
			return nil
		}
		return &mask
	}

	v, ok := claims.raw[key]
	if !ok {
		return nil
	}
	s, ok := v.(string)
	if !ok || s == "" {
		return nil
	}
	mask, err := bitmask.FromBase64(s)
	if err != nil {
		return nil
	}
	return &mask
}
