package extractor

import (
	"context"
	"net/http"

	"github.com/impresso-project/content-authz/internal/jwtutil"
	"github.com/impresso-project/content-authz/internal/uriutil"
)

// CookieBitmap reads the named cookie, validates it as a JWT against
// jwtSecret with an audience reconstructed from the forwarded proxy
// headers, and returns the bitmapKey claim (defaulting to "bitmap").
func CookieBitmap(cookieName, jwtSecret, bitmapKey string, verifyAudience bool) Extractor {
	return func(ctx context.Context, r *http.Request) (any, error) {
		claims := validateCookie(ctx, r, cookieName, jwtSecret, verifyAudience)
		if claims == nil {
			return nil, nil
		}

		mask := jwtutil.ExtractBitmap(claims, bitmapKey)
		if mask == nil {
			return nil, nil
		}
		return *mask, nil
	}
}

// CookieUserID reads the named cookie, validates it the same way
// CookieBitmap does, and returns the JWT's sub claim.
func CookieUserID(cookieName, jwtSecret string, verifyAudience bool) Extractor {
	return func(ctx context.Context, r *http.Request) (any, error) {
		claims := validateCookie(ctx, r, cookieName, jwtSecret, verifyAudience)
		if claims == nil || claims.Subject == "" {
			return nil, nil
		}
		return claims.Subject, nil
	}
}

func validateCookie(ctx context.Context, r *http.Request, cookieName, jwtSecret string, verifyAudience bool) *jwtutil.Claims {
	c, err := r.Cookie(cookieName)
	if err != nil || c.Value == "" {
		return nil
	}

	audience := uriutil.Audience(r)
	return jwtutil.Validate(ctx, c.Value, jwtSecret, audience, verifyAudience)
}
