// ABOUTME: Expiry inspection for backend session tokens
// ABOUTME: Reads the exp claim without verifying the signature

package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// TokenExpiry reads the exp claim from a backend session token without
// verifying it. Verification is the backend's job; the console only
// wants to know when to refresh proactively. Returns false when the
// token is not a JWT or carries no exp claim.
func TokenExpiry(token string) (time.Time, bool) {
	parser := jwt.NewParser()
	parsed, _, err := parser.ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		return time.Time{}, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}, false
	}
	return exp.Time, true
}
