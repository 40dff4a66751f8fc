package session

import (
	"time"

	jwt "github.com/golang-jwt/jwt/v5"
)

// AccessExpiry reads the exp claim from an access token without verifying the
// signature. Verification belongs to the auth service; this side only needs
// the expiry for refresh scheduling. A zero time means the token is unreadable
// and must be treated as expired.
func AccessExpiry(accessToken string) time.Time {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return time.Time{}
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return time.Time{}
	}
	return exp.Time
}

// Identity reads the subject and email claims from an access token without
// verifying the signature.
func Identity(accessToken string) Principal {
	parser := jwt.NewParser()
	claims := jwt.MapClaims{}
	if _, _, err := parser.ParseUnverified(accessToken, claims); err != nil {
		return Principal{}
	}

	principal := Principal{}
	if sub, err := claims.GetSubject(); err == nil {
		principal.UserID = sub
	}
	if email, ok := claims["email"].(string); ok {
		principal.Email = email
	}
	return principal
}
