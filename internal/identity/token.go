package identity

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"

	dErrors "lumine/pkg/domain-errors"
)

// Claims are the staff session token claims. The subject is the user id.
type Claims struct {
	jwt.RegisteredClaims
}

// TokenValidator checks HS256 staff tokens issued by the session provider.
type TokenValidator struct {
	signingKey []byte
	leeway     time.Duration
}

func NewTokenValidator(secret string) *TokenValidator {
	return &TokenValidator{signingKey: []byte(secret), leeway: 30 * time.Second}
}

// Validate returns the token subject.
func (v *TokenValidator) Validate(tokenString string) (string, error) {
	if len(v.signingKey) == 0 {
		return "", dErrors.New(dErrors.CodeUnauthorized, "user token validation is not configured")
	}
	parsed, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrTokenUnverifiable
		}
		return v.signingKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithLeeway(v.leeway))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return "", dErrors.New(dErrors.CodeUnauthorized, "user token has expired")
		}
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid user token")
	}

	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return "", dErrors.New(dErrors.CodeUnauthorized, "invalid user token claims")
	}
	if claims.Subject == "" {
		return "", dErrors.New(dErrors.CodeUnauthorized, "user token has no subject")
	}
	return claims.Subject, nil
}

// IssueToken signs a token for subject. Used by tests and local tooling.
func (v *TokenValidator) IssueToken(subject string, now time.Time, ttl time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	})
	return token.SignedString(v.signingKey)
}
