// Package auth verifies the signed execution tokens that sandboxed scripts
// present on every request. Tokens are issued by the orchestrator; this
// service only checks them.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/runcept/runcept/pkg/models"
)

// ErrInvalidToken covers every verification failure: bad signature,
// malformed token, unexpected algorithm or expiry in the past. Callers map
// it to an unauthenticated response and never retry.
var ErrInvalidToken = errors.New("invalid execution token")

// IsInvalidToken checks if an error indicates a failed token verification.
func IsInvalidToken(err error) bool {
	return errors.Is(err, ErrInvalidToken)
}

// tokenClaims is the wire shape of the execution token.
type tokenClaims struct {
	JobID       string `json:"jobId"`
	ExecutionID string `json:"executionId"`
	UserID      string `json:"userId"`
	EventID     string `json:"eventId"`
	jwt.RegisteredClaims
}

// Verifier checks HMAC-SHA256 execution tokens against a shared secret
// provisioned out-of-band. Verification is pure: no I/O, no clock state
// beyond time.Now.
type Verifier struct {
	secret []byte
}

func NewVerifier(secret string) *Verifier {
	return &Verifier{secret: []byte(secret)}
}

// Verify parses and validates the token string and returns the immutable
// claims. Any failure is reported as ErrInvalidToken.
func (v *Verifier) Verify(tokenString string) (*models.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &tokenClaims{}, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", token.Header["alg"])
		}

		return v.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*tokenClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	if claims.ExecutionID == "" {
		return nil, fmt.Errorf("%w: missing execution id claim", ErrInvalidToken)
	}

	out := &models.Claims{
		JobID:       claims.JobID,
		ExecutionID: claims.ExecutionID,
		UserID:      claims.UserID,
		EventID:     claims.EventID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}

	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}

	// jwt's validator already rejects expired tokens; keep the invariant
	// explicit in case parser options drift.
	if !out.ExpiresAt.After(time.Now()) {
		return nil, fmt.Errorf("%w: token expired", ErrInvalidToken)
	}

	return out, nil
}
