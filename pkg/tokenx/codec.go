package tokenx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Decode failure taxonomy. One set for the whole subsystem; services map
// these to their own API-level errors at the boundary.
var (
	ErrMalformed     = errors.New("tokenx: malformed token")
	ErrUnknownKeyID  = errors.New("tokenx: unknown key id")
	ErrSignature     = errors.New("tokenx: invalid signature")
	ErrWrongType     = errors.New("tokenx: unexpected token type")
	ErrExpired       = errors.New("tokenx: token expired")
	ErrNotYetValid   = errors.New("tokenx: token not yet valid")
	ErrInvalidClaims = errors.New("tokenx: invalid claims")
)

// Codec signs and verifies tokens with HMAC-SHA256. The signing secret is
// selected from the keychain at encode time and addressed by the "kid"
// header at decode time, so rotation never invalidates live tokens.
// Decode is a pure function of its input and the keychain state.
type Codec struct {
	Keys   *Keychain
	Issuer string

	// Leeway tolerates clock skew when validating exp/nbf.
	Leeway time.Duration
}

// Encode signs claims with the current secret and returns the compact
// serialized token.
func (c *Codec) Encode(claims Claims) (string, error) {
	if claims.TokenType == "" {
		return "", fmt.Errorf("%w: missing token type", ErrInvalidClaims)
	}
	if claims.ExpiresAt == nil || claims.IssuedAt == nil ||
		!claims.ExpiresAt.After(claims.IssuedAt.Time) {
		return "", fmt.Errorf("%w: expiry must be after issue time", ErrInvalidClaims)
	}

	secret, err := c.Keys.Current()
	if err != nil {
		return "", err
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = secret.KID

	signed, err := token.SignedString(secret.Value)
	if err != nil {
		return "", fmt.Errorf("tokenx: signing failed: %w", err)
	}
	return signed, nil
}

// Decode verifies raw against the keychain and returns its claims.
// It fails with ErrMalformed on a structurally invalid token,
// ErrUnknownKeyID when the kid is not in the keychain, ErrSignature on a
// bad signature or algorithm, ErrExpired / ErrNotYetValid on time bounds,
// and ErrWrongType when the token_type claim is not expectedType.
func (c *Codec) Decode(raw, expectedType string) (Claims, error) {
	var claims Claims

	keyFunc := func(token *jwt.Token) (any, error) {
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, ErrMalformed
		}
		secret, ok := c.Keys.ByKID(kid)
		if !ok {
			return nil, ErrUnknownKeyID
		}
		return secret.Value, nil
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.Leeway),
		jwt.WithExpirationRequired(),
	}
	if c.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.Issuer))
	}

	_, err := jwt.ParseWithClaims(raw, &claims, keyFunc, opts...)
	if err != nil {
		return Claims{}, mapParseError(err)
	}

	if claims.TokenType != expectedType {
		return Claims{}, ErrWrongType
	}
	if claims.Subject == "" {
		return Claims{}, fmt.Errorf("%w: missing subject", ErrInvalidClaims)
	}

	return claims, nil
}

// mapParseError collapses golang-jwt errors into the codec taxonomy.
func mapParseError(err error) error {
	switch {
	case errors.Is(err, ErrUnknownKeyID):
		return ErrUnknownKeyID
	case errors.Is(err, ErrMalformed), errors.Is(err, jwt.ErrTokenMalformed):
		return ErrMalformed
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrSignature
	case errors.Is(err, jwt.ErrTokenInvalidIssuer):
		return fmt.Errorf("%w: issuer mismatch", ErrInvalidClaims)
	case errors.Is(err, jwt.ErrTokenRequiredClaimMissing):
		return fmt.Errorf("%w: missing expiry", ErrInvalidClaims)
	default:
		return fmt.Errorf("%w: %v", ErrSignature, err)
	}
}
