package service

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrUnauthorized = errors.New("unauthorized")

// Claims is the bearer credential issued by the platform's auth service.
type Claims struct {
	Shop string `json:"shop,omitempty"`
	jwt.RegisteredClaims
}

// Authenticator verifies HS256 bearer tokens against the identity a
// connection claims in its query string.
type Authenticator struct {
	secret []byte
	issuer string
	leeway time.Duration
}

func NewAuthenticator(secret, issuer string) *Authenticator {
	return &Authenticator{
		secret: []byte(secret),
		issuer: issuer,
		leeway: 30 * time.Second,
	}
}

// Verify checks the token and that it speaks for userID. The shop claim must
// equal shopSlug: a token without one cannot act for a shop, and a shop
// token cannot connect as a plain user.
func (a *Authenticator) Verify(token, userID, shopSlug string) (*Claims, error) {
	if token == "" {
		return nil, fmt.Errorf("%w: missing token", ErrUnauthorized)
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(a.leeway),
		jwt.WithExpirationRequired(),
	}
	if a.issuer != "" {
		opts = append(opts, jwt.WithIssuer(a.issuer))
	}

	claims := &Claims{}
	_, err := jwt.ParseWithClaims(token, claims, func(t *jwt.Token) (interface{}, error) {
		return a.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnauthorized, err)
	}

	if claims.Subject != userID {
		return nil, fmt.Errorf("%w: token subject does not match user", ErrUnauthorized)
	}
	if claims.Shop != shopSlug {
		return nil, fmt.Errorf("%w: token shop does not match shop slug", ErrUnauthorized)
	}
	return claims, nil
}

// BearerToken extracts the credential from an Authorization header value,
// falling back to the token query parameter.
func BearerToken(header, query string) string {
	if v, ok := strings.CutPrefix(header, "Bearer "); ok {
		return strings.TrimSpace(v)
	}
	return query
}
