// Package auth provides optional JWT validation for the API surface.
// Authentication is off by default (§4.12 names no auth requirement); when
// a deployment enables it, every request must carry a valid bearer token
// signed by keys published at the configured JWKS URL.
package auth

import (
	"context"
	"fmt"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

// JWTValidator validates bearer tokens against an auto-refreshed JWKS.
type JWTValidator struct {
	jwksURL  string
	cache    *jwk.Cache
	issuer   string
	audience string
}

// Claims is the subset of standard + custom claims the core cares about:
// Subject becomes the governance engine's user_id.
type Claims struct {
	Subject string
	Email   string
	Role    string
}

// NewJWTValidator builds a validator, fetching and caching the JWKS with a
// 15 minute refresh interval to tolerate key rotation.
func NewJWTValidator(jwksURL, issuer, audience string) (*JWTValidator, error) {
	ctx := context.Background()

	cache := jwk.NewCache(ctx)
	if err := cache.Register(jwksURL, jwk.WithMinRefreshInterval(15*time.Minute)); err != nil {
		return nil, fmt.Errorf("auth: register jwks url: %w", err)
	}
	if _, err := cache.Refresh(ctx, jwksURL); err != nil {
		return nil, fmt.Errorf("auth: fetch jwks from %s: %w", jwksURL, err)
	}

	return &JWTValidator{jwksURL: jwksURL, cache: cache, issuer: issuer, audience: audience}, nil
}

// ValidateToken verifies signature, expiration, issuer, and audience, and
// extracts the claims the core needs.
func (v *JWTValidator) ValidateToken(ctx context.Context, tokenString string) (*Claims, error) {
	keyset, err := v.cache.Get(ctx, v.jwksURL)
	if err != nil {
		return nil, fmt.Errorf("auth: fetch jwks: %w", err)
	}

	token, err := jwt.Parse(
		[]byte(tokenString),
		jwt.WithKeySet(keyset),
		jwt.WithValidate(true),
		jwt.WithIssuer(v.issuer),
		jwt.WithAudience(v.audience),
	)
	if err != nil {
		return nil, fmt.Errorf("auth: invalid token: %w", err)
	}

	claims := &Claims{Subject: token.Subject()}
	if email, ok := token.Get("email"); ok {
		if s, ok := email.(string); ok {
			claims.Email = s
		}
	}
	if role, ok := token.Get("role"); ok {
		if s, ok := role.(string); ok {
			claims.Role = s
		}
	}
	return claims, nil
}
