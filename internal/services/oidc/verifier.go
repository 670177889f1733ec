package oidc

import (
	"context"
	"fmt"

	"github.com/lestrrat-go/jwx/v2/jwt"

	"github.com/scriptpolish/scriptpolish-api/internal/models"
)

// Verifier validates bearer tokens against a JWKS endpoint and a fixed issuer
type Verifier struct {
	jwksManager *JWKSManager
	issuer      string
}

// NewVerifier creates a verifier for tokens issued by issuer
func NewVerifier(jwksManager *JWKSManager, issuer string) *Verifier {
	return &Verifier{
		jwksManager: jwksManager,
		issuer:      issuer,
	}
}

// Verify checks the token signature and expiry against the JWKS endpoint,
// enforces the issuer, and returns the extracted claims
func (v *Verifier) Verify(ctx context.Context, tokenString string, jwksURL string) (*models.JWTClaims, error) {
	keys, err := v.jwksManager.GetJWKS(ctx, jwksURL)
	if err != nil {
		return nil, fmt.Errorf("failed to get JWKS: %w", err)
	}

	token, err := jwt.Parse([]byte(tokenString), jwt.WithKeySet(keys), jwt.WithValidate(true))
	if err != nil {
		return nil, fmt.Errorf("failed to parse/verify token: %w", err)
	}

	iss, ok := token.Get("iss")
	if !ok {
		return nil, fmt.Errorf("token missing issuer claim")
	}
	if issStr, ok := iss.(string); !ok || issStr != v.issuer {
		return nil, fmt.Errorf("token issuer mismatch: expected %s, got %v", v.issuer, iss)
	}

	claims := &models.JWTClaims{}
	claims.Sub = stringClaim(token, "sub")
	claims.Email = stringClaim(token, "email")
	claims.Name = stringClaim(token, "name")
	claims.Iss = stringClaim(token, "iss")
	claims.Exp = int64Claim(token, "exp")
	claims.Iat = int64Claim(token, "iat")

	// aud may be a string or an array; keep the first entry
	if aud, ok := token.Get("aud"); ok {
		switch a := aud.(type) {
		case string:
			claims.Aud = a
		case []any:
			if len(a) > 0 {
				if s, ok := a[0].(string); ok {
					claims.Aud = s
				}
			}
		}
	}

	return claims, nil
}

func stringClaim(token jwt.Token, name string) string {
	if v, ok := token.Get(name); ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}

func int64Claim(token jwt.Token, name string) int64 {
	if v, ok := token.Get(name); ok {
		if f, ok := v.(float64); ok {
			return int64(f)
		}
	}
	return 0
}
