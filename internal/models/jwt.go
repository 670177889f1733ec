package models

// JWTClaims holds the claims the verifier reads from an OIDC access token.
// Sub is the provider-scoped subject used to look up or create the local user.
type JWTClaims struct {
	Sub   string `json:"sub"`
	Email string `json:"email"`
	Name  string `json:"name"`
	Exp   int64  `json:"exp"`
	Iat   int64  `json:"iat"`
	Iss   string `json:"iss"`
	Aud   string `json:"aud"`
}
