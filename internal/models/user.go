package models

import (
	"time"

	"github.com/google/uuid"
)

// User is an account created on first authenticated request. ProviderID is
// the OIDC subject; email and name track the identity provider's claims.
type User struct {
	ID            uuid.UUID `json:"id"`
	Email         string    `json:"email"`
	ProviderID    *string   `json:"provider_id,omitempty"`
	Name          *string   `json:"name,omitempty"`
	EmailVerified bool      `json:"email_verified"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}
