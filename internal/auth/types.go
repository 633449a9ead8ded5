package auth

import (
	"time"

	"github.com/google/uuid"
)

// Identity is a registered principal able to authenticate.
type Identity struct {
	ID                uuid.UUID  `json:"id"`
	Name              string     `json:"name"`
	Surname           string     `json:"surname"`
	Email             string     `json:"email,omitempty"`
	Age               int        `json:"age"`
	Phone             string     `json:"phone,omitempty"`
	Role              Role       `json:"role"`
	Disabled          bool       `json:"disabled"`
	PasswordHash      string     `json:"-"`
	ResetToken        string     `json:"-"`
	ResetTokenExpires *time.Time `json:"-"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
}

// HasPendingReset reports whether a reset token is persisted for the identity.
func (i Identity) HasPendingReset() bool {
	return i.ResetToken != "" && i.ResetTokenExpires != nil
}

// AccessToken is the result of a successful login.
type AccessToken struct {
	Token     string    `json:"access_token"`
	Type      string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
}
