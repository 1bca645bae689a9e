package chatauth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the claims carried by the platform session JWT. Anonymous
// sessions set Anonymous and use the anonymous sentinel as identity.
type SessionClaims struct {
	jwt.RegisteredClaims
	UID       string `json:"uid,omitempty"`
	Anonymous bool   `json:"anon,omitempty"`
	Provider  string `json:"provider,omitempty"`
}

// Subject returns the subject claim
func (c *SessionClaims) Subject() string {
	return c.RegisteredClaims.Subject
}

// Identity is the value the chat token binds.
func (c *SessionClaims) Identity() string {
	if c.IsAnonymous() {
		return AnonymousIdentity
	}
	if c.UID != "" {
		return c.UID
	}
	return c.Subject()
}

func (c *SessionClaims) IsAnonymous() bool {
	return c.Anonymous || IsAnonymous(c.UID) || (c.UID == "" && IsAnonymous(c.Subject()))
}

// Expires returns the expiration time
func (c *SessionClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// IssuedAt returns the issued at time
func (c *SessionClaims) IssuedAt() time.Time {
	if c.RegisteredClaims.IssuedAt != nil {
		return c.RegisteredClaims.IssuedAt.Time
	}
	return time.Time{}
}

// Principal converts the claims into a platform session principal.
func (c *SessionClaims) Principal() *Principal {
	return &Principal{
		Identity:  c.Identity(),
		Anonymous: c.IsAnonymous(),
		Source:    PrincipalSourcePlatformSession,
		IssuedAt:  c.IssuedAt(),
	}
}
