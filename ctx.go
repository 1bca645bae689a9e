package chatauth

import (
	"context"
	"time"

	"github.com/goliatone/go-router"
)

// PrincipalSource tells which credential produced a Principal.
type PrincipalSource string

const (
	PrincipalSourceChatToken       PrincipalSource = "chat_token"
	PrincipalSourcePlatformSession PrincipalSource = "platform_session"
)

// Default router locals keys used by the middlewares.
const (
	DefaultChatContextKey    = "chat_principal"
	DefaultSessionContextKey = "session_principal"
)

// Principal is the authenticated caller as seen by a handler.
type Principal struct {
	Identity  string          `json:"identity"`
	Anonymous bool            `json:"anonymous"`
	Source    PrincipalSource `json:"source"`
	IssuedAt  time.Time       `json:"issued_at"`
}

var chatPrincipalCtxKey = &contextKey{"chat_principal"}
var sessionPrincipalCtxKey = &contextKey{"session_principal"}

type contextKey struct {
	name string
}

// WithContext sets the chat token principal in the given context
func WithContext(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, chatPrincipalCtxKey, principal)
}

// FromContext finds the chat token principal in the context.
func FromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(chatPrincipalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// WithSessionContext sets the platform session principal in the given context.
// It never satisfies FromContext: a session is not a chat token.
func WithSessionContext(ctx context.Context, principal *Principal) context.Context {
	return context.WithValue(ctx, sessionPrincipalCtxKey, principal)
}

// SessionFromContext finds the platform session principal in the context.
func SessionFromContext(ctx context.Context) (*Principal, bool) {
	if ctx == nil {
		return nil, false
	}
	raw, ok := ctx.Value(sessionPrincipalCtxKey).(*Principal)
	return raw, ok && raw != nil
}

// GetRouterPrincipal extracts a Principal from the router context
func GetRouterPrincipal(ctx router.Context, key string) (*Principal, bool) {
	if key == "" {
		key = DefaultChatContextKey
	}
	raw := ctx.Locals(key)
	if raw == nil {
		return nil, false
	}
	principal, ok := raw.(*Principal)
	return principal, ok && principal != nil
}

// RequireRealIdentity fails with ErrAnonymousIdentity for the anonymous
// sentinel and ErrTokenMissing when there is no principal at all.
func RequireRealIdentity(principal *Principal) error {
	if principal == nil || principal.Identity == "" {
		return ErrTokenMissing
	}
	if principal.Anonymous || IsAnonymous(principal.Identity) {
		return ErrAnonymousIdentity
	}
	return nil
}
