package chatauth

import (
	"context"

	"github.com/goliatone/go-router"
)

// Chat roles exposed to WebSocket handlers.
const (
	ChatRoleAnonymous = "anonymous"
	ChatRoleMember    = "member"
)

var chatRoleRank = map[string]int{
	ChatRoleAnonymous: 1,
	ChatRoleMember:    2,
}

// WSTokenValidator implements go-router's WSTokenValidator interface so chat
// streams authenticate with the same chat token as the HTTP chat API.
type WSTokenValidator struct {
	validator TokenValidator
}

func NewWSTokenValidator(validator TokenValidator) *WSTokenValidator {
	return &WSTokenValidator{
		validator: validator,
	}
}

// Validate verifies the chat token presented on upgrade.
func (w *WSTokenValidator) Validate(tokenString string) (router.WSAuthClaims, error) {
	if w == nil || w.validator == nil {
		return nil, ErrMissingSecret
	}

	result := w.validator.Verify(context.Background(), tokenString)
	if !result.Valid {
		return nil, result.Err()
	}

	return &WSAuthClaimsAdapter{principal: result.Principal()}, nil
}

// WSAuthClaimsAdapter exposes a chat principal through go-router's
// WSAuthClaims interface. Anonymous identities may read and post, only
// members may edit or delete.
type WSAuthClaimsAdapter struct {
	principal *Principal
}

func (w *WSAuthClaimsAdapter) Subject() string {
	return w.principal.Identity
}

func (w *WSAuthClaimsAdapter) UserID() string {
	return w.principal.Identity
}

func (w *WSAuthClaimsAdapter) Role() string {
	if w.principal.Anonymous {
		return ChatRoleAnonymous
	}
	return ChatRoleMember
}

func (w *WSAuthClaimsAdapter) CanRead(resource string) bool {
	return true
}

func (w *WSAuthClaimsAdapter) CanEdit(resource string) bool {
	return !w.principal.Anonymous
}

func (w *WSAuthClaimsAdapter) CanCreate(resource string) bool {
	return true
}

func (w *WSAuthClaimsAdapter) CanDelete(resource string) bool {
	return !w.principal.Anonymous
}

func (w *WSAuthClaimsAdapter) HasRole(role string) bool {
	return w.Role() == role
}

func (w *WSAuthClaimsAdapter) IsAtLeast(minRole string) bool {
	min, ok := chatRoleRank[minRole]
	if !ok {
		return false
	}
	return chatRoleRank[w.Role()] >= min
}

// Principal returns the verified chat principal.
func (w *WSAuthClaimsAdapter) Principal() *Principal {
	return w.principal
}

// NewWSAuthMiddleware creates a WebSocket authentication middleware that
// verifies chat tokens with validator.
func NewWSAuthMiddleware(validator TokenValidator, config ...router.WSAuthConfig) router.WebSocketMiddleware {
	var cfg router.WSAuthConfig
	if len(config) > 0 {
		cfg = config[0]
	}

	cfg.TokenValidator = NewWSTokenValidator(validator)

	return router.NewWSAuth(cfg)
}

// WSPrincipalFromContext returns the chat principal stored by the WebSocket
// auth middleware.
func WSPrincipalFromContext(ctx context.Context) (*Principal, bool) {
	wsAuthClaims, ok := router.WSAuthClaimsFromContext(ctx)
	if !ok {
		return nil, false
	}

	if adapter, ok := wsAuthClaims.(*WSAuthClaimsAdapter); ok && adapter.principal != nil {
		return adapter.principal, true
	}

	return nil, false
}
