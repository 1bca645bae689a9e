package chatauth

import (
	"github.com/goliatone/go-router"
)

// TokenControllerRoutes holds the paths served by TokenController.
type TokenControllerRoutes struct {
	Token string
}

// TokenController serves the chat token endpoint. It must sit behind a
// middleware that authenticates the platform session and stores its
// Principal under SessionContextKey.
type TokenController struct {
	Logger            Logger
	Issuer            *TokenIssuer
	Routes            *TokenControllerRoutes
	SessionContextKey string
	ErrorHandler      router.ErrorHandler
}

type TokenControllerOption func(*TokenController) *TokenController

func WithTokenIssuer(issuer *TokenIssuer) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		c.Issuer = issuer
		return c
	}
}

func WithControllerLogger(logger Logger) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		if logger != nil {
			c.Logger = logger
		}
		return c
	}
}

func WithControllerErrorHandler(handler router.ErrorHandler) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		if handler != nil {
			c.ErrorHandler = handler
		}
		return c
	}
}

func WithSessionContextKey(key string) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		if key != "" {
			c.SessionContextKey = key
		}
		return c
	}
}

func WithTokenRoute(path string) TokenControllerOption {
	return func(c *TokenController) *TokenController {
		if path != "" {
			c.Routes.Token = path
		}
		return c
	}
}

func NewTokenController(opts ...TokenControllerOption) *TokenController {
	c := &TokenController{
		Logger:            defLogger{},
		ErrorHandler:      DefaultErrorHandler,
		SessionContextKey: DefaultSessionContextKey,
		Routes: &TokenControllerRoutes{
			Token: "/api/chat/token",
		},
	}

	for _, opt := range opts {
		c = opt(c)
	}

	if c.Issuer == nil {
		panic("Missing TokenIssuer in token controller...")
	}

	return c
}

// RegisterTokenRoutes mounts POST {Routes.Token}. mws run before the handler
// and must include the platform session middleware.
func RegisterTokenRoutes[T any](app router.Router[T], mws []router.MiddlewareFunc, opts ...TokenControllerOption) *TokenController {
	controller := NewTokenController(opts...)

	app.
		Post(controller.Routes.Token, controller.GenerateChatToken, mws...).
		SetName("chat-token.post")

	return controller
}

// GenerateChatToken issues a chat token for the authenticated platform session.
func (tc *TokenController) GenerateChatToken(ctx router.Context) error {
	principal, ok := GetRouterPrincipal(ctx, tc.SessionContextKey)
	if !ok {
		if principal, ok = SessionFromContext(ctx.Context()); !ok {
			return tc.ErrorHandler(ctx, ErrSessionRequired)
		}
	}

	issued, err := tc.Issuer.Issue(ctx.Context(), principal.Identity)
	if err != nil {
		tc.Logger.Error("chat token generation failed", "error", err)
		return tc.ErrorHandler(ctx, err)
	}

	tc.Logger.Debug("chat token issued", "identity", issued.Identity, "anonymous", principal.Anonymous)

	ctx.SetHeader("Cache-Control", "no-store")
	return ctx.JSON(router.StatusOK, issued.TokenResponse())
}
