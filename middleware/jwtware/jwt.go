package jwtware

import (
	"context"
	"strings"

	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-router"
)

var defaultTokenLookup = "header:" + router.HeaderAuthorization

// ValidationListener is invoked after the platform session has been validated.
type ValidationListener func(ctx router.Context, claims *chatauth.SessionClaims) error

// Config for the platform session middleware. It only accepts provider
// session JWTs, chat tokens are never valid here.
type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// SessionValidator is required for session validation
	SessionValidator chatauth.SessionValidator
	// ContextKey receives the *chatauth.Principal
	ContextKey string
	// ClaimsContextKey optionally receives the raw *chatauth.SessionClaims
	ClaimsContextKey string
	TokenLookup      string
	AuthScheme       string

	// RejectAnonymous refuses anonymous sessions with 403.
	RejectAnonymous bool

	// ContextEnricher is an optional function to propagate the principal to
	// the standard Go context.
	ContextEnricher func(c context.Context, principal *chatauth.Principal) context.Context

	ValidationListeners []ValidationListener

	Logger chatauth.Logger
}

func New(config ...Config) router.MiddlewareFunc {
	return func(hf router.HandlerFunc) router.HandlerFunc {
		cfg := GetDefaultConfig(config...)
		return func(ctx router.Context) error {
			if cfg.Filter != nil && cfg.Filter(ctx) {
				return ctx.Next()
			}

			raw, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			claims, err := cfg.SessionValidator.Validate(raw)
			if err != nil {
				cfg.Logger.Debug("platform session rejected", "error", err)
				return cfg.ErrorHandler(ctx, err)
			}

			if err := cfg.runValidationListeners(ctx, claims); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			principal := claims.Principal()

			if cfg.RejectAnonymous && principal.Anonymous {
				return cfg.ErrorHandler(ctx, chatauth.ErrAnonymousIdentity)
			}

			ctx.Locals(cfg.ContextKey, principal)

			if cfg.ClaimsContextKey != "" {
				ctx.Locals(cfg.ClaimsContextKey, claims)
			}

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), principal))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ContextEnricher stores the principal with chatauth.WithSessionContext.
func ContextEnricher(c context.Context, principal *chatauth.Principal) context.Context {
	return chatauth.WithSessionContext(c, principal)
}

func ExtractRawTokenFromContext(ctx router.Context, extractors []JWTExtractor) (string, error) {
	var raw string
	var err error = chatauth.ErrSessionRequired

	for _, extractor := range extractors {
		raw, err = extractor(ctx)
		if raw != "" && err == nil {
			break
		}
	}

	return raw, err
}

func GetDefaultConfig(config ...Config) (cfg Config) {
	if len(config) > 0 {
		cfg = config[0]
	}

	if cfg.SuccessHandler == nil {
		cfg.SuccessHandler = func(ctx router.Context) error {
			return ctx.Next()
		}
	}

	if cfg.Logger == nil {
		cfg.Logger = chatauth.DefaultLogger()
	}

	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = chatauth.NewErrorResponder(cfg.Logger).Handle
	}

	if cfg.SessionValidator == nil {
		panic("CHATAUTH: JWT middleware configuration: SessionValidator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = chatauth.DefaultSessionContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []JWTExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, claims *chatauth.SessionClaims) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, claims); err != nil {
			return err
		}
	}
	return nil
}

func GetExtractors(tokenLookup string, authSchemes ...string) []JWTExtractor {
	extractors := make([]JWTExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	// header:Authorization,cookie:session,query:session_token,param:token
	rootParts := strings.Split(tokenLookup, ",")
	for _, rootPart := range rootParts {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, jwtFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, jwtFromQuery(parts[1]))
		case "param":
			extractors = append(extractors, jwtFromParam(parts[1]))
		case "cookie":
			extractors = append(extractors, jwtFromCookie(parts[1]))
		}
	}

	return extractors
}

type JWTExtractor func(c router.Context) (string, error)

// jwtFromHeader returns a function that extracts token from the request header.
func jwtFromHeader(header string, authScheme string) func(c router.Context) (string, error) {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := c.GetString(header, "")
		l := len(authScheme)
		if l > 0 && len(a) > l+1 && strings.EqualFold(a[:l], authScheme) {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", chatauth.ErrSessionRequired
	}
}

// jwtFromQuery returns a function that extracts token from the query string.
func jwtFromQuery(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Query(param, "")
		if token == "" {
			return "", chatauth.ErrSessionRequired
		}
		return token, nil
	}
}

// jwtFromParam returns a function that extracts token from the url param string.
func jwtFromParam(param string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Param(param)
		if token == "" {
			return "", chatauth.ErrSessionRequired
		}
		return token, nil
	}
}

// jwtFromCookie returns a function that extracts token from the named cookie.
func jwtFromCookie(name string) func(c router.Context) (string, error) {
	return func(c router.Context) (string, error) {
		token := c.Cookies(name)
		if token == "" {
			return "", chatauth.ErrSessionRequired
		}
		return token, nil
	}
}
