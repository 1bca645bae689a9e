package chatware

import (
	"context"
	"strings"

	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-router"
)

var defaultTokenLookup = "header:" + router.HeaderAuthorization + ",body:chatToken"

// ValidationListener is invoked after a chat token verified, before the
// identity checks run.
type ValidationListener func(ctx router.Context, result chatauth.VerificationResult) error

type Config struct {
	Filter         func(router.Context) bool
	SuccessHandler router.HandlerFunc
	ErrorHandler   router.ErrorHandler
	// Validator is required
	Validator   chatauth.TokenValidator
	ContextKey  string
	TokenLookup string
	AuthScheme  string

	// RequireRealIdentity rejects the anonymous sentinel with 403.
	RequireRealIdentity bool

	// ContextEnricher propagates the principal to the standard context.
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

			token, err := ExtractRawTokenFromContext(ctx, cfg.getExtractors())
			if err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			result := cfg.Validator.Verify(ctx.Context(), token)
			if !result.Valid {
				cfg.Logger.Debug("chat token rejected", "reason", result.Reason)
				return cfg.ErrorHandler(ctx, result.Err())
			}

			if err := cfg.runValidationListeners(ctx, result); err != nil {
				return cfg.ErrorHandler(ctx, err)
			}

			principal := result.Principal()

			if cfg.RequireRealIdentity {
				if err := chatauth.RequireRealIdentity(principal); err != nil {
					return cfg.ErrorHandler(ctx, err)
				}
			}

			ctx.Locals(cfg.ContextKey, principal)

			if cfg.ContextEnricher != nil {
				ctx.SetContext(cfg.ContextEnricher(ctx.Context(), principal))
			}

			return cfg.SuccessHandler(ctx)
		}
	}
}

// ContextEnricher stores the principal with chatauth.WithContext.
func ContextEnricher(c context.Context, principal *chatauth.Principal) context.Context {
	return chatauth.WithContext(c, principal)
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

	if cfg.Validator == nil {
		panic("CHATAUTH: chat token middleware configuration: Validator is required.")
	}

	if cfg.ContextKey == "" {
		cfg.ContextKey = chatauth.DefaultChatContextKey
	}

	if cfg.TokenLookup == "" {
		cfg.TokenLookup = defaultTokenLookup
	}

	if cfg.AuthScheme == "" {
		cfg.AuthScheme = "Bearer"
	}

	return cfg
}

func (cfg *Config) getExtractors() []TokenExtractor {
	return GetExtractors(cfg.TokenLookup, cfg.AuthScheme)
}

func (cfg *Config) runValidationListeners(ctx router.Context, result chatauth.VerificationResult) error {
	for _, listener := range cfg.ValidationListeners {
		if listener == nil {
			continue
		}
		if err := listener(ctx, result); err != nil {
			return err
		}
	}
	return nil
}

// ExtractRawTokenFromContext returns the first token found. A source that is
// present but malformed is reported over one that is simply missing.
func ExtractRawTokenFromContext(ctx router.Context, extractors []TokenExtractor) (string, error) {
	var err error = chatauth.ErrTokenMissing
	for _, extractor := range extractors {
		raw, xerr := extractor(ctx)
		if raw != "" && xerr == nil {
			return raw, nil
		}
		if xerr != nil && xerr != chatauth.ErrTokenMissing && err == chatauth.ErrTokenMissing {
			err = xerr
		}
	}
	return "", err
}

type TokenExtractor func(c router.Context) (string, error)

// GetExtractors parses lookups such as "header:Authorization,body:chatToken".
func GetExtractors(tokenLookup string, authSchemes ...string) []TokenExtractor {
	extractors := make([]TokenExtractor, 0)

	authScheme := "Bearer"
	if len(authSchemes) > 0 {
		authScheme = authSchemes[0]
	}

	for _, rootPart := range strings.Split(tokenLookup, ",") {
		parts := strings.Split(strings.TrimSpace(rootPart), ":")
		if len(parts) != 2 {
			continue
		}

		for i, el := range parts {
			parts[i] = strings.TrimSpace(el)
		}

		switch parts[0] {
		case "header":
			extractors = append(extractors, tokenFromHeader(parts[1], authScheme))
		case "query":
			extractors = append(extractors, tokenFromQuery(parts[1]))
		case "cookie":
			extractors = append(extractors, tokenFromCookie(parts[1]))
		case "form":
			extractors = append(extractors, tokenFromForm(parts[1]))
		case "body":
			extractors = append(extractors, tokenFromBody(parts[1]))
		}
	}

	return extractors
}

// tokenFromHeader extracts "<scheme> <token>" from the request header.
func tokenFromHeader(header string, authScheme string) TokenExtractor {
	authScheme = strings.TrimSpace(authScheme)
	return func(c router.Context) (string, error) {
		a := strings.TrimSpace(c.GetString(header, ""))
		if a == "" {
			return "", chatauth.ErrTokenMissing
		}
		l := len(authScheme)
		if len(a) > l+1 && strings.EqualFold(a[:l], authScheme) && a[l] == ' ' {
			return strings.TrimSpace(a[l:]), nil
		}
		return "", chatauth.ErrMalformedToken
	}
}

func tokenFromQuery(param string) TokenExtractor {
	return func(c router.Context) (string, error) {
		if token := c.Query(param, ""); token != "" {
			return token, nil
		}
		return "", chatauth.ErrTokenMissing
	}
}

func tokenFromCookie(name string) TokenExtractor {
	return func(c router.Context) (string, error) {
		if token := c.Cookies(name); token != "" {
			return token, nil
		}
		return "", chatauth.ErrTokenMissing
	}
}

func tokenFromForm(field string) TokenExtractor {
	return func(c router.Context) (string, error) {
		if token := c.FormValue(field); token != "" {
			return token, nil
		}
		return "", chatauth.ErrTokenMissing
	}
}

// tokenFromBody reads a string field from a JSON request body.
func tokenFromBody(field string) TokenExtractor {
	return func(c router.Context) (string, error) {
		payload := map[string]any{}
		if err := c.Bind(&payload); err != nil {
			return "", chatauth.ErrTokenMissing
		}
		switch token := payload[field].(type) {
		case string:
			if token != "" {
				return token, nil
			}
			return "", chatauth.ErrTokenMissing
		case nil:
			return "", chatauth.ErrTokenMissing
		default:
			return "", chatauth.ErrMalformedToken
		}
	}
}
