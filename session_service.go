package chatauth

import (
	"fmt"
	"log"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionValidator authenticates the platform session that guards the token
// endpoint.
type SessionValidator interface {
	Validate(tokenString string) (*SessionClaims, error)
}

// SessionValidatorFunc adapts a function into a SessionValidator.
type SessionValidatorFunc func(tokenString string) (*SessionClaims, error)

// Validate satisfies the SessionValidator interface.
func (f SessionValidatorFunc) Validate(tokenString string) (*SessionClaims, error) {
	if f == nil {
		return nil, ErrSessionRequired
	}
	return f(tokenString)
}

// SigningKey pairs a verification key with the algorithm it must be used with.
type SigningKey struct {
	JWTAlg string
	Key    any
}

// SessionOption customizes SessionService construction.
type SessionOption func(*SessionService)

func WithSessionIssuer(issuer string) SessionOption {
	return func(s *SessionService) {
		s.issuer = issuer
	}
}

func WithSessionAudience(audience ...string) SessionOption {
	return func(s *SessionService) {
		s.audience = append(jwt.ClaimStrings(nil), audience...)
	}
}

// WithSessionTTL sets the lifetime of sessions minted by Sign.
func WithSessionTTL(ttl time.Duration) SessionOption {
	return func(s *SessionService) {
		if ttl > 0 {
			s.ttl = ttl
		}
	}
}

func WithSessionClock(clock Clock) SessionOption {
	return func(s *SessionService) {
		if clock != nil {
			s.now = clock
		}
	}
}

func WithSessionLogger(logger Logger) SessionOption {
	return func(s *SessionService) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithSessionKeyfunc overrides key resolution entirely.
func WithSessionKeyfunc(fn jwt.Keyfunc) SessionOption {
	return func(s *SessionService) {
		if fn != nil {
			s.keyFunc = fn
		}
	}
}

// WithSessionSigningKeys verifies tokens by their kid header.
func WithSessionSigningKeys(keys map[string]SigningKey) SessionOption {
	return func(s *SessionService) {
		s.signingKeys = keys
	}
}

// WithSessionJWKS fetches the provider's verification keys from JWK Set URLs.
func WithSessionJWKS(urls ...string) SessionOption {
	return func(s *SessionService) {
		s.jwksURLs = append(s.jwksURLs, urls...)
	}
}

// SessionService validates the external auth provider's session JWT. With a
// signing key it can also mint HS256 sessions, used by development servers
// and tests that stand in for the provider.
type SessionService struct {
	signingKey  []byte
	signingKeys map[string]SigningKey
	jwksURLs    []string
	keyFunc     jwt.Keyfunc
	issuer      string
	audience    jwt.ClaimStrings
	ttl         time.Duration
	now         Clock
	logger      Logger
}

var _ SessionValidator = (*SessionService)(nil)

// NewSessionService needs at least one of signingKey, WithSessionKeyfunc,
// WithSessionSigningKeys or WithSessionJWKS.
func NewSessionService(signingKey []byte, opts ...SessionOption) (*SessionService, error) {
	s := &SessionService{
		signingKey: signingKey,
		ttl:        time.Hour,
		now:        time.Now,
		logger:     defLogger{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(s)
		}
	}

	if s.keyFunc == nil {
		kf, err := s.buildKeyfunc()
		if err != nil {
			return nil, err
		}
		s.keyFunc = kf
	}

	return s, nil
}

func (s *SessionService) buildKeyfunc() (jwt.Keyfunc, error) {
	if len(s.signingKeys) == 0 && len(s.jwksURLs) == 0 {
		if len(s.signingKey) == 0 {
			return nil, ErrMissingSessionKey
		}
		return hmacKeyfunc(s.signingKey), nil
	}

	var givenKeys map[string]keyfunc.GivenKey
	if len(s.signingKeys) > 0 {
		givenKeys = make(map[string]keyfunc.GivenKey, len(s.signingKeys))
		for kid, key := range s.signingKeys {
			givenKeys[kid] = keyfunc.NewGivenCustom(key.Key, keyfunc.GivenKeyOptions{
				Algorithm: key.JWTAlg,
			})
		}
	}

	if len(s.jwksURLs) == 0 {
		return keyfunc.NewGiven(givenKeys).Keyfunc, nil
	}

	opts := keyfuncOptions(givenKeys)

	m := make(map[string]keyfunc.Options, len(s.jwksURLs))
	for _, url := range s.jwksURLs {
		m[url] = opts
	}

	multi, err := keyfunc.GetMultiple(m, keyfunc.MultipleOptions{
		KeySelector: keyfunc.KeySelectorFirst,
	})
	if err != nil {
		return nil, goerrors.Wrap(err, goerrors.CategoryOperation, "failed to get JWK Set URLs").
			WithTextCode(TextCodeConfiguration)
	}

	return multi.Keyfunc, nil
}

func keyfuncOptions(givenKeys map[string]keyfunc.GivenKey) keyfunc.Options {
	return keyfunc.Options{
		GivenKeys: givenKeys,
		RefreshErrorHandler: func(err error) {
			log.Printf("failed to do a background refresh of JWT set: %s", err)
		},
		RefreshInterval:   time.Hour,
		RefreshRateLimit:  time.Minute * 5,
		RefreshTimeout:    time.Second * 10,
		RefreshUnknownKID: true,
	}
}

func hmacKeyfunc(key []byte) jwt.Keyfunc {
	return func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return key, nil
	}
}

// Sign mints a session for identity. The anonymous sentinel produces an
// anonymous session.
func (s *SessionService) Sign(identity string) (string, error) {
	if err := validateIdentity(identity); err != nil {
		return "", err
	}

	now := s.now()
	claims := &SessionClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.issuer,
			Subject:   identity,
			Audience:  s.audience,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UID:       identity,
		Anonymous: IsAnonymous(identity),
	}

	return s.SignClaims(claims)
}

// SignClaims signs arbitrary session claims using the configured signing key.
func (s *SessionService) SignClaims(claims *SessionClaims) (string, error) {
	if claims == nil {
		return "", goerrors.New("claims must not be nil", goerrors.CategoryInternal)
	}
	if len(s.signingKey) == 0 {
		return "", ErrMissingSessionKey
	}

	if claims.ID == "" {
		claims.ID = uuid.NewString()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)

	signedString, err := token.SignedString(s.signingKey)
	if err != nil {
		return "", goerrors.Wrap(err, goerrors.CategoryInternal, "failed to sign session JWT")
	}

	return signedString, nil
}

// Validate parses and validates a session token string.
func (s *SessionService) Validate(tokenString string) (*SessionClaims, error) {
	if tokenString == "" {
		return nil, ErrSessionRequired
	}

	parserOptions := []jwt.ParserOption{
		jwt.WithTimeFunc(s.now),
		jwt.WithIssuedAt(),
	}
	if s.issuer != "" {
		parserOptions = append(parserOptions, jwt.WithIssuer(s.issuer))
	}
	if len(s.audience) > 0 {
		// the provider's own audience comes first
		parserOptions = append(parserOptions, jwt.WithAudience(s.audience[0]))
	}

	token, err := jwt.ParseWithClaims(tokenString, &SessionClaims{}, s.keyFunc, parserOptions...)
	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrSessionExpired
		}
		s.logger.Debug("platform session rejected", "error", err)
		return nil, goerrors.Wrap(err, ErrSessionRequired.Category, ErrSessionRequired.Message).
			WithTextCode(ErrSessionRequired.TextCode).
			WithCode(ErrSessionRequired.Code)
	}

	claims, ok := token.Claims.(*SessionClaims)
	if !ok || !token.Valid {
		s.logger.Error("SessionService validate could not decode claims")
		return nil, ErrSessionRequired
	}

	if claims.Identity() == "" {
		return nil, ErrSessionRequired
	}

	return claims, nil
}
