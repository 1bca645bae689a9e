package chatauth

import (
	"context"
	"time"
)

// IssuedToken is a freshly minted chat token plus the values it binds.
type IssuedToken struct {
	Token          string
	Identity       string
	IssuedAt       time.Time
	IssuedAtMillis int64
}

// TokenResponse is the wire payload returned by the token endpoint.
type TokenResponse struct {
	Token           string `json:"token"`
	Timestamp       int64  `json:"timestamp"`
	IsAuthenticated bool   `json:"isAuthenticated"`
}

// TokenResponse renders the token endpoint payload.
func (t IssuedToken) TokenResponse() TokenResponse {
	return TokenResponse{
		Token:           t.Token,
		Timestamp:       t.IssuedAtMillis,
		IsAuthenticated: true,
	}
}

// IssuerOption customizes TokenIssuer construction.
type IssuerOption func(*TokenIssuer)

// WithIssuerClock injects a custom clock (useful for tests).
func WithIssuerClock(clock Clock) IssuerOption {
	return func(ti *TokenIssuer) {
		if clock != nil {
			ti.now = clock
		}
	}
}

// WithIssuerLogger overrides the default stdout logger.
func WithIssuerLogger(logger Logger) IssuerOption {
	return func(ti *TokenIssuer) {
		if logger != nil {
			ti.logger = logger
		}
	}
}

// WithIssuerActivitySink publishes chat.token.issued events.
func WithIssuerActivitySink(sink ActivitySink) IssuerOption {
	return func(ti *TokenIssuer) {
		ti.activitySink = NormalizeActivitySink(sink)
	}
}

// TokenIssuer stamps whatever identity it is given. Callers must have
// authenticated that identity through the platform session first.
type TokenIssuer struct {
	secret       []byte
	now          Clock
	logger       Logger
	activitySink ActivitySink
}

// NewTokenIssuer returns ErrMissingSecret when secret is empty; callers should
// treat that as fatal at startup.
func NewTokenIssuer(secret string, opts ...IssuerOption) (*TokenIssuer, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	ti := &TokenIssuer{
		secret:       []byte(secret),
		now:          time.Now,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(ti)
		}
	}

	return ti, nil
}

// Issue signs identity with the current time.
func (ti *TokenIssuer) Issue(ctx context.Context, identity string) (IssuedToken, error) {
	issued, err := ti.IssueAt(identity, ti.now())
	if err != nil {
		ti.logger.Debug("chat token issue rejected", "error", err)
		return IssuedToken{}, err
	}

	RecordActivity(ctx, ti.activitySink, ti.logger, ActivityEvent{
		EventType:  ActivityEventTokenIssued,
		Identity:   issued.Identity,
		OccurredAt: issued.IssuedAt,
		Metadata: map[string]any{
			"anonymous": IsAnonymous(issued.Identity),
		},
	})

	return issued, nil
}

// IssueAt is the deterministic form of Issue.
func (ti *TokenIssuer) IssueAt(identity string, issuedAt time.Time) (IssuedToken, error) {
	if ti == nil || len(ti.secret) == 0 {
		return IssuedToken{}, ErrMissingSecret
	}

	millis := issuedAt.UnixMilli()
	token, err := signToken(identity, millis, ti.secret)
	if err != nil {
		return IssuedToken{}, err
	}

	return IssuedToken{
		Token:          token,
		Identity:       identity,
		IssuedAt:       millisToTime(millis),
		IssuedAtMillis: millis,
	}, nil
}

// SignToken produces base64("{identity}:{issuedAtMillis}:{hex hmac}"). The
// same inputs always produce the same token.
func SignToken(identity string, issuedAtMillis int64, secret string) (string, error) {
	if secret == "" {
		return "", ErrMissingSecret
	}
	return signToken(identity, issuedAtMillis, []byte(secret))
}

func signToken(identity string, issuedAtMillis int64, secret []byte) (string, error) {
	if err := validateIdentity(identity); err != nil {
		return "", err
	}
	if issuedAtMillis < 0 {
		return "", ErrInvalidTimestamp
	}

	signature := computeSignature(secret, identity, issuedAtMillis)
	return encodeToken(identity, issuedAtMillis, signature), nil
}
