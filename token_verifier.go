package chatauth

import (
	"context"
	"time"
)

// Reason explains why a chat token was rejected.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonMalformedToken   Reason = "malformed_token"
	ReasonExpired          Reason = "expired"
	ReasonInvalidSignature Reason = "invalid_signature"
	ReasonIssuedInFuture   Reason = "issued_in_future"
	ReasonConfiguration    Reason = "configuration_error"
)

// Err maps a rejection reason to its error sentinel.
func (r Reason) Err() error {
	switch r {
	case ReasonNone:
		return nil
	case ReasonExpired:
		return ErrTokenExpired
	case ReasonInvalidSignature:
		return ErrInvalidSignature
	case ReasonIssuedInFuture:
		return ErrTokenFromFuture
	case ReasonConfiguration:
		return ErrMissingSecret
	default:
		return ErrMalformedToken
	}
}

// VerificationResult is the outcome of verifying a chat token. Rejections are
// ordinary values, Verify never panics on hostile input.
type VerificationResult struct {
	Valid    bool
	Identity string
	Reason   Reason
	IssuedAt time.Time
	// Age is negative when the token is stamped ahead of the verifier clock.
	Age time.Duration
}

// Err returns nil for valid results.
func (r VerificationResult) Err() error {
	if r.Valid {
		return nil
	}
	return r.Reason.Err()
}

// IsAnonymous reports whether a valid result carries the anonymous sentinel.
func (r VerificationResult) IsAnonymous() bool {
	return r.Valid && IsAnonymous(r.Identity)
}

// Principal converts a valid result to a chat-token principal.
func (r VerificationResult) Principal() *Principal {
	if !r.Valid {
		return nil
	}
	return &Principal{
		Identity:  r.Identity,
		Anonymous: IsAnonymous(r.Identity),
		Source:    PrincipalSourceChatToken,
		IssuedAt:  r.IssuedAt,
	}
}

// VerifyToken verifies token against secret at now using the default
// freshness window and clock skew tolerance.
func VerifyToken(token, secret string, now time.Time) VerificationResult {
	return verifyAt([]byte(secret), token, now, FreshnessWindowMillis, -1)
}

// VerifierOption customizes TokenVerifier construction.
type VerifierOption func(*TokenVerifier)

// WithVerifierClock injects a custom clock (useful for tests).
func WithVerifierClock(clock Clock) VerifierOption {
	return func(tv *TokenVerifier) {
		if clock != nil {
			tv.now = clock
		}
	}
}

// WithFreshnessWindow overrides the 5 minute window. Non-positive values are ignored.
func WithFreshnessWindow(window time.Duration) VerifierOption {
	return func(tv *TokenVerifier) {
		if window > 0 {
			tv.windowMillis = window.Milliseconds()
		}
	}
}

// WithMaxClockSkew rejects tokens stamped more than skew ahead of the verifier
// clock with issued_in_future. Without it any negative age is accepted as
// clock skew between issuer and verifier.
func WithMaxClockSkew(skew time.Duration) VerifierOption {
	return func(tv *TokenVerifier) {
		if skew >= 0 {
			tv.maxSkewMillis = skew.Milliseconds()
			tv.rejectFuture = true
		}
	}
}

// WithVerifierLogger overrides the default stdout logger.
func WithVerifierLogger(logger Logger) VerifierOption {
	return func(tv *TokenVerifier) {
		if logger != nil {
			tv.logger = logger
		}
	}
}

// WithVerifierActivitySink publishes verified/rejected events.
func WithVerifierActivitySink(sink ActivitySink) VerifierOption {
	return func(tv *TokenVerifier) {
		tv.activitySink = NormalizeActivitySink(sink)
	}
}

// TokenVerifier is the stateless gate run by every privileged API boundary.
// It holds no per-token state and is safe for concurrent use.
type TokenVerifier struct {
	secret        []byte
	now           Clock
	windowMillis  int64
	maxSkewMillis int64
	rejectFuture  bool
	logger        Logger
	activitySink  ActivitySink
}

var _ TokenValidator = (*TokenVerifier)(nil)

// NewTokenVerifier returns ErrMissingSecret when secret is empty.
func NewTokenVerifier(secret string, opts ...VerifierOption) (*TokenVerifier, error) {
	if secret == "" {
		return nil, ErrMissingSecret
	}

	tv := &TokenVerifier{
		secret:       []byte(secret),
		now:          time.Now,
		windowMillis: FreshnessWindowMillis,
		logger:       defLogger{},
		activitySink: noopActivitySink{},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(tv)
		}
	}

	return tv, nil
}

// Verify satisfies TokenValidator.
func (tv *TokenVerifier) Verify(ctx context.Context, token string) VerificationResult {
	skew := int64(-1)
	if tv.rejectFuture {
		skew = tv.maxSkewMillis
	}

	result := verifyAt(tv.secret, token, tv.now(), tv.windowMillis, skew)

	event := ActivityEvent{
		EventType: ActivityEventTokenVerified,
		Identity:  result.Identity,
	}

	if !result.Valid {
		tv.logger.Debug("chat token rejected", "reason", result.Reason)
		event.EventType = ActivityEventTokenRejected
		event.Reason = string(result.Reason)
	}

	RecordActivity(ctx, tv.activitySink, tv.logger, event)

	return result
}

// verifyAt implements the verification rules. maxSkewMillis < 0 disables the
// future timestamp check.
func verifyAt(secret []byte, token string, now time.Time, windowMillis, maxSkewMillis int64) VerificationResult {
	if len(secret) == 0 {
		return VerificationResult{Reason: ReasonConfiguration}
	}

	parts, ok := decodeToken(token)
	if !ok {
		return VerificationResult{Reason: ReasonMalformedToken}
	}

	// computed for every well formed token so rejected and accepted tokens
	// cost the same amount of work
	signatureOK := signatureMatches(secret, parts)

	ageMillis := now.UnixMilli() - parts.issuedAtMillis
	result := VerificationResult{
		Identity: parts.identity,
		IssuedAt: millisToTime(parts.issuedAtMillis),
		Age:      time.Duration(ageMillis) * time.Millisecond,
	}

	switch {
	case ageMillis > windowMillis:
		result.Reason = ReasonExpired
	case maxSkewMillis >= 0 && -ageMillis > maxSkewMillis:
		result.Reason = ReasonIssuedInFuture
	case !signatureOK:
		result.Reason = ReasonInvalidSignature
	default:
		result.Valid = true
	}

	if !result.Valid {
		// never hand an unverified identity to callers
		result.Identity = ""
	}

	return result
}
