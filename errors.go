package chatauth

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeMalformedToken    = "MALFORMED_TOKEN"
	TextCodeTokenExpired      = "TOKEN_EXPIRED"
	TextCodeInvalidSignature  = "INVALID_SIGNATURE"
	TextCodeTokenFromFuture   = "TOKEN_ISSUED_IN_FUTURE"
	TextCodeConfiguration     = "CONFIGURATION_ERROR"
	TextCodeInvalidIdentity   = "INVALID_IDENTITY"
	TextCodeInvalidTimestamp  = "INVALID_TIMESTAMP"
	TextCodeTokenMissing      = "TOKEN_MISSING"
	TextCodeAnonymousRejected = "ANONYMOUS_IDENTITY_REJECTED"
	TextCodeSessionRequired   = "SESSION_REQUIRED"
	TextCodeSessionExpired    = "SESSION_EXPIRED"
)

// ErrMalformedToken is returned when a chat token cannot be decoded or split
// into its identity, timestamp and signature fields.
var ErrMalformedToken = goerrors.New("malformed chat token", goerrors.CategoryAuth).
	WithTextCode(TextCodeMalformedToken).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned when a chat token is older than the freshness window.
var ErrTokenExpired = goerrors.New("chat token expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(goerrors.CodeUnauthorized)

// ErrInvalidSignature is returned when the HMAC does not match.
var ErrInvalidSignature = goerrors.New("chat token signature mismatch", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidSignature).
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenFromFuture is only produced when clock skew hardening is enabled.
var ErrTokenFromFuture = goerrors.New("chat token issued in the future", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenFromFuture).
	WithCode(goerrors.CodeUnauthorized)

// ErrMissingSecret signals a deployment defect: the shared secret is not configured.
var ErrMissingSecret = goerrors.New("chat token secret is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(goerrors.CodeInternal)

var ErrInvalidIdentity = goerrors.New("identity must be non-empty and must not contain ':'", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidIdentity).
	WithCode(goerrors.CodeBadRequest)

var ErrInvalidTimestamp = goerrors.New("issued at timestamp must not be before the epoch", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidTimestamp).
	WithCode(goerrors.CodeBadRequest)

// ErrTokenMissing is returned by middleware when no chat token was sent.
var ErrTokenMissing = goerrors.New("missing chat token", goerrors.CategoryAuth).
	WithTextCode(TextCodeTokenMissing).
	WithCode(goerrors.CodeUnauthorized)

// ErrAnonymousIdentity is returned by endpoints that require a real account.
var ErrAnonymousIdentity = goerrors.New("endpoint requires a non anonymous account", goerrors.CategoryAuthz).
	WithTextCode(TextCodeAnonymousRejected).
	WithCode(goerrors.CodeForbidden)

// ErrSessionRequired is returned when the platform session is missing or invalid.
var ErrSessionRequired = goerrors.New("platform session required", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionRequired).
	WithCode(goerrors.CodeUnauthorized)

var ErrSessionExpired = goerrors.New("platform session expired", goerrors.CategoryAuth).
	WithTextCode(TextCodeSessionExpired).
	WithCode(goerrors.CodeUnauthorized)

// IsTokenExpiredError will check for expired chat tokens or platform sessions
func IsTokenExpiredError(err error) bool {
	return hasTextCode(err, TextCodeTokenExpired, TextCodeSessionExpired)
}

// IsMalformedError will check for tokens that could not be parsed
func IsMalformedError(err error) bool {
	return hasTextCode(err, TextCodeMalformedToken, TextCodeTokenMissing)
}

// IsInvalidSignatureError will check for forged or re-signed tokens
func IsInvalidSignatureError(err error) bool {
	return hasTextCode(err, TextCodeInvalidSignature)
}

// IsConfigurationError reports whether err is a deployment defect.
func IsConfigurationError(err error) bool {
	return hasTextCode(err, TextCodeConfiguration)
}

func hasTextCode(err error, codes ...string) bool {
	if err == nil {
		return false
	}
	var richErr *goerrors.Error
	if !goerrors.As(err, &richErr) {
		return false
	}
	for _, code := range codes {
		if richErr.TextCode == code {
			return true
		}
	}
	return false
}

// ErrMissingSessionKey signals that no signing key, keyfunc or JWKS URL was
// configured for the platform session.
var ErrMissingSessionKey = goerrors.New("platform session verification key is not configured", goerrors.CategoryInternal).
	WithTextCode(TextCodeConfiguration).
	WithCode(goerrors.CodeInternal)
