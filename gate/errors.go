package gate

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeSignInUnavailable = "SIGN_IN_UNAVAILABLE"
	TextCodeSignInTimeout     = "SIGN_IN_TIMEOUT"
	TextCodeSignInPanic       = "SIGN_IN_PANIC"
	TextCodeSignInIncomplete  = "SIGN_IN_INCOMPLETE"
)

// ErrSignInUnavailable is returned when a provider has no sign-in function.
var ErrSignInUnavailable = goerrors.New("auth provider cannot sign in", goerrors.CategoryInternal).
	WithTextCode(TextCodeSignInUnavailable)

// ErrSignInTimeout is reported when the provider did not authenticate within
// the sign-in timeout.
var ErrSignInTimeout = goerrors.New("anonymous sign-in timed out", goerrors.CategoryOperation).
	WithTextCode(TextCodeSignInTimeout)

var ErrSignInPanic = goerrors.New("auth provider panicked during sign-in", goerrors.CategoryInternal).
	WithTextCode(TextCodeSignInPanic)

// ErrSignInIncomplete is reported when SignIn returned without error but the
// provider never reported an authenticated session.
var ErrSignInIncomplete = goerrors.New("sign-in returned but session is not authenticated", goerrors.CategoryAuth).
	WithTextCode(TextCodeSignInIncomplete)
