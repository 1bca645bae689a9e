package client

import (
	goerrors "github.com/goliatone/go-errors"
)

const (
	TextCodeNotAuthenticated = "NOT_AUTHENTICATED"
	TextCodeTokenFetch       = "CHAT_TOKEN_FETCH_FAILED"
)

// ErrNotAuthenticated is returned when the auth gate could not guarantee a
// session. The privileged call is never attempted.
var ErrNotAuthenticated = goerrors.New("unable to establish an authenticated session", goerrors.CategoryAuth).
	WithTextCode(TextCodeNotAuthenticated).
	WithCode(goerrors.CodeUnauthorized)

var ErrTokenFetch = goerrors.New("unable to fetch chat token", goerrors.CategoryOperation).
	WithTextCode(TextCodeTokenFetch)
