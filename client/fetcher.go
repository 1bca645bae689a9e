package client

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"

	"github.com/goliatone/go-chatauth"
	goerrors "github.com/goliatone/go-errors"
)

// TokenFetcher obtains a fresh chat token from the issuer.
type TokenFetcher interface {
	FetchToken(ctx context.Context) (chatauth.TokenResponse, error)
}

// TokenFetcherFunc adapts a function into a TokenFetcher.
type TokenFetcherFunc func(ctx context.Context) (chatauth.TokenResponse, error)

func (f TokenFetcherFunc) FetchToken(ctx context.Context) (chatauth.TokenResponse, error) {
	return f(ctx)
}

// SessionSource returns the platform session credential the token endpoint
// authenticates.
type SessionSource interface {
	SessionToken(ctx context.Context) (string, error)
}

// SessionSourceFunc adapts a function into a SessionSource.
type SessionSourceFunc func(ctx context.Context) (string, error)

func (f SessionSourceFunc) SessionToken(ctx context.Context) (string, error) {
	return f(ctx)
}

// HTTPTokenFetcher calls POST {Endpoint} with the platform session as a
// bearer credential.
type HTTPTokenFetcher struct {
	Endpoint   string
	Session    SessionSource
	HTTPClient *http.Client
}

func NewHTTPTokenFetcher(endpoint string, session SessionSource, httpClient *http.Client) *HTTPTokenFetcher {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &HTTPTokenFetcher{
		Endpoint:   endpoint,
		Session:    session,
		HTTPClient: httpClient,
	}
}

func (f *HTTPTokenFetcher) FetchToken(ctx context.Context) (chatauth.TokenResponse, error) {
	var out chatauth.TokenResponse

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.Endpoint, bytes.NewReader([]byte("{}")))
	if err != nil {
		return out, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to build chat token request")
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	if f.Session != nil {
		session, err := f.Session.SessionToken(ctx)
		if err != nil {
			return out, err
		}
		if session != "" {
			req.Header.Set("Authorization", "Bearer "+session)
		}
	}

	res, err := f.HTTPClient.Do(req)
	if err != nil {
		return out, goerrors.Wrap(err, ErrTokenFetch.Category, ErrTokenFetch.Message).
			WithTextCode(ErrTokenFetch.TextCode)
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<16))
	if err != nil {
		return out, goerrors.Wrap(err, ErrTokenFetch.Category, ErrTokenFetch.Message).
			WithTextCode(ErrTokenFetch.TextCode)
	}

	if res.StatusCode != http.StatusOK {
		return out, responseError(res.StatusCode, body)
	}

	if err := json.Unmarshal(body, &out); err != nil {
		return out, goerrors.Wrap(err, ErrTokenFetch.Category, "chat token response is not valid JSON").
			WithTextCode(ErrTokenFetch.TextCode)
	}

	if out.Token == "" {
		return out, goerrors.New("chat token response has no token", ErrTokenFetch.Category).
			WithTextCode(ErrTokenFetch.TextCode)
	}

	return out, nil
}

// responseError rebuilds the server's rich error from its JSON body.
func responseError(status int, body []byte) error {
	var payload chatauth.ErrorResponse
	if err := json.Unmarshal(body, &payload); err != nil || payload.Error == "" {
		return goerrors.New(http.StatusText(status), ErrTokenFetch.Category).
			WithTextCode(ErrTokenFetch.TextCode).
			WithCode(status)
	}

	category := goerrors.CategoryOperation
	switch status {
	case http.StatusUnauthorized:
		category = goerrors.CategoryAuth
	case http.StatusForbidden:
		category = goerrors.CategoryAuthz
	case http.StatusBadRequest:
		category = goerrors.CategoryBadInput
	}

	return goerrors.New(payload.Message, category).
		WithTextCode(payload.Error).
		WithCode(status).
		WithMetadata(map[string]any{
			"reason": payload.Reason,
		})
}
