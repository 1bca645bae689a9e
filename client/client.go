package client

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/goliatone/go-chatauth"
	goerrors "github.com/goliatone/go-errors"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRefreshMargin = 30 * time.Second
	DefaultFetchTimeout  = 10 * time.Second

	tokenKey = "chat-token"
)

// Gate guarantees an authenticated session before a token is requested.
// *gate.AuthGate satisfies it.
type Gate interface {
	EnsureAuthenticated(ctx context.Context) bool
}

type Option func(*Client)

// WithRefreshMargin refetches a cached token once it is older than the
// freshness window minus margin.
func WithRefreshMargin(margin time.Duration) Option {
	return func(c *Client) {
		if margin >= 0 && margin < c.window {
			c.refreshMargin = margin
		}
	}
}

func WithFetchTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.fetchTimeout = d
		}
	}
}

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithClock(clock chatauth.Clock) Option {
	return func(c *Client) {
		if clock != nil {
			c.now = clock
		}
	}
}

func WithLogger(logger chatauth.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

type cachedToken struct {
	token   string
	expires time.Time
}

// Client attaches fresh chat tokens to privileged requests. Concurrent callers
// share one token fetch and the token is reused until it nears the end of its
// freshness window.
type Client struct {
	gate       Gate
	fetcher    TokenFetcher
	httpClient *http.Client

	window        time.Duration
	refreshMargin time.Duration
	fetchTimeout  time.Duration
	now           chatauth.Clock
	logger        chatauth.Logger

	group  singleflight.Group
	mu     sync.Mutex
	cached *cachedToken
}

func New(gate Gate, fetcher TokenFetcher, opts ...Option) *Client {
	if gate == nil || fetcher == nil {
		panic("CHATAUTH: chat client requires a gate and a token fetcher")
	}

	c := &Client{
		gate:          gate,
		fetcher:       fetcher,
		httpClient:    http.DefaultClient,
		window:        chatauth.FreshnessWindow,
		refreshMargin: DefaultRefreshMargin,
		fetchTimeout:  DefaultFetchTimeout,
		now:           time.Now,
		logger:        chatauth.DefaultLogger(),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(c)
		}
	}

	return c
}

// Token returns a chat token, fetching one when the cache is empty or stale.
func (c *Client) Token(ctx context.Context) (string, error) {
	if !c.gate.EnsureAuthenticated(ctx) {
		return "", ErrNotAuthenticated
	}

	if token, ok := c.cachedToken(); ok {
		return token, nil
	}

	ch := c.group.DoChan(tokenKey, func() (any, error) {
		fetchCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.fetchTimeout)
		defer cancel()

		fetchedAt := c.now()
		res, err := c.fetcher.FetchToken(fetchCtx)
		if err != nil {
			c.logger.Warn("chat token fetch failed", "error", err)
			return "", err
		}

		c.mu.Lock()
		c.cached = &cachedToken{
			token:   res.Token,
			expires: fetchedAt.Add(c.window - c.refreshMargin),
		}
		c.mu.Unlock()

		return res.Token, nil
	})

	select {
	case res := <-ch:
		if res.Err != nil {
			return "", res.Err
		}
		return res.Val.(string), nil
	case <-ctx.Done():
		return "", ctx.Err()
	}
}

// Invalidate drops the cached token.
func (c *Client) Invalidate() {
	c.mu.Lock()
	c.cached = nil
	c.mu.Unlock()
}

func (c *Client) cachedToken() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.cached == nil || !c.now().Before(c.cached.expires) {
		return "", false
	}
	return c.cached.token, true
}

// Do sends req with "Authorization: Bearer <chat token>". A 401 answer is
// retried once with a new token when the request body can be replayed.
func (c *Client) Do(ctx context.Context, req *http.Request) (*http.Response, error) {
	res, err := c.do(ctx, req)
	if err != nil || res.StatusCode != http.StatusUnauthorized {
		return res, err
	}

	if req.Body != nil && req.GetBody == nil {
		return res, nil
	}

	res.Body.Close()
	c.Invalidate()
	c.logger.Debug("chat token rejected, retrying with a fresh token")

	retry := req
	if req.GetBody != nil {
		body, err := req.GetBody()
		if err != nil {
			return nil, goerrors.Wrap(err, goerrors.CategoryInternal, "failed to replay request body")
		}
		retry = req.Clone(ctx)
		retry.Body = body
	}

	return c.do(ctx, retry)
}

func (c *Client) do(ctx context.Context, req *http.Request) (*http.Response, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, err
	}

	out := req.Clone(ctx)
	out.Header.Set("Authorization", "Bearer "+token)

	return c.httpClient.Do(out)
}
