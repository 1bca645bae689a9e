package gate

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/goliatone/go-chatauth"
	goerrors "github.com/goliatone/go-errors"
)

// attempt is one sign-in shared by every caller that arrives while it runs.
type attempt struct {
	done chan struct{}
	ok   bool
	err  error
}

// AuthGate guarantees a session before a privileged call and coalesces
// concurrent callers into a single anonymous sign-in. Gates are independent,
// there is no package level state.
type AuthGate struct {
	provider Provider

	loadingTimeout  time.Duration
	signInTimeout   time.Duration
	inFlightTimeout time.Duration
	method          SignInMethod

	logger       chatauth.Logger
	activitySink chatauth.ActivitySink

	mu          sync.Mutex
	attempt     *attempt
	changed     chan struct{}
	last        ProviderState
	auto        bool
	autoGen     uint64
	autoCtx     context.Context
	closed      bool
	stopped     chan struct{}
	unsubscribe func()
}

// New subscribes to provider. Call Close to release the subscription.
func New(provider Provider, opts ...Option) *AuthGate {
	if provider == nil {
		panic("CHATAUTH: auth gate requires a provider")
	}

	g := &AuthGate{
		provider:        provider,
		loadingTimeout:  DefaultLoadingTimeout,
		signInTimeout:   DefaultSignInTimeout,
		inFlightTimeout: DefaultInFlightTimeout,
		method:          SignInAnonymous,
		logger:          chatauth.DefaultLogger(),
		activitySink:    chatauth.NormalizeActivitySink(nil),
		changed:         make(chan struct{}),
		stopped:         make(chan struct{}),
	}

	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}

	g.last = provider.State()
	g.unsubscribe = provider.Subscribe(g.onProviderState)

	return g
}

// IsAuthenticated reports the live provider observable.
func (g *AuthGate) IsAuthenticated() bool {
	return g.provider.State().IsAuthenticated
}

// IsLoading reports the live provider observable.
func (g *AuthGate) IsLoading() bool {
	return g.provider.State().IsLoading
}

// Status combines the provider state with the in-flight attempt.
func (g *AuthGate) Status() Status {
	state := g.provider.State()
	if state.IsAuthenticated {
		return StatusAuthenticated
	}

	g.mu.Lock()
	inFlight := g.attempt != nil
	g.mu.Unlock()

	switch {
	case inFlight:
		return StatusAuthenticating
	case state.IsLoading:
		return StatusUnknown
	default:
		return StatusUnauthenticated
	}
}

// EnsureAuthenticated returns true once the provider reports an authenticated
// session. It never returns an error: every failure, timeout or provider
// panic yields false, and the caller must not proceed with the privileged
// call. Cancelling ctx stops this caller's wait but not a shared attempt.
func (g *AuthGate) EnsureAuthenticated(ctx context.Context) bool {
	if ctx == nil {
		ctx = context.Background()
	}

	state := g.provider.State()
	if state.IsLoading {
		g.waitFor(ctx, g.loadingTimeout, func(s ProviderState) bool {
			return !s.IsLoading
		})
		state = g.provider.State()
		if state.IsLoading {
			g.logger.Warn("auth provider still loading, giving up", "timeout", g.loadingTimeout)
			return false
		}
	}

	if state.IsAuthenticated {
		return true
	}

	a, started := g.acquireAttempt(ctx)
	if a == nil {
		return true
	}
	if started {
		select {
		case <-a.done:
			return a.ok
		case <-ctx.Done():
			return false
		}
	}

	timer := time.NewTimer(g.inFlightTimeout)
	defer timer.Stop()

	select {
	case <-a.done:
		return a.ok
	case <-timer.C:
		g.logger.Warn("timed out waiting for in-flight sign-in", "timeout", g.inFlightTimeout)
		return g.provider.State().IsAuthenticated
	case <-ctx.Done():
		return false
	}
}

// Start enables the auto sign-in effect until ctx is done or the gate is
// closed. Whenever the provider settles into unauthenticated with no attempt
// in flight, one attempt starts. A failed attempt does not re-trigger it, the
// next EnsureAuthenticated call retries. A later Start takes over, the effect
// then lives as long as the latest ctx.
func (g *AuthGate) Start(ctx context.Context) {
	if ctx == nil {
		ctx = context.Background()
	}

	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	running := g.auto
	g.auto = true
	g.autoGen++
	gen := g.autoGen
	g.autoCtx = context.WithoutCancel(ctx)
	g.mu.Unlock()

	if !running && g.provider.State().settledUnauthenticated() {
		g.autoSignIn()
	}

	go func() {
		select {
		case <-ctx.Done():
		case <-g.stopped:
		}
		g.mu.Lock()
		if g.autoGen == gen {
			g.auto = false
		}
		g.mu.Unlock()
	}()
}

// Close unsubscribes from the provider and stops the auto effect. Waiters
// already blocked keep their own timeouts.
func (g *AuthGate) Close() {
	g.mu.Lock()
	if g.closed {
		g.mu.Unlock()
		return
	}
	g.closed = true
	g.auto = false
	close(g.stopped)
	unsubscribe := g.unsubscribe
	g.broadcastLocked()
	g.mu.Unlock()

	if unsubscribe != nil {
		unsubscribe()
	}
}

func (g *AuthGate) onProviderState(state ProviderState) {
	g.mu.Lock()
	prev := g.last
	g.last = state
	g.broadcastLocked()
	trigger := g.auto && !g.closed && state.settledUnauthenticated() && !prev.settledUnauthenticated()
	g.mu.Unlock()

	if trigger {
		g.autoSignIn()
	}
}

func (g *AuthGate) autoSignIn() {
	g.mu.Lock()
	ctx := g.autoCtx
	g.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, started := g.acquireAttempt(ctx); started {
		g.logger.Debug("auto sign-in started")
	}
}

// acquireAttempt joins the in-flight attempt or creates one. The check and the
// set happen in one critical section so two callers can never both start. A
// nil attempt means the provider is already authenticated.
func (g *AuthGate) acquireAttempt(ctx context.Context) (*attempt, bool) {
	g.mu.Lock()
	if g.attempt != nil {
		a := g.attempt
		g.mu.Unlock()
		return a, false
	}

	// a caller that read state before the previous attempt finished must not
	// start a second sign-in
	if g.provider.State().IsAuthenticated {
		g.mu.Unlock()
		return nil, false
	}

	a := &attempt{done: make(chan struct{})}
	g.attempt = a
	g.broadcastLocked()
	g.mu.Unlock()

	go g.run(context.WithoutCancel(ctx), a)

	return a, true
}

func (g *AuthGate) run(parent context.Context, a *attempt) {
	ctx, cancel := context.WithTimeout(parent, g.signInTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			a.ok = false
			a.err = goerrors.Wrap(fmt.Errorf("%v", r), goerrors.CategoryInternal, ErrSignInPanic.Message).
				WithTextCode(TextCodeSignInPanic)
		}

		g.finish(parent, a)
	}()

	g.record(parent, chatauth.ActivityEventSignInStarted, "")

	if err := g.signIn(ctx); err != nil {
		a.err = err
		return
	}

	a.ok = g.waitFor(ctx, 0, func(s ProviderState) bool {
		return s.IsAuthenticated
	})
	if !a.ok {
		a.err = ErrSignInIncomplete
		if ctx.Err() != nil {
			a.err = ErrSignInTimeout
		}
	}
}

// signIn runs the provider call on its own goroutine so a provider that never
// returns cannot hold the attempt past ctx.
func (g *AuthGate) signIn(ctx context.Context) error {
	errCh := make(chan error, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				errCh <- goerrors.Wrap(fmt.Errorf("%v", r), goerrors.CategoryInternal, ErrSignInPanic.Message).
					WithTextCode(TextCodeSignInPanic)
			}
		}()
		errCh <- g.provider.SignIn(ctx, g.method)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		return ErrSignInTimeout
	}
}

func (g *AuthGate) finish(ctx context.Context, a *attempt) {
	g.mu.Lock()
	if g.attempt == a {
		g.attempt = nil
	}
	g.broadcastLocked()
	g.mu.Unlock()

	switch {
	case a.ok:
		g.logger.Debug("anonymous sign-in succeeded")
		g.record(ctx, chatauth.ActivityEventSignInSucceeded, "")
	case textCodeOf(a.err) == TextCodeSignInTimeout:
		g.logger.Warn("anonymous sign-in timed out", "timeout", g.signInTimeout)
		g.record(ctx, chatauth.ActivityEventSignInTimeout, TextCodeSignInTimeout)
	default:
		g.logger.Error("anonymous sign-in failed", "error", a.err)
		g.record(ctx, chatauth.ActivityEventSignInFailed, textCodeOf(a.err))
	}

	close(a.done)
}

// waitFor blocks until cond holds for the live provider state, timeout
// elapses (timeout <= 0 waits for ctx only) or ctx is done.
func (g *AuthGate) waitFor(ctx context.Context, timeout time.Duration, cond func(ProviderState) bool) bool {
	var expired <-chan time.Time
	if timeout > 0 {
		timer := time.NewTimer(timeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		// grab the signal before reading state so no change is missed
		g.mu.Lock()
		changed := g.changed
		closed := g.closed
		g.mu.Unlock()

		if cond(g.provider.State()) {
			return true
		}
		if closed {
			return false
		}

		select {
		case <-changed:
		case <-expired:
			return cond(g.provider.State())
		case <-ctx.Done():
			return false
		}
	}
}

func (g *AuthGate) broadcastLocked() {
	close(g.changed)
	g.changed = make(chan struct{})
}

func (g *AuthGate) record(ctx context.Context, eventType chatauth.ActivityEventType, reason string) {
	chatauth.RecordActivity(ctx, g.activitySink, g.logger, chatauth.ActivityEvent{
		EventType: eventType,
		Identity:  chatauth.AnonymousIdentity,
		Reason:    reason,
		Metadata: map[string]any{
			"method": string(g.method),
		},
	})
}

func textCodeOf(err error) string {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr.TextCode
	}
	if err != nil {
		return err.Error()
	}
	return ""
}
