package gate

import (
	"time"

	"github.com/goliatone/go-chatauth"
)

const (
	DefaultLoadingTimeout  = 10 * time.Second
	DefaultSignInTimeout   = 5 * time.Second
	DefaultInFlightTimeout = 10 * time.Second
)

// Option customizes AuthGate construction.
type Option func(*AuthGate)

// WithLoadingTimeout bounds the wait for the provider to finish loading.
func WithLoadingTimeout(d time.Duration) Option {
	return func(g *AuthGate) {
		if d > 0 {
			g.loadingTimeout = d
		}
	}
}

// WithSignInTimeout bounds an attempt, covering the SignIn call and the wait
// for the provider to report an authenticated session.
func WithSignInTimeout(d time.Duration) Option {
	return func(g *AuthGate) {
		if d > 0 {
			g.signInTimeout = d
		}
	}
}

// WithInFlightTimeout bounds how long a caller joining an attempt waits.
func WithInFlightTimeout(d time.Duration) Option {
	return func(g *AuthGate) {
		if d > 0 {
			g.inFlightTimeout = d
		}
	}
}

func WithSignInMethod(method SignInMethod) Option {
	return func(g *AuthGate) {
		if method != "" {
			g.method = method
		}
	}
}

func WithLogger(logger chatauth.Logger) Option {
	return func(g *AuthGate) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// WithActivitySink publishes gate.sign_in.* events.
func WithActivitySink(sink chatauth.ActivitySink) Option {
	return func(g *AuthGate) {
		g.activitySink = chatauth.NormalizeActivitySink(sink)
	}
}
