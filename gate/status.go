package gate

import "context"

// Status is the gate's view of the session, derived from the provider state
// and the in-flight sign-in attempt.
type Status string

const (
	StatusUnknown         Status = "unknown"
	StatusAuthenticating  Status = "authenticating"
	StatusAuthenticated   Status = "authenticated"
	StatusUnauthenticated Status = "unauthenticated"
)

func (s Status) String() string {
	return string(s)
}

// SignInMethod names the provider flow used by the gate.
type SignInMethod string

const SignInAnonymous SignInMethod = "anonymous"

// ProviderState is a snapshot of the auth provider observables.
type ProviderState struct {
	IsAuthenticated bool
	IsLoading       bool
}

func (s ProviderState) settledUnauthenticated() bool {
	return !s.IsLoading && !s.IsAuthenticated
}

// Provider is the external auth provider as seen by the gate. SignIn may
// return before the provider reports IsAuthenticated, the gate waits for the
// state to settle.
type Provider interface {
	SignIn(ctx context.Context, method SignInMethod) error
	// State must not wait on subscriber delivery, the gate reads it while
	// holding its own lock.
	State() ProviderState
	// Subscribe registers fn for state changes. fn must not block.
	Subscribe(fn func(ProviderState)) (unsubscribe func())
}
