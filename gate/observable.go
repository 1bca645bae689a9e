package gate

import (
	"context"
	"sync"
)

// Observable holds provider state and pushes every change to subscribers.
// Subscribers run on the goroutine that called Set, outside the state lock,
// and must not call Set themselves.
type Observable struct {
	notifyMu sync.Mutex

	mu     sync.RWMutex
	state  ProviderState
	subs   map[int]func(ProviderState)
	nextID int
}

func NewObservable(initial ProviderState) *Observable {
	return &Observable{
		state: initial,
		subs:  make(map[int]func(ProviderState)),
	}
}

// State returns the current snapshot.
func (o *Observable) State() ProviderState {
	o.mu.RLock()
	defer o.mu.RUnlock()
	return o.state
}

// Set stores s and notifies subscribers when it differs from the current state.
func (o *Observable) Set(s ProviderState) {
	o.Update(func(state *ProviderState) {
		*state = s
	})
}

// Update applies fn to the state and notifies on change. Notifications are
// delivered in the order updates were applied.
func (o *Observable) Update(fn func(*ProviderState)) {
	o.notifyMu.Lock()
	defer o.notifyMu.Unlock()

	o.mu.Lock()
	prev := o.state
	fn(&o.state)
	next := o.state
	subs := make([]func(ProviderState), 0, len(o.subs))
	for _, sub := range o.subs {
		subs = append(subs, sub)
	}
	o.mu.Unlock()

	if prev == next {
		return
	}

	for _, sub := range subs {
		sub(next)
	}
}

func (o *Observable) Subscribe(fn func(ProviderState)) func() {
	if fn == nil {
		return func() {}
	}

	o.mu.Lock()
	id := o.nextID
	o.nextID++
	o.subs[id] = fn
	o.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			o.mu.Lock()
			delete(o.subs, id)
			o.mu.Unlock()
		})
	}
}

// SignInFunc performs the provider's sign-in call.
type SignInFunc func(ctx context.Context, method SignInMethod) error

// ObservableProvider adapts an Observable and a sign-in function into a Provider.
type ObservableProvider struct {
	*Observable
	SignInFunc SignInFunc
}

var _ Provider = (*ObservableProvider)(nil)

func NewObservableProvider(initial ProviderState, signIn SignInFunc) *ObservableProvider {
	return &ObservableProvider{
		Observable: NewObservable(initial),
		SignInFunc: signIn,
	}
}

func (p *ObservableProvider) SignIn(ctx context.Context, method SignInMethod) error {
	if p.SignInFunc == nil {
		return ErrSignInUnavailable
	}
	return p.SignInFunc(ctx, method)
}
