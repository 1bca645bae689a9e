package gate_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-chatauth/gate"
)

func TestObservable_NotifiesOnChange(t *testing.T) {
	obs := gate.NewObservable(gate.ProviderState{IsLoading: true})

	var seen []gate.ProviderState
	unsubscribe := obs.Subscribe(func(s gate.ProviderState) {
		seen = append(seen, s)
	})

	obs.Set(gate.ProviderState{IsLoading: true})
	obs.Set(gate.ProviderState{})
	obs.Update(func(s *gate.ProviderState) {
		s.IsAuthenticated = true
	})

	require.Len(t, seen, 2)
	assert.Equal(t, gate.ProviderState{}, seen[0])
	assert.Equal(t, gate.ProviderState{IsAuthenticated: true}, seen[1])

	unsubscribe()
	unsubscribe()
	obs.Set(gate.ProviderState{})

	assert.Len(t, seen, 2)
	assert.Equal(t, gate.ProviderState{}, obs.State())
}

func TestObservable_NilSubscriber(t *testing.T) {
	obs := gate.NewObservable(gate.ProviderState{})
	unsubscribe := obs.Subscribe(nil)
	assert.NotPanics(t, func() {
		obs.Set(gate.ProviderState{IsAuthenticated: true})
		unsubscribe()
	})
}

func TestObservableProvider_WithoutSignIn(t *testing.T) {
	p := gate.NewObservableProvider(gate.ProviderState{}, nil)
	err := p.SignIn(context.Background(), gate.SignInAnonymous)
	assert.Equal(t, gate.ErrSignInUnavailable, err)
}
