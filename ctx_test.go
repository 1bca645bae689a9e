package chatauth

import (
	"context"
	"testing"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPrincipalContexts(t *testing.T) {
	chat := &Principal{Identity: "user123", Source: PrincipalSourceChatToken}
	session := &Principal{Identity: "user123", Source: PrincipalSourcePlatformSession}

	ctx := WithContext(context.Background(), chat)
	got, ok := FromContext(ctx)
	require.True(t, ok)
	assert.Same(t, chat, got)

	_, ok = SessionFromContext(ctx)
	assert.False(t, ok, "chat principal must not satisfy the session lookup")

	ctx = WithSessionContext(context.Background(), session)
	got, ok = SessionFromContext(ctx)
	require.True(t, ok)
	assert.Same(t, session, got)

	_, ok = FromContext(ctx)
	assert.False(t, ok, "session principal must not satisfy the chat lookup")
}

func TestFromContextNil(t *testing.T) {
	//nolint:staticcheck
	_, ok := FromContext(nil)
	assert.False(t, ok)

	_, ok = FromContext(WithContext(context.Background(), nil))
	assert.False(t, ok)
}

func TestGetRouterPrincipal(t *testing.T) {
	principal := &Principal{Identity: "user123"}

	t.Run("default key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock[DefaultChatContextKey] = principal

		got, ok := GetRouterPrincipal(ctx, "")
		require.True(t, ok)
		assert.Same(t, principal, got)
	})

	t.Run("custom key", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock["chat"] = principal

		got, ok := GetRouterPrincipal(ctx, "chat")
		require.True(t, ok)
		assert.Same(t, principal, got)
	})

	t.Run("missing", func(t *testing.T) {
		ctx := router.NewMockContext()
		_, ok := GetRouterPrincipal(ctx, DefaultSessionContextKey)
		assert.False(t, ok)
	})

	t.Run("wrong type", func(t *testing.T) {
		ctx := router.NewMockContext()
		ctx.LocalsMock[DefaultChatContextKey] = "user123"
		_, ok := GetRouterPrincipal(ctx, "")
		assert.False(t, ok)
	})
}

func TestRequireRealIdentity(t *testing.T) {
	assert.Equal(t, ErrTokenMissing, RequireRealIdentity(nil))
	assert.Equal(t, ErrTokenMissing, RequireRealIdentity(&Principal{}))
	assert.Equal(t, ErrAnonymousIdentity, RequireRealIdentity(&Principal{Identity: AnonymousIdentity}))
	assert.Equal(t, ErrAnonymousIdentity, RequireRealIdentity(&Principal{Identity: "someone", Anonymous: true}))
	assert.NoError(t, RequireRealIdentity(&Principal{Identity: "user123"}))
}

func TestIsAnonymous(t *testing.T) {
	assert.True(t, IsAnonymous("anonymous"))
	assert.False(t, IsAnonymous("Anonymous"))
	assert.False(t, IsAnonymous("ANONYMOUS"))
	assert.NoError(t, RequireRealIdentity(&Principal{Identity: "Anonymous"}))
	assert.False(t, IsAnonymous("user123"))
	assert.False(t, IsAnonymous(""))
}
