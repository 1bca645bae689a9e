package chatauth_test

import (
	"context"
	"testing"
	"time"

	goerrors "github.com/goliatone/go-errors"
	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-chatauth"
)

func newWSValidator(t *testing.T) *chatauth.WSTokenValidator {
	t.Helper()

	verifier, err := chatauth.NewTokenVerifier(testSecret,
		chatauth.WithVerifierClock(fixedClock(testNow)),
		chatauth.WithVerifierLogger(quietLogger{}),
	)
	require.NoError(t, err)

	return chatauth.NewWSTokenValidator(verifier)
}

func TestWSTokenValidator_Validate(t *testing.T) {
	validator := newWSValidator(t)

	t.Run("member token", func(t *testing.T) {
		token, err := chatauth.SignToken("user123", testNow.Add(-time.Minute).UnixMilli(), testSecret)
		require.NoError(t, err)

		claims, err := validator.Validate(token)
		require.NoError(t, err)
		require.NotNil(t, claims)

		assert.Equal(t, "user123", claims.Subject())
		assert.Equal(t, "user123", claims.UserID())
		assert.Equal(t, chatauth.ChatRoleMember, claims.Role())
		assert.True(t, claims.CanRead("room"))
		assert.True(t, claims.CanCreate("room"))
		assert.True(t, claims.CanEdit("room"))
		assert.True(t, claims.CanDelete("room"))
	})

	t.Run("anonymous token", func(t *testing.T) {
		token, err := chatauth.SignToken(chatauth.AnonymousIdentity, testNow.UnixMilli(), testSecret)
		require.NoError(t, err)

		claims, err := validator.Validate(token)
		require.NoError(t, err)

		assert.Equal(t, chatauth.ChatRoleAnonymous, claims.Role())
		assert.True(t, claims.CanRead("room"))
		assert.True(t, claims.CanCreate("room"))
		assert.False(t, claims.CanEdit("room"))
		assert.False(t, claims.CanDelete("room"))
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := chatauth.SignToken("user123", testNow.Add(-301*time.Second).UnixMilli(), testSecret)
		require.NoError(t, err)

		claims, err := validator.Validate(token)
		assert.Nil(t, claims)
		require.Error(t, err)

		var richErr *goerrors.Error
		require.True(t, goerrors.As(err, &richErr))
		assert.Equal(t, chatauth.ErrTokenExpired.TextCode, richErr.TextCode)
	})

	t.Run("wrong secret", func(t *testing.T) {
		token, err := chatauth.SignToken("user123", testNow.UnixMilli(), "secret-B")
		require.NoError(t, err)

		claims, err := validator.Validate(token)
		assert.Nil(t, claims)
		assert.Error(t, err)
	})

	t.Run("garbage", func(t *testing.T) {
		claims, err := validator.Validate("not a token")
		assert.Nil(t, claims)
		assert.Error(t, err)
	})
}

func TestWSTokenValidator_NilValidator(t *testing.T) {
	validator := chatauth.NewWSTokenValidator(nil)

	claims, err := validator.Validate("anything")
	assert.Nil(t, claims)
	assert.True(t, chatauth.IsConfigurationError(err))
}

func TestWSTokenValidator_UsesValidatorFunc(t *testing.T) {
	var seen string
	validator := chatauth.NewWSTokenValidator(chatauth.TokenValidatorFunc(func(ctx context.Context, token string) chatauth.VerificationResult {
		seen = token
		return chatauth.VerificationResult{Valid: true, Identity: "user456"}
	}))

	claims, err := validator.Validate("opaque")
	require.NoError(t, err)
	assert.Equal(t, "opaque", seen)
	assert.Equal(t, "user456", claims.Subject())
}

func TestWSAuthClaimsAdapter_Roles(t *testing.T) {
	validator := newWSValidator(t)

	memberToken, err := chatauth.SignToken("user123", testNow.UnixMilli(), testSecret)
	require.NoError(t, err)
	member, err := validator.Validate(memberToken)
	require.NoError(t, err)

	anonToken, err := chatauth.SignToken(chatauth.AnonymousIdentity, testNow.UnixMilli(), testSecret)
	require.NoError(t, err)
	anon, err := validator.Validate(anonToken)
	require.NoError(t, err)

	tests := []struct {
		name    string
		claims  router.WSAuthClaims
		minRole string
		want    bool
	}{
		{"member at least anonymous", member, chatauth.ChatRoleAnonymous, true},
		{"member at least member", member, chatauth.ChatRoleMember, true},
		{"anonymous at least anonymous", anon, chatauth.ChatRoleAnonymous, true},
		{"anonymous at least member", anon, chatauth.ChatRoleMember, false},
		{"unknown role", member, "admin", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.claims.IsAtLeast(tt.minRole))
		})
	}

	assert.True(t, member.HasRole(chatauth.ChatRoleMember))
	assert.False(t, member.HasRole(chatauth.ChatRoleAnonymous))
	assert.True(t, anon.HasRole(chatauth.ChatRoleAnonymous))
}

func TestWSPrincipalFromContext(t *testing.T) {
	validator := newWSValidator(t)

	t.Run("with chat claims", func(t *testing.T) {
		token, err := chatauth.SignToken("user123", testNow.UnixMilli(), testSecret)
		require.NoError(t, err)
		claims, err := validator.Validate(token)
		require.NoError(t, err)

		ctx := context.WithValue(context.Background(), router.WSAuthContextKey{}, claims)

		principal, ok := chatauth.WSPrincipalFromContext(ctx)
		require.True(t, ok)
		assert.Equal(t, "user123", principal.Identity)
		assert.False(t, principal.Anonymous)
		assert.Equal(t, chatauth.PrincipalSourceChatToken, principal.Source)
	})

	t.Run("without claims", func(t *testing.T) {
		principal, ok := chatauth.WSPrincipalFromContext(context.Background())
		assert.False(t, ok)
		assert.Nil(t, principal)
	})
}

func TestNewWSAuthMiddleware(t *testing.T) {
	verifier, err := chatauth.NewTokenVerifier(testSecret, chatauth.WithVerifierLogger(quietLogger{}))
	require.NoError(t, err)

	mw := chatauth.NewWSAuthMiddleware(verifier, router.WSAuthConfig{})
	assert.NotNil(t, mw)

	assert.NotNil(t, chatauth.NewWSAuthMiddleware(verifier))
}

func TestWSAuthClaimsAdapter_SentinelIsCaseSensitive(t *testing.T) {
	validator := newWSValidator(t)

	token, err := chatauth.SignToken("Anonymous", testNow.UnixMilli(), testSecret)
	require.NoError(t, err)

	claims, err := validator.Validate(token)
	require.NoError(t, err)

	assert.Equal(t, chatauth.ChatRoleMember, claims.Role())
	assert.True(t, claims.CanEdit("room"))
}
