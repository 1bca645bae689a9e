package chatauth_test

import (
	"errors"
	"testing"

	goerrors "github.com/goliatone/go-errors"
	"github.com/stretchr/testify/assert"

	"github.com/goliatone/go-chatauth"
)

func TestIsTokenExpiredError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "Chat token expired",
			err:      chatauth.ErrTokenExpired,
			expected: true,
		},
		{
			name:     "Platform session expired",
			err:      chatauth.ErrSessionExpired,
			expected: true,
		},
		{
			name:     "Wrapped expired error",
			err:      goerrors.Wrap(chatauth.ErrTokenExpired, goerrors.CategoryAuth, "request rejected"),
			expected: true,
		},
		{
			name:     "Different structured error",
			err:      chatauth.ErrInvalidSignature,
			expected: false,
		},
		{
			name:     "Plain error",
			err:      errors.New("token is expired"),
			expected: false,
		},
		{
			name:     "Nil error",
			err:      nil,
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, chatauth.IsTokenExpiredError(tt.err))
		})
	}
}

func TestIsMalformedError(t *testing.T) {
	assert.True(t, chatauth.IsMalformedError(chatauth.ErrMalformedToken))
	assert.True(t, chatauth.IsMalformedError(chatauth.ErrTokenMissing))
	assert.False(t, chatauth.IsMalformedError(chatauth.ErrTokenExpired))
	assert.False(t, chatauth.IsMalformedError(nil))
}

func TestIsInvalidSignatureError(t *testing.T) {
	assert.True(t, chatauth.IsInvalidSignatureError(chatauth.ErrInvalidSignature))
	assert.False(t, chatauth.IsInvalidSignatureError(chatauth.ErrMalformedToken))
}

func TestIsConfigurationError(t *testing.T) {
	assert.True(t, chatauth.IsConfigurationError(chatauth.ErrMissingSecret))
	assert.True(t, chatauth.IsConfigurationError(chatauth.ErrMissingSessionKey))
	assert.False(t, chatauth.IsConfigurationError(chatauth.ErrSessionRequired))
}

func TestStructuredErrorProperties(t *testing.T) {
	t.Run("ErrTokenExpired", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuth, chatauth.ErrTokenExpired.Category)
		assert.Equal(t, chatauth.TextCodeTokenExpired, chatauth.ErrTokenExpired.TextCode)
		assert.Equal(t, goerrors.CodeUnauthorized, chatauth.ErrTokenExpired.Code)
	})

	t.Run("ErrMissingSecret", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryInternal, chatauth.ErrMissingSecret.Category)
		assert.Equal(t, goerrors.CodeInternal, chatauth.ErrMissingSecret.Code)
	})

	t.Run("ErrAnonymousIdentity", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryAuthz, chatauth.ErrAnonymousIdentity.Category)
		assert.Equal(t, goerrors.CodeForbidden, chatauth.ErrAnonymousIdentity.Code)
	})

	t.Run("ErrInvalidIdentity", func(t *testing.T) {
		assert.Equal(t, goerrors.CategoryBadInput, chatauth.ErrInvalidIdentity.Category)
		assert.Equal(t, chatauth.TextCodeInvalidIdentity, chatauth.ErrInvalidIdentity.TextCode)
	})
}

func TestReasonErr(t *testing.T) {
	tests := []struct {
		reason chatauth.Reason
		err    error
	}{
		{reason: chatauth.ReasonNone, err: nil},
		{reason: chatauth.ReasonMalformedToken, err: chatauth.ErrMalformedToken},
		{reason: chatauth.ReasonExpired, err: chatauth.ErrTokenExpired},
		{reason: chatauth.ReasonInvalidSignature, err: chatauth.ErrInvalidSignature},
		{reason: chatauth.ReasonIssuedInFuture, err: chatauth.ErrTokenFromFuture},
		{reason: chatauth.ReasonConfiguration, err: chatauth.ErrMissingSecret},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			assert.Equal(t, tt.err, tt.reason.Err())
		})
	}
}
