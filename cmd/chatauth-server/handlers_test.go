package main

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goliatone/go-router"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-chatauth/config"
	"github.com/goliatone/go-chatauth/repository"
	repo "github.com/goliatone/go-repository-bun"
)

type quietLogger struct{}

func (quietLogger) Debug(string, ...any) {}
func (quietLogger) Info(string, ...any)  {}
func (quietLogger) Warn(string, ...any)  {}
func (quietLogger) Error(string, ...any) {}

type stubActivity struct {
	identity string
	limit    int
	records  []*repository.ActivityRecord
	err      error
}

func (s *stubActivity) ListByIdentity(ctx context.Context, identity string, limit int, criteria ...repo.SelectCriteria) ([]*repository.ActivityRecord, error) {
	s.identity = identity
	s.limit = limit
	return s.records, s.err
}

func newHandlers(activity ActivityLister, sessions SessionSigner) *ChatHandlers {
	return &ChatHandlers{
		ContextKey: chatauth.DefaultChatContextKey,
		Activity:   activity,
		Sessions:   sessions,
		Errors:     chatauth.NewErrorResponder(quietLogger{}),
		Logger:     quietLogger{},
	}
}

func chatPrincipal(identity string) *chatauth.Principal {
	return &chatauth.Principal{
		Identity:  identity,
		Anonymous: chatauth.IsAnonymous(identity),
		Source:    chatauth.PrincipalSourceChatToken,
	}
}

func TestPostMessage(t *testing.T) {
	h := newHandlers(&stubActivity{}, nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock[chatauth.DefaultChatContextKey] = chatPrincipal(chatauth.AnonymousIdentity)
	ctx.On("Bind", mock.Anything).Run(func(args mock.Arguments) {
		payload := args.Get(0).(*MessageRequest)
		payload.Message = "  hello  "
	}).Return(nil)

	var res MessageResponse
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		res = args.Get(1).(MessageResponse)
	}).Return(nil)

	require.NoError(t, h.PostMessage(ctx))
	assert.Equal(t, chatauth.AnonymousIdentity, res.Identity)
	assert.True(t, res.Anonymous)
	assert.Equal(t, "hello", res.Message)
}

func TestPostMessageRejectsEmptyMessage(t *testing.T) {
	h := newHandlers(&stubActivity{}, nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock[chatauth.DefaultChatContextKey] = chatPrincipal("user123")
	ctx.On("Bind", mock.Anything).Return(nil)
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)
	ctx.On("JSON", 400, mock.Anything).Return(nil)

	require.NoError(t, h.PostMessage(ctx))
	ctx.AssertCalled(t, "JSON", 400, mock.Anything)
}

func TestPostMessageWithoutPrincipal(t *testing.T) {
	h := newHandlers(&stubActivity{}, nil)

	ctx := router.NewMockContext()
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)

	var body chatauth.ErrorResponse
	ctx.On("JSON", 401, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(chatauth.ErrorResponse)
	}).Return(nil)

	require.NoError(t, h.PostMessage(ctx))
	assert.Equal(t, chatauth.TextCodeTokenMissing, body.Error)
}

func TestListActivity(t *testing.T) {
	activity := &stubActivity{
		records: []*repository.ActivityRecord{
			{EventType: string(chatauth.ActivityEventTokenIssued), Identity: "user123", OccurredAt: time.Now()},
		},
	}
	h := newHandlers(activity, nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock[chatauth.DefaultChatContextKey] = chatPrincipal("user123")
	ctx.QueriesM["limit"] = "5"
	ctx.On("Context").Return(context.Background())
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)

	var res ActivityResponse
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		res = args.Get(1).(ActivityResponse)
	}).Return(nil)

	require.NoError(t, h.ListActivity(ctx))
	assert.Equal(t, "user123", activity.identity)
	assert.Equal(t, 5, activity.limit)
	assert.Len(t, res.Records, 1)
}

func TestListActivityRejectsAnonymous(t *testing.T) {
	activity := &stubActivity{}
	h := newHandlers(activity, nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock[chatauth.DefaultChatContextKey] = chatPrincipal(chatauth.AnonymousIdentity)
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)

	var body chatauth.ErrorResponse
	ctx.On("JSON", 403, mock.Anything).Run(func(args mock.Arguments) {
		body = args.Get(1).(chatauth.ErrorResponse)
	}).Return(nil)

	require.NoError(t, h.ListActivity(ctx))
	assert.Equal(t, chatauth.TextCodeAnonymousRejected, body.Error)
	assert.Empty(t, activity.identity)
}

func TestListActivityStoreFailure(t *testing.T) {
	h := newHandlers(&stubActivity{err: errors.New("disk full")}, nil)

	ctx := router.NewMockContext()
	ctx.LocalsMock[chatauth.DefaultChatContextKey] = chatPrincipal("user123")
	ctx.On("Context").Return(context.Background())
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)
	ctx.On("JSON", 500, mock.Anything).Return(nil)

	require.NoError(t, h.ListActivity(ctx))
	ctx.AssertCalled(t, "JSON", 500, mock.Anything)
}

func TestAnonymousSession(t *testing.T) {
	sessions, err := chatauth.NewSessionService([]byte("session-key"), chatauth.WithSessionLogger(quietLogger{}))
	require.NoError(t, err)

	h := newHandlers(&stubActivity{}, sessions)

	ctx := router.NewMockContext()
	ctx.On("SetHeader", "Cache-Control", "no-store").Return(ctx)

	var res SessionResponse
	ctx.On("JSON", router.StatusOK, mock.Anything).Run(func(args mock.Arguments) {
		res = args.Get(1).(SessionResponse)
	}).Return(nil)

	require.NoError(t, h.AnonymousSession(ctx))
	assert.True(t, res.Anonymous)

	claims, err := sessions.Validate(res.Session)
	require.NoError(t, err)
	assert.True(t, claims.IsAnonymous())
	assert.Equal(t, chatauth.AnonymousIdentity, claims.Identity())
}

func TestRedactedHidesSecrets(t *testing.T) {
	cfg := loadTestConfig()
	out := redacted(&cfg)

	assert.Equal(t, "***", out.ChatToken.Secret)
	assert.Equal(t, "***", out.Session.SigningKey)
	assert.NotEqual(t, "***", cfg.ChatToken.Secret)
}

func loadTestConfig() config.BaseConfig {
	return config.BaseConfig{
		ChatToken: config.ChatToken{Secret: "chat-secret-for-tests"},
		Session:   config.Session{SigningKey: "session-key-for-tests"},
	}
}
