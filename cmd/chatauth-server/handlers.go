package main

import (
	"context"
	"strconv"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"
	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-chatauth/repository"
	"github.com/goliatone/go-errors"
	repo "github.com/goliatone/go-repository-bun"
	"github.com/goliatone/go-router"
)

const maxMessageLength = 4000

// ActivityLister is the read side of the activity store.
type ActivityLister interface {
	ListByIdentity(ctx context.Context, identity string, limit int, criteria ...repo.SelectCriteria) ([]*repository.ActivityRecord, error)
}

// SessionSigner mints development sessions.
type SessionSigner interface {
	Sign(identity string) (string, error)
}

type ChatHandlers struct {
	ContextKey string
	Activity   ActivityLister
	Sessions   SessionSigner
	Errors     *chatauth.ErrorResponder
	Logger     chatauth.Logger
}

type MessageRequest struct {
	Message   string `json:"message" form:"message"`
	ChatToken string `json:"chatToken,omitempty" form:"chatToken"`
}

func (r MessageRequest) Validate() *errors.Error {
	return errors.ValidateWithOzzo(func() error {
		return validation.ValidateStruct(&r,
			validation.Field(
				&r.Message,
				validation.Required,
				validation.Length(1, maxMessageLength),
			),
		)
	}, "Invalid chat message payload")
}

type MessageResponse struct {
	Identity   string    `json:"identity"`
	Anonymous  bool      `json:"anonymous"`
	Message    string    `json:"message"`
	ReceivedAt time.Time `json:"receivedAt"`
}

type ActivityResponse struct {
	Identity string                       `json:"identity"`
	Records  []*repository.ActivityRecord `json:"records"`
}

type SessionResponse struct {
	Session   string `json:"session"`
	Identity  string `json:"identity"`
	Anonymous bool   `json:"anonymous"`
}

// PostMessage accepts a chat message from any verified chat token, the
// anonymous identity included.
func (h *ChatHandlers) PostMessage(ctx router.Context) error {
	principal, ok := chatauth.GetRouterPrincipal(ctx, h.ContextKey)
	if !ok {
		return h.Errors.Handle(ctx, chatauth.ErrTokenMissing)
	}

	payload := new(MessageRequest)
	if err := ctx.Bind(payload); err != nil {
		return h.Errors.Handle(ctx, errors.Wrap(err, errors.CategoryBadInput, "invalid chat message payload").
			WithCode(errors.CodeBadRequest))
	}

	if err := payload.Validate(); err != nil {
		return h.Errors.Handle(ctx, err.WithCode(errors.CodeBadRequest))
	}

	h.Logger.Debug("chat message accepted", "identity", principal.Identity, "length", len(payload.Message))

	return ctx.JSON(router.StatusOK, MessageResponse{
		Identity:   principal.Identity,
		Anonymous:  principal.Anonymous,
		Message:    strings.TrimSpace(payload.Message),
		ReceivedAt: time.Now().UTC(),
	})
}

// ListActivity is mounted behind a guard that rejects anonymous identities.
func (h *ChatHandlers) ListActivity(ctx router.Context) error {
	principal, ok := chatauth.GetRouterPrincipal(ctx, h.ContextKey)
	if !ok {
		return h.Errors.Handle(ctx, chatauth.ErrTokenMissing)
	}

	if err := chatauth.RequireRealIdentity(principal); err != nil {
		return h.Errors.Handle(ctx, err)
	}

	limit := 0
	if raw := ctx.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			return h.Errors.Handle(ctx, errors.New("limit must be a positive number", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest))
		}
		limit = n
	}

	records, err := h.Activity.ListByIdentity(ctx.Context(), principal.Identity, limit)
	if err != nil {
		return h.Errors.Handle(ctx, errors.Wrap(err, errors.CategoryInternal, "failed to list chat activity"))
	}

	ctx.SetHeader("Cache-Control", "no-store")
	return ctx.JSON(router.StatusOK, ActivityResponse{
		Identity: principal.Identity,
		Records:  records,
	})
}

// AnonymousSession stands in for the provider's anonymous sign-in during
// development.
func (h *ChatHandlers) AnonymousSession(ctx router.Context) error {
	session, err := h.Sessions.Sign(chatauth.AnonymousIdentity)
	if err != nil {
		return h.Errors.Handle(ctx, err)
	}

	ctx.SetHeader("Cache-Control", "no-store")
	return ctx.JSON(router.StatusOK, SessionResponse{
		Session:   session,
		Identity:  chatauth.AnonymousIdentity,
		Anonymous: true,
	})
}
