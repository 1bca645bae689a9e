package repository

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"time"

	"github.com/goliatone/go-chatauth"
	"github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// DefaultListLimit caps ListByIdentity when no limit is given.
const DefaultListLimit = 50

// ActivityRecord is the Bun model for chat auth activity events.
type ActivityRecord struct {
	bun.BaseModel `bun:"table:chat_activity,alias:act"`

	ID         uuid.UUID      `bun:"id,pk,nullzero,type:uuid" json:"id"`
	EventType  string         `bun:"event_type,notnull" json:"event_type"`
	Identity   string         `bun:"identity" json:"identity,omitempty"`
	Reason     string         `bun:"reason" json:"reason,omitempty"`
	Metadata   map[string]any `bun:"metadata,type:jsonb" json:"metadata,omitempty"`
	OccurredAt time.Time      `bun:"occurred_at,notnull" json:"occurred_at"`
}

// ActivityStore persists activity events and implements chatauth.ActivitySink.
type ActivityStore struct {
	repository.Repository[*ActivityRecord]
	db *bun.DB
}

var _ chatauth.ActivitySink = (*ActivityStore)(nil)

func NewActivityStore(db *bun.DB) *ActivityStore {
	handlers := repository.ModelHandlers[*ActivityRecord]{
		NewRecord: func() *ActivityRecord {
			return &ActivityRecord{}
		},
		GetID: func(record *ActivityRecord) uuid.UUID {
			if record == nil {
				return uuid.Nil
			}
			return record.ID
		},
		SetID: func(record *ActivityRecord, id uuid.UUID) {
			if record != nil {
				record.ID = id
			}
		},
		GetIdentifier: func() string {
			return "identity"
		},
	}

	return &ActivityStore{
		Repository: repository.NewRepository(db, handlers),
		db:         db,
	}
}

func (s *ActivityStore) Validate() error {
	if s.db == nil {
		return errors.New("activity store requires a database")
	}
	if s.Repository == nil {
		return errors.New("activity repository should be initialized")
	}
	return nil
}

func (s *ActivityStore) MustValidate() {
	if err := s.Validate(); err != nil {
		log.Panic(err)
	}
}

// Record implements chatauth.ActivitySink.
func (s *ActivityStore) Record(ctx context.Context, event chatauth.ActivityEvent) error {
	_, err := s.Create(ctx, FromActivityEvent(event))
	return err
}

// ListByIdentity returns the newest events for identity first.
func (s *ActivityStore) ListByIdentity(ctx context.Context, identity string, limit int, criteria ...repository.SelectCriteria) ([]*ActivityRecord, error) {
	return s.ListByIdentityTx(ctx, s.db, identity, limit, criteria...)
}

func (s *ActivityStore) ListByIdentityTx(ctx context.Context, tx bun.IDB, identity string, limit int, criteria ...repository.SelectCriteria) ([]*ActivityRecord, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}

	records := []*ActivityRecord{}
	q := tx.NewSelect().
		Model(&records).
		Where("?TableAlias.identity = ?", identity).
		OrderExpr("?TableAlias.occurred_at DESC").
		Limit(limit)

	for _, c := range criteria {
		q.Apply(c)
	}

	if err := q.Scan(ctx); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return []*ActivityRecord{}, nil
		}
		return nil, err
	}

	return records, nil
}

func (s *ActivityStore) RunInTx(ctx context.Context, opts *sql.TxOptions, f func(ctx context.Context, tx bun.Tx) error) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return s.db.RunInTx(ctx, opts, f)
	}
}

// FromActivityEvent converts an event into a new record.
func FromActivityEvent(event chatauth.ActivityEvent) *ActivityRecord {
	occurredAt := event.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now()
	}

	metadata := map[string]any{}
	for k, v := range event.Metadata {
		metadata[k] = v
	}

	return &ActivityRecord{
		ID:         uuid.New(),
		EventType:  string(event.EventType),
		Identity:   event.Identity,
		Reason:     event.Reason,
		Metadata:   metadata,
		OccurredAt: occurredAt.UTC(),
	}
}

// ToActivityEvent converts a stored record back into an event.
func (r *ActivityRecord) ToActivityEvent() chatauth.ActivityEvent {
	return chatauth.ActivityEvent{
		EventType:  chatauth.ActivityEventType(r.EventType),
		Identity:   r.Identity,
		Reason:     r.Reason,
		Metadata:   r.Metadata,
		OccurredAt: r.OccurredAt,
	}
}
