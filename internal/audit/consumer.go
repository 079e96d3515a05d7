package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	inats "github.com/aiox-platform/mentionbot/internal/nats"
)

const consumerName = "audit-persister"

// Inserter persists audit entries.
type Inserter interface {
	Insert(ctx context.Context, e *Entry) error
}

// Consumer listens on the interaction event subjects and persists entries to the database.
type Consumer struct {
	repo        Inserter
	consumerMgr *inats.ConsumerManager
}

// NewConsumer creates a new audit event Consumer.
func NewConsumer(repo Inserter, consumerMgr *inats.ConsumerManager) *Consumer {
	return &Consumer{
		repo:        repo,
		consumerMgr: consumerMgr,
	}
}

// Start begins the consume loop. Blocks until ctx is cancelled.
func (c *Consumer) Start(ctx context.Context) error {
	consumer, err := c.consumerMgr.EnsureConsumer(ctx, inats.StreamEvents, consumerName, inats.SubjectEventsPrefix+".interaction.>")
	if err != nil {
		return err
	}

	slog.Info("audit consumer started", "consumer", consumerName)

	for {
		msgs, err := consumer.Fetch(10, jetstream.FetchMaxWait(inats.FetchTimeout))
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			slog.Debug("audit consumer: fetching events", "error", err)
			continue
		}

		for msg := range msgs.Messages() {
			if err := c.handle(ctx, msg.Data()); err != nil {
				slog.Error("audit consumer: handling event", "error", err, "subject", msg.Subject())
				_ = msg.Nak()
				continue
			}
			_ = msg.Ack()
		}

		if ctx.Err() != nil {
			return nil
		}
	}
}

func (c *Consumer) handle(ctx context.Context, data []byte) error {
	var event inats.InteractionEvent
	if err := json.Unmarshal(data, &event); err != nil {
		return fmt.Errorf("unmarshaling event: %w", err)
	}

	entry := entryFromEvent(event)
	if err := c.repo.Insert(ctx, entry); err != nil {
		return fmt.Errorf("persisting audit entry: %w", err)
	}

	slog.Debug("audit consumer: persisted event",
		"event_type", entry.EventType,
		"kind", entry.Kind,
		"original_post_id", entry.OriginalPostID,
	)
	return nil
}

func entryFromEvent(event inats.InteractionEvent) *Entry {
	e := &Entry{
		EventType:      "interaction." + event.Outcome,
		Kind:           event.Kind,
		SearchTerm:     event.SearchTerm,
		OriginalPostID: event.OriginalPostID,
		ResponsePostID: event.ResponsePostID,
		AuthorHandle:   event.AuthorHandle,
		ResponseText:   event.ResponseText,
		ErrorMessage:   event.Error,
		CreatedAt:      event.Timestamp,
	}

	// Event ids are uuids; anything else gets a fresh one.
	if parsed, err := uuid.Parse(event.ID); err == nil {
		e.ID = parsed
	} else {
		e.ID = uuid.New()
	}
	return e
}
