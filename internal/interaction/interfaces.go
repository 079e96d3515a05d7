package interaction

import (
	"context"

	"github.com/aiox-platform/mentionbot/internal/memory"
	inats "github.com/aiox-platform/mentionbot/internal/nats"
	"github.com/aiox-platform/mentionbot/internal/platform"
)

// Platform is the subset of the platform client the engine needs.
type Platform interface {
	Identity() string
	Search(ctx context.Context, query string, limit int) ([]platform.Post, error)
	Post(ctx context.Context, text string, inReplyTo int64) (int64, error)
	Followers(ctx context.Context, handle string) ([]platform.Follower, error)
}

// ResponseStore records which posts have been answered.
type ResponseStore interface {
	Exists(ctx context.Context, postID int64) (bool, error)
	Put(ctx context.Context, rec memory.ResponseRecord) error
}

// ContextFetcher returns free-text knowledge related to a topic.
type ContextFetcher interface {
	FetchContext(ctx context.Context, topic string) (string, error)
}

// UserContextProvider returns what is known about an account.
type UserContextProvider interface {
	UserContext(ctx context.Context, handle string) (string, error)
}

// UserContextUpdater stores a summary of an interaction with an account.
type UserContextUpdater interface {
	UpdateUserContext(ctx context.Context, handle, interaction, additionalContext string) error
}

// ResponseGenerator produces post text from a prompt.
type ResponseGenerator interface {
	Generate(ctx context.Context, prompt, additionalContext string) (string, error)
}

// EventPublisher announces interaction outcomes.
type EventPublisher interface {
	PublishInteraction(ctx context.Context, event inats.InteractionEvent) error
}

// PostBudget caps posts across cycles. Allow is consulted before generating
// and Record after a successful post.
type PostBudget interface {
	Allow(ctx context.Context) (bool, error)
	Record(ctx context.Context) error
}

// RandSource picks uniformly in [0, n).
type RandSource interface {
	Intn(n int) int
}

// NoContext satisfies ContextFetcher, UserContextProvider and
// UserContextUpdater without storing anything.
type NoContext struct{}

func (NoContext) FetchContext(context.Context, string) (string, error) { return "", nil }

func (NoContext) UserContext(context.Context, string) (string, error) { return "", nil }

func (NoContext) UpdateUserContext(context.Context, string, string, string) error { return nil }

// NoEvents discards interaction events.
type NoEvents struct{}

func (NoEvents) PublishInteraction(context.Context, inats.InteractionEvent) error { return nil }

// StaticResponder answers every prompt with the same text.
type StaticResponder struct {
	Text string
}

func (s StaticResponder) Generate(context.Context, string, string) (string, error) {
	return s.Text, nil
}

type unlimitedBudget struct{}

func (unlimitedBudget) Allow(context.Context) (bool, error) { return true, nil }

func (unlimitedBudget) Record(context.Context) error { return nil }
