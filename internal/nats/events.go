package nats

import (
	"time"
)

// FetchTimeout is the default timeout for batch fetching messages from consumers.
const FetchTimeout = 2 * time.Second

// Stream names.
const (
	StreamEvents = "MENTIONBOT_EVENTS"
)

// Subject constants.
const (
	SubjectEventsPrefix      = "mentionbot.events"
	SubjectInteractionPosted = "mentionbot.events.interaction.posted"
	SubjectInteractionFailed = "mentionbot.events.interaction.failed"
)

// Interaction outcomes.
const (
	OutcomePosted = "posted"
	OutcomeFailed = "failed"
)

// InteractionEvent is published whenever the bot posts, or fails to post,
// a reply or an outreach post.
type InteractionEvent struct {
	ID             string    `json:"id"`
	Kind           string    `json:"kind"` // mentions, reply_guy, followers
	Outcome        string    `json:"outcome"`
	SearchTerm     string    `json:"search_term,omitempty"`
	OriginalPostID int64     `json:"original_post_id,omitempty"`
	ResponsePostID int64     `json:"response_post_id,omitempty"`
	AuthorHandle   string    `json:"author_handle"`
	ResponseText   string    `json:"response_text,omitempty"`
	Error          string    `json:"error,omitempty"`
	Timestamp      time.Time `json:"timestamp"`
}
