package platform

import (
	"fmt"
	"strconv"
	"time"
)

// CreatedAtLayout is the timestamp format used by the platform's legacy objects.
const CreatedAtLayout = "Mon Jan 02 15:04:05 -0700 2006"

// Post is a normalized post returned by search or lookup.
type Post struct {
	ID                int64     `json:"id"`
	Text              string    `json:"text"`
	AuthorHandle      string    `json:"author_handle"`
	AuthorName        string    `json:"author_name"`
	AuthorID          string    `json:"author_id"`
	CreatedAt         time.Time `json:"created_at"`
	ConversationID    string    `json:"conversation_id"`
	InReplyToStatusID string    `json:"in_reply_to_status_id,omitempty"`
	InReplyToUserID   string    `json:"in_reply_to_user_id,omitempty"`
}

// Follower is an account following the bot.
type Follower struct {
	ID          string `json:"id"`
	Handle      string `json:"handle"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

// StatusError is returned when the platform answers with a non-2xx status.
type StatusError struct {
	Op         string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%s: status %d - %s", e.Op, e.StatusCode, e.Body)
}

// ParseCreatedAt parses a platform timestamp into an absolute instant.
func ParseCreatedAt(s string) (time.Time, error) {
	t, err := time.Parse(CreatedAtLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parsing created_at %q: %w", s, err)
	}
	return t, nil
}

// ParseID parses a decimal post identifier.
func ParseID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("parsing post id %q: %w", s, err)
	}
	return id, nil
}

func formatID(id int64) string {
	return strconv.FormatInt(id, 10)
}
