package audit

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Entry matches the interaction_audit table schema.
type Entry struct {
	ID             uuid.UUID       `json:"id"`
	EventType      string          `json:"event_type"`
	Kind           string          `json:"kind"`
	SearchTerm     string          `json:"search_term,omitempty"`
	OriginalPostID int64           `json:"original_post_id,omitempty"`
	ResponsePostID int64           `json:"response_post_id,omitempty"`
	AuthorHandle   string          `json:"author_handle,omitempty"`
	ResponseText   string          `json:"response_text,omitempty"`
	ErrorMessage   string          `json:"error_message,omitempty"`
	Metadata       json.RawMessage `json:"metadata,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
}

// ListParams holds pagination and filtering parameters for audit queries.
type ListParams struct {
	EventType    string
	Kind         string
	AuthorHandle string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// DefaultListParams returns sensible defaults.
func DefaultListParams() ListParams {
	return ListParams{
		Page:     1,
		PageSize: 20,
	}
}
