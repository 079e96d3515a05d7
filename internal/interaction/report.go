package interaction

// Kind names a cycle type.
type Kind string

const (
	KindMentions  Kind = "mentions"
	KindReplyGuy  Kind = "reply_guy"
	KindFollowers Kind = "followers"
)

// SkipReason says why a candidate was not answered.
type SkipReason string

const (
	SkipBelowCursor      SkipReason = "below_cursor"
	SkipBeforeSession    SkipReason = "before_session"
	SkipOwnPost          SkipReason = "own_post"
	SkipAlreadyResponded SkipReason = "already_responded"
)

// Lookup is the outcome of a response-record query.
type Lookup int

const (
	LookupNotFound Lookup = iota
	LookupFound
	LookupError
)

func (l Lookup) String() string {
	switch l {
	case LookupFound:
		return "found"
	case LookupError:
		return "error"
	default:
		return "not_found"
	}
}

// Report summarises one cycle.
type Report struct {
	Kind            Kind
	Query           string
	Fetched         int
	Eligible        int
	Replied         int
	RepliedIDs      []int64
	Unanswered      []int64 // eligible but not replied to, ascending
	Skipped         map[SkipReason]int
	BudgetExhausted bool
	Err             error
}

func newReport(kind Kind, query string) Report {
	return Report{Kind: kind, Query: query, Skipped: map[SkipReason]int{}}
}
