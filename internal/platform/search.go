package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
)

// maxSearchCount is the largest page the SearchTimeline endpoint accepts.
const maxSearchCount = 40

type userLegacy struct {
	ScreenName  string `json:"screen_name"`
	Name        string `json:"name"`
	Description string `json:"description"`
}

type userResult struct {
	RestID string     `json:"rest_id"`
	Legacy userLegacy `json:"legacy"`
}

type tweetLegacy struct {
	IDStr                string `json:"id_str"`
	FullText             string `json:"full_text"`
	CreatedAt            string `json:"created_at"`
	UserIDStr            string `json:"user_id_str"`
	ConversationIDStr    string `json:"conversation_id_str"`
	InReplyToStatusIDStr string `json:"in_reply_to_status_id_str"`
	InReplyToUserIDStr   string `json:"in_reply_to_user_id_str"`
}

type tweetResult struct {
	Typename string      `json:"__typename"`
	RestID   string      `json:"rest_id"`
	Legacy   tweetLegacy `json:"legacy"`
	Core     struct {
		UserResults struct {
			Result userResult `json:"result"`
		} `json:"user_results"`
	} `json:"core"`
	// Set when __typename is TweetWithVisibilityResults.
	Tweet *tweetResult `json:"tweet"`
}

type timelineEntry struct {
	EntryID string `json:"entryId"`
	Content struct {
		ItemContent struct {
			TweetResults struct {
				Result *tweetResult `json:"result"`
			} `json:"tweet_results"`
			UserResults struct {
				Result *userResult `json:"result"`
			} `json:"user_results"`
		} `json:"itemContent"`
	} `json:"content"`
}

type timelineInstruction struct {
	Type    string          `json:"type"`
	Entries []timelineEntry `json:"entries"`
}

type timeline struct {
	Instructions []timelineInstruction `json:"instructions"`
}

type searchResponse struct {
	Data struct {
		SearchByRawQuery struct {
			SearchTimeline struct {
				Timeline timeline `json:"timeline"`
			} `json:"search_timeline"`
		} `json:"search_by_raw_query"`
	} `json:"data"`
}

// Search returns up to limit of the most recent posts matching query.
func (c *Client) Search(ctx context.Context, query string, limit int) ([]Post, error) {
	if limit <= 0 {
		return nil, nil
	}
	count := min(limit, maxSearchCount)

	params, err := graphQLParams(map[string]any{
		"rawQuery":                 query,
		"count":                    count,
		"querySource":              "typed_query",
		"product":                  "Latest",
		"includePromotedContent":   false,
		"withDownvotePerspective":  false,
		"withReactionsMetadata":    false,
		"withReactionsPerspective": false,
	}, true)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	body, err := c.query(ctx, opSearchTimeline, params)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}

	posts, err := parseSearch(body)
	if err != nil {
		return nil, fmt.Errorf("search %q: %w", query, err)
	}
	if len(posts) > limit {
		posts = posts[:limit]
	}
	return posts, nil
}

func parseSearch(body []byte) ([]Post, error) {
	var resp searchResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding search response: %w", err)
	}
	return postsFromTimeline(resp.Data.SearchByRawQuery.SearchTimeline.Timeline), nil
}

func postsFromTimeline(tl timeline) []Post {
	var posts []Post
	for _, inst := range tl.Instructions {
		if inst.Type != "TimelineAddEntries" {
			continue
		}
		for _, entry := range inst.Entries {
			if !strings.HasPrefix(entry.EntryID, "tweet-") {
				continue
			}
			result := entry.Content.ItemContent.TweetResults.Result
			post, ok := postFromResult(result)
			if !ok {
				slog.Debug("platform: skipping unparseable timeline entry", "entry_id", entry.EntryID)
				continue
			}
			posts = append(posts, post)
		}
	}
	return posts
}

func postFromResult(r *tweetResult) (Post, bool) {
	if r == nil {
		return Post{}, false
	}
	if r.Tweet != nil {
		r = r.Tweet
	}

	idStr := r.Legacy.IDStr
	if idStr == "" {
		idStr = r.RestID
	}
	id, err := ParseID(idStr)
	if err != nil {
		return Post{}, false
	}
	createdAt, err := ParseCreatedAt(r.Legacy.CreatedAt)
	if err != nil {
		return Post{}, false
	}

	user := r.Core.UserResults.Result
	authorID := r.Legacy.UserIDStr
	if authorID == "" {
		authorID = user.RestID
	}

	return Post{
		ID:                id,
		Text:              r.Legacy.FullText,
		AuthorHandle:      user.Legacy.ScreenName,
		AuthorName:        user.Legacy.Name,
		AuthorID:          authorID,
		CreatedAt:         createdAt,
		ConversationID:    r.Legacy.ConversationIDStr,
		InReplyToStatusID: r.Legacy.InReplyToStatusIDStr,
		InReplyToUserID:   r.Legacy.InReplyToUserIDStr,
	}, true
}
