package platform

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// ErrNotFound is returned by Tweet when the post does not exist or is not visible.
var ErrNotFound = errors.New("post not found")

type graphQLError struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
}

type createTweetResponse struct {
	Data struct {
		CreateTweet struct {
			TweetResults struct {
				Result *tweetResult `json:"result"`
			} `json:"tweet_results"`
		} `json:"create_tweet"`
	} `json:"data"`
	Errors []graphQLError `json:"errors"`
}

// Post publishes text, as a reply when inReplyTo is non-zero, and returns the
// id of the new post. A zero id with a nil error means the platform accepted
// the post without echoing it back.
func (c *Client) Post(ctx context.Context, text string, inReplyTo int64) (int64, error) {
	variables := map[string]any{
		"tweet_text":   text,
		"dark_request": false,
		"media": map[string]any{
			"media_entities":     []any{},
			"possibly_sensitive": false,
		},
		"semantic_annotation_ids": []any{},
	}
	if inReplyTo != 0 {
		variables["reply"] = map[string]any{
			"in_reply_to_tweet_id":   formatID(inReplyTo),
			"exclude_reply_user_ids": []any{},
		}
	}

	payload := map[string]any{
		"variables": variables,
		"features":  defaultFeatures(),
		"queryId":   strings.SplitN(opCreateTweet, "/", 2)[0],
	}

	body, err := c.mutate(ctx, opCreateTweet, payload)
	if err != nil {
		if inReplyTo == 0 {
			return 0, fmt.Errorf("posting tweet: %w", err)
		}
		return 0, fmt.Errorf("posting reply to %d: %w", inReplyTo, err)
	}

	var resp createTweetResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return 0, fmt.Errorf("decoding create response: %w", err)
	}

	if res := resp.Data.CreateTweet.TweetResults.Result; res != nil {
		if res.Tweet != nil {
			res = res.Tweet
		}
		if res.RestID != "" {
			return ParseID(res.RestID)
		}
	}

	if len(resp.Errors) > 0 {
		msgs := make([]string, 0, len(resp.Errors))
		for _, e := range resp.Errors {
			msgs = append(msgs, e.Message)
		}
		return 0, fmt.Errorf("%s: %s", opCreateTweet, strings.Join(msgs, "; "))
	}

	slog.Warn("platform: create response carried no post id", "in_reply_to", inReplyTo)
	return 0, nil
}

type tweetDetailResponse struct {
	Data struct {
		ThreadedConversation struct {
			Instructions []timelineInstruction `json:"instructions"`
		} `json:"threaded_conversation_with_injections_v2"`
	} `json:"data"`
}

// Tweet fetches a single post by id.
func (c *Client) Tweet(ctx context.Context, id int64) (Post, error) {
	params, err := graphQLParams(map[string]any{
		"focalTweetId":                           formatID(id),
		"with_rux_injections":                    false,
		"includePromotedContent":                 false,
		"withCommunity":                          true,
		"withQuickPromoteEligibilityTweetFields": false,
		"withBirdwatchNotes":                     true,
		"withVoice":                              true,
		"withV2Timeline":                         true,
	}, true)
	if err != nil {
		return Post{}, fmt.Errorf("tweet %d: %w", id, err)
	}

	body, err := c.query(ctx, opTweetDetail, params)
	if err != nil {
		return Post{}, fmt.Errorf("tweet %d: %w", id, err)
	}

	var resp tweetDetailResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return Post{}, fmt.Errorf("decoding tweet detail: %w", err)
	}

	for _, p := range postsFromTimeline(timeline{Instructions: resp.Data.ThreadedConversation.Instructions}) {
		if p.ID == id {
			return p, nil
		}
	}
	return Post{}, ErrNotFound
}
