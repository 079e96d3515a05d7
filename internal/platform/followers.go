package platform

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
)

const followersPageSize = 100

type userByScreenNameResponse struct {
	Data struct {
		User struct {
			Result *userResult `json:"result"`
		} `json:"user"`
	} `json:"data"`
}

type followersResponse struct {
	Data struct {
		User struct {
			Result struct {
				Timeline struct {
					Timeline timeline `json:"timeline"`
				} `json:"timeline"`
			} `json:"result"`
		} `json:"user"`
	} `json:"data"`
}

// Followers returns the first page of accounts following handle.
func (c *Client) Followers(ctx context.Context, handle string) ([]Follower, error) {
	userID, err := c.userID(ctx, handle)
	if err != nil {
		return nil, err
	}

	params, err := graphQLParams(map[string]any{
		"userId":                 userID,
		"count":                  followersPageSize,
		"includePromotedContent": false,
	}, false)
	if err != nil {
		return nil, fmt.Errorf("followers of %s: %w", handle, err)
	}

	body, err := c.query(ctx, opFollowers, params)
	if err != nil {
		return nil, fmt.Errorf("followers of %s: %w", handle, err)
	}
	return parseFollowers(body)
}

func (c *Client) userID(ctx context.Context, handle string) (string, error) {
	params, err := graphQLParams(map[string]any{
		"screen_name":              strings.TrimPrefix(handle, "@"),
		"withSafetyModeUserFields": true,
	}, false)
	if err != nil {
		return "", fmt.Errorf("user %s: %w", handle, err)
	}

	body, err := c.query(ctx, opUserByScreenName, params)
	if err != nil {
		return "", fmt.Errorf("user %s: %w", handle, err)
	}

	var resp userByScreenNameResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return "", fmt.Errorf("decoding user %s: %w", handle, err)
	}
	if resp.Data.User.Result == nil || resp.Data.User.Result.RestID == "" {
		return "", fmt.Errorf("user %s: %w", handle, ErrNotFound)
	}
	return resp.Data.User.Result.RestID, nil
}

func parseFollowers(body []byte) ([]Follower, error) {
	var resp followersResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("decoding followers: %w", err)
	}

	var followers []Follower
	for _, inst := range resp.Data.User.Result.Timeline.Timeline.Instructions {
		if inst.Type != "TimelineAddEntries" {
			continue
		}
		for _, entry := range inst.Entries {
			if !strings.HasPrefix(entry.EntryID, "user-") {
				continue
			}
			u := entry.Content.ItemContent.UserResults.Result
			if u == nil || u.Legacy.ScreenName == "" {
				continue
			}
			followers = append(followers, Follower{
				ID:          u.RestID,
				Handle:      u.Legacy.ScreenName,
				Name:        u.Legacy.Name,
				Description: u.Legacy.Description,
			})
		}
	}
	return followers, nil
}
