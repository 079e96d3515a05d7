package memory

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
)

// ShortTermStore keeps a bounded, expiring history of interactions per
// account in Redis lists.
type ShortTermStore struct {
	client *redis.Client
}

// NewShortTermStore creates a new short-term memory store.
func NewShortTermStore(client *redis.Client) *ShortTermStore {
	return &ShortTermStore{client: client}
}

func userKey(handle string) string {
	return "interactions:" + strings.ToLower(strings.TrimPrefix(handle, "@"))
}

// GetRecent returns the last `limit` interactions with handle, oldest first.
func (s *ShortTermStore) GetRecent(ctx context.Context, handle string, limit int) ([]InteractionEntry, error) {
	key := userKey(handle)

	// LRANGE key -limit -1 returns the last `limit` elements
	vals, err := s.client.LRange(ctx, key, int64(-limit), -1).Result()
	if err != nil {
		return nil, fmt.Errorf("lrange %s: %w", key, err)
	}

	entries := make([]InteractionEntry, 0, len(vals))
	for _, v := range vals {
		var entry InteractionEntry
		if err := json.Unmarshal([]byte(v), &entry); err != nil {
			continue // skip malformed entries
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Append adds an interaction to the list, trims it to maxEntries and refreshes the TTL.
func (s *ShortTermStore) Append(ctx context.Context, handle string, entry InteractionEntry, maxEntries int, ttlSec int) error {
	key := userKey(handle)

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("marshaling entry: %w", err)
	}

	pipe := s.client.Pipeline()
	pipe.RPush(ctx, key, string(data))
	pipe.LTrim(ctx, key, int64(-maxEntries), -1)
	pipe.Expire(ctx, key, time.Duration(ttlSec)*time.Second)
	_, err = pipe.Exec(ctx)
	if err != nil {
		return fmt.Errorf("pipeline exec for %s: %w", key, err)
	}
	return nil
}

// Clear deletes the interaction history for handle.
func (s *ShortTermStore) Clear(ctx context.Context, handle string) error {
	return s.client.Del(ctx, userKey(handle)).Err()
}
