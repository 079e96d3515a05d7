package quota

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	budgetKey      = "quota:posts:hour"
	windowDuration = time.Hour
	keyTTL         = 90 * time.Minute
)

// PostBudget implements a Redis sorted-set sliding window capping posts per hour.
type PostBudget struct {
	rdb     redis.Cmdable
	maxHour int
	now     func() time.Time
}

// NewPostBudget creates a budget allowing maxPerHour posts in any rolling
// hour. A non-positive limit allows everything.
func NewPostBudget(rdb redis.Cmdable, maxPerHour int) *PostBudget {
	return &PostBudget{rdb: rdb, maxHour: maxPerHour, now: time.Now}
}

// Allow reports whether another post fits in the current window.
func (b *PostBudget) Allow(ctx context.Context) (bool, error) {
	if b.maxHour <= 0 {
		return true, nil
	}
	count, err := b.Used(ctx)
	if err != nil {
		return false, err
	}
	return count < b.maxHour, nil
}

// Record adds one post to the window.
func (b *PostBudget) Record(ctx context.Context) error {
	if b.maxHour <= 0 {
		return nil
	}
	now := b.now()

	pipe := b.rdb.Pipeline()
	pipe.ZAdd(ctx, budgetKey, redis.Z{Score: float64(now.UnixMilli()), Member: strconv.FormatInt(now.UnixNano(), 10)})
	pipe.Expire(ctx, budgetKey, keyTTL)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("post budget pipeline (add): %w", err)
	}
	return nil
}

// Used returns the number of posts in the current window, dropping older entries.
func (b *PostBudget) Used(ctx context.Context) (int, error) {
	windowStart := b.now().Add(-windowDuration).UnixMilli()

	pipe := b.rdb.Pipeline()
	pipe.ZRemRangeByScore(ctx, budgetKey, "-inf", strconv.FormatInt(windowStart, 10))
	countCmd := pipe.ZCard(ctx, budgetKey)
	if _, err := pipe.Exec(ctx); err != nil {
		return 0, fmt.Errorf("post budget pipeline (clean+count): %w", err)
	}
	return int(countCmd.Val()), nil
}

// Limit returns the configured hourly cap.
func (b *PostBudget) Limit() int { return b.maxHour }
