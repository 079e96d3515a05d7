package scheduler

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/aiox-platform/mentionbot/internal/config"
	"github.com/aiox-platform/mentionbot/internal/interaction"
)

// Cycle names accepted by Trigger.
const (
	CycleMentions  = "mentions"
	CycleReplyGuy  = "reply-guy"
	CycleFollowers = "followers"
)

var (
	ErrUnknownCycle = errors.New("unknown cycle")
	ErrCyclePending = errors.New("cycle already pending")
)

// Runner executes interaction cycles.
type Runner interface {
	MonitorMentions(ctx context.Context, additionalContext string) []interaction.Report
	ReplyGuy(ctx context.Context, additionalContext string) interaction.Report
	TweetToFollowers(ctx context.Context, additionalContext string) error
}

// Config holds cycle intervals. A zero interval disables the periodic run;
// the cycle can still be triggered manually.
type Config struct {
	PollInterval      time.Duration
	ReplyGuyInterval  time.Duration
	FollowersInterval time.Duration
	AdditionalContext string
}

// ConfigFrom builds a scheduler Config from engine settings.
func ConfigFrom(c config.EngineConfig) Config {
	return Config{
		PollInterval:      c.PollInterval,
		ReplyGuyInterval:  c.ReplyGuyInterval,
		FollowersInterval: c.FollowersInterval,
		AdditionalContext: c.AdditionalContext,
	}
}

// Scheduler runs cycles on their intervals and on demand, one at a time.
type Scheduler struct {
	runner   Runner
	cfg      Config
	triggers map[string]chan struct{}
}

// New creates a Scheduler.
func New(runner Runner, cfg Config) *Scheduler {
	return &Scheduler{
		runner: runner,
		cfg:    cfg,
		triggers: map[string]chan struct{}{
			CycleMentions:  make(chan struct{}, 1),
			CycleReplyGuy:  make(chan struct{}, 1),
			CycleFollowers: make(chan struct{}, 1),
		},
	}
}

// Trigger queues a manual run of cycle. At most one manual run per cycle
// can be pending.
func (s *Scheduler) Trigger(cycle string) error {
	ch, ok := s.triggers[cycle]
	if !ok {
		return ErrUnknownCycle
	}
	select {
	case ch <- struct{}{}:
		slog.Info("scheduler: manual trigger queued", "cycle", cycle)
		return nil
	default:
		return ErrCyclePending
	}
}

// Run blocks until ctx is cancelled. Mention monitoring runs once at start.
func (s *Scheduler) Run(ctx context.Context) {
	poll, stopPoll := ticker(s.cfg.PollInterval)
	defer stopPoll()
	replyGuy, stopReplyGuy := ticker(s.cfg.ReplyGuyInterval)
	defer stopReplyGuy()
	followers, stopFollowers := ticker(s.cfg.FollowersInterval)
	defer stopFollowers()

	slog.Info("scheduler started",
		"poll_interval", s.cfg.PollInterval,
		"replyguy_interval", s.cfg.ReplyGuyInterval,
		"followers_interval", s.cfg.FollowersInterval,
	)

	s.run(ctx, CycleMentions)
	for {
		select {
		case <-ctx.Done():
			slog.Info("scheduler stopped")
			return
		case <-poll:
			s.run(ctx, CycleMentions)
		case <-replyGuy:
			s.run(ctx, CycleReplyGuy)
		case <-followers:
			s.run(ctx, CycleFollowers)
		case <-s.triggers[CycleMentions]:
			s.run(ctx, CycleMentions)
		case <-s.triggers[CycleReplyGuy]:
			s.run(ctx, CycleReplyGuy)
		case <-s.triggers[CycleFollowers]:
			s.run(ctx, CycleFollowers)
		}
	}
}

func (s *Scheduler) run(ctx context.Context, cycle string) {
	if ctx.Err() != nil {
		return
	}
	defer func() {
		if r := recover(); r != nil {
			slog.Error("scheduler: cycle panicked", "cycle", cycle, "panic", r)
		}
	}()

	extra := s.cfg.AdditionalContext
	switch cycle {
	case CycleMentions:
		replied := 0
		for _, r := range s.runner.MonitorMentions(ctx, extra) {
			replied += r.Replied
		}
		slog.Debug("scheduler: mentions cycle done", "replied", replied)
	case CycleReplyGuy:
		s.runner.ReplyGuy(ctx, extra)
	case CycleFollowers:
		if err := s.runner.TweetToFollowers(ctx, extra); err != nil {
			slog.Warn("scheduler: follower outreach failed", "error", err)
		}
	}
}

// ticker returns a channel firing every d, or a nil channel when d is not positive.
func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
