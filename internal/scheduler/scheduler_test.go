package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/mentionbot/internal/interaction"
)

type fakeRunner struct {
	mu        sync.Mutex
	calls     []string
	extras    []string
	followErr error
	done      chan string
}

func newFakeRunner() *fakeRunner {
	return &fakeRunner{done: make(chan string, 16)}
}

func (f *fakeRunner) record(cycle, extra string) {
	f.mu.Lock()
	f.calls = append(f.calls, cycle)
	f.extras = append(f.extras, extra)
	f.mu.Unlock()
	f.done <- cycle
}

func (f *fakeRunner) MonitorMentions(_ context.Context, extra string) []interaction.Report {
	f.record(CycleMentions, extra)
	return []interaction.Report{{Replied: 1}}
}

func (f *fakeRunner) ReplyGuy(_ context.Context, extra string) interaction.Report {
	f.record(CycleReplyGuy, extra)
	return interaction.Report{}
}

func (f *fakeRunner) TweetToFollowers(_ context.Context, extra string) error {
	f.record(CycleFollowers, extra)
	return f.followErr
}

func waitFor(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case c := <-ch:
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for cycle")
		return ""
	}
}

func TestTrigger(t *testing.T) {
	s := New(newFakeRunner(), Config{})

	assert.ErrorIs(t, s.Trigger("bogus"), ErrUnknownCycle)
	require.NoError(t, s.Trigger(CycleReplyGuy))
	assert.ErrorIs(t, s.Trigger(CycleReplyGuy), ErrCyclePending)
	assert.NoError(t, s.Trigger(CycleFollowers))
}

func TestRun_StartsWithMentionsAndHonoursTriggers(t *testing.T) {
	runner := newFakeRunner()
	runner.followErr = errors.New("no followers")
	s := New(runner, Config{AdditionalContext: "be kind"})

	ctx, cancel := context.WithCancel(context.Background())
	stopped := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(stopped)
	}()

	assert.Equal(t, CycleMentions, waitFor(t, runner.done))

	require.NoError(t, s.Trigger(CycleFollowers))
	assert.Equal(t, CycleFollowers, waitFor(t, runner.done))

	require.NoError(t, s.Trigger(CycleReplyGuy))
	assert.Equal(t, CycleReplyGuy, waitFor(t, runner.done))

	cancel()
	select {
	case <-stopped:
	case <-time.After(2 * time.Second):
		t.Fatal("scheduler did not stop")
	}

	runner.mu.Lock()
	defer runner.mu.Unlock()
	for _, e := range runner.extras {
		assert.Equal(t, "be kind", e)
	}
}

func TestRun_PeriodicPoll(t *testing.T) {
	runner := newFakeRunner()
	s := New(runner, Config{PollInterval: 10 * time.Millisecond})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	for i := 0; i < 3; i++ {
		assert.Equal(t, CycleMentions, waitFor(t, runner.done))
	}
}

func TestTicker_Disabled(t *testing.T) {
	ch, stop := ticker(0)
	defer stop()
	assert.Nil(t, ch)
}
