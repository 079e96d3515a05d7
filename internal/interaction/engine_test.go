package interaction

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aiox-platform/mentionbot/internal/memory"
	"github.com/aiox-platform/mentionbot/internal/metrics"
	inats "github.com/aiox-platform/mentionbot/internal/nats"
	"github.com/aiox-platform/mentionbot/internal/platform"
)

var testNow = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

type postCall struct {
	Text      string
	InReplyTo int64
}

type fakePlatform struct {
	mu        sync.Mutex
	identity  string
	posts     []platform.Post
	byQuery   map[string][]platform.Post
	searchErr error
	postErr   error
	followers []platform.Follower
	nextID    int64

	searches []string
	posted   []postCall
	calls    int
}

func (f *fakePlatform) Identity() string { return f.identity }

func (f *fakePlatform) Search(_ context.Context, query string, limit int) ([]platform.Post, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.searches = append(f.searches, query)
	if f.searchErr != nil {
		return nil, f.searchErr
	}
	posts := f.posts
	if byQuery, ok := f.byQuery[query]; ok {
		posts = byQuery
	}
	if len(posts) > limit {
		return posts[:limit], nil
	}
	return posts, nil
}

func (f *fakePlatform) Post(_ context.Context, text string, inReplyTo int64) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.postErr != nil {
		return 0, f.postErr
	}
	f.nextID++
	f.posted = append(f.posted, postCall{Text: text, InReplyTo: inReplyTo})
	return 1000 + f.nextID, nil
}

func (f *fakePlatform) Followers(_ context.Context, _ string) ([]platform.Follower, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	return f.followers, nil
}

func (f *fakePlatform) repliedTo() []int64 {
	var ids []int64
	for _, p := range f.posted {
		ids = append(ids, p.InReplyTo)
	}
	return ids
}

type fakeStore struct {
	mu        sync.Mutex
	records   map[int64]memory.ResponseRecord
	existsErr map[int64]error
	putErr    error
}

func newFakeStore() *fakeStore {
	return &fakeStore{records: map[int64]memory.ResponseRecord{}, existsErr: map[int64]error{}}
}

func (s *fakeStore) Exists(_ context.Context, postID int64) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.existsErr[postID]; err != nil {
		return false, err
	}
	_, ok := s.records[postID]
	return ok, nil
}

func (s *fakeStore) Put(_ context.Context, rec memory.ResponseRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.putErr != nil {
		return s.putErr
	}
	if _, ok := s.records[rec.OriginalPostID]; !ok {
		s.records[rec.OriginalPostID] = rec
	}
	return nil
}

type fakeGenerator struct {
	text    string
	err     error
	prompts []string
	extras  []string
}

func (g *fakeGenerator) Generate(_ context.Context, prompt, extra string) (string, error) {
	g.prompts = append(g.prompts, prompt)
	g.extras = append(g.extras, extra)
	if g.err != nil {
		return "", g.err
	}
	return g.text, nil
}

type fakeUsers struct {
	context   string
	updates   []string
	updateErr error
}

func (u *fakeUsers) UserContext(_ context.Context, handle string) (string, error) {
	return u.context, nil
}

func (u *fakeUsers) UpdateUserContext(_ context.Context, handle, interaction, _ string) error {
	u.updates = append(u.updates, handle+"|"+interaction)
	return u.updateErr
}

type fakeEvents struct {
	events []inats.InteractionEvent
}

func (f *fakeEvents) PublishInteraction(_ context.Context, e inats.InteractionEvent) error {
	f.events = append(f.events, e)
	return nil
}

type fixedRand struct{ n int }

func (r fixedRand) Intn(int) int { return r.n }

type countingBudget struct {
	max  int
	used int
	err  error
}

func (b *countingBudget) Allow(context.Context) (bool, error) {
	if b.err != nil {
		return false, b.err
	}
	return b.used < b.max, nil
}

func (b *countingBudget) Record(context.Context) error {
	b.used++
	return nil
}

func post(id int64, author string, age time.Duration) platform.Post {
	return platform.Post{
		ID:           id,
		Text:         fmt.Sprintf("post %d", id),
		AuthorHandle: author,
		CreatedAt:    testNow.Add(-age),
	}
}

func int64Ptr(v int64) *int64 { return &v }

type harness struct {
	platform *fakePlatform
	store    *fakeStore
	gen      *fakeGenerator
	cursor   *MemoryCursor
	metrics  *metrics.Metrics
}

func newHarness(posts ...platform.Post) *harness {
	return &harness{
		platform: &fakePlatform{identity: "ricebot", posts: posts},
		store:    newFakeStore(),
		gen:      &fakeGenerator{text: "hello there"},
		cursor:   &MemoryCursor{},
		metrics:  metrics.New(prometheus.NewRegistry()),
	}
}

func (h *harness) engine(cfg Config, opts ...Option) *Engine {
	if cfg.SessionLookback == 0 {
		cfg.SessionLookback = DefaultSessionLookback
	}
	opts = append([]Option{WithClock(func() time.Time { return testNow }), WithMetrics(h.metrics)}, opts...)
	return NewEngine(h.platform, h.store, h.gen, h.cursor, cfg, opts...)
}

func TestCheckMentions_RespectsCursorOrderAndLimit(t *testing.T) {
	h := newHarness(post(5, "alice", time.Hour), post(3, "bob", time.Hour), post(7, "carol", time.Hour))
	h.cursor.id = int64Ptr(3)
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "@ricebot", "", "", 2)

	assert.Equal(t, []int64{5, 7}, h.platform.repliedTo())
	assert.Equal(t, 2, report.Replied)
	assert.Equal(t, 1, report.Skipped[SkipBelowCursor])
	require.NotNil(t, e.lastChecked)
	assert.Equal(t, int64(7), *e.lastChecked)
	assert.Equal(t, int64(7), *h.cursor.id)
}

func TestCheckMentions_SkipsAlreadyResponded(t *testing.T) {
	h := newHarness(post(42, "alice", time.Hour))
	h.store.records[42] = memory.ResponseRecord{OriginalPostID: 42}
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "@ricebot", "", "", 3)

	assert.Empty(t, h.platform.posted)
	assert.Equal(t, 1, report.Skipped[SkipAlreadyResponded])
	assert.Zero(t, report.Replied)
}

func TestCheckMentions_LookupErrorFailsOpen(t *testing.T) {
	h := newHarness(post(9, "alice", time.Hour))
	h.store.existsErr[9] = errors.New("connection refused")
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "@ricebot", "", "", 3)

	assert.Equal(t, []int64{9}, h.platform.repliedTo())
	assert.Equal(t, 1, report.Replied)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.DedupLookupErrorsTotal))
}

func TestCheckMentions_SkipsOldAndOwnPosts(t *testing.T) {
	h := newHarness(
		post(10, "alice", 25*time.Hour),
		post(11, "RiceBot", time.Hour),
		post(12, "dave", time.Hour),
	)
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "@ricebot", "", "", 3)

	assert.Equal(t, []int64{12}, h.platform.repliedTo())
	assert.Equal(t, 1, report.Skipped[SkipBeforeSession])
	assert.Equal(t, 1, report.Skipped[SkipOwnPost])
	assert.Equal(t, 3, report.Fetched)
	assert.Equal(t, 1, report.Eligible)
}

func TestCheckMentions_ProcessesAscending(t *testing.T) {
	h := newHarness(post(30, "a", time.Hour), post(10, "b", time.Hour), post(20, "c", time.Hour))
	e := h.engine(Config{})

	e.CheckMentions(context.Background(), "q", "", "", 10)

	assert.Equal(t, []int64{10, 20, 30}, h.platform.repliedTo())
}

func TestCheckMentions_DefaultMaxReplies(t *testing.T) {
	var posts []platform.Post
	for i := int64(1); i <= 6; i++ {
		posts = append(posts, post(i, "someone", time.Hour))
	}
	h := newHarness(posts...)
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "q", "", "", 0)

	assert.Equal(t, DefaultMaxReplies, report.Replied)
	assert.Len(t, h.platform.posted, DefaultMaxReplies)
}

func TestCheckMentions_RecordWrittenOnlyWhenPosted(t *testing.T) {
	t.Run("post succeeds", func(t *testing.T) {
		h := newHarness(post(1, "alice", time.Hour))
		e := h.engine(Config{})

		e.CheckMentions(context.Background(), "q", "", "", 3)

		rec, ok := h.store.records[1]
		require.True(t, ok)
		assert.Equal(t, int64(1001), rec.ResponsePostID)
		assert.Equal(t, "hello there", rec.ResponseText)
		assert.Equal(t, "post 1", rec.OriginalText)
		assert.Equal(t, "q", rec.SearchTerm)
	})

	t.Run("post fails", func(t *testing.T) {
		h := newHarness(post(1, "alice", time.Hour), post(2, "bob", time.Hour))
		h.platform.postErr = &platform.StatusError{Op: "CreateTweet", StatusCode: 403, Body: "forbidden"}
		e := h.engine(Config{})

		report := e.CheckMentions(context.Background(), "q", "", "", 3)

		assert.Empty(t, h.store.records)
		assert.Error(t, report.Err)
		assert.Zero(t, report.Replied)
		assert.Equal(t, []int64{1, 2}, report.Unanswered)
		assert.Nil(t, e.lastChecked)
	})

	t.Run("generation fails", func(t *testing.T) {
		h := newHarness(post(1, "alice", time.Hour))
		h.gen.err = errors.New("model overloaded")
		e := h.engine(Config{})

		report := e.CheckMentions(context.Background(), "q", "", "", 3)

		assert.Empty(t, h.store.records)
		assert.Empty(t, h.platform.posted)
		assert.Error(t, report.Err)
	})

	t.Run("empty generation", func(t *testing.T) {
		h := newHarness(post(1, "alice", time.Hour))
		h.gen.text = "   "
		e := h.engine(Config{})

		report := e.CheckMentions(context.Background(), "q", "", "", 3)

		assert.ErrorIs(t, report.Err, ErrEmptyGeneration)
		assert.Empty(t, h.platform.posted)
	})
}

func TestCheckMentions_RepollIsIdempotent(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour), post(2, "bob", time.Hour))
	e := h.engine(Config{})
	ctx := context.Background()

	first := e.CheckMentions(ctx, "q", "", "", 3)
	second := e.CheckMentions(ctx, "q", "", "", 3)

	assert.Equal(t, 2, first.Replied)
	assert.Zero(t, second.Replied)
	assert.Len(t, h.platform.posted, 2)
}

func TestCheckMentions_IdempotentWithoutCursor(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour))
	ctx := context.Background()

	h.engine(Config{}).CheckMentions(ctx, "q", "", "", 3)

	// A fresh engine with a lost cursor still relies on the response store.
	h.cursor = &MemoryCursor{}
	report := h.engine(Config{}).CheckMentions(ctx, "q", "", "", 3)

	assert.Len(t, h.platform.posted, 1)
	assert.Equal(t, 1, report.Skipped[SkipAlreadyResponded])
}

func TestCheckMentions_SearchFailureYieldsEmptyBatch(t *testing.T) {
	h := newHarness()
	h.platform.searchErr = errors.New("timeout")
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "q", "", "", 3)

	assert.Error(t, report.Err)
	assert.Zero(t, report.Fetched)
	assert.Empty(t, h.platform.posted)
	assert.Equal(t, float64(1), testutil.ToFloat64(h.metrics.SearchFailuresTotal))
}

func TestCheckMentions_ContextAssembly(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour))
	users := &fakeUsers{context: "Previous interactions with @alice"}
	fetcher := fetcherFunc(func(topic string) (string, error) { return "rice grows in water", nil })
	e := h.engine(Config{}, WithContextFetcher(fetcher), WithUserContext(users), WithUserContextUpdater(users))

	e.CheckMentions(context.Background(), "q", "be nice", "rice farming", 3)

	require.Len(t, h.gen.prompts, 1)
	assert.Contains(t, h.gen.prompts[0], "@alice")
	assert.Contains(t, h.gen.prompts[0], "<searchContext>\nrice farming\n</searchContext>")
	assert.NotContains(t, h.gen.prompts[0], "rice grows in water")
	assert.Equal(t,
		"be nice\n\n<fetchedContext>\nrice grows in water\n</fetchedContext>\n\nPrevious interactions with @alice",
		h.gen.extras[0])

	require.Len(t, users.updates, 1)
	assert.Equal(t, "alice|You had the following interaction with alice\nalice tweeted : post 1\nYou responded with : hello there", users.updates[0])
}

func TestCheckMentions_UpdateFailureDoesNotBlockRecord(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour))
	users := &fakeUsers{updateErr: errors.New("redis down")}
	e := h.engine(Config{}, WithUserContextUpdater(users))

	report := e.CheckMentions(context.Background(), "q", "", "", 3)

	assert.NoError(t, report.Err)
	assert.Contains(t, h.store.records, int64(1))
}

func TestCheckMentions_StoreFailureKeepsReply(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour), post(2, "bob", time.Hour))
	h.store.putErr = errors.New("disk full")
	e := h.engine(Config{})

	report := e.CheckMentions(context.Background(), "q", "", "", 3)

	assert.NoError(t, report.Err)
	assert.Equal(t, 2, report.Replied)
}

func TestCheckMentions_PublishesEvents(t *testing.T) {
	h := newHarness(post(1, "alice", time.Hour))
	events := &fakeEvents{}
	e := h.engine(Config{}, WithEvents(events))

	e.CheckMentions(context.Background(), "q", "", "", 3)

	require.Len(t, events.events, 1)
	ev := events.events[0]
	assert.Equal(t, inats.OutcomePosted, ev.Outcome)
	assert.Equal(t, int64(1), ev.OriginalPostID)
	assert.Equal(t, int64(1001), ev.ResponsePostID)
	assert.Equal(t, string(KindMentions), ev.Kind)
	assert.NotEmpty(t, ev.ID)
	assert.Equal(t, testNow, ev.Timestamp)
}

func TestCheckMentions_BudgetStopsCycle(t *testing.T) {
	h := newHarness(post(1, "a", time.Hour), post(2, "b", time.Hour), post(3, "c", time.Hour))
	budget := &countingBudget{max: 1}
	e := h.engine(Config{}, WithBudget(budget))

	report := e.CheckMentions(context.Background(), "q", "", "", 3)

	assert.Equal(t, 1, report.Replied)
	assert.True(t, report.BudgetExhausted)
	assert.Equal(t, []int64{2, 3}, report.Unanswered)
	assert.Equal(t, int64(1), *h.cursor.id)
}

func TestCheckMentions_BudgetErrorFailsOpen(t *testing.T) {
	h := newHarness(post(1, "a", time.Hour))
	e := h.engine(Config{}, WithBudget(&countingBudget{err: errors.New("redis down")}))

	report := e.CheckMentions(context.Background(), "q", "", "", 3)

	assert.Equal(t, 1, report.Replied)
}

func TestCheckMentions_RecoversPanics(t *testing.T) {
	h := newHarness(post(1, "a", time.Hour))
	e := h.engine(Config{}, WithContextFetcher(fetcherFunc(func(string) (string, error) {
		panic("boom")
	})))

	var report Report
	assert.NotPanics(t, func() {
		report = e.CheckMentions(context.Background(), "q", "", "", 3)
	})
	assert.Error(t, report.Err)
}

func TestCursor_NeverDecreases(t *testing.T) {
	h := newHarness(post(4, "a", time.Hour))
	h.cursor.id = int64Ptr(2)
	e := h.engine(Config{})

	e.advanceCursor(Report{RepliedIDs: []int64{1}})
	assert.Equal(t, int64(2), *e.lastChecked)

	e.CheckMentions(context.Background(), "q", "", "", 3)
	assert.Equal(t, int64(4), *e.lastChecked)

	e.advanceCursor(Report{RepliedIDs: []int64{3}})
	assert.Equal(t, int64(4), *e.lastChecked)
	assert.Equal(t, int64(4), *h.cursor.id)
}

func TestCursorTarget(t *testing.T) {
	tests := []struct {
		name    string
		reports []Report
		want    int64
		ok      bool
	}{
		{"nothing replied", []Report{{Unanswered: []int64{5}}}, 0, false},
		{"highest replied", []Report{{RepliedIDs: []int64{3, 9}}, {RepliedIDs: []int64{7}}}, 9, true},
		{"held below unanswered", []Report{{RepliedIDs: []int64{100}}, {RepliedIDs: []int64{60}, Unanswered: []int64{80, 90}}}, 79, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := cursorTarget(tt.reports)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestEngine_SessionWindowFixedAtConstruction(t *testing.T) {
	h := newHarness()
	e := h.engine(Config{SessionLookback: 2 * time.Hour})
	assert.Equal(t, testNow.Add(-2*time.Hour), e.startTime)

	e = NewEngine(h.platform, h.store, h.gen, h.cursor, Config{}, WithClock(func() time.Time { return testNow }), WithMetrics(h.metrics))
	assert.Equal(t, testNow, e.startTime)

	e = h.engine(Config{SessionLookback: -1})
	assert.Equal(t, testNow.Add(-DefaultSessionLookback), e.startTime)
}

func TestMonitorMentions_RunsEveryTerm(t *testing.T) {
	h := newHarness(post(1, "a", time.Hour))
	e := h.engine(Config{SearchTerms: []string{"@ricebot", "rice"}})

	reports := e.MonitorMentions(context.Background(), "")

	require.Len(t, reports, 2)
	assert.Equal(t, []string{"@ricebot", "rice"}, h.platform.searches)
	assert.Equal(t, 1, reports[0].Replied)
	assert.Zero(t, reports[1].Replied)
	assert.NotContains(t, h.gen.prompts[0], "<searchContext>")
}

func TestMonitorMentions_CursorMovesOncePerPass(t *testing.T) {
	h := newHarness()
	h.platform.byQuery = map[string][]platform.Post{
		"@ricebot": {post(100, "alice", time.Hour)},
		"rice":     {post(90, "bob", time.Hour)},
	}
	e := h.engine(Config{SearchTerms: []string{"@ricebot", "rice"}})

	reports := e.MonitorMentions(context.Background(), "")

	require.Len(t, reports, 2)
	assert.Equal(t, []int64{100, 90}, h.platform.repliedTo())
	assert.Zero(t, reports[1].Skipped[SkipBelowCursor])
	assert.Equal(t, int64(100), *h.cursor.id)
}

func TestMonitorMentions_CursorStaysBelowLeftovers(t *testing.T) {
	h := newHarness()
	h.platform.byQuery = map[string][]platform.Post{
		"@ricebot": {post(100, "alice", time.Hour)},
		"rice":     {post(50, "bob", time.Hour), post(60, "carol", time.Hour), post(70, "dave", time.Hour)},
	}
	e := h.engine(Config{SearchTerms: []string{"@ricebot", "rice"}, MaxReplies: 1})

	e.MonitorMentions(context.Background(), "")
	assert.Equal(t, []int64{100, 50}, h.platform.repliedTo())
	assert.Equal(t, int64(59), *h.cursor.id)

	e.MonitorMentions(context.Background(), "")
	assert.Equal(t, []int64{100, 50, 60}, h.platform.repliedTo())
	assert.Equal(t, int64(60), *h.cursor.id)
}

func TestMonitorMentions_StopsOnCancel(t *testing.T) {
	h := newHarness()
	e := h.engine(Config{SearchTerms: []string{"a", "b"}})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	reports := e.MonitorMentions(ctx, "")

	assert.Empty(t, reports)
	assert.Zero(t, h.platform.calls)
}

func TestReplyGuy_NoTargetsMakesNoCalls(t *testing.T) {
	h := newHarness(post(1, "a", time.Hour))
	e := h.engine(Config{})

	report := e.ReplyGuy(context.Background(), "")

	assert.Zero(t, h.platform.calls)
	assert.NoError(t, report.Err)
	assert.Zero(t, report.Replied)
}

func TestReplyGuy_QueriesChosenTarget(t *testing.T) {
	h := newHarness(post(1, "elon", time.Hour))
	targets := []ReplyTarget{
		{SearchTerm: "alice", SearchContext: "alice context"},
		{SearchTerm: "@elon", SearchContext: "space stuff"},
	}
	e := h.engine(Config{ReplyTargets: targets}, WithRand(fixedRand{n: 1}))

	report := e.ReplyGuy(context.Background(), "")

	assert.Equal(t, []string{"from:elon"}, h.platform.searches)
	assert.Equal(t, KindReplyGuy, report.Kind)
	require.Len(t, h.gen.prompts, 1)
	assert.Contains(t, h.gen.prompts[0], "space stuff")
}

func TestReplyGuy_LeavesCursorAlone(t *testing.T) {
	h := newHarness(post(500, "elon", time.Hour))
	h.cursor.id = int64Ptr(10)
	e := h.engine(Config{ReplyTargets: []ReplyTarget{{SearchTerm: "elon"}}}, WithRand(fixedRand{n: 0}))

	report := e.ReplyGuy(context.Background(), "")

	assert.Equal(t, 1, report.Replied)
	assert.Equal(t, int64(10), *h.cursor.id)
	assert.Equal(t, int64(10), *e.lastChecked)
}

func TestTweetToFollowers(t *testing.T) {
	t.Run("posts top level to chosen follower", func(t *testing.T) {
		h := newHarness()
		h.platform.followers = []platform.Follower{
			{Handle: "alice", Description: "likes rice"},
			{Handle: "bob", Description: "likes noodles"},
		}
		users := &fakeUsers{}
		events := &fakeEvents{}
		e := h.engine(Config{}, WithRand(fixedRand{n: 1}), WithUserContextUpdater(users), WithEvents(events))

		err := e.TweetToFollowers(context.Background(), "")
		require.NoError(t, err)

		require.Len(t, h.platform.posted, 1)
		assert.Zero(t, h.platform.posted[0].InReplyTo)
		assert.Contains(t, h.gen.prompts[0], "@bob")
		assert.Contains(t, h.gen.prompts[0], "likes noodles")
		assert.Contains(t, h.gen.prompts[0], "<tweetStyle>")
		assert.True(t, strings.HasPrefix(h.gen.prompts[0], "Tweet to your follower"))
		require.Len(t, users.updates, 1)
		assert.Equal(t, "bob|You tweeted to bob : hello there\nProfile of bob : likes noodles\nThey follow you", users.updates[0])
		require.Len(t, events.events, 1)
		assert.Equal(t, string(KindFollowers), events.events[0].Kind)
		assert.Empty(t, h.store.records)
	})

	t.Run("no followers", func(t *testing.T) {
		h := newHarness()
		err := h.engine(Config{}).TweetToFollowers(context.Background(), "")
		assert.ErrorIs(t, err, ErrNoFollowers)
	})

	t.Run("post failure propagates", func(t *testing.T) {
		h := newHarness()
		h.platform.followers = []platform.Follower{{Handle: "alice"}}
		h.platform.postErr = errors.New("403")
		err := h.engine(Config{}).TweetToFollowers(context.Background(), "")
		assert.Error(t, err)
	})

	t.Run("budget exhausted", func(t *testing.T) {
		h := newHarness()
		h.platform.followers = []platform.Follower{{Handle: "alice"}}
		err := h.engine(Config{}, WithBudget(&countingBudget{max: 0})).TweetToFollowers(context.Background(), "")
		assert.ErrorIs(t, err, ErrBudgetExhausted)
		assert.Empty(t, h.platform.posted)
	})
}

func TestHasResponded(t *testing.T) {
	h := newHarness()
	h.store.records[1] = memory.ResponseRecord{OriginalPostID: 1}
	h.store.existsErr[3] = errors.New("db down")
	e := h.engine(Config{})
	ctx := context.Background()

	res, err := e.lookupResponse(ctx, 1)
	assert.NoError(t, err)
	assert.Equal(t, LookupFound, res)

	res, _ = e.lookupResponse(ctx, 2)
	assert.Equal(t, LookupNotFound, res)

	res, err = e.lookupResponse(ctx, 3)
	assert.Error(t, err)
	assert.Equal(t, LookupError, res)

	assert.True(t, e.HasResponded(ctx, 1))
	assert.False(t, e.HasResponded(ctx, 2))
	assert.False(t, e.HasResponded(ctx, 3))
}

type fetcherFunc func(topic string) (string, error)

func (f fetcherFunc) FetchContext(_ context.Context, topic string) (string, error) { return f(topic) }
