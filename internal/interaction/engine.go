package interaction

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"math/rand"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/aiox-platform/mentionbot/internal/config"
	"github.com/aiox-platform/mentionbot/internal/memory"
	"github.com/aiox-platform/mentionbot/internal/metrics"
	inats "github.com/aiox-platform/mentionbot/internal/nats"
	"github.com/aiox-platform/mentionbot/internal/platform"
)

const (
	// CandidateLimit is the number of posts requested per search.
	CandidateLimit = 20
	// DefaultMaxReplies applies when a cycle is given a non-positive cap.
	DefaultMaxReplies = 3
	// DefaultSessionLookback is how far before startup posts are still answered.
	DefaultSessionLookback = 24 * time.Hour
)

var (
	ErrNoFollowers     = errors.New("no followers to tweet to")
	ErrBudgetExhausted = errors.New("post budget exhausted")
	ErrEmptyGeneration = errors.New("generator returned empty text")
)

// ReplyTarget is an account the bot proactively replies to.
type ReplyTarget struct {
	SearchTerm    string
	SearchContext string
}

// Config holds the engine settings.
type Config struct {
	SearchTerms     []string
	ReplyTargets    []ReplyTarget
	MaxReplies      int
	SessionLookback time.Duration
}

// ConfigFrom builds an engine Config from application settings.
func ConfigFrom(c config.EngineConfig) Config {
	cfg := Config{
		SearchTerms:     c.SearchTerms,
		MaxReplies:      c.MaxReplies,
		SessionLookback: c.SessionLookback,
	}
	for _, t := range c.ReplyTargets {
		cfg.ReplyTargets = append(cfg.ReplyTargets, ReplyTarget{SearchTerm: t.SearchTerm, SearchContext: t.SearchContext})
	}
	return cfg
}

// Engine runs interaction cycles against the platform. Public cycle methods
// are serialised; only one cycle runs at a time.
type Engine struct {
	platform  Platform
	store     ResponseStore
	generator ResponseGenerator
	cursor    CursorStore

	fetcher ContextFetcher
	users   UserContextProvider
	updater UserContextUpdater
	events  EventPublisher
	budget  PostBudget
	rand    RandSource
	now     func() time.Time
	metrics *metrics.Metrics
	cfg     Config

	mu          sync.Mutex
	lastChecked *int64
	startTime   time.Time
}

// Option configures an Engine.
type Option func(*Engine)

func WithContextFetcher(f ContextFetcher) Option { return func(e *Engine) { e.fetcher = f } }

func WithUserContext(p UserContextProvider) Option { return func(e *Engine) { e.users = p } }

func WithUserContextUpdater(u UserContextUpdater) Option { return func(e *Engine) { e.updater = u } }

func WithEvents(p EventPublisher) Option { return func(e *Engine) { e.events = p } }

func WithBudget(b PostBudget) Option { return func(e *Engine) { e.budget = b } }

func WithRand(r RandSource) Option { return func(e *Engine) { e.rand = r } }

func WithClock(now func() time.Time) Option { return func(e *Engine) { e.now = now } }

func WithMetrics(m *metrics.Metrics) Option { return func(e *Engine) { e.metrics = m } }

// NewEngine creates an Engine. The cursor is loaded once and the session
// window start is fixed at construction.
func NewEngine(p Platform, store ResponseStore, gen ResponseGenerator, cursor CursorStore, cfg Config, opts ...Option) *Engine {
	e := &Engine{
		platform:  p,
		store:     store,
		generator: gen,
		cursor:    cursor,
		fetcher:   NoContext{},
		users:     NoContext{},
		updater:   NoContext{},
		events:    NoEvents{},
		budget:    unlimitedBudget{},
		rand:      rand.New(rand.NewSource(time.Now().UnixNano())),
		now:       time.Now,
		cfg:       cfg,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.metrics == nil {
		e.metrics = metrics.New(prometheus.NewRegistry())
	}
	if e.cfg.MaxReplies <= 0 {
		e.cfg.MaxReplies = DefaultMaxReplies
	}
	if e.cfg.SessionLookback < 0 {
		e.cfg.SessionLookback = DefaultSessionLookback
	}

	e.startTime = e.now().Add(-e.cfg.SessionLookback)

	last, err := cursor.Load()
	if err != nil {
		slog.Warn("interaction: ignoring unreadable cursor", "error", err)
		last = nil
	}
	e.lastChecked = last
	if last != nil {
		e.metrics.CursorPosition.Set(float64(*last))
	}

	slog.Info("interaction: engine ready",
		"identity", p.Identity(),
		"start_time", e.startTime,
		"max_replies", e.cfg.MaxReplies,
		"search_terms", len(e.cfg.SearchTerms),
		"reply_targets", len(e.cfg.ReplyTargets),
	)
	return e
}

// CheckMentions searches for searchTerm and replies to up to maxReplies
// unseen posts, oldest first. It never returns an error; failures are logged
// and reported in the Report.
func (e *Engine) CheckMentions(ctx context.Context, searchTerm, additionalContext, searchContext string, maxReplies int) Report {
	e.mu.Lock()
	defer e.mu.Unlock()
	report := e.checkMentions(ctx, KindMentions, searchTerm, additionalContext, searchContext, maxReplies)
	e.advanceCursor(report)
	return report
}

// MonitorMentions runs one check per configured search term. All terms are
// filtered against the cursor as it stood when the pass began; the cursor
// moves once, after the last term.
func (e *Engine) MonitorMentions(ctx context.Context, additionalContext string) []Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	reports := make([]Report, 0, len(e.cfg.SearchTerms))
	for _, term := range e.cfg.SearchTerms {
		if ctx.Err() != nil {
			slog.Info("interaction: monitoring cancelled", "error", ctx.Err())
			break
		}
		reports = append(reports, e.checkMentions(ctx, KindMentions, term, additionalContext, "", e.cfg.MaxReplies))
	}
	e.advanceCursor(reports...)
	return reports
}

// ReplyGuy picks one configured target at random and answers its recent
// posts. With no targets configured it makes no platform calls. Replies to
// targets never move the cursor.
func (e *Engine) ReplyGuy(ctx context.Context, additionalContext string) Report {
	e.mu.Lock()
	defer e.mu.Unlock()

	if len(e.cfg.ReplyTargets) == 0 {
		slog.Info("interaction: no reply targets configured, skipping reply guy")
		return newReport(KindReplyGuy, "")
	}

	target := e.cfg.ReplyTargets[e.rand.Intn(len(e.cfg.ReplyTargets))]
	query := "from:" + strings.TrimPrefix(target.SearchTerm, "@")
	slog.Info("interaction: reply guy target chosen", "query", query)
	return e.checkMentions(ctx, KindReplyGuy, query, additionalContext, target.SearchContext, e.cfg.MaxReplies)
}

// TweetToFollowers posts a top-level tweet addressed to one random follower.
func (e *Engine) TweetToFollowers(ctx context.Context, additionalContext string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	start := e.now()
	e.metrics.CyclesTotal.WithLabelValues(string(KindFollowers)).Inc()
	defer func() {
		e.metrics.CycleDuration.WithLabelValues(string(KindFollowers)).Observe(e.now().Sub(start).Seconds())
	}()

	identity := e.platform.Identity()
	followers, err := e.platform.Followers(ctx, identity)
	if err != nil {
		return fmt.Errorf("fetching followers of %s: %w", identity, err)
	}
	if len(followers) == 0 {
		return ErrNoFollowers
	}

	if !e.allowPost(ctx) {
		return ErrBudgetExhausted
	}

	follower := followers[e.rand.Intn(len(followers))]
	handle := strings.TrimPrefix(follower.Handle, "@")
	prompt := followerPrompt(handle, follower.Description)

	extra := mergeContext(additionalContext, e.userContext(ctx, handle))
	text, err := e.generate(ctx, prompt, extra)
	if err != nil {
		e.metrics.PostFailuresTotal.WithLabelValues("generate").Inc()
		return fmt.Errorf("generating tweet to %s: %w", handle, err)
	}

	postID, err := e.platform.Post(ctx, text, 0)
	if err != nil {
		e.metrics.PostFailuresTotal.WithLabelValues("post").Inc()
		e.publish(ctx, inats.InteractionEvent{
			Kind:         string(KindFollowers),
			Outcome:      inats.OutcomeFailed,
			AuthorHandle: handle,
			ResponseText: text,
			Error:        err.Error(),
		})
		return fmt.Errorf("posting tweet to %s: %w", handle, err)
	}
	e.recordPost(ctx, KindFollowers)

	slog.Info("interaction: tweeted to follower", "handle", handle, "post_id", postID)

	if err := e.updater.UpdateUserContext(ctx, handle, followerSummary(handle, text, follower.Description), additionalContext); err != nil {
		slog.Warn("interaction: failed to update user context", "handle", handle, "error", err)
	}
	e.publish(ctx, inats.InteractionEvent{
		Kind:           string(KindFollowers),
		Outcome:        inats.OutcomePosted,
		ResponsePostID: postID,
		AuthorHandle:   handle,
		ResponseText:   text,
	})
	return nil
}

// HasResponded reports whether postID already has a response record. Lookup
// failures are treated as not responded.
func (e *Engine) HasResponded(ctx context.Context, postID int64) bool {
	res, err := e.lookupResponse(ctx, postID)
	if res == LookupError {
		slog.Warn("interaction: response lookup failed, treating as not responded", "post_id", postID, "error", err)
		e.metrics.DedupLookupErrorsTotal.Inc()
		return false
	}
	return res == LookupFound
}

func (e *Engine) lookupResponse(ctx context.Context, postID int64) (Lookup, error) {
	exists, err := e.store.Exists(ctx, postID)
	if err != nil {
		return LookupError, err
	}
	if exists {
		return LookupFound, nil
	}
	return LookupNotFound, nil
}

func (e *Engine) checkMentions(ctx context.Context, kind Kind, searchTerm, additionalContext, searchContext string, maxReplies int) (report Report) {
	report = newReport(kind, searchTerm)
	if maxReplies <= 0 {
		maxReplies = DefaultMaxReplies
	}

	var candidates []platform.Post
	start := e.now()
	e.metrics.CyclesTotal.WithLabelValues(string(kind)).Inc()
	defer func() {
		if r := recover(); r != nil {
			slog.Error("interaction: cycle panicked", "query", searchTerm, "panic", r)
			report.Err = fmt.Errorf("cycle panicked: %v", r)
		}
		// Replies happen in order and stop at the first failure, so the
		// replied posts are always a prefix of candidates.
		for _, p := range candidates[min(report.Replied, len(candidates)):] {
			report.Unanswered = append(report.Unanswered, p.ID)
		}
		e.metrics.CycleDuration.WithLabelValues(string(kind)).Observe(e.now().Sub(start).Seconds())
		slog.Info("interaction: cycle finished",
			"kind", kind,
			"query", searchTerm,
			"fetched", report.Fetched,
			"eligible", report.Eligible,
			"replied", report.Replied,
		)
	}()

	posts, err := e.platform.Search(ctx, searchTerm, CandidateLimit)
	if err != nil {
		slog.Warn("interaction: search failed", "query", searchTerm, "error", err)
		e.metrics.SearchFailuresTotal.Inc()
		report.Err = err
		return report
	}
	report.Fetched = len(posts)
	e.metrics.CandidatesFetchedTotal.WithLabelValues(string(kind)).Add(float64(len(posts)))

	candidates = e.filter(ctx, posts, &report)
	report.Eligible = len(candidates)

	for _, post := range candidates {
		if report.Replied >= maxReplies {
			break
		}
		if err := ctx.Err(); err != nil {
			report.Err = err
			break
		}
		if !e.allowPost(ctx) {
			slog.Info("interaction: post budget exhausted, ending cycle", "query", searchTerm)
			report.BudgetExhausted = true
			break
		}

		if err := e.reply(ctx, kind, searchTerm, additionalContext, searchContext, post, &report); err != nil {
			slog.Error("interaction: reply failed, aborting batch", "post_id", post.ID, "author", post.AuthorHandle, "error", err)
			report.Err = err
			break
		}
	}
	return report
}

// filter drops candidates that must not be answered and sorts the rest by
// ascending id.
func (e *Engine) filter(ctx context.Context, posts []platform.Post, report *Report) []platform.Post {
	identity := e.platform.Identity()
	skip := func(reason SkipReason) {
		report.Skipped[reason]++
		e.metrics.CandidatesSkippedTotal.WithLabelValues(string(reason)).Inc()
	}

	var out []platform.Post
	for _, p := range posts {
		switch {
		case e.lastChecked != nil && p.ID <= *e.lastChecked:
			skip(SkipBelowCursor)
		case p.CreatedAt.Before(e.startTime):
			skip(SkipBeforeSession)
		case strings.EqualFold(p.AuthorHandle, identity):
			skip(SkipOwnPost)
		case e.HasResponded(ctx, p.ID):
			skip(SkipAlreadyResponded)
		default:
			out = append(out, p)
		}
	}

	slices.SortFunc(out, func(a, b platform.Post) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		}
		return 0
	})
	return out
}

func (e *Engine) reply(ctx context.Context, kind Kind, searchTerm, additionalContext, searchContext string, post platform.Post, report *Report) error {
	prompt := replyPrompt(post.Text, post.AuthorHandle, searchContext)

	var fetchedBlock string
	fetched, err := e.fetcher.FetchContext(ctx, post.Text)
	if err != nil {
		slog.Warn("interaction: failed to fetch context", "post_id", post.ID, "error", err)
	} else if fetched != "" {
		slog.Debug("interaction: fetched context", "post_id", post.ID, "preview", preview(fetched))
		fetchedBlock = fetchedContext(fetched)
	}

	extra := mergeContext(additionalContext, fetchedBlock, e.userContext(ctx, post.AuthorHandle))

	text, err := e.generate(ctx, prompt, extra)
	if err != nil {
		e.metrics.PostFailuresTotal.WithLabelValues("generate").Inc()
		return fmt.Errorf("generating reply to %d: %w", post.ID, err)
	}

	responseID, err := e.platform.Post(ctx, text, post.ID)
	if err != nil {
		e.metrics.PostFailuresTotal.WithLabelValues("post").Inc()
		e.publish(ctx, inats.InteractionEvent{
			Kind:           string(kind),
			Outcome:        inats.OutcomeFailed,
			SearchTerm:     searchTerm,
			OriginalPostID: post.ID,
			AuthorHandle:   post.AuthorHandle,
			ResponseText:   text,
			Error:          err.Error(),
		})
		return fmt.Errorf("posting reply to %d: %w", post.ID, err)
	}

	e.recordPost(ctx, kind)
	report.Replied++
	report.RepliedIDs = append(report.RepliedIDs, post.ID)
	slog.Info("interaction: replied", "post_id", post.ID, "author", post.AuthorHandle, "response_id", responseID)

	summary := replySummary(post.AuthorHandle, post.Text, text)
	if err := e.updater.UpdateUserContext(ctx, post.AuthorHandle, summary, additionalContext); err != nil {
		slog.Warn("interaction: failed to update user context", "handle", post.AuthorHandle, "error", err)
	}

	rec := memory.ResponseRecord{
		OriginalPostID: post.ID,
		ResponsePostID: responseID,
		AuthorHandle:   post.AuthorHandle,
		OriginalText:   post.Text,
		ResponseText:   text,
		SearchTerm:     searchTerm,
		RespondedAt:    e.now().UTC(),
	}
	if err := e.store.Put(ctx, rec); err != nil {
		slog.Error("interaction: reply sent but not recorded", "post_id", post.ID, "response_id", responseID, "error", err)
	}

	e.publish(ctx, inats.InteractionEvent{
		Kind:           string(kind),
		Outcome:        inats.OutcomePosted,
		SearchTerm:     searchTerm,
		OriginalPostID: post.ID,
		ResponsePostID: responseID,
		AuthorHandle:   post.AuthorHandle,
		ResponseText:   text,
	})
	return nil
}

func (e *Engine) generate(ctx context.Context, prompt, extra string) (string, error) {
	text, err := e.generator.Generate(ctx, prompt, extra)
	if err != nil {
		return "", err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return "", ErrEmptyGeneration
	}
	return text, nil
}

func (e *Engine) userContext(ctx context.Context, handle string) string {
	out, err := e.users.UserContext(ctx, handle)
	if err != nil {
		slog.Warn("interaction: failed to load user context", "handle", handle, "error", err)
		return ""
	}
	return out
}

func (e *Engine) allowPost(ctx context.Context) bool {
	ok, err := e.budget.Allow(ctx)
	if err != nil {
		slog.Warn("interaction: post budget check failed, allowing post", "error", err)
		return true
	}
	return ok
}

func (e *Engine) recordPost(ctx context.Context, kind Kind) {
	e.metrics.RepliesPostedTotal.WithLabelValues(string(kind)).Inc()
	if err := e.budget.Record(ctx); err != nil {
		slog.Warn("interaction: failed to record post against budget", "error", err)
	}
}

func (e *Engine) publish(ctx context.Context, event inats.InteractionEvent) {
	event.ID = uuid.NewString()
	event.Timestamp = e.now().UTC()
	if err := e.events.PublishInteraction(ctx, event); err != nil {
		slog.Warn("interaction: failed to publish event", "outcome", event.Outcome, "error", err)
	}
}

// advanceCursor moves the cursor to the largest id replied to across
// reports, held below the lowest eligible post any of them left unanswered.
// It never moves backwards.
func (e *Engine) advanceCursor(reports ...Report) {
	target, ok := cursorTarget(reports)
	if !ok {
		return
	}
	if e.lastChecked != nil && target <= *e.lastChecked {
		return
	}
	e.lastChecked = &target
	e.metrics.CursorPosition.Set(float64(target))
	if err := e.cursor.Save(target); err != nil {
		slog.Error("interaction: failed to persist cursor", "last_checked_tweet_id", target, "error", err)
	}
}

func cursorTarget(reports []Report) (int64, bool) {
	var highest int64
	found := false
	ceiling := int64(math.MaxInt64)
	for _, r := range reports {
		for _, id := range r.RepliedIDs {
			if !found || id > highest {
				highest = id
				found = true
			}
		}
		for _, id := range r.Unanswered {
			ceiling = min(ceiling, id-1)
		}
	}
	if !found {
		return 0, false
	}
	return min(highest, ceiling), true
}
