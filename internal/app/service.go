// Package app provides the core ranking service that implements the
// dependencies required by the HTTP API.
package app

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/tablepick/topdish/internal/adapters/cache"
	"github.com/tablepick/topdish/internal/adapters/catalog"
	"github.com/tablepick/topdish/internal/adapters/events"
	"github.com/tablepick/topdish/internal/adapters/repository"
	"github.com/tablepick/topdish/internal/domain/board"
	"github.com/tablepick/topdish/internal/domain/criteria"
	"github.com/tablepick/topdish/internal/domain/dedupe"
	"github.com/tablepick/topdish/internal/domain/model"
	"github.com/tablepick/topdish/internal/domain/scoring"
	"github.com/tablepick/topdish/internal/domain/validate"
	"github.com/tablepick/topdish/pkg/logger"
	"github.com/tablepick/topdish/pkg/metrics"
)

// Default service configuration constants.
const (
	defaultLockTimeout     = 2 * time.Second
	defaultDedupeSize      = 50000
	defaultQueueCapacity   = 10000
	defaultDispatcherCount = 2
	defaultTopHoldersLimit = 10
)

// SubmitResult is returned to the caller of Submit.
type SubmitResult struct {
	Ranking   model.Ranking   `json:"ranking"`
	DishStats model.DishStats `json:"dish_stats"`
	Changed   int             `json:"changed"`
	Duplicate bool            `json:"duplicate"`
}

// Service implements the ranking engine: validation, slot cascades, history,
// aggregation and criterion leaderboards over a shared store.
type Service struct {
	mu sync.RWMutex

	// Core components
	store      repository.Store
	lookup     catalog.Lookup
	publisher  events.Publisher
	validator  *validate.Validator
	scorer     *scoring.DecayScorer
	engine     *criteria.Engine
	deduper    dedupe.Deduper
	locks      *keyLock
	queue      *events.Queue
	dispatcher *events.Dispatcher
	stats      *cache.ReadThrough

	// Configuration
	slotCount       int
	halfLife        time.Duration
	lockTimeout     time.Duration
	dedupeSize      int
	queueCapacity   int
	dispatcherCount int
	cacheBackend    cache.Backend
	cacheTTL        time.Duration

	// State
	started bool
	cancel  context.CancelFunc

	// Logging
	logger logger.Logger

	// now is swappable for tests.
	now func() time.Time
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithStore sets the ranking store. Required.
func WithStore(store repository.Store) Option {
	return func(s *Service) {
		if store != nil {
			s.store = store
		}
	}
}

// WithCatalog sets the dish/restaurant lookup used by criterion
// leaderboards.
func WithCatalog(lookup catalog.Lookup) Option {
	return func(s *Service) {
		if lookup != nil {
			s.lookup = lookup
		}
	}
}

// WithPublisher sets the change event publisher.
func WithPublisher(p events.Publisher) Option {
	return func(s *Service) {
		if p != nil {
			s.publisher = p
		}
	}
}

// WithSlotCount sets the number of tracked positions N.
func WithSlotCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.slotCount = n
		}
	}
}

// WithHalfLife sets the score decay constant.
func WithHalfLife(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.halfLife = d
		}
	}
}

// WithLockTimeout bounds the wait for a scope-key lock.
func WithLockTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.lockTimeout = d
		}
	}
}

// WithDedupeSize sets the size of the submission idempotency cache.
func WithDedupeSize(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dedupeSize = n
		}
	}
}

// WithQueueCapacity bounds the publish queue.
func WithQueueCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.queueCapacity = n
		}
	}
}

// WithDispatcherCount sets the number of publish workers.
func WithDispatcherCount(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.dispatcherCount = n
		}
	}
}

// WithCacheBackend sets the stats cache backend.
func WithCacheBackend(b cache.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.cacheBackend = b
		}
	}
}

// WithCacheTTL sets the stats cache staleness bound.
func WithCacheTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.cacheTTL = ttl
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// New constructs a Service with default configuration.
func New(opts ...Option) *Service {
	s := &Service{
		slotCount:       validate.DefaultSlotCount,
		halfLife:        scoring.DefaultHalfLife,
		lockTimeout:     defaultLockTimeout,
		dedupeSize:      defaultDedupeSize,
		queueCapacity:   defaultQueueCapacity,
		dispatcherCount: defaultDispatcherCount,
		cacheTTL:        cache.DefaultTTL,
		now:             time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s
}

// Start initializes and starts the service components.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("app")
	}
	if s.store == nil {
		s.store = repository.NewMemoryStore()
		s.logger.Info(ctx, "no store configured, using in-memory store")
	}
	if s.lookup == nil {
		s.lookup = catalog.NewStatic()
	}
	if s.publisher == nil {
		s.publisher = events.NewLogPublisher(s.logger.Named("events"))
	}
	if s.cacheBackend == nil {
		s.cacheBackend = cache.NewMemoryBackend()
	}

	s.validator = validate.New(validate.WithSlotCount(s.slotCount))
	s.scorer = scoring.NewDecayScorer(
		scoring.WithSlotCount(s.slotCount),
		scoring.WithHalfLife(s.halfLife),
	)
	s.engine = criteria.NewEngine()
	s.deduper = dedupe.NewInMemoryDeduper(dedupe.WithMaxSize(s.dedupeSize))
	s.locks = newKeyLock()
	s.queue = events.NewQueue(events.WithCapacity(s.queueCapacity))
	s.dispatcher = events.NewDispatcher(s.queue, s.publisher,
		events.WithDispatcherCount(s.dispatcherCount),
		events.WithDispatcherLogger(s.logger.Named("dispatcher")),
	)
	s.stats = cache.NewReadThrough(s.cacheBackend, s.computeDishStats, cache.WithTTL(s.cacheTTL))

	// Dispatchers outlive the Start ctx; they stop when the queue drains
	// after Stop closes it.
	dispatchCtx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.dispatcher.Start(dispatchCtx)

	s.started = true
	s.logger.Info(ctx, "ranking service started",
		logger.Int("slots", s.slotCount),
		logger.Int("dispatchers", s.dispatcherCount),
		logger.Int("queueCapacity", s.queueCapacity),
	)

	return nil
}

// Stop gracefully shuts down the service, draining the publish queue.
func (s *Service) Stop() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return
	}

	ctx := context.Background()
	s.logger.Info(ctx, "stopping ranking service...")

	// Close the queue first so dispatchers drain the backlog, then stop them.
	_ = s.queue.Close()
	s.dispatcher.Wait()
	if s.cancel != nil {
		s.cancel()
	}
	_ = s.stats.Close()
	if err := s.store.Close(); err != nil {
		s.logger.Error(ctx, "closing store", logger.Error(err))
	}

	s.started = false
	s.logger.Info(ctx, "ranking service stopped")
}

// Submit validates and applies one ranking submission: any positional
// conflict is resolved by displacement, all affected rows and their history
// entries commit atomically, and the committed changes are queued for
// publication exactly once.
func (s *Service) Submit(ctx context.Context, sub validate.Submission) (SubmitResult, error) {
	if err := s.ensureStarted(); err != nil {
		return SubmitResult{}, err
	}

	sub, err := s.validator.Validate(sub)
	if err != nil {
		metrics.RecordSubmission("rejected")
		return SubmitResult{}, err
	}

	// Idempotency: a resubmitted submission id acknowledges without
	// re-running the cascade.
	if sub.SubmissionID != "" && s.deduper.SeenAndRecord(ctx, sub.SubmissionID) {
		metrics.RecordSubmission("duplicate")
		metrics.RecordDuplicateSubmission()
		return s.currentResult(ctx, sub, true)
	}

	res, err := s.apply(ctx, sub)
	if err != nil {
		// Allow the caller to retry with the same submission id.
		if sub.SubmissionID != "" {
			s.deduper.Unrecord(ctx, sub.SubmissionID)
		}
		return SubmitResult{}, err
	}
	return res, nil
}

// apply runs the locked portion of a submission and the post-commit fanout.
func (s *Service) apply(ctx context.Context, sub validate.Submission) (SubmitResult, error) {
	release, err := s.locks.acquire(ctx, sub.Scope, s.lockTimeout)
	if err != nil {
		if errors.Is(err, ErrContention) {
			metrics.RecordSubmission("contention")
			metrics.RecordContentionAbort()
		}
		return SubmitResult{}, err
	}

	cs, ranking, err := s.applyLocked(ctx, sub, release)
	if err != nil {
		return SubmitResult{}, err
	}

	if cs.Empty() {
		metrics.RecordSubmission("noop")
	} else {
		metrics.RecordSubmission("accepted")
		metrics.RecordCascadeDepth(len(cs.Changes))
		metrics.RecordHistoryAppends(len(cs.Changes))
		for _, c := range cs.Changes {
			switch {
			case c.Kind == model.ChangeDemote:
				metrics.RecordDemotion()
			case c.Kind == model.ChangeMove && c.After.DishID != sub.DishID:
				metrics.RecordDisplacement()
			}
		}
		s.publish(ctx, cs)
		if err := s.stats.Invalidate(ctx, cs.DishIDs()...); err != nil {
			s.logger.Warn(ctx, "stats cache invalidation failed", logger.Error(err))
		}
	}

	dishStats, err := s.stats.Get(ctx, sub.DishID)
	if err != nil {
		return SubmitResult{}, err
	}
	return SubmitResult{Ranking: ranking, DishStats: dishStats, Changed: len(cs.Changes)}, nil
}

// applyLocked loads the scope, runs the cascade and commits. The lock is
// released before the cross-scope stats reads.
func (s *Service) applyLocked(ctx context.Context, sub validate.Submission, release func()) (model.ChangeSet, model.Ranking, error) {
	defer release()

	current, err := s.store.ListScope(ctx, sub.Scope)
	if err != nil {
		return model.ChangeSet{}, model.Ranking{}, err
	}
	b, err := board.New(sub.Scope, current, board.WithSlotCount(s.slotCount))
	if err != nil {
		return model.ChangeSet{}, model.Ranking{}, err
	}
	cs, err := b.Apply(sub, s.now().UTC())
	if err != nil {
		return model.ChangeSet{}, model.Ranking{}, err
	}

	if !cs.Empty() {
		if _, err := s.store.Commit(ctx, cs); err != nil {
			return model.ChangeSet{}, model.Ranking{}, err
		}
	}

	ranking, _ := b.Ranking(sub.DishID)
	return cs, ranking, nil
}

// publish queues one event per committed change. The queue is bounded; an
// overflow is logged loudly rather than blocking the submission path.
func (s *Service) publish(ctx context.Context, cs model.ChangeSet) {
	for _, ev := range events.EventsFromChangeSet(cs) {
		if err := s.queue.Enqueue(ctx, ev); err != nil {
			metrics.RecordPublishFailure()
			s.logger.Error(ctx, "change event dropped",
				logger.String("dish", ev.After.DishID),
				logger.Error(err),
			)
		}
	}
}

// currentResult serves a duplicate submission from committed state.
func (s *Service) currentResult(ctx context.Context, sub validate.Submission, duplicate bool) (SubmitResult, error) {
	dishStats, err := s.stats.Get(ctx, sub.DishID)
	if err != nil {
		return SubmitResult{}, err
	}
	res := SubmitResult{DishStats: dishStats, Duplicate: duplicate}
	current, err := s.store.ListScope(ctx, sub.Scope)
	if err != nil {
		return SubmitResult{}, err
	}
	for _, r := range current {
		if r.DishID == sub.DishID {
			res.Ranking = r
			break
		}
	}
	return res, nil
}

// DishStats returns the aggregate view of one dish. Unknown dishes return
// empty stats; "no rankings yet" is a valid state, not an error.
func (s *Service) DishStats(ctx context.Context, dishID string) (model.DishStats, error) {
	if err := s.ensureStarted(); err != nil {
		return model.DishStats{}, err
	}
	return s.stats.Get(ctx, dishID)
}

// UserStats returns all current judgments of one user with per-position
// counts.
func (s *Service) UserStats(ctx context.Context, userID string) (model.UserStats, error) {
	if err := s.ensureStarted(); err != nil {
		return model.UserStats{}, err
	}

	rankings, err := s.store.ListByUser(ctx, userID)
	if err != nil {
		return model.UserStats{}, err
	}

	stats := model.UserStats{
		UserID:         userID,
		TotalJudgments: len(rankings),
		PositionCounts: make([]int, s.slotCount),
		StatusCounts:   make(map[model.TasteStatus]int),
		Rankings:       rankings,
	}
	for _, r := range rankings {
		if r.Positional() {
			stats.PositionCounts[r.Position-1]++
		} else {
			stats.StatusCounts[r.Status]++
		}
	}
	return stats, nil
}

// History returns a user's chronological audit trail.
func (s *Service) History(ctx context.Context, userID string) ([]model.HistoryEntry, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}
	return s.store.History(ctx, userID)
}

// CustomLeaderboard scores every positional ranking under a user-defined
// criterion and returns the top dishes. The canonical per-dish aggregate is
// untouched; bonuses apply to this view only.
func (s *Service) CustomLeaderboard(ctx context.Context, crit model.Criterion, limit int) ([]model.LeaderboardEntry, error) {
	if err := s.ensureStarted(); err != nil {
		return nil, err
	}

	rankings, err := s.store.ListPositional(ctx)
	if err != nil {
		return nil, err
	}

	c := criteria.Criterion{
		Category:      crit.Category,
		Subcategories: crit.Subcategories,
		TimeOfDay:     crit.TimeOfDay,
		Tags:          crit.Tags,
	}
	now := s.now().UTC()
	totals := make(map[string]float64)
	for _, r := range rankings {
		dish, err := s.lookup.Dish(ctx, r.DishID)
		if err != nil {
			return nil, fmt.Errorf("lookup dish %s: %w", r.DishID, err)
		}
		if !s.engine.Matches(c, dish) {
			continue
		}
		restaurant, err := s.lookup.Restaurant(ctx, r.Scope.RestaurantID)
		if err != nil {
			return nil, fmt.Errorf("lookup restaurant %s: %w", r.Scope.RestaurantID, err)
		}
		totals[r.DishID] += s.scorer.Score(r, now) * s.engine.Multiplier(c, dish, restaurant)
	}

	entries := make([]model.LeaderboardEntry, 0, len(totals))
	for dishID, score := range totals {
		entries = append(entries, model.LeaderboardEntry{DishID: dishID, Score: score})
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].Score != entries[j].Score {
			return entries[i].Score > entries[j].Score
		}
		return entries[i].DishID < entries[j].DishID
	})
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}
	for i := range entries {
		entries[i].Rank = i + 1
	}
	return entries, nil
}

// computeDishStats derives the aggregate view of one dish from the store.
// Used as the cache's compute function; always consistent with the latest
// committed cascade because commits invalidate affected dishes.
func (s *Service) computeDishStats(ctx context.Context, dishID string) (model.DishStats, error) {
	rankings, err := s.store.ListByDish(ctx, dishID)
	if err != nil {
		return model.DishStats{}, err
	}

	now := s.now().UTC()
	stats := model.DishStats{
		DishID:            dishID,
		TotalJudgments:    len(rankings),
		PositionHistogram: make([]int, s.slotCount),
		StatusHistogram:   make(map[model.TasteStatus]int),
		AggregateScore:    s.scorer.Aggregate(rankings, now),
	}
	for _, r := range rankings {
		if r.Positional() {
			stats.PositionHistogram[r.Position-1]++
			if r.Position == 1 {
				stats.TopHolders = append(stats.TopHolders, model.TopHolder{
					UserID:       r.Scope.UserID,
					RestaurantID: r.Scope.RestaurantID,
					DishTypeID:   r.Scope.DishTypeID,
					Since:        r.UpdatedAt,
				})
			}
		} else {
			stats.StatusHistogram[r.Status]++
		}
	}
	sort.Slice(stats.TopHolders, func(i, j int) bool {
		return stats.TopHolders[i].Since.After(stats.TopHolders[j].Since)
	})
	if len(stats.TopHolders) > defaultTopHoldersLimit {
		stats.TopHolders = stats.TopHolders[:defaultTopHoldersLimit]
	}
	return stats, nil
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats() map[string]interface{} {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := map[string]interface{}{
		"started":     s.started,
		"slots":       s.slotCount,
		"dispatchers": s.dispatcherCount,
	}

	if s.started {
		ctx := context.Background()
		if n, err := s.store.Count(ctx); err == nil {
			stats["trackedRankings"] = n
			metrics.UpdateTrackedRankings(n)
		}
		stats["publishQueueDepth"] = s.queue.Len()
		stats["dedupeSize"] = s.deduper.Size()
	}

	return stats
}

func (s *Service) ensureStarted() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.started {
		return ErrNotStarted
	}
	return nil
}
