package services

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"medrent/internal/cache"
	"medrent/internal/calendar"
	"medrent/internal/core"
	mlog "medrent/internal/log"
	"medrent/internal/metrics"
	"medrent/internal/records"
	"medrent/internal/stats"
)

// RefreshProcessorConfig holds configuration for the refresh processor
type RefreshProcessorConfig struct {
	// Interval between scheduled passes when started (default: 15m)
	Interval time.Duration

	// CacheSize is how many as-of days are memoised (default: 32)
	CacheSize int

	// CacheTTL bounds how stale a memoised pass may get (default: 5m)
	CacheTTL time.Duration

	// LookaheadDays sizes the appointment and diagnostic fetch window (default: 60)
	LookaheadDays int
}

// DefaultRefreshProcessorConfig returns sensible defaults
func DefaultRefreshProcessorConfig() RefreshProcessorConfig {
	return RefreshProcessorConfig{
		Interval:      15 * time.Minute,
		CacheSize:     32,
		CacheTTL:      5 * time.Minute,
		LookaheadDays: 60,
	}
}

// Pass is the outcome of one refresh: the calendar, the live notifications
// and the statistics for one as-of day.
type Pass struct {
	AsOf          core.Date
	Events        []calendar.Event
	Notifications []core.Notification
	Summary       stats.Summary
	Analytics     stats.Analytics
	Warnings      []stats.Warning
	CompletedAt   time.Time
}

// RefreshProcessor runs the read, aggregate, reduce pipeline over the record
// store. Each pass fetches everything once, so every view of a pass is
// consistent with the others.
type RefreshProcessor struct {
	store      records.Store
	dismissals records.DismissalStore
	publisher  NotificationPublisher
	metrics    *metrics.Metrics
	logger     *mlog.StructuredLogger
	config     RefreshProcessorConfig
	now        func() time.Time

	passes *cache.LRUCache[*Pass]
	group  singleflight.Group

	mu        sync.Mutex
	latest    *Pass
	published map[string]bool

	// Lifecycle management
	lifeMu  sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// NewRefreshProcessor creates a refresh processor. publisher and m may be nil.
func NewRefreshProcessor(
	store records.Store,
	dismissals records.DismissalStore,
	publisher NotificationPublisher,
	m *metrics.Metrics,
	config RefreshProcessorConfig,
) *RefreshProcessor {
	return &RefreshProcessor{
		store:      store,
		dismissals: dismissals,
		publisher:  publisher,
		metrics:    m,
		logger:     mlog.NewStructuredLogger(mlog.New(mlog.Config{Handler: slog.Default().Handler(), Component: mlog.ComponentRefresh})),
		config:     config,
		now:        time.Now,
		passes:     cache.NewLRUCache[*Pass](config.CacheSize, config.CacheTTL),
		published:  make(map[string]bool),
	}
}

// Cache exposes the pass memo so a cache manager can evict expired entries.
func (p *RefreshProcessor) Cache() cache.Cleaner {
	return p.passes
}

// Today is the as-of day for scheduled passes.
func (p *RefreshProcessor) Today() core.Date {
	return core.DateOf(p.now())
}

// Refresh returns the pass for asOf, computing it unless a memoised one exists.
// Concurrent calls for the same day share one computation.
func (p *RefreshProcessor) Refresh(ctx context.Context, asOf core.Date) (*Pass, error) {
	key := asOf.String()
	if pass, ok := p.passes.Get(key); ok {
		return pass, nil
	}

	v, err, _ := p.group.Do(key, func() (any, error) {
		if pass, ok := p.passes.Get(key); ok {
			return pass, nil
		}
		pass, err := p.compute(ctx, asOf)
		if err != nil {
			return nil, err
		}
		p.passes.Set(key, pass)
		return pass, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*Pass), nil
}

// Latest returns the most recent pass computed for Today.
func (p *RefreshProcessor) Latest() (*Pass, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.latest, p.latest != nil
}

// Invalidate drops every memoised pass so the next Refresh re-reads the store.
func (p *RefreshProcessor) Invalidate() {
	p.passes.Purge()
}

// Dismiss hides a notification for every later pass.
func (p *RefreshProcessor) Dismiss(ctx context.Context, notificationID string, actor core.Actor) error {
	if err := p.dismissals.Dismiss(ctx, notificationID, actor); err != nil {
		return fmt.Errorf("dismiss notification %s: %w", notificationID, err)
	}
	p.Invalidate()
	slog.InfoContext(ctx, "Notification dismissed",
		mlog.FieldComponent, mlog.ComponentRefresh,
		mlog.FieldNotificationID, notificationID,
		mlog.FieldActorID, actor.ID)
	return nil
}

func (p *RefreshProcessor) compute(ctx context.Context, asOf core.Date) (*Pass, error) {
	start := p.now()

	snap, dismissed, err := p.fetch(ctx, asOf)
	if err != nil {
		p.metrics.IncrementRefreshFailure("fetch")
		return nil, err
	}

	result := calendar.AggregateSnapshot(snap)
	summary := stats.Reduce(result.Events, snap.Transactions())
	analytics, warnings := stats.Analyze(snap, stats.MonthToDate(asOf))
	for _, w := range warnings {
		p.logger.LogInvariantViolation(ctx, w.TransactionID, w.EntityType, w.EntityID, w.Reason)
		p.metrics.IncrementInvariantViolation(string(w.TransactionKind))
	}

	notifications := calendar.FilterDismissed(result.Notifications, dismissed)

	pass := &Pass{
		AsOf:          asOf,
		Events:        result.Events,
		Notifications: notifications,
		Summary:       summary,
		Analytics:     analytics,
		Warnings:      warnings,
		CompletedAt:   p.now(),
	}

	// only today's pass is current; passes for other days are views
	if asOf.Equal(p.Today().Time) {
		p.recordNotificationCounts(notifications)
		p.publishNew(ctx, pass)

		p.mu.Lock()
		p.latest = pass
		p.mu.Unlock()
	}

	p.metrics.ObserveRefresh(p.now().Sub(start))
	slog.InfoContext(ctx, "Refresh completed",
		mlog.FieldComponent, mlog.ComponentRefresh,
		mlog.FieldAsOf, asOf.String(),
		mlog.FieldEvents, len(pass.Events),
		mlog.FieldNotifications, len(pass.Notifications),
		mlog.FieldWarnings, len(pass.Warnings))
	return pass, nil
}

// fetch reads every collection of the snapshot concurrently. Any failure
// aborts the pass; a partial snapshot is never aggregated.
func (p *RefreshProcessor) fetch(ctx context.Context, asOf core.Date) (core.Snapshot, map[string]bool, error) {
	snap := core.Snapshot{AsOf: asOf}
	var dismissed map[string]bool

	ahead := p.config.LookaheadDays
	appointmentsRange := core.DateRange{Start: asOf, End: asOf.AddDays(ahead)}
	diagnosticsRange := core.DateRange{Start: asOf.AddDays(-ahead), End: asOf.AddDays(ahead)}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() (err error) {
		snap.Sales, err = p.store.FetchTransactions(gctx, core.KindSale, records.Filter{})
		return wrap("fetch sales", err)
	})
	g.Go(func() (err error) {
		snap.Rentals, err = p.store.FetchTransactions(gctx, core.KindRental, records.Filter{})
		return wrap("fetch rentals", err)
	})
	g.Go(func() (err error) {
		snap.Appointments, err = p.store.FetchAppointments(gctx, appointmentsRange)
		return wrap("fetch appointments", err)
	})
	g.Go(func() (err error) {
		snap.Diagnostics, err = p.store.FetchDiagnostics(gctx, diagnosticsRange)
		return wrap("fetch diagnostics", err)
	})
	g.Go(func() (err error) {
		snap.Patients, err = p.store.FetchPatients(gctx)
		return wrap("fetch patients", err)
	})
	g.Go(func() (err error) {
		dismissed, err = p.dismissals.Dismissed(gctx)
		return wrap("fetch dismissals", err)
	})
	if err := g.Wait(); err != nil {
		slog.ErrorContext(ctx, "Refresh fetch failed",
			mlog.FieldComponent, mlog.ComponentRefresh,
			mlog.FieldAsOf, asOf.String(),
			"error", err)
		return core.Snapshot{}, nil, err
	}
	snap.FetchedAt = p.now()
	return snap, dismissed, nil
}

// publishNew sends notifications never published before. A failed publish
// is retried on the next pass.
func (p *RefreshProcessor) publishNew(ctx context.Context, pass *Pass) {
	if p.publisher == nil {
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	for _, n := range pass.Notifications {
		if p.published[n.ID] {
			continue
		}
		if err := p.publisher.PublishNotification(ctx, n, pass.AsOf); err != nil {
			p.metrics.IncrementPublished("error")
			p.metrics.IncrementRefreshFailure("publish")
			slog.WarnContext(ctx, "Failed to publish notification",
				mlog.FieldComponent, mlog.ComponentNotifier,
				mlog.FieldNotificationID, n.ID,
				"error", err)
			continue
		}
		p.metrics.IncrementPublished("ok")
		p.published[n.ID] = true
	}
}

func (p *RefreshProcessor) recordNotificationCounts(ns []core.Notification) {
	counts := make(map[string]int, 4)
	for _, n := range ns {
		counts[string(n.Type)]++
	}
	p.metrics.SetNotifications(counts, []string{
		string(core.NotificationOverdue),
		string(core.NotificationDueSoon),
		string(core.NotificationReminder),
		string(core.NotificationUrgent),
	})
}

func wrap(op string, err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", op, err)
}

// Start runs a pass for today immediately and then on every interval.
// Returns an error if already running.
func (p *RefreshProcessor) Start(ctx context.Context) error {
	p.lifeMu.Lock()
	if p.running {
		p.lifeMu.Unlock()
		return fmt.Errorf("refresh processor is already running")
	}
	p.running = true
	p.stopCh = make(chan struct{})
	p.doneCh = make(chan struct{})
	p.lifeMu.Unlock()

	go p.runLoop(ctx)

	slog.InfoContext(ctx, "Refresh processor started",
		mlog.FieldComponent, mlog.ComponentRefresh,
		"interval", p.config.Interval)
	return nil
}

// Stop gracefully stops the processor and waits for completion.
func (p *RefreshProcessor) Stop(ctx context.Context) error {
	p.lifeMu.Lock()
	if !p.running {
		p.lifeMu.Unlock()
		return nil
	}
	p.lifeMu.Unlock()

	close(p.stopCh)

	select {
	case <-p.doneCh:
		slog.InfoContext(ctx, "Refresh processor stopped gracefully", mlog.FieldComponent, mlog.ComponentRefresh)
	case <-ctx.Done():
		slog.WarnContext(ctx, "Refresh processor stop timed out", mlog.FieldComponent, mlog.ComponentRefresh)
		return ctx.Err()
	}

	p.lifeMu.Lock()
	p.running = false
	p.lifeMu.Unlock()
	return nil
}

// IsRunning returns whether the processor is currently running
func (p *RefreshProcessor) IsRunning() bool {
	p.lifeMu.Lock()
	defer p.lifeMu.Unlock()
	return p.running
}

func (p *RefreshProcessor) runLoop(ctx context.Context) {
	defer close(p.doneCh)

	ticker := time.NewTicker(p.config.Interval)
	defer ticker.Stop()

	p.scheduled(ctx)
	for {
		select {
		case <-p.stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			p.scheduled(ctx)
		}
	}
}

// scheduled always recomputes: a timer pass exists to pick up store changes.
func (p *RefreshProcessor) scheduled(ctx context.Context) {
	p.Invalidate()
	if _, err := p.Refresh(ctx, p.Today()); err != nil {
		slog.ErrorContext(ctx, "Scheduled refresh failed", mlog.FieldComponent, mlog.ComponentRefresh, "error", err)
	}
}
