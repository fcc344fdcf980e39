package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/kv"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Deps are the collaborators of an Engine, constructed once by the caller.
type Deps struct {
	Source   Source
	Registry Registry
	Notifier Notifier
	Store    kv.Store
	Sites    SiteResolver
	Clock    clock.Clock
	Logger   *zap.Logger
}

// Options tune a run.
type Options struct {
	// Prefix namespaces the state keys.
	Prefix string
	// TTL is the lifetime of every state entry.
	TTL    time.Duration
	Policy EscalationPolicy
	// Workers bounds concurrent entity processing.
	Workers int

	FetchTimeout  time.Duration
	EntityTimeout time.Duration
	NotifyTimeout time.Duration
	StoreTimeout  time.Duration

	// DryRun replaces registry writes and notifications with log lines and
	// discards state writes.
	DryRun bool
}

func (o *Options) setDefaults() {
	if o.Workers <= 0 {
		o.Workers = 4
	}
	if o.FetchTimeout <= 0 {
		o.FetchTimeout = 2 * time.Minute
	}
	if o.EntityTimeout <= 0 {
		o.EntityTimeout = 30 * time.Second
	}
	if o.NotifyTimeout <= 0 {
		o.NotifyTimeout = 10 * time.Second
	}
	if o.StoreTimeout <= 0 {
		o.StoreTimeout = 5 * time.Second
	}
	if o.Policy.Thresholds == nil && o.Policy.Repeat == 0 {
		o.Policy = DefaultEscalationPolicy()
	}
}

// Engine runs reconciliation passes.
type Engine struct {
	source   Source
	registry Registry
	notifier Notifier
	sites    SiteResolver
	tracker  *Tracker
	clock    clock.Clock
	logger   *zap.Logger
	opts     Options
}

// NewEngine wires an engine. In dry-run mode the registry and notifier are
// wrapped so nothing leaves the process, and the store becomes read-only.
func NewEngine(deps Deps, opts Options) *Engine {
	opts.setDefaults()

	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	clk := deps.Clock
	if clk == nil {
		clk = clock.Real()
	}

	registry, notifier, store := deps.Registry, deps.Notifier, deps.Store
	if notifier == nil {
		notifier = NewLogNotifier(logger)
	}
	if opts.DryRun {
		registry = NewDryRunRegistry(registry, logger)
		notifier = NewLogNotifier(logger.With(zap.Bool("dry_run", true)))
		store = kv.ReadOnly(store)
	}

	return &Engine{
		source:   deps.Source,
		registry: registry,
		notifier: notifier,
		sites:    deps.Sites,
		tracker:  NewTracker(store, opts.Prefix, opts.TTL, clk),
		clock:    clk,
		logger:   logger,
		opts:     opts,
	}
}

// Tracker exposes the engine's state accessor.
func (e *Engine) Tracker() *Tracker {
	return e.tracker
}

// tally is the mutex-guarded Summary shared by the workers.
type tally struct {
	mu sync.Mutex
	s  Summary
}

func (t *tally) add(fn func(s *Summary)) {
	t.mu.Lock()
	fn(&t.s)
	t.mu.Unlock()
}

// Run performs one reconciliation pass. The returned error is non-nil only for
// run-scoped failures; the summary is always populated.
func (e *Engine) Run(ctx context.Context) (Summary, error) {
	t := &tally{}
	t.s.StartedAt = e.clock.Now()
	t.s.DryRun = e.opts.DryRun

	finish := func(err error) (Summary, error) {
		t.s.FinishedAt = e.clock.Now()
		e.logSummary(t.s, err)
		return t.s, err
	}

	e.logger.Info("Starting reconciliation", zap.Bool("dry_run", e.opts.DryRun))

	entities, err := e.fetch(ctx)
	if err != nil {
		e.notify(ctx, Event{Kind: EventError, Message: err.Error(), At: e.clock.Now()})
		return finish(err)
	}
	if len(entities) == 0 {
		e.logger.Warn("Source returned no entities, skipping missing-entity evaluation")
		return finish(nil)
	}

	observed := make(map[string]struct{}, len(entities))
	unique := entities[:0:0]
	for _, ent := range entities {
		if _, dup := observed[ent.ID]; dup {
			e.logger.Warn("Duplicate entity in fetch, ignoring", zap.String("id", ent.ID))
			continue
		}
		observed[ent.ID] = struct{}{}
		unique = append(unique, ent)
	}
	t.s.Total = len(unique)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.opts.Workers)
	for _, ent := range unique {
		g.Go(func() error {
			e.processEntity(gctx, ent, t)
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return finish(fmt.Errorf("reconciliation interrupted: %w", err))
	}

	e.evaluateMissing(ctx, observed, t)

	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	if err := e.tracker.AddDailyStats(sctx, t.s.StartedAt, t.s.New, t.s.Changed); err != nil {
		e.logger.Warn("Failed to record daily stats", zap.Error(err))
	}
	cancel()

	return finish(nil)
}

func (e *Engine) fetch(ctx context.Context) ([]Entity, error) {
	if e.source == nil {
		return nil, fmt.Errorf("%w: no source configured", ErrSourceUnavailable)
	}
	fctx, cancel := context.WithTimeout(ctx, e.opts.FetchTimeout)
	defer cancel()

	entities, err := e.source.FetchEntities(fctx)
	if err != nil {
		if !errors.Is(err, ErrSourceUnavailable) {
			err = fmt.Errorf("%w: %w", ErrSourceUnavailable, err)
		}
		e.logger.Error("Failed to fetch entities", zap.Error(err))
		return nil, err
	}
	e.logger.Info("Fetched entities", zap.Int("count", len(entities)))
	return entities, nil
}

// processEntity classifies one entity and applies the decision. Failures are
// counted and logged, never returned.
func (e *Engine) processEntity(ctx context.Context, ent Entity, t *tally) {
	ectx, cancel := context.WithTimeout(ctx, e.opts.EntityTimeout)
	defer cancel()

	l := e.logger.With(zap.String("id", ent.ID), zap.String("name", ent.Attributes.DisplayName))

	outcome, err := e.reconcileEntity(ectx, ent, l, t)
	if err != nil {
		l.Error("Failed to reconcile entity", zap.Error(err))
		outcome = OutcomeError
	}

	if err := e.tracker.MarkSeen(ectx, ent.ID); err != nil {
		l.Warn("Failed to record last seen", zap.Error(err))
	}

	t.add(func(s *Summary) {
		switch outcome {
		case OutcomeNew:
			s.New++
		case OutcomeUpdated:
			s.Changed++
		case OutcomeUnchanged:
			s.Unchanged++
		default:
			s.Errors++
		}
	})
}

func (e *Engine) reconcileEntity(ctx context.Context, ent Entity, l *zap.Logger, t *tally) (Outcome, error) {
	fingerprint := Fingerprint(ent.Attributes)

	prior, err := e.tracker.Load(ctx, ent.ID)
	if err != nil {
		return OutcomeError, err
	}

	now := e.clock.Now()
	if prior.RegistryRef == "" {
		ref, found, err := e.registry.FindByForeignID(ctx, ent.ID)
		if err != nil {
			return OutcomeError, wrapIfNot(err, ErrRegistryLookup)
		}
		if found {
			l.Info("Adopted existing registry record", zap.String("ref", ref))
			prior.RegistryRef = ref
			if err := e.tracker.SetRegistryRef(ctx, ent.ID, ref); err != nil {
				l.Warn("Failed to persist adopted registry ref", zap.Error(err))
			}
		}
	}

	d := Decide(prior, ent, fingerprint, now)

	if d.Returned {
		if err := e.tracker.ClearMissing(ctx, ent.ID); err != nil {
			return OutcomeError, err
		}
		l.Info("Entity returned", zap.Duration("downtime", d.Downtime))
		e.notify(ctx, Event{
			Kind:       EventReturned,
			EntityID:   ent.ID,
			Attributes: ent.Attributes,
			Location:   locationOf(e.sites, ent.Attributes.GroupLabel),
			Downtime:   d.Downtime,
			At:         now,
		})
		t.add(func(s *Summary) { s.Returned++ })
	}

	switch d.Action {
	case ActionCreate:
		rec, err := Normalize(ent, e.sites)
		if err != nil {
			return OutcomeError, err
		}
		ref, err := e.registry.Create(ctx, rec)
		if err != nil {
			return OutcomeError, wrapIfNot(err, ErrRegistryWrite)
		}
		if err := e.tracker.SaveSynced(ctx, ent.ID, ref, fingerprint, ent.Attributes); err != nil {
			return OutcomeError, err
		}
		l.Info("Created registry record", zap.String("ref", ref), zap.String("site", rec.Site))
		e.notify(ctx, Event{
			Kind:       EventNew,
			EntityID:   ent.ID,
			Attributes: ent.Attributes,
			Location:   rec.Site,
			At:         now,
		})

	case ActionUpdate:
		if err := e.registry.Update(ctx, prior.RegistryRef, ent.Attributes, d.Changes); err != nil {
			return OutcomeError, wrapIfNot(err, ErrRegistryWrite)
		}
		if err := e.tracker.SaveSynced(ctx, ent.ID, prior.RegistryRef, fingerprint, ent.Attributes); err != nil {
			return OutcomeError, err
		}
		l.Info("Updated registry record", zap.Strings("fields", d.Changes.Fields()))
		e.notify(ctx, Event{
			Kind:       EventChanged,
			EntityID:   ent.ID,
			Attributes: ent.Attributes,
			Changes:    d.Changes,
			At:         now,
		})

	case ActionRefresh, ActionTouch:
		// Rewriting the synced state keeps it alive as long as the entity is observed.
		if err := e.tracker.SaveSynced(ctx, ent.ID, prior.RegistryRef, fingerprint, ent.Attributes); err != nil {
			return OutcomeError, err
		}
		if d.Action == ActionTouch {
			l.Debug("Entity unchanged")
		}
		e.touch(ctx, prior.RegistryRef, l)
	}

	return d.Outcome, nil
}

func (e *Engine) touch(ctx context.Context, ref string, l *zap.Logger) {
	if err := e.registry.Touch(ctx, ref); err != nil {
		l.Warn("Failed to touch registry record", zap.String("ref", ref), zap.Error(err))
	}
}

// evaluateMissing runs once every entity of the fetch has been processed.
func (e *Engine) evaluateMissing(ctx context.Context, observed map[string]struct{}, t *tally) {
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	known, err := e.tracker.KnownIDs(sctx)
	cancel()
	if err != nil {
		e.logger.Error("Failed to list known entities", zap.Error(err))
		t.add(func(s *Summary) { s.Errors++ })
		return
	}

	for _, id := range MissingSet(known, observed) {
		if ctx.Err() != nil {
			return
		}
		e.evaluateMissingEntity(ctx, id, t)
	}
}

func (e *Engine) evaluateMissingEntity(ctx context.Context, id string, t *tally) {
	sctx, cancel := context.WithTimeout(ctx, e.opts.StoreTimeout)
	defer cancel()

	l := e.logger.With(zap.String("id", id))

	prior, err := e.tracker.Load(sctx, id)
	if err != nil {
		l.Error("Failed to load missing entity state", zap.Error(err))
		t.add(func(s *Summary) { s.Errors++ })
		return
	}

	now := e.clock.Now()
	d, ok := EvaluateMissing(prior, now, e.opts.Policy)
	if !ok {
		l.Debug("Skipping missing entity without snapshot")
		return
	}
	l = l.With(zap.String("name", prior.Snapshot.DisplayName))

	if d.FirstDetected {
		if err := e.tracker.MarkMissing(sctx, id, d.MissingSince); err != nil {
			l.Error("Failed to mark entity missing", zap.Error(err))
			t.add(func(s *Summary) { s.Errors++ })
			return
		}
		l.Warn("Entity missing from source")
	}
	t.add(func(s *Summary) { s.Missing++ })

	if !d.Notify {
		return
	}

	e.notify(ctx, Event{
		Kind:       EventMissing,
		EntityID:   id,
		Attributes: *prior.Snapshot,
		Location:   locationOf(e.sites, prior.Snapshot.GroupLabel),
		Downtime:   d.MissingFor,
		LastSeen:   prior.LastSeen,
		At:         now,
	})
	if err := e.tracker.MarkNotified(sctx, id, now); err != nil {
		l.Warn("Failed to record notification time", zap.Error(err))
	}
	t.add(func(s *Summary) { s.Notified++ })
	l.Info("Missing entity notified", zap.Duration("missing_for", d.MissingFor))
}

// notify delivers ev with its own deadline. Failures are logged only.
func (e *Engine) notify(ctx context.Context, ev Event) {
	nctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), e.opts.NotifyTimeout)
	defer cancel()

	if err := e.notifier.Notify(nctx, ev); err != nil {
		e.logger.Warn("Notification not delivered",
			zap.String("kind", string(ev.Kind)),
			zap.String("id", ev.EntityID),
			zap.Error(wrapIfNot(err, ErrNotificationDelivery)),
		)
	}
}

func (e *Engine) logSummary(s Summary, err error) {
	fields := []zap.Field{
		zap.Int("total", s.Total),
		zap.Int("new", s.New),
		zap.Int("changed", s.Changed),
		zap.Int("unchanged", s.Unchanged),
		zap.Int("errors", s.Errors),
		zap.Int("missing", s.Missing),
		zap.Int("returned", s.Returned),
		zap.Int("notified", s.Notified),
		zap.Bool("dry_run", s.DryRun),
		zap.Duration("duration", s.FinishedAt.Sub(s.StartedAt)),
	}
	if err != nil {
		e.logger.Error("Reconciliation failed", append(fields, zap.Error(err))...)
		return
	}
	e.logger.Info("Reconciliation finished", fields...)
}

func wrapIfNot(err, target error) error {
	if errors.Is(err, target) {
		return err
	}
	return fmt.Errorf("%w: %w", target, err)
}
