package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"inventory-sync/core/clock"
	"inventory-sync/core/kv"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSource struct {
	mu       sync.Mutex
	entities []Entity
	err      error
}

func (s *fakeSource) set(entities ...Entity) {
	s.mu.Lock()
	s.entities = entities
	s.mu.Unlock()
}

func (s *fakeSource) FetchEntities(context.Context) ([]Entity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return nil, s.err
	}
	return append([]Entity(nil), s.entities...), nil
}

type fakeRegistry struct {
	mu       sync.Mutex
	next     int
	byID     map[string]string
	creates  []Record
	updates  map[string]Changes
	touches  int
	failFor  map[string]error
	findErr  error
	refToID  map[string]string
	adoptIDs map[string]string
}

func newFakeRegistry() *fakeRegistry {
	return &fakeRegistry{
		next:     100,
		byID:     map[string]string{},
		updates:  map[string]Changes{},
		failFor:  map[string]error{},
		refToID:  map[string]string{},
		adoptIDs: map[string]string{},
	}
}

func (r *fakeRegistry) FindByForeignID(_ context.Context, id string) (string, bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.findErr != nil {
		return "", false, r.findErr
	}
	ref, ok := r.adoptIDs[id]
	return ref, ok, nil
}

func (r *fakeRegistry) Create(_ context.Context, rec Record) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[rec.ForeignID]; err != nil {
		return "", err
	}
	r.next++
	ref := fmt.Sprint(r.next)
	r.byID[rec.ForeignID] = ref
	r.refToID[ref] = rec.ForeignID
	r.creates = append(r.creates, rec)
	return ref, nil
}

func (r *fakeRegistry) Update(_ context.Context, ref string, _ Attributes, changes Changes) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.failFor[r.refToID[ref]]; err != nil {
		return err
	}
	r.updates[ref] = changes
	return nil
}

func (r *fakeRegistry) Touch(context.Context, string) error {
	r.mu.Lock()
	r.touches++
	r.mu.Unlock()
	return nil
}

func (r *fakeRegistry) writes() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.creates) + len(r.updates)
}

type recordingNotifier struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, ev Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return n.err
}

func (n *recordingNotifier) kinds() []EventKind {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]EventKind, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Kind)
	}
	return out
}

func (n *recordingNotifier) reset() {
	n.mu.Lock()
	n.events = nil
	n.mu.Unlock()
}

type harness struct {
	source   *fakeSource
	registry *fakeRegistry
	notifier *recordingNotifier
	store    *kv.MemoryStore
	clock    *clock.Fake
	engine   *Engine
}

func newHarness(t *testing.T, opts Options) *harness {
	t.Helper()
	clk := clock.NewFake(t0)
	h := &harness{
		source:   &fakeSource{},
		registry: newFakeRegistry(),
		notifier: &recordingNotifier{},
		store:    kv.NewMemoryStore(clk),
		clock:    clk,
	}
	h.engine = NewEngine(Deps{
		Source:   h.source,
		Registry: h.registry,
		Notifier: h.notifier,
		Store:    h.store,
		Sites:    DefaultSiteMap(),
		Clock:    clk,
		Logger:   zap.NewNop(),
	}, opts)
	return h
}

func entity(id, name string) Entity {
	a := sampleAttributes()
	a.DisplayName = name
	a.SerialA = "SN-" + id
	return Entity{ID: id, Attributes: a}
}

func TestEngine_FirstRunCreates(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"), entity("2", "b"))

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 2, summary.New)
	assert.Len(t, h.registry.creates, 2)
	assert.ElementsMatch(t, []EventKind{EventNew, EventNew}, h.notifier.kinds())
	for _, ev := range h.notifier.events {
		assert.Equal(t, "DC Almaty", ev.Location)
	}

	prior, err := h.engine.Tracker().Load(context.Background(), "1")
	require.NoError(t, err)
	assert.Equal(t, h.registry.byID["1"], prior.RegistryRef)
	assert.Equal(t, Fingerprint(entity("1", "a").Attributes), prior.Fingerprint)
	assert.Equal(t, t0, prior.LastSeen)
}

func TestEngine_SecondRunIsIdempotent(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"), entity("2", "b"), entity("3", "c"))

	_, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	writes := h.registry.writes()
	h.notifier.reset()

	h.clock.Advance(10 * time.Minute)
	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, writes, h.registry.writes(), "no registry writes on the second run")
	assert.Empty(t, h.notifier.kinds(), "no notifications on the second run")
	assert.Equal(t, 3, summary.Unchanged)
	assert.Equal(t, 3, h.registry.touches)
}

func TestEngine_StableEntitiesOutliveStateTTL(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"), entity("2", "b"))

	_, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	writes := h.registry.writes()
	h.notifier.reset()

	h.registry.mu.Lock()
	for id, ref := range h.registry.byID {
		h.registry.adoptIDs[id] = ref
	}
	h.registry.mu.Unlock()

	days := int(kv.DefaultTTL/(24*time.Hour)) + 3
	for day := 1; day <= days; day++ {
		h.clock.Advance(24 * time.Hour)
		summary, err := h.engine.Run(context.Background())
		require.NoError(t, err)
		assert.Equal(t, 2, summary.Unchanged, "day %d", day)
		assert.Zero(t, summary.New+summary.Changed+summary.Errors, "day %d", day)
	}

	assert.Equal(t, writes, h.registry.writes())
	assert.Empty(t, h.registry.updates)
	assert.Empty(t, h.notifier.kinds())

	prior, err := h.engine.Tracker().Load(context.Background(), "1")
	require.NoError(t, err)
	assert.True(t, prior.Known())
	require.NotNil(t, prior.Snapshot)
	assert.Equal(t, "a", prior.Snapshot.DisplayName)
}

func TestEngine_VanishedAfterLongUptimeIsReportedMissing(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"), entity("2", "b"))

	for day := 0; day <= int(kv.DefaultTTL/(24*time.Hour))+1; day++ {
		_, err := h.engine.Run(context.Background())
		require.NoError(t, err)
		h.clock.Advance(24 * time.Hour)
	}
	h.notifier.reset()

	h.source.set(entity("1", "a"))
	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, []EventKind{EventMissing}, h.notifier.kinds())
}

func TestEngine_ChangedEntity(t *testing.T) {
	h := newHarness(t, Options{})
	e := entity("1", "a")
	h.source.set(e)
	_, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	h.notifier.reset()

	e.Attributes.OSVersion = "ONTAP 9.12"
	h.source.set(e)
	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Changed)
	ref := h.registry.byID["1"]
	assert.Equal(t, Changes{"os": {Old: "ONTAP 9.8", New: "ONTAP 9.12"}}, h.registry.updates[ref])

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, EventChanged, h.notifier.events[0].Kind)
	assert.Equal(t, []string{"os"}, h.notifier.events[0].Changes.Fields())

	prior, _ := h.engine.Tracker().Load(context.Background(), "1")
	assert.Equal(t, Fingerprint(e.Attributes), prior.Fingerprint)
	assert.Equal(t, "ONTAP 9.12", prior.Snapshot.OSVersion)
}

func TestEngine_MissingAndReturned(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	a, b, c := entity("A", "a"), entity("B", "b"), entity("C", "c")

	h.source.set(a, b, c)
	_, err := h.engine.Run(ctx)
	require.NoError(t, err)
	h.notifier.reset()

	h.clock.Advance(time.Minute)
	h.source.set(a, c)
	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Missing)
	assert.Equal(t, 1, summary.Notified)
	assert.Equal(t, []EventKind{EventMissing}, h.notifier.kinds())
	assert.Equal(t, "B", h.notifier.events[0].EntityID)
	assert.Equal(t, "DC Almaty", h.notifier.events[0].Location)

	prior, _ := h.engine.Tracker().Load(ctx, "B")
	assert.Equal(t, h.clock.Now(), prior.MissingSince)
	h.notifier.reset()

	h.clock.Advance(2 * time.Hour)
	h.source.set(a, b, c)
	summary, err = h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Returned)
	assert.Equal(t, 0, summary.Missing)
	assert.Equal(t, []EventKind{EventReturned}, h.notifier.kinds())
	assert.Equal(t, 2*time.Hour, h.notifier.events[0].Downtime)

	prior, _ = h.engine.Tracker().Load(ctx, "B")
	assert.True(t, prior.MissingSince.IsZero())
	assert.True(t, prior.LastNotified.IsZero())
	assert.NotEmpty(t, prior.RegistryRef)
}

func TestEngine_ReturnedWithChange(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	a, b := entity("A", "a"), entity("B", "b")

	h.source.set(a, b)
	_, _ = h.engine.Run(ctx)
	h.source.set(a)
	_, _ = h.engine.Run(ctx)
	h.notifier.reset()

	b.Attributes.NetworkAddress = "10.9.9.9"
	h.source.set(a, b)
	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Returned)
	assert.Equal(t, 1, summary.Changed)
	assert.ElementsMatch(t, []EventKind{EventReturned, EventChanged}, h.notifier.kinds())
}

func TestEngine_EscalationOverRuns(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	a, b := entity("A", "a"), entity("B", "b")

	h.source.set(a, b)
	_, _ = h.engine.Run(ctx)
	h.source.set(a)

	steps := []struct {
		advance time.Duration
		notify  bool
	}{
		{0, true},
		{30 * time.Minute, false},
		{30 * time.Minute, true},
		{20 * time.Minute, false},
	}
	for i, step := range steps {
		h.clock.Advance(step.advance)
		h.notifier.reset()
		summary, err := h.engine.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, summary.Missing, "step %d", i)
		if step.notify {
			assert.Equal(t, []EventKind{EventMissing}, h.notifier.kinds(), "step %d", i)
		} else {
			assert.Empty(t, h.notifier.kinds(), "step %d", i)
		}
	}
}

func TestEngine_SkipsMissingWithoutSnapshot(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.source.set(entity("A", "a"))

	// Known but its snapshot expired.
	require.NoError(t, h.store.Set(ctx, "datastore:Z:hash", []byte("fp"), time.Hour))

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Missing)
	assert.Equal(t, []EventKind{EventNew}, h.notifier.kinds())
}

func TestEngine_ErrorIsolation(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{Workers: 2})
	var batch []Entity
	for i := 1; i <= 5; i++ {
		batch = append(batch, entity(fmt.Sprint(i), fmt.Sprintf("e%d", i)))
	}
	h.source.set(batch...)
	_, err := h.engine.Run(ctx)
	require.NoError(t, err)

	before, _ := h.engine.Tracker().Load(ctx, "3")

	for i := range batch {
		batch[i].Attributes.OSVersion = "ONTAP 9.13"
	}
	h.registry.failFor["3"] = errors.New("HTTP 500")
	h.source.set(batch...)

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, summary.Changed)
	assert.Equal(t, 1, summary.Errors)

	after, _ := h.engine.Tracker().Load(ctx, "3")
	assert.Equal(t, before.Fingerprint, after.Fingerprint)
	assert.Equal(t, "ONTAP 9.8", after.Snapshot.OSVersion)
}

func TestEngine_SourceFailure(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.err = errors.New("connection refused")

	summary, err := h.engine.Run(context.Background())
	assert.ErrorIs(t, err, ErrSourceUnavailable)
	assert.Equal(t, 0, summary.Total)
	assert.Equal(t, []EventKind{EventError}, h.notifier.kinds())
	assert.Contains(t, h.notifier.events[0].Message, "connection refused")
}

func TestEngine_EmptyFetchSkipsMissing(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.source.set(entity("A", "a"))
	_, _ = h.engine.Run(ctx)
	h.notifier.reset()

	h.source.set()
	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.Missing)
	assert.Empty(t, h.notifier.kinds())
}

func TestEngine_AdoptsExistingRecord(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.registry.adoptIDs["1"] = "555"
	h.registry.refToID["555"] = "1"
	h.source.set(entity("1", "a"))

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, summary.New)
	assert.Equal(t, 1, summary.Changed)
	assert.Empty(t, h.registry.creates)
	assert.Contains(t, h.registry.updates, "555")

	prior, _ := h.engine.Tracker().Load(ctx, "1")
	assert.Equal(t, "555", prior.RegistryRef)
}

func TestEngine_LookupFailureIsEntityScoped(t *testing.T) {
	h := newHarness(t, Options{})
	h.registry.findErr = errors.New("timeout")
	h.source.set(entity("1", "a"))

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Empty(t, h.registry.creates)
}

func TestEngine_UnresolvedSite(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	e := entity("1", "a")
	e.Attributes.GroupLabel = "DataStore/DataCenter/Nowhere"
	h.source.set(e)

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Errors)
	assert.Empty(t, h.registry.creates)

	prior, _ := h.engine.Tracker().Load(ctx, "1")
	assert.False(t, prior.Known())
}

func TestEngine_FingerprintDriftWithoutDiff(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	e := entity("1", "a")
	h.source.set(e)
	_, _ = h.engine.Run(ctx)
	h.notifier.reset()

	require.NoError(t, h.store.Set(ctx, "datastore:1:hash", []byte("stale"), time.Hour))

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Unchanged)
	assert.Empty(t, h.notifier.kinds())
	assert.Empty(t, h.registry.updates)

	prior, _ := h.engine.Tracker().Load(ctx, "1")
	assert.Equal(t, Fingerprint(e.Attributes), prior.Fingerprint)
}

func TestEngine_NotificationFailureIsSwallowed(t *testing.T) {
	h := newHarness(t, Options{})
	h.notifier.err = errors.New("telegram down")
	h.source.set(entity("1", "a"))

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.New)
	assert.Equal(t, 0, summary.Errors)
}

func TestEngine_DryRun(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{DryRun: true})
	h.source.set(entity("1", "a"), entity("2", "b"))

	summary, err := h.engine.Run(ctx)
	require.NoError(t, err)
	assert.True(t, summary.DryRun)
	assert.Equal(t, 2, summary.New)
	assert.Zero(t, h.registry.writes())
	assert.Empty(t, h.notifier.kinds())
	assert.Equal(t, 0, h.store.Len(), "dry run must not write state")
}

func TestEngine_DuplicateIDsProcessedOnce(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"), entity("1", "a"))

	summary, err := h.engine.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Total)
	assert.Len(t, h.registry.creates, 1)
}

func TestEngine_DailyReport(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t, Options{})
	h.source.set(entity("A", "a"), entity("B", "b"), entity("C", "c"))
	_, _ = h.engine.Run(ctx)

	h.source.set(entity("A", "a"))
	_, _ = h.engine.Run(ctx)
	h.clock.Advance(time.Hour)
	h.source.set(entity("A", "a"), entity("C", "c"))
	_, _ = h.engine.Run(ctx)
	h.source.set(entity("A", "a"))
	_, _ = h.engine.Run(ctx)
	h.notifier.reset()

	report, err := h.engine.SendDailyReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 3, report.New)
	require.Len(t, report.Missing, 2)
	assert.Equal(t, "B", report.Missing[0].ID, "longest outage first")
	assert.Equal(t, time.Hour, report.Missing[0].MissingFor)
	assert.Equal(t, "C", report.Missing[1].ID)

	require.Len(t, h.notifier.events, 1)
	assert.Equal(t, EventDailySummary, h.notifier.events[0].Kind)
	assert.Len(t, report.Top(1), 1)
}

func TestEngine_InterruptedRun(t *testing.T) {
	h := newHarness(t, Options{})
	h.source.set(entity("1", "a"))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := h.engine.Run(ctx)
	assert.Error(t, err)
}
