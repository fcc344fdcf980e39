package reconcile

import (
	"context"
	"sort"
	"time"
)

// MissingEntry describes one entity currently marked missing.
type MissingEntry struct {
	ID           string        `json:"id"`
	Name         string        `json:"name"`
	Location     string        `json:"location"`
	MissingSince time.Time     `json:"missing_since"`
	MissingFor   time.Duration `json:"missing_for"`
	LastNotified time.Time     `json:"last_notified,omitempty"`
}

// DailyReport is the payload of a DAILY_SUMMARY event.
type DailyReport struct {
	Date    string         `json:"date"`
	Total   int            `json:"total"`
	New     int            `json:"new"`
	Changed int            `json:"changed"`
	Missing []MissingEntry `json:"missing"`
}

// Top returns at most n missing entries, longest outage first.
func (r DailyReport) Top(n int) []MissingEntry {
	if len(r.Missing) <= n {
		return r.Missing
	}
	return r.Missing[:n]
}

// MissingEntities lists entities marked missing, longest outage first.
func (e *Engine) MissingEntities(ctx context.Context) ([]MissingEntry, error) {
	ids, err := e.tracker.MissingIDs(ctx)
	if err != nil {
		return nil, err
	}

	now := e.clock.Now()
	entries := make([]MissingEntry, 0, len(ids))
	for _, id := range ids {
		prior, err := e.tracker.Load(ctx, id)
		if err != nil {
			return nil, err
		}
		if prior.MissingSince.IsZero() {
			continue
		}
		entry := MissingEntry{
			ID:           id,
			Name:         "Unknown",
			Location:     "Unknown",
			MissingSince: prior.MissingSince,
			MissingFor:   nonNegative(now.Sub(prior.MissingSince)),
			LastNotified: prior.LastNotified,
		}
		if prior.Snapshot != nil {
			entry.Name = prior.Snapshot.DisplayName
			entry.Location = locationOf(e.sites, prior.Snapshot.GroupLabel)
		}
		entries = append(entries, entry)
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].MissingFor > entries[j].MissingFor
	})
	return entries, nil
}

// BuildDailyReport collects the known total, today's counters and the missing list.
func (e *Engine) BuildDailyReport(ctx context.Context) (DailyReport, error) {
	now := e.clock.Now()

	known, err := e.tracker.KnownIDs(ctx)
	if err != nil {
		return DailyReport{}, err
	}
	stats, err := e.tracker.DailyStats(ctx, now)
	if err != nil {
		return DailyReport{}, err
	}
	missing, err := e.MissingEntities(ctx)
	if err != nil {
		return DailyReport{}, err
	}

	return DailyReport{
		Date:    now.Format(time.DateOnly),
		Total:   len(known),
		New:     stats.New,
		Changed: stats.Changed,
		Missing: missing,
	}, nil
}

// SendDailyReport builds the daily report and emits it as DAILY_SUMMARY.
// Delivery failures are returned so an operator-triggered report can surface them.
func (e *Engine) SendDailyReport(ctx context.Context) (DailyReport, error) {
	report, err := e.BuildDailyReport(ctx)
	if err != nil {
		return DailyReport{}, err
	}

	nctx, cancel := context.WithTimeout(ctx, e.opts.NotifyTimeout)
	defer cancel()
	if err := e.notifier.Notify(nctx, Event{Kind: EventDailySummary, Report: &report, At: e.clock.Now()}); err != nil {
		return report, wrapIfNot(err, ErrNotificationDelivery)
	}
	return report, nil
}
