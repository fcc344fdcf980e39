package reconcile

import (
	"context"

	"go.uber.org/zap"
)

// DryRunRefPrefix marks references handed out by the dry-run registry.
const DryRunRefPrefix = "dry-run:"

type dryRunRegistry struct {
	lookup Registry
	logger *zap.Logger
}

// NewDryRunRegistry forwards lookups to r and replaces every write with a log line.
// r may be nil, in which case nothing is ever found.
func NewDryRunRegistry(r Registry, logger *zap.Logger) Registry {
	return &dryRunRegistry{lookup: r, logger: logger.With(zap.Bool("dry_run", true))}
}

func (d *dryRunRegistry) FindByForeignID(ctx context.Context, id string) (string, bool, error) {
	if d.lookup == nil {
		return "", false, nil
	}
	return d.lookup.FindByForeignID(ctx, id)
}

func (d *dryRunRegistry) Create(_ context.Context, rec Record) (string, error) {
	d.logger.Info("Would create registry record",
		zap.String("id", rec.ForeignID),
		zap.String("name", rec.Attributes.DisplayName),
		zap.String("site", rec.Site),
		zap.String("manufacturer", rec.Manufacturer),
		zap.String("model", rec.Model),
	)
	return DryRunRefPrefix + rec.ForeignID, nil
}

func (d *dryRunRegistry) Update(_ context.Context, ref string, attrs Attributes, changes Changes) error {
	d.logger.Info("Would update registry record",
		zap.String("ref", ref),
		zap.String("name", attrs.DisplayName),
		zap.Strings("fields", changes.Fields()),
	)
	return nil
}

func (d *dryRunRegistry) Touch(_ context.Context, ref string) error {
	d.logger.Debug("Would touch registry record", zap.String("ref", ref))
	return nil
}

// LogNotifier writes events to a zap logger instead of delivering them.
type LogNotifier struct {
	logger *zap.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) Notify(_ context.Context, ev Event) error {
	fields := []zap.Field{
		zap.String("kind", string(ev.Kind)),
		zap.String("id", ev.EntityID),
		zap.String("name", ev.Attributes.DisplayName),
	}
	if ev.Location != "" {
		fields = append(fields, zap.String("location", ev.Location))
	}
	if len(ev.Changes) > 0 {
		fields = append(fields, zap.Strings("fields", ev.Changes.Fields()))
	}
	if ev.Downtime > 0 {
		fields = append(fields, zap.Duration("downtime", ev.Downtime))
	}
	if ev.Report != nil {
		fields = append(fields,
			zap.Int("total", ev.Report.Total),
			zap.Int("missing", len(ev.Report.Missing)),
		)
	}
	if ev.Message != "" {
		fields = append(fields, zap.String("message", ev.Message))
	}
	n.logger.Info("Notification", fields...)
	return nil
}
