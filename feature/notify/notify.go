package notify

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"inventory-sync/core/reconcile"

	"go.uber.org/zap"
)

// Dispatcher fans an event out to every configured channel.
type Dispatcher struct {
	channels map[string]reconcile.Notifier
	order    []string
	closers  []func() error
	logger   *zap.Logger
}

// New builds a Dispatcher from cfg. Unknown channel names are rejected.
func New(ctx context.Context, cfg Config, logger *zap.Logger) (*Dispatcher, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	d := &Dispatcher{channels: map[string]reconcile.Notifier{}, logger: logger}

	for _, name := range cfg.ChannelNames() {
		switch name {
		case ChannelLog:
			d.Add(name, reconcile.NewLogNotifier(logger))
		case ChannelTelegram:
			client := &http.Client{Timeout: cfg.Timeout}
			d.Add(name, NewTelegram(cfg.Telegram, cfg.MissingListLimit, client, logger))
		case ChannelNats:
			n, err := ConnectNats(ctx, cfg.Nats)
			if err != nil {
				_ = d.Close()
				return nil, err
			}
			d.Add(name, n)
			d.closers = append(d.closers, n.Close)
		default:
			_ = d.Close()
			return nil, fmt.Errorf("unknown notification channel %q", name)
		}
	}
	return d, nil
}

// Add registers a channel under name.
func (d *Dispatcher) Add(name string, n reconcile.Notifier) {
	if _, ok := d.channels[name]; !ok {
		d.order = append(d.order, name)
	}
	d.channels[name] = n
}

// Channel returns the notifier registered under name.
func (d *Dispatcher) Channel(name string) (reconcile.Notifier, bool) {
	n, ok := d.channels[name]
	return n, ok
}

// Notify implements reconcile.Notifier. Every channel is tried; failures are joined.
func (d *Dispatcher) Notify(ctx context.Context, ev reconcile.Event) error {
	var errs []error
	for _, name := range d.order {
		if err := d.channels[name].Notify(ctx, ev); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	return errors.Join(errs...)
}

// Close releases channel connections.
func (d *Dispatcher) Close() error {
	var errs []error
	for _, c := range d.closers {
		errs = append(errs, c())
	}
	return errors.Join(errs...)
}
