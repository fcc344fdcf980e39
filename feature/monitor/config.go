package monitor

import (
	"time"

	"inventory-sync/core/reconcile"
)

// Config holds configuration for scheduled reconciliation.
type Config struct {
	// Enabled starts the scheduler with the HTTP server.
	Enabled bool `mapstructure:"enabled" default:"true"`
	// Interval is the time between scheduled runs.
	Interval time.Duration `mapstructure:"interval" default:"1h"`
	// RunOnStart triggers a run as soon as the scheduler starts.
	RunOnStart bool `mapstructure:"run_on_start" default:"true"`
	// DailyReportHour is the UTC hour the daily report is sent. Negative disables it.
	DailyReportHour int `mapstructure:"daily_report_hour" default:"9"`
	// Workers bounds concurrent entity processing.
	Workers int `mapstructure:"workers" default:"4"`
	// EntityTimeout bounds the processing of a single entity.
	EntityTimeout time.Duration `mapstructure:"entity_timeout" default:"30s"`
	// Thresholds is the escalation schedule for missing entities.
	Thresholds string `mapstructure:"thresholds" default:"0h,1h,6h,24h"`
	// Repeat is the heartbeat interval for entities that stay missing.
	Repeat time.Duration `mapstructure:"repeat" default:"24h"`
	// DryRun logs registry writes and notifications instead of performing them.
	DryRun bool `mapstructure:"dry_run" default:"false"`
}

// Policy builds the escalation policy from Thresholds and Repeat.
func (c Config) Policy() (reconcile.EscalationPolicy, error) {
	thresholds, err := reconcile.ParseThresholds(c.Thresholds)
	if err != nil {
		return reconcile.EscalationPolicy{}, err
	}
	return reconcile.EscalationPolicy{Thresholds: thresholds, Repeat: c.Repeat}, nil
}

// ReportEnabled reports whether a daily report hour is configured.
func (c Config) ReportEnabled() bool {
	return c.DailyReportHour >= 0 && c.DailyReportHour < 24
}
