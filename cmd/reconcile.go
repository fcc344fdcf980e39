package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"inventory-sync/core/reconcile"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var reconcileDryRun bool

// reconcileCmd performs a single reconciliation pass.
var reconcileCmd = &cobra.Command{
	Use:   "reconcile",
	Short: "Run one reconciliation pass and exit",
	Long: `Fetches every monitored storage host from Zabbix, creates or updates
the matching NetBox devices and escalates hosts missing from monitoring.

Examples:
  # Normal run
  inventory-sync reconcile

  # Show what would change without touching NetBox or the state store
  inventory-sync reconcile --dry-run`,
	RunE: runReconcile,
}

func init() {
	reconcileCmd.Flags().BoolVar(&reconcileDryRun, "dry-run", false, "Log registry writes and notifications instead of performing them")
	RootCmd.AddCommand(reconcileCmd)
}

func runReconcile(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := newApp(ctx, reconcileDryRun, false)
	if err != nil {
		return err
	}
	defer a.close()

	summary, err := a.monitorService().RunOnce(ctx)
	printSummary(a.logger, summary)
	if err != nil {
		return fmt.Errorf("reconciliation failed: %w", err)
	}
	if summary.Errors > 0 {
		a.logger.Warn("Some entities failed, see the log above", zap.Int("errors", summary.Errors))
	}
	return nil
}

// printSummary logs the counters of a run.
func printSummary(l *zap.Logger, s reconcile.Summary) {
	l.Info("Reconciliation summary",
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
	)
}
